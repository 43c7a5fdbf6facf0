package products

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/minimartapp/minimart-backend/pkg/db/models"
)

// ProductDTO is the API shape of a catalog entry.
type ProductDTO struct {
	ID           uuid.UUID       `json:"id"`
	StoreID      uuid.UUID       `json:"store_id"`
	Name         string          `json:"name"`
	Size         string          `json:"size"`
	Price        decimal.Decimal `json:"price"`
	Availability bool            `json:"availability"`
	CreatedAt    time.Time       `json:"created_at"`
	UpdatedAt    time.Time       `json:"updated_at"`
}

// ProductPage is one page of a store catalog.
type ProductPage struct {
	Products   []ProductDTO `json:"products"`
	NextCursor string       `json:"next_cursor,omitempty"`
}

// CreateProductDTO carries the fields required to persist a product.
type CreateProductDTO struct {
	StoreID      uuid.UUID
	Name         string
	Size         string
	Price        decimal.Decimal
	Availability bool
}

// ToModel converts the create DTO into a persistable model.
func (d CreateProductDTO) ToModel() *models.Product {
	return &models.Product{
		StoreID:      d.StoreID,
		Name:         d.Name,
		Size:         d.Size,
		Price:        d.Price,
		Availability: d.Availability,
	}
}

// FromModel maps a persisted product onto its DTO.
func FromModel(m *models.Product) *ProductDTO {
	if m == nil {
		return nil
	}
	return &ProductDTO{
		ID:           m.ID,
		StoreID:      m.StoreID,
		Name:         m.Name,
		Size:         m.Size,
		Price:        m.Price,
		Availability: m.Availability,
		CreatedAt:    m.CreatedAt,
		UpdatedAt:    m.UpdatedAt,
	}
}
