package stores

import (
	"time"

	"github.com/google/uuid"

	"github.com/minimartapp/minimart-backend/pkg/db/models"
)

// StoreDTO is the transport shape for a store record.
type StoreDTO struct {
	ID             uuid.UUID `json:"id"`
	StoreName      string    `json:"store_name"`
	AdminName      string    `json:"admin_name"`
	OwnerProfileID uuid.UUID `json:"owner_profile_id"`
	CreatedAt      time.Time `json:"created_at"`
	UpdatedAt      time.Time `json:"updated_at"`
}

// CreateStoreDTO carries the fields needed to insert a store.
type CreateStoreDTO struct {
	StoreName      string
	AdminName      string
	OwnerProfileID uuid.UUID
}

// ToModel converts the create DTO into a persistable model.
func (d CreateStoreDTO) ToModel() *models.Store {
	return &models.Store{
		StoreName:      d.StoreName,
		AdminName:      d.AdminName,
		OwnerProfileID: d.OwnerProfileID,
	}
}

// FromModel converts a model to the external DTO.
func FromModel(m *models.Store) *StoreDTO {
	if m == nil {
		return nil
	}
	return &StoreDTO{
		ID:             m.ID,
		StoreName:      m.StoreName,
		AdminName:      m.AdminName,
		OwnerProfileID: m.OwnerProfileID,
		CreatedAt:      m.CreatedAt,
		UpdatedAt:      m.UpdatedAt,
	}
}
