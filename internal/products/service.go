package products

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/minimartapp/minimart-backend/pkg/db/models"
	"github.com/minimartapp/minimart-backend/pkg/enums"
	pkgerrors "github.com/minimartapp/minimart-backend/pkg/errors"
	"github.com/minimartapp/minimart-backend/pkg/pagination"
)

type productRepository interface {
	Create(ctx context.Context, dto CreateProductDTO) (*models.Product, error)
	FindByID(ctx context.Context, id uuid.UUID) (*models.Product, error)
	ListByStore(ctx context.Context, params listProductsParams) ([]models.Product, *pagination.Cursor, error)
	Update(ctx context.Context, product *models.Product) error
	Delete(ctx context.Context, id uuid.UUID) error
}

// ListParams carries the catalog page inputs.
type ListParams struct {
	Limit  int
	Cursor string
}

// CreateProductInput captures a new catalog entry.
type CreateProductInput struct {
	Name         string
	Size         string
	Price        decimal.Decimal
	Availability *bool
}

// UpdateProductInput captures the mutable product fields. Nil fields are
// left untouched.
type UpdateProductInput struct {
	Name         *string
	Size         *string
	Price        *decimal.Decimal
	Availability *bool
}

// Service exposes catalog operations. Every mutation is gated on the
// actor's role; sales staff read the catalog but never change it.
type Service interface {
	Create(ctx context.Context, actorRole enums.MemberRole, storeID uuid.UUID, input CreateProductInput) (*ProductDTO, error)
	List(ctx context.Context, storeID uuid.UUID, params ListParams) (*ProductPage, error)
	Update(ctx context.Context, actorRole enums.MemberRole, storeID, productID uuid.UUID, input UpdateProductInput) (*ProductDTO, error)
	SetAvailability(ctx context.Context, actorRole enums.MemberRole, storeID, productID uuid.UUID, available bool) (*ProductDTO, error)
	Delete(ctx context.Context, actorRole enums.MemberRole, storeID, productID uuid.UUID) error
}

type service struct {
	repo productRepository
}

// NewService builds a product service backed by the provided repository.
func NewService(repo productRepository) (Service, error) {
	if repo == nil {
		return nil, fmt.Errorf("product repository required")
	}
	return &service{repo: repo}, nil
}

func (s *service) Create(ctx context.Context, actorRole enums.MemberRole, storeID uuid.UUID, input CreateProductInput) (*ProductDTO, error) {
	if !actorRole.CanManageCatalog() {
		return nil, pkgerrors.New(pkgerrors.CodeForbidden, "role cannot manage products")
	}
	name := strings.TrimSpace(input.Name)
	if name == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "product name is required")
	}
	if input.Price.IsNegative() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "price cannot be negative")
	}

	availability := true
	if input.Availability != nil {
		availability = *input.Availability
	}

	product, err := s.repo.Create(ctx, CreateProductDTO{
		StoreID:      storeID,
		Name:         name,
		Size:         strings.TrimSpace(input.Size),
		Price:        input.Price,
		Availability: availability,
	})
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "create product")
	}
	return FromModel(product), nil
}

func (s *service) List(ctx context.Context, storeID uuid.UUID, params ListParams) (*ProductPage, error) {
	query := listProductsParams{
		StoreID: storeID,
		Limit:   params.Limit,
	}
	if params.Cursor != "" {
		cursor, err := pagination.ParseCursor(params.Cursor)
		if err != nil {
			return nil, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid cursor")
		}
		query.Cursor = cursor
	}

	items, next, err := s.repo.ListByStore(ctx, query)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list products")
	}

	page := &ProductPage{Products: make([]ProductDTO, 0, len(items))}
	for i := range items {
		page.Products = append(page.Products, *FromModel(&items[i]))
	}
	if next != nil {
		page.NextCursor = pagination.EncodeCursor(*next)
	}
	return page, nil
}

func (s *service) Update(ctx context.Context, actorRole enums.MemberRole, storeID, productID uuid.UUID, input UpdateProductInput) (*ProductDTO, error) {
	if !actorRole.CanManageCatalog() {
		return nil, pkgerrors.New(pkgerrors.CodeForbidden, "role cannot manage products")
	}
	product, err := s.loadStoreProduct(ctx, storeID, productID)
	if err != nil {
		return nil, err
	}

	if input.Name != nil {
		name := strings.TrimSpace(*input.Name)
		if name == "" {
			return nil, pkgerrors.New(pkgerrors.CodeValidation, "product name cannot be empty")
		}
		product.Name = name
	}
	if input.Size != nil {
		product.Size = strings.TrimSpace(*input.Size)
	}
	if input.Price != nil {
		if input.Price.IsNegative() {
			return nil, pkgerrors.New(pkgerrors.CodeValidation, "price cannot be negative")
		}
		product.Price = *input.Price
	}
	if input.Availability != nil {
		product.Availability = *input.Availability
	}

	if err := s.repo.Update(ctx, product); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "update product")
	}
	return FromModel(product), nil
}

func (s *service) SetAvailability(ctx context.Context, actorRole enums.MemberRole, storeID, productID uuid.UUID, available bool) (*ProductDTO, error) {
	return s.Update(ctx, actorRole, storeID, productID, UpdateProductInput{Availability: &available})
}

func (s *service) Delete(ctx context.Context, actorRole enums.MemberRole, storeID, productID uuid.UUID) error {
	if !actorRole.CanManageCatalog() {
		return pkgerrors.New(pkgerrors.CodeForbidden, "role cannot manage products")
	}
	if _, err := s.loadStoreProduct(ctx, storeID, productID); err != nil {
		return err
	}
	if err := s.repo.Delete(ctx, productID); err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "delete product")
	}
	return nil
}

// loadStoreProduct fetches a product and confirms it belongs to the store
// the actor operates in. A cross-store ID is indistinguishable from a
// missing one to the caller.
func (s *service) loadStoreProduct(ctx context.Context, storeID, productID uuid.UUID) (*models.Product, error) {
	product, err := s.repo.FindByID(ctx, productID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "product not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load product")
	}
	if product.StoreID != storeID {
		return nil, pkgerrors.New(pkgerrors.CodeNotFound, "product not found")
	}
	return product, nil
}
