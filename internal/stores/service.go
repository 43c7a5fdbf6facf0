package stores

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/minimartapp/minimart-backend/internal/staff"
	"github.com/minimartapp/minimart-backend/pkg/db/models"
	"github.com/minimartapp/minimart-backend/pkg/enums"
	pkgerrors "github.com/minimartapp/minimart-backend/pkg/errors"
)

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

type storeRepository interface {
	FindByID(ctx context.Context, id uuid.UUID) (*models.Store, error)
	FindByOwner(ctx context.Context, ownerProfileID uuid.UUID) (*models.Store, error)
	Update(ctx context.Context, store *models.Store) error
	CreateWithTx(tx *gorm.DB, dto CreateStoreDTO) (*models.Store, error)
}

type staffRepository interface {
	CreateWithTx(tx *gorm.DB, dto staff.CreateStaffDTO) (*models.StaffMember, error)
	ActiveEmailExistsWithTx(tx *gorm.DB, email string) (bool, error)
}

// CreateStoreInput captures a new store request.
type CreateStoreInput struct {
	StoreName string
	AdminName string
}

// UpdateStoreInput captures the allowed store fields for mutation.
type UpdateStoreInput struct {
	StoreName *string
	AdminName *string
}

// Owner identifies the profile creating a store.
type Owner struct {
	ProfileID uuid.UUID
	Email     string
	FullName  string
}

// Service exposes store operations.
type Service interface {
	Create(ctx context.Context, owner Owner, input CreateStoreInput) (*StoreDTO, error)
	GetByID(ctx context.Context, id uuid.UUID) (*StoreDTO, error)
	GetByOwner(ctx context.Context, ownerProfileID uuid.UUID) (*StoreDTO, error)
	Update(ctx context.Context, actorRole enums.MemberRole, storeID uuid.UUID, input UpdateStoreInput) (*StoreDTO, error)
}

type service struct {
	tx    txRunner
	repo  storeRepository
	staff staffRepository
}

// NewService builds a store service with the provided repositories.
func NewService(tx txRunner, repo storeRepository, staffRepo staffRepository) (Service, error) {
	if tx == nil {
		return nil, fmt.Errorf("transaction runner required")
	}
	if repo == nil {
		return nil, fmt.Errorf("store repository required")
	}
	if staffRepo == nil {
		return nil, fmt.Errorf("staff repository required")
	}
	return &service{tx: tx, repo: repo, staff: staffRepo}, nil
}

// Create provisions the store and its owner membership in one transaction.
// The owner membership is what grants the creator access afterwards, so a
// store can never exist without exactly one.
func (s *service) Create(ctx context.Context, owner Owner, input CreateStoreInput) (*StoreDTO, error) {
	storeName := strings.TrimSpace(input.StoreName)
	adminName := strings.TrimSpace(input.AdminName)
	if storeName == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "store name is required")
	}
	if adminName == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "admin name is required")
	}

	if _, err := s.repo.FindByOwner(ctx, owner.ProfileID); err == nil {
		return nil, pkgerrors.New(pkgerrors.CodeConflict, "account already owns a store")
	} else if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "check store ownership")
	}

	ownerEmail := strings.ToLower(strings.TrimSpace(owner.Email))

	var created *models.Store
	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		taken, err := s.staff.ActiveEmailExistsWithTx(tx, ownerEmail)
		if err != nil {
			return fmt.Errorf("check email uniqueness: %w", err)
		}
		if taken {
			return pkgerrors.New(pkgerrors.CodeConflict, "email already belongs to a store")
		}

		store, err := s.repo.CreateWithTx(tx, CreateStoreDTO{
			StoreName:      storeName,
			AdminName:      adminName,
			OwnerProfileID: owner.ProfileID,
		})
		if err != nil {
			return fmt.Errorf("create store: %w", err)
		}

		profileID := owner.ProfileID
		if _, err := s.staff.CreateWithTx(tx, staff.CreateStaffDTO{
			StoreID:  store.ID,
			Role:     enums.MemberRoleStoreOwner,
			Email:    ownerEmail,
			UserID:   &profileID,
			FullName: owner.FullName,
			Status:   enums.StaffStatusActive,
		}); err != nil {
			return fmt.Errorf("create owner membership: %w", err)
		}

		created = store
		return nil
	})
	if err != nil {
		if appErr := pkgerrors.As(err); appErr != nil {
			return nil, appErr
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "create store")
	}
	return FromModel(created), nil
}

func (s *service) GetByID(ctx context.Context, id uuid.UUID) (*StoreDTO, error) {
	store, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "store not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load store")
	}
	return FromModel(store), nil
}

func (s *service) GetByOwner(ctx context.Context, ownerProfileID uuid.UUID) (*StoreDTO, error) {
	store, err := s.repo.FindByOwner(ctx, ownerProfileID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "store not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load store")
	}
	return FromModel(store), nil
}

func (s *service) Update(ctx context.Context, actorRole enums.MemberRole, storeID uuid.UUID, input UpdateStoreInput) (*StoreDTO, error) {
	if !actorRole.CanManageStaff() {
		return nil, pkgerrors.New(pkgerrors.CodeForbidden, "insufficient store role")
	}

	store, err := s.repo.FindByID(ctx, storeID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "store not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load store")
	}

	if input.StoreName != nil {
		if strings.TrimSpace(*input.StoreName) == "" {
			return nil, pkgerrors.New(pkgerrors.CodeValidation, "store name is required")
		}
		store.StoreName = strings.TrimSpace(*input.StoreName)
	}
	if input.AdminName != nil {
		if strings.TrimSpace(*input.AdminName) == "" {
			return nil, pkgerrors.New(pkgerrors.CodeValidation, "admin name is required")
		}
		store.AdminName = strings.TrimSpace(*input.AdminName)
	}

	if err := s.repo.Update(ctx, store); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "update store")
	}
	return FromModel(store), nil
}
