package staff

import (
	"context"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/minimartapp/minimart-backend/pkg/db/models"
	"github.com/minimartapp/minimart-backend/pkg/enums"
)

// Repository handles staff membership persistence.
type Repository struct {
	db *gorm.DB
}

// NewRepository binds a GORM DB to staff operations.
func NewRepository(db *gorm.DB) *Repository {
	return &Repository{db: db}
}

// Create persists a new membership row.
func (r *Repository) Create(ctx context.Context, dto CreateStaffDTO) (*models.StaffMember, error) {
	if !dto.Role.IsValid() {
		return nil, fmt.Errorf("invalid member role %q", dto.Role)
	}
	member := dto.ToModel()
	if err := r.db.WithContext(ctx).Create(member).Error; err != nil {
		return nil, err
	}
	return member, nil
}

// CreateWithTx persists a membership using the provided transaction.
func (r *Repository) CreateWithTx(tx *gorm.DB, dto CreateStaffDTO) (*models.StaffMember, error) {
	if tx == nil {
		return nil, gorm.ErrInvalidTransaction
	}
	if !dto.Role.IsValid() {
		return nil, fmt.Errorf("invalid member role %q", dto.Role)
	}
	member := dto.ToModel()
	if err := tx.Create(member).Error; err != nil {
		return nil, err
	}
	return member, nil
}

// FindByID loads a membership by its UUID.
func (r *Repository) FindByID(ctx context.Context, id uuid.UUID) (*models.StaffMember, error) {
	var member models.StaffMember
	if err := r.db.WithContext(ctx).First(&member, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &member, nil
}

// FindActiveByEmail loads the active membership for the email, across all
// stores. Emails join at most one store so at most one row matches.
func (r *Repository) FindActiveByEmail(ctx context.Context, email string) (*models.StaffMember, error) {
	var member models.StaffMember
	err := r.db.WithContext(ctx).
		Where("LOWER(email) = ? AND status = ?", normalizeEmail(email), enums.StaffStatusActive).
		First(&member).Error
	if err != nil {
		return nil, err
	}
	return &member, nil
}

// MembershipExists reports whether any active membership carries the email.
func (r *Repository) MembershipExists(ctx context.Context, email string) (bool, error) {
	var count int64
	err := r.db.WithContext(ctx).
		Model(&models.StaffMember{}).
		Where("LOWER(email) = ? AND status = ?", normalizeEmail(email), enums.StaffStatusActive).
		Count(&count).Error
	if err != nil {
		return false, err
	}
	return count > 0, nil
}

// ActiveEmailExistsWithTx checks the global email uniqueness rule inside the
// provided transaction.
func (r *Repository) ActiveEmailExistsWithTx(tx *gorm.DB, email string) (bool, error) {
	if tx == nil {
		return false, gorm.ErrInvalidTransaction
	}
	var count int64
	err := tx.Model(&models.StaffMember{}).
		Where("LOWER(email) = ? AND status = ?", normalizeEmail(email), enums.StaffStatusActive).
		Count(&count).Error
	if err != nil {
		return false, err
	}
	return count > 0, nil
}

// ListByStore returns the store's active memberships in creation order.
func (r *Repository) ListByStore(ctx context.Context, storeID uuid.UUID) ([]models.StaffMember, error) {
	var rows []models.StaffMember
	err := r.db.WithContext(ctx).
		Where("store_id = ? AND status = ?", storeID, enums.StaffStatusActive).
		Order("created_at").
		Find(&rows).Error
	if err != nil {
		return nil, err
	}
	return rows, nil
}

// UpdateRole replaces the membership's role.
func (r *Repository) UpdateRole(ctx context.Context, id uuid.UUID, role enums.MemberRole) error {
	if !role.IsValid() {
		return fmt.Errorf("invalid member role %q", role)
	}
	return r.db.WithContext(ctx).
		Model(&models.StaffMember{}).
		Where("id = ?", id).
		Update("role", role).Error
}

// UpdateStatus replaces the membership's status.
func (r *Repository) UpdateStatus(ctx context.Context, id uuid.UUID, status enums.StaffStatus) error {
	if !status.IsValid() {
		return fmt.Errorf("invalid staff status %q", status)
	}
	return r.db.WithContext(ctx).
		Model(&models.StaffMember{}).
		Where("id = ?", id).
		Update("status", status).Error
}

// UpdatePasswordHash replaces the stored credential hash for invited members.
func (r *Repository) UpdatePasswordHash(ctx context.Context, id uuid.UUID, hash string) error {
	return r.db.WithContext(ctx).
		Model(&models.StaffMember{}).
		Where("id = ?", id).
		Update("password_hash", hash).Error
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}
