package invitations

import (
	"context"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/minimartapp/minimart-backend/pkg/db/models"
	"github.com/minimartapp/minimart-backend/pkg/enums"
)

// Repository handles invitation persistence.
type Repository struct {
	db *gorm.DB
}

// NewRepository binds a GORM DB to invitation operations.
func NewRepository(db *gorm.DB) *Repository {
	return &Repository{db: db}
}

// Create persists a new invitation row.
func (r *Repository) Create(ctx context.Context, dto CreateInvitationDTO) (*models.StoreInvitation, error) {
	invitation := dto.ToModel()
	if err := r.db.WithContext(ctx).Create(invitation).Error; err != nil {
		return nil, err
	}
	return invitation, nil
}

// FindPendingByToken loads a pending invitation matching the token.
func (r *Repository) FindPendingByToken(ctx context.Context, token string) (*models.StoreInvitation, error) {
	var invitation models.StoreInvitation
	err := r.db.WithContext(ctx).
		Where("token = ? AND status = ?", token, enums.InvitationStatusPending).
		First(&invitation).Error
	if err != nil {
		return nil, err
	}
	return &invitation, nil
}

// ListByStore returns the store's invitations, newest first.
func (r *Repository) ListByStore(ctx context.Context, storeID uuid.UUID) ([]models.StoreInvitation, error) {
	var rows []models.StoreInvitation
	err := r.db.WithContext(ctx).
		Where("store_id = ?", storeID).
		Order("created_at DESC").
		Find(&rows).Error
	if err != nil {
		return nil, err
	}
	return rows, nil
}

// FindPendingByTokenWithTx loads a pending invitation inside the transaction.
func (r *Repository) FindPendingByTokenWithTx(tx *gorm.DB, token string) (*models.StoreInvitation, error) {
	if tx == nil {
		return nil, gorm.ErrInvalidTransaction
	}
	var invitation models.StoreInvitation
	err := tx.
		Where("token = ? AND status = ?", token, enums.InvitationStatusPending).
		First(&invitation).Error
	if err != nil {
		return nil, err
	}
	return &invitation, nil
}

// ClaimWithTx atomically flips a pending invitation to accepted. It reports
// whether this caller won the claim; a false return means another acceptance
// got there first.
func (r *Repository) ClaimWithTx(tx *gorm.DB, id uuid.UUID) (bool, error) {
	if tx == nil {
		return false, gorm.ErrInvalidTransaction
	}
	result := tx.Model(&models.StoreInvitation{}).
		Where("id = ? AND status = ?", id, enums.InvitationStatusPending).
		Update("status", enums.InvitationStatusAccepted)
	if result.Error != nil {
		return false, result.Error
	}
	return result.RowsAffected == 1, nil
}
