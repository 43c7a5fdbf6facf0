package passwordreset

import (
	"context"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/minimartapp/minimart-backend/pkg/db/models"
)

// CreateTokenDTO carries the fields for a new reset token row.
type CreateTokenDTO struct {
	Email     string
	Token     string
	ExpiresAt time.Time
}

// Repository handles password reset token persistence.
type Repository struct {
	db *gorm.DB
}

// NewRepository binds a GORM DB to reset token operations.
func NewRepository(db *gorm.DB) *Repository {
	return &Repository{db: db}
}

// Create persists a new reset token row.
func (r *Repository) Create(ctx context.Context, dto CreateTokenDTO) (*models.PasswordResetToken, error) {
	row := &models.PasswordResetToken{
		Email:     dto.Email,
		Token:     dto.Token,
		ExpiresAt: dto.ExpiresAt,
	}
	if err := r.db.WithContext(ctx).Create(row).Error; err != nil {
		return nil, err
	}
	return row, nil
}

// FindByToken loads a reset token by its opaque value.
func (r *Repository) FindByToken(ctx context.Context, token string) (*models.PasswordResetToken, error) {
	var row models.PasswordResetToken
	if err := r.db.WithContext(ctx).First(&row, "token = ?", token).Error; err != nil {
		return nil, err
	}
	return &row, nil
}

// MarkUsed stamps the token as consumed only if it is still unused. The
// returned bool reports whether this caller won the stamp.
func (r *Repository) MarkUsed(ctx context.Context, id uuid.UUID, at time.Time) (bool, error) {
	result := r.db.WithContext(ctx).
		Model(&models.PasswordResetToken{}).
		Where("id = ? AND used_at IS NULL", id).
		Update("used_at", at)
	if result.Error != nil {
		return false, result.Error
	}
	return result.RowsAffected == 1, nil
}
