package profiles

import (
	"context"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/minimartapp/minimart-backend/pkg/db/models"
)

// Repository exposes profile persistence operations.
type Repository struct {
	db *gorm.DB
}

// NewRepository constructs a profiles repo bound to the provided GORM DB.
func NewRepository(db *gorm.DB) *Repository {
	return &Repository{db: db}
}

// CreateProfileDTO carries the fields needed to insert a profile. The
// verification fields are nil for pre-verified inserts.
type CreateProfileDTO struct {
	Email                 string
	PasswordHash          string
	FullName              string
	VerificationToken     *string
	VerificationExpiresAt *time.Time
}

// Create inserts a new profile and returns the persisted model.
func (r *Repository) Create(ctx context.Context, dto CreateProfileDTO) (*models.Profile, error) {
	profile := &models.Profile{
		Email:                 dto.Email,
		PasswordHash:          dto.PasswordHash,
		FullName:              dto.FullName,
		VerificationToken:     dto.VerificationToken,
		VerificationExpiresAt: dto.VerificationExpiresAt,
	}
	if err := r.db.WithContext(ctx).Create(profile).Error; err != nil {
		return nil, err
	}
	return profile, nil
}

// FindByVerificationToken loads the profile holding the given verification
// token.
func (r *Repository) FindByVerificationToken(ctx context.Context, token string) (*models.Profile, error) {
	var profile models.Profile
	if err := r.db.WithContext(ctx).Where("verification_token = ?", token).First(&profile).Error; err != nil {
		return nil, err
	}
	return &profile, nil
}

// MarkEmailVerified stamps the profile as verified and clears the token,
// only if it is still unverified. The returned bool reports whether this
// caller won the stamp.
func (r *Repository) MarkEmailVerified(ctx context.Context, id uuid.UUID, at time.Time) (bool, error) {
	result := r.db.WithContext(ctx).
		Model(&models.Profile{}).
		Where("id = ? AND email_verified_at IS NULL", id).
		Updates(map[string]any{
			"email_verified_at":       at,
			"verification_token":      nil,
			"verification_expires_at": nil,
		})
	if result.Error != nil {
		return false, result.Error
	}
	return result.RowsAffected == 1, nil
}

// FindByEmail retrieves the profile matching the provided email.
func (r *Repository) FindByEmail(ctx context.Context, email string) (*models.Profile, error) {
	var profile models.Profile
	if err := r.db.WithContext(ctx).Where("email = ?", email).First(&profile).Error; err != nil {
		return nil, err
	}
	return &profile, nil
}

// FindByID loads a profile by its UUID.
func (r *Repository) FindByID(ctx context.Context, id uuid.UUID) (*models.Profile, error) {
	var profile models.Profile
	if err := r.db.WithContext(ctx).First(&profile, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &profile, nil
}

// UpdateLastLogin refreshes the profile's last_login_at timestamp.
func (r *Repository) UpdateLastLogin(ctx context.Context, id uuid.UUID, at time.Time) error {
	return r.db.WithContext(ctx).
		Model(&models.Profile{}).
		Where("id = ?", id).
		UpdateColumn("last_login_at", at).Error
}

// UpdatePasswordHash replaces the stored password hash.
func (r *Repository) UpdatePasswordHash(ctx context.Context, id uuid.UUID, hash string) error {
	return r.db.WithContext(ctx).
		Model(&models.Profile{}).
		Where("id = ?", id).
		UpdateColumn("password_hash", hash).Error
}

// UpdatePasswordHashByEmail replaces the stored password hash looked up by email.
func (r *Repository) UpdatePasswordHashByEmail(ctx context.Context, email, hash string) error {
	return r.db.WithContext(ctx).
		Model(&models.Profile{}).
		Where("email = ?", email).
		UpdateColumn("password_hash", hash).Error
}

// CreateWithTx inserts a profile using the provided transaction.
func (r *Repository) CreateWithTx(tx *gorm.DB, dto CreateProfileDTO) (*models.Profile, error) {
	if tx == nil {
		return nil, gorm.ErrInvalidTransaction
	}
	profile := &models.Profile{
		Email:                 dto.Email,
		PasswordHash:          dto.PasswordHash,
		FullName:              dto.FullName,
		VerificationToken:     dto.VerificationToken,
		VerificationExpiresAt: dto.VerificationExpiresAt,
	}
	if err := tx.Create(profile).Error; err != nil {
		return nil, err
	}
	return profile, nil
}
