package models

import (
	"time"

	"github.com/google/uuid"
)

// Profile represents a primary-auth identity (store owners and admins who
// signed up directly, as opposed to invited staff).
type Profile struct {
	ID                    uuid.UUID  `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	Email                 string     `gorm:"column:email;type:text;not null;uniqueIndex"`
	PasswordHash          string     `gorm:"column:password_hash;not null"`
	FullName              string     `gorm:"column:full_name;not null"`
	LastLoginAt           *time.Time `gorm:"column:last_login_at"`
	EmailVerifiedAt       *time.Time `gorm:"column:email_verified_at"`
	VerificationToken     *string    `gorm:"column:verification_token;uniqueIndex"`
	VerificationExpiresAt *time.Time `gorm:"column:verification_expires_at"`
	CreatedAt             time.Time  `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt             time.Time  `gorm:"column:updated_at;autoUpdateTime"`
}
