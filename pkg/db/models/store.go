package models

import (
	"time"

	"github.com/google/uuid"
)

// Store represents the canonical tenant record. One store per owner profile,
// enforced by lookup at creation time rather than a DB constraint.
type Store struct {
	ID             uuid.UUID `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	StoreName      string    `gorm:"column:store_name;not null"`
	AdminName      string    `gorm:"column:admin_name;not null"`
	OwnerProfileID uuid.UUID `gorm:"column:owner_profile_id;type:uuid;not null"`
	CreatedAt      time.Time `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt      time.Time `gorm:"column:updated_at;autoUpdateTime"`
}
