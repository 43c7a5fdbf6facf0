package models

import (
	"time"

	"github.com/google/uuid"

	"github.com/minimartapp/minimart-backend/pkg/enums"
)

// StoreInvitation is a time-boxed, single-use token granting the right to
// create one staff membership. Email is nil for link-based invites; the
// delivery method is an explicit field rather than a sentinel address.
type StoreInvitation struct {
	ID        uuid.UUID              `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	StoreID   uuid.UUID              `gorm:"column:store_id;type:uuid;not null"`
	Token     string                 `gorm:"column:token;type:text;not null;uniqueIndex"`
	Method    enums.InviteMethod     `gorm:"column:method;not null"`
	Email     *string                `gorm:"column:email"`
	Status    enums.InvitationStatus `gorm:"column:status;not null"`
	ExpiresAt time.Time              `gorm:"column:expires_at;not null"`
	CreatedBy uuid.UUID              `gorm:"column:created_by;type:uuid;not null"`
	CreatedAt time.Time              `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt time.Time              `gorm:"column:updated_at;autoUpdateTime"`
}
