package models

import (
	"time"

	"github.com/google/uuid"

	"github.com/minimartapp/minimart-backend/pkg/enums"
)

// StaffMember binds a person to a store with a role. UserID is set only for
// members carrying a primary-auth profile; invited members authenticate
// through PasswordHash instead. Email is unique across every store, checked
// in application code.
type StaffMember struct {
	ID           uuid.UUID         `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	StoreID      uuid.UUID         `gorm:"column:store_id;type:uuid;not null"`
	Role         enums.MemberRole  `gorm:"column:role;not null"`
	Email        string            `gorm:"column:email;type:text;not null;index"`
	UserID       *uuid.UUID        `gorm:"column:user_id;type:uuid"`
	PasswordHash *string           `gorm:"column:password_hash"`
	FullName     string            `gorm:"column:full_name;not null"`
	Status       enums.StaffStatus `gorm:"column:status;not null"`
	CreatedAt    time.Time         `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt    time.Time         `gorm:"column:updated_at;autoUpdateTime"`
}

// TableName keeps the historical table name.
func (StaffMember) TableName() string {
	return "staff"
}
