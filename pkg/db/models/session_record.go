package models

import "time"

// SessionRecord is the durable copy of a caller's session summary, keyed by
// the caller's email. It backs the fallback session store consulted when the
// fast cache has been evicted; it is written only at sign-in.
type SessionRecord struct {
	CallerKey    string    `gorm:"column:caller_key;type:text;primaryKey"`
	UserEmail    string    `gorm:"column:user_email;type:text;not null"`
	UserID       string    `gorm:"column:user_id;type:text;not null"`
	UserRole     string    `gorm:"column:user_role;type:text"`
	StoreID      string    `gorm:"column:store_id;type:text"`
	StoreName    string    `gorm:"column:store_name;type:text"`
	AdminName    string    `gorm:"column:admin_name;type:text"`
	UserFullName string    `gorm:"column:user_full_name;type:text"`
	CreatedAt    time.Time `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt    time.Time `gorm:"column:updated_at;autoUpdateTime"`
}
