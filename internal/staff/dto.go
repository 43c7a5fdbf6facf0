package staff

import (
	"time"

	"github.com/google/uuid"

	"github.com/minimartapp/minimart-backend/pkg/db/models"
	"github.com/minimartapp/minimart-backend/pkg/enums"
)

// StaffDTO is the transport shape for a staff membership.
type StaffDTO struct {
	ID        uuid.UUID         `json:"id"`
	StoreID   uuid.UUID         `json:"store_id"`
	Role      enums.MemberRole  `json:"role"`
	Email     string            `json:"email"`
	UserID    *uuid.UUID        `json:"user_id,omitempty"`
	FullName  string            `json:"full_name"`
	Status    enums.StaffStatus `json:"status"`
	CreatedAt time.Time         `json:"created_at"`
	UpdatedAt time.Time         `json:"updated_at"`
}

// CreateStaffDTO carries the fields needed to insert a membership.
type CreateStaffDTO struct {
	StoreID      uuid.UUID
	Role         enums.MemberRole
	Email        string
	UserID       *uuid.UUID
	PasswordHash *string
	FullName     string
	Status       enums.StaffStatus
}

// ToModel converts the create DTO into a persistable model.
func (d CreateStaffDTO) ToModel() *models.StaffMember {
	return &models.StaffMember{
		StoreID:      d.StoreID,
		Role:         d.Role,
		Email:        d.Email,
		UserID:       copyUUIDPointer(d.UserID),
		PasswordHash: d.PasswordHash,
		FullName:     d.FullName,
		Status:       d.Status,
	}
}

// FromModel converts a model to the external DTO. The password hash never
// leaves the package.
func FromModel(m *models.StaffMember) *StaffDTO {
	if m == nil {
		return nil
	}
	return &StaffDTO{
		ID:        m.ID,
		StoreID:   m.StoreID,
		Role:      m.Role,
		Email:     m.Email,
		UserID:    copyUUIDPointer(m.UserID),
		FullName:  m.FullName,
		Status:    m.Status,
		CreatedAt: m.CreatedAt,
		UpdatedAt: m.UpdatedAt,
	}
}

func copyUUIDPointer(src *uuid.UUID) *uuid.UUID {
	if src == nil {
		return nil
	}
	dst := *src
	return &dst
}
