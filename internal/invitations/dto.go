package invitations

import (
	"time"

	"github.com/google/uuid"

	"github.com/minimartapp/minimart-backend/pkg/db/models"
	"github.com/minimartapp/minimart-backend/pkg/enums"
)

// InvitationDTO is the transport shape for an invitation record. The token
// is exposed only to the member who created the invite.
type InvitationDTO struct {
	ID        uuid.UUID              `json:"id"`
	StoreID   uuid.UUID              `json:"store_id"`
	Token     string                 `json:"token,omitempty"`
	Method    enums.InviteMethod     `json:"method"`
	Email     *string                `json:"email,omitempty"`
	Status    enums.InvitationStatus `json:"status"`
	ExpiresAt time.Time              `json:"expires_at"`
	InviteURL string                 `json:"invite_url,omitempty"`
	CreatedAt time.Time              `json:"created_at"`
}

// CreateInvitationDTO carries the fields needed to insert an invitation.
type CreateInvitationDTO struct {
	StoreID   uuid.UUID
	Token     string
	Method    enums.InviteMethod
	Email     *string
	ExpiresAt time.Time
	CreatedBy uuid.UUID
}

// ToModel converts the create DTO into a persistable model.
func (d CreateInvitationDTO) ToModel() *models.StoreInvitation {
	return &models.StoreInvitation{
		StoreID:   d.StoreID,
		Token:     d.Token,
		Method:    d.Method,
		Email:     d.Email,
		Status:    enums.InvitationStatusPending,
		ExpiresAt: d.ExpiresAt,
		CreatedBy: d.CreatedBy,
	}
}

// FromModel converts a model to the external DTO.
func FromModel(m *models.StoreInvitation) *InvitationDTO {
	if m == nil {
		return nil
	}
	return &InvitationDTO{
		ID:        m.ID,
		StoreID:   m.StoreID,
		Token:     m.Token,
		Method:    m.Method,
		Email:     m.Email,
		Status:    m.Status,
		ExpiresAt: m.ExpiresAt,
		CreatedAt: m.CreatedAt,
	}
}
