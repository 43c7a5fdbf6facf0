package invitations

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/minimartapp/minimart-backend/internal/staff"
	"github.com/minimartapp/minimart-backend/pkg/config"
	"github.com/minimartapp/minimart-backend/pkg/db/models"
	"github.com/minimartapp/minimart-backend/pkg/enums"
	pkgerrors "github.com/minimartapp/minimart-backend/pkg/errors"
	"github.com/minimartapp/minimart-backend/pkg/logger"
	"github.com/minimartapp/minimart-backend/pkg/security"
)

// Outcome messages for the acceptance flow. These are caller-facing and
// deliberately do not distinguish a missing token from an already-claimed
// one.
const (
	MsgInvalidInvitation = "Invalid or expired invitation"
	MsgExpiredInvitation = "Invitation has expired"
	MsgEmailTaken        = "Email is already registered"
	MsgAccepted          = "Invitation accepted"
)

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

type invitationRepository interface {
	Create(ctx context.Context, dto CreateInvitationDTO) (*models.StoreInvitation, error)
	FindPendingByToken(ctx context.Context, token string) (*models.StoreInvitation, error)
	ListByStore(ctx context.Context, storeID uuid.UUID) ([]models.StoreInvitation, error)
	FindPendingByTokenWithTx(tx *gorm.DB, token string) (*models.StoreInvitation, error)
	ClaimWithTx(tx *gorm.DB, id uuid.UUID) (bool, error)
}

type staffRepository interface {
	ActiveEmailExistsWithTx(tx *gorm.DB, email string) (bool, error)
	CreateWithTx(tx *gorm.DB, dto staff.CreateStaffDTO) (*models.StaffMember, error)
}

// CreateInput captures a new invitation request.
type CreateInput struct {
	StoreID   uuid.UUID
	Method    enums.InviteMethod
	Email     string
	CreatedBy uuid.UUID
}

// AcceptInput captures an acceptance attempt.
type AcceptInput struct {
	Token    string
	FullName string
	Email    string
	Password string
}

// AcceptResult is the uniform acceptance outcome. Failures are results, not
// errors; nothing escapes to the transport layer except store breakage.
type AcceptResult struct {
	Success bool       `json:"success"`
	Message string     `json:"message"`
	StoreID *uuid.UUID `json:"store_id,omitempty"`
}

// ValidationResult is the read-only pre-check a client runs when the invite
// link is opened, before showing the acceptance form.
type ValidationResult struct {
	Valid   bool       `json:"valid"`
	Message string     `json:"message,omitempty"`
	StoreID *uuid.UUID `json:"store_id,omitempty"`
}

// Service exposes invitation operations.
type Service interface {
	Create(ctx context.Context, actorRole enums.MemberRole, input CreateInput) (*InvitationDTO, error)
	ListByStore(ctx context.Context, storeID uuid.UUID) ([]InvitationDTO, error)
	Validate(ctx context.Context, token string) (*ValidationResult, error)
	Accept(ctx context.Context, input AcceptInput) (*AcceptResult, error)
}

// ServiceParams collects the invitation service dependencies.
type ServiceParams struct {
	Tx          txRunner
	Repo        invitationRepository
	Staff       staffRepository
	PasswordCfg config.PasswordConfig
	InviteCfg   config.InvitationsConfig
	BaseURL     string
	Logger      *logger.Logger
	Now         func() time.Time
}

type service struct {
	tx          txRunner
	repo        invitationRepository
	staff       staffRepository
	passwordCfg config.PasswordConfig
	ttl         time.Duration
	baseURL     string
	logg        *logger.Logger
	now         func() time.Time
}

// NewService builds an invitation service with the provided dependencies.
func NewService(params ServiceParams) (Service, error) {
	if params.Tx == nil {
		return nil, fmt.Errorf("transaction runner required")
	}
	if params.Repo == nil {
		return nil, fmt.Errorf("invitation repository required")
	}
	if params.Staff == nil {
		return nil, fmt.Errorf("staff repository required")
	}
	if params.Logger == nil {
		return nil, fmt.Errorf("logger required")
	}
	ttl := params.InviteCfg.TTL
	if ttl <= 0 {
		ttl = 7 * 24 * time.Hour
	}
	now := params.Now
	if now == nil {
		now = time.Now
	}
	return &service{
		tx:          params.Tx,
		repo:        params.Repo,
		staff:       params.Staff,
		passwordCfg: params.PasswordCfg,
		ttl:         ttl,
		baseURL:     strings.TrimRight(params.BaseURL, "/"),
		logg:        params.Logger,
		now:         now,
	}, nil
}

func (s *service) Create(ctx context.Context, actorRole enums.MemberRole, input CreateInput) (*InvitationDTO, error) {
	if !actorRole.CanManageStaff() {
		return nil, pkgerrors.New(pkgerrors.CodeForbidden, "insufficient store role")
	}
	if !input.Method.IsValid() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "invalid invite method")
	}

	var email *string
	if input.Method == enums.InviteMethodEmail {
		normalized := normalizeEmail(input.Email)
		if !strings.Contains(normalized, "@") {
			return nil, pkgerrors.New(pkgerrors.CodeValidation, "invalid email")
		}
		email = &normalized
	}

	token, err := security.GenerateOpaqueToken()
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "generate invitation token")
	}

	invitation, err := s.repo.Create(ctx, CreateInvitationDTO{
		StoreID:   input.StoreID,
		Token:     token,
		Method:    input.Method,
		Email:     email,
		ExpiresAt: s.now().UTC().Add(s.ttl),
		CreatedBy: input.CreatedBy,
	})
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "create invitation")
	}

	dto := FromModel(invitation)
	dto.InviteURL = s.inviteURL(invitation.Token)
	return dto, nil
}

func (s *service) ListByStore(ctx context.Context, storeID uuid.UUID) ([]InvitationDTO, error) {
	rows, err := s.repo.ListByStore(ctx, storeID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list invitations")
	}
	result := make([]InvitationDTO, 0, len(rows))
	for i := range rows {
		dto := FromModel(&rows[i])
		// Tokens are returned only at creation time.
		dto.Token = ""
		result = append(result, *dto)
	}
	return result, nil
}

func (s *service) Validate(ctx context.Context, token string) (*ValidationResult, error) {
	invitation, err := s.repo.FindPendingByToken(ctx, token)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return &ValidationResult{Valid: false, Message: MsgInvalidInvitation}, nil
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load invitation")
	}
	if s.expired(invitation) {
		return &ValidationResult{Valid: false, Message: MsgExpiredInvitation}, nil
	}
	return &ValidationResult{Valid: true, StoreID: &invitation.StoreID}, nil
}

// Accept claims the invitation and creates the membership in one
// transaction. The claim happens before the membership insert so two
// concurrent acceptances of the same token can never both succeed: the
// conditional pending-to-accepted update picks exactly one winner.
func (s *service) Accept(ctx context.Context, input AcceptInput) (*AcceptResult, error) {
	email := normalizeEmail(input.Email)
	fullName := strings.TrimSpace(input.FullName)
	switch {
	case input.Token == "":
		return failure(MsgInvalidInvitation), nil
	case fullName == "":
		return failure("Full name is required"), nil
	case !strings.Contains(email, "@"):
		return failure("A valid email is required"), nil
	case len(input.Password) < 6:
		return failure("Password must be at least 6 characters"), nil
	}

	hash, err := security.HashPassword(input.Password, s.passwordCfg)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "hash credential")
	}

	var result *AcceptResult
	err = s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		invitation, err := s.repo.FindPendingByTokenWithTx(tx, input.Token)
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				result = failure(MsgInvalidInvitation)
				return nil
			}
			return fmt.Errorf("load invitation: %w", err)
		}

		// Read-only check; an expired invitation stays pending forever.
		if s.expired(invitation) {
			result = failure(MsgExpiredInvitation)
			return nil
		}

		taken, err := s.staff.ActiveEmailExistsWithTx(tx, email)
		if err != nil {
			return fmt.Errorf("check email uniqueness: %w", err)
		}
		if taken {
			result = failure(MsgEmailTaken)
			return nil
		}

		won, err := s.repo.ClaimWithTx(tx, invitation.ID)
		if err != nil {
			return fmt.Errorf("claim invitation: %w", err)
		}
		if !won {
			result = failure(MsgInvalidInvitation)
			return nil
		}

		if _, err := s.staff.CreateWithTx(tx, staff.CreateStaffDTO{
			StoreID:      invitation.StoreID,
			Role:         enums.MemberRoleSalesPerson,
			Email:        email,
			PasswordHash: &hash,
			FullName:     fullName,
			Status:       enums.StaffStatusActive,
		}); err != nil {
			return fmt.Errorf("create staff membership: %w", err)
		}

		result = &AcceptResult{Success: true, Message: MsgAccepted, StoreID: &invitation.StoreID}
		return nil
	})
	if err != nil {
		s.logg.Error(ctx, "invitation acceptance failed", err)
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "accept invitation")
	}
	return result, nil
}

func (s *service) expired(invitation *models.StoreInvitation) bool {
	return !invitation.ExpiresAt.After(s.now().UTC())
}

func (s *service) inviteURL(token string) string {
	if s.baseURL == "" {
		return ""
	}
	return fmt.Sprintf("%s/invite/%s", s.baseURL, token)
}

func failure(message string) *AcceptResult {
	return &AcceptResult{Success: false, Message: message}
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}
