package passwordreset

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/minimartapp/minimart-backend/pkg/config"
	"github.com/minimartapp/minimart-backend/pkg/db/models"
	pkgerrors "github.com/minimartapp/minimart-backend/pkg/errors"
	"github.com/minimartapp/minimart-backend/pkg/logger"
	"github.com/minimartapp/minimart-backend/pkg/security"
)

// MsgInvalidResetToken is shared by every failed confirmation so a caller
// cannot distinguish unknown, expired, and spent tokens.
const MsgInvalidResetToken = "Invalid or expired reset token"

type tokenRepository interface {
	Create(ctx context.Context, dto CreateTokenDTO) (*models.PasswordResetToken, error)
	FindByToken(ctx context.Context, token string) (*models.PasswordResetToken, error)
	MarkUsed(ctx context.Context, id uuid.UUID, at time.Time) (bool, error)
}

type profileCredentials interface {
	FindByEmail(ctx context.Context, email string) (*models.Profile, error)
	UpdatePasswordHashByEmail(ctx context.Context, email, hash string) error
}

type staffCredentials interface {
	FindActiveByEmail(ctx context.Context, email string) (*models.StaffMember, error)
	UpdatePasswordHash(ctx context.Context, id uuid.UUID, hash string) error
}

// RequestResult carries the token back to the delivery layer. The API
// response itself never includes it.
type RequestResult struct {
	Token     string
	ExpiresAt time.Time
}

// Service exposes the two reset operations.
type Service interface {
	Request(ctx context.Context, email string) (*RequestResult, error)
	Confirm(ctx context.Context, token, newPassword string) error
}

// ServiceParams bundles the dependencies NewService validates.
type ServiceParams struct {
	Repo        tokenRepository
	Profiles    profileCredentials
	Staff       staffCredentials
	PasswordCfg config.PasswordConfig
	ResetCfg    config.PasswordResetConfig
	Logger      *logger.Logger
	Now         func() time.Time
}

type service struct {
	repo        tokenRepository
	profiles    profileCredentials
	staff       staffCredentials
	passwordCfg config.PasswordConfig
	ttl         time.Duration
	logg        *logger.Logger
	now         func() time.Time
}

// NewService builds a password reset service from the provided params.
func NewService(params ServiceParams) (Service, error) {
	if params.Repo == nil {
		return nil, fmt.Errorf("token repository required")
	}
	if params.Profiles == nil {
		return nil, fmt.Errorf("profile credentials required")
	}
	if params.Staff == nil {
		return nil, fmt.Errorf("staff credentials required")
	}
	if params.Logger == nil {
		return nil, fmt.Errorf("logger required")
	}
	ttl := params.ResetCfg.TokenTTL
	if ttl <= 0 {
		ttl = time.Hour
	}
	now := params.Now
	if now == nil {
		now = time.Now
	}
	return &service{
		repo:        params.Repo,
		profiles:    params.Profiles,
		staff:       params.Staff,
		passwordCfg: params.PasswordCfg,
		ttl:         ttl,
		logg:        params.Logger,
		now:         now,
	}, nil
}

// Request mints a reset token when the email belongs to a known account.
// Unknown emails return a nil result with no error; the handler responds
// identically either way.
func (s *service) Request(ctx context.Context, email string) (*RequestResult, error) {
	email = strings.ToLower(strings.TrimSpace(email))
	if !strings.Contains(email, "@") {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "a valid email is required")
	}

	known, err := s.accountExists(ctx, email)
	if err != nil {
		return nil, err
	}
	if !known {
		s.logg.Info(s.logg.WithMemberEmail(ctx, email), "reset requested for unknown email")
		return nil, nil
	}

	token, err := security.GenerateOpaqueToken()
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "generate reset token")
	}
	expiresAt := s.now().UTC().Add(s.ttl)
	if _, err := s.repo.Create(ctx, CreateTokenDTO{
		Email:     email,
		Token:     token,
		ExpiresAt: expiresAt,
	}); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "store reset token")
	}
	return &RequestResult{Token: token, ExpiresAt: expiresAt}, nil
}

// Confirm consumes the token and installs the new password on whichever
// credential record the email belongs to.
func (s *service) Confirm(ctx context.Context, token, newPassword string) error {
	if strings.TrimSpace(token) == "" {
		return pkgerrors.New(pkgerrors.CodeUnauthorized, MsgInvalidResetToken)
	}
	if len(newPassword) < 6 {
		return pkgerrors.New(pkgerrors.CodeValidation, "password must be at least 6 characters")
	}

	row, err := s.repo.FindByToken(ctx, token)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return pkgerrors.New(pkgerrors.CodeUnauthorized, MsgInvalidResetToken)
		}
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load reset token")
	}
	now := s.now().UTC()
	if row.UsedAt != nil || !row.ExpiresAt.After(now) {
		return pkgerrors.New(pkgerrors.CodeUnauthorized, MsgInvalidResetToken)
	}

	hash, err := security.HashPassword(newPassword, s.passwordCfg)
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "hash password")
	}

	won, err := s.repo.MarkUsed(ctx, row.ID, now)
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "consume reset token")
	}
	if !won {
		return pkgerrors.New(pkgerrors.CodeUnauthorized, MsgInvalidResetToken)
	}

	if err := s.installPassword(ctx, row.Email, hash); err != nil {
		return err
	}
	s.logg.Info(s.logg.WithMemberEmail(ctx, row.Email), "password reset completed")
	return nil
}

func (s *service) accountExists(ctx context.Context, email string) (bool, error) {
	if _, err := s.profiles.FindByEmail(ctx, email); err == nil {
		return true, nil
	} else if !errors.Is(err, gorm.ErrRecordNotFound) {
		return false, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "look up profile")
	}
	if _, err := s.staff.FindActiveByEmail(ctx, email); err == nil {
		return true, nil
	} else if !errors.Is(err, gorm.ErrRecordNotFound) {
		return false, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "look up staff member")
	}
	return false, nil
}

func (s *service) installPassword(ctx context.Context, email, hash string) error {
	if _, err := s.profiles.FindByEmail(ctx, email); err == nil {
		if err := s.profiles.UpdatePasswordHashByEmail(ctx, email, hash); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "update profile password")
		}
		return nil
	} else if !errors.Is(err, gorm.ErrRecordNotFound) {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "look up profile")
	}

	member, err := s.staff.FindActiveByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return pkgerrors.New(pkgerrors.CodeUnauthorized, MsgInvalidResetToken)
		}
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "look up staff member")
	}
	if err := s.staff.UpdatePasswordHash(ctx, member.ID, hash); err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "update staff password")
	}
	return nil
}
