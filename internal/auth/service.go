package auth

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/minimartapp/minimart-backend/internal/profiles"
	"github.com/minimartapp/minimart-backend/internal/session"
	pkgauth "github.com/minimartapp/minimart-backend/pkg/auth"
	authsession "github.com/minimartapp/minimart-backend/pkg/auth/session"
	"github.com/minimartapp/minimart-backend/pkg/config"
	"github.com/minimartapp/minimart-backend/pkg/db/models"
	"github.com/minimartapp/minimart-backend/pkg/enums"
	pkgerrors "github.com/minimartapp/minimart-backend/pkg/errors"
	"github.com/minimartapp/minimart-backend/pkg/logger"
	"github.com/minimartapp/minimart-backend/pkg/security"
)

// MsgInvalidCredentials is returned for every failed credential check so a
// caller cannot probe which emails exist.
const MsgInvalidCredentials = "Invalid email or password"

// MsgEmailNotVerified gates profile logins until the signup email is
// confirmed.
const MsgEmailNotVerified = "Email not verified"

// MsgInvalidVerificationToken is shared by every failed confirmation so a
// caller cannot distinguish unknown, expired, and spent tokens.
const MsgInvalidVerificationToken = "Invalid or expired verification token"

type profileRepository interface {
	Create(ctx context.Context, dto profiles.CreateProfileDTO) (*models.Profile, error)
	FindByEmail(ctx context.Context, email string) (*models.Profile, error)
	FindByVerificationToken(ctx context.Context, token string) (*models.Profile, error)
	MarkEmailVerified(ctx context.Context, id uuid.UUID, at time.Time) (bool, error)
	UpdateLastLogin(ctx context.Context, id uuid.UUID, at time.Time) error
}

type staffDirectory interface {
	FindActiveByEmail(ctx context.Context, email string) (*models.StaffMember, error)
}

type storeReader interface {
	FindByID(ctx context.Context, id uuid.UUID) (*models.Store, error)
	FindByOwner(ctx context.Context, ownerProfileID uuid.UUID) (*models.Store, error)
}

type sessionManager interface {
	Generate(ctx context.Context, accessID string) (string, error)
	Rotate(ctx context.Context, oldAccessID, presented, newAccessID string) (string, error)
	Revoke(ctx context.Context, accessID string) error
}

type sessionRecorder interface {
	SignIn(ctx context.Context, record *session.Record) error
	SignOut(ctx context.Context, callerKey string) error
}

// Service exposes the authentication operations for both auth paths:
// primary-auth profiles (owners) and invited staff.
type Service interface {
	Register(ctx context.Context, input RegisterInput) (*RegisterResult, error)
	VerifyEmail(ctx context.Context, token string) error
	Login(ctx context.Context, input LoginInput) (*AuthResult, error)
	InvitedLogin(ctx context.Context, input LoginInput) (*AuthResult, error)
	Refresh(ctx context.Context, accessToken, refreshToken string) (*TokenPair, error)
	Logout(ctx context.Context, accessToken string) error
}

// ServiceParams bundles the dependencies NewService validates.
type ServiceParams struct {
	Profiles    profileRepository
	Staff       staffDirectory
	Stores      storeReader
	Sessions    sessionManager
	Recorder    sessionRecorder
	JWT         config.JWTConfig
	PasswordCfg config.PasswordConfig
	VerifyCfg   config.EmailVerificationConfig
	Logger      *logger.Logger
	Now         func() time.Time
}

type service struct {
	profiles    profileRepository
	staff       staffDirectory
	stores      storeReader
	sessions    sessionManager
	recorder    sessionRecorder
	jwt         config.JWTConfig
	passwordCfg config.PasswordConfig
	verifyTTL   time.Duration
	logg        *logger.Logger
	now         func() time.Time
}

// NewService builds an auth service from the provided params.
func NewService(params ServiceParams) (Service, error) {
	if params.Profiles == nil {
		return nil, fmt.Errorf("profile repository required")
	}
	if params.Staff == nil {
		return nil, fmt.Errorf("staff directory required")
	}
	if params.Stores == nil {
		return nil, fmt.Errorf("store reader required")
	}
	if params.Sessions == nil {
		return nil, fmt.Errorf("session manager required")
	}
	if params.Recorder == nil {
		return nil, fmt.Errorf("session recorder required")
	}
	if params.Logger == nil {
		return nil, fmt.Errorf("logger required")
	}
	verifyTTL := params.VerifyCfg.TokenTTL
	if verifyTTL <= 0 {
		verifyTTL = 24 * time.Hour
	}
	now := params.Now
	if now == nil {
		now = time.Now
	}
	return &service{
		profiles:    params.Profiles,
		staff:       params.Staff,
		stores:      params.Stores,
		sessions:    params.Sessions,
		recorder:    params.Recorder,
		jwt:         params.JWT,
		passwordCfg: params.PasswordCfg,
		verifyTTL:   verifyTTL,
		logg:        params.Logger,
		now:         now,
	}, nil
}

// Register creates a primary-auth profile pending email verification. No
// session is established; the caller confirms the token delivered to their
// inbox and then logs in.
func (s *service) Register(ctx context.Context, input RegisterInput) (*RegisterResult, error) {
	fullName := strings.TrimSpace(input.FullName)
	email := normalizeEmail(input.Email)
	if fullName == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "full name is required")
	}
	if !strings.Contains(email, "@") {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "a valid email is required")
	}
	if len(input.Password) < 6 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "password must be at least 6 characters")
	}

	if _, err := s.profiles.FindByEmail(ctx, email); err == nil {
		return nil, pkgerrors.New(pkgerrors.CodeConflict, "email is already registered")
	} else if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "check existing profile")
	}

	hash, err := security.HashPassword(input.Password, s.passwordCfg)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "hash password")
	}

	token, err := security.GenerateOpaqueToken()
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "generate verification token")
	}
	expiresAt := s.now().UTC().Add(s.verifyTTL)

	profile, err := s.profiles.Create(ctx, profiles.CreateProfileDTO{
		Email:                 email,
		PasswordHash:          hash,
		FullName:              fullName,
		VerificationToken:     &token,
		VerificationExpiresAt: &expiresAt,
	})
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "create profile")
	}

	return &RegisterResult{
		Identity: Identity{
			UserID:   profile.ID,
			Email:    profile.Email,
			FullName: profile.FullName,
			Role:     enums.MemberRoleStoreOwner,
		},
		VerificationToken:     token,
		VerificationExpiresAt: expiresAt,
	}, nil
}

// VerifyEmail consumes the signup token and unlocks the profile for login.
// The stamp is conditional on the profile being unverified, so only one
// confirmation wins.
func (s *service) VerifyEmail(ctx context.Context, token string) error {
	token = strings.TrimSpace(token)
	if token == "" {
		return pkgerrors.New(pkgerrors.CodeUnauthorized, MsgInvalidVerificationToken)
	}

	profile, err := s.profiles.FindByVerificationToken(ctx, token)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return pkgerrors.New(pkgerrors.CodeUnauthorized, MsgInvalidVerificationToken)
		}
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load verification token")
	}
	now := s.now().UTC()
	if profile.VerificationExpiresAt == nil || !profile.VerificationExpiresAt.After(now) {
		return pkgerrors.New(pkgerrors.CodeUnauthorized, MsgInvalidVerificationToken)
	}

	won, err := s.profiles.MarkEmailVerified(ctx, profile.ID, now)
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "consume verification token")
	}
	if !won {
		return pkgerrors.New(pkgerrors.CodeUnauthorized, MsgInvalidVerificationToken)
	}

	s.logg.Info(s.logg.WithMemberEmail(ctx, profile.Email), "signup email verified")
	return nil
}

// Login authenticates against the profiles table first and falls back to
// invited staff credentials. Both failure modes share one message.
func (s *service) Login(ctx context.Context, input LoginInput) (*AuthResult, error) {
	email := normalizeEmail(input.Email)
	if email == "" || input.Password == "" {
		return nil, pkgerrors.New(pkgerrors.CodeUnauthorized, MsgInvalidCredentials)
	}

	profile, err := s.profiles.FindByEmail(ctx, email)
	switch {
	case err == nil:
		return s.loginProfile(ctx, profile, input.Password)
	case errors.Is(err, gorm.ErrRecordNotFound):
		return s.loginStaff(ctx, email, input.Password)
	default:
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "look up profile")
	}
}

// InvitedLogin authenticates an invited staff member directly, skipping the
// profiles table.
func (s *service) InvitedLogin(ctx context.Context, input LoginInput) (*AuthResult, error) {
	email := normalizeEmail(input.Email)
	if email == "" || input.Password == "" {
		return nil, pkgerrors.New(pkgerrors.CodeUnauthorized, MsgInvalidCredentials)
	}
	return s.loginStaff(ctx, email, input.Password)
}

func (s *service) loginProfile(ctx context.Context, profile *models.Profile, password string) (*AuthResult, error) {
	ok, err := security.VerifyPassword(password, profile.PasswordHash)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "verify password")
	}
	if !ok {
		return nil, pkgerrors.New(pkgerrors.CodeUnauthorized, MsgInvalidCredentials)
	}
	if profile.EmailVerifiedAt == nil {
		return nil, pkgerrors.New(pkgerrors.CodeForbidden, MsgEmailNotVerified)
	}

	identity := Identity{
		UserID:   profile.ID,
		Email:    profile.Email,
		FullName: profile.FullName,
		Role:     enums.MemberRoleStoreOwner,
	}

	var store *models.Store
	store, err = s.stores.FindByOwner(ctx, profile.ID)
	if err != nil && !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "look up owned store")
	}
	if store != nil {
		storeID := store.ID
		identity.StoreID = &storeID
		identity.StoreName = store.StoreName
	}

	if err := s.profiles.UpdateLastLogin(ctx, profile.ID, s.now().UTC()); err != nil {
		s.logg.Error(ctx, "recording last login failed", err)
	}
	return s.establishSession(ctx, identity, store)
}

func (s *service) loginStaff(ctx context.Context, email, password string) (*AuthResult, error) {
	member, err := s.staff.FindActiveByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeUnauthorized, MsgInvalidCredentials)
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "look up staff member")
	}
	if member.PasswordHash == nil {
		return nil, pkgerrors.New(pkgerrors.CodeUnauthorized, MsgInvalidCredentials)
	}
	ok, err := security.VerifyPassword(password, *member.PasswordHash)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "verify password")
	}
	if !ok {
		return nil, pkgerrors.New(pkgerrors.CodeUnauthorized, MsgInvalidCredentials)
	}

	store, err := s.stores.FindByID(ctx, member.StoreID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "look up member store")
	}

	storeID := member.StoreID
	identity := Identity{
		UserID:    member.ID,
		Email:     member.Email,
		FullName:  member.FullName,
		Role:      member.Role,
		StoreID:   &storeID,
		StoreName: store.StoreName,
	}
	return s.establishSession(ctx, identity, store)
}

// Refresh rotates the refresh token and mints a fresh access token carrying
// the same identity. The presented access token may be expired; its
// signature still has to check out.
func (s *service) Refresh(ctx context.Context, accessToken, refreshToken string) (*TokenPair, error) {
	claims, err := pkgauth.ParseAccessTokenAllowExpired(s.jwt, accessToken)
	if err != nil {
		return nil, pkgerrors.New(pkgerrors.CodeUnauthorized, "invalid access token")
	}

	newAccessID := authsession.NewAccessID()
	newRefresh, err := s.sessions.Rotate(ctx, claims.ID, refreshToken, newAccessID)
	if err != nil {
		if appErr := pkgerrors.As(err); appErr != nil {
			return nil, appErr
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "rotate refresh token")
	}

	signed, err := pkgauth.MintAccessToken(s.jwt, s.now(), pkgauth.AccessTokenPayload{
		UserID:  claims.UserID,
		Email:   claims.Email,
		StoreID: claims.StoreID,
		Role:    claims.Role,
		JTI:     newAccessID,
	})
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "mint access token")
	}
	return &TokenPair{AccessToken: signed, RefreshToken: newRefresh}, nil
}

// Logout revokes the refresh token and clears the caller's session records.
// Both steps are idempotent so repeated logouts succeed.
func (s *service) Logout(ctx context.Context, accessToken string) error {
	claims, err := pkgauth.ParseAccessTokenAllowExpired(s.jwt, accessToken)
	if err != nil {
		return pkgerrors.New(pkgerrors.CodeUnauthorized, "invalid access token")
	}
	if err := s.sessions.Revoke(ctx, claims.ID); err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "revoke session")
	}
	if err := s.recorder.SignOut(ctx, session.CallerKey(claims.Email)); err != nil {
		s.logg.Error(ctx, "clearing session records failed", err)
	}
	return nil
}

// establishSession mints the token pair and writes the session record
// through both tiers. A record write failure is logged, not surfaced: the
// reconciler repairs from the surviving tier on the next request.
func (s *service) establishSession(ctx context.Context, identity Identity, store *models.Store) (*AuthResult, error) {
	accessID := authsession.NewAccessID()
	signed, err := pkgauth.MintAccessToken(s.jwt, s.now(), pkgauth.AccessTokenPayload{
		UserID:  identity.UserID,
		Email:   identity.Email,
		StoreID: identity.StoreID,
		Role:    identity.Role,
		JTI:     accessID,
	})
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "mint access token")
	}

	refresh, err := s.sessions.Generate(ctx, accessID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "create session")
	}

	record := &session.Record{
		UserEmail:    identity.Email,
		UserID:       identity.UserID.String(),
		UserRole:     identity.Role.String(),
		UserFullName: identity.FullName,
	}
	if store != nil {
		record.StoreID = store.ID.String()
		record.StoreName = store.StoreName
		record.AdminName = store.AdminName
	}
	if err := s.recorder.SignIn(ctx, record); err != nil {
		s.logg.Error(ctx, "writing session record failed", err)
	}

	return &AuthResult{
		Identity: identity,
		Tokens:   TokenPair{AccessToken: signed, RefreshToken: refresh},
	}, nil
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}
