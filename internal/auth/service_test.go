package auth

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/minimartapp/minimart-backend/internal/profiles"
	"github.com/minimartapp/minimart-backend/internal/session"
	pkgauth "github.com/minimartapp/minimart-backend/pkg/auth"
	"github.com/minimartapp/minimart-backend/pkg/config"
	"github.com/minimartapp/minimart-backend/pkg/db/models"
	"github.com/minimartapp/minimart-backend/pkg/enums"
	pkgerrors "github.com/minimartapp/minimart-backend/pkg/errors"
	"github.com/minimartapp/minimart-backend/pkg/logger"
	"github.com/minimartapp/minimart-backend/pkg/security"
)

type stubProfiles struct {
	byEmail    map[string]*models.Profile
	lastLogins map[uuid.UUID]time.Time
}

func newStubProfiles() *stubProfiles {
	return &stubProfiles{
		byEmail:    map[string]*models.Profile{},
		lastLogins: map[uuid.UUID]time.Time{},
	}
}

func (s *stubProfiles) Create(_ context.Context, dto profiles.CreateProfileDTO) (*models.Profile, error) {
	profile := &models.Profile{
		ID:                    uuid.New(),
		Email:                 dto.Email,
		PasswordHash:          dto.PasswordHash,
		FullName:              dto.FullName,
		VerificationToken:     dto.VerificationToken,
		VerificationExpiresAt: dto.VerificationExpiresAt,
	}
	s.byEmail[dto.Email] = profile
	return profile, nil
}

func (s *stubProfiles) FindByVerificationToken(_ context.Context, token string) (*models.Profile, error) {
	for _, profile := range s.byEmail {
		if profile.VerificationToken != nil && *profile.VerificationToken == token {
			return profile, nil
		}
	}
	return nil, gorm.ErrRecordNotFound
}

func (s *stubProfiles) MarkEmailVerified(_ context.Context, id uuid.UUID, at time.Time) (bool, error) {
	for _, profile := range s.byEmail {
		if profile.ID != id {
			continue
		}
		if profile.EmailVerifiedAt != nil {
			return false, nil
		}
		stamped := at
		profile.EmailVerifiedAt = &stamped
		profile.VerificationToken = nil
		profile.VerificationExpiresAt = nil
		return true, nil
	}
	return false, nil
}

func (s *stubProfiles) FindByEmail(_ context.Context, email string) (*models.Profile, error) {
	profile, ok := s.byEmail[email]
	if !ok {
		return nil, gorm.ErrRecordNotFound
	}
	return profile, nil
}

func (s *stubProfiles) UpdateLastLogin(_ context.Context, id uuid.UUID, at time.Time) error {
	s.lastLogins[id] = at
	return nil
}

type stubStaffDirectory struct {
	byEmail map[string]*models.StaffMember
}

func (s *stubStaffDirectory) FindActiveByEmail(_ context.Context, email string) (*models.StaffMember, error) {
	member, ok := s.byEmail[email]
	if !ok {
		return nil, gorm.ErrRecordNotFound
	}
	return member, nil
}

type stubStores struct {
	byID    map[uuid.UUID]*models.Store
	byOwner map[uuid.UUID]*models.Store
}

func newStubStores() *stubStores {
	return &stubStores{byID: map[uuid.UUID]*models.Store{}, byOwner: map[uuid.UUID]*models.Store{}}
}

func (s *stubStores) FindByID(_ context.Context, id uuid.UUID) (*models.Store, error) {
	store, ok := s.byID[id]
	if !ok {
		return nil, gorm.ErrRecordNotFound
	}
	return store, nil
}

func (s *stubStores) FindByOwner(_ context.Context, ownerID uuid.UUID) (*models.Store, error) {
	store, ok := s.byOwner[ownerID]
	if !ok {
		return nil, gorm.ErrRecordNotFound
	}
	return store, nil
}

type stubSessions struct {
	active  map[string]string
	rotated int
}

func newStubSessions() *stubSessions {
	return &stubSessions{active: map[string]string{}}
}

func (s *stubSessions) Generate(_ context.Context, accessID string) (string, error) {
	token := "refresh-" + accessID
	s.active[accessID] = token
	return token, nil
}

func (s *stubSessions) Rotate(_ context.Context, oldAccessID, presented, newAccessID string) (string, error) {
	stored, ok := s.active[oldAccessID]
	if !ok || stored != presented {
		return "", pkgerrors.New(pkgerrors.CodeUnauthorized, "invalid refresh token")
	}
	delete(s.active, oldAccessID)
	s.rotated++
	return s.Generate(context.Background(), newAccessID)
}

func (s *stubSessions) Revoke(_ context.Context, accessID string) error {
	delete(s.active, accessID)
	return nil
}

type stubAuthRecorder struct {
	records   map[string]*session.Record
	signedOut []string
}

func newStubAuthRecorder() *stubAuthRecorder {
	return &stubAuthRecorder{records: map[string]*session.Record{}}
}

func (s *stubAuthRecorder) SignIn(_ context.Context, record *session.Record) error {
	s.records[record.Key()] = record
	return nil
}

func (s *stubAuthRecorder) SignOut(_ context.Context, callerKey string) error {
	s.signedOut = append(s.signedOut, callerKey)
	delete(s.records, callerKey)
	return nil
}

func testJWTConfig() config.JWTConfig {
	return config.JWTConfig{Secret: "test-secret", Issuer: "minimart", ExpirationMinutes: 15}
}

func testPasswordCfg() config.PasswordConfig {
	return config.PasswordConfig{
		ArgonMemoryKB:    8,
		ArgonTime:        1,
		ArgonParallelism: 1,
		ArgonSaltLen:     8,
		ArgonKeyLen:      16,
	}
}

type authFixture struct {
	svc      Service
	profiles *stubProfiles
	staff    *stubStaffDirectory
	stores   *stubStores
	sessions *stubSessions
	recorder *stubAuthRecorder
	clock    time.Time
}

func newAuthFixture(t *testing.T) *authFixture {
	t.Helper()
	f := &authFixture{
		profiles: newStubProfiles(),
		staff:    &stubStaffDirectory{byEmail: map[string]*models.StaffMember{}},
		stores:   newStubStores(),
		sessions: newStubSessions(),
		recorder: newStubAuthRecorder(),
		clock:    time.Now().UTC(),
	}
	svc, err := NewService(ServiceParams{
		Profiles:    f.profiles,
		Staff:       f.staff,
		Stores:      f.stores,
		Sessions:    f.sessions,
		Recorder:    f.recorder,
		JWT:         testJWTConfig(),
		PasswordCfg: testPasswordCfg(),
		Logger:      logger.New(logger.Options{ServiceName: "auth-test"}),
		Now:         func() time.Time { return f.clock },
	})
	if err != nil {
		t.Fatalf("new service: %v", err)
	}
	f.svc = svc
	return f
}

// registerVerified walks the full signup flow: register, confirm the email,
// then log in.
func registerVerified(t *testing.T, f *authFixture, email, password string) *AuthResult {
	t.Helper()
	reg, err := f.svc.Register(context.Background(), RegisterInput{
		FullName: "Olive", Email: email, Password: password,
	})
	if err != nil {
		t.Fatalf("register failed: %v", err)
	}
	if err := f.svc.VerifyEmail(context.Background(), reg.VerificationToken); err != nil {
		t.Fatalf("verify email failed: %v", err)
	}
	result, err := f.svc.Login(context.Background(), LoginInput{Email: email, Password: password})
	if err != nil {
		t.Fatalf("login failed: %v", err)
	}
	return result
}

func TestRegisterCreatesPendingProfile(t *testing.T) {
	f := newAuthFixture(t)

	result, err := f.svc.Register(context.Background(), RegisterInput{
		FullName: "Olive Owner",
		Email:    "Owner@Minimart.Test",
		Password: "secret-pass",
	})
	if err != nil {
		t.Fatalf("register failed: %v", err)
	}
	if result.Identity.Email != "owner@minimart.test" {
		t.Fatalf("expected normalized email, got %q", result.Identity.Email)
	}
	if result.Identity.Role != enums.MemberRoleStoreOwner {
		t.Fatalf("expected store owner role, got %q", result.Identity.Role)
	}
	if result.VerificationToken == "" {
		t.Fatal("expected a verification token for delivery")
	}
	if len(f.recorder.records) != 0 {
		t.Fatal("no session may exist before the email is verified")
	}

	stored := f.profiles.byEmail["owner@minimart.test"]
	if stored.EmailVerifiedAt != nil {
		t.Fatal("fresh profile must start unverified")
	}
	if ok, _ := security.VerifyPassword("secret-pass", stored.PasswordHash); !ok {
		t.Fatal("stored hash must verify the original password")
	}

	// the correct password alone does not open the account
	_, err = f.svc.Login(context.Background(), LoginInput{Email: "owner@minimart.test", Password: "secret-pass"})
	appErr := pkgerrors.As(err)
	if appErr == nil || appErr.Code() != pkgerrors.CodeForbidden || appErr.Message() != MsgEmailNotVerified {
		t.Fatalf("expected unverified login refusal, got %v", err)
	}
}

func TestVerifyEmailUnlocksLogin(t *testing.T) {
	f := newAuthFixture(t)
	reg, err := f.svc.Register(context.Background(), RegisterInput{
		FullName: "Olive", Email: "owner@minimart.test", Password: "secret-pass",
	})
	if err != nil {
		t.Fatalf("register failed: %v", err)
	}

	if err := f.svc.VerifyEmail(context.Background(), reg.VerificationToken); err != nil {
		t.Fatalf("verify failed: %v", err)
	}
	stored := f.profiles.byEmail["owner@minimart.test"]
	if stored.EmailVerifiedAt == nil || stored.VerificationToken != nil {
		t.Fatal("expected verified stamp and cleared token")
	}

	result, err := f.svc.Login(context.Background(), LoginInput{Email: "owner@minimart.test", Password: "secret-pass"})
	if err != nil {
		t.Fatalf("login after verification failed: %v", err)
	}
	if result.Tokens.AccessToken == "" || result.Tokens.RefreshToken == "" {
		t.Fatal("expected a full token pair")
	}
	if _, ok := f.recorder.records["owner@minimart.test"]; !ok {
		t.Fatal("expected session record written at sign-in")
	}

	// the token is spent
	err = f.svc.VerifyEmail(context.Background(), reg.VerificationToken)
	appErr := pkgerrors.As(err)
	if appErr == nil || appErr.Message() != MsgInvalidVerificationToken {
		t.Fatalf("expected spent token refusal, got %v", err)
	}
}

func TestVerifyEmailRejectsExpiredAndUnknownTokens(t *testing.T) {
	f := newAuthFixture(t)
	reg, err := f.svc.Register(context.Background(), RegisterInput{
		FullName: "Olive", Email: "owner@minimart.test", Password: "secret-pass",
	})
	if err != nil {
		t.Fatalf("register failed: %v", err)
	}

	for _, token := range []string{"", "no-such-token"} {
		err := f.svc.VerifyEmail(context.Background(), token)
		appErr := pkgerrors.As(err)
		if appErr == nil || appErr.Message() != MsgInvalidVerificationToken {
			t.Fatalf("expected uniform refusal for %q, got %v", token, err)
		}
	}

	f.clock = f.clock.Add(25 * time.Hour)
	err = f.svc.VerifyEmail(context.Background(), reg.VerificationToken)
	appErr := pkgerrors.As(err)
	if appErr == nil || appErr.Message() != MsgInvalidVerificationToken {
		t.Fatalf("expected expired token refusal, got %v", err)
	}
	if f.profiles.byEmail["owner@minimart.test"].EmailVerifiedAt != nil {
		t.Fatal("expired confirmation must not verify the profile")
	}
}

func TestRegisterRejectsDuplicateEmail(t *testing.T) {
	f := newAuthFixture(t)
	input := RegisterInput{FullName: "Olive", Email: "owner@minimart.test", Password: "secret-pass"}
	if _, err := f.svc.Register(context.Background(), input); err != nil {
		t.Fatalf("first register failed: %v", err)
	}
	_, err := f.svc.Register(context.Background(), input)
	if appErr := pkgerrors.As(err); appErr == nil || appErr.Code() != pkgerrors.CodeConflict {
		t.Fatalf("expected conflict, got %v", err)
	}
}

func TestLoginProfilePath(t *testing.T) {
	f := newAuthFixture(t)
	registered := registerVerified(t, f, "owner@minimart.test", "secret-pass")

	store := &models.Store{ID: uuid.New(), StoreName: "Corner Shop", AdminName: "Olive"}
	f.stores.byOwner[registered.Identity.UserID] = store
	f.stores.byID[store.ID] = store

	result, err := f.svc.Login(context.Background(), LoginInput{Email: "owner@minimart.test", Password: "secret-pass"})
	if err != nil {
		t.Fatalf("login failed: %v", err)
	}
	if result.Identity.StoreID == nil || *result.Identity.StoreID != store.ID {
		t.Fatal("expected owned store attached to identity")
	}
	if result.Identity.StoreName != "Corner Shop" {
		t.Fatalf("unexpected store name %q", result.Identity.StoreName)
	}
	record := f.recorder.records["owner@minimart.test"]
	if record == nil || record.StoreName != "Corner Shop" || record.AdminName != "Olive" {
		t.Fatalf("expected full session record, got %+v", record)
	}
	if _, ok := f.profiles.lastLogins[registered.Identity.UserID]; !ok {
		t.Fatal("expected last login recorded")
	}
}

func TestLoginStaffPath(t *testing.T) {
	f := newAuthFixture(t)
	store := &models.Store{ID: uuid.New(), StoreName: "Corner Shop", AdminName: "Olive"}
	f.stores.byID[store.ID] = store

	hash, err := security.HashPassword("staff-pass", testPasswordCfg())
	if err != nil {
		t.Fatalf("hashing: %v", err)
	}
	f.staff.byEmail["sales@minimart.test"] = &models.StaffMember{
		ID:           uuid.New(),
		StoreID:      store.ID,
		Role:         enums.MemberRoleSalesPerson,
		Email:        "sales@minimart.test",
		PasswordHash: &hash,
		FullName:     "Sam Sales",
		Status:       enums.StaffStatusActive,
	}

	result, err := f.svc.Login(context.Background(), LoginInput{Email: "sales@minimart.test", Password: "staff-pass"})
	if err != nil {
		t.Fatalf("staff login failed: %v", err)
	}
	if result.Identity.Role != enums.MemberRoleSalesPerson {
		t.Fatalf("expected sales_person role, got %q", result.Identity.Role)
	}
	record := f.recorder.records["sales@minimart.test"]
	if record == nil || record.UserRole != "sales_person" {
		t.Fatalf("expected staff session record, got %+v", record)
	}
}

func TestInvitedLoginSkipsProfiles(t *testing.T) {
	f := newAuthFixture(t)
	store := &models.Store{ID: uuid.New(), StoreName: "Corner Shop", AdminName: "Olive"}
	f.stores.byID[store.ID] = store

	hash, err := security.HashPassword("staff-pass", testPasswordCfg())
	if err != nil {
		t.Fatalf("hashing: %v", err)
	}
	f.staff.byEmail["sales@minimart.test"] = &models.StaffMember{
		ID:           uuid.New(),
		StoreID:      store.ID,
		Role:         enums.MemberRoleSalesPerson,
		Email:        "sales@minimart.test",
		PasswordHash: &hash,
		FullName:     "Sam Sales",
		Status:       enums.StaffStatusActive,
	}

	result, err := f.svc.InvitedLogin(context.Background(), LoginInput{Email: "sales@minimart.test", Password: "staff-pass"})
	if err != nil {
		t.Fatalf("invited login failed: %v", err)
	}
	if result.Identity.Role != enums.MemberRoleSalesPerson {
		t.Fatalf("expected sales_person role, got %q", result.Identity.Role)
	}

	_, err = f.svc.InvitedLogin(context.Background(), LoginInput{Email: "nobody@minimart.test", Password: "staff-pass"})
	appErr := pkgerrors.As(err)
	if appErr == nil || appErr.Message() != MsgInvalidCredentials {
		t.Fatalf("expected uniform message, got %v", err)
	}
}

func TestLoginFailuresShareMessage(t *testing.T) {
	f := newAuthFixture(t)
	registerVerified(t, f, "owner@minimart.test", "secret-pass")

	cases := []LoginInput{
		{Email: "owner@minimart.test", Password: "wrong"},
		{Email: "ghost@minimart.test", Password: "secret-pass"},
	}
	for _, input := range cases {
		_, err := f.svc.Login(context.Background(), input)
		appErr := pkgerrors.As(err)
		if appErr == nil || appErr.Code() != pkgerrors.CodeUnauthorized {
			t.Fatalf("expected unauthorized for %q, got %v", input.Email, err)
		}
		if appErr.Message() != MsgInvalidCredentials {
			t.Fatalf("expected uniform message, got %q", appErr.Message())
		}
	}
}

func TestRefreshRotatesTokens(t *testing.T) {
	f := newAuthFixture(t)
	registered := registerVerified(t, f, "owner@minimart.test", "secret-pass")

	pair, err := f.svc.Refresh(context.Background(), registered.Tokens.AccessToken, registered.Tokens.RefreshToken)
	if err != nil {
		t.Fatalf("refresh failed: %v", err)
	}
	if pair.RefreshToken == registered.Tokens.RefreshToken {
		t.Fatal("expected a rotated refresh token")
	}
	if f.sessions.rotated != 1 {
		t.Fatalf("expected one rotation, got %d", f.sessions.rotated)
	}

	// the old pair is spent
	_, err = f.svc.Refresh(context.Background(), registered.Tokens.AccessToken, registered.Tokens.RefreshToken)
	if appErr := pkgerrors.As(err); appErr == nil || appErr.Code() != pkgerrors.CodeUnauthorized {
		t.Fatalf("expected unauthorized replay, got %v", err)
	}

	claims, err := pkgauth.ParseAccessToken(testJWTConfig(), pair.AccessToken)
	if err != nil {
		t.Fatalf("parsing rotated token: %v", err)
	}
	if claims.Email != "owner@minimart.test" {
		t.Fatalf("rotated token lost identity: %q", claims.Email)
	}
}

func TestLogoutRevokesAndClearsRecords(t *testing.T) {
	f := newAuthFixture(t)
	registered := registerVerified(t, f, "owner@minimart.test", "secret-pass")

	if err := f.svc.Logout(context.Background(), registered.Tokens.AccessToken); err != nil {
		t.Fatalf("logout failed: %v", err)
	}
	if len(f.sessions.active) != 0 {
		t.Fatal("expected refresh session revoked")
	}
	if len(f.recorder.signedOut) != 1 || f.recorder.signedOut[0] != "owner@minimart.test" {
		t.Fatalf("expected session records cleared, got %v", f.recorder.signedOut)
	}

	// refresh must now fail
	_, err := f.svc.Refresh(context.Background(), registered.Tokens.AccessToken, registered.Tokens.RefreshToken)
	if appErr := pkgerrors.As(err); appErr == nil || appErr.Code() != pkgerrors.CodeUnauthorized {
		t.Fatalf("expected unauthorized after logout, got %v", err)
	}
}
