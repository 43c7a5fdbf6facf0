package invitations

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/minimartapp/minimart-backend/internal/staff"
	"github.com/minimartapp/minimart-backend/pkg/config"
	pkgmodels "github.com/minimartapp/minimart-backend/pkg/db/models"
	"github.com/minimartapp/minimart-backend/pkg/enums"
	"github.com/minimartapp/minimart-backend/pkg/logger"
	"github.com/minimartapp/minimart-backend/pkg/security"
)

type stubTxRunner struct{}

func (s stubTxRunner) WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error {
	return fn(nil)
}

type stubInvitationRepository struct {
	byToken map[string]*pkgmodels.StoreInvitation
	created []*pkgmodels.StoreInvitation
}

func newStubInvitationRepository() *stubInvitationRepository {
	return &stubInvitationRepository{byToken: map[string]*pkgmodels.StoreInvitation{}}
}

func (s *stubInvitationRepository) Create(_ context.Context, dto CreateInvitationDTO) (*pkgmodels.StoreInvitation, error) {
	invitation := dto.ToModel()
	invitation.ID = uuid.New()
	s.byToken[invitation.Token] = invitation
	s.created = append(s.created, invitation)
	return invitation, nil
}

func (s *stubInvitationRepository) FindPendingByToken(_ context.Context, token string) (*pkgmodels.StoreInvitation, error) {
	return s.findPending(token)
}

func (s *stubInvitationRepository) ListByStore(_ context.Context, storeID uuid.UUID) ([]pkgmodels.StoreInvitation, error) {
	var rows []pkgmodels.StoreInvitation
	for _, invitation := range s.byToken {
		if invitation.StoreID == storeID {
			rows = append(rows, *invitation)
		}
	}
	return rows, nil
}

func (s *stubInvitationRepository) FindPendingByTokenWithTx(_ *gorm.DB, token string) (*pkgmodels.StoreInvitation, error) {
	return s.findPending(token)
}

func (s *stubInvitationRepository) ClaimWithTx(_ *gorm.DB, id uuid.UUID) (bool, error) {
	for _, invitation := range s.byToken {
		if invitation.ID == id && invitation.Status == enums.InvitationStatusPending {
			invitation.Status = enums.InvitationStatusAccepted
			return true, nil
		}
	}
	return false, nil
}

func (s *stubInvitationRepository) findPending(token string) (*pkgmodels.StoreInvitation, error) {
	invitation, ok := s.byToken[token]
	if !ok || invitation.Status != enums.InvitationStatusPending {
		return nil, gorm.ErrRecordNotFound
	}
	cpy := *invitation
	return &cpy, nil
}

type stubStaffRepository struct {
	emails  map[string]bool
	created []staff.CreateStaffDTO
}

func newStubStaffRepository() *stubStaffRepository {
	return &stubStaffRepository{emails: map[string]bool{}}
}

func (s *stubStaffRepository) ActiveEmailExistsWithTx(_ *gorm.DB, email string) (bool, error) {
	return s.emails[email], nil
}

func (s *stubStaffRepository) CreateWithTx(_ *gorm.DB, dto staff.CreateStaffDTO) (*pkgmodels.StaffMember, error) {
	s.emails[dto.Email] = true
	s.created = append(s.created, dto)
	member := dto.ToModel()
	member.ID = uuid.New()
	return member, nil
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

type serviceSetup struct {
	svc   Service
	repo  *stubInvitationRepository
	staff *stubStaffRepository
}

func newServiceSetup(t *testing.T, now func() time.Time) serviceSetup {
	t.Helper()
	repo := newStubInvitationRepository()
	staffRepo := newStubStaffRepository()
	svc, err := NewService(ServiceParams{
		Tx:          stubTxRunner{},
		Repo:        repo,
		Staff:       staffRepo,
		PasswordCfg: testPasswordCfg(),
		InviteCfg:   config.InvitationsConfig{TTL: 168 * time.Hour},
		BaseURL:     "https://app.minimart.test",
		Logger:      logger.New(logger.Options{ServiceName: "test"}),
		Now:         now,
	})
	if err != nil {
		t.Fatalf("new service: %v", err)
	}
	return serviceSetup{svc: svc, repo: repo, staff: staffRepo}
}

func seedInvitation(t *testing.T, setup serviceSetup, expiresAt time.Time) *pkgmodels.StoreInvitation {
	t.Helper()
	email := "invitee@minimart.test"
	invitation, err := setup.repo.Create(context.Background(), CreateInvitationDTO{
		StoreID:   uuid.New(),
		Token:     "tok-" + uuid.NewString(),
		Method:    enums.InviteMethodEmail,
		Email:     &email,
		ExpiresAt: expiresAt,
		CreatedBy: uuid.New(),
	})
	if err != nil {
		t.Fatalf("seed invitation: %v", err)
	}
	return invitation
}

func TestCreateGeneratesTokenAndLink(t *testing.T) {
	setup := newServiceSetup(t, nil)

	dto, err := setup.svc.Create(context.Background(), enums.MemberRoleStoreOwner, CreateInput{
		StoreID:   uuid.New(),
		Method:    enums.InviteMethodLink,
		CreatedBy: uuid.New(),
	})
	if err != nil {
		t.Fatalf("create failed: %v", err)
	}
	if dto.Token == "" {
		t.Fatal("expected a generated token")
	}
	if dto.Email != nil {
		t.Fatal("link invites must not carry an email")
	}
	if dto.InviteURL != "https://app.minimart.test/invite/"+dto.Token {
		t.Fatalf("unexpected invite url %q", dto.InviteURL)
	}
	if !dto.ExpiresAt.After(time.Now().Add(6 * 24 * time.Hour)) {
		t.Fatalf("expected roughly week-long expiry, got %v", dto.ExpiresAt)
	}
}

func TestCreateRejectsSalesPerson(t *testing.T) {
	setup := newServiceSetup(t, nil)
	_, err := setup.svc.Create(context.Background(), enums.MemberRoleSalesPerson, CreateInput{
		StoreID: uuid.New(),
		Method:  enums.InviteMethodLink,
	})
	if err == nil {
		t.Fatal("expected forbidden error")
	}
}

func TestAcceptHappyPath(t *testing.T) {
	setup := newServiceSetup(t, nil)
	invitation := seedInvitation(t, setup, time.Now().Add(time.Hour))

	result, err := setup.svc.Accept(context.Background(), AcceptInput{
		Token:    invitation.Token,
		FullName: "Sam Staff",
		Email:    "Sam.Staff@minimart.test",
		Password: "secret-pass",
	})
	if err != nil {
		t.Fatalf("accept failed: %v", err)
	}
	if !result.Success {
		t.Fatalf("expected success, got %q", result.Message)
	}
	if result.StoreID == nil || *result.StoreID != invitation.StoreID {
		t.Fatalf("expected store id %s, got %v", invitation.StoreID, result.StoreID)
	}

	if len(setup.staff.created) != 1 {
		t.Fatalf("expected exactly one membership, got %d", len(setup.staff.created))
	}
	created := setup.staff.created[0]
	if created.Role != enums.MemberRoleSalesPerson {
		t.Fatalf("expected sales_person role, got %q", created.Role)
	}
	if created.Status != enums.StaffStatusActive {
		t.Fatalf("expected active status, got %q", created.Status)
	}
	if created.Email != "sam.staff@minimart.test" {
		t.Fatalf("expected normalized email, got %q", created.Email)
	}
	if created.PasswordHash == nil {
		t.Fatal("expected a credential hash")
	}
	ok, err := security.VerifyPassword("secret-pass", *created.PasswordHash)
	if err != nil || !ok {
		t.Fatalf("stored hash must verify the password, ok=%v err=%v", ok, err)
	}

	if setup.repo.byToken[invitation.Token].Status != enums.InvitationStatusAccepted {
		t.Fatal("expected invitation to be accepted")
	}
}

func TestAcceptUnknownToken(t *testing.T) {
	setup := newServiceSetup(t, nil)

	result, err := setup.svc.Accept(context.Background(), AcceptInput{
		Token:    "missing",
		FullName: "Sam Staff",
		Email:    "sam@minimart.test",
		Password: "secret-pass",
	})
	if err != nil {
		t.Fatalf("accept failed: %v", err)
	}
	if result.Success || result.Message != MsgInvalidInvitation {
		t.Fatalf("expected invalid invitation, got %+v", result)
	}
}

func TestAcceptExpiredLeavesInvitationPending(t *testing.T) {
	setup := newServiceSetup(t, nil)
	invitation := seedInvitation(t, setup, time.Now().Add(-time.Hour))

	result, err := setup.svc.Accept(context.Background(), AcceptInput{
		Token:    invitation.Token,
		FullName: "Sam Staff",
		Email:    "sam@minimart.test",
		Password: "secret-pass",
	})
	if err != nil {
		t.Fatalf("accept failed: %v", err)
	}
	if result.Success || result.Message != MsgExpiredInvitation {
		t.Fatalf("expected expiry failure, got %+v", result)
	}
	if setup.repo.byToken[invitation.Token].Status != enums.InvitationStatusPending {
		t.Fatal("expiry is a read-only check; status must stay pending")
	}
	if len(setup.staff.created) != 0 {
		t.Fatal("expired acceptance must not create a membership")
	}
}

func TestAcceptDuplicateEmailAnyStore(t *testing.T) {
	setup := newServiceSetup(t, nil)
	invitation := seedInvitation(t, setup, time.Now().Add(time.Hour))
	setup.staff.emails["taken@minimart.test"] = true

	result, err := setup.svc.Accept(context.Background(), AcceptInput{
		Token:    invitation.Token,
		FullName: "Sam Staff",
		Email:    "Taken@minimart.test",
		Password: "secret-pass",
	})
	if err != nil {
		t.Fatalf("accept failed: %v", err)
	}
	if result.Success || result.Message != MsgEmailTaken {
		t.Fatalf("expected duplicate email failure, got %+v", result)
	}
	if setup.repo.byToken[invitation.Token].Status != enums.InvitationStatusPending {
		t.Fatal("duplicate email must not consume the invitation")
	}
}

func TestAcceptSingleWinnerPerToken(t *testing.T) {
	setup := newServiceSetup(t, nil)
	invitation := seedInvitation(t, setup, time.Now().Add(time.Hour))

	first, err := setup.svc.Accept(context.Background(), AcceptInput{
		Token:    invitation.Token,
		FullName: "First Winner",
		Email:    "first@minimart.test",
		Password: "secret-pass",
	})
	if err != nil || !first.Success {
		t.Fatalf("first accept expected to win: %+v err=%v", first, err)
	}

	second, err := setup.svc.Accept(context.Background(), AcceptInput{
		Token:    invitation.Token,
		FullName: "Second Caller",
		Email:    "second@minimart.test",
		Password: "secret-pass",
	})
	if err != nil {
		t.Fatalf("second accept failed: %v", err)
	}
	if second.Success {
		t.Fatal("a consumed token must never be accepted twice")
	}
	if len(setup.staff.created) != 1 {
		t.Fatalf("expected exactly one membership across both attempts, got %d", len(setup.staff.created))
	}
}

func TestAcceptValidatesInput(t *testing.T) {
	setup := newServiceSetup(t, nil)
	invitation := seedInvitation(t, setup, time.Now().Add(time.Hour))

	cases := []struct {
		name  string
		input AcceptInput
	}{
		{"missing name", AcceptInput{Token: invitation.Token, Email: "a@b.com", Password: "secret-pass"}},
		{"bad email", AcceptInput{Token: invitation.Token, FullName: "Sam", Email: "not-an-email", Password: "secret-pass"}},
		{"short password", AcceptInput{Token: invitation.Token, FullName: "Sam", Email: "a@b.com", Password: "ab"}},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			result, err := setup.svc.Accept(context.Background(), tc.input)
			if err != nil {
				t.Fatalf("accept failed: %v", err)
			}
			if result.Success {
				t.Fatal("expected validation failure")
			}
		})
	}
	if len(setup.staff.created) != 0 {
		t.Fatal("validation failures must not create memberships")
	}
}

func TestValidateToken(t *testing.T) {
	setup := newServiceSetup(t, nil)
	valid := seedInvitation(t, setup, time.Now().Add(time.Hour))
	expired := seedInvitation(t, setup, time.Now().Add(-time.Hour))

	res, err := setup.svc.Validate(context.Background(), valid.Token)
	if err != nil {
		t.Fatalf("validate failed: %v", err)
	}
	if !res.Valid || res.StoreID == nil {
		t.Fatalf("expected valid result, got %+v", res)
	}

	res, err = setup.svc.Validate(context.Background(), expired.Token)
	if err != nil {
		t.Fatalf("validate failed: %v", err)
	}
	if res.Valid || res.Message != MsgExpiredInvitation {
		t.Fatalf("expected expired result, got %+v", res)
	}

	res, err = setup.svc.Validate(context.Background(), "missing")
	if err != nil {
		t.Fatalf("validate failed: %v", err)
	}
	if res.Valid || res.Message != MsgInvalidInvitation {
		t.Fatalf("expected invalid result, got %+v", res)
	}
}
