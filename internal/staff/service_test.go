package staff

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/minimartapp/minimart-backend/internal/rolefeed"
	pkgmodels "github.com/minimartapp/minimart-backend/pkg/db/models"
	"github.com/minimartapp/minimart-backend/pkg/enums"
	pkgerrors "github.com/minimartapp/minimart-backend/pkg/errors"
	"github.com/minimartapp/minimart-backend/pkg/logger"
)

type stubStaffRepo struct {
	members map[uuid.UUID]*pkgmodels.StaffMember
}

func newStubStaffRepo() *stubStaffRepo {
	return &stubStaffRepo{members: map[uuid.UUID]*pkgmodels.StaffMember{}}
}

func (s *stubStaffRepo) add(member *pkgmodels.StaffMember) *pkgmodels.StaffMember {
	if member.ID == uuid.Nil {
		member.ID = uuid.New()
	}
	s.members[member.ID] = member
	return member
}

func (s *stubStaffRepo) FindByID(_ context.Context, id uuid.UUID) (*pkgmodels.StaffMember, error) {
	member, ok := s.members[id]
	if !ok {
		return nil, gorm.ErrRecordNotFound
	}
	cpy := *member
	return &cpy, nil
}

func (s *stubStaffRepo) ListByStore(_ context.Context, storeID uuid.UUID) ([]pkgmodels.StaffMember, error) {
	var rows []pkgmodels.StaffMember
	for _, member := range s.members {
		if member.StoreID == storeID && member.Status == enums.StaffStatusActive {
			rows = append(rows, *member)
		}
	}
	return rows, nil
}

func (s *stubStaffRepo) UpdateRole(_ context.Context, id uuid.UUID, role enums.MemberRole) error {
	s.members[id].Role = role
	return nil
}

func (s *stubStaffRepo) UpdateStatus(_ context.Context, id uuid.UUID, status enums.StaffStatus) error {
	s.members[id].Status = status
	return nil
}

type stubRecorder struct {
	refreshed map[string]string
	signedOut []string
}

func newStubRecorder() *stubRecorder {
	return &stubRecorder{refreshed: map[string]string{}}
}

func (s *stubRecorder) RefreshRole(_ context.Context, callerKey, role string) error {
	s.refreshed[callerKey] = role
	return nil
}

func (s *stubRecorder) SignOut(_ context.Context, callerKey string) error {
	s.signedOut = append(s.signedOut, callerKey)
	return nil
}

type stubFeed struct {
	events []rolefeed.RoleChanged
}

func (s *stubFeed) UpdateRole(_ context.Context, email, storeID, role string) rolefeed.RoleChanged {
	ev := rolefeed.RoleChanged{
		Email:    email,
		StoreID:  storeID,
		Role:     role,
		Revision: uint64(len(s.events) + 1),
		Origin:   rolefeed.OriginLocal,
	}
	s.events = append(s.events, ev)
	return ev
}

type stubRelay struct {
	events []rolefeed.RoleChanged
}

func (s *stubRelay) Broadcast(_ context.Context, ev rolefeed.RoleChanged) error {
	s.events = append(s.events, ev)
	return nil
}

type stubPublisher struct {
	payloads []rolefeed.RoleChangedPayload
}

func (s *stubPublisher) PublishRoleChanged(_ context.Context, payload rolefeed.RoleChangedPayload) error {
	s.payloads = append(s.payloads, payload)
	return nil
}

type staffSetup struct {
	svc       Service
	repo      *stubStaffRepo
	recorder  *stubRecorder
	feed      *stubFeed
	relay     *stubRelay
	publisher *stubPublisher
}

func newStaffSetup(t *testing.T) staffSetup {
	t.Helper()
	repo := newStubStaffRepo()
	recorder := newStubRecorder()
	feed := &stubFeed{}
	relay := &stubRelay{}
	publisher := &stubPublisher{}
	svc, err := NewService(ServiceParams{
		Repo:      repo,
		Recorder:  recorder,
		Feed:      feed,
		Relay:     relay,
		Publisher: publisher,
		Logger:    logger.New(logger.Options{ServiceName: "test"}),
	})
	if err != nil {
		t.Fatalf("new service: %v", err)
	}
	return staffSetup{svc: svc, repo: repo, recorder: recorder, feed: feed, relay: relay, publisher: publisher}
}

func activeMember(storeID uuid.UUID, role enums.MemberRole, email string) *pkgmodels.StaffMember {
	return &pkgmodels.StaffMember{
		StoreID:  storeID,
		Role:     role,
		Email:    email,
		FullName: "Test Member",
		Status:   enums.StaffStatusActive,
	}
}

func TestUpdateRolePropagatesEverywhere(t *testing.T) {
	setup := newStaffSetup(t)
	storeID := uuid.New()
	member := setup.repo.add(activeMember(storeID, enums.MemberRoleSalesPerson, "Sam@minimart.test"))

	dto, err := setup.svc.UpdateRole(context.Background(), enums.MemberRoleStoreOwner, storeID, member.ID, enums.MemberRoleStoreAdmin)
	if err != nil {
		t.Fatalf("update role failed: %v", err)
	}
	if dto.Role != enums.MemberRoleStoreAdmin {
		t.Fatalf("expected store_admin, got %q", dto.Role)
	}

	if got := setup.recorder.refreshed["sam@minimart.test"]; got != "store_admin" {
		t.Fatalf("session record not refreshed, got %q", got)
	}
	if len(setup.feed.events) != 1 {
		t.Fatalf("expected one local feed event, got %d", len(setup.feed.events))
	}
	if len(setup.relay.events) != 1 {
		t.Fatalf("expected one peer relay, got %d", len(setup.relay.events))
	}
	if len(setup.publisher.payloads) != 1 {
		t.Fatalf("expected one remote publish, got %d", len(setup.publisher.payloads))
	}
	if setup.publisher.payloads[0].Email != "sam@minimart.test" {
		t.Fatalf("expected normalized email in payload, got %q", setup.publisher.payloads[0].Email)
	}
}

func TestUpdateRoleUnchangedIsQuiet(t *testing.T) {
	setup := newStaffSetup(t)
	storeID := uuid.New()
	member := setup.repo.add(activeMember(storeID, enums.MemberRoleStoreAdmin, "sam@minimart.test"))

	if _, err := setup.svc.UpdateRole(context.Background(), enums.MemberRoleStoreOwner, storeID, member.ID, enums.MemberRoleStoreAdmin); err != nil {
		t.Fatalf("update role failed: %v", err)
	}
	if len(setup.feed.events) != 0 {
		t.Fatal("unchanged role must not emit feed events")
	}
}

func TestUpdateRoleGuards(t *testing.T) {
	setup := newStaffSetup(t)
	storeID := uuid.New()
	owner := setup.repo.add(activeMember(storeID, enums.MemberRoleStoreOwner, "owner@minimart.test"))
	member := setup.repo.add(activeMember(storeID, enums.MemberRoleSalesPerson, "sam@minimart.test"))

	cases := []struct {
		name     string
		actor    enums.MemberRole
		memberID uuid.UUID
		role     enums.MemberRole
		code     pkgerrors.Code
	}{
		{"sales person actor", enums.MemberRoleSalesPerson, member.ID, enums.MemberRoleStoreAdmin, pkgerrors.CodeForbidden},
		{"assign ownership", enums.MemberRoleStoreOwner, member.ID, enums.MemberRoleStoreOwner, pkgerrors.CodeValidation},
		{"change owner role", enums.MemberRoleStoreOwner, owner.ID, enums.MemberRoleStoreAdmin, pkgerrors.CodeConflict},
		{"unknown member", enums.MemberRoleStoreOwner, uuid.New(), enums.MemberRoleStoreAdmin, pkgerrors.CodeNotFound},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := setup.svc.UpdateRole(context.Background(), tc.actor, storeID, tc.memberID, tc.role)
			if err == nil {
				t.Fatal("expected error")
			}
			if appErr := pkgerrors.As(err); appErr == nil || appErr.Code() != tc.code {
				t.Fatalf("expected code %s, got %v", tc.code, err)
			}
		})
	}
}

func TestUpdateRoleWrongStoreIsNotFound(t *testing.T) {
	setup := newStaffSetup(t)
	member := setup.repo.add(activeMember(uuid.New(), enums.MemberRoleSalesPerson, "sam@minimart.test"))

	_, err := setup.svc.UpdateRole(context.Background(), enums.MemberRoleStoreOwner, uuid.New(), member.ID, enums.MemberRoleStoreAdmin)
	if appErr := pkgerrors.As(err); appErr == nil || appErr.Code() != pkgerrors.CodeNotFound {
		t.Fatalf("expected not found for cross-store access, got %v", err)
	}
}

func TestRemoveTearsDownSession(t *testing.T) {
	setup := newStaffSetup(t)
	storeID := uuid.New()
	member := setup.repo.add(activeMember(storeID, enums.MemberRoleSalesPerson, "Sam@minimart.test"))

	if err := setup.svc.Remove(context.Background(), enums.MemberRoleStoreAdmin, storeID, member.ID); err != nil {
		t.Fatalf("remove failed: %v", err)
	}
	if setup.repo.members[member.ID].Status != enums.StaffStatusRemoved {
		t.Fatal("expected member status removed")
	}
	if len(setup.recorder.signedOut) != 1 || setup.recorder.signedOut[0] != "sam@minimart.test" {
		t.Fatalf("expected session teardown for removed member, got %v", setup.recorder.signedOut)
	}
}

func TestRemoveOwnerForbidden(t *testing.T) {
	setup := newStaffSetup(t)
	storeID := uuid.New()
	owner := setup.repo.add(activeMember(storeID, enums.MemberRoleStoreOwner, "owner@minimart.test"))

	err := setup.svc.Remove(context.Background(), enums.MemberRoleStoreAdmin, storeID, owner.ID)
	if appErr := pkgerrors.As(err); appErr == nil || appErr.Code() != pkgerrors.CodeConflict {
		t.Fatalf("expected conflict removing the owner, got %v", err)
	}
}

func TestRemoveIsIdempotent(t *testing.T) {
	setup := newStaffSetup(t)
	storeID := uuid.New()
	member := setup.repo.add(activeMember(storeID, enums.MemberRoleSalesPerson, "sam@minimart.test"))
	member.Status = enums.StaffStatusRemoved

	if err := setup.svc.Remove(context.Background(), enums.MemberRoleStoreOwner, storeID, member.ID); err != nil {
		t.Fatalf("removing an already removed member should succeed: %v", err)
	}
	if len(setup.recorder.signedOut) != 0 {
		t.Fatal("no teardown expected for an already removed member")
	}
}

func TestListReturnsActiveMembers(t *testing.T) {
	setup := newStaffSetup(t)
	storeID := uuid.New()
	setup.repo.add(activeMember(storeID, enums.MemberRoleStoreOwner, "owner@minimart.test"))
	removed := setup.repo.add(activeMember(storeID, enums.MemberRoleSalesPerson, "gone@minimart.test"))
	removed.Status = enums.StaffStatusRemoved
	setup.repo.add(activeMember(uuid.New(), enums.MemberRoleStoreAdmin, "other@minimart.test"))

	rows, err := setup.svc.List(context.Background(), storeID)
	if err != nil {
		t.Fatalf("list failed: %v", err)
	}
	if len(rows) != 1 {
		t.Fatalf("expected one active member, got %d", len(rows))
	}
	if rows[0].Email != "owner@minimart.test" {
		t.Fatalf("unexpected member %q", rows[0].Email)
	}
}
