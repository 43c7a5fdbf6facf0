package staff

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/minimartapp/minimart-backend/internal/rolefeed"
	"github.com/minimartapp/minimart-backend/internal/session"
	"github.com/minimartapp/minimart-backend/pkg/db/models"
	"github.com/minimartapp/minimart-backend/pkg/enums"
	pkgerrors "github.com/minimartapp/minimart-backend/pkg/errors"
	"github.com/minimartapp/minimart-backend/pkg/logger"
)

type staffRepository interface {
	FindByID(ctx context.Context, id uuid.UUID) (*models.StaffMember, error)
	ListByStore(ctx context.Context, storeID uuid.UUID) ([]models.StaffMember, error)
	UpdateRole(ctx context.Context, id uuid.UUID, role enums.MemberRole) error
	UpdateStatus(ctx context.Context, id uuid.UUID, status enums.StaffStatus) error
}

type sessionRecorder interface {
	RefreshRole(ctx context.Context, callerKey, role string) error
	SignOut(ctx context.Context, callerKey string) error
}

type roleFeed interface {
	UpdateRole(ctx context.Context, email, storeID, role string) rolefeed.RoleChanged
}

type peerRelay interface {
	Broadcast(ctx context.Context, ev rolefeed.RoleChanged) error
}

type remotePublisher interface {
	PublishRoleChanged(ctx context.Context, payload rolefeed.RoleChangedPayload) error
}

// Service exposes staff management operations.
type Service interface {
	List(ctx context.Context, storeID uuid.UUID) ([]StaffDTO, error)
	UpdateRole(ctx context.Context, actorRole enums.MemberRole, storeID, memberID uuid.UUID, role enums.MemberRole) (*StaffDTO, error)
	Remove(ctx context.Context, actorRole enums.MemberRole, storeID, memberID uuid.UUID) error
}

// ServiceParams collects the staff service dependencies. Feed, relay and
// publisher are optional; without them role changes still persist but only
// reach callers on their next reconcile.
type ServiceParams struct {
	Repo      staffRepository
	Recorder  sessionRecorder
	Feed      roleFeed
	Relay     peerRelay
	Publisher remotePublisher
	Logger    *logger.Logger
}

type service struct {
	repo      staffRepository
	recorder  sessionRecorder
	feed      roleFeed
	relay     peerRelay
	publisher remotePublisher
	logg      *logger.Logger
}

// NewService builds a staff service with the provided dependencies.
func NewService(params ServiceParams) (Service, error) {
	if params.Repo == nil {
		return nil, fmt.Errorf("staff repository required")
	}
	if params.Recorder == nil {
		return nil, fmt.Errorf("session recorder required")
	}
	if params.Logger == nil {
		return nil, fmt.Errorf("logger required")
	}
	return &service{
		repo:      params.Repo,
		recorder:  params.Recorder,
		feed:      params.Feed,
		relay:     params.Relay,
		publisher: params.Publisher,
		logg:      params.Logger,
	}, nil
}

func (s *service) List(ctx context.Context, storeID uuid.UUID) ([]StaffDTO, error) {
	rows, err := s.repo.ListByStore(ctx, storeID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list staff")
	}
	result := make([]StaffDTO, 0, len(rows))
	for i := range rows {
		result = append(result, *FromModel(&rows[i]))
	}
	return result, nil
}

func (s *service) UpdateRole(ctx context.Context, actorRole enums.MemberRole, storeID, memberID uuid.UUID, role enums.MemberRole) (*StaffDTO, error) {
	if !actorRole.CanManageStaff() {
		return nil, pkgerrors.New(pkgerrors.CodeForbidden, "insufficient store role")
	}
	if !role.IsValid() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "invalid role")
	}
	if role == enums.MemberRoleStoreOwner {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "ownership cannot be assigned")
	}

	member, err := s.loadStoreMember(ctx, storeID, memberID)
	if err != nil {
		return nil, err
	}
	if member.Role == enums.MemberRoleStoreOwner {
		return nil, pkgerrors.New(pkgerrors.CodeConflict, "store owner role cannot be changed")
	}

	if member.Role != role {
		if err := s.repo.UpdateRole(ctx, member.ID, role); err != nil {
			return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "update role")
		}
		member.Role = role
		s.propagate(ctx, member)
	}
	return FromModel(member), nil
}

func (s *service) Remove(ctx context.Context, actorRole enums.MemberRole, storeID, memberID uuid.UUID) error {
	if !actorRole.CanManageStaff() {
		return pkgerrors.New(pkgerrors.CodeForbidden, "insufficient store role")
	}

	member, err := s.loadStoreMember(ctx, storeID, memberID)
	if err != nil {
		return err
	}
	if member.Role == enums.MemberRoleStoreOwner {
		return pkgerrors.New(pkgerrors.CodeConflict, "store owner cannot be removed")
	}
	if member.Status == enums.StaffStatusRemoved {
		return nil
	}

	if err := s.repo.UpdateStatus(ctx, member.ID, enums.StaffStatusRemoved); err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "remove staff member")
	}

	// The reconciler would also catch this through the existence check, but
	// tearing the session down now closes the window.
	if err := s.recorder.SignOut(ctx, session.CallerKey(member.Email)); err != nil {
		s.logg.Error(ctx, "failed to tear down removed member session", err)
	}
	return nil
}

func (s *service) loadStoreMember(ctx context.Context, storeID, memberID uuid.UUID) (*models.StaffMember, error) {
	member, err := s.repo.FindByID(ctx, memberID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "staff member not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load staff member")
	}
	if member.StoreID != storeID {
		return nil, pkgerrors.New(pkgerrors.CodeNotFound, "staff member not found")
	}
	return member, nil
}

// propagate pushes a persisted role change down every feed path. Feed
// failures are logged, not surfaced; the role is already durable and the
// next reconcile repairs any missed listener.
func (s *service) propagate(ctx context.Context, member *models.StaffMember) {
	callerKey := session.CallerKey(member.Email)
	role := string(member.Role)

	if err := s.recorder.RefreshRole(ctx, callerKey, role); err != nil {
		s.logg.Error(ctx, "failed to refresh session record", err)
	}

	if s.feed == nil {
		return
	}
	ev := s.feed.UpdateRole(ctx, callerKey, member.StoreID.String(), role)

	if s.relay != nil {
		if err := s.relay.Broadcast(ctx, ev); err != nil {
			s.logg.Error(ctx, "failed to relay role change", err)
		}
	}
	if s.publisher != nil {
		payload := rolefeed.RoleChangedPayload{
			StoreID: member.StoreID.String(),
			Email:   callerKey,
			Role:    role,
		}
		if err := s.publisher.PublishRoleChanged(ctx, payload); err != nil {
			s.logg.Error(ctx, "failed to publish role change", err)
		}
	}
}
