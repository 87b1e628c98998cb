package service

import (
	"context"
	"time"

	"github.com/spec-kit/coupon-service/internal/authz"
	"github.com/spec-kit/coupon-service/internal/domain"
	"github.com/spec-kit/coupon-service/internal/events"
	"github.com/spec-kit/coupon-service/internal/repository"
	apperrors "github.com/spec-kit/coupon-service/pkg/util"
)

// UserService covers the manager-facing account operations: listing users
// and changing roles.
type UserService struct {
	users      repository.UserRepository
	roles      authz.RoleStore
	evaluator  *authz.Evaluator
	dispatcher events.Dispatcher
}

// UserDependencies bundles requirements for user service.
type UserDependencies struct {
	UserRepo   repository.UserRepository
	RoleStore  authz.RoleStore
	Evaluator  *authz.Evaluator
	Dispatcher events.Dispatcher
}

// NewUserService constructs the service.
func NewUserService(deps UserDependencies) *UserService {
	return &UserService{
		users:      deps.UserRepo,
		roles:      deps.RoleStore,
		evaluator:  deps.Evaluator,
		dispatcher: deps.Dispatcher,
	}
}

// ListUsers returns users with their resolved roles.
func (s *UserService) ListUsers(ctx context.Context, actorID string, limit, offset int) ([]repository.UserWithRole, error) {
	if !s.evaluator.Check(ctx, actorID, domain.PermissionViewUsers, nil) {
		return nil, apperrors.NewForbidden("not allowed to view users")
	}
	return s.users.ListWithRoles(ctx, limit, offset)
}

// SetUserRole changes the role of another user. Actors may never change
// their own role; that keeps a lone manager from locking themselves out.
func (s *UserService) SetUserRole(ctx context.Context, actorID, targetID string, role domain.RoleTag) (*domain.RoleAssignment, error) {
	if !s.evaluator.Check(ctx, actorID, domain.PermissionEditUserRole, nil) {
		return nil, apperrors.NewForbidden("not allowed to change roles")
	}
	if actorID == targetID {
		return nil, apperrors.NewForbidden("cannot change your own role")
	}
	if !domain.ValidRole(role) {
		return nil, apperrors.NewValidationError("unknown role", map[string]any{"role": role})
	}
	if _, err := s.users.GetByID(ctx, targetID); err != nil {
		return nil, err
	}

	assignment, err := s.roles.SetRole(ctx, targetID, role)
	if err != nil {
		return nil, err
	}

	if s.dispatcher != nil {
		_ = s.dispatcher.Publish(ctx, events.Event{
			Type:      events.EventRoleChanged,
			UserID:    targetID,
			Timestamp: time.Now(),
			Payload: events.RoleChangedPayload{
				TargetUserID: targetID,
				NewRole:      role,
				ChangedBy:    actorID,
			},
		})
	}
	return assignment, nil
}
