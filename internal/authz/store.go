package authz

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/jackc/pgx/v5"
	"go.uber.org/zap"

	"github.com/spec-kit/coupon-service/internal/domain"
)

// RoleStore resolves and persists role assignments. Reads fail softly:
// a missing row or a failed query reports not-found instead of an error.
type RoleStore interface {
	GetRole(ctx context.Context, userID string) (domain.RoleTag, bool)
	SetRole(ctx context.Context, userID string, role domain.RoleTag) (*domain.RoleAssignment, error)
}

// RoleRepository is the persistence surface the store wraps.
type RoleRepository interface {
	Get(ctx context.Context, userID string) (*domain.RoleAssignment, error)
	Set(ctx context.Context, userID string, role domain.RoleTag) (*domain.RoleAssignment, error)
}

type roleStore struct {
	repo   RoleRepository
	logger *zap.Logger
}

// NewRoleStore wraps a role repository with the soft-fail read contract.
func NewRoleStore(repo RoleRepository, logger *zap.Logger) RoleStore {
	return &roleStore{repo: repo, logger: logger}
}

func (s *roleStore) GetRole(ctx context.Context, userID string) (domain.RoleTag, bool) {
	if userID == "" {
		return "", false
	}
	assignment, err := s.repo.Get(ctx, userID)
	if err != nil {
		if !errors.Is(err, pgx.ErrNoRows) {
			s.logger.Warn("role lookup failed", zap.String("user_id", userID), zap.Error(err))
		}
		return "", false
	}
	return assignment.Role, true
}

func (s *roleStore) SetRole(ctx context.Context, userID string, role domain.RoleTag) (*domain.RoleAssignment, error) {
	assignment, err := s.repo.Set(ctx, userID, role)
	if err != nil {
		s.logger.Warn("role write failed", zap.String("user_id", userID), zap.Error(err))
		return nil, err
	}
	return assignment, nil
}

// MemoryRoleStore is an in-memory RoleStore for tests and dev mode. The
// evaluation logic never varies; only the storage backend does.
type MemoryRoleStore struct {
	mu    sync.RWMutex
	roles map[string]*domain.RoleAssignment
}

// NewMemoryRoleStore builds an empty in-memory store.
func NewMemoryRoleStore() *MemoryRoleStore {
	return &MemoryRoleStore{roles: make(map[string]*domain.RoleAssignment)}
}

// GetRole returns the assigned role, or not-found.
func (s *MemoryRoleStore) GetRole(_ context.Context, userID string) (domain.RoleTag, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	assignment, ok := s.roles[userID]
	if !ok {
		return "", false
	}
	return assignment.Role, true
}

// SetRole upserts the role assignment for userID.
func (s *MemoryRoleStore) SetRole(_ context.Context, userID string, role domain.RoleTag) (*domain.RoleAssignment, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	now := time.Now()
	assignment, ok := s.roles[userID]
	if !ok {
		assignment = &domain.RoleAssignment{UserID: userID, CreatedAt: now}
		s.roles[userID] = assignment
	}
	assignment.Role = role
	assignment.UpdatedAt = now
	copied := *assignment
	return &copied, nil
}
