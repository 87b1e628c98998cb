package repository

import (
	"context"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/spec-kit/coupon-service/internal/domain"
)

// RoleRepository encapsulates role assignment persistence. Assignments are
// upserted, never deleted.
type RoleRepository interface {
	Get(ctx context.Context, userID string) (*domain.RoleAssignment, error)
	Set(ctx context.Context, userID string, role domain.RoleTag) (*domain.RoleAssignment, error)
}

type roleRepository struct {
	pool *pgxpool.Pool
}

// NewRoleRepository returns a Postgres-backed implementation.
func NewRoleRepository(pool *pgxpool.Pool) RoleRepository {
	return &roleRepository{pool: pool}
}

func (r *roleRepository) Get(ctx context.Context, userID string) (*domain.RoleAssignment, error) {
	const query = `
        SELECT user_id, role, created_at, updated_at
        FROM user_roles WHERE user_id=$1`

	var assignment domain.RoleAssignment
	if err := r.pool.QueryRow(ctx, query, userID).Scan(
		&assignment.UserID,
		&assignment.Role,
		&assignment.CreatedAt,
		&assignment.UpdatedAt,
	); err != nil {
		return nil, err
	}
	return &assignment, nil
}

func (r *roleRepository) Set(ctx context.Context, userID string, role domain.RoleTag) (*domain.RoleAssignment, error) {
	const query = `
        INSERT INTO user_roles (user_id, role)
        VALUES ($1, $2)
        ON CONFLICT (user_id) DO UPDATE SET role=EXCLUDED.role, updated_at=NOW()
        RETURNING user_id, role, created_at, updated_at`

	var assignment domain.RoleAssignment
	if err := r.pool.QueryRow(ctx, query, userID, role).Scan(
		&assignment.UserID,
		&assignment.Role,
		&assignment.CreatedAt,
		&assignment.UpdatedAt,
	); err != nil {
		return nil, err
	}
	return &assignment, nil
}
