package repository

import (
	"context"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/spec-kit/coupon-service/internal/domain"
)

// CouponFilter captures listing parameters.
type CouponFilter struct {
	OwnerID  *string
	Retailer *string
	Statuses []domain.CouponStatus
	Limit    int
	Offset   int
}

// CouponRepository encapsulates coupon persistence.
type CouponRepository interface {
	Create(ctx context.Context, coupon *domain.Coupon) error
	Update(ctx context.Context, coupon *domain.Coupon) error
	Delete(ctx context.Context, id string) error
	GetByID(ctx context.Context, id string) (*domain.Coupon, error)
	GetOwnerID(ctx context.Context, id string) (string, error)
	ListWithFilter(ctx context.Context, filter CouponFilter) ([]domain.Coupon, error)
	RetailerStats(ctx context.Context, ownerID *string) ([]domain.RetailerStats, error)
}

type couponRepository struct {
	pool *pgxpool.Pool
}

// NewCouponRepository instantiates repository.
func NewCouponRepository(pool *pgxpool.Pool) CouponRepository {
	return &couponRepository{pool: pool}
}

func (r *couponRepository) Create(ctx context.Context, coupon *domain.Coupon) error {
	const query = `
        INSERT INTO coupons (user_id, retailer, value_cents, remaining_cents, currency, expires_at, activation_code, pin, status, notes)
        VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10)
        RETURNING id, created_at, updated_at`
	return r.pool.QueryRow(ctx, query,
		coupon.UserID,
		coupon.Retailer,
		coupon.ValueCents,
		coupon.RemainingCents,
		coupon.Currency,
		coupon.ExpiresAt,
		coupon.ActivationCode,
		coupon.PIN,
		coupon.Status,
		coupon.Notes,
	).Scan(&coupon.ID, &coupon.CreatedAt, &coupon.UpdatedAt)
}

func (r *couponRepository) Update(ctx context.Context, coupon *domain.Coupon) error {
	const query = `
        UPDATE coupons SET retailer=$1, value_cents=$2, remaining_cents=$3, currency=$4, expires_at=$5,
            activation_code=$6, pin=$7, status=$8, notes=$9, updated_at=NOW()
        WHERE id=$10`
	cmd, err := r.pool.Exec(ctx, query,
		coupon.Retailer,
		coupon.ValueCents,
		coupon.RemainingCents,
		coupon.Currency,
		coupon.ExpiresAt,
		coupon.ActivationCode,
		coupon.PIN,
		coupon.Status,
		coupon.Notes,
		coupon.ID,
	)
	if err != nil {
		return err
	}
	if cmd.RowsAffected() == 0 {
		return pgx.ErrNoRows
	}
	return nil
}

func (r *couponRepository) Delete(ctx context.Context, id string) error {
	cmd, err := r.pool.Exec(ctx, `DELETE FROM coupons WHERE id=$1`, id)
	if err != nil {
		return err
	}
	if cmd.RowsAffected() == 0 {
		return pgx.ErrNoRows
	}
	return nil
}

func (r *couponRepository) GetByID(ctx context.Context, id string) (*domain.Coupon, error) {
	const query = `
        SELECT id, user_id, retailer, value_cents, remaining_cents, currency, expires_at,
               activation_code, pin, status, notes, created_at, updated_at
        FROM coupons WHERE id=$1`

	var coupon domain.Coupon
	if err := r.pool.QueryRow(ctx, query, id).Scan(
		&coupon.ID,
		&coupon.UserID,
		&coupon.Retailer,
		&coupon.ValueCents,
		&coupon.RemainingCents,
		&coupon.Currency,
		&coupon.ExpiresAt,
		&coupon.ActivationCode,
		&coupon.PIN,
		&coupon.Status,
		&coupon.Notes,
		&coupon.CreatedAt,
		&coupon.UpdatedAt,
	); err != nil {
		return nil, err
	}
	return &coupon, nil
}

func (r *couponRepository) GetOwnerID(ctx context.Context, id string) (string, error) {
	var ownerID string
	if err := r.pool.QueryRow(ctx, `SELECT user_id FROM coupons WHERE id=$1`, id).Scan(&ownerID); err != nil {
		return "", err
	}
	return ownerID, nil
}

func (r *couponRepository) ListWithFilter(ctx context.Context, filter CouponFilter) ([]domain.Coupon, error) {
	clauses := []string{"1=1"}
	args := []any{}
	idx := 1

	if filter.OwnerID != nil {
		clauses = append(clauses, fmt.Sprintf("user_id=$%d", idx))
		args = append(args, *filter.OwnerID)
		idx++
	}
	if filter.Retailer != nil {
		clauses = append(clauses, fmt.Sprintf("retailer ILIKE $%d", idx))
		args = append(args, escapeLikePattern(*filter.Retailer))
		idx++
	}
	if len(filter.Statuses) > 0 {
		clauses = append(clauses, fmt.Sprintf("status = ANY($%d)", idx))
		args = append(args, filter.Statuses)
		idx++
	}

	limit := filter.Limit
	if limit <= 0 || limit > 100 {
		limit = 50
	}
	offset := filter.Offset
	if offset < 0 {
		offset = 0
	}

	query := fmt.Sprintf(`
        SELECT id, user_id, retailer, value_cents, remaining_cents, currency, expires_at,
               activation_code, pin, status, notes, created_at, updated_at
        FROM coupons WHERE %s
        ORDER BY created_at DESC
        LIMIT $%d OFFSET $%d`, strings.Join(clauses, " AND "), idx, idx+1)
	args = append(args, limit, offset)

	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var coupons []domain.Coupon
	for rows.Next() {
		var coupon domain.Coupon
		if err := rows.Scan(
			&coupon.ID,
			&coupon.UserID,
			&coupon.Retailer,
			&coupon.ValueCents,
			&coupon.RemainingCents,
			&coupon.Currency,
			&coupon.ExpiresAt,
			&coupon.ActivationCode,
			&coupon.PIN,
			&coupon.Status,
			&coupon.Notes,
			&coupon.CreatedAt,
			&coupon.UpdatedAt,
		); err != nil {
			return nil, err
		}
		coupons = append(coupons, coupon)
	}
	return coupons, rows.Err()
}

// escapeLikePattern neutralizes LIKE metacharacters so the retailer filter
// matches the literal value, case-insensitively.
func escapeLikePattern(s string) string {
	replacer := strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)
	return replacer.Replace(s)
}

func (r *couponRepository) RetailerStats(ctx context.Context, ownerID *string) ([]domain.RetailerStats, error) {
	query := `
        SELECT retailer,
               COUNT(*),
               COUNT(*) FILTER (WHERE status <> 'USED'),
               COALESCE(SUM(value_cents), 0),
               COALESCE(SUM(remaining_cents), 0)
        FROM coupons`
	args := []any{}
	if ownerID != nil {
		query += ` WHERE user_id=$1`
		args = append(args, *ownerID)
	}
	query += `
        GROUP BY retailer
        ORDER BY retailer`

	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var stats []domain.RetailerStats
	for rows.Next() {
		var entry domain.RetailerStats
		if err := rows.Scan(
			&entry.Retailer,
			&entry.Coupons,
			&entry.Active,
			&entry.ValueCents,
			&entry.RemainingCents,
		); err != nil {
			return nil, err
		}
		stats = append(stats, entry)
	}
	return stats, rows.Err()
}
