package service_test

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/spec-kit/coupon-service/internal/authz"
	"github.com/spec-kit/coupon-service/internal/domain"
	"github.com/spec-kit/coupon-service/internal/events"
	"github.com/spec-kit/coupon-service/internal/repository"
	"github.com/spec-kit/coupon-service/internal/service"
	apperrors "github.com/spec-kit/coupon-service/pkg/util"
)

type fakeCouponRepo struct {
	mu         sync.Mutex
	coupons    map[string]*domain.Coupon
	seq        int
	statsCalls int
}

func newFakeCouponRepo() *fakeCouponRepo {
	return &fakeCouponRepo{coupons: make(map[string]*domain.Coupon)}
}

func (r *fakeCouponRepo) Create(_ context.Context, coupon *domain.Coupon) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.seq++
	coupon.ID = fmt.Sprintf("coupon-%d", r.seq)
	coupon.CreatedAt = time.Now()
	coupon.UpdatedAt = coupon.CreatedAt
	copied := *coupon
	r.coupons[coupon.ID] = &copied
	return nil
}

func (r *fakeCouponRepo) Update(_ context.Context, coupon *domain.Coupon) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.coupons[coupon.ID]; !ok {
		return pgx.ErrNoRows
	}
	coupon.UpdatedAt = time.Now()
	copied := *coupon
	r.coupons[coupon.ID] = &copied
	return nil
}

func (r *fakeCouponRepo) Delete(_ context.Context, id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.coupons[id]; !ok {
		return pgx.ErrNoRows
	}
	delete(r.coupons, id)
	return nil
}

func (r *fakeCouponRepo) GetByID(_ context.Context, id string) (*domain.Coupon, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	coupon, ok := r.coupons[id]
	if !ok {
		return nil, pgx.ErrNoRows
	}
	copied := *coupon
	return &copied, nil
}

func (r *fakeCouponRepo) GetOwnerID(_ context.Context, id string) (string, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	coupon, ok := r.coupons[id]
	if !ok {
		return "", pgx.ErrNoRows
	}
	return coupon.UserID, nil
}

func (r *fakeCouponRepo) ListWithFilter(_ context.Context, filter repository.CouponFilter) ([]domain.Coupon, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var results []domain.Coupon
	for _, coupon := range r.coupons {
		if filter.OwnerID != nil && coupon.UserID != *filter.OwnerID {
			continue
		}
		results = append(results, *coupon)
	}
	return results, nil
}

func (r *fakeCouponRepo) RetailerStats(_ context.Context, ownerID *string) ([]domain.RetailerStats, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.statsCalls++
	byRetailer := make(map[string]*domain.RetailerStats)
	for _, coupon := range r.coupons {
		if ownerID != nil && coupon.UserID != *ownerID {
			continue
		}
		entry, ok := byRetailer[coupon.Retailer]
		if !ok {
			entry = &domain.RetailerStats{Retailer: coupon.Retailer}
			byRetailer[coupon.Retailer] = entry
		}
		entry.Coupons++
		if coupon.Status != domain.CouponStatusUsed {
			entry.Active++
		}
		entry.ValueCents += coupon.ValueCents
		entry.RemainingCents += coupon.RemainingCents
	}
	var stats []domain.RetailerStats
	for _, entry := range byRetailer {
		stats = append(stats, *entry)
	}
	return stats, nil
}

func newCouponService(t *testing.T) (*service.CouponService, *fakeCouponRepo, *authz.MemoryRoleStore) {
	t.Helper()
	repo := newFakeCouponRepo()
	roles := authz.NewMemoryRoleStore()
	evaluator := authz.NewEvaluator(roles, authz.NewCouponOwnership(repo, zap.NewNop()))
	svc := service.NewCouponService(service.CouponDependencies{
		CouponRepo: repo,
		Evaluator:  evaluator,
		Dispatcher: events.NewInMemoryDispatcher(),
	})
	return svc, repo, roles
}

func setRole(t *testing.T, roles *authz.MemoryRoleStore, userID string, role domain.RoleTag) {
	t.Helper()
	_, err := roles.SetRole(context.Background(), userID, role)
	require.NoError(t, err)
}

func assertForbidden(t *testing.T, err error) {
	t.Helper()
	var domainErr *apperrors.DomainError
	require.Error(t, err)
	require.True(t, errors.As(err, &domainErr))
	assert.Equal(t, "FORBIDDEN", domainErr.Code)
}

func TestCreateCouponByRole(t *testing.T) {
	svc, _, roles := newCouponService(t)
	setRole(t, roles, "alice", domain.RoleUser)
	setRole(t, roles, "dave", domain.RoleDemo)

	coupon, err := svc.CreateCoupon(context.Background(), "alice", service.CouponCreateInput{
		Retailer:   "Acme",
		ValueCents: 5000,
	})
	require.NoError(t, err)
	assert.Equal(t, "alice", coupon.UserID)
	assert.Equal(t, domain.CouponStatusActive, coupon.Status)
	assert.Equal(t, int64(5000), coupon.RemainingCents)
	assert.Equal(t, "USD", coupon.Currency)

	_, err = svc.CreateCoupon(context.Background(), "dave", service.CouponCreateInput{
		Retailer:   "Acme",
		ValueCents: 5000,
	})
	assertForbidden(t, err)
}

func TestCreateCouponValidation(t *testing.T) {
	svc, _, roles := newCouponService(t)
	setRole(t, roles, "alice", domain.RoleUser)

	_, err := svc.CreateCoupon(context.Background(), "alice", service.CouponCreateInput{ValueCents: 100})
	assert.Error(t, err)

	_, err = svc.CreateCoupon(context.Background(), "alice", service.CouponCreateInput{Retailer: "Acme"})
	assert.Error(t, err)
}

func TestEditRequiresOwnershipForUserRole(t *testing.T) {
	svc, _, roles := newCouponService(t)
	setRole(t, roles, "alice", domain.RoleUser)
	setRole(t, roles, "bob", domain.RoleUser)
	setRole(t, roles, "carol", domain.RoleManager)

	coupon, err := svc.CreateCoupon(context.Background(), "alice", service.CouponCreateInput{
		Retailer:   "Acme",
		ValueCents: 1000,
	})
	require.NoError(t, err)

	notes := "wrapped as a gift"
	_, err = svc.UpdateCoupon(context.Background(), "bob", coupon.ID, service.CouponUpdateInput{Notes: &notes})
	assertForbidden(t, err)

	updated, err := svc.UpdateCoupon(context.Background(), "alice", coupon.ID, service.CouponUpdateInput{Notes: &notes})
	require.NoError(t, err)
	assert.Equal(t, notes, updated.Notes)
	assert.Equal(t, "alice", updated.UserID, "ownership never changes")

	retailer := "Acme Outlet"
	updated, err = svc.UpdateCoupon(context.Background(), "carol", coupon.ID, service.CouponUpdateInput{Retailer: &retailer})
	require.NoError(t, err)
	assert.Equal(t, retailer, updated.Retailer)
}

func TestGetCouponVisibility(t *testing.T) {
	svc, _, roles := newCouponService(t)
	setRole(t, roles, "alice", domain.RoleUser)
	setRole(t, roles, "bob", domain.RoleUser)
	setRole(t, roles, "carol", domain.RoleManager)

	coupon, err := svc.CreateCoupon(context.Background(), "alice", service.CouponCreateInput{
		Retailer:   "Acme",
		ValueCents: 1000,
	})
	require.NoError(t, err)

	_, err = svc.GetCoupon(context.Background(), "alice", coupon.ID)
	assert.NoError(t, err)

	_, err = svc.GetCoupon(context.Background(), "bob", coupon.ID)
	assertForbidden(t, err)

	_, err = svc.GetCoupon(context.Background(), "carol", coupon.ID)
	assert.NoError(t, err)
}

func TestListAllRequiresViewAll(t *testing.T) {
	svc, _, roles := newCouponService(t)
	setRole(t, roles, "alice", domain.RoleUser)
	setRole(t, roles, "bob", domain.RoleUser)
	setRole(t, roles, "carol", domain.RoleManager)

	_, err := svc.CreateCoupon(context.Background(), "alice", service.CouponCreateInput{Retailer: "Acme", ValueCents: 100})
	require.NoError(t, err)
	_, err = svc.CreateCoupon(context.Background(), "bob", service.CouponCreateInput{Retailer: "Globex", ValueCents: 200})
	require.NoError(t, err)

	own, err := svc.ListCoupons(context.Background(), "alice", service.CouponListFilter{}, false)
	require.NoError(t, err)
	require.Len(t, own, 1)
	assert.Equal(t, "alice", own[0].UserID)

	_, err = svc.ListCoupons(context.Background(), "alice", service.CouponListFilter{}, true)
	assertForbidden(t, err)

	all, err := svc.ListCoupons(context.Background(), "carol", service.CouponListFilter{}, true)
	require.NoError(t, err)
	assert.Len(t, all, 2)
}

func TestRedeemCouponPartialThenFull(t *testing.T) {
	svc, _, roles := newCouponService(t)
	setRole(t, roles, "alice", domain.RoleUser)

	coupon, err := svc.CreateCoupon(context.Background(), "alice", service.CouponCreateInput{
		Retailer:   "Acme",
		ValueCents: 1000,
	})
	require.NoError(t, err)

	partial := int64(400)
	redeemed, err := svc.RedeemCoupon(context.Background(), "alice", coupon.ID, &partial)
	require.NoError(t, err)
	assert.Equal(t, domain.CouponStatusPartiallyUsed, redeemed.Status)
	assert.Equal(t, int64(600), redeemed.RemainingCents)

	redeemed, err = svc.RedeemCoupon(context.Background(), "alice", coupon.ID, nil)
	require.NoError(t, err)
	assert.Equal(t, domain.CouponStatusUsed, redeemed.Status)
	assert.Zero(t, redeemed.RemainingCents)

	_, err = svc.RedeemCoupon(context.Background(), "alice", coupon.ID, nil)
	assert.Error(t, err, "a fully used coupon cannot be redeemed again")
}

func TestRedeemAmountOutOfRange(t *testing.T) {
	svc, _, roles := newCouponService(t)
	setRole(t, roles, "alice", domain.RoleUser)

	coupon, err := svc.CreateCoupon(context.Background(), "alice", service.CouponCreateInput{
		Retailer:   "Acme",
		ValueCents: 1000,
	})
	require.NoError(t, err)

	tooMuch := int64(2000)
	_, err = svc.RedeemCoupon(context.Background(), "alice", coupon.ID, &tooMuch)
	assert.Error(t, err)

	negative := int64(-1)
	_, err = svc.RedeemCoupon(context.Background(), "alice", coupon.ID, &negative)
	assert.Error(t, err)
}

func TestDeleteCouponOwnerOnly(t *testing.T) {
	svc, repo, roles := newCouponService(t)
	setRole(t, roles, "alice", domain.RoleUser)
	setRole(t, roles, "bob", domain.RoleUser)

	coupon, err := svc.CreateCoupon(context.Background(), "alice", service.CouponCreateInput{
		Retailer:   "Acme",
		ValueCents: 1000,
	})
	require.NoError(t, err)

	assertForbidden(t, svc.DeleteCoupon(context.Background(), "bob", coupon.ID))

	require.NoError(t, svc.DeleteCoupon(context.Background(), "alice", coupon.ID))
	_, err = repo.GetByID(context.Background(), coupon.ID)
	assert.ErrorIs(t, err, pgx.ErrNoRows)
}
