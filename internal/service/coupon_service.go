package service

import (
	"context"
	"strings"
	"time"

	"github.com/spec-kit/coupon-service/internal/authz"
	"github.com/spec-kit/coupon-service/internal/domain"
	"github.com/spec-kit/coupon-service/internal/events"
	"github.com/spec-kit/coupon-service/internal/repository"
	apperrors "github.com/spec-kit/coupon-service/pkg/util"
)

// CouponService coordinates coupon workflows. Every operation passes the
// permission evaluator before touching the repository.
type CouponService struct {
	coupons    repository.CouponRepository
	evaluator  *authz.Evaluator
	dispatcher events.Dispatcher
}

// CouponDependencies bundles requirements for coupon service.
type CouponDependencies struct {
	CouponRepo repository.CouponRepository
	Evaluator  *authz.Evaluator
	Dispatcher events.Dispatcher
}

// CouponCreateInput describes coupon creation payload.
type CouponCreateInput struct {
	Retailer       string
	ValueCents     int64
	Currency       string
	ExpiresAt      *time.Time
	ActivationCode string
	PIN            string
	Notes          string
}

// CouponUpdateInput describes editable coupon fields. Nil fields are left
// unchanged; ownership is never editable.
type CouponUpdateInput struct {
	Retailer       *string
	ExpiresAt      *time.Time
	ClearExpiresAt bool
	ActivationCode *string
	PIN            *string
	Notes          *string
}

// CouponListFilter describes listing parameters.
type CouponListFilter struct {
	Retailer *string
	Statuses []domain.CouponStatus
	Limit    int
	Offset   int
}

// NewCouponService constructs the service.
func NewCouponService(deps CouponDependencies) *CouponService {
	return &CouponService{
		coupons:    deps.CouponRepo,
		evaluator:  deps.Evaluator,
		dispatcher: deps.Dispatcher,
	}
}

// CreateCoupon stores a new coupon owned by userID.
func (s *CouponService) CreateCoupon(ctx context.Context, userID string, input CouponCreateInput) (*domain.Coupon, error) {
	if !s.evaluator.Check(ctx, userID, domain.PermissionCreateCoupon, nil) {
		return nil, apperrors.NewForbidden("not allowed to create coupons")
	}

	retailer := strings.TrimSpace(input.Retailer)
	if retailer == "" {
		return nil, apperrors.NewValidationError("retailer is required", nil)
	}
	if input.ValueCents <= 0 {
		return nil, apperrors.NewValidationError("value must be positive", nil)
	}

	currency := strings.ToUpper(strings.TrimSpace(input.Currency))
	if currency == "" {
		currency = "USD"
	}

	coupon := &domain.Coupon{
		UserID:         userID,
		Retailer:       retailer,
		ValueCents:     input.ValueCents,
		RemainingCents: input.ValueCents,
		Currency:       currency,
		ExpiresAt:      input.ExpiresAt,
		ActivationCode: strings.TrimSpace(input.ActivationCode),
		PIN:            strings.TrimSpace(input.PIN),
		Status:         domain.CouponStatusActive,
		Notes:          strings.TrimSpace(input.Notes),
	}
	if err := s.coupons.Create(ctx, coupon); err != nil {
		return nil, err
	}

	s.publish(ctx, events.Event{
		Type:     events.EventCouponCreated,
		UserID:   userID,
		CouponID: coupon.ID,
		Payload: events.CouponCreatedPayload{
			Retailer:   coupon.Retailer,
			ValueCents: coupon.ValueCents,
		},
	})
	return coupon, nil
}

// GetCoupon returns a coupon visible to userID.
func (s *CouponService) GetCoupon(ctx context.Context, userID, couponID string) (*domain.Coupon, error) {
	coupon, err := s.coupons.GetByID(ctx, couponID)
	if err != nil {
		return nil, err
	}

	permission := domain.PermissionViewOwnCoupons
	if coupon.UserID != userID {
		permission = domain.PermissionViewAllCoupons
	}
	if !s.evaluator.Check(ctx, userID, permission, nil) {
		return nil, apperrors.NewForbidden("not allowed to view this coupon")
	}
	return coupon, nil
}

// ListCoupons returns the caller's coupons, or every coupon when all is set
// and the caller may view all.
func (s *CouponService) ListCoupons(ctx context.Context, userID string, filter CouponListFilter, all bool) ([]domain.Coupon, error) {
	repoFilter := repository.CouponFilter{
		Retailer: filter.Retailer,
		Statuses: filter.Statuses,
		Limit:    filter.Limit,
		Offset:   filter.Offset,
	}

	if all {
		if !s.evaluator.Check(ctx, userID, domain.PermissionViewAllCoupons, nil) {
			return nil, apperrors.NewForbidden("not allowed to view all coupons")
		}
	} else {
		if !s.evaluator.Check(ctx, userID, domain.PermissionViewOwnCoupons, nil) {
			return nil, apperrors.NewForbidden("not allowed to view coupons")
		}
		repoFilter.OwnerID = &userID
	}
	return s.coupons.ListWithFilter(ctx, repoFilter)
}

// UpdateCoupon edits coupon details. The grant is owner-only for the user
// role; managers may edit any coupon.
func (s *CouponService) UpdateCoupon(ctx context.Context, userID, couponID string, input CouponUpdateInput) (*domain.Coupon, error) {
	if !s.evaluator.Check(ctx, userID, domain.PermissionEditCoupon, &authz.Resource{ID: couponID}) {
		return nil, apperrors.NewForbidden("not allowed to edit this coupon")
	}

	coupon, err := s.coupons.GetByID(ctx, couponID)
	if err != nil {
		return nil, err
	}

	if input.Retailer != nil {
		retailer := strings.TrimSpace(*input.Retailer)
		if retailer == "" {
			return nil, apperrors.NewValidationError("retailer cannot be empty", nil)
		}
		coupon.Retailer = retailer
	}
	if input.ClearExpiresAt {
		coupon.ExpiresAt = nil
	} else if input.ExpiresAt != nil {
		coupon.ExpiresAt = input.ExpiresAt
	}
	if input.ActivationCode != nil {
		coupon.ActivationCode = strings.TrimSpace(*input.ActivationCode)
	}
	if input.PIN != nil {
		coupon.PIN = strings.TrimSpace(*input.PIN)
	}
	if input.Notes != nil {
		coupon.Notes = strings.TrimSpace(*input.Notes)
	}

	if err := s.coupons.Update(ctx, coupon); err != nil {
		return nil, err
	}

	s.publish(ctx, events.Event{
		Type:     events.EventCouponUpdated,
		UserID:   coupon.UserID,
		CouponID: coupon.ID,
	})
	return coupon, nil
}

// RedeemCoupon marks a coupon used. A nil amount redeems the full remaining
// value; a partial amount leaves the coupon partially used.
func (s *CouponService) RedeemCoupon(ctx context.Context, userID, couponID string, amountCents *int64) (*domain.Coupon, error) {
	if !s.evaluator.Check(ctx, userID, domain.PermissionEditCoupon, &authz.Resource{ID: couponID}) {
		return nil, apperrors.NewForbidden("not allowed to redeem this coupon")
	}

	coupon, err := s.coupons.GetByID(ctx, couponID)
	if err != nil {
		return nil, err
	}
	if coupon.Status == domain.CouponStatusUsed {
		return nil, apperrors.NewConflict("coupon already fully used", nil)
	}

	amount := coupon.RemainingCents
	if amountCents != nil {
		amount = *amountCents
	}
	if amount <= 0 || amount > coupon.RemainingCents {
		return nil, apperrors.NewValidationError("redemption amount out of range", map[string]any{
			"remaining_cents": coupon.RemainingCents,
		})
	}

	coupon.RemainingCents -= amount
	if coupon.RemainingCents == 0 {
		coupon.Status = domain.CouponStatusUsed
	} else {
		coupon.Status = domain.CouponStatusPartiallyUsed
	}

	if err := s.coupons.Update(ctx, coupon); err != nil {
		return nil, err
	}

	s.publish(ctx, events.Event{
		Type:     events.EventCouponRedeemed,
		UserID:   coupon.UserID,
		CouponID: coupon.ID,
		Payload: events.CouponRedeemedPayload{
			AmountCents:    amount,
			RemainingCents: coupon.RemainingCents,
			Status:         coupon.Status,
		},
	})
	return coupon, nil
}

// DeleteCoupon removes a coupon. Owner-only for the user role.
func (s *CouponService) DeleteCoupon(ctx context.Context, userID, couponID string) error {
	if !s.evaluator.Check(ctx, userID, domain.PermissionDeleteCoupon, &authz.Resource{ID: couponID}) {
		return apperrors.NewForbidden("not allowed to delete this coupon")
	}

	coupon, err := s.coupons.GetByID(ctx, couponID)
	if err != nil {
		return err
	}
	if err := s.coupons.Delete(ctx, couponID); err != nil {
		return err
	}

	s.publish(ctx, events.Event{
		Type:     events.EventCouponDeleted,
		UserID:   coupon.UserID,
		CouponID: coupon.ID,
		Payload:  events.CouponDeletedPayload{Retailer: coupon.Retailer},
	})
	return nil
}

func (s *CouponService) publish(ctx context.Context, event events.Event) {
	if s.dispatcher == nil {
		return
	}
	event.Timestamp = time.Now()
	_ = s.dispatcher.Publish(ctx, event)
}
