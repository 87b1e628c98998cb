package dto

import (
	"time"

	"github.com/spec-kit/coupon-service/internal/domain"
)

// CouponCreateRequest payload for storing a coupon.
type CouponCreateRequest struct {
	Retailer       string     `json:"retailer"`
	ValueCents     int64      `json:"value_cents"`
	Currency       string     `json:"currency"`
	ExpiresAt      *time.Time `json:"expires_at"`
	ActivationCode string     `json:"activation_code"`
	PIN            string     `json:"pin"`
	Notes          string     `json:"notes"`
}

// CouponUpdateRequest payload for editing a coupon. Omitted fields are
// left unchanged.
type CouponUpdateRequest struct {
	Retailer       *string    `json:"retailer"`
	ExpiresAt      *time.Time `json:"expires_at"`
	ClearExpiresAt bool       `json:"clear_expires_at"`
	ActivationCode *string    `json:"activation_code"`
	PIN            *string    `json:"pin"`
	Notes          *string    `json:"notes"`
}

// CouponRedeemRequest payload for redeeming value. A nil amount redeems
// the full remaining balance.
type CouponRedeemRequest struct {
	AmountCents *int64 `json:"amount_cents"`
}

// CouponResponse is the wire representation of a coupon.
type CouponResponse struct {
	ID             string     `json:"id"`
	UserID         string     `json:"user_id"`
	Retailer       string     `json:"retailer"`
	ValueCents     int64      `json:"value_cents"`
	RemainingCents int64      `json:"remaining_cents"`
	Currency       string     `json:"currency"`
	ExpiresAt      *time.Time `json:"expires_at,omitempty"`
	ActivationCode string     `json:"activation_code"`
	PIN            string     `json:"pin"`
	Status         string     `json:"status"`
	Notes          string     `json:"notes,omitempty"`
	CreatedAt      time.Time  `json:"created_at"`
	UpdatedAt      time.Time  `json:"updated_at"`
}

// NewCouponResponse maps the domain coupon.
func NewCouponResponse(coupon *domain.Coupon) CouponResponse {
	return CouponResponse{
		ID:             coupon.ID,
		UserID:         coupon.UserID,
		Retailer:       coupon.Retailer,
		ValueCents:     coupon.ValueCents,
		RemainingCents: coupon.RemainingCents,
		Currency:       coupon.Currency,
		ExpiresAt:      coupon.ExpiresAt,
		ActivationCode: coupon.ActivationCode,
		PIN:            coupon.PIN,
		Status:         string(coupon.Status),
		Notes:          coupon.Notes,
		CreatedAt:      coupon.CreatedAt,
		UpdatedAt:      coupon.UpdatedAt,
	}
}

// NewCouponListResponse maps a slice of domain coupons.
func NewCouponListResponse(coupons []domain.Coupon) []CouponResponse {
	out := make([]CouponResponse, 0, len(coupons))
	for i := range coupons {
		out = append(out, NewCouponResponse(&coupons[i]))
	}
	return out
}
