package domain

import "time"

// CouponStatus enumerates redemption states for coupons.
type CouponStatus string

const (
	CouponStatusActive        CouponStatus = "ACTIVE"
	CouponStatusPartiallyUsed CouponStatus = "PARTIALLY_USED"
	CouponStatusUsed          CouponStatus = "USED"
)

// Coupon is the aggregate for a stored gift card or coupon. Ownership is
// fixed at creation; UserID never changes afterwards.
type Coupon struct {
	ID             string
	UserID         string
	Retailer       string
	ValueCents     int64
	RemainingCents int64
	Currency       string
	ExpiresAt      *time.Time
	ActivationCode string
	PIN            string
	Status         CouponStatus
	Notes          string
	CreatedAt      time.Time
	UpdatedAt      time.Time
}

// Expired reports whether the coupon is past its expiration date.
func (c *Coupon) Expired(now time.Time) bool {
	return c.ExpiresAt != nil && now.After(*c.ExpiresAt)
}

// RetailerStats aggregates coupon totals for a single retailer.
type RetailerStats struct {
	Retailer       string `json:"retailer"`
	Coupons        int64  `json:"coupons"`
	Active         int64  `json:"active"`
	ValueCents     int64  `json:"value_cents"`
	RemainingCents int64  `json:"remaining_cents"`
}
