package events

import (
	"time"

	"github.com/spec-kit/coupon-service/internal/domain"
)

// EventType enumerates supported event identifiers.
type EventType string

const (
	EventCouponCreated  EventType = "coupon_created"
	EventCouponUpdated  EventType = "coupon_updated"
	EventCouponRedeemed EventType = "coupon_redeemed"
	EventCouponDeleted  EventType = "coupon_deleted"
	EventRoleChanged    EventType = "role_changed"
)

// Event represents a domain event emitted by services.
type Event struct {
	ID        string      `json:"id"`
	Type      EventType   `json:"type"`
	UserID    string      `json:"user_id"`
	CouponID  string      `json:"coupon_id,omitempty"`
	Timestamp time.Time   `json:"timestamp"`
	Payload   interface{} `json:"payload"`
}

// CouponCreatedPayload payload.
type CouponCreatedPayload struct {
	Retailer   string `json:"retailer"`
	ValueCents int64  `json:"value_cents"`
}

// CouponRedeemedPayload payload.
type CouponRedeemedPayload struct {
	AmountCents    int64               `json:"amount_cents"`
	RemainingCents int64               `json:"remaining_cents"`
	Status         domain.CouponStatus `json:"status"`
}

// CouponDeletedPayload payload.
type CouponDeletedPayload struct {
	Retailer string `json:"retailer"`
}

// RoleChangedPayload payload.
type RoleChangedPayload struct {
	TargetUserID string         `json:"target_user_id"`
	NewRole      domain.RoleTag `json:"new_role"`
	ChangedBy    string         `json:"changed_by"`
}
