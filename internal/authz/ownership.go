package authz

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
	"go.uber.org/zap"
)

// OwnershipChecker answers whether a user owns a specific resource.
// Implementations are fail-closed: lookup failures report false.
type OwnershipChecker interface {
	IsOwner(ctx context.Context, userID, resourceID string) bool
}

// OwnerLookup resolves the owning user of a resource.
type OwnerLookup interface {
	GetOwnerID(ctx context.Context, id string) (string, error)
}

type couponOwnership struct {
	owners OwnerLookup
	logger *zap.Logger
}

// NewCouponOwnership builds the coupon-backed ownership checker.
func NewCouponOwnership(owners OwnerLookup, logger *zap.Logger) OwnershipChecker {
	return &couponOwnership{owners: owners, logger: logger}
}

func (o *couponOwnership) IsOwner(ctx context.Context, userID, resourceID string) bool {
	if userID == "" || resourceID == "" {
		return false
	}
	ownerID, err := o.owners.GetOwnerID(ctx, resourceID)
	if err != nil {
		if !errors.Is(err, pgx.ErrNoRows) {
			o.logger.Warn("ownership lookup failed", zap.String("resource_id", resourceID), zap.Error(err))
		}
		return false
	}
	return ownerID == userID
}
