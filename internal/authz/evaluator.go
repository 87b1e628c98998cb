package authz

import (
	"context"

	"github.com/spec-kit/coupon-service/internal/domain"
)

// Resource identifies the target of an owner-only permission check.
type Resource struct {
	ID string
}

// Evaluator answers "can user U perform action A on resource R". It never
// returns an error; every failure path resolves to a denied check.
type Evaluator struct {
	roles     RoleStore
	ownership OwnershipChecker
}

// NewEvaluator builds the evaluator over an injectable role store and
// ownership checker.
func NewEvaluator(roles RoleStore, ownership OwnershipChecker) *Evaluator {
	return &Evaluator{roles: roles, ownership: ownership}
}

// Check evaluates whether userID holds permission, consulting ownership for
// owner-only grants. A missing user id short-circuits before any store read.
func (e *Evaluator) Check(ctx context.Context, userID string, permission domain.Permission, resource *Resource) bool {
	if userID == "" {
		return false
	}

	role, ok := e.roles.GetRole(ctx, userID)
	if !ok {
		return false
	}

	// Managers hold every permission; skip the table walk.
	if role == domain.RoleManager {
		return true
	}

	grant, ok := domain.GrantFor(role, permission)
	if !ok {
		return false
	}

	switch grant {
	case domain.GrantAllowed:
		return true
	case domain.GrantOwnerOnly:
		if resource == nil || resource.ID == "" {
			return false
		}
		return e.ownership.IsOwner(ctx, userID, resource.ID)
	}
	return false
}
