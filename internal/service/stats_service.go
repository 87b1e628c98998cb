package service

import (
	"context"
	"encoding/json"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/spec-kit/coupon-service/internal/authz"
	"github.com/spec-kit/coupon-service/internal/domain"
	"github.com/spec-kit/coupon-service/internal/events"
	"github.com/spec-kit/coupon-service/internal/repository"
	apperrors "github.com/spec-kit/coupon-service/pkg/util"
)

const (
	statsKeyPrefix = "stats:retailers:user:"
	statsKeyAll    = "stats:retailers:all"
)

// StatsService aggregates per-retailer coupon totals with a best-effort
// Redis cache. Cache failures degrade to computing directly.
type StatsService struct {
	coupons   repository.CouponRepository
	evaluator *authz.Evaluator
	cache     *redis.Client
	ttl       time.Duration
	logger    *zap.Logger
}

// NewStatsService builds the service. cache may be nil to disable caching.
func NewStatsService(coupons repository.CouponRepository, evaluator *authz.Evaluator, cache *redis.Client, ttl time.Duration, logger *zap.Logger) *StatsService {
	return &StatsService{
		coupons:   coupons,
		evaluator: evaluator,
		cache:     cache,
		ttl:       ttl,
		logger:    logger,
	}
}

// RetailerStats returns per-retailer totals for the caller, or across all
// users when all is set and the caller may view all coupons.
func (s *StatsService) RetailerStats(ctx context.Context, userID string, all bool) ([]domain.RetailerStats, error) {
	var key string
	var owner *string
	if all {
		if !s.evaluator.Check(ctx, userID, domain.PermissionViewAllCoupons, nil) {
			return nil, apperrors.NewForbidden("not allowed to view aggregate stats")
		}
		key = statsKeyAll
	} else {
		if !s.evaluator.Check(ctx, userID, domain.PermissionViewOwnCoupons, nil) {
			return nil, apperrors.NewForbidden("not allowed to view stats")
		}
		key = statsKeyPrefix + userID
		owner = &userID
	}

	if cached, ok := s.fromCache(ctx, key); ok {
		return cached, nil
	}

	stats, err := s.coupons.RetailerStats(ctx, owner)
	if err != nil {
		return nil, err
	}
	s.toCache(ctx, key, stats)
	return stats, nil
}

// RegisterInvalidation subscribes cache invalidation to coupon mutations.
func (s *StatsService) RegisterInvalidation(dispatcher events.Dispatcher) {
	if dispatcher == nil {
		return
	}
	for _, eventType := range []events.EventType{
		events.EventCouponCreated,
		events.EventCouponUpdated,
		events.EventCouponRedeemed,
		events.EventCouponDeleted,
	} {
		dispatcher.Subscribe(eventType, s.handleCouponEvent)
	}
}

// Invalidate drops cached stats for a user and the all-users aggregate.
func (s *StatsService) Invalidate(ctx context.Context, userID string) {
	if s.cache == nil {
		return
	}
	keys := []string{statsKeyAll}
	if userID != "" {
		keys = append(keys, statsKeyPrefix+userID)
	}
	if err := s.cache.Del(ctx, keys...).Err(); err != nil {
		s.logger.Warn("stats cache invalidation failed", zap.Error(err))
	}
}

func (s *StatsService) handleCouponEvent(ctx context.Context, event events.Event) error {
	s.Invalidate(ctx, event.UserID)
	return nil
}

func (s *StatsService) fromCache(ctx context.Context, key string) ([]domain.RetailerStats, bool) {
	if s.cache == nil {
		return nil, false
	}
	raw, err := s.cache.Get(ctx, key).Bytes()
	if err != nil {
		if err != redis.Nil {
			s.logger.Warn("stats cache read failed", zap.String("key", key), zap.Error(err))
		}
		return nil, false
	}
	var stats []domain.RetailerStats
	if err := json.Unmarshal(raw, &stats); err != nil {
		s.logger.Warn("stats cache decode failed", zap.String("key", key), zap.Error(err))
		return nil, false
	}
	return stats, true
}

func (s *StatsService) toCache(ctx context.Context, key string, stats []domain.RetailerStats) {
	if s.cache == nil {
		return
	}
	raw, err := json.Marshal(stats)
	if err != nil {
		return
	}
	if err := s.cache.Set(ctx, key, raw, s.ttl).Err(); err != nil {
		s.logger.Warn("stats cache write failed", zap.String("key", key), zap.Error(err))
	}
}
