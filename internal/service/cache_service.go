package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	appErrors "github.com/noah-isme/liquidation-verify-api/pkg/errors"
)

const (
	metricsCachePrefix   = "metrics:"
	overviewCacheKey     = metricsCachePrefix + "overview"
	distributorCacheKeyF = metricsCachePrefix + "distributor:%s"
)

// CacheRepository abstracts persistence for cached payloads.
type CacheRepository interface {
	Get(ctx context.Context, key string, dest interface{}) error
	Set(ctx context.Context, key string, value interface{}, ttl time.Duration) error
	DeleteByPattern(ctx context.Context, pattern string) error
}

// CacheService orchestrates cache operations and related metrics.
type CacheService struct {
	repo       CacheRepository
	metrics    *MetricsService
	defaultTTL time.Duration
	logger     *zap.Logger
	enabled    bool
}

// NewCacheService constructs a cache service.
func NewCacheService(repo CacheRepository, metrics *MetricsService, defaultTTL time.Duration, logger *zap.Logger, enabled bool) *CacheService {
	if defaultTTL <= 0 {
		defaultTTL = 5 * time.Minute
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &CacheService{repo: repo, metrics: metrics, defaultTTL: defaultTTL, logger: logger, enabled: enabled}
}

// DistributorMetricsKey is the cache key for one distributor's liquidation metrics.
func DistributorMetricsKey(distributorID string) string {
	return fmt.Sprintf(distributorCacheKeyF, distributorID)
}

// Enabled indicates whether caching is active.
func (s *CacheService) Enabled() bool {
	return s != nil && s.enabled && s.repo != nil
}

// Get attempts to retrieve a cached entry. It returns true when the cache was hit.
func (s *CacheService) Get(ctx context.Context, key string, dest interface{}) (bool, error) {
	if !s.Enabled() {
		return false, nil
	}
	start := time.Now()
	err := s.repo.Get(ctx, key, dest)
	duration := time.Since(start)
	if err != nil {
		s.metrics.RecordCacheOperation(false, duration)
		if errors.Is(err, appErrors.ErrCacheMiss) {
			return false, nil
		}
		s.logger.Warn("cache get failed", zap.String("key", key), zap.Error(err))
		return false, err
	}
	s.metrics.RecordCacheOperation(true, duration)
	return true, nil
}

// Set stores the value in cache.
func (s *CacheService) Set(ctx context.Context, key string, value interface{}, ttl time.Duration) error {
	if !s.Enabled() {
		return nil
	}
	if ttl <= 0 {
		ttl = s.defaultTTL
	}
	start := time.Now()
	err := s.repo.Set(ctx, key, value, ttl)
	s.metrics.ObserveCacheWrite(time.Since(start))
	if err != nil {
		s.logger.Warn("cache set failed", zap.String("key", key), zap.Error(err))
	}
	return err
}

// Invalidate removes cached values for the provided pattern.
func (s *CacheService) Invalidate(ctx context.Context, pattern string) error {
	if !s.Enabled() {
		return nil
	}
	if err := s.repo.DeleteByPattern(ctx, pattern); err != nil {
		s.logger.Warn("cache invalidate failed", zap.String("pattern", pattern), zap.Error(err))
		return err
	}
	return nil
}

// InvalidateDistributor drops cached metrics touched by a change to one distributor's stock.
func (s *CacheService) InvalidateDistributor(ctx context.Context, distributorID string) {
	if !s.Enabled() {
		return
	}
	_ = s.Invalidate(ctx, DistributorMetricsKey(distributorID))
	_ = s.Invalidate(ctx, overviewCacheKey)
}

// cached serves key from cache, falling back to load and storing its result.
// Cache failures never fail the call.
func cached[T any](ctx context.Context, cache *CacheService, key string, load func(context.Context) (T, error)) (T, bool, error) {
	var hit T
	if ok, err := cache.Get(ctx, key, &hit); err == nil && ok {
		return hit, true, nil
	}
	value, err := load(ctx)
	if err != nil {
		return value, false, err
	}
	_ = cache.Set(ctx, key, value, 0)
	return value, false, nil
}
