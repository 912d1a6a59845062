package service

import (
	"context"
	"errors"
	"time"

	"go.uber.org/zap"

	"github.com/swiftdrive/driveschool-api/internal/models"
	"github.com/swiftdrive/driveschool-api/pkg/config"
	appErrors "github.com/swiftdrive/driveschool-api/pkg/errors"
)

const statsCacheKey = "stats:dashboard"

type statsRepository interface {
	Aggregate(ctx context.Context, now time.Time) (*models.Stats, error)
}

type statsCache interface {
	Get(ctx context.Context, key string, dest interface{}) error
	Set(ctx context.Context, key string, value interface{}, ttl time.Duration) error
	Delete(ctx context.Context, key string) error
}

// StatsService serves the dashboard headline numbers. Aggregates are cached
// briefly so the dashboard poll does not hit four count queries each time.
type StatsService struct {
	repo   statsRepository
	cache  statsCache
	ttl    time.Duration
	logger *zap.Logger
	now    func() time.Time
}

// NewStatsService constructs a StatsService.
func NewStatsService(repo statsRepository, cache statsCache, cfg config.StatsConfig, logger *zap.Logger) *StatsService {
	if logger == nil {
		logger = zap.NewNop()
	}
	ttl := cfg.CacheTTL
	if ttl <= 0 {
		ttl = 30 * time.Second
	}
	return &StatsService{repo: repo, cache: cache, ttl: ttl, logger: logger, now: time.Now}
}

// Dashboard returns the current aggregates, from cache when fresh.
func (s *StatsService) Dashboard(ctx context.Context) (*models.Stats, error) {
	var cached models.Stats
	err := s.cache.Get(ctx, statsCacheKey, &cached)
	if err == nil {
		return &cached, nil
	}
	if !errors.Is(err, appErrors.ErrCacheMiss) {
		s.logger.Warn("stats cache read failed", zap.Error(err))
	}

	stats, err := s.repo.Aggregate(ctx, s.now().UTC())
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to aggregate stats")
	}
	stats.GeneratedAt = s.now().UTC()

	if err := s.cache.Set(ctx, statsCacheKey, stats, s.ttl); err != nil {
		s.logger.Warn("stats cache write failed", zap.Error(err))
	}
	return stats, nil
}

// Invalidate drops the cached aggregates, forcing the next read to query.
func (s *StatsService) Invalidate(ctx context.Context) {
	if err := s.cache.Delete(ctx, statsCacheKey); err != nil {
		s.logger.Warn("stats cache invalidation failed", zap.Error(err))
	}
}
