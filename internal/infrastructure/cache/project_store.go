package cache

import (
	"context"
	"encoding/json"
	"time"

	"github.com/erp/mason/internal/domain/project"
	"github.com/erp/mason/internal/infrastructure/telemetry"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// CompanyStatsKey is the key the aggregated company stats are cached under
const CompanyStatsKey = "company_stats"

// ProjectStore is the project repository surface that can be cached
type ProjectStore interface {
	project.StatsReader
	project.CompanyChecker
	project.Archiver
}

// CachedProjectStore caches CompanyStats in a Store. Archiving through it
// drops the cached value; other writes become visible once the TTL expires.
// Cache failures are logged and the call falls through to the wrapped store.
type CachedProjectStore struct {
	next   ProjectStore
	store  Store
	ttl    time.Duration
	logger *zap.Logger
}

// NewCachedProjectStore wraps next with a stats cache kept for ttl
func NewCachedProjectStore(next ProjectStore, store Store, ttl time.Duration, logger *zap.Logger) *CachedProjectStore {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &CachedProjectStore{next: next, store: store, ttl: ttl, logger: logger}
}

// CompanyStats returns the cached stats, loading them on a miss
func (s *CachedProjectStore) CompanyStats(ctx context.Context) ([]project.CompanyStat, error) {
	ctx, span := telemetry.StartSpan(ctx, "cache.company_stats", "cache.key", CompanyStatsKey)
	defer span.End()

	raw, ok, err := s.store.Get(ctx, CompanyStatsKey)
	if err != nil {
		s.logger.Warn("Company stats cache read failed", zap.Error(err))
	}
	if ok {
		var stats []project.CompanyStat
		if err := json.Unmarshal(raw, &stats); err == nil {
			telemetry.SetAttributes(span, "cache.hit", true)
			return stats, nil
		}
		s.logger.Warn("Discarding unreadable company stats cache entry")
	}
	telemetry.SetAttributes(span, "cache.hit", false)

	stats, err := s.next.CompanyStats(ctx)
	if err != nil {
		return nil, err
	}
	if raw, err := json.Marshal(stats); err == nil {
		if err := s.store.Set(ctx, CompanyStatsKey, raw, s.ttl); err != nil {
			s.logger.Warn("Company stats cache write failed", zap.Error(err))
		}
	}
	return stats, nil
}

// CompanyExists is not cached
func (s *CachedProjectStore) CompanyExists(ctx context.Context, id uuid.UUID) (bool, error) {
	return s.next.CompanyExists(ctx, id)
}

// Archive archives the project and invalidates the cached stats
func (s *CachedProjectStore) Archive(ctx context.Context, id uint64) (*project.Project, error) {
	p, err := s.next.Archive(ctx, id)
	if err != nil {
		return nil, err
	}
	s.Invalidate(ctx)
	return p, nil
}

// Invalidate drops the cached stats
func (s *CachedProjectStore) Invalidate(ctx context.Context) {
	if err := s.store.Delete(ctx, CompanyStatsKey); err != nil {
		s.logger.Warn("Company stats cache invalidation failed", zap.Error(err))
	}
}

var _ ProjectStore = (*CachedProjectStore)(nil)
