package cache

import (
	"context"
	"time"

	"go.uber.org/zap"

	"nexcv-backend/internal/metrics"
	"nexcv-backend/pkg/logging"
)

// LoggingStore wraps a Store with request-scoped logging and Prometheus
// counters. Cache failures are only ever visible here and in metrics; they
// never surface to callers.
type LoggingStore struct {
	inner Store
}

// NewLoggingStore returns a store that logs and records metrics per
// operation.
func NewLoggingStore(inner Store) Store {
	return &LoggingStore{inner: inner}
}

func (s *LoggingStore) Connect(ctx context.Context) error    { return s.inner.Connect(ctx) }
func (s *LoggingStore) Disconnect(ctx context.Context) error { return s.inner.Disconnect(ctx) }
func (s *LoggingStore) Connected() bool                      { return s.inner.Connected() }

func (s *LoggingStore) Get(ctx context.Context, key Key, dest any) bool {
	start := time.Now()
	hit := s.inner.Get(ctx, key, dest)
	latencyMs := float64(time.Since(start).Microseconds()) / 1000.0

	namespace := key.Namespace()
	result := "miss"
	if hit {
		result = "hit"
		metrics.CacheHitsTotal.WithLabelValues(namespace).Inc()
	} else {
		metrics.CacheMissesTotal.WithLabelValues(namespace).Inc()
	}

	logging.L(ctx).Debug("cache_get",
		zap.String("key", key.String()),
		zap.String("namespace", namespace),
		zap.String("cache_result", result),
		zap.Float64("latency_ms", latencyMs),
	)

	return hit
}

func (s *LoggingStore) Set(ctx context.Context, key Key, value any, ttl time.Duration) bool {
	start := time.Now()
	ok := s.inner.Set(ctx, key, value, ttl)
	latencyMs := float64(time.Since(start).Microseconds()) / 1000.0

	logging.L(ctx).Debug("cache_set",
		zap.String("key", key.String()),
		zap.String("namespace", key.Namespace()),
		zap.Bool("stored", ok),
		zap.Duration("ttl", ttl),
		zap.Float64("latency_ms", latencyMs),
	)

	return ok
}

func (s *LoggingStore) DeleteByPattern(ctx context.Context, pattern string) bool {
	ok := s.inner.DeleteByPattern(ctx, pattern)
	if !ok {
		logging.L(ctx).Warn("cache_invalidate_failed", zap.String("pattern", pattern))
	}
	return ok
}

func (s *LoggingStore) FlushAll(ctx context.Context) bool {
	ok := s.inner.FlushAll(ctx)
	logging.L(ctx).Info("cache_flush_all", zap.Bool("flushed", ok))
	return ok
}

func (s *LoggingStore) Stats(ctx context.Context) *Stats {
	return s.inner.Stats(ctx)
}
