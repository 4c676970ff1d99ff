package cache

import (
	"context"
	"encoding/json"
	"sync/atomic"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

// RedisStore implements Store on top of a shared Redis client. The client
// is process-wide: constructed once at startup, connected once, disconnected
// once at shutdown. The connected flag is only read for branching; Redis's
// own per-key atomicity covers concurrent requests.
type RedisStore struct {
	client    *redis.Client
	logger    *zap.Logger
	connected atomic.Bool
}

// NewRedisStore creates a disconnected Redis-backed store. Call Connect
// before use.
func NewRedisStore(client *redis.Client, logger *zap.Logger) *RedisStore {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &RedisStore{
		client: client,
		logger: logger.Named("cachestore"),
	}
}

// Connect pings Redis and marks the store usable. On failure the store
// stays disconnected and the error is returned for the startup path to
// judge; all later cache operations simply no-op.
func (s *RedisStore) Connect(ctx context.Context) error {
	if err := s.client.Ping(ctx).Err(); err != nil {
		s.connected.Store(false)
		s.logger.Warn("redis connect failed, cache disabled", zap.Error(err))
		return err
	}
	s.connected.Store(true)
	s.logger.Info("redis connected")
	return nil
}

// Disconnect gracefully closes the connection. Idempotent.
func (s *RedisStore) Disconnect(ctx context.Context) error {
	if !s.connected.Swap(false) {
		return nil
	}
	if err := s.client.Close(); err != nil {
		s.logger.Warn("redis close failed", zap.Error(err))
		return err
	}
	return nil
}

func (s *RedisStore) Connected() bool { return s.connected.Load() }

func (s *RedisStore) Set(ctx context.Context, key Key, value any, ttl time.Duration) bool {
	if !s.Connected() {
		return false
	}

	raw, err := json.Marshal(value)
	if err != nil {
		s.logger.Warn("cache set: marshal failed",
			zap.String("key", key.String()),
			zap.Error(err),
		)
		return false
	}

	if err := s.client.Set(ctx, key.String(), raw, ttl).Err(); err != nil {
		s.logger.Warn("cache set failed",
			zap.String("key", key.String()),
			zap.Error(err),
		)
		return false
	}
	return true
}

func (s *RedisStore) Get(ctx context.Context, key Key, dest any) bool {
	if !s.Connected() {
		return false
	}

	raw, err := s.client.Get(ctx, key.String()).Bytes()
	if err == redis.Nil {
		return false
	}
	if err != nil {
		s.logger.Warn("cache get failed",
			zap.String("key", key.String()),
			zap.Error(err),
		)
		return false
	}

	if err := json.Unmarshal(raw, dest); err != nil {
		// Corrupted entry: treat as a miss.
		s.logger.Warn("cache get: unmarshal failed",
			zap.String("key", key.String()),
			zap.Error(err),
		)
		return false
	}
	return true
}

func (s *RedisStore) DeleteByPattern(ctx context.Context, pattern string) bool {
	if !s.Connected() {
		return false
	}

	var deleted int64
	iter := s.client.Scan(ctx, 0, pattern, 100).Iterator()
	for iter.Next(ctx) {
		if err := s.client.Del(ctx, iter.Val()).Err(); err != nil {
			s.logger.Warn("cache delete failed",
				zap.String("key", iter.Val()),
				zap.Error(err),
			)
			return false
		}
		deleted++
	}
	if err := iter.Err(); err != nil {
		s.logger.Warn("cache scan failed",
			zap.String("pattern", pattern),
			zap.Error(err),
		)
		return false
	}

	if deleted > 0 {
		s.logger.Debug("cache entries cleared",
			zap.String("pattern", pattern),
			zap.Int64("count", deleted),
		)
	}
	return true
}

func (s *RedisStore) FlushAll(ctx context.Context) bool {
	if !s.Connected() {
		return false
	}
	if err := s.client.FlushDB(ctx).Err(); err != nil {
		s.logger.Warn("cache flush failed", zap.Error(err))
		return false
	}
	return true
}

func (s *RedisStore) Stats(ctx context.Context) *Stats {
	if !s.Connected() {
		return nil
	}

	info, err := s.client.Info(ctx, "memory").Result()
	if err != nil {
		s.logger.Warn("cache stats: info failed", zap.Error(err))
		return nil
	}
	keys, err := s.client.DBSize(ctx).Result()
	if err != nil {
		s.logger.Warn("cache stats: dbsize failed", zap.Error(err))
		return nil
	}

	return &Stats{MemoryInfo: info, KeyCount: keys}
}
