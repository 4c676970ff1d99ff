package cache

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"

	"nexcv-backend/internal/metrics"
	"nexcv-backend/pkg/logging"
)

// Default TTLs per key family.
const (
	ConversationTTL = 30 * time.Minute
	EnhanceTTL      = 2 * time.Hour
	ChatTTL         = 30 * time.Minute
	EntityTTL       = 10 * time.Minute
)

// Service is the semantic cache layer: the single place where namespacing,
// key derivation and invalidation policy live. It is read-through only in
// the weak sense — on a miss the caller invokes its own producer and writes
// back explicitly, so the cache never decides whether a producer result is
// worth caching (an LLM fallback string, for example, is not).
//
// Concurrent misses for the same key are an accepted race: both requests
// compute the producer result and both write it, and the store's
// last-write-wins semantics pick the survivor. Producer results for the same
// key are expected to be equivalent, so no single-flight or distributed lock
// is used.
type Service struct {
	store  Store
	logger *zap.Logger
}

// NewService wraps a Store. The Service is a long-lived component: construct
// it once at startup, Connect once, Disconnect once at shutdown, and inject
// it into every consumer.
func NewService(store Store, logger *zap.Logger) *Service {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Service{
		store:  store,
		logger: logger.Named("cache"),
	}
}

func (s *Service) Connect(ctx context.Context) error    { return s.store.Connect(ctx) }
func (s *Service) Disconnect(ctx context.Context) error { return s.store.Disconnect(ctx) }
func (s *Service) Connected() bool                      { return s.store.Connected() }

// GetConversationHistory loads a user's cached conversation into dest.
func (s *Service) GetConversationHistory(ctx context.Context, userID, conversationID string, dest any) bool {
	return s.store.Get(ctx, ConversationKey(userID, conversationID), dest)
}

// CacheConversationHistory writes a conversation back with the given TTL
// (ConversationTTL when ttl <= 0).
func (s *Service) CacheConversationHistory(ctx context.Context, userID, conversationID string, history any, ttl time.Duration) bool {
	if ttl <= 0 {
		ttl = ConversationTTL
	}
	return s.store.Set(ctx, ConversationKey(userID, conversationID), history, ttl)
}

// GetEnhancedDocument loads the enhanced result cached under the content
// hash of its input document.
func (s *Service) GetEnhancedDocument(ctx context.Context, docHash string, dest any) bool {
	return s.store.Get(ctx, EnhanceKey(docHash), dest)
}

// CacheEnhancedDocument stores an enhanced result under its input hash.
func (s *Service) CacheEnhancedDocument(ctx context.Context, docHash string, value any, ttl time.Duration) bool {
	if ttl <= 0 {
		ttl = EnhanceTTL
	}
	return s.store.Set(ctx, EnhanceKey(docHash), value, ttl)
}

// GetChatResponse probes the chat namespace with every hash variant of the
// incoming message, most specific first: exact, then normalized, then
// keywords. Exact match is the most reliable; normalized catches paraphrases
// with the same content words; keywords is the loosest fallback. Probing in
// decreasing specificity minimizes false-positive reuse. Returns which
// variant matched.
func (s *Service) GetChatResponse(ctx context.Context, userID, conversationID, message string, dest any) (VariantType, bool) {
	for _, v := range Variants(userID, conversationID, message) {
		if s.store.Get(ctx, ChatKey(v.Hash), dest) {
			metrics.ChatCacheHitsTotal.WithLabelValues(string(v.Type)).Inc()
			return v.Type, true
		}
	}
	return "", false
}

// CacheChatResponse writes a fresh chat response under every hash variant
// at once, so a later query matching at any specificity tier benefits. The
// variant writes fan out concurrently and are joined before returning; a
// failed variant write does not roll back the others.
func (s *Service) CacheChatResponse(ctx context.Context, userID, conversationID, message string, response any, ttl time.Duration) {
	if ttl <= 0 {
		ttl = ChatTTL
	}

	variants := Variants(userID, conversationID, message)

	var wg sync.WaitGroup
	for _, v := range variants {
		wg.Add(1)
		go func(v Variant) {
			defer wg.Done()
			if !s.store.Set(ctx, ChatKey(v.Hash), response, ttl) {
				s.logger.Debug("chat variant write skipped",
					zap.String("variant", string(v.Type)),
				)
			}
		}(v)
	}
	wg.Wait()
}

// GetEntity loads a generic entity (resume by id, list by owner, public
// slug) cached under a caller-constructed key.
func (s *Service) GetEntity(ctx context.Context, key Key, dest any) bool {
	return s.store.Get(ctx, key, dest)
}

// CacheEntity stores a generic entity under a caller-constructed key.
func (s *Service) CacheEntity(ctx context.Context, key Key, value any, ttl time.Duration) bool {
	if ttl <= 0 {
		ttl = EntityTTL
	}
	return s.store.Set(ctx, key, value, ttl)
}

// InvalidatePattern clears every key matching a glob-style pattern.
func (s *Service) InvalidatePattern(ctx context.Context, pattern string) bool {
	return s.store.DeleteByPattern(ctx, pattern)
}

// FlushAll clears the whole cache database.
func (s *Service) FlushAll(ctx context.Context) bool {
	return s.store.FlushAll(ctx)
}

// Stats returns backing-store usage, or nil when the store is unavailable.
func (s *Service) Stats(ctx context.Context) *Stats {
	return s.store.Stats(ctx)
}

// PlanWrite is one fresh value to write through as part of a mutation.
type PlanWrite struct {
	Key   Key
	Value any
	TTL   time.Duration
}

// Plan is the cache side of one backing-store mutation: fresh values to
// write through and key patterns to clear. Mutation paths build a Plan and
// hand it to Apply, keeping invalidation policy in one place instead of
// scattered across consumers.
type Plan struct {
	Writes []PlanWrite
	Clears []string
}

// Write appends a write-through entry. A TTL <= 0 means EntityTTL.
func (p *Plan) Write(key Key, value any, ttl time.Duration) *Plan {
	p.Writes = append(p.Writes, PlanWrite{Key: key, Value: value, TTL: ttl})
	return p
}

// Clear appends a pattern to invalidate.
func (p *Plan) Clear(pattern string) *Plan {
	p.Clears = append(p.Clears, pattern)
	return p
}

// Apply executes a plan synchronously, immediately after the backing-store
// write it belongs to. Failures are soft: the mutation has already
// committed, so a failed write or clear is logged and bounded by the key's
// own TTL, never reported to the caller.
func (s *Service) Apply(ctx context.Context, plan Plan) {
	for _, w := range plan.Writes {
		ttl := w.TTL
		if ttl <= 0 {
			ttl = EntityTTL
		}
		if !s.store.Set(ctx, w.Key, w.Value, ttl) {
			logging.L(ctx).Warn("cache write-through failed",
				zap.String("key", w.Key.String()),
			)
		}
	}
	for _, pattern := range plan.Clears {
		if !s.store.DeleteByPattern(ctx, pattern) {
			logging.L(ctx).Warn("cache invalidation failed",
				zap.String("pattern", pattern),
			)
		}
	}
}
