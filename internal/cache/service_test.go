package cache

import (
	"context"
	"testing"
	"time"

	"go.uber.org/zap/zaptest"
)

func newTestService(t *testing.T) *Service {
	t.Helper()
	store := NewMemoryStore(time.Minute)
	svc := NewService(store, zaptest.NewLogger(t))
	if err := svc.Connect(context.Background()); err != nil {
		t.Fatalf("Connect failed: %v", err)
	}
	t.Cleanup(func() { svc.Disconnect(context.Background()) })
	return svc
}

func TestServiceConversationRoundTrip(t *testing.T) {
	svc := newTestService(t)
	ctx := context.Background()

	history := []map[string]string{
		{"role": "user", "content": "hi"},
		{"role": "assistant", "content": "hello"},
	}
	if !svc.CacheConversationHistory(ctx, "user-1", "conv-1", history, 0) {
		t.Fatalf("CacheConversationHistory failed")
	}

	var got []map[string]string
	if !svc.GetConversationHistory(ctx, "user-1", "conv-1", &got) {
		t.Fatalf("expected conversation hit")
	}
	if len(got) != 2 || got[1]["content"] != "hello" {
		t.Fatalf("unexpected history: %+v", got)
	}

	// Scoped per user: another user must not see it.
	if svc.GetConversationHistory(ctx, "user-2", "conv-1", &got) {
		t.Fatalf("conversation leaked across users")
	}
}

func TestServiceChatFuzzyMatch(t *testing.T) {
	svc := newTestService(t)
	ctx := context.Background()

	svc.CacheChatResponse(ctx, "user-1", "conv-1", "What are the best skills for my resume?", "use action verbs", 0)

	// Identical message: exact tier.
	var got string
	matchType, hit := svc.GetChatResponse(ctx, "user-1", "conv-1", "What are the best skills for my resume?", &got)
	if !hit || matchType != VariantExact {
		t.Fatalf("expected exact hit, got (%q, %v)", matchType, hit)
	}
	if got != "use action verbs" {
		t.Fatalf("unexpected cached response %q", got)
	}

	// Reordered phrasing: normalized tier.
	matchType, hit = svc.GetChatResponse(ctx, "user-1", "conv-1", "best skills for my resume, what are they?", &got)
	if !hit {
		t.Fatalf("expected fuzzy hit")
	}
	if matchType == VariantExact {
		t.Fatalf("reordered phrasing cannot match the exact tier")
	}

	// Unrelated message: miss.
	if _, hit := svc.GetChatResponse(ctx, "user-1", "conv-1", "write me a cover letter", &got); hit {
		t.Fatalf("unrelated message produced a hit")
	}
}

func TestServiceEnhancedDocument(t *testing.T) {
	svc := newTestService(t)
	ctx := context.Background()

	hash, err := HashDocument(map[string]any{"title": "Engineer"})
	if err != nil {
		t.Fatalf("HashDocument failed: %v", err)
	}

	if !svc.CacheEnhancedDocument(ctx, hash, map[string]string{"title": "Senior Engineer"}, 0) {
		t.Fatalf("CacheEnhancedDocument failed")
	}

	var got map[string]string
	if !svc.GetEnhancedDocument(ctx, hash, &got) {
		t.Fatalf("expected enhanced-document hit")
	}
	if got["title"] != "Senior Engineer" {
		t.Fatalf("unexpected cached document: %+v", got)
	}
}

func TestServiceApplyPlan(t *testing.T) {
	svc := newTestService(t)
	ctx := context.Background()

	// Seed a stale list entry for the owner.
	svc.CacheEntity(ctx, UserResumesKey("user-1"), []string{"stale"}, 0)

	plan := Plan{}
	plan.Write(ResumeKey("r-1"), map[string]string{"title": "Engineer"}, 0)
	plan.Clear(UserResumesKey("user-1").String())
	svc.Apply(ctx, plan)

	var doc map[string]string
	if !svc.GetEntity(ctx, ResumeKey("r-1"), &doc) {
		t.Fatalf("expected write-through entry")
	}
	var list []string
	if svc.GetEntity(ctx, UserResumesKey("user-1"), &list) {
		t.Fatalf("stale list entry survived Apply")
	}
}

func TestServiceDegradedMode(t *testing.T) {
	store := NewMemoryStore(time.Minute)
	svc := NewService(store, zaptest.NewLogger(t))
	// Never connected: every read is a miss, every write a no-op.
	ctx := context.Background()

	if svc.CacheConversationHistory(ctx, "u", "c", "v", 0) {
		t.Fatalf("write should no-op while degraded")
	}
	var got string
	if svc.GetConversationHistory(ctx, "u", "c", &got) {
		t.Fatalf("read should miss while degraded")
	}
	svc.CacheChatResponse(ctx, "u", "c", "hello there friend", "v", 0)
	if _, hit := svc.GetChatResponse(ctx, "u", "c", "hello there friend", &got); hit {
		t.Fatalf("chat read should miss while degraded")
	}
	if svc.Stats(ctx) != nil {
		t.Fatalf("stats should be nil while degraded")
	}
}
