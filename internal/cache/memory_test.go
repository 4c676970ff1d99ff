package cache

import (
	"context"
	"testing"
	"time"
)

func TestMemoryStoreTTL(t *testing.T) {
	s := NewMemoryStore(10 * time.Millisecond)
	ctx := context.Background()

	if err := s.Connect(ctx); err != nil {
		t.Fatalf("Connect failed: %v", err)
	}
	t.Cleanup(func() { s.Disconnect(ctx) })

	key := Key("test:key")
	if !s.Set(ctx, key, "hello", 20*time.Millisecond) {
		t.Fatalf("Set failed")
	}

	var got string
	if !s.Get(ctx, key, &got) {
		t.Fatalf("expected hit immediately after Set")
	}
	if got != "hello" {
		t.Fatalf("expected 'hello', got %q", got)
	}

	// Wait for TTL to expire
	time.Sleep(30 * time.Millisecond)

	if s.Get(ctx, key, &got) {
		t.Fatalf("expected miss after TTL expiry")
	}
}

func TestMemoryStoreDisconnectedNoOps(t *testing.T) {
	s := NewMemoryStore(time.Minute)
	ctx := context.Background()

	// Never connected: every operation degrades to a no-op.
	if s.Set(ctx, "k", "v", time.Minute) {
		t.Fatalf("Set should fail while disconnected")
	}
	var got string
	if s.Get(ctx, "k", &got) {
		t.Fatalf("Get should miss while disconnected")
	}
	if s.DeleteByPattern(ctx, "*") {
		t.Fatalf("DeleteByPattern should fail while disconnected")
	}
	if s.FlushAll(ctx) {
		t.Fatalf("FlushAll should fail while disconnected")
	}
	if s.Stats(ctx) != nil {
		t.Fatalf("Stats should be nil while disconnected")
	}
}

func TestMemoryStoreDeleteByPattern(t *testing.T) {
	s := NewMemoryStore(time.Minute)
	ctx := context.Background()
	s.Connect(ctx)
	t.Cleanup(func() { s.Disconnect(ctx) })

	s.Set(ctx, "conv:user-1:a", 1, time.Minute)
	s.Set(ctx, "conv:user-1:b", 2, time.Minute)
	s.Set(ctx, "conv:user-2:a", 3, time.Minute)
	s.Set(ctx, "resume:42", 4, time.Minute)

	if !s.DeleteByPattern(ctx, "conv:user-1:*") {
		t.Fatalf("DeleteByPattern failed")
	}

	var n int
	if s.Get(ctx, "conv:user-1:a", &n) || s.Get(ctx, "conv:user-1:b", &n) {
		t.Fatalf("matched keys survived deletion")
	}
	if !s.Get(ctx, "conv:user-2:a", &n) {
		t.Fatalf("unmatched conversation key was deleted")
	}
	if !s.Get(ctx, "resume:42", &n) {
		t.Fatalf("unmatched resume key was deleted")
	}
}

func TestMemoryStoreFlushAllAndStats(t *testing.T) {
	s := NewMemoryStore(time.Minute)
	ctx := context.Background()
	s.Connect(ctx)
	t.Cleanup(func() { s.Disconnect(ctx) })

	s.Set(ctx, "a", "x", time.Minute)
	s.Set(ctx, "b", "y", time.Minute)

	stats := s.Stats(ctx)
	if stats == nil || stats.KeyCount != 2 {
		t.Fatalf("unexpected stats: %+v", stats)
	}

	if !s.FlushAll(ctx) {
		t.Fatalf("FlushAll failed")
	}
	if s.Len() != 0 {
		t.Fatalf("expected empty store after flush, have %d items", s.Len())
	}
}
