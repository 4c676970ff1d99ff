package cache

import (
	"context"
	"encoding/json"
	"fmt"
	"path"
	"sync"
	"sync/atomic"
	"time"
)

type memoryEntry struct {
	value     []byte
	expiresAt time.Time
}

// MemoryStore is an in-process Store for development and tests. It mirrors
// the Redis adapter's semantics: JSON values, per-key TTL, glob-style
// pattern deletion and the connected/disconnected no-op contract.
type MemoryStore struct {
	mu              sync.RWMutex
	items           map[string]memoryEntry
	connected       atomic.Bool
	stopCleanup     chan struct{}
	cleanupOnce     sync.Once
	cleanupInterval time.Duration
}

//create new in-memory store
//if the interval is not positive a default of 5 mins is used

func NewMemoryStore(cleanupInterval time.Duration) *MemoryStore {
	if cleanupInterval <= 0 {
		cleanupInterval = 5 * time.Minute
	}

	s := &MemoryStore{
		items:           make(map[string]memoryEntry),
		stopCleanup:     make(chan struct{}),
		cleanupInterval: cleanupInterval,
	}

	//background cleanup routine
	go s.cleanupExpired()

	return s
}

func (s *MemoryStore) Connect(_ context.Context) error {
	s.connected.Store(true)
	return nil
}

func (s *MemoryStore) Disconnect(_ context.Context) error {
	s.connected.Store(false)
	s.cleanupOnce.Do(func() {
		close(s.stopCleanup)
	})
	return nil
}

func (s *MemoryStore) Connected() bool { return s.connected.Load() }

func (s *MemoryStore) Set(_ context.Context, key Key, value any, ttl time.Duration) bool {
	if !s.Connected() || ttl <= 0 {
		return false
	}

	raw, err := json.Marshal(value)
	if err != nil {
		return false
	}

	s.mu.Lock()
	s.items[key.String()] = memoryEntry{
		value:     raw,
		expiresAt: time.Now().Add(ttl),
	}
	s.mu.Unlock()

	return true
}

func (s *MemoryStore) Get(_ context.Context, key Key, dest any) bool {
	if !s.Connected() {
		return false
	}

	s.mu.RLock()
	entry, ok := s.items[key.String()]
	s.mu.RUnlock()

	if !ok {
		return false
	}

	now := time.Now()
	if now.After(entry.expiresAt) {
		s.mu.Lock()
		if e, exists := s.items[key.String()]; exists && now.After(e.expiresAt) {
			delete(s.items, key.String())
		}
		s.mu.Unlock()
		return false
	}

	return json.Unmarshal(entry.value, dest) == nil
}

func (s *MemoryStore) DeleteByPattern(_ context.Context, pattern string) bool {
	if !s.Connected() {
		return false
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	for k := range s.items {
		if matched, err := path.Match(pattern, k); err == nil && matched {
			delete(s.items, k)
		}
	}
	return true
}

func (s *MemoryStore) FlushAll(_ context.Context) bool {
	if !s.Connected() {
		return false
	}

	s.mu.Lock()
	s.items = make(map[string]memoryEntry)
	s.mu.Unlock()
	return true
}

func (s *MemoryStore) Stats(_ context.Context) *Stats {
	if !s.Connected() {
		return nil
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	var bytes int
	for _, e := range s.items {
		bytes += len(e.value)
	}
	return &Stats{
		MemoryInfo: fmt.Sprintf("used_memory:%d", bytes),
		KeyCount:   int64(len(s.items)),
	}
}

// cleanupExpired runs periodically to remove expired entries.
func (s *MemoryStore) cleanupExpired() {
	ticker := time.NewTicker(s.cleanupInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			now := time.Now()
			s.mu.Lock()
			for k, v := range s.items {
				if now.After(v.expiresAt) {
					delete(s.items, k)
				}
			}
			s.mu.Unlock()
		case <-s.stopCleanup:
			return
		}
	}
}

// Len returns the number of items currently stored.
func (s *MemoryStore) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.items)
}
