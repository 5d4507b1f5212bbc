// Affinity - Campus Friend Recommendation Engine
// Copyright 2026 Campusgraph Labs
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/campusgraph/affinity

package cache

import (
	"context"
	"sync"
	"time"

	"github.com/bmatcuk/doublestar/v4"

	"github.com/campusgraph/affinity/internal/metrics"
)

const memoryTier = "memory"

// Memory is a thread-safe in-memory TTL cache.
//
// Expired entries are removed lazily on read and by a periodic janitor
// sweep. The janitor only reclaims memory; correctness never depends on
// it because every read checks expiry itself.
type Memory struct {
	mu      sync.RWMutex
	entries map[string]*Entry

	statsMu sync.Mutex
	stats   Stats

	now  func() time.Time
	stop chan struct{}
	once sync.Once
}

// MemoryOption configures a Memory cache.
type MemoryOption func(*Memory)

// WithClock replaces the cache's time source. Used by tests to simulate
// elapsed time without sleeping.
func WithClock(now func() time.Time) MemoryOption {
	return func(m *Memory) {
		m.now = now
	}
}

// NewMemory creates a memory-tier cache. janitorInterval <= 0 disables the
// background sweep.
func NewMemory(janitorInterval time.Duration, opts ...MemoryOption) *Memory {
	m := &Memory{
		entries: make(map[string]*Entry),
		now:     time.Now,
		stop:    make(chan struct{}),
	}
	for _, opt := range opts {
		opt(m)
	}

	if janitorInterval > 0 {
		go m.janitor(janitorInterval)
	}

	return m
}

// Get retrieves an entry, expiring it lazily and recording access
// bookkeeping on a hit. The rewrite keeps the original StoredAt so the
// expiry window does not slide.
func (m *Memory) Get(_ context.Context, key string) (*Entry, bool, error) {
	now := m.now()

	m.mu.Lock()
	entry, ok := m.entries[key]
	if !ok {
		m.mu.Unlock()
		m.recordMiss()
		return nil, false, nil
	}

	if entry.Expired(now) {
		delete(m.entries, key)
		m.mu.Unlock()
		m.recordMiss()
		m.recordEviction()
		return nil, false, nil
	}

	entry.touch(now)
	snapshot := *entry
	m.mu.Unlock()

	m.recordHit(entry.Metadata.Domain)
	return &snapshot, true, nil
}

// Set stores a payload with the given TTL.
func (m *Memory) Set(_ context.Context, key string, payload []byte, ttl time.Duration, meta Metadata) error {
	entry := newEntry(payload, ttl, meta, m.now())

	m.mu.Lock()
	m.entries[key] = entry
	keys := int64(len(m.entries))
	m.mu.Unlock()

	m.setKeys(keys)
	return nil
}

// Delete removes a key.
func (m *Memory) Delete(_ context.Context, key string) error {
	m.mu.Lock()
	_, existed := m.entries[key]
	delete(m.entries, key)
	keys := int64(len(m.entries))
	m.mu.Unlock()

	m.setKeys(keys)
	if existed {
		m.recordEviction()
	}
	return nil
}

// Exists reports whether a live entry is present. It does not count as a
// read for statistics and does not touch access bookkeeping.
func (m *Memory) Exists(_ context.Context, key string) (bool, error) {
	now := m.now()

	m.mu.RLock()
	entry, ok := m.entries[key]
	m.mu.RUnlock()

	return ok && !entry.Expired(now), nil
}

// MGet retrieves multiple keys. Absent and expired keys are omitted from
// the result; each present key counts as a hit.
func (m *Memory) MGet(ctx context.Context, keys []string) (map[string]*Entry, error) {
	result := make(map[string]*Entry, len(keys))
	for _, key := range keys {
		if entry, ok, _ := m.Get(ctx, key); ok {
			result[key] = entry
		}
	}
	return result, nil
}

// MSet stores multiple items.
func (m *Memory) MSet(ctx context.Context, items []Item) error {
	for _, item := range items {
		if err := m.Set(ctx, item.Key, item.Payload, item.TTL, item.Metadata); err != nil {
			return err
		}
	}
	return nil
}

// InvalidatePattern deletes all keys matching a doublestar glob.
func (m *Memory) InvalidatePattern(_ context.Context, pattern string) (int, error) {
	m.mu.Lock()
	removed := 0
	for key := range m.entries {
		if ok, err := doublestar.Match(pattern, key); err != nil {
			m.mu.Unlock()
			return removed, err
		} else if ok {
			delete(m.entries, key)
			removed++
		}
	}
	keys := int64(len(m.entries))
	m.mu.Unlock()

	m.setKeys(keys)
	m.recordEvictions(removed)
	return removed, nil
}

// InvalidateUser deletes every user-scoped entry for the given user.
func (m *Memory) InvalidateUser(_ context.Context, userID string) (int, error) {
	m.mu.Lock()
	removed := 0
	for key := range m.entries {
		for _, domain := range userScopedDomains {
			if keyInDomain(key, domain) && keyScopedToUser(key, userID) {
				delete(m.entries, key)
				removed++
				break
			}
		}
	}
	keys := int64(len(m.entries))
	m.mu.Unlock()

	m.setKeys(keys)
	m.recordEvictions(removed)
	return removed, nil
}

// Warmup preloads entries produced by the loader.
func (m *Memory) Warmup(ctx context.Context, loader WarmupLoader) error {
	items, err := loader(ctx)
	if err != nil {
		return err
	}
	return m.MSet(ctx, items)
}

// Stats returns a snapshot of performance counters.
func (m *Memory) Stats() Stats {
	m.mu.RLock()
	keys := int64(len(m.entries))
	m.mu.RUnlock()

	m.statsMu.Lock()
	s := m.stats
	m.statsMu.Unlock()

	s.Keys = keys
	return s
}

// Close stops the janitor. The cache remains usable after Close; only the
// background sweep ends.
func (m *Memory) Close() error {
	m.once.Do(func() { close(m.stop) })
	return nil
}

// janitor periodically removes expired entries.
func (m *Memory) janitor(interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			m.sweep()
		case <-m.stop:
			return
		}
	}
}

// sweep removes all expired entries in one pass.
func (m *Memory) sweep() {
	now := m.now()

	m.mu.Lock()
	removed := 0
	for key, entry := range m.entries {
		if entry.Expired(now) {
			delete(m.entries, key)
			removed++
		}
	}
	keys := int64(len(m.entries))
	m.mu.Unlock()

	m.setKeys(keys)
	m.recordEvictions(removed)
}

func (m *Memory) recordHit(domain Domain) {
	m.statsMu.Lock()
	m.stats.Hits++
	m.statsMu.Unlock()
	metrics.CacheHits.WithLabelValues(memoryTier, string(domain)).Inc()
}

func (m *Memory) recordMiss() {
	m.statsMu.Lock()
	m.stats.Misses++
	m.statsMu.Unlock()
	metrics.CacheMisses.WithLabelValues(memoryTier, "").Inc()
}

func (m *Memory) recordEviction() {
	m.recordEvictions(1)
}

func (m *Memory) recordEvictions(n int) {
	if n == 0 {
		return
	}
	m.statsMu.Lock()
	m.stats.Evictions += int64(n)
	m.statsMu.Unlock()
	metrics.CacheEvictions.WithLabelValues(memoryTier).Add(float64(n))
}

func (m *Memory) setKeys(n int64) {
	metrics.CacheKeys.WithLabelValues(memoryTier).Set(float64(n))
}
