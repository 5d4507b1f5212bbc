// Affinity - Campus Friend Recommendation Engine
// Copyright 2026 Campusgraph Labs
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/campusgraph/affinity

package cache

import (
	"bytes"
	"context"
	"testing"
	"time"
)

// fakeClock is a controllable time source for expiry tests.
type fakeClock struct {
	t time.Time
}

func (c *fakeClock) now() time.Time          { return c.t }
func (c *fakeClock) advance(d time.Duration) { c.t = c.t.Add(d) }

func newTestMemory() (*Memory, *fakeClock) {
	clock := &fakeClock{t: time.Date(2026, 3, 15, 12, 0, 0, 0, time.UTC)}
	// Janitor disabled; tests drive expiry through the clock.
	return NewMemory(0, WithClock(clock.now)), clock
}

func TestMemoryRoundTrip(t *testing.T) {
	ctx := context.Background()
	m, _ := newTestMemory()

	payload := []byte(`{"user":"u1"}`)
	if err := m.Set(ctx, "affinity:recommendations:u1:abc", payload, 1800*time.Second, Metadata{OwnerID: "u1"}); err != nil {
		t.Fatalf("Set() error = %v", err)
	}

	entry, ok, err := m.Get(ctx, "affinity:recommendations:u1:abc")
	if err != nil || !ok {
		t.Fatalf("Get() = (%v, %v), want hit", ok, err)
	}
	if !bytes.Equal(entry.Payload, payload) {
		t.Errorf("payload = %s, want byte-identical %s", entry.Payload, payload)
	}
	if entry.Metadata.PayloadSize != len(payload) {
		t.Errorf("PayloadSize = %d, want %d", entry.Metadata.PayloadSize, len(payload))
	}
}

func TestMemoryLazyExpiry(t *testing.T) {
	ctx := context.Background()
	m, clock := newTestMemory()

	if err := m.Set(ctx, "k", []byte("v"), 1800*time.Second, Metadata{}); err != nil {
		t.Fatal(err)
	}

	// Just inside the window: hit.
	clock.advance(1799 * time.Second)
	if _, ok, _ := m.Get(ctx, "k"); !ok {
		t.Fatal("entry expired early")
	}

	// Past the window: miss, and the entry is removed.
	clock.advance(2 * time.Second)
	if _, ok, _ := m.Get(ctx, "k"); ok {
		t.Fatal("expired entry returned as hit")
	}
	if exists, _ := m.Exists(ctx, "k"); exists {
		t.Error("expired entry still exists after read")
	}

	stats := m.Stats()
	if stats.Evictions == 0 {
		t.Error("expiry did not count as eviction")
	}
}

func TestMemoryAccessBookkeepingKeepsWindow(t *testing.T) {
	ctx := context.Background()
	m, clock := newTestMemory()

	if err := m.Set(ctx, "k", []byte("v"), 100*time.Second, Metadata{}); err != nil {
		t.Fatal(err)
	}

	// Reads bump access count but must not slide the expiry window.
	clock.advance(60 * time.Second)
	entry, ok, _ := m.Get(ctx, "k")
	if !ok {
		t.Fatal("expected hit")
	}
	if entry.AccessCount != 1 {
		t.Errorf("AccessCount = %d, want 1", entry.AccessCount)
	}

	clock.advance(60 * time.Second) // 120s since Set: past original window
	if _, ok, _ := m.Get(ctx, "k"); ok {
		t.Error("read hit extended the expiry window")
	}
}

func TestMemoryAccessCountAccumulates(t *testing.T) {
	ctx := context.Background()
	m, _ := newTestMemory()

	_ = m.Set(ctx, "k", []byte("v"), time.Hour, Metadata{})
	for i := 0; i < 3; i++ {
		if _, ok, _ := m.Get(ctx, "k"); !ok {
			t.Fatal("expected hit")
		}
	}

	entry, _, _ := m.Get(ctx, "k")
	if entry.AccessCount != 4 {
		t.Errorf("AccessCount = %d, want 4", entry.AccessCount)
	}
}

func TestMemoryMGetMSet(t *testing.T) {
	ctx := context.Background()
	m, clock := newTestMemory()

	items := []Item{
		{Key: "a", Payload: []byte("1"), TTL: time.Hour},
		{Key: "b", Payload: []byte("2"), TTL: time.Second},
		{Key: "c", Payload: []byte("3"), TTL: time.Hour},
	}
	if err := m.MSet(ctx, items); err != nil {
		t.Fatalf("MSet() error = %v", err)
	}

	clock.advance(2 * time.Second) // expires "b" only

	got, err := m.MGet(ctx, []string{"a", "b", "c", "missing"})
	if err != nil {
		t.Fatalf("MGet() error = %v", err)
	}
	if len(got) != 2 {
		t.Fatalf("MGet() returned %d entries, want 2", len(got))
	}
	if _, ok := got["b"]; ok {
		t.Error("expired key returned by MGet")
	}
	if string(got["a"].Payload) != "1" || string(got["c"].Payload) != "3" {
		t.Error("MGet payloads corrupted")
	}
}

func TestMemoryInvalidatePattern(t *testing.T) {
	ctx := context.Background()
	m, _ := newTestMemory()

	keys := []string{
		Key(DomainRecommendations, "u1", "h1"),
		Key(DomainRecommendations, "u1", "h2"),
		Key(DomainRecommendations, "u2", "h1"),
		Key(DomainUserProfile, "u1"),
	}
	for _, k := range keys {
		_ = m.Set(ctx, k, []byte("x"), time.Hour, Metadata{})
	}

	removed, err := m.InvalidatePattern(ctx, "affinity:recommendations:u1:*")
	if err != nil {
		t.Fatalf("InvalidatePattern() error = %v", err)
	}
	if removed != 2 {
		t.Errorf("removed = %d, want 2", removed)
	}

	if ok, _ := m.Exists(ctx, Key(DomainRecommendations, "u2", "h1")); !ok {
		t.Error("unrelated key removed by pattern")
	}
	if ok, _ := m.Exists(ctx, Key(DomainUserProfile, "u1")); !ok {
		t.Error("other-domain key removed by pattern")
	}
}

func TestMemoryInvalidateUser(t *testing.T) {
	ctx := context.Background()
	m, _ := newTestMemory()

	_ = m.Set(ctx, Key(DomainRecommendations, "u1", "h1"), []byte("x"), time.Hour, Metadata{})
	_ = m.Set(ctx, Key(DomainUserProfile, "u1"), []byte("x"), time.Hour, Metadata{})
	_ = m.Set(ctx, Key(DomainMutualConnections, "u1", "u2"), []byte("x"), time.Hour, Metadata{})
	_ = m.Set(ctx, Key(DomainEmbeddings, "u1"), []byte("x"), time.Hour, Metadata{})
	_ = m.Set(ctx, Key(DomainUniversity, "mit"), []byte("x"), time.Hour, Metadata{})
	_ = m.Set(ctx, Key(DomainRecommendations, "u3", "h9"), []byte("x"), time.Hour, Metadata{})

	removed, err := m.InvalidateUser(ctx, "u1")
	if err != nil {
		t.Fatalf("InvalidateUser() error = %v", err)
	}
	if removed != 4 {
		t.Errorf("removed = %d, want 4", removed)
	}

	// University data is shared, never user-scoped.
	if ok, _ := m.Exists(ctx, Key(DomainUniversity, "mit")); !ok {
		t.Error("university key removed by user invalidation")
	}
	// The mutual-connections key names u1 as a participant, so it goes too.
	if ok, _ := m.Exists(ctx, Key(DomainMutualConnections, "u1", "u2")); ok {
		t.Error("mutual key for u1 survived user invalidation")
	}
	if ok, _ := m.Exists(ctx, Key(DomainRecommendations, "u3", "h9")); !ok {
		t.Error("other user's key removed")
	}
}

func TestMemoryWarmup(t *testing.T) {
	ctx := context.Background()
	m, _ := newTestMemory()

	loader := func(context.Context) ([]Item, error) {
		return []Item{
			{Key: "warm1", Payload: []byte("a"), TTL: time.Hour},
			{Key: "warm2", Payload: []byte("b"), TTL: time.Hour},
		}, nil
	}
	if err := m.Warmup(ctx, loader); err != nil {
		t.Fatalf("Warmup() error = %v", err)
	}

	if ok, _ := m.Exists(ctx, "warm1"); !ok {
		t.Error("warmup entry missing")
	}
}

func TestMemoryStats(t *testing.T) {
	ctx := context.Background()
	m, _ := newTestMemory()

	_ = m.Set(ctx, "k", []byte("v"), time.Hour, Metadata{})
	_, _, _ = m.Get(ctx, "k")       // hit
	_, _, _ = m.Get(ctx, "missing") // miss

	stats := m.Stats()
	if stats.Hits != 1 || stats.Misses != 1 {
		t.Errorf("stats = %+v, want 1 hit / 1 miss", stats)
	}
	if stats.Keys != 1 {
		t.Errorf("Keys = %d, want 1", stats.Keys)
	}
	if got := stats.HitRate(); got != 50 {
		t.Errorf("HitRate() = %f, want 50", got)
	}
}

func TestHitRateNoReads(t *testing.T) {
	if got := (Stats{}).HitRate(); got != 0 {
		t.Errorf("HitRate() on empty stats = %f, want 0", got)
	}
}
