// Affinity - Campus Friend Recommendation Engine
// Copyright 2026 Campusgraph Labs
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/campusgraph/affinity

package cache

import (
	"context"
	"strings"
	"time"
)

// Domain is a logical cache namespace with its own default TTL.
type Domain string

// Cache domains and their default TTLs.
const (
	DomainRecommendations   Domain = "recommendations"
	DomainUserProfile       Domain = "user_profile"
	DomainMutualConnections Domain = "mutual_connections"
	DomainUniversity        Domain = "university"
	DomainEmbeddings        Domain = "embeddings"
	DomainRealtime          Domain = "realtime"
	DomainABTest            Domain = "ab_test"
)

// keyPrefix namespaces all Affinity cache keys within a shared backend.
const keyPrefix = "affinity"

// defaultTTLs holds the built-in per-domain TTLs.
var defaultTTLs = map[Domain]time.Duration{
	DomainRecommendations:   1800 * time.Second,
	DomainUserProfile:       3600 * time.Second,
	DomainMutualConnections: 900 * time.Second,
	DomainUniversity:        86400 * time.Second,
	DomainEmbeddings:        7200 * time.Second,
	DomainRealtime:          60 * time.Second,
	DomainABTest:            604800 * time.Second,
}

// userScopedDomains are the domains cleared by InvalidateUser.
var userScopedDomains = []Domain{
	DomainRecommendations,
	DomainUserProfile,
	DomainMutualConnections,
	DomainEmbeddings,
	DomainRealtime,
}

// TTLTable resolves per-domain TTLs, applying configured overrides on top
// of the built-in defaults.
type TTLTable struct {
	overrides map[Domain]time.Duration
}

// NewTTLTable builds a TTL table. Overrides with zero or negative durations
// are ignored.
func NewTTLTable(overrides map[Domain]time.Duration) *TTLTable {
	filtered := make(map[Domain]time.Duration, len(overrides))
	for d, ttl := range overrides {
		if ttl > 0 {
			filtered[d] = ttl
		}
	}
	return &TTLTable{overrides: filtered}
}

// For returns the TTL for a domain. Unknown domains fall back to the
// recommendations TTL.
func (t *TTLTable) For(d Domain) time.Duration {
	if t != nil {
		if ttl, ok := t.overrides[d]; ok {
			return ttl
		}
	}
	if ttl, ok := defaultTTLs[d]; ok {
		return ttl
	}
	return defaultTTLs[DomainRecommendations]
}

// Key builds a namespaced cache key: affinity:<domain>:<part>:<part>...
func Key(d Domain, parts ...string) string {
	elems := make([]string, 0, len(parts)+2)
	elems = append(elems, keyPrefix, string(d))
	elems = append(elems, parts...)
	return strings.Join(elems, ":")
}

// keyScopedToUser reports whether a key belongs to the given user, i.e.
// any segment after the domain equals the user ID.
func keyScopedToUser(key, userID string) bool {
	segments := strings.Split(key, ":")
	if len(segments) < 3 || segments[0] != keyPrefix {
		return false
	}
	for _, seg := range segments[2:] {
		if seg == userID {
			return true
		}
	}
	return false
}

// keyInDomain reports whether a key belongs to the given domain.
func keyInDomain(key string, d Domain) bool {
	return strings.HasPrefix(key, keyPrefix+":"+string(d)+":")
}

// Item pairs a key with payload and TTL for batch Set operations.
type Item struct {
	Key      string
	Payload  []byte
	TTL      time.Duration
	Metadata Metadata
}

// Stats is a snapshot of cache performance counters.
type Stats struct {
	Hits      int64
	Misses    int64
	Evictions int64
	Keys      int64
}

// HitRate returns the hit percentage, or zero when no reads occurred.
func (s Stats) HitRate() float64 {
	total := s.Hits + s.Misses
	if total == 0 {
		return 0
	}
	return float64(s.Hits) / float64(total) * 100
}

// WarmupLoader produces items to preload into the cache.
type WarmupLoader func(ctx context.Context) ([]Item, error)

// Store is the cache contract consumed by the engine and the API layer.
//
// Read semantics: Get returns (nil, false, nil) on a miss, including lazy
// expiry and malformed entries. Backend failures surface as errors only
// from the persistent tier; callers treat them as misses so that cache
// trouble never fails a request.
type Store interface {
	// Get retrieves an entry, performing lazy expiry and access bookkeeping.
	Get(ctx context.Context, key string) (*Entry, bool, error)

	// Set stores a payload with the given TTL.
	Set(ctx context.Context, key string, payload []byte, ttl time.Duration, meta Metadata) error

	// Delete removes a key. Deleting an absent key is not an error.
	Delete(ctx context.Context, key string) error

	// Exists reports whether a live (non-expired) entry exists.
	Exists(ctx context.Context, key string) (bool, error)

	// MGet retrieves multiple keys; absent or expired keys are omitted.
	MGet(ctx context.Context, keys []string) (map[string]*Entry, error)

	// MSet stores multiple items.
	MSet(ctx context.Context, items []Item) error

	// InvalidatePattern deletes all keys matching a doublestar glob.
	// Returns the number of keys removed.
	InvalidatePattern(ctx context.Context, pattern string) (int, error)

	// InvalidateUser deletes every user-scoped entry (recommendations,
	// profile, mutual, embedding, realtime domains) for the given user.
	// Returns the number of keys removed.
	InvalidateUser(ctx context.Context, userID string) (int, error)

	// Warmup preloads entries produced by the loader.
	Warmup(ctx context.Context, loader WarmupLoader) error

	// Stats returns a snapshot of performance counters.
	Stats() Stats

	// Close releases backend resources.
	Close() error
}
