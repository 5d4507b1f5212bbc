// Affinity - Campus Friend Recommendation Engine
// Copyright 2026 Campusgraph Labs
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/campusgraph/affinity

// Package cache provides the TTL key/value store used by the recommendation
// engine: lazy expiry on read, batch operations, glob-pattern invalidation,
// per-user invalidation, and hit/miss statistics. Two tiers implement the
// same Store interface: a memory tier and a badger-backed persistent tier.
package cache

import (
	"time"

	"github.com/goccy/go-json"
)

// Metadata describes a cache entry beyond its payload.
type Metadata struct {
	// OwnerID is the user the entry is scoped to, if any.
	OwnerID string `json:"owner_id,omitempty"`

	// Domain is the logical cache domain (recommendations, user_profile, ...).
	Domain Domain `json:"domain,omitempty"`

	// AlgorithmVersion records the engine version that produced the payload.
	AlgorithmVersion string `json:"algorithm_version,omitempty"`

	// PayloadSize is the payload length in bytes, recorded at Set time.
	PayloadSize int `json:"payload_size,omitempty"`
}

// Entry is a cached item with TTL and access bookkeeping.
//
// Expiry is evaluated lazily at read time: an entry is expired when
// now - StoredAt exceeds its TTL. A read hit bumps AccessCount and
// LastAccess and rewrites the entry without moving StoredAt, so the
// original expiry window is preserved (sliding bookkeeping, not
// sliding expiry).
type Entry struct {
	Payload     []byte    `json:"payload"`
	StoredAt    time.Time `json:"stored_at"`
	TTLSeconds  int64     `json:"ttl_seconds"`
	AccessCount int64     `json:"access_count"`
	LastAccess  time.Time `json:"last_access"`
	Metadata    Metadata  `json:"metadata"`
}

// TTL returns the entry's time-to-live as a duration.
func (e *Entry) TTL() time.Duration {
	return time.Duration(e.TTLSeconds) * time.Second
}

// ExpiresAt returns the instant the entry becomes stale.
func (e *Entry) ExpiresAt() time.Time {
	return e.StoredAt.Add(e.TTL())
}

// Expired reports whether the entry is stale at the given instant.
func (e *Entry) Expired(now time.Time) bool {
	return now.After(e.ExpiresAt())
}

// Remaining returns the time left before expiry, or zero if already expired.
func (e *Entry) Remaining(now time.Time) time.Duration {
	if r := e.ExpiresAt().Sub(now); r > 0 {
		return r
	}
	return 0
}

// touch records a read hit.
func (e *Entry) touch(now time.Time) {
	e.AccessCount++
	e.LastAccess = now
}

// newEntry builds an entry for a Set operation.
func newEntry(payload []byte, ttl time.Duration, meta Metadata, now time.Time) *Entry {
	meta.PayloadSize = len(payload)
	return &Entry{
		Payload:    payload,
		StoredAt:   now,
		TTLSeconds: int64(ttl / time.Second),
		LastAccess: now,
		Metadata:   meta,
	}
}

// EncodePayload marshals a value into an entry payload.
func EncodePayload(v any) ([]byte, error) {
	return json.Marshal(v)
}

// DecodePayload unmarshals an entry payload into out.
// A failure means the cached bytes are malformed; callers treat that as a
// miss and delete the entry.
func DecodePayload(payload []byte, out any) error {
	return json.Unmarshal(payload, out)
}
