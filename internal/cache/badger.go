// Affinity - Campus Friend Recommendation Engine
// Copyright 2026 Campusgraph Labs
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/campusgraph/affinity

package cache

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/bmatcuk/doublestar/v4"
	"github.com/dgraph-io/badger/v4"
	"github.com/goccy/go-json"
	gobreaker "github.com/sony/gobreaker/v2"

	"github.com/campusgraph/affinity/internal/logging"
	"github.com/campusgraph/affinity/internal/metrics"
)

const badgerTier = "badger"

// Persistent is a badger-backed cache tier.
//
// Entries are stored with badger's native TTL so the backend enforces
// expiry even across restarts; the in-entry StoredAt/TTL fields are kept
// as well so read-path semantics (lazy expiry, access bookkeeping with a
// fixed expiry window) match the memory tier exactly.
//
// All badger operations run behind a circuit breaker. An open breaker
// degrades reads to misses and drops writes: cache unavailability is
// never fatal to recommendation requests.
type Persistent struct {
	db      *badger.DB
	breaker *gobreaker.CircuitBreaker[any]

	statsMu sync.Mutex
	stats   Stats

	now func() time.Time
}

// PersistentConfig configures the badger tier.
type PersistentConfig struct {
	// Dir is the badger data directory. Empty with InMemory unset is invalid.
	Dir string

	// InMemory runs badger without disk persistence. Used by tests.
	InMemory bool

	// BreakerThreshold is the consecutive-failure count that opens the
	// breaker. Default: 5.
	BreakerThreshold uint32

	// BreakerTimeout is how long the breaker stays open before probing.
	// Default: 30s.
	BreakerTimeout time.Duration
}

// NewPersistent opens the badger tier.
func NewPersistent(cfg PersistentConfig) (*Persistent, error) {
	if cfg.BreakerThreshold == 0 {
		cfg.BreakerThreshold = 5
	}
	if cfg.BreakerTimeout == 0 {
		cfg.BreakerTimeout = 30 * time.Second
	}

	opts := badger.DefaultOptions(cfg.Dir).
		WithInMemory(cfg.InMemory).
		WithLogger(nil)
	if cfg.InMemory {
		opts = opts.WithDir("").WithValueDir("")
	}

	db, err := badger.Open(opts)
	if err != nil {
		return nil, fmt.Errorf("open badger: %w", err)
	}

	breaker := gobreaker.NewCircuitBreaker[any](gobreaker.Settings{
		Name: "cache-badger",
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= cfg.BreakerThreshold
		},
		Timeout: cfg.BreakerTimeout,
		OnStateChange: func(name string, from, to gobreaker.State) {
			logging.Warn().
				Str("breaker", name).
				Str("from", from.String()).
				Str("to", to.String()).
				Msg("cache breaker state change")
			if to == gobreaker.StateOpen {
				metrics.CacheBreakerState.Set(1)
			} else {
				metrics.CacheBreakerState.Set(0)
			}
		},
	})

	return &Persistent{
		db:      db,
		breaker: breaker,
		now:     time.Now,
	}, nil
}

// Get retrieves an entry with lazy expiry and access bookkeeping.
// Backend failures (including an open breaker) report a miss with a nil
// error: the caller falls through to full computation.
func (p *Persistent) Get(_ context.Context, key string) (*Entry, bool, error) {
	now := p.now()

	result, err := p.breaker.Execute(func() (any, error) {
		var entry *Entry
		err := p.db.Update(func(txn *badger.Txn) error {
			item, err := txn.Get([]byte(key))
			if err != nil {
				return err
			}

			var e Entry
			if err := item.Value(func(val []byte) error {
				return json.Unmarshal(val, &e)
			}); err != nil {
				// Malformed payload: delete and report miss.
				_ = txn.Delete([]byte(key))
				return badger.ErrKeyNotFound
			}

			if e.Expired(now) {
				_ = txn.Delete([]byte(key))
				return badger.ErrKeyNotFound
			}

			e.touch(now)
			data, err := json.Marshal(&e)
			if err != nil {
				return err
			}
			// Rewrite with the remaining window so badger's native TTL
			// still tracks the original expiry instant.
			badgerEntry := badger.NewEntry([]byte(key), data).WithTTL(e.Remaining(now))
			if err := txn.SetEntry(badgerEntry); err != nil {
				return err
			}

			entry = &e
			return nil
		})
		return entry, err
	})

	if err != nil {
		p.recordMiss()
		if !errors.Is(err, badger.ErrKeyNotFound) {
			logging.Debug().Err(err).Str("key", key).Msg("persistent cache read degraded to miss")
		}
		return nil, false, nil
	}

	entry := result.(*Entry)
	p.recordHit(entry.Metadata.Domain)
	return entry, true, nil
}

// Set stores a payload. Write failures are swallowed after logging
// (best-effort caching).
func (p *Persistent) Set(_ context.Context, key string, payload []byte, ttl time.Duration, meta Metadata) error {
	entry := newEntry(payload, ttl, meta, p.now())
	data, err := json.Marshal(entry)
	if err != nil {
		return fmt.Errorf("marshal cache entry: %w", err)
	}

	if _, err := p.breaker.Execute(func() (any, error) {
		return nil, p.db.Update(func(txn *badger.Txn) error {
			return txn.SetEntry(badger.NewEntry([]byte(key), data).WithTTL(ttl))
		})
	}); err != nil {
		logging.Debug().Err(err).Str("key", key).Msg("persistent cache write dropped")
	}
	return nil
}

// Delete removes a key.
func (p *Persistent) Delete(_ context.Context, key string) error {
	_, err := p.breaker.Execute(func() (any, error) {
		return nil, p.db.Update(func(txn *badger.Txn) error {
			return txn.Delete([]byte(key))
		})
	})
	if err != nil && !errors.Is(err, badger.ErrKeyNotFound) {
		return err
	}
	p.recordEvictions(1)
	return nil
}

// Exists reports whether a live entry is present.
func (p *Persistent) Exists(_ context.Context, key string) (bool, error) {
	now := p.now()

	result, err := p.breaker.Execute(func() (any, error) {
		found := false
		err := p.db.View(func(txn *badger.Txn) error {
			item, err := txn.Get([]byte(key))
			if errors.Is(err, badger.ErrKeyNotFound) {
				return nil
			}
			if err != nil {
				return err
			}
			var e Entry
			if err := item.Value(func(val []byte) error {
				return json.Unmarshal(val, &e)
			}); err != nil {
				return nil
			}
			found = !e.Expired(now)
			return nil
		})
		return found, err
	})
	if err != nil {
		return false, nil
	}
	return result.(bool), nil
}

// MGet retrieves multiple keys; absent or expired keys are omitted.
func (p *Persistent) MGet(ctx context.Context, keys []string) (map[string]*Entry, error) {
	result := make(map[string]*Entry, len(keys))
	for _, key := range keys {
		if entry, ok, _ := p.Get(ctx, key); ok {
			result[key] = entry
		}
	}
	return result, nil
}

// MSet stores multiple items in one transaction batch.
func (p *Persistent) MSet(ctx context.Context, items []Item) error {
	for _, item := range items {
		if err := p.Set(ctx, item.Key, item.Payload, item.TTL, item.Metadata); err != nil {
			return err
		}
	}
	return nil
}

// InvalidatePattern deletes all keys matching a doublestar glob.
func (p *Persistent) InvalidatePattern(_ context.Context, pattern string) (int, error) {
	return p.deleteMatching(func(key string) bool {
		ok, err := doublestar.Match(pattern, key)
		return err == nil && ok
	})
}

// InvalidateUser deletes every user-scoped entry for the given user.
func (p *Persistent) InvalidateUser(_ context.Context, userID string) (int, error) {
	return p.deleteMatching(func(key string) bool {
		for _, domain := range userScopedDomains {
			if keyInDomain(key, domain) && keyScopedToUser(key, userID) {
				return true
			}
		}
		return false
	})
}

// deleteMatching scans all keys and deletes those the predicate accepts.
func (p *Persistent) deleteMatching(match func(string) bool) (int, error) {
	result, err := p.breaker.Execute(func() (any, error) {
		var victims [][]byte
		err := p.db.View(func(txn *badger.Txn) error {
			it := txn.NewIterator(badger.IteratorOptions{PrefetchValues: false})
			defer it.Close()
			for it.Rewind(); it.Valid(); it.Next() {
				key := it.Item().KeyCopy(nil)
				if match(string(key)) {
					victims = append(victims, key)
				}
			}
			return nil
		})
		if err != nil {
			return 0, err
		}

		removed := 0
		err = p.db.Update(func(txn *badger.Txn) error {
			for _, key := range victims {
				if err := txn.Delete(key); err != nil {
					return err
				}
				removed++
			}
			return nil
		})
		return removed, err
	})
	if err != nil {
		return 0, err
	}

	removed := result.(int)
	p.recordEvictions(removed)
	return removed, nil
}

// Warmup preloads entries produced by the loader.
func (p *Persistent) Warmup(ctx context.Context, loader WarmupLoader) error {
	items, err := loader(ctx)
	if err != nil {
		return err
	}
	return p.MSet(ctx, items)
}

// Stats returns a snapshot of performance counters.
func (p *Persistent) Stats() Stats {
	p.statsMu.Lock()
	s := p.stats
	p.statsMu.Unlock()

	_ = p.db.View(func(txn *badger.Txn) error {
		it := txn.NewIterator(badger.IteratorOptions{PrefetchValues: false})
		defer it.Close()
		for it.Rewind(); it.Valid(); it.Next() {
			s.Keys++
		}
		return nil
	})

	return s
}

// RunGC runs one round of badger value-log garbage collection.
// badger.ErrNoRewrite (nothing to collect) is not an error.
func (p *Persistent) RunGC() error {
	err := p.db.RunValueLogGC(0.5)
	if err != nil && !errors.Is(err, badger.ErrNoRewrite) {
		return err
	}
	return nil
}

// Close closes the underlying badger database.
func (p *Persistent) Close() error {
	return p.db.Close()
}

func (p *Persistent) recordHit(domain Domain) {
	p.statsMu.Lock()
	p.stats.Hits++
	p.statsMu.Unlock()
	metrics.CacheHits.WithLabelValues(badgerTier, string(domain)).Inc()
}

func (p *Persistent) recordMiss() {
	p.statsMu.Lock()
	p.stats.Misses++
	p.statsMu.Unlock()
	metrics.CacheMisses.WithLabelValues(badgerTier, "").Inc()
}

func (p *Persistent) recordEvictions(n int) {
	if n == 0 {
		return
	}
	p.statsMu.Lock()
	p.stats.Evictions += int64(n)
	p.statsMu.Unlock()
	metrics.CacheEvictions.WithLabelValues(badgerTier).Add(float64(n))
}
