// Affinity - Campus Friend Recommendation Engine
// Copyright 2026 Campusgraph Labs
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/campusgraph/affinity

package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/campusgraph/affinity/internal/cache"
	"github.com/campusgraph/affinity/internal/metrics"
)

// GetUniversityRanking returns a university's global rank, read through
// the ranking cache when one is wired.
func (db *DB) GetUniversityRanking(ctx context.Context, universityID string) (int, error) {
	key := cache.Key(cache.DomainUniversity, "rank", universityID)
	if rank, ok := db.cachedRank(ctx, key); ok {
		return rank, nil
	}

	start := time.Now()
	var rank int
	err := db.conn.QueryRowContext(ctx,
		`SELECT global_rank FROM university_rankings WHERE university_id = ?`,
		universityID).Scan(&rank)
	if errors.Is(err, sql.ErrNoRows) {
		metrics.RecordStoreQuery("get_university_ranking", start, nil)
		return 0, ErrNotFound
	}
	metrics.RecordStoreQuery("get_university_ranking", start, err)
	if err != nil {
		return 0, fmt.Errorf("query university ranking %s: %w", universityID, err)
	}

	db.storeRank(ctx, key, rank)
	return rank, nil
}

// GetDepartmentRanking returns a department's rank within its field,
// read through the ranking cache when one is wired.
func (db *DB) GetDepartmentRanking(ctx context.Context, universityID, department string) (int, error) {
	key := cache.Key(cache.DomainUniversity, "dept", universityID, department)
	if rank, ok := db.cachedRank(ctx, key); ok {
		return rank, nil
	}

	start := time.Now()
	var rank int
	err := db.conn.QueryRowContext(ctx,
		`SELECT rank FROM department_rankings WHERE university_id = ? AND department = ?`,
		universityID, department).Scan(&rank)
	if errors.Is(err, sql.ErrNoRows) {
		metrics.RecordStoreQuery("get_department_ranking", start, nil)
		return 0, ErrNotFound
	}
	metrics.RecordStoreQuery("get_department_ranking", start, err)
	if err != nil {
		return 0, fmt.Errorf("query department ranking %s/%s: %w", universityID, department, err)
	}

	db.storeRank(ctx, key, rank)
	return rank, nil
}

// cachedRank resolves a rank from the ranking cache. Cache trouble is a
// miss, never an error.
func (db *DB) cachedRank(ctx context.Context, key string) (int, bool) {
	if db.rankCache == nil {
		return 0, false
	}
	entry, ok, err := db.rankCache.Get(ctx, key)
	if err != nil {
		db.logger.Debug().Err(err).Str("key", key).Msg("ranking cache read failed")
		return 0, false
	}
	if !ok {
		return 0, false
	}
	var rank int
	if err := cache.DecodePayload(entry.Payload, &rank); err != nil {
		return 0, false
	}
	return rank, true
}

// storeRank writes a rank to the ranking cache, best-effort.
func (db *DB) storeRank(ctx context.Context, key string, rank int) {
	if db.rankCache == nil {
		return
	}
	payload, err := cache.EncodePayload(rank)
	if err != nil {
		return
	}
	ttl := db.rankTTL
	meta := cache.Metadata{Domain: cache.DomainUniversity, PayloadSize: len(payload)}
	if err := db.rankCache.Set(ctx, key, payload, ttl, meta); err != nil {
		db.logger.Debug().Err(err).Str("key", key).Msg("ranking cache write failed")
	}
}
