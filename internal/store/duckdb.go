// Affinity - Campus Friend Recommendation Engine
// Copyright 2026 Campusgraph Labs
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/campusgraph/affinity

package store

import (
	"context"
	"database/sql"
	"fmt"
	"runtime"
	"time"

	_ "github.com/duckdb/duckdb-go/v2" // duckdb driver
	"github.com/rs/zerolog"

	"github.com/campusgraph/affinity/internal/cache"
	"github.com/campusgraph/affinity/internal/logging"
)

// Config holds DuckDB connection settings.
type Config struct {
	// Path is the database file. Use :memory: for tests.
	Path string

	// MaxMemory is the DuckDB memory limit, e.g. "2GB".
	MaxMemory string

	// Threads is the DuckDB thread count. 0 means runtime.NumCPU().
	Threads int
}

// DB is the DuckDB-backed ProfileStore implementation.
type DB struct {
	conn   *sql.DB
	logger zerolog.Logger

	// rankCache, when set, serves ranking lookups read-through with the
	// university cache domain TTL.
	rankCache cache.Store
	rankTTL   time.Duration
}

// Open connects to DuckDB and bootstraps the schema.
func Open(cfg Config) (*DB, error) {
	threads := cfg.Threads
	if threads <= 0 {
		threads = runtime.NumCPU()
	}
	maxMemory := cfg.MaxMemory
	if maxMemory == "" {
		maxMemory = "2GB"
	}

	connStr := cfg.Path
	if cfg.Path != ":memory:" {
		connStr = fmt.Sprintf("%s?access_mode=read_write&threads=%d&max_memory=%s",
			cfg.Path, threads, maxMemory)
	}

	conn, err := sql.Open("duckdb", connStr)
	if err != nil {
		return nil, fmt.Errorf("open duckdb: %w", err)
	}

	conn.SetMaxOpenConns(threads)
	conn.SetMaxIdleConns(2)
	conn.SetConnMaxLifetime(time.Hour)
	conn.SetConnMaxIdleTime(5 * time.Minute)

	db := &DB{
		conn:   conn,
		logger: logging.With().Str("component", "store").Logger(),
	}

	if err := db.createTables(); err != nil {
		_ = conn.Close()
		return nil, fmt.Errorf("bootstrap schema: %w", err)
	}

	db.logger.Info().Str("path", cfg.Path).Int("threads", threads).Msg("profile store opened")
	return db, nil
}

// SetRankingCache wires a cache for university/department ranking lookups.
// Without one, every ranking lookup hits the database.
func (db *DB) SetRankingCache(c cache.Store, ttl time.Duration) {
	if ttl <= 0 {
		ttl = cache.NewTTLTable(nil).For(cache.DomainUniversity)
	}
	db.rankCache = c
	db.rankTTL = ttl
}

// Ping verifies the connection is alive.
func (db *DB) Ping(ctx context.Context) error {
	return db.conn.PingContext(ctx)
}

// Close closes the database connection.
func (db *DB) Close() error {
	return db.conn.Close()
}

// schemaContext bounds schema operations.
func schemaContext() (context.Context, context.CancelFunc) {
	return context.WithTimeout(context.Background(), 60*time.Second)
}

// createTables creates the core tables. All columns are defined in the
// initial CREATE TABLE statements; structured attributes (university and
// interest profiles, histograms) are stored as JSON text and decoded at
// the row boundary into typed structs.
func (db *DB) createTables() error {
	ctx, cancel := schemaContext()
	defer cancel()

	queries := []string{
		`CREATE TABLE IF NOT EXISTS users (
			id TEXT PRIMARY KEY,
			display_name TEXT NOT NULL,
			user_type TEXT NOT NULL DEFAULT 'student',
			privacy TEXT NOT NULL DEFAULT 'public',
			university_id TEXT,
			completeness INTEGER NOT NULL DEFAULT 0,
			latitude DOUBLE NOT NULL DEFAULT 0,
			longitude DOUBLE NOT NULL DEFAULT 0,
			university_json TEXT NOT NULL DEFAULT '{}',
			interests_json TEXT NOT NULL DEFAULT '{}',
			last_active TIMESTAMP,
			created_at TIMESTAMP DEFAULT current_timestamp
		)`,
		`CREATE TABLE IF NOT EXISTS connections (
			user_id TEXT NOT NULL,
			peer_id TEXT NOT NULL,
			created_at TIMESTAMP DEFAULT current_timestamp,
			PRIMARY KEY (user_id, peer_id)
		)`,
		`CREATE TABLE IF NOT EXISTS blocked_users (
			user_id TEXT NOT NULL,
			blocked_id TEXT NOT NULL,
			PRIMARY KEY (user_id, blocked_id)
		)`,
		`CREATE TABLE IF NOT EXISTS interactions (
			actor_id TEXT NOT NULL,
			target_id TEXT NOT NULL,
			interaction_type TEXT NOT NULL,
			occurred_at TIMESTAMP NOT NULL
		)`,
		`CREATE TABLE IF NOT EXISTS engagement_patterns (
			user_id TEXT PRIMARY KEY,
			pattern_json TEXT NOT NULL
		)`,
		`CREATE TABLE IF NOT EXISTS university_rankings (
			university_id TEXT PRIMARY KEY,
			global_rank INTEGER NOT NULL
		)`,
		`CREATE TABLE IF NOT EXISTS department_rankings (
			university_id TEXT NOT NULL,
			department TEXT NOT NULL,
			rank INTEGER NOT NULL,
			PRIMARY KEY (university_id, department)
		)`,
		`CREATE INDEX IF NOT EXISTS idx_users_pool
			ON users (university_id, completeness, last_active)`,
		`CREATE INDEX IF NOT EXISTS idx_interactions_pair
			ON interactions (actor_id, target_id, occurred_at)`,
		`CREATE INDEX IF NOT EXISTS idx_connections_peer
			ON connections (peer_id)`,
	}

	for _, query := range queries {
		if _, err := db.conn.ExecContext(ctx, query); err != nil {
			return fmt.Errorf("failed to execute query: %s: %w", query, err)
		}
	}

	return nil
}
