// Affinity - Campus Friend Recommendation Engine
// Copyright 2026 Campusgraph Labs
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/campusgraph/affinity

// Package main is the entry point for the Affinity server.
//
// Affinity scores and ranks friend recommendations for campus social
// networks. Candidates are scored on university affiliation, mutual
// connections, shared interests, engagement patterns, and geography,
// with diversity filtering applied to the ranked results.
//
// The server initializes components in the following order:
//
//  1. Configuration: layered load from defaults, config.yaml, and
//     environment variables (Koanf v2)
//  2. Logging: zerolog, configured from the logging section
//  3. Profile store: DuckDB with the campus social schema
//  4. Cache: memory tier, or badger-backed persistent tier when
//     cache.persistent is enabled
//  5. Engine: the recommendation scoring pipeline
//  6. Supervisor tree: HTTP server and cache maintenance as
//     suture-supervised services
//
// Graceful shutdown runs on SIGINT and SIGTERM: the HTTP server drains
// in-flight requests, then the cache and store close.
package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/campusgraph/affinity/internal/api"
	"github.com/campusgraph/affinity/internal/cache"
	"github.com/campusgraph/affinity/internal/config"
	"github.com/campusgraph/affinity/internal/engine"
	"github.com/campusgraph/affinity/internal/logging"
	"github.com/campusgraph/affinity/internal/store"
	"github.com/campusgraph/affinity/internal/supervisor"
	"github.com/campusgraph/affinity/internal/supervisor/services"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		logging.Fatal().Err(err).Msg("Failed to load configuration")
	}

	logging.Init(logging.Config{
		Level:  cfg.Logging.Level,
		Format: cfg.Logging.Format,
		Caller: cfg.Logging.Caller,
	})

	logging.Info().
		Str("version", cfg.Engine.Version).
		Str("db_path", cfg.Database.Path).
		Bool("cache_persistent", cfg.Cache.Persistent).
		Msg("Starting Affinity")

	db, err := store.Open(store.Config{
		Path:      cfg.Database.Path,
		MaxMemory: cfg.Database.MaxMemory,
		Threads:   cfg.Database.Threads,
	})
	if err != nil {
		logging.Fatal().Err(err).Msg("Failed to open profile store")
	}
	defer func() {
		if err := db.Close(); err != nil {
			logging.Error().Err(err).Msg("Error closing profile store")
		}
	}()

	cacheStore, err := newCacheStore(cfg.Cache)
	if err != nil {
		logging.Fatal().Err(err).Msg("Failed to initialize cache")
	}
	defer func() {
		if err := cacheStore.Close(); err != nil {
			logging.Error().Err(err).Msg("Error closing cache")
		}
	}()

	ttlTable := cache.NewTTLTable(ttlOverrides(cfg.Cache.TTL))
	db.SetRankingCache(cacheStore, ttlTable.For(cache.DomainUniversity))

	eng := engine.New(cfg.Engine, db, cacheStore, ttlTable)

	handler := api.NewRouter(cfg.Server, eng, cacheStore, db).Setup()
	server := &http.Server{
		Addr:         fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port),
		Handler:      handler,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
	}

	tree, err := supervisor.NewTree(logging.NewSlogLogger(), supervisor.TreeConfig{
		ShutdownTimeout: cfg.Server.ShutdownTimeout,
	})
	if err != nil {
		logging.Fatal().Err(err).Msg("Failed to create supervisor tree")
	}

	tree.AddAPIService(services.NewHTTPServerService(server, cfg.Server.ShutdownTimeout))
	tree.AddMaintenanceService(services.NewCacheMaintenanceService(
		cacheStore,
		warmupLoader(eng, cfg.Cache.WarmupUserIDs),
		gcInterval(cfg.Cache),
	))

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	logging.Info().Str("addr", server.Addr).Msg("Serving")

	if err := tree.Serve(ctx); err != nil && ctx.Err() == nil {
		logging.Error().Err(err).Msg("Supervisor tree failed")
		os.Exit(1)
	}

	logging.Info().Msg("Shutdown complete")
}

// newCacheStore builds the configured cache tier.
func newCacheStore(cfg config.CacheConfig) (cache.Store, error) {
	if !cfg.Persistent {
		return cache.NewMemory(cfg.JanitorInterval), nil
	}
	return cache.NewPersistent(cache.PersistentConfig{Dir: cfg.Dir})
}

// gcInterval returns the badger GC interval, or zero for the memory tier
// which sweeps itself.
func gcInterval(cfg config.CacheConfig) time.Duration {
	if !cfg.Persistent {
		return 0
	}
	return cfg.GCInterval
}

// ttlOverrides translates the config TTL section (seconds) into the
// cache domain override map. Zero values keep the built-in defaults.
func ttlOverrides(cfg config.CacheTTLConfig) map[cache.Domain]time.Duration {
	seconds := func(n int) time.Duration { return time.Duration(n) * time.Second }
	return map[cache.Domain]time.Duration{
		cache.DomainRecommendations:   seconds(cfg.Recommendations),
		cache.DomainUserProfile:       seconds(cfg.UserProfile),
		cache.DomainMutualConnections: seconds(cfg.MutualConnections),
		cache.DomainUniversity:        seconds(cfg.University),
		cache.DomainEmbeddings:        seconds(cfg.Embeddings),
		cache.DomainRealtime:          seconds(cfg.Realtime),
		cache.DomainABTest:            seconds(cfg.ABTest),
	}
}

// warmupLoader precomputes recommendations for the configured user IDs.
// Generation stores each response in the cache itself, so the loader
// returns no items of its own. Returns nil when no IDs are configured so
// the maintenance service skips warmup entirely.
func warmupLoader(eng *engine.Engine, userIDs []string) cache.WarmupLoader {
	if len(userIDs) == 0 {
		return nil
	}
	return func(ctx context.Context) ([]cache.Item, error) {
		var failed []string
		for _, id := range userIDs {
			if _, err := eng.GenerateRecommendations(ctx, engine.Request{RequesterID: id}); err != nil {
				logging.Warn().Str("user_id", id).Err(err).Msg("warmup generation failed")
				failed = append(failed, id)
			}
			if ctx.Err() != nil {
				return nil, ctx.Err()
			}
		}
		if len(failed) == len(userIDs) {
			return nil, fmt.Errorf("warmup failed for all users: %s", strings.Join(failed, ", "))
		}
		return nil, nil
	}
}
