// Affinity - Campus Friend Recommendation Engine
// Copyright 2026 Campusgraph Labs
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/campusgraph/affinity

package services

import (
	"context"
	"time"

	"github.com/campusgraph/affinity/internal/cache"
	"github.com/campusgraph/affinity/internal/logging"
)

// GarbageCollector is satisfied by the persistent cache tier. The
// memory tier sweeps itself and does not implement it.
type GarbageCollector interface {
	RunGC() error
}

// CacheMaintenanceService warms the cache on startup and runs periodic
// value-log GC for the persistent tier.
type CacheMaintenanceService struct {
	store      cache.Store
	loader     cache.WarmupLoader
	gcInterval time.Duration
	name       string
}

// NewCacheMaintenanceService creates the maintenance service. loader may
// be nil to skip warmup; gcInterval <= 0 disables GC.
func NewCacheMaintenanceService(store cache.Store, loader cache.WarmupLoader, gcInterval time.Duration) *CacheMaintenanceService {
	return &CacheMaintenanceService{
		store:      store,
		loader:     loader,
		gcInterval: gcInterval,
		name:       "cache-maintenance",
	}
}

// Serve implements suture.Service. Warmup failures are logged rather than
// returned: a cold cache is degraded, not broken, and returning an error
// would make suture restart the warmup loop.
func (c *CacheMaintenanceService) Serve(ctx context.Context) error {
	if c.loader != nil {
		start := time.Now()
		if err := c.store.Warmup(ctx, c.loader); err != nil {
			logging.Warn().Err(err).Msg("cache warmup failed")
		} else {
			logging.Info().Dur("elapsed", time.Since(start)).Msg("cache warmed")
		}
	}

	gc, ok := c.store.(GarbageCollector)
	if !ok || c.gcInterval <= 0 {
		<-ctx.Done()
		return ctx.Err()
	}

	ticker := time.NewTicker(c.gcInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			if err := gc.RunGC(); err != nil {
				logging.Warn().Err(err).Msg("cache GC failed")
			}
		}
	}
}

// String implements fmt.Stringer for suture's log messages.
func (c *CacheMaintenanceService) String() string {
	return c.name
}
