// Affinity - Campus Friend Recommendation Engine
// Copyright 2026 Campusgraph Labs
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/campusgraph/affinity

// Package config provides layered configuration loading for Affinity.
//
// Configuration is resolved in three layers with clear precedence:
//
//  1. Built-in defaults
//  2. Optional YAML config file
//  3. Environment variables (highest priority)
package config

import (
	"fmt"
	"math"
	"time"
)

// scoreWeightEpsilon is the tolerance used when checking weight sums.
const scoreWeightEpsilon = 1e-9

// Config is the root configuration for the Affinity server.
type Config struct {
	Server   ServerConfig   `koanf:"server"`
	Database DatabaseConfig `koanf:"database"`
	Cache    CacheConfig    `koanf:"cache"`
	Engine   EngineConfig   `koanf:"engine"`
	Logging  LoggingConfig  `koanf:"logging"`
}

// ServerConfig holds HTTP server settings.
type ServerConfig struct {
	Host            string        `koanf:"host"`
	Port            int           `koanf:"port"`
	ReadTimeout     time.Duration `koanf:"read_timeout"`
	WriteTimeout    time.Duration `koanf:"write_timeout"`
	ShutdownTimeout time.Duration `koanf:"shutdown_timeout"`

	// CORSOrigins lists allowed origins. Empty disables CORS headers.
	CORSOrigins []string `koanf:"cors_origins"`

	// RateLimitPerMinute bounds requests per client IP on the API routes.
	RateLimitPerMinute int `koanf:"rate_limit_per_minute"`
}

// DatabaseConfig holds DuckDB profile store settings.
type DatabaseConfig struct {
	// Path is the DuckDB database file. Use :memory: for tests.
	Path string `koanf:"path"`

	// MaxMemory is the DuckDB memory limit (e.g. "2GB").
	MaxMemory string `koanf:"max_memory"`

	// Threads is the DuckDB thread count. 0 means runtime.NumCPU().
	Threads int `koanf:"threads"`
}

// CacheConfig holds cache tier settings.
type CacheConfig struct {
	// Persistent enables the badger-backed tier. When false the cache is
	// memory-only and empties on restart.
	Persistent bool `koanf:"persistent"`

	// Dir is the badger data directory (persistent tier only).
	Dir string `koanf:"dir"`

	// JanitorInterval is how often the memory tier sweeps expired entries.
	JanitorInterval time.Duration `koanf:"janitor_interval"`

	// GCInterval is how often badger value-log GC runs (persistent tier only).
	GCInterval time.Duration `koanf:"gc_interval"`

	// WarmupUserIDs lists user IDs whose recommendations are precomputed at
	// startup via the cache warmup hook.
	WarmupUserIDs []string `koanf:"warmup_user_ids"`

	// TTL overrides per logical cache domain, in seconds. Zero values keep
	// the built-in domain defaults.
	TTL CacheTTLConfig `koanf:"ttl"`
}

// CacheTTLConfig overrides per-domain TTLs, in seconds.
type CacheTTLConfig struct {
	Recommendations   int `koanf:"recommendations"`
	UserProfile       int `koanf:"user_profile"`
	MutualConnections int `koanf:"mutual_connections"`
	University        int `koanf:"university"`
	Embeddings        int `koanf:"embeddings"`
	Realtime          int `koanf:"realtime"`
	ABTest            int `koanf:"ab_test"`
}

// EngineConfig holds scoring engine settings.
type EngineConfig struct {
	// Version is the algorithm version string reported in responses and
	// embedded in cache entry metadata.
	Version string `koanf:"version"`

	Weights      WeightsConfig      `koanf:"weights"`
	BonusWeights BonusWeightsConfig `koanf:"bonus_weights"`

	// BatchSize is the number of candidates scored per concurrent batch.
	BatchSize int `koanf:"batch_size"`

	// MaxCandidates caps the retrieved candidate pool.
	MaxCandidates int `koanf:"max_candidates"`

	// DefaultLimit is the result count when the request omits one.
	DefaultLimit int `koanf:"default_limit"`

	// MaxLimit caps the requested result count.
	MaxLimit int `koanf:"max_limit"`

	// MinCompleteness filters candidates below this profile completeness (0-100).
	MinCompleteness int `koanf:"min_completeness"`

	// DistinctUniversityCap and DistinctDepartmentCap bound how many distinct
	// groups the diversity filter admits before restricting to seen groups.
	DistinctUniversityCap int `koanf:"distinct_university_cap"`
	DistinctDepartmentCap int `koanf:"distinct_department_cap"`

	// ResponseTTL is how long generated responses stay cached.
	ResponseTTL time.Duration `koanf:"response_ttl"`
}

// WeightsConfig holds the core factor weights. They must sum to 1.0.
type WeightsConfig struct {
	University        float64 `koanf:"university"`
	MutualConnections float64 `koanf:"mutual_connections"`
	Interests         float64 `koanf:"interests"`
	Engagement        float64 `koanf:"engagement"`
	Geography         float64 `koanf:"geography"`
}

// Sum returns the total of all core weights.
func (w WeightsConfig) Sum() float64 {
	return w.University + w.MutualConnections + w.Interests + w.Engagement + w.Geography
}

// BonusWeightsConfig holds the additive bonus weights. They must sum to 0.10.
type BonusWeightsConfig struct {
	Recency           float64 `koanf:"recency"`
	ProfileCompletion float64 `koanf:"profile_completion"`
	SocialHistory     float64 `koanf:"social_history"`
}

// Sum returns the total of all bonus weights.
func (w BonusWeightsConfig) Sum() float64 {
	return w.Recency + w.ProfileCompletion + w.SocialHistory
}

// LoggingConfig holds logging settings.
type LoggingConfig struct {
	Level  string `koanf:"level"`
	Format string `koanf:"format"`
	Caller bool   `koanf:"caller"`
}

// defaultConfig returns a Config with all default values applied.
// These defaults are loaded first, then overridden by file and env layers.
func defaultConfig() *Config {
	return &Config{
		Server: ServerConfig{
			Host:               "0.0.0.0",
			Port:               8080,
			ReadTimeout:        15 * time.Second,
			WriteTimeout:       30 * time.Second,
			ShutdownTimeout:    10 * time.Second,
			CORSOrigins:        nil,
			RateLimitPerMinute: 300,
		},
		Database: DatabaseConfig{
			Path:      "/data/affinity.duckdb",
			MaxMemory: "2GB",
			Threads:   0,
		},
		Cache: CacheConfig{
			Persistent:      false,
			Dir:             "/data/affinity-cache",
			JanitorInterval: 5 * time.Minute,
			GCInterval:      10 * time.Minute,
			WarmupUserIDs:   nil,
		},
		Engine: EngineConfig{
			Version: "2.3.0",
			Weights: WeightsConfig{
				University:        0.40,
				MutualConnections: 0.25,
				Interests:         0.20,
				Engagement:        0.10,
				Geography:         0.05,
			},
			BonusWeights: BonusWeightsConfig{
				Recency:           0.05,
				ProfileCompletion: 0.03,
				SocialHistory:     0.02,
			},
			BatchSize:             50,
			MaxCandidates:         1000,
			DefaultLimit:          20,
			MaxLimit:              100,
			MinCompleteness:       30,
			DistinctUniversityCap: 5,
			DistinctDepartmentCap: 10,
			ResponseTTL:           30 * time.Minute,
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "json",
			Caller: false,
		},
	}
}

// Validate checks configuration invariants. It is called after all layers
// are merged, so user-supplied overrides are validated too.
func (c *Config) Validate() error {
	if c.Server.Port < 1 || c.Server.Port > 65535 {
		return fmt.Errorf("server.port %d out of range", c.Server.Port)
	}
	if c.Database.Path == "" {
		return fmt.Errorf("database.path must not be empty")
	}
	if c.Cache.Persistent && c.Cache.Dir == "" {
		return fmt.Errorf("cache.dir required when cache.persistent is true")
	}
	if c.Cache.JanitorInterval <= 0 {
		return fmt.Errorf("cache.janitor_interval must be positive")
	}
	return c.Engine.Validate()
}

// Validate checks engine configuration invariants.
func (c *EngineConfig) Validate() error {
	if math.Abs(c.Weights.Sum()-1.0) > scoreWeightEpsilon {
		return fmt.Errorf("engine.weights must sum to 1.0, got %.6f", c.Weights.Sum())
	}
	if math.Abs(c.BonusWeights.Sum()-0.10) > scoreWeightEpsilon {
		return fmt.Errorf("engine.bonus_weights must sum to 0.10, got %.6f", c.BonusWeights.Sum())
	}
	if c.BatchSize <= 0 {
		return fmt.Errorf("engine.batch_size must be positive")
	}
	if c.MaxCandidates <= 0 {
		return fmt.Errorf("engine.max_candidates must be positive")
	}
	if c.DefaultLimit <= 0 || c.MaxLimit < c.DefaultLimit {
		return fmt.Errorf("engine limits invalid: default=%d max=%d", c.DefaultLimit, c.MaxLimit)
	}
	if c.MinCompleteness < 0 || c.MinCompleteness > 100 {
		return fmt.Errorf("engine.min_completeness %d out of range", c.MinCompleteness)
	}
	if c.DistinctUniversityCap <= 0 || c.DistinctDepartmentCap <= 0 {
		return fmt.Errorf("engine diversity caps must be positive")
	}
	if c.ResponseTTL <= 0 {
		return fmt.Errorf("engine.response_ttl must be positive")
	}
	return nil
}
