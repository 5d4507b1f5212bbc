// Affinity - Campus Friend Recommendation Engine
// Copyright 2026 Campusgraph Labs
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/campusgraph/affinity

package config

import (
	"fmt"
	"os"
	"strings"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/providers/structs"
	"github.com/knadh/koanf/v2"
)

// DefaultConfigPaths lists the paths where config files are searched in
// order of priority. The first file found wins.
var DefaultConfigPaths = []string{
	"config.yaml",
	"config.yml",
	"/etc/affinity/config.yaml",
	"/etc/affinity/config.yml",
}

// ConfigPathEnvVar overrides the config file search path.
const ConfigPathEnvVar = "CONFIG_PATH"

// Load resolves configuration from defaults, an optional YAML file, and
// environment variables, in that order of precedence (env wins).
func Load() (*Config, error) {
	k := koanf.New(".")

	// Layer 1: defaults from struct
	if err := k.Load(structs.Provider(defaultConfig(), "koanf"), nil); err != nil {
		return nil, fmt.Errorf("failed to load defaults: %w", err)
	}

	// Layer 2: optional config file
	if configPath := findConfigFile(); configPath != "" {
		if err := k.Load(file.Provider(configPath), yaml.Parser()); err != nil {
			return nil, fmt.Errorf("failed to load config file %s: %w", configPath, err)
		}
	}

	// Layer 3: environment variables (highest priority)
	if err := k.Load(env.Provider("", ".", envTransformFunc), nil); err != nil {
		return nil, fmt.Errorf("failed to load environment variables: %w", err)
	}

	// Env vars arrive as strings; convert comma-separated values for
	// fields the config expects as slices.
	if err := processSliceFields(k); err != nil {
		return nil, fmt.Errorf("failed to process slice fields: %w", err)
	}

	cfg := &Config{}
	if err := k.Unmarshal("", cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal configuration: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}

	return cfg, nil
}

// findConfigFile searches for a config file in the default paths.
// Returns the path to the first file found, or empty string if none found.
func findConfigFile() string {
	if envPath := os.Getenv(ConfigPathEnvVar); envPath != "" {
		if _, err := os.Stat(envPath); err == nil {
			return envPath
		}
	}

	for _, path := range DefaultConfigPaths {
		if _, err := os.Stat(path); err == nil {
			return path
		}
	}

	return ""
}

// sliceConfigPaths defines which config paths are parsed as comma-separated slices.
var sliceConfigPaths = []string{
	"server.cors_origins",
	"cache.warmup_user_ids",
}

// processSliceFields converts comma-separated string values to slices for
// known slice fields.
func processSliceFields(k *koanf.Koanf) error {
	for _, path := range sliceConfigPaths {
		val := k.Get(path)
		if val == nil {
			continue
		}

		// Already a slice (from YAML file)
		if _, ok := val.([]interface{}); ok {
			continue
		}
		if _, ok := val.([]string); ok {
			continue
		}

		strVal, ok := val.(string)
		if !ok || strVal == "" {
			continue
		}

		parts := strings.Split(strVal, ",")
		trimmed := make([]string, 0, len(parts))
		for _, p := range parts {
			if p = strings.TrimSpace(p); p != "" {
				trimmed = append(trimmed, p)
			}
		}
		if len(trimmed) > 0 {
			if err := k.Set(path, trimmed); err != nil {
				return fmt.Errorf("failed to set %s: %w", path, err)
			}
		}
	}
	return nil
}

// envMappings maps environment variable names to koanf config paths.
// Only listed variables are honored; everything else in the environment
// is ignored so unrelated variables cannot perturb the config.
var envMappings = map[string]string{
	"http_host":             "server.host",
	"http_port":             "server.port",
	"http_read_timeout":     "server.read_timeout",
	"http_write_timeout":    "server.write_timeout",
	"http_shutdown_timeout": "server.shutdown_timeout",
	"cors_origins":          "server.cors_origins",
	"rate_limit_per_minute": "server.rate_limit_per_minute",

	"duckdb_path":       "database.path",
	"duckdb_max_memory": "database.max_memory",
	"duckdb_threads":    "database.threads",

	"cache_persistent":       "cache.persistent",
	"cache_dir":              "cache.dir",
	"cache_janitor_interval": "cache.janitor_interval",
	"cache_gc_interval":      "cache.gc_interval",
	"cache_warmup_user_ids":  "cache.warmup_user_ids",

	"cache_ttl_recommendations":    "cache.ttl.recommendations",
	"cache_ttl_user_profile":       "cache.ttl.user_profile",
	"cache_ttl_mutual_connections": "cache.ttl.mutual_connections",
	"cache_ttl_university":         "cache.ttl.university",
	"cache_ttl_embeddings":         "cache.ttl.embeddings",
	"cache_ttl_realtime":           "cache.ttl.realtime",
	"cache_ttl_ab_test":            "cache.ttl.ab_test",

	"engine_version":                 "engine.version",
	"engine_batch_size":              "engine.batch_size",
	"engine_max_candidates":          "engine.max_candidates",
	"engine_default_limit":           "engine.default_limit",
	"engine_max_limit":               "engine.max_limit",
	"engine_min_completeness":        "engine.min_completeness",
	"engine_response_ttl":            "engine.response_ttl",
	"engine_distinct_university_cap": "engine.distinct_university_cap",
	"engine_distinct_department_cap": "engine.distinct_department_cap",

	"engine_weight_university":         "engine.weights.university",
	"engine_weight_mutual_connections": "engine.weights.mutual_connections",
	"engine_weight_interests":          "engine.weights.interests",
	"engine_weight_engagement":         "engine.weights.engagement",
	"engine_weight_geography":          "engine.weights.geography",

	"engine_bonus_recency":            "engine.bonus_weights.recency",
	"engine_bonus_profile_completion": "engine.bonus_weights.profile_completion",
	"engine_bonus_social_history":     "engine.bonus_weights.social_history",

	"log_level":  "logging.level",
	"log_format": "logging.format",
	"log_caller": "logging.caller",
}

// envTransformFunc maps environment variable names to koanf config paths.
//
// Examples:
//   - HTTP_PORT -> server.port
//   - DUCKDB_PATH -> database.path
//   - ENGINE_WEIGHT_UNIVERSITY -> engine.weights.university
func envTransformFunc(key string) string {
	return envMappings[strings.ToLower(key)]
}
