// Affinity - Campus Friend Recommendation Engine
// Copyright 2026 Campusgraph Labs
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/campusgraph/affinity

package engine

import (
	"fmt"
	"math"
	"time"

	"github.com/campusgraph/affinity/internal/config"
)

// weightEpsilon is the tolerance for weight-sum checks.
const weightEpsilon = 1e-9

// Weights are the core factor weights. They must sum to 1.0.
type Weights struct {
	University        float64 `json:"university"`
	MutualConnections float64 `json:"mutual_connections"`
	Interests         float64 `json:"interests"`
	Engagement        float64 `json:"engagement"`
	Geography         float64 `json:"geography"`
}

// Sum returns the total of all core weights.
func (w Weights) Sum() float64 {
	return w.University + w.MutualConnections + w.Interests + w.Engagement + w.Geography
}

// BonusWeights are the additive extras. They must sum to 0.10.
type BonusWeights struct {
	Recency           float64 `json:"recency"`
	ProfileCompletion float64 `json:"profile_completion"`
	SocialHistory     float64 `json:"social_history"`
}

// Sum returns the total of all bonus weights.
func (w BonusWeights) Sum() float64 {
	return w.Recency + w.ProfileCompletion + w.SocialHistory
}

// Parameters are the runtime-adjustable pipeline settings.
type Parameters struct {
	BatchSize             int           `json:"batch_size"`
	MaxCandidates         int           `json:"max_candidates"`
	DefaultLimit          int           `json:"default_limit"`
	MaxLimit              int           `json:"max_limit"`
	MinCompleteness       int           `json:"min_completeness"`
	DistinctUniversityCap int           `json:"distinct_university_cap"`
	DistinctDepartmentCap int           `json:"distinct_department_cap"`
	ResponseTTL           time.Duration `json:"response_ttl"`
}

// Configuration is the introspection snapshot returned by
// GetConfiguration.
type Configuration struct {
	Version      string       `json:"version"`
	Weights      Weights      `json:"weights"`
	BonusWeights BonusWeights `json:"bonus_weights"`
	Parameters   Parameters   `json:"parameters"`
}

// WeightsUpdate is a partial core-weight update; nil fields keep their
// current value. The resulting set must still sum to 1.0.
type WeightsUpdate struct {
	University        *float64 `json:"university,omitempty"`
	MutualConnections *float64 `json:"mutual_connections,omitempty"`
	Interests         *float64 `json:"interests,omitempty"`
	Engagement        *float64 `json:"engagement,omitempty"`
	Geography         *float64 `json:"geography,omitempty"`

	Recency           *float64 `json:"recency,omitempty"`
	ProfileCompletion *float64 `json:"profile_completion,omitempty"`
	SocialHistory     *float64 `json:"social_history,omitempty"`
}

// ParametersUpdate is a partial parameter update; nil fields keep their
// current value.
type ParametersUpdate struct {
	BatchSize             *int           `json:"batch_size,omitempty"`
	MaxCandidates         *int           `json:"max_candidates,omitempty"`
	DefaultLimit          *int           `json:"default_limit,omitempty"`
	MaxLimit              *int           `json:"max_limit,omitempty"`
	MinCompleteness       *int           `json:"min_completeness,omitempty"`
	DistinctUniversityCap *int           `json:"distinct_university_cap,omitempty"`
	DistinctDepartmentCap *int           `json:"distinct_department_cap,omitempty"`
	ResponseTTL           *time.Duration `json:"response_ttl,omitempty"`
}

// configurationFrom builds the runtime configuration from loaded config.
func configurationFrom(cfg config.EngineConfig) Configuration {
	return Configuration{
		Version: cfg.Version,
		Weights: Weights{
			University:        cfg.Weights.University,
			MutualConnections: cfg.Weights.MutualConnections,
			Interests:         cfg.Weights.Interests,
			Engagement:        cfg.Weights.Engagement,
			Geography:         cfg.Weights.Geography,
		},
		BonusWeights: BonusWeights{
			Recency:           cfg.BonusWeights.Recency,
			ProfileCompletion: cfg.BonusWeights.ProfileCompletion,
			SocialHistory:     cfg.BonusWeights.SocialHistory,
		},
		Parameters: Parameters{
			BatchSize:             cfg.BatchSize,
			MaxCandidates:         cfg.MaxCandidates,
			DefaultLimit:          cfg.DefaultLimit,
			MaxLimit:              cfg.MaxLimit,
			MinCompleteness:       cfg.MinCompleteness,
			DistinctUniversityCap: cfg.DistinctUniversityCap,
			DistinctDepartmentCap: cfg.DistinctDepartmentCap,
			ResponseTTL:           cfg.ResponseTTL,
		},
	}
}

// GetConfiguration returns a snapshot of the active configuration.
func (e *Engine) GetConfiguration() Configuration {
	e.configMu.RLock()
	defer e.configMu.RUnlock()
	return e.config
}

// UpdateWeights applies a partial weight update. The candidate set is
// validated before it replaces the active weights; on failure nothing
// changes.
func (e *Engine) UpdateWeights(update WeightsUpdate) error {
	e.configMu.Lock()
	defer e.configMu.Unlock()

	w := e.config.Weights
	applyFloat(&w.University, update.University)
	applyFloat(&w.MutualConnections, update.MutualConnections)
	applyFloat(&w.Interests, update.Interests)
	applyFloat(&w.Engagement, update.Engagement)
	applyFloat(&w.Geography, update.Geography)

	b := e.config.BonusWeights
	applyFloat(&b.Recency, update.Recency)
	applyFloat(&b.ProfileCompletion, update.ProfileCompletion)
	applyFloat(&b.SocialHistory, update.SocialHistory)

	if err := validateWeights(w, b); err != nil {
		return err
	}

	e.config.Weights = w
	e.config.BonusWeights = b
	e.logger.Info().
		Float64("university", w.University).
		Float64("mutual_connections", w.MutualConnections).
		Float64("interests", w.Interests).
		Float64("engagement", w.Engagement).
		Float64("geography", w.Geography).
		Msg("scoring weights updated")
	return nil
}

// UpdateParameters applies a partial parameter update, validated before
// apply.
func (e *Engine) UpdateParameters(update ParametersUpdate) error {
	e.configMu.Lock()
	defer e.configMu.Unlock()

	p := e.config.Parameters
	applyInt(&p.BatchSize, update.BatchSize)
	applyInt(&p.MaxCandidates, update.MaxCandidates)
	applyInt(&p.DefaultLimit, update.DefaultLimit)
	applyInt(&p.MaxLimit, update.MaxLimit)
	applyInt(&p.MinCompleteness, update.MinCompleteness)
	applyInt(&p.DistinctUniversityCap, update.DistinctUniversityCap)
	applyInt(&p.DistinctDepartmentCap, update.DistinctDepartmentCap)
	if update.ResponseTTL != nil {
		p.ResponseTTL = *update.ResponseTTL
	}

	if err := validateParameters(p); err != nil {
		return err
	}

	e.config.Parameters = p
	e.logger.Info().Msg("engine parameters updated")
	return nil
}

func validateWeights(w Weights, b BonusWeights) error {
	for name, v := range map[string]float64{
		"university":         w.University,
		"mutual_connections": w.MutualConnections,
		"interests":          w.Interests,
		"engagement":         w.Engagement,
		"geography":          w.Geography,
		"recency":            b.Recency,
		"profile_completion": b.ProfileCompletion,
		"social_history":     b.SocialHistory,
	} {
		if v < 0 || v > 1 {
			return fmt.Errorf("weight %s out of range [0,1]: %v", name, v)
		}
	}
	if math.Abs(w.Sum()-1.0) > weightEpsilon {
		return fmt.Errorf("core weights must sum to 1.0, got %v", w.Sum())
	}
	if math.Abs(b.Sum()-0.10) > weightEpsilon {
		return fmt.Errorf("bonus weights must sum to 0.10, got %v", b.Sum())
	}
	return nil
}

func validateParameters(p Parameters) error {
	if p.BatchSize <= 0 {
		return fmt.Errorf("batch_size must be positive, got %d", p.BatchSize)
	}
	if p.MaxCandidates <= 0 || p.MaxCandidates > 1000 {
		return fmt.Errorf("max_candidates must be in (0,1000], got %d", p.MaxCandidates)
	}
	if p.DefaultLimit <= 0 || p.MaxLimit <= 0 || p.DefaultLimit > p.MaxLimit {
		return fmt.Errorf("limits invalid: default %d, max %d", p.DefaultLimit, p.MaxLimit)
	}
	if p.MinCompleteness < 0 || p.MinCompleteness > 100 {
		return fmt.Errorf("min_completeness must be in [0,100], got %d", p.MinCompleteness)
	}
	if p.DistinctUniversityCap <= 0 || p.DistinctDepartmentCap <= 0 {
		return fmt.Errorf("diversity caps must be positive")
	}
	if p.ResponseTTL <= 0 {
		return fmt.Errorf("response_ttl must be positive, got %v", p.ResponseTTL)
	}
	return nil
}

func applyFloat(dst *float64, src *float64) {
	if src != nil {
		*dst = *src
	}
}

func applyInt(dst *int, src *int) {
	if src != nil {
		*dst = *src
	}
}
