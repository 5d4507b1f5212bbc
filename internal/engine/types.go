// Affinity - Campus Friend Recommendation Engine
// Copyright 2026 Campusgraph Labs
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/campusgraph/affinity

package engine

import (
	"time"

	"github.com/campusgraph/affinity/internal/store"
)

// Request asks for friend recommendations for one user. Immutable once
// normalized; the engine derives the response cache key from the
// normalized form, so identical requests share cache entries.
type Request struct {
	RequesterID string `json:"requester_id" validate:"required"`

	// Limit is the maximum number of recommendations returned. Zero
	// means the configured default.
	Limit int `json:"limit" validate:"gte=0"`

	// ExcludeIDs are explicitly excluded candidate IDs, merged with
	// blocked users and existing connections during retrieval.
	ExcludeIDs []string `json:"exclude_ids,omitempty"`

	IncludeTypes []string `json:"include_types,omitempty" validate:"dive,oneof=student alumni faculty"`
	ExcludeTypes []string `json:"exclude_types,omitempty" validate:"dive,oneof=student alumni faculty"`

	// MinScore drops candidates whose final score falls below it (0-100).
	MinScore float64 `json:"min_score" validate:"gte=0,lte=100"`

	// MaxAgeDays drops candidates inactive for longer. Zero disables.
	MaxAgeDays int `json:"max_age_days" validate:"gte=0"`

	// DiversityFactor controls how aggressively results are thinned to
	// avoid over-representing one institution. 1.0 keeps everything.
	DiversityFactor float64 `json:"diversity_factor" validate:"gte=0,lte=1"`

	// Privacy is the effective privacy level for the request. Empty
	// defaults to the requester's own level.
	Privacy store.PrivacyLevel `json:"privacy,omitempty" validate:"omitempty,oneof=public university friends private"`
}

// ScoreFactors are the eight raw signals for one candidate, each in
// [0,1] before weighting.
type ScoreFactors struct {
	University        float64 `json:"university"`
	MutualConnections float64 `json:"mutual_connections"`
	Interests         float64 `json:"interests"`
	Engagement        float64 `json:"engagement"`
	Geography         float64 `json:"geography"`
	Recency           float64 `json:"recency"`
	ProfileCompletion float64 `json:"profile_completion"`
	SocialHistory     float64 `json:"social_history"`
}

// CandidateMetadata is the free-form detail attached to one
// recommendation.
type CandidateMetadata struct {
	UniversityName  string    `json:"university_name,omitempty"`
	Department      string    `json:"department,omitempty"`
	MutualCount     int       `json:"mutual_count"`
	SharedInterests []string  `json:"shared_interests,omitempty"`
	LastActive      time.Time `json:"last_active,omitempty"`
	Completeness    int       `json:"completeness"`
}

// Candidate is one scored recommendation.
type Candidate struct {
	ID           string            `json:"id"`
	Score        float64           `json:"score"` // 0-100
	Factors      ScoreFactors      `json:"factors"`
	Explanations []string          `json:"explanations"`
	Metadata     CandidateMetadata `json:"metadata"`
}

// ResponseMetadata describes how a response was produced.
type ResponseMetadata struct {
	Weights      Weights            `json:"weights"`
	BonusWeights BonusWeights       `json:"bonus_weights"`
	Diversity    float64            `json:"diversity"` // distinct universities / returned count
	Privacy      store.PrivacyLevel `json:"privacy"`
	GeneratedAt  time.Time          `json:"generated_at"`
}

// Response is the full recommendation result.
type Response struct {
	Recommendations []Candidate `json:"recommendations"`

	// TotalCandidates is the pre-filter candidate pool size.
	TotalCandidates int `json:"total_candidates"`

	AlgorithmVersion string           `json:"algorithm_version"`
	ProcessingTimeMS int64            `json:"processing_time_ms"`
	CacheHit         bool             `json:"cache_hit"`
	Metadata         ResponseMetadata `json:"metadata"`
}
