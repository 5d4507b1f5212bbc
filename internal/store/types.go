// Affinity - Campus Friend Recommendation Engine
// Copyright 2026 Campusgraph Labs
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/campusgraph/affinity

// Package store provides the typed Profile Store consumed by the
// recommendation engine. The engine never operates on untyped maps;
// every row crossing this boundary is one of the structs below.
package store

import (
	"errors"
	"time"
)

// ErrNotFound is returned when a requested record does not exist.
var ErrNotFound = errors.New("store: not found")

// PrivacyLevel controls how widely a user is recommendable.
type PrivacyLevel string

// Privacy levels, from most to least visible.
const (
	PrivacyPublic     PrivacyLevel = "public"
	PrivacyUniversity PrivacyLevel = "university"
	PrivacyFriends    PrivacyLevel = "friends"
	PrivacyPrivate    PrivacyLevel = "private"
)

// Valid reports whether the level is one of the known values.
func (p PrivacyLevel) Valid() bool {
	switch p {
	case PrivacyPublic, PrivacyUniversity, PrivacyFriends, PrivacyPrivate:
		return true
	}
	return false
}

// Location is a WGS84 coordinate pair.
type Location struct {
	Latitude  float64 `json:"latitude"`
	Longitude float64 `json:"longitude"`
}

// Zero reports whether the location is unset.
func (l Location) Zero() bool {
	return l.Latitude == 0 && l.Longitude == 0
}

// UniversityProfile holds the institutional attributes of a user.
type UniversityProfile struct {
	UniversityID   string   `json:"university_id"`
	UniversityName string   `json:"university_name"`
	Department     string   `json:"department"`
	Major          string   `json:"major"`
	GraduationYear int      `json:"graduation_year"`
	CurrentStudent bool     `json:"current_student"`
	ResearchType   bool     `json:"research_type"`
	GlobalRank     int      `json:"global_rank"`
	Region         string   `json:"region"`
	Location       Location `json:"location"`
}

// InterestProfile holds a user's declared and behavioral interests.
type InterestProfile struct {
	Interests         []string            `json:"interests"`
	RecentInterests   []string            `json:"recent_interests"`
	TrendingInterests []string            `json:"trending_interests"`
	SeasonalInterests map[string][]string `json:"seasonal_interests"`

	// Behavioral count maps: interest -> weight.
	PostInterests   map[string]float64 `json:"post_interests"`
	LikeInterests   map[string]float64 `json:"like_interests"`
	ShareInterests  map[string]float64 `json:"share_interests"`
	SearchInterests map[string]float64 `json:"search_interests"`
	TimeSpent       map[string]float64 `json:"time_spent"`

	UpdatedAt time.Time `json:"updated_at"`
}

// Profile is a complete user record as seen by the engine.
type Profile struct {
	ID           string            `json:"id"`
	DisplayName  string            `json:"display_name"`
	UserType     string            `json:"user_type"` // student, alumni, faculty
	Privacy      PrivacyLevel      `json:"privacy"`
	University   UniversityProfile `json:"university"`
	Interests    InterestProfile   `json:"interests"`
	Location     Location          `json:"location"`
	Completeness int               `json:"completeness"` // 0-100
	LastActive   time.Time         `json:"last_active"`
	CreatedAt    time.Time         `json:"created_at"`
}

// CandidateRow is one row of the filtered candidate pool. It carries the
// full profile so scoring requires no further per-candidate lookups for
// profile attributes.
type CandidateRow struct {
	Profile
}

// CandidateFilter describes the candidate pool query.
type CandidateFilter struct {
	// RequesterID is always excluded from results.
	RequesterID string

	// ExcludeIDs holds explicit exclusions, blocked users, and existing
	// connections, pre-merged by the retriever.
	ExcludeIDs []string

	// SameUniversityID restricts results to one institution when the
	// effective privacy level is university or friends. Empty disables
	// the restriction.
	SameUniversityID string

	// IncludeTypes / ExcludeTypes filter on user type. An empty include
	// list admits every type.
	IncludeTypes []string
	ExcludeTypes []string

	// MaxAgeDays drops candidates whose last activity is older. Zero
	// disables the filter.
	MaxAgeDays int

	// MinCompleteness drops candidates below this completeness score.
	MinCompleteness int

	// Limit caps the pool; the store enforces a hard ceiling of
	// MaxCandidatePool regardless of this value.
	Limit int
}

// MaxCandidatePool is the hard cap on the candidate pool size.
const MaxCandidatePool = 1000

// Interaction is a single event between two users.
type Interaction struct {
	Type       string    `json:"type"` // like, comment, share, mention, message, follow
	OccurredAt time.Time `json:"occurred_at"`
}

// EngagementPattern holds a user's behavioral activity histograms.
type EngagementPattern struct {
	UserID string `json:"user_id"`

	// HourOfDay has 24 buckets, DayOfWeek 7 (Sunday first).
	HourOfDay []float64 `json:"hour_of_day"`
	DayOfWeek []float64 `json:"day_of_week"`

	ActivityTypes map[string]float64 `json:"activity_types"`
	ContentTypes  map[string]float64 `json:"content_types"`
}
