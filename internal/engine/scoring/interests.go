// Affinity - Campus Friend Recommendation Engine
// Copyright 2026 Campusgraph Labs
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/campusgraph/affinity

package scoring

import (
	"strings"
	"time"

	"github.com/campusgraph/affinity/internal/store"
)

// Interest component weights.
const (
	interestWeightExact      = 0.40
	interestWeightCategory   = 0.25
	interestWeightSemantic   = 0.20
	interestWeightBehavioral = 0.10
	interestWeightTemporal   = 0.05
)

// interestRecencyWindow is how long a profile update stays fresh; the
// recency metadata signal decays linearly to zero over it.
const interestRecencyWindow = 30 * 24 * time.Hour

// interestCategory is one of the fixed interest taxonomies.
type interestCategory struct {
	name   string
	weight float64
	terms  map[string]struct{}
}

// interestCategories is the fixed five-category taxonomy. Category
// weights sum to 1.0.
var interestCategories = []interestCategory{
	{name: "Academic", weight: 0.25, terms: termSet(
		"research", "mathematics", "physics", "chemistry", "biology",
		"economics", "philosophy", "history", "literature", "psychology",
		"engineering", "medicine", "law", "statistics", "linguistics",
	)},
	{name: "Technology", weight: 0.25, terms: termSet(
		"programming", "machine learning", "artificial intelligence",
		"robotics", "gaming", "cybersecurity", "web development",
		"data science", "electronics", "startups", "blockchain",
		"open source", "mobile apps",
	)},
	{name: "Arts & Culture", weight: 0.20, terms: termSet(
		"music", "painting", "photography", "theater", "film", "dance",
		"writing", "poetry", "sculpture", "design", "fashion", "museums",
		"languages",
	)},
	{name: "Sports & Fitness", weight: 0.15, terms: termSet(
		"soccer", "basketball", "tennis", "running", "swimming", "cycling",
		"yoga", "climbing", "hiking", "gym", "volleyball", "martial arts",
		"skiing",
	)},
	{name: "Lifestyle", weight: 0.15, terms: termSet(
		"cooking", "travel", "food", "coffee", "volunteering", "gardening",
		"board games", "reading", "pets", "sustainability", "meditation",
	)},
}

func termSet(terms ...string) map[string]struct{} {
	m := make(map[string]struct{}, len(terms))
	for _, t := range terms {
		m[t] = struct{}{}
	}
	return m
}

// InterestResult carries the interest similarity score, its component
// values, and the metadata surfaced in candidate explanations.
type InterestResult struct {
	Value float64

	ExactMatch float64
	Category   float64
	Semantic   float64
	Behavioral float64
	Temporal   float64

	SharedInterests []string
	CategoryOverlap float64
	DiversityRatio  float64
	Recency         float64
}

// InterestScorer scores interest similarity between two users using
// exact-match, category, semantic-embedding, behavioral, and temporal
// components.
type InterestScorer struct {
	embeddings *Embeddings
}

// NewInterestScorer creates an interest scorer with its own embedding
// table. The table is shared safely across concurrent scoring calls.
func NewInterestScorer() *InterestScorer {
	return &InterestScorer{embeddings: NewEmbeddings()}
}

// Score computes interest similarity between requester a and candidate b
// at the given time.
func (s *InterestScorer) Score(a, b *store.InterestProfile, now time.Time) InterestResult {
	var r InterestResult
	if a == nil || b == nil {
		return r
	}

	r.ExactMatch = Jaccard(a.Interests, b.Interests)
	r.Category = s.categoryScore(a.Interests, b.Interests)
	r.Semantic = Clamp01(Cosine(
		s.embeddings.ProfileVector(a.Interests),
		s.embeddings.ProfileVector(b.Interests)))
	r.Behavioral = behavioralScore(a, b)
	r.Temporal = temporalScore(a, b, now)

	r.Value = Clamp01(r.ExactMatch*interestWeightExact +
		r.Category*interestWeightCategory +
		r.Semantic*interestWeightSemantic +
		r.Behavioral*interestWeightBehavioral +
		r.Temporal*interestWeightTemporal)

	r.SharedInterests = Intersect(a.Interests, b.Interests)
	r.CategoryOverlap = categoryOverlap(a.Interests, b.Interests)
	r.DiversityRatio = diversityRatio(a.Interests, b.Interests)
	r.Recency = (updateRecency(a.UpdatedAt, now) + updateRecency(b.UpdatedAt, now)) / 2
	return r
}

// categoryScore averages per-category Jaccard similarity over categories
// with any membership on either side, weighted by category weight.
func (s *InterestScorer) categoryScore(a, b []string) float64 {
	var weighted, totalWeight float64
	for _, cat := range interestCategories {
		subA := categorySubset(a, cat)
		subB := categorySubset(b, cat)
		if len(subA) == 0 && len(subB) == 0 {
			continue
		}
		weighted += Jaccard(subA, subB) * cat.weight
		totalWeight += cat.weight
	}
	if totalWeight == 0 {
		return 0
	}
	return weighted / totalWeight
}

func categorySubset(interests []string, cat interestCategory) []string {
	var out []string
	for _, interest := range interests {
		if _, ok := cat.terms[strings.ToLower(interest)]; ok {
			out = append(out, interest)
		}
	}
	return out
}

// behavioralScore averages sparse cosine similarity over the five
// behavioral count maps.
func behavioralScore(a, b *store.InterestProfile) float64 {
	sum := SparseCosine(a.PostInterests, b.PostInterests) +
		SparseCosine(a.LikeInterests, b.LikeInterests) +
		SparseCosine(a.ShareInterests, b.ShareInterests) +
		SparseCosine(a.SearchInterests, b.SearchInterests) +
		SparseCosine(a.TimeSpent, b.TimeSpent)
	return sum / 5
}

// temporalScore averages exact-match similarity over recent interests,
// trending interests, and the interests tagged with the current season.
func temporalScore(a, b *store.InterestProfile, now time.Time) float64 {
	season := seasonOf(now)
	sum := Jaccard(a.RecentInterests, b.RecentInterests) +
		Jaccard(a.TrendingInterests, b.TrendingInterests) +
		Jaccard(a.SeasonalInterests[season], b.SeasonalInterests[season])
	return sum / 3
}

// seasonOf maps a time to its meteorological season key.
func seasonOf(t time.Time) string {
	switch t.Month() {
	case time.March, time.April, time.May:
		return "spring"
	case time.June, time.July, time.August:
		return "summer"
	case time.September, time.October, time.November:
		return "autumn"
	default:
		return "winter"
	}
}

// categoryOverlap is the fraction of populated categories covered by
// both users.
func categoryOverlap(a, b []string) float64 {
	var either, both int
	for _, cat := range interestCategories {
		hasA := len(categorySubset(a, cat)) > 0
		hasB := len(categorySubset(b, cat)) > 0
		if hasA || hasB {
			either++
		}
		if hasA && hasB {
			both++
		}
	}
	if either == 0 {
		return 0
	}
	return float64(both) / float64(either)
}

// diversityRatio is the fraction of the taxonomy covered by the combined
// interest lists.
func diversityRatio(a, b []string) float64 {
	covered := 0
	for _, cat := range interestCategories {
		if len(categorySubset(a, cat)) > 0 || len(categorySubset(b, cat)) > 0 {
			covered++
		}
	}
	return float64(covered) / float64(len(interestCategories))
}

// updateRecency decays linearly from 1 to 0 as a profile update ages
// toward the 30-day window. Unknown update times score zero.
func updateRecency(updated time.Time, now time.Time) float64 {
	if updated.IsZero() {
		return 0
	}
	age := now.Sub(updated)
	if age < 0 {
		return 1
	}
	if age >= interestRecencyWindow {
		return 0
	}
	return 1 - float64(age)/float64(interestRecencyWindow)
}
