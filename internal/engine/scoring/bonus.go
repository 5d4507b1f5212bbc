// Affinity - Campus Friend Recommendation Engine
// Copyright 2026 Campusgraph Labs
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/campusgraph/affinity

package scoring

import (
	"time"

	"github.com/campusgraph/affinity/internal/store"
)

// socialHistoryWindow is the linear-decay horizon for prior interactions
// between the requester and the candidate themselves.
const socialHistoryWindow = 365 * 24 * time.Hour

// socialHistoryWeights score direct requester-candidate interactions.
// Lighter than the mutual-connection weights: this bonus measures prior
// contact, not relationship strength.
var socialHistoryWeights = map[string]float64{
	"like":    0.1,
	"comment": 0.2,
	"share":   0.3,
	"mention": 0.4,
}

// EngagementSimilarity averages three cosine similarities between two
// users' behavioral histograms: hour-of-day/day-of-week pattern,
// activity-type frequencies, and content-type frequencies. Absent history
// on either side scores zero.
func EngagementSimilarity(a, b *store.EngagementPattern) float64 {
	if a == nil || b == nil {
		return 0
	}
	temporal := Cosine(
		append(append([]float64{}, a.HourOfDay...), a.DayOfWeek...),
		append(append([]float64{}, b.HourOfDay...), b.DayOfWeek...))
	activity := SparseCosine(a.ActivityTypes, b.ActivityTypes)
	content := SparseCosine(a.ContentTypes, b.ContentTypes)
	return Clamp01((temporal + activity + content) / 3)
}

// RecencyBonus scores how recently the candidate was active.
func RecencyBonus(lastActive, now time.Time) float64 {
	if lastActive.IsZero() {
		return 0.1
	}
	days := now.Sub(lastActive).Hours() / 24
	switch {
	case days < 1:
		return 1.0
	case days < 7:
		return 0.8
	case days < 30:
		return 0.6
	case days < 90:
		return 0.4
	default:
		return 0.1
	}
}

// CompletionBonus maps profile completeness (0-100) to [0,1].
func CompletionBonus(completeness int) float64 {
	return Clamp01(float64(completeness) / 100)
}

// SocialHistoryBonus sums type-weighted prior interactions between the
// two users, each decayed linearly to zero over a year, capped at 1.
func SocialHistoryBonus(interactions []store.Interaction, now time.Time) float64 {
	var sum float64
	for _, it := range interactions {
		w, ok := socialHistoryWeights[it.Type]
		if !ok {
			continue
		}
		age := now.Sub(it.OccurredAt)
		if age < 0 {
			age = 0
		}
		if age >= socialHistoryWindow {
			continue
		}
		sum += w * (1 - float64(age)/float64(socialHistoryWindow))
	}
	return Clamp01(sum)
}
