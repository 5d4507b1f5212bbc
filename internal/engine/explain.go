// Affinity - Campus Friend Recommendation Engine
// Copyright 2026 Campusgraph Labs
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/campusgraph/affinity

package engine

import (
	"fmt"
	"strings"
	"time"
)

// Explanation thresholds. Crossing one appends the matching string to a
// candidate's explanation list.
const (
	explainUniversityThreshold   = 0.8
	explainMutualThreshold       = 0.7
	explainInterestsThreshold    = 0.6
	explainEngagementThreshold   = 0.5
	explainCompletenessThreshold = 80
	explainActiveWindow          = 7 * 24 * time.Hour
)

// baseExplanations builds the factual explanation strings attached
// during scoring: institution, mutual count, shared interests.
func baseExplanations(c *Candidate, sameUniversity bool) []string {
	var out []string
	if sameUniversity && c.Metadata.UniversityName != "" {
		out = append(out, fmt.Sprintf("Same university: %s", c.Metadata.UniversityName))
	}
	switch c.Metadata.MutualCount {
	case 0:
	case 1:
		out = append(out, "1 mutual connection")
	default:
		out = append(out, fmt.Sprintf("%d mutual connections", c.Metadata.MutualCount))
	}
	if len(c.Metadata.SharedInterests) > 0 {
		shown := c.Metadata.SharedInterests
		if len(shown) > 3 {
			shown = shown[:3]
		}
		out = append(out, fmt.Sprintf("Shared interests: %s", strings.Join(shown, ", ")))
	}
	return out
}

// thresholdExplanations appends the signal-strength strings for factors
// that crossed their thresholds.
func thresholdExplanations(c *Candidate, now time.Time) []string {
	var out []string
	if c.Factors.University > explainUniversityThreshold {
		out = append(out, "strong university connection")
	}
	if c.Factors.MutualConnections > explainMutualThreshold {
		out = append(out, "high mutual overlap")
	}
	if c.Factors.Interests > explainInterestsThreshold {
		out = append(out, "strong interest alignment")
	}
	if c.Factors.Engagement > explainEngagementThreshold {
		out = append(out, "similar activity patterns")
	}
	if c.Metadata.Completeness > explainCompletenessThreshold {
		out = append(out, "complete profile")
	}
	if !c.Metadata.LastActive.IsZero() && now.Sub(c.Metadata.LastActive) <= explainActiveWindow {
		out = append(out, "recently active")
	}
	return out
}
