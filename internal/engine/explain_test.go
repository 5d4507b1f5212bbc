// Affinity - Campus Friend Recommendation Engine
// Copyright 2026 Campusgraph Labs
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/campusgraph/affinity

package engine

import (
	"testing"
	"time"
)

func TestBaseExplanations(t *testing.T) {
	c := &Candidate{Metadata: CandidateMetadata{
		UniversityName:  "University A",
		MutualCount:     3,
		SharedInterests: []string{"music", "chess"},
	}}

	got := baseExplanations(c, true)
	assertExplanation(t, got, "Same university: University A")
	assertExplanation(t, got, "3 mutual connections")
	assertExplanation(t, got, "Shared interests: music, chess")
}

func TestBaseExplanationsSingularMutual(t *testing.T) {
	c := &Candidate{Metadata: CandidateMetadata{MutualCount: 1}}
	got := baseExplanations(c, false)
	assertExplanation(t, got, "1 mutual connection")
	for _, e := range got {
		if e == "Same university: " {
			t.Error("no university explanation without a shared institution")
		}
	}
}

func TestBaseExplanationsTruncatesInterests(t *testing.T) {
	c := &Candidate{Metadata: CandidateMetadata{
		SharedInterests: []string{"a", "b", "c", "d", "e"},
	}}
	got := baseExplanations(c, false)
	assertExplanation(t, got, "Shared interests: a, b, c")
	for _, e := range got {
		if e == "Shared interests: a, b, c, d, e" {
			t.Error("shared interests must truncate to three")
		}
	}
}

func TestThresholdExplanations(t *testing.T) {
	now := testNow
	c := &Candidate{
		Factors: ScoreFactors{
			University:        0.85,
			MutualConnections: 0.75,
			Interests:         0.65,
			Engagement:        0.55,
		},
		Metadata: CandidateMetadata{
			Completeness: 90,
			LastActive:   now.Add(-24 * time.Hour),
		},
	}

	got := thresholdExplanations(c, now)
	for _, want := range []string{
		"strong university connection",
		"high mutual overlap",
		"strong interest alignment",
		"similar activity patterns",
		"complete profile",
		"recently active",
	} {
		assertExplanation(t, got, want)
	}
}

func TestThresholdExplanationsBelowThresholds(t *testing.T) {
	c := &Candidate{
		Factors: ScoreFactors{
			University:        0.8, // exactly at threshold, not above
			MutualConnections: 0.7,
			Interests:         0.6,
			Engagement:        0.5,
		},
		Metadata: CandidateMetadata{
			Completeness: 80,
			LastActive:   testNow.Add(-8 * 24 * time.Hour),
		},
	}
	if got := thresholdExplanations(c, testNow); len(got) != 0 {
		t.Errorf("boundary values must not cross thresholds, got %v", got)
	}
}
