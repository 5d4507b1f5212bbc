// Affinity - Campus Friend Recommendation Engine
// Copyright 2026 Campusgraph Labs
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/campusgraph/affinity

package store

import (
	"strings"
	"testing"
	"time"
)

func TestBuildCandidateQueryBaseline(t *testing.T) {
	now := time.Date(2026, 6, 1, 12, 0, 0, 0, time.UTC)
	query, args := buildCandidateQuery(CandidateFilter{RequesterID: "u1"}, now)

	if !strings.Contains(query, "id <> ?") {
		t.Errorf("query must always exclude the requester: %s", query)
	}
	if !strings.Contains(query, "privacy <> ?") {
		t.Errorf("query must always exclude private profiles: %s", query)
	}
	if !strings.Contains(query, "ORDER BY completeness DESC, last_active DESC") {
		t.Errorf("unexpected ordering: %s", query)
	}
	if !strings.Contains(query, "LIMIT 1000") {
		t.Errorf("zero limit must fall back to the pool cap: %s", query)
	}
	if strings.Contains(query, "NOT IN") || strings.Contains(query, "university_id") {
		t.Errorf("optional clauses present without filter values: %s", query)
	}
	want := []any{"u1", string(PrivacyPrivate)}
	assertArgs(t, args, want)
}

func TestBuildCandidateQueryAllFilters(t *testing.T) {
	now := time.Date(2026, 6, 1, 12, 0, 0, 0, time.UTC)
	filter := CandidateFilter{
		RequesterID:      "u1",
		ExcludeIDs:       []string{"u2", "u3"},
		SameUniversityID: "mit",
		IncludeTypes:     []string{"student", "alumni"},
		ExcludeTypes:     []string{"faculty"},
		MaxAgeDays:       30,
		MinCompleteness:  30,
		Limit:            200,
	}
	query, args := buildCandidateQuery(filter, now)

	for _, clause := range []string{
		"id NOT IN (?, ?)",
		"university_id = ?",
		"user_type IN (?, ?)",
		"user_type NOT IN (?)",
		"last_active >= ?",
		"completeness >= ?",
		"LIMIT 200",
	} {
		if !strings.Contains(query, clause) {
			t.Errorf("missing clause %q in %s", clause, query)
		}
	}

	want := []any{
		"u1", "u2", "u3", "mit", string(PrivacyPrivate),
		"student", "alumni", "faculty",
		now.AddDate(0, 0, -30), 30,
	}
	assertArgs(t, args, want)
}

func TestBuildCandidateQueryPoolCap(t *testing.T) {
	tests := []struct {
		name  string
		limit int
		want  string
	}{
		{"zero uses cap", 0, "LIMIT 1000"},
		{"negative uses cap", -5, "LIMIT 1000"},
		{"within cap kept", 400, "LIMIT 400"},
		{"above cap clamped", 5000, "LIMIT 1000"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			query, _ := buildCandidateQuery(CandidateFilter{RequesterID: "u1", Limit: tt.limit}, time.Now())
			if !strings.HasSuffix(query, tt.want) {
				t.Errorf("limit %d: got query suffix %q, want %q", tt.limit, query, tt.want)
			}
		})
	}
}

func TestPlaceholders(t *testing.T) {
	if got := placeholders(1); got != "?" {
		t.Errorf("placeholders(1) = %q", got)
	}
	if got := placeholders(3); got != "?, ?, ?" {
		t.Errorf("placeholders(3) = %q", got)
	}
}

func assertArgs(t *testing.T, got, want []any) {
	t.Helper()
	if len(got) != len(want) {
		t.Fatalf("got %d args %v, want %d %v", len(got), got, len(want), want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("arg %d = %v, want %v", i, got[i], want[i])
		}
	}
}
