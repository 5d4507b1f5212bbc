// Affinity - Campus Friend Recommendation Engine
// Copyright 2026 Campusgraph Labs
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/campusgraph/affinity

package scoring

import (
	"context"
	"errors"
	"math"
	"testing"
	"time"

	"github.com/campusgraph/affinity/internal/cache"
	"github.com/campusgraph/affinity/internal/store"
)

// fakeStore is a map-backed ProfileStore for scorer tests.
type fakeStore struct {
	profiles     map[string]*store.Profile
	mutuals      map[string][]string // "a|b" -> ids
	interactions map[string][]store.Interaction
	failMutuals  bool
	profileCalls int
}

func pairKey(a, b string) string { return a + "|" + b }

func (f *fakeStore) GetUserProfile(_ context.Context, id string) (*store.Profile, error) {
	f.profileCalls++
	p, ok := f.profiles[id]
	if !ok {
		return nil, store.ErrNotFound
	}
	return p, nil
}

func (f *fakeStore) GetBlockedUsers(context.Context, string) ([]string, error) { return nil, nil }

func (f *fakeStore) GetExistingConnections(context.Context, string) ([]string, error) {
	return nil, nil
}

func (f *fakeStore) GetCandidates(context.Context, store.CandidateFilter) ([]store.CandidateRow, error) {
	return nil, nil
}

func (f *fakeStore) GetMutualConnections(_ context.Context, a, b string) ([]string, error) {
	if f.failMutuals {
		return nil, errors.New("store down")
	}
	return f.mutuals[pairKey(a, b)], nil
}

func (f *fakeStore) GetUserInteractions(_ context.Context, a, b string) ([]store.Interaction, error) {
	return f.interactions[pairKey(a, b)], nil
}

func (f *fakeStore) GetConnectionInteractions(_ context.Context, connID, userID string) ([]store.Interaction, error) {
	return f.interactions[pairKey(connID, userID)], nil
}

func (f *fakeStore) GetUserEngagementPattern(context.Context, string) (*store.EngagementPattern, error) {
	return nil, store.ErrNotFound
}

func (f *fakeStore) GetUniversityRanking(context.Context, string) (int, error) {
	return 0, store.ErrNotFound
}

func (f *fakeStore) GetDepartmentRanking(context.Context, string, string) (int, error) {
	return 0, store.ErrNotFound
}

func testProfile(id, universityID string, interests ...string) *store.Profile {
	return &store.Profile{
		ID:         id,
		University: store.UniversityProfile{UniversityID: universityID},
		Interests:  store.InterestProfile{Interests: interests},
	}
}

func TestMutualScoreEmptySetIsZero(t *testing.T) {
	fs := &fakeStore{profiles: map[string]*store.Profile{}, mutuals: map[string][]string{}}
	s := NewMutualScorer(fs, nil, cache.NewTTLTable(nil))

	r, err := s.Score(context.Background(), testProfile("a", "u"), testProfile("b", "u"), scoringNow)
	if err != nil {
		t.Fatal(err)
	}
	if r.Value != 0 || r.Count != 0 || len(r.Connections) != 0 {
		t.Errorf("empty mutual set must score zero, got %+v", r)
	}
}

func TestMutualScoreStoreFailure(t *testing.T) {
	fs := &fakeStore{failMutuals: true}
	s := NewMutualScorer(fs, nil, cache.NewTTLTable(nil))

	if _, err := s.Score(context.Background(), testProfile("a", "u"), testProfile("b", "u"), scoringNow); err == nil {
		t.Fatal("expected store error to surface")
	}
}

func TestMutualScoreSingleConnection(t *testing.T) {
	a := testProfile("a", "uni-1", "programming", "music")
	b := testProfile("b", "uni-1", "programming", "running")
	conn := testProfile("c1", "uni-1", "programming")

	fs := &fakeStore{
		profiles: map[string]*store.Profile{"a": a, "b": b, "c1": conn},
		mutuals:  map[string][]string{pairKey("a", "b"): {"c1"}},
		interactions: map[string][]store.Interaction{
			pairKey("c1", "a"): {
				{Type: "message", OccurredAt: scoringNow.Add(-24 * time.Hour)},
				{Type: "like", OccurredAt: scoringNow.Add(-48 * time.Hour)},
			},
		},
	}
	s := NewMutualScorer(fs, nil, cache.NewTTLTable(nil))

	r, err := s.Score(context.Background(), a, b, scoringNow)
	if err != nil {
		t.Fatal(err)
	}
	if r.Count != 1 {
		t.Fatalf("count = %d, want 1", r.Count)
	}

	cs := r.Connections[0]
	// Two interactions within a week: direct = .6 + .1, decay = 1.0.
	if math.Abs(cs.Direct-0.7) > 1e-9 {
		t.Errorf("direct = %v, want 0.7", cs.Direct)
	}
	if cs.TimeDecay != 1.0 {
		t.Errorf("time decay = %v, want 1.0", cs.TimeDecay)
	}
	// Connection holds the pair's single shared interest.
	if cs.SharedInterests != 1.0 {
		t.Errorf("shared-interest ratio = %v, want 1.0", cs.SharedInterests)
	}
	if cs.University != 1.0 {
		t.Errorf("university indicator = %v, want 1.0", cs.University)
	}
	// 2 distinct types of 6, 2 interactions of 10, averaged.
	wantEngagement := (2.0/6 + 2.0/10) / 2
	if math.Abs(cs.Engagement-wantEngagement) > 1e-9 {
		t.Errorf("engagement = %v, want %v", cs.Engagement, wantEngagement)
	}

	wantStrength := 0.7*0.30 + 1.0*0.25 + 1.0*0.20 + 1.0*0.15 + wantEngagement*0.10
	if math.Abs(cs.Strength-wantStrength) > 1e-9 {
		t.Errorf("strength = %v, want %v", cs.Strength, wantStrength)
	}

	// Set blend: count 1/50, mean = strength, quality 1 (strength > .7),
	// recency 1.0 (interaction yesterday).
	wantValue := (1.0/50)*0.30 + wantStrength*0.40 + 1.0*0.20 + 1.0*0.10
	if math.Abs(r.Value-wantValue) > 1e-9 {
		t.Errorf("value = %v, want %v", r.Value, wantValue)
	}
}

func TestMutualScoreNoInteractions(t *testing.T) {
	a := testProfile("a", "uni-1")
	b := testProfile("b", "uni-2")
	conn := testProfile("c1", "uni-3")

	fs := &fakeStore{
		profiles:     map[string]*store.Profile{"a": a, "b": b, "c1": conn},
		mutuals:      map[string][]string{pairKey("a", "b"): {"c1"}},
		interactions: map[string][]store.Interaction{},
	}
	s := NewMutualScorer(fs, nil, cache.NewTTLTable(nil))

	r, err := s.Score(context.Background(), a, b, scoringNow)
	if err != nil {
		t.Fatal(err)
	}
	cs := r.Connections[0]
	if cs.Direct != 0 || cs.TimeDecay != 0 || cs.Engagement != 0 || cs.University != 0 {
		t.Errorf("silent stranger connection must score zero sub-factors, got %+v", cs)
	}
	if r.Recency != 0 {
		t.Errorf("recency without interactions = %v, want 0", r.Recency)
	}
}

func TestMutualScoreStrengthCaching(t *testing.T) {
	a := testProfile("a", "uni-1", "programming")
	b := testProfile("b", "uni-1", "programming")
	conn := testProfile("c1", "uni-1", "programming")

	fs := &fakeStore{
		profiles:     map[string]*store.Profile{"a": a, "b": b, "c1": conn},
		mutuals:      map[string][]string{pairKey("a", "b"): {"c1"}},
		interactions: map[string][]store.Interaction{},
	}
	mem := cache.NewMemory(0)
	defer mem.Close()
	s := NewMutualScorer(fs, mem, cache.NewTTLTable(nil))

	first, err := s.Score(context.Background(), a, b, scoringNow)
	if err != nil {
		t.Fatal(err)
	}
	callsAfterFirst := fs.profileCalls

	second, err := s.Score(context.Background(), a, b, scoringNow)
	if err != nil {
		t.Fatal(err)
	}
	if fs.profileCalls != callsAfterFirst {
		t.Errorf("second score must serve connection strength from cache, profile calls %d -> %d",
			callsAfterFirst, fs.profileCalls)
	}
	if first.Value != second.Value {
		t.Errorf("cached score differs: %v vs %v", first.Value, second.Value)
	}
}
