// Affinity - Campus Friend Recommendation Engine
// Copyright 2026 Campusgraph Labs
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/campusgraph/affinity

package engine

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/campusgraph/affinity/internal/cache"
	"github.com/campusgraph/affinity/internal/config"
	"github.com/campusgraph/affinity/internal/store"
)

var testNow = time.Date(2026, 6, 1, 12, 0, 0, 0, time.UTC)

func testEngineConfig() config.EngineConfig {
	return config.EngineConfig{
		Version: "2.3.0",
		Weights: config.WeightsConfig{
			University:        0.40,
			MutualConnections: 0.25,
			Interests:         0.20,
			Engagement:        0.10,
			Geography:         0.05,
		},
		BonusWeights: config.BonusWeightsConfig{
			Recency:           0.05,
			ProfileCompletion: 0.03,
			SocialHistory:     0.02,
		},
		BatchSize:             50,
		MaxCandidates:         1000,
		DefaultLimit:          20,
		MaxLimit:              100,
		MinCompleteness:       0,
		DistinctUniversityCap: 5,
		DistinctDepartmentCap: 10,
		ResponseTTL:           30 * time.Minute,
	}
}

// fakeStore is a map-backed ProfileStore for engine tests.
type fakeStore struct {
	profiles     map[string]*store.Profile
	candidates   []store.CandidateRow
	blocked      map[string][]string
	connections  map[string][]string
	mutuals      map[string][]string
	interactions map[string][]store.Interaction
	patterns     map[string]*store.EngagementPattern

	lastFilter     store.CandidateFilter
	failCandidates bool
	failMutuals    bool
}

func pairKey(a, b string) string { return a + "|" + b }

func (f *fakeStore) GetUserProfile(_ context.Context, id string) (*store.Profile, error) {
	p, ok := f.profiles[id]
	if !ok {
		return nil, store.ErrNotFound
	}
	return p, nil
}

func (f *fakeStore) GetBlockedUsers(_ context.Context, id string) ([]string, error) {
	return f.blocked[id], nil
}

func (f *fakeStore) GetExistingConnections(_ context.Context, id string) ([]string, error) {
	return f.connections[id], nil
}

func (f *fakeStore) GetCandidates(_ context.Context, filter store.CandidateFilter) ([]store.CandidateRow, error) {
	f.lastFilter = filter
	if f.failCandidates {
		return nil, errors.New("duckdb unreachable")
	}
	excluded := make(map[string]struct{}, len(filter.ExcludeIDs))
	for _, id := range filter.ExcludeIDs {
		excluded[id] = struct{}{}
	}
	var out []store.CandidateRow
	for _, row := range f.candidates {
		if _, skip := excluded[row.ID]; skip {
			continue
		}
		if filter.SameUniversityID != "" && row.University.UniversityID != filter.SameUniversityID {
			continue
		}
		out = append(out, row)
	}
	return out, nil
}

func (f *fakeStore) GetMutualConnections(_ context.Context, a, b string) ([]string, error) {
	if f.failMutuals {
		return nil, errors.New("graph query failed")
	}
	return f.mutuals[pairKey(a, b)], nil
}

func (f *fakeStore) GetUserInteractions(_ context.Context, a, b string) ([]store.Interaction, error) {
	return f.interactions[pairKey(a, b)], nil
}

func (f *fakeStore) GetConnectionInteractions(_ context.Context, connID, userID string) ([]store.Interaction, error) {
	return f.interactions[pairKey(connID, userID)], nil
}

func (f *fakeStore) GetUserEngagementPattern(_ context.Context, id string) (*store.EngagementPattern, error) {
	p, ok := f.patterns[id]
	if !ok {
		return nil, store.ErrNotFound
	}
	return p, nil
}

func (f *fakeStore) GetUniversityRanking(context.Context, string) (int, error) {
	return 0, store.ErrNotFound
}

func (f *fakeStore) GetDepartmentRanking(context.Context, string, string) (int, error) {
	return 0, store.ErrNotFound
}

// scenarioStore builds the canonical fixture: requester "alice" at
// University A with one strong candidate "bob" and assorted others.
func scenarioStore() *fakeStore {
	alice := &store.Profile{
		ID:      "alice",
		Privacy: store.PrivacyPublic,
		University: store.UniversityProfile{
			UniversityID:   "uni-a",
			UniversityName: "University A",
			Department:     "dept-x",
			GraduationYear: 2025,
		},
		Interests:    store.InterestProfile{Interests: []string{"programming", "music", "hiking"}},
		Completeness: 90,
		LastActive:   testNow.Add(-2 * time.Hour),
	}
	bob := &store.Profile{
		ID:      "bob",
		Privacy: store.PrivacyPublic,
		University: store.UniversityProfile{
			UniversityID:   "uni-a",
			UniversityName: "University A",
			Department:     "dept-x",
			GraduationYear: 2025,
		},
		Interests:    store.InterestProfile{Interests: []string{"programming", "music", "chess"}},
		Completeness: 85,
		LastActive:   testNow.Add(-3 * time.Hour),
	}

	fs := &fakeStore{
		profiles: map[string]*store.Profile{"alice": alice, "bob": bob},
		candidates: []store.CandidateRow{
			{Profile: *bob},
		},
		mutuals: map[string][]string{
			pairKey("alice", "bob"): {"c1", "c2", "c3"},
		},
		interactions: map[string][]store.Interaction{
			pairKey("c1", "alice"): {
				{Type: "message", OccurredAt: testNow.Add(-24 * time.Hour)},
				{Type: "follow", OccurredAt: testNow.Add(-48 * time.Hour)},
			},
			pairKey("c2", "alice"): {
				{Type: "like", OccurredAt: testNow.Add(-40 * 24 * time.Hour)},
			},
		},
	}
	for _, id := range []string{"c1", "c2", "c3"} {
		fs.profiles[id] = &store.Profile{
			ID:         id,
			University: store.UniversityProfile{UniversityID: "uni-a"},
			Interests:  store.InterestProfile{Interests: []string{"programming"}},
		}
	}
	return fs
}

func newTestEngine(fs *fakeStore, c cache.Store) *Engine {
	e := New(testEngineConfig(), fs, c, cache.NewTTLTable(nil))
	e.now = func() time.Time { return testNow }
	return e
}

func TestGenerateRecommendationsScenario(t *testing.T) {
	e := newTestEngine(scenarioStore(), nil)

	resp, err := e.GenerateRecommendations(context.Background(), Request{RequesterID: "alice"})
	if err != nil {
		t.Fatal(err)
	}
	if resp.CacheHit {
		t.Error("first call must not be a cache hit")
	}
	if resp.TotalCandidates != 1 || len(resp.Recommendations) != 1 {
		t.Fatalf("expected a single candidate, got %+v", resp)
	}

	c := resp.Recommendations[0]
	if c.ID != "bob" {
		t.Fatalf("candidate = %s, want bob", c.ID)
	}
	if c.Score < 0 || c.Score > 100 {
		t.Errorf("score out of range: %v", c.Score)
	}
	if c.Factors.University < 0.9 {
		t.Errorf("university factor = %v, want >= 0.9", c.Factors.University)
	}
	if c.Factors.MutualConnections <= 0 {
		t.Errorf("mutual factor = %v, want > 0", c.Factors.MutualConnections)
	}
	if c.Factors.Interests <= 0 {
		t.Errorf("interests factor = %v, want > 0", c.Factors.Interests)
	}
	if c.Factors.Recency != 1.0 {
		t.Errorf("recency = %v, want 1.0 for activity today", c.Factors.Recency)
	}

	assertExplanation(t, c.Explanations, "Same university: University A")
	assertExplanation(t, c.Explanations, "3 mutual connections")

	for _, f := range []float64{
		c.Factors.University, c.Factors.MutualConnections, c.Factors.Interests,
		c.Factors.Engagement, c.Factors.Geography, c.Factors.Recency,
		c.Factors.ProfileCompletion, c.Factors.SocialHistory,
	} {
		if f < 0 || f > 1 {
			t.Errorf("raw factor out of [0,1]: %v", f)
		}
	}

	if resp.Metadata.Privacy != store.PrivacyPublic {
		t.Errorf("effective privacy = %v, want requester's own level", resp.Metadata.Privacy)
	}
	if resp.AlgorithmVersion != "2.3.0" {
		t.Errorf("algorithm version = %q", resp.AlgorithmVersion)
	}
}

func assertExplanation(t *testing.T, explanations []string, want string) {
	t.Helper()
	for _, e := range explanations {
		if strings.Contains(e, want) {
			return
		}
	}
	t.Errorf("explanations %v missing %q", explanations, want)
}

func TestGenerateRecommendationsCacheHitAndIdempotence(t *testing.T) {
	mem := cache.NewMemory(0)
	defer mem.Close()
	e := newTestEngine(scenarioStore(), mem)

	req := Request{RequesterID: "alice", Limit: 10}
	first, err := e.GenerateRecommendations(context.Background(), req)
	if err != nil {
		t.Fatal(err)
	}
	if first.CacheHit {
		t.Error("first call must compute")
	}

	second, err := e.GenerateRecommendations(context.Background(), req)
	if err != nil {
		t.Fatal(err)
	}
	if !second.CacheHit {
		t.Fatal("second identical call inside the TTL must hit the cache")
	}
	if len(first.Recommendations) != len(second.Recommendations) {
		t.Fatal("cached response differs in size")
	}
	for i := range first.Recommendations {
		if first.Recommendations[i].ID != second.Recommendations[i].ID ||
			first.Recommendations[i].Score != second.Recommendations[i].Score {
			t.Errorf("recommendation %d differs across identical requests", i)
		}
	}
}

func TestGenerateRecommendationsDistinctRequestsDistinctKeys(t *testing.T) {
	mem := cache.NewMemory(0)
	defer mem.Close()
	e := newTestEngine(scenarioStore(), mem)

	if _, err := e.GenerateRecommendations(context.Background(), Request{RequesterID: "alice", Limit: 10}); err != nil {
		t.Fatal(err)
	}
	resp, err := e.GenerateRecommendations(context.Background(), Request{RequesterID: "alice", Limit: 10, MinScore: 99})
	if err != nil {
		t.Fatal(err)
	}
	if resp.CacheHit {
		t.Error("a request with different parameters must not share a cache entry")
	}
}

func TestGenerateRecommendationsRequesterNotFound(t *testing.T) {
	e := newTestEngine(&fakeStore{profiles: map[string]*store.Profile{}}, nil)

	_, err := e.GenerateRecommendations(context.Background(), Request{RequesterID: "ghost"})
	if !errors.Is(err, ErrProfileNotFound) {
		t.Fatalf("err = %v, want ErrProfileNotFound", err)
	}
}

func TestGenerateRecommendationsStoreFailure(t *testing.T) {
	fs := scenarioStore()
	fs.failCandidates = true
	e := newTestEngine(fs, nil)

	_, err := e.GenerateRecommendations(context.Background(), Request{RequesterID: "alice"})
	var dae *DataAccessError
	if !errors.As(err, &dae) {
		t.Fatalf("err = %v, want DataAccessError", err)
	}
}

func TestGenerateRecommendationsSubScoreFaultRecovered(t *testing.T) {
	fs := scenarioStore()
	fs.failMutuals = true
	e := newTestEngine(fs, nil)

	resp, err := e.GenerateRecommendations(context.Background(), Request{RequesterID: "alice"})
	if err != nil {
		t.Fatalf("sub-score faults must not fail the request: %v", err)
	}
	if len(resp.Recommendations) != 1 {
		t.Fatal("candidate must survive a sub-score fault")
	}
	c := resp.Recommendations[0]
	if c.Factors.MutualConnections != 0 {
		t.Errorf("faulted factor = %v, want 0", c.Factors.MutualConnections)
	}
	if c.Factors.University == 0 {
		t.Error("other factors must still be computed")
	}
}

func TestGenerateRecommendationsMinScoreFilter(t *testing.T) {
	e := newTestEngine(scenarioStore(), nil)

	resp, err := e.GenerateRecommendations(context.Background(), Request{RequesterID: "alice", MinScore: 100})
	if err != nil {
		t.Fatal(err)
	}
	if len(resp.Recommendations) != 0 {
		t.Errorf("min score 100 must drop the candidate, got %d", len(resp.Recommendations))
	}
	if resp.TotalCandidates != 1 {
		t.Errorf("total candidates reports the pre-filter pool, got %d", resp.TotalCandidates)
	}
}

func TestGenerateRecommendationsPrivacyRestriction(t *testing.T) {
	fs := scenarioStore()
	fs.candidates = append(fs.candidates, store.CandidateRow{Profile: store.Profile{
		ID:         "eve",
		University: store.UniversityProfile{UniversityID: "uni-z"},
	}})
	e := newTestEngine(fs, nil)

	resp, err := e.GenerateRecommendations(context.Background(), Request{
		RequesterID: "alice",
		Privacy:     store.PrivacyUniversity,
	})
	if err != nil {
		t.Fatal(err)
	}
	if fs.lastFilter.SameUniversityID != "uni-a" {
		t.Errorf("university privacy must restrict the pool, filter = %+v", fs.lastFilter)
	}
	for _, c := range resp.Recommendations {
		if c.ID == "eve" {
			t.Error("cross-institution candidate leaked through privacy filter")
		}
	}
}

func TestRetrieverMergesExclusions(t *testing.T) {
	fs := scenarioStore()
	fs.blocked = map[string][]string{"alice": {"blocked-1"}}
	fs.connections = map[string][]string{"alice": {"friend-1", "blocked-1"}}
	e := newTestEngine(fs, nil)

	_, err := e.GenerateRecommendations(context.Background(), Request{
		RequesterID: "alice",
		ExcludeIDs:  []string{"manual-1"},
	})
	if err != nil {
		t.Fatal(err)
	}

	got := fs.lastFilter.ExcludeIDs
	want := map[string]bool{"manual-1": false, "blocked-1": false, "friend-1": false}
	for _, id := range got {
		if _, ok := want[id]; ok {
			want[id] = true
		}
	}
	for id, seen := range want {
		if !seen {
			t.Errorf("exclusion %q missing from filter %v", id, got)
		}
	}
	if len(got) != 3 {
		t.Errorf("exclusions must deduplicate, got %v", got)
	}
}

func TestNormalizeDefaults(t *testing.T) {
	e := newTestEngine(scenarioStore(), nil)

	req := e.normalize(Request{RequesterID: "alice"})
	if req.Limit != 20 {
		t.Errorf("default limit = %d, want 20", req.Limit)
	}
	if req.DiversityFactor != 1.0 {
		t.Errorf("default diversity factor = %v, want 1.0", req.DiversityFactor)
	}

	req = e.normalize(Request{RequesterID: "alice", Limit: 500})
	if req.Limit != 100 {
		t.Errorf("limit must clamp to max, got %d", req.Limit)
	}
}

func TestCacheKeyNormalizationStable(t *testing.T) {
	e := newTestEngine(scenarioStore(), nil)

	a := e.cacheKey(e.normalize(Request{RequesterID: "alice", ExcludeIDs: []string{"x", "y"}}))
	b := e.cacheKey(e.normalize(Request{RequesterID: "alice", ExcludeIDs: []string{"y", "x"}}))
	if a != b {
		t.Error("exclusion order must not change the cache key")
	}

	c := e.cacheKey(e.normalize(Request{RequesterID: "alice", ExcludeIDs: []string{"z"}}))
	if a == c {
		t.Error("different exclusions must produce different keys")
	}

	if !strings.Contains(a, ":alice:") {
		t.Errorf("cache key must carry the requester ID segment: %s", a)
	}
}
