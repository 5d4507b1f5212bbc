// Affinity - Campus Friend Recommendation Engine
// Copyright 2026 Campusgraph Labs
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/campusgraph/affinity

// Package engine implements the recommendation orchestrator: response
// cache check, candidate retrieval, batched concurrent scoring, bonus
// aggregation, diversity filtering, explanation generation, and response
// assembly.
package engine

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"sort"
	"sync"
	"time"

	json "github.com/goccy/go-json"
	"github.com/rs/zerolog"

	"github.com/campusgraph/affinity/internal/cache"
	"github.com/campusgraph/affinity/internal/config"
	"github.com/campusgraph/affinity/internal/engine/scoring"
	"github.com/campusgraph/affinity/internal/logging"
	"github.com/campusgraph/affinity/internal/metrics"
	"github.com/campusgraph/affinity/internal/store"
)

// Engine generates friend recommendations. Safe for concurrent use; the
// runtime configuration is guarded by its own lock and scorers share
// only read-mostly caches.
type Engine struct {
	profiles store.ProfileStore
	cache    cache.Store
	ttl      *cache.TTLTable

	university *scoring.UniversityScorer
	interests  *scoring.InterestScorer
	mutual     *scoring.MutualScorer

	configMu sync.RWMutex
	config   Configuration

	logger zerolog.Logger
	now    func() time.Time
}

// scoredCandidate pairs a scored recommendation with its source row so
// downstream filters can read institutional attributes.
type scoredCandidate struct {
	cand Candidate
	row  store.CandidateRow
}

// New creates an engine. The cache store is optional; without one every
// request recomputes.
func New(cfg config.EngineConfig, profiles store.ProfileStore, c cache.Store, ttlTable *cache.TTLTable) *Engine {
	e := &Engine{
		profiles:   profiles,
		cache:      c,
		ttl:        ttlTable,
		university: scoring.NewUniversityScorer(),
		interests:  scoring.NewInterestScorer(),
		mutual:     scoring.NewMutualScorer(profiles, c, ttlTable),
		config:     configurationFrom(cfg),
		logger:     logging.With().Str("component", "engine").Logger(),
		now:        time.Now,
	}
	e.university.DeptRank = func(universityID, department string) (int, bool) {
		rank, err := profiles.GetDepartmentRanking(context.Background(), universityID, department)
		if err != nil {
			return 0, false
		}
		return rank, true
	}
	return e
}

// GenerateRecommendations runs the full pipeline for one request.
func (e *Engine) GenerateRecommendations(ctx context.Context, req Request) (*Response, error) {
	start := e.now()
	req = e.normalize(req)
	logger := e.logger.With().Str("requester_id", req.RequesterID).Logger()

	key := e.cacheKey(req)
	if resp := e.cachedResponse(ctx, key); resp != nil {
		resp.CacheHit = true
		resp.ProcessingTimeMS = time.Since(start).Milliseconds()
		metrics.RecommendationRequests.WithLabelValues("hit").Inc()
		logger.Debug().Msg("served recommendations from cache")
		return resp, nil
	}

	resp, err := e.compute(ctx, req, start, logger)
	if err != nil {
		metrics.RecommendationRequests.WithLabelValues("error").Inc()
		return nil, err
	}

	e.storeResponse(ctx, key, req.RequesterID, resp)
	metrics.RecommendationRequests.WithLabelValues("computed").Inc()
	metrics.RecommendationDuration.Observe(time.Since(start).Seconds())
	return resp, nil
}

// compute runs the uncached pipeline: profile load, retrieval, batched
// scoring, filtering, and assembly.
func (e *Engine) compute(ctx context.Context, req Request, start time.Time, logger zerolog.Logger) (*Response, error) {
	requester, err := e.profiles.GetUserProfile(ctx, req.RequesterID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil, ErrProfileNotFound
		}
		return nil, dataAccess("requester profile", err)
	}

	privacy := req.Privacy
	if privacy == "" {
		privacy = requester.Privacy
	}
	req.Privacy = privacy

	pool, err := e.retrieveCandidates(ctx, req, requester)
	if err != nil {
		return nil, err
	}
	logger.Debug().Int("pool_size", len(pool)).Msg("candidate pool retrieved")

	cfg := e.GetConfiguration()
	now := e.now()

	// Requester-side inputs shared read-only across all candidates.
	requesterPattern := e.loadPattern(ctx, req.RequesterID, logger)

	scored := e.scoreBatches(ctx, cfg, req, requester, requesterPattern, pool, now, logger)

	// Min-score filter, then sort, then the diversity pass over the
	// sorted list. Ties break on candidate ID so identical requests
	// produce identical orderings.
	filtered := scored[:0]
	for _, c := range scored {
		if c.cand.Score >= req.MinScore {
			filtered = append(filtered, c)
		}
	}
	sort.SliceStable(filtered, func(i, j int) bool {
		if filtered[i].cand.Score != filtered[j].cand.Score {
			return filtered[i].cand.Score > filtered[j].cand.Score
		}
		return filtered[i].cand.ID < filtered[j].cand.ID
	})

	kept := applyDiversity(filtered, req.DiversityFactor,
		cfg.Parameters.DistinctUniversityCap, cfg.Parameters.DistinctDepartmentCap)
	if len(kept) > req.Limit {
		kept = kept[:req.Limit]
	}

	recommendations := make([]Candidate, 0, len(kept))
	distinctUniversities := make(map[string]struct{})
	for _, c := range kept {
		c.cand.Explanations = append(c.cand.Explanations, thresholdExplanations(&c.cand, now)...)
		recommendations = append(recommendations, c.cand)
		distinctUniversities[c.row.University.UniversityID] = struct{}{}
	}

	diversity := 0.0
	if len(recommendations) > 0 {
		diversity = float64(len(distinctUniversities)) / float64(len(recommendations))
	}

	return &Response{
		Recommendations:  recommendations,
		TotalCandidates:  len(pool),
		AlgorithmVersion: cfg.Version,
		ProcessingTimeMS: time.Since(start).Milliseconds(),
		CacheHit:         false,
		Metadata: ResponseMetadata{
			Weights:      cfg.Weights,
			BonusWeights: cfg.BonusWeights,
			Diversity:    diversity,
			Privacy:      req.Privacy,
			GeneratedAt:  now,
		},
	}, nil
}

// scoreBatches scores the pool in fixed-size batches. Within a batch
// every candidate is scored concurrently; batches run sequentially to
// bound load on the profile store.
func (e *Engine) scoreBatches(ctx context.Context, cfg Configuration, req Request, requester *store.Profile, requesterPattern *store.EngagementPattern, pool []store.CandidateRow, now time.Time, logger zerolog.Logger) []scoredCandidate {
	out := make([]scoredCandidate, len(pool))
	batchSize := cfg.Parameters.BatchSize

	for offset := 0; offset < len(pool); offset += batchSize {
		end := offset + batchSize
		if end > len(pool) {
			end = len(pool)
		}

		var wg sync.WaitGroup
		for i := offset; i < end; i++ {
			wg.Add(1)
			go func(idx int) {
				defer wg.Done()
				out[idx] = e.scoreCandidate(ctx, cfg, req, requester, requesterPattern, pool[idx], now, logger)
			}(i)
		}
		wg.Wait()
		metrics.ScoringBatches.Inc()
	}
	return out
}

// scoreCandidate computes all eight factors for one candidate. A fault
// in any store-backed sub-score zeroes that factor and is logged; it
// never aborts the batch.
func (e *Engine) scoreCandidate(ctx context.Context, cfg Configuration, req Request, requester *store.Profile, requesterPattern *store.EngagementPattern, row store.CandidateRow, now time.Time, logger zerolog.Logger) scoredCandidate {
	var factors ScoreFactors

	univStart := time.Now()
	univ := e.university.Score(&requester.University, &row.University, now)
	factors.University = univ.Value
	metrics.RecordScorer("university", univStart)

	mutualStart := time.Now()
	mutualRes, err := e.mutual.Score(ctx, requester, &row.Profile, now)
	if err != nil {
		e.fault(logger, "mutual_connections", row.ID, err)
	} else {
		factors.MutualConnections = mutualRes.Value
	}
	metrics.RecordScorer("mutual_connections", mutualStart)

	interestStart := time.Now()
	interestRes := e.interests.Score(&requester.Interests, &row.Interests, now)
	factors.Interests = interestRes.Value
	metrics.RecordScorer("interests", interestStart)

	if requesterPattern != nil {
		candidatePattern, err := e.profiles.GetUserEngagementPattern(ctx, row.ID)
		switch {
		case err == nil:
			factors.Engagement = scoring.EngagementSimilarity(requesterPattern, candidatePattern)
		case errors.Is(err, store.ErrNotFound):
			// No behavioral history: the factor stays zero.
		default:
			e.fault(logger, "engagement", row.ID, err)
		}
	}

	factors.Geography = scoring.GeographyScore(requester.Location, row.Location)
	factors.Recency = scoring.RecencyBonus(row.LastActive, now)
	factors.ProfileCompletion = scoring.CompletionBonus(row.Completeness)

	history, err := e.profiles.GetUserInteractions(ctx, requester.ID, row.ID)
	if err != nil {
		e.fault(logger, "social_history", row.ID, err)
	} else {
		factors.SocialHistory = scoring.SocialHistoryBonus(history, now)
	}

	base := factors.University*cfg.Weights.University +
		factors.MutualConnections*cfg.Weights.MutualConnections +
		factors.Interests*cfg.Weights.Interests +
		factors.Engagement*cfg.Weights.Engagement +
		factors.Geography*cfg.Weights.Geography
	bonus := factors.Recency*cfg.BonusWeights.Recency +
		factors.ProfileCompletion*cfg.BonusWeights.ProfileCompletion +
		factors.SocialHistory*cfg.BonusWeights.SocialHistory

	score := (base + bonus) * 100
	if score > 100 {
		score = 100
	}
	if score < 0 {
		score = 0
	}

	cand := Candidate{
		ID:      row.ID,
		Score:   score,
		Factors: factors,
		Metadata: CandidateMetadata{
			UniversityName:  row.University.UniversityName,
			Department:      row.University.Department,
			MutualCount:     mutualRes.Count,
			SharedInterests: interestRes.SharedInterests,
			LastActive:      row.LastActive,
			Completeness:    row.Completeness,
		},
	}
	cand.Explanations = baseExplanations(&cand, univ.SameUniversity == 1.0)

	return scoredCandidate{cand: cand, row: row}
}

// loadPattern fetches the requester's engagement histograms once per
// request. Absence or failure disables the engagement factor for the
// whole request.
func (e *Engine) loadPattern(ctx context.Context, id string, logger zerolog.Logger) *store.EngagementPattern {
	pattern, err := e.profiles.GetUserEngagementPattern(ctx, id)
	if err != nil {
		if !errors.Is(err, store.ErrNotFound) {
			logger.Warn().Err(err).Msg("requester engagement pattern unavailable")
		}
		return nil
	}
	return pattern
}

// fault records a recovered per-candidate scoring failure.
func (e *Engine) fault(logger zerolog.Logger, scorer, candidateID string, err error) {
	metrics.ScoringFaults.WithLabelValues(scorer).Inc()
	logger.Warn().Err(err).
		Str("scorer", scorer).
		Str("candidate_id", candidateID).
		Msg("sub-score fault, factor zeroed")
}

// normalize fills request defaults so equivalent requests share a cache
// key.
func (e *Engine) normalize(req Request) Request {
	cfg := e.GetConfiguration()
	if req.Limit <= 0 {
		req.Limit = cfg.Parameters.DefaultLimit
	}
	if req.Limit > cfg.Parameters.MaxLimit {
		req.Limit = cfg.Parameters.MaxLimit
	}
	if req.DiversityFactor <= 0 || req.DiversityFactor > 1 {
		req.DiversityFactor = 1.0
	}
	sort.Strings(req.ExcludeIDs)
	sort.Strings(req.IncludeTypes)
	sort.Strings(req.ExcludeTypes)
	return req
}

// cacheKey derives the response cache key from the normalized request.
// The requester ID appears as its own key segment so per-user
// invalidation sweeps response entries too.
func (e *Engine) cacheKey(req Request) string {
	payload, err := json.Marshal(req)
	if err != nil {
		// Request is plain data; marshal cannot realistically fail.
		return cache.Key(cache.DomainRecommendations, req.RequesterID, "raw")
	}
	digest := sha256.Sum256(payload)
	return cache.Key(cache.DomainRecommendations, req.RequesterID, hex.EncodeToString(digest[:16]))
}

// cachedResponse loads and decodes a cached response. Any cache trouble
// reads as a miss.
func (e *Engine) cachedResponse(ctx context.Context, key string) *Response {
	if e.cache == nil {
		return nil
	}
	entry, ok, err := e.cache.Get(ctx, key)
	if err != nil || !ok {
		return nil
	}
	var resp Response
	if err := cache.DecodePayload(entry.Payload, &resp); err != nil {
		return nil
	}
	return &resp
}

// storeResponse writes a response to cache, best-effort.
func (e *Engine) storeResponse(ctx context.Context, key, requesterID string, resp *Response) {
	if e.cache == nil {
		return
	}
	payload, err := cache.EncodePayload(resp)
	if err != nil {
		return
	}
	cfg := e.GetConfiguration()
	meta := cache.Metadata{
		OwnerID:          requesterID,
		Domain:           cache.DomainRecommendations,
		AlgorithmVersion: cfg.Version,
		PayloadSize:      len(payload),
	}
	if err := e.cache.Set(ctx, key, payload, cfg.Parameters.ResponseTTL, meta); err != nil {
		e.logger.Debug().Err(err).Str("key", key).Msg("response cache write failed")
	}
}
