// Affinity - Campus Friend Recommendation Engine
// Copyright 2026 Campusgraph Labs
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/campusgraph/affinity

package scoring

import (
	"context"
	"errors"
	"time"

	"github.com/rs/zerolog"

	"github.com/campusgraph/affinity/internal/cache"
	"github.com/campusgraph/affinity/internal/logging"
	"github.com/campusgraph/affinity/internal/store"
)

// ConnectionStrength sub-factor weights.
const (
	strengthWeightDirect     = 0.30
	strengthWeightInterests  = 0.25
	strengthWeightUniversity = 0.20
	strengthWeightDecay      = 0.15
	strengthWeightEngagement = 0.10
)

// Connection-set blend weights.
const (
	setWeightCount    = 0.30
	setWeightMean     = 0.40
	setWeightQuality  = 0.20
	setWeightRecency  = 0.10
	setCountCap       = 50  // connection count normalization cap
	qualityThreshold  = 0.7 // strength above this counts as a quality connection
	engagementTypeCap = 6   // distinct interaction types
	engagementFreqCap = 10  // interaction count normalization cap
)

// interactionWeights scores each interaction type for direct-interaction
// strength.
var interactionWeights = map[string]float64{
	"like":    0.1,
	"comment": 0.3,
	"share":   0.5,
	"mention": 0.4,
	"message": 0.6,
	"follow":  0.8,
}

// ConnectionStrength is the derived strength of one mutual connection
// relative to a (requester, candidate) pair. Cached per triple.
type ConnectionStrength struct {
	ConnectionID string  `json:"connection_id"`
	Strength     float64 `json:"strength"`

	Direct          float64 `json:"direct"`
	SharedInterests float64 `json:"shared_interests"`
	University      float64 `json:"university"`
	TimeDecay       float64 `json:"time_decay"`
	Engagement      float64 `json:"engagement"`

	LastInteraction time.Time      `json:"last_interaction"`
	TypeHistogram   map[string]int `json:"type_histogram"`
}

// MutualResult carries the mutual-connection score and the per-connection
// analysis used for explanations.
type MutualResult struct {
	Value float64

	Count        int
	MeanStrength float64
	Quality      float64
	Recency      float64

	Connections []ConnectionStrength
}

// MutualScorer scores shared-connection overlap between two users. Each
// mutual connection gets a composite strength from direct interactions,
// shared interests, institutional overlap, time decay, and engagement
// diversity; the set blends count, mean strength, quality fraction, and
// interaction recency.
type MutualScorer struct {
	profiles store.ProfileStore
	cache    cache.Store
	ttl      time.Duration
	logger   zerolog.Logger
}

// NewMutualScorer creates a mutual-connection scorer. The cache is
// optional; when present, per-connection strengths are cached under the
// mutual-connections domain keyed by (connection, requester, candidate).
func NewMutualScorer(profiles store.ProfileStore, c cache.Store, ttlTable *cache.TTLTable) *MutualScorer {
	return &MutualScorer{
		profiles: profiles,
		cache:    c,
		ttl:      ttlTable.For(cache.DomainMutualConnections),
		logger:   logging.With().Str("component", "mutual_scorer").Logger(),
	}
}

// Score computes the mutual-connection factor between requester a and
// candidate b. An empty mutual set returns a zero result. Store failures
// surface as errors; the engine converts them into scoring faults.
func (s *MutualScorer) Score(ctx context.Context, a, b *store.Profile, now time.Time) (MutualResult, error) {
	var r MutualResult

	mutuals, err := s.profiles.GetMutualConnections(ctx, a.ID, b.ID)
	if err != nil {
		return r, err
	}
	if len(mutuals) == 0 {
		return r, nil
	}

	shared := Intersect(a.Interests.Interests, b.Interests.Interests)

	r.Connections = make([]ConnectionStrength, 0, len(mutuals))
	for _, connID := range mutuals {
		cs, err := s.connectionStrength(ctx, connID, a, b, shared, now)
		if err != nil {
			return MutualResult{}, err
		}
		r.Connections = append(r.Connections, cs)
	}

	r.Count = len(r.Connections)
	var strengthSum, recencySum float64
	quality := 0
	for _, cs := range r.Connections {
		strengthSum += cs.Strength
		if cs.Strength > qualityThreshold {
			quality++
		}
		if !cs.LastInteraction.IsZero() {
			recencySum += DecayFactor(cs.LastInteraction, now)
		}
	}
	r.MeanStrength = strengthSum / float64(r.Count)
	r.Quality = float64(quality) / float64(r.Count)
	r.Recency = recencySum / float64(r.Count)

	countScore := Clamp01(float64(r.Count) / setCountCap)
	r.Value = Clamp01(countScore*setWeightCount +
		r.MeanStrength*setWeightMean +
		r.Quality*setWeightQuality +
		r.Recency*setWeightRecency)
	return r, nil
}

// connectionStrength computes (or serves from cache) the strength of one
// mutual connection for the pair.
func (s *MutualScorer) connectionStrength(ctx context.Context, connID string, a, b *store.Profile, sharedInterests []string, now time.Time) (ConnectionStrength, error) {
	key := cache.Key(cache.DomainMutualConnections, "strength", connID, a.ID, b.ID)
	if cached, ok := s.cachedStrength(ctx, key); ok {
		return cached, nil
	}

	interactions, err := s.pairInteractions(ctx, connID, a.ID, b.ID)
	if err != nil {
		return ConnectionStrength{}, err
	}

	cs := ConnectionStrength{
		ConnectionID:  connID,
		TypeHistogram: make(map[string]int),
	}

	var directSum, decaySum float64
	for _, it := range interactions {
		decay := DecayFactor(it.OccurredAt, now)
		directSum += interactionWeights[it.Type] * decay
		decaySum += decay
		cs.TypeHistogram[it.Type]++
		if it.OccurredAt.After(cs.LastInteraction) {
			cs.LastInteraction = it.OccurredAt
		}
	}
	cs.Direct = Clamp01(directSum)
	if len(interactions) > 0 {
		cs.TimeDecay = decaySum / float64(len(interactions))
	}

	connProfile, err := s.profiles.GetUserProfile(ctx, connID)
	if err == nil {
		cs.SharedInterests = sharedInterestRatio(connProfile.Interests.Interests, sharedInterests)
		if sameInstitution(connProfile, a) || sameInstitution(connProfile, b) {
			cs.University = 1.0
		}
	} else if !errors.Is(err, store.ErrNotFound) {
		return ConnectionStrength{}, err
	}

	cs.Engagement = engagementBlend(len(cs.TypeHistogram), len(interactions))

	cs.Strength = Clamp01(cs.Direct*strengthWeightDirect +
		cs.SharedInterests*strengthWeightInterests +
		cs.University*strengthWeightUniversity +
		cs.TimeDecay*strengthWeightDecay +
		cs.Engagement*strengthWeightEngagement)

	s.storeStrength(ctx, key, a.ID, cs)
	return cs, nil
}

// pairInteractions merges the connection's interactions with both
// endpoints.
func (s *MutualScorer) pairInteractions(ctx context.Context, connID, aID, bID string) ([]store.Interaction, error) {
	withA, err := s.profiles.GetConnectionInteractions(ctx, connID, aID)
	if err != nil {
		return nil, err
	}
	withB, err := s.profiles.GetConnectionInteractions(ctx, connID, bID)
	if err != nil {
		return nil, err
	}
	return append(withA, withB...), nil
}

// sharedInterestRatio is the fraction of the pair's shared interests the
// connection also holds.
func sharedInterestRatio(connInterests, sharedInterests []string) float64 {
	if len(sharedInterests) == 0 {
		return 0
	}
	overlap := Intersect(connInterests, sharedInterests)
	return float64(len(overlap)) / float64(len(sharedInterests))
}

func sameInstitution(a, b *store.Profile) bool {
	return a.University.UniversityID != "" &&
		a.University.UniversityID == b.University.UniversityID
}

// engagementBlend averages interaction-type diversity and normalized
// frequency.
func engagementBlend(distinctTypes, count int) float64 {
	diversity := Clamp01(float64(distinctTypes) / engagementTypeCap)
	frequency := Clamp01(float64(count) / engagementFreqCap)
	return (diversity + frequency) / 2
}

func (s *MutualScorer) cachedStrength(ctx context.Context, key string) (ConnectionStrength, bool) {
	var cs ConnectionStrength
	if s.cache == nil {
		return cs, false
	}
	entry, ok, err := s.cache.Get(ctx, key)
	if err != nil || !ok {
		return cs, false
	}
	if err := cache.DecodePayload(entry.Payload, &cs); err != nil {
		return cs, false
	}
	return cs, true
}

func (s *MutualScorer) storeStrength(ctx context.Context, key, ownerID string, cs ConnectionStrength) {
	if s.cache == nil {
		return
	}
	payload, err := cache.EncodePayload(cs)
	if err != nil {
		return
	}
	meta := cache.Metadata{
		OwnerID:     ownerID,
		Domain:      cache.DomainMutualConnections,
		PayloadSize: len(payload),
	}
	if err := s.cache.Set(ctx, key, payload, s.ttl, meta); err != nil {
		s.logger.Debug().Err(err).Str("key", key).Msg("connection strength cache write failed")
	}
}
