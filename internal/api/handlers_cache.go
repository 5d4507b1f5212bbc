// Affinity - Campus Friend Recommendation Engine
// Copyright 2026 Campusgraph Labs
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/campusgraph/affinity

package api

import (
	"net/http"

	"github.com/campusgraph/affinity/internal/logging"
)

// invalidateRequest selects what to invalidate. Exactly one of the two
// fields must be set.
type invalidateRequest struct {
	Pattern string `json:"pattern,omitempty"`
	UserID  string `json:"user_id,omitempty"`
}

type invalidateResponse struct {
	Invalidated int `json:"invalidated"`
}

// InvalidateCache handles POST /api/v1/cache/invalidate.
func (h *Handler) InvalidateCache(w http.ResponseWriter, r *http.Request) {
	var req invalidateRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, r, http.StatusBadRequest, "invalid request body")
		return
	}
	if (req.Pattern == "") == (req.UserID == "") {
		writeError(w, r, http.StatusBadRequest, "exactly one of pattern or user_id is required")
		return
	}

	var (
		count int
		err   error
	)
	if req.UserID != "" {
		count, err = h.cache.InvalidateUser(r.Context(), req.UserID)
	} else {
		count, err = h.cache.InvalidatePattern(r.Context(), req.Pattern)
	}
	if err != nil {
		logging.Ctx(r.Context()).Error().Err(err).Msg("cache invalidation failed")
		writeError(w, r, http.StatusInternalServerError, "cache invalidation failed")
		return
	}

	logging.Ctx(r.Context()).Info().
		Str("pattern", req.Pattern).
		Str("user_id", req.UserID).
		Int("invalidated", count).
		Msg("cache invalidated")
	writeJSON(w, http.StatusOK, invalidateResponse{Invalidated: count})
}

type cacheStatsResponse struct {
	Hits      int64   `json:"hits"`
	Misses    int64   `json:"misses"`
	Evictions int64   `json:"evictions"`
	Keys      int64   `json:"keys"`
	HitRate   float64 `json:"hit_rate"`
}

// CacheStats handles GET /api/v1/cache/stats.
func (h *Handler) CacheStats(w http.ResponseWriter, r *http.Request) {
	stats := h.cache.Stats()
	writeJSON(w, http.StatusOK, cacheStatsResponse{
		Hits:      stats.Hits,
		Misses:    stats.Misses,
		Evictions: stats.Evictions,
		Keys:      stats.Keys,
		HitRate:   stats.HitRate(),
	})
}
