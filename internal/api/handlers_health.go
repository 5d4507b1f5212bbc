// Affinity - Campus Friend Recommendation Engine
// Copyright 2026 Campusgraph Labs
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/campusgraph/affinity

package api

import (
	"context"
	"net/http"
	"time"
)

type healthResponse struct {
	Status string `json:"status"`
	Reason string `json:"reason,omitempty"`
}

// HealthLive handles GET /api/v1/health/live. It answers whenever the
// process is serving requests.
func (h *Handler) HealthLive(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, healthResponse{Status: "ok"})
}

// HealthReady handles GET /api/v1/health/ready. Readiness requires the
// profile store to answer a ping; stores without one are always ready.
func (h *Handler) HealthReady(w http.ResponseWriter, r *http.Request) {
	pinger, ok := h.profiles.(interface{ Ping(context.Context) error })
	if !ok {
		writeJSON(w, http.StatusOK, healthResponse{Status: "ok"})
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
	defer cancel()
	if err := pinger.Ping(ctx); err != nil {
		writeJSON(w, http.StatusServiceUnavailable, healthResponse{
			Status: "unavailable",
			Reason: "profile store unreachable",
		})
		return
	}
	writeJSON(w, http.StatusOK, healthResponse{Status: "ok"})
}
