// Affinity - Campus Friend Recommendation Engine
// Copyright 2026 Campusgraph Labs
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/campusgraph/affinity

package api

import (
	"errors"
	"net/http"

	"github.com/go-playground/validator/v10"
	json "github.com/goccy/go-json"

	"github.com/campusgraph/affinity/internal/cache"
	"github.com/campusgraph/affinity/internal/engine"
	"github.com/campusgraph/affinity/internal/logging"
	"github.com/campusgraph/affinity/internal/store"
)

// maxRequestBody bounds request payloads at 1 MiB.
const maxRequestBody = 1 << 20

// Handler implements the API endpoints.
type Handler struct {
	engine   Engine
	cache    cache.Store
	profiles store.ProfileStore
	validate *validator.Validate
}

// errorResponse is the JSON error envelope.
type errorResponse struct {
	Error     string `json:"error"`
	RequestID string `json:"request_id,omitempty"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, r *http.Request, status int, msg string) {
	writeJSON(w, status, errorResponse{
		Error:     msg,
		RequestID: logging.RequestIDFromContext(r.Context()),
	})
}

// decodeJSON reads and decodes a bounded request body.
func decodeJSON(w http.ResponseWriter, r *http.Request, v any) error {
	r.Body = http.MaxBytesReader(w, r.Body, maxRequestBody)
	return json.NewDecoder(r.Body).Decode(v)
}

// GenerateRecommendations handles POST /api/v1/recommendations.
func (h *Handler) GenerateRecommendations(w http.ResponseWriter, r *http.Request) {
	var req engine.Request
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, r, http.StatusBadRequest, "invalid request body")
		return
	}
	if err := h.validate.Struct(req); err != nil {
		writeError(w, r, http.StatusBadRequest, validationMessage(err))
		return
	}

	resp, err := h.engine.GenerateRecommendations(r.Context(), req)
	if err != nil {
		h.writeEngineError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

// writeEngineError maps engine failures to HTTP statuses: a missing
// requester is the caller's problem, a store outage is upstream.
func (h *Handler) writeEngineError(w http.ResponseWriter, r *http.Request, err error) {
	var dae *engine.DataAccessError
	switch {
	case errors.Is(err, engine.ErrProfileNotFound):
		writeError(w, r, http.StatusNotFound, "requester profile not found")
	case errors.As(err, &dae):
		logging.Ctx(r.Context()).Error().Err(err).Msg("profile store unavailable")
		writeError(w, r, http.StatusBadGateway, "profile store unavailable")
	default:
		logging.Ctx(r.Context()).Error().Err(err).Msg("recommendation generation failed")
		writeError(w, r, http.StatusInternalServerError, "internal error")
	}
}

// validationMessage renders the first validation failure compactly.
func validationMessage(err error) string {
	var verrs validator.ValidationErrors
	if errors.As(err, &verrs) && len(verrs) > 0 {
		return "invalid field: " + verrs[0].Namespace()
	}
	return "validation failed"
}

// GetConfiguration handles GET /api/v1/recommendations/config.
func (h *Handler) GetConfiguration(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, h.engine.GetConfiguration())
}

// UpdateWeights handles PATCH /api/v1/recommendations/config/weights.
func (h *Handler) UpdateWeights(w http.ResponseWriter, r *http.Request) {
	var update engine.WeightsUpdate
	if err := decodeJSON(w, r, &update); err != nil {
		writeError(w, r, http.StatusBadRequest, "invalid request body")
		return
	}
	if err := h.engine.UpdateWeights(update); err != nil {
		writeError(w, r, http.StatusBadRequest, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, h.engine.GetConfiguration())
}

// UpdateParameters handles PATCH /api/v1/recommendations/config/parameters.
func (h *Handler) UpdateParameters(w http.ResponseWriter, r *http.Request) {
	var update engine.ParametersUpdate
	if err := decodeJSON(w, r, &update); err != nil {
		writeError(w, r, http.StatusBadRequest, "invalid request body")
		return
	}
	if err := h.engine.UpdateParameters(update); err != nil {
		writeError(w, r, http.StatusBadRequest, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, h.engine.GetConfiguration())
}
