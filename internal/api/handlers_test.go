// Affinity - Campus Friend Recommendation Engine
// Copyright 2026 Campusgraph Labs
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/campusgraph/affinity

package api

import (
	"bytes"
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	json "github.com/goccy/go-json"

	"github.com/campusgraph/affinity/internal/cache"
	"github.com/campusgraph/affinity/internal/config"
	"github.com/campusgraph/affinity/internal/engine"
)

// fakeEngine satisfies the Engine interface with canned behavior.
type fakeEngine struct {
	resp       *engine.Response
	err        error
	lastReq    engine.Request
	weightsErr error
	paramsErr  error
}

func (f *fakeEngine) GenerateRecommendations(_ context.Context, req engine.Request) (*engine.Response, error) {
	f.lastReq = req
	if f.err != nil {
		return nil, f.err
	}
	return f.resp, nil
}

func (f *fakeEngine) GetConfiguration() engine.Configuration {
	return engine.Configuration{Version: "test"}
}

func (f *fakeEngine) UpdateWeights(engine.WeightsUpdate) error { return f.weightsErr }

func (f *fakeEngine) UpdateParameters(engine.ParametersUpdate) error { return f.paramsErr }

func newTestServer(t *testing.T, eng Engine) (http.Handler, cache.Store) {
	t.Helper()
	c := cache.NewMemory(0)
	router := NewRouter(config.ServerConfig{}, eng, c, nil)
	return router.Setup(), c
}

func postJSON(t *testing.T, h http.Handler, path string, body any) *httptest.ResponseRecorder {
	t.Helper()
	raw, err := json.Marshal(body)
	if err != nil {
		t.Fatalf("marshal body: %v", err)
	}
	req := httptest.NewRequest(http.MethodPost, path, bytes.NewReader(raw))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func TestGenerateRecommendations(t *testing.T) {
	eng := &fakeEngine{resp: &engine.Response{
		Recommendations: []engine.Candidate{{ID: "bob", Score: 72.5}},
		TotalCandidates: 1,
	}}
	h, _ := newTestServer(t, eng)

	rec := postJSON(t, h, "/api/v1/recommendations", engine.Request{
		RequesterID: "alice",
		Limit:       10,
	})
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, body %s", rec.Code, rec.Body.String())
	}

	var resp engine.Response
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if len(resp.Recommendations) != 1 || resp.Recommendations[0].ID != "bob" {
		t.Errorf("unexpected recommendations: %+v", resp.Recommendations)
	}
	if eng.lastReq.RequesterID != "alice" {
		t.Errorf("engine saw requester %q", eng.lastReq.RequesterID)
	}
}

func TestGenerateRecommendationsBadJSON(t *testing.T) {
	h, _ := newTestServer(t, &fakeEngine{})

	req := httptest.NewRequest(http.MethodPost, "/api/v1/recommendations",
		strings.NewReader("{not json"))
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)

	if rec.Code != http.StatusBadRequest {
		t.Errorf("status = %d, want 400", rec.Code)
	}
}

func TestGenerateRecommendationsValidation(t *testing.T) {
	h, _ := newTestServer(t, &fakeEngine{})

	tests := []struct {
		name string
		req  engine.Request
	}{
		{"missing requester", engine.Request{Limit: 10}},
		{"bad type filter", engine.Request{RequesterID: "alice", IncludeTypes: []string{"robot"}}},
		{"min score out of range", engine.Request{RequesterID: "alice", MinScore: 250}},
		{"diversity out of range", engine.Request{RequesterID: "alice", DiversityFactor: 1.5}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := postJSON(t, h, "/api/v1/recommendations", tt.req)
			if rec.Code != http.StatusBadRequest {
				t.Errorf("status = %d, want 400: %s", rec.Code, rec.Body.String())
			}
		})
	}
}

func TestGenerateRecommendationsEngineErrors(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want int
	}{
		{"profile missing", engine.ErrProfileNotFound, http.StatusNotFound},
		{"store down", &engine.DataAccessError{Stage: "candidates", Err: errors.New("conn refused")}, http.StatusBadGateway},
		{"unknown", errors.New("boom"), http.StatusInternalServerError},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h, _ := newTestServer(t, &fakeEngine{err: tt.err})
			rec := postJSON(t, h, "/api/v1/recommendations", engine.Request{RequesterID: "alice"})
			if rec.Code != tt.want {
				t.Errorf("status = %d, want %d", rec.Code, tt.want)
			}
			var body errorResponse
			if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
				t.Fatalf("decode error body: %v", err)
			}
			if body.Error == "" {
				t.Error("error message missing")
			}
		})
	}
}

func TestGetConfiguration(t *testing.T) {
	h, _ := newTestServer(t, &fakeEngine{})

	req := httptest.NewRequest(http.MethodGet, "/api/v1/recommendations/config", nil)
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	var cfg engine.Configuration
	if err := json.Unmarshal(rec.Body.Bytes(), &cfg); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if cfg.Version != "test" {
		t.Errorf("Version = %q", cfg.Version)
	}
}

func TestUpdateWeights(t *testing.T) {
	t.Run("accepted", func(t *testing.T) {
		h, _ := newTestServer(t, &fakeEngine{})
		raw := `{"university":0.5,"mutual_connections":0.15}`
		req := httptest.NewRequest(http.MethodPatch, "/api/v1/recommendations/config/weights",
			strings.NewReader(raw))
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, req)
		if rec.Code != http.StatusOK {
			t.Errorf("status = %d: %s", rec.Code, rec.Body.String())
		}
	})

	t.Run("rejected", func(t *testing.T) {
		h, _ := newTestServer(t, &fakeEngine{weightsErr: errors.New("weights must sum to 1.0")})
		req := httptest.NewRequest(http.MethodPatch, "/api/v1/recommendations/config/weights",
			strings.NewReader(`{"university":0.9}`))
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, req)
		if rec.Code != http.StatusBadRequest {
			t.Errorf("status = %d", rec.Code)
		}
	})
}

func TestUpdateParameters(t *testing.T) {
	h, _ := newTestServer(t, &fakeEngine{})
	req := httptest.NewRequest(http.MethodPatch, "/api/v1/recommendations/config/parameters",
		strings.NewReader(`{"max_candidates":500}`))
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	if rec.Code != http.StatusOK {
		t.Errorf("status = %d: %s", rec.Code, rec.Body.String())
	}
}

func TestRequestIDHeader(t *testing.T) {
	h, _ := newTestServer(t, &fakeEngine{})

	t.Run("generated", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/api/v1/health/live", nil)
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, req)
		if rec.Header().Get("X-Request-ID") == "" {
			t.Error("X-Request-ID not set")
		}
	})

	t.Run("echoed", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/api/v1/health/live", nil)
		req.Header.Set("X-Request-ID", "req-123")
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, req)
		if got := rec.Header().Get("X-Request-ID"); got != "req-123" {
			t.Errorf("X-Request-ID = %q", got)
		}
	})
}
