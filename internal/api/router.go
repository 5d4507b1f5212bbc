// Affinity - Campus Friend Recommendation Engine
// Copyright 2026 Campusgraph Labs
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/campusgraph/affinity

// Package api provides the HTTP surface of Affinity using the Chi router:
// recommendation generation, runtime configuration, cache administration,
// health, and Prometheus metrics.
package api

import (
	"context"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/go-chi/httprate"
	"github.com/go-playground/validator/v10"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/campusgraph/affinity/internal/cache"
	"github.com/campusgraph/affinity/internal/config"
	"github.com/campusgraph/affinity/internal/engine"
	"github.com/campusgraph/affinity/internal/store"
)

// Engine is the recommendation engine surface the API depends on.
// Satisfied by *engine.Engine; tests substitute fakes.
type Engine interface {
	GenerateRecommendations(ctx context.Context, req engine.Request) (*engine.Response, error)
	GetConfiguration() engine.Configuration
	UpdateWeights(update engine.WeightsUpdate) error
	UpdateParameters(update engine.ParametersUpdate) error
}

// Router assembles the HTTP handler tree.
type Router struct {
	handler *Handler
	cfg     config.ServerConfig
}

// NewRouter creates a router over the engine, cache, and store.
func NewRouter(cfg config.ServerConfig, eng Engine, cacheStore cache.Store, profiles store.ProfileStore) *Router {
	return &Router{
		handler: &Handler{
			engine:   eng,
			cache:    cacheStore,
			profiles: profiles,
			validate: validator.New(validator.WithRequiredStructEnabled()),
		},
		cfg: cfg,
	}
}

// Setup builds the full route tree with the middleware stack applied.
func (router *Router) Setup() http.Handler {
	r := chi.NewRouter()

	r.Use(RequestIDWithLogging())
	r.Use(chimiddleware.RealIP)
	r.Use(chimiddleware.Recoverer)
	if len(router.cfg.CORSOrigins) > 0 {
		r.Use(cors.Handler(cors.Options{
			AllowedOrigins: router.cfg.CORSOrigins,
			AllowedMethods: []string{"GET", "POST", "PATCH", "OPTIONS"},
			AllowedHeaders: []string{"Content-Type"},
			MaxAge:         86400,
		}))
	}

	r.Route("/api/v1/health", func(r chi.Router) {
		r.Use(httprate.LimitByIP(1000, time.Minute))
		r.Get("/live", router.handler.HealthLive)
		r.Get("/ready", router.handler.HealthReady)
	})

	r.Route("/api/v1", func(r chi.Router) {
		limit := router.cfg.RateLimitPerMinute
		if limit <= 0 {
			limit = 300
		}
		r.Use(httprate.LimitByIP(limit, time.Minute))
		r.Use(PrometheusMetrics())

		r.Post("/recommendations", router.handler.GenerateRecommendations)
		r.Get("/recommendations/config", router.handler.GetConfiguration)
		r.Patch("/recommendations/config/weights", router.handler.UpdateWeights)
		r.Patch("/recommendations/config/parameters", router.handler.UpdateParameters)

		r.Post("/cache/invalidate", router.handler.InvalidateCache)
		r.Get("/cache/stats", router.handler.CacheStats)
	})

	r.Handle("/metrics", promhttp.Handler())

	return r
}
