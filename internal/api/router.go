// Stockpilot - Inventory Recommendation Engine for Market Vendors
// Copyright 2026 Stockpilot Contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/stockpilot/stockpilot

package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Router assembles the HTTP routing tree.
type Router struct {
	handler    *Handler
	middleware *Middleware
}

// NewRouter creates a router from handlers and middleware factories.
func NewRouter(handler *Handler, middleware *Middleware) *Router {
	if middleware == nil {
		middleware = NewMiddleware(nil)
	}
	return &Router{handler: handler, middleware: middleware}
}

// Setup configures all routes and returns the root handler.
func (router *Router) Setup() http.Handler {
	r := chi.NewRouter()

	r.Use(RequestIDWithLogging())
	r.Use(chimiddleware.RealIP)
	r.Use(chimiddleware.Recoverer)
	r.Use(router.middleware.CORS())

	r.Route("/api/v1", func(r chi.Router) {
		r.Use(router.middleware.RateLimit())
		r.Use(PrometheusMetrics())

		r.Get("/health", router.handler.Health)

		r.Route("/recommendations", func(r chi.Router) {
			r.Post("/generate", router.handler.Generate)
			r.Get("/", router.handler.List)
			r.Get("/status", router.handler.Status)
			r.Put("/{id}/feedback", router.handler.SubmitFeedback)
		})
	})

	r.Handle("/metrics", promhttp.Handler())

	return r
}
