/*
 * Copyright 2025 tomoncle.
 * Licensed under the Apache License, Version 2.0 (the "License");
 * you may not use this file except in compliance with the License.
 * You may obtain a copy of the License at
 *
 *     http://www.apache.org/licenses/LICENSE-2.0
 *
 * Unless required by applicable law or agreed to in writing, software
 * distributed under the License is distributed on an "AS IS" BASIS,
 * WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
 * See the License for the specific language governing permissions and
 * limitations under the License.
 */

// Package server exposes the contact endpoints over HTTP, one unit of work
// per request.
package server

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/go-playground/validator/v10"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/tomoncle/niketan"
	"github.com/tomoncle/niketan/database"
)

// HealthFunc reports the state of the database.
type HealthFunc func(ctx context.Context) *database.HealthStatus

// Router wires the HTTP routes.
type Router struct {
	store    *niketan.Store
	gatherer prometheus.Gatherer
	health   HealthFunc
	logger   database.Logger
	validate *validator.Validate
}

// NewRouter returns a Router serving contacts from store. A nil gatherer
// disables /metrics and a nil health reports healthy.
func NewRouter(store *niketan.Store, gatherer prometheus.Gatherer, health HealthFunc) *Router {
	return &Router{
		store:    store,
		gatherer: gatherer,
		health:   health,
		logger:   database.NewNamedLogger("HTTP"),
		validate: newValidator(),
	}
}

func (rt *Router) SetLogger(logger database.Logger) {
	if logger != nil {
		rt.logger = logger
	}
}

// Setup configures middleware and routes.
func (rt *Router) Setup() http.Handler {
	router := chi.NewRouter()

	router.Use(chimiddleware.RequestID)
	router.Use(chimiddleware.RealIP)
	router.Use(chimiddleware.Recoverer)
	router.Use(requestLogger(rt.logger))

	router.Get("/healthz", rt.healthCheck)
	if rt.gatherer != nil {
		router.Handle("/metrics", promhttp.HandlerFor(rt.gatherer, promhttp.HandlerOpts{}))
	}

	router.Route("/api/contacts", func(r chi.Router) {
		r.Use(withUnitOfWork(rt.store, rt.logger))
		h := &contactHandler{logger: rt.logger, validate: rt.validate}
		r.Get("/", h.List)
		r.Post("/", h.Create)
		r.Get("/{contactID}", h.Get)
		r.Put("/{contactID}", h.Update)
		r.Delete("/{contactID}", h.Delete)
	})
	return router
}

func (rt *Router) healthCheck(w http.ResponseWriter, r *http.Request) {
	if rt.health == nil {
		respondJSON(w, rt.logger, http.StatusOK, map[string]any{"healthy": true})
		return
	}
	status := rt.health(r.Context())
	code := http.StatusOK
	if status == nil || !status.Healthy {
		code = http.StatusServiceUnavailable
	}
	respondJSON(w, rt.logger, code, status)
}

func respondJSON(w http.ResponseWriter, logger database.Logger, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if data == nil {
		return
	}
	if err := json.NewEncoder(w).Encode(data); err != nil {
		logger.Error("Failed to encode response", "error", err)
	}
}

func respondError(w http.ResponseWriter, logger database.Logger, status int, message string) {
	respondJSON(w, logger, status, map[string]any{
		"error":   true,
		"message": message,
		"code":    status,
	})
}
