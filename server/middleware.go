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

package server

import (
	"context"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5/middleware"
	"github.com/tomoncle/niketan"
	"github.com/tomoncle/niketan/database"
)

type unitKey struct{}

// UnitOfWork returns the unit of work opened for the request.
func UnitOfWork(ctx context.Context) (*niketan.UnitOfWork, bool) {
	u, ok := ctx.Value(unitKey{}).(*niketan.UnitOfWork)
	return u, ok
}

// withUnitOfWork opens one unit of work per request and closes it when the
// handler returns. Handlers commit explicitly.
func withUnitOfWork(store *niketan.Store, logger database.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			u, err := store.Begin()
			if err != nil {
				logger.Error("Failed to begin unit of work", "error", err)
				respondError(w, logger, http.StatusServiceUnavailable, "database unavailable")
				return
			}
			defer func() { _ = u.Close() }()
			next.ServeHTTP(w, r.WithContext(context.WithValue(r.Context(), unitKey{}, u)))
		})
	}
}

func requestLogger(logger database.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
			next.ServeHTTP(ww, r)
			logger.Info("HTTP request",
				"method", r.Method,
				"path", r.URL.Path,
				"status", ww.Status(),
				"bytes", ww.BytesWritten(),
				"duration", time.Since(start),
				"requestID", middleware.GetReqID(r.Context()),
			)
		})
	}
}
