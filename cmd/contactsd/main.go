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

// Command contactsd serves the contact API over HTTP.
package main

import (
	"context"
	"errors"
	"flag"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/tomoncle/niketan"
	"github.com/tomoncle/niketan/database"
	"github.com/tomoncle/niketan/metrics"
	"github.com/tomoncle/niketan/server"
	"github.com/tomoncle/niketan/utils"
)

func main() {
	// a missing .env file is fine
	_ = godotenv.Load()

	configPath := flag.String("config", utils.EnvDefaultString("NIKETAN_CONFIG", ""), "path to the YAML configuration file")
	addr := flag.String("addr", utils.EnvDefaultString("HTTP_ADDR", ":8080"), "HTTP listen address")
	flag.Parse()

	log := utils.NewLogger("CONTACTSD")
	database.InitLogger(database.NewNamedLogger("DATABASE"))

	cfg, err := loadConfig(*configPath)
	if err != nil {
		log.WithError(err).Fatal("Failed to load configuration")
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	db, err := database.InitDB(ctx, cfg)
	if err != nil {
		log.WithError(err).Fatal("Failed to initialize database")
	}
	defer func() { _ = database.CloseDB() }()

	registry := prometheus.NewRegistry()
	registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		collectors.NewDBStatsCollector(db.DB, cfg.Connection.DBName),
	)
	collector := metrics.NewCollector()
	collector.MustRegister(registry)

	store, err := niketan.NewStore(db, niketan.DefaultFactories(), collector)
	if err != nil {
		log.WithError(err).Fatal("Failed to create store")
	}

	srv := &http.Server{
		Addr:              *addr,
		Handler:           server.NewRouter(store, registry, database.GetHealthStatus).Setup(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		log.WithField("addr", *addr).Info("Listening")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.WithError(err).Error("Server stopped")
			stop()
		}
	}()

	<-ctx.Done()
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.WithError(err).Warn("Graceful shutdown failed")
	}
	log.Info("Server exited")
}

// loadConfig reads path when set, otherwise starts from a local SQLite
// database that creates its tables on startup. DB_* variables override
// either.
func loadConfig(path string) (*database.Config, error) {
	if path != "" {
		return database.LoadConfig(path)
	}
	cfg := database.DefaultConfig()
	cfg.Connection.Type = "sqlite"
	cfg.Connection.DBName = "niketan"
	cfg.Connection.MaxOpenConns = 1
	cfg.Connection.MaxIdleConns = 1
	cfg.Bootstrap.CreateTablesOnStartup = true
	return cfg, nil
}
