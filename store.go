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

package niketan

import (
	"context"
	"fmt"

	"github.com/tomoncle/niketan/database"
	"github.com/tomoncle/niketan/metrics"
	"github.com/tomoncle/niketan/repository"
	"github.com/tomoncle/niketan/session"
	"github.com/tomoncle/niketan/types"
	"github.com/uptrace/bun"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/trace"
)

const instrumentationName = "github.com/tomoncle/niketan"

// Store begins units of work over a shared database handle and constructor
// table. It is safe for concurrent use.
type Store struct {
	db        *bun.DB
	factories *repository.Factories
	metrics   *metrics.Collector
	tracer    trace.Tracer
	logger    database.Logger
}

// NewStore returns a Store over db. A nil factories uses DefaultFactories and
// a nil collector records no metrics.
func NewStore(db *bun.DB, factories *repository.Factories, collector *metrics.Collector) (*Store, error) {
	if db == nil {
		return nil, fmt.Errorf("%w: store requires a database handle", types.ErrInvalidArgument)
	}
	if factories == nil {
		factories = DefaultFactories()
	}
	return &Store{
		db:        db,
		factories: factories,
		metrics:   collector,
		tracer:    otel.Tracer(instrumentationName),
		logger:    database.GetLogger(),
	}, nil
}

// SetTracerProvider replaces the global tracer provider for commit spans.
func (s *Store) SetTracerProvider(tp trace.TracerProvider) {
	if tp != nil {
		s.tracer = tp.Tracer(instrumentationName)
	}
}

func (s *Store) SetLogger(logger database.Logger) {
	if logger != nil {
		s.logger = logger
	}
}

func (s *Store) Factories() *repository.Factories { return s.factories }

// Begin opens a unit of work. The caller must Close it.
func (s *Store) Begin() (*UnitOfWork, error) {
	sess, err := session.New(s.db)
	if err != nil {
		return nil, err
	}
	sess.SetLogger(s.logger)
	sess.SetValidateOnSave(false)

	provider := repository.NewProvider(s.factories)
	provider.SetMetrics(s.metrics)
	provider.SetLogger(s.logger)
	if err := provider.Bind(sess); err != nil {
		_ = sess.Close()
		return nil, err
	}
	s.metrics.UnitOpened()
	s.logger.Debug("Unit of work begun", "session", sess.ID())
	return &UnitOfWork{
		session:  sess,
		provider: provider,
		metrics:  s.metrics,
		tracer:   s.tracer,
		logger:   s.logger,
	}, nil
}

// Do runs fn in a fresh unit of work and commits when fn succeeds. The unit
// is closed on every return path, including a panic in fn.
func (s *Store) Do(ctx context.Context, fn func(*UnitOfWork) error) error {
	uow, err := s.Begin()
	if err != nil {
		return err
	}
	defer func() { _ = uow.Close() }()
	if err := fn(uow); err != nil {
		return err
	}
	return uow.Commit(ctx)
}
