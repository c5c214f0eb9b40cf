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

// Package niketan provides the unit of work that hands out repositories over
// one session and commits their staged changes atomically.
package niketan

import (
	"context"
	"fmt"
	"time"

	"github.com/tomoncle/niketan/contacts"
	"github.com/tomoncle/niketan/database"
	"github.com/tomoncle/niketan/metrics"
	"github.com/tomoncle/niketan/model"
	"github.com/tomoncle/niketan/repository"
	"github.com/tomoncle/niketan/session"
	"github.com/tomoncle/niketan/types"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

// UnitOfWork owns one session and the provider bound to it. It serves a
// single request and is not safe for concurrent use.
type UnitOfWork struct {
	session  *session.Session
	provider *repository.Provider
	metrics  *metrics.Collector
	tracer   trace.Tracer
	logger   database.Logger
	closed   bool
}

// Session returns the session shared by every repository of the unit.
func (u *UnitOfWork) Session() *session.Session { return u.session }

// Contacts returns the generic contact repository.
func (u *UnitOfWork) Contacts() (repository.Repository[model.Contact], error) {
	return RepositoryFor[model.Contact](u)
}

// ContactDirectory returns the contact repository with email lookup and search.
func (u *UnitOfWork) ContactDirectory() (contacts.Repository, error) {
	return Lookup[contacts.Repository](u)
}

// RepositoryFor returns the repository of entity type T, built on first use.
func RepositoryFor[T any](u *UnitOfWork) (repository.Repository[T], error) {
	if err := u.err(); err != nil {
		return nil, err
	}
	return repository.GetRepositoryForEntity[T](u.provider)
}

// Lookup returns the repository of type R, built on first use from ctor or
// the registered constructor.
func Lookup[R any](u *UnitOfWork, ctor ...repository.Constructor) (R, error) {
	if err := u.err(); err != nil {
		var zero R
		return zero, err
	}
	return repository.GetRepository[R](u.provider, ctor...)
}

// Substitute makes instance the R returned by Lookup for the rest of the unit.
func Substitute[R any](u *UnitOfWork, instance R) error {
	if err := u.err(); err != nil {
		return err
	}
	return repository.SetRepository[R](u.provider, instance)
}

// Commit writes every change staged through the unit's repositories in one
// transaction. Store errors match types.ErrPersistenceFailure and keep the
// driver error in their chain.
func (u *UnitOfWork) Commit(ctx context.Context) error {
	if err := u.err(); err != nil {
		return err
	}
	ctx, span := u.tracer.Start(ctx, "niketan.UnitOfWork.Commit", trace.WithAttributes(
		attribute.String("niketan.session.id", u.session.ID()),
		attribute.Int("niketan.changes.pending", u.session.PendingCount()),
	))
	defer span.End()

	start := time.Now()
	result, err := u.session.SaveChanges(ctx)
	u.metrics.ObserveCommit(time.Since(start), err)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		if ok, sqlErr := database.IsSqlError(err); ok {
			span.SetAttributes(attribute.String("db.error.kind", sqlErr.String()))
		}
		u.logger.Error("Commit failed", "session", u.session.ID(), "error", err)
		return err
	}

	u.metrics.AddChanges(session.Added.Name(), result.Added)
	u.metrics.AddChanges(session.Modified.Name(), result.Modified)
	u.metrics.AddChanges(session.Deleted.Name(), result.Deleted)
	span.SetAttributes(attribute.Int("niketan.changes.saved", result.Total()))
	u.logger.Debug("Commit succeeded", "session", u.session.ID(), "saved", result.Total(), "elapsed", time.Since(start))
	return nil
}

// Close releases the session. Staged changes that were not committed are
// discarded. Close is safe to call more than once and never fails.
func (u *UnitOfWork) Close() error {
	if u.closed {
		return nil
	}
	u.closed = true
	_ = u.session.Close()
	u.metrics.UnitClosed()
	return nil
}

func (u *UnitOfWork) err() error {
	if u.closed {
		return fmt.Errorf("%w: unit of work is closed", types.ErrObjectDisposed)
	}
	return nil
}
