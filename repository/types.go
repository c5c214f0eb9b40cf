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

package repository

import (
	"context"

	"github.com/tomoncle/niketan/session"
	"github.com/tomoncle/niketan/types"
	"github.com/uptrace/bun"
)

// QueryRepository exposes composable queries over every entity of type T.
type QueryRepository[T any] interface {
	// GetAll returns a select over all rows of T; nothing runs until it is scanned.
	GetAll() (*bun.SelectQuery, error)

	List(ctx context.Context, filter *types.QueryFilter) ([]*T, error)

	Page(ctx context.Context, page *types.PageRequest) (*types.Pagination[T], error)
}

// ReadRepository loads single entities by primary key. A missing row yields
// an error matching types.ErrNotFound.
type ReadRepository[T any] interface {
	GetByID(ctx context.Context, id int64) (*T, error)

	GetByIDAsync(ctx context.Context, id int64) *types.Future[*T]
}

// WriteRepository stages changes in the bound session. Nothing is written
// until the session saves.
type WriteRepository[T any] interface {
	Add(entity *T) error

	Update(entity *T) error

	Delete(entity *T) error

	// DeleteByID stages the removal of the row with key id. A missing row is a no-op.
	DeleteByID(ctx context.Context, id int64) error
}

// Repository combines query, read and write access to entities of type T
// through one session.
type Repository[T any] interface {
	QueryRepository[T]
	ReadRepository[T]
	WriteRepository[T]

	// Session returns the session the repository is bound to.
	Session() *session.Session
}
