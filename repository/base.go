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
	"errors"
	"fmt"

	"github.com/tomoncle/niketan/session"
	"github.com/tomoncle/niketan/types"
	"github.com/uptrace/bun"
)

type baseRepositoryImpl[T any] struct {
	session *session.Session
}

// NewRepository returns the default repository for T bound to s.
func NewRepository[T any](s *session.Session) (Repository[T], error) {
	if s == nil {
		return nil, fmt.Errorf("%w: repository requires a session", types.ErrInvalidArgument)
	}
	return &baseRepositoryImpl[T]{session: s}, nil
}

func (r *baseRepositoryImpl[T]) Session() *session.Session { return r.session }

func (r *baseRepositoryImpl[T]) GetAll() (*bun.SelectQuery, error) {
	return session.Query[T](r.session)
}

func (r *baseRepositoryImpl[T]) List(ctx context.Context, filter *types.QueryFilter) ([]*T, error) {
	query, err := r.GetAll()
	if err != nil {
		return nil, err
	}
	if filter != nil {
		query = query.Where(filter.Schema, filter.Args...)
	}
	entities := make([]*T, 0)
	if err := query.Model(&entities).Scan(ctx); err != nil {
		return nil, err
	}
	return r.track(entities)
}

func (r *baseRepositoryImpl[T]) Page(ctx context.Context, pageRequest *types.PageRequest) (*types.Pagination[T], error) {
	if pageRequest == nil {
		pageRequest = types.NewDefaultPageRequest(1, types.DefaultPageSize)
	}
	query, err := r.GetAll()
	if err != nil {
		return nil, err
	}
	if f := pageRequest.GetFilter(); f != nil {
		query = query.Where(f.Schema, f.Args...)
	}
	if query, err = session.ExcludeDeleted[T](r.session, query); err != nil {
		return nil, err
	}
	pagination := types.NewPagination[T](pageRequest)
	total, err := query.Count(ctx)
	if err != nil || total == 0 {
		return pagination, err
	}
	var entities []*T
	err = query.Model(&entities).
		Offset(pageRequest.GetOffset()).
		Limit(pageRequest.GetPageSize()).
		Order(pageRequest.GetOrders()...).
		Scan(ctx)
	if err != nil {
		return nil, err
	}
	if entities, err = r.track(entities); err != nil {
		return nil, err
	}
	pagination.Total = total
	pagination.Items = entities
	return pagination, nil
}

func (r *baseRepositoryImpl[T]) GetByID(ctx context.Context, id int64) (*T, error) {
	return session.Find[T](ctx, r.session, id)
}

func (r *baseRepositoryImpl[T]) GetByIDAsync(ctx context.Context, id int64) *types.Future[*T] {
	return session.FindAsync[T](ctx, r.session, id)
}

func (r *baseRepositoryImpl[T]) Add(entity *T) error {
	return r.session.Add(entity)
}

func (r *baseRepositoryImpl[T]) Update(entity *T) error {
	e, err := r.session.Entry(entity)
	if err != nil {
		return err
	}
	if e.State() == session.Detached {
		if err := e.SetState(session.Unchanged); err != nil {
			return err
		}
	}
	return e.SetState(session.Modified)
}

func (r *baseRepositoryImpl[T]) Delete(entity *T) error {
	e, err := r.session.Entry(entity)
	if err != nil {
		return err
	}
	if e.State() == session.Deleted {
		if err := e.SetState(session.Detached); err != nil {
			return err
		}
	}
	return r.session.Remove(entity)
}

func (r *baseRepositoryImpl[T]) DeleteByID(ctx context.Context, id int64) error {
	entity, err := r.GetByID(ctx, id)
	if errors.Is(err, types.ErrNotFound) {
		return nil
	}
	if err != nil {
		return err
	}
	return r.Delete(entity)
}

// track swaps rows already known to the session for their tracked instances.
func (r *baseRepositoryImpl[T]) track(entities []*T) ([]*T, error) {
	out := entities[:0]
	for _, entity := range entities {
		tracked, err := session.Track(r.session, entity)
		if errors.Is(err, types.ErrNotFound) {
			continue
		}
		if err != nil {
			return nil, err
		}
		out = append(out, tracked)
	}
	return out, nil
}
