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
	"sync"

	"github.com/tomoncle/niketan/database"
	"github.com/tomoncle/niketan/repository"
	"github.com/tomoncle/niketan/types"
)

// Service runs each operation on entities of type T in its own unit of work.
type Service[T any] interface {
	// Get returns a single entity by its key.
	Get(ctx context.Context, id int64) (*T, error)

	// All returns all entities.
	All(ctx context.Context) ([]*T, error)

	// List returns entities that match the provided filter.
	List(ctx context.Context, filter *types.QueryFilter) ([]*T, error)

	// Page returns a paginated list of entities.
	Page(ctx context.Context, page *types.PageRequest) (*types.Pagination[T], error)

	// Save inserts one or more new entities in a single commit.
	Save(ctx context.Context, model ...*T) error

	// Update writes every field of an existing entity.
	Update(ctx context.Context, model *T) error

	// Delete removes an entity by its key. A missing key is not an error.
	Delete(ctx context.Context, id int64) error
}

type baseServiceImpl[T any] struct {
	store *Store
	once  sync.Once
	err   error
}

// NewService returns a Service over the global database connection. The
// store is created on first use.
func NewService[T any]() Service[T] {
	return &baseServiceImpl[T]{}
}

// NewServiceWithStore returns a Service whose units of work come from store.
func NewServiceWithStore[T any](store *Store) Service[T] {
	return &baseServiceImpl[T]{store: store}
}

func (s *baseServiceImpl[T]) baseStore() (*Store, error) {
	s.once.Do(func() {
		if s.store == nil {
			s.store, s.err = NewStore(database.GetDB(), nil, nil)
		}
	})
	return s.store, s.err
}

func (s *baseServiceImpl[T]) do(ctx context.Context, fn func(repository.Repository[T]) error) error {
	store, err := s.baseStore()
	if err != nil {
		return err
	}
	return store.Do(ctx, func(u *UnitOfWork) error {
		repo, err := RepositoryFor[T](u)
		if err != nil {
			return err
		}
		return fn(repo)
	})
}

func (s *baseServiceImpl[T]) Get(ctx context.Context, id int64) (entity *T, err error) {
	err = s.do(ctx, func(r repository.Repository[T]) error {
		entity, err = r.GetByID(ctx, id)
		return err
	})
	return entity, err
}

func (s *baseServiceImpl[T]) All(ctx context.Context) ([]*T, error) {
	return s.List(ctx, nil)
}

func (s *baseServiceImpl[T]) List(ctx context.Context, filter *types.QueryFilter) (entities []*T, err error) {
	err = s.do(ctx, func(r repository.Repository[T]) error {
		entities, err = r.List(ctx, filter)
		return err
	})
	return entities, err
}

func (s *baseServiceImpl[T]) Page(ctx context.Context, page *types.PageRequest) (pagination *types.Pagination[T], err error) {
	err = s.do(ctx, func(r repository.Repository[T]) error {
		pagination, err = r.Page(ctx, page)
		return err
	})
	return pagination, err
}

func (s *baseServiceImpl[T]) Save(ctx context.Context, model ...*T) error {
	return s.do(ctx, func(r repository.Repository[T]) error {
		for _, m := range model {
			if err := r.Add(m); err != nil {
				return err
			}
		}
		return nil
	})
}

func (s *baseServiceImpl[T]) Update(ctx context.Context, model *T) error {
	return s.do(ctx, func(r repository.Repository[T]) error {
		return r.Update(model)
	})
}

func (s *baseServiceImpl[T]) Delete(ctx context.Context, id int64) error {
	return s.do(ctx, func(r repository.Repository[T]) error {
		return r.DeleteByID(ctx, id)
	})
}
