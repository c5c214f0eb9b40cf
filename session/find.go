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

package session

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"reflect"

	"github.com/tomoncle/niketan/types"
	"github.com/uptrace/bun"
	"github.com/uptrace/bun/schema"
)

// Find returns the entity of type T with primary key id. A tracked instance is
// returned without touching the database; otherwise the row is loaded and
// tracked as Unchanged. A missing or pending-delete row yields types.ErrNotFound.
func Find[T any](ctx context.Context, s *Session, id int64) (*T, error) {
	table, hit, err := lookup[T](s, id)
	if err != nil || hit != nil {
		return hit, err
	}
	entity, err := load[T](ctx, s.db, table, id)
	if err != nil {
		return nil, err
	}
	return settle(s, entity)
}

// FindAsync is Find with the row load running on its own goroutine. The
// loaded entity is tracked when the Future is waited on.
func FindAsync[T any](ctx context.Context, s *Session, id int64) *types.Future[*T] {
	table, hit, err := lookup[T](s, id)
	if err != nil || hit != nil {
		return types.Completed(hit, err)
	}
	db := s.db
	return types.Async(
		func() (*T, error) { return load[T](ctx, db, table, id) },
		func(entity *T, err error) (*T, error) {
			if err != nil {
				return nil, err
			}
			return settle(s, entity)
		},
	)
}

// Query starts a select over every row of T. Nothing runs until the caller
// scans, and scanned rows stay untracked unless passed to Track.
func Query[T any](s *Session) (*bun.SelectQuery, error) {
	if err := s.Err(); err != nil {
		return nil, err
	}
	return s.db.NewSelect().Model((*T)(nil)), nil
}

// ExcludeDeleted restricts q to rows of T that are not staged for deletion
// in s, so counts and pages agree with what Track returns.
func ExcludeDeleted[T any](s *Session, q *bun.SelectQuery) (*bun.SelectQuery, error) {
	if err := s.Err(); err != nil {
		return nil, err
	}
	typ := reflect.TypeFor[T]()
	table, err := s.tableOf(typ)
	if err != nil {
		return nil, err
	}
	var ids []int64
	for _, e := range s.entries {
		if e.state == Deleted && e.table.Type == typ {
			ids = append(ids, e.Key())
		}
	}
	if len(ids) == 0 {
		return q, nil
	}
	return q.Where("?TableAlias.? NOT IN (?)", bun.Ident(table.PKs[0].Name), bun.In(ids)), nil
}

// Track attaches loaded as Unchanged, or returns the instance already tracked
// under the same key.
func Track[T any](s *Session, loaded *T) (*T, error) {
	return settle(s, loaded)
}

func lookup[T any](s *Session, id int64) (*schema.Table, *T, error) {
	if err := s.Err(); err != nil {
		return nil, nil, err
	}
	typ := reflect.TypeFor[T]()
	table, err := s.tableOf(typ)
	if err != nil {
		return nil, nil, err
	}
	if e, ok := s.byKey[entityKey{typ: typ, id: id}]; ok {
		if e.state == Deleted {
			return nil, nil, notFound(table, id)
		}
		return table, e.entity.(*T), nil
	}
	return table, nil, nil
}

func load[T any](ctx context.Context, db bun.IDB, table *schema.Table, id int64) (*T, error) {
	entity := new(T)
	pk := reflect.ValueOf(entity).Elem().FieldByIndex(table.PKs[0].Index)
	if pk.CanInt() {
		pk.SetInt(id)
	} else {
		pk.SetUint(uint64(id))
	}
	if err := db.NewSelect().Model(entity).WherePK().Scan(ctx); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, notFound(table, id)
		}
		return nil, err
	}
	return entity, nil
}

func settle[T any](s *Session, loaded *T) (*T, error) {
	if err := s.Err(); err != nil {
		return nil, err
	}
	e, err := s.Entry(loaded)
	if err != nil {
		return nil, err
	}
	if e.state != Detached {
		return loaded, nil
	}
	if key, ok := e.key(); ok {
		if tracked, exists := s.byKey[key]; exists {
			if tracked.state == Deleted {
				return nil, notFound(e.table, key.id)
			}
			return tracked.entity.(*T), nil
		}
	}
	if err := e.SetState(Unchanged); err != nil {
		return nil, err
	}
	return loaded, nil
}

func notFound(table *schema.Table, id int64) error {
	return fmt.Errorf("%w: %s with key %d", types.ErrNotFound, table.Type.Name(), id)
}
