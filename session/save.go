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
	"fmt"
	"time"

	"github.com/tomoncle/niketan/types"
	"github.com/uptrace/bun"
)

// SaveResult counts the rows written by SaveChanges per entity state.
type SaveResult struct {
	Added    int
	Modified int
	Deleted  int
}

func (r SaveResult) Total() int { return r.Added + r.Modified + r.Deleted }

// SaveChanges writes every pending change in one transaction, in the order
// the entities were first tracked. On success added and modified entities
// become Unchanged and deleted ones are detached. On failure the transaction
// is rolled back, every entity keeps its state and keys assigned during the
// attempt are reset.
func (s *Session) SaveChanges(ctx context.Context) (SaveResult, error) {
	var result SaveResult
	if err := s.Err(); err != nil {
		return result, err
	}

	var pending []*Entry
	for _, e := range s.entries {
		if e.state.pending() {
			pending = append(pending, e)
		}
	}
	if len(pending) == 0 {
		return result, nil
	}

	if s.validateOnSave {
		if err := s.validatePending(ctx, pending); err != nil {
			return result, err
		}
	}

	keys := make(map[*Entry]int64)
	for _, e := range pending {
		if e.state == Added {
			keys[e] = e.Key()
		}
	}

	start := time.Now()
	err := s.db.RunInTx(ctx, nil, func(ctx context.Context, tx bun.Tx) error {
		for _, e := range pending {
			if err := write(ctx, tx, e); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		for e, key := range keys {
			e.setKey(key)
		}
		s.logger.Warn("Save changes failed", "session", s.id, "pending", len(pending), "error", err)
		return result, fmt.Errorf("%w: %w", types.ErrPersistenceFailure, err)
	}

	for _, e := range pending {
		switch e.state {
		case Added:
			result.Added++
			e.state = Unchanged
			s.reindex(e)
		case Modified:
			result.Modified++
			e.state = Unchanged
		case Deleted:
			result.Deleted++
			s.untrack(e)
		}
	}
	s.logger.Debug("Changes saved", "session", s.id,
		"added", result.Added, "modified", result.Modified, "deleted", result.Deleted,
		"elapsed", time.Since(start))
	return result, nil
}

func (s *Session) validatePending(ctx context.Context, pending []*Entry) error {
	for _, e := range pending {
		if e.state != Added && e.state != Modified {
			continue
		}
		if err := s.validate.StructCtx(ctx, e.entity); err != nil {
			return fmt.Errorf("%w: %s: %w", types.ErrValidation, e.table.Type.Name(), err)
		}
	}
	return nil
}

func write(ctx context.Context, tx bun.Tx, e *Entry) error {
	switch e.state {
	case Added:
		_, err := tx.NewInsert().Model(e.entity).Exec(ctx)
		return err
	case Modified:
		res, err := tx.NewUpdate().Model(e.entity).WherePK().Exec(ctx)
		if err != nil {
			return err
		}
		return expectRows(res, e)
	case Deleted:
		res, err := tx.NewDelete().Model(e.entity).WherePK().Exec(ctx)
		if err != nil {
			return err
		}
		return expectRows(res, e)
	}
	return nil
}

func expectRows(res sql.Result, e *Entry) error {
	n, err := res.RowsAffected()
	if err != nil {
		// driver does not report affected rows
		return nil
	}
	if n == 0 {
		return fmt.Errorf("%w: %s %s with key %d", types.ErrNoRowsAffected, e.state, e.table.Type.Name(), e.Key())
	}
	return nil
}
