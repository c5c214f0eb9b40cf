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
	"fmt"
	"reflect"
	"slices"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"github.com/tomoncle/niketan/database"
	"github.com/tomoncle/niketan/types"
	"github.com/uptrace/bun"
	"github.com/uptrace/bun/schema"
)

type entityKey struct {
	typ reflect.Type
	id  int64
}

// Session tracks entities loaded or staged through it and writes their
// changes in SaveChanges. The underlying *bun.DB pool is borrowed, not owned.
type Session struct {
	id             string
	db             *bun.DB
	logger         database.Logger
	validate       *validator.Validate
	validateOnSave bool

	entries  []*Entry
	byEntity map[any]*Entry
	byKey    map[entityKey]*Entry
	closed   bool
}

// New returns an open Session over db with validation-on-save enabled.
func New(db *bun.DB) (*Session, error) {
	if db == nil {
		return nil, fmt.Errorf("%w: session requires a database handle", types.ErrInvalidArgument)
	}
	return &Session{
		id:             uuid.NewString(),
		db:             db,
		logger:         database.GetLogger(),
		validate:       validator.New(validator.WithRequiredStructEnabled()),
		validateOnSave: true,
		byEntity:       make(map[any]*Entry),
		byKey:          make(map[entityKey]*Entry),
	}, nil
}

// ID identifies the session in log lines.
func (s *Session) ID() string { return s.id }

// DB returns the borrowed database handle for building custom queries.
func (s *Session) DB() *bun.DB { return s.db }

func (s *Session) SetLogger(logger database.Logger) {
	if logger != nil {
		s.logger = logger
	}
}

// SetValidateOnSave toggles struct validation of added and modified
// entities before they are written.
func (s *Session) SetValidateOnSave(enabled bool) { s.validateOnSave = enabled }

func (s *Session) ValidateOnSave() bool { return s.validateOnSave }

// SetValidator replaces the validator used when validation-on-save is enabled.
func (s *Session) SetValidator(v *validator.Validate) {
	if v != nil {
		s.validate = v
	}
}

// Err returns types.ErrObjectDisposed once the session is closed.
func (s *Session) Err() error {
	if s.closed {
		return fmt.Errorf("%w: session %s is closed", types.ErrObjectDisposed, s.id)
	}
	return nil
}

func (s *Session) Closed() bool { return s.closed }

// Close releases the session and forgets every tracked entity. It is safe to
// call more than once.
func (s *Session) Close() error {
	if s.closed {
		return nil
	}
	discarded := s.PendingCount()
	s.closed = true
	s.entries = nil
	s.byEntity = nil
	s.byKey = nil
	s.logger.Debug("Session closed", "session", s.id, "discarded_changes", discarded)
	return nil
}

// Entry returns the tracking entry of entity. An untracked entity yields a
// Detached entry that starts tracking once its state is set.
func (s *Session) Entry(entity any) (*Entry, error) {
	if err := s.Err(); err != nil {
		return nil, err
	}
	table, value, err := s.describe(entity)
	if err != nil {
		return nil, err
	}
	if e, ok := s.byEntity[entity]; ok {
		return e, nil
	}
	return &Entry{session: s, entity: entity, value: value, table: table, state: Detached}, nil
}

// Attach starts tracking entity as Unchanged. Tracked entities keep their state.
func (s *Session) Attach(entity any) error {
	e, err := s.Entry(entity)
	if err != nil {
		return err
	}
	if e.state != Detached {
		return nil
	}
	return e.SetState(Unchanged)
}

// Add stages entity for insertion whatever its current state. A tracked
// entity with a generated key loses that key and is inserted as a new row.
func (s *Session) Add(entity any) error {
	e, err := s.Entry(entity)
	if err != nil {
		return err
	}
	return e.SetState(Added)
}

// Remove stages entity for deletion. An entity staged for insertion is
// simply forgotten; an untracked entity is attached first.
func (s *Session) Remove(entity any) error {
	e, err := s.Entry(entity)
	if err != nil {
		return err
	}
	return e.SetState(Deleted)
}

// Detach stops tracking entity. Detaching an untracked entity is a no-op.
func (s *Session) Detach(entity any) error {
	e, err := s.Entry(entity)
	if err != nil {
		return err
	}
	return e.SetState(Detached)
}

// PendingCount is the number of tracked entities that SaveChanges would write.
func (s *Session) PendingCount() int {
	n := 0
	for _, e := range s.entries {
		if e.state.pending() {
			n++
		}
	}
	return n
}

func (s *Session) HasChanges() bool { return s.PendingCount() > 0 }

// Tracked returns the tracking entries in the order they were first tracked.
func (s *Session) Tracked() []*Entry {
	return slices.Clone(s.entries)
}

func (s *Session) transition(e *Entry, target EntityState) error {
	if err := s.Err(); err != nil {
		return err
	}
	if !target.IsValid() {
		return fmt.Errorf("%w: entity state %d", types.ErrInvalidArgument, int(target))
	}
	current := e.state
	switch {
	case current == target:
		return nil
	case target == Detached:
		s.untrack(e)
	case current == Detached:
		if target == Deleted && e.isNew() {
			// nothing stored under a zero key; there is nothing to delete
			return nil
		}
		s.track(e, target)
	case current == Added && target == Deleted:
		s.untrack(e)
	case current == Added && target == Modified:
		// the insert already carries the current values
	case target == Added && (e.table.PKs[0].AutoIncrement || e.table.PKs[0].Identity):
		// a stored row added again is inserted as a copy under a fresh key
		s.unindex(e)
		e.setKey(0)
		e.state = Added
	default:
		e.state = target
	}
	s.logger.Debug("Entity state changed", "session", s.id, "entity", e.table.Type.Name(), "from", current, "to", e.state)
	return nil
}

func (s *Session) track(e *Entry, state EntityState) {
	e.state = state
	s.entries = append(s.entries, e)
	s.byEntity[e.entity] = e
	s.reindex(e)
}

func (s *Session) untrack(e *Entry) {
	s.unindex(e)
	delete(s.byEntity, e.entity)
	if i := slices.Index(s.entries, e); i >= 0 {
		s.entries = slices.Delete(s.entries, i, i+1)
	}
	e.state = Detached
}

func (s *Session) unindex(e *Entry) {
	if e.indexed && s.byKey[e.index] == e {
		delete(s.byKey, e.index)
	}
	e.indexed = false
}

// reindex files e under its current key in the identity map.
func (s *Session) reindex(e *Entry) {
	key, ok := e.key()
	if e.indexed && (!ok || key != e.index) && s.byKey[e.index] == e {
		delete(s.byKey, e.index)
	}
	e.indexed = ok
	if !ok {
		return
	}
	e.index = key
	if other, exists := s.byKey[key]; exists && other != e {
		// the newer instance supersedes the tracked copy of the same row
		s.logger.Debug("Replacing tracked instance", "session", s.id, "entity", e.table.Type.Name(), "key", key.id)
		s.untrack(other)
	}
	s.byKey[key] = e
}

// describe validates that entity is a pointer to a Bun model with a single
// integer primary key and returns its table metadata.
func (s *Session) describe(entity any) (*schema.Table, reflect.Value, error) {
	v := reflect.ValueOf(entity)
	if !v.IsValid() || v.Kind() != reflect.Pointer || v.IsNil() || v.Elem().Kind() != reflect.Struct {
		return nil, reflect.Value{}, fmt.Errorf("%w: entity must be a non-nil struct pointer, got %T", types.ErrInvalidArgument, entity)
	}
	table, err := s.tableOf(v.Type().Elem())
	if err != nil {
		return nil, reflect.Value{}, err
	}
	return table, v, nil
}

func (s *Session) tableOf(typ reflect.Type) (*schema.Table, error) {
	table := s.db.Dialect().Tables().Get(typ)
	if table == nil || len(table.PKs) != 1 {
		return nil, fmt.Errorf("%w: %s must declare exactly one primary key", types.ErrInvalidArgument, typ)
	}
	switch typ.FieldByIndex(table.PKs[0].Index).Type.Kind() {
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64,
		reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
		return table, nil
	}
	return nil, fmt.Errorf("%w: primary key of %s must be an integer", types.ErrInvalidArgument, typ)
}
