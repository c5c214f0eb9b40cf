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
	"reflect"

	"github.com/uptrace/bun/schema"
)

// Entry is the tracking record of one entity instance.
type Entry struct {
	session *Session
	entity  any
	value   reflect.Value
	table   *schema.Table
	state   EntityState

	index   entityKey
	indexed bool
}

// Entity returns the tracked pointer.
func (e *Entry) Entity() any { return e.entity }

func (e *Entry) State() EntityState { return e.state }

// Table returns the Bun table metadata of the entity type.
func (e *Entry) Table() *schema.Table { return e.table }

// SetState moves the entity to state, starting or ending tracking as needed.
//
// Forcing Deleted on an Added entity forgets it, and Modified on an Added
// entity keeps it Added.
func (e *Entry) SetState(state EntityState) error {
	return e.session.transition(e, state)
}

// Key returns the current primary key value, zero for a not yet inserted row.
func (e *Entry) Key() int64 {
	pk := e.value.Elem().FieldByIndex(e.table.PKs[0].Index)
	if pk.CanInt() {
		return pk.Int()
	}
	return int64(pk.Uint())
}

func (e *Entry) setKey(id int64) {
	pk := e.value.Elem().FieldByIndex(e.table.PKs[0].Index)
	if pk.CanInt() {
		pk.SetInt(id)
		return
	}
	pk.SetUint(uint64(id))
}

func (e *Entry) isNew() bool { return e.Key() == 0 }

func (e *Entry) key() (entityKey, bool) {
	id := e.Key()
	if id == 0 {
		return entityKey{}, false
	}
	return entityKey{typ: e.table.Type, id: id}, true
}
