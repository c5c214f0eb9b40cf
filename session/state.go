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

import "github.com/tomoncle/niketan/types"

// EntityState is the tracking state of an entity within a Session.
type EntityState int

const (
	Detached EntityState = iota
	Unchanged
	Added
	Modified
	Deleted
)

var _ types.BaseEnum = Detached

var stateNames = [...]string{"detached", "unchanged", "added", "modified", "deleted"}

func (s EntityState) IsValid() bool {
	return s >= Detached && s <= Deleted
}

func (s EntityState) Number() int {
	if !s.IsValid() {
		return types.IllegalValue
	}
	return int(s)
}

func (s EntityState) Name() string {
	if !s.IsValid() {
		return types.IllegalName
	}
	return stateNames[s]
}

func (s EntityState) String() string {
	return s.Name()
}

// pending reports whether the state produces a statement on save.
func (s EntityState) pending() bool {
	return s == Added || s == Modified || s == Deleted
}
