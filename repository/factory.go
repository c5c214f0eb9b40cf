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
	"reflect"
	"sort"

	"github.com/tomoncle/niketan/session"
)

// Constructor builds a repository bound to s. It must not retain state of
// its own beyond that binding.
type Constructor func(s *session.Session) (any, error)

// Registration pairs a type token with the constructor producing it.
type Registration struct {
	Type        reflect.Type
	Constructor Constructor
}

// RegisterEntity registers ctor as the repository of entity type T,
// replacing the default repository.
func RegisterEntity[T any](ctor func(*session.Session) (Repository[T], error)) Registration {
	return Registration{
		Type: reflect.TypeFor[T](),
		Constructor: func(s *session.Session) (any, error) {
			return ctor(s)
		},
	}
}

// RegisterRepository registers ctor as the implementation of repository type R,
// usually an interface.
func RegisterRepository[R any](ctor func(*session.Session) (R, error)) Registration {
	return Registration{
		Type: reflect.TypeFor[R](),
		Constructor: func(s *session.Session) (any, error) {
			return ctor(s)
		},
	}
}

// Factories is the immutable table of repository constructors. It is safe to
// share between goroutines.
type Factories struct {
	ctors map[reflect.Type]Constructor
}

// NewFactories builds the table from regs. A later registration for the same
// type replaces an earlier one.
func NewFactories(regs ...Registration) *Factories {
	f := &Factories{ctors: make(map[reflect.Type]Constructor, len(regs))}
	for _, reg := range regs {
		if reg.Type == nil || reg.Constructor == nil {
			continue
		}
		f.ctors[reg.Type] = reg.Constructor
	}
	return f
}

func (f *Factories) lookup(typ reflect.Type) (Constructor, bool) {
	if f == nil {
		return nil, false
	}
	ctor, ok := f.ctors[typ]
	return ctor, ok
}

// Len is the number of registered constructors.
func (f *Factories) Len() int {
	if f == nil {
		return 0
	}
	return len(f.ctors)
}

// Types lists the registered type names in sorted order.
func (f *Factories) Types() []string {
	if f == nil {
		return nil
	}
	names := make([]string, 0, len(f.ctors))
	for typ := range f.ctors {
		names = append(names, typ.String())
	}
	sort.Strings(names)
	return names
}

// GetConstructor returns the constructor registered for T.
func GetConstructor[T any](f *Factories) (Constructor, bool) {
	return f.lookup(reflect.TypeFor[T]())
}

// GetConstructorForEntity returns the constructor registered for entity type
// T, or one building the default repository.
func GetConstructorForEntity[T any](f *Factories) Constructor {
	if ctor, ok := GetConstructor[T](f); ok {
		return ctor
	}
	return defaultConstructor[T]
}

func defaultConstructor[T any](s *session.Session) (any, error) {
	return NewRepository[T](s)
}
