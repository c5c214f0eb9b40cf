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

package types

import "errors"

var (
	// ErrInvalidArgument reports a nil or unusable argument at construction time.
	ErrInvalidArgument = errors.New("invalid argument")

	// ErrNotImplemented reports that no constructor is resolvable for a repository type.
	ErrNotImplemented = errors.New("not implemented")

	// ErrNotFound reports that an entity lookup by key yielded nothing.
	ErrNotFound = errors.New("not found")

	// ErrObjectDisposed reports use of a session, provider or unit of work after release.
	ErrObjectDisposed = errors.New("object disposed")

	// ErrPersistenceFailure wraps every error returned by the store during commit.
	ErrPersistenceFailure = errors.New("persistence failure")

	ErrProviderUnbound = errors.New("repository provider is not bound to a session")
	ErrAlreadyBound    = errors.New("repository provider is already bound to a session")
	ErrTypeMismatch    = errors.New("repository type mismatch")
	ErrValidation      = errors.New("validation failed")
	ErrNoRowsAffected  = errors.New("no rows affected")
)
