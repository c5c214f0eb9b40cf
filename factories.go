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
	"github.com/tomoncle/niketan/contacts"
	"github.com/tomoncle/niketan/repository"
)

// DefaultFactories returns the constructor table used by units of work when
// none is supplied. Entity types without an entry get the default repository.
func DefaultFactories() *repository.Factories {
	return repository.NewFactories(
		repository.RegisterRepository[contacts.Repository](contacts.NewRepository),
	)
}
