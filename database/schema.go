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

package database

import (
	"context"
	"fmt"

	"github.com/uptrace/bun"
)

// SchemaBootstrapper creates missing tables for registered models. It never
// alters or drops an existing table.
type SchemaBootstrapper struct {
	db     *bun.DB
	logger Logger
	models []SQLModel
}

// NewSchemaBootstrapper returns a bootstrapper over the default model registry.
func NewSchemaBootstrapper(db *bun.DB, logger Logger) *SchemaBootstrapper {
	if logger == nil {
		logger = GetLogger()
	}
	return &SchemaBootstrapper{db: db, logger: logger, models: GetRegisteredModels()}
}

// WithModels replaces the model list, in the given order.
func (b *SchemaBootstrapper) WithModels(models ...SQLModel) *SchemaBootstrapper {
	b.models = models
	return b
}

// CreateTables runs CREATE TABLE IF NOT EXISTS for every model inside one
// transaction.
func (b *SchemaBootstrapper) CreateTables(ctx context.Context) error {
	if b.db == nil {
		return fmt.Errorf("database not initialized")
	}
	return b.db.RunInTx(ctx, nil, func(ctx context.Context, tx bun.Tx) error {
		for _, m := range b.models {
			if _, err := tx.NewCreateTable().Model(m.Instance()).IfNotExists().Exec(ctx); err != nil {
				return fmt.Errorf("create table for %s: %w", getModelName(m.Instance()), err)
			}
			b.logger.Debug("Table ensured", "model", getModelName(m.Instance()))
		}
		return nil
	})
}

func getModelName(model interface{}) string {
	return fmt.Sprintf("%T", model)
}
