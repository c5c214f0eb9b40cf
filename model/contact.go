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

// Package model declares the entities persisted by the data layer.
package model

import (
	"github.com/tomoncle/niketan/database"
	"github.com/uptrace/bun"
)

func init() {
	database.RegisteredModel(database.NewModelAdapter((*Contact)(nil), 0))
}

// Contact is a message left through the contact form.
type Contact struct {
	bun.BaseModel `bun:"table:contact,alias:c" json:"-"`

	ContactID int64  `bun:"contact_id,pk,autoincrement" json:"contactId"`
	Name      string `bun:"name,notnull,type:varchar(100)" json:"name" validate:"required,max=100"`
	Email     string `bun:"email,notnull,type:varchar(100)" json:"email" validate:"required,max=100,email"`
	Subject   string `bun:"subject,type:varchar(100)" json:"subject" validate:"max=100"`
	Message   string `bun:"message,notnull,type:varchar(2000)" json:"message" validate:"required,max=2000"`
}
