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

// Package contacts holds the contact repository with its lookups beyond
// generic CRUD.
package contacts

import (
	"context"
	"errors"
	"strings"

	"github.com/tomoncle/niketan/model"
	"github.com/tomoncle/niketan/repository"
	"github.com/tomoncle/niketan/session"
	"github.com/tomoncle/niketan/types"
)

const defaultOrder = "c.contact_id ASC"

// Repository is the contact repository.
type Repository interface {
	repository.Repository[model.Contact]

	// FindByEmail returns the contacts left from email, oldest first.
	FindByEmail(ctx context.Context, email string) ([]*model.Contact, error)

	// Search pages through contacts whose name, subject or message contains
	// term, case-insensitively. An empty term matches every contact.
	Search(ctx context.Context, term string, page *types.PageRequest) (*types.Pagination[model.Contact], error)
}

type contactRepository struct {
	repository.Repository[model.Contact]
}

// NewRepository returns the contact repository bound to s.
func NewRepository(s *session.Session) (Repository, error) {
	base, err := repository.NewRepository[model.Contact](s)
	if err != nil {
		return nil, err
	}
	return &contactRepository{Repository: base}, nil
}

func (r *contactRepository) FindByEmail(ctx context.Context, email string) ([]*model.Contact, error) {
	query, err := r.GetAll()
	if err != nil {
		return nil, err
	}
	var found []*model.Contact
	err = query.Model(&found).
		Where("LOWER(c.email) = ?", strings.ToLower(strings.TrimSpace(email))).
		Order(defaultOrder).
		Scan(ctx)
	if err != nil {
		return nil, err
	}
	out := make([]*model.Contact, 0, len(found))
	for _, c := range found {
		tracked, err := session.Track(r.Session(), c)
		if errors.Is(err, types.ErrNotFound) {
			continue
		}
		if err != nil {
			return nil, err
		}
		out = append(out, tracked)
	}
	return out, nil
}

func (r *contactRepository) Search(ctx context.Context, term string, page *types.PageRequest) (*types.Pagination[model.Contact], error) {
	if page == nil {
		page = types.NewDefaultPageRequest(1, types.DefaultPageSize)
	}
	orders := page.GetOrders()
	if len(orders) == 0 {
		orders = []string{defaultOrder}
	}
	var filter *types.QueryFilter
	if term = strings.TrimSpace(term); term != "" {
		pattern := "%" + strings.ToLower(term) + "%"
		filter = types.NewQueryFilter(
			"(LOWER(c.name) LIKE ? OR LOWER(c.subject) LIKE ? OR LOWER(c.message) LIKE ?)",
			pattern, pattern, pattern)
	}
	return r.Page(ctx, types.NewPageRequest(page.GetPage(), page.GetPageSize(), filter, orders...))
}
