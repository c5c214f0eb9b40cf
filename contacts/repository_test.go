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

package contacts_test

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tomoncle/niketan/contacts"
	"github.com/tomoncle/niketan/database"
	"github.com/tomoncle/niketan/model"
	"github.com/tomoncle/niketan/session"
	"github.com/tomoncle/niketan/types"
)

func newRepository(t *testing.T) (contacts.Repository, *session.Session) {
	t.Helper()
	ctx := context.Background()
	mgr := database.NewDatabaseManager(&database.ConnectionConfig{
		Type:           "sqlite",
		DBName:         "file:" + strings.ReplaceAll(t.Name(), "/", "_") + "?mode=memory&cache=shared",
		MaxOpenConns:   1,
		MaxIdleConns:   1,
		ConnectTimeout: 5 * time.Second,
	})
	require.NoError(t, mgr.Connect(ctx))
	t.Cleanup(func() { _ = mgr.Disconnect() })
	require.NoError(t, database.NewSchemaBootstrapper(mgr.GetDB(), nil).
		WithModels(database.NewModelAdapter((*model.Contact)(nil), 0)).
		CreateTables(ctx))

	s, err := session.New(mgr.GetDB())
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })
	repo, err := contacts.NewRepository(s)
	require.NoError(t, err)
	return repo, s
}

func seed(t *testing.T, repo contacts.Repository, s *session.Session, rows ...model.Contact) {
	t.Helper()
	for i := range rows {
		require.NoError(t, repo.Add(&rows[i]))
	}
	_, err := s.SaveChanges(context.Background())
	require.NoError(t, err)
}

func TestNewRepositoryRejectsNilSession(t *testing.T) {
	_, err := contacts.NewRepository(nil)
	assert.ErrorIs(t, err, types.ErrInvalidArgument)
}

func TestFindByEmail(t *testing.T) {
	ctx := context.Background()
	repo, s := newRepository(t)
	seed(t, repo, s,
		model.Contact{Name: "Ann", Email: "ann@example.com", Message: "first"},
		model.Contact{Name: "Bob", Email: "bob@example.com", Message: "hello"},
		model.Contact{Name: "Ann", Email: "Ann@Example.com", Message: "second"},
	)

	found, err := repo.FindByEmail(ctx, "  ANN@example.COM ")
	require.NoError(t, err)
	require.Len(t, found, 2)
	assert.Equal(t, "first", found[0].Message)
	assert.Equal(t, "second", found[1].Message)

	none, err := repo.FindByEmail(ctx, "nobody@example.com")
	require.NoError(t, err)
	assert.Empty(t, none)
}

func TestFindByEmailSkipsPendingDeletes(t *testing.T) {
	ctx := context.Background()
	repo, s := newRepository(t)
	seed(t, repo, s, model.Contact{Name: "Cy", Email: "cy@example.com", Message: "bye"})

	found, err := repo.FindByEmail(ctx, "cy@example.com")
	require.NoError(t, err)
	require.Len(t, found, 1)
	require.NoError(t, repo.Delete(found[0]))

	found, err = repo.FindByEmail(ctx, "cy@example.com")
	require.NoError(t, err)
	assert.Empty(t, found)
}

func TestSearch(t *testing.T) {
	ctx := context.Background()
	repo, s := newRepository(t)
	seed(t, repo, s,
		model.Contact{Name: "Dora", Email: "dora@example.com", Subject: "Yoga classes", Message: "When?"},
		model.Contact{Name: "Eli", Email: "eli@example.com", Subject: "Retreat", Message: "Is YOGA included?"},
		model.Contact{Name: "Fay", Email: "fay@example.com", Subject: "Parking", Message: "Where to park"},
	)

	page, err := repo.Search(ctx, "yoga", nil)
	require.NoError(t, err)
	assert.Equal(t, 2, page.Total)
	require.Len(t, page.Items, 2)
	assert.Equal(t, "Dora", page.Items[0].Name)
	assert.Equal(t, "Eli", page.Items[1].Name)

	second, err := repo.Search(ctx, "", types.NewDefaultPageRequest(2, 2))
	require.NoError(t, err)
	assert.Equal(t, 3, second.Total)
	assert.Equal(t, 2, second.Page)
	require.Len(t, second.Items, 1)
	assert.Equal(t, "Fay", second.Items[0].Name)
}
