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

package repository_test

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tomoncle/niketan/database"
	"github.com/tomoncle/niketan/model"
	"github.com/tomoncle/niketan/repository"
	"github.com/tomoncle/niketan/session"
	"github.com/tomoncle/niketan/types"
	"github.com/uptrace/bun"
)

func newTestSession(t *testing.T) *session.Session {
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
	return s
}

func newContactRepo(t *testing.T, s *session.Session) repository.Repository[model.Contact] {
	t.Helper()
	repo, err := repository.NewRepository[model.Contact](s)
	require.NoError(t, err)
	return repo
}

func contact(name string) *model.Contact {
	return &model.Contact{
		Name:    name,
		Email:   strings.ToLower(name) + "@example.com",
		Subject: "Subject " + name,
		Message: "Message " + name,
	}
}

func seed(t *testing.T, s *session.Session, names ...string) []*model.Contact {
	t.Helper()
	repo := newContactRepo(t, s)
	out := make([]*model.Contact, 0, len(names))
	for _, n := range names {
		c := contact(n)
		require.NoError(t, repo.Add(c))
		out = append(out, c)
	}
	_, err := s.SaveChanges(context.Background())
	require.NoError(t, err)
	return out
}

func pendingStates(s *session.Session) []session.EntityState {
	var states []session.EntityState
	for _, e := range s.Tracked() {
		if st := e.State(); st == session.Added || st == session.Modified || st == session.Deleted {
			states = append(states, st)
		}
	}
	return states
}

func TestNewRepositoryRejectsNilSession(t *testing.T) {
	repo, err := repository.NewRepository[model.Contact](nil)
	assert.Nil(t, repo)
	assert.ErrorIs(t, err, types.ErrInvalidArgument)
}

func TestAddCommitGetByID(t *testing.T) {
	ctx := context.Background()
	s := newTestSession(t)
	repo := newContactRepo(t, s)

	added := contact("Ada")
	require.NoError(t, repo.Add(added))
	_, err := s.SaveChanges(ctx)
	require.NoError(t, err)
	require.NotZero(t, added.ContactID)

	fresh, err := session.New(s.DB())
	require.NoError(t, err)
	defer func() { _ = fresh.Close() }()

	loaded, err := newContactRepo(t, fresh).GetByID(ctx, added.ContactID)
	require.NoError(t, err)
	assert.Equal(t, *added, *loaded)

	async, err := newContactRepo(t, fresh).GetByIDAsync(ctx, added.ContactID).Wait(ctx)
	require.NoError(t, err)
	assert.Same(t, loaded, async)
}

func TestGetByIDNotFound(t *testing.T) {
	ctx := context.Background()
	repo := newContactRepo(t, newTestSession(t))

	_, err := repo.GetByID(ctx, 12345)
	assert.ErrorIs(t, err, types.ErrNotFound)

	_, err = repo.GetByIDAsync(ctx, 12345).Wait(ctx)
	assert.ErrorIs(t, err, types.ErrNotFound)
}

func countContacts(t *testing.T, s *session.Session) int {
	t.Helper()
	n, err := s.DB().NewSelect().Model((*model.Contact)(nil)).Count(context.Background())
	require.NoError(t, err)
	return n
}

func TestAddForcesAddedState(t *testing.T) {
	ctx := context.Background()
	s := newTestSession(t)
	repo := newContactRepo(t, s)
	c := seed(t, s, "Deleted")[0]
	oldID := c.ContactID

	require.NoError(t, repo.Delete(c))
	require.NoError(t, repo.Add(c))

	e, err := s.Entry(c)
	require.NoError(t, err)
	assert.Equal(t, session.Added, e.State())
	assert.Zero(t, c.ContactID)

	res, err := s.SaveChanges(ctx)
	require.NoError(t, err)
	assert.Equal(t, session.SaveResult{Added: 1}, res)
	assert.NotZero(t, c.ContactID)
	assert.NotEqual(t, oldID, c.ContactID)
	assert.Equal(t, 2, countContacts(t, s))

	same, err := repo.GetByID(ctx, c.ContactID)
	require.NoError(t, err)
	assert.Same(t, c, same)

	// the session keeps working after the re-insert
	seed(t, s, "Later")
	assert.Equal(t, 3, countContacts(t, s))
}

func TestAddLoadedEntityInsertsCopy(t *testing.T) {
	ctx := context.Background()
	s := newTestSession(t)
	stored := seed(t, s, "Stored")[0]

	other, err := session.New(s.DB())
	require.NoError(t, err)
	defer func() { _ = other.Close() }()
	repo := newContactRepo(t, other)

	loaded, err := repo.GetByID(ctx, stored.ContactID)
	require.NoError(t, err)
	require.NoError(t, repo.Add(loaded))
	assert.Equal(t, []session.EntityState{session.Added}, pendingStates(other))

	_, err = other.SaveChanges(ctx)
	require.NoError(t, err)
	assert.NotEqual(t, stored.ContactID, loaded.ContactID)
	assert.Equal(t, 2, countContacts(t, s))

	original, err := repo.GetByID(ctx, stored.ContactID)
	require.NoError(t, err)
	assert.NotSame(t, loaded, original)
	assert.Equal(t, stored.Name, original.Name)
}

func TestUpdateIsIdempotent(t *testing.T) {
	ctx := context.Background()
	s := newTestSession(t)
	stored := seed(t, s, "Before")[0]

	other, err := session.New(s.DB())
	require.NoError(t, err)
	defer func() { _ = other.Close() }()
	repo := newContactRepo(t, other)

	detached := *stored
	detached.Subject = "After"
	require.NoError(t, repo.Update(&detached))
	require.NoError(t, repo.Update(&detached))
	assert.Equal(t, []session.EntityState{session.Modified}, pendingStates(other))

	_, err = other.SaveChanges(ctx)
	require.NoError(t, err)

	check, err := session.New(s.DB())
	require.NoError(t, err)
	defer func() { _ = check.Close() }()
	loaded, err := newContactRepo(t, check).GetByID(ctx, stored.ContactID)
	require.NoError(t, err)
	assert.Equal(t, "After", loaded.Subject)
}

func TestUpdateOfAddedStaysAdded(t *testing.T) {
	s := newTestSession(t)
	repo := newContactRepo(t, s)

	c := contact("New")
	require.NoError(t, repo.Add(c))
	require.NoError(t, repo.Update(c))
	assert.Equal(t, []session.EntityState{session.Added}, pendingStates(s))
}

func TestDeleteTwiceStagesSingleRemoval(t *testing.T) {
	ctx := context.Background()
	s := newTestSession(t)
	repo := newContactRepo(t, s)
	c := seed(t, s, "Twice")[0]

	require.NoError(t, repo.Delete(c))
	require.NoError(t, repo.Delete(c))
	assert.Equal(t, []session.EntityState{session.Deleted}, pendingStates(s))

	res, err := s.SaveChanges(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, res.Deleted)

	_, err = repo.GetByID(ctx, c.ContactID)
	assert.ErrorIs(t, err, types.ErrNotFound)
}

func TestDeleteUntrackedEntityAttachesFirst(t *testing.T) {
	ctx := context.Background()
	s := newTestSession(t)
	stored := seed(t, s, "Remote")[0]

	other, err := session.New(s.DB())
	require.NoError(t, err)
	defer func() { _ = other.Close() }()

	copied := *stored
	require.NoError(t, newContactRepo(t, other).Delete(&copied))
	res, err := other.SaveChanges(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, res.Deleted)
}

func TestDeleteAddedEntityDropsInsert(t *testing.T) {
	s := newTestSession(t)
	repo := newContactRepo(t, s)

	c := contact("Transient")
	require.NoError(t, repo.Add(c))
	require.NoError(t, repo.Delete(c))
	assert.Empty(t, pendingStates(s))
}

func TestDeleteByID(t *testing.T) {
	ctx := context.Background()
	s := newTestSession(t)
	repo := newContactRepo(t, s)
	c := seed(t, s, "ByID")[0]

	require.NoError(t, repo.DeleteByID(ctx, 987654))
	assert.Empty(t, pendingStates(s))

	require.NoError(t, repo.DeleteByID(ctx, c.ContactID))
	require.NoError(t, repo.DeleteByID(ctx, c.ContactID))
	assert.Equal(t, []session.EntityState{session.Deleted}, pendingStates(s))
}

func TestGetAllIsLazyAndComposable(t *testing.T) {
	ctx := context.Background()
	s := newTestSession(t)
	repo := newContactRepo(t, s)
	seed(t, s, "Alpha", "Beta", "Gamma")

	query, err := repo.GetAll()
	require.NoError(t, err)

	var names []string
	require.NoError(t, query.Column("name").Where("name <> ?", "Beta").Order("name ASC").Scan(ctx, &names))
	assert.Equal(t, []string{"Alpha", "Gamma"}, names)

	restarted, err := repo.GetAll()
	require.NoError(t, err)
	count, err := restarted.Count(ctx)
	require.NoError(t, err)
	assert.Equal(t, 3, count)
}

func TestListAndPage(t *testing.T) {
	ctx := context.Background()
	s := newTestSession(t)
	repo := newContactRepo(t, s)
	seeded := seed(t, s, "One", "Two", "Three", "Four", "Five")

	all, err := repo.List(ctx, nil)
	require.NoError(t, err)
	require.Len(t, all, 5)
	for _, c := range all {
		tracked, err := repo.GetByID(ctx, c.ContactID)
		require.NoError(t, err)
		assert.Same(t, c, tracked)
	}
	assert.Contains(t, all, seeded[0])

	filtered, err := repo.List(ctx, types.NewQueryFilter("name IN (?)", bun.In([]string{"One", "Two"})))
	require.NoError(t, err)
	assert.Len(t, filtered, 2)

	page, err := repo.Page(ctx, types.NewPageRequest(2, 2, nil, "contact_id ASC"))
	require.NoError(t, err)
	assert.Equal(t, 5, page.Total)
	assert.Equal(t, 3, page.Pages())
	require.Len(t, page.Items, 2)
	assert.Equal(t, "Three", page.Items[0].Name)

	empty, err := repo.Page(ctx, types.NewPageRequest(1, 10, types.NewQueryFilter("name = ?", "Nobody")))
	require.NoError(t, err)
	assert.Zero(t, empty.Total)
	assert.Empty(t, empty.Items)
}

func TestPageSkipsPendingDeletes(t *testing.T) {
	ctx := context.Background()
	s := newTestSession(t)
	repo := newContactRepo(t, s)
	seeded := seed(t, s, "One", "Two", "Three")

	require.NoError(t, repo.Delete(seeded[0]))

	page, err := repo.Page(ctx, types.NewPageRequest(1, 10, nil, "contact_id ASC"))
	require.NoError(t, err)
	assert.Equal(t, 2, page.Total)
	require.Len(t, page.Items, 2)
	assert.Equal(t, "Two", page.Items[0].Name)

	listed, err := repo.List(ctx, nil)
	require.NoError(t, err)
	assert.Len(t, listed, page.Total)
}

func TestRepositoryAfterSessionClose(t *testing.T) {
	ctx := context.Background()
	s := newTestSession(t)
	repo := newContactRepo(t, s)
	require.NoError(t, s.Close())

	_, err := repo.GetAll()
	assert.ErrorIs(t, err, types.ErrObjectDisposed)
	_, err = repo.GetByID(ctx, 1)
	assert.ErrorIs(t, err, types.ErrObjectDisposed)
	assert.ErrorIs(t, repo.Add(contact("Late")), types.ErrObjectDisposed)
	assert.ErrorIs(t, repo.DeleteByID(ctx, 1), types.ErrObjectDisposed)
}
