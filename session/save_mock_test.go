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

package session_test

import (
	"context"
	"errors"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tomoncle/niketan/model"
	"github.com/tomoncle/niketan/session"
	"github.com/tomoncle/niketan/types"
	"github.com/uptrace/bun"
	"github.com/uptrace/bun/dialect/mysqldialect"
)

func newMockSession(t *testing.T) (*session.Session, sqlmock.Sqlmock) {
	t.Helper()
	sqlDB, mock, err := sqlmock.New()
	require.NoError(t, err)
	db := bun.NewDB(sqlDB, mysqldialect.New())
	t.Cleanup(func() { _ = db.Close() })
	return newSession(t, db), mock
}

func TestSaveChangesCommitsOneTransaction(t *testing.T) {
	s, mock := newMockSession(t)

	c := newContact("Wire")
	require.NoError(t, s.Add(c))

	mock.ExpectBegin()
	mock.ExpectExec("INSERT INTO `contact`").WillReturnResult(sqlmock.NewResult(7, 1))
	mock.ExpectCommit()

	res, err := s.SaveChanges(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, res.Added)
	assert.EqualValues(t, 7, c.ContactID)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestSaveChangesRollsBackOnStoreError(t *testing.T) {
	s, mock := newMockSession(t)

	first, second := newContact("First"), newContact("Second")
	require.NoError(t, s.Add(first))
	require.NoError(t, s.Add(second))

	boom := errors.New("connection reset")
	mock.ExpectBegin()
	mock.ExpectExec("INSERT INTO `contact`").WillReturnResult(sqlmock.NewResult(1, 1))
	mock.ExpectExec("INSERT INTO `contact`").WillReturnError(boom)
	mock.ExpectRollback()

	_, err := s.SaveChanges(context.Background())
	assert.ErrorIs(t, err, types.ErrPersistenceFailure)
	assert.ErrorIs(t, err, boom)
	assert.Zero(t, first.ContactID)
	assert.Equal(t, 2, s.PendingCount())
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestSaveChangesRollsBackWhenUpdateMissesRow(t *testing.T) {
	s, mock := newMockSession(t)

	c := newContact("Stale")
	c.ContactID = 3
	require.NoError(t, s.Attach(c))
	e, err := s.Entry(c)
	require.NoError(t, err)
	require.NoError(t, e.SetState(session.Modified))

	mock.ExpectBegin()
	mock.ExpectExec("UPDATE `contact`").WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectRollback()

	_, err = s.SaveChanges(context.Background())
	assert.ErrorIs(t, err, types.ErrNoRowsAffected)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestFindRunsOneSelect(t *testing.T) {
	s, mock := newMockSession(t)

	rows := sqlmock.NewRows([]string{"contact_id", "name", "email", "subject", "message"}).
		AddRow(5, "Eve", "eve@example.com", "Hi", "Hello there")
	mock.ExpectQuery("SELECT .* FROM `contact`").WillReturnRows(rows)

	ctx := context.Background()
	c, err := session.Find[model.Contact](ctx, s, 5)
	require.NoError(t, err)
	assert.Equal(t, "Eve", c.Name)

	again, err := session.Find[model.Contact](ctx, s, 5)
	require.NoError(t, err)
	assert.Same(t, c, again)
	assert.NoError(t, mock.ExpectationsWereMet())
}
