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

package server

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strconv"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tomoncle/niketan"
	"github.com/tomoncle/niketan/database"
	"github.com/tomoncle/niketan/metrics"
	"github.com/tomoncle/niketan/model"
	"github.com/tomoncle/niketan/types"
)

func newTestHandler(t *testing.T, health HealthFunc) http.Handler {
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

	registry := prometheus.NewRegistry()
	collector := metrics.NewCollector()
	collector.MustRegister(registry)
	store, err := niketan.NewStore(mgr.GetDB(), nil, collector)
	require.NoError(t, err)
	if health == nil {
		health = mgr.HealthCheck
	}
	return NewRouter(store, registry, health).Setup()
}

func do(t *testing.T, h http.Handler, method, path, body string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func decodeContact(t *testing.T, rec *httptest.ResponseRecorder) model.Contact {
	t.Helper()
	var c model.Contact
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &c))
	return c
}

func createContact(t *testing.T, h http.Handler, name, email, subject string) model.Contact {
	t.Helper()
	body := `{"name":"` + name + `","email":"` + email + `","subject":"` + subject + `","message":"hello"}`
	rec := do(t, h, http.MethodPost, "/api/contacts", body)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	return decodeContact(t, rec)
}

func TestContactLifecycle(t *testing.T) {
	h := newTestHandler(t, nil)

	created := createContact(t, h, "Ann", "ann@example.com", "Visit")
	require.NotZero(t, created.ContactID)
	path := "/api/contacts/" + strconv.FormatInt(created.ContactID, 10)

	rec := do(t, h, http.MethodGet, path, "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, created, decodeContact(t, rec))
	assert.Contains(t, rec.Body.String(), `"contactId"`)

	rec = do(t, h, http.MethodPut, path, `{"name":"Ann","email":"ann@example.com","subject":"Stay","message":"hello"}`)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Equal(t, "Stay", decodeContact(t, rec).Subject)

	rec = do(t, h, http.MethodGet, path, "")
	assert.Equal(t, "Stay", decodeContact(t, rec).Subject)

	rec = do(t, h, http.MethodDelete, path, "")
	assert.Equal(t, http.StatusNoContent, rec.Code)
	rec = do(t, h, http.MethodDelete, path, "")
	assert.Equal(t, http.StatusNoContent, rec.Code)

	rec = do(t, h, http.MethodGet, path, "")
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestCreateValidation(t *testing.T) {
	h := newTestHandler(t, nil)

	rec := do(t, h, http.MethodPost, "/api/contacts", `{"email":"not-an-email","message":"hi"}`)
	require.Equal(t, http.StatusBadRequest, rec.Code)

	var fields map[string]string
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &fields))
	assert.Equal(t, map[string]string{
		"name":  "name is required",
		"email": "email must be a valid email",
	}, fields)

	rec = do(t, h, http.MethodPost, "/api/contacts", `{"name":`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestUpdateMissingContact(t *testing.T) {
	h := newTestHandler(t, nil)

	rec := do(t, h, http.MethodPut, "/api/contacts/404", `{"name":"Nobody","email":"no@example.com","message":"hi"}`)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestInvalidContactID(t *testing.T) {
	h := newTestHandler(t, nil)

	assert.Equal(t, http.StatusBadRequest, do(t, h, http.MethodGet, "/api/contacts/abc", "").Code)
	assert.Equal(t, http.StatusBadRequest, do(t, h, http.MethodDelete, "/api/contacts/0", "").Code)
}

func TestListContacts(t *testing.T) {
	h := newTestHandler(t, nil)
	createContact(t, h, "Bea", "bea@example.com", "Yoga")
	createContact(t, h, "Cal", "cal@example.com", "Parking")
	createContact(t, h, "Bea", "bea@example.com", "Retreat")

	rec := do(t, h, http.MethodGet, "/api/contacts?q=yoga", "")
	require.Equal(t, http.StatusOK, rec.Code)
	var page types.Pagination[model.Contact]
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &page))
	assert.Equal(t, 1, page.Total)
	require.Len(t, page.Items, 1)
	assert.Equal(t, "Yoga", page.Items[0].Subject)

	rec = do(t, h, http.MethodGet, "/api/contacts?page=2&pageSize=2", "")
	require.Equal(t, http.StatusOK, rec.Code)
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &page))
	assert.Equal(t, 3, page.Total)
	assert.Len(t, page.Items, 1)

	rec = do(t, h, http.MethodGet, "/api/contacts?email=bea@example.com", "")
	require.Equal(t, http.StatusOK, rec.Code)
	var found []model.Contact
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &found))
	assert.Len(t, found, 2)
}

func TestHealthCheck(t *testing.T) {
	h := newTestHandler(t, nil)
	rec := do(t, h, http.MethodGet, "/healthz", "")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"healthy":true`)

	down := newTestHandler(t, func(context.Context) *database.HealthStatus {
		return &database.HealthStatus{LastError: "down"}
	})
	rec = do(t, down, http.MethodGet, "/healthz", "")
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
}

func TestMetricsEndpoint(t *testing.T) {
	h := newTestHandler(t, nil)
	createContact(t, h, "Dee", "dee@example.com", "")

	rec := do(t, h, http.MethodGet, "/metrics", "")
	require.Equal(t, http.StatusOK, rec.Code)
	body := rec.Body.String()
	assert.Contains(t, body, `niketan_commits_total{result="success"} 1`)
	assert.Contains(t, body, `niketan_open_units_of_work 0`)
}
