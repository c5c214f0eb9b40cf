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
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"
	"github.com/tomoncle/niketan"
	"github.com/tomoncle/niketan/database"
	"github.com/tomoncle/niketan/model"
	"github.com/tomoncle/niketan/types"
)

type contactHandler struct {
	logger   database.Logger
	validate *validator.Validate
}

// List handles GET /api/contacts. With ?email= it returns the contacts left
// from that address, otherwise one page of contacts matching ?q=.
func (h *contactHandler) List(w http.ResponseWriter, r *http.Request) {
	u, ok := h.unit(w, r)
	if !ok {
		return
	}
	repo, err := u.ContactDirectory()
	if err != nil {
		h.fail(w, err, "Failed to resolve contact repository")
		return
	}

	query := r.URL.Query()
	if email := query.Get("email"); email != "" {
		found, err := repo.FindByEmail(r.Context(), email)
		if err != nil {
			h.fail(w, err, "Failed to find contacts")
			return
		}
		respondJSON(w, h.logger, http.StatusOK, found)
		return
	}

	page, _ := strconv.Atoi(query.Get("page"))
	pageSize, _ := strconv.Atoi(query.Get("pageSize"))
	result, err := repo.Search(r.Context(), query.Get("q"), types.NewDefaultPageRequest(page, pageSize))
	if err != nil {
		h.fail(w, err, "Failed to list contacts")
		return
	}
	respondJSON(w, h.logger, http.StatusOK, result)
}

// Get handles GET /api/contacts/{contactID}.
func (h *contactHandler) Get(w http.ResponseWriter, r *http.Request) {
	u, ok := h.unit(w, r)
	if !ok {
		return
	}
	id, ok := h.contactID(w, r)
	if !ok {
		return
	}
	repo, err := u.Contacts()
	if err != nil {
		h.fail(w, err, "Failed to resolve contact repository")
		return
	}
	contact, err := repo.GetByID(r.Context(), id)
	if err != nil {
		h.fail(w, err, "Failed to load contact")
		return
	}
	respondJSON(w, h.logger, http.StatusOK, contact)
}

// Create handles POST /api/contacts.
func (h *contactHandler) Create(w http.ResponseWriter, r *http.Request) {
	u, ok := h.unit(w, r)
	if !ok {
		return
	}
	contact, ok := h.decode(w, r)
	if !ok {
		return
	}
	contact.ContactID = 0

	repo, err := u.Contacts()
	if err != nil {
		h.fail(w, err, "Failed to resolve contact repository")
		return
	}
	if err := repo.Add(contact); err != nil {
		h.fail(w, err, "Failed to stage contact")
		return
	}
	if err := u.Commit(r.Context()); err != nil {
		h.fail(w, err, "Failed to save contact")
		return
	}
	respondJSON(w, h.logger, http.StatusCreated, contact)
}

// Update handles PUT /api/contacts/{contactID}.
func (h *contactHandler) Update(w http.ResponseWriter, r *http.Request) {
	u, ok := h.unit(w, r)
	if !ok {
		return
	}
	id, ok := h.contactID(w, r)
	if !ok {
		return
	}
	contact, ok := h.decode(w, r)
	if !ok {
		return
	}
	contact.ContactID = id

	repo, err := u.Contacts()
	if err != nil {
		h.fail(w, err, "Failed to resolve contact repository")
		return
	}
	if err := repo.Update(contact); err != nil {
		h.fail(w, err, "Failed to stage contact")
		return
	}
	if err := u.Commit(r.Context()); err != nil {
		h.fail(w, err, "Failed to save contact")
		return
	}
	respondJSON(w, h.logger, http.StatusOK, contact)
}

// Delete handles DELETE /api/contacts/{contactID}. Deleting a missing
// contact succeeds.
func (h *contactHandler) Delete(w http.ResponseWriter, r *http.Request) {
	u, ok := h.unit(w, r)
	if !ok {
		return
	}
	id, ok := h.contactID(w, r)
	if !ok {
		return
	}
	repo, err := u.Contacts()
	if err != nil {
		h.fail(w, err, "Failed to resolve contact repository")
		return
	}
	if err := repo.DeleteByID(r.Context(), id); err != nil {
		h.fail(w, err, "Failed to stage contact removal")
		return
	}
	if err := u.Commit(r.Context()); err != nil {
		h.fail(w, err, "Failed to delete contact")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *contactHandler) unit(w http.ResponseWriter, r *http.Request) (*niketan.UnitOfWork, bool) {
	u, ok := UnitOfWork(r.Context())
	if !ok {
		respondError(w, h.logger, http.StatusInternalServerError, "No unit of work for request")
	}
	return u, ok
}

func (h *contactHandler) contactID(w http.ResponseWriter, r *http.Request) (int64, bool) {
	id, err := strconv.ParseInt(chi.URLParam(r, "contactID"), 10, 64)
	if err != nil || id <= 0 {
		respondError(w, h.logger, http.StatusBadRequest, "Invalid contact ID")
		return 0, false
	}
	return id, true
}

// decode reads a contact from the body and answers 400 with one message per
// invalid field when validation fails.
func (h *contactHandler) decode(w http.ResponseWriter, r *http.Request) (*model.Contact, bool) {
	var contact model.Contact
	if err := json.NewDecoder(r.Body).Decode(&contact); err != nil {
		respondError(w, h.logger, http.StatusBadRequest, "Invalid request body: "+err.Error())
		return nil, false
	}
	invalid, err := fieldErrors(h.validate, &contact)
	if err != nil {
		respondError(w, h.logger, http.StatusBadRequest, "Validation error: "+err.Error())
		return nil, false
	}
	if invalid != nil {
		respondJSON(w, h.logger, http.StatusBadRequest, invalid)
		return nil, false
	}
	return &contact, true
}

func (h *contactHandler) fail(w http.ResponseWriter, err error, message string) {
	switch {
	case errors.Is(err, types.ErrNotFound), errors.Is(err, types.ErrNoRowsAffected):
		respondError(w, h.logger, http.StatusNotFound, "Contact not found")
	case errors.Is(err, types.ErrValidation):
		respondError(w, h.logger, http.StatusBadRequest, err.Error())
	case database.IsConstraintViolation(err):
		h.logger.Warn(message, "error", err)
		respondError(w, h.logger, http.StatusConflict, message)
	default:
		h.logger.Error(message, "error", err)
		respondError(w, h.logger, http.StatusInternalServerError, message)
	}
}
