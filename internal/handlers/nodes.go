// Copyright (c) 2026 Madalin Gabriel Ignisca <hi@madalin.me>
// Copyright (c) 2026 Vlah Software House SRL <contact@vlah.sh>
// All rights reserved. See LICENSE for details.

package handlers

import (
	"context"
	"errors"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"quire/internal/content"
	"quire/internal/middleware"
	"quire/internal/models"
)

// IDParam is the chi URL param addressing one layout or partial.
const IDParam = "id"

// Nodes serves the layouts or the partials of the request scope as JSON.
// They are addressed by id and listed by name. Saving one drops every
// cached page of the scope, since any page may use it.
type Nodes struct {
	content *content.Service
	kind    models.Kind
	create  func(context.Context, *models.Node) error
	update  func(context.Context, *models.Node) error
}

// NewLayouts creates the layout handlers.
func NewLayouts(svc *content.Service) *Nodes {
	return &Nodes{content: svc, kind: models.KindLayout, create: svc.CreateLayout, update: svc.UpdateLayout}
}

// NewPartials creates the partial handlers.
func NewPartials(svc *content.Service) *Nodes {
	return &Nodes{content: svc, kind: models.KindPartial, create: svc.CreatePartial, update: svc.UpdatePartial}
}

// Index lists the nodes in the request scope.
func (h *Nodes) Index(w http.ResponseWriter, r *http.Request) {
	scope := middleware.ScopeFromCtx(r.Context())
	nodes, err := h.content.List(r.Context(), h.kind, scope)
	if err != nil {
		slog.Error("list content failed", "kind", h.kind, "scope", scope, "error", err)
		http.Error(w, "Internal Server Error", http.StatusInternalServerError)
		return
	}
	if nodes == nil {
		nodes = []models.Node{}
	}
	writeJSON(w, http.StatusOK, map[string]any{"scope": scope, string(h.kind) + "s": nodes})
}

// New returns a blank node for the request scope.
func (h *Nodes) New(w http.ResponseWriter, r *http.Request) {
	h.writeForm(w, h.blank(middleware.ScopeFromCtx(r.Context())))
}

// Create stores a node from a JSON object of field values.
func (h *Nodes) Create(w http.ResponseWriter, r *http.Request) {
	n := h.blank(middleware.ScopeFromCtx(r.Context()))
	fields, ok := decodeFields(w, r)
	if !ok || !applyFields(w, h.content, n, fields) {
		return
	}
	if err := h.create(r.Context(), n); err != nil {
		writeSaveError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, n)
}

// Show returns the stored node.
func (h *Nodes) Show(w http.ResponseWriter, r *http.Request) {
	if n, ok := h.find(w, r); ok {
		writeJSON(w, http.StatusOK, n)
	}
}

// Edit returns the edit form for the node.
func (h *Nodes) Edit(w http.ResponseWriter, r *http.Request) {
	if n, ok := h.find(w, r); ok {
		h.writeForm(w, n)
	}
}

// Update applies a JSON object of field values to the node.
func (h *Nodes) Update(w http.ResponseWriter, r *http.Request) {
	n, ok := h.find(w, r)
	if !ok {
		return
	}
	fields, ok := decodeFields(w, r)
	if !ok || !applyFields(w, h.content, n, fields) {
		return
	}
	if err := h.update(r.Context(), n); err != nil {
		writeSaveError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, n)
}

// Destroy deletes the node. Pages using a deleted layout render
// standalone afterwards.
func (h *Nodes) Destroy(w http.ResponseWriter, r *http.Request) {
	n, ok := h.find(w, r)
	if !ok {
		return
	}
	if err := h.content.Delete(r.Context(), n); err != nil {
		writeSaveError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Nodes) blank(scope models.Scope) *models.Node {
	if h.kind == models.KindLayout {
		return models.NewLayout(scope)
	}
	return models.NewPartial(scope)
}

// find loads the node addressed by the id param in the request scope. A
// malformed id is as missing as an unknown one.
func (h *Nodes) find(w http.ResponseWriter, r *http.Request) (*models.Node, bool) {
	scope := middleware.ScopeFromCtx(r.Context())
	id, err := uuid.Parse(chi.URLParam(r, IDParam))
	if err != nil {
		http.NotFound(w, r)
		return nil, false
	}
	n, err := h.content.FindNode(r.Context(), h.kind, scope, id)
	if errors.Is(err, models.ErrNotFound) {
		http.NotFound(w, r)
		return nil, false
	}
	if err != nil {
		slog.Error("find content failed", "kind", h.kind, "id", id, "scope", scope, "error", err)
		http.Error(w, "Internal Server Error", http.StatusInternalServerError)
		return nil, false
	}
	return n, true
}

func (h *Nodes) writeForm(w http.ResponseWriter, n *models.Node) {
	writeJSON(w, http.StatusOK, map[string]any{
		string(h.kind): n,
		"fields":       map[string]string{"name": h.content.OptionsFor(h.kind).NameField},
	})
}
