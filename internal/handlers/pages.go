// Copyright (c) 2026 Madalin Gabriel Ignisca <hi@madalin.me>
// Copyright (c) 2026 Vlah Software House SRL <contact@vlah.sh>
// All rights reserved. See LICENSE for details.

package handlers

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"quire/internal/cache"
	"quire/internal/content"
	"quire/internal/engine"
	"quire/internal/middleware"
	"quire/internal/models"
	"quire/internal/render"
)

// HomeSlug is the page served for the bare mount path.
const HomeSlug = "home"

// maxBodyBytes bounds JSON request bodies.
const maxBodyBytes = 1 << 20

// Pages groups the page handlers for one mount point. The parent scope
// comes from the request context (see middleware.LoadScope). Renders are
// served from the L2 Valkey page cache when one is configured.
type Pages struct {
	content   *content.Service
	renderer  *render.Renderer
	pageCache *cache.PageCache
}

// NewPages creates the page handlers. pageCache may be nil.
func NewPages(svc *content.Service, renderer *render.Renderer, pageCache *cache.PageCache) *Pages {
	return &Pages{content: svc, renderer: renderer, pageCache: pageCache}
}

// Glob is a parsed page path: the slug, an optional format extension, and
// whether the edit action was requested.
type Glob struct {
	Slug string
	Ext  string
	Edit bool
}

// ParseGlob splits a wildcard path such as "about-us/team.txt" or
// "about-us/edit". Slugs never contain dots, so the last dot of the final
// segment starts the extension.
func ParseGlob(glob string) Glob {
	glob = strings.Trim(glob, "/")
	var g Glob
	if dot := strings.LastIndexByte(glob, '.'); dot > strings.LastIndexByte(glob, '/') {
		glob, g.Ext = glob[:dot], glob[dot+1:]
	}
	if glob == "edit" || strings.HasSuffix(glob, "/edit") {
		g.Edit = true
		glob = strings.TrimSuffix(strings.TrimSuffix(glob, "edit"), "/")
	}
	g.Slug = glob
	return g
}

// Index lists the pages in the request scope.
func (p *Pages) Index(w http.ResponseWriter, r *http.Request) {
	scope := middleware.ScopeFromCtx(r.Context())
	pages, err := p.content.ListPages(r.Context(), scope)
	if err != nil {
		slog.Error("list pages failed", "scope", scope, "error", err)
		http.Error(w, "Internal Server Error", http.StatusInternalServerError)
		return
	}
	if pages == nil {
		pages = []models.Node{}
	}
	writeJSON(w, http.StatusOK, map[string]any{"scope": scope, "pages": pages})
}

// New returns a blank page for the request scope together with the
// layouts it may use.
func (p *Pages) New(w http.ResponseWriter, r *http.Request) {
	scope := middleware.ScopeFromCtx(r.Context())
	p.writeForm(w, r, models.NewPage(scope))
}

// Create stores a page from a JSON object of field values.
func (p *Pages) Create(w http.ResponseWriter, r *http.Request) {
	page := models.NewPage(middleware.ScopeFromCtx(r.Context()))
	if !p.assign(w, r, page) {
		return
	}
	if err := p.content.CreatePage(r.Context(), page); err != nil {
		writeSaveError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, page)
}

// Show renders the page addressed by the wildcard path in its layout.
// A trailing "/edit" segment returns the edit form instead, and a ".json"
// extension returns the stored page. The format comes from the extension
// or the "format" query parameter.
func (p *Pages) Show(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	scope := middleware.ScopeFromCtx(ctx)
	g := ParseGlob(chi.URLParam(r, "*"))
	if g.Slug == "" {
		g.Slug = HomeSlug
	}
	if q := r.URL.Query().Get("format"); q != "" {
		g.Ext = q
	}

	if g.Edit || g.Ext == "json" {
		page, ok := p.findPage(w, r, scope, g.Slug)
		if !ok {
			return
		}
		if g.Edit {
			p.writeForm(w, r, page)
		} else {
			writeJSON(w, http.StatusOK, page)
		}
		return
	}

	format, err := render.ParseFormat(g.Ext)
	if err != nil {
		http.Error(w, err.Error(), http.StatusNotAcceptable)
		return
	}

	if p.pageCache != nil {
		if cached, ok := p.pageCache.Get(ctx, scope, g.Slug, string(format)); ok {
			w.Header().Set("Content-Type", format.ContentType())
			w.Write(cached)
			return
		}
	}

	page, ok := p.findPage(w, r, scope, g.Slug)
	if !ok {
		return
	}
	layout, err := p.content.EffectiveLayout(ctx, page)
	if err != nil {
		slog.Error("find layout failed", "slug", g.Slug, "scope", scope, "error", err)
		http.Error(w, "Internal Server Error", http.StatusInternalServerError)
		return
	}

	out, err := p.renderer.RenderInLayout(ctx, page, layout, format, render.Options{})
	if err != nil {
		// Structural failures name the partial and scope so the author can
		// fix them without reading server logs.
		slog.Error("render page failed", "slug", g.Slug, "scope", scope, "error", err)
		var re *engine.RenderError
		if errors.As(err, &re) {
			http.Error(w, "Render Error: "+err.Error(), http.StatusInternalServerError)
			return
		}
		http.Error(w, "Internal Server Error", http.StatusInternalServerError)
		return
	}

	body := []byte(out.String())
	if p.pageCache != nil {
		p.pageCache.Set(ctx, scope, g.Slug, string(format), body)
	}
	slog.Debug("page rendered", "slug", g.Slug, "scope", scope, "format", format)

	w.Header().Set("Content-Type", format.ContentType())
	w.Write(body)
}

// Update applies a JSON object of field values to the addressed page.
func (p *Pages) Update(w http.ResponseWriter, r *http.Request) {
	scope := middleware.ScopeFromCtx(r.Context())
	page, ok := p.findPage(w, r, scope, ParseGlob(chi.URLParam(r, "*")).Slug)
	if !ok {
		return
	}
	if !p.assign(w, r, page) {
		return
	}
	if err := p.content.UpdatePage(r.Context(), page); err != nil {
		writeSaveError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, page)
}

// Destroy deletes the addressed page.
func (p *Pages) Destroy(w http.ResponseWriter, r *http.Request) {
	scope := middleware.ScopeFromCtx(r.Context())
	page, ok := p.findPage(w, r, scope, ParseGlob(chi.URLParam(r, "*")).Slug)
	if !ok {
		return
	}
	if err := p.content.Delete(r.Context(), page); err != nil {
		writeSaveError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// findPage writes a 404 or 500 and reports false when the page cannot be
// loaded.
func (p *Pages) findPage(w http.ResponseWriter, r *http.Request, scope models.Scope, slug string) (*models.Node, bool) {
	page, err := p.content.FindPage(r.Context(), scope, slug)
	if errors.Is(err, models.ErrNotFound) {
		http.NotFound(w, r)
		return nil, false
	}
	if err != nil {
		slog.Error("find page failed", "slug", slug, "scope", scope, "error", err)
		http.Error(w, "Internal Server Error", http.StatusInternalServerError)
		return nil, false
	}
	return page, true
}

// assign decodes the request body into page. layout_id is handled here;
// every other key goes through the configured field names.
func (p *Pages) assign(w http.ResponseWriter, r *http.Request, page *models.Node) bool {
	fields, ok := decodeFields(w, r)
	if !ok {
		return false
	}

	if raw, ok := fields["layout_id"]; ok {
		delete(fields, "layout_id")
		if raw == "" {
			page.LayoutID = nil
		} else {
			id, err := uuid.Parse(raw)
			if err != nil {
				var errs models.ValidationErrors
				errs.Add("layout_id", "is not a valid id")
				writeJSON(w, http.StatusUnprocessableEntity, map[string]any{"errors": errs})
				return false
			}
			page.LayoutID = &id
		}
	}

	return applyFields(w, p.content, page, fields)
}

// decodeFields reads a JSON object of field values from the request body.
func decodeFields(w http.ResponseWriter, r *http.Request) (map[string]string, bool) {
	var fields map[string]string
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	if err := dec.Decode(&fields); err != nil {
		http.Error(w, "request body must be a JSON object of strings", http.StatusBadRequest)
		return nil, false
	}
	return fields, true
}

// applyFields checks field lengths and assigns fields to n, writing a 422
// or 400 and reporting false on failure.
func applyFields(w http.ResponseWriter, svc *content.Service, n *models.Node, fields map[string]string) bool {
	if errs := validateLengths(svc.OptionsFor(n.Kind), fields); len(errs) > 0 {
		writeJSON(w, http.StatusUnprocessableEntity, map[string]any{"errors": errs})
		return false
	}
	if err := svc.Apply(n, fields); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return false
	}
	return true
}

func (p *Pages) writeForm(w http.ResponseWriter, r *http.Request, page *models.Node) {
	layouts, err := p.content.List(r.Context(), models.KindLayout, page.Parent)
	if err != nil {
		slog.Error("list layouts failed", "scope", page.Parent, "error", err)
		http.Error(w, "Internal Server Error", http.StatusInternalServerError)
		return
	}
	if layouts == nil {
		layouts = []models.Node{}
	}
	opts := p.content.OptionsFor(models.KindPage)
	writeJSON(w, http.StatusOK, map[string]any{
		"page":    page,
		"layouts": layouts,
		"fields": map[string]string{
			"name":       opts.NameField,
			"slug":       opts.SlugField,
			"designator": opts.DesignatorField,
		},
	})
}

func writeSaveError(w http.ResponseWriter, err error) {
	var errs models.ValidationErrors
	switch {
	case errors.As(err, &errs):
		writeJSON(w, http.StatusUnprocessableEntity, map[string]any{"errors": errs})
	case errors.Is(err, models.ErrNotFound):
		http.Error(w, "Not Found", http.StatusNotFound)
	default:
		slog.Error("save content failed", "error", err)
		http.Error(w, "Internal Server Error", http.StatusInternalServerError)
	}
}

// writeJSON writes a JSON response with the given status code.
func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		slog.Warn("write json response failed", "error", err)
	}
}
