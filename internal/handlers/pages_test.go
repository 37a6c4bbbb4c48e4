// Copyright (c) 2026 Madalin Gabriel Ignisca <hi@madalin.me>
// Copyright (c) 2026 Vlah Software House SRL <contact@vlah.sh>
// All rights reserved. See LICENSE for details.

package handlers

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"quire/internal/content"
	"quire/internal/engine"
	"quire/internal/middleware"
	"quire/internal/models"
	"quire/internal/render"
	"quire/internal/store/litestore"
)

// pageEnv is a page server over a private in-memory SQLite database.
type pageEnv struct {
	svc    *content.Service
	router chi.Router
}

func newPageEnv(t *testing.T) *pageEnv {
	t.Helper()

	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", uuid.NewString())
	gdb, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{Logger: logger.Default.LogMode(logger.Silent)})
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	if err := litestore.Migrate(gdb); err != nil {
		t.Fatalf("migrate: %v", err)
	}
	t.Cleanup(func() {
		if sqlDB, err := gdb.DB(); err == nil {
			sqlDB.Close()
		}
	})

	st := litestore.New(gdb)
	ev := engine.New(engine.NewStoreResolver(st))
	svc := content.NewService(st, ev)
	pages := NewPages(svc, render.New(ev, nil), nil)
	layouts, partials := NewLayouts(svc), NewPartials(svc)

	mountNodes := func(r chi.Router, path string, h *Nodes) {
		r.Route(path, func(r chi.Router) {
			r.Get("/", h.Index)
			r.Get("/new", h.New)
			r.Post("/", h.Create)
			r.Get("/{id}", h.Show)
			r.Get("/{id}/edit", h.Edit)
			r.Put("/{id}", h.Update)
			r.Delete("/{id}", h.Destroy)
		})
	}
	mount := func(r chi.Router) {
		mountNodes(r, "/layouts", layouts)
		mountNodes(r, "/partials", partials)
		r.Get("/pages", pages.Index)
		r.Get("/pages/new", pages.New)
		r.Post("/pages", pages.Create)
		r.Get("/", pages.Show)
		r.Get("/*", pages.Show)
		r.Put("/*", pages.Update)
		r.Delete("/*", pages.Destroy)
	}
	r := chi.NewRouter()
	r.Route("/scoped/{parent_type}/{parent_id}", func(r chi.Router) {
		r.Use(middleware.LoadScope(middleware.ParentRoute{TypeParam: "parent_type", IDParam: "parent_id"}))
		mount(r)
	})
	r.Group(func(r chi.Router) {
		r.Use(middleware.LoadScope(middleware.ParentRoute{}))
		mount(r)
	})

	return &pageEnv{svc: svc, router: r}
}

func (e *pageEnv) do(t *testing.T, method, path, body string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}
	rr := httptest.NewRecorder()
	e.router.ServeHTTP(rr, req)
	return rr
}

// create posts body to path, expects 201 and returns the new node's id.
func (e *pageEnv) create(t *testing.T, path, body string) uuid.UUID {
	t.Helper()
	rr := e.do(t, "POST", path, body)
	if rr.Code != http.StatusCreated {
		t.Fatalf("create under %s: got %d (body %q)", path, rr.Code, rr.Body.String())
	}
	var created struct {
		ID uuid.UUID `json:"id"`
	}
	if err := json.NewDecoder(rr.Body).Decode(&created); err != nil {
		t.Fatalf("decode: %v", err)
	}
	return created.ID
}

// wantErrors decodes a 422 body and returns the messages for field.
func wantErrors(t *testing.T, rr *httptest.ResponseRecorder, field string) []string {
	t.Helper()
	if rr.Code != http.StatusUnprocessableEntity {
		t.Fatalf("status: got %d, want 422 (body %q)", rr.Code, rr.Body.String())
	}
	var body struct {
		Errors models.ValidationErrors `json:"errors"`
	}
	if err := json.NewDecoder(rr.Body).Decode(&body); err != nil {
		t.Fatalf("decode errors: %v", err)
	}
	return body.Errors.On(field)
}

func TestParseGlob(t *testing.T) {
	tests := []struct {
		in   string
		want Glob
	}{
		{"", Glob{}},
		{"about-us", Glob{Slug: "about-us"}},
		{"/about-us/team/", Glob{Slug: "about-us/team"}},
		{"about-us.txt", Glob{Slug: "about-us", Ext: "txt"}},
		{"about-us/team.html", Glob{Slug: "about-us/team", Ext: "html"}},
		{"about-us/edit", Glob{Slug: "about-us", Edit: true}},
		{"edit", Glob{Edit: true}},
		{"credit", Glob{Slug: "credit"}},
		{"about-us/edit.json", Glob{Slug: "about-us", Ext: "json", Edit: true}},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			if got := ParseGlob(tt.in); got != tt.want {
				t.Errorf("ParseGlob(%q) = %+v, want %+v", tt.in, got, tt.want)
			}
		})
	}
}

func TestPageLifecycle(t *testing.T) {
	env := newPageEnv(t)

	rr := env.do(t, "POST", "/pages", `{"name":"About Us","title":"About & more","content":"<p>{{ .page.title }}</p>"}`)
	if rr.Code != http.StatusCreated {
		t.Fatalf("create: got %d (body %q)", rr.Code, rr.Body.String())
	}
	var created struct {
		ID   uuid.UUID `json:"id"`
		Slug string    `json:"slug"`
	}
	if err := json.NewDecoder(rr.Body).Decode(&created); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if created.Slug != "about-us" {
		t.Errorf("slug: got %q, want about-us", created.Slug)
	}

	rr = env.do(t, "GET", "/about-us", "")
	if rr.Code != http.StatusOK {
		t.Fatalf("show: got %d (body %q)", rr.Code, rr.Body.String())
	}
	if got := rr.Body.String(); got != "<p>About &amp; more</p>" {
		t.Errorf("html: got %q", got)
	}
	if ct := rr.Header().Get("Content-Type"); ct != render.FormatHTML.ContentType() {
		t.Errorf("content-type: got %q", ct)
	}

	rr = env.do(t, "PUT", "/about-us", `{"content":"<p>{{ .page.name }}</p>"}`)
	if rr.Code != http.StatusOK {
		t.Fatalf("update: got %d (body %q)", rr.Code, rr.Body.String())
	}
	if got := env.do(t, "GET", "/about-us", "").Body.String(); got != "<p>About Us</p>" {
		t.Errorf("after update: got %q", got)
	}

	rr = env.do(t, "DELETE", "/about-us", "")
	if rr.Code != http.StatusNoContent {
		t.Fatalf("destroy: got %d", rr.Code)
	}
	if rr := env.do(t, "GET", "/about-us", ""); rr.Code != http.StatusNotFound {
		t.Errorf("after destroy: got %d, want 404", rr.Code)
	}
}

func TestShowFormats(t *testing.T) {
	env := newPageEnv(t)
	env.do(t, "POST", "/pages", `{"name":"About Us","title":"Ann & Bob","content":"<h1>Hello {{ .page.title }}</h1>"}`)

	tests := []struct {
		name       string
		path       string
		wantStatus int
		wantType   string
		wantBody   string
	}{
		{"html", "/about-us", 200, render.FormatHTML.ContentType(), "<h1>Hello Ann &amp; Bob</h1>"},
		{"text extension", "/about-us.txt", 200, render.FormatText.ContentType(), "Hello Ann & Bob"},
		{"text query", "/about-us?format=text", 200, render.FormatText.ContentType(), "Hello Ann & Bob"},
		{"unknown format", "/about-us.pdf", http.StatusNotAcceptable, "", ""},
		{"missing page", "/contact", http.StatusNotFound, "", ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rr := env.do(t, "GET", tt.path, "")
			if rr.Code != tt.wantStatus {
				t.Fatalf("status: got %d, want %d (body %q)", rr.Code, tt.wantStatus, rr.Body.String())
			}
			if tt.wantType != "" && rr.Header().Get("Content-Type") != tt.wantType {
				t.Errorf("content-type: got %q, want %q", rr.Header().Get("Content-Type"), tt.wantType)
			}
			if tt.wantBody != "" && rr.Body.String() != tt.wantBody {
				t.Errorf("body: got %q, want %q", rr.Body.String(), tt.wantBody)
			}
		})
	}
}

func TestShowJSONAndEdit(t *testing.T) {
	env := newPageEnv(t)
	ctx := context.Background()

	layout := models.NewLayout(models.Global)
	layout.Name = "default"
	layout.Content = `{{ .content_for_layout }}`
	if err := env.svc.CreateLayout(ctx, layout); err != nil {
		t.Fatalf("create layout: %v", err)
	}
	env.do(t, "POST", "/pages", `{"name":"About Us","content":"x"}`)

	rr := env.do(t, "GET", "/about-us.json", "")
	if rr.Code != http.StatusOK {
		t.Fatalf("json: got %d", rr.Code)
	}
	var page struct {
		Kind string `json:"kind"`
		Slug string `json:"slug"`
	}
	if err := json.NewDecoder(rr.Body).Decode(&page); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if page.Kind != "page" || page.Slug != "about-us" {
		t.Errorf("json page: got %+v", page)
	}

	rr = env.do(t, "GET", "/about-us/edit", "")
	if rr.Code != http.StatusOK {
		t.Fatalf("edit: got %d", rr.Code)
	}
	var form struct {
		Page    struct{ Slug string }   `json:"page"`
		Layouts []struct{ Name string } `json:"layouts"`
		Fields  map[string]string       `json:"fields"`
	}
	if err := json.NewDecoder(rr.Body).Decode(&form); err != nil {
		t.Fatalf("decode form: %v", err)
	}
	if form.Page.Slug != "about-us" {
		t.Errorf("form page slug: got %q", form.Page.Slug)
	}
	if len(form.Layouts) != 1 || form.Layouts[0].Name != "default" {
		t.Errorf("form layouts: got %+v", form.Layouts)
	}
	if form.Fields["designator"] != "name" {
		t.Errorf("form fields: got %v", form.Fields)
	}

	if rr := env.do(t, "GET", "/pages/new", ""); rr.Code != http.StatusOK {
		t.Errorf("new: got %d", rr.Code)
	}
}

func TestShowHomeForBarePath(t *testing.T) {
	env := newPageEnv(t)
	if rr := env.do(t, "GET", "/", ""); rr.Code != http.StatusNotFound {
		t.Fatalf("no home page: got %d, want 404", rr.Code)
	}

	env.do(t, "POST", "/pages", `{"name":"Home","content":"welcome"}`)
	rr := env.do(t, "GET", "/", "")
	if rr.Code != http.StatusOK || rr.Body.String() != "welcome" {
		t.Errorf("home: got %d %q", rr.Code, rr.Body.String())
	}
}

func TestShowInLayout(t *testing.T) {
	env := newPageEnv(t)
	ctx := context.Background()

	nav := models.NewPartial(models.Global)
	nav.Name = "nav"
	nav.Content = `<nav>{{ .page.slug }}</nav>`
	if err := env.svc.CreatePartial(ctx, nav); err != nil {
		t.Fatalf("create partial: %v", err)
	}
	layout := models.NewLayout(models.Global)
	layout.Name = "default"
	layout.Content = `{{ include "nav" }}<main>{{ .content_for_layout }}</main>`
	if err := env.svc.CreateLayout(ctx, layout); err != nil {
		t.Fatalf("create layout: %v", err)
	}

	body := fmt.Sprintf(`{"name":"About Us","content":"<p>hi</p>","layout_id":%q}`, layout.ID)
	if rr := env.do(t, "POST", "/pages", body); rr.Code != http.StatusCreated {
		t.Fatalf("create: got %d (body %q)", rr.Code, rr.Body.String())
	}

	rr := env.do(t, "GET", "/about-us", "")
	if got := rr.Body.String(); got != "<nav>about-us</nav><main><p>hi</p></main>" {
		t.Errorf("got %q", got)
	}
}

func TestShowRenderError(t *testing.T) {
	env := newPageEnv(t)
	env.do(t, "POST", "/pages", `{"name":"About Us","content":"{{ include \"missing\" }}"}`)

	rr := env.do(t, "GET", "/about-us", "")
	if rr.Code != http.StatusInternalServerError {
		t.Fatalf("status: got %d, want 500", rr.Code)
	}
	if body := rr.Body.String(); !strings.HasPrefix(body, "Render Error: ") || !strings.Contains(body, `"missing"`) {
		t.Errorf("body should name the missing partial, got %q", body)
	}
}

func TestCreateErrors(t *testing.T) {
	env := newPageEnv(t)
	env.do(t, "POST", "/pages", `{"name":"About Us","content":"x"}`)

	t.Run("duplicate slug", func(t *testing.T) {
		rr := env.do(t, "POST", "/pages", `{"name":"About us","content":"y"}`)
		msgs := wantErrors(t, rr, "slug")
		if len(msgs) == 0 || msgs[0] != "has already been taken" {
			t.Errorf("slug errors: got %v", msgs)
		}
	})

	t.Run("bad layout id", func(t *testing.T) {
		rr := env.do(t, "POST", "/pages", `{"name":"Other","layout_id":"nope"}`)
		if msgs := wantErrors(t, rr, "layout_id"); len(msgs) != 1 {
			t.Errorf("layout_id errors: got %v", msgs)
		}
	})

	t.Run("unknown layout", func(t *testing.T) {
		rr := env.do(t, "POST", "/pages", fmt.Sprintf(`{"name":"Other","layout_id":%q}`, uuid.NewString()))
		msgs := wantErrors(t, rr, "layout_id")
		if len(msgs) != 1 || msgs[0] != "does not exist" {
			t.Errorf("layout_id errors: got %v", msgs)
		}
	})

	t.Run("too long", func(t *testing.T) {
		rr := env.do(t, "POST", "/pages", fmt.Sprintf(`{"name":%q}`, strings.Repeat("a", 256)))
		if msgs := wantErrors(t, rr, "name"); len(msgs) != 1 {
			t.Errorf("name errors: got %v", msgs)
		}
	})

	t.Run("unknown field", func(t *testing.T) {
		rr := env.do(t, "POST", "/pages", `{"name":"Other","colour":"red"}`)
		if rr.Code != http.StatusBadRequest {
			t.Errorf("status: got %d, want 400", rr.Code)
		}
	})

	t.Run("malformed body", func(t *testing.T) {
		rr := env.do(t, "POST", "/pages", `{"name":`)
		if rr.Code != http.StatusBadRequest {
			t.Errorf("status: got %d, want 400", rr.Code)
		}
	})
}

func TestUpdateMissingPage(t *testing.T) {
	env := newPageEnv(t)
	if rr := env.do(t, "PUT", "/about-us", `{"content":"x"}`); rr.Code != http.StatusNotFound {
		t.Errorf("update: got %d, want 404", rr.Code)
	}
	if rr := env.do(t, "DELETE", "/about-us", ""); rr.Code != http.StatusNotFound {
		t.Errorf("destroy: got %d, want 404", rr.Code)
	}
}

func TestScopedPages(t *testing.T) {
	env := newPageEnv(t)

	for _, path := range []string{"/scoped/blog/5/pages", "/scoped/course/5/pages", "/pages"} {
		if rr := env.do(t, "POST", path, `{"name":"About Us","content":"`+path+`"}`); rr.Code != http.StatusCreated {
			t.Fatalf("create under %s: got %d (body %q)", path, rr.Code, rr.Body.String())
		}
	}

	tests := []struct {
		path string
		want string
	}{
		{"/scoped/blog/5/about-us", "/scoped/blog/5/pages"},
		{"/scoped/course/5/about-us", "/scoped/course/5/pages"},
		{"/about-us", "/pages"},
	}
	for _, tt := range tests {
		t.Run(tt.path, func(t *testing.T) {
			rr := env.do(t, "GET", tt.path, "")
			if rr.Code != http.StatusOK || rr.Body.String() != tt.want {
				t.Errorf("got %d %q, want 200 %q", rr.Code, rr.Body.String(), tt.want)
			}
		})
	}

	if rr := env.do(t, "GET", "/scoped/blog/6/about-us", ""); rr.Code != http.StatusNotFound {
		t.Errorf("other parent: got %d, want 404", rr.Code)
	}

	rr := env.do(t, "GET", "/scoped/blog/5/pages", "")
	var index struct {
		Scope models.Scope `json:"scope"`
		Pages []struct {
			Slug string `json:"slug"`
		} `json:"pages"`
	}
	if err := json.NewDecoder(rr.Body).Decode(&index); err != nil {
		t.Fatalf("decode index: %v", err)
	}
	if len(index.Pages) != 1 || index.Pages[0].Slug != "about-us" {
		t.Errorf("index pages: got %+v", index.Pages)
	}
}
