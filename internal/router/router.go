// Package router sets up the HTTP routes and middleware chains for the
// quire page server. Pages, layouts and partials are mounted once for the
// global scope and once under a parent record, with the same handlers
// serving both.
package router

import (
	"fmt"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"

	"quire/internal/engine"
	"quire/internal/handlers"
	"quire/internal/middleware"
	"quire/internal/models"
	"quire/internal/slug"
)

// ScopedPrefix prefixes parented page routes when the owner type is taken
// from the URL, so /scoped/blog/5/about-us never competes with a global
// page at /about-us/team.
const ScopedPrefix = "/scoped"

// PageRoutes is the handler set MountPages wires up. *handlers.Pages
// implements it.
type PageRoutes interface {
	Index(w http.ResponseWriter, r *http.Request)
	New(w http.ResponseWriter, r *http.Request)
	Create(w http.ResponseWriter, r *http.Request)
	Show(w http.ResponseWriter, r *http.Request)
	Update(w http.ResponseWriter, r *http.Request)
	Destroy(w http.ResponseWriter, r *http.Request)
}

// NodeRoutes is the handler set MountNodes wires up for layouts or
// partials. *handlers.Nodes implements it.
type NodeRoutes interface {
	Index(w http.ResponseWriter, r *http.Request)
	New(w http.ResponseWriter, r *http.Request)
	Create(w http.ResponseWriter, r *http.Request)
	Show(w http.ResponseWriter, r *http.Request)
	Edit(w http.ResponseWriter, r *http.Request)
	Update(w http.ResponseWriter, r *http.Request)
	Destroy(w http.ResponseWriter, r *http.Request)
}

// Handlers are the content handlers New mounts in every scope. Layouts and
// Partials are optional.
type Handlers struct {
	Pages    PageRoutes
	Layouts  NodeRoutes
	Partials NodeRoutes
}

// Options configures where pages are mounted.
type Options struct {
	// PagePathPrefix is the mount path for global pages. Default "/".
	PagePathPrefix string
	// Parent describes parented page routes. An empty IDParam disables
	// them.
	Parent middleware.ParentRoute
	// ParentExists, when set, turns requests for unknown parents into 404s.
	ParentExists middleware.ParentExists
}

// New creates and returns the configured Chi router with all middleware
// and route groups wired up.
func New(opts Options, h Handlers) chi.Router {
	r := chi.NewRouter()

	// Global middleware: applied to every request.
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Use(middleware.SecureHeaders)

	r.Get("/health", healthHandler)

	if opts.Parent.IDParam != "" {
		r.Route(ParentPattern(opts.Parent), func(r chi.Router) {
			r.Use(middleware.LoadScope(opts.Parent))
			if opts.ParentExists != nil {
				r.Use(middleware.RequireParent(opts.ParentExists))
			}
			mountContent(r, h)
		})
	}

	global := func(r chi.Router) {
		r.Use(middleware.LoadScope(middleware.ParentRoute{}))
		mountContent(r, h)
	}
	if prefix := strings.TrimSuffix(opts.PagePathPrefix, "/"); prefix != "" {
		r.Route(prefix, global)
	} else {
		r.Group(global)
	}

	return r
}

// ParentPattern returns the chi pattern parented pages are mounted at.
func ParentPattern(p middleware.ParentRoute) string {
	if p.Type != "" {
		return "/" + p.Type + "/{" + p.IDParam + "}"
	}
	return ScopedPrefix + "/{" + p.TypeParam + "}/{" + p.IDParam + "}"
}

// PagePath returns the page_url function for pages mounted by New. Links
// stay in the scope of the page being rendered.
func PagePath(opts Options) engine.PagePathFunc {
	return func(glob string, parent models.Scope) (string, error) {
		glob = strings.Trim(glob, "/")
		if glob == "" || !SlugConstraint(glob) {
			return "", fmt.Errorf("%q is not a page slug", glob)
		}
		if parent.IsGlobal() {
			return strings.TrimSuffix(opts.PagePathPrefix, "/") + "/" + glob, nil
		}
		if opts.Parent.IDParam == "" {
			return "", fmt.Errorf("no route serves pages of %s", parent)
		}
		if opts.Parent.Type != "" {
			if parent.OwnerType != opts.Parent.Type {
				return "", fmt.Errorf("no route serves pages of %s", parent)
			}
			return "/" + parent.OwnerType + "/" + parent.OwnerID + "/" + glob, nil
		}
		return ScopedPrefix + "/" + parent.OwnerType + "/" + parent.OwnerID + "/" + glob, nil
	}
}

func mountContent(r chi.Router, h Handlers) {
	if h.Layouts != nil {
		MountNodes(r, "/layouts", h.Layouts)
	}
	if h.Partials != nil {
		MountNodes(r, "/partials", h.Partials)
	}
	MountPages(r, h.Pages)
}

// MountNodes registers layout or partial routes under path:
//
//	GET    path              list
//	GET    path/new          blank form
//	POST   path              create
//	GET    path/{id}         show
//	GET    path/{id}/edit    edit form
//	PUT    path/{id}         update
//	DELETE path/{id}         destroy
//
// The first segment of path must be a reserved slug part so no page can
// sit underneath it.
func MountNodes(r chi.Router, path string, h NodeRoutes) {
	id := "/{" + handlers.IDParam + "}"
	r.Route(path, func(r chi.Router) {
		r.Get("/", h.Index)
		r.Get("/new", h.New)
		r.Post("/", h.Create)
		r.Get(id, h.Show)
		r.Get(id+"/edit", h.Edit)
		r.Put(id, h.Update)
		r.Delete(id, h.Destroy)
	})
}

// MountPages registers the page routes on r:
//
//	GET    /pages      list
//	GET    /pages/new  blank page form
//	POST   /pages      create
//	GET    /*          show (or edit, for a trailing /edit)
//	PUT    /*          update
//	DELETE /*          destroy
//
// Wildcard routes only match paths that pass SlugConstraint.
func MountPages(r chi.Router, h PageRoutes) {
	r.Get("/pages", h.Index)
	r.Get("/pages/new", h.New)
	r.Post("/pages", h.Create)

	r.Group(func(r chi.Router) {
		r.Use(constrainGlob)
		r.Get("/", h.Show)
		r.Get("/*", h.Show)
		r.Put("/*", h.Update)
		r.Delete("/*", h.Destroy)
	})
}

// SlugConstraint reports whether every "/"-separated part of glob is a
// well-formed slug part. The empty glob is accepted so the bare mount path
// and route introspection still match.
func SlugConstraint(glob string) bool {
	for _, part := range slug.Parts(glob) {
		if !slug.ValidPart(part) {
			return false
		}
	}
	return true
}

// constrainGlob answers 404 for wildcard paths that cannot address a page.
// The format extension is not part of the slug.
func constrainGlob(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		g := handlers.ParseGlob(chi.URLParam(r, "*"))
		if !SlugConstraint(g.Slug) {
			http.NotFound(w, r)
			return
		}
		next.ServeHTTP(w, r)
	})
}

// healthHandler returns a simple JSON health check response.
func healthHandler(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	w.Write([]byte(`{"status":"ok"}`))
}
