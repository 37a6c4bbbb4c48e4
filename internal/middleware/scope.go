// Copyright (c) 2026 Madalin Gabriel Ignisca <hi@madalin.me>
// Copyright (c) 2026 Vlah Software House SRL <contact@vlah.sh>
// All rights reserved. See LICENSE for details.

package middleware

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"quire/internal/models"
)

// contextKey is an unexported type for context keys to prevent collisions.
type contextKey string

const (
	// ScopeKey is the context key for the parent scope of the request.
	ScopeKey contextKey = "scope"
)

// ParentRoute describes where a request carries its parent record.
type ParentRoute struct {
	// Type fixes the owner type, as in /books/{book_id}/... routes.
	Type string
	// TypeParam is the URL param holding the owner type when Type is empty.
	TypeParam string
	// IDParam is the URL param holding the owner id.
	IDParam string
}

// Scope reads the parent scope from r. It reports false when the route
// names a parent but the request does not carry a complete one.
func (p ParentRoute) Scope(r *http.Request) (models.Scope, bool) {
	if p.IDParam == "" {
		return models.Global, true
	}
	ownerType := p.Type
	if ownerType == "" && p.TypeParam != "" {
		ownerType = chi.URLParam(r, p.TypeParam)
	}
	ownerID := chi.URLParam(r, p.IDParam)
	if ownerType == "" || ownerID == "" {
		return models.Scope{}, false
	}
	return models.ParentScope(ownerType, ownerID), true
}

// LoadScope stores the parent scope named by the route in the request
// context. Downstream handlers read it via ScopeFromCtx(). Requests
// missing part of the parent get a 404.
func LoadScope(route ParentRoute) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			scope, ok := route.Scope(r)
			if !ok {
				http.NotFound(w, r)
				return
			}
			next.ServeHTTP(w, r.WithContext(WithScope(r.Context(), scope)))
		})
	}
}

// ParentExists reports whether the host record behind a scope exists.
type ParentExists func(ctx context.Context, scope models.Scope) (bool, error)

// RequireParent returns 404 when the parent record in the request scope
// does not exist. Must be applied after LoadScope. The global scope always
// passes.
func RequireParent(exists ParentExists) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			scope := ScopeFromCtx(r.Context())
			if scope.IsGlobal() {
				next.ServeHTTP(w, r)
				return
			}

			ok, err := exists(r.Context(), scope)
			if err != nil {
				slog.Error("parent lookup failed", "scope", scope, "error", err)
				http.Error(w, "Internal Server Error", http.StatusInternalServerError)
				return
			}
			if !ok {
				http.NotFound(w, r)
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}

// WithScope returns a copy of ctx carrying scope.
func WithScope(ctx context.Context, scope models.Scope) context.Context {
	return context.WithValue(ctx, ScopeKey, scope)
}

// ScopeFromCtx returns the parent scope of the request, or the global
// scope when none was loaded.
func ScopeFromCtx(ctx context.Context) models.Scope {
	scope, _ := ctx.Value(ScopeKey).(models.Scope)
	return scope
}
