// Copyright (c) 2026 Madalin Gabriel Ignisca <hi@madalin.me>
// Copyright (c) 2026 Vlah Software House SRL <contact@vlah.sh>
// All rights reserved. See LICENSE for details.

package engine

import (
	"context"
	"fmt"

	"quire/internal/models"
	"quire/internal/store"
)

// Resolver returns the raw source of the partial called name in scope.
// Implementations must not fall back from a parented scope to the global
// one, and must not keep scope between calls: one resolver serves every
// concurrent render.
type Resolver interface {
	Resolve(ctx context.Context, name string, scope models.Scope) (string, error)
}

// ResolverFunc adapts a function to Resolver.
type ResolverFunc func(ctx context.Context, name string, scope models.Scope) (string, error)

// Resolve calls f.
func (f ResolverFunc) Resolve(ctx context.Context, name string, scope models.Scope) (string, error) {
	return f(ctx, name, scope)
}

// StoreResolver resolves partials from the content node store.
type StoreResolver struct {
	Finder store.Finder
}

// NewStoreResolver creates a resolver backed by f.
func NewStoreResolver(f store.Finder) *StoreResolver {
	return &StoreResolver{Finder: f}
}

// Resolve looks the partial up by name in exactly the given scope.
func (r *StoreResolver) Resolve(ctx context.Context, name string, scope models.Scope) (string, error) {
	n, err := r.Finder.FindOne(ctx, models.KindPartial, scope, store.ByName(name))
	if err != nil {
		return "", fmt.Errorf("resolve partial %q: %w", name, err)
	}
	if n == nil {
		return "", &NotFoundError{Name: name, Scope: scope}
	}
	return n.Content, nil
}
