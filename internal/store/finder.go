// Copyright (c) 2026 Madalin Gabriel Ignisca <hi@madalin.me>
// Copyright (c) 2026 Vlah Software House SRL <contact@vlah.sh>
// All rights reserved. See LICENSE for details.

// Package store holds the persistence contract for content nodes and its
// PostgreSQL implementation. Lookups are always partitioned by scope: a
// node owned by (blog, 5) is never visible to a query for the global scope
// or for (course, 5).
package store

import (
	"context"

	"github.com/google/uuid"

	"quire/internal/models"
)

// Predicate narrows a FindOne lookup to a single indexed column.
type Predicate struct {
	Field string
	Value string
}

// ByName matches nodes by name.
func ByName(name string) Predicate { return Predicate{Field: "name", Value: name} }

// BySlug matches pages by slug.
func BySlug(s string) Predicate { return Predicate{Field: "slug", Value: s} }

// Column maps the predicate to a SQL column. Only known columns are
// accepted so the name can be spliced into a query.
func (p Predicate) Column() (string, bool) {
	switch p.Field {
	case "name", "slug":
		return p.Field, true
	}
	return "", false
}

// Finder is the read side used by the template resolver and by save-time
// uniqueness checks. FindOne returns nil and no error when nothing matches.
type Finder interface {
	FindOne(ctx context.Context, kind models.Kind, scope models.Scope, p Predicate) (*models.Node, error)
	FindMany(ctx context.Context, kind models.Kind, scope models.Scope) ([]models.Node, error)
}

// Store adds id lookups and writes to Finder.
type Store interface {
	Finder
	FindByID(ctx context.Context, id uuid.UUID) (*models.Node, error)
	Create(ctx context.Context, n *models.Node) error
	Update(ctx context.Context, n *models.Node) error
	Delete(ctx context.Context, id uuid.UUID) error
}
