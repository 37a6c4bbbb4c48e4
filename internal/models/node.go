// Copyright (c) 2026 Madalin Gabriel Ignisca <hi@madalin.me>
// Copyright (c) 2026 Vlah Software House SRL <contact@vlah.sh>
// All rights reserved. See LICENSE for details.

package models

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"quire/internal/slug"
)

// Kind distinguishes the three node variants. They share one shape and
// differ only in which fields are mandatory.
type Kind string

const (
	KindPage    Kind = "page"
	KindLayout  Kind = "layout"
	KindPartial Kind = "partial"
)

// Valid returns true for the known kinds.
func (k Kind) Valid() bool {
	switch k {
	case KindPage, KindLayout, KindPartial:
		return true
	}
	return false
}

// Node is a named, template-driven document owned by an optional parent
// record. Pages additionally carry a slug (their address) and may point to
// a layout they render inside.
type Node struct {
	ID       uuid.UUID
	Kind     Kind
	Name     string
	Title    string
	Content  string
	Parent   Scope
	LayoutID *uuid.UUID

	slug slug.Auto

	CreatedAt time.Time
	UpdatedAt time.Time
}

// NewPage returns an empty page in the given scope.
func NewPage(scope Scope) *Node {
	return &Node{Kind: KindPage, Parent: scope}
}

// NewLayout returns an empty layout in the given scope.
func NewLayout(scope Scope) *Node {
	return &Node{Kind: KindLayout, Parent: scope}
}

// NewPartial returns an empty partial in the given scope.
func NewPartial(scope Scope) *Node {
	return &Node{Kind: KindPartial, Parent: scope}
}

// Slug returns the page's address within its scope.
func (n *Node) Slug() string {
	return n.slug.Value()
}

// SlugAutoAssigned reports whether the slug was derived from the name.
func (n *Node) SlugAutoAssigned() bool {
	return n.slug.AutoAssigned()
}

// SetName assigns the name and, for pages, derives a slug when none is set.
func (n *Node) SetName(name string) {
	n.Name = name
	if n.Kind == KindPage {
		n.slug.Designate(name)
	}
}

// SetSlug assigns the slug explicitly. Blank values are ignored while the
// current slug was derived automatically.
func (n *Node) SetSlug(s string) {
	n.slug.Assign(s)
}

// LoadSlug restores a persisted slug without touching the auto marker.
// Stores call it when scanning rows.
func (n *Node) LoadSlug(stored string) {
	n.slug = slug.NewAuto(stored)
}

// Assign sets one attribute by its external field name, as submitted by
// a form or API client. Field names come from opts so host applications
// can call the name "title" or the slug "permalink".
func (n *Node) Assign(opts NodeOptions, field, value string) error {
	opts = opts.WithDefaults()

	switch field {
	case opts.DesignatorField:
		if opts.DesignatorField == opts.NameField {
			n.Name = value
		} else {
			n.Title = value
		}
		if n.Kind == KindPage {
			n.slug.Designate(value)
		}
	case opts.NameField:
		n.Name = value
	case opts.SlugField:
		if n.Kind != KindPage {
			return fmt.Errorf("%s has no %q field", n.Kind, field)
		}
		n.SetSlug(value)
	case "title":
		n.Title = value
	case "content":
		n.Content = value
	default:
		return fmt.Errorf("unknown %s field %q", n.Kind, field)
	}
	return nil
}

// Validate checks the shape rules that need no database access: required
// fields, slug grammar, and reserved slugs. Uniqueness is checked by the
// content service against the store.
func (n *Node) Validate(opts NodeOptions) ValidationErrors {
	opts = opts.WithDefaults()
	var errs ValidationErrors

	if !n.Kind.Valid() {
		errs.Add("kind", fmt.Sprintf("%q is not a content kind", n.Kind))
		return errs
	}

	if strings.TrimSpace(n.Name) == "" {
		errs.Add(opts.NameField, "can't be blank")
	}

	if (n.Parent.OwnerType == "") != (n.Parent.OwnerID == "") {
		errs.Add("parent", "must name both the owner type and the owner id")
	}

	if n.Kind != KindPage {
		return errs
	}

	s := n.Slug()
	switch {
	case s == "":
		errs.Add(opts.SlugField, "can't be blank")
	case !slug.Valid(s):
		errs.Add(opts.SlugField, "must be lower-case letters, digits and hyphens, starting with a letter, separated by slashes")
	case slug.Reserved(s):
		errs.Add(opts.SlugField, fmt.Sprintf("%q is reserved", s))
	}

	return errs
}

// nodeJSON is the wire form of a Node.
type nodeJSON struct {
	ID        uuid.UUID  `json:"id"`
	Kind      Kind       `json:"kind"`
	Name      string     `json:"name"`
	Title     string     `json:"title,omitempty"`
	Slug      string     `json:"slug,omitempty"`
	Content   string     `json:"content"`
	Parent    *Scope     `json:"parent,omitempty"`
	LayoutID  *uuid.UUID `json:"layout_id,omitempty"`
	CreatedAt time.Time  `json:"created_at"`
	UpdatedAt time.Time  `json:"updated_at"`
}

// MarshalJSON includes the slug, which is not an exported field.
func (n Node) MarshalJSON() ([]byte, error) {
	out := nodeJSON{
		ID:        n.ID,
		Kind:      n.Kind,
		Name:      n.Name,
		Title:     n.Title,
		Slug:      n.slug.Value(),
		Content:   n.Content,
		LayoutID:  n.LayoutID,
		CreatedAt: n.CreatedAt,
		UpdatedAt: n.UpdatedAt,
	}
	if !n.Parent.IsGlobal() {
		p := n.Parent
		out.Parent = &p
	}
	return json.Marshal(out)
}
