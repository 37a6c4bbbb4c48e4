// Copyright (c) 2026 Madalin Gabriel Ignisca <hi@madalin.me>
// Copyright (c) 2026 Vlah Software House SRL <contact@vlah.sh>
// All rights reserved. See LICENSE for details.

// Package content is the write path for pages, layouts and partials. It
// runs the save-time checks that need the store (scoped uniqueness, the
// layout reference) or the template evaluator (partial syntax) on top of
// the shape rules in models, then persists the node and drops any cached
// renders it may have changed.
package content

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sort"

	"github.com/google/uuid"

	"quire/internal/models"
	"quire/internal/store"
)

// TemplateValidator checks template syntax. *engine.Evaluator satisfies it.
type TemplateValidator interface {
	Validate(src string) error
}

// Invalidator drops cached renders. *cache.PageCache satisfies it.
type Invalidator interface {
	InvalidatePage(ctx context.Context, scope models.Scope, slug string)
	InvalidateScope(ctx context.Context, scope models.Scope)
}

// Service validates and persists content nodes.
type Service struct {
	store     store.Store
	templates TemplateValidator

	// Options holds the field naming and validation switches per kind.
	// Kinds without an entry use the defaults.
	Options map[models.Kind]models.NodeOptions

	// Invalidator, when set, is told about every write.
	Invalidator Invalidator
}

// NewService creates a content service. templates may be nil, in which
// case partial syntax is not checked.
func NewService(s store.Store, templates TemplateValidator) *Service {
	return &Service{
		store:     s,
		templates: templates,
		Options:   make(map[models.Kind]models.NodeOptions),
	}
}

// Store returns the underlying store.
func (s *Service) Store() store.Store { return s.store }

// OptionsFor returns the options for kind with defaults filled in.
func (s *Service) OptionsFor(kind models.Kind) models.NodeOptions {
	return s.Options[kind].WithDefaults()
}

// Apply assigns submitted fields to n. The designator field goes first so
// an explicit slug in the same submission always takes precedence over the
// derived one.
func (s *Service) Apply(n *models.Node, fields map[string]string) error {
	opts := s.OptionsFor(n.Kind)

	keys := make([]string, 0, len(fields))
	for k := range fields {
		if k != opts.DesignatorField {
			keys = append(keys, k)
		}
	}
	sort.Strings(keys)
	if _, ok := fields[opts.DesignatorField]; ok {
		keys = append([]string{opts.DesignatorField}, keys...)
	}

	for _, k := range keys {
		if err := n.Assign(opts, k, fields[k]); err != nil {
			return err
		}
	}
	return nil
}

// CreatePage validates and stores a new page.
func (s *Service) CreatePage(ctx context.Context, n *models.Node) error {
	return s.create(ctx, models.KindPage, n)
}

// UpdatePage validates and stores changes to an existing page.
func (s *Service) UpdatePage(ctx context.Context, n *models.Node) error {
	return s.update(ctx, models.KindPage, n)
}

// CreateLayout validates and stores a new layout.
func (s *Service) CreateLayout(ctx context.Context, n *models.Node) error {
	return s.create(ctx, models.KindLayout, n)
}

// UpdateLayout validates and stores changes to an existing layout.
func (s *Service) UpdateLayout(ctx context.Context, n *models.Node) error {
	return s.update(ctx, models.KindLayout, n)
}

// CreatePartial validates and stores a new partial.
func (s *Service) CreatePartial(ctx context.Context, n *models.Node) error {
	return s.create(ctx, models.KindPartial, n)
}

// UpdatePartial validates and stores changes to an existing partial.
func (s *Service) UpdatePartial(ctx context.Context, n *models.Node) error {
	return s.update(ctx, models.KindPartial, n)
}

// Delete removes a node. Pages using a deleted layout render standalone
// afterwards.
func (s *Service) Delete(ctx context.Context, n *models.Node) error {
	if err := s.store.Delete(ctx, n.ID); err != nil {
		return fmt.Errorf("delete %s: %w", n.Kind, err)
	}
	slog.Info("content deleted", "kind", n.Kind, "name", n.Name, "scope", n.Parent)
	s.invalidate(ctx, n, nil)
	return nil
}

// FindPage returns the page addressed by glob in scope, or an error
// matching models.ErrNotFound.
func (s *Service) FindPage(ctx context.Context, scope models.Scope, glob string) (*models.Node, error) {
	page, err := s.store.FindOne(ctx, models.KindPage, scope, store.BySlug(glob))
	if err != nil {
		return nil, fmt.Errorf("find page: %w", err)
	}
	if page == nil {
		return nil, fmt.Errorf("page %q in %s: %w", glob, scope, models.ErrNotFound)
	}
	return page, nil
}

// FindByID returns the node with id, or an error matching
// models.ErrNotFound.
func (s *Service) FindByID(ctx context.Context, id uuid.UUID) (*models.Node, error) {
	n, err := s.store.FindByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("find node: %w", err)
	}
	if n == nil {
		return nil, fmt.Errorf("node %s: %w", id, models.ErrNotFound)
	}
	return n, nil
}

// FindNode returns the node of kind with id in scope. A node of another
// kind or from another scope is reported as missing, so one parent can
// never reach another parent's layouts and partials.
func (s *Service) FindNode(ctx context.Context, kind models.Kind, scope models.Scope, id uuid.UUID) (*models.Node, error) {
	n, err := s.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if n.Kind != kind || n.Parent != scope {
		return nil, fmt.Errorf("%s %s in %s: %w", kind, id, scope, models.ErrNotFound)
	}
	return n, nil
}

// ListPages returns the pages in scope ordered by name.
func (s *Service) ListPages(ctx context.Context, scope models.Scope) ([]models.Node, error) {
	return s.List(ctx, models.KindPage, scope)
}

// List returns the nodes of one kind in scope ordered by name.
func (s *Service) List(ctx context.Context, kind models.Kind, scope models.Scope) ([]models.Node, error) {
	nodes, err := s.store.FindMany(ctx, kind, scope)
	if err != nil {
		return nil, fmt.Errorf("list %ss: %w", kind, err)
	}
	return nodes, nil
}

// EffectiveLayout returns the layout page renders inside, or nil when it
// renders standalone.
func (s *Service) EffectiveLayout(ctx context.Context, page *models.Node) (*models.Node, error) {
	if page.LayoutID == nil {
		return nil, nil
	}
	layout, err := s.store.FindByID(ctx, *page.LayoutID)
	if err != nil {
		return nil, fmt.Errorf("find layout: %w", err)
	}
	if layout == nil || layout.Kind != models.KindLayout {
		slog.Warn("page layout missing", "page", page.Slug(), "layout_id", page.LayoutID)
		return nil, nil
	}
	return layout, nil
}

func (s *Service) create(ctx context.Context, kind models.Kind, n *models.Node) error {
	if err := checkKind(kind, n); err != nil {
		return err
	}
	if err := s.validate(ctx, n); err != nil {
		return err
	}
	if err := s.store.Create(ctx, n); err != nil {
		return fmt.Errorf("create %s: %w", kind, err)
	}
	slog.Info("content created", "kind", kind, "name", n.Name, "scope", n.Parent)
	s.invalidate(ctx, n, nil)
	return nil
}

func (s *Service) update(ctx context.Context, kind models.Kind, n *models.Node) error {
	if err := checkKind(kind, n); err != nil {
		return err
	}
	prev, err := s.store.FindByID(ctx, n.ID)
	if err != nil {
		return fmt.Errorf("find %s: %w", kind, err)
	}
	if prev == nil || prev.Kind != kind {
		return fmt.Errorf("%s %s: %w", kind, n.ID, models.ErrNotFound)
	}
	if prev.Parent != n.Parent {
		var errs models.ValidationErrors
		errs.Add("parent", "can't be changed")
		return errs
	}
	if err := s.validate(ctx, n); err != nil {
		return err
	}
	if err := s.store.Update(ctx, n); err != nil {
		return fmt.Errorf("update %s: %w", kind, err)
	}
	slog.Info("content updated", "kind", kind, "name", n.Name, "scope", n.Parent)
	s.invalidate(ctx, n, prev)
	return nil
}

func checkKind(want models.Kind, n *models.Node) error {
	if n.Kind != want {
		return fmt.Errorf("expected a %s, got a %q node", want, n.Kind)
	}
	return nil
}

// validate runs the shape rules and the store-backed checks, returning
// models.ValidationErrors when anything fails.
func (s *Service) validate(ctx context.Context, n *models.Node) error {
	opts := s.OptionsFor(n.Kind)
	errs := n.Validate(opts)
	if len(errs.On("kind")) > 0 {
		return errs
	}

	if n.Name != "" {
		taken, err := s.taken(ctx, n, store.ByName(n.Name))
		if err != nil {
			return err
		}
		if taken {
			errs.Add(opts.NameField, "has already been taken")
		}
	}

	switch n.Kind {
	case models.KindPage:
		if n.Slug() != "" && len(errs.On(opts.SlugField)) == 0 {
			taken, err := s.taken(ctx, n, store.BySlug(n.Slug()))
			if err != nil {
				return err
			}
			if taken {
				errs.Add(opts.SlugField, "has already been taken")
			}
		}
		if err := s.checkLayout(ctx, n, &errs); err != nil {
			return err
		}
	case models.KindPartial:
		if !opts.SkipTemplateValidation && s.templates != nil {
			if err := s.templates.Validate(n.Content); err != nil {
				errs.Add("content", err.Error())
			}
		}
	}

	if n.Kind != models.KindPage && n.LayoutID != nil {
		errs.Add("layout_id", "is only allowed on pages")
	}

	return errs.Err()
}

// taken reports whether another node of the same kind in the same scope
// matches p.
func (s *Service) taken(ctx context.Context, n *models.Node, p store.Predicate) (bool, error) {
	other, err := s.store.FindOne(ctx, n.Kind, n.Parent, p)
	if err != nil {
		return false, fmt.Errorf("check %s uniqueness: %w", p.Field, err)
	}
	return other != nil && other.ID != n.ID, nil
}

func (s *Service) checkLayout(ctx context.Context, page *models.Node, errs *models.ValidationErrors) error {
	if page.LayoutID == nil {
		return nil
	}
	layout, err := s.store.FindByID(ctx, *page.LayoutID)
	if err != nil && !errors.Is(err, models.ErrNotFound) {
		return fmt.Errorf("find layout: %w", err)
	}
	switch {
	case layout == nil || layout.Kind != models.KindLayout:
		errs.Add("layout_id", "does not exist")
	case layout.Parent != page.Parent:
		errs.Add("layout_id", "belongs to a different scope")
	}
	return nil
}

// invalidate drops renders affected by a write to n. prev is the stored
// version before an update.
func (s *Service) invalidate(ctx context.Context, n, prev *models.Node) {
	if s.Invalidator == nil {
		return
	}
	if n.Kind != models.KindPage {
		// Any page in the scope may include the partial or use the layout.
		s.Invalidator.InvalidateScope(ctx, n.Parent)
		return
	}
	s.Invalidator.InvalidatePage(ctx, n.Parent, n.Slug())
	if prev != nil && prev.Slug() != n.Slug() {
		s.Invalidator.InvalidatePage(ctx, n.Parent, prev.Slug())
	}
}
