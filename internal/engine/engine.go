// Copyright (c) 2026 Madalin Gabriel Ignisca <hi@madalin.me>
// Copyright (c) 2026 Vlah Software House SRL <contact@vlah.sh>
// All rights reserved. See LICENSE for details.

// Package engine evaluates content templates written in Go's html/template
// language. It composes per-call assigns, filters and registers with the
// evaluator's defaults, resolves {{ include "name" }} against partials in
// the caller's scope, and keeps an in-memory cache (L1) of compiled
// templates keyed by source hash.
//
// Syntax and execution errors in user-edited templates never fail a
// render: the error message is rendered in place, so a broken partial shows
// up inline instead of taking down every page that uses it.
package engine

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"html/template"
	"maps"
	"strings"
	"sync"
	"sync/atomic"
	"text/template/parse"

	"quire/internal/models"
)

// Assigns are the named values templates see as {{ .name }}.
type Assigns map[string]any

// Registers carry context for tags only; templates cannot read them.
type Registers map[string]any

// Well-known register keys.
const (
	// RegisterParent holds the models.Scope partials are resolved in.
	// Absent means the global scope.
	RegisterParent = "parent"
	// RegisterResolver overrides the evaluator's Resolver for one call.
	RegisterResolver = "partial_resolver"
)

// DefaultMaxDepth is the include nesting limit used when MaxDepth is 0.
const DefaultMaxDepth = 10

// Template is a syntax-checked template source. A Template returned by
// Parse for rejected source renders its error message instead.
type Template struct {
	source string
	err    *ParseError
}

// Source returns the template text.
func (t *Template) Source() string { return t.source }

// Err returns the parse error substituted into the output, or nil.
func (t *Template) Err() error {
	if t.err == nil {
		return nil
	}
	return t.err
}

// Evaluator parses and renders templates. One Evaluator is shared by all
// requests; scope and other per-render state travel in the arguments to
// Render. The exported fields must be set before the first render.
type Evaluator struct {
	DefaultAssigns   Assigns
	DefaultFilters   Filters
	DefaultRegisters Registers

	// Resolver looks up partials for include. Callers may override it per
	// render with RegisterResolver.
	Resolver Resolver

	// MaxDepth bounds include nesting. Zero means DefaultMaxDepth.
	MaxDepth int

	cache *templateCache

	mu   sync.RWMutex
	tags map[string]TagFunc

	pagePath atomic.Pointer[PagePathFunc]
}

// New creates an Evaluator with the standard filters, the built-in
// include and page_url tags, and an empty L1 cache.
func New(resolver Resolver) *Evaluator {
	return &Evaluator{
		DefaultFilters: StandardFilters(),
		Resolver:       resolver,
		cache:          newTemplateCache(),
		tags: map[string]TagFunc{
			"include":  includeTag,
			"page_url": pageURLTag,
		},
	}
}

// Compile checks the syntax of src and returns a handle for Render.
// Function names are not checked here, since filters can be supplied per
// render.
func (e *Evaluator) Compile(src string) (*Template, error) {
	tree := parse.New("content")
	tree.Mode = parse.SkipFuncCheck
	if _, err := tree.Parse(src, "", "", make(map[string]*parse.Tree)); err != nil {
		return nil, newParseError(err)
	}
	return &Template{source: src}, nil
}

// Parse is Compile without failure: rejected source yields a template
// whose output is "ParseError: <message>".
func (e *Evaluator) Parse(src string) *Template {
	t, err := e.Compile(src)
	if err != nil {
		var pe *ParseError
		errors.As(err, &pe)
		return &Template{source: src, err: pe}
	}
	return t
}

// Validate reports whether src would parse. Used before saving partials.
func (e *Evaluator) Validate(src string) error {
	_, err := e.Compile(src)
	return err
}

// InvalidateAll empties the compiled template cache.
func (e *Evaluator) InvalidateAll() {
	e.cache.invalidateAll()
}

// Render evaluates t. Per-call assigns and registers are merged over the
// defaults with the per-call value winning; per-call filters are appended
// after the defaults, so a default filter shadows a per-call one with the
// same name.
//
// Missing partials and include cycles fail with a *RenderError. Other
// execution errors render inline as "Error: <message>" at the point of
// failure.
func (e *Evaluator) Render(ctx context.Context, t *Template, assigns Assigns, filters Filters, registers Registers) (string, error) {
	st := &renderState{
		ctx:       ctx,
		eval:      e,
		assigns:   merge(e.DefaultAssigns, assigns),
		filters:   append(append(Filters{}, e.DefaultFilters...), filters...),
		registers: merge(e.DefaultRegisters, registers),
		fatal:     new(error),
	}
	return e.execute(st, t)
}

// RenderString parses src and renders it with no per-call overrides
// beyond assigns.
func (e *Evaluator) RenderString(ctx context.Context, src string, assigns Assigns) (string, error) {
	return e.Render(ctx, e.Parse(src), assigns, nil, nil)
}

func (e *Evaluator) execute(st *renderState, t *Template) (string, error) {
	if t.err != nil {
		return template.HTMLEscapeString(t.err.Error()), nil
	}
	if t.source == "" {
		return "", nil
	}

	funcs, err := st.filters.funcMap()
	if err != nil {
		return "", &RenderError{Err: err}
	}
	e.mu.RLock()
	for name, tag := range e.tags {
		funcs[name] = st.bind(tag)
	}
	e.mu.RUnlock()

	// Masters are compiled against this render's function names and
	// cached. Each render executes a clone carrying its own bound funcs,
	// so concurrent renders never share tag state.
	key := newCacheKey(t.source, funcs)
	master := e.cache.get(key)
	if master == nil {
		master, err = template.New("content").Funcs(funcs).Parse(t.source)
		if err != nil {
			// Undefined functions are only caught here.
			return template.HTMLEscapeString(newParseError(err).Error()), nil
		}
		e.cache.put(key, master)
	}

	clone, err := master.Clone()
	if err != nil {
		return "", &RenderError{Err: fmt.Errorf("clone template: %w", err)}
	}
	clone.Funcs(funcs)

	var buf bytes.Buffer
	if err := clone.Execute(&buf, map[string]any(st.assigns)); err != nil {
		if *st.fatal != nil {
			return "", *st.fatal
		}
		// Contextual escaping problems are authoring errors like syntax
		// errors and are reported the same way.
		var escErr *template.Error
		if errors.As(err, &escErr) {
			msg := strings.TrimPrefix(escErr.Error(), "html/template:")
			return template.HTMLEscapeString((&ParseError{Message: msg}).Error()), nil
		}
		// Anything else failed while executing author content: a bad
		// argument, a field on a non-struct, a filter error. The output up
		// to the failure is kept and the error takes the rest of its place.
		return buf.String() + template.HTMLEscapeString(execErrorText(err)), nil
	}
	return buf.String(), nil
}

// execErrorText is the inline form of a template execution error.
func execErrorText(err error) string {
	return "Error: " + strings.TrimPrefix(err.Error(), "template: ")
}

// ScopeOf returns the partial scope carried in registers.
func ScopeOf(registers Registers) models.Scope {
	switch v := registers[RegisterParent].(type) {
	case models.Scope:
		return v
	case *models.Scope:
		if v != nil {
			return *v
		}
	}
	return models.Global
}

func (e *Evaluator) maxDepth() int {
	if e.MaxDepth > 0 {
		return e.MaxDepth
	}
	return DefaultMaxDepth
}

func merge[M ~map[string]any](defaults, overrides M) M {
	out := make(M, len(defaults)+len(overrides))
	maps.Copy(out, defaults)
	maps.Copy(out, overrides)
	return out
}
