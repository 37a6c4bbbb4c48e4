// Copyright (c) 2026 Madalin Gabriel Ignisca <hi@madalin.me>
// Copyright (c) 2026 Vlah Software House SRL <contact@vlah.sh>
// All rights reserved. See LICENSE for details.

package engine

import (
	"context"
	"errors"
	"fmt"
	"html/template"
	"slices"
	"strings"

	"quire/internal/models"
)

// TagFunc implements a custom tag, called from templates as
// {{ name arg... }}. Returning template.HTML marks the output as safe;
// any other value is escaped for its context like an ordinary variable.
type TagFunc func(tc *TagContext, args ...any) (any, error)

// PagePathFunc builds the URL of the page called name in parent's scope.
type PagePathFunc func(name string, parent models.Scope) (string, error)

// TagContext is what a tag sees of the render that invoked it.
type TagContext struct {
	Context   context.Context
	Scope     models.Scope
	Registers Registers

	state *renderState
}

// Include renders the named partial in the current scope.
func (tc *TagContext) Include(name string) (template.HTML, error) {
	return tc.state.include(name)
}

// RegisterTag adds a custom tag. Each name can be registered once, and it
// must not clash with a built-in tag.
func (e *Evaluator) RegisterTag(name string, fn TagFunc) error {
	if !validIdent(name) {
		return fmt.Errorf("tag name %q is not a valid identifier", name)
	}
	if fn == nil {
		return fmt.Errorf("tag %q has no implementation", name)
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	if _, ok := e.tags[name]; ok {
		return fmt.Errorf("tag %q is already registered", name)
	}
	e.tags[name] = fn
	return nil
}

// DefinePagePath sets the function page_url uses to build page links.
// Until it is called, page_url renders an inline error.
func (e *Evaluator) DefinePagePath(fn PagePathFunc) {
	e.pagePath.Store(&fn)
}

// renderState is the per-render context threaded through includes. Child
// states share fatal, which holds the first structural failure so it
// survives the wrapping text/template applies to function errors.
type renderState struct {
	ctx       context.Context
	eval      *Evaluator
	assigns   Assigns
	filters   Filters
	registers Registers

	depth int
	stack []string
	fatal *error
}

func (st *renderState) bind(tag TagFunc) func(...any) (any, error) {
	return func(args ...any) (any, error) {
		return tag(&TagContext{
			Context:   st.ctx,
			Scope:     ScopeOf(st.registers),
			Registers: st.registers,
			state:     st,
		}, args...)
	}
}

func (st *renderState) resolver() Resolver {
	if r, ok := st.registers[RegisterResolver].(Resolver); ok && r != nil {
		return r
	}
	return st.eval.Resolver
}

func (st *renderState) include(name string) (template.HTML, error) {
	scope := ScopeOf(st.registers)

	fail := func(err error) (template.HTML, error) {
		var re *RenderError
		if !errors.As(err, &re) {
			err = &RenderError{Partial: name, Scope: scope, Err: err}
		}
		if *st.fatal == nil {
			*st.fatal = err
		}
		return "", err
	}

	if slices.Contains(st.stack, name) || st.depth >= st.eval.maxDepth() {
		chain := strings.Join(append(slices.Clone(st.stack), name), " > ")
		return fail(fmt.Errorf("%w: %s", ErrRecursionLimit, chain))
	}

	r := st.resolver()
	if r == nil {
		return fail(errors.New("no partial resolver configured"))
	}
	src, err := r.Resolve(st.ctx, name, scope)
	if err != nil {
		return fail(err)
	}

	child := *st
	child.depth++
	child.stack = append(slices.Clone(st.stack), name)

	out, err := st.eval.execute(&child, st.eval.Parse(src))
	if err != nil {
		return fail(err)
	}
	return template.HTML(out), nil
}

func includeTag(tc *TagContext, args ...any) (any, error) {
	if len(args) != 1 {
		return nil, fmt.Errorf("include takes one partial name, got %d arguments", len(args))
	}
	name, ok := args[0].(string)
	if !ok || name == "" {
		return nil, fmt.Errorf("include needs a partial name, got %v", args[0])
	}
	return tc.Include(name)
}

func pageURLTag(tc *TagContext, args ...any) (any, error) {
	fn := tc.state.eval.pagePath.Load()
	if fn == nil {
		return "Error: page_url has no page path function. Call DefinePagePath during setup.", nil
	}
	if len(args) != 1 {
		return fmt.Sprintf("Error: page_url takes one page name, got %d arguments", len(args)), nil
	}
	path, err := (*fn)(fmt.Sprint(args[0]), tc.Scope)
	if err != nil {
		return "Error: " + err.Error(), nil
	}
	return path, nil
}
