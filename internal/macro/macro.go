// Copyright (c) 2026 Madalin Gabriel Ignisca <hi@madalin.me>
// Copyright (c) 2026 Vlah Software House SRL <contact@vlah.sh>
// All rights reserved. See LICENSE for details.

// Package macro expands namespaced macro tags in raw text before template
// evaluation. Tags look like XML elements with a namespace prefix:
//
//	<shop:price sku="A1" />
//	<shop:each category="books"><shop:title /></shop:each>
//
// A Stack holds namespaces in the order they were added; each namespace
// rewrites only its own tags and leaves every other byte of the text as
// it found it, so the output of one namespace is the input of the next.
package macro

import (
	"context"
	"fmt"
	"maps"
	"regexp"
	"strings"
)

// Error reports an undefined or malformed tag.
type Error struct {
	Namespace string
	Tag       string
	Msg       string
}

func (e *Error) Error() string {
	return fmt.Sprintf("macro %s:%s: %s", e.Namespace, e.Tag, e.Msg)
}

// Handler renders one tag occurrence.
type Handler func(t *Tag) (string, error)

// Context is the set of tags available to one namespace, plus globals
// visible to every tag as initial locals.
type Context struct {
	Globals map[string]any
	tags    map[string]Handler
}

// NewContext returns an empty tag context.
func NewContext() *Context {
	return &Context{Globals: make(map[string]any), tags: make(map[string]Handler)}
}

// Define registers a tag. Names may be qualified with colons
// ("children:each") to apply only inside an enclosing tag of that name.
func (c *Context) Define(name string, h Handler) {
	c.tags[name] = h
}

// lookup resolves name against the enclosing tag names, most specific
// first: inside <a><b> a tag c is looked up as "a:b:c", "b:c", then "c".
func (c *Context) lookup(enclosing []string, name string) Handler {
	for i := 0; i <= len(enclosing); i++ {
		qualified := strings.Join(append(append([]string{}, enclosing[i:]...), name), ":")
		if h, ok := c.tags[qualified]; ok {
			return h
		}
	}
	return nil
}

// Provider supplies the tag context for a namespace. It is consulted on
// every Process call so providers can build per-render contexts.
type Provider interface {
	Context(ctx context.Context) (*Context, error)
}

// ProviderFunc adapts a function to Provider.
type ProviderFunc func(ctx context.Context) (*Context, error)

// Context calls f.
func (f ProviderFunc) Context(ctx context.Context) (*Context, error) { return f(ctx) }

type staticProvider struct{ c *Context }

func (s staticProvider) Context(context.Context) (*Context, error) { return s.c, nil }

// Static returns a Provider that always supplies c.
func Static(c *Context) Provider { return staticProvider{c: c} }

type entry struct {
	namespace string
	provider  Provider
	tagRe     *regexp.Regexp
}

// Stack is an ordered list of namespaces. The zero value is an empty
// stack, which returns text unchanged. A Stack is configured once and may
// then be used by concurrent renders.
type Stack struct {
	entries []entry
}

// Add appends a namespace. Adding an existing namespace replaces its
// provider in place.
func (s *Stack) Add(namespace string, p Provider) {
	e := entry{namespace: namespace, provider: p, tagRe: tagPattern(namespace)}
	for i := range s.entries {
		if s.entries[i].namespace == namespace {
			s.entries[i] = e
			return
		}
	}
	s.entries = append(s.entries, e)
}

// Namespaces returns the configured namespaces in processing order.
func (s *Stack) Namespaces() []string {
	if s == nil {
		return nil
	}
	out := make([]string, len(s.entries))
	for i, e := range s.entries {
		out[i] = e.namespace
	}
	return out
}

// Process rewrites text through every namespace in order.
func (s *Stack) Process(ctx context.Context, text string) (string, error) {
	if s == nil {
		return text, nil
	}
	for _, e := range s.entries {
		c, err := e.provider.Context(ctx)
		if err != nil {
			return "", fmt.Errorf("macro context %s: %w", e.namespace, err)
		}
		if c == nil {
			c = NewContext()
		}
		nodes, err := parse(e, text)
		if err != nil {
			return "", err
		}
		text, err = expand(ctx, e.namespace, c, nodes, nil, maps.Clone(c.Globals))
		if err != nil {
			return "", err
		}
	}
	return text, nil
}

// Tag is one tag occurrence being rendered.
type Tag struct {
	// Name is the tag name without the namespace prefix.
	Name string
	// Attrs holds the tag's attributes, unescaped.
	Attrs map[string]string
	// Locals starts as a copy of the enclosing tag's locals. Values set
	// here are visible to tags expanded from this tag's body.
	Locals map[string]any

	ctx       context.Context
	namespace string
	c         *Context
	body      []node
	single    bool
	enclosing []string
}

// Context returns the context passed to Process.
func (t *Tag) Context() context.Context { return t.ctx }

// Attr returns the named attribute, or "".
func (t *Tag) Attr(name string) string { return t.Attrs[name] }

// Single reports whether the tag was self-closing.
func (t *Tag) Single() bool { return t.single }

// Expand renders the tag's body, with this tag added to the enclosing
// names used for lookup.
func (t *Tag) Expand() (string, error) {
	if t.single {
		return "", nil
	}
	return expand(t.ctx, t.namespace, t.c, t.body, append(append([]string{}, t.enclosing...), t.Name), t.Locals)
}

func expand(ctx context.Context, ns string, c *Context, nodes []node, enclosing []string, locals map[string]any) (string, error) {
	var b strings.Builder
	for _, n := range nodes {
		if n.tag == nil {
			b.WriteString(n.text)
			continue
		}
		h := c.lookup(enclosing, n.tag.name)
		if h == nil {
			return "", &Error{Namespace: ns, Tag: n.tag.name, Msg: "undefined tag"}
		}
		t := &Tag{
			Name:      n.tag.name,
			Attrs:     n.tag.attrs,
			Locals:    maps.Clone(locals),
			ctx:       ctx,
			namespace: ns,
			c:         c,
			body:      n.tag.body,
			single:    n.tag.single,
			enclosing: enclosing,
		}
		if t.Locals == nil {
			t.Locals = make(map[string]any)
		}
		out, err := h(t)
		if err != nil {
			return "", err
		}
		b.WriteString(out)
	}
	return b.String(), nil
}
