// Copyright (c) 2026 Madalin Gabriel Ignisca <hi@madalin.me>
// Copyright (c) 2026 Vlah Software House SRL <contact@vlah.sh>
// All rights reserved. See LICENSE for details.

// Package render is the single entry point for turning stored content into
// output. A render expands macro tags, evaluates the template, and then
// finishes the result for the requested format: HTML is returned as
// trusted markup, text is stripped of tags by a sanitizer. Markdown
// content takes an extra conversion step before finishing.
package render

import (
	"context"
	"errors"
	"fmt"
	"html"
	"html/template"
	"strings"

	"github.com/microcosm-cc/bluemonday"

	"quire/internal/engine"
	"quire/internal/macro"
	"quire/internal/markdown"
	"quire/internal/models"
)

// Format selects how the evaluated template is finished.
type Format string

const (
	FormatHTML Format = "html"
	FormatText Format = "text"
)

// UnsupportedFormatError is returned for any format other than html and
// text.
type UnsupportedFormatError struct {
	Format string
}

func (e *UnsupportedFormatError) Error() string {
	return fmt.Sprintf("format %q is not supported by the renderer", e.Format)
}

// ParseFormat maps a format name, as found in a URL extension or query
// parameter, to a Format. Matching ignores case; "" means html and "txt"
// is accepted for text.
func ParseFormat(s string) (Format, error) {
	switch strings.ToLower(strings.TrimPrefix(s, ".")) {
	case "", "html", "htm":
		return FormatHTML, nil
	case "text", "txt":
		return FormatText, nil
	}
	return "", &UnsupportedFormatError{Format: s}
}

// ContentType returns the HTTP Content-Type for the format.
func (f Format) ContentType() string {
	if f == FormatText {
		return "text/plain; charset=utf-8"
	}
	return "text/html; charset=utf-8"
}

// Output is a finished render. HTML output is trusted markup; text output
// is plain text.
type Output struct {
	text   string
	format Format
}

// String returns the rendered text.
func (o Output) String() string { return o.text }

// Format returns the format the output was finished for.
func (o Output) Format() Format { return o.format }

// HTML returns the output for embedding in an html/template: trusted as
// is for HTML, escaped for text.
func (o Output) HTML() template.HTML {
	if o.format == FormatHTML {
		return template.HTML(o.text)
	}
	return template.HTML(template.HTMLEscapeString(o.text))
}

// Options are the per-call additions to the evaluator defaults.
type Options struct {
	Assigns   engine.Assigns
	Filters   engine.Filters
	Registers engine.Registers
	// Macros, when set, replaces the renderer's macro stack for this call.
	Macros *macro.Stack
}

// Renderer composes the macro stack, the template evaluator, and the
// format finishers. It holds no per-render state and is safe for
// concurrent use.
type Renderer struct {
	Evaluator *engine.Evaluator
	Macros    *macro.Stack

	sanitizer *bluemonday.Policy
}

// New creates a Renderer. macros may be nil.
func New(ev *engine.Evaluator, macros *macro.Stack) *Renderer {
	return &Renderer{
		Evaluator: ev,
		Macros:    macros,
		sanitizer: bluemonday.StrictPolicy(),
	}
}

// Render expands, evaluates and finishes src.
func (r *Renderer) Render(ctx context.Context, src string, format Format, opts Options) (Output, error) {
	if err := checkFormat(format); err != nil {
		return Output{}, err
	}
	out, err := r.evaluate(ctx, src, opts)
	if err != nil {
		return Output{}, err
	}
	return r.finish(out, format), nil
}

// RenderMarkdown is Render for content written in Markdown. The evaluated
// template is converted to HTML with smart punctuation, or to plain text.
func (r *Renderer) RenderMarkdown(ctx context.Context, src string, format Format, opts Options) (Output, error) {
	if err := checkFormat(format); err != nil {
		return Output{}, err
	}
	out, err := r.evaluate(ctx, src, opts)
	if err != nil {
		return Output{}, err
	}

	if format == FormatHTML {
		converted, err := markdown.ToHTML(out)
		if err != nil {
			return Output{}, fmt.Errorf("markdown to html: %w", err)
		}
		return Output{text: converted, format: FormatHTML}, nil
	}
	return r.finish(markdown.ToText(out), FormatText), nil
}

// RenderInLayout renders page in its scope and, when layout is not nil,
// renders the layout around it. The layout sees the page body as
// {{ .content_for_layout }} and the page itself as {{ .page }}.
func (r *Renderer) RenderInLayout(ctx context.Context, page, layout *models.Node, format Format, opts Options) (Output, error) {
	if err := checkFormat(format); err != nil {
		return Output{}, err
	}

	opts.Registers = withParent(opts.Registers, page.Parent)
	opts.Assigns = withAssign(opts.Assigns, "page", PageAssigns(page))

	body, err := r.evaluate(ctx, page.Content, opts)
	if err != nil {
		return Output{}, err
	}
	if layout == nil {
		return r.finish(body, format), nil
	}

	opts.Assigns = withAssign(opts.Assigns, "content_for_layout", template.HTML(body))
	out, err := r.evaluate(ctx, layout.Content, opts)
	if err != nil {
		return Output{}, fmt.Errorf("layout %q: %w", layout.Name, err)
	}
	return r.finish(out, format), nil
}

// PageAssigns exposes a page's fields to templates as {{ .page.title }}
// and so on.
func PageAssigns(n *models.Node) map[string]any {
	return map[string]any{
		"id":    n.ID.String(),
		"name":  n.Name,
		"title": n.Title,
		"slug":  n.Slug(),
	}
}

// evaluate runs the macro stack and the evaluator. Macro errors are
// authoring errors and render inline like template syntax errors.
func (r *Renderer) evaluate(ctx context.Context, src string, opts Options) (string, error) {
	stack := r.Macros
	if opts.Macros != nil {
		stack = opts.Macros
	}

	expanded, err := stack.Process(ctx, src)
	if err != nil {
		var me *macro.Error
		if errors.As(err, &me) {
			return template.HTMLEscapeString("MacroError: " + me.Error()), nil
		}
		return "", err
	}

	return r.Evaluator.Render(ctx, r.Evaluator.Parse(expanded), opts.Assigns, opts.Filters, opts.Registers)
}

func (r *Renderer) finish(out string, format Format) Output {
	if format == FormatText {
		// The sanitizer escapes text as it strips tags; plain text wants
		// the characters back.
		return Output{text: html.UnescapeString(r.sanitizer.Sanitize(out)), format: FormatText}
	}
	return Output{text: out, format: FormatHTML}
}

func checkFormat(f Format) error {
	if f != FormatHTML && f != FormatText {
		return &UnsupportedFormatError{Format: string(f)}
	}
	return nil
}

func withParent(regs engine.Registers, scope models.Scope) engine.Registers {
	out := make(engine.Registers, len(regs)+1)
	for k, v := range regs {
		out[k] = v
	}
	out[engine.RegisterParent] = scope
	return out
}

func withAssign(assigns engine.Assigns, key string, value any) engine.Assigns {
	out := make(engine.Assigns, len(assigns)+1)
	for k, v := range assigns {
		out[k] = v
	}
	out[key] = value
	return out
}
