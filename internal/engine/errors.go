// Copyright (c) 2026 Madalin Gabriel Ignisca <hi@madalin.me>
// Copyright (c) 2026 Vlah Software House SRL <contact@vlah.sh>
// All rights reserved. See LICENSE for details.

package engine

import (
	"errors"
	"fmt"
	"strings"

	"quire/internal/models"
)

// ErrRecursionLimit is wrapped by the RenderError returned when partial
// includes nest deeper than the evaluator allows or form a cycle.
var ErrRecursionLimit = errors.New("partial recursion limit exceeded")

// ParseError describes template source the grammar rejected. It is not
// returned by Parse or Render; it becomes the inline text of the
// substitute template instead.
type ParseError struct {
	Message string
}

func (e *ParseError) Error() string {
	return "ParseError: " + e.Message
}

// newParseError trims the "template: " prefix the text/template parser
// adds, since the inline output already names the error kind.
func newParseError(err error) *ParseError {
	return &ParseError{Message: strings.TrimPrefix(err.Error(), "template: ")}
}

// NotFoundError is returned when no partial with the requested name exists
// in the requested scope. It matches models.ErrNotFound.
type NotFoundError struct {
	Name  string
	Scope models.Scope
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("partial %q not found in scope %s", e.Name, e.Scope)
}

// Is lets errors.Is(err, models.ErrNotFound) match.
func (e *NotFoundError) Is(target error) bool {
	return target == models.ErrNotFound
}

// RenderError is a fatal failure during evaluation. It names the partial
// being included, if any, so the failure can be traced without logs.
type RenderError struct {
	Partial string
	Scope   models.Scope
	Err     error
}

func (e *RenderError) Error() string {
	if e.Partial == "" {
		return "render: " + e.Err.Error()
	}
	return fmt.Sprintf("render partial %q in scope %s: %v", e.Partial, e.Scope, e.Err)
}

func (e *RenderError) Unwrap() error { return e.Err }
