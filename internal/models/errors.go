// Copyright (c) 2026 Madalin Gabriel Ignisca <hi@madalin.me>
// Copyright (c) 2026 Vlah Software House SRL <contact@vlah.sh>
// All rights reserved. See LICENSE for details.

package models

import (
	"errors"
	"strings"
)

var (
	// ErrNotFound is returned by stores when no node matches a lookup.
	ErrNotFound = errors.New("content node not found")

	// ErrInvalid is matched by ValidationErrors via errors.Is.
	ErrInvalid = errors.New("content node invalid")
)

// ValidationError describes one field that failed validation. Messages
// are written for the person editing the node.
type ValidationError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
}

func (e ValidationError) Error() string {
	return e.Field + " " + e.Message
}

// ValidationErrors collects every problem found while validating a node.
type ValidationErrors []ValidationError

// Add appends a field error.
func (v *ValidationErrors) Add(field, message string) {
	*v = append(*v, ValidationError{Field: field, Message: message})
}

// On returns the messages recorded for one field.
func (v ValidationErrors) On(field string) []string {
	var msgs []string
	for _, e := range v {
		if e.Field == field {
			msgs = append(msgs, e.Message)
		}
	}
	return msgs
}

// Err returns nil when nothing was recorded, so callers can write
// `return errs.Err()`.
func (v ValidationErrors) Err() error {
	if len(v) == 0 {
		return nil
	}
	return v
}

func (v ValidationErrors) Error() string {
	parts := make([]string, len(v))
	for i, e := range v {
		parts[i] = e.Error()
	}
	return "validation failed: " + strings.Join(parts, "; ")
}

// Is lets errors.Is(err, ErrInvalid) match any validation failure.
func (v ValidationErrors) Is(target error) bool {
	return target == ErrInvalid
}
