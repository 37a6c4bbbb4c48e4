// Copyright (c) 2026 Madalin Gabriel Ignisca <hi@madalin.me>
// Copyright (c) 2026 Vlah Software House SRL <contact@vlah.sh>
// All rights reserved. See LICENSE for details.

package slug

import "strings"

// Auto holds a slug together with a marker recording whether the current
// value was derived from the designator field (usually the name) rather
// than typed in by a user. The zero value is an empty, manual slug.
//
// The rules are:
//   - Designate derives a slug only while the slug is blank, and marks it
//     as auto-assigned.
//   - Assign ignores blank input while the marker is set; otherwise it
//     stores the value verbatim and clears the marker for good.
//
// This means a user who clears the slug field after editing it explicitly
// gets an empty slug, not a regenerated one.
type Auto struct {
	value string
	auto  bool
}

// NewAuto returns a slug holder seeded with a stored value, as loaded from
// the database. Stored values are never considered auto-assigned.
func NewAuto(stored string) Auto {
	return Auto{value: stored}
}

// Designate is the assignment hook for the designator field.
func (a *Auto) Designate(designator string) {
	if blank(a.value) {
		a.value = Slugify(designator)
		a.auto = true
	}
}

// Assign is the assignment hook for the slug field itself.
func (a *Auto) Assign(v string) {
	if blank(v) && a.auto {
		return
	}
	a.value = v
	a.auto = false
}

// Value returns the current slug.
func (a Auto) Value() string {
	return a.value
}

// AutoAssigned reports whether the current slug was derived automatically.
func (a Auto) AutoAssigned() bool {
	return a.auto
}

func blank(s string) bool {
	return strings.TrimSpace(s) == ""
}
