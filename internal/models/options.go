// Copyright (c) 2026 Madalin Gabriel Ignisca <hi@madalin.me>
// Copyright (c) 2026 Vlah Software House SRL <contact@vlah.sh>
// All rights reserved. See LICENSE for details.

package models

// NodeOptions configures one node type. Field names are the external
// attribute names used in forms, JSON bodies, and validation messages.
type NodeOptions struct {
	// NameField names the field holding the node name. Default "name".
	NameField string
	// SlugField names the page slug field. Default "slug".
	SlugField string
	// DesignatorField names the field whose assignment derives the slug.
	// Defaults to NameField; "title" is the only other supported value.
	DesignatorField string
	// SkipTemplateValidation disables the save-time syntax check of
	// partial content.
	SkipTemplateValidation bool
}

// WithDefaults fills in unset field names.
func (o NodeOptions) WithDefaults() NodeOptions {
	if o.NameField == "" {
		o.NameField = "name"
	}
	if o.SlugField == "" {
		o.SlugField = "slug"
	}
	if o.DesignatorField == "" {
		o.DesignatorField = o.NameField
	}
	return o
}
