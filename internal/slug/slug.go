// Copyright (c) 2026 Madalin Gabriel Ignisca <hi@madalin.me>
// Copyright (c) 2026 Vlah Software House SRL <contact@vlah.sh>
// All rights reserved. See LICENSE for details.

// Package slug implements the addressing grammar for pages: generating
// slugs from free text, validating single slugs and hierarchical paths,
// and tracking whether a slug was derived automatically.
//
// A slug is one or more parts joined by "/", each part being a lower-case
// letter followed by lower-case letters, digits, or hyphens. For example
// "about-us/people", "special-deals", and "winter-2012" are valid, while
// "3-things", "123", "nobody-lives-here!" and "/root-page" are not.
package slug

import (
	"regexp"
	"strings"
)

var (
	// pattern is the full hierarchical grammar.
	pattern = regexp.MustCompile(`^([a-z][a-z0-9-]*/)*[a-z][a-z0-9-]*$`)
	// partPattern matches a single path segment.
	partPattern = regexp.MustCompile(`^[a-z][a-z0-9-]*$`)

	whitespace      = regexp.MustCompile(`[\s\v]+`) // \s alone leaves out vertical tab
	disallowed      = regexp.MustCompile(`[^a-z0-9-]`)
	leadingNonAlpha = regexp.MustCompile(`^[^a-z]+`)
)

// reservedParts collide with the routes mounted next to pages: the page,
// layout and partial admin routes, the health check and the prefix of
// parented routes.
var reservedParts = map[string]bool{
	"pages":    true,
	"edit":     true,
	"layouts":  true,
	"partials": true,
	"health":   true,
	"scoped":   true,
}

// Slugify converts arbitrary text into a slug part: lower-case, whitespace
// runs become a single hyphen, anything outside [a-z0-9-] is dropped, and
// any leading non-letters are removed. It never fails but may return "".
//
//	"Katniss Everdeen"        → "katniss-everdeen"
//	"21 guns"                 → "guns"
//	"We love you, Conrad!!!1" → "we-love-you-conrad1"
func Slugify(s string) string {
	result := strings.ToLower(s)
	result = whitespace.ReplaceAllString(result, "-")
	result = disallowed.ReplaceAllString(result, "")
	result = leadingNonAlpha.ReplaceAllString(result, "")
	return result
}

// Valid reports whether s is a well-formed slug or slug path.
func Valid(s string) bool {
	return pattern.MatchString(s)
}

// ValidPart reports whether s is a single well-formed path segment.
func ValidPart(s string) bool {
	return partPattern.MatchString(s)
}

// Parts splits a slug path into its segments, ignoring a leading slash.
func Parts(glob string) []string {
	glob = strings.TrimPrefix(glob, "/")
	if glob == "" {
		return nil
	}
	return strings.Split(glob, "/")
}

// Reserved reports whether s would shadow another route: its first
// segment is one of the reserved parts, or its last segment is "edit".
func Reserved(s string) bool {
	parts := Parts(s)
	if len(parts) == 0 {
		return false
	}
	if reservedParts[parts[0]] {
		return true
	}
	return parts[len(parts)-1] == "edit"
}
