// Copyright (c) 2026 Madalin Gabriel Ignisca <hi@madalin.me>
// Copyright (c) 2026 Vlah Software House SRL <contact@vlah.sh>
// All rights reserved. See LICENSE for details.

package engine

import (
	"fmt"
	"html/template"
	"reflect"
	"strings"
	"unicode"
	"unicode/utf8"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

// Filter is a named function usable in template pipelines. As with any Go
// template function, the piped value arrives as the last argument:
// {{ .title | truncate 20 }} calls truncate(20, title).
type Filter struct {
	Name string
	Fn   any
}

// Filters is an ordered filter set. When two entries share a name, the
// earlier one wins.
type Filters []Filter

// funcMap flattens the set, keeping the first registration of each name.
func (fs Filters) funcMap() (template.FuncMap, error) {
	fm := make(template.FuncMap, len(fs))
	for _, f := range fs {
		if _, dup := fm[f.Name]; dup {
			continue
		}
		if err := checkFunc(f.Name, f.Fn); err != nil {
			return nil, err
		}
		fm[f.Name] = f.Fn
	}
	return fm, nil
}

var errorType = reflect.TypeOf((*error)(nil)).Elem()

// checkFunc applies the rules template.FuncMap enforces by panicking, so a
// bad filter fails one render instead of the process.
func checkFunc(name string, fn any) error {
	if !validIdent(name) {
		return fmt.Errorf("filter name %q is not a valid identifier", name)
	}
	v := reflect.ValueOf(fn)
	if v.Kind() != reflect.Func {
		return fmt.Errorf("filter %q is %T, not a function", name, fn)
	}
	switch t := v.Type(); {
	case t.NumOut() == 1:
	case t.NumOut() == 2 && t.Out(1) == errorType:
	default:
		return fmt.Errorf("filter %q must return one value, optionally followed by an error", name)
	}
	return nil
}

func validIdent(name string) bool {
	if name == "" {
		return false
	}
	for i, r := range name {
		switch {
		case r == '_':
		case i == 0 && !unicode.IsLetter(r):
			return false
		case !unicode.IsLetter(r) && !unicode.IsDigit(r):
			return false
		}
	}
	return true
}

// Casers are stateful, so each call gets its own.
func upcase(s string) string   { return cases.Upper(language.Und).String(s) }
func downcase(s string) string { return cases.Lower(language.Und).String(s) }

// StandardFilters returns the filters every evaluator starts with.
func StandardFilters() Filters {
	return Filters{
		{Name: "upcase", Fn: upcase},
		{Name: "downcase", Fn: downcase},
		{Name: "capitalize", Fn: capitalize},
		{Name: "strip", Fn: strings.TrimSpace},
		{Name: "truncate", Fn: truncate},
		{Name: "default", Fn: defaultValue},
		{Name: "join", Fn: func(sep string, items []string) string { return strings.Join(items, sep) }},
	}
}

// capitalize upper-cases the first letter and lower-cases the rest.
func capitalize(s string) string {
	r, size := utf8.DecodeRuneInString(s)
	if r == utf8.RuneError {
		return s
	}
	return upcase(string(r)) + downcase(s[size:])
}

// truncate shortens s to n runes, ending with an ellipsis when cut.
func truncate(n int, s string) string {
	if n <= 0 || utf8.RuneCountInString(s) <= n {
		return s
	}
	if n <= 3 {
		return string([]rune(s)[:n])
	}
	return string([]rune(s)[:n-3]) + "..."
}

// defaultValue returns fallback when v is nil, an empty string, or false.
func defaultValue(fallback, v any) any {
	switch x := v.(type) {
	case nil:
		return fallback
	case string:
		if x == "" {
			return fallback
		}
	case bool:
		if !x {
			return fallback
		}
	}
	return v
}
