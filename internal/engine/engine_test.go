// Copyright (c) 2026 Madalin Gabriel Ignisca <hi@madalin.me>
// Copyright (c) 2026 Vlah Software House SRL <contact@vlah.sh>
// All rights reserved. See LICENSE for details.

package engine

import (
	"context"
	"errors"
	"fmt"
	"html/template"
	"strings"
	"sync"
	"testing"

	"quire/internal/models"
)

// partials is an in-memory Resolver keyed by scope and name.
type partials map[models.Scope]map[string]string

func (p partials) Resolve(_ context.Context, name string, scope models.Scope) (string, error) {
	src, ok := p[scope][name]
	if !ok {
		return "", &NotFoundError{Name: name, Scope: scope}
	}
	return src, nil
}

var blog5 = models.ParentScope("blog", "5")

func inScope(s models.Scope) Registers {
	return Registers{RegisterParent: s}
}

// --------------------------------------------------------------------------
// TestCompile: strict parsing and save-time validation
// --------------------------------------------------------------------------

func TestCompile(t *testing.T) {
	e := New(nil)

	tests := []struct {
		name    string
		src     string
		wantErr bool
	}{
		{"plain HTML", `<h1>Hello</h1>`, false},
		{"variable", `<h1>{{ .title }}</h1>`, false},
		{"range", `{{ range .items }}<li>{{ . }}</li>{{ end }}`, false},
		{"unknown function", `{{ .x | shout }}`, false},
		{"include", `{{ include "header" }}`, false},
		{"empty", ``, false},
		{"unclosed action", `{{ .title `, true},
		{"unclosed if", `{{ if .x }}yes`, true},
		{"bad end", `{{ end }}`, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := e.Compile(tt.src)
			if (err != nil) != tt.wantErr {
				t.Fatalf("Compile error = %v, wantErr %v", err, tt.wantErr)
			}
			if verr := e.Validate(tt.src); (verr != nil) != tt.wantErr {
				t.Errorf("Validate error = %v, wantErr %v", verr, tt.wantErr)
			}
			if tt.wantErr {
				var pe *ParseError
				if !errors.As(err, &pe) {
					t.Errorf("expected *ParseError, got %T", err)
				}
			}
		})
	}
}

// --------------------------------------------------------------------------
// TestParseErrorsRenderInline: malformed templates do not fail renders
// --------------------------------------------------------------------------

func TestParseErrorsRenderInline(t *testing.T) {
	e := New(nil)
	ctx := context.Background()

	t.Run("syntax error", func(t *testing.T) {
		tmpl := e.Parse(`<p>{{ .title </p>`)
		if tmpl.Err() == nil {
			t.Fatal("expected Parse to record the error")
		}
		out, err := e.Render(ctx, tmpl, nil, nil, nil)
		if err != nil {
			t.Fatalf("Render should not fail: %v", err)
		}
		if !strings.HasPrefix(out, "ParseError: ") {
			t.Errorf("expected inline ParseError, got %q", out)
		}
	})

	t.Run("undefined function", func(t *testing.T) {
		out, err := e.RenderString(ctx, `{{ .x | shout }}`, Assigns{"x": "hi"})
		if err != nil {
			t.Fatalf("Render should not fail: %v", err)
		}
		if !strings.Contains(out, "ParseError") || !strings.Contains(out, "shout") {
			t.Errorf("expected inline error naming the function, got %q", out)
		}
	})

	t.Run("message is escaped", func(t *testing.T) {
		out, _ := e.RenderString(ctx, `<script>{{ .x `, nil)
		if strings.Contains(out, "<script>") {
			t.Errorf("inline error must be HTML-escaped, got %q", out)
		}
	})
}

// --------------------------------------------------------------------------
// TestRenderEscaping: html/template escaping applies exactly once
// --------------------------------------------------------------------------

func TestRenderEscaping(t *testing.T) {
	e := New(nil)
	ctx := context.Background()

	out, err := e.RenderString(ctx, `{{ .x }}`, Assigns{"x": "<b>hi</b>"})
	if err != nil {
		t.Fatalf("Render: %v", err)
	}
	if out != "&lt;b&gt;hi&lt;/b&gt;" {
		t.Errorf("got %q", out)
	}

	out, _ = e.RenderString(ctx, `{{ .x }}`, Assigns{"x": template.HTML("<b>hi</b>")})
	if out != "<b>hi</b>" {
		t.Errorf("trusted HTML assign: got %q", out)
	}
}

// --------------------------------------------------------------------------
// TestRenderMerging: defaults and per-call overrides
// --------------------------------------------------------------------------

func TestRenderMerging(t *testing.T) {
	e := New(nil)
	e.DefaultAssigns = Assigns{"site": "Quire", "title": "Default"}
	e.DefaultFilters = append(e.DefaultFilters, Filter{Name: "shout", Fn: func(s string) string { return s + "!" }})
	ctx := context.Background()

	tmpl := e.Parse(`{{ .site }}/{{ .title }}/{{ .title | shout }}`)

	out, err := e.Render(ctx, tmpl, Assigns{"title": "Override"}, Filters{
		{Name: "shout", Fn: func(s string) string { return s + "?" }},
	}, nil)
	if err != nil {
		t.Fatalf("Render: %v", err)
	}
	// Assigns: override wins. Filters: the default registration wins.
	if out != "Quire/Override/Override!" {
		t.Errorf("got %q", out)
	}

	// Defaults are not mutated by a call.
	if e.DefaultAssigns["title"] != "Default" {
		t.Error("per-call assigns leaked into defaults")
	}
}

func TestRenderPerCallFilter(t *testing.T) {
	e := New(nil)
	tmpl := e.Parse(`{{ .x | reverse }}`)
	reverse := Filter{Name: "reverse", Fn: func(s string) string {
		r := []rune(s)
		for i, j := 0, len(r)-1; i < j; i, j = i+1, j-1 {
			r[i], r[j] = r[j], r[i]
		}
		return string(r)
	}}

	out, err := e.Render(context.Background(), tmpl, Assigns{"x": "abc"}, Filters{reverse}, nil)
	if err != nil {
		t.Fatalf("Render: %v", err)
	}
	if out != "cba" {
		t.Errorf("got %q", out)
	}
}

func TestRenderRejectsBadFilter(t *testing.T) {
	e := New(nil)
	tmpl := e.Parse(`{{ .x }}`)

	for _, f := range []Filter{
		{Name: "notfunc", Fn: 42},
		{Name: "bad-name", Fn: strings.ToUpper},
		{Name: "noreturn", Fn: func(string) {}},
	} {
		_, err := e.Render(context.Background(), tmpl, nil, Filters{f}, nil)
		var re *RenderError
		if !errors.As(err, &re) {
			t.Errorf("filter %q: expected *RenderError, got %v", f.Name, err)
		}
	}
}

func TestRegistersAreNotAssigns(t *testing.T) {
	e := New(nil)
	out, err := e.Render(context.Background(), e.Parse(`[{{ .secret }}]`), nil, nil, Registers{"secret": "token"})
	if err != nil {
		t.Fatalf("Render: %v", err)
	}
	if strings.Contains(out, "token") {
		t.Errorf("register leaked into output: %q", out)
	}
}

// --------------------------------------------------------------------------
// TestInclude: scoped partial resolution
// --------------------------------------------------------------------------

func TestIncludeScoping(t *testing.T) {
	e := New(partials{
		blog5:         {"header": `<header>{{ .title }}</header>`},
		models.Global: {"footer": `<footer>global</footer>`},
	})
	ctx := context.Background()
	tmpl := e.Parse(`{{ include "header" }}`)

	out, err := e.Render(ctx, tmpl, Assigns{"title": "<Blog>"}, nil, inScope(blog5))
	if err != nil {
		t.Fatalf("Render in blog=5: %v", err)
	}
	if out != "<header>&lt;Blog&gt;</header>" {
		t.Errorf("partial output should be escaped once, got %q", out)
	}

	for _, scope := range []models.Scope{models.Global, models.ParentScope("blog", "6"), models.ParentScope("course", "5")} {
		_, err := e.Render(ctx, tmpl, nil, nil, inScope(scope))
		if !errors.Is(err, models.ErrNotFound) {
			t.Errorf("scope %s: expected not found, got %v", scope, err)
		}
		var nf *NotFoundError
		if !errors.As(err, &nf) || nf.Name != "header" || nf.Scope != scope {
			t.Errorf("scope %s: expected NotFoundError naming header, got %v", scope, err)
		}
	}

	// No fallback from a parent scope to global.
	_, err = e.Render(ctx, e.Parse(`{{ include "footer" }}`), nil, nil, inScope(blog5))
	if !errors.Is(err, models.ErrNotFound) {
		t.Errorf("expected not found for global partial from blog=5, got %v", err)
	}
}

func TestIncludeNested(t *testing.T) {
	e := New(partials{models.Global: {
		"outer": `<div>{{ include "inner" }}{{ include "inner" }}</div>`,
		"inner": `<span>{{ .x }}</span>`,
	}})

	out, err := e.RenderString(context.Background(), `{{ include "outer" }}`, Assigns{"x": "a&b"})
	if err != nil {
		t.Fatalf("Render: %v", err)
	}
	if out != "<div><span>a&amp;b</span><span>a&amp;b</span></div>" {
		t.Errorf("got %q", out)
	}
}

func TestIncludeBrokenPartialRendersInline(t *testing.T) {
	e := New(partials{models.Global: {"broken": `{{ if }}`}})
	out, err := e.RenderString(context.Background(), `<p>{{ include "broken" }}</p>`, nil)
	if err != nil {
		t.Fatalf("Render should not fail: %v", err)
	}
	if !strings.HasPrefix(out, "<p>ParseError: ") || !strings.HasSuffix(out, "</p>") {
		t.Errorf("got %q", out)
	}
}

func TestExecutionErrorsRenderInline(t *testing.T) {
	e := New(partials{models.Global: {"footer": `{{ truncate "ten" .title }}`}})
	ctx := context.Background()

	tests := []struct {
		name     string
		src      string
		assigns  Assigns
		prefix   string
		contains string
	}{
		{"bad partial", `<h1>Page</h1>{{ include "footer" }}`, Assigns{"title": "x"}, "<h1>Page</h1>Error: ", "expected integer"},
		{"field on non-struct", `<p>{{ .n.field }}</p>`, Assigns{"n": 3}, "<p>Error: ", "can&#39;t evaluate field field"},
		{"include arguments", `<p>{{ include 5 }}`, nil, "<p>Error: ", "include needs a partial name"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			out, err := e.RenderString(ctx, tt.src, tt.assigns)
			if err != nil {
				t.Fatalf("Render should not fail: %v", err)
			}
			if !strings.HasPrefix(out, tt.prefix) || !strings.Contains(out, tt.contains) {
				t.Errorf("got %q", out)
			}
		})
	}
}

func TestIncludeRecursion(t *testing.T) {
	tests := []struct {
		name     string
		partials map[string]string
	}{
		{"self", map[string]string{"loop": `x{{ include "loop" }}`}},
		{"mutual", map[string]string{
			"loop":  `a{{ include "other" }}`,
			"other": `b{{ include "loop" }}`,
		}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			e := New(partials{blog5: tt.partials})
			_, err := e.Render(context.Background(), e.Parse(`{{ include "loop" }}`), nil, nil, inScope(blog5))
			if !errors.Is(err, ErrRecursionLimit) {
				t.Fatalf("expected ErrRecursionLimit, got %v", err)
			}
			var re *RenderError
			if !errors.As(err, &re) || re.Scope != blog5 {
				t.Errorf("expected RenderError in blog=5, got %#v", err)
			}
		})
	}
}

func TestIncludeDepthLimit(t *testing.T) {
	chain := make(map[string]string)
	for i := 0; i < 8; i++ {
		chain[fmt.Sprintf("p%d", i)] = fmt.Sprintf(`{{ include "p%d" }}`, i+1)
	}
	chain["p8"] = "end"

	e := New(partials{models.Global: chain})
	e.MaxDepth = 5
	_, err := e.RenderString(context.Background(), `{{ include "p0" }}`, nil)
	if !errors.Is(err, ErrRecursionLimit) {
		t.Fatalf("expected ErrRecursionLimit, got %v", err)
	}

	e.MaxDepth = 9
	out, err := e.RenderString(context.Background(), `{{ include "p0" }}`, nil)
	if err != nil {
		t.Fatalf("Render within limit: %v", err)
	}
	if out != "end" {
		t.Errorf("got %q", out)
	}
}

func TestIncludeResolverOverride(t *testing.T) {
	e := New(partials{})
	override := ResolverFunc(func(_ context.Context, name string, scope models.Scope) (string, error) {
		return "override:" + name + "@" + scope.String(), nil
	})

	out, err := e.Render(context.Background(), e.Parse(`{{ include "x" }}`), nil, nil, Registers{
		RegisterParent:   blog5,
		RegisterResolver: override,
	})
	if err != nil {
		t.Fatalf("Render: %v", err)
	}
	if out != "override:x@blog=5" {
		t.Errorf("got %q", out)
	}
}

func TestIncludeWithoutResolver(t *testing.T) {
	e := New(nil)
	_, err := e.RenderString(context.Background(), `{{ include "x" }}`, nil)
	var re *RenderError
	if !errors.As(err, &re) || re.Partial != "x" {
		t.Errorf("expected RenderError for x, got %v", err)
	}
}

// TestConcurrentScopedRenders checks that scope travels with each render.
func TestConcurrentScopedRenders(t *testing.T) {
	store := partials{}
	for i := 0; i < 20; i++ {
		store[models.ParentScope("blog", fmt.Sprint(i))] = map[string]string{
			"header": fmt.Sprintf("blog-%d", i),
		}
	}
	e := New(store)
	tmpl := e.Parse(`{{ include "header" }}`)

	var wg sync.WaitGroup
	errs := make(chan error, 200)
	for i := 0; i < 200; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			id := fmt.Sprint(i % 20)
			out, err := e.Render(context.Background(), tmpl, nil, nil, inScope(models.ParentScope("blog", id)))
			if err != nil {
				errs <- err
				return
			}
			if out != "blog-"+id {
				errs <- fmt.Errorf("render for blog %s got %q", id, out)
			}
		}(i)
	}
	wg.Wait()
	close(errs)
	for err := range errs {
		t.Error(err)
	}
}

// --------------------------------------------------------------------------
// TestTags: custom tag registration and page_url
// --------------------------------------------------------------------------

func TestRegisterTag(t *testing.T) {
	e := New(nil)

	err := e.RegisterTag("owner", func(tc *TagContext, _ ...any) (any, error) {
		return tc.Scope.OwnerType, nil
	})
	if err != nil {
		t.Fatalf("RegisterTag: %v", err)
	}
	if err := e.RegisterTag("owner", func(*TagContext, ...any) (any, error) { return "", nil }); err == nil {
		t.Error("expected duplicate registration to fail")
	}
	if err := e.RegisterTag("include", func(*TagContext, ...any) (any, error) { return "", nil }); err == nil {
		t.Error("expected built-in tag clash to fail")
	}
	if err := e.RegisterTag("9lives", func(*TagContext, ...any) (any, error) { return "", nil }); err == nil {
		t.Error("expected invalid name to fail")
	}

	out, err := e.Render(context.Background(), e.Parse(`{{ owner }}`), nil, nil, inScope(blog5))
	if err != nil {
		t.Fatalf("Render: %v", err)
	}
	if out != "blog" {
		t.Errorf("got %q", out)
	}
}

func TestPageURL(t *testing.T) {
	e := New(nil)
	ctx := context.Background()
	tmpl := e.Parse(`{{ page_url "about" }}`)

	out, err := e.Render(ctx, tmpl, nil, nil, nil)
	if err != nil {
		t.Fatalf("Render should not fail before DefinePagePath: %v", err)
	}
	if !strings.Contains(out, "DefinePagePath") {
		t.Errorf("expected descriptive inline error, got %q", out)
	}

	e.DefinePagePath(func(name string, parent models.Scope) (string, error) {
		if parent.IsGlobal() {
			return "/" + name, nil
		}
		return "/" + parent.OwnerType + "/" + parent.OwnerID + "/" + name, nil
	})

	out, _ = e.Render(ctx, tmpl, nil, nil, nil)
	if out != "/about" {
		t.Errorf("global: got %q", out)
	}
	out, _ = e.Render(ctx, e.Parse(`<a href="{{ page_url "about" }}">x</a>`), nil, nil, inScope(blog5))
	if out != `<a href="/blog/5/about">x</a>` {
		t.Errorf("scoped: got %q", out)
	}
}

func TestEvaluatorCachesCompiledTemplates(t *testing.T) {
	e := New(nil)
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		if _, err := e.RenderString(ctx, `<p>{{ .n }}</p>`, Assigns{"n": i}); err != nil {
			t.Fatalf("Render: %v", err)
		}
	}
	if e.cache.len() != 1 {
		t.Errorf("expected one cached master, got %d", e.cache.len())
	}

	e.InvalidateAll()
	if e.cache.len() != 0 {
		t.Errorf("expected empty cache after InvalidateAll, got %d", e.cache.len())
	}
}
