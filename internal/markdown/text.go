// Copyright (c) 2026 Madalin Gabriel Ignisca <hi@madalin.me>
// Copyright (c) 2026 Vlah Software House SRL <contact@vlah.sh>
// All rights reserved. See LICENSE for details.

package markdown

import (
	"strings"
	"unicode/utf8"

	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/ast"
	"github.com/yuin/goldmark/extension"
	extast "github.com/yuin/goldmark/extension/ast"
	"github.com/yuin/goldmark/text"
	"github.com/yuin/goldmark/util"
	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

// textMD parses for the plain-text target. It leaves out the typographer,
// which would turn quotes into HTML entities.
var textMD = goldmark.New(
	goldmark.WithExtensions(extension.Strikethrough, extension.Linkify),
)

// ToText converts Markdown source into readable plain text:
//
//   - level 1 headings are upper-cased and underlined with "="
//   - level 2 headings are underlined with "-"
//   - deeper headings are upper-cased
//   - strong text keeps its ** markers, emphasis its * markers
//   - list items become "  * item" lines, nested lists indented two more
//   - links become "text (url)"
//
// Code and literal text pass through unescaped. Raw HTML is kept, so the
// result should still go through a tag-stripping sanitizer.
func ToText(source string) string {
	src := []byte(source)
	doc := textMD.Parser().Parse(text.NewReader(src))
	w := &textWriter{source: src, upper: cases.Upper(language.Und)}
	return w.block(doc)
}

type textWriter struct {
	source []byte
	upper  cases.Caser
}

func (w *textWriter) children(n ast.Node) string {
	var b strings.Builder
	for c := n.FirstChild(); c != nil; c = c.NextSibling() {
		b.WriteString(w.block(c))
	}
	return b.String()
}

func (w *textWriter) lines(n ast.Node) string {
	var b strings.Builder
	lines := n.Lines()
	for i := 0; i < lines.Len(); i++ {
		seg := lines.At(i)
		b.Write(seg.Value(w.source))
	}
	return b.String()
}

func (w *textWriter) block(n ast.Node) string {
	switch n := n.(type) {
	case *ast.Document, *ast.Blockquote:
		return w.children(n)

	case *ast.Heading:
		title := w.children(n)
		switch n.Level {
		case 1:
			title = w.upper.String(title)
			return title + "\n" + strings.Repeat("=", utf8.RuneCountInString(title)) + "\n\n"
		case 2:
			return title + "\n" + strings.Repeat("-", utf8.RuneCountInString(title)) + "\n\n"
		default:
			return w.upper.String(title) + "\n\n"
		}

	case *ast.Paragraph:
		return w.children(n) + "\n\n"

	case *ast.TextBlock:
		return w.children(n)

	case *ast.List:
		return w.children(n) + "\n"

	case *ast.ListItem:
		return "  * " + w.listItem(n) + "\n"

	case *ast.FencedCodeBlock, *ast.CodeBlock:
		return w.lines(n) + "\n"

	case *ast.HTMLBlock:
		out := w.lines(n)
		if n.HasClosure() {
			out += string(n.ClosureLine.Value(w.source))
		}
		return out

	case *ast.ThematicBreak:
		return ""

	case *ast.Text:
		out := string(util.UnescapePunctuations(n.Segment.Value(w.source)))
		if n.SoftLineBreak() || n.HardLineBreak() {
			out += "\n"
		}
		return out

	case *ast.String:
		return string(n.Value)

	case *ast.CodeSpan:
		// Backslashes in code are literal.
		var b strings.Builder
		for c := n.FirstChild(); c != nil; c = c.NextSibling() {
			if t, ok := c.(*ast.Text); ok {
				b.Write(t.Segment.Value(w.source))
			}
		}
		return b.String()

	case *ast.Emphasis:
		marker := strings.Repeat("*", n.Level)
		return marker + w.children(n) + marker

	case *extast.Strikethrough:
		return w.children(n)

	case *ast.Link:
		label := w.children(n)
		dest := string(n.Destination)
		if label == "" || label == dest {
			return dest
		}
		return label + " (" + dest + ")"

	case *ast.AutoLink:
		return string(n.URL(w.source))

	case *ast.Image:
		return w.children(n)

	case *ast.RawHTML:
		var b strings.Builder
		for i := 0; i < n.Segments.Len(); i++ {
			seg := n.Segments.At(i)
			b.Write(seg.Value(w.source))
		}
		return b.String()

	default:
		return w.children(n)
	}
}

// listItem renders the blocks of one item on separate lines. A nested
// list is indented under the item's own text.
func (w *textWriter) listItem(n *ast.ListItem) string {
	var parts []string
	for c := n.FirstChild(); c != nil; c = c.NextSibling() {
		out := strings.TrimRight(w.block(c), "\n")
		if out == "" {
			continue
		}
		if _, nested := c.(*ast.List); nested {
			out = "  " + strings.ReplaceAll(out, "\n", "\n  ")
		}
		parts = append(parts, out)
	}
	return strings.Join(parts, "\n")
}
