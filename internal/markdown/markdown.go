// Copyright (c) 2026 Madalin Gabriel Ignisca <hi@madalin.me>
// Copyright (c) 2026 Vlah Software House SRL <contact@vlah.sh>
// All rights reserved. See LICENSE for details.

// Package markdown converts Markdown source into HTML or plain text using
// goldmark. The source is usually template output, so it may already
// contain HTML from partials and layouts; the HTML target passes that
// markup through unchanged.
package markdown

import (
	"bytes"
	"fmt"

	"github.com/yuin/goldmark"
	highlighting "github.com/yuin/goldmark-highlighting/v2"
	"github.com/yuin/goldmark/extension"
	"github.com/yuin/goldmark/parser"
	"github.com/yuin/goldmark/renderer/html"
)

// htmlMD renders the HTML target. Raw HTML is allowed because the source
// is template output that already holds partial and layout markup.
var htmlMD = goldmark.New(
	goldmark.WithExtensions(
		extension.GFM,
		extension.Typographer,
		highlighting.NewHighlighting(
			highlighting.WithStyle("monokai"),
			highlighting.WithGuessLanguage(true),
		),
	),
	goldmark.WithParserOptions(parser.WithAutoHeadingID()),
	goldmark.WithRendererOptions(html.WithUnsafe()),
)

// ToHTML converts Markdown source into HTML. Quotes and dashes become
// their typographic forms, headings get anchor ids, and fenced code is
// highlighted.
func ToHTML(source string) (string, error) {
	var buf bytes.Buffer
	if err := htmlMD.Convert([]byte(source), &buf); err != nil {
		return "", fmt.Errorf("convert markdown: %w", err)
	}
	return buf.String(), nil
}
