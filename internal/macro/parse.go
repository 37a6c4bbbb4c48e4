// Copyright (c) 2026 Madalin Gabriel Ignisca <hi@madalin.me>
// Copyright (c) 2026 Vlah Software House SRL <contact@vlah.sh>
// All rights reserved. See LICENSE for details.

package macro

import (
	"html"
	"regexp"
)

// attrRe matches one name="value" or name='value' pair.
var attrRe = regexp.MustCompile(`([A-Za-z_][\w-]*)\s*=\s*(?:"([^"]*)"|'([^']*)')`)

// tagPattern matches open, close and self-closing tags of one namespace.
// Groups: 1 "/" for a close tag, 2 tag name, 3 attributes, 4 "/" for a
// self-closing tag.
func tagPattern(ns string) *regexp.Regexp {
	return regexp.MustCompile(`<(/)?` + regexp.QuoteMeta(ns) + `:([A-Za-z_][\w:-]*)((?:\s+[A-Za-z_][\w-]*\s*=\s*(?:"[^"]*"|'[^']*'))*)\s*(/)?>`)
}

type node struct {
	text string
	tag  *tagNode
}

type tagNode struct {
	name   string
	attrs  map[string]string
	single bool
	body   []node
}

// parse splits text into literal runs and tag trees for one namespace.
func parse(e entry, text string) ([]node, error) {
	type frame struct {
		tag   *tagNode
		nodes []node
	}
	stack := []frame{{}}
	top := func() *frame { return &stack[len(stack)-1] }

	pos := 0
	for _, m := range e.tagRe.FindAllStringSubmatchIndex(text, -1) {
		if m[0] > pos {
			top().nodes = append(top().nodes, node{text: text[pos:m[0]]})
		}
		pos = m[1]

		closing := m[2] >= 0
		name := text[m[4]:m[5]]
		selfClosing := m[8] >= 0

		switch {
		case closing:
			if len(stack) == 1 || top().tag.name != name {
				return nil, &Error{Namespace: e.namespace, Tag: name, Msg: "closing tag without matching opening tag"}
			}
			done := stack[len(stack)-1]
			stack = stack[:len(stack)-1]
			done.tag.body = done.nodes
			top().nodes = append(top().nodes, node{tag: done.tag})
		case selfClosing:
			t := &tagNode{name: name, attrs: parseAttrs(text[m[6]:m[7]]), single: true}
			top().nodes = append(top().nodes, node{tag: t})
		default:
			t := &tagNode{name: name, attrs: parseAttrs(text[m[6]:m[7]])}
			stack = append(stack, frame{tag: t})
		}
	}
	if pos < len(text) {
		top().nodes = append(top().nodes, node{text: text[pos:]})
	}
	if len(stack) > 1 {
		return nil, &Error{Namespace: e.namespace, Tag: top().tag.name, Msg: "missing closing tag"}
	}
	return stack[0].nodes, nil
}

func parseAttrs(s string) map[string]string {
	attrs := make(map[string]string)
	for _, m := range attrRe.FindAllStringSubmatch(s, -1) {
		v := m[2]
		if v == "" {
			v = m[3]
		}
		attrs[m[1]] = html.UnescapeString(v)
	}
	return attrs
}
