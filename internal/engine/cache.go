// Copyright (c) 2026 Madalin Gabriel Ignisca <hi@madalin.me>
// Copyright (c) 2026 Vlah Software House SRL <contact@vlah.sh>
// All rights reserved. See LICENSE for details.

// cache.go provides an in-memory cache for compiled Go templates.
// This is the L1 cache: it avoids re-parsing template strings on every
// render. Entries are keyed by a hash of the source and the set of
// function names it was compiled against, so an edit to a page, layout or
// partial naturally produces a cache miss.
package engine

import (
	"crypto/sha256"
	"encoding/hex"
	"html/template"
	"log/slog"
	"sort"
	"strings"
	"sync"
)

// maxCachedTemplates bounds memory use. When full, the cache is reset
// rather than tracking recency; hot templates repopulate immediately.
const maxCachedTemplates = 2048

// cacheKey uniquely identifies a compiled master template.
type cacheKey struct {
	source string // hex SHA-256 of the template source
	funcs  string // sorted, comma-joined function names
}

func newCacheKey(source string, funcs template.FuncMap) cacheKey {
	sum := sha256.Sum256([]byte(source))
	names := make([]string, 0, len(funcs))
	for name := range funcs {
		names = append(names, name)
	}
	sort.Strings(names)
	return cacheKey{source: hex.EncodeToString(sum[:]), funcs: strings.Join(names, ",")}
}

// templateCache is a concurrency-safe in-memory cache of compiled
// templates. Cached masters are never executed; renders work on clones.
type templateCache struct {
	mu      sync.RWMutex
	entries map[cacheKey]*template.Template
}

// newTemplateCache creates an empty template cache.
func newTemplateCache() *templateCache {
	return &templateCache{
		entries: make(map[cacheKey]*template.Template),
	}
}

// get retrieves a compiled template from cache. Returns nil on miss.
func (c *templateCache) get(key cacheKey) *template.Template {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.entries[key]
}

// put stores a compiled template in the cache.
func (c *templateCache) put(key cacheKey, tmpl *template.Template) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if len(c.entries) >= maxCachedTemplates {
		c.entries = make(map[cacheKey]*template.Template)
		slog.Debug("template cache full, reset")
	}
	c.entries[key] = tmpl
	slog.Debug("template cached", "size", len(c.entries))
}

// len returns the number of cached masters.
func (c *templateCache) len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.entries)
}

// invalidateAll clears the entire cache.
func (c *templateCache) invalidateAll() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries = make(map[cacheKey]*template.Template)
	slog.Debug("template cache fully cleared")
}
