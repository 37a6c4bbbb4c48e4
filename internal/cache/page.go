// Copyright (c) 2026 Madalin Gabriel Ignisca <hi@madalin.me>
// Copyright (c) 2026 Vlah Software House SRL <contact@vlah.sh>
// All rights reserved. See LICENSE for details.

// page.go provides a Valkey-backed cache of rendered pages (L2).
// Each page is one hash keyed by scope and slug, with one field per output
// format, so a page edit drops every format with a single DEL. Editing a
// layout or partial drops the whole scope, since any page in it may use
// the changed node.
package cache

import (
	"context"
	"log/slog"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"

	"quire/internal/models"
)

const (
	// pageKeyPrefix is the Valkey key prefix for cached pages.
	pageKeyPrefix = "page:"

	// DefaultPageTTL is how long a rendered page stays cached.
	DefaultPageTTL = 5 * time.Minute

	// globalScopeKey stands in for the global scope in keys. Owner types
	// never start with an underscore in practice.
	globalScopeKey = "_global"
)

// PageCache manages rendered page caching in Valkey.
type PageCache struct {
	client *redis.Client
	ttl    time.Duration
}

// NewPageCache creates a new page cache backed by the given Valkey client.
func NewPageCache(client *redis.Client, ttl time.Duration) *PageCache {
	if ttl == 0 {
		ttl = DefaultPageTTL
	}
	return &PageCache{client: client, ttl: ttl}
}

// Get retrieves a cached render of one format of a page.
func (pc *PageCache) Get(ctx context.Context, scope models.Scope, slug, format string) ([]byte, bool) {
	key := PageKey(scope, slug)
	val, err := pc.client.HGet(ctx, key, format).Bytes()
	if err == redis.Nil {
		slog.Debug("page cache miss", "key", key, "format", format)
		return nil, false
	}
	if err != nil {
		slog.Warn("page cache get error", "key", key, "error", err)
		return nil, false
	}
	slog.Debug("page cache hit", "key", key, "format", format)
	return val, true
}

// Set stores a render of one format of a page with the configured TTL.
// The TTL applies to the page as a whole and restarts on every Set.
func (pc *PageCache) Set(ctx context.Context, scope models.Scope, slug, format string, body []byte) {
	key := PageKey(scope, slug)
	_, err := pc.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.HSet(ctx, key, format, body)
		pipe.Expire(ctx, key, pc.ttl)
		return nil
	})
	if err != nil {
		slog.Warn("page cache set error", "key", key, "error", err)
	}
}

// InvalidatePage removes every cached format of one page.
func (pc *PageCache) InvalidatePage(ctx context.Context, scope models.Scope, slug string) {
	key := PageKey(scope, slug)
	if err := pc.client.Del(ctx, key).Err(); err != nil {
		slog.Warn("page cache invalidate error", "key", key, "error", err)
		return
	}
	slog.Debug("page cache invalidated", "key", key)
}

// InvalidateScope removes every cached page in one scope.
func (pc *PageCache) InvalidateScope(ctx context.Context, scope models.Scope) {
	deleted := pc.deleteMatching(ctx, escapePattern(pageKeyPrefix+scopeKey(scope)+":")+"*")
	slog.Debug("page cache scope invalidated", "scope", scope, "deleted", deleted)
}

// InvalidateAll removes all cached pages by scanning for the prefix.
func (pc *PageCache) InvalidateAll(ctx context.Context) {
	if deleted := pc.deleteMatching(ctx, pageKeyPrefix+"*"); deleted > 0 {
		slog.Info("page cache fully cleared", "deleted", deleted)
	}
}

func (pc *PageCache) deleteMatching(ctx context.Context, pattern string) int {
	var cursor uint64
	var deleted int
	for {
		keys, nextCursor, err := pc.client.Scan(ctx, cursor, pattern, 100).Result()
		if err != nil {
			slog.Warn("page cache scan error", "pattern", pattern, "error", err)
			return deleted
		}
		if len(keys) > 0 {
			if err := pc.client.Del(ctx, keys...).Err(); err != nil {
				slog.Warn("page cache bulk delete error", "error", err)
			}
			deleted += len(keys)
		}
		cursor = nextCursor
		if cursor == 0 {
			return deleted
		}
	}
}

// PageKey returns the Valkey key holding the renders of one page.
func PageKey(scope models.Scope, slug string) string {
	return pageKeyPrefix + scopeKey(scope) + ":" + slug
}

func scopeKey(scope models.Scope) string {
	if scope.IsGlobal() {
		return globalScopeKey
	}
	// Colons inside the owner would blur the key layout.
	r := strings.NewReplacer(":", "%3A", "=", "%3D")
	return r.Replace(scope.OwnerType) + "=" + r.Replace(scope.OwnerID)
}

// escapePattern quotes SCAN glob metacharacters.
func escapePattern(s string) string {
	var b strings.Builder
	for _, r := range s {
		switch r {
		case '*', '?', '[', ']', '\\':
			b.WriteByte('\\')
		}
		b.WriteRune(r)
	}
	return b.String()
}
