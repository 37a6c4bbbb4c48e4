// Copyright (c) 2026 Madalin Gabriel Ignisca <hi@madalin.me>
// Copyright (c) 2026 Vlah Software House SRL <contact@vlah.sh>
// All rights reserved. See LICENSE for details.

package middleware

import "net/http"

// pageHeaders are sent with every response. Pages carry author-written
// markup, so browsers are told not to sniff text renders into HTML and
// not to let other origins frame them.
var pageHeaders = []struct{ name, value string }{
	{"X-Content-Type-Options", "nosniff"},
	{"X-Frame-Options", "SAMEORIGIN"},
	{"Referrer-Policy", "strict-origin-when-cross-origin"},
	{"Content-Security-Policy", "frame-ancestors 'self'"},
}

// SecureHeaders adds the page response headers.
func SecureHeaders(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		h := w.Header()
		for _, ph := range pageHeaders {
			h.Set(ph.name, ph.value)
		}
		next.ServeHTTP(w, r)
	})
}
