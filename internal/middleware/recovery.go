// Copyright (c) 2026 Madalin Gabriel Ignisca <hi@madalin.me>
// Copyright (c) 2026 Vlah Software House SRL <contact@vlah.sh>
// All rights reserved. See LICENSE for details.

package middleware

import (
	"log/slog"
	"net/http"
	"runtime/debug"
)

// Recoverer turns a panic in a page handler into a 500 and logs the stack
// with the route that panicked. http.ErrAbortHandler is re-raised so
// net/http aborts the connection quietly.
//
// When Recoverer runs inside Logger it can tell whether the handler had
// already started the response; a second status line is not attempted in
// that case.
func Recoverer(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		defer func() {
			rec := recover()
			if rec == nil {
				return
			}
			if rec == http.ErrAbortHandler {
				panic(rec)
			}

			slog.Error("panic recovered",
				"error", rec,
				"method", r.Method,
				"path", r.URL.Path,
				"route", routePattern(r),
				"stack", string(debug.Stack()),
			)

			if rw, ok := w.(*responseWriter); ok && rw.written {
				return
			}
			http.Error(w, "Internal Server Error", http.StatusInternalServerError)
		}()

		next.ServeHTTP(w, r)
	})
}
