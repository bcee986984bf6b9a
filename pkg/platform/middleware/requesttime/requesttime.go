// Package requesttime pins "now" for the lifetime of a request, so a record's
// created_at and its audit event carry the same instant.
package requesttime

import (
	"net/http"
	"time"

	"screener/pkg/requestcontext"
)

// Middleware stamps each request with the wall clock, in UTC.
var Middleware = WithClock(time.Now)

// WithClock returns middleware that stamps requests using now.
func WithClock(now func() time.Time) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx := requestcontext.WithTime(r.Context(), now().UTC())
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}
