// Package requestid assigns every request an ID that is echoed in the
// X-Request-ID response header and carried in logs and audit events.
package requestid

import (
	"net/http"

	"github.com/google/uuid"

	"screener/pkg/requestcontext"
)

// Header is the request and response header carrying the ID.
const Header = "X-Request-ID"

const maxInboundLen = 64

// Middleware reuses a well-formed inbound X-Request-ID or generates a UUID.
func Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id := r.Header.Get(Header)
		if !valid(id) {
			id = uuid.NewString()
		}
		w.Header().Set(Header, id)
		next.ServeHTTP(w, r.WithContext(requestcontext.WithRequestID(r.Context(), id)))
	})
}

// valid accepts short printable ASCII IDs so a client cannot inject control
// characters into logs.
func valid(id string) bool {
	if id == "" || len(id) > maxInboundLen {
		return false
	}
	for i := 0; i < len(id); i++ {
		if id[i] < 0x21 || id[i] > 0x7e {
			return false
		}
	}
	return true
}
