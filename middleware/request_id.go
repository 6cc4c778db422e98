package middleware

import (
	"net/http"

	"github.com/google/uuid"

	goGuard "github.com/MrEthical07/goGuard"
	"github.com/MrEthical07/goGuard/client"
)

const maxRequestIDLen = 128

// RequestID propagates X-Request-ID, generating one when the inbound value is missing
// or unusable. The ID is echoed on the response and stored in the request context.
func RequestID(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id := r.Header.Get(client.RequestIDHeader)
		if !validRequestID(id) {
			id = uuid.NewString()
		}
		w.Header().Set(client.RequestIDHeader, id)
		next.ServeHTTP(w, r.WithContext(goGuard.WithRequestID(r.Context(), id)))
	})
}

func validRequestID(id string) bool {
	if id == "" || len(id) > maxRequestIDLen {
		return false
	}
	for i := 0; i < len(id); i++ {
		c := id[i]
		if c < 0x21 || c > 0x7e {
			return false
		}
	}
	return true
}
