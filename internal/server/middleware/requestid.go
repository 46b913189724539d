// Package middleware holds the HTTP middleware applied to every route: request ids and request metrics.
package middleware

import (
	"net/http"
	"strings"

	"github.com/google/uuid"

	"crm-backend/internal/telemetry"
)

// RequestIDHeader carries the request id in both directions.
const RequestIDHeader = "X-Request-ID"

// maxRequestIDLen bounds an incoming request id; longer values are replaced.
const maxRequestIDLen = 128

// RequestID honours an incoming X-Request-ID (if short and printable) or generates a UUID,
// echoes it on the response and stores it on the request context for handlers and change events.
func RequestID(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id := strings.TrimSpace(r.Header.Get(RequestIDHeader))
		if !validRequestID(id) {
			id = uuid.New().String()
		}
		w.Header().Set(RequestIDHeader, id)
		next.ServeHTTP(w, r.WithContext(telemetry.WithRequestID(r.Context(), id)))
	})
}

func validRequestID(id string) bool {
	if id == "" || len(id) > maxRequestIDLen {
		return false
	}
	for _, c := range id {
		if c < 0x21 || c > 0x7e {
			return false
		}
	}
	return true
}
