package middleware

import (
	"net/http"

	"github.com/google/uuid"

	"journal-digest/pkg/ctxutil"
)

const RequestIDHeader = "X-Request-Id"

// RequestID reuses the caller's request id or assigns a new one, and echoes it back.
func RequestID(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id := r.Header.Get(RequestIDHeader)
		if id == "" || len(id) > 128 {
			id = uuid.NewString()
		}
		w.Header().Set(RequestIDHeader, id)
		next.ServeHTTP(w, r.WithContext(ctxutil.WithRequestID(r.Context(), id)))
	})
}
