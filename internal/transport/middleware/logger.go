package middleware

import (
	"net/http"
	"time"

	"github.com/sirupsen/logrus"

	"journal-digest/pkg/ctxutil"
)

// Logger writes one access log line per request.
func Logger(log logrus.FieldLogger) Middleware {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			sw := &statusWriter{ResponseWriter: w, status: http.StatusOK}

			next.ServeHTTP(sw, r)

			fields := logrus.Fields{
				"method":      r.Method,
				"path":        r.URL.Path,
				"status":      sw.status,
				"duration_ms": time.Since(start).Milliseconds(),
				"request_id":  ctxutil.RequestIDFromCtx(r.Context()),
			}
			if userID, ok := ctxutil.UserIDFromCtx(r.Context()); ok {
				fields["user_id"] = userID.String()
			}

			entry := log.WithFields(fields)
			switch {
			case sw.status >= 500:
				entry.Error("HTTP request")
			case sw.status >= 400:
				entry.Warn("HTTP request")
			default:
				entry.Info("HTTP request")
			}
		})
	}
}

// statusWriter records the status code written by the handler.
type statusWriter struct {
	http.ResponseWriter
	status      int
	wroteHeader bool
}

func (w *statusWriter) WriteHeader(code int) {
	if !w.wroteHeader {
		w.status = code
		w.wroteHeader = true
	}
	w.ResponseWriter.WriteHeader(code)
}

func (w *statusWriter) Write(b []byte) (int, error) {
	w.wroteHeader = true
	return w.ResponseWriter.Write(b)
}
