package middleware

import (
	"net/http"
	"time"
	_ "time/tzdata"

	"journal-digest/pkg/ctxutil"
)

const TimezoneHeader = "X-Timezone"

// Timezone reads the caller's IANA zone from the X-Timezone header so that
// "today" is computed on the caller's calendar. Unknown zones are a 400.
func Timezone(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		name := r.Header.Get(TimezoneHeader)
		if name == "" {
			next.ServeHTTP(w, r)
			return
		}
		loc, err := time.LoadLocation(name)
		if err != nil {
			writeError(w, http.StatusBadRequest, "unknown time zone "+name)
			return
		}
		next.ServeHTTP(w, r.WithContext(ctxutil.WithLocation(r.Context(), loc)))
	})
}
