package middleware

import (
	"context"
	"net/http"
	"time"
)

// Timeout attaches a deadline to every request context. Handlers observe it
// and return on their own, so the response is always written by the handler
// goroutine. A non-positive timeout disables the middleware.
func Timeout(timeout time.Duration) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		if timeout <= 0 {
			return next
		}
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx, cancel := context.WithTimeout(r.Context(), timeout)
			defer cancel()
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}
