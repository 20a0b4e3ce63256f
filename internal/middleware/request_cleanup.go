package middleware

import (
	"io"
	"net/http"
)

// DrainAndCloseRequest - avoid potential overhead and memory leaks by draining the request body and closing it.
// Bodies above maxBodyBytes fail to read in the handler.
func DrainAndCloseRequest(maxBodyBytes int64) func(next http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if r.Body != nil && maxBodyBytes > 0 {
				r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
			}
			next.ServeHTTP(w, r)
			if r.Body != nil {
				_, _ = io.Copy(io.Discard, r.Body)
				_ = r.Body.Close()
			}
		})
	}
}
