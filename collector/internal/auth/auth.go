// Package auth provides authentication middleware for the collector.
//
// TokenMiddleware(token) returns HTTP middleware that compares the raw
// Authorization header of every request against the expected token. Agents
// send the token verbatim, without a Bearer prefix.
//
// When token == "" all requests pass through, which keeps local development
// with auth disabled working. An absent or incorrect token is rejected with
// 401 before the wrapped handler runs.
package auth

import (
	"crypto/subtle"
	"net/http"
)

// TokenMiddleware returns middleware enforcing the expected upload token.
func TokenMiddleware(token string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			// Unconfigured token → allow everything.
			if token == "" {
				next.ServeHTTP(w, r)
				return
			}

			got := r.Header.Get("Authorization")
			if subtle.ConstantTimeCompare([]byte(got), []byte(token)) != 1 {
				w.Header().Set("Content-Type", "application/json")
				w.WriteHeader(http.StatusUnauthorized)
				w.Write([]byte(`{"error":"invalid token"}`)) //nolint:errcheck
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}
