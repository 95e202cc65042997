// Package middleware holds transport-level middleware that is not tied
// to any particular route: security headers and CORS.
package middleware

import "net/http"

// SecurityHeaders sets the hardening headers on every response:
// content-type sniffing protection, clickjacking protection, HSTS and
// cache suppression for the credential-bearing responses.
func SecurityHeaders(h http.Handler) http.Handler {
	middleware := func(response http.ResponseWriter, request *http.Request) {
		header := response.Header()
		header.Set("X-Content-Type-Options", "nosniff")
		header.Set("X-Frame-Options", "DENY")
		header.Set("X-XSS-Protection", "1")
		header.Set("Strict-Transport-Security", "max-age=31536000; includeSubDomains")
		header.Set("Cache-Control", "no-store")

		h.ServeHTTP(response, request)
	}

	return http.HandlerFunc(middleware)
}

// CORS answers preflight requests and allows cross-origin calls with
// the token header. The API is public, so any origin is accepted.
func CORS(h http.Handler) http.Handler {
	middleware := func(response http.ResponseWriter, request *http.Request) {
		header := response.Header()
		header.Set("Access-Control-Allow-Origin", "*")
		header.Set(
			"Access-Control-Allow-Headers",
			"Origin, X-Requested-With, Content-Type, Accept, X-Access-Token, Authorization",
		)
		header.Set("Access-Control-Allow-Methods", "GET, POST, OPTIONS")

		if request.Method == http.MethodOptions {
			response.WriteHeader(http.StatusNoContent)
			return
		}

		h.ServeHTTP(response, request)
	}

	return http.HandlerFunc(middleware)
}
