package middleware

import "net/http"

// SupportedVersionsHeader reports the API versions the server understands
const SupportedVersionsHeader = "api-supported-versions"

// Version adds the supported versions header to every response
func Version(versions string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.Header().Set(SupportedVersionsHeader, versions)
			next.ServeHTTP(w, r)
		})
	}
}
