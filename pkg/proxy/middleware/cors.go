package middleware

import (
	"net/http"
	"strconv"
	"strings"

	"mercator-hq/vaultgate/pkg/config"
)

// CORSMiddleware adds Cross-Origin Resource Sharing headers to responses.
//
// A request is a preflight only when it is an OPTIONS request carrying both
// Origin and Access-Control-Request-Method; preflights are answered here
// with 204. Any other OPTIONS request reaches the next handler and is
// proxied like any method.
//
// With allowed_headers ["*"], the headers requested by the preflight are
// echoed back.
//
// Example usage:
//
//	handler = CORSMiddleware(cfg.Proxy.CORS)(handler)
func CORSMiddleware(cfg config.CORSConfig) func(http.Handler) http.Handler {
	allowMethods := strings.Join(cfg.AllowedMethods, ", ")
	allowHeaders := strings.Join(cfg.AllowedHeaders, ", ")
	exposeHeaders := strings.Join(cfg.ExposedHeaders, ", ")
	wildcardOrigin := contains(cfg.AllowedOrigins, "*")
	wildcardHeaders := contains(cfg.AllowedHeaders, "*")

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if !cfg.Enabled {
				next.ServeHTTP(w, r)
				return
			}

			h := w.Header()
			origin := r.Header.Get("Origin")
			allowed := origin != "" && isOriginAllowed(origin, cfg.AllowedOrigins)

			switch {
			case wildcardOrigin && !cfg.AllowCredentials:
				h.Set("Access-Control-Allow-Origin", "*")
			case allowed:
				h.Set("Access-Control-Allow-Origin", origin)
				h.Add("Vary", "Origin")
				if cfg.AllowCredentials {
					h.Set("Access-Control-Allow-Credentials", "true")
				}
			}

			if exposeHeaders != "" && (wildcardOrigin || allowed) {
				h.Set("Access-Control-Expose-Headers", exposeHeaders)
			}

			if !isPreflight(r) {
				next.ServeHTTP(w, r)
				return
			}

			if allowMethods != "" {
				h.Set("Access-Control-Allow-Methods", allowMethods)
			}

			if wildcardHeaders {
				if requested := r.Header.Get("Access-Control-Request-Headers"); requested != "" {
					h.Set("Access-Control-Allow-Headers", requested)
					h.Add("Vary", "Access-Control-Request-Headers")
				}
			} else if allowHeaders != "" {
				h.Set("Access-Control-Allow-Headers", allowHeaders)
			}

			if cfg.MaxAge > 0 {
				h.Set("Access-Control-Max-Age", strconv.Itoa(cfg.MaxAge))
			}

			w.WriteHeader(http.StatusNoContent)
		})
	}
}

// isPreflight reports whether r is a CORS preflight request.
func isPreflight(r *http.Request) bool {
	return r.Method == http.MethodOptions &&
		r.Header.Get("Origin") != "" &&
		r.Header.Get("Access-Control-Request-Method") != ""
}

// isOriginAllowed checks if an origin is in the allowed list.
func isOriginAllowed(origin string, allowedOrigins []string) bool {
	for _, allowed := range allowedOrigins {
		if allowed == "*" || strings.EqualFold(allowed, origin) {
			return true
		}
	}
	return false
}

// contains checks if a slice contains a string.
func contains(slice []string, item string) bool {
	for _, s := range slice {
		if s == item {
			return true
		}
	}
	return false
}
