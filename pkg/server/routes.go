package server

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"mercator-hq/vaultgate/pkg/proxy/handlers"
	"mercator-hq/vaultgate/pkg/proxy/middleware"
	"mercator-hq/vaultgate/pkg/telemetry/health"
	"mercator-hq/vaultgate/pkg/telemetry/tracing"
)

// proxyMethods are the methods accepted on the proxy endpoint. Anything
// else is answered with 405.
var proxyMethods = []string{
	http.MethodGet,
	http.MethodPost,
	http.MethodPut,
	http.MethodDelete,
	http.MethodPatch,
	http.MethodOptions,
}

// setupRoutes configures HTTP routes and the middleware chain.
func (s *Server) setupRoutes() http.Handler {
	r := chi.NewRouter()

	// Recovery is outermost so panics anywhere below become a 500.
	r.Use(middleware.RecoveryMiddleware)
	r.Use(middleware.RequestIDMiddleware)
	r.Use(tracing.HTTPMiddleware)
	r.Use(middleware.LoggingMiddleware)
	if s.config.Proxy.CORS.Enabled {
		r.Use(middleware.CORSMiddleware(s.config.Proxy.CORS))
	}

	r.NotFound(handlers.NotFound)
	r.MethodNotAllowed(handlers.MethodNotAllowed)

	proxyHandler := handlers.NewProxyHandler(s.forwarder, s.config.Proxy.MaxBodyBytes)
	for _, method := range proxyMethods {
		r.Method(method, "/api-proxy", proxyHandler)
		r.Method(method, "/api-proxy/", proxyHandler)
	}

	healthCfg := s.config.Telemetry.Health
	if healthCfg.Enabled {
		r.Handle(healthCfg.LivenessPath, s.checker.LivenessHandler())
		r.Handle(healthCfg.ReadinessPath, s.checker.ReadinessHandler())
		r.Handle(healthCfg.VersionPath, health.VersionHandler(s.version))
	}

	if s.metrics != nil {
		r.Method(http.MethodGet, s.config.Telemetry.Metrics.Path, s.metrics.Handler())
	}

	return r
}
