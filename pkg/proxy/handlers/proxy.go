package handlers

import (
	"errors"
	"fmt"
	"log/slog"
	"net/http"

	"mercator-hq/vaultgate/pkg/proxy"
	"mercator-hq/vaultgate/pkg/proxy/types"
)

// ProxyHandler serves /api-proxy/: it parses the service and url query
// parameters, forwards the call and relays the upstream response.
type ProxyHandler struct {
	Forwarder    Forwarder
	MaxBodyBytes int64
}

// NewProxyHandler creates a new proxy handler. maxBodyBytes <= 0 disables
// the inbound body limit.
func NewProxyHandler(f Forwarder, maxBodyBytes int64) *ProxyHandler {
	return &ProxyHandler{Forwarder: f, MaxBodyBytes: maxBodyBytes}
}

// ServeHTTP implements http.Handler.
func (h *ProxyHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	service, req, err := proxy.ParseRequest(r, h.MaxBodyBytes)
	if err != nil {
		slog.WarnContext(ctx, "invalid proxy request", "error", err)
		writeError(w, r, proxy.HandleError(err))
		return
	}

	resp, err := h.Forwarder.Forward(ctx, service, req)
	if err != nil {
		var upErr *proxy.UpstreamError
		if errors.As(err, &upErr) {
			// UpstreamError's message is already scrubbed.
			slog.ErrorContext(ctx, "upstream call failed",
				"service", service,
				"target_host", req.Target.Host,
				"timeout", upErr.Timeout(),
				"error", upErr.Error(),
			)
		} else {
			slog.WarnContext(ctx, "proxy request rejected",
				"service", service,
				"outcome", proxy.Outcome(err),
				"error", err,
			)
		}
		writeError(w, r, proxy.HandleError(err))
		return
	}

	if err := proxy.WriteResponse(w, resp); err != nil {
		slog.WarnContext(ctx, "failed to relay response", "service", service, "error", err)
	}
}

// MethodNotAllowed answers methods the proxy route does not accept.
func MethodNotAllowed(w http.ResponseWriter, r *http.Request) {
	writeError(w, r, types.NewErrorResponse(
		fmt.Sprintf("Method %s not allowed", r.Method),
		types.ErrorTypeMethodNotAllowed,
		"method",
		types.CodeMethodNotAllowed,
	))
}

// NotFound answers unknown routes.
func NotFound(w http.ResponseWriter, r *http.Request) {
	writeError(w, r, types.NewNotFoundError(
		fmt.Sprintf("Route %s not found", r.URL.Path),
		"",
		types.CodeRouteNotFound,
	))
}

func writeError(w http.ResponseWriter, r *http.Request, errResp *types.ErrorResponse) {
	if err := proxy.WriteErrorResponse(w, errResp); err != nil {
		slog.ErrorContext(r.Context(), "failed to write error response", "error", err)
	}
}
