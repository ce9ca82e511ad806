package handlers

import (
	"context"

	"mercator-hq/vaultgate/pkg/proxy/types"
)

// Forwarder is the interface for sending a parsed request upstream.
type Forwarder interface {
	Forward(ctx context.Context, service string, req *types.Request) (*types.Response, error)
}
