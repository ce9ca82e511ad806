package proxy

import (
	"errors"
	"fmt"
	"net"

	"mercator-hq/vaultgate/pkg/proxy/types"
	"mercator-hq/vaultgate/pkg/resolver"
)

var (
	// ErrServiceNotFound is returned when the requested service has no entry
	// in the secrets file.
	ErrServiceNotFound = errors.New("service not found")

	// ErrNoSecretsConfigured is returned when the service exists but defines
	// no usable secret.
	ErrNoSecretsConfigured = errors.New("no secrets configured")

	// ErrResponseTooLarge is the cause of an UpstreamError when the upstream
	// body exceeds upstream.max_response_bytes.
	ErrResponseTooLarge = errors.New("upstream response too large")
)

// ServiceError ties a lookup failure to the service it concerns.
type ServiceError struct {
	Service string
	Err     error
}

func (e *ServiceError) Error() string {
	return fmt.Sprintf("service %q: %v", e.Service, e.Err)
}

func (e *ServiceError) Unwrap() error {
	return e.Err
}

// UpstreamError is returned when the outbound exchange fails. Its message
// has every secret value substituted into the request scrubbed out; Cause
// keeps the original error for errors.Is checks and must not be logged.
type UpstreamError struct {
	Service string
	Cause   error

	message string
}

func (e *UpstreamError) Error() string {
	return e.message
}

func (e *UpstreamError) Unwrap() error {
	return e.Cause
}

// Timeout reports whether the failure was a deadline being exceeded.
func (e *UpstreamError) Timeout() bool {
	var netErr net.Error
	return errors.As(e.Cause, &netErr) && netErr.Timeout()
}

// HandleError converts a forwarding error into the JSON body and status the
// proxy endpoint returns.
//
// Example usage:
//
//	if err != nil {
//	    WriteErrorResponse(w, HandleError(err))
//	    return
//	}
func HandleError(err error) *types.ErrorResponse {
	var reqErr *RequestError
	if errors.As(err, &reqErr) {
		return reqErr.ToErrorResponse()
	}

	var svcErr *ServiceError
	if errors.As(err, &svcErr) {
		switch {
		case errors.Is(svcErr.Err, ErrServiceNotFound):
			return types.NewNotFoundError(
				fmt.Sprintf("Service '%s' not found in secrets config", svcErr.Service),
				"service",
				types.CodeServiceNotFound,
			)
		case errors.Is(svcErr.Err, ErrNoSecretsConfigured):
			return types.NewInvalidRequestError(
				fmt.Sprintf("No secret values defined for service '%s'", svcErr.Service),
				"service",
				types.CodeNoSecrets,
			)
		}
	}

	var notFound *resolver.SecretNotFoundError
	if errors.As(err, &notFound) {
		return types.NewUnprocessableError(
			fmt.Sprintf("Secret '%s' not found", notFound.Key),
			notFound.Key,
			types.CodeSecretNotFound,
		)
	}

	var upErr *UpstreamError
	if errors.As(err, &upErr) {
		return types.NewErrorResponse(
			fmt.Sprintf("Upstream call failed: %s", upErr.Error()),
			types.ErrorTypeServerError,
			"",
			types.CodeUpstreamCallFailed,
		)
	}

	return types.NewServerError("An internal error occurred. Please try again later.")
}
