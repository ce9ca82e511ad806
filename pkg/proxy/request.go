package proxy

import (
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"

	"mercator-hq/vaultgate/pkg/proxy/types"
)

const (
	// ServiceParam names the query parameter selecting the secrets entry.
	ServiceParam = "service"

	// URLParam names the query parameter carrying the upstream URL.
	URLParam = "url"
)

// ParseRequest extracts the service and upstream target from the query
// string and reads the inbound body. maxBody <= 0 disables the size limit.
//
// Failures are returned as *RequestError.
func ParseRequest(r *http.Request, maxBody int64) (string, *types.Request, error) {
	query := r.URL.Query()

	service := query.Get(ServiceParam)
	if service == "" {
		return "", nil, missingParam(ServiceParam)
	}

	rawURL := query.Get(URLParam)
	if rawURL == "" {
		return "", nil, missingParam(URLParam)
	}

	target, err := parseTarget(rawURL)
	if err != nil {
		return "", nil, &RequestError{
			Message: err.Error(),
			Code:    types.CodeInvalidURL,
			Param:   URLParam,
		}
	}

	body, err := readBody(r, maxBody)
	if err != nil {
		return "", nil, err
	}

	return service, &types.Request{
		Method: r.Method,
		Target: target,
		Header: r.Header.Clone(),
		Body:   body,
	}, nil
}

func missingParam(name string) *RequestError {
	return &RequestError{
		Message: fmt.Sprintf("query parameter %q is required", name),
		Code:    types.CodeMissingParameter,
		Param:   name,
	}
}

// parseTarget accepts absolute http and https URLs only.
func parseTarget(raw string) (*url.URL, error) {
	u, err := url.Parse(raw)
	if err != nil {
		return nil, fmt.Errorf("invalid url: %w", err)
	}
	scheme := strings.ToLower(u.Scheme)
	if scheme != "http" && scheme != "https" {
		return nil, fmt.Errorf("url must be absolute http or https, got scheme %q", u.Scheme)
	}
	if u.Host == "" {
		return nil, errors.New("url must include a host")
	}
	return u, nil
}

func readBody(r *http.Request, maxBody int64) ([]byte, error) {
	if r.Body == nil || r.Body == http.NoBody {
		return nil, nil
	}

	reader := io.Reader(r.Body)
	if maxBody > 0 {
		reader = io.LimitReader(r.Body, maxBody+1)
	}

	body, err := io.ReadAll(reader)
	if err != nil {
		return nil, fmt.Errorf("failed to read request body: %w", err)
	}

	if maxBody > 0 && int64(len(body)) > maxBody {
		return nil, &RequestError{
			Message: fmt.Sprintf("request body exceeds maximum size of %d bytes", maxBody),
			Code:    types.CodeRequestTooLarge,
			Param:   "body",
		}
	}

	if len(body) == 0 {
		return nil, nil
	}
	return body, nil
}

// RequestError represents a request parsing or validation error.
type RequestError struct {
	Message string
	Code    string
	Param   string
}

// Error implements the error interface.
func (e *RequestError) Error() string {
	return e.Message
}

// ToErrorResponse converts a RequestError to its JSON failure body.
func (e *RequestError) ToErrorResponse() *types.ErrorResponse {
	if e.Code == types.CodeRequestTooLarge {
		return types.NewErrorResponse(e.Message, types.ErrorTypeRequestTooLarge, e.Param, e.Code)
	}
	return types.NewUnprocessableError(e.Message, e.Param, e.Code)
}
