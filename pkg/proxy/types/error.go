package types

import "net/http"

// ErrorResponse is the JSON body written for every proxy failure.
type ErrorResponse struct {
	// Detail is a human-readable error message.
	Detail string `json:"detail"`

	// Type categorizes the error.
	// Possible values: "invalid_request_error", "not_found",
	// "unprocessable_entity", "request_too_large", "method_not_allowed",
	// "server_error".
	Type string `json:"type"`

	// Code is a machine-readable error code.
	Code string `json:"code"`

	// Param names the query parameter or secret key at fault, if any.
	Param string `json:"param"`
}

// Error type constants.
const (
	// ErrorTypeInvalidRequest indicates a client-side error (400).
	ErrorTypeInvalidRequest = "invalid_request_error"

	// ErrorTypeNotFound indicates a resource was not found (404).
	ErrorTypeNotFound = "not_found"

	// ErrorTypeMethodNotAllowed indicates an unsupported method (405).
	ErrorTypeMethodNotAllowed = "method_not_allowed"

	// ErrorTypeRequestTooLarge indicates an oversized request body (413).
	ErrorTypeRequestTooLarge = "request_too_large"

	// ErrorTypeUnprocessable indicates well-formed input that cannot be
	// served (422).
	ErrorTypeUnprocessable = "unprocessable_entity"

	// ErrorTypeServerError indicates an internal or upstream failure (500).
	ErrorTypeServerError = "server_error"
)

// Error code constants.
const (
	CodeMissingParameter   = "missing_parameter"
	CodeInvalidURL         = "invalid_url"
	CodeServiceNotFound    = "service_not_found"
	CodeNoSecrets          = "no_secrets_configured"
	CodeSecretNotFound     = "secret_not_found"
	CodeRequestTooLarge    = "request_too_large"
	CodeUpstreamCallFailed = "upstream_call_failed"
	CodeMethodNotAllowed   = "method_not_allowed"
	CodeRouteNotFound      = "route_not_found"
	CodeInternalError      = "internal_error"
)

// NewErrorResponse creates a new error response with the given details.
func NewErrorResponse(detail, errorType, param, code string) *ErrorResponse {
	return &ErrorResponse{
		Detail: detail,
		Type:   errorType,
		Param:  param,
		Code:   code,
	}
}

// NewInvalidRequestError creates an error response for invalid requests (400).
func NewInvalidRequestError(detail, param, code string) *ErrorResponse {
	return NewErrorResponse(detail, ErrorTypeInvalidRequest, param, code)
}

// NewNotFoundError creates an error response for missing resources (404).
func NewNotFoundError(detail, param, code string) *ErrorResponse {
	return NewErrorResponse(detail, ErrorTypeNotFound, param, code)
}

// NewUnprocessableError creates an error response for unusable input (422).
func NewUnprocessableError(detail, param, code string) *ErrorResponse {
	return NewErrorResponse(detail, ErrorTypeUnprocessable, param, code)
}

// NewServerError creates an error response for internal server errors (500).
func NewServerError(detail string) *ErrorResponse {
	return NewErrorResponse(detail, ErrorTypeServerError, "", CodeInternalError)
}

// HTTPStatusCode returns the HTTP status code for the error type.
func (e *ErrorResponse) HTTPStatusCode() int {
	switch e.Type {
	case ErrorTypeInvalidRequest:
		return http.StatusBadRequest
	case ErrorTypeNotFound:
		return http.StatusNotFound
	case ErrorTypeMethodNotAllowed:
		return http.StatusMethodNotAllowed
	case ErrorTypeRequestTooLarge:
		return http.StatusRequestEntityTooLarge
	case ErrorTypeUnprocessable:
		return http.StatusUnprocessableEntity
	default:
		return http.StatusInternalServerError
	}
}
