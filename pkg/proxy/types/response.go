package types

import "net/http"

// Response is an upstream response read in full.
type Response struct {
	StatusCode int
	Header     http.Header
	Body       []byte
}
