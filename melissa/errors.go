package melissa

import (
	"errors"
	"fmt"
	"net/http"
)

var (
	ErrUnknownService     = errors.New("unknown service")
	ErrUnsupportedMethod  = errors.New("unsupported HTTP method")
	ErrInvalidTimeout     = errors.New("timeout cannot be negative")
	ErrInvalidBaseURL     = errors.New("base URL must be an absolute http(s) URL")
	ErrInvalidMaxResponse = errors.New("max response bytes cannot be negative")
	ErrResponseTooLarge   = errors.New("response body exceeds max response bytes")
)

// ConfigurationError reports a client or request setting that cannot be used.
type ConfigurationError struct {
	Field string
	Value string
	Err   error
}

func (e *ConfigurationError) Error() string {
	return fmt.Sprintf("melissa: invalid %s %q: %v", e.Field, e.Value, e.Err)
}

func (e *ConfigurationError) Unwrap() error {
	return e.Err
}

// APIError is returned when the API answers with a status outside 2xx.
// Meta holds the raw response body, cut at the client's max response bytes
// when MetaTruncated is set.
type APIError struct {
	StatusCode    int
	Meta          []byte
	MetaTruncated bool
	URL           string
}

func (e *APIError) Error() string {
	if e.MetaTruncated {
		return fmt.Sprintf("%d - %s failed (body truncated)", e.StatusCode, e.URL)
	}
	return fmt.Sprintf("%d - %s failed", e.StatusCode, e.URL)
}

// TransportError wraps a failure that kept the response from being read:
// DNS, connection, timeout or context cancellation. StatusCode is set when
// the status line arrived before the body read failed.
type TransportError struct {
	Method     string
	URL        string
	StatusCode int
	Err        error
}

func (e *TransportError) Error() string {
	return fmt.Sprintf("%s %s: %v", e.Method, e.URL, e.Err)
}

func (e *TransportError) Unwrap() error {
	return e.Err
}

// StatusCode returns the HTTP status carried by an *APIError in err's chain,
// or 0.
func StatusCode(err error) int {
	var apiErr *APIError
	if errors.As(err, &apiErr) {
		return apiErr.StatusCode
	}
	return 0
}

func IsNotFound(err error) bool {
	return StatusCode(err) == http.StatusNotFound
}

func IsUnauthorized(err error) bool {
	code := StatusCode(err)
	return code == http.StatusUnauthorized || code == http.StatusForbidden
}
