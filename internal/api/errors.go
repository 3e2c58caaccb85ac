package api

import (
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
)

// APIError is a non-2xx response from the server.
type APIError struct {
	StatusCode int
	Message    string
	Op         string // e.g. "POST /queue"
}

func (e *APIError) Error() string {
	if e.Message != "" {
		return fmt.Sprintf("%s: [%d] %s", e.Op, e.StatusCode, e.Message)
	}
	return fmt.Sprintf("%s: [%d] %s", e.Op, e.StatusCode, http.StatusText(e.StatusCode))
}

// IsNotFound reports a 404.
func (e *APIError) IsNotFound() bool { return e.StatusCode == http.StatusNotFound }

// IsConflict reports a 409, e.g. adding a player that already exists.
func (e *APIError) IsConflict() bool { return e.StatusCode == http.StatusConflict }

// IsRetryable returns true if the error can be resolved by waiting and retrying.
func (e *APIError) IsRetryable() bool {
	return e.StatusCode == http.StatusTooManyRequests ||
		e.StatusCode == http.StatusServiceUnavailable ||
		e.StatusCode == http.StatusBadGateway
}

// newAPIError builds an APIError from the server's {"error": "..."} body,
// falling back to the raw body text.
func newAPIError(op string, status int, body []byte) *APIError {
	var payload struct {
		Error string `json:"error"`
	}
	msg := ""
	if json.Unmarshal(body, &payload) == nil && payload.Error != "" {
		msg = payload.Error
	} else {
		msg = truncate(strings.TrimSpace(string(body)), 200)
	}
	return &APIError{StatusCode: status, Message: msg, Op: op}
}
