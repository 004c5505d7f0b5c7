// Package api provides the client for the notebook execution service.
package api

import (
	"errors"
	"fmt"
	nethttp "net/http"
)

// ErrNotLoggedIn is returned when the service redirects to its login page,
// which happens when the session cookie is missing or expired.
var ErrNotLoggedIn = errors.New("not logged in: the session cookie is missing or expired")

// Error is a non-success response of the service. Body carries the raw
// server text, which is what users get to see.
type Error struct {
	Op     string
	Status int
	Body   string
}

func (e *Error) Error() string {
	return fmt.Sprintf("%s failed: status %d: %s", e.Op, e.Status, e.Body)
}

// ServerText returns the text to show to users for err: the response body for
// service errors, the error message otherwise.
func ServerText(err error) string {
	var apiErr *Error
	if errors.As(err, &apiErr) {
		if apiErr.Body != "" {
			return apiErr.Body
		}
		return nethttp.StatusText(apiErr.Status)
	}
	if err == nil {
		return ""
	}
	return err.Error()
}

// StatusCode returns the HTTP status of a service error, or 0.
func StatusCode(err error) int {
	var apiErr *Error
	if errors.As(err, &apiErr) {
		return apiErr.Status
	}
	return 0
}
