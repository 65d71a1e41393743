package api

import (
	"context"
	"errors"
	"fmt"
	"net"
)

// BackendError is an application error reported by the review service in a
// {success: false, error: "..."} envelope.
type BackendError struct {
	Message string
}

func (e *BackendError) Error() string {
	if e.Message == "" {
		return "the review service reported an unspecified error"
	}
	return e.Message
}

// IsTimeout reports whether err represents a request that ran out of time
// rather than one the server rejected.
func IsTimeout(err error) bool {
	if errors.Is(err, context.DeadlineExceeded) {
		return true
	}
	var netErr net.Error
	return errors.As(err, &netErr) && netErr.Timeout()
}

// UserMessage maps an error to the human-readable string shown in
// notifications: connectivity, timeout, and backend errors read differently.
func UserMessage(err error) string {
	if err == nil {
		return ""
	}

	var backendErr *BackendError
	switch {
	case errors.As(err, &backendErr):
		return backendErr.Error()
	case IsTimeout(err):
		return "The request timed out. The service may be busy; try again."
	default:
		var netErr net.Error
		if errors.As(err, &netErr) {
			return "Cannot reach the review service. Check your connection and server URL."
		}
		return fmt.Sprintf("Request failed: %v", err)
	}
}
