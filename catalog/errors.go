package catalog

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
)

// NetworkError indicates a transport-level failure: timeout, DNS, reset, or cancellation.
type NetworkError struct {
	Op  string
	Err error
}

func (e NetworkError) Error() string {
	return fmt.Errorf("network: %s: %w", e.Op, e.Err).Error()
}

func (e NetworkError) Unwrap() error {
	return e.Err
}

// Timeout reports whether the failure was a deadline or i/o timeout.
func (e NetworkError) Timeout() bool {
	if errors.Is(e.Err, context.DeadlineExceeded) {
		return true
	}
	var netErr net.Error
	return errors.As(e.Err, &netErr) && netErr.Timeout()
}

// RemoteError indicates the catalog answered with a non-success status
// or a body that could not be understood.
type RemoteError struct {
	Op         string
	StatusCode int
	Message    string
}

func (e RemoteError) Error() string {
	if e.Message == "" {
		return fmt.Sprintf("remote: %s: status %d", e.Op, e.StatusCode)
	}
	return fmt.Sprintf("remote: %s: status %d: %s", e.Op, e.StatusCode, e.Message)
}

// NotFoundError indicates the identifier does not resolve to a volume.
type NotFoundError struct {
	ID string
}

func (e NotFoundError) Error() string {
	return fmt.Sprintf("not_found: volume %q", e.ID)
}

// IsNotFound reports whether err carries a NotFoundError.
func IsNotFound(err error) bool {
	var notFound NotFoundError
	return errors.As(err, &notFound)
}

// ErrorType returns a short label for metrics and logs.
func ErrorType(err error) string {
	if err == nil {
		return "unknown"
	}
	var network NetworkError
	if errors.As(err, &network) {
		if network.Timeout() {
			return "timeout"
		}
		return "network"
	}
	var notFound NotFoundError
	if errors.As(err, &notFound) {
		return "not_found"
	}
	var remote RemoteError
	if errors.As(err, &remote) {
		return "remote"
	}
	return "other"
}

func classifyStatus(op, id string, statusCode int, message string) error {
	if statusCode == http.StatusNotFound && id != "" {
		return NotFoundError{ID: id}
	}
	return RemoteError{Op: op, StatusCode: statusCode, Message: message}
}
