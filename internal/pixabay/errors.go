package pixabay

import (
	"context"
	"fmt"
	"net"
	"net/http"
	"syscall"

	"github.com/tphakala/pixalb/internal/errors"
)

var (
	// ErrNoConnection is returned when the API host cannot be reached at all.
	ErrNoConnection = errors.NewStd("no connection to pixabay")

	// ErrResponseTransform is returned when a 200 response cannot be decoded.
	ErrResponseTransform = errors.NewStd("unexpected response")

	// ErrRequestValidation is returned for requests rejected before sending.
	ErrRequestValidation = errors.NewStd("invalid request")
)

// RequestError is an HTTP status failure reported by the API.
type RequestError struct {
	StatusCode int
	Message    string // plain text preview of the response body
}

func (e *RequestError) Error() string {
	if e.Message == "" {
		return fmt.Sprintf("pixabay request failed: %d %s", e.StatusCode, http.StatusText(e.StatusCode))
	}
	return fmt.Sprintf("pixabay request failed: %d %s", e.StatusCode, e.Message)
}

// ErrorCategory maps the HTTP status to an error category.
func (e *RequestError) ErrorCategory() errors.ErrorCategory {
	return getErrorCategory(e.StatusCode)
}

func getErrorCategory(statusCode int) errors.ErrorCategory {
	switch {
	case statusCode == http.StatusBadRequest, statusCode == http.StatusUnauthorized, statusCode == http.StatusForbidden:
		// Pixabay answers 400 for an invalid key as well as bad parameters
		return errors.CategoryConfiguration
	case statusCode == http.StatusTooManyRequests:
		return errors.CategoryLimit
	case statusCode == http.StatusNotFound:
		return errors.CategoryNotFound
	default:
		return errors.CategoryNetwork
	}
}

// isConnectivityError reports dial, DNS and unreachable-network failures.
// Timeouts and cancellations are not connectivity errors.
func isConnectivityError(err error) bool {
	if err == nil || errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return false
	}
	var dnsErr *net.DNSError
	if errors.As(err, &dnsErr) {
		return true
	}
	var opErr *net.OpError
	if errors.As(err, &opErr) && opErr.Op == "dial" {
		return true
	}
	return errors.Is(err, syscall.ECONNREFUSED) ||
		errors.Is(err, syscall.ENETUNREACH) ||
		errors.Is(err, syscall.EHOSTUNREACH)
}
