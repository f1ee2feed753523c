package api

import (
	"context"
	"errors"
	"fmt"
	"net"
)

// Sentinel errors for use with errors.Is(). Every error returned by a
// Client method matches exactly one of these.
var (
	// ErrInvalidCredentials is returned when the server rejects the
	// login/register attempt or the presented bearer token (HTTP 401/403).
	ErrInvalidCredentials = errors.New("invalid credentials")

	// ErrTimeout is returned when a request exceeded its deadline and
	// was cancelled.
	ErrTimeout = errors.New("request timed out")

	// ErrUnreachable is returned on connection-level failures: DNS,
	// connection refused, TLS handshake.
	ErrUnreachable = errors.New("server unreachable")

	// ErrServerFault is returned on HTTP 5xx responses.
	ErrServerFault = errors.New("server fault")

	// ErrUnclassified is returned for anything else: unexpected status
	// codes, malformed response bodies.
	ErrUnclassified = errors.New("unclassified error")
)

// AuthError is returned when the server rejects the caller's credentials.
type AuthError struct {
	// Status is the HTTP status code (401 or 403).
	Status int
	// Message is the server-provided detail, if any.
	Message string
}

// Error returns a human-readable description of the rejection.
func (e *AuthError) Error() string {
	if e.Message != "" {
		return fmt.Sprintf("authentication rejected: %s", e.Message)
	}
	return fmt.Sprintf("authentication rejected (HTTP %d)", e.Status)
}

// Is reports whether this error matches the target error.
// It supports errors.Is(err, ErrInvalidCredentials).
func (e *AuthError) Is(target error) bool {
	return target == ErrInvalidCredentials
}

// ServerError is returned on HTTP 5xx responses.
type ServerError struct {
	Status  int
	Message string
}

// Error returns a human-readable description of the server fault.
func (e *ServerError) Error() string {
	if e.Message != "" {
		return fmt.Sprintf("server error (HTTP %d): %s", e.Status, e.Message)
	}
	return fmt.Sprintf("server error (HTTP %d)", e.Status)
}

// Is reports whether this error matches the target error.
func (e *ServerError) Is(target error) bool {
	return target == ErrServerFault
}

// TransportError is returned when the request never produced an HTTP
// response: the server was unreachable or the request timed out.
type TransportError struct {
	// Cause is the underlying transport failure.
	Cause error
	// Timeout is true when the request exceeded its deadline.
	Timeout bool
}

// Error returns a human-readable description of the transport failure.
func (e *TransportError) Error() string {
	if e.Timeout {
		return fmt.Sprintf("request timed out: %v", e.Cause)
	}
	return fmt.Sprintf("server unreachable: %v", e.Cause)
}

// Unwrap returns the underlying transport failure.
func (e *TransportError) Unwrap() error {
	return e.Cause
}

// Is reports whether this error matches the target error.
func (e *TransportError) Is(target error) bool {
	if e.Timeout {
		return target == ErrTimeout
	}
	return target == ErrUnreachable
}

// UnexpectedStatusError is returned for non-2xx responses that fit no
// other category (e.g. 400, 404, 409).
type UnexpectedStatusError struct {
	Status  int
	Message string
}

// Error returns a human-readable description of the response.
func (e *UnexpectedStatusError) Error() string {
	if e.Message != "" {
		return fmt.Sprintf("unexpected response (HTTP %d): %s", e.Status, e.Message)
	}
	return fmt.Sprintf("unexpected response (HTTP %d)", e.Status)
}

// Is reports whether this error matches the target error.
func (e *UnexpectedStatusError) Is(target error) bool {
	return target == ErrUnclassified
}

// classifyStatus maps a non-2xx HTTP status to the error taxonomy.
// detail is the server-provided message, already extracted from the body.
func classifyStatus(status int, detail string) error {
	switch {
	case status == 401 || status == 403:
		return &AuthError{Status: status, Message: detail}
	case status >= 500:
		return &ServerError{Status: status, Message: detail}
	default:
		return &UnexpectedStatusError{Status: status, Message: detail}
	}
}

// classifyTransport maps an error from http.Client.Do to the taxonomy.
// Deadline expiry (from the per-request context or the client timeout)
// becomes ErrTimeout; everything else that prevented a response
// (DNS, connection refused, TLS) becomes ErrUnreachable.
func classifyTransport(err error) error {
	if errors.Is(err, context.DeadlineExceeded) {
		return &TransportError{Cause: err, Timeout: true}
	}
	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return &TransportError{Cause: err, Timeout: true}
	}
	return &TransportError{Cause: err, Timeout: false}
}
