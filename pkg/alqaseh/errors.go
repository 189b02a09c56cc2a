package alqaseh

import (
	"errors"
	"fmt"
)

// ValidationError reports a request that was rejected before any network call
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	return e.Message
}

func invalid(field, format string, args ...interface{}) *ValidationError {
	return &ValidationError{Field: field, Message: fmt.Sprintf(format, args...)}
}

// ErrorKind distinguishes failures reported by the gateway from failures
// to reach it.
type ErrorKind string

const (
	KindGateway   ErrorKind = "gateway"
	KindTransport ErrorKind = "transport"
)

// GatewayError is returned for non-2xx responses, error bodies and
// connectivity failures.
type GatewayError struct {
	Kind          ErrorKind
	Message       string
	ErrorCode     string
	ReferenceCode string
	HTTPStatus    int
	Err           error
}

func (e *GatewayError) Error() string {
	if e.Kind == KindTransport {
		return "alqaseh: " + e.Message
	}
	if e.ReferenceCode != "" {
		return fmt.Sprintf("alqaseh: %s (status %d, reference %s)", e.Message, e.HTTPStatus, e.ReferenceCode)
	}
	return fmt.Sprintf("alqaseh: %s (status %d)", e.Message, e.HTTPStatus)
}

func (e *GatewayError) Unwrap() error {
	return e.Err
}

// IsTransport reports whether the gateway was never reached
func (e *GatewayError) IsTransport() bool {
	return e.Kind == KindTransport
}

// IsValidationError reports whether err is, or wraps, a *ValidationError
func IsValidationError(err error) bool {
	var vErr *ValidationError
	return errors.As(err, &vErr)
}

// AsGatewayError returns the *GatewayError carried by err, if any
func AsGatewayError(err error) (*GatewayError, bool) {
	var gErr *GatewayError
	if errors.As(err, &gErr) {
		return gErr, true
	}
	return nil, false
}

func transportError(err error) *GatewayError {
	return &GatewayError{
		Kind:    KindTransport,
		Message: "connection error: " + err.Error(),
		Err:     err,
	}
}
