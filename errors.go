package ldbc

import (
	"fmt"

	"github.com/pkg/errors"
)

// ErrorKind tags the taxonomy of spec §7. It exists so callers can branch
// on category without type-switching every concrete error type.
type ErrorKind int

const (
	KindUnknown ErrorKind = iota
	KindAuthorizationFailure
	KindProtocolViolation
	KindTransientNetwork
	KindServerError
	KindClientState
	KindConfigurationError
)

func (k ErrorKind) String() string {
	switch k {
	case KindAuthorizationFailure:
		return "AuthorizationFailure"
	case KindProtocolViolation:
		return "ProtocolViolation"
	case KindTransientNetwork:
		return "TransientNetwork"
	case KindServerError:
		return "ServerError"
	case KindClientState:
		return "ClientState"
	case KindConfigurationError:
		return "ConfigurationError"
	default:
		return "Unknown"
	}
}

// Error is the shape every user-visible error from this module satisfies.
type Error struct {
	Kind       ErrorKind
	SQLState   string
	VendorCode uint16
	Message    string
	cause      error
}

func (e *Error) Error() string {
	if e.SQLState != "" {
		return fmt.Sprintf("ldbc: %s [%s] (errno %d): %s", e.Kind, e.SQLState, e.VendorCode, e.Message)
	}
	return fmt.Sprintf("ldbc: %s: %s", e.Kind, e.Message)
}

// Unwrap lets errors.Is/errors.As reach the cause, and keeps pkg/errors'
// Cause() working for callers still using that chain.
func (e *Error) Unwrap() error { return e.cause }

func (e *Error) Cause() error { return e.cause }

func newError(kind ErrorKind, sqlState string, vendorCode uint16, cause error, format string, args ...interface{}) *Error {
	return &Error{
		Kind:       kind,
		SQLState:   sqlState,
		VendorCode: vendorCode,
		Message:    fmt.Sprintf(format, args...),
		cause:      cause,
	}
}

// NewAuthorizationError builds a fatal-to-session AuthorizationFailure.
func NewAuthorizationError(sqlState string, vendorCode uint16, format string, args ...interface{}) *Error {
	return newError(KindAuthorizationFailure, sqlState, vendorCode, nil, format, args...)
}

// NewProtocolError wraps a cause (sequence mismatch, truncated packet, ...)
// as a fatal ProtocolViolation. The connection that produced it must be
// poisoned and removed from its pool.
func NewProtocolError(cause error, format string, args ...interface{}) *Error {
	return newError(KindProtocolViolation, "", 0, errors.WithStack(cause), format, args...)
}

// NewTransientNetworkError marks an error as retryable at pool acquisition
// time only; the session layer itself never retries.
func NewTransientNetworkError(cause error, format string, args ...interface{}) *Error {
	return newError(KindTransientNetwork, "", 0, errors.WithStack(cause), format, args...)
}

// NewServerError surfaces an ERR packet verbatim; the session stays usable.
func NewServerError(sqlState string, vendorCode uint16, message string) *Error {
	return newError(KindServerError, sqlState, vendorCode, nil, "%s", message)
}

// NewClientStateError reports misuse (busy session, closed connection) with
// no retry semantics.
func NewClientStateError(format string, args ...interface{}) *Error {
	return newError(KindClientState, "", 0, nil, format, args...)
}

// NewConfigurationError fails fast at DataSource/Config construction.
func NewConfigurationError(format string, args ...interface{}) *Error {
	return newError(KindConfigurationError, "", 0, nil, format, args...)
}

// IsKind reports whether err is an *Error of the given kind.
func IsKind(err error, kind ErrorKind) bool {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind == kind
	}
	return false
}
