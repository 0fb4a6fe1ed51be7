package client

import (
	"errors"
	"fmt"
	"net/http"
	"strings"
)

// ErrorKind classifies a façade failure so callers can dispatch on
// structure instead of matching message strings.
type ErrorKind string

const (
	KindNetwork    ErrorKind = "network"
	KindTimeout    ErrorKind = "timeout"
	KindServer     ErrorKind = "server"
	KindNotFound   ErrorKind = "not_found"
	KindAuth       ErrorKind = "auth"
	KindValidation ErrorKind = "validation"
	KindClient     ErrorKind = "client"
	KindUnknown    ErrorKind = "unknown"
)

// Error is the single error type surfaced by the façade. Callers never see
// raw transport errors; every failure is classified into a Kind and carries
// a human-readable message.
type Error struct {
	Kind    ErrorKind
	Message string

	// Status is the HTTP status that produced the error, when one exists.
	Status int

	// Violations lists the individual rules a validation failure broke.
	Violations []string

	cause error
}

func (e *Error) Error() string {
	if e.Status != 0 {
		return fmt.Sprintf("%s (%s, status %d)", e.Message, e.Kind, e.Status)
	}
	return fmt.Sprintf("%s (%s)", e.Message, e.Kind)
}

func (e *Error) Unwrap() error {
	return e.cause
}

// UserMessage returns the message shown in notifications.
func (e *Error) UserMessage() string {
	switch e.Kind {
	case KindTimeout:
		return "Request timed out. Please check your connection and try again."
	case KindNetwork:
		return "Unable to connect to the server. Please check your internet connection."
	case KindServer:
		return "Server error occurred. Please try again in a few moments."
	case KindNotFound:
		return "The requested resource was not found."
	case KindAuth:
		return "Authentication required. Please log in and try again."
	case KindValidation:
		return "Please fix the following issues: " + strings.Join(e.Violations, ", ")
	default:
		return "An unexpected error occurred. Please try again."
	}
}

// retryable reports whether the failure is worth another attempt: network
// errors, timeouts, and server-side failures. Client-side errors are not.
func (e *Error) retryable() bool {
	switch e.Kind {
	case KindNetwork, KindTimeout, KindServer:
		return true
	default:
		return false
	}
}

// KindOf extracts the classification from an error, or KindUnknown when the
// error did not come from the façade.
func KindOf(err error) ErrorKind {
	var clientErr *Error
	if errors.As(err, &clientErr) {
		return clientErr.Kind
	}
	return KindUnknown
}

// IsNotFound reports whether err is a façade not-found failure.
func IsNotFound(err error) bool {
	return KindOf(err) == KindNotFound
}

// IsValidation reports whether err is a local validation failure.
func IsValidation(err error) bool {
	return KindOf(err) == KindValidation
}

// classifyStatus maps an HTTP status code onto the error taxonomy.
func classifyStatus(status int) ErrorKind {
	switch {
	case status >= http.StatusInternalServerError:
		return KindServer
	case status == http.StatusNotFound:
		return KindNotFound
	case status == http.StatusUnauthorized || status == http.StatusForbidden:
		return KindAuth
	case status >= http.StatusBadRequest:
		return KindClient
	default:
		return KindUnknown
	}
}

func newStatusError(status int, message string) *Error {
	if message == "" {
		message = fmt.Sprintf("HTTP %d", status)
	}
	return &Error{
		Kind:    classifyStatus(status),
		Message: message,
		Status:  status,
	}
}
