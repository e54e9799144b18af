// internal/domain/errors.go
package domain

import (
	"errors"
	"fmt"
	"net/http"
)

// ErrUnauthorized is returned by adapters when the remote system rejects the credentials.
// Callers can check for it using errors.Is to trigger re-authentication.
var ErrUnauthorized = errors.New("unauthorized")

var (
	// ErrNotFound reports that the remote resource does not exist.
	ErrNotFound = errors.New("not found")
	// ErrForbidden reports that the credentials are valid but lack permission.
	ErrForbidden = errors.New("forbidden")
	// ErrConflict reports a remote state conflict, such as a resource modified concurrently.
	ErrConflict = errors.New("conflict")
	// ErrUnsupported reports an operation the remote system does not offer.
	ErrUnsupported = errors.New("unsupported operation")
	// ErrUnsupportedKind reports a resource kind with no registered handler.
	ErrUnsupportedKind = errors.New("unsupported resource kind")
)

// ErrorKind classifies a remote failure.
type ErrorKind string

const (
	KindNotFound  ErrorKind = "not_found"
	KindDenied    ErrorKind = "denied"
	KindConflict  ErrorKind = "conflict"
	KindTransient ErrorKind = "transient"
	KindInvalid   ErrorKind = "invalid"
	KindUnknown   ErrorKind = "unknown"
)

// RemoteError carries the raw detail of a failed call against an external system.
// Detail holds the remote response text unmodified.
type RemoteError struct {
	System string
	Op     string
	Status int
	Kind   ErrorKind
	Detail string
	Err    error
}

func (e *RemoteError) Error() string {
	msg := fmt.Sprintf("%s %s failed", e.System, e.Op)
	if e.Status != 0 {
		msg = fmt.Sprintf("%s (status %d)", msg, e.Status)
	}
	if e.Detail != "" {
		msg += ": " + e.Detail
	} else if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

func (e *RemoteError) Unwrap() error {
	return e.Err
}

// Is maps the error kind onto the package sentinels so errors.Is works
// without callers inspecting Kind or Status.
func (e *RemoteError) Is(target error) bool {
	switch target {
	case ErrNotFound:
		return e.Kind == KindNotFound
	case ErrConflict:
		return e.Kind == KindConflict
	case ErrUnauthorized:
		return e.Status == http.StatusUnauthorized
	case ErrForbidden:
		return e.Status == http.StatusForbidden
	}
	return false
}

// KindForStatus classifies an HTTP status code.
func KindForStatus(status int) ErrorKind {
	switch {
	case status == http.StatusNotFound || status == http.StatusGone:
		return KindNotFound
	case status == http.StatusUnauthorized || status == http.StatusForbidden:
		return KindDenied
	case status == http.StatusConflict || status == http.StatusPreconditionFailed:
		return KindConflict
	case status == http.StatusTooManyRequests || status >= 500:
		return KindTransient
	case status >= 400:
		return KindInvalid
	}
	return KindUnknown
}

// HTTPError builds a RemoteError from a non-success HTTP response body.
func HTTPError(system, op string, status int, body string) *RemoteError {
	return &RemoteError{
		System: system,
		Op:     op,
		Status: status,
		Kind:   KindForStatus(status),
		Detail: body,
	}
}

// TransportError wraps a failure that happened before any response was received.
func TransportError(system, op string, err error) *RemoteError {
	return &RemoteError{
		System: system,
		Op:     op,
		Kind:   KindTransient,
		Err:    err,
	}
}

// KindOf returns the kind of the first RemoteError in err's chain, or KindUnknown.
func KindOf(err error) ErrorKind {
	var re *RemoteError
	if errors.As(err, &re) {
		return re.Kind
	}
	switch {
	case errors.Is(err, ErrNotFound):
		return KindNotFound
	case errors.Is(err, ErrUnauthorized), errors.Is(err, ErrForbidden):
		return KindDenied
	case errors.Is(err, ErrConflict):
		return KindConflict
	case errors.Is(err, ErrUnsupported), errors.Is(err, ErrUnsupportedKind):
		return KindInvalid
	}
	return KindUnknown
}

// Detail returns the raw remote text for err when it carries one,
// falling back to err.Error().
func Detail(err error) string {
	if err == nil {
		return ""
	}
	var re *RemoteError
	if errors.As(err, &re) {
		if re.Detail != "" {
			return re.Detail
		}
		if re.Err != nil {
			return re.Err.Error()
		}
	}
	return err.Error()
}
