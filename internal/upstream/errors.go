// Package upstream holds the HTTP clients for the invoice parser, OCR and
// analytics services.
package upstream

import (
	"errors"
	"fmt"
)

// ErrMalformedResponse is returned when a service answers 200 with a body of the wrong shape
var ErrMalformedResponse = errors.New("malformed response")

// ErrUnavailable wraps transport failures (refused connection, timeout)
var ErrUnavailable = errors.New("service unavailable")

// Error describes a failed call to an upstream service.
type Error struct {
	// Service is the collaborator that failed, e.g. "invoice-parser".
	Service string

	// StatusCode is the HTTP status the service answered with, 0 if none.
	StatusCode int

	// Body is the decoded response body (JSON value or raw text), if any.
	Body interface{}

	// Err is the underlying error.
	Err error
}

func (e *Error) Error() string {
	if e.StatusCode != 0 {
		return fmt.Sprintf("%s returned %d: %v", e.Service, e.StatusCode, e.Err)
	}
	return fmt.Sprintf("%s: %v", e.Service, e.Err)
}

func (e *Error) Unwrap() error {
	return e.Err
}

// Is implements error matching for Go 1.13+ error handling.
func (e *Error) Is(target error) bool {
	return errors.Is(e.Err, target)
}

var errBadStatus = errors.New("unexpected status")

func statusError(service string, code int, raw []byte) *Error {
	return &Error{Service: service, StatusCode: code, Body: decodeBody(raw), Err: errBadStatus}
}
