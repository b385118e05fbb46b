package service

import (
	"errors"
	"fmt"
)

// ErrorKind classifies a service failure for the transport layer
type ErrorKind int

const (
	KindInvalid ErrorKind = iota + 1
	KindNotFound
	KindConflict
)

// Error is a failure the caller can act on (bad input, missing record, wrong state).
// Anything that is not an *Error is treated as internal.
type Error struct {
	Kind    ErrorKind
	Message string
	Details interface{}
}

func (e *Error) Error() string {
	return e.Message
}

func invalid(format string, args ...interface{}) *Error {
	return &Error{Kind: KindInvalid, Message: fmt.Sprintf(format, args...)}
}

func notFound(format string, args ...interface{}) *Error {
	return &Error{Kind: KindNotFound, Message: fmt.Sprintf(format, args...)}
}

func conflict(format string, args ...interface{}) *Error {
	return &Error{Kind: KindConflict, Message: fmt.Sprintf(format, args...)}
}

// IsKind reports whether err is a service *Error of the given kind
func IsKind(err error, kind ErrorKind) bool {
	var se *Error
	return errors.As(err, &se) && se.Kind == kind
}
