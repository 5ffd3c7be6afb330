package analyze

import (
	"errors"
	"fmt"
)

// ErrorKind classifies an analysis failure for callers that map it to a
// user-facing response.
type ErrorKind string

const (
	KindInvalidURL   ErrorKind = "invalid_url"
	KindFetchBlocked ErrorKind = "fetch_blocked"
	KindFetchFailed  ErrorKind = "fetch_failed"
)

// Error is returned by Analyzer for input and acquisition failures.
type Error struct {
	Kind ErrorKind
	Err  error
}

func (e *Error) Error() string {
	return fmt.Sprintf("analyze: %s: %v", e.Kind, e.Err)
}

func (e *Error) Unwrap() error {
	return e.Err
}

func newError(kind ErrorKind, err error) *Error {
	return &Error{Kind: kind, Err: err}
}

// KindOf returns the ErrorKind carried by err, or "" when err is not an
// *Error.
func KindOf(err error) ErrorKind {
	var ae *Error
	if errors.As(err, &ae) {
		return ae.Kind
	}
	return ""
}
