// Package apperr defines the error kinds surfaced to the user.
package apperr

import (
	"errors"
	"fmt"
)

// Kind classifies an error for display and transport.
type Kind int

const (
	KindBackend Kind = iota
	KindValidation
	KindNotFound
	KindConflict
)

func (k Kind) String() string {
	switch k {
	case KindValidation:
		return "validation"
	case KindNotFound:
		return "not_found"
	case KindConflict:
		return "conflict"
	default:
		return "backend"
	}
}

// Error carries a kind, an optional custom message and the underlying cause.
type Error struct {
	Kind    Kind
	Message string
	Err     error
}

func (e *Error) Error() string {
	return Display(e.Message, e.Err)
}

func (e *Error) Unwrap() error { return e.Err }

// Validation reports malformed user input detected before any request.
func Validation(msg string) error {
	return &Error{Kind: KindValidation, Message: msg}
}

// NotFound reports an empty result where a record was expected.
func NotFound(msg string) error {
	return &Error{Kind: KindNotFound, Message: msg}
}

// Conflict reports a record that already exists.
func Conflict(msg string) error {
	return &Error{Kind: KindConflict, Message: msg}
}

// Backend wraps a failure returned by a backend collaborator. msg may be empty.
func Backend(msg string, err error) error {
	return &Error{Kind: KindBackend, Message: msg, Err: err}
}

// KindOf returns the kind of err. Unclassified errors are backend errors.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return KindBackend
}

// Is reports whether err carries kind k.
func Is(err error, k Kind) bool {
	var e *Error
	return errors.As(err, &e) && e.Kind == k
}

// Display joins a custom message and the underlying error message with ":"
// when both are present.
func Display(custom string, err error) string {
	var under string
	if err != nil {
		under = err.Error()
	}
	switch {
	case custom == "":
		return under
	case under == "":
		return custom
	default:
		return fmt.Sprintf("%s:%s", custom, under)
	}
}

// Message returns the display message for any error.
func Message(err error) string {
	if err == nil {
		return ""
	}
	var e *Error
	if errors.As(err, &e) {
		return e.Error()
	}
	return err.Error()
}
