package services

import "errors"

type Kind int

const (
	Internal Kind = iota
	Validation
	Unauthorized
	NotFound
	Conflict
)

// Error is a failure the caller can act on. Anything that is not an *Error
// is treated as Internal.
type Error struct {
	Kind    Kind
	Message string
}

func (e *Error) Error() string {
	return e.Message
}

func newError(kind Kind, msg string) error {
	return &Error{Kind: kind, Message: msg}
}

func validationError(msg string) error   { return newError(Validation, msg) }
func unauthorizedError(msg string) error { return newError(Unauthorized, msg) }
func notFoundError(msg string) error     { return newError(NotFound, msg) }
func conflictError(msg string) error     { return newError(Conflict, msg) }

// KindOf reports the kind of err, Internal when err is not an *Error.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return Internal
}
