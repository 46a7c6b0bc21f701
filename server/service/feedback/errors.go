package feedback

import (
	"fmt"

	"github.com/pkg/errors"
)

// Error kinds returned by Service. Test with errors.Is.
var (
	ErrInvalidArgument      = errors.New("invalid argument")
	ErrNotFound             = errors.New("not found")
	ErrAIServiceUnavailable = errors.New("AI service temporarily unavailable")
	ErrPersistence          = errors.New("database operation failed")
)

// Error carries a kind, a caller-facing message and an optional cause.
type Error struct {
	Kind    error
	Message string
	Cause   error
}

func (e *Error) Error() string {
	if e.Cause != nil {
		return e.Message + ": " + e.Cause.Error()
	}
	return e.Message
}

// Is matches the error kind.
func (e *Error) Is(target error) bool {
	return target == e.Kind
}

func (e *Error) Unwrap() error {
	return e.Cause
}

// Message returns the caller-facing message of err, or its text when err is not an *Error.
func Message(err error) string {
	var e *Error
	if errors.As(err, &e) {
		return e.Message
	}
	return err.Error()
}

func invalidArgumentf(format string, args ...any) error {
	return &Error{Kind: ErrInvalidArgument, Message: fmt.Sprintf(format, args...)}
}

func notFoundf(format string, args ...any) error {
	return &Error{Kind: ErrNotFound, Message: fmt.Sprintf(format, args...)}
}

func persistenceError(cause error, message string) error {
	return &Error{Kind: ErrPersistence, Message: message, Cause: errors.WithStack(cause)}
}

func aiUnavailableError(cause error) error {
	return &Error{Kind: ErrAIServiceUnavailable, Message: ErrAIServiceUnavailable.Error(), Cause: cause}
}
