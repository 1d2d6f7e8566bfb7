// Package errors defines the sentinel errors shared by the corpus, entity,
// topic and distance packages, plus a wrapper that attaches context while
// keeping errors.Is working against the sentinel.
package errors

import (
	"errors"
	"fmt"
)

var (
	ErrUnsupportedTokenizer = errors.New("unsupported tokenizer")
	ErrStreamNotRestartable = errors.New("document stream not restartable")
	ErrUnknownEntity        = errors.New("unknown entity")
	ErrInvalidDistribution  = errors.New("invalid distribution")
	ErrOrderingMismatch     = errors.New("entity ordering mismatch")
	ErrInvalidConfig        = errors.New("invalid configuration")
	ErrCorruptFile          = errors.New("corrupt file")
	ErrInvalidInput         = errors.New("invalid input")
)

// Error wraps a sentinel with a human readable message.
type Error struct {
	Err     error
	Message string
}

func (e *Error) Error() string {
	return fmt.Sprintf("%s: %s", e.Err.Error(), e.Message)
}

func (e *Error) Unwrap() error {
	return e.Err
}

func New(sentinel error, message string) *Error {
	return &Error{
		Err:     sentinel,
		Message: message,
	}
}

func Newf(sentinel error, format string, args ...any) *Error {
	return &Error{
		Err:     sentinel,
		Message: fmt.Sprintf(format, args...),
	}
}

// IsFatal reports whether err must abort the whole run. Unknown entities and
// malformed topic vectors are recoverable: the caller skips the offending
// item and keeps going.
func IsFatal(err error) bool {
	if err == nil {
		return false
	}
	switch {
	case errors.Is(err, ErrUnknownEntity), errors.Is(err, ErrInvalidDistribution):
		return false
	default:
		return true
	}
}

// Is is errors.Is, re-exported for callers importing this package under the
// name "errors".
func Is(err, target error) bool { return errors.Is(err, target) }
