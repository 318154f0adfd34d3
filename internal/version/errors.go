package version

import (
	"errors"
	"fmt"
)

var (
	ErrNotFound      = errors.New("version not found")
	ErrStorage       = errors.New("version storage failure")
	ErrDegradedWrite = errors.New("version created but change log incomplete")
	ErrConflict      = errors.New("version number already taken")
	ErrInvalid       = errors.New("invalid version request")
)

// Error ties a failure kind (one of the Err* sentinels) to the operation that
// produced it. errors.Is matches both the kind and the underlying cause.
type Error struct {
	Kind error
	Op   string
	Err  error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v: %v", e.Op, e.Kind, e.Err)
	}
	return fmt.Sprintf("%s: %v", e.Op, e.Kind)
}

func (e *Error) Unwrap() []error {
	if e.Err == nil {
		return []error{e.Kind}
	}
	return []error{e.Kind, e.Err}
}

func NotFound(op string) error { return &Error{Kind: ErrNotFound, Op: op} }

func Storage(op string, err error) error { return &Error{Kind: ErrStorage, Op: op, Err: err} }

func Conflict(op string, err error) error { return &Error{Kind: ErrConflict, Op: op, Err: err} }

func Degraded(op string, err error) error { return &Error{Kind: ErrDegradedWrite, Op: op, Err: err} }

func Invalid(op, reason string) error {
	return &Error{Kind: ErrInvalid, Op: op, Err: errors.New(reason)}
}

// IsRetryable reports whether a fresh attempt may succeed (conflicts only).
func IsRetryable(err error) bool { return errors.Is(err, ErrConflict) }
