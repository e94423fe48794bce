package numeric

import (
	"errors"
	"fmt"
)

// ErrorKind classifies analytics failures
type ErrorKind int

const (
	// InvalidParameter marks caller mistakes: unknown methods, bad ranges, mismatched inputs
	InvalidParameter ErrorKind = iota + 1
	// InsufficientData marks series too short to analyze. It is never fatal.
	InsufficientData
)

func (k ErrorKind) String() string {
	switch k {
	case InvalidParameter:
		return "invalid_parameter"
	case InsufficientData:
		return "insufficient_data"
	default:
		return "unknown"
	}
}

var (
	ErrInvalidParameter = errors.New("invalid parameter")
	ErrInsufficientData = errors.New("insufficient data")
	// ErrUnsupported is returned by a backend that lacks a capability
	ErrUnsupported = errors.New("operation not supported by numeric backend")
)

// Error is the error type returned by every calculator in the analytics core
type Error struct {
	Kind    ErrorKind
	Op      string
	Message string
}

func (e *Error) Error() string {
	if e.Op == "" {
		return fmt.Sprintf("%s: %s", e.Kind, e.Message)
	}
	return fmt.Sprintf("%s: %s: %s", e.Op, e.Kind, e.Message)
}

// Is lets errors.Is match the package sentinels
func (e *Error) Is(target error) bool {
	switch target {
	case ErrInvalidParameter:
		return e.Kind == InvalidParameter
	case ErrInsufficientData:
		return e.Kind == InsufficientData
	}
	return false
}

// Invalid builds an InvalidParameter error
func Invalid(op, format string, args ...interface{}) error {
	return &Error{Kind: InvalidParameter, Op: op, Message: fmt.Sprintf(format, args...)}
}

// Insufficient builds an InsufficientData error
func Insufficient(op, format string, args ...interface{}) error {
	return &Error{Kind: InsufficientData, Op: op, Message: fmt.Sprintf(format, args...)}
}

// KindOf returns the kind of err, or 0 when err is not an analytics error
func KindOf(err error) ErrorKind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return 0
}

// IsFatal reports whether err should abort the caller.
// Insufficient data produces an empty report and is not fatal.
func IsFatal(err error) bool {
	if err == nil {
		return false
	}
	return !errors.Is(err, ErrInsufficientData)
}
