package db

import (
	"errors"
	"fmt"
)

// --------------------------------------------------------------------------
// Error Codes
// --------------------------------------------------------------------------

// Code classifies every error surfaced by an engine or by the bridge.
// Callers can match on the code (via errors.Is against the canonical
// instances below) or on the wrapped native engine error (via errors.As).
type Code uint8

const (
	CodeOpen        Code = iota + 1 // 1: store could not be opened or created
	CodeNotFound                    // 2: key absent on Get/Delete
	CodeIO                          // 3: underlying I/O failure, handle stays usable
	CodeClosed                      // 4: operation attempted after close began
	CodeBusy                        // 5: bounded queue is full
	CodeCancelled                   // 6: waiter cancelled before the operation ran
	CodeUnsupported                 // 7: operation not supported by the engine
	CodeInternal                    // 8: unexpected condition outside the taxonomy
)

func (c Code) String() string {
	switch c {
	case CodeOpen:
		return "Open"
	case CodeNotFound:
		return "NotFound"
	case CodeIO:
		return "IO"
	case CodeClosed:
		return "Closed"
	case CodeBusy:
		return "Busy"
	case CodeCancelled:
		return "Cancelled"
	case CodeUnsupported:
		return "Unsupported"
	case CodeInternal:
		return "Internal"
	default:
		return fmt.Sprintf("Unknown(%d)", c)
	}
}

// --------------------------------------------------------------------------
// Custom Error Type
// --------------------------------------------------------------------------

// Error is the tagged error type used across the repo. Code carries the
// category, Cause the native error of the underlying library (if any), so
// callers can match on either level.
type Error struct {
	Code  Code   // The error category
	Msg   string // The error message
	Cause error  // The native error of the underlying library, may be nil
}

// Error implements the error interface.
func (e *Error) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("kv error (%s): %s: %v", e.Code, e.Msg, e.Cause)
	}
	return fmt.Sprintf("kv error (%s): %s", e.Code, e.Msg)
}

// Unwrap exposes the native cause to errors.Is and errors.As.
func (e *Error) Unwrap() error {
	return e.Cause
}

// Is matches any *Error with the same code, so
// errors.Is(err, db.ErrKeyNotFound) holds for every CodeNotFound error
// regardless of message or cause.
func (e *Error) Is(target error) bool {
	var t *Error
	if !errors.As(target, &t) {
		return false
	}
	return t.Code == e.Code
}

// NewError creates a new Error with the given code and message.
func NewError(code Code, msg string) *Error {
	return &Error{Code: code, Msg: msg}
}

// WrapError creates a new Error carrying a native cause.
func WrapError(code Code, msg string, cause error) *Error {
	return &Error{Code: code, Msg: msg, Cause: cause}
}

// --------------------------------------------------------------------------
// Canonical Instances and Predicates
// --------------------------------------------------------------------------

var (
	// ErrKeyNotFound is returned when a key is absent on Get or Delete.
	ErrKeyNotFound = NewError(CodeNotFound, "key not found")

	// ErrStoreClosed is returned for operations after close began.
	ErrStoreClosed = NewError(CodeClosed, "store closed")

	// ErrStoreBusy is returned when a bounded queue rejects an enqueue.
	ErrStoreBusy = NewError(CodeBusy, "store busy")

	// ErrCancelled is returned to a waiter whose operation was skipped.
	ErrCancelled = NewError(CodeCancelled, "operation cancelled")

	// ErrUnsupported is returned for operations the engine does not support.
	ErrUnsupported = NewError(CodeUnsupported, "operation not supported")
)

// CodeOf extracts the error code, returning ok=false for errors outside the
// taxonomy.
func CodeOf(err error) (Code, bool) {
	var e *Error
	if errors.As(err, &e) {
		return e.Code, true
	}
	return 0, false
}

// IsNotFound reports whether err carries CodeNotFound.
func IsNotFound(err error) bool { return errors.Is(err, ErrKeyNotFound) }

// IsClosed reports whether err carries CodeClosed.
func IsClosed(err error) bool { return errors.Is(err, ErrStoreClosed) }

// IsBusy reports whether err carries CodeBusy.
func IsBusy(err error) bool { return errors.Is(err, ErrStoreBusy) }
