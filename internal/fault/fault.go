// Package fault classifies upstream failures so the conversation layer can
// branch on what happened instead of matching error strings.
package fault

import (
	"errors"
	"fmt"
)

// Kind is the failure category of an upstream or parsing error.
type Kind string

const (
	// NotFound means the looked-up entity does not exist. During existence
	// checks this is a normal branch, not an error.
	NotFound Kind = "not_found"
	// Unauthorized covers authentication and permission failures.
	Unauthorized Kind = "unauthorized"
	// Conflict covers naming collisions and concurrent modification.
	Conflict Kind = "conflict"
	// Transient covers network failures, rate limits and timeouts; the user
	// should simply retry the same message.
	Transient Kind = "transient"
	// Validation means a generated artifact failed structural parsing and was
	// never committed.
	Validation Kind = "validation"
	// Ambiguous means the extractor output did not match the shape the
	// current stage expects.
	Ambiguous Kind = "ambiguous"
)

// Error carries a Kind alongside the underlying cause.
type Error struct {
	Kind Kind
	Op   string // short operation name, e.g. "hosting.write_file"
	Err  error
}

func (e *Error) Error() string {
	if e.Err == nil {
		return fmt.Sprintf("%s: %s", e.Op, e.Kind)
	}
	return fmt.Sprintf("%s: %s: %v", e.Op, e.Kind, e.Err)
}

func (e *Error) Unwrap() error {
	return e.Err
}

// New wraps err with a kind and operation name. A nil err is allowed for
// conditions that have no underlying cause.
func New(kind Kind, op string, err error) *Error {
	return &Error{Kind: kind, Op: op, Err: err}
}

// Newf creates a fault from a formatted message.
func Newf(kind Kind, op, format string, args ...any) *Error {
	return &Error{Kind: kind, Op: op, Err: fmt.Errorf(format, args...)}
}

// KindOf returns the kind of err, or Transient if err carries no fault
// classification. Unclassified errors are network-ish by assumption: the
// caller gets a retry message rather than a crash.
func KindOf(err error) Kind {
	var fe *Error
	if errors.As(err, &fe) {
		return fe.Kind
	}
	return Transient
}

func Is(err error, kind Kind) bool {
	var fe *Error
	return errors.As(err, &fe) && fe.Kind == kind
}

func IsNotFound(err error) bool   { return Is(err, NotFound) }
func IsTransient(err error) bool  { return Is(err, Transient) }
func IsValidation(err error) bool { return Is(err, Validation) }
func IsAmbiguous(err error) bool  { return Is(err, Ambiguous) }
