/*
errors.go - Centralized error taxonomy for the charter engine

PURPOSE:
  All caller-visible error kinds in one place. Domain packages wrap these
  sentinels with structured context; the API layer maps them to HTTP status
  codes without knowing which component produced them.

TAXONOMY:
  ErrNotFound           Unknown tier/aircraft/booking/dispute reference
  ErrConflict           Duplicate registration number; aircraft not eligible;
                        booking not cancellable in its current status
  ErrPreconditionFailed Membership missing or inactive at booking time
  ErrInvalidArgument    Malformed status value, negative hours,
                        out-of-range percentage

Every error aborts the current operation with no partial state change;
nothing here is retried internally.

USAGE:
  Domain packages return structured errors that unwrap to a sentinel:

    if core.IsNotFound(err) {
        // 404
    }
*/
package core

import (
	"errors"
	"fmt"
)

// =============================================================================
// SENTINEL ERRORS - Use with errors.Is()
// =============================================================================

var (
	// ErrNotFound is returned when a referenced entity doesn't exist.
	ErrNotFound = errors.New("not found")

	// ErrConflict is returned when an operation collides with current state:
	// duplicate unique keys, ineligible aircraft, guarded status transitions.
	ErrConflict = errors.New("conflict")

	// ErrPreconditionFailed is returned when a required precondition
	// (an active membership) does not hold.
	ErrPreconditionFailed = errors.New("precondition failed")

	// ErrInvalidArgument is returned for malformed or out-of-range input.
	ErrInvalidArgument = errors.New("invalid argument")
)

// =============================================================================
// STRUCTURED ERRORS - Carry additional context
// =============================================================================

// NotFoundError identifies which entity reference could not be resolved.
type NotFoundError struct {
	Entity string // "tier", "aircraft", "booking", "dispute", "membership"
	Ref    string
}

func (e *NotFoundError) Error() string {
	if e.Ref == "" {
		return fmt.Sprintf("%s not found", e.Entity)
	}
	return fmt.Sprintf("%s %q not found", e.Entity, e.Ref)
}

func (e *NotFoundError) Unwrap() error { return ErrNotFound }

// ConflictError carries the human-readable reason for a state conflict.
type ConflictError struct {
	Reason string
}

func (e *ConflictError) Error() string { return e.Reason }
func (e *ConflictError) Unwrap() error { return ErrConflict }

// PreconditionError carries the failed precondition.
type PreconditionError struct {
	Reason string
}

func (e *PreconditionError) Error() string { return e.Reason }
func (e *PreconditionError) Unwrap() error { return ErrPreconditionFailed }

// InvalidArgumentError identifies the offending field.
type InvalidArgumentError struct {
	Field  string
	Reason string
}

func (e *InvalidArgumentError) Error() string {
	if e.Field == "" {
		return e.Reason
	}
	return fmt.Sprintf("%s: %s", e.Field, e.Reason)
}

func (e *InvalidArgumentError) Unwrap() error { return ErrInvalidArgument }

// =============================================================================
// CONSTRUCTORS
// =============================================================================

func NotFoundf(entity, ref string) error {
	return &NotFoundError{Entity: entity, Ref: ref}
}

func Conflictf(format string, args ...any) error {
	return &ConflictError{Reason: fmt.Sprintf(format, args...)}
}

func Preconditionf(format string, args ...any) error {
	return &PreconditionError{Reason: fmt.Sprintf(format, args...)}
}

func InvalidArgf(field, format string, args ...any) error {
	return &InvalidArgumentError{Field: field, Reason: fmt.Sprintf(format, args...)}
}

// =============================================================================
// ERROR HELPERS
// =============================================================================

func IsNotFound(err error) bool           { return errors.Is(err, ErrNotFound) }
func IsConflict(err error) bool           { return errors.Is(err, ErrConflict) }
func IsPreconditionFailed(err error) bool { return errors.Is(err, ErrPreconditionFailed) }
func IsInvalidArgument(err error) bool    { return errors.Is(err, ErrInvalidArgument) }

// IsClientError returns true if the error is scoped to the caller's request
// rather than an internal failure.
func IsClientError(err error) bool {
	return IsNotFound(err) || IsConflict(err) ||
		IsPreconditionFailed(err) || IsInvalidArgument(err)
}
