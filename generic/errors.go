/*
errors.go - Centralized error types for the working-time engine

PURPOSE:
  All error types in one place for consistency and discoverability.
  Domain packages wrap these errors with additional context so callers
  (the HTTP layer in particular) can classify any error with errors.Is.

ERROR CATEGORIES:
  1. Validation errors - malformed input, business rule rejections
  2. State errors - workflow transitions from the wrong state
  3. Lookup errors - missing records
  4. Decision errors - the caller must choose before the operation proceeds

USAGE:
  Domain packages return structured errors that unwrap to a sentinel:

    if errors.Is(err, generic.ErrInvalidState) {
        // 409
    }

SEE ALSO:
  - worktime/errors.go: Rejections carrying compliance findings
  - api/handlers.go: HTTP status mapping
*/
package generic

import (
	"errors"
	"fmt"
	"strings"
)

// =============================================================================
// SENTINEL ERRORS - Use with errors.Is()
// =============================================================================

var (
	// ErrNotFound is returned when a referenced record doesn't exist.
	ErrNotFound = errors.New("not found")

	// ErrInvalidPeriod is returned when a period is malformed (end before start).
	ErrInvalidPeriod = errors.New("invalid period: end before start")

	// ErrValidation is returned for malformed input and rejected entries.
	ErrValidation = errors.New("validation failed")

	// ErrInvalidState is returned when a workflow transition is not allowed
	// from the record's current state.
	ErrInvalidState = errors.New("invalid state transition")

	// ErrDuplicate is returned when a uniqueness rule would be broken.
	ErrDuplicate = errors.New("duplicate record")

	// ErrEntryLocked is returned when an employee edits an entry outside
	// the directly editable window; a change request is required instead.
	ErrEntryLocked = errors.New("entry is locked")

	// ErrForbidden is returned when the actor may not perform the action.
	ErrForbidden = errors.New("forbidden")

	// ErrDecisionRequired is returned when an operation needs an explicit
	// choice from the caller before it can be applied.
	ErrDecisionRequired = errors.New("decision required")
)

// =============================================================================
// STRUCTURED ERRORS - Carry additional context
// =============================================================================

// ValidationError reports malformed input for a single field.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	if e.Field == "" {
		return "validation failed: " + e.Reason
	}
	return fmt.Sprintf("invalid %s: %s", e.Field, e.Reason)
}

func (e *ValidationError) Unwrap() error {
	return ErrValidation
}

// NotFoundError names the missing record.
type NotFoundError struct {
	Entity string
	ID     string
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("%s %q not found", e.Entity, e.ID)
}

func (e *NotFoundError) Unwrap() error {
	return ErrNotFound
}

// StateError reports a transition attempted from the wrong state.
type StateError struct {
	Entity  string
	ID      string
	Current string
	Wanted  string
}

func (e *StateError) Error() string {
	return fmt.Sprintf("%s %s is %s, must be %s", e.Entity, e.ID, e.Current, e.Wanted)
}

func (e *StateError) Unwrap() error {
	return ErrInvalidState
}

// DuplicateError names the uniqueness rule that would be broken.
type DuplicateError struct {
	Entity string
	Key    string
}

func (e *DuplicateError) Error() string {
	return fmt.Sprintf("%s already exists for %s", e.Entity, e.Key)
}

func (e *DuplicateError) Unwrap() error {
	return ErrDuplicate
}

// =============================================================================
// INTEGRITY WARNINGS - Not errors; surfaced to admins at edit time
// =============================================================================

type IntegrityWarning struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

func (w IntegrityWarning) String() string { return w.Code + ": " + w.Message }

// JoinWarnings renders warnings for logging.
func JoinWarnings(ws []IntegrityWarning) string {
	parts := make([]string, len(ws))
	for i, w := range ws {
		parts[i] = w.String()
	}
	return strings.Join(parts, "; ")
}

// =============================================================================
// ERROR HELPERS
// =============================================================================

// IsClientError returns true if the error is due to invalid client input.
func IsClientError(err error) bool {
	return errors.Is(err, ErrValidation) ||
		errors.Is(err, ErrInvalidPeriod)
}

// IsConflict returns true if the error conflicts with current stored state.
func IsConflict(err error) bool {
	return errors.Is(err, ErrInvalidState) ||
		errors.Is(err, ErrDuplicate) ||
		errors.Is(err, ErrDecisionRequired)
}

// IsNotFound returns true if the error indicates a missing resource.
func IsNotFound(err error) bool {
	return errors.Is(err, ErrNotFound)
}
