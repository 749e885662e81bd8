/*
errors.go - Centralized error types for the ledger

ERROR CATEGORIES:
  1. Validation - malformed or out-of-range input (HTTP 400)
  2. Not found  - referenced child/workbook does not exist (HTTP 404)
  3. Conflict   - duplicate child name, duplicate completion (HTTP 400)
  4. Storage    - any other store failure (HTTP 500)

USAGE:
  Every specific error unwraps to exactly one category sentinel:

    if errors.Is(err, ledger.ErrNotFound) {
        // 404
    }
    if errors.Is(err, ledger.ErrAlreadyCompleted) {
        // more specific
    }

SEE ALSO:
  - validate.go: Produces *ValidationError
  - store/store.go: Maps driver constraint errors to these sentinels
*/
package ledger

import (
	"errors"
	"fmt"
)

// =============================================================================
// CATEGORY SENTINELS - Use with errors.Is()
// =============================================================================

var (
	ErrValidation = errors.New("validation failed")
	ErrNotFound   = errors.New("not found")
	ErrConflict   = errors.New("conflict")
	ErrStorage    = errors.New("storage failure")
)

// =============================================================================
// SPECIFIC SENTINELS
// =============================================================================

var (
	// ErrChildNotFound is returned when a child id does not exist.
	ErrChildNotFound error = &kindError{msg: "Child not found", kind: ErrNotFound}

	// ErrWorkbookNotFound is returned when a workbook id does not exist.
	ErrWorkbookNotFound error = &kindError{msg: "Workbook not found", kind: ErrNotFound}

	// ErrDuplicateChildName is returned when a child with the same name exists.
	ErrDuplicateChildName error = &kindError{msg: "A child with this name already exists", kind: ErrConflict}

	// ErrAlreadyCompleted is returned when the (child, workbook) pair already
	// has a completion record.
	ErrAlreadyCompleted error = &kindError{msg: "This workbook has already been completed by this child", kind: ErrConflict}
)

type kindError struct {
	msg  string
	kind error
}

func (e *kindError) Error() string { return e.msg }

func (e *kindError) Unwrap() error { return e.kind }

// =============================================================================
// STRUCTURED ERRORS - Carry additional context
// =============================================================================

// ValidationError describes a single rejected input field.
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

func (e *ValidationError) Unwrap() error {
	return ErrValidation
}

// StorageError wraps a failure of the underlying store that has no more
// specific meaning.
type StorageError struct {
	Op  string
	Err error
}

func (e *StorageError) Error() string {
	return fmt.Sprintf("storage: %s: %v", e.Op, e.Err)
}

func (e *StorageError) Unwrap() []error {
	return []error{ErrStorage, e.Err}
}

// =============================================================================
// ERROR HELPERS
// =============================================================================

// IsValidation returns true if the error is due to invalid client input.
func IsValidation(err error) bool {
	return errors.Is(err, ErrValidation)
}

// IsNotFound returns true if the error indicates a missing child or workbook.
func IsNotFound(err error) bool {
	return errors.Is(err, ErrNotFound)
}

// IsConflict returns true if the error violates a uniqueness invariant.
func IsConflict(err error) bool {
	return errors.Is(err, ErrConflict)
}
