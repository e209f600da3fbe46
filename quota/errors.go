/*
errors.go - Error types for quota distribution

ERROR CATEGORIES:
  1. Validation errors - Inconsistent input, nothing is applied
  2. Conflict errors - Mutation of an approved (immutable) quota
  3. Not found - Referenced StoreQuota does not exist

USAGE:
  rows, err := quota.Distribute(sq, shares)
  var verr *quota.ValidationError
  if errors.As(err, &verr) {
      // show verr.Field / verr.Message to the user
  }
*/
package quota

import (
	"errors"
	"fmt"
)

// =============================================================================
// SENTINEL ERRORS - Use with errors.Is()
// =============================================================================

var (
	// ErrValidation is wrapped by every ValidationError.
	ErrValidation = errors.New("validation failed")

	// ErrConflict is wrapped by every ConflictError.
	ErrConflict = errors.New("conflict with immutable state")

	// ErrNotFound is returned when a referenced StoreQuota doesn't exist.
	ErrNotFound = errors.New("store quota not found")
)

// =============================================================================
// STRUCTURED ERRORS
// =============================================================================

// ValidationError reports malformed or inconsistent input.
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	if e.Field == "" {
		return "validation: " + e.Message
	}
	return fmt.Sprintf("validation: %s: %s", e.Field, e.Message)
}

func (e *ValidationError) Unwrap() error { return ErrValidation }

// ConflictError reports an attempted mutation of an approved quota.
type ConflictError struct {
	StoreQuotaID StoreQuotaID
	Status       Status
	Action       string
}

func (e *ConflictError) Error() string {
	return fmt.Sprintf("cannot %s store quota %s: status is %s", e.Action, e.StoreQuotaID, e.Status)
}

func (e *ConflictError) Unwrap() error { return ErrConflict }

// SumMismatchError is the ValidationError raised when seller shares don't
// add up to the store quota.
func SumMismatchError(expected, got int) *ValidationError {
	return &ValidationError{
		Field:   "ss_quota",
		Message: fmt.Sprintf("seller quotas sum to %d, store quota is %d", got, expected),
	}
}

// =============================================================================
// ERROR HELPERS
// =============================================================================

func IsClientError(err error) bool { return errors.Is(err, ErrValidation) }
func IsConflict(err error) bool    { return errors.Is(err, ErrConflict) }
func IsNotFound(err error) bool    { return errors.Is(err, ErrNotFound) }
