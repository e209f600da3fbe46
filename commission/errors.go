/*
errors.go - Error types for the commission engine

ERROR CATEGORIES:
  1. ValidationError - Malformed input, rejected before any computation
  2. ConfigError - Inconsistent scheme data (PxQ gap, bad lock). The
     affected item pays zero; the rest of the result is computed.
  3. CycleError - Lock dependency cycle, a ConfigError kind
  4. ConflictError - Mutation of an approved scheme in the catalogue

Only ValidationError ever leaves Compute as an error. ConfigErrors are
turned into Warnings on the result.
*/
package commission

import (
	"errors"
	"fmt"
	"strings"
)

// =============================================================================
// SENTINEL ERRORS - Use with errors.Is()
// =============================================================================

var (
	ErrValidation = errors.New("validation failed")
	ErrConfig     = errors.New("scheme configuration error")
	ErrCycle      = errors.New("lock dependency cycle")
	ErrConflict   = errors.New("conflict with immutable scheme")
	ErrNotFound   = errors.New("scheme not found")
)

// =============================================================================
// STRUCTURED ERRORS
// =============================================================================

// ValidationError reports malformed input.
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

// Config error codes, also used as Warning codes.
const (
	CodePxQNoTier        = "pxq_no_tier"
	CodePxQNoScale       = "pxq_no_scale"
	CodePxQNoQuota       = "pxq_no_quota"
	CodePxQGap           = "pxq_gap"
	CodeLockCycle        = "lock_cycle"
	CodeLockUnknownItem  = "lock_unknown_item"
	CodeLockUnknownType  = "lock_unknown_type"
	CodeRestrictionType  = "restriction_unknown_type"
	CodeUnknownSalesItem = "sales_unknown_item"
	CodeBelowItemMinimum = "below_item_minimum"
	CodeZeroQuota        = "zero_quota"
	CodeRestriction      = "restriction_minimum"
	CodeGlobalGate       = "global_min_fulfillment"
)

// ConfigError reports scheme data that can't be evaluated for an item.
type ConfigError struct {
	ItemID  ItemID
	Code    string
	Message string
}

func (e *ConfigError) Error() string {
	if e.ItemID == "" {
		return fmt.Sprintf("config %s: %s", e.Code, e.Message)
	}
	return fmt.Sprintf("config %s on %s: %s", e.Code, e.ItemID, e.Message)
}

func (e *ConfigError) Unwrap() error { return ErrConfig }

func (e *ConfigError) Warning() Warning {
	return Warning{ItemID: e.ItemID, Code: e.Code, Message: e.Message}
}

// CycleError reports a lock cycle. Path starts and ends on the same item.
type CycleError struct {
	Path []ItemID
}

func (e *CycleError) Error() string {
	parts := make([]string, len(e.Path))
	for i, id := range e.Path {
		parts[i] = string(id)
	}
	return "lock cycle: " + strings.Join(parts, " -> ")
}

// Is lets errors.Is match both ErrCycle and ErrConfig.
func (e *CycleError) Is(target error) bool {
	return target == ErrCycle || target == ErrConfig
}

// Contains reports whether id is on the cycle.
func (e *CycleError) Contains(id ItemID) bool {
	for _, p := range e.Path {
		if p == id {
			return true
		}
	}
	return false
}

// ConflictError reports an attempt to change an approved scheme.
type ConflictError struct {
	SchemeID SchemeID
	Status   SchemeStatus
}

func (e *ConflictError) Error() string {
	return fmt.Sprintf("scheme %s is %s and cannot be modified", e.SchemeID, e.Status)
}

func (e *ConflictError) Unwrap() error { return ErrConflict }

// =============================================================================
// ERROR HELPERS
// =============================================================================

func IsClientError(err error) bool { return errors.Is(err, ErrValidation) }
func IsConfigError(err error) bool { return errors.Is(err, ErrConfig) }
func IsConflict(err error) bool    { return errors.Is(err, ErrConflict) }
func IsNotFound(err error) bool    { return errors.Is(err, ErrNotFound) }
