// Package domain defines domain-level errors for the valuation feature.
package domain

import (
	"errors"
	"fmt"
)

// Error categories. Every typed error below matches exactly one of these with errors.Is.
var (
	// ErrValidation indicates a malformed or out-of-range input field.
	ErrValidation = errors.New("validation error")

	// ErrNotFound indicates that a requested line item or term is absent.
	ErrNotFound = errors.New("not found")

	// ErrFailure indicates that a computation precondition was violated,
	// e.g. a zero or undefined denominator.
	ErrFailure = errors.New("computation failure")
)

// Row-level parse errors reported by the extraction pipeline.
var (
	ErrLastPriceParse   = errors.New("failed to parse last price")
	ErrMarketWorthParse = errors.New("failed to parse market worth")
	ErrPublicRatioParse = errors.New("failed to parse public ratio")
	ErrCapitalParse     = errors.New("failed to parse capital")
	ErrPEParse          = errors.New("failed to parse PE")
	ErrPBParse          = errors.New("failed to parse PB")
)

// Value type errors.
var (
	ErrCompanyCode    = errors.New("failed to parse company code")
	ErrName           = errors.New("invalid name")
	ErrSectorID       = errors.New("sector id must be positive")
	ErrNegativePrice  = errors.New("price must not be negative")
	ErrOwnershipRange = errors.New("public ownership ratio must be between 0 and 100")
	ErrCurrency       = errors.New("unsupported currency")
	ErrTermFormat     = errors.New("invalid term format, expected M/YYYY with a quarter-end month")
	ErrMixedCurrency  = errors.New("valuations must share one currency")
	ErrSectorListRead = errors.New("failed to parse sector list")
)

// ValidationError reports a malformed or out-of-range field.
type ValidationError struct {
	Field string
	Value string
	Err   error
}

// NewValidationError returns a ValidationError for field carrying the specific sentinel err.
func NewValidationError(field, value string, err error) *ValidationError {
	return &ValidationError{Field: field, Value: value, Err: err}
}

func (e *ValidationError) Error() string {
	if e.Value == "" {
		return fmt.Sprintf("%s: %v", e.Field, e.Err)
	}
	return fmt.Sprintf("%s %q: %v", e.Field, e.Value, e.Err)
}

func (e *ValidationError) Unwrap() error { return e.Err }

func (e *ValidationError) Is(target error) bool { return target == ErrValidation }

// NotFoundError reports an absent financial line item or term value.
type NotFoundError struct {
	Item   string
	Reason string
}

// NewNotFoundError returns a NotFoundError for item.
func NewNotFoundError(item, reason string) *NotFoundError {
	return &NotFoundError{Item: item, Reason: reason}
}

func (e *NotFoundError) Error() string {
	if e.Reason == "" {
		return fmt.Sprintf("%s: not found", e.Item)
	}
	return fmt.Sprintf("%s: not found: %s", e.Item, e.Reason)
}

func (e *NotFoundError) Is(target error) bool { return target == ErrNotFound }

// FailureError reports a computation whose preconditions do not hold.
type FailureError struct {
	Op     string
	Reason string
	Err    error
}

// NewFailureError returns a FailureError for op, optionally wrapping a cause.
func NewFailureError(op, reason string, cause error) *FailureError {
	return &FailureError{Op: op, Reason: reason, Err: cause}
}

func (e *FailureError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Op, e.Reason, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Op, e.Reason)
}

func (e *FailureError) Unwrap() error { return e.Err }

func (e *FailureError) Is(target error) bool { return target == ErrFailure }
