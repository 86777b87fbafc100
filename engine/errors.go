/*
errors.go - Centralized error types for the loan engine

PURPOSE:
  All engine error kinds in one place. The lifecycle and API layers should
  wrap these with their own context and map them to user-facing responses.

ERROR CATEGORIES:
  1. Terms errors      - malformed loan terms (InvalidTerms)
  2. Amount errors     - non-positive payment or penalty inputs (InvalidAmount)
  3. Policy errors     - unrecognized penalty policy (InvalidPolicy)

USAGE:
  if errors.Is(err, engine.ErrInvalidTerms) {
      // reject the request, nothing was computed
  }

The engine fails fast: a bad input yields a typed error, never a silently
clamped value. A negative payment is rejected, not treated as zero.
*/
package engine

import (
	"errors"
	"fmt"
)

// =============================================================================
// SENTINEL ERRORS - Use with errors.Is()
// =============================================================================

var (
	// ErrInvalidTerms is returned when loan terms cannot produce a schedule:
	// non-positive principal, zero installments, grace exceeding the term.
	ErrInvalidTerms = errors.New("invalid loan terms")

	// ErrInvalidAmount is returned for a non-positive payment or a negative
	// penalty input.
	ErrInvalidAmount = errors.New("invalid amount")

	// ErrInvalidPolicy is returned for an unrecognized penalty policy.
	ErrInvalidPolicy = errors.New("invalid penalty policy")
)

// =============================================================================
// STRUCTURED ERRORS - Carry additional context
// =============================================================================

// InvalidTermsError names the offending field.
type InvalidTermsError struct {
	Field  string
	Reason string
}

func (e *InvalidTermsError) Error() string {
	return fmt.Sprintf("invalid loan terms: %s %s", e.Field, e.Reason)
}

func (e *InvalidTermsError) Unwrap() error { return ErrInvalidTerms }

// InvalidAmountError carries the rejected value.
type InvalidAmountError struct {
	What  string
	Value string
}

func (e *InvalidAmountError) Error() string {
	return fmt.Sprintf("invalid %s: %s", e.What, e.Value)
}

func (e *InvalidAmountError) Unwrap() error { return ErrInvalidAmount }

// InvalidPolicyError carries the unknown policy identifier.
type InvalidPolicyError struct {
	Policy string
}

func (e *InvalidPolicyError) Error() string {
	return fmt.Sprintf("invalid penalty policy: %q", e.Policy)
}

func (e *InvalidPolicyError) Unwrap() error { return ErrInvalidPolicy }

// =============================================================================
// ERROR HELPERS
// =============================================================================

// IsClientError returns true if the error is due to invalid caller input
// rather than an internal failure.
func IsClientError(err error) bool {
	return errors.Is(err, ErrInvalidTerms) ||
		errors.Is(err, ErrInvalidAmount) ||
		errors.Is(err, ErrInvalidPolicy)
}
