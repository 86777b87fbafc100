/*
errors.go - Ledger error types

PURPOSE:
  Sentinel errors plus structured wrappers, so callers can match broad
  categories with errors.Is while handlers surface the specific detail.
*/
package ledger

import (
	"errors"
	"fmt"
)

// =============================================================================
// SENTINELS
// =============================================================================

var (
	ErrUnbalancedEntry       = errors.New("journal entry debits and credits do not balance")
	ErrUnknownAccount        = errors.New("account not found in organization's chart")
	ErrManualEntryNotAllowed = errors.New("account does not accept manual journal entries")
	ErrRuleNotFound          = errors.New("no accounting rule configured for event")
	ErrInvalidRule           = errors.New("accounting rule is invalid")
	ErrEntryNotFound         = errors.New("journal entry not found")
	ErrAlreadyReversed       = errors.New("journal entry already reversed")
	ErrEmptyEntry            = errors.New("journal entry needs at least one debit and one credit line")
)

// =============================================================================
// STRUCTURED ERRORS
// =============================================================================

// UnbalancedEntryError reports the two sides that failed to match.
type UnbalancedEntryError struct {
	Debits  string
	Credits string
}

func (e *UnbalancedEntryError) Error() string {
	return fmt.Sprintf("unbalanced entry: debits %s vs credits %s", e.Debits, e.Credits)
}

func (e *UnbalancedEntryError) Unwrap() error { return ErrUnbalancedEntry }

// UnknownAccountError identifies the offending account reference.
type UnknownAccountError struct {
	AccountID string
	OrgID     string
	Reason    string
}

func (e *UnknownAccountError) Error() string {
	return fmt.Sprintf("account %q unusable for org %q: %s", e.AccountID, e.OrgID, e.Reason)
}

func (e *UnknownAccountError) Unwrap() error { return ErrUnknownAccount }

// ManualEntryNotAllowedError names the protected account.
type ManualEntryNotAllowedError struct {
	AccountID string
}

func (e *ManualEntryNotAllowedError) Error() string {
	return fmt.Sprintf("account %q does not accept manual entries", e.AccountID)
}

func (e *ManualEntryNotAllowedError) Unwrap() error { return ErrManualEntryNotAllowed }

// RuleNotFoundError identifies the missing org/event pair.
type RuleNotFoundError struct {
	OrgID     string
	EventType EventType
}

func (e *RuleNotFoundError) Error() string {
	return fmt.Sprintf("no accounting rule for event %s in org %q", e.EventType, e.OrgID)
}

func (e *RuleNotFoundError) Unwrap() error { return ErrRuleNotFound }

// InvalidRuleError explains why a rule failed validation.
type InvalidRuleError struct {
	RuleID string
	Reason string
}

func (e *InvalidRuleError) Error() string {
	return fmt.Sprintf("invalid accounting rule %q: %s", e.RuleID, e.Reason)
}

func (e *InvalidRuleError) Unwrap() error { return ErrInvalidRule }

// IsClientError reports whether the error stems from bad input rather than
// an infrastructure failure.
func IsClientError(err error) bool {
	return errors.Is(err, ErrUnbalancedEntry) ||
		errors.Is(err, ErrUnknownAccount) ||
		errors.Is(err, ErrManualEntryNotAllowed) ||
		errors.Is(err, ErrRuleNotFound) ||
		errors.Is(err, ErrInvalidRule) ||
		errors.Is(err, ErrEntryNotFound) ||
		errors.Is(err, ErrAlreadyReversed) ||
		errors.Is(err, ErrEmptyEntry)
}
