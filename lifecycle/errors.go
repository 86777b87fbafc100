/*
errors.go - Lifecycle error types
*/
package lifecycle

import (
	"errors"
	"fmt"

	"github.com/meridian/lending-engine/engine"
	"github.com/meridian/lending-engine/ledger"
	"github.com/meridian/lending-engine/money"
)

// =============================================================================
// SENTINELS
// =============================================================================

var (
	ErrLoanNotFound         = errors.New("loan not found")
	ErrSavingsNotFound      = errors.New("savings account not found")
	ErrInvalidTransition    = errors.New("loan state does not allow this operation")
	ErrOverpaymentUnhandled = errors.New("payment exceeds total outstanding")
	ErrInsufficientFunds    = errors.New("withdrawal exceeds savings balance")
	ErrNoOpenInstallments   = errors.New("loan has no open installments")
)

// =============================================================================
// STRUCTURED ERRORS
// =============================================================================

// StateError reports an illegal state machine move.
type StateError struct {
	LoanID string
	From   LoanStatus
	To     LoanStatus
}

func (e *StateError) Error() string {
	return fmt.Sprintf("loan %s: cannot move from %s to %s", e.LoanID, e.From, e.To)
}

func (e *StateError) Unwrap() error { return ErrInvalidTransition }

// OverpaymentError carries the surplus that had nowhere to go. The payment
// was rejected in full; nothing was persisted.
type OverpaymentError struct {
	LoanID   string
	Leftover money.Money
}

func (e *OverpaymentError) Error() string {
	return fmt.Sprintf("loan %s: payment leaves %s unallocated after settling the schedule", e.LoanID, e.Leftover.StringFixed())
}

func (e *OverpaymentError) Unwrap() error { return ErrOverpaymentUnhandled }

// IsClientError reports whether the error stems from the caller's input or
// the loan's current state rather than an infrastructure failure.
func IsClientError(err error) bool {
	return errors.Is(err, ErrLoanNotFound) ||
		errors.Is(err, ErrSavingsNotFound) ||
		errors.Is(err, ErrInvalidTransition) ||
		errors.Is(err, ErrOverpaymentUnhandled) ||
		errors.Is(err, ErrInsufficientFunds) ||
		errors.Is(err, ErrNoOpenInstallments) ||
		engine.IsClientError(err) ||
		ledger.IsClientError(err)
}
