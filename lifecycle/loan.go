/*
loan.go - Loan aggregate and state machine

PURPOSE:
  A Loan carries its frozen contractual terms plus its position in the
  lifecycle state machine:

    SUBMITTED --> APPROVED --> DISBURSED --> CLOSED
        |
        +--> REJECTED

  Terms are immutable once the loan is submitted; a changed deal is a
  reschedule, which cancels the open tail of the schedule and regenerates
  it. Money only moves at DISBURSED and on repayments, and every movement
  goes through the ledger poster.

SEE ALSO:
  - service.go: Operations that drive the transitions
  - overdue.go: OVERDUE marking and penalty assessment
*/
package lifecycle

import (
	"time"

	"github.com/meridian/lending-engine/engine"
	"github.com/meridian/lending-engine/money"
)

// =============================================================================
// STATUS
// =============================================================================

type LoanStatus string

const (
	LoanSubmitted LoanStatus = "SUBMITTED"
	LoanApproved  LoanStatus = "APPROVED"
	LoanRejected  LoanStatus = "REJECTED"
	LoanDisbursed LoanStatus = "DISBURSED"
	LoanClosed    LoanStatus = "CLOSED"
)

// transitions lists the legal moves. Anything absent is rejected.
var transitions = map[LoanStatus][]LoanStatus{
	LoanSubmitted: {LoanApproved, LoanRejected},
	LoanApproved:  {LoanDisbursed},
	LoanDisbursed: {LoanClosed},
}

func (s LoanStatus) canTransitionTo(to LoanStatus) bool {
	for _, next := range transitions[s] {
		if next == to {
			return true
		}
	}
	return false
}

// Active reports whether the loan still carries a live schedule.
func (s LoanStatus) Active() bool { return s == LoanDisbursed }

// =============================================================================
// LOAN
// =============================================================================

type Loan struct {
	ID         string
	OrgID      string
	BorrowerID string
	ProductID  string

	// Terms are frozen at submission. The schedule is generated from them
	// exactly once, at disbursement.
	Terms engine.LoanTerms

	// Penalty prices lateness for this loan, copied from the product at
	// submission so later product edits don't rewrite live contracts.
	Penalty engine.PenaltyPolicy

	Status LoanStatus

	SubmittedAt time.Time
	ApprovedAt  time.Time
	ApprovedBy  string
	DisbursedAt time.Time
	ClosedAt    time.Time
}

func (l *Loan) transition(to LoanStatus, at time.Time) error {
	if !l.Status.canTransitionTo(to) {
		return &StateError{LoanID: l.ID, From: l.Status, To: to}
	}
	l.Status = to
	switch to {
	case LoanApproved:
		l.ApprovedAt = at
	case LoanDisbursed:
		l.DisbursedAt = at
	case LoanClosed:
		l.ClosedAt = at
	}
	return nil
}

// Repayment is the audit record of one payment applied to a loan.
type Repayment struct {
	ID     string
	OrgID  string
	LoanID string

	Amount    money.Money
	Principal money.Money
	Interest  money.Money
	Fees      money.Money
	Penalties money.Money

	// EntryID links to the journal entry this payment posted.
	EntryID string

	ActorID    string
	ReceivedAt time.Time
}
