/*
store.go - Persistence interfaces for the loan and savings books

PURPOSE:
  The contract between the lifecycle service and the database. Instead of a
  generic transaction wrapper, the interface names the atomic operations the
  domain needs: activating a loan writes the loan row and its full schedule
  together, applying a repayment writes the loan, the touched installments
  and the audit record together. A store either lands the whole operation or
  none of it.

IMPLEMENTATIONS:
  - lifecycle/store/memory.go: In-memory, for tests
  - store/sqlite:              Embedded production store
  - store/postgres:            Server-backed production store
*/
package lifecycle

import (
	"context"

	"github.com/meridian/lending-engine/engine"
)

// LoanFilter narrows loan listings. Zero values match everything.
type LoanFilter struct {
	Status     LoanStatus
	BorrowerID string
}

// LoanStore persists loans, schedules and repayment records.
type LoanStore interface {
	SaveLoan(ctx context.Context, loan Loan) error
	Loan(ctx context.Context, orgID, loanID string) (Loan, error)
	Loans(ctx context.Context, orgID string, filter LoanFilter) ([]Loan, error)

	// Installments returns the loan's schedule in installment order.
	Installments(ctx context.Context, orgID, loanID string) ([]engine.Installment, error)

	// ActivateLoan atomically writes the disbursed loan and its generated
	// schedule.
	ActivateLoan(ctx context.Context, loan Loan, schedule []engine.Installment) error

	// ApplyRepayment atomically writes the updated loan, the full updated
	// schedule and the repayment audit record.
	ApplyRepayment(ctx context.Context, loan Loan, schedule []engine.Installment, repayment Repayment) error

	// ReplaceSchedule atomically writes the loan and swaps its schedule,
	// used by reschedules and overdue assessment.
	ReplaceSchedule(ctx context.Context, loan Loan, schedule []engine.Installment) error

	Repayments(ctx context.Context, orgID, loanID string) ([]Repayment, error)
}

// SavingsStore persists savings accounts and their passbook.
type SavingsStore interface {
	SaveSavingsAccount(ctx context.Context, account SavingsAccount) error
	SavingsAccount(ctx context.Context, orgID, accountID string) (SavingsAccount, error)
	SavingsAccounts(ctx context.Context, orgID string) ([]SavingsAccount, error)

	// ApplySavingsTransaction atomically writes the updated account and the
	// passbook line.
	ApplySavingsTransaction(ctx context.Context, account SavingsAccount, tx SavingsTransaction) error

	SavingsTransactions(ctx context.Context, orgID, accountID string) ([]SavingsTransaction, error)
}

// Store is the full lifecycle persistence contract.
type Store interface {
	LoanStore
	SavingsStore
}
