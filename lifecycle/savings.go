/*
savings.go - Savings accounts

PURPOSE:
  Simple passbook savings alongside the loan book. Every deposit and
  withdrawal posts a journal entry through the same accounting rules as
  loans, so the cash position in the ledger always covers both books.
*/
package lifecycle

import (
	"time"

	"github.com/meridian/lending-engine/money"
)

type SavingsStatus string

const (
	SavingsActive SavingsStatus = "ACTIVE"
	SavingsClosed SavingsStatus = "CLOSED"
)

type SavingsAccount struct {
	ID         string
	OrgID      string
	CustomerID string

	Balance money.Money
	Status  SavingsStatus

	OpenedAt time.Time
}

type SavingsTxKind string

const (
	SavingsDeposit    SavingsTxKind = "DEPOSIT"
	SavingsWithdrawal SavingsTxKind = "WITHDRAWAL"
)

// SavingsTransaction is the passbook line for one movement.
type SavingsTransaction struct {
	ID        string
	OrgID     string
	AccountID string

	Kind   SavingsTxKind
	Amount money.Money

	// BalanceAfter is the running balance once this movement applied.
	BalanceAfter money.Money

	// EntryID links to the journal entry this movement posted.
	EntryID string

	ActorID    string
	OccurredAt time.Time
}
