/*
store.go - Persistence interfaces for the ledger

PURPOSE:
  Defines the contract between the posting logic and the database. Journal
  entries are APPEND-ONLY: no Update, no Delete. Corrections happen through
  reversal entries, so the history always explains the present.

ATOMICITY:
  WithTx gives the poster all-or-nothing semantics for an entry plus its
  balance adjustments. A five-line repayment entry either lands with all
  five account balances moved, or nothing changes.

IMPLEMENTATIONS:
  - ledger/store/memory.go: In-memory, for tests
  - store/sqlite:           Embedded production store
  - store/postgres:         Server-backed production store
*/
package ledger

import (
	"context"
	"time"

	"github.com/meridian/lending-engine/money"
)

// =============================================================================
// STORES
// =============================================================================

// AccountStore persists the chart of accounts.
type AccountStore interface {
	SaveAccount(ctx context.Context, account Account) error
	Account(ctx context.Context, orgID, accountID string) (Account, error)
	AccountByCode(ctx context.Context, orgID, code string) (Account, error)
	Accounts(ctx context.Context, orgID string) ([]Account, error)

	// AdjustBalance atomically moves an account balance by delta. The
	// increment form lets SQL stores express it as a single UPDATE so
	// concurrent postings never lose movements.
	AdjustBalance(ctx context.Context, orgID, accountID string, delta money.Money) error
}

// RuleStore persists accounting rules, keyed by org and event type.
type RuleStore interface {
	SaveRule(ctx context.Context, rule Rule) error
	Rule(ctx context.Context, orgID string, event EventType) (Rule, error)
	Rules(ctx context.Context, orgID string) ([]Rule, error)
}

// EntryStore persists journal entries. Append-only: no update or delete
// methods exist, and none may be added.
type EntryStore interface {
	SaveEntry(ctx context.Context, entry Entry) error
	Entry(ctx context.Context, orgID, entryID string) (Entry, error)
	Entries(ctx context.Context, orgID string, filter EntryFilter) ([]Entry, error)

	// FindReversal returns the entry that reverses entryID, if one was
	// posted. Guards against double reversal.
	FindReversal(ctx context.Context, orgID, entryID string) (Entry, bool, error)
}

// EntryFilter narrows entry listings. Zero values match everything.
type EntryFilter struct {
	EventType EventType
	Reference string
	From      time.Time
	To        time.Time
}

// Store is the full ledger persistence contract.
type Store interface {
	AccountStore
	RuleStore
	EntryStore

	// WithTx runs fn against a transactional view of the store. An error
	// from fn rolls everything back.
	WithTx(ctx context.Context, fn func(Store) error) error
}
