/*
entry.go - Journal entries

PURPOSE:
  A journal entry is the unit of posting: two or more lines whose debits and
  credits balance to the cent. Entries are immutable once written; a mistake
  is corrected by posting a reversal entry with every side flipped, never by
  editing.

SEE ALSO:
  - poster.go: Validation and balance maintenance
  - rule.go: How business events expand into entries
*/
package ledger

import (
	"time"

	"github.com/meridian/lending-engine/money"
)

// =============================================================================
// SIDES
// =============================================================================

type Side string

const (
	Debit  Side = "DEBIT"
	Credit Side = "CREDIT"
)

func (s Side) Valid() bool { return s == Debit || s == Credit }

// Flip returns the opposite side, used when building reversals.
func (s Side) Flip() Side {
	if s == Debit {
		return Credit
	}
	return Debit
}

// =============================================================================
// LINES AND ENTRIES
// =============================================================================

// Line is one leg of a journal entry. Amounts are always positive; direction
// is carried by Side.
type Line struct {
	AccountID string
	Side      Side
	Amount    money.Money

	// Component records which money component of the source event produced
	// this line. Empty for manual entries.
	Component Component
}

// Entry is an immutable, balanced journal entry.
type Entry struct {
	ID    string
	OrgID string

	// EventType is the business event that produced this entry, or
	// EventManual for hand-written entries.
	EventType EventType

	// Reference ties the entry back to its source record (loan ID,
	// savings account ID). Free-form for manual entries.
	Reference string
	Memo      string

	Lines []Line

	// ReversalOf holds the reversed entry's ID when this entry is a
	// correction. Empty otherwise.
	ReversalOf string

	ActorID  string
	PostedAt time.Time
}

// IsReversal reports whether the entry corrects an earlier one.
func (e Entry) IsReversal() bool { return e.ReversalOf != "" }

// TotalDebits sums the debit legs.
func (e Entry) TotalDebits() money.Money {
	return e.totalSide(Debit)
}

// TotalCredits sums the credit legs.
func (e Entry) TotalCredits() money.Money {
	return e.totalSide(Credit)
}

func (e Entry) totalSide(side Side) money.Money {
	total := money.Zero
	for _, l := range e.Lines {
		if l.Side == side {
			total = total.Add(l.Amount)
		}
	}
	return total
}
