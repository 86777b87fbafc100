/*
account.go - Chart of accounts

PURPOSE:
  Accounts are the destinations journal lines post to. Each belongs to one
  organization and one of the five fundamental types, which determines its
  normal balance side: a debit to an asset grows it, a debit to income
  shrinks it.

SEE ALSO:
  - entry.go: Journal entries and lines
  - poster.go: Balance maintenance on posting
*/
package ledger

import (
	"time"

	"github.com/meridian/lending-engine/money"
)

// =============================================================================
// ACCOUNT TYPES
// =============================================================================

type AccountType string

const (
	TypeAsset     AccountType = "ASSET"
	TypeLiability AccountType = "LIABILITY"
	TypeEquity    AccountType = "EQUITY"
	TypeIncome    AccountType = "INCOME"
	TypeExpense   AccountType = "EXPENSE"
)

func (t AccountType) Valid() bool {
	switch t {
	case TypeAsset, TypeLiability, TypeEquity, TypeIncome, TypeExpense:
		return true
	}
	return false
}

// NormalSide is the side on which balances of this type grow.
// Assets and expenses are debit-normal; the rest are credit-normal.
func (t AccountType) NormalSide() Side {
	switch t {
	case TypeAsset, TypeExpense:
		return Debit
	default:
		return Credit
	}
}

// =============================================================================
// ACCOUNT
// =============================================================================

// Account is one ledger account within an organization's chart.
type Account struct {
	ID    string
	OrgID string

	// Code is the human chart code ("1010"), unique within the org.
	Code string
	Name string
	Type AccountType

	// Balance is maintained by the poster, signed by the normal side:
	// positive means the account holds a balance on its normal side.
	Balance money.Money

	// Active accounts accept postings. Deactivated accounts keep their
	// history but reject new lines.
	Active bool

	// AllowManual permits lines from manual journal entries. System
	// accounts typically keep this off so only rule-driven events touch
	// them.
	AllowManual bool

	CreatedAt time.Time
}

// SignedDelta converts a posted line amount into the balance movement for
// this account: a posting on the normal side increases the balance.
func (a Account) SignedDelta(side Side, amount money.Money) money.Money {
	if side == a.Type.NormalSide() {
		return amount
	}
	return amount.Neg()
}
