/*
trial.go - Trial balance

PURPOSE:
  Reads the chart and presents each account's balance in the conventional
  debit/credit columns. A healthy ledger's two column totals match; a
  mismatch means the posting invariant was violated somewhere and is worth
  an alarm, not a shrug.
*/
package ledger

import (
	"context"
	"sort"

	"github.com/meridian/lending-engine/money"
)

// TrialBalanceRow is one account's line in the report.
type TrialBalanceRow struct {
	AccountID string
	Code      string
	Name      string
	Type      AccountType
	Debit     money.Money
	Credit    money.Money
}

// TrialBalanceReport is the full two-column statement for an org.
type TrialBalanceReport struct {
	OrgID        string
	Rows         []TrialBalanceRow
	TotalDebits  money.Money
	TotalCredits money.Money
}

// Balanced reports whether the columns agree.
func (r TrialBalanceReport) Balanced() bool {
	return r.TotalDebits.Equal(r.TotalCredits)
}

// TrialBalance builds the report from the org's chart, ordered by code.
// Accounts with a zero balance are included so a complete chart reads as a
// complete statement.
func TrialBalance(ctx context.Context, store AccountStore, orgID string) (TrialBalanceReport, error) {
	accounts, err := store.Accounts(ctx, orgID)
	if err != nil {
		return TrialBalanceReport{}, err
	}
	sort.Slice(accounts, func(i, j int) bool { return accounts[i].Code < accounts[j].Code })

	report := TrialBalanceReport{OrgID: orgID}
	for _, a := range accounts {
		row := TrialBalanceRow{AccountID: a.ID, Code: a.Code, Name: a.Name, Type: a.Type}

		// A positive stored balance sits on the account's normal side; a
		// negative one flips to the other column.
		side := a.Type.NormalSide()
		balance := a.Balance
		if balance.IsNegative() {
			side = side.Flip()
			balance = balance.Neg()
		}
		if side == Debit {
			row.Debit = balance
		} else {
			row.Credit = balance
		}

		report.TotalDebits = report.TotalDebits.Add(row.Debit)
		report.TotalCredits = report.TotalCredits.Add(row.Credit)
		report.Rows = append(report.Rows, row)
	}
	return report, nil
}
