/*
penalty.go - Overdue penalty computation

PURPOSE:
  Computes the penalty owed on an overdue amount under a product's penalty
  policy. Stateless and clock-free: the caller decides what is overdue and
  for how many days (using its injected clock) and this function only prices
  it.

POLICIES:
  FLAT_FEE:             a fixed configured amount, independent of the overdue
                        amount and of how late it is.
  PERCENTAGE_OF_AMOUNT: overdue x annual rate x days / 365, i.e. simple
                        interest on the overdue amount at the penalty rate.
*/
package engine

import (
	"github.com/shopspring/decimal"

	"github.com/meridian/lending-engine/money"
)

type PenaltyPolicyType string

const (
	PenaltyFlatFee            PenaltyPolicyType = "FLAT_FEE"
	PenaltyPercentageOfAmount PenaltyPolicyType = "PERCENTAGE_OF_AMOUNT"
)

var daysInYear = decimal.NewFromInt(365)

// PenaltyPolicy configures how lateness is priced.
type PenaltyPolicy struct {
	Type PenaltyPolicyType

	// FlatAmount applies to FLAT_FEE.
	FlatAmount money.Money

	// AnnualRate applies to PERCENTAGE_OF_AMOUNT, as a decimal fraction.
	AnnualRate decimal.Decimal

	Rounding RoundingPolicy
}

// Penalty prices an overdue amount. Fails with ErrInvalidAmount for negative
// inputs and ErrInvalidPolicy for an unrecognized policy type.
func Penalty(overdue money.Money, daysOverdue int, policy PenaltyPolicy) (money.Money, error) {
	if overdue.IsNegative() {
		return money.Zero, &InvalidAmountError{What: "overdue amount", Value: overdue.String()}
	}
	if daysOverdue < 0 {
		return money.Zero, &InvalidAmountError{What: "days overdue", Value: decimal.NewFromInt(int64(daysOverdue)).String()}
	}

	switch policy.Type {
	case PenaltyFlatFee:
		return policy.Rounding.round(policy.FlatAmount), nil
	case PenaltyPercentageOfAmount:
		days := decimal.NewFromInt(int64(daysOverdue))
		raw := overdue.MulDecimal(policy.AnnualRate).MulDecimal(days).DivDecimal(daysInYear)
		return policy.Rounding.round(raw), nil
	}
	return money.Zero, &InvalidPolicyError{Policy: string(policy.Type)}
}
