/*
schedule.go - Repayment schedule generation

PURPOSE:
  Turns frozen LoanTerms into the ordered installment list for the loan.
  This is pure computation: the caller persists the result inside its own
  transaction, exactly once, at disbursement.

INTEREST CONVENTIONS:
  FLAT:
    Total interest = principal x periodic rate x installment count, charged
    on the original principal for the whole term. Principal and interest are
    each split evenly across their non-grace installments.

  DECLINING_BALANCE_EQUAL_INSTALLMENT (EMI):
    Constant payment from the annuity formula P = B*r*(1+r)^n / ((1+r)^n - 1)
    over the post-grace periods; each row's interest is balance x rate and
    principal is the remainder of the payment.

  DECLINING_BALANCE_EQUAL_PRINCIPAL:
    Constant principal slice; interest computed on the declining balance.

ROUNDING:
  Every due figure is rounded half up at the policy's minor-unit precision
  the moment it is computed. The running outstanding balance decreases by the
  ROUNDED principal, so the balance always agrees with the posted rows, and
  the final installment repays exactly what remains. That single adjustment
  is what guarantees sum(principalDue) == terms.Principal to the cent. For
  FLAT the interest total is pinned the same way.

GRACE PERIODS:
  The first PrincipalGrace rows carry no principal; the first InterestGrace
  rows carry no interest. Amortization math runs over the remaining rows.
*/
package engine

import (
	"github.com/shopspring/decimal"

	"github.com/meridian/lending-engine/money"
)

var one = decimal.NewFromInt(1)

// GenerateSchedule produces the full installment list for the terms.
// Fails with ErrInvalidTerms before computing anything.
func GenerateSchedule(terms LoanTerms) ([]Installment, error) {
	if err := terms.Validate(); err != nil {
		return nil, err
	}

	switch terms.Method {
	case MethodFlat:
		return flatSchedule(terms), nil
	case MethodDecliningEqualInstallment:
		return decliningEqualInstallmentSchedule(terms), nil
	case MethodDecliningEqualPrincipal:
		return decliningEqualPrincipalSchedule(terms), nil
	}
	// Validate() already rejected unknown methods.
	return nil, &InvalidTermsError{Field: "interest_method", Reason: "unknown method " + string(terms.Method)}
}

// ScheduleTotals sums the due columns of a schedule.
type ScheduleTotals struct {
	Principal money.Money
	Interest  money.Money
	Fees      money.Money
	Repayment money.Money
}

// Totals computes the schedule's principal/interest/fee totals.
func Totals(schedule []Installment) ScheduleTotals {
	var t ScheduleTotals
	for _, inst := range schedule {
		t.Principal = t.Principal.Add(inst.PrincipalDue)
		t.Interest = t.Interest.Add(inst.InterestDue)
		t.Fees = t.Fees.Add(inst.FeeDue)
	}
	t.Repayment = money.Sum(t.Principal, t.Interest, t.Fees)
	return t
}

// =============================================================================
// FLAT
// =============================================================================

func flatSchedule(terms LoanTerms) []Installment {
	rp := terms.Rounding
	rate := terms.PeriodicRate()
	n := terms.Installments

	principalRows := n - terms.PrincipalGrace
	interestRows := n - terms.InterestGrace

	// Interest totals are pinned for FLAT: the theoretical total is fixed up
	// front and the final row absorbs the split's rounding error.
	totalInterest := money.Zero
	perInterest := money.Zero
	if interestRows > 0 {
		totalInterest = rp.round(terms.Principal.MulDecimal(rate).MulDecimal(decimal.NewFromInt(int64(n))))
		perInterest = rp.round(totalInterest.DivInt(int64(interestRows)))
	}
	perPrincipal := rp.round(terms.Principal.DivInt(int64(principalRows)))

	schedule := make([]Installment, 0, n)
	paidOutPrincipal := money.Zero
	paidOutInterest := money.Zero

	for i := 1; i <= n; i++ {
		principalDue := money.Zero
		if i > terms.PrincipalGrace {
			if i == n {
				principalDue = terms.Principal.Sub(paidOutPrincipal)
			} else {
				principalDue = perPrincipal
			}
		}

		interestDue := money.Zero
		if i > terms.InterestGrace {
			if i == n {
				interestDue = totalInterest.Sub(paidOutInterest)
			} else {
				interestDue = perInterest
			}
		}

		paidOutPrincipal = paidOutPrincipal.Add(principalDue)
		paidOutInterest = paidOutInterest.Add(interestDue)

		schedule = append(schedule, newRow(terms, i, principalDue, interestDue))
	}
	return schedule
}

// =============================================================================
// DECLINING BALANCE - EQUAL INSTALLMENT (EMI)
// =============================================================================

func decliningEqualInstallmentSchedule(terms LoanTerms) []Installment {
	rp := terms.Rounding
	rate := terms.PeriodicRate()
	n := terms.Installments
	amortizing := int64(n - terms.PrincipalGrace)

	payment := annuityPayment(terms.Principal, amortizing, rate)

	outstanding := terms.Principal
	schedule := make([]Installment, 0, n)

	for i := 1; i <= n; i++ {
		interestRaw := outstanding.MulDecimal(rate)

		principalDue := money.Zero
		if i > terms.PrincipalGrace {
			if i == n {
				// The final row repays exactly the remaining balance,
				// overriding the formulaic value.
				principalDue = outstanding
			} else {
				principalDue = money.Min(rp.round(payment.Sub(interestRaw)), outstanding)
			}
			outstanding = outstanding.Sub(principalDue)
		}

		interestDue := money.Zero
		if i > terms.InterestGrace {
			interestDue = rp.round(interestRaw)
		}

		schedule = append(schedule, newRow(terms, i, principalDue, interestDue))
	}
	return schedule
}

// annuityPayment computes the constant per-period payment. For a zero rate
// the annuity degenerates to a straight split.
func annuityPayment(principal money.Money, periods int64, rate decimal.Decimal) money.Money {
	if rate.IsZero() {
		return principal.DivInt(periods)
	}
	pow := one.Add(rate).Pow(decimal.NewFromInt(periods))
	return principal.MulDecimal(rate).MulDecimal(pow).DivDecimal(pow.Sub(one))
}

// =============================================================================
// DECLINING BALANCE - EQUAL PRINCIPAL
// =============================================================================

func decliningEqualPrincipalSchedule(terms LoanTerms) []Installment {
	rp := terms.Rounding
	rate := terms.PeriodicRate()
	n := terms.Installments
	amortizing := int64(n - terms.PrincipalGrace)

	perPrincipal := rp.round(terms.Principal.DivInt(amortizing))

	outstanding := terms.Principal
	schedule := make([]Installment, 0, n)

	for i := 1; i <= n; i++ {
		interestDue := money.Zero
		if i > terms.InterestGrace {
			interestDue = rp.round(outstanding.MulDecimal(rate))
		}

		principalDue := money.Zero
		if i > terms.PrincipalGrace {
			if i == n {
				principalDue = outstanding
			} else {
				principalDue = money.Min(perPrincipal, outstanding)
			}
			outstanding = outstanding.Sub(principalDue)
		}

		schedule = append(schedule, newRow(terms, i, principalDue, interestDue))
	}
	return schedule
}

func newRow(terms LoanTerms, number int, principalDue, interestDue money.Money) Installment {
	return Installment{
		Number:       number,
		DueDate:      DueDate(terms.FirstDueDate, terms.Frequency, terms.RepeatEvery, number),
		PrincipalDue: principalDue,
		InterestDue:  interestDue,
		Status:       StatusPending,
	}
}
