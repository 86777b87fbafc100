/*
Package engine provides the core loan computation engine.

PURPOSE:
  This package contains the pure, deterministic algorithms behind every loan:
  schedule generation under multiple interest conventions, payment allocation
  across outstanding obligations, and overdue penalty computation. The same
  engine serves every loan product; a product is a configuration (interest
  method, frequency, grace, rounding policy), never a code fork.

KEY CONCEPTS IN THIS FILE (types.go):
  - LoanTerms: the frozen contract a schedule is generated from
  - Installment: one scheduled repayment row with due/paid counters
  - InterestMethod / Frequency: the conventions a product selects
  - RoundingPolicy: minor-unit precision applied at every computation point

DESIGN PRINCIPLES:
  1. Purity: no I/O, no clocks, no stores. Callers inject dates and persist
     results inside their own transaction.
  2. Immutability: LoanTerms never change after a schedule exists; Allocate
     returns updated copies rather than mutating inputs.
  3. Exactness: all money figures are money.Money; the schedule's principal
     column sums to the loan principal to the cent.

SEE ALSO:
  - schedule.go: schedule generation per interest method
  - allocate.go: the repayment waterfall
  - penalty.go: overdue penalty policies
  - dates.go: due-date arithmetic
*/
package engine

import (
	"time"

	"github.com/shopspring/decimal"

	"github.com/meridian/lending-engine/money"
)

// =============================================================================
// INTEREST METHOD - How interest accrues over the schedule
// =============================================================================

type InterestMethod string

const (
	// MethodFlat charges interest on the original principal for the full
	// term, regardless of amortization progress.
	MethodFlat InterestMethod = "FLAT"

	// MethodDecliningEqualInstallment amortizes with a constant total payment
	// (the annuity / EMI formula); interest is computed on the remaining
	// balance each period.
	MethodDecliningEqualInstallment InterestMethod = "DECLINING_BALANCE_EQUAL_INSTALLMENT"

	// MethodDecliningEqualPrincipal repays a constant principal slice each
	// period; interest declines with the balance.
	MethodDecliningEqualPrincipal InterestMethod = "DECLINING_BALANCE_EQUAL_PRINCIPAL"
)

// Valid reports whether the method is one of the supported conventions.
func (m InterestMethod) Valid() bool {
	switch m {
	case MethodFlat, MethodDecliningEqualInstallment, MethodDecliningEqualPrincipal:
		return true
	}
	return false
}

// =============================================================================
// FREQUENCY - Repayment cadence
// =============================================================================

type Frequency string

const (
	FreqDaily      Frequency = "DAILY"
	FreqWeekly     Frequency = "WEEKLY"
	FreqBiweekly   Frequency = "BIWEEKLY"
	FreqMonthly    Frequency = "MONTHLY"
	FreqQuarterly  Frequency = "QUARTERLY"
	FreqSemiAnnual Frequency = "SEMI_ANNUAL"
	FreqAnnual     Frequency = "ANNUAL"
)

// basePeriodsPerYear returns the period count for a repeat-every of 1.
func (f Frequency) basePeriodsPerYear() int64 {
	switch f {
	case FreqDaily:
		return 365
	case FreqWeekly:
		return 52
	case FreqBiweekly:
		return 26
	case FreqMonthly:
		return 12
	case FreqQuarterly:
		return 4
	case FreqSemiAnnual:
		return 2
	case FreqAnnual:
		return 1
	}
	return 0
}

// Valid reports whether the frequency is a supported cadence.
func (f Frequency) Valid() bool { return f.basePeriodsPerYear() > 0 }

// PeriodsPerYear returns how many repayment periods fall in a year for the
// frequency with the given repeat-every multiplier (e.g. MONTHLY every 3 is
// 4 periods per year). The result is exact decimal arithmetic.
func (f Frequency) PeriodsPerYear(every int) decimal.Decimal {
	if every < 1 {
		every = 1
	}
	return decimal.NewFromInt(f.basePeriodsPerYear()).Div(decimal.NewFromInt(int64(every)))
}

// =============================================================================
// ROUNDING POLICY
// =============================================================================

// RoundingPolicy pins the minor-unit precision of every figure a schedule or
// allocation produces. Historical product variants differed only in where
// they rounded; parameterizing it here is what lets one engine replace them.
type RoundingPolicy struct {
	Places int32
}

// DefaultRounding is two decimal places, round half up.
var DefaultRounding = RoundingPolicy{Places: money.Places}

func (rp RoundingPolicy) round(m money.Money) money.Money {
	return m.RoundTo(rp.places())
}

func (rp RoundingPolicy) places() int32 {
	if rp.Places <= 0 {
		return money.Places
	}
	return rp.Places
}

// =============================================================================
// LOAN TERMS - Frozen once a schedule is generated
// =============================================================================

// LoanTerms is the complete input to schedule generation.
type LoanTerms struct {
	// Principal is the disbursed amount, exact.
	Principal money.Money

	// AnnualRate is the nominal annual interest rate as a decimal fraction
	// (0.24 means 24% per year).
	AnnualRate decimal.Decimal

	Method    InterestMethod
	Frequency Frequency

	// RepeatEvery stretches the frequency: MONTHLY with RepeatEvery 3 falls
	// due quarterly. Values below 1 are treated as 1.
	RepeatEvery int

	// Installments is the number of repayment rows to generate.
	Installments int

	// FirstDueDate anchors the schedule; subsequent due dates advance from
	// it by whole periods.
	FirstDueDate time.Time

	// PrincipalGrace and InterestGrace exempt that many leading installments
	// from the respective component.
	PrincipalGrace int
	InterestGrace  int

	Rounding RoundingPolicy
}

// PeriodicRate returns the per-period interest rate: annual rate divided by
// periods per year.
func (t LoanTerms) PeriodicRate() decimal.Decimal {
	return t.AnnualRate.Div(t.Frequency.PeriodsPerYear(t.RepeatEvery))
}

// Validate rejects malformed terms before any computation happens.
func (t LoanTerms) Validate() error {
	switch {
	case !t.Principal.IsPositive():
		return &InvalidTermsError{Field: "principal", Reason: "must be positive"}
	case t.AnnualRate.IsNegative():
		return &InvalidTermsError{Field: "annual_rate", Reason: "must not be negative"}
	case !t.Method.Valid():
		return &InvalidTermsError{Field: "interest_method", Reason: "unknown method " + string(t.Method)}
	case !t.Frequency.Valid():
		return &InvalidTermsError{Field: "frequency", Reason: "unknown frequency " + string(t.Frequency)}
	case t.Installments <= 0:
		return &InvalidTermsError{Field: "installments", Reason: "must be positive"}
	case t.PrincipalGrace < 0 || t.InterestGrace < 0:
		return &InvalidTermsError{Field: "grace", Reason: "must not be negative"}
	case t.PrincipalGrace >= t.Installments:
		return &InvalidTermsError{Field: "principal_grace", Reason: "leaves no amortizing installment"}
	case t.InterestGrace > t.Installments:
		return &InvalidTermsError{Field: "interest_grace", Reason: "exceeds installment count"}
	case t.FirstDueDate.IsZero():
		return &InvalidTermsError{Field: "first_due_date", Reason: "is required"}
	}
	return nil
}

// =============================================================================
// INSTALLMENT - One scheduled repayment row
// =============================================================================

type InstallmentStatus string

const (
	StatusPending   InstallmentStatus = "PENDING"
	StatusPartial   InstallmentStatus = "PARTIAL"
	StatusPaid      InstallmentStatus = "PAID"
	StatusOverdue   InstallmentStatus = "OVERDUE"
	StatusCancelled InstallmentStatus = "CANCELLED"
)

// Installment carries due amounts and paid-to-date counters per money
// component. Outstanding figures are derived, never stored.
type Installment struct {
	Number  int
	DueDate time.Time

	PrincipalDue money.Money
	InterestDue  money.Money
	FeeDue       money.Money
	PenaltyDue   money.Money

	PrincipalPaid money.Money
	InterestPaid  money.Money
	FeePaid       money.Money
	PenaltyPaid   money.Money

	Status InstallmentStatus
}

func (i Installment) PrincipalOutstanding() money.Money { return i.PrincipalDue.Sub(i.PrincipalPaid) }
func (i Installment) InterestOutstanding() money.Money  { return i.InterestDue.Sub(i.InterestPaid) }
func (i Installment) FeeOutstanding() money.Money       { return i.FeeDue.Sub(i.FeePaid) }
func (i Installment) PenaltyOutstanding() money.Money   { return i.PenaltyDue.Sub(i.PenaltyPaid) }

// TotalDue is the sum of every component's due amount.
func (i Installment) TotalDue() money.Money {
	return money.Sum(i.PrincipalDue, i.InterestDue, i.FeeDue, i.PenaltyDue)
}

// TotalOutstanding is the unpaid remainder across all components.
func (i Installment) TotalOutstanding() money.Money {
	return money.Sum(
		i.PrincipalOutstanding(),
		i.InterestOutstanding(),
		i.FeeOutstanding(),
		i.PenaltyOutstanding(),
	)
}

// Settled reports whether every component's paid-to-date covers its due.
func (i Installment) Settled() bool {
	return !i.PrincipalPaid.LessThan(i.PrincipalDue) &&
		!i.InterestPaid.LessThan(i.InterestDue) &&
		!i.FeePaid.LessThan(i.FeeDue) &&
		!i.PenaltyPaid.LessThan(i.PenaltyDue)
}

// Open reports whether the installment still takes allocations.
func (i Installment) Open() bool {
	return i.Status != StatusPaid && i.Status != StatusCancelled
}

// FullyPaid derives loan closure from an installment set: true when no row
// remains in a status other than PAID or CANCELLED. It is a pure function of
// the set, so reapplying it never changes the answer.
func FullyPaid(installments []Installment) bool {
	for _, inst := range installments {
		if inst.Open() {
			return false
		}
	}
	return len(installments) > 0
}
