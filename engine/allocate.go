/*
allocate.go - The repayment waterfall

PURPOSE:
  Applies an incoming payment across a loan's open installments and reports
  the resulting state transition. Like the rest of the engine this is pure:
  it consumes the ordered installment list, returns updated copies, and the
  caller persists everything (or nothing) in one transaction.

WATERFALL:
  Installments are visited in due-date order. Within one installment the
  payment covers, in priority order:
    1. penalty outstanding
    2. interest outstanding
    3. fee outstanding
    4. principal outstanding
  each receiving min(remaining payment, component outstanding).

STATUS TRANSITIONS:
  An installment becomes PAID when every component's paid-to-date covers its
  due amount, PARTIAL when it received a nonzero allocation but is not yet
  settled, and is otherwise left unchanged (PENDING or OVERDUE stay as they
  are). The loan is fully paid when no installment remains outside
  PAID/CANCELLED.

OVERPAYMENT:
  Whatever is left after all installments are satisfied comes back as
  Leftover. The allocator never invents a suspense destination; crediting
  the surplus somewhere changes financial meaning, so that policy decision
  belongs to the caller.
*/
package engine

import "github.com/meridian/lending-engine/money"

// AllocationResult is the outcome of applying one payment.
type AllocationResult struct {
	// Installments is the full input list with paid counters and statuses
	// updated. Order is preserved.
	Installments []Installment

	// Component totals actually applied; these become the money components
	// of the repayment's accounting event.
	PrincipalApplied money.Money
	InterestApplied  money.Money
	FeesApplied      money.Money
	PenaltiesApplied money.Money

	// Leftover is the surplus after every open installment is settled.
	// The caller must reject it or reroute it explicitly.
	Leftover money.Money

	// LoanFullyPaid is true when no installment remains open.
	LoanFullyPaid bool
}

// Applied is the portion of the payment that was absorbed by the schedule.
func (r AllocationResult) Applied() money.Money {
	return money.Sum(r.PrincipalApplied, r.InterestApplied, r.FeesApplied, r.PenaltiesApplied)
}

// Allocate distributes a payment across the installments, which must be in
// due-date order. Fails with ErrInvalidAmount for a non-positive amount.
func Allocate(installments []Installment, amount money.Money) (AllocationResult, error) {
	if !amount.IsPositive() {
		return AllocationResult{}, &InvalidAmountError{What: "payment amount", Value: amount.String()}
	}

	result := AllocationResult{Installments: make([]Installment, len(installments))}
	copy(result.Installments, installments)

	remaining := amount
	for idx := range result.Installments {
		if remaining.IsZero() {
			break
		}
		inst := &result.Installments[idx]
		if !inst.Open() {
			continue
		}

		var applied money.Money
		remaining, applied = take(remaining, inst.PenaltyOutstanding(), &inst.PenaltyPaid)
		result.PenaltiesApplied = result.PenaltiesApplied.Add(applied)

		remaining, applied = take(remaining, inst.InterestOutstanding(), &inst.InterestPaid)
		result.InterestApplied = result.InterestApplied.Add(applied)

		remaining, applied = take(remaining, inst.FeeOutstanding(), &inst.FeePaid)
		result.FeesApplied = result.FeesApplied.Add(applied)

		remaining, applied = take(remaining, inst.PrincipalOutstanding(), &inst.PrincipalPaid)
		result.PrincipalApplied = result.PrincipalApplied.Add(applied)

		switch {
		case inst.Settled():
			inst.Status = StatusPaid
		case inst.TotalOutstanding().LessThan(inst.TotalDue()):
			inst.Status = StatusPartial
		}
	}

	result.Leftover = remaining
	result.LoanFullyPaid = FullyPaid(result.Installments)
	return result, nil
}

// take moves min(remaining, outstanding) into the paid counter and returns
// the new remaining amount plus what was taken.
func take(remaining, outstanding money.Money, paid *money.Money) (money.Money, money.Money) {
	if !remaining.IsPositive() || !outstanding.IsPositive() {
		return remaining, money.Zero
	}
	applied := money.Min(remaining, outstanding)
	*paid = paid.Add(applied)
	return remaining.Sub(applied), applied
}
