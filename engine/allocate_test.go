package engine_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/meridian/lending-engine/engine"
	"github.com/meridian/lending-engine/money"
)

func installment(number int, penalty, interest, fee, principal string) engine.Installment {
	return engine.Installment{
		Number:       number,
		DueDate:      time.Date(2025, time.January, number, 0, 0, 0, 0, time.UTC),
		PrincipalDue: money.MustParse(principal),
		InterestDue:  money.MustParse(interest),
		FeeDue:       money.MustParse(fee),
		PenaltyDue:   money.MustParse(penalty),
		Status:       engine.StatusPending,
	}
}

func TestAllocate_WaterfallWithinInstallment(t *testing.T) {
	// Penalty 10, interest 20, fee 5, principal 100. A payment of 25 clears
	// the penalty, puts 15 toward interest and touches nothing else.
	rows := []engine.Installment{installment(1, "10", "20", "5", "100")}

	result, err := engine.Allocate(rows, money.MustParse("25"))
	require.NoError(t, err)

	assert.Equal(t, "10.00", result.PenaltiesApplied.StringFixed())
	assert.Equal(t, "15.00", result.InterestApplied.StringFixed())
	assert.True(t, result.FeesApplied.IsZero())
	assert.True(t, result.PrincipalApplied.IsZero())
	assert.True(t, result.Leftover.IsZero())
	assert.Equal(t, "25.00", result.Applied().StringFixed())

	got := result.Installments[0]
	assert.Equal(t, engine.StatusPartial, got.Status)
	assert.True(t, got.PenaltyOutstanding().IsZero())
	assert.Equal(t, "5.00", got.InterestOutstanding().StringFixed())
	assert.Equal(t, "5.00", got.FeeOutstanding().StringFixed())
	assert.Equal(t, "100.00", got.PrincipalOutstanding().StringFixed())
	assert.False(t, result.LoanFullyPaid)
}

func TestAllocate_SpillsAcrossInstallmentsInOrder(t *testing.T) {
	rows := []engine.Installment{
		installment(1, "0", "10", "0", "90"),
		installment(2, "0", "10", "0", "90"),
	}

	result, err := engine.Allocate(rows, money.MustParse("130"))
	require.NoError(t, err)

	// Row 1 settles entirely before row 2 receives anything.
	assert.Equal(t, engine.StatusPaid, result.Installments[0].Status)
	assert.Equal(t, engine.StatusPartial, result.Installments[1].Status)
	assert.Equal(t, "10.00", result.Installments[1].InterestPaid.StringFixed())
	assert.Equal(t, "20.00", result.Installments[1].PrincipalPaid.StringFixed())
	assert.Equal(t, "70.00", result.Installments[1].PrincipalOutstanding().StringFixed())
	assert.True(t, result.Leftover.IsZero())
	assert.False(t, result.LoanFullyPaid)
}

func TestAllocate_ExactPayoffClosesLoan(t *testing.T) {
	rows := []engine.Installment{
		installment(1, "0", "10", "0", "90"),
		installment(2, "0", "10", "0", "90"),
	}

	result, err := engine.Allocate(rows, money.MustParse("200"))
	require.NoError(t, err)

	for _, inst := range result.Installments {
		assert.Equal(t, engine.StatusPaid, inst.Status)
		assert.True(t, inst.TotalOutstanding().IsZero())
	}
	assert.True(t, result.Leftover.IsZero())
	assert.True(t, result.LoanFullyPaid)
}

func TestAllocate_SurplusComesBackAsLeftover(t *testing.T) {
	rows := []engine.Installment{installment(1, "0", "10", "0", "90")}

	result, err := engine.Allocate(rows, money.MustParse("150"))
	require.NoError(t, err)

	assert.Equal(t, "100.00", result.Applied().StringFixed())
	assert.Equal(t, "50.00", result.Leftover.StringFixed())
	assert.True(t, result.LoanFullyPaid)
}

func TestAllocate_SkipsSettledAndCancelledRows(t *testing.T) {
	paid := installment(1, "0", "10", "0", "90")
	paid.InterestPaid = paid.InterestDue
	paid.PrincipalPaid = paid.PrincipalDue
	paid.Status = engine.StatusPaid

	cancelled := installment(2, "0", "10", "0", "90")
	cancelled.Status = engine.StatusCancelled

	open := installment(3, "0", "10", "0", "90")

	result, err := engine.Allocate([]engine.Installment{paid, cancelled, open}, money.MustParse("40"))
	require.NoError(t, err)

	assert.True(t, result.Installments[1].InterestPaid.IsZero(), "cancelled row must not absorb payment")
	assert.Equal(t, "10.00", result.Installments[2].InterestPaid.StringFixed())
	assert.Equal(t, "30.00", result.Installments[2].PrincipalPaid.StringFixed())
}

func TestAllocate_OverdueRowReceivesPaymentFirst(t *testing.T) {
	overdue := installment(1, "5", "10", "0", "85")
	overdue.Status = engine.StatusOverdue
	current := installment(2, "0", "10", "0", "90")

	result, err := engine.Allocate([]engine.Installment{overdue, current}, money.MustParse("100"))
	require.NoError(t, err)

	assert.Equal(t, engine.StatusPaid, result.Installments[0].Status)
	assert.Equal(t, engine.StatusPartial, result.Installments[1].Status)
	assert.Equal(t, "5.00", result.PenaltiesApplied.StringFixed())
}

func TestAllocate_RejectsNonPositiveAmounts(t *testing.T) {
	rows := []engine.Installment{installment(1, "0", "10", "0", "90")}

	for _, amt := range []money.Money{money.Zero, money.FromInt(-10)} {
		_, err := engine.Allocate(rows, amt)
		require.ErrorIs(t, err, engine.ErrInvalidAmount)
		assert.True(t, engine.IsClientError(err))
	}
}

func TestAllocate_DoesNotMutateInput(t *testing.T) {
	rows := []engine.Installment{installment(1, "0", "10", "0", "90")}

	_, err := engine.Allocate(rows, money.MustParse("50"))
	require.NoError(t, err)

	assert.True(t, rows[0].InterestPaid.IsZero())
	assert.Equal(t, engine.StatusPending, rows[0].Status)
}

func TestAllocate_GeneratedScheduleFullRepayment(t *testing.T) {
	// End to end: generate a schedule, pay the exact total, loan closes.
	terms := monthlyTerms("100000", "0.18", 7)
	terms.Method = engine.MethodDecliningEqualInstallment

	schedule, err := engine.GenerateSchedule(terms)
	require.NoError(t, err)

	total := engine.Totals(schedule).Repayment
	result, err := engine.Allocate(schedule, total)
	require.NoError(t, err)

	assert.True(t, result.LoanFullyPaid)
	assert.True(t, result.Leftover.IsZero())
	assert.True(t, result.PrincipalApplied.Equal(terms.Principal))
}
