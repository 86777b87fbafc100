package engine_test

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/meridian/lending-engine/engine"
	"github.com/meridian/lending-engine/money"
)

func TestPenalty_FlatFee(t *testing.T) {
	policy := engine.PenaltyPolicy{
		Type:       engine.PenaltyFlatFee,
		FlatAmount: money.MustParse("25"),
	}

	// Same fee no matter how much is overdue or for how long.
	for _, days := range []int{0, 1, 90} {
		got, err := engine.Penalty(money.MustParse("1234.56"), days, policy)
		require.NoError(t, err)
		assert.Equal(t, "25.00", got.StringFixed())
	}
}

func TestPenalty_PercentageOfAmount(t *testing.T) {
	policy := engine.PenaltyPolicy{
		Type:       engine.PenaltyPercentageOfAmount,
		AnnualRate: decimal.RequireFromString("0.10"),
	}

	// 1000 x 10% x 73/365 = 20.00
	got, err := engine.Penalty(money.MustParse("1000"), 73, policy)
	require.NoError(t, err)
	assert.Equal(t, "20.00", got.StringFixed())

	// Zero days overdue prices to zero.
	got, err = engine.Penalty(money.MustParse("1000"), 0, policy)
	require.NoError(t, err)
	assert.True(t, got.IsZero())

	// Rounding happens half up at two places: 100 x 10% x 5/365 = 0.136...
	got, err = engine.Penalty(money.MustParse("100"), 5, policy)
	require.NoError(t, err)
	assert.Equal(t, "0.14", got.StringFixed())
}

func TestPenalty_RejectsNegativeInputs(t *testing.T) {
	policy := engine.PenaltyPolicy{Type: engine.PenaltyFlatFee, FlatAmount: money.MustParse("5")}

	_, err := engine.Penalty(money.FromInt(-1), 3, policy)
	require.ErrorIs(t, err, engine.ErrInvalidAmount)

	_, err = engine.Penalty(money.FromInt(100), -1, policy)
	require.ErrorIs(t, err, engine.ErrInvalidAmount)
}

func TestPenalty_UnknownPolicy(t *testing.T) {
	_, err := engine.Penalty(money.FromInt(100), 3, engine.PenaltyPolicy{Type: "DAILY_COMPOUND"})
	require.ErrorIs(t, err, engine.ErrInvalidPolicy)
	assert.True(t, engine.IsClientError(err))
}

func TestDaysBetween_IgnoresTimeOfDay(t *testing.T) {
	due := time.Date(2025, time.March, 1, 0, 0, 0, 0, time.UTC)
	paidLate := time.Date(2025, time.March, 11, 23, 59, 0, 0, time.UTC)

	assert.Equal(t, 10, engine.DaysBetween(due, paidLate))
	assert.Equal(t, -10, engine.DaysBetween(paidLate, due))
	assert.Equal(t, 0, engine.DaysBetween(due, due.Add(6*time.Hour)))
}
