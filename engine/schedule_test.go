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

func monthlyTerms(principal string, annualRate string, installments int) engine.LoanTerms {
	return engine.LoanTerms{
		Principal:    money.MustParse(principal),
		AnnualRate:   decimal.RequireFromString(annualRate),
		Method:       engine.MethodFlat,
		Frequency:    engine.FreqMonthly,
		RepeatEvery:  1,
		Installments: installments,
		FirstDueDate: time.Date(2025, time.February, 1, 0, 0, 0, 0, time.UTC),
	}
}

func TestGenerateSchedule_InvalidTerms(t *testing.T) {
	valid := monthlyTerms("1000", "0.24", 12)

	cases := []struct {
		name   string
		mutate func(*engine.LoanTerms)
	}{
		{"zero principal", func(tm *engine.LoanTerms) { tm.Principal = money.Zero }},
		{"negative principal", func(tm *engine.LoanTerms) { tm.Principal = money.FromInt(-5) }},
		{"zero installments", func(tm *engine.LoanTerms) { tm.Installments = 0 }},
		{"negative rate", func(tm *engine.LoanTerms) { tm.AnnualRate = decimal.RequireFromString("-0.01") }},
		{"unknown method", func(tm *engine.LoanTerms) { tm.Method = "COMPOUND_DAILY" }},
		{"unknown frequency", func(tm *engine.LoanTerms) { tm.Frequency = "FORTNIGHTLY" }},
		{"principal grace eats whole term", func(tm *engine.LoanTerms) { tm.PrincipalGrace = 12 }},
		{"interest grace beyond term", func(tm *engine.LoanTerms) { tm.InterestGrace = 13 }},
		{"missing first due date", func(tm *engine.LoanTerms) { tm.FirstDueDate = time.Time{} }},
	}

	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			terms := valid
			c.mutate(&terms)
			_, err := engine.GenerateSchedule(terms)
			require.ErrorIs(t, err, engine.ErrInvalidTerms)
			assert.True(t, engine.IsClientError(err))
		})
	}
}

func TestFlat_TwelveMonthlyInstallments(t *testing.T) {
	// 1,000,000 at 24%/year monthly is 2% per period: total interest
	// 1,000,000 x 0.02 x 12 = 240,000, total repayment 1,240,000.
	terms := monthlyTerms("1000000", "0.24", 12)

	schedule, err := engine.GenerateSchedule(terms)
	require.NoError(t, err)
	require.Len(t, schedule, 12)

	totals := engine.Totals(schedule)
	assert.Equal(t, "1000000.00", totals.Principal.StringFixed())
	assert.Equal(t, "240000.00", totals.Interest.StringFixed())
	assert.Equal(t, "1240000.00", totals.Repayment.StringFixed())

	for _, inst := range schedule {
		assert.Equal(t, "20000.00", inst.InterestDue.StringFixed(), "installment %d", inst.Number)
		assert.Equal(t, engine.StatusPending, inst.Status)
	}
}

func TestFlat_GracePeriods(t *testing.T) {
	terms := monthlyTerms("500000", "0.24", 6)
	terms.PrincipalGrace = 2
	terms.InterestGrace = 1

	schedule, err := engine.GenerateSchedule(terms)
	require.NoError(t, err)
	require.Len(t, schedule, 6)

	assert.True(t, schedule[0].PrincipalDue.IsZero(), "installment 1 principal")
	assert.True(t, schedule[0].InterestDue.IsZero(), "installment 1 interest")
	assert.True(t, schedule[1].PrincipalDue.IsZero(), "installment 2 principal")
	assert.True(t, schedule[1].InterestDue.IsPositive(), "installment 2 interest")
	for _, inst := range schedule[2:] {
		assert.True(t, inst.PrincipalDue.IsPositive(), "installment %d principal", inst.Number)
		assert.True(t, inst.InterestDue.IsPositive(), "installment %d interest", inst.Number)
	}

	assert.Equal(t, "500000.00", engine.Totals(schedule).Principal.StringFixed())
}

func TestPrincipalConservation_AllMethods(t *testing.T) {
	// Awkward divisions that cannot split evenly at two decimal places.
	principals := []string{"100000", "999.99", "1000001", "7777.77"}
	counts := []int{3, 7, 11, 13}
	methods := []engine.InterestMethod{
		engine.MethodFlat,
		engine.MethodDecliningEqualInstallment,
		engine.MethodDecliningEqualPrincipal,
	}

	for _, method := range methods {
		for i, p := range principals {
			terms := monthlyTerms(p, "0.18", counts[i])
			terms.Method = method

			schedule, err := engine.GenerateSchedule(terms)
			require.NoError(t, err, "%s principal=%s", method, p)

			total := engine.Totals(schedule).Principal
			assert.True(t, total.Equal(terms.Principal),
				"%s principal=%s n=%d: schedule sums to %s", method, p, counts[i], total)

			// Sequence numbers are contiguous and due dates increase.
			for j, inst := range schedule {
				assert.Equal(t, j+1, inst.Number)
				if j > 0 {
					assert.True(t, inst.DueDate.After(schedule[j-1].DueDate))
				}
			}
		}
	}
}

func TestDecliningEqualInstallment_Monotonicity(t *testing.T) {
	terms := monthlyTerms("10000", "0.24", 12)
	terms.Method = engine.MethodDecliningEqualInstallment

	schedule, err := engine.GenerateSchedule(terms)
	require.NoError(t, err)

	// First period interest is balance x rate on the full principal.
	assert.Equal(t, "200.00", schedule[0].InterestDue.StringFixed())

	for i := 1; i < len(schedule); i++ {
		assert.False(t, schedule[i].InterestDue.GreaterThan(schedule[i-1].InterestDue),
			"interest must not increase at installment %d", i+1)
		assert.False(t, schedule[i].PrincipalDue.LessThan(schedule[i-1].PrincipalDue),
			"principal must not decrease at installment %d", i+1)
	}
}

func TestDecliningEqualInstallment_ZeroRate(t *testing.T) {
	terms := monthlyTerms("1200", "0", 12)
	terms.Method = engine.MethodDecliningEqualInstallment

	schedule, err := engine.GenerateSchedule(terms)
	require.NoError(t, err)

	for _, inst := range schedule {
		assert.Equal(t, "100.00", inst.PrincipalDue.StringFixed())
		assert.True(t, inst.InterestDue.IsZero())
	}
}

func TestDecliningEqualPrincipal_InterestDeclines(t *testing.T) {
	terms := monthlyTerms("12000", "0.12", 12)
	terms.Method = engine.MethodDecliningEqualPrincipal

	schedule, err := engine.GenerateSchedule(terms)
	require.NoError(t, err)

	// Constant principal slice, declining interest.
	assert.Equal(t, "1000.00", schedule[0].PrincipalDue.StringFixed())
	assert.Equal(t, "120.00", schedule[0].InterestDue.StringFixed())
	assert.Equal(t, "110.00", schedule[1].InterestDue.StringFixed())
	assert.Equal(t, "10.00", schedule[11].InterestDue.StringFixed())
}

func TestDecliningEqualInstallment_PrincipalGraceIsInterestOnly(t *testing.T) {
	terms := monthlyTerms("6000", "0.24", 6)
	terms.Method = engine.MethodDecliningEqualInstallment
	terms.PrincipalGrace = 2

	schedule, err := engine.GenerateSchedule(terms)
	require.NoError(t, err)

	// During grace the balance does not move, so interest stays flat.
	assert.True(t, schedule[0].PrincipalDue.IsZero())
	assert.True(t, schedule[1].PrincipalDue.IsZero())
	assert.Equal(t, "120.00", schedule[0].InterestDue.StringFixed())
	assert.Equal(t, "120.00", schedule[1].InterestDue.StringFixed())
	assert.True(t, schedule[2].PrincipalDue.IsPositive())

	assert.Equal(t, "6000.00", engine.Totals(schedule).Principal.StringFixed())
}

// =============================================================================
// DUE DATES
// =============================================================================

func TestDueDates_MonthEndClamping(t *testing.T) {
	// A Jan 31 anchor clamps to short months without drifting: the schedule
	// returns to the 31st whenever the month has one.
	anchor := time.Date(2025, time.January, 31, 0, 0, 0, 0, time.UTC)

	assert.Equal(t, time.Date(2025, time.February, 28, 0, 0, 0, 0, time.UTC),
		engine.DueDate(anchor, engine.FreqMonthly, 1, 2))
	assert.Equal(t, time.Date(2025, time.March, 31, 0, 0, 0, 0, time.UTC),
		engine.DueDate(anchor, engine.FreqMonthly, 1, 3))
	assert.Equal(t, time.Date(2025, time.April, 30, 0, 0, 0, 0, time.UTC),
		engine.DueDate(anchor, engine.FreqMonthly, 1, 4))

	// Leap year February keeps the 29th.
	leapAnchor := time.Date(2024, time.January, 31, 0, 0, 0, 0, time.UTC)
	assert.Equal(t, time.Date(2024, time.February, 29, 0, 0, 0, 0, time.UTC),
		engine.DueDate(leapAnchor, engine.FreqMonthly, 1, 2))
}

func TestDueDates_Frequencies(t *testing.T) {
	anchor := time.Date(2025, time.March, 15, 0, 0, 0, 0, time.UTC)

	cases := []struct {
		freq  engine.Frequency
		every int
		n     int
		want  time.Time
	}{
		{engine.FreqDaily, 1, 4, time.Date(2025, time.March, 18, 0, 0, 0, 0, time.UTC)},
		{engine.FreqWeekly, 1, 3, time.Date(2025, time.March, 29, 0, 0, 0, 0, time.UTC)},
		{engine.FreqBiweekly, 1, 2, time.Date(2025, time.March, 29, 0, 0, 0, 0, time.UTC)},
		{engine.FreqMonthly, 3, 2, time.Date(2025, time.June, 15, 0, 0, 0, 0, time.UTC)},
		{engine.FreqQuarterly, 1, 2, time.Date(2025, time.June, 15, 0, 0, 0, 0, time.UTC)},
		{engine.FreqSemiAnnual, 1, 2, time.Date(2025, time.September, 15, 0, 0, 0, 0, time.UTC)},
		{engine.FreqAnnual, 1, 3, time.Date(2027, time.March, 15, 0, 0, 0, 0, time.UTC)},
	}
	for _, c := range cases {
		got := engine.DueDate(anchor, c.freq, c.every, c.n)
		assert.Equal(t, c.want, got, "%s every=%d n=%d", c.freq, c.every, c.n)
	}
}

func TestPeriodsPerYear_RepeatEvery(t *testing.T) {
	assert.Equal(t, "12", engine.FreqMonthly.PeriodsPerYear(1).String())
	assert.Equal(t, "4", engine.FreqMonthly.PeriodsPerYear(3).String())
	assert.Equal(t, "26", engine.FreqBiweekly.PeriodsPerYear(1).String())
}
