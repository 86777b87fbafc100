package money_test

import (
	"encoding/json"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/meridian/lending-engine/money"
)

func TestRound_HalfUpAtMinorUnit(t *testing.T) {
	cases := []struct {
		in   string
		want string
	}{
		{"10.005", "10.01"},
		{"10.004", "10.00"},
		{"10.015", "10.02"},
		{"0.125", "0.13"},
		{"100", "100.00"},
	}
	for _, c := range cases {
		got := money.MustParse(c.in).Round()
		assert.Equal(t, c.want, got.StringFixed(), "rounding %s", c.in)
	}
}

func TestArithmetic_PreservesPrecision(t *testing.T) {
	// 100 / 3 keeps full precision until rounded.
	third := money.FromInt(100).DivInt(3)
	sum := third.Add(third).Add(third)
	assert.True(t, sum.Round().Equal(money.FromInt(100)),
		"three thirds should round back to the whole: got %s", sum)
}

func TestMulDecimal(t *testing.T) {
	rate := decimal.RequireFromString("0.02")
	got := money.FromInt(1000000).MulDecimal(rate)
	assert.Equal(t, "20000.00", got.StringFixed())
}

func TestMinMaxSum(t *testing.T) {
	a := money.MustParse("10.50")
	b := money.MustParse("3.25")

	assert.True(t, money.Min(a, b).Equal(b))
	assert.True(t, money.Max(a, b).Equal(a))
	assert.Equal(t, "13.75", money.Sum(a, b).StringFixed())
	assert.True(t, money.Sum().IsZero())
}

func TestJSONRoundTrip(t *testing.T) {
	in := money.MustParse("1234.56")

	data, err := json.Marshal(in)
	require.NoError(t, err)
	assert.Equal(t, `"1234.56"`, string(data))

	var out money.Money
	require.NoError(t, json.Unmarshal(data, &out))
	assert.True(t, in.Equal(out))

	// Bare numbers are accepted too.
	require.NoError(t, json.Unmarshal([]byte(`99.9`), &out))
	assert.Equal(t, "99.90", out.StringFixed())
}

func TestParse_Invalid(t *testing.T) {
	_, err := money.Parse("not-a-number")
	require.Error(t, err)
}
