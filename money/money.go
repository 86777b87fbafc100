/*
Package money provides the fixed-precision monetary type used everywhere
in the lending engine.

PURPOSE:
  Money math must be exact. Schedules, allocations and journal entries all
  carry provable conservation invariants (sum of installment principal equals
  the loan principal to the cent, debits equal credits), and those break the
  moment a float sneaks in. Money wraps decimal.Decimal and pins the rounding
  policy in one place: round half up at the currency minor unit.

DESIGN PRINCIPLES:
  1. No floats. Constructors take ints, strings or decimals, never float64.
  2. Rounding is explicit. Division and rate multiplication return unrounded
     decimals; callers round via Round() at the point the figure becomes a
     due/posted amount.
  3. Value semantics. Money is an immutable value; every operation returns
     a new Money.

USAGE:
  principal := money.MustParse("1000000")
  interest := principal.MulDecimal(rate).Round()

SEE ALSO:
  - engine/schedule.go: rounding-remainder correction on the last installment
  - ledger/poster.go: debit/credit balance check at Places precision
*/
package money

import (
	"fmt"

	"github.com/shopspring/decimal"
)

// Places is the minor-unit precision every rounded figure carries.
// Two decimal places covers the cent-based currencies this system serves.
const Places int32 = 2

// Money is an exact monetary amount. The zero value is zero money.
type Money struct {
	Value decimal.Decimal
}

// Zero is the zero amount.
var Zero = Money{}

// New creates Money from a decimal value.
func New(d decimal.Decimal) Money {
	return Money{Value: d}
}

// FromInt creates Money from a whole major-unit amount.
func FromInt(v int64) Money {
	return Money{Value: decimal.NewFromInt(v)}
}

// Parse creates Money from its string representation.
func Parse(s string) (Money, error) {
	d, err := decimal.NewFromString(s)
	if err != nil {
		return Money{}, fmt.Errorf("invalid money amount %q: %w", s, err)
	}
	return Money{Value: d}, nil
}

// MustParse is Parse for literals; it panics on malformed input.
func MustParse(s string) Money {
	m, err := Parse(s)
	if err != nil {
		panic(err)
	}
	return m
}

// Arithmetic. All operations preserve full precision; see Round.

func (m Money) Add(o Money) Money               { return Money{Value: m.Value.Add(o.Value)} }
func (m Money) Sub(o Money) Money               { return Money{Value: m.Value.Sub(o.Value)} }
func (m Money) Neg() Money                      { return Money{Value: m.Value.Neg()} }
func (m Money) MulDecimal(d decimal.Decimal) Money { return Money{Value: m.Value.Mul(d)} }
func (m Money) DivDecimal(d decimal.Decimal) Money { return Money{Value: m.Value.Div(d)} }
func (m Money) DivInt(n int64) Money            { return m.DivDecimal(decimal.NewFromInt(n)) }

// Round rounds half up to the minor-unit precision.
func (m Money) Round() Money {
	return Money{Value: m.Value.Round(Places)}
}

// RoundTo rounds half up to an explicit precision; used where a rounding
// policy other than the default applies.
func (m Money) RoundTo(places int32) Money {
	return Money{Value: m.Value.Round(places)}
}

// Comparison.

func (m Money) IsZero() bool              { return m.Value.IsZero() }
func (m Money) IsNegative() bool          { return m.Value.IsNegative() }
func (m Money) IsPositive() bool          { return m.Value.IsPositive() }
func (m Money) Equal(o Money) bool        { return m.Value.Equal(o.Value) }
func (m Money) GreaterThan(o Money) bool  { return m.Value.GreaterThan(o.Value) }
func (m Money) LessThan(o Money) bool     { return m.Value.LessThan(o.Value) }
func (m Money) Cmp(o Money) int           { return m.Value.Cmp(o.Value) }

// Min returns the smaller of the two amounts.
func Min(a, b Money) Money {
	if a.LessThan(b) {
		return a
	}
	return b
}

// Max returns the larger of the two amounts.
func Max(a, b Money) Money {
	if a.GreaterThan(b) {
		return a
	}
	return b
}

// Sum adds a list of amounts.
func Sum(amounts ...Money) Money {
	total := Zero
	for _, a := range amounts {
		total = total.Add(a)
	}
	return total
}

// String renders the amount at full precision.
func (m Money) String() string { return m.Value.String() }

// StringFixed renders the amount at minor-unit precision.
func (m Money) StringFixed() string { return m.Value.StringFixed(Places) }

// MarshalJSON renders Money as a JSON string to keep precision intact on
// the wire.
func (m Money) MarshalJSON() ([]byte, error) {
	return []byte(`"` + m.Value.String() + `"`), nil
}

// UnmarshalJSON accepts both quoted and bare decimal representations.
func (m *Money) UnmarshalJSON(data []byte) error {
	s := string(data)
	if len(s) >= 2 && s[0] == '"' && s[len(s)-1] == '"' {
		s = s[1 : len(s)-1]
	}
	d, err := decimal.NewFromString(s)
	if err != nil {
		return fmt.Errorf("invalid money amount %s: %w", string(data), err)
	}
	m.Value = d
	return nil
}
