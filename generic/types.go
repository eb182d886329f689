/*
Package generic provides the primitives shared by the working-time engine.

PURPOSE:
  This package contains the domain-agnostic building blocks used by every
  other package: exact hour quantities, calendar dates, wall-clock times,
  periods, the holiday calendar contract, the audit log contract and the
  error taxonomy. It has no knowledge of employees or compliance rules.

KEY CONCEPTS IN THIS FILE (types.go):
  - Hours: an exact decimal quantity of hours (never float64)
  - Identifiers: type-safe IDs for employees and records

DESIGN PRINCIPLES:
  1. Precision: hour arithmetic uses decimal.Decimal; minutes are converted
     by exact division by 60 so 30 minutes is exactly 0.5h
  2. Rounding happens only where a value is reported (RoundCents), never in
     intermediate sums
  3. Type safety: IDs are distinct string types

USAGE:
  net := generic.HoursFromMinutes(510)       // 8.5h
  target := generic.NewHours(40).DivInt(5)   // 8h
  balance := net.Sub(target)

SEE ALSO:
  - time.go: Date and ClockTime
  - period.go: Period, months and ISO weeks
  - errors.go: Sentinel and structured errors
*/
package generic

import (
	"fmt"

	"github.com/shopspring/decimal"
)

// =============================================================================
// HOURS - Exact quantity of working time
// =============================================================================

// Hours is an exact quantity of hours. The zero value is 0h.
type Hours struct {
	Value decimal.Decimal
}

var sixty = decimal.NewFromInt(60)

func NewHours(value float64) Hours             { return Hours{Value: decimal.NewFromFloat(value)} }
func NewHoursFromInt(value int) Hours          { return Hours{Value: decimal.NewFromInt(int64(value))} }
func HoursFromDecimal(d decimal.Decimal) Hours { return Hours{Value: d} }

// HoursFromMinutes converts whole minutes to hours exactly.
func HoursFromMinutes(minutes int) Hours {
	return Hours{Value: decimal.NewFromInt(int64(minutes)).Div(sixty)}
}

// ParseHours parses a decimal string such as "38.5".
func ParseHours(s string) (Hours, error) {
	d, err := decimal.NewFromString(s)
	if err != nil {
		return Hours{}, err
	}
	return Hours{Value: d}, nil
}

// MustParseHours is ParseHours for literals. It panics on malformed input.
func MustParseHours(s string) Hours {
	h, err := ParseHours(s)
	if err != nil {
		panic(fmt.Sprintf("generic: invalid hours literal %q: %v", s, err))
	}
	return h
}

func (h Hours) Add(o Hours) Hours               { return Hours{Value: h.Value.Add(o.Value)} }
func (h Hours) Sub(o Hours) Hours               { return Hours{Value: h.Value.Sub(o.Value)} }
func (h Hours) Mul(s decimal.Decimal) Hours     { return Hours{Value: h.Value.Mul(s)} }
func (h Hours) MulInt(n int) Hours              { return Hours{Value: h.Value.Mul(decimal.NewFromInt(int64(n)))} }
func (h Hours) DivInt(n int) Hours              { return Hours{Value: h.Value.Div(decimal.NewFromInt(int64(n)))} }
func (h Hours) Neg() Hours                      { return Hours{Value: h.Value.Neg()} }
func (h Hours) IsZero() bool                    { return h.Value.IsZero() }
func (h Hours) IsNegative() bool                { return h.Value.IsNegative() }
func (h Hours) IsPositive() bool                { return h.Value.IsPositive() }
func (h Hours) Equal(o Hours) bool              { return h.Value.Equal(o.Value) }
func (h Hours) GreaterThan(o Hours) bool        { return h.Value.GreaterThan(o.Value) }
func (h Hours) GreaterThanOrEqual(o Hours) bool { return h.Value.GreaterThanOrEqual(o.Value) }
func (h Hours) LessThan(o Hours) bool           { return h.Value.LessThan(o.Value) }
func (h Hours) Float64() float64                { f, _ := h.Value.Float64(); return f }

// RoundCents rounds half away from zero to two decimal places.
func (h Hours) RoundCents() Hours { return Hours{Value: h.Value.Round(2)} }

// DivHours returns h / o, or zero when o is zero.
func (h Hours) DivHours(o Hours) decimal.Decimal {
	if o.Value.IsZero() {
		return decimal.Zero
	}
	return h.Value.Div(o.Value)
}

func (h Hours) Max(o Hours) Hours {
	if h.GreaterThan(o) {
		return h
	}
	return o
}

// String renders the value with two decimals ("8.50").
func (h Hours) String() string { return h.Value.StringFixed(2) }

// MarshalJSON renders hours as a JSON number with two decimals.
func (h Hours) MarshalJSON() ([]byte, error) {
	return []byte(h.Value.StringFixed(2)), nil
}

// UnmarshalJSON accepts a JSON number or a quoted decimal string.
func (h *Hours) UnmarshalJSON(data []byte) error {
	return h.Value.UnmarshalJSON(data)
}

// SumHours adds all values.
func SumHours(values ...Hours) Hours {
	total := Hours{}
	for _, v := range values {
		total = total.Add(v)
	}
	return total
}

// =============================================================================
// IDENTIFIERS
// =============================================================================

type EmployeeID string
type RecordID string
