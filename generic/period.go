package generic

import (
	"fmt"
	"time"
)

// =============================================================================
// PERIOD - Inclusive range of calendar days
// =============================================================================

// Period is the inclusive day range [Start, End]. Every target, balance and
// compliance computation is done for a period.
//
// Examples:
//   - Month May 2026: 2026-05-01 .. 2026-05-31
//   - Calendar year 2026: 2026-01-01 .. 2026-12-31
//   - ISO week 2026-W10: Monday .. Sunday
type Period struct {
	Start Date `json:"start"`
	End   Date `json:"end"`
}

// NewPeriod validates that end is not before start.
func NewPeriod(start, end Date) (Period, error) {
	if end.Before(start) {
		return Period{}, fmt.Errorf("%w: %s > %s", ErrInvalidPeriod, start, end)
	}
	return Period{Start: start, End: end}, nil
}

// MaxPeriodDays bounds the ranges accepted for reports and listings.
const MaxPeriodDays = 3660

// Validate checks that the period is ordered and spans at most MaxPeriodDays.
func (p Period) Validate() error {
	if p.End.Before(p.Start) {
		return fmt.Errorf("%w: %s > %s", ErrInvalidPeriod, p.Start, p.End)
	}
	if p.End.Year()-p.Start.Year() > 10 || p.Len() > MaxPeriodDays {
		return &ValidationError{Field: "period", Reason: fmt.Sprintf("must not span more than %d days", MaxPeriodDays)}
	}
	return nil
}

// Contains returns true if the day is within [Start, End].
func (p Period) Contains(d Date) bool {
	return d.AfterOrEqual(p.Start) && d.BeforeOrEqual(p.End)
}

// Overlaps returns true if the two periods share at least one day.
func (p Period) Overlaps(o Period) bool {
	return p.Start.BeforeOrEqual(o.End) && o.Start.BeforeOrEqual(p.End)
}

// Days returns every day in the period, in order.
func (p Period) Days() []Date {
	var days []Date
	for current := p.Start; current.BeforeOrEqual(p.End); current = current.AddDays(1) {
		days = append(days, current)
	}
	return days
}

// Len returns the number of days in the period.
func (p Period) Len() int {
	if p.End.Before(p.Start) {
		return 0
	}
	return p.Start.DaysUntil(p.End) + 1
}

// Clamp returns the intersection of p and o; ok is false when they are disjoint.
func (p Period) Clamp(o Period) (Period, bool) {
	if !p.Overlaps(o) {
		return Period{}, false
	}
	return Period{Start: MaxDate(p.Start, o.Start), End: MinDate(p.End, o.End)}, true
}

func (p Period) String() string {
	return "[" + p.Start.String() + ", " + p.End.String() + "]"
}

// =============================================================================
// PERIOD CONSTRUCTORS
// =============================================================================

func StartOfYear(year int) Date { return NewDate(year, time.January, 1) }
func EndOfYear(year int) Date   { return NewDate(year, time.December, 31) }

func YearPeriod(year int) Period {
	return Period{Start: StartOfYear(year), End: EndOfYear(year)}
}

func StartOfMonth(year int, month time.Month) Date { return NewDate(year, month, 1) }

func EndOfMonth(year int, month time.Month) Date {
	return NewDate(year, month, 1).AddMonths(1).AddDays(-1)
}

func MonthPeriod(year int, month time.Month) Period {
	return Period{Start: StartOfMonth(year, month), End: EndOfMonth(year, month)}
}

// ISOWeekPeriod returns Monday..Sunday of the ISO week containing d.
func ISOWeekPeriod(d Date) Period {
	start := d.StartOfISOWeek()
	return Period{Start: start, End: start.AddDays(6)}
}

// =============================================================================
// MONTH ITERATION
// =============================================================================

// YearMonth identifies a calendar month.
type YearMonth struct {
	Year  int        `json:"year"`
	Month time.Month `json:"month"`
}

func YearMonthOf(d Date) YearMonth { return YearMonth{Year: d.Year(), Month: d.Month()} }

func (ym YearMonth) Period() Period { return MonthPeriod(ym.Year, ym.Month) }

func (ym YearMonth) Next() YearMonth {
	if ym.Month == time.December {
		return YearMonth{Year: ym.Year + 1, Month: time.January}
	}
	return YearMonth{Year: ym.Year, Month: ym.Month + 1}
}

func (ym YearMonth) Before(o YearMonth) bool {
	return ym.Year < o.Year || (ym.Year == o.Year && ym.Month < o.Month)
}

func (ym YearMonth) String() string { return fmt.Sprintf("%04d-%02d", ym.Year, int(ym.Month)) }

// Months returns every calendar month touched by the period, in order.
func (p Period) Months() []YearMonth {
	var months []YearMonth
	last := YearMonthOf(p.End)
	for ym := YearMonthOf(p.Start); !last.Before(ym); ym = ym.Next() {
		months = append(months, ym)
	}
	return months
}

// ISOWeeks returns the Monday of every ISO week touched by the period.
func (p Period) ISOWeeks() []Date {
	var weeks []Date
	for monday := p.Start.StartOfISOWeek(); monday.BeforeOrEqual(p.End); monday = monday.AddDays(7) {
		weeks = append(weeks, monday)
	}
	return weeks
}
