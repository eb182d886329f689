package worktime

import (
	"time"

	"github.com/shopspring/decimal"
	"github.com/warp/worktime-engine/generic"
)

// =============================================================================
// BALANCE LEDGER - Monthly target/actual/balance and the cumulative account
// =============================================================================

// MonthlyBalance is derived data; it is recomputed from entries, absences,
// the timeline and the calendar, never edited.
//
// Target and Actual are rounded to two decimals. Balance = Actual - Target
// of the rounded values, and Cumulative is the running sum of Balance from
// the anchor month, so cumulative(M) = cumulative(M-1) + balance(M) holds
// exactly.
type MonthlyBalance struct {
	EmployeeID   generic.EmployeeID `json:"employee_id"`
	Year         int                `json:"year"`
	Month        time.Month         `json:"month"`
	Target       generic.Hours      `json:"target_hours"`
	Actual       generic.Hours      `json:"actual_hours"`
	Balance      generic.Hours      `json:"balance_hours"`
	Cumulative   generic.Hours      `json:"cumulative_hours"`
	AbsenceHours generic.Hours      `json:"absence_hours"`
}

func (m MonthlyBalance) YearMonth() generic.YearMonth {
	return generic.YearMonth{Year: m.Year, Month: m.Month}
}

type VacationAccount struct {
	EmployeeID     generic.EmployeeID `json:"employee_id"`
	Year           int                `json:"year"`
	BudgetDays     int                `json:"budget_days"`
	BudgetHours    generic.Hours      `json:"budget_hours"`
	UsedHours      generic.Hours      `json:"used_hours"`
	RemainingHours generic.Hours      `json:"remaining_hours"`
	UsedDays       decimal.Decimal    `json:"used_days"`
	RemainingDays  decimal.Decimal    `json:"remaining_days"`
}

// LedgerSnapshot is the full recomputed ledger for one employee.
type LedgerSnapshot struct {
	EmployeeID generic.EmployeeID `json:"employee_id"`
	Anchor     *generic.Date      `json:"anchor,omitempty"`
	Months     []MonthlyBalance   `json:"months"`
	Vacation   []VacationAccount  `json:"vacation"`
	ComputedAt time.Time          `json:"computed_at"`
}

// Month returns the balance for ym, ok=false when not in the snapshot.
func (s LedgerSnapshot) Month(ym generic.YearMonth) (MonthlyBalance, bool) {
	for _, m := range s.Months {
		if m.Year == ym.Year && m.Month == ym.Month {
			return m, true
		}
	}
	return MonthlyBalance{}, false
}

// LedgerInput is the primary data a ledger computation reads. Entries and
// Absences must cover every month from the anchor (or the first requested
// month, whichever is earlier) through the last requested month.
type LedgerInput struct {
	Schedule *Schedule
	Entries  []TimeEntry
	Absences []Absence

	// Anchor starts the cumulative account. Nil means no account yet:
	// every cumulative value is zero.
	Anchor *generic.Date
}

// MonthFigures computes rounded target and actual hours and the absence
// hours of one month.
func MonthFigures(in LedgerInput, ym generic.YearMonth) (target, actual, absence generic.Hours) {
	p := ym.Period()
	target = in.Schedule.PeriodTarget(p).RoundCents()
	actual = ActualHours(in.Entries, p).RoundCents()
	for _, a := range in.Absences {
		if p.Contains(a.Date) {
			absence = absence.Add(a.Hours)
		}
	}
	return target, actual, absence.RoundCents()
}

// ComputeMonths returns the balances for every month in [from, to].
// Cumulative values include every month from the anchor month on, also
// when the anchor precedes from.
func ComputeMonths(in LedgerInput, from, to generic.YearMonth) []MonthlyBalance {
	start := from
	var anchor generic.YearMonth
	if in.Anchor != nil {
		anchor = generic.YearMonthOf(*in.Anchor)
		if anchor.Before(start) {
			start = anchor
		}
	}

	var out []MonthlyBalance
	cumulative := generic.Hours{}
	for ym := start; !to.Before(ym); ym = ym.Next() {
		target, actual, absence := MonthFigures(in, ym)
		balance := actual.Sub(target)
		counted := in.Anchor != nil && !ym.Before(anchor)
		if counted {
			cumulative = cumulative.Add(balance)
		}
		if ym.Before(from) {
			continue
		}
		mb := MonthlyBalance{
			EmployeeID:   in.Schedule.Employee.ID,
			Year:         ym.Year,
			Month:        ym.Month,
			Target:       target,
			Actual:       actual,
			Balance:      balance,
			AbsenceHours: absence,
		}
		if counted {
			mb.Cumulative = cumulative
		}
		out = append(out, mb)
	}
	return out
}

// ComputeVacation values the vacation budget in hours at the baseline daily
// target and subtracts vacation absences taken in the year.
func ComputeVacation(in LedgerInput, year int) VacationAccount {
	emp := in.Schedule.Employee
	daily := emp.BaselineDailyTarget()
	budget := daily.MulInt(emp.VacationDays)

	p := generic.YearPeriod(year)
	used := generic.Hours{}
	for _, a := range in.Absences {
		if a.Type == AbsenceVacation && a.EmployeeID == emp.ID && p.Contains(a.Date) {
			used = used.Add(a.Hours)
		}
	}
	budget = budget.RoundCents()
	used = used.RoundCents()
	remaining := budget.Sub(used)

	acc := VacationAccount{
		EmployeeID:     emp.ID,
		Year:           year,
		BudgetDays:     emp.VacationDays,
		BudgetHours:    budget,
		UsedHours:      used,
		RemainingHours: remaining,
	}
	if daily.IsPositive() {
		acc.UsedDays = used.DivHours(daily).Round(2)
		acc.RemainingDays = remaining.DivHours(daily).Round(2)
	}
	return acc
}

// ComputeLedger recomputes the monthly balances for [from, to] and the
// vacation accounts of every year touched.
func ComputeLedger(in LedgerInput, from, to generic.YearMonth, now time.Time) LedgerSnapshot {
	snap := LedgerSnapshot{
		EmployeeID: in.Schedule.Employee.ID,
		Anchor:     in.Anchor,
		Months:     ComputeMonths(in, from, to),
		ComputedAt: now,
	}
	for year := from.Year; year <= to.Year; year++ {
		snap.Vacation = append(snap.Vacation, ComputeVacation(in, year))
	}
	return snap
}
