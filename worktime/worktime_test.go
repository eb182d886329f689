package worktime_test

import (
	"errors"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/warp/worktime-engine/generic"
	"github.com/warp/worktime-engine/worktime"
)

// =============================================================================
// TEST HELPERS
// =============================================================================

func date(year int, month time.Month, day int) generic.Date {
	return generic.NewDate(year, month, day)
}

func hours(s string) generic.Hours { return generic.MustParseHours(s) }

func clock(h, m int) generic.ClockTime { return generic.NewClockTime(h, m) }

// fullTimer is a 40h / 5 day employee with 30 vacation days.
func fullTimer() worktime.Employee {
	return worktime.Employee{
		ID:              "emp-1",
		Name:            "Erika Mustermann",
		Role:            worktime.RoleEmployee,
		WeeklyHours:     generic.NewHoursFromInt(40),
		WorkDaysPerWeek: 5,
		VacationDays:    30,
		TrackHours:      true,
		Active:          true,
	}
}

func entry(id string, d generic.Date, start, end generic.ClockTime, breakMinutes int) worktime.TimeEntry {
	return worktime.TimeEntry{
		ID:           generic.RecordID(id),
		EmployeeID:   "emp-1",
		Date:         d,
		Start:        start,
		End:          worktime.ClockPtr(end),
		BreakMinutes: breakMinutes,
	}
}

func schedule(emp worktime.Employee, changes []worktime.WorkingHoursChange, cal generic.HolidayCalendar, absences []worktime.Absence) *worktime.Schedule {
	return worktime.NewSchedule(emp, worktime.NewTimeline(emp, changes), cal, "BY", absences)
}

// =============================================================================
// EMPLOYEE & ENTRY VALIDATION
// =============================================================================

func TestEmployee_Validate(t *testing.T) {
	emp := fullTimer()
	assert.NoError(t, emp.Validate())

	emp.WorkDaysPerWeek = 0
	assert.ErrorIs(t, emp.Validate(), generic.ErrValidation)

	emp = fullTimer()
	emp.Role = "boss"
	assert.ErrorIs(t, emp.Validate(), generic.ErrValidation)
}

func TestTimeEntry_Validate(t *testing.T) {
	tue := date(2026, time.March, 3)

	assert.NoError(t, entry("e1", tue, clock(8, 0), clock(17, 0), 30).Validate())
	assert.NoError(t, entry("e1", tue, clock(22, 0), generic.EndOfDay, 0).Validate())

	var verr *generic.ValidationError
	err := entry("e1", tue, clock(17, 0), clock(8, 0), 0).Validate()
	require.ErrorAs(t, err, &verr)
	assert.Equal(t, "end_time", verr.Field)

	err = entry("e1", tue, clock(8, 0), clock(8, 20), 30).Validate()
	require.ErrorAs(t, err, &verr)
	assert.Equal(t, "break_minutes", verr.Field)

	open := worktime.TimeEntry{EmployeeID: "emp-1", Date: tue, Start: clock(9, 0)}
	assert.NoError(t, open.Validate())
	assert.True(t, open.IsOpen())
}

// =============================================================================
// WORKING-HOURS TIMELINE
// =============================================================================

func TestTimeline_LatestChangeOnOrBeforeDate(t *testing.T) {
	// GIVEN: baseline 40h, changes to 30h (2026-03-01) and 20h (2026-06-15),
	//        supplied out of order, plus a change of another employee
	// WHEN: resolving weekly hours on several dates
	// THEN: the latest change with effective_from <= date wins

	emp := fullTimer()
	tl := worktime.NewTimeline(emp, []worktime.WorkingHoursChange{
		{ID: "c2", EmployeeID: "emp-1", EffectiveFrom: date(2026, time.June, 15), WeeklyHours: generic.NewHoursFromInt(20)},
		{ID: "cx", EmployeeID: "emp-2", EffectiveFrom: date(2026, time.January, 1), WeeklyHours: generic.NewHoursFromInt(10)},
		{ID: "c1", EmployeeID: "emp-1", EffectiveFrom: date(2026, time.March, 1), WeeklyHours: generic.NewHoursFromInt(30)},
	})

	assert.Equal(t, "40.00", tl.HoursFor(date(2026, time.February, 28)).String())
	assert.Equal(t, "30.00", tl.HoursFor(date(2026, time.March, 1)).String())
	assert.Equal(t, "30.00", tl.HoursFor(date(2026, time.June, 14)).String())
	assert.Equal(t, "20.00", tl.HoursFor(date(2026, time.June, 15)).String())
	assert.Equal(t, "20.00", tl.HoursFor(date(2030, time.January, 1)).String())

	c, ok := tl.ChangeFor(date(2026, time.April, 1))
	require.True(t, ok)
	assert.Equal(t, generic.RecordID("c1"), c.ID)

	_, ok = tl.ChangeFor(date(2026, time.January, 1))
	assert.False(t, ok)
	assert.Len(t, tl.Changes(), 2)
}

func TestContractHours_DailyScheduleTakesPrecedence(t *testing.T) {
	emp := fullTimer()
	emp.UseDailySchedule = true
	emp.DailySchedule = [worktime.ScheduleDays]generic.Hours{
		hours("9"), hours("9"), hours("9"), hours("9"), hours("4"),
	}
	tl := worktime.NewTimeline(emp, nil)

	assert.Equal(t, "9.00", worktime.ContractHours(emp, tl, date(2026, time.March, 2)).String())
	assert.Equal(t, "4.00", worktime.ContractHours(emp, tl, date(2026, time.March, 6)).String())
	assert.True(t, worktime.ContractHours(emp, tl, date(2026, time.March, 7)).IsZero())
	assert.Empty(t, worktime.CheckScheduleIntegrity(emp))

	emp.DailySchedule[4] = hours("2")
	warnings := worktime.CheckScheduleIntegrity(emp)
	require.Len(t, warnings, 1)
	assert.Equal(t, "daily_schedule_mismatch", warnings[0].Code)
}

func TestContractHours_SixDayWeek(t *testing.T) {
	emp := fullTimer()
	emp.WeeklyHours = generic.NewHoursFromInt(36)
	emp.WorkDaysPerWeek = 6
	tl := worktime.NewTimeline(emp, nil)

	assert.Equal(t, "6.00", worktime.ContractHours(emp, tl, date(2026, time.March, 7)).String())
	assert.True(t, worktime.ContractHours(emp, tl, date(2026, time.March, 8)).IsZero())
}

// =============================================================================
// TARGET-HOURS CALCULATOR
// =============================================================================

func TestDailyTarget_ZeroOnWeekendHolidayAndAbsence(t *testing.T) {
	cal := generic.NewStaticCalendar("BY", map[generic.Date]string{
		date(2026, time.May, 1): "Tag der Arbeit",
	})
	s := schedule(fullTimer(), nil, cal, []worktime.Absence{
		{EmployeeID: "emp-1", Date: date(2026, time.May, 4), Type: worktime.AbsenceSick, Hours: hours("8")},
		{EmployeeID: "emp-2", Date: date(2026, time.May, 5), Type: worktime.AbsenceSick, Hours: hours("8")},
	})

	assert.True(t, s.DailyTarget(date(2026, time.May, 1)).IsZero(), "holiday")
	assert.True(t, s.DailyTarget(date(2026, time.May, 2)).IsZero(), "saturday")
	assert.True(t, s.DailyTarget(date(2026, time.May, 3)).IsZero(), "sunday")
	assert.True(t, s.DailyTarget(date(2026, time.May, 4)).IsZero(), "own absence")
	assert.Equal(t, "8.00", s.DailyTarget(date(2026, time.May, 5)).String(), "other employee's absence")
	assert.Equal(t, "8.00", s.ContractTarget(date(2026, time.May, 4)).String())
}

func TestDailyTarget_UntrackedEmployee(t *testing.T) {
	emp := fullTimer()
	emp.TrackHours = false
	s := schedule(emp, nil, nil, nil)

	assert.True(t, s.MonthlyTarget(2026, time.May).IsZero())
}

func TestMonthlyTarget_PiecewiseContractChange(t *testing.T) {
	// GIVEN: 20h/week, raised to 30h/week effective Monday 2027-02-15
	//        (February 2027 starts on a Monday and has four full weeks)
	// WHEN: computing February's target
	// THEN: 14/7*20 + 14/7*30 = 100h, not an average of the two rates

	emp := fullTimer()
	emp.WeeklyHours = generic.NewHoursFromInt(20)
	s := schedule(emp, []worktime.WorkingHoursChange{
		{ID: "c1", EmployeeID: "emp-1", EffectiveFrom: date(2027, time.February, 15), WeeklyHours: generic.NewHoursFromInt(30)},
	}, nil, nil)

	want := generic.NewHoursFromInt(20).MulInt(14).DivInt(7).Add(generic.NewHoursFromInt(30).MulInt(14).DivInt(7))

	got := s.MonthlyTarget(2027, time.February)

	assert.Equal(t, "100.00", got.String())
	assert.True(t, got.Equal(want))
	assert.Equal(t, "4.00", s.DailyTarget(date(2027, time.February, 12)).String())
	assert.Equal(t, "6.00", s.DailyTarget(date(2027, time.February, 15)).String())
}

func TestMonthlyTarget_ChangeMidJune(t *testing.T) {
	// GIVEN: 20h/week, raised to 30h/week effective Monday 2026-06-15
	// WHEN: computing June's target without holidays
	// THEN: 10 work days at 4h and 12 at 6h give 112h

	emp := fullTimer()
	emp.WeeklyHours = generic.NewHoursFromInt(20)
	s := schedule(emp, []worktime.WorkingHoursChange{
		{ID: "c1", EmployeeID: "emp-1", EffectiveFrom: date(2026, time.June, 15), WeeklyHours: generic.NewHoursFromInt(30)},
	}, nil, nil)

	assert.Equal(t, "112.00", s.MonthlyTarget(2026, time.June).String())
	assert.Equal(t, "40.00", s.PeriodTarget(generic.Period{Start: date(2026, time.June, 1), End: date(2026, time.June, 14)}).String())
	assert.Equal(t, "72.00", s.PeriodTarget(generic.Period{Start: date(2026, time.June, 15), End: date(2026, time.June, 30)}).String())
}

// =============================================================================
// TIME-ENTRY AGGREGATOR
// =============================================================================

func TestNetHours_WithBreak(t *testing.T) {
	// GIVEN: 08:00-17:00 with a 30 minute break on a Tuesday
	// THEN: net hours are exactly 8.5

	e := entry("e1", date(2026, time.March, 3), clock(8, 0), clock(17, 0), 30)

	assert.Equal(t, "8.50", worktime.NetHours(e).String())
}

func TestNetHours_LongDay(t *testing.T) {
	e := entry("e1", date(2026, time.March, 3), clock(8, 0), clock(20, 0), 20)

	assert.Equal(t, 700, worktime.NetMinutes(e))
	assert.Equal(t, "11.67", worktime.NetHours(e).String())
}

func TestNetHours_OpenEntryCountsNothing(t *testing.T) {
	open := worktime.TimeEntry{EmployeeID: "emp-1", Date: date(2026, time.March, 3), Start: clock(8, 0)}

	assert.Zero(t, worktime.NetMinutes(open))
}

func TestFindOverlap_Intersecting(t *testing.T) {
	// GIVEN: 08:00-12:00 on a day
	// WHEN: 11:30-16:00 is added the same day
	// THEN: the existing entry is reported as overlapping

	d := date(2026, time.March, 3)
	existing := []worktime.TimeEntry{entry("e1", d, clock(8, 0), clock(12, 0), 0)}

	conflict, ok := worktime.FindOverlap(existing, entry("", d, clock(11, 30), clock(16, 0), 0))

	require.True(t, ok)
	assert.Equal(t, generic.RecordID("e1"), conflict.ID)
}

func TestFindOverlap_TouchingAndSelf(t *testing.T) {
	d := date(2026, time.March, 3)
	existing := []worktime.TimeEntry{
		entry("e1", d, clock(8, 0), clock(12, 0), 0),
		entry("e2", d.AddDays(1), clock(11, 0), clock(13, 0), 0),
	}

	_, ok := worktime.FindOverlap(existing, entry("", d, clock(12, 0), clock(16, 0), 0))
	assert.False(t, ok, "touching intervals do not overlap")

	_, ok = worktime.FindOverlap(existing, entry("e1", d, clock(9, 0), clock(12, 0), 0))
	assert.False(t, ok, "an entry does not overlap its own previous version")
}

func TestFindOverlap_OpenEntries(t *testing.T) {
	d := date(2026, time.March, 3)
	open := worktime.TimeEntry{ID: "e1", EmployeeID: "emp-1", Date: d, Start: clock(8, 0)}

	_, ok := worktime.FindOverlap([]worktime.TimeEntry{open}, entry("", d, clock(14, 0), clock(15, 0), 0))
	assert.True(t, ok, "an open entry blocks the rest of its day")

	_, ok = worktime.FindOverlap([]worktime.TimeEntry{open}, worktime.TimeEntry{EmployeeID: "emp-1", Date: d, Start: clock(6, 0)})
	assert.True(t, ok, "only one open entry per day")
}

func TestAggregateDay_BlocksAndGaps(t *testing.T) {
	d := date(2026, time.March, 3)
	entries := []worktime.TimeEntry{
		entry("e2", d, clock(12, 30), clock(17, 0), 0),
		entry("e1", d, clock(8, 0), clock(12, 0), 15),
		{ID: "e3", EmployeeID: "emp-1", Date: d, Start: clock(18, 0)},
		entry("e4", d.AddDays(1), clock(8, 0), clock(9, 0), 0),
	}

	agg := worktime.AggregateDay(d, entries)

	require.Len(t, agg.Blocks, 2)
	assert.Equal(t, generic.RecordID("e1"), agg.Blocks[0].EntryID)
	assert.Equal(t, 30, agg.GapMinutes)
	assert.Equal(t, 45, agg.EffectiveBreakMinutes())
	assert.Equal(t, 1, agg.OpenEntries)
	assert.Equal(t, "8.25", agg.Net().String())

	first, _ := agg.FirstStart()
	last, _ := agg.LastEnd()
	assert.Equal(t, clock(8, 0), first)
	assert.Equal(t, clock(17, 0), last)

	days := worktime.AggregateDays(entries)
	require.Len(t, days, 2)
	assert.True(t, days[0].Date.Equal(d))
}

// =============================================================================
// BALANCE LEDGER
// =============================================================================

// fullDays records 08:00-17:00 with 30 minutes break on every weekday of p.
func fullDays(p generic.Period) []worktime.TimeEntry {
	var out []worktime.TimeEntry
	for _, d := range p.Days() {
		if d.IsWeekend() {
			continue
		}
		out = append(out, entry("e-"+d.String(), d, clock(8, 0), clock(17, 0), 30))
	}
	return out
}

func TestComputeMonths_CumulativeFromAnchor(t *testing.T) {
	// GIVEN: anchor 2027-02-01, February fully worked at 8.5h/day,
	//        March without any entry
	// WHEN: computing February and March
	// THEN: Feb = 170 - 160 = +10, Mar = 0 - 184 = -184,
	//       cumulative(Mar) = cumulative(Feb) + balance(Mar)

	anchor := date(2027, time.February, 1)
	in := worktime.LedgerInput{
		Schedule: schedule(fullTimer(), nil, nil, nil),
		Entries:  fullDays(generic.MonthPeriod(2027, time.February)),
		Anchor:   &anchor,
	}

	months := worktime.ComputeMonths(in, generic.YearMonth{Year: 2027, Month: time.February}, generic.YearMonth{Year: 2027, Month: time.March})

	require.Len(t, months, 2)
	feb, mar := months[0], months[1]
	assert.Equal(t, "160.00", feb.Target.String())
	assert.Equal(t, "170.00", feb.Actual.String())
	assert.Equal(t, "10.00", feb.Balance.String())
	assert.Equal(t, "10.00", feb.Cumulative.String())
	assert.Equal(t, "184.00", mar.Target.String())
	assert.Equal(t, "-184.00", mar.Balance.String())
	assert.True(t, mar.Cumulative.Equal(feb.Cumulative.Add(mar.Balance)))
}

func TestComputeMonths_AnchorBeforeRequestedRange(t *testing.T) {
	// GIVEN: anchor in January 2027 (21 work days, no entries)
	// WHEN: only February is requested
	// THEN: February's cumulative still includes January's -168h

	anchor := date(2027, time.January, 1)
	in := worktime.LedgerInput{
		Schedule: schedule(fullTimer(), nil, nil, nil),
		Entries:  fullDays(generic.MonthPeriod(2027, time.February)),
		Anchor:   &anchor,
	}
	feb := generic.YearMonth{Year: 2027, Month: time.February}

	months := worktime.ComputeMonths(in, feb, feb)

	require.Len(t, months, 1)
	assert.Equal(t, "-158.00", months[0].Cumulative.String())
}

func TestComputeMonths_NoAnchorNoCumulative(t *testing.T) {
	in := worktime.LedgerInput{
		Schedule: schedule(fullTimer(), nil, nil, nil),
		Entries:  fullDays(generic.MonthPeriod(2027, time.February)),
	}
	feb := generic.YearMonth{Year: 2027, Month: time.February}

	months := worktime.ComputeMonths(in, feb, feb)

	require.Len(t, months, 1)
	assert.Equal(t, "10.00", months[0].Balance.String())
	assert.True(t, months[0].Cumulative.IsZero())
}

func TestComputeLedger_Idempotent(t *testing.T) {
	anchor := date(2027, time.January, 1)
	in := worktime.LedgerInput{
		Schedule: schedule(fullTimer(), nil, nil, nil),
		Entries:  fullDays(generic.MonthPeriod(2027, time.February)),
		Anchor:   &anchor,
	}
	from := generic.YearMonth{Year: 2027, Month: time.January}
	to := generic.YearMonth{Year: 2027, Month: time.June}
	now := time.Date(2027, time.July, 1, 12, 0, 0, 0, time.UTC)

	first := worktime.ComputeLedger(in, from, to, now)
	second := worktime.ComputeLedger(in, from, to, now)

	assert.Equal(t, first, second)
	require.Len(t, first.Months, 6)
	for i := 1; i < len(first.Months); i++ {
		prev, cur := first.Months[i-1], first.Months[i]
		assert.True(t, cur.Cumulative.Equal(prev.Cumulative.Add(cur.Balance)), cur.YearMonth().String())
	}
	require.Len(t, first.Vacation, 1)

	m, ok := first.Month(generic.YearMonth{Year: 2027, Month: time.February})
	require.True(t, ok)
	assert.Equal(t, "10.00", m.Balance.String())
}

func TestComputeVacation(t *testing.T) {
	var used []worktime.Absence
	for _, d := range generic.MonthPeriod(2026, time.August).Days()[2:13] {
		if d.IsWeekend() {
			continue
		}
		used = append(used, worktime.Absence{EmployeeID: "emp-1", Date: d, Type: worktime.AbsenceVacation, Hours: hours("8")})
	}
	used = append(used, worktime.Absence{EmployeeID: "emp-1", Date: date(2026, time.August, 17), Type: worktime.AbsenceSick, Hours: hours("8")})

	acc := worktime.ComputeVacation(worktime.LedgerInput{Schedule: schedule(fullTimer(), nil, nil, nil), Absences: used}, 2026)

	assert.Equal(t, "240.00", acc.BudgetHours.String())
	assert.Equal(t, "72.00", acc.UsedHours.String())
	assert.Equal(t, "168.00", acc.RemainingHours.String())
	assert.True(t, acc.UsedDays.Equal(decimal.NewFromInt(9)))
	assert.True(t, acc.RemainingDays.Equal(decimal.NewFromInt(21)))
}

// =============================================================================
// ABSENCE RANGE EXPANDER
// =============================================================================

func TestExpandAbsence_SkipsWeekendAndHoliday(t *testing.T) {
	// GIVEN: vacation 2026-08-03 .. 2026-08-14 (two Mon-Fri weeks) and a
	//        public holiday on Wednesday 2026-08-12
	// WHEN: the range is expanded
	// THEN: exactly 9 rows, each consuming the 8h daily target, and the sum
	//       equals working days x hours per day

	cal := generic.NewStaticCalendar("BY", map[generic.Date]string{
		date(2026, time.August, 12): "Betriebsfeiertag",
	})
	s := schedule(fullTimer(), nil, cal, nil)

	rows, err := worktime.ExpandAbsence(s, worktime.AbsenceRange{
		EmployeeID: "emp-1",
		Start:      date(2026, time.August, 3),
		End:        date(2026, time.August, 14),
		Type:       worktime.AbsenceVacation,
	})

	require.NoError(t, err)
	require.Len(t, rows, 9)
	total := generic.Hours{}
	for _, r := range rows {
		assert.Equal(t, "8.00", r.Hours.String())
		assert.False(t, r.Date.IsWeekend())
		assert.False(t, r.Date.Equal(date(2026, time.August, 12)))
		total = total.Add(r.Hours)
	}
	assert.True(t, total.Equal(generic.NewHoursFromInt(8).MulInt(9)))
}

func TestExpandAbsence_FixedHoursPerDay(t *testing.T) {
	s := schedule(fullTimer(), nil, nil, nil)

	rows, err := worktime.ExpandAbsence(s, worktime.AbsenceRange{
		EmployeeID:  "emp-1",
		Start:       date(2026, time.August, 7),
		End:         date(2026, time.August, 10),
		Type:        worktime.AbsenceTraining,
		HoursPerDay: hours("4"),
	})

	require.NoError(t, err)
	require.Len(t, rows, 2)
	assert.Equal(t, "4.00", rows[1].Hours.String())
}

func TestExpandAbsence_Errors(t *testing.T) {
	s := schedule(fullTimer(), nil, nil, nil)

	_, err := worktime.ExpandAbsence(s, worktime.AbsenceRange{
		EmployeeID: "emp-1", Start: date(2026, time.August, 14), End: date(2026, time.August, 3), Type: worktime.AbsenceVacation,
	})
	assert.ErrorIs(t, err, generic.ErrInvalidPeriod)

	_, err = worktime.ExpandAbsence(s, worktime.AbsenceRange{
		EmployeeID: "emp-1", Start: date(2026, time.August, 8), End: date(2026, time.August, 9), Type: worktime.AbsenceVacation,
	})
	assert.ErrorIs(t, err, generic.ErrValidation, "weekend only")

	_, err = worktime.ExpandAbsence(s, worktime.AbsenceRange{
		EmployeeID: "emp-1", Start: date(2026, time.August, 3), End: date(2026, time.August, 3), Type: "holiday",
	})
	assert.ErrorIs(t, err, generic.ErrValidation)
}

func TestDuplicateAbsence(t *testing.T) {
	existing := []worktime.Absence{{Date: date(2026, time.August, 4), Type: worktime.AbsenceVacation}}

	_, dup := worktime.DuplicateAbsence(existing, []worktime.Absence{{Date: date(2026, time.August, 4), Type: worktime.AbsenceSick}})
	assert.False(t, dup, "a different type on the same day is not a duplicate")

	row, dup := worktime.DuplicateAbsence(existing, []worktime.Absence{{Date: date(2026, time.August, 4), Type: worktime.AbsenceVacation}})
	assert.True(t, dup)
	assert.True(t, row.Date.Equal(date(2026, time.August, 4)))
}

func TestSumAbsences(t *testing.T) {
	absences := []worktime.Absence{
		{Date: date(2026, time.July, 31), Type: worktime.AbsenceVacation, Hours: hours("8")},
		{Date: date(2026, time.August, 3), Type: worktime.AbsenceVacation, Hours: hours("8")},
		{Date: date(2026, time.August, 4), Type: worktime.AbsenceVacation, Hours: hours("4.5")},
		{Date: date(2026, time.August, 5), Type: worktime.AbsenceSick, Hours: hours("8")},
	}

	totals := worktime.SumAbsences(absences, generic.MonthPeriod(2026, time.August))

	assert.Equal(t, 2, totals.Days[worktime.AbsenceVacation])
	assert.Equal(t, 1, totals.Days[worktime.AbsenceSick])
	assert.Zero(t, totals.Days[worktime.AbsenceTraining])
	assert.Equal(t, "12.50", totals.Hours[worktime.AbsenceVacation].String())
	assert.Equal(t, 3, totals.TotalDays())
}

func TestSickOverVacation(t *testing.T) {
	// GIVEN: vacation on Aug 3 and Aug 4
	// WHEN: sickness is planned for Aug 4 and Aug 5
	// THEN: only Aug 4 is a conflict, and the error asks for a decision

	existing := []worktime.Absence{
		{ID: "a1", Date: date(2026, time.August, 3), Type: worktime.AbsenceVacation, Hours: hours("8")},
		{ID: "a2", Date: date(2026, time.August, 4), Type: worktime.AbsenceVacation, Hours: hours("8")},
	}
	planned := []worktime.Absence{
		{Date: date(2026, time.August, 4), Type: worktime.AbsenceSick},
		{Date: date(2026, time.August, 5), Type: worktime.AbsenceSick},
	}

	conflicts := worktime.SickOverVacation(existing, planned)

	require.Len(t, conflicts, 1)
	assert.Equal(t, generic.RecordID("a2"), conflicts[0].AbsenceID)

	err := error(&worktime.VacationConflictError{Conflicts: conflicts})
	assert.True(t, errors.Is(err, generic.ErrDecisionRequired))
	assert.Contains(t, err.Error(), "2026-08-04")
}

func TestPlanClosure_SkipsHolidaysAndExistingVacation(t *testing.T) {
	// GIVEN: a closure 2026-12-24 .. 2026-12-31, Christmas Day as holiday
	//        and an existing vacation day on Dec 28
	// WHEN: planning the closure for the employee
	// THEN: vacation rows for Dec 24, 29, 30 and 31, tagged with the closure

	cal := generic.NewStaticCalendar("BY", map[generic.Date]string{
		date(2026, time.December, 25): "1. Weihnachtstag",
	})
	s := schedule(fullTimer(), nil, cal, nil)
	closure := worktime.CompanyClosure{ID: "cl-1", Name: "Betriebsferien", StartDate: date(2026, time.December, 24), EndDate: date(2026, time.December, 31)}
	existing := []worktime.Absence{{EmployeeID: "emp-1", Date: date(2026, time.December, 28), Type: worktime.AbsenceVacation}}

	rows := worktime.PlanClosure(s, closure, existing)

	require.Len(t, rows, 4)
	assert.True(t, rows[0].Date.Equal(date(2026, time.December, 24)))
	assert.True(t, rows[1].Date.Equal(date(2026, time.December, 29)))
	for _, r := range rows {
		assert.Equal(t, worktime.AbsenceVacation, r.Type)
		assert.Equal(t, generic.RecordID("cl-1"), r.ClosureID)
		assert.Equal(t, "8.00", r.Hours.String())
	}
}

// =============================================================================
// CHANGE REQUEST VALUES
// =============================================================================

func TestEntryValues_ApplyKeepsIdentity(t *testing.T) {
	original := entry("e1", date(2026, time.March, 3), clock(8, 0), clock(12, 0), 0)
	values := worktime.ValuesOf(original)
	values.Start = clock(9, 0)

	updated := values.Apply(original)

	assert.Equal(t, generic.RecordID("e1"), updated.ID)
	assert.Equal(t, clock(9, 0), updated.Start)

	cr := worktime.ChangeRequest{Original: &values}
	assert.True(t, cr.TargetDate().Equal(date(2026, time.March, 3)))
}
