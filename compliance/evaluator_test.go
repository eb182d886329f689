package compliance_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/warp/worktime-engine/compliance"
	"github.com/warp/worktime-engine/generic"
	"github.com/warp/worktime-engine/worktime"
)

// =============================================================================
// TEST HELPERS
// =============================================================================

func date(year int, month time.Month, day int) generic.Date {
	return generic.NewDate(year, month, day)
}

func clock(h, m int) generic.ClockTime { return generic.NewClockTime(h, m) }

func employee() worktime.Employee {
	return worktime.Employee{
		ID:              "emp-1",
		Name:            "Max Mustermann",
		Role:            worktime.RoleEmployee,
		WeeklyHours:     generic.NewHoursFromInt(40),
		WorkDaysPerWeek: 5,
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

func newEvaluator(cal generic.HolidayCalendar) *compliance.Evaluator {
	return compliance.NewEvaluator(compliance.DefaultRules(), cal, "BY")
}

func rules(fs []compliance.Finding) []compliance.Rule {
	out := make([]compliance.Rule, len(fs))
	for i, f := range fs {
		out[i] = f.Rule
	}
	return out
}

func findRule(t *testing.T, fs []compliance.Finding, r compliance.Rule) compliance.Finding {
	t.Helper()
	for _, f := range fs {
		if f.Rule == r {
			return f
		}
	}
	t.Fatalf("no %s finding in %v", r, rules(fs))
	return compliance.Finding{}
}

// tuesday is 2026-03-03.
var tuesday = date(2026, time.March, 3)

// =============================================================================
// SAVE-TIME CHECKS
// =============================================================================

func TestCheckEntry_ExtendedDayIsAdvisory(t *testing.T) {
	// GIVEN: 08:00-17:00 with a 30 minute break on a Tuesday (8.5h net)
	// WHEN: the entry is checked
	// THEN: nothing blocks, no break finding and no daily-ceiling finding;
	//       the 8h extension is reported as advisory only

	ev := newEvaluator(nil)

	findings := ev.CheckEntry(employee(), entry("", tuesday, clock(8, 0), clock(17, 0), 30), nil)

	assert.Empty(t, compliance.Blocking(findings))
	assert.False(t, compliance.HasRule(findings, compliance.RuleBreakMinimum))
	assert.False(t, compliance.HasRule(findings, compliance.RuleDailyCeiling))
	ext := findRule(t, findings, compliance.RuleDailyExtended)
	assert.False(t, ext.IsBlocking())
	assert.Equal(t, "8.50", ext.Measured.String())
}

func TestCheckEntry_DailyCeilingBlocks(t *testing.T) {
	// GIVEN: 08:00-20:00 with a 20 minute break (11h40m net)
	// WHEN: the entry is checked
	// THEN: the daily ceiling blocks the save with a specific reason

	ev := newEvaluator(nil)

	findings := ev.CheckEntry(employee(), entry("", tuesday, clock(8, 0), clock(20, 0), 20), nil)

	ceiling := findRule(t, findings, compliance.RuleDailyCeiling)
	assert.True(t, ceiling.IsBlocking())
	assert.Equal(t, "11.67", ceiling.Measured.String())
	assert.Equal(t, "10.00", ceiling.Limit.String())
	assert.Contains(t, ceiling.Detail, "11.67h")

	// 20 min break for more than 9h of work
	brk := findRule(t, findings, compliance.RuleBreakMinimum)
	assert.Equal(t, "0.75", brk.Limit.String())

	err := &compliance.RejectionError{Findings: compliance.Blocking(findings)}
	assert.ErrorIs(t, err, generic.ErrValidation)
	assert.Contains(t, err.Error(), "daily maximum")
}

func TestCheckEntry_OverlapBlocks(t *testing.T) {
	// GIVEN: 08:00-12:00 already recorded
	// WHEN: 11:30-16:00 is checked for the same day
	// THEN: overlap blocks and names the existing entry

	ev := newEvaluator(nil)
	existing := []worktime.TimeEntry{entry("e1", tuesday, clock(8, 0), clock(12, 0), 0)}

	findings := ev.CheckEntry(employee(), entry("", tuesday, clock(11, 30), clock(16, 0), 0), existing)

	overlap := findRule(t, findings, compliance.RuleOverlap)
	assert.True(t, overlap.IsBlocking())
	assert.Equal(t, generic.RecordID("e1"), overlap.EntryID)
}

func TestCheckEntry_SundayNeedsReason(t *testing.T) {
	// GIVEN: an entry on Sunday 2026-03-08
	// WHEN: checked without and with the reason "Notdienst"
	// THEN: rejected without a reason; accepted with one and flagged as
	//       Sunday work

	ev := newEvaluator(nil)
	sunday := date(2026, time.March, 8)
	e := entry("", sunday, clock(9, 0), clock(13, 0), 0)

	findings := ev.CheckEntry(employee(), e, nil)
	missing := findRule(t, findings, compliance.RuleSundayReasonMissing)
	assert.True(t, missing.IsBlocking())
	assert.Contains(t, missing.Detail, "Sunday 2026-03-08")

	e.SundayExceptionReason = "Notdienst"
	findings = ev.CheckEntry(employee(), e, nil)
	assert.Empty(t, compliance.Blocking(findings))
	flag := findRule(t, findings, compliance.RuleSundayHolidayWork)
	assert.False(t, flag.IsBlocking())
	assert.True(t, ev.IsSundayOrHoliday(sunday))
}

func TestCheckEntry_BlankReasonIsMissing(t *testing.T) {
	// GIVEN: a Sunday entry whose reason is only whitespace
	// WHEN: checked at save time and in a period report
	// THEN: both treat the reason as missing and block

	ev := newEvaluator(nil)
	sunday := date(2026, time.March, 8)
	e := entry("e1", sunday, clock(9, 0), clock(12, 0), 0)
	e.SundayExceptionReason = "   "

	findings := ev.CheckEntry(employee(), e, nil)
	assert.True(t, compliance.HasRule(compliance.Blocking(findings), compliance.RuleSundayReasonMissing))

	report := ev.Evaluate(compliance.Input{
		Employee: employee(),
		Entries:  []worktime.TimeEntry{e},
		Period:   generic.Period{Start: sunday, End: sunday},
		Until:    sunday,
	})
	missing := findRule(t, report.Findings, compliance.RuleSundayReasonMissing)
	assert.Equal(t, generic.RecordID("e1"), missing.EntryID)
}

func TestCheckEntry_HolidayNeedsReason(t *testing.T) {
	cal := generic.NewStaticCalendar("BY", map[generic.Date]string{
		date(2026, time.May, 1): "Tag der Arbeit",
	})
	ev := newEvaluator(cal)

	findings := ev.CheckEntry(employee(), entry("", date(2026, time.May, 1), clock(9, 0), clock(12, 0), 0), nil)

	missing := findRule(t, findings, compliance.RuleSundayReasonMissing)
	assert.Contains(t, missing.Detail, "Tag der Arbeit")
}

func TestCheckEntry_ExemptEmployeeOnlyOverlap(t *testing.T) {
	// GIVEN: an ArbZG-exempt employee
	// WHEN: an 11.5h Sunday entry without reason overlaps another entry
	// THEN: only the overlap is reported

	ev := newEvaluator(nil)
	emp := employee()
	emp.ArbZGExempt = true
	sunday := date(2026, time.March, 8)

	findings := ev.CheckEntry(emp, entry("", sunday, clock(8, 0), clock(20, 0), 20), nil)
	assert.Empty(t, findings)

	findings = ev.CheckEntry(emp, entry("", sunday, clock(8, 0), clock(20, 0), 20),
		[]worktime.TimeEntry{entry("e1", sunday, clock(19, 0), clock(21, 0), 0)})
	assert.Equal(t, []compliance.Rule{compliance.RuleOverlap}, rules(findings))
}

func TestCheckEntry_UpdateIgnoresPreviousVersion(t *testing.T) {
	ev := newEvaluator(nil)
	existing := []worktime.TimeEntry{entry("e1", tuesday, clock(8, 0), clock(16, 0), 30)}

	findings := ev.CheckEntry(employee(), entry("e1", tuesday, clock(8, 0), clock(15, 0), 30), existing)

	assert.Empty(t, findings)
}

// =============================================================================
// BREAKS, REST, WEEKLY
// =============================================================================

func TestBreakMinimum(t *testing.T) {
	ev := newEvaluator(nil)

	// GIVEN: 7h without a break
	findings := ev.CheckEntry(employee(), entry("", tuesday, clock(8, 0), clock(15, 0), 0), nil)
	brk := findRule(t, findings, compliance.RuleBreakMinimum)
	assert.Equal(t, "0.50", brk.Limit.String())

	// GIVEN: the same hours split with a 30 minute gap; the gap counts as break
	existing := []worktime.TimeEntry{entry("e1", tuesday, clock(8, 0), clock(12, 0), 0)}
	findings = ev.CheckEntry(employee(), entry("", tuesday, clock(12, 30), clock(15, 30), 0), existing)
	assert.False(t, compliance.HasRule(findings, compliance.RuleBreakMinimum))

	// GIVEN: 9.25h with only 30 minutes
	findings = ev.CheckEntry(employee(), entry("", tuesday, clock(7, 0), clock(16, 45), 30), nil)
	brk = findRule(t, findings, compliance.RuleBreakMinimum)
	assert.Equal(t, "0.75", brk.Limit.String())
	assert.Equal(t, "0.50", brk.Measured.String())
}

func TestRestPeriod(t *testing.T) {
	// GIVEN: work until 23:00 on Tuesday
	// WHEN: Wednesday starts at 07:00
	// THEN: 8h rest, 3h short of 11h, reported on Wednesday

	ev := newEvaluator(nil)
	existing := []worktime.TimeEntry{entry("e1", tuesday, clock(15, 0), clock(23, 0), 30)}
	wednesday := tuesday.AddDays(1)

	findings := ev.CheckEntry(employee(), entry("", wednesday, clock(7, 0), clock(12, 0), 0), existing)

	rest := findRule(t, findings, compliance.RuleRestPeriod)
	assert.True(t, rest.Date.Equal(wednesday))
	assert.Equal(t, "8.00", rest.Measured.String())
	assert.Equal(t, "3.00", rest.Deficit.String())
	assert.False(t, rest.IsBlocking())

	// the check also looks forward from the candidate's day
	findings = ev.CheckEntry(employee(), entry("", tuesday.AddDays(-1), clock(14, 0), clock(22, 0), 30), existing)
	assert.False(t, compliance.HasRule(findings, compliance.RuleRestPeriod))
}

func TestWeeklyCeiling(t *testing.T) {
	// GIVEN: 9h net Monday to Friday
	// WHEN: a 4h Saturday entry is added
	// THEN: the ISO week reaches 49h and is flagged

	ev := newEvaluator(nil)
	monday := date(2026, time.March, 2)
	var week []worktime.TimeEntry
	for i := 0; i < 5; i++ {
		week = append(week, entry("e"+string(rune('1'+i)), monday.AddDays(i), clock(8, 0), clock(18, 0), 60))
	}

	findings := ev.CheckEntry(employee(), entry("", monday.AddDays(5), clock(8, 0), clock(12, 0), 0), week)

	weekly := findRule(t, findings, compliance.RuleWeeklyCeiling)
	assert.Equal(t, "49.00", weekly.Measured.String())
	require.NotNil(t, weekly.Period)
	assert.True(t, weekly.Period.Start.Equal(monday))
	assert.Contains(t, weekly.Detail, "2026-W10")
}

// =============================================================================
// PERIOD REPORT
// =============================================================================

func TestEvaluate_CompensatoryRest(t *testing.T) {
	// GIVEN: Sunday work on 2026-03-08 followed by work on every day
	//        except Sundays for the next two weeks
	// WHEN: March is evaluated with the window elapsed
	// THEN: a compensatory-rest finding closes the 14-day window

	ev := newEvaluator(nil)
	sunday := date(2026, time.March, 8)
	entries := []worktime.TimeEntry{entry("s", sunday, clock(9, 0), clock(13, 0), 0)}
	entries[0].SundayExceptionReason = "Notdienst"
	for d := sunday.AddDays(1); d.BeforeOrEqual(sunday.AddDays(14)); d = d.AddDays(1) {
		if d.IsSunday() {
			continue
		}
		entries = append(entries, entry("w-"+d.String(), d, clock(8, 0), clock(12, 0), 0))
	}
	in := compliance.Input{
		Employee: employee(),
		Entries:  entries,
		Period:   generic.MonthPeriod(2026, time.March),
		Until:    date(2026, time.March, 31),
	}

	report := ev.Evaluate(in)

	comp := findRule(t, report.Findings, compliance.RuleCompensatoryRest)
	assert.True(t, comp.TriggerDate.Equal(sunday))
	assert.Equal(t, 14, comp.WindowDays)
	assert.True(t, comp.Date.Equal(date(2026, time.March, 22)))
	assert.Empty(t, report.Blocking())

	// a free Saturday inside the window satisfies the rule
	var withRest []worktime.TimeEntry
	for _, e := range entries {
		if !e.Date.Equal(date(2026, time.March, 14)) {
			withRest = append(withRest, e)
		}
	}
	in.Entries = withRest
	assert.False(t, compliance.HasRule(ev.Evaluate(in).Findings, compliance.RuleCompensatoryRest))

	// an open window is not reported yet
	in.Entries = entries
	in.Until = date(2026, time.March, 20)
	assert.False(t, compliance.HasRule(ev.Evaluate(in).Findings, compliance.RuleCompensatoryRest))
}

// nightDays records 22:00-24:00 on n distinct days of 2026.
func nightDays(n int) []worktime.TimeEntry {
	var out []worktime.TimeEntry
	d := date(2026, time.January, 5)
	for i := 0; i < n; i++ {
		out = append(out, entry("n-"+d.String(), d, clock(22, 0), generic.EndOfDay, 0))
		d = d.AddDays(3)
	}
	return out
}

func TestEvaluate_NightWorker(t *testing.T) {
	// GIVEN: 50 night-work days in 2026
	// THEN: the employee is a night worker
	// GIVEN: 47 night-work days
	// THEN: not a night worker

	ev := newEvaluator(nil)
	year := generic.YearPeriod(2026)

	report := ev.Evaluate(compliance.Input{Employee: employee(), Entries: nightDays(50), Period: year})
	assert.Equal(t, 50, report.NightDays[2026])
	assert.True(t, report.NightWorker[2026])
	worker := findRule(t, report.Findings, compliance.RuleNightWorker)
	assert.Equal(t, 50, worker.Count)
	assert.Equal(t, 48, worker.Threshold)

	report = ev.Evaluate(compliance.Input{Employee: employee(), Entries: nightDays(47), Period: year})
	assert.Equal(t, 47, report.NightDays[2026])
	assert.False(t, report.NightWorker[2026])
	assert.False(t, compliance.HasRule(report.Findings, compliance.RuleNightWorker))

	assert.Equal(t, 47, ev.NightWorkDays(2026, nightDays(47)))
}

func TestEvaluate_NightWorkWindow(t *testing.T) {
	ev := newEvaluator(nil)

	assert.Equal(t, 1, ev.NightWorkDays(2026, []worktime.TimeEntry{entry("a", tuesday, clock(5, 0), clock(9, 0), 0)}))
	assert.Equal(t, 0, ev.NightWorkDays(2026, []worktime.TimeEntry{entry("b", tuesday, clock(6, 0), clock(23, 0), 60)}))
}

func TestEvaluate_SundayQuota(t *testing.T) {
	// GIVEN: work on 38 of the 52 Sundays of 2026
	// WHEN: the year is evaluated at its end
	// THEN: 14 free Sundays, one short of 15

	ev := newEvaluator(nil)
	var entries []worktime.TimeEntry
	d := date(2026, time.January, 4)
	for i := 0; i < 38; i++ {
		e := entry("s-"+d.String(), d, clock(9, 0), clock(11, 0), 0)
		e.SundayExceptionReason = "Notdienst"
		entries = append(entries, e)
		d = d.AddDays(7)
	}

	report := ev.Evaluate(compliance.Input{Employee: employee(), Entries: entries, Period: generic.YearPeriod(2026)})

	quota := findRule(t, report.Findings, compliance.RuleSundayQuota)
	assert.Equal(t, 14, quota.Count)
	assert.Equal(t, 15, quota.Threshold)

	// mid-year, the remaining Sundays still count as free
	report = ev.Evaluate(compliance.Input{
		Employee: employee(),
		Entries:  entries,
		Period:   generic.YearPeriod(2026),
		Until:    date(2026, time.June, 30),
	})
	assert.False(t, compliance.HasRule(report.Findings, compliance.RuleSundayQuota))
}

func TestEvaluate_StoredOverlapAndOrdering(t *testing.T) {
	ev := newEvaluator(nil)
	entries := []worktime.TimeEntry{
		entry("e2", tuesday.AddDays(1), clock(8, 0), clock(20, 0), 60),
		entry("e1", tuesday, clock(8, 0), clock(12, 0), 0),
		entry("e3", tuesday, clock(11, 0), clock(13, 0), 0),
	}

	report := ev.Evaluate(compliance.Input{Employee: employee(), Entries: entries, Period: generic.MonthPeriod(2026, time.March)})

	require.NotEmpty(t, report.Findings)
	assert.Equal(t, compliance.RuleOverlap, report.Findings[0].Rule)
	assert.True(t, report.Findings[0].Date.Equal(tuesday))
	for i := 1; i < len(report.Findings); i++ {
		prev, cur := report.Findings[i-1], report.Findings[i]
		if !prev.Date.IsZero() && !cur.Date.IsZero() {
			assert.False(t, cur.Date.Before(prev.Date))
		}
	}
	assert.True(t, compliance.HasRule(report.Blocking(), compliance.RuleDailyCeiling))
}

func TestDefaultRules(t *testing.T) {
	r := compliance.DefaultRules()

	assert.Equal(t, "11.00", r.MinRest.String())
	assert.Equal(t, 48, r.NightWorkerThreshold)
	assert.Equal(t, 14, r.SundayRestWindowDays)
	assert.Equal(t, 56, r.HolidayRestWindowDays)
	assert.Equal(t, 15, r.MinFreeSundays)
}
