package compliance

import (
	"fmt"
	"sort"

	"github.com/warp/worktime-engine/generic"
	"github.com/warp/worktime-engine/worktime"
)

// =============================================================================
// EVALUATOR
// =============================================================================

// Evaluator applies Rules to an employee's entries. It is stateless and safe
// for concurrent use.
type Evaluator struct {
	Rules    Rules
	Calendar generic.HolidayCalendar
	Region   string
}

func NewEvaluator(rules Rules, cal generic.HolidayCalendar, region string) *Evaluator {
	return &Evaluator{Rules: rules, Calendar: cal, Region: region}
}

// IsSundayOrHoliday reports whether d is a Sunday or a public holiday.
func (ev *Evaluator) IsSundayOrHoliday(d generic.Date) bool {
	return d.IsSunday() || generic.IsHoliday(ev.Calendar, ev.Region, d)
}

func (ev *Evaluator) dayLabel(d generic.Date) string {
	if d.IsSunday() {
		return "Sunday " + d.String()
	}
	if ev.Calendar != nil {
		if name, ok := ev.Calendar.HolidayName(ev.Region, d); ok {
			return name + " " + d.String()
		}
	}
	return d.String()
}

// =============================================================================
// PER-ENTRY CHECK - Used when saving or approving an entry
// =============================================================================

// CheckEntry evaluates a candidate entry against the employee's other
// entries (neighbours should cover at least the candidate's ISO week and the
// days before and after it). Blocking findings mean the save must be
// rejected; advisory findings are returned as warnings.
func (ev *Evaluator) CheckEntry(emp worktime.Employee, candidate worktime.TimeEntry, neighbours []worktime.TimeEntry) []Finding {
	var findings []Finding

	if other, ok := worktime.FindOverlap(neighbours, candidate); ok {
		findings = append(findings, Finding{
			Rule:     RuleOverlap,
			Severity: SeverityBlocking,
			Date:     candidate.Date,
			EntryID:  other.ID,
			Detail:   fmt.Sprintf("overlaps the entry %s on %s", entrySpan(other), candidate.Date),
		})
	}
	if emp.ArbZGExempt {
		return findings
	}

	if ev.IsSundayOrHoliday(candidate.Date) && !candidate.HasExceptionReason() {
		findings = append(findings, Finding{
			Rule:     RuleSundayReasonMissing,
			Severity: SeverityBlocking,
			Date:     candidate.Date,
			Detail:   fmt.Sprintf("work on %s requires an exception reason (ArbZG §10)", ev.dayLabel(candidate.Date)),
		})
	}

	entries := make([]worktime.TimeEntry, 0, len(neighbours)+1)
	for _, e := range neighbours {
		if candidate.ID != "" && e.ID == candidate.ID {
			continue
		}
		entries = append(entries, e)
	}
	entries = append(entries, candidate)
	days := indexDays(entries)

	if day, ok := days[candidate.Date]; ok {
		findings = append(findings, ev.dayFindings(day)...)
	}
	findings = append(findings, ev.weekFinding(candidate.Date, days)...)
	if f, ok := ev.restFinding(candidate.Date.AddDays(-1), days); ok {
		findings = append(findings, f)
	}
	if f, ok := ev.restFinding(candidate.Date, days); ok {
		findings = append(findings, f)
	}
	return findings
}

// =============================================================================
// PERIOD REPORT
// =============================================================================

// Input is what a period evaluation reads. Entries should cover the whole
// calendar years touched by Period and extend past Period.End by the
// holiday rest window (bounded by Until) so that year-level and
// compensatory-rest rules see complete data.
type Input struct {
	Employee worktime.Employee
	Entries  []worktime.TimeEntry
	Period   generic.Period
	// Until is the evaluation horizon: rest windows ending after it are
	// still open and Sundays after it count as free.
	Until generic.Date
}

type Report struct {
	EmployeeID  generic.EmployeeID `json:"employee_id"`
	Period      generic.Period     `json:"period"`
	Findings    []Finding          `json:"findings"`
	NightDays   map[int]int        `json:"night_days"`
	NightWorker map[int]bool       `json:"night_worker"`
}

func (r Report) Blocking() []Finding { return Blocking(r.Findings) }

// Evaluate produces every finding for the period.
func (ev *Evaluator) Evaluate(in Input) Report {
	report := Report{
		EmployeeID:  in.Employee.ID,
		Period:      in.Period,
		NightDays:   make(map[int]int),
		NightWorker: make(map[int]bool),
	}
	until := in.Until
	if until.IsZero() {
		until = in.Period.End
	}

	var own []worktime.TimeEntry
	for _, e := range in.Entries {
		if e.EmployeeID == in.Employee.ID && !e.Date.After(until) {
			own = append(own, e)
		}
	}
	days := indexDays(own)

	// Overlaps among stored entries (imports or legacy data).
	for i := range own {
		for j := i + 1; j < len(own); j++ {
			if in.Period.Contains(own[i].Date) && worktime.Overlaps(own[i], own[j]) {
				report.Findings = append(report.Findings, Finding{
					Rule:     RuleOverlap,
					Severity: SeverityBlocking,
					Date:     own[i].Date,
					EntryID:  own[j].ID,
					Detail:   fmt.Sprintf("entries %s and %s overlap", entrySpan(own[i]), entrySpan(own[j])),
				})
			}
		}
	}
	if in.Employee.ArbZGExempt {
		sortFindings(report.Findings)
		return report
	}

	for _, d := range in.Period.Days() {
		day, ok := days[d]
		if !ok {
			continue
		}
		report.Findings = append(report.Findings, ev.dayFindings(day)...)
		if ev.IsSundayOrHoliday(d) {
			for _, e := range own {
				if e.Date.Equal(d) && !e.HasExceptionReason() {
					report.Findings = append(report.Findings, Finding{
						Rule:     RuleSundayReasonMissing,
						Severity: SeverityBlocking,
						Date:     d,
						EntryID:  e.ID,
						Detail:   fmt.Sprintf("entry %s on %s has no exception reason", entrySpan(e), ev.dayLabel(d)),
					})
				}
			}
		}
		if f, ok := ev.restFinding(d.AddDays(-1), days); ok {
			report.Findings = append(report.Findings, f)
		}
		if f, ok := ev.compensatoryFinding(d, days, until); ok {
			report.Findings = append(report.Findings, f)
		}
	}

	for _, monday := range in.Period.ISOWeeks() {
		report.Findings = append(report.Findings, ev.weekFinding(monday, days)...)
	}

	for year := in.Period.Start.Year(); year <= in.Period.End.Year(); year++ {
		count := ev.nightDays(year, days)
		report.NightDays[year] = count
		if count >= ev.Rules.NightWorkerThreshold {
			report.NightWorker[year] = true
			yp := generic.YearPeriod(year)
			report.Findings = append(report.Findings, Finding{
				Rule:      RuleNightWorker,
				Severity:  SeverityAdvisory,
				Period:    &yp,
				Count:     count,
				Threshold: ev.Rules.NightWorkerThreshold,
				Detail:    fmt.Sprintf("%d night-work days in %d: employee counts as night worker (ArbZG §2(5))", count, year),
			})
		}
		if f, ok := ev.sundayQuotaFinding(year, days, until); ok {
			report.Findings = append(report.Findings, f)
		}
	}

	sortFindings(report.Findings)
	return report
}

// NightWorkDays counts the days in year with a block touching the night window.
func (ev *Evaluator) NightWorkDays(year int, entries []worktime.TimeEntry) int {
	return ev.nightDays(year, indexDays(entries))
}

// =============================================================================
// RULE IMPLEMENTATIONS
// =============================================================================

func indexDays(entries []worktime.TimeEntry) map[generic.Date]worktime.DayAggregate {
	out := make(map[generic.Date]worktime.DayAggregate)
	for _, agg := range worktime.AggregateDays(entries) {
		out[agg.Date] = agg
	}
	return out
}

func (ev *Evaluator) dayFindings(day worktime.DayAggregate) []Finding {
	var out []Finding
	net := day.Net()
	d := day.Date

	if day.HasWork() && ev.IsSundayOrHoliday(d) {
		out = append(out, Finding{
			Rule:     RuleSundayHolidayWork,
			Severity: SeverityAdvisory,
			Date:     d,
			Detail:   fmt.Sprintf("work on %s", ev.dayLabel(d)),
		})
	}

	switch {
	case net.GreaterThanOrEqual(ev.Rules.DailyMax):
		out = append(out, Finding{
			Rule:     RuleDailyCeiling,
			Severity: SeverityBlocking,
			Date:     d,
			Measured: hoursPtr(net),
			Limit:    hoursPtr(ev.Rules.DailyMax),
			Detail:   fmt.Sprintf("%sh net on %s reaches the daily maximum of %sh (ArbZG §3)", net, d, ev.Rules.DailyMax),
		})
	case net.GreaterThanOrEqual(ev.Rules.DailyWarn):
		out = append(out, Finding{
			Rule:     RuleDailyExtended,
			Severity: SeverityAdvisory,
			Date:     d,
			Measured: hoursPtr(net),
			Limit:    hoursPtr(ev.Rules.DailyWarn),
			Detail:   fmt.Sprintf("%sh net on %s exceeds the regular %sh and must be offset within 6 months", net, d, ev.Rules.DailyWarn),
		})
	}

	brk := day.EffectiveBreakMinutes()
	for _, tier := range ev.Rules.BreakTiers {
		if day.NetMinutes > tier.OverNetMinutes {
			if brk < tier.MinBreakMinutes {
				out = append(out, Finding{
					Rule:     RuleBreakMinimum,
					Severity: SeverityAdvisory,
					Date:     d,
					Measured: hoursPtr(generic.HoursFromMinutes(brk)),
					Limit:    hoursPtr(generic.HoursFromMinutes(tier.MinBreakMinutes)),
					Detail: fmt.Sprintf("%d min break on %s; more than %dh work requires %d min (ArbZG §4)",
						brk, d, tier.OverNetMinutes/60, tier.MinBreakMinutes),
				})
			}
			break
		}
	}

	for _, b := range day.Blocks {
		if ev.touchesNight(b) {
			out = append(out, Finding{
				Rule:     RuleNightWork,
				Severity: SeverityAdvisory,
				Date:     d,
				EntryID:  b.EntryID,
				Detail:   fmt.Sprintf("%s-%s on %s falls into night time %s-%s", b.Start, b.End, d, ev.Rules.NightStart, ev.Rules.NightEnd),
			})
			break
		}
	}
	return out
}

func (ev *Evaluator) touchesNight(b worktime.Block) bool {
	return b.Start < ev.Rules.NightEnd || b.End > ev.Rules.NightStart
}

func (ev *Evaluator) weekFinding(anyDay generic.Date, days map[generic.Date]worktime.DayAggregate) []Finding {
	week := generic.ISOWeekPeriod(anyDay)
	minutes := 0
	for _, d := range week.Days() {
		minutes += days[d].NetMinutes
	}
	net := generic.HoursFromMinutes(minutes)
	if !net.GreaterThanOrEqual(ev.Rules.WeeklyWarn) {
		return nil
	}
	year, wk := week.Start.ISOWeek()
	return []Finding{{
		Rule:     RuleWeeklyCeiling,
		Severity: SeverityAdvisory,
		Period:   &week,
		Measured: hoursPtr(net),
		Limit:    hoursPtr(ev.Rules.WeeklyWarn),
		Detail:   fmt.Sprintf("%sh net in week %d-W%02d reaches the weekly maximum of %sh", net, year, wk, ev.Rules.WeeklyWarn),
	}}
}

// restFinding checks the rest between the last block of d and the first
// block of the following day. The finding is dated on the following day.
func (ev *Evaluator) restFinding(d generic.Date, days map[generic.Date]worktime.DayAggregate) (Finding, bool) {
	next := d.AddDays(1)
	lastEnd, ok := days[d].LastEnd()
	if !ok {
		return Finding{}, false
	}
	firstStart, ok := days[next].FirstStart()
	if !ok {
		return Finding{}, false
	}
	restMinutes := int(generic.EndOfDay-lastEnd) + int(firstStart)
	rest := generic.HoursFromMinutes(restMinutes)
	if !rest.LessThan(ev.Rules.MinRest) {
		return Finding{}, false
	}
	deficit := ev.Rules.MinRest.Sub(rest)
	return Finding{
		Rule:     RuleRestPeriod,
		Severity: SeverityAdvisory,
		Date:     next,
		Measured: hoursPtr(rest),
		Limit:    hoursPtr(ev.Rules.MinRest),
		Deficit:  hoursPtr(deficit),
		Detail: fmt.Sprintf("only %sh rest between %s %s and %s %s; %sh short of %sh (ArbZG §5)",
			rest, d, lastEnd, next, firstStart, deficit, ev.Rules.MinRest),
	}, true
}

// compensatoryFinding checks that Sunday or holiday work on d is followed by
// a rest day within the window. Sunday takes precedence over a holiday on a
// Sunday. Windows not closed by until are skipped.
func (ev *Evaluator) compensatoryFinding(d generic.Date, days map[generic.Date]worktime.DayAggregate, until generic.Date) (Finding, bool) {
	if !days[d].HasWork() {
		return Finding{}, false
	}
	var window int
	switch {
	case d.IsSunday():
		window = ev.Rules.SundayRestWindowDays
	case generic.IsHoliday(ev.Calendar, ev.Region, d):
		window = ev.Rules.HolidayRestWindowDays
	default:
		return Finding{}, false
	}
	end := d.AddDays(window)
	if end.After(until) {
		return Finding{}, false
	}
	for day := d.AddDays(1); day.BeforeOrEqual(end); day = day.AddDays(1) {
		if ev.IsSundayOrHoliday(day) {
			continue
		}
		if !days[day].HasWork() {
			return Finding{}, false
		}
	}
	return Finding{
		Rule:        RuleCompensatoryRest,
		Severity:    SeverityAdvisory,
		Date:        end,
		TriggerDate: d,
		WindowDays:  window,
		Detail:      fmt.Sprintf("no substitute rest day within %d days after work on %s (ArbZG §11)", window, ev.dayLabel(d)),
	}, true
}

func (ev *Evaluator) nightDays(year int, days map[generic.Date]worktime.DayAggregate) int {
	count := 0
	for d, day := range days {
		if d.Year() != year {
			continue
		}
		for _, b := range day.Blocks {
			if ev.touchesNight(b) {
				count++
				break
			}
		}
	}
	return count
}

// sundayQuotaFinding counts work-free Sundays in the year. Sundays after
// until have not happened yet and count as free.
func (ev *Evaluator) sundayQuotaFinding(year int, days map[generic.Date]worktime.DayAggregate, until generic.Date) (Finding, bool) {
	total, worked := 0, 0
	for _, d := range generic.YearPeriod(year).Days() {
		if !d.IsSunday() {
			continue
		}
		total++
		if !d.After(until) && days[d].HasWork() {
			worked++
		}
	}
	free := total - worked
	if free >= ev.Rules.MinFreeSundays {
		return Finding{}, false
	}
	yp := generic.YearPeriod(year)
	return Finding{
		Rule:      RuleSundayQuota,
		Severity:  SeverityAdvisory,
		Period:    &yp,
		Count:     free,
		Threshold: ev.Rules.MinFreeSundays,
		Detail: fmt.Sprintf("only %d work-free Sundays in %d; at least %d required, %d short (ArbZG §11(1))",
			free, year, ev.Rules.MinFreeSundays, ev.Rules.MinFreeSundays-free),
	}, true
}

// =============================================================================
// HELPERS
// =============================================================================

func entrySpan(e worktime.TimeEntry) string {
	if e.End == nil {
		return e.Start.String() + "-open"
	}
	return e.Start.String() + "-" + e.End.String()
}

func findingDate(f Finding) generic.Date {
	if !f.Date.IsZero() {
		return f.Date
	}
	if f.Period != nil {
		return f.Period.Start
	}
	return generic.Date{}
}

func sortFindings(fs []Finding) {
	sort.SliceStable(fs, func(i, j int) bool {
		di, dj := findingDate(fs[i]), findingDate(fs[j])
		if !di.Equal(dj) {
			return di.Before(dj)
		}
		return fs[i].Rule < fs[j].Rule
	})
}
