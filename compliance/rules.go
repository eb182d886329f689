/*
Package compliance evaluates recorded working time against the German
Working Hours Act (ArbZG).

PURPOSE:
  Turns time entries into findings: each finding names the rule, the day
  or period it concerns, whether it blocks the save that produced it, and an
  actionable detail. Evaluation never mutates anything; services decide what
  to do with the findings.

RULES:
  overlap                 two entries of one employee intersect on a day   (blocking)
  daily_ceiling           day net at or above the hard ceiling (10h)       (blocking)
  daily_extended          day net at or above 8h, below the ceiling        (advisory)
  sunday_reason_missing   Sunday/holiday entry without exception reason    (blocking)
  sunday_holiday_work     any work on a Sunday or public holiday           (advisory)
  break_minimum           >6h net needs 30 min break, >9h needs 45 min     (advisory)
  weekly_ceiling          ISO-week net at or above 48h                     (advisory)
  rest_period             less than 11h between two working days          (advisory)
  night_work              a block touches 23:00-06:00                      (advisory)
  night_worker            night days in a year at or above the threshold   (advisory)
  compensatory_rest       no rest day within 2 weeks of Sunday work or
                          8 weeks of holiday work                          (advisory)
  sunday_quota            fewer than 15 work-free Sundays in a year        (advisory)

EXEMPTION:
  Employees flagged ArbZGExempt only get the overlap rule.

SEE ALSO:
  - evaluator.go: Per-entry checks and period reports
  - worktime/aggregate.go: Day aggregation the rules read
*/
package compliance

import (
	"strings"

	"github.com/warp/worktime-engine/generic"
)

// =============================================================================
// RULES & SEVERITIES
// =============================================================================

type Rule string

const (
	RuleOverlap             Rule = "overlap"
	RuleDailyCeiling        Rule = "daily_ceiling"
	RuleDailyExtended       Rule = "daily_extended"
	RuleSundayReasonMissing Rule = "sunday_reason_missing"
	RuleSundayHolidayWork   Rule = "sunday_holiday_work"
	RuleBreakMinimum        Rule = "break_minimum"
	RuleWeeklyCeiling       Rule = "weekly_ceiling"
	RuleRestPeriod          Rule = "rest_period"
	RuleNightWork           Rule = "night_work"
	RuleNightWorker         Rule = "night_worker"
	RuleCompensatoryRest    Rule = "compensatory_rest"
	RuleSundayQuota         Rule = "sunday_quota"
)

type Severity string

const (
	SeverityBlocking Severity = "blocking"
	SeverityAdvisory Severity = "advisory"
)

// Finding is one rule hit. Date is set for day-level rules, Period for
// week- and year-level rules. Numeric fields are set where the rule
// measures something.
type Finding struct {
	Rule     Rule             `json:"rule"`
	Severity Severity         `json:"severity"`
	Date     generic.Date     `json:"date,omitempty"`
	Period   *generic.Period  `json:"period,omitempty"`
	EntryID  generic.RecordID `json:"entry_id,omitempty"`
	Detail   string           `json:"detail"`

	Measured *generic.Hours `json:"measured_hours,omitempty"`
	Limit    *generic.Hours `json:"limit_hours,omitempty"`
	Deficit  *generic.Hours `json:"deficit_hours,omitempty"`

	Count       int          `json:"count,omitempty"`
	Threshold   int          `json:"threshold,omitempty"`
	TriggerDate generic.Date `json:"trigger_date,omitempty"`
	WindowDays  int          `json:"window_days,omitempty"`
}

func (f Finding) IsBlocking() bool { return f.Severity == SeverityBlocking }

func hoursPtr(h generic.Hours) *generic.Hours { return &h }

// Blocking returns the blocking findings.
func Blocking(fs []Finding) []Finding {
	var out []Finding
	for _, f := range fs {
		if f.IsBlocking() {
			out = append(out, f)
		}
	}
	return out
}

// Advisory returns the advisory findings.
func Advisory(fs []Finding) []Finding {
	var out []Finding
	for _, f := range fs {
		if !f.IsBlocking() {
			out = append(out, f)
		}
	}
	return out
}

// HasRule reports whether any finding is for r.
func HasRule(fs []Finding, r Rule) bool {
	for _, f := range fs {
		if f.Rule == r {
			return true
		}
	}
	return false
}

// =============================================================================
// THRESHOLDS
// =============================================================================

// Rules holds every threshold the evaluator uses.
type Rules struct {
	DailyWarn  generic.Hours
	DailyMax   generic.Hours
	WeeklyWarn generic.Hours
	MinRest    generic.Hours

	// Break tiers: more than the net minutes requires at least the break.
	BreakTiers []BreakTier

	NightStart           generic.ClockTime
	NightEnd             generic.ClockTime
	NightWorkerThreshold int

	SundayRestWindowDays  int
	HolidayRestWindowDays int
	MinFreeSundays        int
}

type BreakTier struct {
	OverNetMinutes  int
	MinBreakMinutes int
}

// DefaultRules returns the statutory values.
func DefaultRules() Rules {
	return Rules{
		DailyWarn:  generic.NewHoursFromInt(8),
		DailyMax:   generic.NewHoursFromInt(10),
		WeeklyWarn: generic.NewHoursFromInt(48),
		MinRest:    generic.NewHoursFromInt(11),
		BreakTiers: []BreakTier{
			{OverNetMinutes: 9 * 60, MinBreakMinutes: 45},
			{OverNetMinutes: 6 * 60, MinBreakMinutes: 30},
		},
		NightStart:            generic.NewClockTime(23, 0),
		NightEnd:              generic.NewClockTime(6, 0),
		NightWorkerThreshold:  48,
		SundayRestWindowDays:  14,
		HolidayRestWindowDays: 56,
		MinFreeSundays:        15,
	}
}

// =============================================================================
// REJECTION - Returned when a save carries blocking findings
// =============================================================================

// RejectionError carries the blocking findings that prevented a save.
type RejectionError struct {
	Findings []Finding
}

func (e *RejectionError) Error() string {
	parts := make([]string, 0, len(e.Findings))
	for _, f := range e.Findings {
		parts = append(parts, f.Detail)
	}
	return "entry rejected: " + strings.Join(parts, "; ")
}

func (e *RejectionError) Unwrap() error {
	return generic.ErrValidation
}
