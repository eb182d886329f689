package worktime

import (
	"sort"

	"github.com/warp/worktime-engine/generic"
)

// =============================================================================
// WORKING-HOURS TIMELINE - Weekly hours in effect on any date
// =============================================================================

// Timeline resolves the weekly-hours value in effect on a date. Changes are
// held sorted by EffectiveFrom; lookups are a binary search for the latest
// change on or before the date. Dates before the first change use the
// employee's baseline.
//
// A Timeline is immutable after construction and safe for concurrent use.
type Timeline struct {
	baseline generic.Hours
	changes  []WorkingHoursChange
}

// NewTimeline builds the timeline for one employee. Changes for other
// employees are ignored; input order does not matter.
func NewTimeline(emp Employee, changes []WorkingHoursChange) *Timeline {
	own := make([]WorkingHoursChange, 0, len(changes))
	for _, c := range changes {
		if c.EmployeeID == emp.ID {
			own = append(own, c)
		}
	}
	sort.SliceStable(own, func(i, j int) bool {
		return own[i].EffectiveFrom.Before(own[j].EffectiveFrom)
	})
	return &Timeline{baseline: emp.WeeklyHours, changes: own}
}

// HoursFor returns the weekly hours in effect on d.
func (t *Timeline) HoursFor(d generic.Date) generic.Hours {
	if c, ok := t.ChangeFor(d); ok {
		return c.WeeklyHours
	}
	return t.baseline
}

// ChangeFor returns the change in effect on d, ok=false when the baseline applies.
func (t *Timeline) ChangeFor(d generic.Date) (WorkingHoursChange, bool) {
	// first index whose EffectiveFrom is after d
	i := sort.Search(len(t.changes), func(i int) bool {
		return t.changes[i].EffectiveFrom.After(d)
	})
	if i == 0 {
		return WorkingHoursChange{}, false
	}
	return t.changes[i-1], true
}

// Changes returns the sorted changes.
func (t *Timeline) Changes() []WorkingHoursChange {
	out := make([]WorkingHoursChange, len(t.changes))
	copy(out, t.changes)
	return out
}

// =============================================================================
// DAILY CONTRACT HOURS
// =============================================================================

// ContractHours returns the contractual hours for d, ignoring holidays and
// absences: the per-weekday schedule when enabled, otherwise the weekly
// hours in effect divided by the work days per week. Days outside the work
// week yield 0.
func ContractHours(emp Employee, tl *Timeline, d generic.Date) generic.Hours {
	if emp.UseDailySchedule {
		wd := d.ISOWeekday()
		if wd > ScheduleDays {
			return generic.Hours{}
		}
		return emp.DailySchedule[wd-1]
	}
	if !emp.IsWorkWeekday(d) {
		return generic.Hours{}
	}
	return tl.HoursFor(d).DivInt(emp.workDays())
}

// CheckScheduleIntegrity flags a per-weekday schedule whose total differs
// from the weekly hours. It is reported at edit time and never corrected.
func CheckScheduleIntegrity(emp Employee) []generic.IntegrityWarning {
	if !emp.UseDailySchedule {
		return nil
	}
	sum := generic.SumHours(emp.DailySchedule[:]...)
	if sum.Equal(emp.WeeklyHours) {
		return nil
	}
	return []generic.IntegrityWarning{{
		Code:    "daily_schedule_mismatch",
		Message: "daily schedule totals " + sum.String() + "h but weekly hours are " + emp.WeeklyHours.String() + "h",
	}}
}
