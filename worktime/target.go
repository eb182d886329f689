package worktime

import (
	"time"

	"github.com/warp/worktime-engine/generic"
)

// =============================================================================
// TARGET-HOURS CALCULATOR
// =============================================================================

// Schedule bundles everything needed to compute one employee's target
// hours: the contract, the working-hours timeline, the holiday calendar and
// the employee's absences. Targets are computed per calendar day and summed,
// so a working-hours change applies from its exact effective date.
type Schedule struct {
	Employee Employee
	Timeline *Timeline
	Calendar generic.HolidayCalendar
	Region   string

	absent map[generic.Date]bool
}

// NewSchedule indexes the absences by date. Absences of other employees are
// ignored.
func NewSchedule(emp Employee, tl *Timeline, cal generic.HolidayCalendar, region string, absences []Absence) *Schedule {
	absent := make(map[generic.Date]bool, len(absences))
	for _, a := range absences {
		if a.EmployeeID == emp.ID {
			absent[a.Date] = true
		}
	}
	return &Schedule{Employee: emp, Timeline: tl, Calendar: cal, Region: region, absent: absent}
}

// IsHoliday reports whether d is a public holiday in the schedule's region.
func (s *Schedule) IsHoliday(d generic.Date) bool {
	return generic.IsHoliday(s.Calendar, s.Region, d)
}

// IsAbsent reports whether any absence covers d.
func (s *Schedule) IsAbsent(d generic.Date) bool { return s.absent[d] }

// ContractTarget is the target for d before absences: zero when hours are
// not tracked, on days outside the work week and on public holidays.
func (s *Schedule) ContractTarget(d generic.Date) generic.Hours {
	if !s.Employee.TrackHours || s.IsHoliday(d) {
		return generic.Hours{}
	}
	return ContractHours(s.Employee, s.Timeline, d)
}

// DailyTarget is the contract target, zeroed by any absence on d.
func (s *Schedule) DailyTarget(d generic.Date) generic.Hours {
	if s.absent[d] {
		return generic.Hours{}
	}
	return s.ContractTarget(d)
}

// PeriodTarget sums DailyTarget over every day of p.
func (s *Schedule) PeriodTarget(p generic.Period) generic.Hours {
	total := generic.Hours{}
	for _, d := range p.Days() {
		total = total.Add(s.DailyTarget(d))
	}
	return total
}

// MonthlyTarget is PeriodTarget for a calendar month.
func (s *Schedule) MonthlyTarget(year int, month time.Month) generic.Hours {
	return s.PeriodTarget(generic.MonthPeriod(year, month))
}
