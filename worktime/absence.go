package worktime

import (
	"fmt"
	"strings"

	"github.com/warp/worktime-engine/generic"
)

// =============================================================================
// ABSENCE RANGE EXPANDER
// =============================================================================

// AbsenceRange is a request to record an absence over a span of days.
type AbsenceRange struct {
	EmployeeID generic.EmployeeID
	Start      generic.Date
	End        generic.Date
	Type       AbsenceType
	// HoursPerDay overrides the hours per row; zero means each day's
	// contract target.
	HoursPerDay generic.Hours
	Note        string
	ClosureID   generic.RecordID
}

// ExpandAbsence turns a range into one row per day that carries a contract
// target: days outside the work week and public holidays are skipped.
// For employees whose hours are not tracked the calendar rule alone decides
// and the row hours are HoursPerDay (possibly zero).
//
// Returned rows have no ID; callers assign identity when persisting.
func ExpandAbsence(s *Schedule, r AbsenceRange) ([]Absence, error) {
	if !r.Type.Valid() {
		return nil, &generic.ValidationError{Field: "type", Reason: fmt.Sprintf("unknown absence type %q", r.Type)}
	}
	period, err := generic.NewPeriod(r.Start, r.End)
	if err != nil {
		return nil, err
	}
	if r.HoursPerDay.IsNegative() {
		return nil, &generic.ValidationError{Field: "hours", Reason: "must not be negative"}
	}

	var rows []Absence
	for _, d := range period.Days() {
		if !s.Employee.IsWorkWeekday(d) || s.IsHoliday(d) {
			continue
		}
		hours := r.HoursPerDay
		if hours.IsZero() {
			hours = s.ContractTarget(d)
			if s.Employee.TrackHours && hours.IsZero() {
				continue // per-weekday schedule with a zero day
			}
		}
		rows = append(rows, Absence{
			EmployeeID: r.EmployeeID,
			Date:       d,
			Type:       r.Type,
			Hours:      hours,
			Note:       r.Note,
			ClosureID:  r.ClosureID,
		})
	}
	if len(rows) == 0 {
		return nil, &generic.ValidationError{Field: "date_range", Reason: "contains no working days (weekends and holidays are skipped)"}
	}
	return rows, nil
}

// =============================================================================
// CONFLICTS WITH EXISTING ABSENCES
// =============================================================================

// DuplicateAbsence returns the first planned row whose (date, type) already
// exists.
func DuplicateAbsence(existing, planned []Absence) (Absence, bool) {
	seen := make(map[generic.Date]map[AbsenceType]bool)
	for _, a := range existing {
		if seen[a.Date] == nil {
			seen[a.Date] = make(map[AbsenceType]bool)
		}
		seen[a.Date][a.Type] = true
	}
	for _, p := range planned {
		if seen[p.Date][p.Type] {
			return p, true
		}
	}
	return Absence{}, false
}

// VacationConflict is an existing vacation day that a sick absence covers.
type VacationConflict struct {
	Date      generic.Date     `json:"date"`
	AbsenceID generic.RecordID `json:"absence_id"`
	Hours     generic.Hours    `json:"hours"`
}

// SickOverVacation lists the existing vacation rows on days of planned sick
// rows. The caller decides whether the vacation is replaced.
func SickOverVacation(existing, planned []Absence) []VacationConflict {
	sickDays := make(map[generic.Date]bool)
	for _, p := range planned {
		if p.Type == AbsenceSick {
			sickDays[p.Date] = true
		}
	}
	var out []VacationConflict
	for _, a := range existing {
		if a.Type == AbsenceVacation && sickDays[a.Date] {
			out = append(out, VacationConflict{Date: a.Date, AbsenceID: a.ID, Hours: a.Hours})
		}
	}
	return out
}

// VacationConflictError asks the caller to decide whether the listed
// vacation days are replaced by the sick absence.
type VacationConflictError struct {
	Conflicts []VacationConflict
}

func (e *VacationConflictError) Error() string {
	days := make([]string, len(e.Conflicts))
	for i, c := range e.Conflicts {
		days[i] = c.Date.String()
	}
	return "sick absence overlaps vacation on " + strings.Join(days, ", ") + "; confirm replacing the vacation"
}

func (e *VacationConflictError) Unwrap() error {
	return generic.ErrDecisionRequired
}

// =============================================================================
// COMPANY CLOSURE PLANNING
// =============================================================================

// PlanClosure returns the vacation rows a closure generates for one
// employee: one per work day in the range, valued at that day's contract
// target, skipping days that already have a vacation row.
func PlanClosure(s *Schedule, closure CompanyClosure, existing []Absence) []Absence {
	rows, err := ExpandAbsence(s, AbsenceRange{
		EmployeeID: s.Employee.ID,
		Start:      closure.StartDate,
		End:        closure.EndDate,
		Type:       AbsenceVacation,
		Note:       "company closure: " + closure.Name,
		ClosureID:  closure.ID,
	})
	if err != nil {
		return nil
	}
	hasVacation := make(map[generic.Date]bool)
	for _, a := range existing {
		if a.Type == AbsenceVacation {
			hasVacation[a.Date] = true
		}
	}
	out := rows[:0]
	for _, r := range rows {
		if !hasVacation[r.Date] {
			out = append(out, r)
		}
	}
	return out
}

// =============================================================================
// ABSENCE TOTALS
// =============================================================================

// AbsenceTotals counts absence rows and sums their hours per type. Every row
// is one day, so a half day valued at 4h still counts as one day.
type AbsenceTotals struct {
	Days  map[AbsenceType]int           `json:"days"`
	Hours map[AbsenceType]generic.Hours `json:"hours"`
}

// SumAbsences totals the rows dated inside p.
func SumAbsences(absences []Absence, p generic.Period) AbsenceTotals {
	t := AbsenceTotals{Days: make(map[AbsenceType]int), Hours: make(map[AbsenceType]generic.Hours)}
	for _, a := range absences {
		if !p.Contains(a.Date) {
			continue
		}
		t.Days[a.Type]++
		t.Hours[a.Type] = t.Hours[a.Type].Add(a.Hours)
	}
	for typ, h := range t.Hours {
		t.Hours[typ] = h.RoundCents()
	}
	return t
}

// TotalDays is the number of absent days across all types.
func (t AbsenceTotals) TotalDays() int {
	n := 0
	for _, d := range t.Days {
		n += d
	}
	return n
}
