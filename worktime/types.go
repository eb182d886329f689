/*
Package worktime models employees' contracted and recorded working time.

PURPOSE:
  Holds the domain records (employees, working-hours changes, time entries,
  absences, closures, holidays, change requests) and the pure computations
  over them: the working-hours timeline, target hours, day aggregation,
  the monthly balance ledger and absence range expansion.

  Nothing in this package performs I/O. Services load records through the
  store contracts in store.go, hand slices to these functions and persist
  the results.

KEY CONCEPTS IN THIS FILE (types.go):
  - Employee: contract parameters (weekly hours, work days, vacation days)
  - WorkingHoursChange: a weekly-hours value valid from a date onward
  - TimeEntry: one recorded work block on one day
  - Absence: one absent day with an hour value
  - CompanyClosure: a date range generating vacation for everyone
  - ChangeRequest: a proposed create/update/delete of an entry

SEE ALSO:
  - timeline.go: Working-hours timeline
  - target.go: Target-hours calculator
  - aggregate.go: Net hours, blocks, overlap detection
  - ledger.go: Monthly balances and vacation account
  - absence.go: Absence range expansion
*/
package worktime

import (
	"strings"
	"time"

	"github.com/warp/worktime-engine/generic"
)

// =============================================================================
// EMPLOYEE
// =============================================================================

// Weekdays with a per-day schedule, Monday first.
const ScheduleDays = 5

type Employee struct {
	ID              generic.EmployeeID `json:"id"`
	Name            string             `json:"name"`
	Email           string             `json:"email,omitempty"`
	Role            Role               `json:"role"`
	WeeklyHours     generic.Hours      `json:"weekly_hours"`
	WorkDaysPerWeek int                `json:"work_days_per_week"`
	VacationDays    int                `json:"vacation_days"`
	TrackHours      bool               `json:"track_hours"`

	// UseDailySchedule replaces weekly/work-days with DailySchedule
	// (Monday..Friday). Saturday and Sunday targets are 0 when enabled.
	UseDailySchedule bool                        `json:"use_daily_schedule"`
	DailySchedule    [ScheduleDays]generic.Hours `json:"daily_schedule"`

	ArbZGExempt   bool   `json:"arbzg_exempt"`
	CalendarColor string `json:"calendar_color,omitempty"`

	// BalanceAnchor is the first day counted into the cumulative balance.
	BalanceAnchor *generic.Date `json:"balance_anchor,omitempty"`

	Active        bool       `json:"active"`
	DeactivatedAt *time.Time `json:"deactivated_at,omitempty"`
	CreatedAt     time.Time  `json:"created_at"`
}

type Role string

const (
	RoleEmployee Role = "employee"
	RoleAdmin    Role = "admin"
)

// IsWorkWeekday reports whether the weekday falls inside the employee's
// work week: the first WorkDaysPerWeek days counted from Monday.
func (e Employee) IsWorkWeekday(d generic.Date) bool {
	days := e.WorkDaysPerWeek
	if days <= 0 {
		days = 5
	}
	return d.ISOWeekday() <= days
}

// workDays returns WorkDaysPerWeek with the default applied.
func (e Employee) workDays() int {
	if e.WorkDaysPerWeek <= 0 {
		return 5
	}
	return e.WorkDaysPerWeek
}

// BaselineDailyTarget is weekly hours / work days, used to value vacation
// days. Zero for employees whose hours are not tracked.
func (e Employee) BaselineDailyTarget() generic.Hours {
	if !e.TrackHours {
		return generic.Hours{}
	}
	return e.WeeklyHours.DivInt(e.workDays())
}

// Validate checks contract parameters; it does not touch stored state.
func (e Employee) Validate() error {
	if e.Name == "" {
		return &generic.ValidationError{Field: "name", Reason: "must not be empty"}
	}
	if e.WeeklyHours.IsNegative() || e.WeeklyHours.GreaterThan(generic.NewHoursFromInt(168)) {
		return &generic.ValidationError{Field: "weekly_hours", Reason: "must be between 0 and 168"}
	}
	if e.WorkDaysPerWeek < 1 || e.WorkDaysPerWeek > 7 {
		return &generic.ValidationError{Field: "work_days_per_week", Reason: "must be between 1 and 7"}
	}
	if e.VacationDays < 0 {
		return &generic.ValidationError{Field: "vacation_days", Reason: "must not be negative"}
	}
	for i, h := range e.DailySchedule {
		if h.IsNegative() || h.GreaterThan(generic.NewHoursFromInt(24)) {
			return &generic.ValidationError{Field: "daily_schedule", Reason: time.Weekday(i+1).String() + " must be between 0 and 24"}
		}
	}
	if e.Role != RoleEmployee && e.Role != RoleAdmin {
		return &generic.ValidationError{Field: "role", Reason: "must be employee or admin"}
	}
	return nil
}

// =============================================================================
// WORKING HOURS CHANGE
// =============================================================================

type WorkingHoursChange struct {
	ID            generic.RecordID   `json:"id"`
	EmployeeID    generic.EmployeeID `json:"employee_id"`
	EffectiveFrom generic.Date       `json:"effective_from"`
	WeeklyHours   generic.Hours      `json:"weekly_hours"`
	Note          string             `json:"note,omitempty"`
	CreatedAt     time.Time          `json:"created_at"`
}

// =============================================================================
// TIME ENTRY
// =============================================================================

type TimeEntry struct {
	ID                    generic.RecordID   `json:"id"`
	EmployeeID            generic.EmployeeID `json:"employee_id"`
	Date                  generic.Date       `json:"date"`
	Start                 generic.ClockTime  `json:"start_time"`
	End                   *generic.ClockTime `json:"end_time"`
	BreakMinutes          int                `json:"break_minutes"`
	Note                  string             `json:"note,omitempty"`
	SundayExceptionReason string             `json:"sunday_exception_reason,omitempty"`
	CreatedAt             time.Time          `json:"created_at"`
	UpdatedAt             time.Time          `json:"updated_at"`
}

// IsOpen reports whether the entry has no end time yet (clocked in).
func (e TimeEntry) IsOpen() bool { return e.End == nil }

// HasExceptionReason reports whether a Sunday/holiday exception reason with
// visible text is recorded. Whitespace alone does not count.
func (e TimeEntry) HasExceptionReason() bool {
	return strings.TrimSpace(e.SundayExceptionReason) != ""
}

// Validate checks the entry's own fields.
func (e TimeEntry) Validate() error {
	if e.EmployeeID == "" {
		return &generic.ValidationError{Field: "employee_id", Reason: "must not be empty"}
	}
	if e.Date.IsZero() {
		return &generic.ValidationError{Field: "date", Reason: "must be set"}
	}
	if e.Start < generic.Midnight || e.Start >= generic.EndOfDay {
		return &generic.ValidationError{Field: "start_time", Reason: "must be between 00:00 and 23:59"}
	}
	if e.BreakMinutes < 0 {
		return &generic.ValidationError{Field: "break_minutes", Reason: "must not be negative"}
	}
	if e.End == nil {
		return nil
	}
	if *e.End <= e.Start {
		return &generic.ValidationError{Field: "end_time", Reason: "must be after start_time on the same day"}
	}
	if *e.End > generic.EndOfDay {
		return &generic.ValidationError{Field: "end_time", Reason: "must not be after 24:00"}
	}
	if e.BreakMinutes > int(*e.End-e.Start) {
		return &generic.ValidationError{Field: "break_minutes", Reason: "exceeds the entry's duration"}
	}
	return nil
}

// ClockPtr is a helper for building closed entries.
func ClockPtr(c generic.ClockTime) *generic.ClockTime { return &c }

// =============================================================================
// ABSENCE
// =============================================================================

type AbsenceType string

const (
	AbsenceVacation AbsenceType = "vacation"
	AbsenceSick     AbsenceType = "sick"
	AbsenceTraining AbsenceType = "training"
	AbsenceOvertime AbsenceType = "overtime" // time off in lieu of overtime
	AbsenceOther    AbsenceType = "other"
)

func (t AbsenceType) Valid() bool {
	switch t {
	case AbsenceVacation, AbsenceSick, AbsenceTraining, AbsenceOvertime, AbsenceOther:
		return true
	}
	return false
}

type Absence struct {
	ID         generic.RecordID   `json:"id"`
	EmployeeID generic.EmployeeID `json:"employee_id"`
	Date       generic.Date       `json:"date"`
	Type       AbsenceType        `json:"type"`
	Hours      generic.Hours      `json:"hours"`
	Note       string             `json:"note,omitempty"`
	// ClosureID is set on vacation rows generated by a company closure.
	ClosureID generic.RecordID `json:"closure_id,omitempty"`
	CreatedAt time.Time        `json:"created_at"`
}

// =============================================================================
// COMPANY CLOSURE & PUBLIC HOLIDAY
// =============================================================================

type CompanyClosure struct {
	ID        generic.RecordID `json:"id"`
	Name      string           `json:"name"`
	StartDate generic.Date     `json:"start_date"`
	EndDate   generic.Date     `json:"end_date"`
	CreatedBy string           `json:"created_by,omitempty"`
	CreatedAt time.Time        `json:"created_at"`
}

func (c CompanyClosure) Period() generic.Period {
	return generic.Period{Start: c.StartDate, End: c.EndDate}
}

type PublicHoliday struct {
	ID     generic.RecordID `json:"id"`
	Date   generic.Date     `json:"date"`
	Name   string           `json:"name"`
	Region string           `json:"region"`
}

// =============================================================================
// CHANGE REQUEST
// =============================================================================

type ChangeRequestType string

const (
	ChangeCreate ChangeRequestType = "create"
	ChangeUpdate ChangeRequestType = "update"
	ChangeDelete ChangeRequestType = "delete"
)

type ChangeRequestStatus string

const (
	ChangePending  ChangeRequestStatus = "pending"
	ChangeApproved ChangeRequestStatus = "approved"
	ChangeRejected ChangeRequestStatus = "rejected"
)

// EntryValues are the editable fields of a time entry, used for proposals
// and for the snapshot of the entry's state at submission time.
type EntryValues struct {
	Date                  generic.Date       `json:"date"`
	Start                 generic.ClockTime  `json:"start_time"`
	End                   *generic.ClockTime `json:"end_time"`
	BreakMinutes          int                `json:"break_minutes"`
	Note                  string             `json:"note,omitempty"`
	SundayExceptionReason string             `json:"sunday_exception_reason,omitempty"`
}

// ValuesOf snapshots an entry's editable fields.
func ValuesOf(e TimeEntry) EntryValues {
	return EntryValues{
		Date:                  e.Date,
		Start:                 e.Start,
		End:                   e.End,
		BreakMinutes:          e.BreakMinutes,
		Note:                  e.Note,
		SundayExceptionReason: e.SundayExceptionReason,
	}
}

// Apply writes the values onto an entry, keeping identity and timestamps.
func (v EntryValues) Apply(e TimeEntry) TimeEntry {
	e.Date = v.Date
	e.Start = v.Start
	e.End = v.End
	e.BreakMinutes = v.BreakMinutes
	e.Note = v.Note
	e.SundayExceptionReason = v.SundayExceptionReason
	return e
}

type ChangeRequest struct {
	ID          generic.RecordID   `json:"id"`
	EmployeeID  generic.EmployeeID `json:"employee_id"`
	Type        ChangeRequestType  `json:"request_type"`
	TimeEntryID generic.RecordID   `json:"time_entry_id,omitempty"`

	Proposed *EntryValues `json:"proposed,omitempty"`
	Original *EntryValues `json:"original,omitempty"`

	Reason          string              `json:"reason"`
	Status          ChangeRequestStatus `json:"status"`
	RejectionReason string              `json:"rejection_reason,omitempty"`
	ReviewedBy      string              `json:"reviewed_by,omitempty"`
	ReviewedAt      *time.Time          `json:"reviewed_at,omitempty"`
	CreatedAt       time.Time           `json:"created_at"`
	UpdatedAt       time.Time           `json:"updated_at"`
}

// TargetDate is the day the request affects.
func (cr ChangeRequest) TargetDate() generic.Date {
	if cr.Proposed != nil {
		return cr.Proposed.Date
	}
	if cr.Original != nil {
		return cr.Original.Date
	}
	return generic.Date{}
}
