/*
dto.go - Data Transfer Objects for API requests and responses

PURPOSE:
  Defines the JSON structures for API communication. Domain records that
  already carry JSON tags (absences, balances, findings) are returned as
  they are; entries are returned as service.EntryView with net hours, the
  Sunday/holiday flag and the lock state. The types here cover request
  bodies and the responses that combine several domain values.

NAMING CONVENTION:
  - *Request: Request body types from clients
  - *DTO / *Response: Composite response types

TYPES:
  Employees:      EmployeeRequest, EmployeeDTO
  Working hours:  WorkingHoursRequest, WorkingHoursDeleteResponse
  Entries:        entry bodies decode straight into worktime.EntryValues
  Absences:       AbsenceRequest
  Change reqs:    ChangeRequestRequest, ReviewRequest, ChangeRequestResponse
  Closures:       ClosureRequest, ClosureResponse
  Holidays:       HolidayRequest, SyncHolidaysRequest
  Reports:        TargetResponse; team reports return service.MonthlyReportRow,
                  service.AbsenceSummaryRow and service.CalendarAbsence

VALIDATION:
  Validation is done by the service layer. DTOs only convert shapes and
  apply request defaults.

SEE ALSO:
  - handlers.go: Uses these types
  - worktime/types.go: Domain records and their JSON form
*/
package api

import (
	"github.com/warp/worktime-engine/compliance"
	"github.com/warp/worktime-engine/generic"
	"github.com/warp/worktime-engine/service"
	"github.com/warp/worktime-engine/worktime"
)

// =============================================================================
// EMPLOYEES
// =============================================================================

// EmployeeRequest is the body of employee create and update. TrackHours
// defaults to true when omitted.
type EmployeeRequest struct {
	ID               string                               `json:"id"`
	Name             string                               `json:"name"`
	Email            string                               `json:"email"`
	Role             worktime.Role                        `json:"role"`
	WeeklyHours      generic.Hours                        `json:"weekly_hours"`
	WorkDaysPerWeek  int                                  `json:"work_days_per_week"`
	VacationDays     int                                  `json:"vacation_days"`
	TrackHours       *bool                                `json:"track_hours"`
	UseDailySchedule bool                                 `json:"use_daily_schedule"`
	DailySchedule    [worktime.ScheduleDays]generic.Hours `json:"daily_schedule"`
	ArbZGExempt      bool                                 `json:"arbzg_exempt"`
	CalendarColor    string                               `json:"calendar_color"`
	BalanceAnchor    *generic.Date                        `json:"balance_anchor"`
}

func (r EmployeeRequest) toEmployee() worktime.Employee {
	track := true
	if r.TrackHours != nil {
		track = *r.TrackHours
	}
	workDays := r.WorkDaysPerWeek
	if workDays == 0 {
		workDays = 5
	}
	return worktime.Employee{
		ID:               generic.EmployeeID(r.ID),
		Name:             r.Name,
		Email:            r.Email,
		Role:             r.Role,
		WeeklyHours:      r.WeeklyHours,
		WorkDaysPerWeek:  workDays,
		VacationDays:     r.VacationDays,
		TrackHours:       track,
		UseDailySchedule: r.UseDailySchedule,
		DailySchedule:    r.DailySchedule,
		ArbZGExempt:      r.ArbZGExempt,
		CalendarColor:    r.CalendarColor,
		BalanceAnchor:    r.BalanceAnchor,
	}
}

// EmployeeDTO is an employee with the weekly hours in force today.
type EmployeeDTO struct {
	worktime.Employee
	CurrentWeeklyHours generic.Hours              `json:"current_weekly_hours"`
	Warnings           []generic.IntegrityWarning `json:"warnings,omitempty"`
}

// =============================================================================
// WORKING HOURS
// =============================================================================

type WorkingHoursRequest struct {
	EffectiveFrom generic.Date  `json:"effective_from"`
	WeeklyHours   generic.Hours `json:"weekly_hours"`
	Note          string        `json:"note"`
}

type WorkingHoursDeleteResponse struct {
	Status   string                     `json:"status"`
	Warnings []generic.IntegrityWarning `json:"warnings,omitempty"`
}

// =============================================================================
// ABSENCES
// =============================================================================

// AbsenceRequest records an absence over a date range. HoursPerDay is
// optional; without it each day is valued at its contract target.
type AbsenceRequest struct {
	StartDate       generic.Date         `json:"start_date"`
	EndDate         generic.Date         `json:"end_date"`
	Type            worktime.AbsenceType `json:"type"`
	HoursPerDay     *generic.Hours       `json:"hours_per_day"`
	Note            string               `json:"note"`
	ReplaceVacation bool                 `json:"replace_vacation"`
}

func (r AbsenceRequest) toService(emp generic.EmployeeID) service.AbsenceRequest {
	req := service.AbsenceRequest{
		EmployeeID:      emp,
		Start:           r.StartDate,
		End:             r.EndDate,
		Type:            r.Type,
		Note:            r.Note,
		ReplaceVacation: r.ReplaceVacation,
	}
	if r.EndDate.IsZero() {
		req.End = r.StartDate
	}
	if r.HoursPerDay != nil {
		req.HoursPerDay = *r.HoursPerDay
	}
	return req
}

// =============================================================================
// CHANGE REQUESTS
// =============================================================================

type ChangeRequestRequest struct {
	EmployeeID  string                     `json:"employee_id"`
	Type        worktime.ChangeRequestType `json:"request_type"`
	TimeEntryID string                     `json:"time_entry_id"`
	Proposed    *worktime.EntryValues      `json:"proposed"`
	Reason      string                     `json:"reason"`
}

// ReviewRequest is the body of reject; approve takes no body.
type ReviewRequest struct {
	Reason string `json:"reason"`
}

// ChangeRequestResponse carries the request and the advisory findings
// raised by its proposal.
type ChangeRequestResponse struct {
	Request  worktime.ChangeRequest `json:"change_request"`
	Warnings []compliance.Finding   `json:"warnings,omitempty"`
}

// =============================================================================
// CLOSURES & HOLIDAYS
// =============================================================================

type ClosureRequest struct {
	Name      string       `json:"name"`
	StartDate generic.Date `json:"start_date"`
	EndDate   generic.Date `json:"end_date"`
}

type ClosureResponse struct {
	Closure  worktime.CompanyClosure `json:"closure"`
	Affected int                     `json:"absences"`
}

type HolidayRequest struct {
	Date   generic.Date `json:"date"`
	Name   string       `json:"name"`
	Region string       `json:"region"`
}

type SyncHolidaysRequest struct {
	Year   int    `json:"year"`
	Region string `json:"region"`
}

// =============================================================================
// REPORTS
// =============================================================================

type TargetResponse struct {
	EmployeeID  generic.EmployeeID `json:"employee_id"`
	Period      generic.Period     `json:"period"`
	TargetHours generic.Hours      `json:"target_hours"`
}

// =============================================================================
// ERRORS
// =============================================================================

// ErrorResponse is the standard error response.
type ErrorResponse struct {
	Error   string `json:"error"`
	Code    string `json:"code,omitempty"`
	Details any    `json:"details,omitempty"`
}
