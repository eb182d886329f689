package service

import (
	"context"
	"sort"
	"time"

	"github.com/warp/worktime-engine/generic"
	"github.com/warp/worktime-engine/worktime"
)

// =============================================================================
// TEAM REPORTS - Monthly figures, yearly absences, absence calendar
// =============================================================================

// MonthlyReportRow is one employee's line of the monthly report that feeds
// the payroll export.
type MonthlyReportRow struct {
	EmployeeID generic.EmployeeID `json:"employee_id"`
	Name       string             `json:"name"`
	// WeeklyHours is the value in effect on the last day of the month.
	WeeklyHours   generic.Hours `json:"weekly_hours"`
	Target        generic.Hours `json:"target_hours"`
	Actual        generic.Hours `json:"actual_hours"`
	Balance       generic.Hours `json:"balance_hours"`
	Cumulative    generic.Hours `json:"cumulative_hours"`
	VacationHours generic.Hours `json:"vacation_hours"`
	SickHours     generic.Hours `json:"sick_hours"`
}

// AbsenceSummaryRow is one employee's absences for a year.
type AbsenceSummaryRow struct {
	EmployeeID generic.EmployeeID `json:"employee_id"`
	Name       string             `json:"name"`
	Year       int                `json:"year"`

	Days      map[worktime.AbsenceType]int           `json:"days"`
	Hours     map[worktime.AbsenceType]generic.Hours `json:"hours"`
	TotalDays int                                    `json:"total_days"`
}

// CalendarAbsence is an absence day with the employee's display data.
type CalendarAbsence struct {
	worktime.Absence
	EmployeeName  string `json:"employee_name"`
	CalendarColor string `json:"calendar_color,omitempty"`
}

// MonthlyReport returns target, actual, balance, cumulative balance and the
// vacation and sick hours of one month for every active employee.
func (e *Engine) MonthlyReport(ctx context.Context, actor Actor, year int, month time.Month) ([]MonthlyReportRow, error) {
	if err := requireAdmin(actor); err != nil {
		return nil, err
	}
	if month < time.January || month > time.December {
		return nil, &generic.ValidationError{Field: "month", Reason: "must be between 1 and 12"}
	}
	ym := generic.YearMonth{Year: year, Month: month}
	p := ym.Period()

	employees, err := e.store.ListEmployees(ctx, true)
	if err != nil {
		return nil, err
	}
	rows := make([]MonthlyReportRow, 0, len(employees))
	for _, emp := range employees {
		in, err := e.ledgerInput(ctx, e.store, emp, ym, ym)
		if err != nil {
			return nil, err
		}
		mb := worktime.ComputeMonths(in, ym, ym)[0]
		totals := worktime.SumAbsences(in.Absences, p)
		rows = append(rows, MonthlyReportRow{
			EmployeeID:    emp.ID,
			Name:          emp.Name,
			WeeklyHours:   in.Schedule.Timeline.HoursFor(p.End),
			Target:        mb.Target,
			Actual:        mb.Actual,
			Balance:       mb.Balance,
			Cumulative:    mb.Cumulative,
			VacationHours: totals.Hours[worktime.AbsenceVacation],
			SickHours:     totals.Hours[worktime.AbsenceSick],
		})
	}
	return rows, nil
}

// YearlyAbsenceSummary counts each active employee's absence days per type.
func (e *Engine) YearlyAbsenceSummary(ctx context.Context, actor Actor, year int) ([]AbsenceSummaryRow, error) {
	if err := requireAdmin(actor); err != nil {
		return nil, err
	}
	p := generic.YearPeriod(year)

	employees, err := e.store.ListEmployees(ctx, true)
	if err != nil {
		return nil, err
	}
	rows := make([]AbsenceSummaryRow, 0, len(employees))
	for _, emp := range employees {
		absences, err := e.store.ListAbsences(ctx, emp.ID, p)
		if err != nil {
			return nil, err
		}
		totals := worktime.SumAbsences(absences, p)
		rows = append(rows, AbsenceSummaryRow{
			EmployeeID: emp.ID,
			Name:       emp.Name,
			Year:       year,
			Days:       totals.Days,
			Hours:      totals.Hours,
			TotalDays:  totals.TotalDays(),
		})
	}
	return rows, nil
}

// AbsenceCalendar lists the absence days of all active employees in one
// month, by date then name. Every employee may read it.
func (e *Engine) AbsenceCalendar(ctx context.Context, year int, month time.Month) ([]CalendarAbsence, error) {
	if month < time.January || month > time.December {
		return nil, &generic.ValidationError{Field: "month", Reason: "must be between 1 and 12"}
	}
	p := generic.MonthPeriod(year, month)

	employees, err := e.store.ListEmployees(ctx, true)
	if err != nil {
		return nil, err
	}
	out := []CalendarAbsence{}
	for _, emp := range employees {
		absences, err := e.store.ListAbsences(ctx, emp.ID, p)
		if err != nil {
			return nil, err
		}
		for _, a := range absences {
			out = append(out, CalendarAbsence{Absence: a, EmployeeName: emp.Name, CalendarColor: emp.CalendarColor})
		}
	}
	sort.SliceStable(out, func(i, j int) bool {
		if !out[i].Date.Equal(out[j].Date) {
			return out[i].Date.Before(out[j].Date)
		}
		return out[i].EmployeeName < out[j].EmployeeName
	})
	return out, nil
}
