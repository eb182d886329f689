package service

import (
	"context"

	"github.com/warp/worktime-engine/compliance"
	"github.com/warp/worktime-engine/generic"
	"github.com/warp/worktime-engine/worktime"
)

// =============================================================================
// COMPLIANCE REPORTS
// =============================================================================

// ComplianceReport evaluates every rule for an employee over p. A zero
// until means today: rest windows still open and Sundays still ahead are
// not reported.
func (e *Engine) ComplianceReport(ctx context.Context, actor Actor, emp generic.EmployeeID, p generic.Period, until generic.Date) (compliance.Report, error) {
	if err := requireAccess(actor, emp); err != nil {
		return compliance.Report{}, err
	}
	if err := p.Validate(); err != nil {
		return compliance.Report{}, err
	}
	employee, err := e.store.GetEmployee(ctx, emp)
	if err != nil {
		return compliance.Report{}, err
	}
	return e.evaluate(ctx, employee, p, e.horizon(until))
}

// ComplianceOverview evaluates the whole year for every active employee.
func (e *Engine) ComplianceOverview(ctx context.Context, actor Actor, year int) ([]compliance.Report, error) {
	if err := requireAdmin(actor); err != nil {
		return nil, err
	}
	employees, err := e.store.ListEmployees(ctx, true)
	if err != nil {
		return nil, err
	}
	until := e.horizon(generic.Date{})
	reports := make([]compliance.Report, 0, len(employees))
	for _, emp := range employees {
		r, err := e.evaluate(ctx, emp, generic.YearPeriod(year), until)
		if err != nil {
			return nil, err
		}
		reports = append(reports, r)
	}
	return reports, nil
}

func (e *Engine) horizon(until generic.Date) generic.Date {
	if until.IsZero() {
		return e.Today()
	}
	return until
}

// evaluate loads the entries the rules need: whole years around p, the day
// before for the rest rule and the holiday rest window after.
func (e *Engine) evaluate(ctx context.Context, emp worktime.Employee, p generic.Period, until generic.Date) (compliance.Report, error) {
	span := generic.Period{
		Start: generic.StartOfYear(p.Start.Year()).AddDays(-1),
		End:   generic.EndOfYear(p.End.Year()).AddDays(e.rules.HolidayRestWindowDays),
	}
	entries, err := e.store.ListTimeEntries(ctx, emp.ID, span)
	if err != nil {
		return compliance.Report{}, err
	}
	cal, err := e.calendar(ctx, e.store, span)
	if err != nil {
		return compliance.Report{}, err
	}
	return e.evaluator(cal).Evaluate(compliance.Input{
		Employee: emp,
		Entries:  entries,
		Period:   p,
		Until:    until,
	}), nil
}
