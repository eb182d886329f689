package service

import (
	"context"
	"strings"

	"github.com/warp/worktime-engine/generic"
	"github.com/warp/worktime-engine/worktime"
)

// =============================================================================
// EMPLOYEES
// =============================================================================

// CreateEmployee stores a new active employee. The returned warnings flag
// a daily schedule that does not add up to the weekly hours.
func (e *Engine) CreateEmployee(ctx context.Context, actor Actor, emp worktime.Employee) (worktime.Employee, []generic.IntegrityWarning, error) {
	if err := requireAdmin(actor); err != nil {
		return worktime.Employee{}, nil, err
	}
	emp.Name = strings.TrimSpace(emp.Name)
	if emp.Role == "" {
		emp.Role = worktime.RoleEmployee
	}
	if err := emp.Validate(); err != nil {
		return worktime.Employee{}, nil, err
	}
	if emp.ID == "" {
		emp.ID = generic.EmployeeID(e.newID())
	}
	emp.Active = true
	emp.DeactivatedAt = nil
	emp.CreatedAt = e.now()

	err := e.store.WithTx(ctx, func(tx worktime.Store) error {
		if _, err := tx.GetEmployee(ctx, emp.ID); err == nil {
			return &generic.DuplicateError{Entity: "employee", Key: string(emp.ID)}
		} else if !generic.IsNotFound(err) {
			return err
		}
		if err := tx.SaveEmployee(ctx, emp); err != nil {
			return err
		}
		return e.record(ctx, tx, actor, generic.AuditEmployeeChanged, emp.ID, "", map[string]any{"created": emp.Name})
	})
	if err != nil {
		return worktime.Employee{}, nil, err
	}
	return emp, worktime.CheckScheduleIntegrity(emp), nil
}

// UpdateEmployee replaces an employee's contract parameters. Activity
// state and creation time are kept; a nil balance anchor keeps the
// stored one.
func (e *Engine) UpdateEmployee(ctx context.Context, actor Actor, emp worktime.Employee) (worktime.Employee, []generic.IntegrityWarning, error) {
	if err := requireAdmin(actor); err != nil {
		return worktime.Employee{}, nil, err
	}
	emp.Name = strings.TrimSpace(emp.Name)
	if err := emp.Validate(); err != nil {
		return worktime.Employee{}, nil, err
	}

	unlock := e.locks.lock(emp.ID)
	defer unlock()

	err := e.store.WithTx(ctx, func(tx worktime.Store) error {
		stored, err := tx.GetEmployee(ctx, emp.ID)
		if err != nil {
			return err
		}
		emp.Active = stored.Active
		emp.DeactivatedAt = stored.DeactivatedAt
		emp.CreatedAt = stored.CreatedAt
		if emp.BalanceAnchor == nil {
			emp.BalanceAnchor = stored.BalanceAnchor
		} else {
			a := generic.StartOfMonth(emp.BalanceAnchor.Year(), emp.BalanceAnchor.Month())
			emp.BalanceAnchor = &a
		}
		if err := tx.SaveEmployee(ctx, emp); err != nil {
			return err
		}
		return e.record(ctx, tx, actor, generic.AuditEmployeeChanged, emp.ID, "", map[string]any{
			"weekly_hours": emp.WeeklyHours, "work_days_per_week": emp.WorkDaysPerWeek,
			"vacation_days": emp.VacationDays, "track_hours": emp.TrackHours,
		})
	})
	if err != nil {
		return worktime.Employee{}, nil, err
	}
	e.refreshLedger(ctx, emp.ID)
	return emp, worktime.CheckScheduleIntegrity(emp), nil
}

// DeactivateEmployee marks an employee inactive. Records are kept.
func (e *Engine) DeactivateEmployee(ctx context.Context, actor Actor, id generic.EmployeeID) (worktime.Employee, error) {
	if err := requireAdmin(actor); err != nil {
		return worktime.Employee{}, err
	}

	unlock := e.locks.lock(id)
	defer unlock()

	var emp worktime.Employee
	err := e.store.WithTx(ctx, func(tx worktime.Store) error {
		var err error
		emp, err = tx.GetEmployee(ctx, id)
		if err != nil {
			return err
		}
		if !emp.Active {
			return &generic.StateError{Entity: "employee", ID: string(id), Current: "inactive", Wanted: "active"}
		}
		now := e.now()
		emp.Active = false
		emp.DeactivatedAt = &now
		if err := tx.SaveEmployee(ctx, emp); err != nil {
			return err
		}
		return e.record(ctx, tx, actor, generic.AuditEmployeeChanged, id, "", map[string]any{"deactivated": true})
	})
	return emp, err
}

// GetEmployee returns one employee.
func (e *Engine) GetEmployee(ctx context.Context, actor Actor, id generic.EmployeeID) (worktime.Employee, error) {
	if err := requireAccess(actor, id); err != nil {
		return worktime.Employee{}, err
	}
	return e.store.GetEmployee(ctx, id)
}

// ListEmployees returns employees sorted by name; admins only.
func (e *Engine) ListEmployees(ctx context.Context, actor Actor, activeOnly bool) ([]worktime.Employee, error) {
	if err := requireAdmin(actor); err != nil {
		return nil, err
	}
	return e.store.ListEmployees(ctx, activeOnly)
}
