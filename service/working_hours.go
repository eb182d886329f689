package service

import (
	"context"
	"fmt"

	"github.com/warp/worktime-engine/generic"
	"github.com/warp/worktime-engine/worktime"
)

// =============================================================================
// WORKING-HOURS CHANGES
// =============================================================================

// AddWorkingHoursChange stores a new weekly-hours value effective from a
// date. Only one change may take effect on a given date.
func (e *Engine) AddWorkingHoursChange(ctx context.Context, actor Actor, c worktime.WorkingHoursChange) (worktime.WorkingHoursChange, error) {
	if err := requireAdmin(actor); err != nil {
		return worktime.WorkingHoursChange{}, err
	}
	if c.EffectiveFrom.IsZero() {
		return worktime.WorkingHoursChange{}, &generic.ValidationError{Field: "effective_from", Reason: "must be set"}
	}
	if c.WeeklyHours.IsNegative() || c.WeeklyHours.GreaterThan(generic.NewHoursFromInt(168)) {
		return worktime.WorkingHoursChange{}, &generic.ValidationError{Field: "weekly_hours", Reason: "must be between 0 and 168"}
	}

	unlock := e.locks.lock(c.EmployeeID)
	defer unlock()

	c.ID = generic.RecordID(e.newID())
	c.CreatedAt = e.now()
	err := e.store.WithTx(ctx, func(tx worktime.Store) error {
		if _, err := tx.GetEmployee(ctx, c.EmployeeID); err != nil {
			return err
		}
		existing, err := tx.ListWorkingHoursChanges(ctx, c.EmployeeID)
		if err != nil {
			return err
		}
		for _, x := range existing {
			if x.EffectiveFrom.Equal(c.EffectiveFrom) {
				return &generic.DuplicateError{Entity: "working hours change", Key: c.EffectiveFrom.String()}
			}
		}
		if err := tx.SaveWorkingHoursChange(ctx, c); err != nil {
			return err
		}
		return e.record(ctx, tx, actor, generic.AuditWorkingHoursChanged, c.EmployeeID, c.ID, map[string]any{
			"effective_from": c.EffectiveFrom, "weekly_hours": c.WeeklyHours,
		})
	})
	if err != nil {
		return worktime.WorkingHoursChange{}, err
	}
	e.refreshLedger(ctx, c.EmployeeID)
	return c, nil
}

// DeleteWorkingHoursChange removes a change. The days it covered fall back
// to the previous change or the baseline; the returned warning says so.
func (e *Engine) DeleteWorkingHoursChange(ctx context.Context, actor Actor, id generic.RecordID) ([]generic.IntegrityWarning, error) {
	if err := requireAdmin(actor); err != nil {
		return nil, err
	}
	c, err := e.store.GetWorkingHoursChange(ctx, id)
	if err != nil {
		return nil, err
	}

	unlock := e.locks.lock(c.EmployeeID)
	defer unlock()

	var warnings []generic.IntegrityWarning
	err = e.store.WithTx(ctx, func(tx worktime.Store) error {
		emp, err := tx.GetEmployee(ctx, c.EmployeeID)
		if err != nil {
			return err
		}
		if err := tx.DeleteWorkingHoursChange(ctx, id); err != nil {
			return err
		}
		remaining, err := tx.ListWorkingHoursChanges(ctx, c.EmployeeID)
		if err != nil {
			return err
		}
		fallback := worktime.NewTimeline(emp, remaining).HoursFor(c.EffectiveFrom)
		if !fallback.Equal(c.WeeklyHours) {
			msg := fmt.Sprintf("from %s weekly hours revert from %sh to %sh; targets and balances are recomputed",
				c.EffectiveFrom, c.WeeklyHours, fallback)
			warnings = append(warnings, generic.IntegrityWarning{Code: "working_hours_reverted", Message: msg})
		}
		return e.record(ctx, tx, actor, generic.AuditWorkingHoursChanged, c.EmployeeID, id, map[string]any{
			"deleted": true, "effective_from": c.EffectiveFrom, "weekly_hours": c.WeeklyHours,
		})
	})
	if err != nil {
		return nil, err
	}
	e.refreshLedger(ctx, c.EmployeeID)
	return warnings, nil
}

// ListWorkingHoursChanges returns the employee's changes by effective date.
func (e *Engine) ListWorkingHoursChanges(ctx context.Context, actor Actor, emp generic.EmployeeID) ([]worktime.WorkingHoursChange, error) {
	if err := requireAccess(actor, emp); err != nil {
		return nil, err
	}
	employee, err := e.store.GetEmployee(ctx, emp)
	if err != nil {
		return nil, err
	}
	changes, err := e.store.ListWorkingHoursChanges(ctx, emp)
	if err != nil {
		return nil, err
	}
	return worktime.NewTimeline(employee, changes).Changes(), nil
}

// CurrentWeeklyHours returns the weekly hours in effect today.
func (e *Engine) CurrentWeeklyHours(ctx context.Context, emp worktime.Employee) (generic.Hours, error) {
	changes, err := e.store.ListWorkingHoursChanges(ctx, emp.ID)
	if err != nil {
		return generic.Hours{}, err
	}
	return worktime.NewTimeline(emp, changes).HoursFor(e.Today()), nil
}
