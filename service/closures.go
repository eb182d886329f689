package service

import (
	"context"
	"strings"

	"github.com/warp/worktime-engine/generic"
	"github.com/warp/worktime-engine/worktime"
)

// =============================================================================
// COMPANY CLOSURES
// =============================================================================

// CreateClosure stores a closure and generates vacation days for every
// active employee on each of their working days in the range. Days that
// already carry vacation are left untouched. Returns the closure and the
// number of generated rows.
func (e *Engine) CreateClosure(ctx context.Context, actor Actor, closure worktime.CompanyClosure) (worktime.CompanyClosure, int, error) {
	if err := requireAdmin(actor); err != nil {
		return worktime.CompanyClosure{}, 0, err
	}
	closure.Name = strings.TrimSpace(closure.Name)
	if closure.Name == "" {
		return worktime.CompanyClosure{}, 0, &generic.ValidationError{Field: "name", Reason: "must not be empty"}
	}
	period, err := generic.NewPeriod(closure.StartDate, closure.EndDate)
	if err != nil {
		return worktime.CompanyClosure{}, 0, err
	}
	closure.ID = generic.RecordID(e.newID())
	closure.CreatedBy = actor.ID
	closure.CreatedAt = e.now()

	var touched []generic.EmployeeID
	generated := 0
	err = e.store.WithTx(ctx, func(tx worktime.Store) error {
		if err := tx.SaveClosure(ctx, closure); err != nil {
			return err
		}
		employees, err := tx.ListEmployees(ctx, true)
		if err != nil {
			return err
		}
		for _, emp := range employees {
			sched, existing, err := e.schedule(ctx, tx, emp, period)
			if err != nil {
				return err
			}
			rows := worktime.PlanClosure(sched, closure, existing)
			for _, r := range rows {
				r.ID = generic.RecordID(e.newID())
				r.CreatedAt = closure.CreatedAt
				if err := tx.SaveAbsence(ctx, r); err != nil {
					return err
				}
			}
			if len(rows) > 0 {
				touched = append(touched, emp.ID)
				generated += len(rows)
			}
		}
		return e.record(ctx, tx, actor, generic.AuditClosureCreated, "", closure.ID, map[string]any{
			"name": closure.Name, "start": closure.StartDate, "end": closure.EndDate, "generated": generated,
		})
	})
	if err != nil {
		return worktime.CompanyClosure{}, 0, err
	}
	for _, id := range touched {
		e.refreshLedger(ctx, id)
	}
	e.log.Info().Str("closure", closure.Name).Int("generated", generated).Msg("company closure created")
	return closure, generated, nil
}

// DeleteClosure removes the closure and exactly the vacation rows it
// generated.
func (e *Engine) DeleteClosure(ctx context.Context, actor Actor, id generic.RecordID) (int, error) {
	if err := requireAdmin(actor); err != nil {
		return 0, err
	}
	touched := make(map[generic.EmployeeID]bool)
	removed := 0
	err := e.store.WithTx(ctx, func(tx worktime.Store) error {
		closure, err := tx.GetClosure(ctx, id)
		if err != nil {
			return err
		}
		rows, err := tx.ListAbsencesByClosure(ctx, id)
		if err != nil {
			return err
		}
		for _, r := range rows {
			if err := tx.DeleteAbsence(ctx, r.ID); err != nil {
				return err
			}
			touched[r.EmployeeID] = true
		}
		removed = len(rows)
		if err := tx.DeleteClosure(ctx, id); err != nil {
			return err
		}
		return e.record(ctx, tx, actor, generic.AuditClosureDeleted, "", id, map[string]any{
			"name": closure.Name, "removed": removed,
		})
	})
	if err != nil {
		return 0, err
	}
	for emp := range touched {
		e.refreshLedger(ctx, emp)
	}
	return removed, nil
}

// ListClosures returns closures overlapping year (all when year is 0).
func (e *Engine) ListClosures(ctx context.Context, year int) ([]worktime.CompanyClosure, error) {
	return e.store.ListClosures(ctx, year)
}
