package service

import (
	"context"

	"github.com/warp/worktime-engine/generic"
	"github.com/warp/worktime-engine/worktime"
)

// =============================================================================
// ABSENCES
// =============================================================================

// AbsenceRequest records an absence over a date range.
type AbsenceRequest struct {
	EmployeeID  generic.EmployeeID
	Start       generic.Date
	End         generic.Date
	Type        worktime.AbsenceType
	HoursPerDay generic.Hours // zero: each day's contract target
	Note        string

	// ReplaceVacation confirms that vacation days covered by a sick
	// absence are deleted and replaced.
	ReplaceVacation bool
}

// CreateAbsence expands the range into one row per working day and stores
// the rows atomically. A sick absence over existing vacation fails with a
// *worktime.VacationConflictError unless ReplaceVacation is set.
func (e *Engine) CreateAbsence(ctx context.Context, actor Actor, req AbsenceRequest) ([]worktime.Absence, error) {
	if err := requireAccess(actor, req.EmployeeID); err != nil {
		return nil, err
	}
	period, err := generic.NewPeriod(req.Start, req.End)
	if err != nil {
		return nil, err
	}

	unlock := e.locks.lock(req.EmployeeID)
	defer unlock()

	var created []worktime.Absence
	err = e.store.WithTx(ctx, func(tx worktime.Store) error {
		emp, err := tx.GetEmployee(ctx, req.EmployeeID)
		if err != nil {
			return err
		}
		sched, existing, err := e.schedule(ctx, tx, emp, period)
		if err != nil {
			return err
		}
		rows, err := worktime.ExpandAbsence(sched, worktime.AbsenceRange{
			EmployeeID:  emp.ID,
			Start:       req.Start,
			End:         req.End,
			Type:        req.Type,
			HoursPerDay: req.HoursPerDay,
			Note:        req.Note,
		})
		if err != nil {
			return err
		}
		if dup, ok := worktime.DuplicateAbsence(existing, rows); ok {
			return &generic.DuplicateError{Entity: "absence", Key: string(dup.Type) + " on " + dup.Date.String()}
		}

		if conflicts := worktime.SickOverVacation(existing, rows); len(conflicts) > 0 {
			if !req.ReplaceVacation {
				return &worktime.VacationConflictError{Conflicts: conflicts}
			}
			for _, c := range conflicts {
				if err := tx.DeleteAbsence(ctx, c.AbsenceID); err != nil {
					return err
				}
			}
			if err := e.record(ctx, tx, actor, generic.AuditVacationReplaced, emp.ID, "",
				map[string]any{"conflicts": conflicts}); err != nil {
				return err
			}
		}

		now := e.now()
		for i := range rows {
			rows[i].ID = generic.RecordID(e.newID())
			rows[i].CreatedAt = now
			if err := tx.SaveAbsence(ctx, rows[i]); err != nil {
				return err
			}
		}
		created = rows
		return e.record(ctx, tx, actor, generic.AuditAbsenceCreated, emp.ID, "", map[string]any{
			"type": req.Type, "start": req.Start, "end": req.End, "days": len(rows),
		})
	})
	if err != nil {
		return nil, err
	}
	e.refreshLedger(ctx, req.EmployeeID)
	return created, nil
}

// DeleteAbsence removes one absence day. Rows generated by a company
// closure can only be removed by an admin.
func (e *Engine) DeleteAbsence(ctx context.Context, actor Actor, id generic.RecordID) error {
	a, err := e.store.GetAbsence(ctx, id)
	if err != nil {
		return err
	}
	if err := requireAccess(actor, a.EmployeeID); err != nil {
		return err
	}
	if a.ClosureID != "" {
		if err := requireAdmin(actor); err != nil {
			return err
		}
	}

	unlock := e.locks.lock(a.EmployeeID)
	defer unlock()

	err = e.store.WithTx(ctx, func(tx worktime.Store) error {
		if err := tx.DeleteAbsence(ctx, id); err != nil {
			return err
		}
		return e.record(ctx, tx, actor, generic.AuditAbsenceDeleted, a.EmployeeID, id,
			map[string]any{"date": a.Date, "type": a.Type})
	})
	if err != nil {
		return err
	}
	e.refreshLedger(ctx, a.EmployeeID)
	return nil
}

// ListAbsences returns an employee's absences in p.
func (e *Engine) ListAbsences(ctx context.Context, actor Actor, emp generic.EmployeeID, p generic.Period) ([]worktime.Absence, error) {
	if err := requireAccess(actor, emp); err != nil {
		return nil, err
	}
	if err := p.Validate(); err != nil {
		return nil, err
	}
	return e.store.ListAbsences(ctx, emp, p)
}
