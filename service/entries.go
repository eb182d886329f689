package service

import (
	"context"
	"errors"
	"fmt"

	"github.com/warp/worktime-engine/compliance"
	"github.com/warp/worktime-engine/generic"
	"github.com/warp/worktime-engine/worktime"
)

// =============================================================================
// SAVE OUTCOME
// =============================================================================

type OutcomeStatus string

const (
	OutcomeAccepted             OutcomeStatus = "accepted"
	OutcomeAcceptedWithWarnings OutcomeStatus = "accepted_with_warnings"
	OutcomeRejected             OutcomeStatus = "rejected"
)

// SaveOutcome reports what happened to an entry save. A rejected outcome is
// returned together with a *compliance.RejectionError.
type SaveOutcome struct {
	Status   OutcomeStatus        `json:"status"`
	Entry    *EntryView           `json:"entry,omitempty"`
	Warnings []compliance.Finding `json:"warnings,omitempty"`
	Reasons  []compliance.Finding `json:"reasons,omitempty"`
}

// EntryView is a stored entry with its derived fields. Locked refers to
// direct edits by employees.
type EntryView struct {
	worktime.TimeEntry
	NetHours          generic.Hours `json:"net_hours"`
	IsSundayOrHoliday bool          `json:"is_sunday_or_holiday"`
	Locked            bool          `json:"locked"`
}

func (e *Engine) accepted(ctx context.Context, entry worktime.TimeEntry, warnings []compliance.Finding) SaveOutcome {
	status := OutcomeAccepted
	if len(warnings) > 0 {
		status = OutcomeAcceptedWithWarnings
	}
	view := EntryView{TimeEntry: entry, NetHours: worktime.NetHours(entry), Locked: e.IsLocked(entry.Date)}
	views, err := e.viewEntries(ctx, []worktime.TimeEntry{entry}, generic.Period{Start: entry.Date, End: entry.Date})
	if err != nil {
		e.log.Error().Err(err).Str("entry_id", string(entry.ID)).Msg("Failed to load holidays for saved entry")
	} else {
		view = views[0]
	}
	return SaveOutcome{Status: status, Entry: &view, Warnings: warnings}
}

// viewEntries derives the read-only fields of entries; p must cover their dates.
func (e *Engine) viewEntries(ctx context.Context, entries []worktime.TimeEntry, p generic.Period) ([]EntryView, error) {
	cal, err := e.calendar(ctx, e.store, p)
	if err != nil {
		return nil, err
	}
	ev := e.evaluator(cal)
	views := make([]EntryView, len(entries))
	for i, entry := range entries {
		views[i] = EntryView{
			TimeEntry:         entry,
			NetHours:          worktime.NetHours(entry),
			IsSundayOrHoliday: ev.IsSundayOrHoliday(entry.Date),
			Locked:            e.IsLocked(entry.Date),
		}
	}
	return views, nil
}

func rejected(err error) (SaveOutcome, error) {
	var rej *compliance.RejectionError
	if errors.As(err, &rej) {
		return SaveOutcome{Status: OutcomeRejected, Reasons: rej.Findings}, err
	}
	return SaveOutcome{}, err
}

// =============================================================================
// LOCK WINDOW
// =============================================================================

// IsLocked reports whether employees can no longer edit entries dated d
// directly.
func (e *Engine) IsLocked(d generic.Date) bool {
	return d.Before(e.Today().AddDays(-e.editableDays))
}

func (e *Engine) checkEditable(actor Actor, d generic.Date) error {
	if actor.IsAdmin() || !e.IsLocked(d) {
		return nil
	}
	return fmt.Errorf("%w: entries on %s can only be changed through a change request", generic.ErrEntryLocked, d)
}

// =============================================================================
// ENTRY OPERATIONS
// =============================================================================

// CreateEntry validates and stores a new time entry.
func (e *Engine) CreateEntry(ctx context.Context, actor Actor, entry worktime.TimeEntry) (SaveOutcome, error) {
	if err := requireAccess(actor, entry.EmployeeID); err != nil {
		return SaveOutcome{}, err
	}
	if err := entry.Validate(); err != nil {
		return SaveOutcome{}, err
	}
	if err := e.checkEditable(actor, entry.Date); err != nil {
		return SaveOutcome{}, err
	}

	unlock := e.locks.lock(entry.EmployeeID)
	defer unlock()

	now := e.now()
	entry.ID = generic.RecordID(e.newID())
	entry.CreatedAt, entry.UpdatedAt = now, now

	var warnings []compliance.Finding
	err := e.store.WithTx(ctx, func(tx worktime.Store) error {
		var err error
		warnings, err = e.saveEntry(ctx, tx, entry)
		if err != nil {
			return err
		}
		return e.record(ctx, tx, actor, generic.AuditEntryCreated, entry.EmployeeID, entry.ID, entryPayload(entry, warnings))
	})
	if err != nil {
		return rejected(err)
	}
	e.refreshLedger(ctx, entry.EmployeeID)
	return e.accepted(ctx, entry, warnings), nil
}

// UpdateEntry replaces an entry's editable fields.
func (e *Engine) UpdateEntry(ctx context.Context, actor Actor, id generic.RecordID, values worktime.EntryValues) (SaveOutcome, error) {
	current, err := e.store.GetTimeEntry(ctx, id)
	if err != nil {
		return SaveOutcome{}, err
	}
	if err := requireAccess(actor, current.EmployeeID); err != nil {
		return SaveOutcome{}, err
	}
	if err := e.checkEditable(actor, current.Date); err != nil {
		return SaveOutcome{}, err
	}
	if err := e.checkEditable(actor, values.Date); err != nil {
		return SaveOutcome{}, err
	}

	unlock := e.locks.lock(current.EmployeeID)
	defer unlock()

	var updated worktime.TimeEntry
	var warnings []compliance.Finding
	err = e.store.WithTx(ctx, func(tx worktime.Store) error {
		stored, err := tx.GetTimeEntry(ctx, id)
		if err != nil {
			return err
		}
		updated = values.Apply(stored)
		updated.UpdatedAt = e.now()
		if err := updated.Validate(); err != nil {
			return err
		}
		warnings, err = e.saveEntry(ctx, tx, updated)
		if err != nil {
			return err
		}
		payload := entryPayload(updated, warnings)
		payload["before"] = worktime.ValuesOf(stored)
		return e.record(ctx, tx, actor, generic.AuditEntryUpdated, updated.EmployeeID, updated.ID, payload)
	})
	if err != nil {
		return rejected(err)
	}
	e.refreshLedger(ctx, updated.EmployeeID)
	return e.accepted(ctx, updated, warnings), nil
}

// DeleteEntry removes an entry.
func (e *Engine) DeleteEntry(ctx context.Context, actor Actor, id generic.RecordID) error {
	current, err := e.store.GetTimeEntry(ctx, id)
	if err != nil {
		return err
	}
	if err := requireAccess(actor, current.EmployeeID); err != nil {
		return err
	}
	if err := e.checkEditable(actor, current.Date); err != nil {
		return err
	}

	unlock := e.locks.lock(current.EmployeeID)
	defer unlock()

	err = e.store.WithTx(ctx, func(tx worktime.Store) error {
		if err := tx.DeleteTimeEntry(ctx, id); err != nil {
			return err
		}
		return e.record(ctx, tx, actor, generic.AuditEntryDeleted, current.EmployeeID, id,
			map[string]any{"before": worktime.ValuesOf(current)})
	})
	if err != nil {
		return err
	}
	e.refreshLedger(ctx, current.EmployeeID)
	return nil
}

// ListEntries returns an employee's entries in p with their derived fields.
func (e *Engine) ListEntries(ctx context.Context, actor Actor, emp generic.EmployeeID, p generic.Period) ([]EntryView, error) {
	if err := requireAccess(actor, emp); err != nil {
		return nil, err
	}
	if err := p.Validate(); err != nil {
		return nil, err
	}
	entries, err := e.store.ListTimeEntries(ctx, emp, p)
	if err != nil {
		return nil, err
	}
	return e.viewEntries(ctx, entries, p)
}

// =============================================================================
// TRANSACTIONAL SAVE - Shared by direct saves and change request approval
// =============================================================================

// checkEntry runs the save-time compliance rules for entry against the
// stored entries around it and returns all findings.
func (e *Engine) checkEntry(ctx context.Context, tx worktime.Store, emp worktime.Employee, entry worktime.TimeEntry) ([]compliance.Finding, error) {
	week := generic.ISOWeekPeriod(entry.Date)
	around := generic.Period{Start: week.Start.AddDays(-1), End: week.End.AddDays(1)}
	neighbours, err := tx.ListTimeEntries(ctx, emp.ID, around)
	if err != nil {
		return nil, err
	}
	cal, err := e.calendar(ctx, tx, around)
	if err != nil {
		return nil, err
	}
	return e.evaluator(cal).CheckEntry(emp, entry, neighbours), nil
}

// saveEntry validates entry against its neighbours and persists it. Blocking
// findings abort with a *compliance.RejectionError; advisory findings are
// returned. The employee's balance anchor is set by the first entry.
func (e *Engine) saveEntry(ctx context.Context, tx worktime.Store, entry worktime.TimeEntry) ([]compliance.Finding, error) {
	emp, err := tx.GetEmployee(ctx, entry.EmployeeID)
	if err != nil {
		return nil, err
	}
	if !emp.Active {
		return nil, &generic.ValidationError{Field: "employee_id", Reason: "employee is deactivated"}
	}

	findings, err := e.checkEntry(ctx, tx, emp, entry)
	if err != nil {
		return nil, err
	}
	if blocking := compliance.Blocking(findings); len(blocking) > 0 {
		return nil, &compliance.RejectionError{Findings: blocking}
	}
	if err := tx.SaveTimeEntry(ctx, entry); err != nil {
		return nil, err
	}

	// The anchor only ever moves earlier; deleting entries never moves it.
	anchor := generic.StartOfMonth(entry.Date.Year(), entry.Date.Month())
	if emp.BalanceAnchor == nil || anchor.Before(*emp.BalanceAnchor) {
		emp.BalanceAnchor = &anchor
		if err := tx.SaveEmployee(ctx, emp); err != nil {
			return nil, err
		}
	}
	return compliance.Advisory(findings), nil
}

func entryPayload(entry worktime.TimeEntry, warnings []compliance.Finding) map[string]any {
	payload := map[string]any{"entry": worktime.ValuesOf(entry)}
	if len(warnings) > 0 {
		rules := make([]string, len(warnings))
		for i, w := range warnings {
			rules[i] = string(w.Rule)
		}
		payload["warnings"] = rules
	}
	return payload
}
