package service

import (
	"context"
	"fmt"
	"strings"

	"github.com/warp/worktime-engine/compliance"
	"github.com/warp/worktime-engine/generic"
	"github.com/warp/worktime-engine/worktime"
)

// =============================================================================
// CHANGE REQUEST WORKFLOW
// =============================================================================
//
//   pending ──approve──▶ approved   (entry created / updated / deleted)
//      │
//      ├─────reject───▶ rejected   (no data mutation)
//      │
//      └────withdraw──▶ (deleted by its author)
//
// Approved and rejected requests are terminal.

// ChangeRequestInput is what an employee submits.
type ChangeRequestInput struct {
	EmployeeID  generic.EmployeeID
	Type        worktime.ChangeRequestType
	TimeEntryID generic.RecordID      // update and delete
	Proposed    *worktime.EntryValues // create and update
	Reason      string
}

// SubmitChangeRequest records a pending request. Proposed values are
// checked with the save-time rules up front so that a request which could
// never be approved is refused at submission.
func (e *Engine) SubmitChangeRequest(ctx context.Context, actor Actor, in ChangeRequestInput) (worktime.ChangeRequest, []compliance.Finding, error) {
	if err := requireAccess(actor, in.EmployeeID); err != nil {
		return worktime.ChangeRequest{}, nil, err
	}
	in.Reason = strings.TrimSpace(in.Reason)
	if in.Reason == "" {
		return worktime.ChangeRequest{}, nil, &generic.ValidationError{Field: "reason", Reason: "must not be empty"}
	}
	switch in.Type {
	case worktime.ChangeCreate, worktime.ChangeUpdate:
		if in.Proposed == nil || in.Proposed.Date.IsZero() || in.Proposed.End == nil {
			return worktime.ChangeRequest{}, nil, &generic.ValidationError{Field: "proposed", Reason: "date, start_time and end_time are required"}
		}
	case worktime.ChangeDelete:
	default:
		return worktime.ChangeRequest{}, nil, &generic.ValidationError{Field: "request_type", Reason: "must be create, update or delete"}
	}
	if in.Type != worktime.ChangeCreate && in.TimeEntryID == "" {
		return worktime.ChangeRequest{}, nil, &generic.ValidationError{Field: "time_entry_id", Reason: "required for " + string(in.Type)}
	}

	unlock := e.locks.lock(in.EmployeeID)
	defer unlock()

	now := e.now()
	cr := worktime.ChangeRequest{
		ID:         generic.RecordID(e.newID()),
		EmployeeID: in.EmployeeID,
		Type:       in.Type,
		Proposed:   in.Proposed,
		Reason:     in.Reason,
		Status:     worktime.ChangePending,
		CreatedAt:  now,
		UpdatedAt:  now,
	}
	if in.Type != worktime.ChangeCreate {
		cr.TimeEntryID = in.TimeEntryID
	}
	if in.Type == worktime.ChangeDelete {
		cr.Proposed = nil
	}

	var warnings []compliance.Finding
	err := e.store.WithTx(ctx, func(tx worktime.Store) error {
		emp, err := tx.GetEmployee(ctx, in.EmployeeID)
		if err != nil {
			return err
		}

		candidate := worktime.TimeEntry{EmployeeID: emp.ID}
		if cr.TimeEntryID != "" {
			entry, err := tx.GetTimeEntry(ctx, cr.TimeEntryID)
			if err != nil {
				return err
			}
			if entry.EmployeeID != emp.ID {
				return fmt.Errorf("%w: entry %s belongs to another employee", generic.ErrForbidden, entry.ID)
			}
			original := worktime.ValuesOf(entry)
			cr.Original = &original
			candidate = entry
		}
		if cr.Proposed != nil {
			candidate = cr.Proposed.Apply(candidate)
			if err := candidate.Validate(); err != nil {
				return err
			}
			findings, err := e.checkEntry(ctx, tx, emp, candidate)
			if err != nil {
				return err
			}
			if blocking := compliance.Blocking(findings); len(blocking) > 0 {
				return &compliance.RejectionError{Findings: blocking}
			}
			warnings = compliance.Advisory(findings)
		}

		pending, err := tx.ListChangeRequests(ctx, emp.ID, worktime.ChangePending)
		if err != nil {
			return err
		}
		for _, p := range pending {
			if conflictingRequest(p, cr) {
				return &generic.DuplicateError{Entity: "pending change request", Key: pendingKey(cr)}
			}
		}

		if err := tx.SaveChangeRequest(ctx, cr); err != nil {
			return err
		}
		return e.record(ctx, tx, actor, generic.AuditChangeRequestSubmitted, emp.ID, cr.ID, map[string]any{
			"type": cr.Type, "time_entry_id": cr.TimeEntryID, "date": cr.TargetDate(), "reason": cr.Reason,
		})
	})
	if err != nil {
		return worktime.ChangeRequest{}, nil, err
	}
	return cr, warnings, nil
}

// One pending request per target entry, or per date for creations.
func conflictingRequest(a, b worktime.ChangeRequest) bool {
	if a.Type == worktime.ChangeCreate || b.Type == worktime.ChangeCreate {
		return a.Type == b.Type && a.TargetDate().Equal(b.TargetDate())
	}
	return a.TimeEntryID == b.TimeEntryID
}

func pendingKey(cr worktime.ChangeRequest) string {
	if cr.Type == worktime.ChangeCreate {
		return "create on " + cr.TargetDate().String()
	}
	return "entry " + string(cr.TimeEntryID)
}

// ApproveChangeRequest applies a pending request and marks it approved in
// one transaction. The applied entry goes through the full save-time
// validation; blocking findings abort the approval and leave the request
// pending.
func (e *Engine) ApproveChangeRequest(ctx context.Context, reviewer Actor, id generic.RecordID) (worktime.ChangeRequest, []compliance.Finding, error) {
	if err := requireAdmin(reviewer); err != nil {
		return worktime.ChangeRequest{}, nil, err
	}
	cr, err := e.store.GetChangeRequest(ctx, id)
	if err != nil {
		return worktime.ChangeRequest{}, nil, err
	}

	unlock := e.locks.lock(cr.EmployeeID)
	defer unlock()

	var warnings []compliance.Finding
	err = e.store.WithTx(ctx, func(tx worktime.Store) error {
		cr, err = tx.GetChangeRequest(ctx, id)
		if err != nil {
			return err
		}
		if cr.Status != worktime.ChangePending {
			return &generic.StateError{Entity: "change request", ID: string(id), Current: string(cr.Status), Wanted: string(worktime.ChangePending)}
		}

		now := e.now()
		var entryID generic.RecordID
		switch cr.Type {
		case worktime.ChangeCreate:
			entry := cr.Proposed.Apply(worktime.TimeEntry{
				ID:         generic.RecordID(e.newID()),
				EmployeeID: cr.EmployeeID,
				CreatedAt:  now,
				UpdatedAt:  now,
			})
			if err := entry.Validate(); err != nil {
				return err
			}
			if warnings, err = e.saveEntry(ctx, tx, entry); err != nil {
				return err
			}
			entryID = entry.ID
		case worktime.ChangeUpdate:
			stored, err := tx.GetTimeEntry(ctx, cr.TimeEntryID)
			if err != nil {
				return err
			}
			entry := cr.Proposed.Apply(stored)
			entry.UpdatedAt = now
			if err := entry.Validate(); err != nil {
				return err
			}
			if warnings, err = e.saveEntry(ctx, tx, entry); err != nil {
				return err
			}
			entryID = entry.ID
		case worktime.ChangeDelete:
			if err := tx.DeleteTimeEntry(ctx, cr.TimeEntryID); err != nil {
				return err
			}
			entryID = cr.TimeEntryID
		}

		cr.Status = worktime.ChangeApproved
		cr.ReviewedBy = reviewer.ID
		cr.ReviewedAt = &now
		cr.UpdatedAt = now
		if cr.Type == worktime.ChangeCreate {
			cr.TimeEntryID = entryID
		}
		if err := tx.SaveChangeRequest(ctx, cr); err != nil {
			return err
		}
		return e.record(ctx, tx, reviewer, generic.AuditChangeRequestApproved, cr.EmployeeID, cr.ID, map[string]any{
			"type": cr.Type, "time_entry_id": entryID, "date": cr.TargetDate(),
		})
	})
	if err != nil {
		return worktime.ChangeRequest{}, nil, err
	}
	e.refreshLedger(ctx, cr.EmployeeID)
	return cr, warnings, nil
}

// RejectChangeRequest marks a pending request rejected. No entry changes.
func (e *Engine) RejectChangeRequest(ctx context.Context, reviewer Actor, id generic.RecordID, reason string) (worktime.ChangeRequest, error) {
	if err := requireAdmin(reviewer); err != nil {
		return worktime.ChangeRequest{}, err
	}
	reason = strings.TrimSpace(reason)
	if reason == "" {
		return worktime.ChangeRequest{}, &generic.ValidationError{Field: "rejection_reason", Reason: "must not be empty"}
	}

	var cr worktime.ChangeRequest
	err := e.store.WithTx(ctx, func(tx worktime.Store) error {
		var err error
		cr, err = tx.GetChangeRequest(ctx, id)
		if err != nil {
			return err
		}
		if cr.Status != worktime.ChangePending {
			return &generic.StateError{Entity: "change request", ID: string(id), Current: string(cr.Status), Wanted: string(worktime.ChangePending)}
		}
		now := e.now()
		cr.Status = worktime.ChangeRejected
		cr.RejectionReason = reason
		cr.ReviewedBy = reviewer.ID
		cr.ReviewedAt = &now
		cr.UpdatedAt = now
		if err := tx.SaveChangeRequest(ctx, cr); err != nil {
			return err
		}
		return e.record(ctx, tx, reviewer, generic.AuditChangeRequestRejected, cr.EmployeeID, cr.ID,
			map[string]any{"reason": reason})
	})
	if err != nil {
		return worktime.ChangeRequest{}, err
	}
	return cr, nil
}

// WithdrawChangeRequest deletes a pending request on behalf of its author.
func (e *Engine) WithdrawChangeRequest(ctx context.Context, actor Actor, id generic.RecordID) error {
	return e.store.WithTx(ctx, func(tx worktime.Store) error {
		cr, err := tx.GetChangeRequest(ctx, id)
		if err != nil {
			return err
		}
		if generic.EmployeeID(actor.ID) != cr.EmployeeID {
			return fmt.Errorf("%w: only the author may withdraw a change request", generic.ErrForbidden)
		}
		if cr.Status != worktime.ChangePending {
			return &generic.StateError{Entity: "change request", ID: string(id), Current: string(cr.Status), Wanted: string(worktime.ChangePending)}
		}
		if err := tx.DeleteChangeRequest(ctx, id); err != nil {
			return err
		}
		return e.record(ctx, tx, actor, generic.AuditChangeRequestWithdrawn, cr.EmployeeID, cr.ID, nil)
	})
}

// GetChangeRequest returns one request.
func (e *Engine) GetChangeRequest(ctx context.Context, actor Actor, id generic.RecordID) (worktime.ChangeRequest, error) {
	cr, err := e.store.GetChangeRequest(ctx, id)
	if err != nil {
		return worktime.ChangeRequest{}, err
	}
	if err := requireAccess(actor, cr.EmployeeID); err != nil {
		return worktime.ChangeRequest{}, err
	}
	return cr, nil
}

// ListChangeRequests returns requests filtered by employee and status.
// Only admins may list across employees.
func (e *Engine) ListChangeRequests(ctx context.Context, actor Actor, emp generic.EmployeeID, status worktime.ChangeRequestStatus) ([]worktime.ChangeRequest, error) {
	if emp == "" {
		if err := requireAdmin(actor); err != nil {
			return nil, err
		}
	} else if err := requireAccess(actor, emp); err != nil {
		return nil, err
	}
	return e.store.ListChangeRequests(ctx, emp, status)
}
