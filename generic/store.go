/*
store.go - Cross-cutting persistence contracts: audit log and transactions

PURPOSE:
  Defines the contracts that are independent of the working-time domain.
  Domain record stores live in worktime/store.go; this file only holds the
  append-only audit trail and the transaction runner shape they share.

KEY INTERFACES:
  AuditLog:   Append-only record of who changed what, and when
  TxRunner:   Runs a function inside one atomic unit of work

ATOMICITY:
  Every mutating workflow step (saving an entry, approving a change request,
  generating closure vacation) runs inside WithTx. If the function returns an
  error nothing it wrote is visible afterwards.

IMPLEMENTATIONS:
  - store/sqlite/sqlite.go: SQLite
  - store/memory/memory.go: In-memory for testing

SEE ALSO:
  - worktime/store.go: Domain record stores
  - service/: Callers that attribute every mutation to an actor
*/
package generic

import (
	"context"
	"time"
)

// =============================================================================
// AUDIT LOG - Separate from domain records, tracks who did what when
// =============================================================================

// AuditEntry records who did what when.
type AuditEntry struct {
	ID         string         `json:"id"`
	Timestamp  time.Time      `json:"timestamp"`
	ActorID    string         `json:"actor_id"` // who performed the action
	Action     AuditAction    `json:"action"`
	EmployeeID EmployeeID     `json:"employee_id,omitempty"`
	RecordID   RecordID       `json:"record_id,omitempty"`
	Payload    map[string]any `json:"payload,omitempty"` // action-specific data
}

type AuditAction string

const (
	AuditEntryCreated           AuditAction = "entry_created"
	AuditEntryUpdated           AuditAction = "entry_updated"
	AuditEntryDeleted           AuditAction = "entry_deleted"
	AuditAbsenceCreated         AuditAction = "absence_created"
	AuditAbsenceDeleted         AuditAction = "absence_deleted"
	AuditVacationReplaced       AuditAction = "vacation_replaced_by_sick"
	AuditChangeRequestSubmitted AuditAction = "change_request_submitted"
	AuditChangeRequestApproved  AuditAction = "change_request_approved"
	AuditChangeRequestRejected  AuditAction = "change_request_rejected"
	AuditChangeRequestWithdrawn AuditAction = "change_request_withdrawn"
	AuditClosureCreated         AuditAction = "closure_created"
	AuditClosureDeleted         AuditAction = "closure_deleted"
	AuditWorkingHoursChanged    AuditAction = "working_hours_changed"
	AuditEmployeeChanged        AuditAction = "employee_changed"
	AuditHolidaysSynced         AuditAction = "holidays_synced"
)

// AuditLog stores audit entries. Append-only.
type AuditLog interface {
	Append(ctx context.Context, entry AuditEntry) error
	Query(ctx context.Context, filter AuditFilter) ([]AuditEntry, error)
}

type AuditFilter struct {
	EmployeeID *EmployeeID
	ActorID    *string
	Actions    []AuditAction
	From       *time.Time
	To         *time.Time
}

// Matches reports whether the entry passes every set criterion.
func (f AuditFilter) Matches(e AuditEntry) bool {
	if f.EmployeeID != nil && e.EmployeeID != *f.EmployeeID {
		return false
	}
	if f.ActorID != nil && e.ActorID != *f.ActorID {
		return false
	}
	if f.From != nil && e.Timestamp.Before(*f.From) {
		return false
	}
	if f.To != nil && e.Timestamp.After(*f.To) {
		return false
	}
	if len(f.Actions) > 0 {
		for _, a := range f.Actions {
			if a == e.Action {
				return true
			}
		}
		return false
	}
	return true
}
