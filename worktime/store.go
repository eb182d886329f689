package worktime

import (
	"context"

	"github.com/warp/worktime-engine/generic"
)

// =============================================================================
// RECORD STORES - Persistence contracts for the domain records
// =============================================================================

// Lookups of a single record return an error wrapping generic.ErrNotFound
// when the record does not exist. Range queries return records ordered by
// date (then start time for entries) and an empty slice when nothing matches.

type EmployeeStore interface {
	SaveEmployee(ctx context.Context, e Employee) error
	GetEmployee(ctx context.Context, id generic.EmployeeID) (Employee, error)
	ListEmployees(ctx context.Context, activeOnly bool) ([]Employee, error)
}

type WorkingHoursStore interface {
	SaveWorkingHoursChange(ctx context.Context, c WorkingHoursChange) error
	DeleteWorkingHoursChange(ctx context.Context, id generic.RecordID) error
	GetWorkingHoursChange(ctx context.Context, id generic.RecordID) (WorkingHoursChange, error)
	// ListWorkingHoursChanges returns changes ordered by EffectiveFrom.
	ListWorkingHoursChanges(ctx context.Context, employeeID generic.EmployeeID) ([]WorkingHoursChange, error)
}

type TimeEntryStore interface {
	SaveTimeEntry(ctx context.Context, e TimeEntry) error
	DeleteTimeEntry(ctx context.Context, id generic.RecordID) error
	GetTimeEntry(ctx context.Context, id generic.RecordID) (TimeEntry, error)
	ListTimeEntries(ctx context.Context, employeeID generic.EmployeeID, period generic.Period) ([]TimeEntry, error)
	// FirstTimeEntryDate returns the earliest entry date, ok=false when none.
	FirstTimeEntryDate(ctx context.Context, employeeID generic.EmployeeID) (generic.Date, bool, error)
}

type AbsenceStore interface {
	SaveAbsence(ctx context.Context, a Absence) error
	DeleteAbsence(ctx context.Context, id generic.RecordID) error
	GetAbsence(ctx context.Context, id generic.RecordID) (Absence, error)
	ListAbsences(ctx context.Context, employeeID generic.EmployeeID, period generic.Period) ([]Absence, error)
	ListAbsencesByClosure(ctx context.Context, closureID generic.RecordID) ([]Absence, error)
}

type ClosureStore interface {
	SaveClosure(ctx context.Context, c CompanyClosure) error
	DeleteClosure(ctx context.Context, id generic.RecordID) error
	GetClosure(ctx context.Context, id generic.RecordID) (CompanyClosure, error)
	ListClosures(ctx context.Context, year int) ([]CompanyClosure, error)
}

type HolidayStore interface {
	SaveHoliday(ctx context.Context, h PublicHoliday) error
	DeleteHoliday(ctx context.Context, id generic.RecordID) error
	// ListHolidays returns holidays of the region (and region-less ones)
	// inside the period.
	ListHolidays(ctx context.Context, region string, period generic.Period) ([]PublicHoliday, error)
}

type ChangeRequestStore interface {
	SaveChangeRequest(ctx context.Context, cr ChangeRequest) error
	DeleteChangeRequest(ctx context.Context, id generic.RecordID) error
	GetChangeRequest(ctx context.Context, id generic.RecordID) (ChangeRequest, error)
	// ListChangeRequests filters by employee and status; empty values match all.
	ListChangeRequests(ctx context.Context, employeeID generic.EmployeeID, status ChangeRequestStatus) ([]ChangeRequest, error)
}

// Store aggregates every record store.
type Store interface {
	EmployeeStore
	WorkingHoursStore
	TimeEntryStore
	AbsenceStore
	ClosureStore
	HolidayStore
	ChangeRequestStore
}

// =============================================================================
// TRANSACTIONAL STORE - For atomic operations across multiple writes
// =============================================================================

// TxStore wraps Store with transaction support.
type TxStore interface {
	Store

	// WithTx executes fn within a transaction.
	// If fn returns error, transaction is rolled back.
	// If fn returns nil, transaction is committed.
	WithTx(ctx context.Context, fn func(Store) error) error
}

// =============================================================================
// LEDGER SNAPSHOTS - Derived balances kept for reporting consumers
// =============================================================================

// SnapshotStore keeps the latest recomputed ledger per employee. A snapshot
// is always replaced as a whole; it is never the source of truth.
type SnapshotStore interface {
	SaveLedgerSnapshot(ctx context.Context, s LedgerSnapshot) error
	GetLedgerSnapshot(ctx context.Context, employeeID generic.EmployeeID) (LedgerSnapshot, error)
}
