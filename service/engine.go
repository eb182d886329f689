/*
Package service orchestrates the working-time engine's operations.

PURPOSE:
  Every operation that reads stored records, validates them against the
  pure computations in worktime and compliance, and writes results back
  lives here. This is the only layer that touches both the stores and the
  rules, and the only layer that decides what runs inside a transaction.

TRANSACTIONS:
  Each mutating operation runs its read-validate-write sequence inside
  TxStore.WithTx. Writes for one employee are additionally serialised by a
  per-employee lock so two saves for the same person cannot both pass the
  overlap check against a state that no longer holds.

DERIVED DATA:
  After a committed mutation the employee's ledger snapshot is recomputed.
  A failed recomputation is logged and does not undo the mutation: reads of
  balances always recompute from primary data, snapshots only serve
  reporting consumers.

ACTORS:
  Callers pass the acting user. Employees may act on their own records;
  admins may act on every record and bypass the entry lock window.

SEE ALSO:
  - entries.go: Time entry save/update/delete
  - change_requests.go: Change request workflow
  - ledger.go: Balances, vacation, recomputation
  - compliance.go: Compliance reports
*/
package service

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/warp/worktime-engine/compliance"
	"github.com/warp/worktime-engine/generic"
	"github.com/warp/worktime-engine/holidays"
	"github.com/warp/worktime-engine/worktime"
)

// =============================================================================
// ENGINE
// =============================================================================

// Options configures an Engine. Zero values get defaults in New.
type Options struct {
	Store     worktime.TxStore
	Snapshots worktime.SnapshotStore // optional
	Audit     generic.AuditLog       // used when the transaction store is not an audit log

	Rules  compliance.Rules
	Region string
	// EditableDays is how many days back employees may edit entries
	// directly; 0 means only today.
	EditableDays int

	Logger zerolog.Logger
	Now    func() time.Time
	NewID  func() string
}

type Engine struct {
	store     worktime.TxStore
	snapshots worktime.SnapshotStore
	audit     generic.AuditLog

	rules        compliance.Rules
	region       string
	editableDays int

	log   zerolog.Logger
	now   func() time.Time
	newID func() string

	locks employeeLocks
}

func New(opts Options) *Engine {
	if opts.Now == nil {
		opts.Now = time.Now
	}
	if opts.NewID == nil {
		opts.NewID = uuid.NewString
	}
	if opts.Rules.NightWorkerThreshold == 0 {
		opts.Rules = compliance.DefaultRules()
	}
	return &Engine{
		store:        opts.Store,
		snapshots:    opts.Snapshots,
		audit:        opts.Audit,
		rules:        opts.Rules,
		region:       opts.Region,
		editableDays: opts.EditableDays,
		log:          opts.Logger.With().Str("component", "service").Logger(),
		now:          opts.Now,
		newID:        opts.NewID,
		locks:        employeeLocks{m: make(map[generic.EmployeeID]*sync.Mutex)},
	}
}

// Region is the holiday region used for targets and compliance.
func (e *Engine) Region() string { return e.region }

// Rules returns the compliance thresholds in use.
func (e *Engine) Rules() compliance.Rules { return e.rules }

// Today is the current date on the engine's clock.
func (e *Engine) Today() generic.Date { return generic.DateOf(e.now()) }

// =============================================================================
// ACTORS
// =============================================================================

// Actor is the authenticated user performing an operation.
type Actor struct {
	ID   string
	Role worktime.Role
}

// System is the actor for scheduled jobs.
var System = Actor{ID: "system", Role: worktime.RoleAdmin}

func (a Actor) IsAdmin() bool { return a.Role == worktime.RoleAdmin }

// CanAccess reports whether the actor may read or change emp's records.
func (a Actor) CanAccess(emp generic.EmployeeID) bool {
	return a.IsAdmin() || generic.EmployeeID(a.ID) == emp
}

func requireAdmin(a Actor) error {
	if !a.IsAdmin() {
		return fmt.Errorf("%w: admin role required", generic.ErrForbidden)
	}
	return nil
}

func requireAccess(a Actor, emp generic.EmployeeID) error {
	if !a.CanAccess(emp) {
		return fmt.Errorf("%w: %s may not act for employee %s", generic.ErrForbidden, a.ID, emp)
	}
	return nil
}

// =============================================================================
// PER-EMPLOYEE LOCKS
// =============================================================================

type employeeLocks struct {
	mu sync.Mutex
	m  map[generic.EmployeeID]*sync.Mutex
}

// lock acquires the employee's mutex and returns its release.
func (l *employeeLocks) lock(id generic.EmployeeID) func() {
	l.mu.Lock()
	m, ok := l.m[id]
	if !ok {
		m = &sync.Mutex{}
		l.m[id] = m
	}
	l.mu.Unlock()
	m.Lock()
	return m.Unlock
}

// =============================================================================
// SHARED HELPERS
// =============================================================================

// auditTo returns the audit log to write inside tx: the transaction itself
// when the store keeps the audit trail, otherwise the configured log.
func (e *Engine) auditTo(tx worktime.Store) generic.AuditLog {
	if a, ok := tx.(generic.AuditLog); ok {
		return a
	}
	return e.audit
}

func (e *Engine) record(ctx context.Context, tx worktime.Store, actor Actor, action generic.AuditAction, emp generic.EmployeeID, id generic.RecordID, payload map[string]any) error {
	log := e.auditTo(tx)
	if log == nil {
		return nil
	}
	return log.Append(ctx, generic.AuditEntry{
		ID:         e.newID(),
		Timestamp:  e.now(),
		ActorID:    actor.ID,
		Action:     action,
		EmployeeID: emp,
		RecordID:   id,
		Payload:    payload,
	})
}

// calendar loads the holidays of the engine's region for p.
func (e *Engine) calendar(ctx context.Context, tx worktime.Store, p generic.Period) (generic.HolidayCalendar, error) {
	return holidays.Load(ctx, tx, e.region, p)
}

func (e *Engine) evaluator(cal generic.HolidayCalendar) *compliance.Evaluator {
	return compliance.NewEvaluator(e.rules, cal, e.region)
}

// schedule builds the target calculator for emp with holidays and absences
// covering p.
func (e *Engine) schedule(ctx context.Context, tx worktime.Store, emp worktime.Employee, p generic.Period) (*worktime.Schedule, []worktime.Absence, error) {
	changes, err := tx.ListWorkingHoursChanges(ctx, emp.ID)
	if err != nil {
		return nil, nil, err
	}
	cal, err := e.calendar(ctx, tx, p)
	if err != nil {
		return nil, nil, err
	}
	absences, err := tx.ListAbsences(ctx, emp.ID, p)
	if err != nil {
		return nil, nil, err
	}
	tl := worktime.NewTimeline(emp, changes)
	return worktime.NewSchedule(emp, tl, cal, e.region, absences), absences, nil
}

// =============================================================================
// AUDIT TRAIL
// =============================================================================

// AuditTrail returns the audit entries matching f; admins only.
func (e *Engine) AuditTrail(ctx context.Context, actor Actor, f generic.AuditFilter) ([]generic.AuditEntry, error) {
	if err := requireAdmin(actor); err != nil {
		return nil, err
	}
	log, ok := e.store.(generic.AuditLog)
	if !ok {
		log = e.audit
	}
	if log == nil {
		return []generic.AuditEntry{}, nil
	}
	return log.Query(ctx, f)
}
