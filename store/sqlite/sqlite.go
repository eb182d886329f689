/*
Package sqlite provides a SQLite-backed implementation of the worktime stores.

PURPOSE:
  Implements worktime.TxStore, worktime.SnapshotStore and generic.AuditLog
  on SQLite. Two drivers are supported: the cgo driver mattn/go-sqlite3
  (registered as "sqlite3", the default) and the pure-Go modernc.org/sqlite
  (registered as "sqlite") for builds without cgo.

INTERFACES IMPLEMENTED:
  worktime.TxStore:       Employees, working-hours changes, time entries,
                          absences, closures, holidays, change requests
  worktime.SnapshotStore: Ledger snapshots (msgpack blobs)
  generic.AuditLog:       Append-only audit trail (JSON payloads)

KEY TABLES:
  employees:             Contract parameters and balance anchor
  working_hours_changes: Weekly hours by effective date (unique per day)
  time_entries:          Recorded work blocks
  absences:              One row per absent day (unique per day and type)
  company_closures:      Closure ranges; generated absences point back here
  public_holidays:       Holidays by region (unique per region and day)
  change_requests:       Pending and reviewed corrections
  ledger_snapshots:      Last recomputed ledger per employee
  audit_log:             Who did what, when

ENCODING:
  Dates are stored as YYYY-MM-DD text so that range filters compare
  lexically. Hours are decimal strings, clock times integer minutes.

CONCURRENCY:
  WithTx holds the store mutex for the whole transaction, and every
  statement inside it runs on the *sql.Tx. Reads outside a transaction go
  straight to the pool.

USAGE:
  store, err := sqlite.New("./data/worktime.db")
  if err != nil {
      log.Fatal(err)
  }
  defer store.Close()

SEE ALSO:
  - worktime/store.go: Interface definitions
  - store/memory: In-memory implementation for tests
*/
package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	_ "github.com/mattn/go-sqlite3"
	"github.com/warp/worktime-engine/generic"
	"github.com/warp/worktime-engine/worktime"
	_ "modernc.org/sqlite"
)

// Driver names accepted by Open.
const (
	DriverCgo    = "sqlite3"
	DriverPureGo = "sqlite"
)

// querier is satisfied by *sql.DB and *sql.Tx.
type querier interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

// conn implements every store method against a querier. Store embeds one
// bound to the pool; WithTx hands out one bound to the transaction.
type conn struct {
	q querier
}

// Store implements all storage interfaces using SQLite.
type Store struct {
	conn
	db     *sql.DB
	driver string
	mu     sync.Mutex
}

// New opens dbPath with the cgo driver. Use ":memory:" for an in-memory
// database.
func New(dbPath string) (*Store, error) {
	return Open(DriverCgo, dbPath)
}

// Open opens dbPath with the named driver and migrates the schema.
func Open(driver, dbPath string) (*Store, error) {
	var dsn string
	switch driver {
	case DriverCgo, "":
		driver = DriverCgo
		dsn = dbPath + "?_foreign_keys=on&_journal_mode=WAL"
	case DriverPureGo:
		dsn = dbPath + "?_pragma=journal_mode(WAL)&_pragma=foreign_keys(1)"
	default:
		return nil, fmt.Errorf("unknown sqlite driver %q", driver)
	}

	db, err := sql.Open(driver, dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	// An in-memory database lives and dies with its connection.
	db.SetMaxOpenConns(1)

	store := &Store{conn: conn{q: db}, db: db, driver: driver}
	if err := store.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to migrate database: %w", err)
	}
	return store, nil
}

// Close closes the database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

// Driver returns the driver name the store was opened with.
func (s *Store) Driver() string { return s.driver }

// migrate creates the database schema.
func (s *Store) migrate() error {
	schema := `
	CREATE TABLE IF NOT EXISTS employees (
		id TEXT PRIMARY KEY,
		name TEXT NOT NULL,
		email TEXT,
		role TEXT NOT NULL DEFAULT 'employee',
		weekly_hours TEXT NOT NULL,
		work_days_per_week INTEGER NOT NULL DEFAULT 5,
		vacation_days INTEGER NOT NULL DEFAULT 0,
		track_hours INTEGER NOT NULL DEFAULT 1,
		use_daily_schedule INTEGER NOT NULL DEFAULT 0,
		daily_schedule_json TEXT,
		arbzg_exempt INTEGER NOT NULL DEFAULT 0,
		calendar_color TEXT,
		balance_anchor TEXT,
		active INTEGER NOT NULL DEFAULT 1,
		deactivated_at TEXT,
		created_at TEXT NOT NULL
	);

	CREATE TABLE IF NOT EXISTS working_hours_changes (
		id TEXT PRIMARY KEY,
		employee_id TEXT NOT NULL REFERENCES employees(id),
		effective_from TEXT NOT NULL,
		weekly_hours TEXT NOT NULL,
		note TEXT,
		created_at TEXT NOT NULL,
		UNIQUE(employee_id, effective_from)
	);

	CREATE TABLE IF NOT EXISTS time_entries (
		id TEXT PRIMARY KEY,
		employee_id TEXT NOT NULL REFERENCES employees(id),
		date TEXT NOT NULL,
		start_minute INTEGER NOT NULL,
		end_minute INTEGER,
		break_minutes INTEGER NOT NULL DEFAULT 0,
		note TEXT,
		sunday_exception_reason TEXT,
		created_at TEXT NOT NULL,
		updated_at TEXT NOT NULL
	);

	-- Day lookups for overlap checks and ledger ranges (hot path)
	CREATE INDEX IF NOT EXISTS idx_time_entries_employee_date
		ON time_entries(employee_id, date);

	CREATE TABLE IF NOT EXISTS company_closures (
		id TEXT PRIMARY KEY,
		name TEXT NOT NULL,
		start_date TEXT NOT NULL,
		end_date TEXT NOT NULL,
		created_by TEXT,
		created_at TEXT NOT NULL
	);

	CREATE TABLE IF NOT EXISTS absences (
		id TEXT PRIMARY KEY,
		employee_id TEXT NOT NULL REFERENCES employees(id),
		date TEXT NOT NULL,
		type TEXT NOT NULL,
		hours TEXT NOT NULL,
		note TEXT,
		closure_id TEXT,
		created_at TEXT NOT NULL,
		UNIQUE(employee_id, date, type)
	);

	CREATE INDEX IF NOT EXISTS idx_absences_closure
		ON absences(closure_id) WHERE closure_id IS NOT NULL;

	CREATE TABLE IF NOT EXISTS public_holidays (
		id TEXT PRIMARY KEY,
		date TEXT NOT NULL,
		name TEXT NOT NULL,
		region TEXT NOT NULL DEFAULT '',
		UNIQUE(region, date)
	);

	CREATE TABLE IF NOT EXISTS change_requests (
		id TEXT PRIMARY KEY,
		employee_id TEXT NOT NULL REFERENCES employees(id),
		request_type TEXT NOT NULL,
		time_entry_id TEXT,
		proposed_json TEXT,
		original_json TEXT,
		reason TEXT NOT NULL,
		status TEXT NOT NULL DEFAULT 'pending',
		rejection_reason TEXT,
		reviewed_by TEXT,
		reviewed_at TEXT,
		created_at TEXT NOT NULL,
		updated_at TEXT NOT NULL
	);

	CREATE INDEX IF NOT EXISTS idx_change_requests_employee_status
		ON change_requests(employee_id, status);

	CREATE TABLE IF NOT EXISTS ledger_snapshots (
		employee_id TEXT PRIMARY KEY,
		payload BLOB NOT NULL,
		computed_at TEXT NOT NULL
	);

	CREATE TABLE IF NOT EXISTS audit_log (
		id TEXT PRIMARY KEY,
		timestamp TEXT NOT NULL,
		actor_id TEXT NOT NULL,
		action TEXT NOT NULL,
		employee_id TEXT,
		record_id TEXT,
		payload_json TEXT
	);

	CREATE INDEX IF NOT EXISTS idx_audit_log_employee
		ON audit_log(employee_id, timestamp);
	`

	_, err := s.db.Exec(schema)
	return err
}

// =============================================================================
// TRANSACTIONAL STORE (worktime.TxStore interface)
// =============================================================================

// WithTx executes fn within a database transaction. The store handed to fn
// also implements generic.AuditLog, so audit entries commit atomically with
// the change they describe.
func (s *Store) WithTx(ctx context.Context, fn func(store worktime.Store) error) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	sqlTx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer sqlTx.Rollback()

	if err := fn(&conn{q: sqlTx}); err != nil {
		return err
	}
	return sqlTx.Commit()
}

var (
	_ worktime.TxStore       = (*Store)(nil)
	_ worktime.SnapshotStore = (*Store)(nil)
	_ generic.AuditLog       = (*Store)(nil)
	_ worktime.Store         = (*conn)(nil)
	_ generic.AuditLog       = (*conn)(nil)
)

// =============================================================================
// HELPERS
// =============================================================================

// Fixed width so that stored timestamps sort lexically.
const timeLayout = "2006-01-02T15:04:05.000000000Z07:00"

func formatTime(t time.Time) string { return t.UTC().Format(timeLayout) }

func parseTime(s string) time.Time {
	t, _ := time.Parse(timeLayout, s)
	return t
}

func nullTime(t *time.Time) sql.NullString {
	if t == nil {
		return sql.NullString{}
	}
	return sql.NullString{String: formatTime(*t), Valid: true}
}

func timePtr(s sql.NullString) *time.Time {
	if !s.Valid || s.String == "" {
		return nil
	}
	t := parseTime(s.String)
	return &t
}

func nullString(s string) sql.NullString {
	if s == "" {
		return sql.NullString{}
	}
	return sql.NullString{String: s, Valid: true}
}

func nullDate(d *generic.Date) sql.NullString {
	if d == nil {
		return sql.NullString{}
	}
	return sql.NullString{String: d.String(), Valid: true}
}

func parseDate(s string) (generic.Date, error) {
	d, err := generic.ParseDate(s)
	if err != nil {
		return generic.Date{}, fmt.Errorf("corrupt date %q: %w", s, err)
	}
	return d, nil
}

func parseHours(s string) (generic.Hours, error) {
	h, err := generic.ParseHours(s)
	if err != nil {
		return generic.Hours{}, fmt.Errorf("corrupt hours %q: %w", s, err)
	}
	return h, nil
}

func boolInt(b bool) int {
	if b {
		return 1
	}
	return 0
}

func isUniqueConstraintError(err error) bool {
	return err != nil && strings.Contains(err.Error(), "UNIQUE constraint failed")
}

// mustAffect turns a zero-row update or delete into a NotFoundError.
func mustAffect(res sql.Result, entity, id string) error {
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return &generic.NotFoundError{Entity: entity, ID: id}
	}
	return nil
}

func notFound(err error, entity, id string) error {
	if errors.Is(err, sql.ErrNoRows) {
		return &generic.NotFoundError{Entity: entity, ID: id}
	}
	return err
}
