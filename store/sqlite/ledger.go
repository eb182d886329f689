package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"
	"github.com/vmihailenco/msgpack/v5"
	"github.com/warp/worktime-engine/generic"
	"github.com/warp/worktime-engine/worktime"
)

// =============================================================================
// LEDGER SNAPSHOTS (worktime.SnapshotStore interface)
// =============================================================================
//
// Snapshots are stored as msgpack blobs of the records below. Decimal values
// travel as strings so that no precision is lost on the way through.

type snapshotRecord struct {
	EmployeeID string           `msgpack:"employee_id"`
	Anchor     string           `msgpack:"anchor,omitempty"`
	Months     []monthRecord    `msgpack:"months"`
	Vacation   []vacationRecord `msgpack:"vacation"`
	ComputedAt time.Time        `msgpack:"computed_at"`
}

type monthRecord struct {
	Year       int    `msgpack:"y"`
	Month      int    `msgpack:"m"`
	Target     string `msgpack:"target"`
	Actual     string `msgpack:"actual"`
	Balance    string `msgpack:"balance"`
	Cumulative string `msgpack:"cumulative"`
	Absence    string `msgpack:"absence"`
}

type vacationRecord struct {
	Year           int    `msgpack:"y"`
	BudgetDays     int    `msgpack:"budget_days"`
	BudgetHours    string `msgpack:"budget_hours"`
	UsedHours      string `msgpack:"used_hours"`
	RemainingHours string `msgpack:"remaining_hours"`
	UsedDays       string `msgpack:"used_days"`
	RemainingDays  string `msgpack:"remaining_days"`
}

func encodeSnapshot(s worktime.LedgerSnapshot) ([]byte, error) {
	rec := snapshotRecord{EmployeeID: string(s.EmployeeID), ComputedAt: s.ComputedAt.UTC()}
	if s.Anchor != nil {
		rec.Anchor = s.Anchor.String()
	}
	for _, m := range s.Months {
		rec.Months = append(rec.Months, monthRecord{
			Year:       m.Year,
			Month:      int(m.Month),
			Target:     m.Target.Value.String(),
			Actual:     m.Actual.Value.String(),
			Balance:    m.Balance.Value.String(),
			Cumulative: m.Cumulative.Value.String(),
			Absence:    m.AbsenceHours.Value.String(),
		})
	}
	for _, v := range s.Vacation {
		rec.Vacation = append(rec.Vacation, vacationRecord{
			Year:           v.Year,
			BudgetDays:     v.BudgetDays,
			BudgetHours:    v.BudgetHours.Value.String(),
			UsedHours:      v.UsedHours.Value.String(),
			RemainingHours: v.RemainingHours.Value.String(),
			UsedDays:       v.UsedDays.String(),
			RemainingDays:  v.RemainingDays.String(),
		})
	}
	return msgpack.Marshal(rec)
}

func decodeSnapshot(b []byte) (worktime.LedgerSnapshot, error) {
	var rec snapshotRecord
	if err := msgpack.Unmarshal(b, &rec); err != nil {
		return worktime.LedgerSnapshot{}, fmt.Errorf("corrupt ledger snapshot: %w", err)
	}
	emp := generic.EmployeeID(rec.EmployeeID)
	s := worktime.LedgerSnapshot{EmployeeID: emp, ComputedAt: rec.ComputedAt}
	if rec.Anchor != "" {
		a, err := parseDate(rec.Anchor)
		if err != nil {
			return s, err
		}
		s.Anchor = &a
	}

	var p parser
	for _, m := range rec.Months {
		s.Months = append(s.Months, worktime.MonthlyBalance{
			EmployeeID:   emp,
			Year:         m.Year,
			Month:        time.Month(m.Month),
			Target:       p.hours(m.Target),
			Actual:       p.hours(m.Actual),
			Balance:      p.hours(m.Balance),
			Cumulative:   p.hours(m.Cumulative),
			AbsenceHours: p.hours(m.Absence),
		})
	}
	for _, v := range rec.Vacation {
		s.Vacation = append(s.Vacation, worktime.VacationAccount{
			EmployeeID:     emp,
			Year:           v.Year,
			BudgetDays:     v.BudgetDays,
			BudgetHours:    p.hours(v.BudgetHours),
			UsedHours:      p.hours(v.UsedHours),
			RemainingHours: p.hours(v.RemainingHours),
			UsedDays:       p.decimal(v.UsedDays),
			RemainingDays:  p.decimal(v.RemainingDays),
		})
	}
	if p.err != nil {
		return worktime.LedgerSnapshot{}, fmt.Errorf("corrupt ledger snapshot: %w", p.err)
	}
	return s, nil
}

// parser keeps the first decode error so record conversion reads straight.
type parser struct{ err error }

func (p *parser) decimal(s string) decimal.Decimal {
	d, err := decimal.NewFromString(s)
	if err != nil && p.err == nil {
		p.err = err
	}
	return d
}

func (p *parser) hours(s string) generic.Hours {
	return generic.HoursFromDecimal(p.decimal(s))
}

// SaveLedgerSnapshot replaces the employee's snapshot.
func (c *conn) SaveLedgerSnapshot(ctx context.Context, s worktime.LedgerSnapshot) error {
	payload, err := encodeSnapshot(s)
	if err != nil {
		return fmt.Errorf("failed to encode ledger snapshot: %w", err)
	}
	_, err = c.q.ExecContext(ctx, `
		INSERT INTO ledger_snapshots (employee_id, payload, computed_at)
		VALUES (?, ?, ?)
		ON CONFLICT(employee_id) DO UPDATE SET
			payload = excluded.payload,
			computed_at = excluded.computed_at
	`, string(s.EmployeeID), payload, formatTime(s.ComputedAt))
	if err != nil {
		return fmt.Errorf("failed to save ledger snapshot: %w", err)
	}
	return nil
}

// GetLedgerSnapshot returns the employee's last stored snapshot.
func (c *conn) GetLedgerSnapshot(ctx context.Context, employeeID generic.EmployeeID) (worktime.LedgerSnapshot, error) {
	var payload []byte
	err := c.q.QueryRowContext(ctx,
		`SELECT payload FROM ledger_snapshots WHERE employee_id = ?`, string(employeeID),
	).Scan(&payload)
	if err != nil {
		return worktime.LedgerSnapshot{}, notFound(err, "ledger snapshot", string(employeeID))
	}
	return decodeSnapshot(payload)
}

// =============================================================================
// AUDIT LOG (generic.AuditLog interface)
// =============================================================================

// Append adds an audit entry. Entries are never updated.
func (c *conn) Append(ctx context.Context, e generic.AuditEntry) error {
	var payload sql.NullString
	if len(e.Payload) > 0 {
		b, err := json.Marshal(e.Payload)
		if err != nil {
			return fmt.Errorf("failed to encode audit payload: %w", err)
		}
		payload = sql.NullString{String: string(b), Valid: true}
	}
	_, err := c.q.ExecContext(ctx, `
		INSERT INTO audit_log (id, timestamp, actor_id, action, employee_id, record_id, payload_json)
		VALUES (?, ?, ?, ?, ?, ?, ?)
	`, e.ID, formatTime(e.Timestamp), e.ActorID, string(e.Action),
		nullString(string(e.EmployeeID)), nullString(string(e.RecordID)), payload)
	if err != nil {
		return fmt.Errorf("failed to append audit entry: %w", err)
	}
	return nil
}

// Query returns matching audit entries, oldest first.
func (c *conn) Query(ctx context.Context, f generic.AuditFilter) ([]generic.AuditEntry, error) {
	var (
		where []string
		args  []any
	)
	if f.EmployeeID != nil {
		where = append(where, "employee_id = ?")
		args = append(args, string(*f.EmployeeID))
	}
	if f.ActorID != nil {
		where = append(where, "actor_id = ?")
		args = append(args, *f.ActorID)
	}
	if f.From != nil {
		where = append(where, "timestamp >= ?")
		args = append(args, formatTime(*f.From))
	}
	if f.To != nil {
		where = append(where, "timestamp <= ?")
		args = append(args, formatTime(*f.To))
	}
	if len(f.Actions) > 0 {
		marks := make([]string, len(f.Actions))
		for i, a := range f.Actions {
			marks[i] = "?"
			args = append(args, string(a))
		}
		where = append(where, "action IN ("+strings.Join(marks, ", ")+")")
	}

	query := `SELECT id, timestamp, actor_id, action, employee_id, record_id, payload_json FROM audit_log`
	if len(where) > 0 {
		query += " WHERE " + strings.Join(where, " AND ")
	}
	rows, err := c.q.QueryContext(ctx, query+" ORDER BY timestamp ASC, rowid ASC", args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query audit log: %w", err)
	}
	defer rows.Close()

	out := []generic.AuditEntry{}
	for rows.Next() {
		var (
			e                         generic.AuditEntry
			ts, action                string
			employee, record, payload sql.NullString
		)
		if err := rows.Scan(&e.ID, &ts, &e.ActorID, &action, &employee, &record, &payload); err != nil {
			return nil, fmt.Errorf("failed to scan audit entry: %w", err)
		}
		e.Timestamp = parseTime(ts)
		e.Action = generic.AuditAction(action)
		e.EmployeeID = generic.EmployeeID(employee.String)
		e.RecordID = generic.RecordID(record.String)
		if payload.Valid && payload.String != "" {
			if err := json.Unmarshal([]byte(payload.String), &e.Payload); err != nil {
				return nil, fmt.Errorf("corrupt audit payload %s: %w", e.ID, err)
			}
		}
		out = append(out, e)
	}
	return out, rows.Err()
}
