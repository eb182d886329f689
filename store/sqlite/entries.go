package sqlite

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/warp/worktime-engine/generic"
	"github.com/warp/worktime-engine/worktime"
)

// =============================================================================
// TIME ENTRIES
// =============================================================================

const entryColumns = `id, employee_id, date, start_minute, end_minute, break_minutes,
	note, sunday_exception_reason, created_at, updated_at`

// SaveTimeEntry inserts or replaces an entry.
func (c *conn) SaveTimeEntry(ctx context.Context, e worktime.TimeEntry) error {
	var end sql.NullInt64
	if e.End != nil {
		end = sql.NullInt64{Int64: int64(*e.End), Valid: true}
	}
	_, err := c.q.ExecContext(ctx, `
		INSERT INTO time_entries (`+entryColumns+`)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			date = excluded.date,
			start_minute = excluded.start_minute,
			end_minute = excluded.end_minute,
			break_minutes = excluded.break_minutes,
			note = excluded.note,
			sunday_exception_reason = excluded.sunday_exception_reason,
			updated_at = excluded.updated_at
	`,
		string(e.ID), string(e.EmployeeID), e.Date.String(), int(e.Start), end, e.BreakMinutes,
		nullString(e.Note), nullString(e.SundayExceptionReason), formatTime(e.CreatedAt), formatTime(e.UpdatedAt),
	)
	if err != nil {
		return fmt.Errorf("failed to save time entry: %w", err)
	}
	return nil
}

func (c *conn) DeleteTimeEntry(ctx context.Context, id generic.RecordID) error {
	res, err := c.q.ExecContext(ctx, `DELETE FROM time_entries WHERE id = ?`, string(id))
	if err != nil {
		return fmt.Errorf("failed to delete time entry: %w", err)
	}
	return mustAffect(res, "time entry", string(id))
}

func (c *conn) GetTimeEntry(ctx context.Context, id generic.RecordID) (worktime.TimeEntry, error) {
	row := c.q.QueryRowContext(ctx, `SELECT `+entryColumns+` FROM time_entries WHERE id = ?`, string(id))
	e, err := scanTimeEntry(row)
	if err != nil {
		return worktime.TimeEntry{}, notFound(err, "time entry", string(id))
	}
	return e, nil
}

// ListTimeEntries returns an employee's entries dated inside period,
// ordered by date and start.
func (c *conn) ListTimeEntries(ctx context.Context, employeeID generic.EmployeeID, period generic.Period) ([]worktime.TimeEntry, error) {
	rows, err := c.q.QueryContext(ctx, `
		SELECT `+entryColumns+`
		FROM time_entries
		WHERE employee_id = ? AND date >= ? AND date <= ?
		ORDER BY date ASC, start_minute ASC
	`, string(employeeID), period.Start.String(), period.End.String())
	if err != nil {
		return nil, fmt.Errorf("failed to query time entries: %w", err)
	}
	defer rows.Close()

	out := []worktime.TimeEntry{}
	for rows.Next() {
		e, err := scanTimeEntry(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, e)
	}
	return out, rows.Err()
}

// FirstTimeEntryDate returns the date of the employee's earliest entry.
func (c *conn) FirstTimeEntryDate(ctx context.Context, employeeID generic.EmployeeID) (generic.Date, bool, error) {
	var first sql.NullString
	err := c.q.QueryRowContext(ctx,
		`SELECT MIN(date) FROM time_entries WHERE employee_id = ?`, string(employeeID),
	).Scan(&first)
	if err != nil {
		return generic.Date{}, false, fmt.Errorf("failed to query first entry: %w", err)
	}
	if !first.Valid {
		return generic.Date{}, false, nil
	}
	d, err := parseDate(first.String)
	if err != nil {
		return generic.Date{}, false, err
	}
	return d, true, nil
}

func scanTimeEntry(s scanner) (worktime.TimeEntry, error) {
	var (
		e                    worktime.TimeEntry
		date                 string
		start                int
		end                  sql.NullInt64
		note, reason         sql.NullString
		createdAt, updatedAt string
	)
	err := s.Scan(&e.ID, &e.EmployeeID, &date, &start, &end, &e.BreakMinutes,
		&note, &reason, &createdAt, &updatedAt)
	if err != nil {
		return e, err
	}
	if e.Date, err = parseDate(date); err != nil {
		return e, err
	}
	e.Start = generic.ClockTime(start)
	if end.Valid {
		e.End = worktime.ClockPtr(generic.ClockTime(end.Int64))
	}
	e.Note = note.String
	e.SundayExceptionReason = reason.String
	e.CreatedAt = parseTime(createdAt)
	e.UpdatedAt = parseTime(updatedAt)
	return e, nil
}
