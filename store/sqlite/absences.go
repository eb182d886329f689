package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"strconv"

	"github.com/warp/worktime-engine/generic"
	"github.com/warp/worktime-engine/worktime"
)

// =============================================================================
// ABSENCES
// =============================================================================

const absenceColumns = `id, employee_id, date, type, hours, note, closure_id, created_at`

// SaveAbsence inserts or replaces an absence day. A second absence of the
// same type on the same day is a duplicate.
func (c *conn) SaveAbsence(ctx context.Context, a worktime.Absence) error {
	_, err := c.q.ExecContext(ctx, `
		INSERT INTO absences (`+absenceColumns+`)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			date = excluded.date,
			type = excluded.type,
			hours = excluded.hours,
			note = excluded.note
	`,
		string(a.ID), string(a.EmployeeID), a.Date.String(), string(a.Type), a.Hours.Value.String(),
		nullString(a.Note), nullString(string(a.ClosureID)), formatTime(a.CreatedAt),
	)
	if isUniqueConstraintError(err) {
		return &generic.DuplicateError{Entity: "absence", Key: string(a.Type) + " on " + a.Date.String()}
	}
	if err != nil {
		return fmt.Errorf("failed to save absence: %w", err)
	}
	return nil
}

func (c *conn) DeleteAbsence(ctx context.Context, id generic.RecordID) error {
	res, err := c.q.ExecContext(ctx, `DELETE FROM absences WHERE id = ?`, string(id))
	if err != nil {
		return fmt.Errorf("failed to delete absence: %w", err)
	}
	return mustAffect(res, "absence", string(id))
}

func (c *conn) GetAbsence(ctx context.Context, id generic.RecordID) (worktime.Absence, error) {
	row := c.q.QueryRowContext(ctx, `SELECT `+absenceColumns+` FROM absences WHERE id = ?`, string(id))
	a, err := scanAbsence(row)
	if err != nil {
		return worktime.Absence{}, notFound(err, "absence", string(id))
	}
	return a, nil
}

// ListAbsences returns an employee's absences inside period by date.
func (c *conn) ListAbsences(ctx context.Context, employeeID generic.EmployeeID, period generic.Period) ([]worktime.Absence, error) {
	return c.queryAbsences(ctx, `
		SELECT `+absenceColumns+`
		FROM absences
		WHERE employee_id = ? AND date >= ? AND date <= ?
		ORDER BY date ASC, type ASC
	`, string(employeeID), period.Start.String(), period.End.String())
}

// ListAbsencesByClosure returns the rows generated by a closure.
func (c *conn) ListAbsencesByClosure(ctx context.Context, closureID generic.RecordID) ([]worktime.Absence, error) {
	return c.queryAbsences(ctx, `
		SELECT `+absenceColumns+`
		FROM absences
		WHERE closure_id = ?
		ORDER BY employee_id ASC, date ASC
	`, string(closureID))
}

func (c *conn) queryAbsences(ctx context.Context, query string, args ...any) ([]worktime.Absence, error) {
	rows, err := c.q.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query absences: %w", err)
	}
	defer rows.Close()

	out := []worktime.Absence{}
	for rows.Next() {
		a, err := scanAbsence(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, a)
	}
	return out, rows.Err()
}

func scanAbsence(s scanner) (worktime.Absence, error) {
	var (
		a                       worktime.Absence
		date, typ, hours, since string
		note, closure           sql.NullString
	)
	if err := s.Scan(&a.ID, &a.EmployeeID, &date, &typ, &hours, &note, &closure, &since); err != nil {
		return a, err
	}
	var err error
	if a.Date, err = parseDate(date); err != nil {
		return a, err
	}
	if a.Hours, err = parseHours(hours); err != nil {
		return a, err
	}
	a.Type = worktime.AbsenceType(typ)
	a.Note = note.String
	a.ClosureID = generic.RecordID(closure.String)
	a.CreatedAt = parseTime(since)
	return a, nil
}

// =============================================================================
// COMPANY CLOSURES
// =============================================================================

func (c *conn) SaveClosure(ctx context.Context, cl worktime.CompanyClosure) error {
	_, err := c.q.ExecContext(ctx, `
		INSERT INTO company_closures (id, name, start_date, end_date, created_by, created_at)
		VALUES (?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			name = excluded.name,
			start_date = excluded.start_date,
			end_date = excluded.end_date
	`, string(cl.ID), cl.Name, cl.StartDate.String(), cl.EndDate.String(), nullString(cl.CreatedBy), formatTime(cl.CreatedAt))
	if err != nil {
		return fmt.Errorf("failed to save closure: %w", err)
	}
	return nil
}

func (c *conn) DeleteClosure(ctx context.Context, id generic.RecordID) error {
	res, err := c.q.ExecContext(ctx, `DELETE FROM company_closures WHERE id = ?`, string(id))
	if err != nil {
		return fmt.Errorf("failed to delete closure: %w", err)
	}
	return mustAffect(res, "company closure", string(id))
}

func (c *conn) GetClosure(ctx context.Context, id generic.RecordID) (worktime.CompanyClosure, error) {
	row := c.q.QueryRowContext(ctx, `
		SELECT id, name, start_date, end_date, created_by, created_at
		FROM company_closures WHERE id = ?`, string(id))
	cl, err := scanClosure(row)
	if err != nil {
		return worktime.CompanyClosure{}, notFound(err, "company closure", string(id))
	}
	return cl, nil
}

// ListClosures returns closures overlapping year, or all when year is 0.
func (c *conn) ListClosures(ctx context.Context, year int) ([]worktime.CompanyClosure, error) {
	query := `SELECT id, name, start_date, end_date, created_by, created_at FROM company_closures`
	var args []any
	if year != 0 {
		query += ` WHERE start_date <= ? AND end_date >= ?`
		args = append(args, strconv.Itoa(year)+"-12-31", strconv.Itoa(year)+"-01-01")
	}
	rows, err := c.q.QueryContext(ctx, query+` ORDER BY start_date ASC`, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query closures: %w", err)
	}
	defer rows.Close()

	out := []worktime.CompanyClosure{}
	for rows.Next() {
		cl, err := scanClosure(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, cl)
	}
	return out, rows.Err()
}

func scanClosure(s scanner) (worktime.CompanyClosure, error) {
	var (
		cl                    worktime.CompanyClosure
		start, end, createdAt string
		createdBy             sql.NullString
	)
	if err := s.Scan(&cl.ID, &cl.Name, &start, &end, &createdBy, &createdAt); err != nil {
		return cl, err
	}
	var err error
	if cl.StartDate, err = parseDate(start); err != nil {
		return cl, err
	}
	if cl.EndDate, err = parseDate(end); err != nil {
		return cl, err
	}
	cl.CreatedBy = createdBy.String
	cl.CreatedAt = parseTime(createdAt)
	return cl, nil
}

// =============================================================================
// PUBLIC HOLIDAYS
// =============================================================================

// SaveHoliday inserts or replaces a holiday; one per region and day.
func (c *conn) SaveHoliday(ctx context.Context, h worktime.PublicHoliday) error {
	_, err := c.q.ExecContext(ctx, `
		INSERT INTO public_holidays (id, date, name, region)
		VALUES (?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			date = excluded.date,
			name = excluded.name,
			region = excluded.region
	`, string(h.ID), h.Date.String(), h.Name, h.Region)
	if isUniqueConstraintError(err) {
		return &generic.DuplicateError{Entity: "holiday", Key: h.Region + " " + h.Date.String()}
	}
	if err != nil {
		return fmt.Errorf("failed to save holiday: %w", err)
	}
	return nil
}

func (c *conn) DeleteHoliday(ctx context.Context, id generic.RecordID) error {
	res, err := c.q.ExecContext(ctx, `DELETE FROM public_holidays WHERE id = ?`, string(id))
	if err != nil {
		return fmt.Errorf("failed to delete holiday: %w", err)
	}
	return mustAffect(res, "holiday", string(id))
}

// ListHolidays returns the holidays of region inside period, including
// region-less ones. An empty region returns every region.
func (c *conn) ListHolidays(ctx context.Context, region string, period generic.Period) ([]worktime.PublicHoliday, error) {
	rows, err := c.q.QueryContext(ctx, `
		SELECT id, date, name, region
		FROM public_holidays
		WHERE date >= ? AND date <= ? AND (? = '' OR region = ? OR region = '')
		ORDER BY date ASC
	`, period.Start.String(), period.End.String(), region, region)
	if err != nil {
		return nil, fmt.Errorf("failed to query holidays: %w", err)
	}
	defer rows.Close()

	out := []worktime.PublicHoliday{}
	for rows.Next() {
		var (
			h    worktime.PublicHoliday
			date string
		)
		if err := rows.Scan(&h.ID, &date, &h.Name, &h.Region); err != nil {
			return nil, fmt.Errorf("failed to scan holiday: %w", err)
		}
		if h.Date, err = parseDate(date); err != nil {
			return nil, err
		}
		out = append(out, h)
	}
	return out, rows.Err()
}
