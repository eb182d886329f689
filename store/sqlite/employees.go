package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"

	"github.com/warp/worktime-engine/generic"
	"github.com/warp/worktime-engine/worktime"
)

// =============================================================================
// EMPLOYEES
// =============================================================================

const employeeColumns = `id, name, email, role, weekly_hours, work_days_per_week, vacation_days,
	track_hours, use_daily_schedule, daily_schedule_json, arbzg_exempt, calendar_color,
	balance_anchor, active, deactivated_at, created_at`

// SaveEmployee inserts or replaces an employee.
func (c *conn) SaveEmployee(ctx context.Context, e worktime.Employee) error {
	schedule, err := json.Marshal(e.DailySchedule)
	if err != nil {
		return fmt.Errorf("failed to encode daily schedule: %w", err)
	}
	_, err = c.q.ExecContext(ctx, `
		INSERT INTO employees (`+employeeColumns+`)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			name = excluded.name,
			email = excluded.email,
			role = excluded.role,
			weekly_hours = excluded.weekly_hours,
			work_days_per_week = excluded.work_days_per_week,
			vacation_days = excluded.vacation_days,
			track_hours = excluded.track_hours,
			use_daily_schedule = excluded.use_daily_schedule,
			daily_schedule_json = excluded.daily_schedule_json,
			arbzg_exempt = excluded.arbzg_exempt,
			calendar_color = excluded.calendar_color,
			balance_anchor = excluded.balance_anchor,
			active = excluded.active,
			deactivated_at = excluded.deactivated_at
	`,
		string(e.ID), e.Name, nullString(e.Email), string(e.Role), e.WeeklyHours.Value.String(),
		e.WorkDaysPerWeek, e.VacationDays, boolInt(e.TrackHours), boolInt(e.UseDailySchedule),
		string(schedule), boolInt(e.ArbZGExempt), nullString(e.CalendarColor),
		nullDate(e.BalanceAnchor), boolInt(e.Active), nullTime(e.DeactivatedAt), formatTime(e.CreatedAt),
	)
	if err != nil {
		return fmt.Errorf("failed to save employee: %w", err)
	}
	return nil
}

// GetEmployee retrieves an employee by ID.
func (c *conn) GetEmployee(ctx context.Context, id generic.EmployeeID) (worktime.Employee, error) {
	row := c.q.QueryRowContext(ctx, `SELECT `+employeeColumns+` FROM employees WHERE id = ?`, string(id))
	e, err := scanEmployee(row)
	if err != nil {
		return worktime.Employee{}, notFound(err, "employee", string(id))
	}
	return e, nil
}

// ListEmployees returns employees ordered by name.
func (c *conn) ListEmployees(ctx context.Context, activeOnly bool) ([]worktime.Employee, error) {
	query := `SELECT ` + employeeColumns + ` FROM employees`
	if activeOnly {
		query += ` WHERE active = 1`
	}
	rows, err := c.q.QueryContext(ctx, query+` ORDER BY name, id`)
	if err != nil {
		return nil, fmt.Errorf("failed to query employees: %w", err)
	}
	defer rows.Close()

	out := []worktime.Employee{}
	for rows.Next() {
		e, err := scanEmployee(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, e)
	}
	return out, rows.Err()
}

// scanner is satisfied by *sql.Row and *sql.Rows.
type scanner interface {
	Scan(dest ...any) error
}

func scanEmployee(s scanner) (worktime.Employee, error) {
	var (
		e                                       worktime.Employee
		role, weeklyHours, createdAt            string
		email, schedule, color, anchor, deactiv sql.NullString
		trackHours, useSchedule, exempt, active int
	)
	err := s.Scan(&e.ID, &e.Name, &email, &role, &weeklyHours, &e.WorkDaysPerWeek, &e.VacationDays,
		&trackHours, &useSchedule, &schedule, &exempt, &color,
		&anchor, &active, &deactiv, &createdAt)
	if err != nil {
		return e, err
	}

	e.Email = email.String
	e.Role = worktime.Role(role)
	if e.WeeklyHours, err = parseHours(weeklyHours); err != nil {
		return e, err
	}
	e.TrackHours = trackHours == 1
	e.UseDailySchedule = useSchedule == 1
	if schedule.Valid && schedule.String != "" {
		if err := json.Unmarshal([]byte(schedule.String), &e.DailySchedule); err != nil {
			return e, fmt.Errorf("corrupt daily schedule for %s: %w", e.ID, err)
		}
	}
	e.ArbZGExempt = exempt == 1
	e.CalendarColor = color.String
	if anchor.Valid {
		d, err := parseDate(anchor.String)
		if err != nil {
			return e, err
		}
		e.BalanceAnchor = &d
	}
	e.Active = active == 1
	e.DeactivatedAt = timePtr(deactiv)
	e.CreatedAt = parseTime(createdAt)
	return e, nil
}

// =============================================================================
// WORKING HOURS CHANGES
// =============================================================================

// SaveWorkingHoursChange inserts or replaces a change. A second change on
// the same effective date is a duplicate.
func (c *conn) SaveWorkingHoursChange(ctx context.Context, w worktime.WorkingHoursChange) error {
	_, err := c.q.ExecContext(ctx, `
		INSERT INTO working_hours_changes (id, employee_id, effective_from, weekly_hours, note, created_at)
		VALUES (?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			effective_from = excluded.effective_from,
			weekly_hours = excluded.weekly_hours,
			note = excluded.note
	`, string(w.ID), string(w.EmployeeID), w.EffectiveFrom.String(), w.WeeklyHours.Value.String(), nullString(w.Note), formatTime(w.CreatedAt))
	if isUniqueConstraintError(err) {
		return &generic.DuplicateError{Entity: "working hours change", Key: w.EffectiveFrom.String()}
	}
	if err != nil {
		return fmt.Errorf("failed to save working hours change: %w", err)
	}
	return nil
}

func (c *conn) DeleteWorkingHoursChange(ctx context.Context, id generic.RecordID) error {
	res, err := c.q.ExecContext(ctx, `DELETE FROM working_hours_changes WHERE id = ?`, string(id))
	if err != nil {
		return fmt.Errorf("failed to delete working hours change: %w", err)
	}
	return mustAffect(res, "working hours change", string(id))
}

func (c *conn) GetWorkingHoursChange(ctx context.Context, id generic.RecordID) (worktime.WorkingHoursChange, error) {
	row := c.q.QueryRowContext(ctx, `
		SELECT id, employee_id, effective_from, weekly_hours, note, created_at
		FROM working_hours_changes WHERE id = ?`, string(id))
	w, err := scanWorkingHoursChange(row)
	if err != nil {
		return worktime.WorkingHoursChange{}, notFound(err, "working hours change", string(id))
	}
	return w, nil
}

// ListWorkingHoursChanges returns an employee's changes by effective date.
func (c *conn) ListWorkingHoursChanges(ctx context.Context, employeeID generic.EmployeeID) ([]worktime.WorkingHoursChange, error) {
	rows, err := c.q.QueryContext(ctx, `
		SELECT id, employee_id, effective_from, weekly_hours, note, created_at
		FROM working_hours_changes
		WHERE employee_id = ?
		ORDER BY effective_from ASC
	`, string(employeeID))
	if err != nil {
		return nil, fmt.Errorf("failed to query working hours changes: %w", err)
	}
	defer rows.Close()

	out := []worktime.WorkingHoursChange{}
	for rows.Next() {
		w, err := scanWorkingHoursChange(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, w)
	}
	return out, rows.Err()
}

func scanWorkingHoursChange(s scanner) (worktime.WorkingHoursChange, error) {
	var (
		w                      worktime.WorkingHoursChange
		from, hours, createdAt string
		note                   sql.NullString
	)
	if err := s.Scan(&w.ID, &w.EmployeeID, &from, &hours, &note, &createdAt); err != nil {
		return w, err
	}
	var err error
	if w.EffectiveFrom, err = parseDate(from); err != nil {
		return w, err
	}
	if w.WeeklyHours, err = parseHours(hours); err != nil {
		return w, err
	}
	w.Note = note.String
	w.CreatedAt = parseTime(createdAt)
	return w, nil
}
