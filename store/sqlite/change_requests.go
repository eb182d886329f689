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
// CHANGE REQUESTS
// =============================================================================

const changeRequestColumns = `id, employee_id, request_type, time_entry_id, proposed_json, original_json,
	reason, status, rejection_reason, reviewed_by, reviewed_at, created_at, updated_at`

// SaveChangeRequest inserts or replaces a change request.
func (c *conn) SaveChangeRequest(ctx context.Context, cr worktime.ChangeRequest) error {
	proposed, err := encodeValues(cr.Proposed)
	if err != nil {
		return err
	}
	original, err := encodeValues(cr.Original)
	if err != nil {
		return err
	}
	_, err = c.q.ExecContext(ctx, `
		INSERT INTO change_requests (`+changeRequestColumns+`)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			time_entry_id = excluded.time_entry_id,
			proposed_json = excluded.proposed_json,
			original_json = excluded.original_json,
			status = excluded.status,
			rejection_reason = excluded.rejection_reason,
			reviewed_by = excluded.reviewed_by,
			reviewed_at = excluded.reviewed_at,
			updated_at = excluded.updated_at
	`,
		string(cr.ID), string(cr.EmployeeID), string(cr.Type), nullString(string(cr.TimeEntryID)),
		proposed, original, cr.Reason, string(cr.Status), nullString(cr.RejectionReason),
		nullString(cr.ReviewedBy), nullTime(cr.ReviewedAt), formatTime(cr.CreatedAt), formatTime(cr.UpdatedAt),
	)
	if err != nil {
		return fmt.Errorf("failed to save change request: %w", err)
	}
	return nil
}

func (c *conn) DeleteChangeRequest(ctx context.Context, id generic.RecordID) error {
	res, err := c.q.ExecContext(ctx, `DELETE FROM change_requests WHERE id = ?`, string(id))
	if err != nil {
		return fmt.Errorf("failed to delete change request: %w", err)
	}
	return mustAffect(res, "change request", string(id))
}

func (c *conn) GetChangeRequest(ctx context.Context, id generic.RecordID) (worktime.ChangeRequest, error) {
	row := c.q.QueryRowContext(ctx, `SELECT `+changeRequestColumns+` FROM change_requests WHERE id = ?`, string(id))
	cr, err := scanChangeRequest(row)
	if err != nil {
		return worktime.ChangeRequest{}, notFound(err, "change request", string(id))
	}
	return cr, nil
}

// ListChangeRequests filters by employee and status; empty values match
// everything. Oldest first.
func (c *conn) ListChangeRequests(ctx context.Context, employeeID generic.EmployeeID, status worktime.ChangeRequestStatus) ([]worktime.ChangeRequest, error) {
	rows, err := c.q.QueryContext(ctx, `
		SELECT `+changeRequestColumns+`
		FROM change_requests
		WHERE (? = '' OR employee_id = ?) AND (? = '' OR status = ?)
		ORDER BY created_at ASC
	`, string(employeeID), string(employeeID), string(status), string(status))
	if err != nil {
		return nil, fmt.Errorf("failed to query change requests: %w", err)
	}
	defer rows.Close()

	out := []worktime.ChangeRequest{}
	for rows.Next() {
		cr, err := scanChangeRequest(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, cr)
	}
	return out, rows.Err()
}

func encodeValues(v *worktime.EntryValues) (sql.NullString, error) {
	if v == nil {
		return sql.NullString{}, nil
	}
	b, err := json.Marshal(v)
	if err != nil {
		return sql.NullString{}, fmt.Errorf("failed to encode entry values: %w", err)
	}
	return sql.NullString{String: string(b), Valid: true}, nil
}

func decodeValues(s sql.NullString) (*worktime.EntryValues, error) {
	if !s.Valid || s.String == "" {
		return nil, nil
	}
	var v worktime.EntryValues
	if err := json.Unmarshal([]byte(s.String), &v); err != nil {
		return nil, fmt.Errorf("corrupt entry values: %w", err)
	}
	return &v, nil
}

func scanChangeRequest(s scanner) (worktime.ChangeRequest, error) {
	var (
		cr                                worktime.ChangeRequest
		typ, status, createdAt, updatedAt string
		entryID, proposed, original       sql.NullString
		rejection, reviewedBy, reviewedAt sql.NullString
	)
	err := s.Scan(&cr.ID, &cr.EmployeeID, &typ, &entryID, &proposed, &original,
		&cr.Reason, &status, &rejection, &reviewedBy, &reviewedAt, &createdAt, &updatedAt)
	if err != nil {
		return cr, err
	}
	cr.Type = worktime.ChangeRequestType(typ)
	cr.TimeEntryID = generic.RecordID(entryID.String)
	if cr.Proposed, err = decodeValues(proposed); err != nil {
		return cr, err
	}
	if cr.Original, err = decodeValues(original); err != nil {
		return cr, err
	}
	cr.Status = worktime.ChangeRequestStatus(status)
	cr.RejectionReason = rejection.String
	cr.ReviewedBy = reviewedBy.String
	cr.ReviewedAt = timePtr(reviewedAt)
	cr.CreatedAt = parseTime(createdAt)
	cr.UpdatedAt = parseTime(updatedAt)
	return cr, nil
}
