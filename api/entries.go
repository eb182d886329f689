package api

import (
	"net/http"

	"github.com/warp/worktime-engine/generic"
	"github.com/warp/worktime-engine/service"
	"github.com/warp/worktime-engine/worktime"
)

// =============================================================================
// TIME ENTRY HANDLERS
// =============================================================================
//
//   GET    /api/employees/{id}/entries   ?start=&end= | ?year=&month=
//   POST   /api/employees/{id}/entries
//   PUT    /api/entries/{id}
//   DELETE /api/entries/{id}
//
// Saves answer with a service.SaveOutcome: 201/200 when accepted (with
// warnings if any advisory rule fired), 422 with the blocking reasons when
// rejected.

// writeOutcome writes a save outcome, mapping rejections to 422.
func (h *Handler) writeOutcome(w http.ResponseWriter, r *http.Request, status int, outcome service.SaveOutcome, err error) {
	if outcome.Status == service.OutcomeRejected {
		writeJSON(w, http.StatusUnprocessableEntity, outcome)
		return
	}
	if err != nil {
		h.fail(w, r, err)
		return
	}
	writeJSON(w, status, outcome)
}

// ListEntries returns an employee's entries, the current month by default.
// GET /api/employees/{id}/entries
func (h *Handler) ListEntries(w http.ResponseWriter, r *http.Request) {
	p, err := periodQuery(r, h.currentMonth())
	if err != nil {
		h.fail(w, r, err)
		return
	}
	entries, err := h.Engine.ListEntries(r.Context(), actorFrom(r), employeeParam(r), p)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, entries)
}

// CreateEntry records a work block.
// POST /api/employees/{id}/entries
func (h *Handler) CreateEntry(w http.ResponseWriter, r *http.Request) {
	var values worktime.EntryValues
	if !decode(w, r, &values) {
		return
	}
	entry := values.Apply(worktime.TimeEntry{EmployeeID: employeeParam(r)})

	outcome, err := h.Engine.CreateEntry(r.Context(), actorFrom(r), entry)
	h.writeOutcome(w, r, http.StatusCreated, outcome, err)
}

// UpdateEntry replaces an entry's editable fields.
// PUT /api/entries/{id}
func (h *Handler) UpdateEntry(w http.ResponseWriter, r *http.Request) {
	var values worktime.EntryValues
	if !decode(w, r, &values) {
		return
	}

	outcome, err := h.Engine.UpdateEntry(r.Context(), actorFrom(r), recordParam(r, "id"), values)
	h.writeOutcome(w, r, http.StatusOK, outcome, err)
}

// DeleteEntry removes an entry.
// DELETE /api/entries/{id}
func (h *Handler) DeleteEntry(w http.ResponseWriter, r *http.Request) {
	if err := h.Engine.DeleteEntry(r.Context(), actorFrom(r), recordParam(r, "id")); err != nil {
		h.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "deleted"})
}

// =============================================================================
// ABSENCE HANDLERS
// =============================================================================

// ListAbsences returns an employee's absence days, the current year by
// default.
// GET /api/employees/{id}/absences
func (h *Handler) ListAbsences(w http.ResponseWriter, r *http.Request) {
	p, err := periodQuery(r, generic.YearPeriod(h.Engine.Today().Year()))
	if err != nil {
		h.fail(w, r, err)
		return
	}
	absences, err := h.Engine.ListAbsences(r.Context(), actorFrom(r), employeeParam(r), p)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, absences)
}

// CreateAbsence records an absence range as one row per working day. A
// sick absence over vacation answers 409 with the conflicting days until
// the request is repeated with replace_vacation set.
// POST /api/employees/{id}/absences
func (h *Handler) CreateAbsence(w http.ResponseWriter, r *http.Request) {
	var req AbsenceRequest
	if !decode(w, r, &req) {
		return
	}

	rows, err := h.Engine.CreateAbsence(r.Context(), actorFrom(r), req.toService(employeeParam(r)))
	if err != nil {
		h.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, rows)
}

// DeleteAbsence removes one absence day.
// DELETE /api/absences/{id}
func (h *Handler) DeleteAbsence(w http.ResponseWriter, r *http.Request) {
	if err := h.Engine.DeleteAbsence(r.Context(), actorFrom(r), recordParam(r, "id")); err != nil {
		h.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "deleted"})
}

// =============================================================================
// CHANGE REQUEST HANDLERS
// =============================================================================

// ListChangeRequests filters by ?employee_id= and ?status=. Employees see
// only their own requests; without employee_id the caller must be admin.
// GET /api/change-requests
func (h *Handler) ListChangeRequests(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	emp := generic.EmployeeID(q.Get("employee_id"))
	status := worktime.ChangeRequestStatus(q.Get("status"))

	requests, err := h.Engine.ListChangeRequests(r.Context(), actorFrom(r), emp, status)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, requests)
}

// SubmitChangeRequest files a correction for a locked entry. The employee
// defaults to the actor.
// POST /api/change-requests
func (h *Handler) SubmitChangeRequest(w http.ResponseWriter, r *http.Request) {
	var req ChangeRequestRequest
	if !decode(w, r, &req) {
		return
	}
	actor := actorFrom(r)
	emp := generic.EmployeeID(req.EmployeeID)
	if emp == "" {
		emp = generic.EmployeeID(actor.ID)
	}

	cr, warnings, err := h.Engine.SubmitChangeRequest(r.Context(), actor, service.ChangeRequestInput{
		EmployeeID:  emp,
		Type:        req.Type,
		TimeEntryID: generic.RecordID(req.TimeEntryID),
		Proposed:    req.Proposed,
		Reason:      req.Reason,
	})
	if err != nil {
		h.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, ChangeRequestResponse{Request: cr, Warnings: warnings})
}

// GetChangeRequest returns one request.
// GET /api/change-requests/{id}
func (h *Handler) GetChangeRequest(w http.ResponseWriter, r *http.Request) {
	cr, err := h.Engine.GetChangeRequest(r.Context(), actorFrom(r), recordParam(r, "id"))
	if err != nil {
		h.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, cr)
}

// ApproveChangeRequest applies the proposal atomically.
// POST /api/change-requests/{id}/approve
func (h *Handler) ApproveChangeRequest(w http.ResponseWriter, r *http.Request) {
	cr, warnings, err := h.Engine.ApproveChangeRequest(r.Context(), actorFrom(r), recordParam(r, "id"))
	if err != nil {
		h.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, ChangeRequestResponse{Request: cr, Warnings: warnings})
}

// RejectChangeRequest closes the request without touching any entry.
// POST /api/change-requests/{id}/reject
func (h *Handler) RejectChangeRequest(w http.ResponseWriter, r *http.Request) {
	var req ReviewRequest
	if !decode(w, r, &req) {
		return
	}

	cr, err := h.Engine.RejectChangeRequest(r.Context(), actorFrom(r), recordParam(r, "id"), req.Reason)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, ChangeRequestResponse{Request: cr})
}

// WithdrawChangeRequest lets the author retract a pending request.
// DELETE /api/change-requests/{id}
func (h *Handler) WithdrawChangeRequest(w http.ResponseWriter, r *http.Request) {
	if err := h.Engine.WithdrawChangeRequest(r.Context(), actorFrom(r), recordParam(r, "id")); err != nil {
		h.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "withdrawn"})
}
