/*
handlers.go - HTTP API handlers for the working-time engine

PURPOSE:
  Exposes service.Engine via REST API. Handles HTTP request/response,
  JSON serialization and error mapping, and delegates every decision to
  the service layer.

ENDPOINTS:
  Employees:
    GET    /api/employees                          List employees (admin)
    POST   /api/employees                          Create employee (admin)
    GET    /api/employees/{id}                     Get employee
    PUT    /api/employees/{id}                     Update employee (admin)
    POST   /api/employees/{id}/deactivate          Deactivate (admin)
    GET    /api/employees/{id}/working-hours       Working-hours changes
    POST   /api/employees/{id}/working-hours       Add change (admin)
    DELETE /api/employees/{id}/working-hours/{cid} Delete change (admin)

  Entries, absences, change requests:  see entries.go
  Balances, compliance, closures, holidays, audit:  see reports.go

ACTORS:
  Authentication happens in front of this service. The acting user arrives
  in the X-Actor-ID and X-Actor-Role headers and is attached to the request
  context by actorMiddleware.

ERROR HANDLING:
  Errors are returned as JSON with appropriate HTTP status:
  - 400: Validation errors, invalid input, invalid periods
  - 401: Missing actor headers
  - 403: Forbidden, or entry outside the editable window
  - 404: Resource not found
  - 409: Wrong workflow state, duplicates, decision required
  - 422: Entry rejected by a blocking compliance rule
  - 500: Internal errors

SEE ALSO:
  - dto.go: Request/response data structures
  - server.go: Router setup and middleware
  - service/engine.go: Operations behind every handler
*/
package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog"
	"github.com/warp/worktime-engine/compliance"
	"github.com/warp/worktime-engine/generic"
	"github.com/warp/worktime-engine/service"
	"github.com/warp/worktime-engine/worktime"
)

// =============================================================================
// HANDLER CONTEXT
// =============================================================================

// Handler holds all dependencies for HTTP handlers.
type Handler struct {
	Engine *service.Engine
	log    zerolog.Logger
}

// NewHandler creates a new handler for the given engine.
func NewHandler(engine *service.Engine, log zerolog.Logger) *Handler {
	return &Handler{
		Engine: engine,
		log:    log.With().Str("component", "api").Logger(),
	}
}

// =============================================================================
// ACTOR
// =============================================================================

const (
	HeaderActorID   = "X-Actor-ID"
	HeaderActorRole = "X-Actor-Role"
)

type actorKey struct{}

// actorMiddleware reads the acting user from the request headers. Requests
// without an actor id are refused; an unknown role is treated as employee.
func actorMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id := strings.TrimSpace(r.Header.Get(HeaderActorID))
		if id == "" {
			writeError(w, http.StatusUnauthorized, "Missing "+HeaderActorID+" header", nil)
			return
		}
		role := worktime.RoleEmployee
		if strings.EqualFold(strings.TrimSpace(r.Header.Get(HeaderActorRole)), string(worktime.RoleAdmin)) {
			role = worktime.RoleAdmin
		}
		ctx := context.WithValue(r.Context(), actorKey{}, service.Actor{ID: id, Role: role})
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

func actorFrom(r *http.Request) service.Actor {
	actor, _ := r.Context().Value(actorKey{}).(service.Actor)
	return actor
}

// =============================================================================
// RESPONSE HELPERS
// =============================================================================

func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

func writeError(w http.ResponseWriter, status int, message string, err error) {
	resp := ErrorResponse{Error: message}
	if err != nil {
		resp.Details = err.Error()
	}
	writeJSON(w, status, resp)
}

// fail maps a service error to its HTTP status.
func (h *Handler) fail(w http.ResponseWriter, r *http.Request, err error) {
	var (
		rejection *compliance.RejectionError
		conflict  *worktime.VacationConflictError
	)
	switch {
	case errors.As(err, &rejection):
		writeJSON(w, http.StatusUnprocessableEntity, ErrorResponse{
			Error: err.Error(), Code: "rejected", Details: rejection.Findings,
		})
	case errors.As(err, &conflict):
		writeJSON(w, http.StatusConflict, ErrorResponse{
			Error: err.Error(), Code: "vacation_conflict", Details: conflict.Conflicts,
		})
	case errors.Is(err, generic.ErrEntryLocked):
		writeJSON(w, http.StatusForbidden, ErrorResponse{Error: err.Error(), Code: "entry_locked"})
	case errors.Is(err, generic.ErrForbidden):
		writeJSON(w, http.StatusForbidden, ErrorResponse{Error: err.Error(), Code: "forbidden"})
	case generic.IsNotFound(err):
		writeJSON(w, http.StatusNotFound, ErrorResponse{Error: err.Error(), Code: "not_found"})
	case generic.IsClientError(err):
		writeJSON(w, http.StatusBadRequest, ErrorResponse{Error: err.Error(), Code: "invalid"})
	case generic.IsConflict(err):
		writeJSON(w, http.StatusConflict, ErrorResponse{Error: err.Error(), Code: "conflict"})
	default:
		h.log.Error().Err(err).Str("method", r.Method).Str("path", r.URL.Path).Msg("request failed")
		writeError(w, http.StatusInternalServerError, "Internal error", nil)
	}
}

// decode reads a JSON body into v and writes a 400 on failure.
func decode(w http.ResponseWriter, r *http.Request, v any) bool {
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return false
	}
	return true
}

// =============================================================================
// QUERY PARAMETERS
// =============================================================================

func employeeParam(r *http.Request) generic.EmployeeID {
	return generic.EmployeeID(chi.URLParam(r, "id"))
}

func recordParam(r *http.Request, name string) generic.RecordID {
	return generic.RecordID(chi.URLParam(r, name))
}

// intQuery returns the named integer parameter, or def when it is absent.
func intQuery(r *http.Request, name string, def int) (int, error) {
	raw := r.URL.Query().Get(name)
	if raw == "" {
		return def, nil
	}
	n, err := strconv.Atoi(raw)
	if err != nil {
		return 0, &generic.ValidationError{Field: name, Reason: fmt.Sprintf("%q is not a number", raw)}
	}
	return n, nil
}

// dateQuery returns the named date parameter; ok is false when absent.
func dateQuery(r *http.Request, name string) (generic.Date, bool, error) {
	raw := r.URL.Query().Get(name)
	if raw == "" {
		return generic.Date{}, false, nil
	}
	d, err := generic.ParseDate(raw)
	if err != nil {
		return generic.Date{}, false, &generic.ValidationError{Field: name, Reason: fmt.Sprintf("%q is not a YYYY-MM-DD date", raw)}
	}
	return d, true, nil
}

// periodQuery reads ?start=&end=, or ?year= with an optional ?month=.
// Without any of them it returns def.
func periodQuery(r *http.Request, def generic.Period) (generic.Period, error) {
	start, hasStart, err := dateQuery(r, "start")
	if err != nil {
		return generic.Period{}, err
	}
	end, hasEnd, err := dateQuery(r, "end")
	if err != nil {
		return generic.Period{}, err
	}
	if hasStart || hasEnd {
		if !hasStart || !hasEnd {
			return generic.Period{}, &generic.ValidationError{Field: "period", Reason: "start and end must be given together"}
		}
		return generic.NewPeriod(start, end)
	}

	year, err := intQuery(r, "year", 0)
	if err != nil {
		return generic.Period{}, err
	}
	if year == 0 {
		return def, nil
	}
	month, err := intQuery(r, "month", 0)
	if err != nil {
		return generic.Period{}, err
	}
	switch {
	case month == 0:
		return generic.YearPeriod(year), nil
	case month < 1 || month > 12:
		return generic.Period{}, &generic.ValidationError{Field: "month", Reason: "must be between 1 and 12"}
	default:
		return generic.MonthPeriod(year, time.Month(month)), nil
	}
}

// currentMonth is the default period of list endpoints.
func (h *Handler) currentMonth() generic.Period {
	return generic.YearMonthOf(h.Engine.Today()).Period()
}

// =============================================================================
// EMPLOYEE HANDLERS
// =============================================================================

// toEmployeeDTO adds the weekly hours in force today.
func (h *Handler) toEmployeeDTO(ctx context.Context, emp worktime.Employee, warnings []generic.IntegrityWarning) (EmployeeDTO, error) {
	current, err := h.Engine.CurrentWeeklyHours(ctx, emp)
	if err != nil {
		return EmployeeDTO{}, err
	}
	return EmployeeDTO{Employee: emp, CurrentWeeklyHours: current, Warnings: warnings}, nil
}

// ListEmployees returns employees, active ones unless ?all=true.
// GET /api/employees
func (h *Handler) ListEmployees(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	activeOnly := r.URL.Query().Get("all") != "true"

	employees, err := h.Engine.ListEmployees(ctx, actorFrom(r), activeOnly)
	if err != nil {
		h.fail(w, r, err)
		return
	}

	dtos := make([]EmployeeDTO, 0, len(employees))
	for _, emp := range employees {
		dto, err := h.toEmployeeDTO(ctx, emp, nil)
		if err != nil {
			h.fail(w, r, err)
			return
		}
		dtos = append(dtos, dto)
	}
	writeJSON(w, http.StatusOK, dtos)
}

// CreateEmployee creates a new employee.
// POST /api/employees
func (h *Handler) CreateEmployee(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	var req EmployeeRequest
	if !decode(w, r, &req) {
		return
	}

	emp, warnings, err := h.Engine.CreateEmployee(ctx, actorFrom(r), req.toEmployee())
	if err != nil {
		h.fail(w, r, err)
		return
	}
	dto, err := h.toEmployeeDTO(ctx, emp, warnings)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, dto)
}

// GetEmployee returns one employee.
// GET /api/employees/{id}
func (h *Handler) GetEmployee(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	emp, err := h.Engine.GetEmployee(ctx, actorFrom(r), employeeParam(r))
	if err != nil {
		h.fail(w, r, err)
		return
	}
	dto, err := h.toEmployeeDTO(ctx, emp, nil)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, dto)
}

// UpdateEmployee replaces an employee's contract parameters.
// PUT /api/employees/{id}
func (h *Handler) UpdateEmployee(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	var req EmployeeRequest
	if !decode(w, r, &req) {
		return
	}
	emp := req.toEmployee()
	emp.ID = employeeParam(r)

	updated, warnings, err := h.Engine.UpdateEmployee(ctx, actorFrom(r), emp)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	dto, err := h.toEmployeeDTO(ctx, updated, warnings)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, dto)
}

// DeactivateEmployee marks an employee inactive. Records are kept.
// POST /api/employees/{id}/deactivate
func (h *Handler) DeactivateEmployee(w http.ResponseWriter, r *http.Request) {
	emp, err := h.Engine.DeactivateEmployee(r.Context(), actorFrom(r), employeeParam(r))
	if err != nil {
		h.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, emp)
}

// =============================================================================
// WORKING HOURS HANDLERS
// =============================================================================

// ListWorkingHours returns the employee's working-hours changes.
// GET /api/employees/{id}/working-hours
func (h *Handler) ListWorkingHours(w http.ResponseWriter, r *http.Request) {
	changes, err := h.Engine.ListWorkingHoursChanges(r.Context(), actorFrom(r), employeeParam(r))
	if err != nil {
		h.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, changes)
}

// AddWorkingHours records new weekly hours from a date onward.
// POST /api/employees/{id}/working-hours
func (h *Handler) AddWorkingHours(w http.ResponseWriter, r *http.Request) {
	var req WorkingHoursRequest
	if !decode(w, r, &req) {
		return
	}

	change, err := h.Engine.AddWorkingHoursChange(r.Context(), actorFrom(r), worktime.WorkingHoursChange{
		EmployeeID:    employeeParam(r),
		EffectiveFrom: req.EffectiveFrom,
		WeeklyHours:   req.WeeklyHours,
		Note:          req.Note,
	})
	if err != nil {
		h.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, change)
}

// DeleteWorkingHours removes a working-hours change.
// DELETE /api/employees/{id}/working-hours/{changeID}
func (h *Handler) DeleteWorkingHours(w http.ResponseWriter, r *http.Request) {
	warnings, err := h.Engine.DeleteWorkingHoursChange(r.Context(), actorFrom(r), recordParam(r, "changeID"))
	if err != nil {
		h.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, WorkingHoursDeleteResponse{Status: "deleted", Warnings: warnings})
}
