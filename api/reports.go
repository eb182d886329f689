package api

import (
	"fmt"
	"net/http"
	"time"

	"github.com/warp/worktime-engine/generic"
	"github.com/warp/worktime-engine/worktime"
)

// =============================================================================
// TARGET, BALANCE & VACATION HANDLERS
// =============================================================================

// GetTarget returns target hours for ?date=, or for a period (default: the
// current month).
// GET /api/employees/{id}/target
func (h *Handler) GetTarget(w http.ResponseWriter, r *http.Request) {
	p, err := periodQuery(r, h.currentMonth())
	if err != nil {
		h.fail(w, r, err)
		return
	}
	if d, ok, err := dateQuery(r, "date"); err != nil {
		h.fail(w, r, err)
		return
	} else if ok {
		p = generic.Period{Start: d, End: d}
	}

	emp := employeeParam(r)
	target, err := h.Engine.TargetHours(r.Context(), actorFrom(r), emp, p)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, TargetResponse{EmployeeID: emp, Period: p, TargetHours: target})
}

// yearMonthQuery parses a YYYY-MM parameter; ok is false when absent.
func yearMonthQuery(r *http.Request, name string) (generic.YearMonth, bool, error) {
	raw := r.URL.Query().Get(name)
	if raw == "" {
		return generic.YearMonth{}, false, nil
	}
	t, err := time.Parse("2006-01", raw)
	if err != nil {
		return generic.YearMonth{}, false, &generic.ValidationError{Field: name, Reason: fmt.Sprintf("%q is not a YYYY-MM month", raw)}
	}
	return generic.YearMonth{Year: t.Year(), Month: t.Month()}, true, nil
}

// GetBalance returns monthly balances.
//
//	?year=2026&month=5       one month
//	?from=2026-01&to=2026-05 a range of months
//	?year=2026               January to December
//	(none)                   January of this year to the current month
//
// GET /api/employees/{id}/balance
func (h *Handler) GetBalance(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	emp := employeeParam(r)
	today := generic.YearMonthOf(h.Engine.Today())

	year, err := intQuery(r, "year", 0)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	month, err := intQuery(r, "month", 0)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	if month != 0 {
		if year == 0 {
			year = today.Year
		}
		balance, err := h.Engine.MonthlyBalance(ctx, actorFrom(r), emp, year, time.Month(month))
		if err != nil {
			h.fail(w, r, err)
			return
		}
		writeJSON(w, http.StatusOK, balance)
		return
	}

	from := generic.YearMonth{Year: today.Year, Month: time.January}
	to := today
	if year != 0 {
		from = generic.YearMonth{Year: year, Month: time.January}
		to = generic.YearMonth{Year: year, Month: time.December}
	}
	if ym, ok, err := yearMonthQuery(r, "from"); err != nil {
		h.fail(w, r, err)
		return
	} else if ok {
		from = ym
	}
	if ym, ok, err := yearMonthQuery(r, "to"); err != nil {
		h.fail(w, r, err)
		return
	} else if ok {
		to = ym
	}

	balances, err := h.Engine.Balances(ctx, actorFrom(r), emp, from, to)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, balances)
}

// GetVacation returns the vacation account for ?year= (default: this year).
// GET /api/employees/{id}/vacation
func (h *Handler) GetVacation(w http.ResponseWriter, r *http.Request) {
	year, err := intQuery(r, "year", h.Engine.Today().Year())
	if err != nil {
		h.fail(w, r, err)
		return
	}
	account, err := h.Engine.VacationAccount(r.Context(), actorFrom(r), employeeParam(r), year)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, account)
}

// =============================================================================
// LEDGER HANDLERS
// =============================================================================

// GetLedger returns the last stored ledger snapshot.
// GET /api/employees/{id}/ledger
func (h *Handler) GetLedger(w http.ResponseWriter, r *http.Request) {
	snap, err := h.Engine.LedgerSnapshot(r.Context(), actorFrom(r), employeeParam(r))
	if err != nil {
		h.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, snap)
}

// RecomputeLedger rebuilds the snapshot from primary data, from ?start=
// (default: the balance anchor) through the current month.
// POST /api/employees/{id}/ledger/recompute
func (h *Handler) RecomputeLedger(w http.ResponseWriter, r *http.Request) {
	emp := employeeParam(r)
	if actor := actorFrom(r); !actor.CanAccess(emp) {
		h.fail(w, r, fmt.Errorf("%w: %s may not recompute the ledger of %s", generic.ErrForbidden, actor.ID, emp))
		return
	}
	today := h.Engine.Today()
	start, ok, err := dateQuery(r, "start")
	if err != nil {
		h.fail(w, r, err)
		return
	}
	if !ok {
		start = today
	}

	snap, err := h.Engine.RecomputeLedger(r.Context(), emp, generic.Period{Start: start, End: today})
	if err != nil {
		h.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, snap)
}

// =============================================================================
// COMPLIANCE HANDLERS
// =============================================================================

// GetCompliance evaluates every rule for the employee over a period
// (default: this year). ?until= sets the evaluation horizon.
// GET /api/employees/{id}/compliance
func (h *Handler) GetCompliance(w http.ResponseWriter, r *http.Request) {
	p, err := periodQuery(r, generic.YearPeriod(h.Engine.Today().Year()))
	if err != nil {
		h.fail(w, r, err)
		return
	}
	until, _, err := dateQuery(r, "until")
	if err != nil {
		h.fail(w, r, err)
		return
	}

	report, err := h.Engine.ComplianceReport(r.Context(), actorFrom(r), employeeParam(r), p, until)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, report)
}

// ComplianceOverview evaluates ?year= for every active employee.
// GET /api/compliance
func (h *Handler) ComplianceOverview(w http.ResponseWriter, r *http.Request) {
	year, err := intQuery(r, "year", h.Engine.Today().Year())
	if err != nil {
		h.fail(w, r, err)
		return
	}
	reports, err := h.Engine.ComplianceOverview(r.Context(), actorFrom(r), year)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, reports)
}

// monthQuery reads ?month=YYYY-MM, defaulting to the current month.
func (h *Handler) monthQuery(r *http.Request) (generic.YearMonth, error) {
	ym, ok, err := yearMonthQuery(r, "month")
	if err != nil || ok {
		return ym, err
	}
	return generic.YearMonthOf(h.Engine.Today()), nil
}

// MonthlyReport returns every active employee's figures for ?month=YYYY-MM.
// GET /api/reports/monthly
func (h *Handler) MonthlyReport(w http.ResponseWriter, r *http.Request) {
	ym, err := h.monthQuery(r)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	rows, err := h.Engine.MonthlyReport(r.Context(), actorFrom(r), ym.Year, ym.Month)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, rows)
}

// YearlyAbsences returns absence days per type and employee for ?year=.
// GET /api/reports/yearly-absences
func (h *Handler) YearlyAbsences(w http.ResponseWriter, r *http.Request) {
	year, err := intQuery(r, "year", h.Engine.Today().Year())
	if err != nil {
		h.fail(w, r, err)
		return
	}
	rows, err := h.Engine.YearlyAbsenceSummary(r.Context(), actorFrom(r), year)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, rows)
}

// AbsenceCalendar returns all active employees' absences in ?month=YYYY-MM.
// GET /api/absences/calendar
func (h *Handler) AbsenceCalendar(w http.ResponseWriter, r *http.Request) {
	ym, err := h.monthQuery(r)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	days, err := h.Engine.AbsenceCalendar(r.Context(), ym.Year, ym.Month)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, days)
}

// =============================================================================
// CLOSURE HANDLERS
// =============================================================================

// ListClosures returns closures overlapping ?year= (default: all).
// GET /api/closures
func (h *Handler) ListClosures(w http.ResponseWriter, r *http.Request) {
	year, err := intQuery(r, "year", 0)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	closures, err := h.Engine.ListClosures(r.Context(), year)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, closures)
}

// CreateClosure stores a closure and books vacation for every active
// employee.
// POST /api/closures
func (h *Handler) CreateClosure(w http.ResponseWriter, r *http.Request) {
	var req ClosureRequest
	if !decode(w, r, &req) {
		return
	}

	closure, n, err := h.Engine.CreateClosure(r.Context(), actorFrom(r), worktime.CompanyClosure{
		Name:      req.Name,
		StartDate: req.StartDate,
		EndDate:   req.EndDate,
	})
	if err != nil {
		h.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, ClosureResponse{Closure: closure, Affected: n})
}

// DeleteClosure removes a closure and exactly the absences it generated.
// DELETE /api/closures/{id}
func (h *Handler) DeleteClosure(w http.ResponseWriter, r *http.Request) {
	n, err := h.Engine.DeleteClosure(r.Context(), actorFrom(r), recordParam(r, "id"))
	if err != nil {
		h.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"status": "deleted", "absences": n})
}

// =============================================================================
// HOLIDAY HANDLERS
// =============================================================================

// ListHolidays returns holidays for ?year= (default: this year) and
// ?region= (default: the configured region).
// GET /api/holidays
func (h *Handler) ListHolidays(w http.ResponseWriter, r *http.Request) {
	year, err := intQuery(r, "year", h.Engine.Today().Year())
	if err != nil {
		h.fail(w, r, err)
		return
	}
	holidays, err := h.Engine.ListHolidays(r.Context(), r.URL.Query().Get("region"), year)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, holidays)
}

// CreateHoliday adds a manually maintained holiday.
// POST /api/holidays
func (h *Handler) CreateHoliday(w http.ResponseWriter, r *http.Request) {
	var req HolidayRequest
	if !decode(w, r, &req) {
		return
	}

	holiday, err := h.Engine.AddHoliday(r.Context(), actorFrom(r), worktime.PublicHoliday{
		Date:   req.Date,
		Name:   req.Name,
		Region: req.Region,
	})
	if err != nil {
		h.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, holiday)
}

// DeleteHoliday removes a holiday.
// DELETE /api/holidays/{id}
func (h *Handler) DeleteHoliday(w http.ResponseWriter, r *http.Request) {
	if err := h.Engine.DeleteHoliday(r.Context(), actorFrom(r), recordParam(r, "id")); err != nil {
		h.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "deleted"})
}

// SyncHolidays stores the statutory holidays of a year for a German state.
// POST /api/holidays/sync
func (h *Handler) SyncHolidays(w http.ResponseWriter, r *http.Request) {
	var req SyncHolidaysRequest
	if !decode(w, r, &req) {
		return
	}
	if req.Year == 0 {
		req.Year = h.Engine.Today().Year()
	}

	added, err := h.Engine.SyncHolidays(r.Context(), actorFrom(r), req.Year, req.Region)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	if added == nil {
		added = []worktime.PublicHoliday{}
	}
	writeJSON(w, http.StatusOK, map[string]any{"year": req.Year, "added": added})
}

// =============================================================================
// AUDIT HANDLERS
// =============================================================================

// GetAuditTrail returns audit entries filtered by ?employee_id=, ?actor_id=,
// repeated ?action= and the ?from= / ?to= days (inclusive).
// GET /api/audit
func (h *Handler) GetAuditTrail(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	var f generic.AuditFilter
	if v := q.Get("employee_id"); v != "" {
		emp := generic.EmployeeID(v)
		f.EmployeeID = &emp
	}
	if v := q.Get("actor_id"); v != "" {
		f.ActorID = &v
	}
	for _, a := range q["action"] {
		f.Actions = append(f.Actions, generic.AuditAction(a))
	}
	if d, ok, err := dateQuery(r, "from"); err != nil {
		h.fail(w, r, err)
		return
	} else if ok {
		from := d.Time
		f.From = &from
	}
	if d, ok, err := dateQuery(r, "to"); err != nil {
		h.fail(w, r, err)
		return
	} else if ok {
		to := d.AddDays(1).Time.Add(-time.Nanosecond)
		f.To = &to
	}

	entries, err := h.Engine.AuditTrail(r.Context(), actorFrom(r), f)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, entries)
}

// Health reports liveness. No actor required.
// GET /health
func (h *Handler) Health(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok", "region": h.Engine.Region()})
}
