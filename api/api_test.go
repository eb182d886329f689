/*
api_test.go - HTTP tests for the router, handlers and scheduler

Tests for:
- Actor headers and the error-to-status mapping
- Entry saves answering 201 / 422 / 403
- The change request workflow over HTTP
- Scheduler registration and the background jobs
*/
package api_test

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/warp/worktime-engine/api"
	"github.com/warp/worktime-engine/compliance"
	"github.com/warp/worktime-engine/generic"
	"github.com/warp/worktime-engine/service"
	"github.com/warp/worktime-engine/store/memory"
	"github.com/warp/worktime-engine/worktime"
)

// now is Wednesday 2026-08-05, 10:00 UTC.
var now = time.Date(2026, time.August, 5, 10, 0, 0, 0, time.UTC)

type testServer struct {
	engine *service.Engine
	store  *memory.Store
	router *chi.Mux
}

func newTestServer(t *testing.T) *testServer {
	t.Helper()
	store := memory.New()
	ctx := context.Background()
	for _, id := range []generic.EmployeeID{"emp-1", "emp-2"} {
		require.NoError(t, store.SaveEmployee(ctx, worktime.Employee{
			ID:              id,
			Name:            "Employee " + string(id),
			Role:            worktime.RoleEmployee,
			WeeklyHours:     generic.NewHoursFromInt(40),
			WorkDaysPerWeek: 5,
			VacationDays:    30,
			TrackHours:      true,
			Active:          true,
		}))
	}

	n := 0
	engine := service.New(service.Options{
		Store:     store,
		Snapshots: store,
		Rules:     compliance.DefaultRules(),
		Region:    "BY",
		Logger:    zerolog.Nop(),
		Now:       func() time.Time { return now },
		NewID: func() string {
			n++
			return fmt.Sprintf("id-%d", n)
		},
	})
	router := api.NewRouter(api.NewHandler(engine, zerolog.Nop()), api.RouterConfig{
		AllowedOrigins: []string{"*"},
		Log:            zerolog.Nop(),
	})
	return &testServer{engine: engine, store: store, router: router}
}

// do sends a request as actor (empty for none) with role and an optional
// JSON body.
func (s *testServer) do(t *testing.T, method, path, actor, role string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		if raw, ok := body.(string); ok {
			buf.WriteString(raw)
		} else {
			require.NoError(t, json.NewEncoder(&buf).Encode(body))
		}
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	if actor != "" {
		req.Header.Set(api.HeaderActorID, actor)
	}
	if role != "" {
		req.Header.Set(api.HeaderActorRole, role)
	}
	rec := httptest.NewRecorder()
	s.router.ServeHTTP(rec, req)
	return rec
}

func decodeBody[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &v), rec.Body.String())
	return v
}

func entryBody(d, start, end string, breakMinutes int) map[string]any {
	return map[string]any{"date": d, "start_time": start, "end_time": end, "break_minutes": breakMinutes}
}

// =============================================================================
// ROUTER & ACTORS
// =============================================================================

func TestHealth_NoActorNeeded(t *testing.T) {
	s := newTestServer(t)

	rec := s.do(t, http.MethodGet, "/health", "", "", nil)

	assert.Equal(t, http.StatusOK, rec.Code)
	body := decodeBody[map[string]string](t, rec)
	assert.Equal(t, "ok", body["status"])
	assert.Equal(t, "BY", body["region"])
}

func TestAPI_RequiresActor(t *testing.T) {
	s := newTestServer(t)

	rec := s.do(t, http.MethodGet, "/api/employees/emp-1", "", "", nil)

	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestEmployees_AdminOnlyCreate(t *testing.T) {
	s := newTestServer(t)
	body := map[string]any{"id": "emp-9", "name": "Neu", "weekly_hours": 30, "vacation_days": 25}

	rec := s.do(t, http.MethodPost, "/api/employees", "emp-1", "employee", body)
	assert.Equal(t, http.StatusForbidden, rec.Code)

	rec = s.do(t, http.MethodPost, "/api/employees", "admin-1", "admin", body)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	created := decodeBody[map[string]any](t, rec)
	assert.Equal(t, "emp-9", created["id"])
	assert.Equal(t, true, created["track_hours"], "track_hours defaults to true")
	assert.Equal(t, 30.0, created["current_weekly_hours"])

	rec = s.do(t, http.MethodPost, "/api/employees", "admin-1", "admin", body)
	assert.Equal(t, http.StatusConflict, rec.Code)

	rec = s.do(t, http.MethodGet, "/api/employees/emp-9", "emp-1", "", nil)
	assert.Equal(t, http.StatusForbidden, rec.Code)
}

// =============================================================================
// ENTRIES
// =============================================================================

func TestCreateEntry_StatusMapping(t *testing.T) {
	// GIVEN: an employee recording today
	// WHEN: saving an extended day, then a day over the ceiling, then a locked day
	// THEN: 201 with warnings, 422 with reasons, 403 entry_locked

	s := newTestServer(t)
	path := "/api/employees/emp-1/entries"

	rec := s.do(t, http.MethodPost, path, "emp-1", "", entryBody("2026-08-05", "08:00", "17:00", 30))
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	outcome := decodeBody[service.SaveOutcome](t, rec)
	assert.Equal(t, service.OutcomeAcceptedWithWarnings, outcome.Status)
	assert.True(t, compliance.HasRule(outcome.Warnings, compliance.RuleDailyExtended))

	rec = s.do(t, http.MethodPost, path, "emp-1", "", entryBody("2026-08-05", "18:00", "23:00", 0))
	require.Equal(t, http.StatusUnprocessableEntity, rec.Code, rec.Body.String())
	outcome = decodeBody[service.SaveOutcome](t, rec)
	assert.Equal(t, service.OutcomeRejected, outcome.Status)
	assert.True(t, compliance.HasRule(outcome.Reasons, compliance.RuleDailyCeiling))

	rec = s.do(t, http.MethodPost, path, "emp-1", "", entryBody("2026-08-03", "08:00", "12:00", 0))
	assert.Equal(t, http.StatusForbidden, rec.Code)
	assert.Equal(t, "entry_locked", decodeBody[api.ErrorResponse](t, rec).Code)

	rec = s.do(t, http.MethodPost, path, "emp-1", "", `{"date": "2026-08-05", "start_time": "8 o'clock"}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = s.do(t, http.MethodGet, path+"?start=2026-08-01&end=2026-08-31", "emp-1", "", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	listed := decodeBody[[]map[string]any](t, rec)
	require.Len(t, listed, 1)
	assert.Equal(t, 8.5, listed[0]["net_hours"])
	assert.Equal(t, false, listed[0]["is_sunday_or_holiday"])
	assert.Equal(t, false, listed[0]["locked"])
}

func TestEntries_DerivedFields(t *testing.T) {
	// GIVEN: a Sunday entry with a reason and an older weekday entry, both
	//        recorded by the admin
	// WHEN: the employee lists the week
	// THEN: each entry carries net hours, the Sunday flag and its lock state

	s := newTestServer(t)
	path := "/api/employees/emp-1/entries"

	sunday := `{"date": "2026-08-02", "start_time": "09:00", "end_time": "13:00", "break_minutes": 0, "sunday_exception_reason": "Notdienst"}`
	rec := s.do(t, http.MethodPost, path, "admin-1", "admin", sunday)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	saved := decodeBody[map[string]any](t, rec)["entry"].(map[string]any)
	assert.Equal(t, 4.0, saved["net_hours"])
	assert.Equal(t, true, saved["is_sunday_or_holiday"])
	assert.Equal(t, true, saved["locked"])

	rec = s.do(t, http.MethodPost, path, "admin-1", "admin", entryBody("2026-08-04", "08:00", "12:15", 0))
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

	rec = s.do(t, http.MethodGet, path+"?start=2026-08-02&end=2026-08-08", "emp-1", "", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	listed := decodeBody[[]map[string]any](t, rec)
	require.Len(t, listed, 2)
	assert.Equal(t, "2026-08-02", listed[0]["date"])
	assert.Equal(t, true, listed[0]["is_sunday_or_holiday"])
	assert.Equal(t, "2026-08-04", listed[1]["date"])
	assert.Equal(t, 4.25, listed[1]["net_hours"])
	assert.Equal(t, false, listed[1]["is_sunday_or_holiday"])
	assert.Equal(t, true, listed[1]["locked"])
}

func TestEntries_NotFoundAndInvalidQuery(t *testing.T) {
	s := newTestServer(t)

	rec := s.do(t, http.MethodPut, "/api/entries/missing", "admin-1", "admin", entryBody("2026-08-05", "08:00", "12:00", 0))
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec = s.do(t, http.MethodGet, "/api/employees/emp-1/entries?start=2026-08-01", "emp-1", "", nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = s.do(t, http.MethodGet, "/api/employees/emp-1/entries?year=2026&month=13", "emp-1", "", nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

// =============================================================================
// ABSENCES & BALANCES
// =============================================================================

func TestAbsence_SickOverVacationConflict(t *testing.T) {
	s := newTestServer(t)
	path := "/api/employees/emp-1/absences"

	rec := s.do(t, http.MethodPost, path, "emp-1", "", map[string]any{
		"start_date": "2026-08-10", "end_date": "2026-08-14", "type": "vacation",
	})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

	sick := map[string]any{"start_date": "2026-08-12", "end_date": "2026-08-13", "type": "sick"}
	rec = s.do(t, http.MethodPost, path, "emp-1", "", sick)
	assert.Equal(t, http.StatusConflict, rec.Code)
	assert.Equal(t, "vacation_conflict", decodeBody[api.ErrorResponse](t, rec).Code)

	sick["replace_vacation"] = true
	rec = s.do(t, http.MethodPost, path, "emp-1", "", sick)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	assert.Len(t, decodeBody[[]worktime.Absence](t, rec), 2)

	rec = s.do(t, http.MethodGet, "/api/employees/emp-1/vacation?year=2026", "emp-1", "", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	acc := decodeBody[map[string]any](t, rec)
	assert.Equal(t, 24.0, acc["used_hours"])
}

func TestBalance_OneMonth(t *testing.T) {
	s := newTestServer(t)
	rec := s.do(t, http.MethodPost, "/api/employees/emp-1/entries", "emp-1", "", entryBody("2026-08-05", "08:00", "17:00", 30))
	require.Equal(t, http.StatusCreated, rec.Code)

	rec = s.do(t, http.MethodGet, "/api/employees/emp-1/balance?year=2026&month=8", "emp-1", "", nil)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	balance := decodeBody[map[string]any](t, rec)
	assert.Equal(t, 168.0, balance["target_hours"])
	assert.Equal(t, 8.5, balance["actual_hours"])
	assert.Equal(t, -159.5, balance["cumulative_hours"])

	rec = s.do(t, http.MethodGet, "/api/employees/emp-1/balance?from=2026-09&to=2026-08", "emp-1", "", nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	// unbounded ranges are refused before any day is computed
	rec = s.do(t, http.MethodGet, "/api/employees/emp-1/target?start=0001-01-01&end=9999-12-31", "emp-1", "", nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	rec = s.do(t, http.MethodGet, "/api/employees/emp-1/balance?from=1900-01&to=2026-08", "emp-1", "", nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	rec = s.do(t, http.MethodGet, "/api/employees/emp-1/entries?start=0001-01-01&end=9999-12-31", "emp-1", "", nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = s.do(t, http.MethodGet, "/api/employees/emp-1/target?date=2026-08-08", "emp-1", "", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, 0.0, decodeBody[map[string]any](t, rec)["target_hours"])
}

// =============================================================================
// CHANGE REQUESTS
// =============================================================================

func TestTeamReports(t *testing.T) {
	// GIVEN: emp-1 on vacation Aug 10-11
	// WHEN: the reports and the absence calendar are requested
	// THEN: reports are admin only, the calendar is visible to every employee

	s := newTestServer(t)
	rec := s.do(t, http.MethodPost, "/api/employees/emp-1/absences", "emp-1", "", map[string]any{
		"start_date": "2026-08-10", "end_date": "2026-08-11", "type": "vacation",
	})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

	rec = s.do(t, http.MethodGet, "/api/absences/calendar", "emp-2", "", nil)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	days := decodeBody[[]map[string]any](t, rec)
	require.Len(t, days, 2)
	assert.Equal(t, "Employee emp-1", days[0]["employee_name"])
	assert.Equal(t, "2026-08-10", days[0]["date"])

	rec = s.do(t, http.MethodGet, "/api/reports/monthly?month=2026-08", "emp-1", "", nil)
	assert.Equal(t, http.StatusForbidden, rec.Code)

	rec = s.do(t, http.MethodGet, "/api/reports/monthly?month=2026-08", "admin-1", "admin", nil)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	rows := decodeBody[[]map[string]any](t, rec)
	require.Len(t, rows, 2)
	assert.Equal(t, "emp-1", rows[0]["employee_id"])
	assert.Equal(t, 16.0, rows[0]["vacation_hours"])
	assert.Equal(t, 152.0, rows[0]["target_hours"])

	rec = s.do(t, http.MethodGet, "/api/reports/monthly?month=2026-13", "admin-1", "admin", nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = s.do(t, http.MethodGet, "/api/reports/yearly-absences?year=2026", "admin-1", "admin", nil)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	summary := decodeBody[[]map[string]any](t, rec)
	require.Len(t, summary, 2)
	assert.Equal(t, 2.0, summary[0]["total_days"])
	assert.Equal(t, map[string]any{"vacation": 2.0}, summary[0]["days"])
}

func TestChangeRequest_Workflow(t *testing.T) {
	// GIVEN: a locked entry recorded by an admin
	// WHEN: the employee files a correction and an admin approves it twice
	// THEN: 201, then 403 for the employee approving, 200, then 409

	s := newTestServer(t)
	rec := s.do(t, http.MethodPost, "/api/employees/emp-1/entries", "admin-1", "admin", entryBody("2026-08-03", "08:00", "12:00", 0))
	require.Equal(t, http.StatusCreated, rec.Code)
	entryID := decodeBody[service.SaveOutcome](t, rec).Entry.ID

	rec = s.do(t, http.MethodPost, "/api/change-requests", "emp-1", "", map[string]any{
		"request_type":  "update",
		"time_entry_id": entryID,
		"proposed":      entryBody("2026-08-03", "08:00", "16:00", 30),
		"reason":        "left later",
	})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	cr := decodeBody[api.ChangeRequestResponse](t, rec).Request
	assert.Equal(t, generic.EmployeeID("emp-1"), cr.EmployeeID, "employee defaults to the actor")
	approve := "/api/change-requests/" + string(cr.ID) + "/approve"

	rec = s.do(t, http.MethodPost, approve, "emp-1", "", nil)
	assert.Equal(t, http.StatusForbidden, rec.Code)

	rec = s.do(t, http.MethodPost, approve, "admin-1", "admin", nil)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Equal(t, worktime.ChangeApproved, decodeBody[api.ChangeRequestResponse](t, rec).Request.Status)

	rec = s.do(t, http.MethodPost, approve, "admin-1", "admin", nil)
	assert.Equal(t, http.StatusConflict, rec.Code)

	entry, err := s.store.GetTimeEntry(context.Background(), entryID)
	require.NoError(t, err)
	assert.Equal(t, generic.NewClockTime(16, 0), *entry.End)

	rec = s.do(t, http.MethodGet, "/api/audit?action=change_request_approved", "admin-1", "admin", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Len(t, decodeBody[[]generic.AuditEntry](t, rec), 1)

	rec = s.do(t, http.MethodGet, "/api/audit", "emp-1", "", nil)
	assert.Equal(t, http.StatusForbidden, rec.Code)
}

// =============================================================================
// SCHEDULER
// =============================================================================

func TestScheduler_AddJob(t *testing.T) {
	s := newTestServer(t)
	sched := api.NewScheduler(zerolog.Nop())
	job := api.NewLedgerRefreshJob(s.engine, zerolog.Nop())

	require.NoError(t, sched.AddJob("0 30 2 * * *", job))
	assert.Equal(t, 1, sched.Entries())

	err := sched.AddJob("every night", job)
	assert.Error(t, err)
	assert.Equal(t, 1, sched.Entries())
}

func TestScheduler_RunNow(t *testing.T) {
	// GIVEN: an engine without stored holidays
	// WHEN: the holiday sync and ledger refresh jobs run
	// THEN: this and next year's Bavarian holidays exist and every active
	//       employee has a snapshot

	s := newTestServer(t)
	sched := api.NewScheduler(zerolog.Nop())
	ctx := context.Background()

	require.NoError(t, sched.RunNow(api.NewHolidaySyncJob(s.engine, zerolog.Nop())))
	for _, year := range []int{2026, 2027} {
		list, err := s.engine.ListHolidays(ctx, "BY", year)
		require.NoError(t, err)
		assert.Len(t, list, 13, "year %d", year)
	}

	require.NoError(t, sched.RunNow(api.NewLedgerRefreshJob(s.engine, zerolog.Nop())))
	_, err := s.store.GetLedgerSnapshot(ctx, "emp-2")
	assert.NoError(t, err)
}
