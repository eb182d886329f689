/*
sqlite_test.go - Round-trip tests for the SQLite store

Tests for:
- Both drivers (cgo mattn/go-sqlite3 and pure-Go modernc.org/sqlite)
- Unique constraints surfacing as DuplicateError
- Transaction rollback
- msgpack ledger snapshots and the JSON audit trail
*/
package sqlite_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/warp/worktime-engine/generic"
	"github.com/warp/worktime-engine/store/sqlite"
	"github.com/warp/worktime-engine/worktime"
)

var created = time.Date(2026, time.March, 2, 9, 15, 30, 123456789, time.UTC)

func date(year int, month time.Month, day int) generic.Date {
	return generic.NewDate(year, month, day)
}

// forEachDriver runs fn against a fresh in-memory database per driver.
func forEachDriver(t *testing.T, fn func(t *testing.T, store *sqlite.Store)) {
	for _, driver := range []string{sqlite.DriverCgo, sqlite.DriverPureGo} {
		t.Run(driver, func(t *testing.T) {
			store, err := sqlite.Open(driver, ":memory:")
			require.NoError(t, err)
			defer store.Close()
			assert.Equal(t, driver, store.Driver())
			fn(t, store)
		})
	}
}

func seedEmployee(t *testing.T, store *sqlite.Store, id string) worktime.Employee {
	t.Helper()
	anchor := date(2026, time.January, 1)
	emp := worktime.Employee{
		ID:               generic.EmployeeID(id),
		Name:             "Employee " + id,
		Email:            id + "@example.com",
		Role:             worktime.RoleEmployee,
		WeeklyHours:      generic.MustParseHours("38.5"),
		WorkDaysPerWeek:  5,
		VacationDays:     28,
		TrackHours:       true,
		UseDailySchedule: true,
		DailySchedule: [worktime.ScheduleDays]generic.Hours{
			generic.MustParseHours("8"), generic.MustParseHours("8"), generic.MustParseHours("8"),
			generic.MustParseHours("8"), generic.MustParseHours("6.5"),
		},
		BalanceAnchor: &anchor,
		Active:        true,
		CreatedAt:     created,
	}
	require.NoError(t, store.SaveEmployee(context.Background(), emp))
	return emp
}

func TestOpen_UnknownDriver(t *testing.T) {
	_, err := sqlite.Open("postgres", ":memory:")
	assert.Error(t, err)
}

// =============================================================================
// EMPLOYEES & WORKING HOURS
// =============================================================================

func TestEmployee_RoundTrip(t *testing.T) {
	forEachDriver(t, func(t *testing.T, store *sqlite.Store) {
		ctx := context.Background()
		want := seedEmployee(t, store, "emp-1")

		got, err := store.GetEmployee(ctx, "emp-1")
		require.NoError(t, err)

		assert.Equal(t, want.Name, got.Name)
		assert.Equal(t, want.Email, got.Email)
		assert.Equal(t, "38.50", got.WeeklyHours.String())
		assert.True(t, got.UseDailySchedule)
		assert.Equal(t, "6.50", got.DailySchedule[4].String())
		require.NotNil(t, got.BalanceAnchor)
		assert.Equal(t, *want.BalanceAnchor, *got.BalanceAnchor)
		assert.True(t, got.CreatedAt.Equal(created))
		assert.Nil(t, got.DeactivatedAt)

		// deactivation is an upsert of the same row
		now := created.Add(time.Hour)
		got.Active = false
		got.DeactivatedAt = &now
		require.NoError(t, store.SaveEmployee(ctx, got))

		active, err := store.ListEmployees(ctx, true)
		require.NoError(t, err)
		assert.Empty(t, active)
		all, err := store.ListEmployees(ctx, false)
		require.NoError(t, err)
		require.Len(t, all, 1)
		require.NotNil(t, all[0].DeactivatedAt)
		assert.True(t, all[0].DeactivatedAt.Equal(now))

		_, err = store.GetEmployee(ctx, "nobody")
		assert.True(t, generic.IsNotFound(err))
	})
}

func TestWorkingHoursChange_UniquePerDay(t *testing.T) {
	forEachDriver(t, func(t *testing.T, store *sqlite.Store) {
		ctx := context.Background()
		seedEmployee(t, store, "emp-1")

		change := worktime.WorkingHoursChange{
			ID: "w1", EmployeeID: "emp-1", EffectiveFrom: date(2026, time.April, 1),
			WeeklyHours: generic.NewHoursFromInt(30), CreatedAt: created,
		}
		require.NoError(t, store.SaveWorkingHoursChange(ctx, change))

		dup := change
		dup.ID = "w2"
		err := store.SaveWorkingHoursChange(ctx, dup)
		assert.ErrorIs(t, err, generic.ErrDuplicate)

		list, err := store.ListWorkingHoursChanges(ctx, "emp-1")
		require.NoError(t, err)
		require.Len(t, list, 1)
		assert.Equal(t, "30.00", list[0].WeeklyHours.String())

		require.NoError(t, store.DeleteWorkingHoursChange(ctx, "w1"))
		assert.True(t, generic.IsNotFound(store.DeleteWorkingHoursChange(ctx, "w1")))
	})
}

// =============================================================================
// TIME ENTRIES
// =============================================================================

func TestTimeEntries_RoundTripAndOrder(t *testing.T) {
	forEachDriver(t, func(t *testing.T, store *sqlite.Store) {
		ctx := context.Background()
		seedEmployee(t, store, "emp-1")

		entries := []worktime.TimeEntry{
			{ID: "e3", EmployeeID: "emp-1", Date: date(2026, time.March, 4), Start: generic.NewClockTime(8, 0), CreatedAt: created, UpdatedAt: created},
			{ID: "e2", EmployeeID: "emp-1", Date: date(2026, time.March, 3), Start: generic.NewClockTime(13, 0), End: worktime.ClockPtr(generic.EndOfDay), CreatedAt: created, UpdatedAt: created},
			{ID: "e1", EmployeeID: "emp-1", Date: date(2026, time.March, 3), Start: generic.NewClockTime(8, 0), End: worktime.ClockPtr(generic.NewClockTime(12, 0)), BreakMinutes: 15, Note: "standup", CreatedAt: created, UpdatedAt: created},
		}
		for _, e := range entries {
			require.NoError(t, store.SaveTimeEntry(ctx, e))
		}

		got, err := store.ListTimeEntries(ctx, "emp-1", generic.MonthPeriod(2026, time.March))
		require.NoError(t, err)
		require.Len(t, got, 3)
		assert.Equal(t, []generic.RecordID{"e1", "e2", "e3"}, []generic.RecordID{got[0].ID, got[1].ID, got[2].ID})

		assert.Equal(t, 15, got[0].BreakMinutes)
		assert.Equal(t, "standup", got[0].Note)
		assert.Equal(t, generic.EndOfDay, *got[1].End)
		assert.True(t, got[2].IsOpen(), "open entries keep a NULL end")

		first, ok, err := store.FirstTimeEntryDate(ctx, "emp-1")
		require.NoError(t, err)
		require.True(t, ok)
		assert.Equal(t, date(2026, time.March, 3), first)

		_, ok, err = store.FirstTimeEntryDate(ctx, "emp-2")
		require.NoError(t, err)
		assert.False(t, ok)

		require.NoError(t, store.DeleteTimeEntry(ctx, "e1"))
		_, err = store.GetTimeEntry(ctx, "e1")
		assert.ErrorIs(t, err, generic.ErrNotFound)
	})
}

func TestWithTx_RollsBackOnError(t *testing.T) {
	forEachDriver(t, func(t *testing.T, store *sqlite.Store) {
		ctx := context.Background()
		seedEmployee(t, store, "emp-1")
		boom := errors.New("boom")

		err := store.WithTx(ctx, func(tx worktime.Store) error {
			e := worktime.TimeEntry{ID: "e1", EmployeeID: "emp-1", Date: date(2026, time.March, 3), Start: generic.NewClockTime(8, 0), CreatedAt: created, UpdatedAt: created}
			if err := tx.SaveTimeEntry(ctx, e); err != nil {
				return err
			}
			return boom
		})
		assert.ErrorIs(t, err, boom)

		_, err = store.GetTimeEntry(ctx, "e1")
		assert.ErrorIs(t, err, generic.ErrNotFound)
	})
}

// =============================================================================
// ABSENCES, CLOSURES & HOLIDAYS
// =============================================================================

func TestAbsences_UniquePerDayAndType(t *testing.T) {
	forEachDriver(t, func(t *testing.T, store *sqlite.Store) {
		ctx := context.Background()
		seedEmployee(t, store, "emp-1")
		d := date(2026, time.December, 28)

		closure := worktime.CompanyClosure{ID: "c1", Name: "Betriebsferien", StartDate: date(2026, time.December, 24), EndDate: date(2026, time.December, 31), CreatedAt: created}
		require.NoError(t, store.SaveClosure(ctx, closure))

		vacation := worktime.Absence{ID: "a1", EmployeeID: "emp-1", Date: d, Type: worktime.AbsenceVacation, Hours: generic.MustParseHours("7.7"), ClosureID: "c1", CreatedAt: created}
		require.NoError(t, store.SaveAbsence(ctx, vacation))

		dup := vacation
		dup.ID = "a2"
		assert.ErrorIs(t, store.SaveAbsence(ctx, dup), generic.ErrDuplicate)

		sick := worktime.Absence{ID: "a3", EmployeeID: "emp-1", Date: d, Type: worktime.AbsenceSick, Hours: generic.MustParseHours("7.7"), CreatedAt: created}
		require.NoError(t, store.SaveAbsence(ctx, sick), "a different type on the same day is allowed")

		byClosure, err := store.ListAbsencesByClosure(ctx, "c1")
		require.NoError(t, err)
		require.Len(t, byClosure, 1)
		assert.Equal(t, "7.70", byClosure[0].Hours.String())

		inDecember, err := store.ListAbsences(ctx, "emp-1", generic.MonthPeriod(2026, time.December))
		require.NoError(t, err)
		assert.Len(t, inDecember, 2)

		closures, err := store.ListClosures(ctx, 2026)
		require.NoError(t, err)
		assert.Len(t, closures, 1)
		closures, err = store.ListClosures(ctx, 2027)
		require.NoError(t, err)
		assert.Empty(t, closures)
	})
}

func TestHolidays_RegionFilter(t *testing.T) {
	forEachDriver(t, func(t *testing.T, store *sqlite.Store) {
		ctx := context.Background()
		require.NoError(t, store.SaveHoliday(ctx, worktime.PublicHoliday{ID: "h1", Date: date(2026, time.January, 6), Name: "Heilige Drei Könige", Region: "BY"}))
		require.NoError(t, store.SaveHoliday(ctx, worktime.PublicHoliday{ID: "h2", Date: date(2026, time.October, 3), Name: "Tag der Deutschen Einheit"}))
		require.NoError(t, store.SaveHoliday(ctx, worktime.PublicHoliday{ID: "h3", Date: date(2026, time.October, 31), Name: "Reformationstag", Region: "SN"}))

		err := store.SaveHoliday(ctx, worktime.PublicHoliday{ID: "h4", Date: date(2026, time.January, 6), Name: "again", Region: "BY"})
		assert.ErrorIs(t, err, generic.ErrDuplicate)

		year := generic.YearPeriod(2026)
		bavaria, err := store.ListHolidays(ctx, "BY", year)
		require.NoError(t, err)
		assert.Len(t, bavaria, 2)

		all, err := store.ListHolidays(ctx, "", year)
		require.NoError(t, err)
		assert.Len(t, all, 3)
	})
}

// =============================================================================
// CHANGE REQUESTS
// =============================================================================

func TestChangeRequest_RoundTrip(t *testing.T) {
	forEachDriver(t, func(t *testing.T, store *sqlite.Store) {
		ctx := context.Background()
		seedEmployee(t, store, "emp-1")

		proposed := &worktime.EntryValues{Date: date(2026, time.March, 3), Start: generic.NewClockTime(8, 0), End: worktime.ClockPtr(generic.NewClockTime(16, 30)), BreakMinutes: 30}
		cr := worktime.ChangeRequest{
			ID: "cr1", EmployeeID: "emp-1", Type: worktime.ChangeCreate,
			Proposed: proposed, Reason: "forgot to book", Status: worktime.ChangePending,
			CreatedAt: created, UpdatedAt: created,
		}
		require.NoError(t, store.SaveChangeRequest(ctx, cr))

		got, err := store.GetChangeRequest(ctx, "cr1")
		require.NoError(t, err)
		require.NotNil(t, got.Proposed)
		assert.Equal(t, *proposed.End, *got.Proposed.End)
		assert.True(t, got.Proposed.Date.Equal(proposed.Date))
		assert.Nil(t, got.Original)
		assert.Nil(t, got.ReviewedAt)

		reviewed := created.Add(time.Hour)
		got.Status = worktime.ChangeApproved
		got.ReviewedBy = "admin-1"
		got.ReviewedAt = &reviewed
		got.TimeEntryID = "e9"
		require.NoError(t, store.SaveChangeRequest(ctx, got))

		pending, err := store.ListChangeRequests(ctx, "emp-1", worktime.ChangePending)
		require.NoError(t, err)
		assert.Empty(t, pending)

		all, err := store.ListChangeRequests(ctx, "", "")
		require.NoError(t, err)
		require.Len(t, all, 1)
		assert.Equal(t, generic.RecordID("e9"), all[0].TimeEntryID)
		assert.True(t, all[0].ReviewedAt.Equal(reviewed))

		require.NoError(t, store.DeleteChangeRequest(ctx, "cr1"))
		_, err = store.GetChangeRequest(ctx, "cr1")
		assert.True(t, generic.IsNotFound(err))
	})
}

// =============================================================================
// SNAPSHOTS & AUDIT
// =============================================================================

func TestLedgerSnapshot_MsgpackRoundTrip(t *testing.T) {
	forEachDriver(t, func(t *testing.T, store *sqlite.Store) {
		ctx := context.Background()
		anchor := date(2026, time.February, 1)
		snap := worktime.LedgerSnapshot{
			EmployeeID: "emp-1",
			Anchor:     &anchor,
			Months: []worktime.MonthlyBalance{{
				EmployeeID: "emp-1", Year: 2026, Month: time.February,
				Target: generic.MustParseHours("160"), Actual: generic.MustParseHours("170"),
				Balance: generic.MustParseHours("10"), Cumulative: generic.MustParseHours("10"),
			}},
			Vacation: []worktime.VacationAccount{{
				EmployeeID: "emp-1", Year: 2026, BudgetDays: 30,
				BudgetHours: generic.MustParseHours("240"), UsedHours: generic.MustParseHours("72"),
				RemainingHours: generic.MustParseHours("168"),
			}},
			ComputedAt: created,
		}
		require.NoError(t, store.SaveLedgerSnapshot(ctx, snap))

		got, err := store.GetLedgerSnapshot(ctx, "emp-1")
		require.NoError(t, err)
		require.NotNil(t, got.Anchor)
		assert.Equal(t, anchor, *got.Anchor)
		require.Len(t, got.Months, 1)
		assert.Equal(t, "10.00", got.Months[0].Cumulative.String())
		assert.Equal(t, time.February, got.Months[0].Month)
		require.Len(t, got.Vacation, 1)
		assert.Equal(t, "168.00", got.Vacation[0].RemainingHours.String())
		assert.True(t, got.ComputedAt.Equal(created))

		// saving again replaces the snapshot
		snap.Months[0].Cumulative = generic.MustParseHours("-4.25")
		require.NoError(t, store.SaveLedgerSnapshot(ctx, snap))
		got, err = store.GetLedgerSnapshot(ctx, "emp-1")
		require.NoError(t, err)
		assert.Equal(t, "-4.25", got.Months[0].Cumulative.String())

		_, err = store.GetLedgerSnapshot(ctx, "emp-2")
		assert.True(t, generic.IsNotFound(err))
	})
}

func TestAuditLog_AppendAndQuery(t *testing.T) {
	forEachDriver(t, func(t *testing.T, store *sqlite.Store) {
		ctx := context.Background()
		emp := generic.EmployeeID("emp-1")
		entries := []generic.AuditEntry{
			{ID: "log-1", Timestamp: created, ActorID: "emp-1", Action: generic.AuditEntryCreated, EmployeeID: emp, RecordID: "e1",
				Payload: map[string]any{"warnings": []string{"daily_extended"}}},
			{ID: "log-2", Timestamp: created.Add(time.Minute), ActorID: "admin-1", Action: generic.AuditChangeRequestApproved, EmployeeID: emp, RecordID: "cr1"},
			{ID: "log-3", Timestamp: created.Add(2 * time.Minute), ActorID: "admin-1", Action: generic.AuditHolidaysSynced},
		}
		for _, e := range entries {
			require.NoError(t, store.Append(ctx, e))
		}

		all, err := store.Query(ctx, generic.AuditFilter{})
		require.NoError(t, err)
		require.Len(t, all, 3)
		assert.Equal(t, "log-1", all[0].ID)
		assert.Equal(t, []any{"daily_extended"}, all[0].Payload["warnings"])

		byEmployee, err := store.Query(ctx, generic.AuditFilter{EmployeeID: &emp})
		require.NoError(t, err)
		assert.Len(t, byEmployee, 2)

		admin := "admin-1"
		from := created.Add(30 * time.Second)
		approved, err := store.Query(ctx, generic.AuditFilter{
			ActorID: &admin,
			From:    &from,
			Actions: []generic.AuditAction{generic.AuditChangeRequestApproved},
		})
		require.NoError(t, err)
		require.Len(t, approved, 1)
		assert.Equal(t, generic.RecordID("cr1"), approved[0].RecordID)
	})
}
