package service

import (
	"context"
	"fmt"
	"time"

	"github.com/warp/worktime-engine/generic"
	"github.com/warp/worktime-engine/worktime"
)

// =============================================================================
// TARGETS
// =============================================================================

// DailyTarget returns the employee's target hours for d.
func (e *Engine) DailyTarget(ctx context.Context, actor Actor, emp generic.EmployeeID, d generic.Date) (generic.Hours, error) {
	return e.TargetHours(ctx, actor, emp, generic.Period{Start: d, End: d})
}

// TargetHours returns the employee's target hours summed over p.
func (e *Engine) TargetHours(ctx context.Context, actor Actor, emp generic.EmployeeID, p generic.Period) (generic.Hours, error) {
	if err := requireAccess(actor, emp); err != nil {
		return generic.Hours{}, err
	}
	if err := p.Validate(); err != nil {
		return generic.Hours{}, err
	}
	employee, err := e.store.GetEmployee(ctx, emp)
	if err != nil {
		return generic.Hours{}, err
	}
	sched, _, err := e.schedule(ctx, e.store, employee, p)
	if err != nil {
		return generic.Hours{}, err
	}
	return sched.PeriodTarget(p), nil
}

// =============================================================================
// BALANCES
// =============================================================================

// anchor returns the employee's balance anchor; when none is stored yet it
// falls back to the month of the first entry.
func (e *Engine) anchor(ctx context.Context, tx worktime.Store, emp worktime.Employee) (*generic.Date, error) {
	if emp.BalanceAnchor != nil {
		a := *emp.BalanceAnchor
		return &a, nil
	}
	first, ok, err := tx.FirstTimeEntryDate(ctx, emp.ID)
	if err != nil || !ok {
		return nil, err
	}
	a := generic.StartOfMonth(first.Year(), first.Month())
	return &a, nil
}

// ledgerInput loads everything ComputeMonths needs for [from, to].
func (e *Engine) ledgerInput(ctx context.Context, tx worktime.Store, emp worktime.Employee, from, to generic.YearMonth) (worktime.LedgerInput, error) {
	anchor, err := e.anchor(ctx, tx, emp)
	if err != nil {
		return worktime.LedgerInput{}, err
	}
	start := from.Period().Start
	if anchor != nil && anchor.Before(start) {
		start = *anchor
	}
	// vacation accounts read whole years
	start = generic.MinDate(start, generic.StartOfYear(from.Year))
	end := generic.MaxDate(to.Period().End, generic.EndOfYear(to.Year))
	span := generic.Period{Start: start, End: end}

	sched, absences, err := e.schedule(ctx, tx, emp, span)
	if err != nil {
		return worktime.LedgerInput{}, err
	}
	entries, err := tx.ListTimeEntries(ctx, emp.ID, span)
	if err != nil {
		return worktime.LedgerInput{}, err
	}
	return worktime.LedgerInput{Schedule: sched, Entries: entries, Absences: absences, Anchor: anchor}, nil
}

// MonthlyBalance returns target, actual, balance and cumulative balance for
// one month, computed from primary data.
func (e *Engine) MonthlyBalance(ctx context.Context, actor Actor, emp generic.EmployeeID, year int, month time.Month) (worktime.MonthlyBalance, error) {
	months, err := e.Balances(ctx, actor, emp, generic.YearMonth{Year: year, Month: month}, generic.YearMonth{Year: year, Month: month})
	if err != nil {
		return worktime.MonthlyBalance{}, err
	}
	return months[0], nil
}

// Balances returns the monthly balances for every month in [from, to].
func (e *Engine) Balances(ctx context.Context, actor Actor, emp generic.EmployeeID, from, to generic.YearMonth) ([]worktime.MonthlyBalance, error) {
	if err := requireAccess(actor, emp); err != nil {
		return nil, err
	}
	if to.Before(from) {
		return nil, fmt.Errorf("%w: %s > %s", generic.ErrInvalidPeriod, from, to)
	}
	if month := from.Month; month < time.January || month > time.December {
		return nil, &generic.ValidationError{Field: "month", Reason: "must be between 1 and 12"}
	}
	if err := (generic.Period{Start: from.Period().Start, End: to.Period().End}).Validate(); err != nil {
		return nil, err
	}
	employee, err := e.store.GetEmployee(ctx, emp)
	if err != nil {
		return nil, err
	}
	in, err := e.ledgerInput(ctx, e.store, employee, from, to)
	if err != nil {
		return nil, err
	}
	return worktime.ComputeMonths(in, from, to), nil
}

// VacationAccount returns the vacation budget and usage for a year.
func (e *Engine) VacationAccount(ctx context.Context, actor Actor, emp generic.EmployeeID, year int) (worktime.VacationAccount, error) {
	if err := requireAccess(actor, emp); err != nil {
		return worktime.VacationAccount{}, err
	}
	employee, err := e.store.GetEmployee(ctx, emp)
	if err != nil {
		return worktime.VacationAccount{}, err
	}
	ym := generic.YearMonth{Year: year, Month: time.January}
	in, err := e.ledgerInput(ctx, e.store, employee, ym, ym)
	if err != nil {
		return worktime.VacationAccount{}, err
	}
	return worktime.ComputeVacation(in, year), nil
}

// =============================================================================
// RECOMPUTATION
// =============================================================================

// RecomputeLedger recomputes the employee's ledger from the anchor through
// the end of p (at least through the current month), stores it as the
// employee's snapshot and returns it. Running it twice without intervening
// writes yields the same figures.
func (e *Engine) RecomputeLedger(ctx context.Context, emp generic.EmployeeID, p generic.Period) (worktime.LedgerSnapshot, error) {
	if err := p.Validate(); err != nil {
		return worktime.LedgerSnapshot{}, err
	}
	employee, err := e.store.GetEmployee(ctx, emp)
	if err != nil {
		return worktime.LedgerSnapshot{}, err
	}
	to := generic.YearMonthOf(generic.MaxDate(p.End, e.Today()))
	from := generic.YearMonthOf(p.Start)

	in, err := e.ledgerInput(ctx, e.store, employee, from, to)
	if err != nil {
		return worktime.LedgerSnapshot{}, err
	}
	if in.Anchor != nil && generic.YearMonthOf(*in.Anchor).Before(from) {
		from = generic.YearMonthOf(*in.Anchor)
	}
	snap := worktime.ComputeLedger(in, from, to, e.now())
	if e.snapshots != nil {
		if err := e.snapshots.SaveLedgerSnapshot(ctx, snap); err != nil {
			return worktime.LedgerSnapshot{}, fmt.Errorf("save ledger snapshot: %w", err)
		}
	}
	return snap, nil
}

// LedgerSnapshot returns the last stored snapshot.
func (e *Engine) LedgerSnapshot(ctx context.Context, actor Actor, emp generic.EmployeeID) (worktime.LedgerSnapshot, error) {
	if err := requireAccess(actor, emp); err != nil {
		return worktime.LedgerSnapshot{}, err
	}
	if e.snapshots == nil {
		return worktime.LedgerSnapshot{}, &generic.NotFoundError{Entity: "ledger snapshot", ID: string(emp)}
	}
	return e.snapshots.GetLedgerSnapshot(ctx, emp)
}

// refreshLedger recomputes the snapshot after a committed write. Snapshots
// cover the whole account, so every month after the change is refreshed.
func (e *Engine) refreshLedger(ctx context.Context, emp generic.EmployeeID) {
	if e.snapshots == nil {
		return
	}
	today := e.Today()
	if _, err := e.RecomputeLedger(ctx, emp, generic.Period{Start: today, End: today}); err != nil {
		e.log.Error().Err(err).Str("employee_id", string(emp)).Msg("ledger recompute failed")
	}
}

// RefreshAllLedgers recomputes the snapshots of every active employee.
// It returns the number refreshed and the first error encountered.
func (e *Engine) RefreshAllLedgers(ctx context.Context) (int, error) {
	employees, err := e.store.ListEmployees(ctx, true)
	if err != nil {
		return 0, err
	}
	today := e.Today()
	var firstErr error
	n := 0
	for _, emp := range employees {
		if _, err := e.RecomputeLedger(ctx, emp.ID, generic.Period{Start: today, End: today}); err != nil {
			e.log.Error().Err(err).Str("employee_id", string(emp.ID)).Msg("ledger recompute failed")
			if firstErr == nil {
				firstErr = err
			}
			continue
		}
		n++
	}
	return n, firstErr
}
