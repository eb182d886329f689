// Package memory provides an in-memory worktime.TxStore for tests and dev.
package memory

import (
	"context"
	"sort"
	"sync"

	"github.com/warp/worktime-engine/generic"
	"github.com/warp/worktime-engine/worktime"
)

// =============================================================================
// MEMORY STORE - In-memory implementation (for testing/dev)
// =============================================================================

// Store keeps every record in maps guarded by one RWMutex. WithTx works on
// a copy of the maps and swaps it in on success, so a failed transaction
// leaves nothing behind.
type Store struct {
	mu sync.RWMutex
	d  *data
}

type data struct {
	employees      map[generic.EmployeeID]worktime.Employee
	hoursChanges   map[generic.RecordID]worktime.WorkingHoursChange
	entries        map[generic.RecordID]worktime.TimeEntry
	absences       map[generic.RecordID]worktime.Absence
	closures       map[generic.RecordID]worktime.CompanyClosure
	holidays       map[generic.RecordID]worktime.PublicHoliday
	changeRequests map[generic.RecordID]worktime.ChangeRequest
	snapshots      map[generic.EmployeeID]worktime.LedgerSnapshot
	audit          []generic.AuditEntry
}

func New() *Store {
	return &Store{d: &data{
		employees:      make(map[generic.EmployeeID]worktime.Employee),
		hoursChanges:   make(map[generic.RecordID]worktime.WorkingHoursChange),
		entries:        make(map[generic.RecordID]worktime.TimeEntry),
		absences:       make(map[generic.RecordID]worktime.Absence),
		closures:       make(map[generic.RecordID]worktime.CompanyClosure),
		holidays:       make(map[generic.RecordID]worktime.PublicHoliday),
		changeRequests: make(map[generic.RecordID]worktime.ChangeRequest),
		snapshots:      make(map[generic.EmployeeID]worktime.LedgerSnapshot),
	}}
}

func cloneMap[K comparable, V any](m map[K]V) map[K]V {
	out := make(map[K]V, len(m))
	for k, v := range m {
		out[k] = v
	}
	return out
}

func (d *data) clone() *data {
	return &data{
		employees:      cloneMap(d.employees),
		hoursChanges:   cloneMap(d.hoursChanges),
		entries:        cloneMap(d.entries),
		absences:       cloneMap(d.absences),
		closures:       cloneMap(d.closures),
		holidays:       cloneMap(d.holidays),
		changeRequests: cloneMap(d.changeRequests),
		snapshots:      cloneMap(d.snapshots),
		audit:          append([]generic.AuditEntry(nil), d.audit...),
	}
}

// =============================================================================
// TRANSACTIONS
// =============================================================================

// WithTx runs fn against a private copy of the data. The write lock is held
// for the duration, so transactions are serialised.
func (s *Store) WithTx(ctx context.Context, fn func(worktime.Store) error) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	work := s.d.clone()
	if err := fn(&txView{d: work}); err != nil {
		return err
	}
	s.d = work
	return nil
}

// txView is the unlocked Store handed to WithTx callbacks.
type txView struct{ d *data }

func (s *Store) read(fn func(d *data) error) error {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return fn(s.d)
}

func (s *Store) write(fn func(d *data) error) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return fn(s.d)
}

// =============================================================================
// EMPLOYEES
// =============================================================================

func (d *data) saveEmployee(e worktime.Employee) error {
	d.employees[e.ID] = e
	return nil
}

func (d *data) getEmployee(id generic.EmployeeID) (worktime.Employee, error) {
	e, ok := d.employees[id]
	if !ok {
		return worktime.Employee{}, &generic.NotFoundError{Entity: "employee", ID: string(id)}
	}
	return e, nil
}

func (d *data) listEmployees(activeOnly bool) []worktime.Employee {
	out := []worktime.Employee{}
	for _, e := range d.employees {
		if activeOnly && !e.Active {
			continue
		}
		out = append(out, e)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out
}

// =============================================================================
// WORKING HOURS CHANGES
// =============================================================================

func (d *data) saveWorkingHoursChange(c worktime.WorkingHoursChange) error {
	for _, other := range d.hoursChanges {
		if other.ID != c.ID && other.EmployeeID == c.EmployeeID && other.EffectiveFrom.Equal(c.EffectiveFrom) {
			return &generic.DuplicateError{Entity: "working hours change", Key: c.EffectiveFrom.String()}
		}
	}
	d.hoursChanges[c.ID] = c
	return nil
}

func (d *data) getWorkingHoursChange(id generic.RecordID) (worktime.WorkingHoursChange, error) {
	c, ok := d.hoursChanges[id]
	if !ok {
		return worktime.WorkingHoursChange{}, &generic.NotFoundError{Entity: "working hours change", ID: string(id)}
	}
	return c, nil
}

func (d *data) deleteWorkingHoursChange(id generic.RecordID) error {
	if _, ok := d.hoursChanges[id]; !ok {
		return &generic.NotFoundError{Entity: "working hours change", ID: string(id)}
	}
	delete(d.hoursChanges, id)
	return nil
}

func (d *data) listWorkingHoursChanges(emp generic.EmployeeID) []worktime.WorkingHoursChange {
	out := []worktime.WorkingHoursChange{}
	for _, c := range d.hoursChanges {
		if c.EmployeeID == emp {
			out = append(out, c)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].EffectiveFrom.Before(out[j].EffectiveFrom) })
	return out
}

// =============================================================================
// TIME ENTRIES
// =============================================================================

func (d *data) saveTimeEntry(e worktime.TimeEntry) error {
	d.entries[e.ID] = e
	return nil
}

func (d *data) getTimeEntry(id generic.RecordID) (worktime.TimeEntry, error) {
	e, ok := d.entries[id]
	if !ok {
		return worktime.TimeEntry{}, &generic.NotFoundError{Entity: "time entry", ID: string(id)}
	}
	return e, nil
}

func (d *data) deleteTimeEntry(id generic.RecordID) error {
	if _, ok := d.entries[id]; !ok {
		return &generic.NotFoundError{Entity: "time entry", ID: string(id)}
	}
	delete(d.entries, id)
	return nil
}

func (d *data) listTimeEntries(emp generic.EmployeeID, p generic.Period) []worktime.TimeEntry {
	out := []worktime.TimeEntry{}
	for _, e := range d.entries {
		if e.EmployeeID == emp && p.Contains(e.Date) {
			out = append(out, e)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].Date.Equal(out[j].Date) {
			return out[i].Date.Before(out[j].Date)
		}
		return out[i].Start < out[j].Start
	})
	return out
}

func (d *data) firstTimeEntryDate(emp generic.EmployeeID) (generic.Date, bool) {
	var first generic.Date
	found := false
	for _, e := range d.entries {
		if e.EmployeeID == emp && (!found || e.Date.Before(first)) {
			first, found = e.Date, true
		}
	}
	return first, found
}

// =============================================================================
// ABSENCES
// =============================================================================

func (d *data) saveAbsence(a worktime.Absence) error {
	for _, other := range d.absences {
		if other.ID != a.ID && other.EmployeeID == a.EmployeeID && other.Type == a.Type && other.Date.Equal(a.Date) {
			return &generic.DuplicateError{Entity: "absence", Key: string(a.Type) + " on " + a.Date.String()}
		}
	}
	d.absences[a.ID] = a
	return nil
}

func (d *data) getAbsence(id generic.RecordID) (worktime.Absence, error) {
	a, ok := d.absences[id]
	if !ok {
		return worktime.Absence{}, &generic.NotFoundError{Entity: "absence", ID: string(id)}
	}
	return a, nil
}

func (d *data) deleteAbsence(id generic.RecordID) error {
	if _, ok := d.absences[id]; !ok {
		return &generic.NotFoundError{Entity: "absence", ID: string(id)}
	}
	delete(d.absences, id)
	return nil
}

func sortAbsences(out []worktime.Absence) {
	sort.Slice(out, func(i, j int) bool {
		if !out[i].Date.Equal(out[j].Date) {
			return out[i].Date.Before(out[j].Date)
		}
		return out[i].Type < out[j].Type
	})
}

func (d *data) listAbsences(emp generic.EmployeeID, p generic.Period) []worktime.Absence {
	out := []worktime.Absence{}
	for _, a := range d.absences {
		if a.EmployeeID == emp && p.Contains(a.Date) {
			out = append(out, a)
		}
	}
	sortAbsences(out)
	return out
}

func (d *data) listAbsencesByClosure(closureID generic.RecordID) []worktime.Absence {
	out := []worktime.Absence{}
	for _, a := range d.absences {
		if a.ClosureID == closureID {
			out = append(out, a)
		}
	}
	sortAbsences(out)
	return out
}

// =============================================================================
// CLOSURES & HOLIDAYS
// =============================================================================

func (d *data) getClosure(id generic.RecordID) (worktime.CompanyClosure, error) {
	c, ok := d.closures[id]
	if !ok {
		return worktime.CompanyClosure{}, &generic.NotFoundError{Entity: "company closure", ID: string(id)}
	}
	return c, nil
}

func (d *data) deleteClosure(id generic.RecordID) error {
	if _, ok := d.closures[id]; !ok {
		return &generic.NotFoundError{Entity: "company closure", ID: string(id)}
	}
	delete(d.closures, id)
	return nil
}

func (d *data) listClosures(year int) []worktime.CompanyClosure {
	out := []worktime.CompanyClosure{}
	yp := generic.YearPeriod(year)
	for _, c := range d.closures {
		if year == 0 || c.Period().Overlaps(yp) {
			out = append(out, c)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].StartDate.Before(out[j].StartDate) })
	return out
}

func (d *data) saveHoliday(h worktime.PublicHoliday) error {
	for _, other := range d.holidays {
		if other.ID != h.ID && other.Region == h.Region && other.Date.Equal(h.Date) {
			return &generic.DuplicateError{Entity: "public holiday", Key: h.Region + " " + h.Date.String()}
		}
	}
	d.holidays[h.ID] = h
	return nil
}

func (d *data) deleteHoliday(id generic.RecordID) error {
	if _, ok := d.holidays[id]; !ok {
		return &generic.NotFoundError{Entity: "public holiday", ID: string(id)}
	}
	delete(d.holidays, id)
	return nil
}

func (d *data) listHolidays(region string, p generic.Period) []worktime.PublicHoliday {
	out := []worktime.PublicHoliday{}
	for _, h := range d.holidays {
		if (h.Region == region || h.Region == "" || region == "") && p.Contains(h.Date) {
			out = append(out, h)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Date.Before(out[j].Date) })
	return out
}

// =============================================================================
// CHANGE REQUESTS
// =============================================================================

func (d *data) getChangeRequest(id generic.RecordID) (worktime.ChangeRequest, error) {
	cr, ok := d.changeRequests[id]
	if !ok {
		return worktime.ChangeRequest{}, &generic.NotFoundError{Entity: "change request", ID: string(id)}
	}
	return cr, nil
}

func (d *data) deleteChangeRequest(id generic.RecordID) error {
	if _, ok := d.changeRequests[id]; !ok {
		return &generic.NotFoundError{Entity: "change request", ID: string(id)}
	}
	delete(d.changeRequests, id)
	return nil
}

func (d *data) listChangeRequests(emp generic.EmployeeID, status worktime.ChangeRequestStatus) []worktime.ChangeRequest {
	out := []worktime.ChangeRequest{}
	for _, cr := range d.changeRequests {
		if (emp == "" || cr.EmployeeID == emp) && (status == "" || cr.Status == status) {
			out = append(out, cr)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.Before(out[j].CreatedAt) })
	return out
}

// =============================================================================
// AUDIT & SNAPSHOTS
// =============================================================================

func (d *data) appendAudit(e generic.AuditEntry) error {
	d.audit = append(d.audit, e)
	return nil
}

func (d *data) queryAudit(f generic.AuditFilter) []generic.AuditEntry {
	out := []generic.AuditEntry{}
	for _, e := range d.audit {
		if f.Matches(e) {
			out = append(out, e)
		}
	}
	return out
}

func (d *data) getSnapshot(emp generic.EmployeeID) (worktime.LedgerSnapshot, error) {
	s, ok := d.snapshots[emp]
	if !ok {
		return worktime.LedgerSnapshot{}, &generic.NotFoundError{Entity: "ledger snapshot", ID: string(emp)}
	}
	return s, nil
}

func (d *data) saveClosure(c worktime.CompanyClosure) error {
	d.closures[c.ID] = c
	return nil
}

func (d *data) saveChangeRequest(cr worktime.ChangeRequest) error {
	d.changeRequests[cr.ID] = cr
	return nil
}

func (d *data) saveSnapshot(s worktime.LedgerSnapshot) error {
	d.snapshots[s.EmployeeID] = s
	return nil
}
