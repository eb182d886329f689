package memory

import (
	"context"

	"github.com/warp/worktime-engine/generic"
	"github.com/warp/worktime-engine/worktime"
)

// =============================================================================
// LOCKED ACCESSORS - Store methods take the lock; txView methods run under
// the lock WithTx already holds.
// =============================================================================

func (s *Store) SaveEmployee(_ context.Context, e worktime.Employee) error {
	return s.write(func(d *data) error { return d.saveEmployee(e) })
}

func (s *Store) GetEmployee(_ context.Context, id generic.EmployeeID) (worktime.Employee, error) {
	var out worktime.Employee
	err := s.read(func(d *data) (err error) {
		out, err = d.getEmployee(id)
		return err
	})
	return out, err
}

func (s *Store) ListEmployees(_ context.Context, activeOnly bool) ([]worktime.Employee, error) {
	var out []worktime.Employee
	_ = s.read(func(d *data) error {
		out = d.listEmployees(activeOnly)
		return nil
	})
	return out, nil
}

func (s *Store) SaveWorkingHoursChange(_ context.Context, c worktime.WorkingHoursChange) error {
	return s.write(func(d *data) error { return d.saveWorkingHoursChange(c) })
}

func (s *Store) DeleteWorkingHoursChange(_ context.Context, id generic.RecordID) error {
	return s.write(func(d *data) error { return d.deleteWorkingHoursChange(id) })
}

func (s *Store) GetWorkingHoursChange(_ context.Context, id generic.RecordID) (worktime.WorkingHoursChange, error) {
	var out worktime.WorkingHoursChange
	err := s.read(func(d *data) (err error) {
		out, err = d.getWorkingHoursChange(id)
		return err
	})
	return out, err
}

func (s *Store) ListWorkingHoursChanges(_ context.Context, employeeID generic.EmployeeID) ([]worktime.WorkingHoursChange, error) {
	var out []worktime.WorkingHoursChange
	_ = s.read(func(d *data) error {
		out = d.listWorkingHoursChanges(employeeID)
		return nil
	})
	return out, nil
}

func (s *Store) SaveTimeEntry(_ context.Context, e worktime.TimeEntry) error {
	return s.write(func(d *data) error { return d.saveTimeEntry(e) })
}

func (s *Store) DeleteTimeEntry(_ context.Context, id generic.RecordID) error {
	return s.write(func(d *data) error { return d.deleteTimeEntry(id) })
}

func (s *Store) GetTimeEntry(_ context.Context, id generic.RecordID) (worktime.TimeEntry, error) {
	var out worktime.TimeEntry
	err := s.read(func(d *data) (err error) {
		out, err = d.getTimeEntry(id)
		return err
	})
	return out, err
}

func (s *Store) ListTimeEntries(_ context.Context, employeeID generic.EmployeeID, period generic.Period) ([]worktime.TimeEntry, error) {
	var out []worktime.TimeEntry
	_ = s.read(func(d *data) error {
		out = d.listTimeEntries(employeeID, period)
		return nil
	})
	return out, nil
}

func (s *Store) SaveAbsence(_ context.Context, a worktime.Absence) error {
	return s.write(func(d *data) error { return d.saveAbsence(a) })
}

func (s *Store) DeleteAbsence(_ context.Context, id generic.RecordID) error {
	return s.write(func(d *data) error { return d.deleteAbsence(id) })
}

func (s *Store) GetAbsence(_ context.Context, id generic.RecordID) (worktime.Absence, error) {
	var out worktime.Absence
	err := s.read(func(d *data) (err error) {
		out, err = d.getAbsence(id)
		return err
	})
	return out, err
}

func (s *Store) ListAbsences(_ context.Context, employeeID generic.EmployeeID, period generic.Period) ([]worktime.Absence, error) {
	var out []worktime.Absence
	_ = s.read(func(d *data) error {
		out = d.listAbsences(employeeID, period)
		return nil
	})
	return out, nil
}

func (s *Store) ListAbsencesByClosure(_ context.Context, closureID generic.RecordID) ([]worktime.Absence, error) {
	var out []worktime.Absence
	_ = s.read(func(d *data) error {
		out = d.listAbsencesByClosure(closureID)
		return nil
	})
	return out, nil
}

func (s *Store) SaveClosure(_ context.Context, c worktime.CompanyClosure) error {
	return s.write(func(d *data) error { return d.saveClosure(c) })
}

func (s *Store) DeleteClosure(_ context.Context, id generic.RecordID) error {
	return s.write(func(d *data) error { return d.deleteClosure(id) })
}

func (s *Store) GetClosure(_ context.Context, id generic.RecordID) (worktime.CompanyClosure, error) {
	var out worktime.CompanyClosure
	err := s.read(func(d *data) (err error) {
		out, err = d.getClosure(id)
		return err
	})
	return out, err
}

func (s *Store) ListClosures(_ context.Context, year int) ([]worktime.CompanyClosure, error) {
	var out []worktime.CompanyClosure
	_ = s.read(func(d *data) error {
		out = d.listClosures(year)
		return nil
	})
	return out, nil
}

func (s *Store) SaveHoliday(_ context.Context, h worktime.PublicHoliday) error {
	return s.write(func(d *data) error { return d.saveHoliday(h) })
}

func (s *Store) DeleteHoliday(_ context.Context, id generic.RecordID) error {
	return s.write(func(d *data) error { return d.deleteHoliday(id) })
}

func (s *Store) ListHolidays(_ context.Context, region string, period generic.Period) ([]worktime.PublicHoliday, error) {
	var out []worktime.PublicHoliday
	_ = s.read(func(d *data) error {
		out = d.listHolidays(region, period)
		return nil
	})
	return out, nil
}

func (s *Store) SaveChangeRequest(_ context.Context, cr worktime.ChangeRequest) error {
	return s.write(func(d *data) error { return d.saveChangeRequest(cr) })
}

func (s *Store) DeleteChangeRequest(_ context.Context, id generic.RecordID) error {
	return s.write(func(d *data) error { return d.deleteChangeRequest(id) })
}

func (s *Store) GetChangeRequest(_ context.Context, id generic.RecordID) (worktime.ChangeRequest, error) {
	var out worktime.ChangeRequest
	err := s.read(func(d *data) (err error) {
		out, err = d.getChangeRequest(id)
		return err
	})
	return out, err
}

func (s *Store) ListChangeRequests(_ context.Context, employeeID generic.EmployeeID, status worktime.ChangeRequestStatus) ([]worktime.ChangeRequest, error) {
	var out []worktime.ChangeRequest
	_ = s.read(func(d *data) error {
		out = d.listChangeRequests(employeeID, status)
		return nil
	})
	return out, nil
}

func (s *Store) Append(_ context.Context, entry generic.AuditEntry) error {
	return s.write(func(d *data) error { return d.appendAudit(entry) })
}

func (s *Store) Query(_ context.Context, filter generic.AuditFilter) ([]generic.AuditEntry, error) {
	var out []generic.AuditEntry
	_ = s.read(func(d *data) error {
		out = d.queryAudit(filter)
		return nil
	})
	return out, nil
}

func (s *Store) SaveLedgerSnapshot(_ context.Context, snap worktime.LedgerSnapshot) error {
	return s.write(func(d *data) error { return d.saveSnapshot(snap) })
}

func (s *Store) GetLedgerSnapshot(_ context.Context, employeeID generic.EmployeeID) (worktime.LedgerSnapshot, error) {
	var out worktime.LedgerSnapshot
	err := s.read(func(d *data) (err error) {
		out, err = d.getSnapshot(employeeID)
		return err
	})
	return out, err
}

func (s *Store) FirstTimeEntryDate(_ context.Context, employeeID generic.EmployeeID) (generic.Date, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	d, ok := s.d.firstTimeEntryDate(employeeID)
	return d, ok, nil
}

// =============================================================================
// TRANSACTION VIEW
// =============================================================================

func (t *txView) SaveEmployee(_ context.Context, e worktime.Employee) error { return t.d.saveEmployee(e) }

func (t *txView) GetEmployee(_ context.Context, id generic.EmployeeID) (worktime.Employee, error) { return t.d.getEmployee(id) }

func (t *txView) ListEmployees(_ context.Context, activeOnly bool) ([]worktime.Employee, error) { return t.d.listEmployees(activeOnly), nil }

func (t *txView) SaveWorkingHoursChange(_ context.Context, c worktime.WorkingHoursChange) error { return t.d.saveWorkingHoursChange(c) }

func (t *txView) DeleteWorkingHoursChange(_ context.Context, id generic.RecordID) error { return t.d.deleteWorkingHoursChange(id) }

func (t *txView) GetWorkingHoursChange(_ context.Context, id generic.RecordID) (worktime.WorkingHoursChange, error) { return t.d.getWorkingHoursChange(id) }

func (t *txView) ListWorkingHoursChanges(_ context.Context, employeeID generic.EmployeeID) ([]worktime.WorkingHoursChange, error) { return t.d.listWorkingHoursChanges(employeeID), nil }

func (t *txView) SaveTimeEntry(_ context.Context, e worktime.TimeEntry) error { return t.d.saveTimeEntry(e) }

func (t *txView) DeleteTimeEntry(_ context.Context, id generic.RecordID) error { return t.d.deleteTimeEntry(id) }

func (t *txView) GetTimeEntry(_ context.Context, id generic.RecordID) (worktime.TimeEntry, error) { return t.d.getTimeEntry(id) }

func (t *txView) ListTimeEntries(_ context.Context, employeeID generic.EmployeeID, period generic.Period) ([]worktime.TimeEntry, error) { return t.d.listTimeEntries(employeeID, period), nil }

func (t *txView) SaveAbsence(_ context.Context, a worktime.Absence) error { return t.d.saveAbsence(a) }

func (t *txView) DeleteAbsence(_ context.Context, id generic.RecordID) error { return t.d.deleteAbsence(id) }

func (t *txView) GetAbsence(_ context.Context, id generic.RecordID) (worktime.Absence, error) { return t.d.getAbsence(id) }

func (t *txView) ListAbsences(_ context.Context, employeeID generic.EmployeeID, period generic.Period) ([]worktime.Absence, error) { return t.d.listAbsences(employeeID, period), nil }

func (t *txView) ListAbsencesByClosure(_ context.Context, closureID generic.RecordID) ([]worktime.Absence, error) { return t.d.listAbsencesByClosure(closureID), nil }

func (t *txView) SaveClosure(_ context.Context, c worktime.CompanyClosure) error { return t.d.saveClosure(c) }

func (t *txView) DeleteClosure(_ context.Context, id generic.RecordID) error { return t.d.deleteClosure(id) }

func (t *txView) GetClosure(_ context.Context, id generic.RecordID) (worktime.CompanyClosure, error) { return t.d.getClosure(id) }

func (t *txView) ListClosures(_ context.Context, year int) ([]worktime.CompanyClosure, error) { return t.d.listClosures(year), nil }

func (t *txView) SaveHoliday(_ context.Context, h worktime.PublicHoliday) error { return t.d.saveHoliday(h) }

func (t *txView) DeleteHoliday(_ context.Context, id generic.RecordID) error { return t.d.deleteHoliday(id) }

func (t *txView) ListHolidays(_ context.Context, region string, period generic.Period) ([]worktime.PublicHoliday, error) { return t.d.listHolidays(region, period), nil }

func (t *txView) SaveChangeRequest(_ context.Context, cr worktime.ChangeRequest) error { return t.d.saveChangeRequest(cr) }

func (t *txView) DeleteChangeRequest(_ context.Context, id generic.RecordID) error { return t.d.deleteChangeRequest(id) }

func (t *txView) GetChangeRequest(_ context.Context, id generic.RecordID) (worktime.ChangeRequest, error) { return t.d.getChangeRequest(id) }

func (t *txView) ListChangeRequests(_ context.Context, employeeID generic.EmployeeID, status worktime.ChangeRequestStatus) ([]worktime.ChangeRequest, error) { return t.d.listChangeRequests(employeeID, status), nil }

func (t *txView) Append(_ context.Context, entry generic.AuditEntry) error { return t.d.appendAudit(entry) }

func (t *txView) Query(_ context.Context, filter generic.AuditFilter) ([]generic.AuditEntry, error) { return t.d.queryAudit(filter), nil }

func (t *txView) SaveLedgerSnapshot(_ context.Context, snap worktime.LedgerSnapshot) error { return t.d.saveSnapshot(snap) }

func (t *txView) GetLedgerSnapshot(_ context.Context, employeeID generic.EmployeeID) (worktime.LedgerSnapshot, error) { return t.d.getSnapshot(employeeID) }

func (t *txView) FirstTimeEntryDate(_ context.Context, employeeID generic.EmployeeID) (generic.Date, bool, error) {
	d, ok := t.d.firstTimeEntryDate(employeeID)
	return d, ok, nil
}

var (
	_ worktime.TxStore       = (*Store)(nil)
	_ worktime.SnapshotStore = (*Store)(nil)
	_ generic.AuditLog       = (*Store)(nil)
	_ worktime.Store         = (*txView)(nil)
	_ generic.AuditLog       = (*txView)(nil)
)
