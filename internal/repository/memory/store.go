// Package memory is an in-process implementation of the repositories, used by
// tests and by DB_DRIVER=memory for local runs.
package memory

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/cmlabs-hris/attendance-engine/internal/domain/attendance"
	"github.com/cmlabs-hris/attendance-engine/internal/domain/employee"
	"github.com/cmlabs-hris/attendance-engine/internal/domain/geofence"
	"github.com/cmlabs-hris/attendance-engine/internal/domain/schedule"
	"github.com/cmlabs-hris/attendance-engine/internal/fixtures"
	"github.com/google/uuid"
)

const dateLayout = "2006-01-02"

type recordKey struct {
	employeeID string
	workDate   string
	index      int
}

// Store keeps every entity in maps guarded by one mutex.
type Store struct {
	mu        sync.RWMutex
	records   map[recordKey]attendance.Record
	schedules map[string][]schedule.WeeklyConfig
	policies  map[string]schedule.TolerancePolicy
	zones     []geofence.GeoZone
	employees map[string]employee.Employee
	now       func() time.Time
}

func NewStore() *Store {
	return &Store{
		records:   make(map[recordKey]attendance.Record),
		schedules: make(map[string][]schedule.WeeklyConfig),
		policies:  make(map[string]schedule.TolerancePolicy),
		employees: make(map[string]employee.Employee),
		now:       time.Now,
	}
}

// ========================================
// SEEDING
// ========================================

func (s *Store) PutEmployee(e employee.Employee) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.employees[e.ID] = e
}

// PutSchedule adds a weekly configuration; the latest one effective on a date wins.
func (s *Store) PutSchedule(cfg schedule.WeeklyConfig) {
	s.mu.Lock()
	defer s.mu.Unlock()
	list := append(s.schedules[cfg.EmployeeID], cfg)
	sort.SliceStable(list, func(i, j int) bool {
		return list[i].EffectiveFrom.Before(list[j].EffectiveFrom)
	})
	s.schedules[cfg.EmployeeID] = list
}

func (s *Store) PutTolerancePolicy(employeeID string, p schedule.TolerancePolicy) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.policies[employeeID] = p
}

func (s *Store) PutZone(z geofence.GeoZone) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.zones = append(s.zones, z)
}

// Seed loads a fixture document (see package fixtures).
func (s *Store) Seed(data []byte) error {
	fx, err := fixtures.Parse(data)
	if err != nil {
		return err
	}
	for _, e := range fx.Employees {
		s.PutEmployee(employee.Employee{ID: e.ID, FullName: e.FullName, PINHash: e.PINHash, Active: e.Active})
		for _, sch := range e.Schedules {
			from, _ := sch.Effective()
			s.PutSchedule(schedule.WeeklyConfig{EmployeeID: e.ID, EffectiveFrom: from, Document: sch.Document})
		}
		if p := fx.TolerancePolicy(e); p != nil {
			s.PutTolerancePolicy(e.ID, *p)
		}
	}
	for _, z := range fx.Zones {
		s.PutZone(geofence.GeoZone{DepartmentID: z.DepartmentID, DepartmentName: z.DepartmentName, Polygon: z.Polygon})
	}
	return nil
}

// ========================================
// attendance.RecordRepository
// ========================================

// ListByEmployeeAndDate implements attendance.RecordRepository.
func (s *Store) ListByEmployeeAndDate(ctx context.Context, employeeID string, workDate time.Time) ([]attendance.Record, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	day := workDate.Format(dateLayout)
	var out []attendance.Record
	for k, r := range s.records {
		if k.employeeID == employeeID && k.workDate == day {
			out = append(out, r)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		return out[i].DayRecordIndex > out[j].DayRecordIndex
	})
	return out, nil
}

// InsertIfAbsent implements attendance.RecordRepository.
func (s *Store) InsertIfAbsent(ctx context.Context, record attendance.Record) (attendance.Record, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	key := recordKey{record.EmployeeID, record.WorkDate.Format(dateLayout), record.DayRecordIndex}
	if _, exists := s.records[key]; exists {
		return attendance.Record{}, attendance.ErrRecordExists
	}

	if record.ID == "" {
		id, err := uuid.NewV7()
		if err != nil {
			return attendance.Record{}, err
		}
		record.ID = id.String()
	}
	record.CreatedAt = s.now()
	s.records[key] = record
	return record, nil
}

// ListOpenEntries implements attendance.RecordRepository.
func (s *Store) ListOpenEntries(ctx context.Context, workDate time.Time) ([]attendance.Record, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	day := workDate.Format(dateLayout)
	latest := make(map[string]attendance.Record)
	for k, r := range s.records {
		if k.workDate != day {
			continue
		}
		if cur, ok := latest[k.employeeID]; !ok || r.DayRecordIndex > cur.DayRecordIndex {
			latest[k.employeeID] = r
		}
	}

	var out []attendance.Record
	for _, r := range latest {
		if r.Type == attendance.ActionEntrada {
			out = append(out, r)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		return out[i].EmployeeID < out[j].EmployeeID
	})
	return out, nil
}

// ========================================
// schedule.ScheduleRepository
// ========================================

// GetWeeklyConfig implements schedule.ScheduleRepository.
func (s *Store) GetWeeklyConfig(ctx context.Context, employeeID string, date time.Time) (schedule.WeeklyConfig, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	list := s.schedules[employeeID]
	for i := len(list) - 1; i >= 0; i-- {
		if !list[i].EffectiveFrom.After(date) {
			return list[i], nil
		}
	}
	return schedule.WeeklyConfig{}, schedule.ErrScheduleNotFound
}

// GetTolerancePolicy implements schedule.ScheduleRepository.
func (s *Store) GetTolerancePolicy(ctx context.Context, employeeID string) (*schedule.TolerancePolicy, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	p, ok := s.policies[employeeID]
	if !ok {
		return nil, nil
	}
	return &p, nil
}

// ========================================
// geofence.ZoneRepository
// ========================================

// ListZones implements geofence.ZoneRepository.
func (s *Store) ListZones(ctx context.Context) ([]geofence.GeoZone, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]geofence.GeoZone(nil), s.zones...), nil
}

// ========================================
// employee.EmployeeRepository
// ========================================

// GetByID implements employee.EmployeeRepository.
func (s *Store) GetByID(ctx context.Context, id string) (employee.Employee, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	e, ok := s.employees[id]
	if !ok {
		return employee.Employee{}, employee.ErrEmployeeNotFound
	}
	return e, nil
}

var (
	_ attendance.RecordRepository = (*Store)(nil)
	_ schedule.ScheduleRepository = (*Store)(nil)
	_ geofence.ZoneRepository     = (*Store)(nil)
	_ employee.EmployeeRepository = (*Store)(nil)
)
