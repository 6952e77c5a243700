package attendance

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/cmlabs-hris/attendance-engine/internal/domain/attendance"
	"github.com/cmlabs-hris/attendance-engine/internal/domain/employee"
	"github.com/cmlabs-hris/attendance-engine/internal/domain/geofence"
	"github.com/cmlabs-hris/attendance-engine/internal/pkg/credential"
	"github.com/cmlabs-hris/attendance-engine/internal/pkg/metrics"
	"github.com/cmlabs-hris/attendance-engine/internal/service/eligibility"
	geofenceservice "github.com/cmlabs-hris/attendance-engine/internal/service/geofence"
	scheduleservice "github.com/cmlabs-hris/attendance-engine/internal/service/schedule"
)

type AttendanceServiceImpl struct {
	attendance.RecordRepository
	employee.EmployeeRepository
	geofence.ZoneRepository
	planner *scheduleservice.Planner
	guard   attendance.SubmissionGuard
	metrics *metrics.Metrics
	loc     *time.Location
	now     func() time.Time
}

type Option func(*AttendanceServiceImpl)

// WithClock replaces time.Now.
func WithClock(now func() time.Time) Option {
	return func(s *AttendanceServiceImpl) { s.now = now }
}

func WithMetrics(m *metrics.Metrics) Option {
	return func(s *AttendanceServiceImpl) { s.metrics = m }
}

func NewAttendanceService(
	recordRepo attendance.RecordRepository,
	employeeRepo employee.EmployeeRepository,
	zoneRepo geofence.ZoneRepository,
	planner *scheduleservice.Planner,
	guard attendance.SubmissionGuard,
	loc *time.Location,
	opts ...Option,
) attendance.AttendanceService {
	s := &AttendanceServiceImpl{
		RecordRepository:   recordRepo,
		EmployeeRepository: employeeRepo,
		ZoneRepository:     zoneRepo,
		planner:            planner,
		guard:              guard,
		loc:                loc,
		now:                time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// workDay returns the local now and the midnight of its calendar day.
func (s *AttendanceServiceImpl) workDay() (time.Time, time.Time) {
	now := s.now().In(s.loc)
	y, m, d := now.Date()
	return now, time.Date(y, m, d, 0, 0, 0, 0, s.loc)
}

// evaluate rebuilds the day state from the store and runs the state machine.
func (s *AttendanceServiceImpl) evaluate(ctx context.Context, employeeID string, now, workDate time.Time) (attendance.EligibilityResult, []attendance.Record, scheduleservice.DayPlan, error) {
	records, err := s.RecordRepository.ListByEmployeeAndDate(ctx, employeeID, workDate)
	if err != nil {
		return attendance.EligibilityResult{}, nil, scheduleservice.DayPlan{}, fmt.Errorf("failed to list today's records: %w", err)
	}

	plan, err := s.planner.Plan(ctx, employeeID, workDate)
	if err != nil {
		return attendance.EligibilityResult{}, nil, scheduleservice.DayPlan{}, err
	}

	result := eligibility.Evaluate(eligibility.Input{
		Groups: plan.Groups,
		Policy: plan.Policy,
		Day:    attendance.NewDayState(records, s.loc),
		Now:    now,
	})
	return result, records, plan, nil
}

func (s *AttendanceServiceImpl) activeEmployee(ctx context.Context, employeeID string) (employee.Employee, error) {
	emp, err := s.EmployeeRepository.GetByID(ctx, employeeID)
	if err != nil {
		if errors.Is(err, employee.ErrEmployeeNotFound) {
			return employee.Employee{}, err
		}
		return employee.Employee{}, fmt.Errorf("failed to get employee: %w", err)
	}
	if !emp.Active {
		return employee.Employee{}, employee.ErrEmployeeInactive
	}
	return emp, nil
}

// Evaluate implements attendance.AttendanceService.
func (s *AttendanceServiceImpl) Evaluate(ctx context.Context, req attendance.EvaluateRequest) (attendance.EvaluateResponse, error) {
	if err := req.Validate(); err != nil {
		return attendance.EvaluateResponse{}, err
	}

	if _, err := s.activeEmployee(ctx, req.EmployeeID); err != nil {
		return attendance.EvaluateResponse{}, err
	}

	now, workDate := s.workDay()
	result, _, plan, err := s.evaluate(ctx, req.EmployeeID, now, workDate)
	if err != nil {
		return attendance.EvaluateResponse{}, err
	}
	s.metrics.Evaluated(string(result.State))

	resp := attendance.EvaluateResponse{
		EmployeeID:  req.EmployeeID,
		WorkDate:    workDate.Format("2006-01-02"),
		EvaluatedAt: now.Format(time.RFC3339),
		Eligibility: result,
		Groups:      plan.Groups,
	}

	if req.Coordinate != nil {
		zones, err := s.ZoneRepository.ListZones(ctx)
		if err != nil {
			return attendance.EvaluateResponse{}, fmt.Errorf("failed to list department zones: %w", err)
		}
		candidates := geofenceservice.Resolve(zones, req.Coordinate.Latitude, req.Coordinate.Longitude)
		status := &attendance.GeofenceStatus{
			Inside:                 len(candidates) > 0,
			CandidateDepartmentIDs: make([]string, 0, len(candidates)),
		}
		for _, c := range candidates {
			status.CandidateDepartmentIDs = append(status.CandidateDepartmentIDs, c.DepartmentID)
		}
		if dept, ok := geofenceservice.SelectDepartment(candidates, req.DepartmentID); ok {
			status.SelectedDepartmentID = &dept
		}
		resp.Geofence = status
	}

	return resp, nil
}

// Register implements attendance.AttendanceService.
func (s *AttendanceServiceImpl) Register(ctx context.Context, req attendance.RegisterRequest) (attendance.RecordResponse, error) {
	if err := req.Validate(); err != nil {
		return attendance.RecordResponse{}, err
	}

	release, err := s.guard.Acquire(ctx, req.EmployeeID)
	if err != nil {
		s.metrics.Rejected("submission_in_flight")
		return attendance.RecordResponse{}, err
	}
	defer release(context.WithoutCancel(ctx))

	emp, err := s.activeEmployee(ctx, req.EmployeeID)
	if err != nil {
		return attendance.RecordResponse{}, err
	}

	if emp.PINHash != nil {
		if req.PIN == nil {
			s.metrics.Rejected("credential_required")
			return attendance.RecordResponse{}, attendance.ErrCredentialRequired
		}
		if err := credential.VerifyPIN(*emp.PINHash, *req.PIN); err != nil {
			s.metrics.Rejected("invalid_credential")
			if errors.Is(err, credential.ErrMismatch) {
				return attendance.RecordResponse{}, attendance.ErrInvalidCredential
			}
			return attendance.RecordResponse{}, fmt.Errorf("failed to verify PIN: %w", err)
		}
	}

	zones, err := s.ZoneRepository.ListZones(ctx)
	if err != nil {
		return attendance.RecordResponse{}, fmt.Errorf("failed to list department zones: %w", err)
	}
	candidates := geofenceservice.Resolve(zones, *req.Latitude, *req.Longitude)
	if len(candidates) == 0 {
		s.metrics.Rejected("outside_geofence")
		return attendance.RecordResponse{}, attendance.ErrOutsideGeofence
	}
	if req.DepartmentID != nil && !containsDepartment(candidates, *req.DepartmentID) {
		s.metrics.Rejected("department_not_allowed")
		return attendance.RecordResponse{}, attendance.ErrDepartmentNotAllowed
	}
	departmentID, _ := geofenceservice.SelectDepartment(candidates, req.DepartmentID)

	now, workDate := s.workDay()
	result, records, _, err := s.evaluate(ctx, emp.ID, now, workDate)
	if err != nil {
		return attendance.RecordResponse{}, err
	}

	if attendance.ActionType(req.ActionType) != result.NextActionType {
		s.metrics.Rejected("action_type_mismatch")
		return attendance.RecordResponse{}, attendance.ErrActionTypeMismatch
	}
	if !result.CanRegister {
		s.metrics.Rejected(string(result.Reason))
		return attendance.RecordResponse{}, &attendance.IneligibleError{Result: result}
	}

	created, err := s.RecordRepository.InsertIfAbsent(ctx, attendance.Record{
		EmployeeID:     emp.ID,
		WorkDate:       workDate,
		Type:           result.NextActionType,
		Classification: *result.Classification,
		Timestamp:      now,
		DayRecordIndex: len(records),
		GroupIndex:     result.GroupIndex,
		Latitude:       req.Latitude,
		Longitude:      req.Longitude,
		DepartmentID:   &departmentID,
		Source:         attendance.SourceRegistrar,
	})
	if err != nil {
		if errors.Is(err, attendance.ErrRecordExists) {
			s.metrics.Rejected("record_exists")
			return attendance.RecordResponse{}, err
		}
		return attendance.RecordResponse{}, fmt.Errorf("failed to insert attendance record: %w", err)
	}

	s.metrics.Registered(string(created.Type), string(created.Classification))
	slog.Info("Attendance registered",
		"employee_id", created.EmployeeID,
		"type", created.Type,
		"classification", created.Classification,
		"day_record_index", created.DayRecordIndex,
		"group_index", created.GroupIndex,
		"department_id", departmentID)

	return attendance.NewRecordResponse(created), nil
}

// TodayRecords implements attendance.AttendanceService.
func (s *AttendanceServiceImpl) TodayRecords(ctx context.Context, employeeID string) ([]attendance.RecordResponse, error) {
	_, workDate := s.workDay()
	records, err := s.RecordRepository.ListByEmployeeAndDate(ctx, employeeID, workDate)
	if err != nil {
		return nil, fmt.Errorf("failed to list today's records: %w", err)
	}

	resp := make([]attendance.RecordResponse, 0, len(records))
	for _, r := range records {
		resp = append(resp, attendance.NewRecordResponse(r))
	}
	return resp, nil
}

func containsDepartment(zones []geofence.GeoZone, departmentID string) bool {
	for _, z := range zones {
		if z.DepartmentID == departmentID {
			return true
		}
	}
	return false
}
