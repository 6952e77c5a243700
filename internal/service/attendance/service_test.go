package attendance

import (
	"context"
	"encoding/json"
	"sync"
	"testing"
	"time"

	"github.com/cmlabs-hris/attendance-engine/internal/domain/attendance"
	"github.com/cmlabs-hris/attendance-engine/internal/domain/employee"
	"github.com/cmlabs-hris/attendance-engine/internal/domain/geofence"
	"github.com/cmlabs-hris/attendance-engine/internal/domain/schedule"
	"github.com/cmlabs-hris/attendance-engine/internal/pkg/credential"
	"github.com/cmlabs-hris/attendance-engine/internal/pkg/validator"
	"github.com/cmlabs-hris/attendance-engine/internal/repository/memory"
	scheduleservice "github.com/cmlabs-hris/attendance-engine/internal/service/schedule"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var testLoc = time.FixedZone("CST", -6*60*60)

// testClock is a settable clock shared by the service under test.
type testClock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *testClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *testClock) Set(hhmm string) {
	clock, err := schedule.ParseClock(hhmm)
	if err != nil {
		panic(err)
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	// 2025-03-03 is a Monday.
	c.now = clock.On(time.Date(2025, 3, 3, 0, 0, 0, 0, testLoc))
}

type fixture struct {
	store   *memory.Store
	clock   *testClock
	service attendance.AttendanceService
}

// Office zone around (19.0..19.1, -99.2..-99.1), warehouse zone directly east.
var (
	officeLat, officeLng = 19.05, -99.15
	outsideLat           = 18.0
)

func newFixture(t *testing.T) *fixture {
	t.Helper()
	store := memory.NewStore()
	store.PutEmployee(employee.Employee{ID: "emp-1", FullName: "Ana López", Active: true})
	store.PutEmployee(employee.Employee{ID: "inactive", FullName: "Luis", Active: false})
	store.PutSchedule(schedule.WeeklyConfig{
		EmployeeID: "emp-1",
		Document:   json.RawMessage(`{"lunes":[{"entrada":"09:00","salida":"13:00"},{"entrada":"13:10","salida":"17:00"}]}`),
	})
	store.PutTolerancePolicy("emp-1", schedule.TolerancePolicy{
		RetardoMinutes: 10, FaltaMinutes: 30, AnticipatedEntryMaxMinutes: 60, AbsenceGraceMinutes: 30,
	})
	store.PutZone(geofence.GeoZone{DepartmentID: "office", DepartmentName: "Oficina", Polygon: []geofence.LatLng{
		{Lat: 19.0, Lng: -99.2}, {Lat: 19.0, Lng: -99.1}, {Lat: 19.1, Lng: -99.1}, {Lat: 19.1, Lng: -99.2},
	}})
	store.PutZone(geofence.GeoZone{DepartmentID: "annex", DepartmentName: "Anexo", Polygon: []geofence.LatLng{
		{Lat: 19.04, Lng: -99.16}, {Lat: 19.04, Lng: -99.0}, {Lat: 19.1, Lng: -99.0}, {Lat: 19.1, Lng: -99.16},
	}})
	store.PutZone(geofence.GeoZone{DepartmentID: "warehouse", DepartmentName: "Almacén", Polygon: []geofence.LatLng{
		{Lat: 19.0, Lng: -99.0}, {Lat: 19.0, Lng: -98.9}, {Lat: 19.1, Lng: -98.9}, {Lat: 19.1, Lng: -99.0},
	}})

	clock := &testClock{}
	clock.Set("08:55")

	svc := NewAttendanceService(
		store, store, store,
		scheduleservice.NewPlanner(store),
		memory.NewSubmissionGuard(),
		testLoc,
		WithClock(clock.Now),
	)
	return &fixture{store: store, clock: clock, service: svc}
}

func registerReq(action string, lat, lng float64) attendance.RegisterRequest {
	return attendance.RegisterRequest{EmployeeID: "emp-1", ActionType: action, Latitude: &lat, Longitude: &lng}
}

func TestAttendanceService_FullDay(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)

	// Check in early but inside the anticipated window
	f.clock.Set("08:58")
	in, err := f.service.Register(ctx, registerReq("entrada", officeLat, officeLng))
	require.NoError(t, err)
	assert.Equal(t, "entrada", in.Type)
	assert.Equal(t, "puntual", in.Classification)
	assert.Equal(t, 0, in.DayRecordIndex)
	assert.Equal(t, "2025-03-03", in.WorkDate)
	require.NotNil(t, in.DepartmentID)
	assert.Equal(t, "office", *in.DepartmentID)

	// Check out before the minimum worked time
	f.clock.Set("16:30")
	_, err = f.service.Register(ctx, registerReq("salida", officeLat, officeLng))
	var ineligible *attendance.IneligibleError
	require.ErrorAs(t, err, &ineligible)
	assert.ErrorIs(t, err, attendance.ErrNotEligible)
	assert.Equal(t, attendance.StateTiempoInsuficiente, ineligible.Result.State)

	// Check out inside the exit window
	f.clock.Set("17:03")
	out, err := f.service.Register(ctx, registerReq("salida", officeLat, officeLng))
	require.NoError(t, err)
	assert.Equal(t, "salida", out.Type)
	assert.Equal(t, 1, out.DayRecordIndex)

	// Day is complete
	resp, err := f.service.Evaluate(ctx, attendance.EvaluateRequest{EmployeeID: "emp-1"})
	require.NoError(t, err)
	assert.True(t, resp.Eligibility.DayComplete)
	assert.Equal(t, attendance.StateCompletado, resp.Eligibility.State)

	records, err := f.service.TodayRecords(ctx, "emp-1")
	require.NoError(t, err)
	require.Len(t, records, 2)
	assert.Equal(t, "salida", records[0].Type)
}

func TestAttendanceService_SkippedFirstGroup(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	f.store.PutEmployee(employee.Employee{ID: "split", FullName: "Marta Ruiz", Active: true})
	f.store.PutSchedule(schedule.WeeklyConfig{
		EmployeeID: "split",
		Document:   json.RawMessage(`{"lunes":[{"entrada":"08:00","salida":"10:00"},{"entrada":"14:00","salida":"16:00"}]}`),
	})
	req := func(action string) attendance.RegisterRequest {
		r := registerReq(action, officeLat, officeLng)
		r.EmployeeID = "split"
		return r
	}

	f.clock.Set("14:00")
	in, err := f.service.Register(ctx, req("entrada"))
	require.NoError(t, err)
	assert.Equal(t, 0, in.DayRecordIndex)
	assert.Equal(t, 1, in.GroupIndex)
	assert.Equal(t, "puntual", in.Classification)

	f.clock.Set("16:00")
	out, err := f.service.Register(ctx, req("salida"))
	require.NoError(t, err)
	assert.Equal(t, 1, out.DayRecordIndex)
	assert.Equal(t, 1, out.GroupIndex)

	resp, err := f.service.Evaluate(ctx, attendance.EvaluateRequest{EmployeeID: "split"})
	require.NoError(t, err)
	assert.True(t, resp.Eligibility.DayComplete)
}

func TestAttendanceService_Register_Rejections(t *testing.T) {
	ctx := context.Background()

	t.Run("outside every zone", func(t *testing.T) {
		f := newFixture(t)
		f.clock.Set("09:00")
		_, err := f.service.Register(ctx, registerReq("entrada", outsideLat, officeLng))
		assert.ErrorIs(t, err, attendance.ErrOutsideGeofence)
	})

	t.Run("department not among candidates", func(t *testing.T) {
		f := newFixture(t)
		f.clock.Set("09:00")
		req := registerReq("entrada", officeLat, officeLng)
		dept := "warehouse"
		req.DepartmentID = &dept
		_, err := f.service.Register(ctx, req)
		assert.ErrorIs(t, err, attendance.ErrDepartmentNotAllowed)
	})

	t.Run("explicit department among overlapping candidates", func(t *testing.T) {
		f := newFixture(t)
		f.clock.Set("09:00")
		req := registerReq("entrada", officeLat, officeLng)
		dept := "annex"
		req.DepartmentID = &dept
		rec, err := f.service.Register(ctx, req)
		require.NoError(t, err)
		assert.Equal(t, "annex", *rec.DepartmentID)
	})

	t.Run("action type mismatch", func(t *testing.T) {
		f := newFixture(t)
		f.clock.Set("09:00")
		_, err := f.service.Register(ctx, registerReq("salida", officeLat, officeLng))
		assert.ErrorIs(t, err, attendance.ErrActionTypeMismatch)
	})

	t.Run("entry window closed", func(t *testing.T) {
		f := newFixture(t)
		f.clock.Set("17:20")
		_, err := f.service.Register(ctx, registerReq("entrada", officeLat, officeLng))
		var ineligible *attendance.IneligibleError
		require.ErrorAs(t, err, &ineligible)
		assert.Equal(t, attendance.ReasonEntryWindowClosed, ineligible.Result.Reason)
	})

	t.Run("invalid payload", func(t *testing.T) {
		f := newFixture(t)
		_, err := f.service.Register(ctx, attendance.RegisterRequest{EmployeeID: "emp-1", ActionType: "lunch"})
		var verrs validator.ValidationErrors
		require.ErrorAs(t, err, &verrs)
		fields := verrs.ToMap()
		assert.Contains(t, fields, "action_type")
		assert.Contains(t, fields, "latitude")
		assert.Contains(t, fields, "longitude")
	})

	t.Run("inactive employee", func(t *testing.T) {
		f := newFixture(t)
		req := registerReq("entrada", officeLat, officeLng)
		req.EmployeeID = "inactive"
		_, err := f.service.Register(ctx, req)
		assert.ErrorIs(t, err, employee.ErrEmployeeInactive)
	})

	t.Run("unknown employee", func(t *testing.T) {
		f := newFixture(t)
		req := registerReq("entrada", officeLat, officeLng)
		req.EmployeeID = "ghost"
		_, err := f.service.Register(ctx, req)
		assert.ErrorIs(t, err, employee.ErrEmployeeNotFound)
	})
}

func TestAttendanceService_Register_PIN(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	hash, err := credential.HashPIN("4821")
	require.NoError(t, err)
	f.store.PutEmployee(employee.Employee{ID: "emp-1", FullName: "Ana López", PINHash: &hash, Active: true})
	f.clock.Set("09:00")

	_, err = f.service.Register(ctx, registerReq("entrada", officeLat, officeLng))
	assert.ErrorIs(t, err, attendance.ErrCredentialRequired)

	req := registerReq("entrada", officeLat, officeLng)
	wrong := "0000"
	req.PIN = &wrong
	_, err = f.service.Register(ctx, req)
	assert.ErrorIs(t, err, attendance.ErrInvalidCredential)

	right := "4821"
	req.PIN = &right
	_, err = f.service.Register(ctx, req)
	assert.NoError(t, err)
}

func TestAttendanceService_Register_ConcurrentSubmissions(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	f.clock.Set("09:00")

	var (
		wg        sync.WaitGroup
		mu        sync.Mutex
		succeeded int
	)
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if _, err := f.service.Register(ctx, registerReq("entrada", officeLat, officeLng)); err == nil {
				mu.Lock()
				succeeded++
				mu.Unlock()
			}
		}()
	}
	wg.Wait()

	assert.Equal(t, 1, succeeded)
	records, err := f.service.TodayRecords(ctx, "emp-1")
	require.NoError(t, err)
	assert.Len(t, records, 1)
}

func TestAttendanceService_Evaluate(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)

	t.Run("future shift with geofence", func(t *testing.T) {
		f.clock.Set("07:30")
		resp, err := f.service.Evaluate(ctx, attendance.EvaluateRequest{
			EmployeeID: "emp-1",
			Coordinate: &attendance.Coordinate{Latitude: officeLat, Longitude: officeLng},
		})
		require.NoError(t, err)
		assert.False(t, resp.Eligibility.CanRegister)
		assert.True(t, resp.Eligibility.HasFutureShift)
		assert.Equal(t, "Espera 30 min", resp.Eligibility.WaitMessage)
		require.Len(t, resp.Groups, 1)
		require.NotNil(t, resp.Geofence)
		assert.True(t, resp.Geofence.Inside)
		assert.Equal(t, []string{"office", "annex"}, resp.Geofence.CandidateDepartmentIDs)
		require.NotNil(t, resp.Geofence.SelectedDepartmentID)
		assert.Equal(t, "office", *resp.Geofence.SelectedDepartmentID)
	})

	t.Run("keeps last explicit selection while valid", func(t *testing.T) {
		f.clock.Set("09:00")
		annex := "annex"
		resp, err := f.service.Evaluate(ctx, attendance.EvaluateRequest{
			EmployeeID:   "emp-1",
			Coordinate:   &attendance.Coordinate{Latitude: officeLat, Longitude: officeLng},
			DepartmentID: &annex,
		})
		require.NoError(t, err)
		assert.True(t, resp.Eligibility.CanRegister)
		assert.Equal(t, "annex", *resp.Geofence.SelectedDepartmentID)
	})

	t.Run("outside zones is reported separately from schedule", func(t *testing.T) {
		f.clock.Set("09:00")
		resp, err := f.service.Evaluate(ctx, attendance.EvaluateRequest{
			EmployeeID: "emp-1",
			Coordinate: &attendance.Coordinate{Latitude: outsideLat, Longitude: officeLng},
		})
		require.NoError(t, err)
		assert.True(t, resp.Eligibility.CanRegister)
		assert.False(t, resp.Geofence.Inside)
		assert.Nil(t, resp.Geofence.SelectedDepartmentID)
	})

	t.Run("employee without schedule is not eligible", func(t *testing.T) {
		f.store.PutEmployee(employee.Employee{ID: "no-schedule", Active: true})
		resp, err := f.service.Evaluate(ctx, attendance.EvaluateRequest{EmployeeID: "no-schedule"})
		require.NoError(t, err)
		assert.False(t, resp.Eligibility.CanRegister)
		assert.Equal(t, attendance.ReasonNoShifts, resp.Eligibility.Reason)
		assert.Equal(t, "no turnos configurados", resp.Eligibility.WaitMessage)
	})
}
