package reconciler

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/cmlabs-hris/attendance-engine/internal/domain/attendance"
	"github.com/cmlabs-hris/attendance-engine/internal/domain/schedule"
	"github.com/cmlabs-hris/attendance-engine/internal/repository/memory"
	scheduleservice "github.com/cmlabs-hris/attendance-engine/internal/service/schedule"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var (
	testLoc = time.FixedZone("CST", -6*60*60)
	// 2025-03-03 is a Monday.
	monday = time.Date(2025, 3, 3, 0, 0, 0, 0, testLoc)
)

func at(day time.Time, hhmm string) time.Time {
	c, err := schedule.ParseClock(hhmm)
	if err != nil {
		panic(err)
	}
	return c.On(day)
}

type recordingPublisher struct {
	mu     sync.Mutex
	events []attendance.Record
	err    error
}

func (p *recordingPublisher) PublishAbsenceRecorded(ctx context.Context, r attendance.Record) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, r)
	return p.err
}

func (p *recordingPublisher) count() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.events)
}

func newStore(t *testing.T) *memory.Store {
	t.Helper()
	store := memory.NewStore()
	store.PutSchedule(schedule.WeeklyConfig{
		EmployeeID: "emp-1",
		Document: json.RawMessage(`{
			"domingo": [{"entrada": "18:00", "salida": "23:00"}],
			"lunes": [{"entrada": "09:00", "salida": "13:00"}, {"entrada": "13:10", "salida": "17:00"}]
		}`),
	})
	store.PutTolerancePolicy("emp-1", schedule.TolerancePolicy{
		RetardoMinutes: 10, FaltaMinutes: 30, AnticipatedEntryMaxMinutes: 60, AbsenceGraceMinutes: 30,
	})
	return store
}

func checkIn(t *testing.T, store attendance.RecordRepository, employeeID string, day time.Time, hhmm string, index, group int) {
	t.Helper()
	_, err := store.InsertIfAbsent(context.Background(), attendance.Record{
		EmployeeID:     employeeID,
		WorkDate:       day,
		Type:           attendance.ActionEntrada,
		Classification: attendance.ClassificationPuntual,
		Timestamp:      at(day, hhmm),
		DayRecordIndex: index,
		GroupIndex:     group,
		Source:         attendance.SourceRegistrar,
	})
	require.NoError(t, err)
}

func newReconciler(store *memory.Store, records attendance.RecordRepository, pub attendance.EventPublisher) attendance.AbsenceReconciler {
	return NewAbsenceReconciler(records, scheduleservice.NewPlanner(store), pub, nil, testLoc)
}

func TestTick_RecordsMissedExitOnce(t *testing.T) {
	ctx := context.Background()
	store := newStore(t)
	pub := &recordingPublisher{}
	rec := newReconciler(store, store, pub)
	checkIn(t, store, "emp-1", monday, "09:00", 0, 0)

	// Deadline is 17:00 + 30 min and is inclusive
	res, err := rec.Tick(ctx, at(monday, "17:30"))
	require.NoError(t, err)
	assert.Equal(t, attendance.TickResult{Checked: 1, Skipped: 1}, res)

	res, err = rec.Tick(ctx, at(monday, "17:31"))
	require.NoError(t, err)
	assert.Equal(t, 1, res.Recorded)

	res, err = rec.Tick(ctx, at(monday, "17:31"))
	require.NoError(t, err)
	assert.Equal(t, attendance.TickResult{}, res)

	records, err := store.ListByEmployeeAndDate(ctx, "emp-1", monday)
	require.NoError(t, err)
	require.Len(t, records, 2)
	absence := records[0]
	assert.Equal(t, attendance.ActionSalida, absence.Type)
	assert.Equal(t, attendance.ClassificationFalta, absence.Classification)
	assert.Equal(t, attendance.SourceReconciler, absence.Source)
	assert.Equal(t, 1, absence.DayRecordIndex)
	assert.True(t, absence.Timestamp.Equal(at(monday, "17:00")), "stamped at the scheduled group exit")

	assert.Equal(t, 1, pub.count())
}

func TestTick_ConcurrentTicksProduceOneAbsence(t *testing.T) {
	ctx := context.Background()
	store := newStore(t)
	pub := &recordingPublisher{}
	checkIn(t, store, "emp-1", monday, "09:00", 0, 0)

	var (
		wg       sync.WaitGroup
		mu       sync.Mutex
		recorded int
	)
	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			// Separate instances sharing one store, like several API replicas.
			res, err := newReconciler(store, store, pub).Tick(ctx, at(monday, "18:00"))
			assert.NoError(t, err)
			mu.Lock()
			recorded += res.Recorded
			mu.Unlock()
		}()
	}
	wg.Wait()

	assert.Equal(t, 1, recorded)
	assert.Equal(t, 1, pub.count())
	records, err := store.ListByEmployeeAndDate(ctx, "emp-1", monday)
	require.NoError(t, err)
	assert.Len(t, records, 2)
}

// racingStore lets a real check-out land between the scan and the insert.
type racingStore struct {
	*memory.Store
	once sync.Once
}

func (s *racingStore) ListOpenEntries(ctx context.Context, workDate time.Time) ([]attendance.Record, error) {
	open, err := s.Store.ListOpenEntries(ctx, workDate)
	for _, e := range open {
		s.once.Do(func() {
			_, _ = s.Store.InsertIfAbsent(ctx, attendance.Record{
				EmployeeID:     e.EmployeeID,
				WorkDate:       e.WorkDate,
				Type:           attendance.ActionSalida,
				Classification: attendance.ClassificationPuntual,
				Timestamp:      at(e.WorkDate, "17:40"),
				DayRecordIndex: e.DayRecordIndex + 1,
				Source:         attendance.SourceRegistrar,
			})
		})
	}
	return open, err
}

func TestTick_RealCheckOutWinsRace(t *testing.T) {
	ctx := context.Background()
	store := newStore(t)
	racing := &racingStore{Store: store}
	pub := &recordingPublisher{}
	checkIn(t, store, "emp-1", monday, "09:00", 0, 0)

	res, err := newReconciler(store, racing, pub).Tick(ctx, at(monday, "17:45"))
	require.NoError(t, err)
	assert.Equal(t, 0, res.Recorded)
	assert.Equal(t, 1, res.Conflicts)
	assert.Zero(t, pub.count())

	records, err := store.ListByEmployeeAndDate(ctx, "emp-1", monday)
	require.NoError(t, err)
	require.Len(t, records, 2)
	assert.Equal(t, attendance.SourceRegistrar, records[0].Source)
}

func TestTick_PreviousWorkDate(t *testing.T) {
	ctx := context.Background()
	store := newStore(t)
	sunday := monday.AddDate(0, 0, -1)
	checkIn(t, store, "emp-1", sunday, "18:00", 0, 0)

	res, err := newReconciler(store, store, &recordingPublisher{}).Tick(ctx, at(monday, "00:10"))
	require.NoError(t, err)
	assert.Equal(t, 1, res.Recorded)

	records, err := store.ListByEmployeeAndDate(ctx, "emp-1", sunday)
	require.NoError(t, err)
	require.Len(t, records, 2)
	assert.True(t, records[0].Timestamp.Equal(at(sunday, "23:00")))
}

func TestTick_SecondGroupUsesItsOwnExit(t *testing.T) {
	ctx := context.Background()
	store := newStore(t)
	store.PutSchedule(schedule.WeeklyConfig{
		EmployeeID: "split",
		Document:   json.RawMessage(`{"lunes": [{"entrada": "08:00", "salida": "12:00"}, {"entrada": "14:00", "salida": "18:00"}]}`),
	})
	checkIn(t, store, "split", monday, "08:00", 0, 0)
	_, err := store.InsertIfAbsent(ctx, attendance.Record{
		EmployeeID: "split", WorkDate: monday, Type: attendance.ActionSalida,
		Classification: attendance.ClassificationPuntual, Timestamp: at(monday, "12:00"), DayRecordIndex: 1,
		GroupIndex: 0,
	})
	require.NoError(t, err)
	checkIn(t, store, "split", monday, "14:00", 2, 1)

	rec := newReconciler(store, store, &recordingPublisher{})

	// Default policy grace is 30 minutes after 18:00
	res, err := rec.Tick(ctx, at(monday, "18:30"))
	require.NoError(t, err)
	assert.Equal(t, 0, res.Recorded)

	res, err = rec.Tick(ctx, at(monday, "18:31"))
	require.NoError(t, err)
	assert.Equal(t, 1, res.Recorded)
}

func TestTick_SkippedFirstGroup(t *testing.T) {
	ctx := context.Background()
	store := newStore(t)
	store.PutSchedule(schedule.WeeklyConfig{
		EmployeeID: "split",
		Document:   json.RawMessage(`{"lunes": [{"entrada": "08:00", "salida": "10:00"}, {"entrada": "14:00", "salida": "16:00"}]}`),
	})
	store.PutTolerancePolicy("split", schedule.TolerancePolicy{
		RetardoMinutes: 10, FaltaMinutes: 30, AnticipatedEntryMaxMinutes: 60, AbsenceGraceMinutes: 30,
	})
	checkIn(t, store, "split", monday, "14:00", 0, 1)

	rec := newReconciler(store, store, &recordingPublisher{})

	tests := []struct {
		at       string
		recorded int
	}{
		{"14:05", 0},
		{"16:30", 0},
		{"16:31", 1},
	}
	for _, tt := range tests {
		res, err := rec.Tick(ctx, at(monday, tt.at))
		require.NoError(t, err)
		assert.Equal(t, tt.recorded, res.Recorded, tt.at)
	}

	records, err := store.ListByEmployeeAndDate(ctx, "split", monday)
	require.NoError(t, err)
	require.Len(t, records, 2)
	absence, entry := records[0], records[1]
	assert.Equal(t, 1, absence.GroupIndex)
	assert.True(t, absence.Timestamp.Equal(at(monday, "16:00")))
	assert.False(t, absence.Timestamp.Before(entry.Timestamp))
}

func TestTick_AbsenceNeverPrecedesEntry(t *testing.T) {
	ctx := context.Background()
	store := newStore(t)
	store.PutSchedule(schedule.WeeklyConfig{
		EmployeeID: "moved",
		Document:   json.RawMessage(`{"lunes": [{"entrada": "08:00", "salida": "10:00"}]}`),
	})
	// Entry stored against a group the current schedule no longer has.
	checkIn(t, store, "moved", monday, "14:00", 0, 1)

	res, err := newReconciler(store, store, &recordingPublisher{}).Tick(ctx, at(monday, "14:05"))
	require.NoError(t, err)
	assert.Equal(t, 1, res.Recorded)

	records, err := store.ListByEmployeeAndDate(ctx, "moved", monday)
	require.NoError(t, err)
	require.Len(t, records, 2)
	assert.Equal(t, 0, records[0].GroupIndex)
	assert.True(t, records[0].Timestamp.Equal(records[1].Timestamp), "stamped at the entry, not the earlier group exit")
}

func TestTick_UnscheduledEntryIsLeftOpen(t *testing.T) {
	ctx := context.Background()
	store := newStore(t)
	checkIn(t, store, "no-schedule", monday, "09:00", 0, 0)

	res, err := newReconciler(store, store, &recordingPublisher{}).Tick(ctx, at(monday, "23:59"))
	require.NoError(t, err)
	assert.Equal(t, attendance.TickResult{Checked: 1, Skipped: 1}, res)
}

func TestTick_PublishFailureKeepsRecord(t *testing.T) {
	ctx := context.Background()
	store := newStore(t)
	checkIn(t, store, "emp-1", monday, "09:00", 0, 0)

	res, err := newReconciler(store, store, &recordingPublisher{err: errors.New("broker down")}).Tick(ctx, at(monday, "18:00"))
	require.NoError(t, err)
	assert.Equal(t, 1, res.Recorded)
}

type failingRecords struct {
	attendance.RecordRepository
}

func (failingRecords) ListOpenEntries(context.Context, time.Time) ([]attendance.Record, error) {
	return nil, errors.New("connection refused")
}

func TestTick_StoreFailureIsSurfaced(t *testing.T) {
	store := newStore(t)
	_, err := newReconciler(store, failingRecords{store}, &recordingPublisher{}).Tick(context.Background(), at(monday, "18:00"))
	assert.ErrorContains(t, err, "connection refused")
}
