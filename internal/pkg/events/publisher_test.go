package events

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/cmlabs-hris/attendance-engine/internal/domain/attendance"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewAbsenceRecorded(t *testing.T) {
	loc := time.FixedZone("CST", -6*60*60)
	record := attendance.Record{
		ID:             "rec-1",
		EmployeeID:     "emp-1",
		WorkDate:       time.Date(2025, 3, 3, 0, 0, 0, 0, loc),
		Type:           attendance.ActionSalida,
		Classification: attendance.ClassificationFalta,
		Timestamp:      time.Date(2025, 3, 3, 17, 0, 0, 0, loc),
		DayRecordIndex: 1,
		Source:         attendance.SourceReconciler,
	}
	now := time.Date(2025, 3, 3, 17, 31, 0, 0, loc)

	event := NewAbsenceRecorded(record, now)
	assert.NotEmpty(t, event.EventID)
	assert.Equal(t, "2025-03-03", event.WorkDate)
	assert.Equal(t, "falta", event.Classification)
	assert.Equal(t, time.Date(2025, 3, 3, 23, 0, 0, 0, time.UTC), event.ScheduledExit)

	body, err := json.Marshal(event)
	require.NoError(t, err)
	assert.Contains(t, string(body), `"record_id":"rec-1"`)
	assert.Contains(t, string(body), `"day_record_index":1`)
}

func TestLogPublisher(t *testing.T) {
	assert.NoError(t, LogPublisher{}.PublishAbsenceRecorded(context.Background(), attendance.Record{EmployeeID: "emp-1"}))
}
