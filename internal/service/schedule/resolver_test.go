package schedule

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/cmlabs-hris/attendance-engine/internal/domain/schedule"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// 2025-03-03 is a Monday.
var monday = time.Date(2025, 3, 3, 0, 0, 0, 0, time.UTC)

func TestResolveDay(t *testing.T) {
	tests := []struct {
		name    string
		doc     string
		date    time.Time
		want    [][2]string
		wantErr error
	}{
		{
			name: "spanish keys with list",
			doc:  `{"lunes":[{"entrada":"13:10","salida":"17:00"},{"entrada":"09:00","salida":"13:00"}]}`,
			date: monday,
			want: [][2]string{{"09:00", "13:00"}, {"13:10", "17:00"}},
		},
		{
			name: "english keys with single object and aliases",
			doc:  `{"Monday":{"entry":"08:30","exit":"16:30"}}`,
			date: monday,
			want: [][2]string{{"08:30", "16:30"}},
		},
		{
			name: "accented day name",
			doc:  `{"miércoles":[{"entrada":"10:00","salida":"14:00"}]}`,
			date: monday.AddDate(0, 0, 2),
			want: [][2]string{{"10:00", "14:00"}},
		},
		{
			name: "missing day does not work",
			doc:  `{"martes":[{"entrada":"09:00","salida":"17:00"}]}`,
			date: monday,
			want: nil,
		},
		{
			name: "null day does not work",
			doc:  `{"lunes":null}`,
			date: monday,
			want: nil,
		},
		{
			name:    "malformed json",
			doc:     `{"lunes":[`,
			date:    monday,
			wantErr: schedule.ErrInvalidSchedule,
		},
		{
			name:    "bad clock",
			doc:     `{"lunes":[{"entrada":"9am","salida":"17:00"}]}`,
			date:    monday,
			wantErr: schedule.ErrInvalidSchedule,
		},
		{
			name:    "entry after exit",
			doc:     `{"lunes":[{"entrada":"18:00","salida":"17:00"}]}`,
			date:    monday,
			wantErr: schedule.ErrInvalidSchedule,
		},
		{
			name: "touching shifts are allowed",
			doc:  `{"lunes":[{"entrada":"09:00","salida":"13:00"},{"entrada":"13:00","salida":"17:00"}]}`,
			date: monday,
			want: [][2]string{{"09:00", "13:00"}, {"13:00", "17:00"}},
		},
		{
			name:    "overlapping shifts",
			doc:     `{"lunes":[{"entrada":"09:00","salida":"13:00"},{"entrada":"12:30","salida":"17:00"}]}`,
			date:    monday,
			wantErr: schedule.ErrInvalidSchedule,
		},
		{
			name:    "nested shift",
			doc:     `{"lunes":[{"entrada":"09:00","salida":"17:00"},{"entrada":"10:00","salida":"12:00"}]}`,
			date:    monday,
			wantErr: schedule.ErrInvalidSchedule,
		},
		{
			name:    "empty document",
			doc:     ``,
			date:    monday,
			wantErr: schedule.ErrInvalidSchedule,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			shifts, err := ResolveDay(json.RawMessage(tt.doc), tt.date)
			if tt.wantErr != nil {
				require.ErrorIs(t, err, tt.wantErr)
				return
			}
			require.NoError(t, err)
			require.Len(t, shifts, len(tt.want))
			for i, s := range shifts {
				assert.Equal(t, tt.want[i][0], s.Entry.String())
				assert.Equal(t, tt.want[i][1], s.Exit.String())
			}
		})
	}
}

func TestDayGroups(t *testing.T) {
	cfg := schedule.WeeklyConfig{
		EmployeeID: "emp-1",
		Document:   json.RawMessage(`{"lunes":[{"entrada":"09:00","salida":"13:00"},{"entrada":"13:10","salida":"17:00"}]}`),
	}

	groups, err := DayGroups(cfg, monday)
	require.NoError(t, err)
	require.Len(t, groups, 1)
	assert.Equal(t, "09:00", groups[0].Entry().String())
	assert.Equal(t, "17:00", groups[0].Exit().String())
	assert.Equal(t, 480, groups[0].DurationMinutes())
}
