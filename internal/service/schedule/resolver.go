package schedule

import (
	"bytes"
	"encoding/json"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/cmlabs-hris/attendance-engine/internal/domain/schedule"
)

var dayKeys = map[time.Weekday][]string{
	time.Sunday:    {"domingo", "sunday"},
	time.Monday:    {"lunes", "monday"},
	time.Tuesday:   {"martes", "tuesday"},
	time.Wednesday: {"miercoles", "miércoles", "wednesday"},
	time.Thursday:  {"jueves", "thursday"},
	time.Friday:    {"viernes", "friday"},
	time.Saturday:  {"sabado", "sábado", "saturday"},
}

type rawShift struct {
	Entrada string `json:"entrada"`
	Salida  string `json:"salida"`
	Entry   string `json:"entry"`
	Exit    string `json:"exit"`
}

func (r rawShift) clocks() (string, string) {
	entry, exit := r.Entrada, r.Salida
	if entry == "" {
		entry = r.Entry
	}
	if exit == "" {
		exit = r.Exit
	}
	return entry, exit
}

// ResolveDay returns the shifts configured for the weekday of date, sorted by entry.
// A missing or null day means the employee does not work that day and yields no shifts.
// Overlapping shifts make the whole day invalid.
func ResolveDay(document json.RawMessage, date time.Time) ([]schedule.ShiftDefinition, error) {
	if len(bytes.TrimSpace(document)) == 0 {
		return nil, fmt.Errorf("%w: empty weekly configuration", schedule.ErrInvalidSchedule)
	}

	var week map[string]json.RawMessage
	if err := json.Unmarshal(document, &week); err != nil {
		return nil, fmt.Errorf("%w: %v", schedule.ErrInvalidSchedule, err)
	}

	byKey := make(map[string]json.RawMessage, len(week))
	for k, v := range week {
		byKey[strings.ToLower(strings.TrimSpace(k))] = v
	}

	var day json.RawMessage
	for _, key := range dayKeys[date.Weekday()] {
		if v, ok := byKey[key]; ok {
			day = v
			break
		}
	}
	day = bytes.TrimSpace(day)
	if len(day) == 0 || bytes.Equal(day, []byte("null")) {
		return nil, nil
	}

	var raws []rawShift
	if day[0] == '{' {
		var single rawShift
		if err := json.Unmarshal(day, &single); err != nil {
			return nil, fmt.Errorf("%w: %v", schedule.ErrInvalidSchedule, err)
		}
		raws = []rawShift{single}
	} else if err := json.Unmarshal(day, &raws); err != nil {
		return nil, fmt.Errorf("%w: %v", schedule.ErrInvalidSchedule, err)
	}

	shifts := make([]schedule.ShiftDefinition, 0, len(raws))
	for i, raw := range raws {
		entryStr, exitStr := raw.clocks()
		entry, err := schedule.ParseClock(entryStr)
		if err != nil {
			return nil, fmt.Errorf("shift %d entry: %w", i, err)
		}
		exit, err := schedule.ParseClock(exitStr)
		if err != nil {
			return nil, fmt.Errorf("shift %d exit: %w", i, err)
		}
		if entry >= exit {
			return nil, fmt.Errorf("%w: shift %d entry %s is not before exit %s", schedule.ErrInvalidSchedule, i, entry, exit)
		}
		shifts = append(shifts, schedule.ShiftDefinition{Entry: entry, Exit: exit})
	}

	sort.SliceStable(shifts, func(i, j int) bool {
		return shifts[i].Entry < shifts[j].Entry
	})
	// Back-to-back shifts may touch; overlapping or nested ones may not.
	for i := 1; i < len(shifts); i++ {
		prev, cur := shifts[i-1], shifts[i]
		if cur.Entry < prev.Exit {
			return nil, fmt.Errorf("%w: shift %s-%s overlaps %s-%s",
				schedule.ErrInvalidSchedule, cur.Entry, cur.Exit, prev.Entry, prev.Exit)
		}
	}
	return shifts, nil
}
