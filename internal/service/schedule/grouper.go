package schedule

import (
	"time"

	"github.com/cmlabs-hris/attendance-engine/internal/domain/schedule"
)

// GroupShifts merges shifts whose gap to the previous shift's exit is at most
// schedule.ShiftMergeThresholdMinutes. shifts must be sorted by entry.
func GroupShifts(shifts []schedule.ShiftDefinition) []schedule.ShiftGroup {
	if len(shifts) == 0 {
		return nil
	}

	groups := []schedule.ShiftGroup{{Shifts: []schedule.ShiftDefinition{shifts[0]}}}
	for _, next := range shifts[1:] {
		current := &groups[len(groups)-1]
		gap := int(next.Entry - current.Exit())
		if gap <= schedule.ShiftMergeThresholdMinutes {
			current.Shifts = append(current.Shifts, next)
			continue
		}
		groups = append(groups, schedule.ShiftGroup{Shifts: []schedule.ShiftDefinition{next}})
	}
	return groups
}

// DayGroups resolves and groups the shifts of date from a weekly configuration.
func DayGroups(cfg schedule.WeeklyConfig, date time.Time) ([]schedule.ShiftGroup, error) {
	shifts, err := ResolveDay(cfg.Document, date)
	if err != nil {
		return nil, err
	}
	return GroupShifts(shifts), nil
}
