package eligibility

import (
	"github.com/cmlabs-hris/attendance-engine/internal/domain/attendance"
	"github.com/cmlabs-hris/attendance-engine/internal/domain/schedule"
)

const (
	// LateExitGraceMinutes is how long after the group exit a check-out is still on time.
	LateExitGraceMinutes = 5
	// ActiveTrailMinutes keeps a group active after its exit so a late check-out can be evaluated.
	ActiveTrailMinutes = 30
	// MinimumWorkedMinutes is the floor of the worked-time guard.
	MinimumWorkedMinutes = 5
)

// Windows are the entry and exit thresholds of one shift group, in minutes of day.
// Every range is inclusive on both ends.
type Windows struct {
	GroupEntry int
	GroupExit  int

	AnticipatedStart int
	OnTimeEnd        int
	RetardoEnd       int

	ExitTolerance   int
	ExitWindowStart int
	ExitWindowEnd   int

	// MinimumWorked is the elapsed time since entry required before a check-out.
	MinimumWorked int
}

// Calculate derives the windows of group under policy.
func Calculate(group schedule.ShiftGroup, policy schedule.TolerancePolicy) Windows {
	entry := int(group.Entry())
	exit := int(group.Exit())
	exitTolerance := policy.ExitToleranceMinutes()

	return Windows{
		GroupEntry:       entry,
		GroupExit:        exit,
		AnticipatedStart: entry - policy.AnticipatedEntryMaxMinutes,
		OnTimeEnd:        entry + policy.RetardoMinutes,
		RetardoEnd:       entry + policy.FaltaMinutes,
		ExitTolerance:    exitTolerance,
		ExitWindowStart:  exit - exitTolerance,
		ExitWindowEnd:    exit + LateExitGraceMinutes,
		MinimumWorked:    max(MinimumWorkedMinutes, group.DurationMinutes()-exitTolerance),
	}
}

// ActiveEnd is the last minute the group is considered active.
func (w Windows) ActiveEnd() int {
	return w.GroupExit + ActiveTrailMinutes
}

// IsActive reports whether minute lies in [AnticipatedStart, ActiveEnd].
func (w Windows) IsActive(minute int) bool {
	return minute >= w.AnticipatedStart && minute <= w.ActiveEnd()
}

// ClassifyEntry buckets a check-in minute. ok is false outside every entry bucket.
func (w Windows) ClassifyEntry(minute int) (c attendance.Classification, ok bool) {
	switch {
	case minute < w.AnticipatedStart:
		return "", false
	case minute <= w.OnTimeEnd:
		return attendance.ClassificationPuntual, true
	case minute <= w.RetardoEnd:
		return attendance.ClassificationRetardo, true
	case minute <= w.GroupExit:
		return attendance.ClassificationFalta, true
	default:
		return "", false
	}
}

// InExitWindow reports whether minute lies in [ExitWindowStart, ExitWindowEnd].
func (w Windows) InExitWindow(minute int) bool {
	return minute >= w.ExitWindowStart && minute <= w.ExitWindowEnd
}
