package schedule

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/cmlabs-hris/attendance-engine/internal/pkg/validator"
)

// ShiftMergeThresholdMinutes is the largest gap between two shifts that still
// keeps them in the same working block.
const ShiftMergeThresholdMinutes = 15

// Clock is a time of day expressed in minutes since midnight.
type Clock int

// ParseClock parses a zero-padded 24h "HH:MM" string.
func ParseClock(s string) (Clock, error) {
	if !validator.IsValidClock(s) {
		return 0, fmt.Errorf("%w: %q is not a HH:MM clock", ErrInvalidSchedule, s)
	}
	t, err := time.Parse("15:04", s)
	if err != nil {
		return 0, fmt.Errorf("%w: %q is not a HH:MM clock", ErrInvalidSchedule, s)
	}
	return Clock(t.Hour()*60 + t.Minute()), nil
}

// ClockOf returns the minute of day of t in t's location. Seconds are dropped.
func ClockOf(t time.Time) Clock {
	return Clock(t.Hour()*60 + t.Minute())
}

// On returns the instant of the clock on the day of date, in date's location.
func (c Clock) On(date time.Time) time.Time {
	y, m, d := date.Date()
	return time.Date(y, m, d, int(c)/60, int(c)%60, 0, 0, date.Location())
}

func (c Clock) String() string {
	return fmt.Sprintf("%02d:%02d", int(c)/60, int(c)%60)
}

func (c Clock) MarshalJSON() ([]byte, error) {
	return json.Marshal(c.String())
}

// ShiftDefinition is one configured entry/exit pair (a "turno").
type ShiftDefinition struct {
	Entry Clock `json:"entrada"`
	Exit  Clock `json:"salida"`
}

// ShiftGroup is one or more consecutive shifts worked as a single block (a "jornada").
type ShiftGroup struct {
	Shifts []ShiftDefinition `json:"turnos"`
}

// Entry is the entry clock of the first shift in the group.
func (g ShiftGroup) Entry() Clock {
	return g.Shifts[0].Entry
}

// Exit is the latest exit clock among the group's shifts.
func (g ShiftGroup) Exit() Clock {
	exit := g.Shifts[0].Exit
	for _, s := range g.Shifts[1:] {
		exit = max(exit, s.Exit)
	}
	return exit
}

// DurationMinutes is the span from group entry to group exit.
func (g ShiftGroup) DurationMinutes() int {
	return int(g.Exit() - g.Entry())
}

// WeeklyConfig is the raw weekly schedule document of an employee, keyed by day name.
type WeeklyConfig struct {
	EmployeeID    string
	EffectiveFrom time.Time
	Document      json.RawMessage
}

// TolerancePolicy holds the minute thresholds that classify check-ins and check-outs.
type TolerancePolicy struct {
	RetardoMinutes             int  `json:"retardoMinutes"`
	FaltaMinutes               int  `json:"faltaMinutes"`
	AnticipatedEntryMaxMinutes int  `json:"anticipatedEntryMaxMinutes"`
	AppliesExitTolerance       bool `json:"appliesExitTolerance"`
	// AnticipatedExitMinutes falls back to RetardoMinutes when nil.
	AnticipatedExitMinutes *int `json:"anticipatedExitMinutes,omitempty"`
	// AbsenceGraceMinutes is how long after the group exit a missing check-out becomes an absence.
	AbsenceGraceMinutes int `json:"faltaGraceMinutes"`
}

// DefaultTolerancePolicy is used when the employee's roles carry no policy.
func DefaultTolerancePolicy() TolerancePolicy {
	anticipatedExit := 10
	return TolerancePolicy{
		RetardoMinutes:             10,
		FaltaMinutes:               30,
		AnticipatedEntryMaxMinutes: 60,
		AppliesExitTolerance:       false,
		AnticipatedExitMinutes:     &anticipatedExit,
		AbsenceGraceMinutes:        30,
	}
}

// ExitToleranceMinutes is how early before the group exit a check-out is accepted.
func (p TolerancePolicy) ExitToleranceMinutes() int {
	if !p.AppliesExitTolerance {
		return 0
	}
	if p.AnticipatedExitMinutes == nil {
		return p.RetardoMinutes
	}
	return *p.AnticipatedExitMinutes
}

// Validate rejects negative thresholds.
func (p TolerancePolicy) Validate() error {
	if p.RetardoMinutes < 0 || p.FaltaMinutes < 0 || p.AnticipatedEntryMaxMinutes < 0 || p.AbsenceGraceMinutes < 0 {
		return ErrInvalidTolerancePolicy
	}
	if p.AnticipatedExitMinutes != nil && *p.AnticipatedExitMinutes < 0 {
		return ErrInvalidTolerancePolicy
	}
	return nil
}
