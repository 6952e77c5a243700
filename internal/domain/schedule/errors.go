package schedule

import "errors"

var (
	// Configuration errors. The eligibility engine degrades on these instead of failing.
	ErrInvalidSchedule    = errors.New("invalid schedule configuration")
	ErrNoShiftsConfigured = errors.New("no turnos configurados")
	ErrScheduleNotFound   = errors.New("schedule not found")

	ErrInvalidTolerancePolicy = errors.New("invalid tolerance policy")
)
