package schedule

import (
	"context"
	"time"
)

// ScheduleRepository reads the schedule store.
type ScheduleRepository interface {
	// GetWeeklyConfig returns the weekly configuration in effect on date.
	// Returns ErrScheduleNotFound when the employee has none.
	GetWeeklyConfig(ctx context.Context, employeeID string, date time.Time) (WeeklyConfig, error)

	// GetTolerancePolicy returns the policy of the employee's highest-precedence role,
	// or nil when no role carries one.
	GetTolerancePolicy(ctx context.Context, employeeID string) (*TolerancePolicy, error)
}
