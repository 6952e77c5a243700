package schedule

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/cmlabs-hris/attendance-engine/internal/domain/schedule"
)

// DayPlan is the evaluated schedule of one employee on one work date.
type DayPlan struct {
	Groups []schedule.ShiftGroup
	Policy schedule.TolerancePolicy
	// ConfigErr records a missing or malformed configuration that was degraded to no shifts
	// or to the default policy.
	ConfigErr error
}

// Planner loads shift groups and tolerance policies from the schedule store.
type Planner struct {
	repo schedule.ScheduleRepository
}

func NewPlanner(repo schedule.ScheduleRepository) *Planner {
	return &Planner{repo: repo}
}

// Plan never fails on configuration problems; only store errors are returned.
func (p *Planner) Plan(ctx context.Context, employeeID string, workDate time.Time) (DayPlan, error) {
	plan := DayPlan{Policy: schedule.DefaultTolerancePolicy()}

	policy, err := p.repo.GetTolerancePolicy(ctx, employeeID)
	switch {
	case errors.Is(err, schedule.ErrInvalidTolerancePolicy):
		plan.ConfigErr = err
		slog.Warn("Unreadable tolerance policy, using default", "employee_id", employeeID, "error", err)
	case err != nil:
		return DayPlan{}, fmt.Errorf("failed to get tolerance policy: %w", err)
	case policy != nil:
		if verr := policy.Validate(); verr != nil {
			plan.ConfigErr = verr
			slog.Warn("Invalid tolerance policy, using default", "employee_id", employeeID, "error", verr)
		} else {
			plan.Policy = *policy
		}
	}

	cfg, err := p.repo.GetWeeklyConfig(ctx, employeeID, workDate)
	if err != nil {
		if errors.Is(err, schedule.ErrScheduleNotFound) {
			plan.ConfigErr = errors.Join(plan.ConfigErr, err)
			return plan, nil
		}
		return DayPlan{}, fmt.Errorf("failed to get weekly schedule: %w", err)
	}

	groups, err := DayGroups(cfg, workDate)
	if err != nil {
		plan.ConfigErr = errors.Join(plan.ConfigErr, err)
		slog.Warn("Invalid weekly schedule, treating day as unscheduled",
			"employee_id", employeeID,
			"work_date", workDate.Format("2006-01-02"),
			"error", err)
		return plan, nil
	}
	plan.Groups = groups
	return plan, nil
}
