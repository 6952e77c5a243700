package reconciler

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/cmlabs-hris/attendance-engine/internal/domain/attendance"
	"github.com/cmlabs-hris/attendance-engine/internal/pkg/metrics"
	"github.com/cmlabs-hris/attendance-engine/internal/service/eligibility"
	scheduleservice "github.com/cmlabs-hris/attendance-engine/internal/service/schedule"
)

type AbsenceReconcilerImpl struct {
	records   attendance.RecordRepository
	planner   *scheduleservice.Planner
	publisher attendance.EventPublisher
	metrics   *metrics.Metrics
	loc       *time.Location
}

func NewAbsenceReconciler(
	records attendance.RecordRepository,
	planner *scheduleservice.Planner,
	publisher attendance.EventPublisher,
	m *metrics.Metrics,
	loc *time.Location,
) attendance.AbsenceReconciler {
	return &AbsenceReconcilerImpl{
		records:   records,
		planner:   planner,
		publisher: publisher,
		metrics:   m,
		loc:       loc,
	}
}

type outcome int

const (
	outcomeSkipped outcome = iota
	outcomeRecorded
	outcomeConflict
)

// Tick closes every open entrada of the previous and the current work date whose
// deadline has passed. Each tick re-reads the store, so it can run on any instance
// and any number of times.
func (r *AbsenceReconcilerImpl) Tick(ctx context.Context, now time.Time) (attendance.TickResult, error) {
	started := time.Now()
	defer func() { r.metrics.ObserveTick(time.Since(started)) }()

	local := now.In(r.loc)
	y, m, d := local.Date()
	today := time.Date(y, m, d, 0, 0, 0, 0, r.loc)

	var (
		result attendance.TickResult
		errs   []error
	)
	for _, workDate := range []time.Time{today.AddDate(0, 0, -1), today} {
		open, err := r.records.ListOpenEntries(ctx, workDate)
		if err != nil {
			errs = append(errs, fmt.Errorf("failed to list open entries for %s: %w", workDate.Format("2006-01-02"), err))
			continue
		}

		for _, entry := range open {
			result.Checked++
			out, err := r.closeIfMissed(ctx, entry, workDate, local)
			if err != nil {
				errs = append(errs, fmt.Errorf("employee %s: %w", entry.EmployeeID, err))
				continue
			}
			switch out {
			case outcomeRecorded:
				result.Recorded++
			case outcomeConflict:
				result.Conflicts++
			default:
				result.Skipped++
			}
		}
	}

	if result.Recorded > 0 || len(errs) > 0 {
		slog.Info("Reconciler tick finished",
			"checked", result.Checked,
			"recorded", result.Recorded,
			"conflicts", result.Conflicts,
			"skipped", result.Skipped,
			"errors", len(errs))
	}
	return result, errors.Join(errs...)
}

func (r *AbsenceReconcilerImpl) closeIfMissed(ctx context.Context, entry attendance.Record, workDate, now time.Time) (outcome, error) {
	plan, err := r.planner.Plan(ctx, entry.EmployeeID, workDate)
	if err != nil {
		return outcomeSkipped, err
	}
	if len(plan.Groups) == 0 {
		slog.Debug("Open entry without shifts, leaving it open",
			"employee_id", entry.EmployeeID,
			"work_date", workDate.Format("2006-01-02"),
			"config_error", plan.ConfigErr)
		return outcomeSkipped, nil
	}

	index := attendance.OpenGroupIndex(entry, len(plan.Groups))
	groupExit := plan.Groups[index].Exit().On(workDate)
	// A stale schedule can put the group exit before the check-in itself.
	stamp := groupExit
	if stamp.Before(entry.Timestamp) {
		stamp = entry.Timestamp
	}
	grace := max(plan.Policy.AbsenceGraceMinutes, eligibility.LateExitGraceMinutes)
	deadline := groupExit.Add(time.Duration(grace) * time.Minute)
	if !now.After(deadline) {
		return outcomeSkipped, nil
	}

	// The unique (employee, work date, index) slot makes this a compare-and-set:
	// a real check-out or another reconciler that got there first wins.
	created, err := r.records.InsertIfAbsent(ctx, attendance.Record{
		EmployeeID:     entry.EmployeeID,
		WorkDate:       workDate,
		Type:           attendance.ActionSalida,
		Classification: attendance.ClassificationFalta,
		Timestamp:      stamp,
		DayRecordIndex: entry.DayRecordIndex + 1,
		GroupIndex:     index,
		DepartmentID:   entry.DepartmentID,
		Source:         attendance.SourceReconciler,
	})
	if err != nil {
		if errors.Is(err, attendance.ErrRecordExists) {
			r.metrics.ReconcilerConflict()
			slog.Debug("Missed exit already closed",
				"employee_id", entry.EmployeeID,
				"work_date", workDate.Format("2006-01-02"))
			return outcomeConflict, nil
		}
		return outcomeSkipped, fmt.Errorf("failed to insert absence: %w", err)
	}

	r.metrics.AbsenceRecorded()
	slog.Info("Absence recorded for missed exit",
		"employee_id", created.EmployeeID,
		"work_date", workDate.Format("2006-01-02"),
		"group_index", index,
		"group_exit", groupExit.Format("15:04"),
		"record_id", created.ID)

	if err := r.publisher.PublishAbsenceRecorded(ctx, created); err != nil {
		// The record is durable; a lost event does not undo it.
		slog.Error("Failed to publish absence event", "record_id", created.ID, "error", err)
	}
	return outcomeRecorded, nil
}
