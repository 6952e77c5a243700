package cron

import (
	"context"
	"time"

	"github.com/cmlabs-hris/attendance-engine/internal/domain/attendance"
)

const ReconcileAbsencesJob = "reconcile_absences"

// ReconcilerJobs drives the absence reconciler from the scheduler. Every instance
// may run it; the reconciler's conditional insert keeps it single-effect.
type ReconcilerJobs struct {
	reconciler attendance.AbsenceReconciler
	interval   time.Duration
}

func NewReconcilerJobs(reconciler attendance.AbsenceReconciler, interval time.Duration) *ReconcilerJobs {
	return &ReconcilerJobs{reconciler: reconciler, interval: interval}
}

func (j *ReconcilerJobs) RegisterJobs(scheduler *Scheduler) {
	scheduler.AddJob(Job{
		Name:     ReconcileAbsencesJob,
		Interval: j.interval,
		Fn:       j.ReconcileAbsences,
	})
}

func (j *ReconcilerJobs) ReconcileAbsences(ctx context.Context, now time.Time) error {
	_, err := j.reconciler.Tick(ctx, now)
	return err
}
