package attendance

import (
	"context"
	"time"
)

// AttendanceService evaluates and registers check-ins and check-outs.
type AttendanceService interface {
	// Evaluate computes the current eligibility and geofence status without side effects.
	Evaluate(ctx context.Context, req EvaluateRequest) (EvaluateResponse, error)

	// Register persists a check-in or check-out after re-validating eligibility and location.
	Register(ctx context.Context, req RegisterRequest) (RecordResponse, error)

	// TodayRecords lists the employee's records for the current work date.
	TodayRecords(ctx context.Context, employeeID string) ([]RecordResponse, error)
}

// AbsenceReconciler closes missed check-outs with a falta record.
type AbsenceReconciler interface {
	// Tick is idempotent and safe to call concurrently.
	Tick(ctx context.Context, now time.Time) (TickResult, error)
}

type TickResult struct {
	Checked   int `json:"checked"`
	Recorded  int `json:"recorded"`
	Conflicts int `json:"conflicts"`
	Skipped   int `json:"skipped"`
}

// EventPublisher announces records created without the employee's involvement.
type EventPublisher interface {
	PublishAbsenceRecorded(ctx context.Context, record Record) error
}
