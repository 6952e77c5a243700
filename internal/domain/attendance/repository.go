package attendance

import (
	"context"
	"time"
)

// RecordRepository is the append-only attendance record store.
type RecordRepository interface {
	// ListByEmployeeAndDate returns the employee's records for a work date, most recent first.
	ListByEmployeeAndDate(ctx context.Context, employeeID string, workDate time.Time) ([]Record, error)

	// InsertIfAbsent stores record unless the employee already has a record with the same
	// work date and DayRecordIndex, in which case ErrRecordExists is returned.
	// The check and the insert are one atomic operation.
	InsertIfAbsent(ctx context.Context, record Record) (Record, error)

	// ListOpenEntries returns, for each employee whose latest record on workDate is an
	// entrada, that entrada.
	ListOpenEntries(ctx context.Context, workDate time.Time) ([]Record, error)
}

// SubmissionGuard allows a single in-flight registration per employee.
type SubmissionGuard interface {
	// Acquire returns ErrSubmissionInFlight when a registration for employeeID is already running.
	Acquire(ctx context.Context, employeeID string) (release func(context.Context), err error)
}
