package postgresql

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/cmlabs-hris/attendance-engine/internal/domain/attendance"
	"github.com/cmlabs-hris/attendance-engine/internal/pkg/database"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
)

const dateLayout = "2006-01-02"

type recordRepository struct {
	db  *database.DB
	loc *time.Location
}

// NewRecordRepository returns the attendance record store. Work dates are
// returned as midnight in loc.
func NewRecordRepository(db *database.DB, loc *time.Location) attendance.RecordRepository {
	return &recordRepository{db: db, loc: loc}
}

const recordColumns = `
	id, employee_id, work_date, type, classification, recorded_at, day_record_index,
	group_index, latitude, longitude, department_id, source, created_at`

func (r *recordRepository) scan(row pgx.Row) (attendance.Record, error) {
	var (
		rec      attendance.Record
		workDate time.Time
		typ      string
		class    string
		source   string
	)
	err := row.Scan(
		&rec.ID, &rec.EmployeeID, &workDate, &typ, &class, &rec.Timestamp, &rec.DayRecordIndex,
		&rec.GroupIndex, &rec.Latitude, &rec.Longitude, &rec.DepartmentID, &source, &rec.CreatedAt,
	)
	if err != nil {
		return attendance.Record{}, err
	}
	y, m, d := workDate.Date()
	rec.WorkDate = time.Date(y, m, d, 0, 0, 0, 0, r.loc)
	rec.Type = attendance.ActionType(typ)
	rec.Classification = attendance.Classification(class)
	rec.Source = attendance.RecordSource(source)
	rec.Timestamp = rec.Timestamp.In(r.loc)
	return rec, nil
}

// ListByEmployeeAndDate implements attendance.RecordRepository.
func (r *recordRepository) ListByEmployeeAndDate(ctx context.Context, employeeID string, workDate time.Time) ([]attendance.Record, error) {
	q := GetQuerier(ctx, r.db)

	query := `SELECT ` + recordColumns + `
		FROM attendance_records
		WHERE employee_id = $1 AND work_date = $2::date
		ORDER BY day_record_index DESC`

	rows, err := q.Query(ctx, query, employeeID, workDate.Format(dateLayout))
	if err != nil {
		return nil, fmt.Errorf("failed to list attendance records: %w", err)
	}
	defer rows.Close()

	var records []attendance.Record
	for rows.Next() {
		rec, err := r.scan(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan attendance record: %w", err)
		}
		records = append(records, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate attendance records: %w", err)
	}
	return records, nil
}

// InsertIfAbsent implements attendance.RecordRepository.
func (r *recordRepository) InsertIfAbsent(ctx context.Context, record attendance.Record) (attendance.Record, error) {
	q := GetQuerier(ctx, r.db)

	if record.ID == "" {
		id, err := uuid.NewV7()
		if err != nil {
			return attendance.Record{}, fmt.Errorf("failed to generate record id: %w", err)
		}
		record.ID = id.String()
	}
	if record.Source == "" {
		record.Source = attendance.SourceRegistrar
	}

	query := `
		INSERT INTO attendance_records (
			id, employee_id, work_date, type, classification, recorded_at, day_record_index,
			group_index, latitude, longitude, department_id, source
		) VALUES ($1, $2, $3::date, $4, $5, $6, $7, $8, $9, $10, $11, $12)
		ON CONFLICT (employee_id, work_date, day_record_index) DO NOTHING
		RETURNING ` + recordColumns

	created, err := r.scan(q.QueryRow(ctx, query,
		record.ID,
		record.EmployeeID,
		record.WorkDate.Format(dateLayout),
		string(record.Type),
		string(record.Classification),
		record.Timestamp,
		record.DayRecordIndex,
		record.GroupIndex,
		record.Latitude,
		record.Longitude,
		record.DepartmentID,
		string(record.Source),
	))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return attendance.Record{}, attendance.ErrRecordExists
		}
		return attendance.Record{}, fmt.Errorf("failed to insert attendance record: %w", err)
	}
	return created, nil
}

// ListOpenEntries implements attendance.RecordRepository.
func (r *recordRepository) ListOpenEntries(ctx context.Context, workDate time.Time) ([]attendance.Record, error) {
	q := GetQuerier(ctx, r.db)

	query := `
		SELECT ` + recordColumns + `
		FROM (
			SELECT DISTINCT ON (employee_id) ` + recordColumns + `
			FROM attendance_records
			WHERE work_date = $1::date
			ORDER BY employee_id, day_record_index DESC
		) latest
		WHERE type = 'entrada'
		ORDER BY employee_id`

	rows, err := q.Query(ctx, query, workDate.Format(dateLayout))
	if err != nil {
		return nil, fmt.Errorf("failed to list open entries: %w", err)
	}
	defer rows.Close()

	var records []attendance.Record
	for rows.Next() {
		rec, err := r.scan(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan open entry: %w", err)
		}
		records = append(records, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate open entries: %w", err)
	}
	return records, nil
}
