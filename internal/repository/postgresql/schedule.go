package postgresql

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/cmlabs-hris/attendance-engine/internal/domain/schedule"
	"github.com/cmlabs-hris/attendance-engine/internal/pkg/database"
	"github.com/jackc/pgx/v5"
)

type scheduleRepository struct {
	db *database.DB
}

func NewScheduleRepository(db *database.DB) schedule.ScheduleRepository {
	return &scheduleRepository{db: db}
}

// GetWeeklyConfig implements schedule.ScheduleRepository.
func (s *scheduleRepository) GetWeeklyConfig(ctx context.Context, employeeID string, date time.Time) (schedule.WeeklyConfig, error) {
	q := GetQuerier(ctx, s.db)

	query := `
		SELECT employee_id, effective_from, document
		FROM employee_schedules
		WHERE employee_id = $1 AND effective_from <= $2::date
		ORDER BY effective_from DESC
		LIMIT 1`

	var (
		cfg      schedule.WeeklyConfig
		document []byte
	)
	err := q.QueryRow(ctx, query, employeeID, date.Format(dateLayout)).Scan(&cfg.EmployeeID, &cfg.EffectiveFrom, &document)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return schedule.WeeklyConfig{}, schedule.ErrScheduleNotFound
		}
		return schedule.WeeklyConfig{}, fmt.Errorf("failed to get weekly schedule: %w", err)
	}
	cfg.Document = json.RawMessage(document)
	return cfg, nil
}

// GetTolerancePolicy implements schedule.ScheduleRepository.
// The role with the greatest precedence that defines a policy wins; ties go to the role name.
func (s *scheduleRepository) GetTolerancePolicy(ctx context.Context, employeeID string) (*schedule.TolerancePolicy, error) {
	q := GetQuerier(ctx, s.db)

	query := `
		SELECT r.tolerance_policy
		FROM employee_roles er
		JOIN roles r ON r.id = er.role_id
		WHERE er.employee_id = $1 AND r.tolerance_policy IS NOT NULL
		ORDER BY r.precedence DESC, r.name
		LIMIT 1`

	var raw []byte
	err := q.QueryRow(ctx, query, employeeID).Scan(&raw)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get tolerance policy: %w", err)
	}

	var policy schedule.TolerancePolicy
	if err := json.Unmarshal(raw, &policy); err != nil {
		return nil, fmt.Errorf("%w: %v", schedule.ErrInvalidTolerancePolicy, err)
	}
	return &policy, nil
}
