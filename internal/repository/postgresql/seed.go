package postgresql

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/cmlabs-hris/attendance-engine/internal/fixtures"
	"github.com/cmlabs-hris/attendance-engine/internal/pkg/database"
	"github.com/google/uuid"
)

// Seed upserts a fixture document in one transaction. Attendance records are never touched.
func Seed(ctx context.Context, db *database.DB, data []byte) error {
	fx, err := fixtures.Parse(data)
	if err != nil {
		return err
	}

	return WithTransaction(ctx, db, func(txCtx context.Context) error {
		q := GetQuerier(txCtx, db)

		for _, r := range fx.Roles {
			var policy []byte
			if r.Tolerance != nil {
				if policy, err = json.Marshal(r.Tolerance); err != nil {
					return fmt.Errorf("role %s: %w", r.ID, err)
				}
			}
			_, err := q.Exec(txCtx, `
				INSERT INTO roles (id, name, precedence, tolerance_policy)
				VALUES ($1, $2, $3, $4)
				ON CONFLICT (id) DO UPDATE
				SET name = EXCLUDED.name, precedence = EXCLUDED.precedence, tolerance_policy = EXCLUDED.tolerance_policy`,
				r.ID, r.Name, r.Precedence, policy)
			if err != nil {
				return fmt.Errorf("failed to seed role %s: %w", r.ID, err)
			}
		}

		for _, e := range fx.Employees {
			_, err := q.Exec(txCtx, `
				INSERT INTO employees (id, full_name, pin_hash, active)
				VALUES ($1, $2, $3, $4)
				ON CONFLICT (id) DO UPDATE
				SET full_name = EXCLUDED.full_name, pin_hash = EXCLUDED.pin_hash,
					active = EXCLUDED.active, updated_at = NOW()`,
				e.ID, e.FullName, e.PINHash, e.Active)
			if err != nil {
				return fmt.Errorf("failed to seed employee %s: %w", e.ID, err)
			}

			if _, err := q.Exec(txCtx, `DELETE FROM employee_roles WHERE employee_id = $1`, e.ID); err != nil {
				return fmt.Errorf("failed to reset roles of %s: %w", e.ID, err)
			}
			for _, roleID := range e.Roles {
				if _, err := q.Exec(txCtx, `INSERT INTO employee_roles (employee_id, role_id) VALUES ($1, $2)`, e.ID, roleID); err != nil {
					return fmt.Errorf("failed to assign role %s to %s: %w", roleID, e.ID, err)
				}
			}

			for _, s := range e.Schedules {
				from, _ := s.Effective()
				id, err := uuid.NewV7()
				if err != nil {
					return err
				}
				_, err = q.Exec(txCtx, `
					INSERT INTO employee_schedules (id, employee_id, effective_from, document)
					VALUES ($1, $2, $3::date, $4)
					ON CONFLICT (employee_id, effective_from) DO UPDATE SET document = EXCLUDED.document`,
					id.String(), e.ID, from.Format(dateLayout), []byte(s.Document))
				if err != nil {
					return fmt.Errorf("failed to seed schedule of %s: %w", e.ID, err)
				}
			}
		}

		for _, z := range fx.Zones {
			polygon, err := json.Marshal(z.Polygon)
			if err != nil {
				return fmt.Errorf("zone %s: %w", z.DepartmentID, err)
			}
			_, err = q.Exec(txCtx, `
				INSERT INTO departments (id, name, zone)
				VALUES ($1, $2, $3)
				ON CONFLICT (id) DO UPDATE SET name = EXCLUDED.name, zone = EXCLUDED.zone`,
				z.DepartmentID, z.DepartmentName, polygon)
			if err != nil {
				return fmt.Errorf("failed to seed zone %s: %w", z.DepartmentID, err)
			}
		}
		return nil
	})
}
