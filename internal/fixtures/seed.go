// Package fixtures loads seed data (employees, roles, schedules and department
// zones) into either store.
package fixtures

import (
	_ "embed"
	"encoding/json"
	"errors"
	"fmt"
	"slices"
	"sort"
	"time"

	"github.com/cmlabs-hris/attendance-engine/internal/domain/geofence"
	"github.com/cmlabs-hris/attendance-engine/internal/domain/schedule"
	"github.com/cmlabs-hris/attendance-engine/internal/pkg/credential"
	"github.com/cmlabs-hris/attendance-engine/internal/pkg/validator"
)

//go:embed demo.json
var demo []byte

// Demo returns the bundled fixture used by DB_DRIVER=memory when no seed file is set.
func Demo() []byte {
	return demo
}

// ==========================================
// FIXTURE DOCUMENT
// ==========================================

type Role struct {
	ID         string                    `json:"id"`
	Name       string                    `json:"name"`
	Precedence int                       `json:"precedence"`
	Tolerance  *schedule.TolerancePolicy `json:"tolerance"`
}

type Schedule struct {
	EffectiveFrom string          `json:"effective_from"` // YYYY-MM-DD, empty means always
	Document      json.RawMessage `json:"document"`
}

type Employee struct {
	ID       string  `json:"id"`
	FullName string  `json:"full_name"`
	Active   bool    `json:"active"`
	PINHash  *string `json:"pin_hash"`
	// PIN is hashed on load so fixtures can be written by hand.
	PIN       *string    `json:"pin"`
	Roles     []string   `json:"roles"`
	Schedules []Schedule `json:"schedules"`
}

type Zone struct {
	DepartmentID   string            `json:"department_id"`
	DepartmentName string            `json:"department_name"`
	Polygon        []geofence.LatLng `json:"polygon"`
}

type Fixture struct {
	Roles     []Role     `json:"roles"`
	Employees []Employee `json:"employees"`
	Zones     []Zone     `json:"zones"`
}

// Parse decodes and checks a fixture document. Plain PINs are replaced by their hash.
func Parse(data []byte) (Fixture, error) {
	var fx Fixture
	if err := json.Unmarshal(data, &fx); err != nil {
		return Fixture{}, fmt.Errorf("failed to decode fixture: %w", err)
	}

	var errs []error
	roles := make(map[string]bool, len(fx.Roles))
	for _, r := range fx.Roles {
		if r.ID == "" {
			errs = append(errs, errors.New("role without id"))
		}
		roles[r.ID] = true
	}

	seen := make(map[string]bool, len(fx.Employees))
	for i := range fx.Employees {
		e := &fx.Employees[i]
		if e.ID == "" || seen[e.ID] {
			errs = append(errs, fmt.Errorf("employee %d: missing or duplicate id %q", i, e.ID))
			continue
		}
		seen[e.ID] = true

		for _, roleID := range e.Roles {
			if !roles[roleID] {
				errs = append(errs, fmt.Errorf("employee %s: unknown role %q", e.ID, roleID))
			}
		}
		for _, s := range e.Schedules {
			if _, err := s.Effective(); err != nil {
				errs = append(errs, fmt.Errorf("employee %s: %w", e.ID, err))
			}
		}
		if e.PIN != nil {
			hash, err := credential.HashPIN(*e.PIN)
			if err != nil {
				errs = append(errs, fmt.Errorf("employee %s: %w", e.ID, err))
				continue
			}
			e.PINHash = &hash
			e.PIN = nil
		}
	}

	for _, z := range fx.Zones {
		if z.DepartmentID == "" {
			errs = append(errs, errors.New("zone without department_id"))
		}
	}

	if err := errors.Join(errs...); err != nil {
		return Fixture{}, err
	}
	return fx, nil
}

// Effective returns the schedule start date; the zero time when unset.
func (s Schedule) Effective() (time.Time, error) {
	if s.EffectiveFrom == "" {
		return time.Time{}, nil
	}
	t, ok := validator.IsValidDate(s.EffectiveFrom)
	if !ok {
		return time.Time{}, fmt.Errorf("invalid effective_from %q", s.EffectiveFrom)
	}
	return t, nil
}

// TolerancePolicy resolves the policy of the employee's highest-precedence role that
// defines one. Ties go to the role name. Returns nil when none does.
func (f Fixture) TolerancePolicy(e Employee) *schedule.TolerancePolicy {
	var candidates []Role
	for _, r := range f.Roles {
		if r.Tolerance != nil && slices.Contains(e.Roles, r.ID) {
			candidates = append(candidates, r)
		}
	}
	if len(candidates) == 0 {
		return nil
	}
	sort.Slice(candidates, func(i, j int) bool {
		if candidates[i].Precedence != candidates[j].Precedence {
			return candidates[i].Precedence > candidates[j].Precedence
		}
		return candidates[i].Name < candidates[j].Name
	})
	p := *candidates[0].Tolerance
	return &p
}
