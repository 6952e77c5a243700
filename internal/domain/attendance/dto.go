package attendance

import (
	"time"

	"github.com/cmlabs-hris/attendance-engine/internal/domain/schedule"
	"github.com/cmlabs-hris/attendance-engine/internal/pkg/validator"
)

// ========================================
// ELIGIBILITY DTOs
// ========================================

type Coordinate struct {
	Latitude  float64 `json:"latitude" validate:"gte=-90,lte=90"`
	Longitude float64 `json:"longitude" validate:"gte=-180,lte=180"`
}

type EvaluateRequest struct {
	EmployeeID string      `json:"-" validate:"required"`
	Coordinate *Coordinate `json:"coordinate,omitempty"`
	// DepartmentID is the last explicit department selection, kept when it is still a candidate.
	DepartmentID *string `json:"department_id,omitempty"`
}

func (r *EvaluateRequest) Validate() error {
	return validator.Struct(r)
}

type GeofenceStatus struct {
	Inside                 bool     `json:"inside"`
	CandidateDepartmentIDs []string `json:"candidate_department_ids"`
	SelectedDepartmentID   *string  `json:"selected_department_id,omitempty"`
}

type EvaluateResponse struct {
	EmployeeID  string                `json:"employee_id"`
	WorkDate    string                `json:"work_date"`
	EvaluatedAt string                `json:"evaluated_at"`
	Eligibility EligibilityResult     `json:"eligibility"`
	Groups      []schedule.ShiftGroup `json:"jornadas"`
	Geofence    *GeofenceStatus       `json:"geofence,omitempty"`
}

// ========================================
// REGISTRATION DTOs
// ========================================

type RegisterRequest struct {
	EmployeeID   string   `json:"-" validate:"required"`
	ActionType   string   `json:"action_type" validate:"required,oneof=entrada salida"`
	Latitude     *float64 `json:"latitude" validate:"required,gte=-90,lte=90"`
	Longitude    *float64 `json:"longitude" validate:"required,gte=-180,lte=180"`
	DepartmentID *string  `json:"department_id,omitempty" validate:"omitempty,min=1"`
	PIN          *string  `json:"pin,omitempty" validate:"omitempty,numeric,min=4,max=8"`
}

func (r *RegisterRequest) Validate() error {
	return validator.Struct(r)
}

type RecordResponse struct {
	ID             string   `json:"id"`
	EmployeeID     string   `json:"employee_id"`
	WorkDate       string   `json:"work_date"`
	Type           string   `json:"type"`
	Classification string   `json:"classification"`
	Timestamp      string   `json:"timestamp"`
	DayRecordIndex int      `json:"day_record_index"`
	GroupIndex     int      `json:"group_index"`
	Latitude       *float64 `json:"latitude,omitempty"`
	Longitude      *float64 `json:"longitude,omitempty"`
	DepartmentID   *string  `json:"department_id,omitempty"`
	Source         string   `json:"source"`
}

// NewRecordResponse maps a record to its API shape.
func NewRecordResponse(r Record) RecordResponse {
	return RecordResponse{
		ID:             r.ID,
		EmployeeID:     r.EmployeeID,
		WorkDate:       r.WorkDate.Format("2006-01-02"),
		Type:           string(r.Type),
		Classification: string(r.Classification),
		Timestamp:      r.Timestamp.Format(time.RFC3339),
		DayRecordIndex: r.DayRecordIndex,
		GroupIndex:     r.GroupIndex,
		Latitude:       r.Latitude,
		Longitude:      r.Longitude,
		DepartmentID:   r.DepartmentID,
		Source:         string(r.Source),
	}
}
