package geofence

import "github.com/cmlabs-hris/attendance-engine/internal/pkg/validator"

type CandidatesRequest struct {
	Latitude  *float64 `json:"latitude" validate:"required,gte=-90,lte=90"`
	Longitude *float64 `json:"longitude" validate:"required,gte=-180,lte=180"`
}

func (r *CandidatesRequest) Validate() error {
	return validator.Struct(r)
}

type CandidateResponse struct {
	DepartmentID   string `json:"department_id"`
	DepartmentName string `json:"department_name"`
}

type CandidatesResponse struct {
	Inside     bool                `json:"inside"`
	Candidates []CandidateResponse `json:"candidates"`

	// Only set when the coordinate is outside every zone.
	NearestDepartmentID   *string `json:"nearest_department_id,omitempty"`
	NearestDistanceMeters *int    `json:"nearest_distance_meters,omitempty"`
}
