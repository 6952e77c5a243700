package http

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/cmlabs-hris/attendance-engine/internal/domain/attendance"
	"github.com/cmlabs-hris/attendance-engine/internal/handler/http/middleware"
	"github.com/cmlabs-hris/attendance-engine/internal/handler/http/response"
	"github.com/cmlabs-hris/attendance-engine/internal/pkg/validator"
)

type AttendanceHandler interface {
	Eligibility(w http.ResponseWriter, r *http.Request)
	Register(w http.ResponseWriter, r *http.Request)
	Today(w http.ResponseWriter, r *http.Request)
}

type attendanceHandlerImpl struct {
	attendanceService attendance.AttendanceService
	timezone          string
}

func NewAttendanceHandler(attendanceService attendance.AttendanceService, timezone string) AttendanceHandler {
	return &attendanceHandlerImpl{
		attendanceService: attendanceService,
		timezone:          timezone,
	}
}

// Eligibility implements AttendanceHandler.
// Query: latitude, longitude (both or neither), department_id.
func (h *attendanceHandlerImpl) Eligibility(w http.ResponseWriter, r *http.Request) {
	req := attendance.EvaluateRequest{EmployeeID: middleware.EmployeeID(r.Context())}

	coordinate, err := parseCoordinate(r)
	if err != nil {
		response.HandleError(w, err)
		return
	}
	req.Coordinate = coordinate
	if dept := r.URL.Query().Get("department_id"); !validator.IsEmpty(dept) {
		req.DepartmentID = &dept
	}

	result, err := h.attendanceService.Evaluate(r.Context(), req)
	if err != nil {
		response.HandleError(w, err)
		return
	}

	response.Success(w, result)
}

// Register implements AttendanceHandler.
func (h *attendanceHandlerImpl) Register(w http.ResponseWriter, r *http.Request) {
	var req attendance.RegisterRequest

	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		slog.Debug("Failed to decode register request", "error", err)
		response.BadRequest(w, "Invalid request format", nil)
		return
	}
	// Identity comes from the token, never from the body.
	req.EmployeeID = middleware.EmployeeID(r.Context())

	record, err := h.attendanceService.Register(r.Context(), req)
	if err != nil {
		response.HandleError(w, err)
		return
	}

	message := "Check-in registered"
	if record.Type == string(attendance.ActionSalida) {
		message = "Check-out registered"
	}
	response.Created(w, message, record)
}

// Today implements AttendanceHandler.
func (h *attendanceHandlerImpl) Today(w http.ResponseWriter, r *http.Request) {
	records, err := h.attendanceService.TodayRecords(r.Context(), middleware.EmployeeID(r.Context()))
	if err != nil {
		response.HandleError(w, err)
		return
	}

	meta := &response.Meta{Count: len(records), Timezone: h.timezone}
	if len(records) > 0 {
		meta.WorkDate = records[0].WorkDate
	}
	response.SuccessWithMeta(w, records, meta)
}

// parseCoordinate reads the optional latitude/longitude query pair.
func parseCoordinate(r *http.Request) (*attendance.Coordinate, error) {
	q := r.URL.Query()
	rawLat, rawLng := q.Get("latitude"), q.Get("longitude")
	if validator.IsEmpty(rawLat) && validator.IsEmpty(rawLng) {
		return nil, nil
	}

	var errs validator.ValidationErrors
	lat, err := strconv.ParseFloat(rawLat, 64)
	if err != nil {
		errs = append(errs, validator.ValidationError{Field: "latitude", Message: "latitude must be a number"})
	}
	lng, err := strconv.ParseFloat(rawLng, 64)
	if err != nil {
		errs = append(errs, validator.ValidationError{Field: "longitude", Message: "longitude must be a number"})
	}
	if len(errs) > 0 {
		return nil, errs
	}
	return &attendance.Coordinate{Latitude: lat, Longitude: lng}, nil
}
