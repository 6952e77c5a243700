package response

import (
	"errors"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/cmlabs-hris/attendance-engine/internal/domain/attendance"
	"github.com/cmlabs-hris/attendance-engine/internal/domain/employee"
	"github.com/cmlabs-hris/attendance-engine/internal/pkg/validator"
)

// HandleError maps domain errors to HTTP responses
func HandleError(w http.ResponseWriter, err error) {
	// Check if it's a validation error
	var validationErrs validator.ValidationErrors
	if errors.As(err, &validationErrs) {
		ValidationError(w, validationErrs.ToMap())
		return
	}

	var ineligible *attendance.IneligibleError
	if errors.As(err, &ineligible) {
		NotEligible(w, ineligible.Result)
		return
	}

	switch {
	// Registration errors
	case errors.Is(err, attendance.ErrActionTypeMismatch):
		UnprocessableEntity(w, "ACTION_TYPE_MISMATCH", err.Error())
	case errors.Is(err, attendance.ErrDepartmentNotAllowed):
		UnprocessableEntity(w, "DEPARTMENT_NOT_ALLOWED", err.Error())
	case errors.Is(err, attendance.ErrOutsideGeofence):
		writeError(w, http.StatusForbidden, "OUTSIDE_GEOFENCE", err.Error(), nil)
	case errors.Is(err, attendance.ErrCredentialRequired),
		errors.Is(err, attendance.ErrInvalidCredential):
		Unauthorized(w, err.Error())

	// Concurrency errors
	case errors.Is(err, attendance.ErrRecordExists):
		Conflict(w, "Attendance was already registered, refresh and try again")
	case errors.Is(err, attendance.ErrSubmissionInFlight):
		TooManyRequests(w, err.Error())

	// Employee domain errors
	case errors.Is(err, employee.ErrEmployeeNotFound):
		NotFound(w, "Employee not found")
	case errors.Is(err, employee.ErrEmployeeInactive):
		Forbidden(w, "Employee is not active")

	// Default
	default:
		slog.Error("Unhandled error", "error", err)
		InternalServerError(w, "An unexpected error occurred")
	}
}

// NotEligible reports a registration refused by the eligibility check.
func NotEligible(w http.ResponseWriter, result attendance.EligibilityResult) {
	details := map[string]string{
		"reason":           string(result.Reason),
		"state":            string(result.State),
		"next_action_type": string(result.NextActionType),
		"group_index":      strconv.Itoa(result.GroupIndex),
	}
	if result.WaitMessage != "" {
		details["wait_message"] = result.WaitMessage
	}
	writeError(w, http.StatusConflict, "NOT_ELIGIBLE", attendance.ErrNotEligible.Error(), details)
}
