package attendance

import (
	"errors"
	"fmt"
)

// Attendance domain errors
var (
	// Registration errors
	ErrNotEligible          = errors.New("attendance registration is not allowed right now")
	ErrActionTypeMismatch   = errors.New("action type does not match the expected next action")
	ErrOutsideGeofence      = errors.New("you are outside every permitted zone")
	ErrDepartmentNotAllowed = errors.New("department zone does not contain your location")
	ErrCredentialRequired   = errors.New("PIN is required")
	ErrInvalidCredential    = errors.New("invalid PIN")

	// Concurrency errors
	ErrRecordExists       = errors.New("attendance record already exists")
	ErrSubmissionInFlight = errors.New("another registration is already in progress")
)

// IneligibleError carries the eligibility result that refused a registration.
type IneligibleError struct {
	Result EligibilityResult
}

func (e *IneligibleError) Error() string {
	return fmt.Sprintf("%s: %s", ErrNotEligible, e.Result.Reason)
}

func (e *IneligibleError) Unwrap() error {
	return ErrNotEligible
}
