package credential

import (
	"errors"

	"github.com/cmlabs-hris/attendance-engine/internal/pkg/validator"
	"golang.org/x/crypto/bcrypt"
)

var (
	ErrMismatch   = errors.New("credential does not match")
	ErrInvalidPIN = errors.New("PIN must be 4 to 8 digits")
)

// HashPIN returns the bcrypt hash stored for an employee PIN.
func HashPIN(pin string) (string, error) {
	if len(pin) < 4 || len(pin) > 8 || !validator.IsNumeric(pin) {
		return "", ErrInvalidPIN
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(pin), bcrypt.DefaultCost)
	if err != nil {
		return "", err
	}
	return string(hash), nil
}

// VerifyPIN returns ErrMismatch when pin does not match hash.
func VerifyPIN(hash, pin string) error {
	err := bcrypt.CompareHashAndPassword([]byte(hash), []byte(pin))
	if errors.Is(err, bcrypt.ErrMismatchedHashAndPassword) {
		return ErrMismatch
	}
	return err
}
