package middleware

import (
	"context"
	"errors"
	"net/http"

	"github.com/cmlabs-hris/attendance-engine/internal/handler/http/response"
	"github.com/cmlabs-hris/attendance-engine/internal/pkg/jwt"
	"github.com/go-chi/jwtauth/v5"
)

type contextKey string

const employeeIDKey contextKey = "employee_id"

var ErrInvalidToken = errors.New("invalid or missing access token")

// AuthRequired accepts verified access tokens that carry an employee id and
// stores that id in the request context.
func AuthRequired(next http.Handler) http.Handler {
	hfn := func(w http.ResponseWriter, r *http.Request) {
		token, claims, err := jwtauth.FromContext(r.Context())
		if err != nil {
			response.Unauthorized(w, err.Error())
			return
		}
		if token == nil {
			response.Unauthorized(w, ErrInvalidToken.Error())
			return
		}

		tokenType, ok := claims[jwt.ClaimType].(string)
		if !ok || tokenType != jwt.TokenTypeAccess {
			response.Unauthorized(w, ErrInvalidToken.Error())
			return
		}
		employeeID, ok := claims[jwt.ClaimEmployeeID].(string)
		if !ok || employeeID == "" {
			response.Unauthorized(w, ErrInvalidToken.Error())
			return
		}

		ctx := context.WithValue(r.Context(), employeeIDKey, employeeID)
		next.ServeHTTP(w, r.WithContext(ctx))
	}
	return http.HandlerFunc(hfn)
}

// EmployeeID returns the id stored by AuthRequired.
func EmployeeID(ctx context.Context) string {
	id, _ := ctx.Value(employeeIDKey).(string)
	return id
}
