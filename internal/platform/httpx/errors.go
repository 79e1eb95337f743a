// Package httpx provides HTTP response utilities.
package httpx

import (
	"errors"
	"net/http"

	"github.com/meridian-erp/meridian-erp/internal/shared"
)

// RespondError maps domain errors to HTTP responses using RFC7807.
// Refresh-token failures deliberately collapse into one generic unauthorized
// body so the caller cannot distinguish which check failed.
func RespondError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, shared.ErrDuplicateEmail):
		Problem(w, http.StatusBadRequest, "Duplicate Identity", "email is already registered")
	case errors.Is(err, shared.ErrInvalidRole):
		Problem(w, http.StatusBadRequest, "Invalid Role", "role is not recognized")
	case errors.Is(err, shared.ErrMissingToken):
		Problem(w, http.StatusBadRequest, "Missing Token", "refresh token is required")
	case errors.Is(err, shared.ErrInvalidCredentials):
		Problem(w, http.StatusUnauthorized, "Invalid Credentials", "email or password is incorrect")
	case shared.IsTokenError(err):
		Problem(w, http.StatusUnauthorized, "Unauthorized", "refresh token is not valid")
	case errors.Is(err, shared.ErrAccountDisabled):
		Problem(w, http.StatusForbidden, "Account Disabled", "account has been deactivated")
	case errors.Is(err, shared.ErrNotFound):
		Problem(w, http.StatusNotFound, "Not Found", "")
	default:
		Problem(w, http.StatusInternalServerError, "Internal Error", "")
	}
}
