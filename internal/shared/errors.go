package shared

import "errors"

var (
	// ErrNotFound indicates resource not found.
	ErrNotFound = errors.New("not found")
	// ErrInvalidCredentials indicates login failure.
	ErrInvalidCredentials = errors.New("invalid credentials")
	// ErrDuplicateEmail occurs when registering an email that already exists.
	ErrDuplicateEmail = errors.New("email already registered")
	// ErrAccountDisabled occurs when a deactivated account attempts login or refresh.
	ErrAccountDisabled = errors.New("account disabled")
	// ErrInvalidRole occurs when a request names a role outside the catalog.
	ErrInvalidRole = errors.New("invalid role")

	// ErrMissingToken occurs when a refresh request carries no token.
	ErrMissingToken = errors.New("refresh token missing")
	// ErrMalformedToken occurs when a token fails structural decoding.
	ErrMalformedToken = errors.New("refresh token malformed")
	// ErrTokenNotFound occurs when no persisted record matches the token.
	ErrTokenNotFound = errors.New("refresh token not found")
	// ErrTokenRevoked occurs when the matching record has been revoked.
	ErrTokenRevoked = errors.New("refresh token revoked")
	// ErrTokenExpired occurs when the matching record is past its expiry.
	ErrTokenExpired = errors.New("refresh token expired")
)

// IsTokenError reports whether err belongs to the refresh-token failure class.
// Members of the class surface to clients as one unauthorized outcome; the
// precise kind is kept for logging only.
func IsTokenError(err error) bool {
	return errors.Is(err, ErrMalformedToken) ||
		errors.Is(err, ErrTokenNotFound) ||
		errors.Is(err, ErrTokenRevoked) ||
		errors.Is(err, ErrTokenExpired)
}
