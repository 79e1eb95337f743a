package auth

import (
	"time"

	"github.com/meridian-erp/meridian-erp/internal/rbac"
)

// User represents an authenticated user account.
type User struct {
	ID           int64
	Email        string
	PasswordHash string
	FirstName    string
	LastName     string
	Role         rbac.Role
	IsActive     bool
	LastLoginAt  *time.Time
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// PublicUser is the representation safe to return to clients; the password
// digest never leaves the service layer.
type PublicUser struct {
	ID          int64      `json:"id"`
	Email       string     `json:"email"`
	FirstName   string     `json:"firstName"`
	LastName    string     `json:"lastName"`
	Role        rbac.Role  `json:"role"`
	IsActive    bool       `json:"isActive"`
	LastLoginAt *time.Time `json:"lastLoginAt"`
}

// Public strips the digest and internal timestamps.
func (u User) Public() PublicUser {
	return PublicUser{
		ID:          u.ID,
		Email:       u.Email,
		FirstName:   u.FirstName,
		LastName:    u.LastName,
		Role:        u.Role,
		IsActive:    u.IsActive,
		LastLoginAt: u.LastLoginAt,
	}
}

// RefreshToken is the persisted session credential. Only the SHA-256 digest
// of the secret half is stored; the plaintext exists solely in the response
// that issued it. Revocation flips the flag and is never undone; rows are
// kept for forensics rather than deleted.
type RefreshToken struct {
	ID        string
	UserID    int64
	TokenHash string
	ExpiresAt time.Time
	Revoked   bool
	IP        string
	UserAgent string
	CreatedAt time.Time
}

// TokenPair bundles the two credentials issued at register and login time.
type TokenPair struct {
	AccessToken      string
	RefreshToken     string
	AccessExpiresAt  time.Time
	RefreshExpiresAt time.Time
}

// Session is the result of a successful register or login.
type Session struct {
	User   User
	Tokens TokenPair
}
