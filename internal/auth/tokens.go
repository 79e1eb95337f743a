package auth

import (
	"crypto/rand"
	"crypto/sha256"
	"crypto/subtle"
	"encoding/base64"
	"encoding/hex"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	"github.com/meridian-erp/meridian-erp/internal/rbac"
	"github.com/meridian-erp/meridian-erp/internal/shared"
)

const tokenIssuerName = "meridian"

// AccessClaims are the JWT claims embedded in access tokens.
type AccessClaims struct {
	Role string `json:"role"`
	jwt.RegisteredClaims
}

// TokenIssuer mints the two session credentials: short-lived signed access
// tokens and long-lived opaque refresh tokens. Both TTLs are configuration
// constants, not per-call parameters.
type TokenIssuer struct {
	secret     []byte
	accessTTL  time.Duration
	refreshTTL time.Duration
	now        func() time.Time
}

// NewTokenIssuer constructs a TokenIssuer.
func NewTokenIssuer(secret string, accessTTL, refreshTTL time.Duration) (*TokenIssuer, error) {
	if strings.TrimSpace(secret) == "" {
		return nil, errors.New("auth: token secret must be provided")
	}
	if accessTTL <= 0 || refreshTTL <= 0 {
		return nil, errors.New("auth: token lifetimes must be positive")
	}
	return &TokenIssuer{
		secret:     []byte(secret),
		accessTTL:  accessTTL,
		refreshTTL: refreshTTL,
		now:        time.Now,
	}, nil
}

// WithClock overrides the time source for tests.
func (i *TokenIssuer) WithClock(now func() time.Time) *TokenIssuer {
	if now != nil {
		i.now = now
	}
	return i
}

// IssueAccessToken signs an HS256 JWT embedding the user id and role.
func (i *TokenIssuer) IssueAccessToken(user User) (string, time.Time, error) {
	now := i.now().UTC()
	expiresAt := now.Add(i.accessTTL)
	claims := AccessClaims{
		Role: string(user.Role),
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        uuid.NewString(),
			Issuer:    tokenIssuerName,
			Subject:   fmt.Sprintf("%d", user.ID),
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(expiresAt),
		},
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString(i.secret)
	if err != nil {
		return "", time.Time{}, fmt.Errorf("auth: sign access token: %w", err)
	}
	return signed, expiresAt, nil
}

// ParseAccessToken verifies the signature and registered claims.
func (i *TokenIssuer) ParseAccessToken(raw string) (*AccessClaims, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return nil, shared.ErrMalformedToken
	}
	parsed, err := jwt.ParseWithClaims(raw, &AccessClaims{}, func(t *jwt.Token) (any, error) {
		if t.Method != jwt.SigningMethodHS256 {
			return nil, shared.ErrMalformedToken
		}
		return i.secret, nil
	}, jwt.WithIssuer(tokenIssuerName), jwt.WithTimeFunc(i.now))
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return nil, shared.ErrTokenExpired
		}
		return nil, shared.ErrMalformedToken
	}
	claims, ok := parsed.Claims.(*AccessClaims)
	if !ok || !parsed.Valid {
		return nil, shared.ErrMalformedToken
	}
	if _, ok := rbac.ParseRole(claims.Role); !ok {
		return nil, shared.ErrMalformedToken
	}
	return claims, nil
}

// IssueRefreshToken generates an opaque credential of the shape
// "<recordID>.<secret>" and the record that persists its digest.
func (i *TokenIssuer) IssueRefreshToken(user User, ip, userAgent string) (string, RefreshToken, error) {
	secretBytes := make([]byte, 32)
	if _, err := rand.Read(secretBytes); err != nil {
		return "", RefreshToken{}, fmt.Errorf("auth: refresh token entropy: %w", err)
	}
	secret := base64.RawURLEncoding.EncodeToString(secretBytes)
	now := i.now().UTC()
	record := RefreshToken{
		ID:        uuid.NewString(),
		UserID:    user.ID,
		TokenHash: hashRefreshSecret(secret),
		ExpiresAt: now.Add(i.refreshTTL),
		IP:        ip,
		UserAgent: userAgent,
		CreatedAt: now,
	}
	return record.ID + "." + secret, record, nil
}

// splitRefreshToken decomposes the opaque credential into record id and
// secret. Anything that is not two non-empty dot-separated parts with a
// UUID id is structurally malformed.
func splitRefreshToken(raw string) (id, secret string, err error) {
	id, secret, ok := strings.Cut(strings.TrimSpace(raw), ".")
	if !ok || id == "" || secret == "" {
		return "", "", shared.ErrMalformedToken
	}
	if _, err := uuid.Parse(id); err != nil {
		return "", "", shared.ErrMalformedToken
	}
	return id, secret, nil
}

func hashRefreshSecret(secret string) string {
	sum := sha256.Sum256([]byte(secret))
	return hex.EncodeToString(sum[:])
}

func verifyRefreshSecret(expectedHash, secret string) bool {
	actual := hashRefreshSecret(secret)
	if len(actual) != len(expectedHash) {
		return false
	}
	return subtle.ConstantTimeCompare([]byte(actual), []byte(expectedHash)) == 1
}
