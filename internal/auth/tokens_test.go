package auth

import (
	"strconv"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/meridian-erp/meridian-erp/internal/rbac"
	"github.com/meridian-erp/meridian-erp/internal/shared"
)

func testIssuer(t *testing.T) *TokenIssuer {
	t.Helper()
	issuer, err := NewTokenIssuer("test-secret-test-secret", 15*time.Minute, 720*time.Hour)
	require.NoError(t, err)
	return issuer
}

func TestAccessTokenRoundTrip(t *testing.T) {
	issuer := testIssuer(t)
	user := User{ID: 42, Role: rbac.RoleAccountant}

	token, expiresAt, err := issuer.IssueAccessToken(user)
	require.NoError(t, err)
	require.WithinDuration(t, time.Now().Add(15*time.Minute), expiresAt, 5*time.Second)

	claims, err := issuer.ParseAccessToken(token)
	require.NoError(t, err)
	require.Equal(t, strconv.FormatInt(user.ID, 10), claims.Subject)
	require.Equal(t, string(rbac.RoleAccountant), claims.Role)
	require.NotEmpty(t, claims.ID)
}

func TestAccessTokenExpiry(t *testing.T) {
	issuer := testIssuer(t)
	issued := time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)
	issuer.WithClock(func() time.Time { return issued })

	token, _, err := issuer.IssueAccessToken(User{ID: 7, Role: rbac.RoleEmployee})
	require.NoError(t, err)

	issuer.WithClock(func() time.Time { return issued.Add(16 * time.Minute) })
	_, err = issuer.ParseAccessToken(token)
	require.ErrorIs(t, err, shared.ErrTokenExpired)
}

func TestAccessTokenWrongSecret(t *testing.T) {
	issuer := testIssuer(t)
	other, err := NewTokenIssuer("another-secret-entirely", 15*time.Minute, 720*time.Hour)
	require.NoError(t, err)

	token, _, err := issuer.IssueAccessToken(User{ID: 1, Role: rbac.RoleAdmin})
	require.NoError(t, err)

	_, err = other.ParseAccessToken(token)
	require.ErrorIs(t, err, shared.ErrMalformedToken)
}

func TestRefreshTokenShape(t *testing.T) {
	issuer := testIssuer(t)
	raw, record, err := issuer.IssueRefreshToken(User{ID: 9}, "10.1.2.3", "go-test")
	require.NoError(t, err)

	id, secret, err := splitRefreshToken(raw)
	require.NoError(t, err)
	require.Equal(t, record.ID, id)
	require.True(t, verifyRefreshSecret(record.TokenHash, secret))
	require.NotContains(t, record.TokenHash, secret)
	require.Equal(t, "10.1.2.3", record.IP)
}

func TestSplitRefreshTokenRejectsGarbage(t *testing.T) {
	for _, raw := range []string{"", "nodottoken", ".secret", "id.", "not-a-uuid.secret"} {
		_, _, err := splitRefreshToken(raw)
		require.ErrorIs(t, err, shared.ErrMalformedToken, "input %q", raw)
	}
}
