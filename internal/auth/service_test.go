package auth

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"github.com/meridian-erp/meridian-erp/internal/audit"
	"github.com/meridian-erp/meridian-erp/internal/rbac"
	"github.com/meridian-erp/meridian-erp/internal/shared"
)

type memoryRepo struct {
	users  map[int64]*User
	tokens map[string]*RefreshToken
	nextID int64
}

func newMemoryRepo() *memoryRepo {
	return &memoryRepo{users: make(map[int64]*User), tokens: make(map[string]*RefreshToken), nextID: 1}
}

func (m *memoryRepo) CreateUser(_ context.Context, user User) (User, error) {
	for _, existing := range m.users {
		if existing.Email == user.Email {
			return User{}, shared.ErrDuplicateEmail
		}
	}
	user.ID = m.nextID
	m.nextID++
	user.IsActive = true
	now := time.Now().UTC()
	user.CreatedAt = now
	user.UpdatedAt = now
	stored := user
	m.users[user.ID] = &stored
	return user, nil
}

func (m *memoryRepo) FindUserByEmail(_ context.Context, email string) (*User, error) {
	for _, user := range m.users {
		if user.Email == email {
			copied := *user
			return &copied, nil
		}
	}
	return nil, shared.ErrNotFound
}

func (m *memoryRepo) FindUserByID(_ context.Context, id int64) (*User, error) {
	user, ok := m.users[id]
	if !ok {
		return nil, shared.ErrNotFound
	}
	copied := *user
	return &copied, nil
}

func (m *memoryRepo) TouchLastLogin(_ context.Context, userID int64, at time.Time) error {
	user, ok := m.users[userID]
	if !ok {
		return shared.ErrNotFound
	}
	user.LastLoginAt = &at
	return nil
}

func (m *memoryRepo) InsertRefreshToken(_ context.Context, token RefreshToken) error {
	stored := token
	m.tokens[token.ID] = &stored
	return nil
}

func (m *memoryRepo) FindRefreshToken(_ context.Context, id string) (*RefreshToken, error) {
	token, ok := m.tokens[id]
	if !ok {
		return nil, shared.ErrNotFound
	}
	copied := *token
	return &copied, nil
}

func (m *memoryRepo) RevokeToken(_ context.Context, id string, ownerID int64) (int64, error) {
	token, ok := m.tokens[id]
	if !ok || token.UserID != ownerID || token.Revoked {
		return 0, nil
	}
	token.Revoked = true
	return 1, nil
}

func (m *memoryRepo) RevokeAllForUser(_ context.Context, ownerID int64) (int64, error) {
	var n int64
	for _, token := range m.tokens {
		if token.UserID == ownerID && !token.Revoked {
			token.Revoked = true
			n++
		}
	}
	return n, nil
}

type brokenUserLookupRepo struct {
	*memoryRepo
	err error
}

func (b *brokenUserLookupRepo) FindUserByEmail(context.Context, string) (*User, error) {
	return nil, b.err
}

type recordedAudit struct {
	events []audit.Event
}

func (r *recordedAudit) Record(_ context.Context, event audit.Event) error {
	r.events = append(r.events, event)
	return nil
}

func (r *recordedAudit) actions() []string {
	out := make([]string, 0, len(r.events))
	for _, event := range r.events {
		out = append(out, string(event.Action))
	}
	return out
}

func newTestService(t *testing.T) (*Service, *memoryRepo, *recordedAudit) {
	t.Helper()
	repo := newMemoryRepo()
	recorder := &recordedAudit{}
	svc := NewService(repo, testIssuer(t), recorder, slog.Default())
	return svc, repo, recorder
}

func seedUser(t *testing.T, repo *memoryRepo, email, password string, role rbac.Role, active bool) User {
	t.Helper()
	digest, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.MinCost)
	require.NoError(t, err)
	user, err := repo.CreateUser(context.Background(), User{
		Email:        email,
		PasswordHash: string(digest),
		FirstName:    "Test",
		LastName:     "User",
		Role:         role,
	})
	require.NoError(t, err)
	if !active {
		repo.users[user.ID].IsActive = false
	}
	return user
}

func TestRegisterDefaultsToEmployee(t *testing.T) {
	svc, _, recorder := newTestService(t)

	session, err := svc.Register(context.Background(), RegisterInput{
		Email:     "Anna.Durand@Example.COM",
		Password:  "correct horse",
		FirstName: "Anna",
		LastName:  "Durand",
	}, RequestMeta{IP: "10.0.0.1"})
	require.NoError(t, err)
	require.Equal(t, rbac.RoleEmployee, session.User.Role)
	require.Equal(t, "anna.durand@example.com", session.User.Email)
	require.NotEmpty(t, session.Tokens.AccessToken)
	require.True(t, strings.Contains(session.Tokens.RefreshToken, "."))
	require.Equal(t, []string{"REGISTER"}, recorder.actions())
}

func TestRegisterDuplicateEmail(t *testing.T) {
	svc, repo, recorder := newTestService(t)
	seedUser(t, repo, "taken@example.com", "pw-irrelevant", rbac.RoleEmployee, true)

	_, err := svc.Register(context.Background(), RegisterInput{
		Email:     "taken@example.com",
		Password:  "whatever123",
		FirstName: "X",
		LastName:  "Y",
	}, RequestMeta{})
	require.ErrorIs(t, err, shared.ErrDuplicateEmail)
	require.Empty(t, recorder.events)
}

func TestRegisterRejectsUnknownRole(t *testing.T) {
	svc, _, _ := newTestService(t)
	_, err := svc.Register(context.Background(), RegisterInput{
		Email:     "intern@example.com",
		Password:  "whatever123",
		FirstName: "X",
		LastName:  "Y",
		Role:      "INTERN",
	}, RequestMeta{})
	require.ErrorIs(t, err, shared.ErrInvalidRole)
}

func TestLoginSuccessTouchesLastLogin(t *testing.T) {
	svc, repo, recorder := newTestService(t)
	seedUser(t, repo, "dir@example.com", "s3cret-pass", rbac.RoleGeneralDirector, true)

	session, err := svc.Login(context.Background(), "dir@example.com", "s3cret-pass", RequestMeta{IP: "10.0.0.2"})
	require.NoError(t, err)
	require.NotNil(t, session.User.LastLoginAt)
	require.Equal(t, rbac.RoleGeneralDirector, session.User.Role)
	require.Equal(t, []string{"LOGIN"}, recorder.actions())

	require.Len(t, repo.tokens, 1)
	for _, token := range repo.tokens {
		require.False(t, token.Revoked)
		require.True(t, token.ExpiresAt.After(time.Now()))
	}
}

func TestLoginFailuresAreIndistinguishable(t *testing.T) {
	svc, repo, recorder := newTestService(t)
	seedUser(t, repo, "known@example.com", "right-password", rbac.RoleEmployee, true)

	_, unknownErr := svc.Login(context.Background(), "unknown@example.com", "right-password", RequestMeta{})
	_, wrongPwErr := svc.Login(context.Background(), "known@example.com", "wrong-password", RequestMeta{})

	require.ErrorIs(t, unknownErr, shared.ErrInvalidCredentials)
	require.ErrorIs(t, wrongPwErr, shared.ErrInvalidCredentials)
	require.Empty(t, recorder.events)
}

func TestLoginPropagatesStorageFailure(t *testing.T) {
	repo := newMemoryRepo()
	dbErr := errors.New("pg: connection refused")
	svc := NewService(&brokenUserLookupRepo{memoryRepo: repo, err: dbErr}, testIssuer(t), &recordedAudit{}, slog.Default())

	_, err := svc.Login(context.Background(), "any@example.com", "whatever-pw", RequestMeta{})
	require.ErrorIs(t, err, dbErr)
	require.NotErrorIs(t, err, shared.ErrInvalidCredentials)
}

func TestLoginDisabledAccount(t *testing.T) {
	svc, repo, _ := newTestService(t)
	seedUser(t, repo, "gone@example.com", "still-valid-pw", rbac.RoleEmployee, false)

	_, err := svc.Login(context.Background(), "gone@example.com", "still-valid-pw", RequestMeta{})
	require.ErrorIs(t, err, shared.ErrAccountDisabled)
}

func TestRefreshMintsNewAccessToken(t *testing.T) {
	svc, repo, recorder := newTestService(t)
	seedUser(t, repo, "u@example.com", "password-ok", rbac.RoleServiceManager, true)

	session, err := svc.Login(context.Background(), "u@example.com", "password-ok", RequestMeta{})
	require.NoError(t, err)

	accessToken, expiresAt, err := svc.Refresh(context.Background(), session.Tokens.RefreshToken)
	require.NoError(t, err)
	require.NotEmpty(t, accessToken)
	require.True(t, expiresAt.After(time.Now()))

	// refresh is audit silent
	require.Equal(t, []string{"LOGIN"}, recorder.actions())
}

func TestRefreshErrorLadder(t *testing.T) {
	svc, repo, _ := newTestService(t)
	user := seedUser(t, repo, "ladder@example.com", "password-ok", rbac.RoleEmployee, true)

	session, err := svc.Login(context.Background(), "ladder@example.com", "password-ok", RequestMeta{})
	require.NoError(t, err)
	goodToken := session.Tokens.RefreshToken

	_, _, err = svc.Refresh(context.Background(), "   ")
	require.ErrorIs(t, err, shared.ErrMissingToken)

	_, _, err = svc.Refresh(context.Background(), "without-a-dot")
	require.ErrorIs(t, err, shared.ErrMalformedToken)

	_, _, err = svc.Refresh(context.Background(), "d7f3c2aa-0000-4000-8000-000000000000.some-secret")
	require.ErrorIs(t, err, shared.ErrTokenNotFound)

	// right record id, wrong secret: rejected and the record is burned
	id, _, splitErr := splitRefreshToken(goodToken)
	require.NoError(t, splitErr)
	_, _, err = svc.Refresh(context.Background(), id+".forged-secret")
	require.ErrorIs(t, err, shared.ErrMalformedToken)
	require.True(t, repo.tokens[id].Revoked)

	_, _, err = svc.Refresh(context.Background(), goodToken)
	require.ErrorIs(t, err, shared.ErrTokenRevoked)

	// expired token
	session2, err := svc.Login(context.Background(), "ladder@example.com", "password-ok", RequestMeta{})
	require.NoError(t, err)
	id2, _, splitErr := splitRefreshToken(session2.Tokens.RefreshToken)
	require.NoError(t, splitErr)
	repo.tokens[id2].ExpiresAt = time.Now().Add(-time.Minute)
	_, _, err = svc.Refresh(context.Background(), session2.Tokens.RefreshToken)
	require.ErrorIs(t, err, shared.ErrTokenExpired)

	// disabled account
	session3, err := svc.Login(context.Background(), "ladder@example.com", "password-ok", RequestMeta{})
	require.NoError(t, err)
	repo.users[user.ID].IsActive = false
	_, _, err = svc.Refresh(context.Background(), session3.Tokens.RefreshToken)
	require.ErrorIs(t, err, shared.ErrAccountDisabled)
}

func TestLogoutIsScopedAndIdempotent(t *testing.T) {
	svc, repo, recorder := newTestService(t)
	seedUser(t, repo, "a@example.com", "password-aa", rbac.RoleEmployee, true)
	seedUser(t, repo, "b@example.com", "password-bb", rbac.RoleEmployee, true)

	sessA, err := svc.Login(context.Background(), "a@example.com", "password-aa", RequestMeta{})
	require.NoError(t, err)
	sessB, err := svc.Login(context.Background(), "b@example.com", "password-bb", RequestMeta{})
	require.NoError(t, err)

	// B cannot revoke A's token
	require.NoError(t, svc.Logout(context.Background(), sessA.Tokens.RefreshToken, sessB.User.ID, RequestMeta{}))
	idA, _, splitErr := splitRefreshToken(sessA.Tokens.RefreshToken)
	require.NoError(t, splitErr)
	require.False(t, repo.tokens[idA].Revoked)

	require.NoError(t, svc.Logout(context.Background(), sessA.Tokens.RefreshToken, sessA.User.ID, RequestMeta{}))
	require.True(t, repo.tokens[idA].Revoked)

	// second logout is a no-op, still audited
	require.NoError(t, svc.Logout(context.Background(), sessA.Tokens.RefreshToken, sessA.User.ID, RequestMeta{}))
	require.Equal(t, []string{"LOGIN", "LOGIN", "LOGOUT", "LOGOUT", "LOGOUT"}, recorder.actions())
}

func TestSessionLifecycleEndToEnd(t *testing.T) {
	svc, repo, _ := newTestService(t)
	ctx := context.Background()

	_, err := svc.Register(ctx, RegisterInput{
		Email:     "a@x.com",
		Password:  "secret123",
		FirstName: "Ana",
		LastName:  "Ximenes",
	}, RequestMeta{IP: "10.1.1.1"})
	require.NoError(t, err)

	_, err = svc.Login(ctx, "a@x.com", "wrong-guess", RequestMeta{})
	require.ErrorIs(t, err, shared.ErrInvalidCredentials)

	session, err := svc.Login(ctx, "a@x.com", "secret123", RequestMeta{})
	require.NoError(t, err)
	require.NotEmpty(t, session.Tokens.AccessToken)
	require.NotEmpty(t, session.Tokens.RefreshToken)

	accessToken, _, err := svc.Refresh(ctx, session.Tokens.RefreshToken)
	require.NoError(t, err)
	require.NotEmpty(t, accessToken)

	require.NoError(t, svc.RevokeAll(ctx, session.User.ID, RequestMeta{}))

	_, _, err = svc.Refresh(ctx, session.Tokens.RefreshToken)
	require.ErrorIs(t, err, shared.ErrTokenRevoked)

	// Revocation is monotonic: nothing flips a spent token back.
	require.NoError(t, svc.Logout(ctx, session.Tokens.RefreshToken, session.User.ID, RequestMeta{}))
	for _, token := range repo.tokens {
		require.True(t, token.Revoked)
	}
}

func TestRevokeAllKillsEverySession(t *testing.T) {
	svc, repo, recorder := newTestService(t)
	user := seedUser(t, repo, "many@example.com", "password-ok", rbac.RoleEmployee, true)

	var refreshTokens []string
	for range 3 {
		session, err := svc.Login(context.Background(), "many@example.com", "password-ok", RequestMeta{})
		require.NoError(t, err)
		refreshTokens = append(refreshTokens, session.Tokens.RefreshToken)
	}

	require.NoError(t, svc.RevokeAll(context.Background(), user.ID, RequestMeta{}))

	for _, raw := range refreshTokens {
		_, _, err := svc.Refresh(context.Background(), raw)
		require.ErrorIs(t, err, shared.ErrTokenRevoked)
	}
	require.Contains(t, recorder.actions(), "REVOKE_ALL_TOKENS")

	// rows survive revocation
	require.Len(t, repo.tokens, 3)
}
