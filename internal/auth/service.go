package auth

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"time"

	"golang.org/x/crypto/bcrypt"

	"github.com/meridian-erp/meridian-erp/internal/audit"
	"github.com/meridian-erp/meridian-erp/internal/rbac"
	"github.com/meridian-erp/meridian-erp/internal/shared"
)

const auditEntity = "auth"

// AuditRecorder abstracts the append-only trail the lifecycle writes to.
type AuditRecorder interface {
	Record(ctx context.Context, event audit.Event) error
}

// RequestMeta carries the issuing context captured from the transport layer.
// It is stored for audit, not enforcement.
type RequestMeta struct {
	IP        string
	UserAgent string
}

// RegisterInput collects the fields needed to create an account.
type RegisterInput struct {
	Email     string
	Password  string
	FirstName string
	LastName  string
	Role      string
}

// Service orchestrates the session lifecycle: register, login, refresh,
// logout and bulk revocation. Each transition performs at most one user
// mutation, at most one refresh-token write, and one audit append. Audit
// writes are best effort; a failed append is logged and never blocks the
// session decision.
type Service struct {
	repo   Repository
	tokens *TokenIssuer
	audit  AuditRecorder
	logger *slog.Logger
	now    func() time.Time
}

// NewService constructs a new Service.
func NewService(repo Repository, tokens *TokenIssuer, recorder AuditRecorder, logger *slog.Logger) *Service {
	return &Service{repo: repo, tokens: tokens, audit: recorder, logger: logger, now: time.Now}
}

// WithClock overrides the time source for tests.
func (s *Service) WithClock(now func() time.Time) *Service {
	if now != nil {
		s.now = now
	}
	return s
}

// Register creates a user and opens a session for it. The role defaults to
// EMPLOYEE when unspecified.
func (s *Service) Register(ctx context.Context, input RegisterInput, meta RequestMeta) (Session, error) {
	role := rbac.RoleEmployee
	if strings.TrimSpace(input.Role) != "" {
		parsed, ok := rbac.ParseRole(input.Role)
		if !ok {
			return Session{}, shared.ErrInvalidRole
		}
		role = parsed
	}

	digest, err := bcrypt.GenerateFromPassword([]byte(input.Password), bcrypt.DefaultCost)
	if err != nil {
		return Session{}, err
	}

	user, err := s.repo.CreateUser(ctx, User{
		Email:        strings.ToLower(strings.TrimSpace(input.Email)),
		PasswordHash: string(digest),
		FirstName:    strings.TrimSpace(input.FirstName),
		LastName:     strings.TrimSpace(input.LastName),
		Role:         role,
	})
	if err != nil {
		return Session{}, err
	}

	pair, err := s.issueSession(ctx, user, meta)
	if err != nil {
		return Session{}, err
	}
	s.record(ctx, &user.ID, audit.ActionRegister, meta)
	return Session{User: user, Tokens: pair}, nil
}

// Login validates credentials and opens a session. A missing account and a
// wrong password are indistinguishable to the caller.
func (s *Service) Login(ctx context.Context, email, password string, meta RequestMeta) (Session, error) {
	user, err := s.repo.FindUserByEmail(ctx, strings.ToLower(strings.TrimSpace(email)))
	if err != nil {
		if errors.Is(err, shared.ErrNotFound) {
			return Session{}, shared.ErrInvalidCredentials
		}
		return Session{}, err
	}
	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(password)); err != nil {
		return Session{}, shared.ErrInvalidCredentials
	}
	if !user.IsActive {
		return Session{}, shared.ErrAccountDisabled
	}

	loginAt := s.now().UTC()
	if err := s.repo.TouchLastLogin(ctx, user.ID, loginAt); err != nil {
		return Session{}, err
	}
	user.LastLoginAt = &loginAt

	pair, err := s.issueSession(ctx, *user, meta)
	if err != nil {
		return Session{}, err
	}
	s.record(ctx, &user.ID, audit.ActionLogin, meta)
	return Session{User: *user, Tokens: pair}, nil
}

// Refresh exchanges a live refresh token for a new access token. The refresh
// token itself is not rotated; the persisted record keeps serving until it
// expires or is revoked. The transition is audit-silent.
func (s *Service) Refresh(ctx context.Context, rawToken string) (string, time.Time, error) {
	if strings.TrimSpace(rawToken) == "" {
		return "", time.Time{}, shared.ErrMissingToken
	}
	id, secret, err := splitRefreshToken(rawToken)
	if err != nil {
		return "", time.Time{}, err
	}

	record, err := s.repo.FindRefreshToken(ctx, id)
	if err != nil {
		if errors.Is(err, shared.ErrNotFound) {
			return "", time.Time{}, shared.ErrTokenNotFound
		}
		return "", time.Time{}, err
	}
	if !verifyRefreshSecret(record.TokenHash, secret) {
		// A valid record id with a wrong secret smells like token theft;
		// burn the record.
		if _, revokeErr := s.repo.RevokeToken(ctx, record.ID, record.UserID); revokeErr != nil && s.logger != nil {
			s.logger.Warn("revoke on secret mismatch", slog.Any("error", revokeErr))
		}
		return "", time.Time{}, shared.ErrMalformedToken
	}
	if record.Revoked {
		return "", time.Time{}, shared.ErrTokenRevoked
	}
	if s.now().After(record.ExpiresAt) {
		return "", time.Time{}, shared.ErrTokenExpired
	}

	user, err := s.repo.FindUserByID(ctx, record.UserID)
	if err != nil {
		if errors.Is(err, shared.ErrNotFound) {
			return "", time.Time{}, shared.ErrTokenNotFound
		}
		return "", time.Time{}, err
	}
	if !user.IsActive {
		return "", time.Time{}, shared.ErrAccountDisabled
	}

	return s.mintAccess(*user)
}

// Logout revokes the supplied token when it belongs to the caller, and
// records the transition either way. Logging out twice is not an error.
func (s *Service) Logout(ctx context.Context, rawToken string, callerID int64, meta RequestMeta) error {
	if strings.TrimSpace(rawToken) != "" {
		if id, _, err := splitRefreshToken(rawToken); err == nil {
			if _, err := s.repo.RevokeToken(ctx, id, callerID); err != nil {
				return err
			}
		}
	}
	s.record(ctx, &callerID, audit.ActionLogout, meta)
	return nil
}

// RevokeAll revokes every live token the caller owns in one batch. Used for
// "log out everywhere" and credential-compromise response.
func (s *Service) RevokeAll(ctx context.Context, callerID int64, meta RequestMeta) error {
	if _, err := s.repo.RevokeAllForUser(ctx, callerID); err != nil {
		return err
	}
	s.record(ctx, &callerID, audit.ActionRevokeAll, meta)
	return nil
}

// CurrentUser loads the caller's account for the identity endpoint.
func (s *Service) CurrentUser(ctx context.Context, userID int64) (*User, error) {
	return s.repo.FindUserByID(ctx, userID)
}

func (s *Service) issueSession(ctx context.Context, user User, meta RequestMeta) (TokenPair, error) {
	accessToken, accessExp, err := s.tokens.IssueAccessToken(user)
	if err != nil {
		return TokenPair{}, err
	}
	refreshToken, record, err := s.tokens.IssueRefreshToken(user, meta.IP, meta.UserAgent)
	if err != nil {
		return TokenPair{}, err
	}
	if err := s.repo.InsertRefreshToken(ctx, record); err != nil {
		return TokenPair{}, err
	}
	return TokenPair{
		AccessToken:      accessToken,
		RefreshToken:     refreshToken,
		AccessExpiresAt:  accessExp,
		RefreshExpiresAt: record.ExpiresAt,
	}, nil
}

func (s *Service) mintAccess(user User) (string, time.Time, error) {
	token, expiresAt, err := s.tokens.IssueAccessToken(user)
	if err != nil {
		return "", time.Time{}, err
	}
	return token, expiresAt, nil
}

func (s *Service) record(ctx context.Context, userID *int64, action audit.Action, meta RequestMeta) {
	if s.audit == nil {
		return
	}
	event := audit.Event{
		UserID:     userID,
		Action:     action,
		Entity:     auditEntity,
		IP:         meta.IP,
		UserAgent:  meta.UserAgent,
		OccurredAt: s.now().UTC(),
	}
	if err := s.audit.Record(ctx, event); err != nil && s.logger != nil {
		s.logger.Warn("audit append", slog.String("action", string(action)), slog.Any("error", err))
	}
}
