package auth

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/meridian-erp/meridian-erp/internal/rbac"
	"github.com/meridian-erp/meridian-erp/internal/shared"
)

const uniqueViolationCode = "23505"

// Repository defines persistence operations for the auth module.
type Repository interface {
	CreateUser(ctx context.Context, user User) (User, error)
	FindUserByEmail(ctx context.Context, email string) (*User, error)
	FindUserByID(ctx context.Context, id int64) (*User, error)
	TouchLastLogin(ctx context.Context, userID int64, at time.Time) error

	InsertRefreshToken(ctx context.Context, token RefreshToken) error
	FindRefreshToken(ctx context.Context, id string) (*RefreshToken, error)
	RevokeToken(ctx context.Context, id string, ownerID int64) (int64, error)
	RevokeAllForUser(ctx context.Context, ownerID int64) (int64, error)
}

// PGRepository implements Repository using PostgreSQL.
type PGRepository struct {
	pool *pgxpool.Pool
}

// NewRepository constructs a PostgreSQL repository.
func NewRepository(pool *pgxpool.Pool) *PGRepository {
	return &PGRepository{pool: pool}
}

// CreateUser inserts a new account. A unique violation on the email column
// maps to shared.ErrDuplicateEmail.
func (r *PGRepository) CreateUser(ctx context.Context, user User) (User, error) {
	row := r.pool.QueryRow(ctx, `
		INSERT INTO users (email, password_hash, first_name, last_name, role, is_active, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, TRUE, NOW(), NOW())
		RETURNING id, created_at, updated_at`,
		user.Email, user.PasswordHash, user.FirstName, user.LastName, string(user.Role))
	var createdAt, updatedAt pgtype.Timestamptz
	if err := row.Scan(&user.ID, &createdAt, &updatedAt); err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == uniqueViolationCode {
			return User{}, shared.ErrDuplicateEmail
		}
		return User{}, err
	}
	user.IsActive = true
	user.CreatedAt = createdAt.Time
	user.UpdatedAt = updatedAt.Time
	return user, nil
}

// FindUserByEmail fetches a user by email.
func (r *PGRepository) FindUserByEmail(ctx context.Context, email string) (*User, error) {
	return r.scanUser(r.pool.QueryRow(ctx, `
		SELECT id, email, password_hash, first_name, last_name, role, is_active, last_login_at, created_at, updated_at
		FROM users WHERE email = $1`, email))
}

// FindUserByID fetches a user by primary key.
func (r *PGRepository) FindUserByID(ctx context.Context, id int64) (*User, error) {
	return r.scanUser(r.pool.QueryRow(ctx, `
		SELECT id, email, password_hash, first_name, last_name, role, is_active, last_login_at, created_at, updated_at
		FROM users WHERE id = $1`, id))
}

func (r *PGRepository) scanUser(row pgx.Row) (*User, error) {
	var (
		user        User
		role        string
		lastLoginAt pgtype.Timestamptz
		createdAt   pgtype.Timestamptz
		updatedAt   pgtype.Timestamptz
	)
	err := row.Scan(&user.ID, &user.Email, &user.PasswordHash, &user.FirstName, &user.LastName,
		&role, &user.IsActive, &lastLoginAt, &createdAt, &updatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, shared.ErrNotFound
		}
		return nil, err
	}
	user.Role = rbac.Role(role)
	if lastLoginAt.Valid {
		t := lastLoginAt.Time
		user.LastLoginAt = &t
	}
	user.CreatedAt = createdAt.Time
	user.UpdatedAt = updatedAt.Time
	return &user, nil
}

// TouchLastLogin records a successful login instant.
func (r *PGRepository) TouchLastLogin(ctx context.Context, userID int64, at time.Time) error {
	_, err := r.pool.Exec(ctx, `
		UPDATE users SET last_login_at = $2, updated_at = NOW() WHERE id = $1`,
		userID, pgtype.Timestamptz{Time: at.UTC(), Valid: true})
	return err
}

// InsertRefreshToken persists a freshly issued session credential.
func (r *PGRepository) InsertRefreshToken(ctx context.Context, token RefreshToken) error {
	_, err := r.pool.Exec(ctx, `
		INSERT INTO refresh_tokens (id, user_id, token_hash, expires_at, revoked, ip, user_agent, created_at)
		VALUES ($1, $2, $3, $4, FALSE, $5, $6, $7)`,
		token.ID, token.UserID, token.TokenHash,
		pgtype.Timestamptz{Time: token.ExpiresAt.UTC(), Valid: true},
		pgtype.Text{String: token.IP, Valid: token.IP != ""},
		pgtype.Text{String: token.UserAgent, Valid: token.UserAgent != ""},
		pgtype.Timestamptz{Time: token.CreatedAt.UTC(), Valid: true})
	return err
}

// FindRefreshToken fetches a persisted token record by id.
func (r *PGRepository) FindRefreshToken(ctx context.Context, id string) (*RefreshToken, error) {
	var (
		token     RefreshToken
		expiresAt pgtype.Timestamptz
		createdAt pgtype.Timestamptz
		ip        pgtype.Text
		ua        pgtype.Text
	)
	err := r.pool.QueryRow(ctx, `
		SELECT id, user_id, token_hash, expires_at, revoked, ip, user_agent, created_at
		FROM refresh_tokens WHERE id = $1`, id).
		Scan(&token.ID, &token.UserID, &token.TokenHash, &expiresAt, &token.Revoked, &ip, &ua, &createdAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, shared.ErrNotFound
		}
		return nil, err
	}
	token.ExpiresAt = expiresAt.Time
	token.CreatedAt = createdAt.Time
	token.IP = ip.String
	token.UserAgent = ua.String
	return &token, nil
}

// RevokeToken flips the revoked flag on a single record, scoped to its owner
// so one user cannot revoke another's session. Already-revoked rows are left
// untouched; the flag only ever moves one way.
func (r *PGRepository) RevokeToken(ctx context.Context, id string, ownerID int64) (int64, error) {
	tag, err := r.pool.Exec(ctx, `
		UPDATE refresh_tokens SET revoked = TRUE
		WHERE id = $1 AND user_id = $2 AND revoked = FALSE`, id, ownerID)
	if err != nil {
		return 0, err
	}
	return tag.RowsAffected(), nil
}

// RevokeAllForUser revokes every live token owned by a user in one batch.
func (r *PGRepository) RevokeAllForUser(ctx context.Context, ownerID int64) (int64, error) {
	tag, err := r.pool.Exec(ctx, `
		UPDATE refresh_tokens SET revoked = TRUE
		WHERE user_id = $1 AND revoked = FALSE`, ownerID)
	if err != nil {
		return 0, err
	}
	return tag.RowsAffected(), nil
}

var _ Repository = (*PGRepository)(nil)
