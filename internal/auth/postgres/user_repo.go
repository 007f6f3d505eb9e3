// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 RunCoach Contributors

// Package postgres implements the auth repositories on PostgreSQL.
package postgres

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgerrcode"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/samber/oops"

	"github.com/runcoach/runcoach/internal/auth"
	"github.com/runcoach/runcoach/internal/store"
)

// Unique constraint names from the initial schema.
const (
	constraintInviteCode = "users_invite_code_key"
	constraintEmail      = "users_email_key"
)

const userColumns = `id, invite_code, name, email, password_hash, created_at, updated_at`

// UserRepository implements auth.UserRepository using PostgreSQL. Queries
// run on the transaction carried by ctx when there is one.
type UserRepository struct {
	db store.DBTX
}

// NewUserRepository creates a new UserRepository.
func NewUserRepository(db store.DBTX) *UserRepository {
	return &UserRepository{db: db}
}

// Create stores a new user.
func (r *UserRepository) Create(ctx context.Context, user *auth.User) error {
	_, err := store.Conn(ctx, r.db).Exec(ctx, `
		INSERT INTO users (`+userColumns+`)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
	`,
		user.ID,
		user.InviteCode,
		user.Name,
		user.Email,
		user.PasswordHash,
		user.CreatedAt,
		user.UpdatedAt,
	)
	if err == nil {
		return nil
	}

	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == pgerrcode.UniqueViolation {
		switch pgErr.ConstraintName {
		case constraintInviteCode:
			return oops.Code("USER_DUPLICATE").With("constraint", pgErr.ConstraintName).Wrap(auth.ErrDuplicateInviteCode)
		case constraintEmail:
			return oops.Code("USER_DUPLICATE").With("constraint", pgErr.ConstraintName).Wrap(auth.ErrDuplicateEmail)
		}
	}
	return oops.Code("USER_CREATE_FAILED").
		With("operation", "insert user").
		With("id", user.ID.String()).
		Wrap(err)
}

// GetByID retrieves a user by ID.
func (r *UserRepository) GetByID(ctx context.Context, id uuid.UUID) (*auth.User, error) {
	row := store.Conn(ctx, r.db).QueryRow(ctx, `SELECT `+userColumns+` FROM users WHERE id = $1`, id)

	user, err := scanUser(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, oops.Code("USER_NOT_FOUND").
			With("id", id.String()).
			Wrap(auth.ErrNotFound)
	}
	if err != nil {
		return nil, oops.Code("USER_GET_BY_ID_FAILED").
			With("operation", "get user by id").
			With("id", id.String()).
			Wrap(err)
	}
	return user, nil
}

// GetByEmail retrieves a user by email. The caller passes the normalized
// address; no case folding happens here.
func (r *UserRepository) GetByEmail(ctx context.Context, email string) (*auth.User, error) {
	row := store.Conn(ctx, r.db).QueryRow(ctx, `SELECT `+userColumns+` FROM users WHERE email = $1`, email)

	user, err := scanUser(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, oops.Code("USER_NOT_FOUND").Wrap(auth.ErrNotFound)
	}
	if err != nil {
		return nil, oops.Code("USER_GET_BY_EMAIL_FAILED").
			With("operation", "get user by email").
			Wrap(err)
	}
	return user, nil
}

// InviteCodeExists reports whether a user registered with code.
func (r *UserRepository) InviteCodeExists(ctx context.Context, code string) (bool, error) {
	return r.exists(ctx, "invite code", `SELECT EXISTS (SELECT 1 FROM users WHERE invite_code = $1)`, code)
}

// EmailExists reports whether a user registered with email.
func (r *UserRepository) EmailExists(ctx context.Context, email string) (bool, error) {
	return r.exists(ctx, "email", `SELECT EXISTS (SELECT 1 FROM users WHERE email = $1)`, email)
}

func (r *UserRepository) exists(ctx context.Context, what, query string, arg string) (bool, error) {
	var found bool
	if err := store.Conn(ctx, r.db).QueryRow(ctx, query, arg).Scan(&found); err != nil {
		return false, oops.Code("USER_EXISTS_FAILED").
			With("operation", "check "+what).
			Wrap(err)
	}
	return found, nil
}

// UpdatePassword replaces the password hash for a user.
func (r *UserRepository) UpdatePassword(ctx context.Context, id uuid.UUID, passwordHash string) error {
	result, err := store.Conn(ctx, r.db).Exec(ctx, `
		UPDATE users SET password_hash = $2, updated_at = $3
		WHERE id = $1
	`, id, passwordHash, time.Now().UTC().Truncate(time.Microsecond))
	if err != nil {
		return oops.Code("USER_UPDATE_PASSWORD_FAILED").
			With("operation", "update password").
			With("id", id.String()).
			Wrap(err)
	}
	if result.RowsAffected() == 0 {
		return oops.Code("USER_NOT_FOUND").
			With("id", id.String()).
			Wrap(auth.ErrNotFound)
	}
	return nil
}

// scanUser scans a single row into a User. pgx.ErrNoRows is returned
// unwrapped for callers to handle.
func scanUser(row pgx.Row) (*auth.User, error) {
	var u auth.User
	err := row.Scan(
		&u.ID,
		&u.InviteCode,
		&u.Name,
		&u.Email,
		&u.PasswordHash,
		&u.CreatedAt,
		&u.UpdatedAt,
	)
	if err != nil {
		return nil, err //nolint:wrapcheck // callers wrap with lookup context
	}
	return &u, nil
}

var _ auth.UserRepository = (*UserRepository)(nil)
