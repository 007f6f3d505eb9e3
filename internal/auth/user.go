// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 RunCoach Contributors

package auth

import (
	"context"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/google/uuid"
	"github.com/samber/oops"
)

// Field length limits, in characters.
const (
	MaxInviteCodeLength = 50
	MaxNameLength       = 100
	MaxEmailLength      = 255
)

// User represents a registered account.
type User struct {
	ID           uuid.UUID
	InviteCode   string
	Name         string
	Email        string
	PasswordHash string
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// NewUser creates a validated User with a fresh ID.
// The email is normalized; the password hash is taken as-is.
func NewUser(inviteCode, name, email, passwordHash string) (*User, error) {
	email = NormalizeEmail(email)
	if err := validateField("invite_code", inviteCode, MaxInviteCodeLength); err != nil {
		return nil, err
	}
	if err := validateField("name", name, MaxNameLength); err != nil {
		return nil, err
	}
	if err := validateField("email", email, MaxEmailLength); err != nil {
		return nil, err
	}
	if passwordHash == "" {
		return nil, oops.Code(CodeInvalidUser).With("field", "password_hash").Errorf("password hash cannot be empty")
	}

	// Postgres timestamps hold microseconds.
	now := time.Now().UTC().Truncate(time.Microsecond)
	return &User{
		ID:           uuid.New(),
		InviteCode:   inviteCode,
		Name:         name,
		Email:        email,
		PasswordHash: passwordHash,
		CreatedAt:    now,
		UpdatedAt:    now,
	}, nil
}

func validateField(field, value string, maxLen int) error {
	n := utf8.RuneCountInString(value)
	if n == 0 {
		return oops.Code(CodeInvalidUser).With("field", field).Errorf("%s cannot be empty", field)
	}
	if n > maxLen {
		return oops.Code(CodeInvalidUser).
			With("field", field).
			With("max", maxLen).
			Errorf("%s must be at most %d characters", field, maxLen)
	}
	return nil
}

// NormalizeEmail trims surrounding whitespace and lowercases the address.
// Emails are stored and looked up in normalized form.
func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

// UserRepository manages user persistence.
type UserRepository interface {
	// Create stores a new user. Returns an error wrapping
	// ErrDuplicateInviteCode or ErrDuplicateEmail when a uniqueness
	// constraint is violated.
	Create(ctx context.Context, user *User) error

	// GetByID retrieves a user by ID.
	// Returns ErrNotFound if no user has the given ID.
	GetByID(ctx context.Context, id uuid.UUID) (*User, error)

	// GetByEmail retrieves a user by normalized email.
	// Returns ErrNotFound if no user has the given email.
	GetByEmail(ctx context.Context, email string) (*User, error)

	// InviteCodeExists reports whether an invite code has been claimed.
	InviteCodeExists(ctx context.Context, code string) (bool, error)

	// EmailExists reports whether an email is registered.
	EmailExists(ctx context.Context, email string) (bool, error)

	// UpdatePassword replaces the password hash and bumps updated_at.
	UpdatePassword(ctx context.Context, id uuid.UUID, passwordHash string) error
}

// Transactor runs a function inside a database transaction. The transaction
// commits when fn returns nil and rolls back otherwise. Repositories called
// with the ctx passed to fn participate in the transaction.
type Transactor interface {
	WithinTx(ctx context.Context, fn func(ctx context.Context) error) error
}
