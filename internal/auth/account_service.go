// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 RunCoach Contributors

package auth

import (
	"context"
	"errors"
	"log/slog"

	"github.com/google/uuid"
	"github.com/samber/oops"

	"github.com/runcoach/runcoach/pkg/errutil"
)

// RegisterParams holds the fields of a registration request.
type RegisterParams struct {
	InviteCode string
	Name       string
	Email      string
	Password   string
}

// AccountService orchestrates registration and login.
type AccountService struct {
	users   UserRepository
	hasher  PasswordHasher
	codec   SessionCodec
	tx      Transactor
	logger  *slog.Logger
	metrics *Metrics

	// dummyHash is verified against when no account matches the email. It
	// comes from the configured hasher so its cost matches stored hashes.
	dummyHash string
}

// AccountOption configures an AccountService.
type AccountOption func(*AccountService)

// WithLogger sets the service logger.
func WithLogger(logger *slog.Logger) AccountOption {
	return func(s *AccountService) {
		s.logger = logger
	}
}

// WithMetrics enables outcome counters.
func WithMetrics(m *Metrics) AccountOption {
	return func(s *AccountService) {
		s.metrics = m
	}
}

// NewAccountService creates an AccountService.
func NewAccountService(users UserRepository, hasher PasswordHasher, codec SessionCodec, tx Transactor, opts ...AccountOption) (*AccountService, error) {
	if users == nil {
		return nil, oops.Code("AUTH_INVALID_SERVICE").Errorf("users repository is required")
	}
	if hasher == nil {
		return nil, oops.Code("AUTH_INVALID_SERVICE").Errorf("password hasher is required")
	}
	if codec == nil {
		return nil, oops.Code("AUTH_INVALID_SERVICE").Errorf("session codec is required")
	}
	if tx == nil {
		return nil, oops.Code("AUTH_INVALID_SERVICE").Errorf("transactor is required")
	}

	s := &AccountService{
		users:  users,
		hasher: hasher,
		codec:  codec,
		tx:     tx,
		logger: slog.Default(),
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.logger == nil {
		return nil, oops.Code("AUTH_INVALID_SERVICE").Errorf("logger cannot be nil")
	}

	dummy, err := hasher.Hash(uuid.NewString())
	if err != nil {
		return nil, errutil.WrapCode(err, "AUTH_INVALID_SERVICE", "operation", "hash dummy password")
	}
	s.dummyHash = dummy
	return s, nil
}

// Register creates an account and returns it with a fresh session token.
// The invite code and email must both be unclaimed.
func (s *AccountService) Register(ctx context.Context, p RegisterParams) (*User, string, error) {
	var (
		user  *User
		token string
	)

	err := s.tx.WithinTx(ctx, func(ctx context.Context) error {
		email := NormalizeEmail(p.Email)

		claimed, err := s.users.InviteCodeExists(ctx, p.InviteCode)
		if err != nil {
			return errutil.WrapCode(err, "AUTH_REGISTER_FAILED", "operation", "check invite code")
		}
		if claimed {
			return errInviteUsed()
		}

		registered, err := s.users.EmailExists(ctx, email)
		if err != nil {
			return errutil.WrapCode(err, "AUTH_REGISTER_FAILED", "operation", "check email")
		}
		if registered {
			return errEmailTaken()
		}

		hash, err := s.hasher.Hash(p.Password)
		if err != nil {
			if hasCode(err, CodePasswordEncoding) {
				return err
			}
			return errutil.WrapCode(err, "AUTH_REGISTER_FAILED", "operation", "hash password")
		}

		u, err := NewUser(p.InviteCode, p.Name, email, hash)
		if err != nil {
			return err
		}

		if err := s.users.Create(ctx, u); err != nil {
			switch {
			case errors.Is(err, ErrDuplicateInviteCode):
				return errInviteUsed()
			case errors.Is(err, ErrDuplicateEmail):
				return errEmailTaken()
			}
			return errutil.WrapCode(err, "AUTH_REGISTER_FAILED", "operation", "create user")
		}

		token, err = s.codec.Issue(u.ID)
		if err != nil {
			return errutil.WrapCode(err, "AUTH_REGISTER_FAILED", "operation", "issue session token")
		}
		user = u
		return nil
	})
	if err != nil {
		s.recordFailure(ctx, "register", err)
		return nil, "", err
	}

	s.metrics.record("register", outcomeSuccess)
	s.logger.InfoContext(ctx, "user registered", "user_id", user.ID.String())
	return user, token, nil
}

// Login authenticates by email and password and returns the user with a
// fresh session token. Every credential failure yields the same error.
func (s *AccountService) Login(ctx context.Context, email, password string) (*User, string, error) {
	var (
		user  *User
		token string
	)

	err := s.tx.WithinTx(ctx, func(ctx context.Context) error {
		u, lookupErr := s.users.GetByEmail(ctx, NormalizeEmail(email))

		targetHash := s.dummyHash
		if lookupErr != nil {
			if !errors.Is(lookupErr, ErrNotFound) {
				return errutil.WrapCode(lookupErr, "AUTH_LOGIN_FAILED", "operation", "get user by email")
			}
			u = nil
		} else {
			targetHash = u.PasswordHash
		}

		// Always verify so missing accounts cost the same as wrong passwords.
		valid := s.hasher.Verify(password, targetHash)
		if u == nil || !valid {
			return errInvalidCredentials()
		}

		if s.hasher.NeedsUpgrade(u.PasswordHash) {
			s.upgradeHash(ctx, u, password)
		}

		var err error
		token, err = s.codec.Issue(u.ID)
		if err != nil {
			return errutil.WrapCode(err, "AUTH_LOGIN_FAILED", "operation", "issue session token")
		}
		user = u
		return nil
	})
	if err != nil {
		s.recordFailure(ctx, "login", err)
		return nil, "", err
	}

	s.metrics.record("login", outcomeSuccess)
	s.logger.InfoContext(ctx, "user logged in", "user_id", user.ID.String())
	return user, token, nil
}

// upgradeHash rehashes the password with the current cost. It runs in a
// nested transaction so a failed write does not abort the login.
func (s *AccountService) upgradeHash(ctx context.Context, u *User, password string) {
	newHash, err := s.hasher.Hash(password)
	if err != nil {
		s.logger.WarnContext(ctx, "best-effort password upgrade failed",
			"operation", "hash_password", "user_id", u.ID.String(), "error", err)
		return
	}

	err = s.tx.WithinTx(ctx, func(ctx context.Context) error {
		return s.users.UpdatePassword(ctx, u.ID, newHash)
	})
	if err != nil {
		s.logger.WarnContext(ctx, "best-effort password upgrade failed",
			"operation", "update_password", "user_id", u.ID.String(), "error", err)
		return
	}
	u.PasswordHash = newHash
}

func (s *AccountService) recordFailure(ctx context.Context, event string, err error) {
	oopsErr, ok := oops.AsOops(err)
	if ok {
		switch oopsErr.Code() {
		case CodeInviteUsed, CodeEmailTaken:
			s.metrics.record(event, outcomeConflict)
			s.logger.InfoContext(ctx, event+" rejected", "code", oopsErr.Code())
			return
		case CodeInvalidCredentials, CodeInvalidUser, CodePasswordEncoding:
			s.metrics.record(event, outcomeRejected)
			s.logger.InfoContext(ctx, event+" rejected", "code", oopsErr.Code())
			return
		}
	}
	s.metrics.record(event, outcomeError)
	errutil.LogError(s.logger, event+" failed", err)
}
