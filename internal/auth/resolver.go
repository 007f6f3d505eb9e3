// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 RunCoach Contributors

package auth

import (
	"context"
	"errors"
	"log/slog"

	"github.com/samber/oops"

	"github.com/runcoach/runcoach/pkg/errutil"
)

// Resolver maps a session cookie value to the authenticated user.
type Resolver struct {
	codec  SessionCodec
	users  UserRepository
	logger *slog.Logger
}

// NewResolver creates a Resolver. A nil logger falls back to slog.Default.
func NewResolver(codec SessionCodec, users UserRepository, logger *slog.Logger) (*Resolver, error) {
	if codec == nil {
		return nil, oops.Code("AUTH_INVALID_RESOLVER").Errorf("session codec is required")
	}
	if users == nil {
		return nil, oops.Code("AUTH_INVALID_RESOLVER").Errorf("users repository is required")
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Resolver{codec: codec, users: users, logger: logger}, nil
}

// Require returns the user for token or an authentication error.
// An empty token is treated as absent.
func (r *Resolver) Require(ctx context.Context, token string) (*User, error) {
	if token == "" {
		return nil, oops.Code(CodeNotAuthenticated).Public(MsgNotAuthenticated).Errorf("no session cookie")
	}

	userID, ok := r.codec.Verify(token, SessionMaxAge)
	if !ok {
		return nil, oops.Code(CodeInvalidSession).Public(MsgInvalidSession).Errorf("session token rejected")
	}

	user, err := r.users.GetByID(ctx, userID)
	if errors.Is(err, ErrNotFound) {
		return nil, oops.Code(CodeUserNotFound).
			Public(MsgUserNotFound).
			With("user_id", userID.String()).
			Errorf("session references missing user")
	}
	if err != nil {
		return nil, errutil.WrapCode(err, CodeResolveFailed,
			"operation", "get user by id",
			"user_id", userID.String())
	}
	return user, nil
}

// Optional returns the user for token, or nil for guests and for any
// failure. Store failures are logged; authentication failures are not.
func (r *Resolver) Optional(ctx context.Context, token string) *User {
	user, err := r.Require(ctx, token)
	if err == nil {
		return user
	}
	if !isAuthFailure(err) {
		r.logger.WarnContext(ctx, "optional identity lookup failed", "error", err)
	}
	return nil
}

func isAuthFailure(err error) bool {
	oopsErr, ok := oops.AsOops(err)
	if !ok {
		return false
	}
	switch oopsErr.Code() {
	case CodeNotAuthenticated, CodeInvalidSession, CodeUserNotFound:
		return true
	}
	return false
}
