// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 RunCoach Contributors

package auth

import (
	"log/slog"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/samber/oops"
)

// SessionMaxAge is the maximum session lifetime, enforced at verification time.
const SessionMaxAge = 7 * 24 * time.Hour

// SessionCodec issues and verifies signed session tokens.
type SessionCodec interface {
	// Issue returns a signed token embedding the user ID and the current time.
	Issue(userID uuid.UUID) (string, error)

	// Verify returns the embedded user ID if the token is authentic and no
	// older than maxAge. All failures collapse into ok == false.
	Verify(token string, maxAge time.Duration) (userID uuid.UUID, ok bool)
}

// TokenCodec implements SessionCodec with HMAC-SHA256 signed JWTs carrying
// only the sub and iat claims.
type TokenCodec struct {
	secret []byte
	now    func() time.Time
	logger *slog.Logger
	parser *jwt.Parser
}

// TokenOption configures a TokenCodec.
type TokenOption func(*TokenCodec)

// WithClock overrides the time source used for issuing and verifying tokens.
func WithClock(now func() time.Time) TokenOption {
	return func(c *TokenCodec) {
		c.now = now
	}
}

// WithTokenLogger sets the logger used for rejection diagnostics.
func WithTokenLogger(logger *slog.Logger) TokenOption {
	return func(c *TokenCodec) {
		c.logger = logger
	}
}

// NewTokenCodec creates a TokenCodec signing with secret.
func NewTokenCodec(secret string, opts ...TokenOption) (*TokenCodec, error) {
	if secret == "" {
		return nil, oops.Code("AUTH_EMPTY_SECRET").Errorf("session secret key cannot be empty")
	}

	c := &TokenCodec{
		secret: []byte(secret),
		now:    time.Now,
		logger: slog.Default(),
	}
	for _, opt := range opts {
		opt(c)
	}

	c.parser = jwt.NewParser(
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithTimeFunc(func() time.Time { return c.now() }),
		jwt.WithIssuedAt(),
		jwt.WithStrictDecoding(),
	)
	return c, nil
}

// Issue returns a signed token for userID.
func (c *TokenCodec) Issue(userID uuid.UUID) (string, error) {
	claims := jwt.RegisteredClaims{
		Subject:  userID.String(),
		IssuedAt: jwt.NewNumericDate(c.now()),
	}
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(c.secret)
	if err != nil {
		return "", oops.Code("AUTH_TOKEN_SIGN_FAILED").With("user_id", userID.String()).Wrap(err)
	}
	return token, nil
}

// Verify checks the signature, issued-at and age of token.
// Age is measured in whole seconds, so a fresh token passes with maxAge 0.
func (c *TokenCodec) Verify(token string, maxAge time.Duration) (uuid.UUID, bool) {
	claims := &jwt.RegisteredClaims{}
	if _, err := c.parser.ParseWithClaims(token, claims, c.keyFunc); err != nil {
		c.logger.Debug("session token rejected", "reason", "invalid", "error", err)
		return uuid.Nil, false
	}
	if claims.IssuedAt == nil {
		c.logger.Debug("session token rejected", "reason", "missing_iat")
		return uuid.Nil, false
	}

	age := time.Duration(c.now().Unix()-claims.IssuedAt.Unix()) * time.Second
	if age > maxAge {
		c.logger.Debug("session token rejected", "reason", "expired", "age", age)
		return uuid.Nil, false
	}

	id, err := uuid.Parse(claims.Subject)
	if err != nil {
		c.logger.Debug("session token rejected", "reason", "malformed_subject")
		return uuid.Nil, false
	}
	return id, true
}

func (c *TokenCodec) keyFunc(_ *jwt.Token) (any, error) {
	return c.secret, nil
}

var _ SessionCodec = (*TokenCodec)(nil)
