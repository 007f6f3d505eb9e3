// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 RunCoach Contributors

package auth

import (
	"errors"

	"github.com/samber/oops"
)

// ErrNotFound is returned when a requested entity does not exist.
var ErrNotFound = errors.New("not found")

// Uniqueness violations reported by UserRepository.Create.
var (
	ErrDuplicateInviteCode = errors.New("duplicate invite code")
	ErrDuplicateEmail      = errors.New("duplicate email")
)

// Error codes surfaced to the transport layer.
const (
	CodeInviteUsed         = "AUTH_INVITE_USED"
	CodeEmailTaken         = "AUTH_EMAIL_TAKEN"
	CodeInvalidCredentials = "AUTH_INVALID_CREDENTIALS"
	CodeNotAuthenticated   = "AUTH_NOT_AUTHENTICATED"
	CodeInvalidSession     = "AUTH_INVALID_SESSION"
	CodeUserNotFound       = "AUTH_USER_NOT_FOUND"
	CodeResolveFailed      = "AUTH_RESOLVE_FAILED"
	CodePasswordEncoding   = "AUTH_PASSWORD_ENCODING"
	CodeInvalidUser        = "AUTH_INVALID_USER"
)

// Client-facing messages. Login failures never say which field was wrong.
const (
	MsgInviteUsed         = "Invite code already used"
	MsgEmailTaken         = "Email already registered"
	MsgInvalidCredentials = "Invalid email or password"
	MsgNotAuthenticated   = "Not authenticated"
	MsgInvalidSession     = "Invalid or expired session"
	MsgUserNotFound       = "User not found"
)

func hasCode(err error, code string) bool {
	oopsErr, ok := oops.AsOops(err)
	return ok && oopsErr.Code() == code
}

func errInviteUsed() error {
	return oops.Code(CodeInviteUsed).Public(MsgInviteUsed).Errorf("invite code already claimed")
}

func errEmailTaken() error {
	return oops.Code(CodeEmailTaken).Public(MsgEmailTaken).Errorf("email already registered")
}

func errInvalidCredentials() error {
	return oops.Code(CodeInvalidCredentials).Public(MsgInvalidCredentials).Errorf("invalid email or password")
}
