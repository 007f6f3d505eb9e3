// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 RunCoach Contributors

// Package auth provides authentication primitives for RunCoach.
//
// # Primitives
//
//   - BcryptHasher - salted password hashing with a configurable cost
//   - TokenCodec - HMAC-SHA256 signed session tokens carrying a user ID and
//     issue time; the maximum age is applied at verification
//   - Resolver - maps a session cookie value to a User, in mandatory
//     (Require) and optional (Optional) variants
//
// # Services
//
// AccountService coordinates registration and login. Each operation runs
// inside a single transaction obtained from a Transactor, so a failed
// registration leaves no partial state behind.
//
// Users should be created with NewUser, which validates field lengths and
// normalizes the email. Repository implementations receive pre-validated
// values.
package auth
