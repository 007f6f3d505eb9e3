// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 RunCoach Contributors

package web

import (
	"log/slog"

	"github.com/gin-gonic/gin"
	"github.com/samber/oops"

	"github.com/runcoach/runcoach/internal/auth"
)

const userKey = "runcoach.user"

// errMissingIdentity means a handler that needs a user was routed without
// RequireIdentity.
var errMissingIdentity = oops.Code("WEB_IDENTITY_MISSING").Errorf("route is missing identity middleware")

// RequireIdentity resolves the session cookie and aborts with 401 when
// there is no valid session.
func RequireIdentity(resolver IdentityResolver, logger *slog.Logger) gin.HandlerFunc {
	if logger == nil {
		logger = slog.Default()
	}
	return func(c *gin.Context) {
		user, err := resolver.Require(c.Request.Context(), sessionToken(c))
		if err != nil {
			respondError(c, logger, err)
			return
		}
		c.Set(userKey, user)
		c.Next()
	}
}

// OptionalIdentity resolves the session cookie when it is valid and lets
// guests through.
func OptionalIdentity(resolver IdentityResolver) gin.HandlerFunc {
	return func(c *gin.Context) {
		if user := resolver.Optional(c.Request.Context(), sessionToken(c)); user != nil {
			c.Set(userKey, user)
		}
		c.Next()
	}
}

// CurrentUser returns the user resolved for this request.
func CurrentUser(c *gin.Context) (*auth.User, bool) {
	v, ok := c.Get(userKey)
	if !ok {
		return nil, false
	}
	user, ok := v.(*auth.User)
	return user, ok && user != nil
}
