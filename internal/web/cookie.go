// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 RunCoach Contributors

package web

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/runcoach/runcoach/internal/auth"
)

// SessionCookie is the name of the cookie carrying the session token.
const SessionCookie = "session"

var sessionCookieMaxAge = int(auth.SessionMaxAge.Seconds())

func setSessionCookie(c *gin.Context, token string) {
	c.SetSameSite(http.SameSiteLaxMode)
	c.SetCookie(SessionCookie, token, sessionCookieMaxAge, "/", "", true, true)
}

func clearSessionCookie(c *gin.Context) {
	c.SetSameSite(http.SameSiteLaxMode)
	c.SetCookie(SessionCookie, "", -1, "/", "", true, true)
}

// sessionToken returns the session cookie value, or "" when absent.
func sessionToken(c *gin.Context) string {
	token, err := c.Cookie(SessionCookie)
	if err != nil {
		return ""
	}
	return token
}
