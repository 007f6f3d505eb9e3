// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 RunCoach Contributors

package web

import (
	"context"
	"log/slog"
	"net/http"
	"reflect"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"

	"github.com/runcoach/runcoach/internal/auth"
)

// Accounts registers and authenticates users.
type Accounts interface {
	Register(ctx context.Context, p auth.RegisterParams) (*auth.User, string, error)
	Login(ctx context.Context, email, password string) (*auth.User, string, error)
}

// IdentityResolver turns a session token into a user.
type IdentityResolver interface {
	Require(ctx context.Context, token string) (*auth.User, error)
	Optional(ctx context.Context, token string) *auth.User
}

type registerRequest struct {
	InviteCode string `json:"invite_code" validate:"required,max=50"`
	Name       string `json:"name" validate:"required,max=100"`
	Email      string `json:"email" validate:"required,email,max=255"`
	Password   string `json:"password" validate:"required,min=8,max=128"`
}

// loginRequest.Password must be present but may be empty; an empty password
// fails as bad credentials.
type loginRequest struct {
	Email    string  `json:"email" validate:"required,email"`
	Password *string `json:"password" validate:"required"`
}

// UserResponse is the public view of a user.
type UserResponse struct {
	ID        uuid.UUID `json:"id"`
	Name      string    `json:"name"`
	Email     string    `json:"email"`
	CreatedAt time.Time `json:"created_at"`
}

func newUserResponse(u *auth.User) UserResponse {
	return UserResponse{ID: u.ID, Name: u.Name, Email: u.Email, CreatedAt: u.CreatedAt}
}

// AuthHandler serves the /auth endpoints.
type AuthHandler struct {
	accounts Accounts
	resolver IdentityResolver
	validate *validator.Validate
	logger   *slog.Logger
}

// NewAuthHandler creates an AuthHandler.
func NewAuthHandler(accounts Accounts, resolver IdentityResolver, logger *slog.Logger) *AuthHandler {
	if logger == nil {
		logger = slog.Default()
	}
	return &AuthHandler{
		accounts: accounts,
		resolver: resolver,
		validate: newValidator(),
		logger:   logger,
	}
}

// newValidator reports fields by their JSON names.
func newValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		name, _, _ := strings.Cut(f.Tag.Get("json"), ",")
		if name == "-" {
			return ""
		}
		return name
	})
	return v
}

// bind decodes and validates the JSON body into dst. It writes the 422
// response and returns false on failure.
func (h *AuthHandler) bind(c *gin.Context, dst any) bool {
	if err := c.ShouldBindJSON(dst); err != nil {
		respondValidation(c, err)
		return false
	}
	if err := h.validate.Struct(dst); err != nil {
		respondValidation(c, err)
		return false
	}
	return true
}

// Register handles POST /auth/register.
func (h *AuthHandler) Register(c *gin.Context) {
	var req registerRequest
	if !h.bind(c, &req) {
		return
	}

	user, token, err := h.accounts.Register(c.Request.Context(), auth.RegisterParams{
		InviteCode: req.InviteCode,
		Name:       req.Name,
		Email:      req.Email,
		Password:   req.Password,
	})
	if err != nil {
		respondError(c, h.logger, err)
		return
	}

	setSessionCookie(c, token)
	c.JSON(http.StatusCreated, newUserResponse(user))
}

// Login handles POST /auth/login.
func (h *AuthHandler) Login(c *gin.Context) {
	var req loginRequest
	if !h.bind(c, &req) {
		return
	}

	user, token, err := h.accounts.Login(c.Request.Context(), req.Email, *req.Password)
	if err != nil {
		respondError(c, h.logger, err)
		return
	}

	setSessionCookie(c, token)
	c.JSON(http.StatusOK, newUserResponse(user))
}

// Logout handles POST /auth/logout. It succeeds with or without a session.
func (h *AuthHandler) Logout(c *gin.Context) {
	clearSessionCookie(c)
	c.JSON(http.StatusOK, gin.H{"message": "Logged out successfully"})
}

// Me handles GET /auth/me. It must run behind RequireIdentity.
func (h *AuthHandler) Me(c *gin.Context) {
	user, ok := CurrentUser(c)
	if !ok {
		respondError(c, h.logger, errMissingIdentity)
		return
	}
	c.JSON(http.StatusOK, newUserResponse(user))
}

// Health handles GET /health.
func Health(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "healthy"})
}
