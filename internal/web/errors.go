// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 RunCoach Contributors

package web

import (
	"errors"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"
	"github.com/samber/oops"

	"github.com/runcoach/runcoach/internal/auth"
	"github.com/runcoach/runcoach/pkg/errutil"
)

const msgInternal = "Internal server error"

// FieldError is one entry of a 422 response body.
type FieldError struct {
	Loc  []string `json:"loc"`
	Msg  string   `json:"msg"`
	Type string   `json:"type"`
}

// errorCode returns the oops code of err, or "" for uncoded errors.
func errorCode(err error) string {
	oopsErr, ok := oops.AsOops(err)
	if !ok {
		return ""
	}
	code, _ := oopsErr.Code().(string)
	return code
}

// respondError writes the response for a failed request. Unexpected errors
// are logged and reported without detail.
func respondError(c *gin.Context, logger *slog.Logger, err error) {
	switch code := errorCode(err); code {
	case auth.CodeInviteUsed, auth.CodeEmailTaken:
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"detail": oops.GetPublic(err, "Conflict")})
	case auth.CodeInvalidCredentials, auth.CodeNotAuthenticated, auth.CodeInvalidSession, auth.CodeUserNotFound:
		c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"detail": oops.GetPublic(err, auth.MsgNotAuthenticated)})
	case auth.CodeInvalidUser, auth.CodePasswordEncoding:
		c.AbortWithStatusJSON(http.StatusUnprocessableEntity, gin.H{"detail": []FieldError{domainFieldError(err, code)}})
	default:
		errutil.LogErrorContext(c.Request.Context(), logger, "request failed", err)
		c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"detail": msgInternal})
	}
}

func domainFieldError(err error, code string) FieldError {
	field := "password"
	if oopsErr, ok := oops.AsOops(err); ok {
		if f, ok := oopsErr.Context()["field"].(string); ok {
			field = f
		}
	}
	msg := "Invalid value"
	if code == auth.CodeInvalidUser {
		msg = err.Error()
	}
	return FieldError{Loc: []string{"body", field}, Msg: msg, Type: "value_error"}
}

// respondValidation writes a 422 for a body that failed to decode or
// validate.
func respondValidation(c *gin.Context, err error) {
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		c.AbortWithStatusJSON(http.StatusUnprocessableEntity, gin.H{"detail": []FieldError{{
			Loc:  []string{"body"},
			Msg:  "Invalid JSON body",
			Type: "json_invalid",
		}}})
		return
	}

	details := make([]FieldError, 0, len(verrs))
	for _, fe := range verrs {
		details = append(details, FieldError{
			Loc:  []string{"body", fe.Field()},
			Msg:  validationMessage(fe),
			Type: fe.Tag(),
		})
	}
	c.AbortWithStatusJSON(http.StatusUnprocessableEntity, gin.H{"detail": details})
}

func validationMessage(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		return "Field required"
	case "min":
		return fmt.Sprintf("String should have at least %s characters", fe.Param())
	case "max":
		return fmt.Sprintf("String should have at most %s characters", fe.Param())
	case "email":
		return "value is not a valid email address"
	}
	return fmt.Sprintf("failed %q validation", fe.Tag())
}
