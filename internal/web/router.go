// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 RunCoach Contributors

// Package web serves the RunCoach HTTP API.
package web

import (
	"log/slog"
	"net/http"
	"slices"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/samber/oops"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/trace"

	"github.com/runcoach/runcoach/internal/observability"
)

const tracerName = "github.com/runcoach/runcoach/internal/web"

// RouterConfig holds the router's collaborators.
type RouterConfig struct {
	Accounts    Accounts
	Resolver    IdentityResolver
	Logger      *slog.Logger
	Metrics     *observability.HTTPMetrics
	Tracer      trace.Tracer
	CORSOrigins []string
}

// NewRouter builds the gin engine with middleware and routes.
func NewRouter(cfg RouterConfig) (*gin.Engine, error) {
	if cfg.Accounts == nil {
		return nil, oops.Code("WEB_INVALID_CONFIG").Errorf("accounts service is required")
	}
	if cfg.Resolver == nil {
		return nil, oops.Code("WEB_INVALID_CONFIG").Errorf("identity resolver is required")
	}
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}
	if cfg.Tracer == nil {
		cfg.Tracer = otel.Tracer(tracerName)
	}

	r := gin.New()
	r.HandleMethodNotAllowed = true
	r.Use(
		Recovery(cfg.Logger),
		RequestIDMiddleware(),
		Tracing(cfg.Tracer),
		AccessLog(cfg.Logger),
		Metrics(cfg.Metrics),
		cors.New(corsConfig(cfg.CORSOrigins)),
	)

	r.NoRoute(func(c *gin.Context) {
		c.JSON(http.StatusNotFound, gin.H{"detail": "Not Found"})
	})
	r.NoMethod(func(c *gin.Context) {
		c.JSON(http.StatusMethodNotAllowed, gin.H{"detail": "Method Not Allowed"})
	})

	r.GET("/health", Health)

	h := NewAuthHandler(cfg.Accounts, cfg.Resolver, cfg.Logger)
	authGroup := r.Group("/auth")
	{
		authGroup.POST("/register", h.Register)
		authGroup.POST("/login", h.Login)
		authGroup.POST("/logout", h.Logout)
		authGroup.GET("/me", RequireIdentity(cfg.Resolver, cfg.Logger), h.Me)
	}

	return r, nil
}

// corsConfig allows credentialed requests from origins. "*" allows any
// origin by echoing it back, since browsers reject a literal wildcard on
// credentialed responses.
func corsConfig(origins []string) cors.Config {
	cfg := cors.Config{
		AllowMethods:     []string{http.MethodGet, http.MethodPost, http.MethodPut, http.MethodPatch, http.MethodDelete, http.MethodOptions},
		AllowHeaders:     []string{"Origin", "Content-Type", "Accept", "Authorization", RequestIDHeader},
		ExposeHeaders:    []string{RequestIDHeader},
		AllowCredentials: true,
		MaxAge:           12 * time.Hour,
	}
	if len(origins) == 0 || slices.Contains(origins, "*") {
		cfg.AllowOriginFunc = func(string) bool { return true }
	} else {
		cfg.AllowOrigins = origins
	}
	return cfg
}
