// Package router wires HTTP routes to handlers and middleware chains. The
// required role sets are fixed here, at wiring time, not per request.
package router

import (
	"github.com/labstack/echo/v4"
	"github.com/redis/go-redis/v9"

	"github.com/afec/formation-portal/internal/auth"
	"github.com/afec/formation-portal/internal/config"
	"github.com/afec/formation-portal/internal/handler"
	"github.com/afec/formation-portal/internal/middleware"
)

// Deps bundles everything route registration needs.
type Deps struct {
	Auth      *handler.AuthHandler
	Admin     *handler.AdminHandler
	Codec     *auth.TokenCodec
	Roles     auth.RoleStore
	RateLimit config.RateLimitConfig
	Redis     *redis.Client
}

// Register sets up all route groups on the Echo instance.
func Register(e *echo.Echo, d Deps) {
	e.GET("/healthz", handler.Health)

	limited := middleware.RateLimit(d.RateLimit, d.Redis)
	authed := middleware.Authenticate(d.Codec)

	// Session endpoints. Everything under /auth is rate limited; the
	// endpoints that presume a session also pass the authentication gate.
	ag := e.Group("/auth", limited)
	ag.POST("/register", d.Auth.Register)
	ag.POST("/login", d.Auth.Login)
	ag.POST("/refresh", d.Auth.Refresh)
	ag.POST("/forgot-password", d.Auth.ForgotPassword)
	ag.POST("/reset-password", d.Auth.ResetPassword)
	ag.POST("/logout", d.Auth.Logout, authed)
	ag.GET("/me", d.Auth.Me, authed)
	ag.GET("/verify", d.Auth.Me, authed)

	// Admin endpoints: authentication plus a role check. Listing is for
	// super_admin only; validation and deletion also allow coordinateur.
	adm := e.Group("/admin", limited, authed)
	adm.GET("/users", d.Admin.ListUsers,
		middleware.RequireRoles(d.Roles, "super_admin"))
	adm.PATCH("/users/:id/validate", d.Admin.ValidateUser,
		middleware.RequireRoles(d.Roles, "super_admin", "coordinateur"))
	adm.DELETE("/users/:id", d.Admin.DeleteUser,
		middleware.RequireRoles(d.Roles, "super_admin", "coordinateur"))
}
