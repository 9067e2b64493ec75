package middleware

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/afec/formation-portal/internal/auth"
)

// RequireRoles returns the authorization gate for a fixed required role set,
// configured per route group at wiring time. Any intersection between the
// identity's roles and the required set allows the request.
//
// Roles usually arrive as the snapshot embedded in the access token. When
// the token carried none, they are resolved once from the store and cached
// on the identity for later middleware in the same request. Both "no roles
// assigned" and "no intersection" answer with the same 403 body; only the
// server log tells them apart.
func RequireRoles(store auth.RoleStore, names ...string) echo.MiddlewareFunc {
	required := auth.NewRoleSet(names...)

	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			id := CurrentIdentity(c)
			if id == nil {
				return c.JSON(http.StatusUnauthorized, echo.Map{
					"success": false, "message": "authentication required",
				})
			}

			roles := id.Roles
			if roles.Empty() {
				resolved, err := store.RolesForUser(c.Request().Context(), id.UserID)
				if err != nil {
					// Fail closed: an unreadable role table never allows.
					c.Logger().Errorf("authorize: role lookup for user %d failed: %v", id.UserID, err)
					return c.JSON(http.StatusInternalServerError, echo.Map{
						"success": false, "message": "authorization check failed",
					})
				}
				id.Roles = resolved
				roles = resolved
			}

			if roles.Empty() {
				c.Logger().Warnf("authorize: user %d has no roles assigned", id.UserID)
				return deny(c)
			}
			if !roles.Intersects(required) {
				c.Logger().Warnf("authorize: user %d roles %v lack %v", id.UserID, roles.Names(), required.Names())
				return deny(c)
			}
			return next(c)
		}
	}
}

func deny(c echo.Context) error {
	return c.JSON(http.StatusForbidden, echo.Map{
		"success": false, "message": "insufficient privileges",
	})
}
