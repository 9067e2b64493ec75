package middleware

import (
	"errors"
	"net/http"
	"strings"

	"github.com/labstack/echo/v4"

	"github.com/afec/formation-portal/internal/auth"
)

// AccessCookie is the HttpOnly cookie carrying the access token. The bearer
// header is accepted as a fallback for non-browser clients.
const AccessCookie = "access_token"

// Authenticate returns the authentication gate. It decodes the inbound
// access token, rejects missing, malformed and expired tokens, and attaches
// the decoded identity to the request context.
//
// An expired token gets a distinct response (`expired: true`) so clients
// know to attempt a refresh; a malformed one does not. The embedded token
// version is NOT re-checked against the store here — that staleness window
// is bounded by the access token TTL.
func Authenticate(codec *auth.TokenCodec) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			raw := tokenFromRequest(c)
			if raw == "" {
				return c.JSON(http.StatusUnauthorized, echo.Map{
					"success": false, "message": "authentication required",
				})
			}

			claims, err := codec.ParseAccess(raw)
			if err != nil {
				if errors.Is(err, auth.ErrTokenExpired) {
					return c.JSON(http.StatusUnauthorized, echo.Map{
						"success": false, "message": "session expired", "expired": true,
					})
				}
				return c.JSON(http.StatusUnauthorized, echo.Map{
					"success": false, "message": "invalid token",
				})
			}

			setIdentity(c, &Identity{
				UserID:       claims.UserID,
				Roles:        auth.NewRoleSet(claims.Roles...),
				TokenVersion: claims.TokenVersion,
			})
			return next(c)
		}
	}
}

// tokenFromRequest prefers the HttpOnly cookie and falls back to a bearer
// Authorization header.
func tokenFromRequest(c echo.Context) string {
	if ck, err := c.Cookie(AccessCookie); err == nil && ck.Value != "" {
		return ck.Value
	}
	if h := c.Request().Header.Get("Authorization"); strings.HasPrefix(h, "Bearer ") {
		return strings.TrimPrefix(h, "Bearer ")
	}
	return ""
}
