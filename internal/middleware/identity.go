package middleware

// identity.go carries the authenticated identity through the Echo context.
// Authenticate stores it; RequireRoles and handlers read it back. Roles may
// start as the snapshot embedded in the access token and be replaced by a
// store lookup when a role check needs them.

import (
	"github.com/labstack/echo/v4"

	"github.com/afec/formation-portal/internal/auth"
)

const identityKey = "identity"

// Identity is the request-scoped result of a successful authentication.
type Identity struct {
	UserID       uint64
	Roles        auth.RoleSet
	TokenVersion int64
}

func setIdentity(c echo.Context, id *Identity) {
	c.Set(identityKey, id)
}

// CurrentIdentity returns the identity attached by Authenticate, or nil when
// the request never passed the authentication gate.
func CurrentIdentity(c echo.Context) *Identity {
	if id, ok := c.Get(identityKey).(*Identity); ok {
		return id
	}
	return nil
}
