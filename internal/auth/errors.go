package auth

import (
	"errors"
	"fmt"

	"github.com/afec/formation-portal/internal/model"
)

// Sentinel errors returned by the token codec and the session service.
// Handlers translate these into HTTP responses; everything not listed here
// is treated as a store failure and surfaced as a generic 500.
var (
	// ErrInvalidCredentials covers both an unknown email and a wrong
	// password. The two cases must stay indistinguishable to the caller.
	ErrInvalidCredentials = errors.New("invalid email or password")

	// ErrUnauthenticated means no usable token was presented.
	ErrUnauthenticated = errors.New("authentication required")

	// ErrTokenExpired means the token was well-formed but past its expiry.
	// Callers receiving this on an access token should attempt a refresh.
	ErrTokenExpired = errors.New("token expired")

	// ErrTokenMalformed covers bad structure, bad signature and wrong
	// signing secret; the three are deliberately indistinguishable.
	ErrTokenMalformed = errors.New("token malformed")

	// ErrTokenRevoked means the token's embedded version no longer matches
	// the user's current token_version.
	ErrTokenRevoked = errors.New("token revoked")

	// ErrTokenInvalid covers single-use token failures: a refresh token
	// whose hash does not match the stored slot, or a reset token with the
	// wrong purpose tag.
	ErrTokenInvalid = errors.New("token invalid")

	// ErrForbidden is returned when the subject of an otherwise valid
	// token cannot be resolved, or a role check fails.
	ErrForbidden = errors.New("forbidden")

	// ErrNoRoles means the user exists but has no role assignments. It is
	// surfaced to clients exactly like ErrForbidden; the distinction only
	// matters for diagnostics.
	ErrNoRoles = errors.New("no roles assigned")

	// ErrUnknownRole is returned when a role name cannot be resolved.
	ErrUnknownRole = errors.New("unknown role")
)

// AccountNotActiveError is returned when a login or password reset hits an
// account whose status forbids it. Unlike credential failures this carries a
// status-specific message: once the email lookup succeeded the account's
// existence is no longer a secret.
type AccountNotActiveError struct {
	Status model.UserStatus
}

func (e *AccountNotActiveError) Error() string {
	switch e.Status {
	case model.StatusPending:
		return "account awaiting validation"
	case model.StatusRejected:
		return "account rejected"
	case model.StatusSuspended:
		return "account suspended"
	}
	return fmt.Sprintf("account not active (%s)", e.Status)
}
