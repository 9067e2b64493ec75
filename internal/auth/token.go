package auth

import (
	"errors"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// ResetPurpose is the purpose tag embedded in password-reset tokens. A reset
// token without exactly this tag is rejected even if its signature checks
// out, so a token minted for another flow can never complete a reset.
const ResetPurpose = "reset_password"

// AccessClaims is the payload of a short-lived access token. Roles are a
// snapshot taken at signing time; they may go stale within the token's TTL.
type AccessClaims struct {
	UserID       uint64   `json:"id"`
	Roles        []string `json:"roles"`
	TokenVersion int64    `json:"token_version"`
	jwt.RegisteredClaims
}

// RefreshClaims is the payload of a long-lived refresh token. It carries no
// roles: refresh re-resolves them from the store.
type RefreshClaims struct {
	UserID       uint64 `json:"id"`
	TokenVersion int64  `json:"token_version"`
	jwt.RegisteredClaims
}

// ResetClaims is the payload of a password-reset token. It deliberately does
// not embed a token version; its only replay bound is the short expiry.
type ResetClaims struct {
	UserID  uint64 `json:"id"`
	Purpose string `json:"purpose"`
	jwt.RegisteredClaims
}

// TokenCodec signs and verifies the three token kinds, each with its own
// secret so a leaked secret compromises only one kind.
type TokenCodec struct {
	accessSecret  []byte
	refreshSecret []byte
	resetSecret   []byte

	AccessTTL  time.Duration
	RefreshTTL time.Duration
	ResetTTL   time.Duration
}

// NewTokenCodec builds a codec from the three signing secrets and TTLs.
func NewTokenCodec(accessSecret, refreshSecret, resetSecret string, accessTTL, refreshTTL, resetTTL time.Duration) *TokenCodec {
	return &TokenCodec{
		accessSecret:  []byte(accessSecret),
		refreshSecret: []byte(refreshSecret),
		resetSecret:   []byte(resetSecret),
		AccessTTL:     accessTTL,
		RefreshTTL:    refreshTTL,
		ResetTTL:      resetTTL,
	}
}

var validMethods = jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()})

// SignAccess mints an access token embedding the user's id, role snapshot
// and current token version. Returns the token and its expiry.
func (c *TokenCodec) SignAccess(userID uint64, roles RoleSet, version int64) (string, time.Time, error) {
	exp := time.Now().UTC().Add(c.AccessTTL)
	claims := AccessClaims{
		UserID:       userID,
		Roles:        roles.Names(),
		TokenVersion: version,
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(exp),
			IssuedAt:  jwt.NewNumericDate(time.Now().UTC()),
		},
	}
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(c.accessSecret)
	if err != nil {
		return "", time.Time{}, err
	}
	return signed, exp, nil
}

// SignRefresh mints a refresh token embedding the user's id and current
// token version.
func (c *TokenCodec) SignRefresh(userID uint64, version int64) (string, time.Time, error) {
	exp := time.Now().UTC().Add(c.RefreshTTL)
	claims := RefreshClaims{
		UserID:       userID,
		TokenVersion: version,
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(exp),
			IssuedAt:  jwt.NewNumericDate(time.Now().UTC()),
		},
	}
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(c.refreshSecret)
	if err != nil {
		return "", time.Time{}, err
	}
	return signed, exp, nil
}

// SignReset mints a purpose-tagged password-reset token.
func (c *TokenCodec) SignReset(userID uint64) (string, error) {
	claims := ResetClaims{
		UserID:  userID,
		Purpose: ResetPurpose,
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(time.Now().UTC().Add(c.ResetTTL)),
			IssuedAt:  jwt.NewNumericDate(time.Now().UTC()),
		},
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(c.resetSecret)
}

// ParseAccess verifies an access token and returns its claims. Fails with
// ErrTokenExpired past the expiry and ErrTokenMalformed for anything else,
// including a signature made with the wrong secret.
func (c *TokenCodec) ParseAccess(raw string) (*AccessClaims, error) {
	claims := &AccessClaims{}
	if err := c.parse(raw, claims, c.accessSecret); err != nil {
		return nil, err
	}
	if claims.UserID == 0 {
		return nil, ErrTokenMalformed
	}
	return claims, nil
}

// ParseRefresh verifies a refresh token and returns its claims.
func (c *TokenCodec) ParseRefresh(raw string) (*RefreshClaims, error) {
	claims := &RefreshClaims{}
	if err := c.parse(raw, claims, c.refreshSecret); err != nil {
		return nil, err
	}
	if claims.UserID == 0 {
		return nil, ErrTokenMalformed
	}
	return claims, nil
}

// ParseReset verifies a reset token, including its purpose tag. A wrong
// purpose fails with ErrTokenInvalid.
func (c *TokenCodec) ParseReset(raw string) (*ResetClaims, error) {
	claims := &ResetClaims{}
	if err := c.parse(raw, claims, c.resetSecret); err != nil {
		return nil, err
	}
	if claims.UserID == 0 || claims.Purpose != ResetPurpose {
		return nil, ErrTokenInvalid
	}
	return claims, nil
}

func (c *TokenCodec) parse(raw string, claims jwt.Claims, secret []byte) error {
	tok, err := jwt.ParseWithClaims(raw, claims, func(t *jwt.Token) (interface{}, error) {
		return secret, nil
	}, validMethods)
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return ErrTokenExpired
		}
		return ErrTokenMalformed
	}
	if !tok.Valid {
		return ErrTokenMalformed
	}
	return nil
}
