package auth

import (
	"crypto/sha256"
	"encoding/hex"

	"golang.org/x/crypto/bcrypt"
)

// refreshHashCost is the bcrypt cost used for refresh-token digests. Lower
// than the password cost: these are high-entropy signed tokens, not
// guessable secrets.
const refreshHashCost = 10

// Hasher wraps bcrypt with a configurable cost for passwords and a fixed
// cost for refresh-token digests.
type Hasher struct {
	Cost int
}

// NewHasher returns a Hasher with the given bcrypt cost. Costs outside the
// valid bcrypt range fall back to the library default.
func NewHasher(cost int) *Hasher {
	if cost < bcrypt.MinCost || cost > bcrypt.MaxCost {
		cost = bcrypt.DefaultCost
	}
	return &Hasher{Cost: cost}
}

// HashPassword returns the bcrypt digest of a plaintext password.
func (h *Hasher) HashPassword(plain string) (string, error) {
	b, err := bcrypt.GenerateFromPassword([]byte(plain), h.Cost)
	if err != nil {
		return "", err
	}
	return string(b), nil
}

// VerifyPassword compares a plaintext password against a bcrypt digest.
// bcrypt performs its own constant-time comparison.
func (h *Hasher) VerifyPassword(hash, plain string) bool {
	return bcrypt.CompareHashAndPassword([]byte(hash), []byte(plain)) == nil
}

// HashToken returns a bcrypt digest suitable for the users.refresh_token_hash
// slot. The token is reduced to a SHA-256 hex digest first: signed tokens
// exceed bcrypt's 72-byte input limit.
func (h *Hasher) HashToken(raw string) (string, error) {
	b, err := bcrypt.GenerateFromPassword(tokenDigest(raw), refreshHashCost)
	if err != nil {
		return "", err
	}
	return string(b), nil
}

// VerifyToken compares a raw token against a stored HashToken digest.
func (h *Hasher) VerifyToken(hash, raw string) bool {
	return bcrypt.CompareHashAndPassword([]byte(hash), tokenDigest(raw)) == nil
}

func tokenDigest(raw string) []byte {
	sum := sha256.Sum256([]byte(raw))
	return []byte(hex.EncodeToString(sum[:]))
}
