package auth

import (
	"context"
	"database/sql"
	"errors"
	"log"
	"strings"
	"time"

	"github.com/afec/formation-portal/internal/model"
)

// UserStore is the slice of the user repository the session service needs.
type UserStore interface {
	FindByEmail(ctx context.Context, email string) (*model.User, error)
	GetByID(ctx context.Context, id uint64) (*model.User, error)
	Create(ctx context.Context, u *model.User) (uint64, error)
	IncrementTokenVersion(ctx context.Context, id uint64) error
	StoreRefreshHash(ctx context.Context, id uint64, hash string) error
	UpdatePassword(ctx context.Context, id uint64, passwordHash string) error
	TouchLastLogin(ctx context.Context, id uint64) error
}

// RoleStore resolves role assignments for a user.
type RoleStore interface {
	RolesForUser(ctx context.Context, userID uint64) (RoleSet, error)
	ResolveRoleID(ctx context.Context, name string) (uint8, error)
	AssignRole(ctx context.Context, userID uint64, roleID uint8) error
}

// ResetNotifier hands a freshly minted reset token to the mail pipeline.
// Delivery is fire-and-forget: failures are logged, never surfaced.
type ResetNotifier interface {
	SendPasswordReset(ctx context.Context, email, token string) error
}

// TokenPair is the result of a successful login.
type TokenPair struct {
	Access         string
	AccessExpires  time.Time
	Refresh        string
	RefreshExpires time.Time
}

// UserView is the sanitized user representation returned to clients. It
// never carries the password or refresh-token hashes.
type UserView struct {
	ID           uint64   `json:"id"`
	FirstName    string   `json:"first_name"`
	LastName     string   `json:"last_name"`
	Email        string   `json:"email"`
	Roles        []string `json:"roles"`
	AgencyName   string   `json:"agency_name,omitempty"`
	AgencyRegion string   `json:"agency_region,omitempty"`
}

// RegisterParams carries a validated registration request into the service.
// PasswordHash-ready plaintext; hashing happens here.
type RegisterParams struct {
	FirstName string
	LastName  string
	Email     string
	Password  string
	AgencyID  uint64
	Role      string
}

// Service implements the identity core: session issuance, refresh,
// revocation, registration and the password-reset flow. All checks fail
// closed: an unexpected store error always denies.
type Service struct {
	users  UserStore
	roles  RoleStore
	codec  *TokenCodec
	hasher *Hasher
	notify ResetNotifier
}

func NewService(users UserStore, roles RoleStore, codec *TokenCodec, hasher *Hasher, notify ResetNotifier) *Service {
	return &Service{users: users, roles: roles, codec: codec, hasher: hasher, notify: notify}
}

// Codec exposes the token codec for the authentication middleware.
func (s *Service) Codec() *TokenCodec { return s.codec }

// Login verifies credentials and account status, bumps the token version
// (revoking every earlier session for this user), and mints a fresh
// access/refresh pair. Only the bcrypt hash of the refresh token is
// persisted, overwriting the previous slot.
func (s *Service) Login(ctx context.Context, email, password string) (*TokenPair, *UserView, error) {
	email = strings.ToLower(strings.TrimSpace(email))

	u, err := s.users.FindByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			// Same error as a wrong password: no account enumeration.
			return nil, nil, ErrInvalidCredentials
		}
		return nil, nil, err
	}
	if !u.Status.CanLogin() {
		return nil, nil, &AccountNotActiveError{Status: u.Status}
	}
	if !s.hasher.VerifyPassword(u.PasswordHash, password) {
		return nil, nil, ErrInvalidCredentials
	}

	// Every fresh login invalidates all prior tokens for this user.
	if err := s.users.IncrementTokenVersion(ctx, u.ID); err != nil {
		return nil, nil, err
	}
	u, err = s.users.GetByID(ctx, u.ID)
	if err != nil {
		return nil, nil, err
	}

	roles, err := s.roles.RolesForUser(ctx, u.ID)
	if err != nil {
		return nil, nil, err
	}

	access, accessExp, err := s.codec.SignAccess(u.ID, roles, u.TokenVersion)
	if err != nil {
		return nil, nil, err
	}
	refresh, refreshExp, err := s.codec.SignRefresh(u.ID, u.TokenVersion)
	if err != nil {
		return nil, nil, err
	}

	hash, err := s.hasher.HashToken(refresh)
	if err != nil {
		return nil, nil, err
	}
	if err := s.users.StoreRefreshHash(ctx, u.ID, hash); err != nil {
		return nil, nil, err
	}
	if err := s.users.TouchLastLogin(ctx, u.ID); err != nil {
		log.Printf("auth: update last_login for user %d failed: %v", u.ID, err)
	}

	pair := &TokenPair{
		Access:         access,
		AccessExpires:  accessExp,
		Refresh:        refresh,
		RefreshExpires: refreshExp,
	}
	return pair, viewOf(u, roles), nil
}

// Refresh exchanges a valid refresh token for a new access token. The
// refresh token itself is not rotated: the stored hash slot plus the version
// fence already guarantee a single live refresh token per user. Roles are
// re-resolved from the store rather than trusted from any earlier token.
func (s *Service) Refresh(ctx context.Context, rawRefresh string) (string, time.Time, error) {
	claims, err := s.codec.ParseRefresh(rawRefresh)
	if err != nil {
		return "", time.Time{}, err
	}

	u, err := s.users.GetByID(ctx, claims.UserID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return "", time.Time{}, ErrForbidden
		}
		return "", time.Time{}, err
	}
	if u.TokenVersion != claims.TokenVersion {
		return "", time.Time{}, ErrTokenRevoked
	}
	if !u.RefreshTokenHash.Valid || !s.hasher.VerifyToken(u.RefreshTokenHash.String, rawRefresh) {
		return "", time.Time{}, ErrTokenInvalid
	}

	roles, err := s.roles.RolesForUser(ctx, u.ID)
	if err != nil {
		return "", time.Time{}, err
	}
	return s.codec.SignAccess(u.ID, roles, u.TokenVersion)
}

// Revoke bumps the user's token version, invalidating every previously
// issued access and refresh token in one O(1) write.
func (s *Service) Revoke(ctx context.Context, userID uint64) error {
	return s.users.IncrementTokenVersion(ctx, userID)
}

// Register creates a pending account and assigns its initial role. The
// account cannot log in until an admin approves it.
func (s *Service) Register(ctx context.Context, p RegisterParams) (uint64, error) {
	roleID, err := s.roles.ResolveRoleID(ctx, strings.ToLower(strings.TrimSpace(p.Role)))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return 0, ErrUnknownRole
		}
		return 0, err
	}

	hash, err := s.hasher.HashPassword(p.Password)
	if err != nil {
		return 0, err
	}

	u := &model.User{
		FirstName:    strings.TrimSpace(p.FirstName),
		LastName:     strings.TrimSpace(p.LastName),
		Email:        strings.ToLower(strings.TrimSpace(p.Email)),
		PasswordHash: hash,
		Status:       model.StatusPending,
	}
	if p.AgencyID != 0 {
		u.AgencyID = sql.NullInt64{Int64: int64(p.AgencyID), Valid: true}
	}
	id, err := s.users.Create(ctx, u)
	if err != nil {
		return 0, err
	}
	if err := s.roles.AssignRole(ctx, id, roleID); err != nil {
		return 0, err
	}
	return id, nil
}

// RequestPasswordReset mints a reset token and hands it to the notifier when
// the email belongs to a known account. It returns nil for unknown emails so
// the handler's acknowledgment never reveals whether an account exists.
func (s *Service) RequestPasswordReset(ctx context.Context, email string) error {
	u, err := s.users.FindByEmail(ctx, strings.ToLower(strings.TrimSpace(email)))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil
		}
		return err
	}

	token, err := s.codec.SignReset(u.ID)
	if err != nil {
		return err
	}
	if err := s.notify.SendPasswordReset(ctx, u.Email, token); err != nil {
		// Delivery failure must not break the generic acknowledgment.
		log.Printf("auth: password reset delivery for user %d failed: %v", u.ID, err)
	}
	return nil
}

// CompletePasswordReset verifies a reset token, replaces the password and
// bumps the token version, forcing re-login everywhere. The reset token
// carries no version fence; its only replay bound is the short expiry.
func (s *Service) CompletePasswordReset(ctx context.Context, token, newPassword string) error {
	claims, err := s.codec.ParseReset(token)
	if err != nil {
		return err
	}

	u, err := s.users.GetByID(ctx, claims.UserID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return ErrTokenInvalid
		}
		return err
	}
	if !u.Status.CanLogin() {
		return &AccountNotActiveError{Status: u.Status}
	}

	hash, err := s.hasher.HashPassword(newPassword)
	if err != nil {
		return err
	}
	// UpdatePassword bumps token_version in the same statement.
	return s.users.UpdatePassword(ctx, u.ID, hash)
}

// View loads a fresh sanitized view of a user with store-resolved roles.
func (s *Service) View(ctx context.Context, userID uint64) (*UserView, error) {
	u, err := s.users.GetByID(ctx, userID)
	if err != nil {
		return nil, err
	}
	roles, err := s.roles.RolesForUser(ctx, u.ID)
	if err != nil {
		return nil, err
	}
	return viewOf(u, roles), nil
}

func viewOf(u *model.User, roles RoleSet) *UserView {
	return &UserView{
		ID:           u.ID,
		FirstName:    u.FirstName,
		LastName:     u.LastName,
		Email:        u.Email,
		Roles:        roles.Names(),
		AgencyName:   u.AgencyName.String,
		AgencyRegion: u.AgencyRegion.String,
	}
}
