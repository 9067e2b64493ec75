package model

import (
	"database/sql"
	"time"
)

// User represents a row of the `users` table. PasswordHash and
// RefreshTokenHash never leave the repository/service layers; handlers build
// their own sanitized response types.
//
// TokenVersion is the per-user revocation fence: every issued token embeds
// the version current at signing time, and a bump of this column invalidates
// all of them at once. RefreshTokenHash holds the bcrypt digest of the most
// recently issued refresh token, so at most one refresh token per user can
// ever be exchanged.
type User struct {
	ID               uint64         // users.id
	FirstName        string         // users.first_name
	LastName         string         // users.last_name
	Email            string         // users.email (stored lower-cased, unique)
	PasswordHash     string         // users.password
	Status           UserStatus     // users.status
	TokenVersion     int64          // users.token_version
	RefreshTokenHash sql.NullString // users.refresh_token_hash (null until first login)
	AgencyID         sql.NullInt64  // users.agency_id (references agencies.id)
	AgencyName       sql.NullString // agencies.name (joined, read-only)
	AgencyRegion     sql.NullString // agencies.region (joined, read-only)
	CreatedAt        time.Time      // users.created_at
	LastLogin        sql.NullTime   // users.last_login
}

// Role is a row of the `role` reference table. Users hold zero or more roles
// through the user_role join table.
type Role struct {
	ID   uint8  // role.id
	Name string // role.name (unique, e.g. super_admin, coordinateur, user, stagiaire)
}

// Agency is a row of the `agencies` table.
type Agency struct {
	ID     uint64 // agencies.id
	Name   string // agencies.name
	Region string // agencies.region
}

// UserSummary is the flattened row returned by the admin user listing. Roles
// are aggregated into a comma-separated string by the query itself.
type UserSummary struct {
	ID           uint64       `json:"id"`
	FirstName    string       `json:"first_name"`
	LastName     string       `json:"last_name"`
	Email        string       `json:"email"`
	Status       UserStatus   `json:"status"`
	RoleNames    string       `json:"role_name"`
	AgencyName   string       `json:"agency_name,omitempty"`
	AgencyRegion string       `json:"agency_region,omitempty"`
	CreatedAt    time.Time    `json:"created_at"`
	LastLogin    sql.NullTime `json:"last_login"`
}
