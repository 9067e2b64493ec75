package repository

import (
	"context"
	"database/sql"
	"strings"

	"github.com/afec/formation-portal/internal/model"
)

// UserRepo wraps all queries against the users table. Every write that
// matters to the revocation fence (token_version bump, refresh hash slot,
// password change) is a single-row UPDATE, atomic at the storage layer.
type UserRepo struct{ DB *sql.DB }

func NewUserRepo(db *sql.DB) *UserRepo { return &UserRepo{DB: db} }

const userColumns = `u.id, u.first_name, u.last_name, u.email, u.password,
	u.status, u.token_version, u.refresh_token_hash, u.agency_id,
	a.name, a.region, u.created_at, u.last_login`

func scanUser(row *sql.Row) (*model.User, error) {
	var u model.User
	err := row.Scan(&u.ID, &u.FirstName, &u.LastName, &u.Email, &u.PasswordHash,
		&u.Status, &u.TokenVersion, &u.RefreshTokenHash, &u.AgencyID,
		&u.AgencyName, &u.AgencyRegion, &u.CreatedAt, &u.LastLogin)
	if err != nil {
		return nil, err
	}
	return &u, nil
}

// FindByEmail fetches a user by normalized email. Emails are stored
// lower-cased, so the comparison is effectively case-insensitive.
func (r *UserRepo) FindByEmail(ctx context.Context, email string) (*model.User, error) {
	email = strings.ToLower(strings.TrimSpace(email))
	return scanUser(r.DB.QueryRowContext(ctx,
		`SELECT `+userColumns+`
		 FROM users u LEFT JOIN agencies a ON u.agency_id = a.id
		 WHERE u.email = ? LIMIT 1`, email))
}

// GetByID fetches a user by id.
func (r *UserRepo) GetByID(ctx context.Context, id uint64) (*model.User, error) {
	return scanUser(r.DB.QueryRowContext(ctx,
		`SELECT `+userColumns+`
		 FROM users u LEFT JOIN agencies a ON u.agency_id = a.id
		 WHERE u.id = ? LIMIT 1`, id))
}

// Create inserts a user and returns its id. The status comes from the
// caller (registration always passes pending) and token_version starts at 0.
func (r *UserRepo) Create(ctx context.Context, u *model.User) (uint64, error) {
	res, err := r.DB.ExecContext(ctx,
		`INSERT INTO users (first_name, last_name, email, password, status, token_version, agency_id)
		 VALUES (?,?,?,?,?,0,?)`,
		u.FirstName, u.LastName, u.Email, u.PasswordHash, u.Status, u.AgencyID)
	if err != nil {
		// MySQL duplicate-key error on the unique email index.
		if strings.Contains(strings.ToLower(err.Error()), "1062") {
			return 0, ErrEmailExists
		}
		return 0, err
	}
	id, err := res.LastInsertId()
	if err != nil {
		return 0, err
	}
	return uint64(id), nil
}

// IncrementTokenVersion bumps the revocation fence for one user. A single
// compare-free atomic increment: every token signed with an older version
// becomes invalid the moment this commits.
func (r *UserRepo) IncrementTokenVersion(ctx context.Context, id uint64) error {
	return r.execOne(ctx,
		"UPDATE users SET token_version = token_version + 1 WHERE id = ?", id)
}

// StoreRefreshHash overwrites the single refresh-token slot for a user.
func (r *UserRepo) StoreRefreshHash(ctx context.Context, id uint64, hash string) error {
	return r.execOne(ctx,
		"UPDATE users SET refresh_token_hash = ? WHERE id = ?", hash, id)
}

// UpdatePassword replaces the password hash and bumps the token version in
// the same statement, so a reset revokes every open session atomically.
func (r *UserRepo) UpdatePassword(ctx context.Context, id uint64, passwordHash string) error {
	return r.execOne(ctx,
		"UPDATE users SET password = ?, token_version = token_version + 1 WHERE id = ?",
		passwordHash, id)
}

// UpdateStatus writes a new account status. Transition legality is checked
// by the caller against the model transition table.
func (r *UserRepo) UpdateStatus(ctx context.Context, id uint64, status model.UserStatus) error {
	return r.execOne(ctx,
		"UPDATE users SET status = ? WHERE id = ?", status, id)
}

// TouchLastLogin records a successful login.
func (r *UserRepo) TouchLastLogin(ctx context.Context, id uint64) error {
	return r.execOne(ctx,
		"UPDATE users SET last_login = NOW() WHERE id = ?", id)
}

// Delete removes a user and its role assignments. The join rows go first to
// keep referential integrity.
func (r *UserRepo) Delete(ctx context.Context, id uint64) error {
	tx, err := r.DB.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback() }()

	if _, err := tx.ExecContext(ctx, "DELETE FROM user_role WHERE user_id = ?", id); err != nil {
		return err
	}
	res, err := tx.ExecContext(ctx, "DELETE FROM users WHERE id = ?", id)
	if err != nil {
		return err
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return ErrNotFound
	}
	return tx.Commit()
}

// ListNonAdmin returns every user that holds no administrative role, with
// agency info and an aggregated role column, newest first. Used by the admin
// validation screen.
func (r *UserRepo) ListNonAdmin(ctx context.Context) ([]model.UserSummary, error) {
	rows, err := r.DB.QueryContext(ctx, `
		SELECT u.id, u.first_name, u.last_name, u.email, u.status, u.created_at, u.last_login,
		       COALESCE(a.name, ''), COALESCE(a.region, ''),
		       COALESCE(GROUP_CONCAT(DISTINCT r.name SEPARATOR ', '), '')
		FROM users u
		LEFT JOIN agencies a ON u.agency_id = a.id
		LEFT JOIN user_role ur ON ur.user_id = u.id
		LEFT JOIN role r ON ur.role_id = r.id
		WHERE u.id NOT IN (
			SELECT ur2.user_id FROM user_role ur2
			JOIN role r2 ON ur2.role_id = r2.id
			WHERE r2.name IN ('super_admin', 'coordinateur')
		)
		GROUP BY u.id, u.first_name, u.last_name, u.email, u.status, u.created_at,
		         u.last_login, a.name, a.region
		ORDER BY u.created_at DESC`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []model.UserSummary
	for rows.Next() {
		var s model.UserSummary
		if err := rows.Scan(&s.ID, &s.FirstName, &s.LastName, &s.Email, &s.Status,
			&s.CreatedAt, &s.LastLogin, &s.AgencyName, &s.AgencyRegion, &s.RoleNames); err != nil {
			return nil, err
		}
		out = append(out, s)
	}
	return out, rows.Err()
}

func (r *UserRepo) execOne(ctx context.Context, query string, args ...interface{}) error {
	_, err := r.DB.ExecContext(ctx, query, args...)
	return err
}
