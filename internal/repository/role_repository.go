package repository

import (
	"context"
	"database/sql"

	"github.com/afec/formation-portal/internal/auth"
)

// RoleRepo resolves role assignments through the role / user_role tables.
type RoleRepo struct{ DB *sql.DB }

func NewRoleRepo(db *sql.DB) *RoleRepo { return &RoleRepo{DB: db} }

// RolesForUser returns the user's current role set. An empty set is not an
// error; authorization decides what to do with it.
func (r *RoleRepo) RolesForUser(ctx context.Context, userID uint64) (auth.RoleSet, error) {
	rows, err := r.DB.QueryContext(ctx, `
		SELECT r.name
		FROM user_role ur
		JOIN role r ON ur.role_id = r.id
		WHERE ur.user_id = ?`, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var names []string
	for rows.Next() {
		var n string
		if err := rows.Scan(&n); err != nil {
			return nil, err
		}
		names = append(names, n)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return auth.NewRoleSet(names...), nil
}

// ResolveRoleID maps a role name to its id. Unknown names surface as
// sql.ErrNoRows.
func (r *RoleRepo) ResolveRoleID(ctx context.Context, name string) (uint8, error) {
	var id uint8
	err := r.DB.QueryRowContext(ctx,
		"SELECT id FROM role WHERE name = ? LIMIT 1", name).Scan(&id)
	return id, err
}

// AssignRole links a user to a role.
func (r *RoleRepo) AssignRole(ctx context.Context, userID uint64, roleID uint8) error {
	_, err := r.DB.ExecContext(ctx,
		"INSERT INTO user_role (user_id, role_id) VALUES (?,?)", userID, roleID)
	return err
}
