package auth

import (
	"context"
	"database/sql"
	"errors"
	"sync"

	"github.com/afec/formation-portal/internal/model"
)

// In-memory stand-ins for the repository layer. They mirror the storage
// contract the service relies on: single-row updates, sql.ErrNoRows for
// missing rows, duplicate detection on email.

var errDuplicateEmail = errors.New("email already exists")

type fakeUserStore struct {
	mu     sync.Mutex
	nextID uint64
	users  map[uint64]*model.User
}

func newFakeUserStore() *fakeUserStore {
	return &fakeUserStore{users: map[uint64]*model.User{}}
}

func (f *fakeUserStore) FindByEmail(_ context.Context, email string) (*model.User, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, u := range f.users {
		if u.Email == email {
			cp := *u
			return &cp, nil
		}
	}
	return nil, sql.ErrNoRows
}

func (f *fakeUserStore) GetByID(_ context.Context, id uint64) (*model.User, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	u, ok := f.users[id]
	if !ok {
		return nil, sql.ErrNoRows
	}
	cp := *u
	return &cp, nil
}

func (f *fakeUserStore) Create(_ context.Context, u *model.User) (uint64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, existing := range f.users {
		if existing.Email == u.Email {
			return 0, errDuplicateEmail
		}
	}
	f.nextID++
	cp := *u
	cp.ID = f.nextID
	f.users[cp.ID] = &cp
	return cp.ID, nil
}

func (f *fakeUserStore) IncrementTokenVersion(_ context.Context, id uint64) error {
	return f.update(id, func(u *model.User) { u.TokenVersion++ })
}

func (f *fakeUserStore) StoreRefreshHash(_ context.Context, id uint64, hash string) error {
	return f.update(id, func(u *model.User) {
		u.RefreshTokenHash = sql.NullString{String: hash, Valid: true}
	})
}

func (f *fakeUserStore) UpdatePassword(_ context.Context, id uint64, passwordHash string) error {
	return f.update(id, func(u *model.User) {
		u.PasswordHash = passwordHash
		u.TokenVersion++
	})
}

func (f *fakeUserStore) TouchLastLogin(_ context.Context, id uint64) error {
	return f.update(id, func(u *model.User) {})
}

func (f *fakeUserStore) update(id uint64, fn func(*model.User)) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	u, ok := f.users[id]
	if !ok {
		return sql.ErrNoRows
	}
	fn(u)
	return nil
}

func (f *fakeUserStore) delete(id uint64) {
	f.mu.Lock()
	defer f.mu.Unlock()
	delete(f.users, id)
}

type fakeRoleStore struct {
	mu      sync.Mutex
	byUser  map[uint64][]string
	roleIDs map[string]uint8
}

func newFakeRoleStore() *fakeRoleStore {
	return &fakeRoleStore{
		byUser: map[uint64][]string{},
		roleIDs: map[string]uint8{
			"super_admin": 1, "coordinateur": 2, "user": 3, "stagiaire": 4,
		},
	}
}

func (f *fakeRoleStore) RolesForUser(_ context.Context, userID uint64) (RoleSet, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return NewRoleSet(f.byUser[userID]...), nil
}

func (f *fakeRoleStore) ResolveRoleID(_ context.Context, name string) (uint8, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	id, ok := f.roleIDs[name]
	if !ok {
		return 0, sql.ErrNoRows
	}
	return id, nil
}

func (f *fakeRoleStore) AssignRole(_ context.Context, userID uint64, roleID uint8) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	for name, id := range f.roleIDs {
		if id == roleID {
			f.byUser[userID] = append(f.byUser[userID], name)
			return nil
		}
	}
	return sql.ErrNoRows
}

func (f *fakeRoleStore) set(userID uint64, names ...string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.byUser[userID] = names
}

type fakeNotifier struct {
	mu    sync.Mutex
	calls []struct{ Email, Token string }
	err   error
}

func (f *fakeNotifier) SendPasswordReset(_ context.Context, email, token string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, struct{ Email, Token string }{email, token})
	return f.err
}

func (f *fakeNotifier) count() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.calls)
}
