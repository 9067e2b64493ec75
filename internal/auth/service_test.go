package auth

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"github.com/afec/formation-portal/internal/model"
)

func newTestService(t *testing.T) (*Service, *fakeUserStore, *fakeRoleStore, *fakeNotifier) {
	t.Helper()
	users := newFakeUserStore()
	roles := newFakeRoleStore()
	notify := &fakeNotifier{}
	codec := NewTokenCodec("access-secret", "refresh-secret", "reset-secret",
		15*time.Minute, 7*24*time.Hour, time.Hour)
	svc := NewService(users, roles, codec, NewHasher(bcrypt.MinCost), notify)
	return svc, users, roles, notify
}

func seedUser(t *testing.T, svc *Service, users *fakeUserStore, roles *fakeRoleStore,
	email, password string, status model.UserStatus, roleNames ...string) uint64 {
	t.Helper()
	hash, err := svc.hasher.HashPassword(password)
	require.NoError(t, err)
	id, err := users.Create(context.Background(), &model.User{
		FirstName:    "Jean",
		LastName:     "Martin",
		Email:        email,
		PasswordHash: hash,
		Status:       status,
	})
	require.NoError(t, err)
	roles.set(id, roleNames...)
	return id
}

func TestLoginIssuesVerifiableAccessToken(t *testing.T) {
	svc, users, roles, _ := newTestService(t)
	id := seedUser(t, svc, users, roles, "jean@example.com", "motdepasse123", model.StatusActive, "user", "stagiaire")

	pair, view, err := svc.Login(context.Background(), "Jean@Example.COM", "motdepasse123")
	require.NoError(t, err)
	require.NotNil(t, pair)

	claims, err := svc.Codec().ParseAccess(pair.Access)
	require.NoError(t, err)
	assert.Equal(t, id, claims.UserID)
	assert.ElementsMatch(t, []string{"stagiaire", "user"}, claims.Roles)

	assert.Equal(t, id, view.ID)
	assert.Equal(t, "jean@example.com", view.Email)
	assert.Equal(t, []string{"stagiaire", "user"}, view.Roles)
}

func TestLoginUnknownEmailAndWrongPasswordAreIdentical(t *testing.T) {
	svc, users, roles, _ := newTestService(t)
	seedUser(t, svc, users, roles, "jean@example.com", "motdepasse123", model.StatusActive, "user")

	_, _, errUnknown := svc.Login(context.Background(), "nobody@example.com", "motdepasse123")
	_, _, errWrongPass := svc.Login(context.Background(), "jean@example.com", "wrong-password")

	assert.ErrorIs(t, errUnknown, ErrInvalidCredentials)
	assert.ErrorIs(t, errWrongPass, ErrInvalidCredentials)
	assert.Equal(t, errUnknown.Error(), errWrongPass.Error())
}

func TestLoginRejectsInactiveAccounts(t *testing.T) {
	cases := []model.UserStatus{model.StatusPending, model.StatusRejected, model.StatusSuspended}
	for _, status := range cases {
		t.Run(string(status), func(t *testing.T) {
			svc, users, roles, _ := newTestService(t)
			seedUser(t, svc, users, roles, "jean@example.com", "motdepasse123", status, "user")

			_, _, err := svc.Login(context.Background(), "jean@example.com", "motdepasse123")
			var notActive *AccountNotActiveError
			require.ErrorAs(t, err, &notActive)
			assert.Equal(t, status, notActive.Status)
		})
	}
}

func TestLoginStatusCheckDoesNotLeakPasswordValidity(t *testing.T) {
	svc, users, roles, _ := newTestService(t)
	seedUser(t, svc, users, roles, "jean@example.com", "motdepasse123", model.StatusPending, "user")

	// The status message comes back whether or not the password is right.
	_, _, errGoodPass := svc.Login(context.Background(), "jean@example.com", "motdepasse123")
	_, _, errBadPass := svc.Login(context.Background(), "jean@example.com", "wrong-password")
	assert.Equal(t, errGoodPass.Error(), errBadPass.Error())
}

func TestLoginRevokesEarlierSessions(t *testing.T) {
	svc, users, roles, _ := newTestService(t)
	seedUser(t, svc, users, roles, "jean@example.com", "motdepasse123", model.StatusActive, "user")

	first, _, err := svc.Login(context.Background(), "jean@example.com", "motdepasse123")
	require.NoError(t, err)
	_, _, err = svc.Login(context.Background(), "jean@example.com", "motdepasse123")
	require.NoError(t, err)

	_, _, err = svc.Refresh(context.Background(), first.Refresh)
	assert.ErrorIs(t, err, ErrTokenRevoked)
}

func TestRefreshMintsFreshAccessToken(t *testing.T) {
	svc, users, roles, _ := newTestService(t)
	id := seedUser(t, svc, users, roles, "jean@example.com", "motdepasse123", model.StatusActive, "user")

	pair, _, err := svc.Login(context.Background(), "jean@example.com", "motdepasse123")
	require.NoError(t, err)

	access, exp, err := svc.Refresh(context.Background(), pair.Refresh)
	require.NoError(t, err)
	assert.True(t, exp.After(time.Now()))

	claims, err := svc.Codec().ParseAccess(access)
	require.NoError(t, err)
	assert.Equal(t, id, claims.UserID)
}

func TestRefreshReResolvesRoles(t *testing.T) {
	svc, users, roles, _ := newTestService(t)
	id := seedUser(t, svc, users, roles, "jean@example.com", "motdepasse123", model.StatusActive, "user")

	pair, _, err := svc.Login(context.Background(), "jean@example.com", "motdepasse123")
	require.NoError(t, err)

	// Role grants after login must show up in refreshed access tokens.
	roles.set(id, "user", "coordinateur")

	access, _, err := svc.Refresh(context.Background(), pair.Refresh)
	require.NoError(t, err)
	claims, err := svc.Codec().ParseAccess(access)
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{"coordinateur", "user"}, claims.Roles)
}

func TestRefreshRejectsMismatchedHashSlot(t *testing.T) {
	svc, users, roles, _ := newTestService(t)
	id := seedUser(t, svc, users, roles, "jean@example.com", "motdepasse123", model.StatusActive, "user")

	pair, _, err := svc.Login(context.Background(), "jean@example.com", "motdepasse123")
	require.NoError(t, err)

	// Signature and version are still valid, but the stored slot no longer
	// matches this token.
	other, err := svc.hasher.HashToken("some-other-token")
	require.NoError(t, err)
	require.NoError(t, users.StoreRefreshHash(context.Background(), id, other))

	_, _, err = svc.Refresh(context.Background(), pair.Refresh)
	assert.ErrorIs(t, err, ErrTokenInvalid)
}

func TestRefreshUnknownUser(t *testing.T) {
	svc, users, roles, _ := newTestService(t)
	id := seedUser(t, svc, users, roles, "jean@example.com", "motdepasse123", model.StatusActive, "user")

	pair, _, err := svc.Login(context.Background(), "jean@example.com", "motdepasse123")
	require.NoError(t, err)

	users.delete(id)
	_, _, err = svc.Refresh(context.Background(), pair.Refresh)
	assert.ErrorIs(t, err, ErrForbidden)
}

func TestRevokeInvalidatesRefreshToken(t *testing.T) {
	svc, users, roles, _ := newTestService(t)
	id := seedUser(t, svc, users, roles, "jean@example.com", "motdepasse123", model.StatusActive, "user")

	pair, _, err := svc.Login(context.Background(), "jean@example.com", "motdepasse123")
	require.NoError(t, err)

	require.NoError(t, svc.Revoke(context.Background(), id))
	_, _, err = svc.Refresh(context.Background(), pair.Refresh)
	assert.ErrorIs(t, err, ErrTokenRevoked)
}

func TestRequestPasswordReset(t *testing.T) {
	svc, users, roles, notify := newTestService(t)
	id := seedUser(t, svc, users, roles, "jean@example.com", "motdepasse123", model.StatusActive, "user")

	// Unknown email: success, no mail.
	require.NoError(t, svc.RequestPasswordReset(context.Background(), "nobody@example.com"))
	assert.Equal(t, 0, notify.count())

	// Known email: one mail carrying a parseable reset token.
	require.NoError(t, svc.RequestPasswordReset(context.Background(), "jean@example.com"))
	require.Equal(t, 1, notify.count())

	claims, err := svc.Codec().ParseReset(notify.calls[0].Token)
	require.NoError(t, err)
	assert.Equal(t, id, claims.UserID)
}

func TestRequestPasswordResetSurvivesDeliveryFailure(t *testing.T) {
	svc, users, roles, notify := newTestService(t)
	seedUser(t, svc, users, roles, "jean@example.com", "motdepasse123", model.StatusActive, "user")
	notify.err = assert.AnError

	assert.NoError(t, svc.RequestPasswordReset(context.Background(), "jean@example.com"))
}

func TestCompletePasswordReset(t *testing.T) {
	svc, users, roles, _ := newTestService(t)
	id := seedUser(t, svc, users, roles, "jean@example.com", "motdepasse123", model.StatusActive, "user")

	pair, _, err := svc.Login(context.Background(), "jean@example.com", "motdepasse123")
	require.NoError(t, err)

	token, err := svc.Codec().SignReset(id)
	require.NoError(t, err)
	require.NoError(t, svc.CompletePasswordReset(context.Background(), token, "nouveaumotdepasse"))

	// Old password is gone, new one works.
	_, _, err = svc.Login(context.Background(), "jean@example.com", "motdepasse123")
	assert.ErrorIs(t, err, ErrInvalidCredentials)
	_, _, err = svc.Login(context.Background(), "jean@example.com", "nouveaumotdepasse")
	assert.NoError(t, err)

	// The version bump revoked the pre-reset session.
	_, _, err = svc.Refresh(context.Background(), pair.Refresh)
	assert.ErrorIs(t, err, ErrTokenRevoked)
}

func TestCompletePasswordResetRejectsPendingAccount(t *testing.T) {
	svc, users, roles, _ := newTestService(t)
	id := seedUser(t, svc, users, roles, "jean@example.com", "motdepasse123", model.StatusPending, "user")

	token, err := svc.Codec().SignReset(id)
	require.NoError(t, err)

	err = svc.CompletePasswordReset(context.Background(), token, "nouveaumotdepasse")
	var notActive *AccountNotActiveError
	require.ErrorAs(t, err, &notActive)
	assert.Equal(t, model.StatusPending, notActive.Status)
}

func TestCompletePasswordResetRejectsForeignTokens(t *testing.T) {
	svc, users, roles, _ := newTestService(t)
	id := seedUser(t, svc, users, roles, "jean@example.com", "motdepasse123", model.StatusActive, "user")

	// An access token is never a reset token, even for the right user.
	access, _, err := svc.Codec().SignAccess(id, NewRoleSet("user"), 0)
	require.NoError(t, err)
	err = svc.CompletePasswordReset(context.Background(), access, "nouveaumotdepasse")
	assert.ErrorIs(t, err, ErrTokenMalformed)
}

func TestRegisterCreatesPendingAccount(t *testing.T) {
	svc, users, roles, _ := newTestService(t)

	id, err := svc.Register(context.Background(), RegisterParams{
		FirstName: "Claire",
		LastName:  "Dupont",
		Email:     "Claire@Example.com",
		Password:  "motdepasse123",
		AgencyID:  3,
		Role:      "stagiaire",
	})
	require.NoError(t, err)

	u, err := users.GetByID(context.Background(), id)
	require.NoError(t, err)
	assert.Equal(t, model.StatusPending, u.Status)
	assert.Equal(t, "claire@example.com", u.Email)
	assert.Equal(t, int64(0), u.TokenVersion)

	set, err := roles.RolesForUser(context.Background(), id)
	require.NoError(t, err)
	assert.True(t, set.Has("stagiaire"))

	// Pending accounts cannot log in yet.
	_, _, err = svc.Login(context.Background(), "claire@example.com", "motdepasse123")
	var notActive *AccountNotActiveError
	assert.ErrorAs(t, err, &notActive)
}

func TestRegisterUnknownRole(t *testing.T) {
	svc, _, _, _ := newTestService(t)

	_, err := svc.Register(context.Background(), RegisterParams{
		FirstName: "Claire", LastName: "Dupont", Email: "claire@example.com",
		Password: "motdepasse123", AgencyID: 3, Role: "pirate",
	})
	assert.ErrorIs(t, err, ErrUnknownRole)
}

func TestRegisterDuplicateEmail(t *testing.T) {
	svc, users, roles, _ := newTestService(t)
	seedUser(t, svc, users, roles, "claire@example.com", "motdepasse123", model.StatusActive, "user")

	_, err := svc.Register(context.Background(), RegisterParams{
		FirstName: "Claire", LastName: "Dupont", Email: "claire@example.com",
		Password: "motdepasse123", AgencyID: 3, Role: "user",
	})
	assert.ErrorIs(t, err, errDuplicateEmail)
}
