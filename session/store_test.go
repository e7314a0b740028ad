package session_test

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/rbacadmin/rbac-console/credentials"
	"github.com/rbacadmin/rbac-console/credentials/storagefake"
	"github.com/rbacadmin/rbac-console/identitycache/cachefake"
	"github.com/rbacadmin/rbac-console/notify/notifyfake"
	"github.com/rbacadmin/rbac-console/rbac"
	"github.com/rbacadmin/rbac-console/session"
	"github.com/stretchr/testify/require"
)

const (
	testUserID    = "1"
	testUserEmail = "test@example.com"
	testPassword  = "x"
	accessTokenA  = "A"
	refreshTokenB = "B"
)

// fakeAuthAPI is a scriptable session.AuthAPI.
type fakeAuthAPI struct {
	lock sync.Mutex

	loginUser *rbac.User
	loginPair *credentials.Pair
	loginErr  error

	logoutErr       error
	logoutCalls     int
	lastLogoutToken string

	refreshedToken string
	refreshErr     error
	refreshCalls   int

	meUser *rbac.User
	meErr  error
}

var _ session.AuthAPI = (*fakeAuthAPI)(nil)

func (f *fakeAuthAPI) Login(_ context.Context, email, password string) (*rbac.User, *credentials.Pair, error) {
	f.lock.Lock()
	defer f.lock.Unlock()
	if f.loginErr != nil {
		return nil, nil, f.loginErr
	}
	return f.loginUser, f.loginPair, nil
}

func (f *fakeAuthAPI) Logout(_ context.Context, refreshToken string) error {
	f.lock.Lock()
	defer f.lock.Unlock()
	f.logoutCalls++
	f.lastLogoutToken = refreshToken
	return f.logoutErr
}

func (f *fakeAuthAPI) Refresh(_ context.Context, refreshToken string) (string, error) {
	f.lock.Lock()
	defer f.lock.Unlock()
	f.refreshCalls++
	if f.refreshErr != nil {
		return "", f.refreshErr
	}
	return f.refreshedToken, nil
}

func (f *fakeAuthAPI) Me(_ context.Context, accessToken string) (*rbac.User, error) {
	f.lock.Lock()
	defer f.lock.Unlock()
	if f.meErr != nil {
		return nil, f.meErr
	}
	return f.meUser, nil
}

// testFixture holds all test dependencies.
type testFixture struct {
	auth     *fakeAuthAPI
	tokens   *storagefake.FakeStorage
	identity *cachefake.FakeStore
	notifier *notifyfake.FakeNotifier
	store    *session.Store
}

func setupTestFixture(t *testing.T) *testFixture {
	t.Helper()

	f := &testFixture{
		auth:     &fakeAuthAPI{},
		tokens:   storagefake.NewFakeStorage(),
		identity: cachefake.NewFakeStore(),
		notifier: notifyfake.NewFakeNotifier(),
	}

	store, err := session.NewStore(session.Deps{
		Auth:     f.auth,
		Tokens:   f.tokens,
		Identity: f.identity,
		Notifier: f.notifier,
	})
	require.NoError(t, err)

	f.store = store
	return f
}

func (f *testFixture) scriptLogin() {
	f.auth.loginUser = &rbac.User{
		ID:       testUserID,
		Email:    testUserEmail,
		IsActive: true,
		Roles:    []rbac.Role{},
	}
	f.auth.loginPair = &credentials.Pair{AccessToken: accessTokenA, RefreshToken: refreshTokenB}
}

func TestLoginStoresIdentityAndTokens(t *testing.T) {
	f := setupTestFixture(t)
	f.scriptLogin()

	require.NoError(t, f.store.Login(context.Background(), testUserEmail, testPassword))

	require.True(t, f.store.IsAuthenticated())
	require.Equal(t, testUserID, f.store.User().ID)

	pair, err := f.tokens.Get()
	require.NoError(t, err)
	require.Equal(t, &credentials.Pair{AccessToken: accessTokenA, RefreshToken: refreshTokenB}, pair)

	cached, err := f.identity.Get()
	require.NoError(t, err)
	require.Equal(t, testUserID, cached.ID)

	require.NotEmpty(t, f.notifier.Successes())
}

func TestLoginFailureLeavesStateUntouched(t *testing.T) {
	f := setupTestFixture(t)
	f.auth.loginErr = session.AuthenticationErr

	err := f.store.Login(context.Background(), testUserEmail, "wrong")
	require.Error(t, err)
	require.ErrorIs(t, err, session.AuthenticationErr)

	require.False(t, f.store.IsAuthenticated())
	require.Nil(t, f.store.User())

	pair, err := f.tokens.Get()
	require.NoError(t, err)
	require.Nil(t, pair)

	require.NotEmpty(t, f.notifier.Errors())
}

func TestLoginLogoutSymmetry(t *testing.T) {
	f := setupTestFixture(t)
	f.scriptLogin()

	require.NoError(t, f.store.Login(context.Background(), testUserEmail, testPassword))
	require.NoError(t, f.store.Logout(context.Background()))

	require.False(t, f.store.IsAuthenticated())
	require.Nil(t, f.store.User())

	pair, err := f.tokens.Get()
	require.NoError(t, err)
	require.Nil(t, pair)

	cached, err := f.identity.Get()
	require.NoError(t, err)
	require.Nil(t, cached)

	require.Equal(t, refreshTokenB, f.auth.lastLogoutToken)
}

func TestLogoutClearsStateEvenWhenServerCallFails(t *testing.T) {
	f := setupTestFixture(t)
	f.scriptLogin()
	require.NoError(t, f.store.Login(context.Background(), testUserEmail, testPassword))

	f.auth.logoutErr = errors.New("server unreachable")
	require.NoError(t, f.store.Logout(context.Background()))

	require.False(t, f.store.IsAuthenticated())
	pair, err := f.tokens.Get()
	require.NoError(t, err)
	require.Nil(t, pair)
}

func TestRefreshReplacesOnlyAccessToken(t *testing.T) {
	f := setupTestFixture(t)
	f.scriptLogin()
	require.NoError(t, f.store.Login(context.Background(), testUserEmail, testPassword))

	f.auth.refreshedToken = "A2"
	require.NoError(t, f.store.RefreshAccessToken(context.Background()))

	require.True(t, f.store.IsAuthenticated())
	pair, err := f.tokens.Get()
	require.NoError(t, err)
	require.Equal(t, &credentials.Pair{AccessToken: "A2", RefreshToken: refreshTokenB}, pair)
}

func TestRefreshWithoutTokenFails(t *testing.T) {
	f := setupTestFixture(t)

	err := f.store.RefreshAccessToken(context.Background())
	require.ErrorIs(t, err, session.NoRefreshTokenErr)
	require.Zero(t, f.auth.refreshCalls)
}

func TestRefreshFailureTearsDownSession(t *testing.T) {
	f := setupTestFixture(t)
	f.scriptLogin()
	require.NoError(t, f.store.Login(context.Background(), testUserEmail, testPassword))

	f.auth.refreshErr = errors.New("refresh token revoked")
	err := f.store.RefreshAccessToken(context.Background())
	require.Error(t, err)

	require.False(t, f.store.IsAuthenticated())
	pair, err := f.tokens.Get()
	require.NoError(t, err)
	require.Nil(t, pair)

	cached, err := f.identity.Get()
	require.NoError(t, err)
	require.Nil(t, cached)
}

func TestCheckAuthRestoresSession(t *testing.T) {
	f := setupTestFixture(t)
	require.NoError(t, f.tokens.Set(&credentials.Pair{AccessToken: accessTokenA, RefreshToken: refreshTokenB}))
	require.NoError(t, f.identity.Set(&rbac.User{ID: testUserID, Email: testUserEmail}))

	require.NoError(t, f.store.CheckAuth())

	require.True(t, f.store.IsAuthenticated())
	require.Equal(t, testUserID, f.store.User().ID)
}

func TestCheckAuthWithoutTokensForcesLoggedOut(t *testing.T) {
	f := setupTestFixture(t)
	require.NoError(t, f.identity.Set(&rbac.User{ID: testUserID}))

	require.NoError(t, f.store.CheckAuth())

	require.False(t, f.store.IsAuthenticated())
	require.Nil(t, f.store.User())
}

func TestCheckAuthIsIdempotent(t *testing.T) {
	f := setupTestFixture(t)
	require.NoError(t, f.tokens.Set(&credentials.Pair{AccessToken: accessTokenA, RefreshToken: refreshTokenB}))
	require.NoError(t, f.identity.Set(&rbac.User{ID: testUserID, Email: testUserEmail}))

	require.NoError(t, f.store.CheckAuth())
	firstAuth := f.store.IsAuthenticated()
	firstUser := f.store.User()

	require.NoError(t, f.store.CheckAuth())
	require.Equal(t, firstAuth, f.store.IsAuthenticated())
	require.Equal(t, firstUser, f.store.User())
}

func TestCheckAuthSurvivesMissingIdentity(t *testing.T) {
	f := setupTestFixture(t)
	require.NoError(t, f.tokens.Set(&credentials.Pair{AccessToken: accessTokenA, RefreshToken: refreshTokenB}))

	require.NoError(t, f.store.CheckAuth())

	// Authenticated but degraded: no identity until the next profile fetch.
	require.True(t, f.store.IsAuthenticated())
	require.Nil(t, f.store.User())
	require.False(t, f.store.HasPermission("user", "read"))
}

func TestRefreshProfileResolvesDegradedState(t *testing.T) {
	f := setupTestFixture(t)
	require.NoError(t, f.tokens.Set(&credentials.Pair{AccessToken: accessTokenA, RefreshToken: refreshTokenB}))
	require.NoError(t, f.store.CheckAuth())
	require.Nil(t, f.store.User())

	f.auth.meUser = &rbac.User{ID: testUserID, Email: testUserEmail}
	user, err := f.store.RefreshProfile(context.Background())
	require.NoError(t, err)
	require.Equal(t, testUserID, user.ID)
	require.Equal(t, testUserID, f.store.User().ID)
}

func TestHasPermissionThroughStore(t *testing.T) {
	f := setupTestFixture(t)
	f.scriptLogin()
	f.auth.loginUser.Roles = []rbac.Role{
		{Name: "editor", Permissions: []rbac.Permission{{Resource: "user", Action: "create"}}},
	}
	require.NoError(t, f.store.Login(context.Background(), testUserEmail, testPassword))

	require.True(t, f.store.HasPermission("user", "create"))
	require.False(t, f.store.HasPermission("user", "delete"))
}

func TestUpdateUserShallowMerge(t *testing.T) {
	f := setupTestFixture(t)
	f.scriptLogin()
	f.auth.loginUser.FirstName = "Test"
	f.auth.loginUser.LastName = "User"
	require.NoError(t, f.store.Login(context.Background(), testUserEmail, testPassword))

	newName := "Renamed"
	f.store.UpdateUser(rbac.UserUpdate{FirstName: &newName})

	require.Equal(t, "Renamed", f.store.User().FirstName)
	require.Equal(t, "User", f.store.User().LastName)

	cached, err := f.identity.Get()
	require.NoError(t, err)
	require.Equal(t, "Renamed", cached.FirstName)
}
