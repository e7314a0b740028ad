// Package session owns the authenticated identity and the credential pair.
// One Store exists per process; it is constructed explicitly and handed to
// the request gateway and to whatever front end drives it, rather than
// living as package-level state.
package session

import (
	"context"
	"fmt"
	"sync"

	"github.com/pkg/errors"
	"github.com/rbacadmin/rbac-console/apimodel"
	"github.com/rbacadmin/rbac-console/credentials"
	"github.com/rbacadmin/rbac-console/identitycache"
	"github.com/rbacadmin/rbac-console/notify"
	"github.com/rbacadmin/rbac-console/rbac"
	"github.com/rs/zerolog"
)

// AuthAPI is the slice of the remote API the store needs. The real
// implementation lives in the api package and deliberately sits outside the
// gateway's retry chain so a refresh cannot recurse into another refresh.
type AuthAPI interface {
	Login(ctx context.Context, email, password string) (*rbac.User, *credentials.Pair, error)
	Logout(ctx context.Context, refreshToken string) error
	Refresh(ctx context.Context, refreshToken string) (string, error)
	Me(ctx context.Context, accessToken string) (*rbac.User, error)
}

// Deps holds the store's collaborators.
type Deps struct {
	Auth     AuthAPI
	Tokens   credentials.Storage
	Identity identitycache.Store
	Notifier notify.Notifier
}

// Store is the session state machine. All state transitions happen under the
// lock; the persisted credential pair is the source of truth shared with the
// gateway, the in-memory copy exists for the invariant checks below.
//
// Invariant: IsAuthenticated() is true iff both tokens are present. The
// identity may lag behind (nil right after a cold-start hydration) until the
// next profile fetch.
type Store struct {
	deps   Deps
	logger zerolog.Logger

	lock            sync.RWMutex
	user            *rbac.User
	pair            *credentials.Pair
	isAuthenticated bool
	isLoading       bool
}

// StoreOption modifies a Store.
type StoreOption func(*Store)

// WithLogger sets the store's logger.
func WithLogger(logger zerolog.Logger) StoreOption {
	return func(s *Store) {
		s.logger = logger
	}
}

// NewStore initializes a Store with required dependencies.
func NewStore(deps Deps, options ...StoreOption) (*Store, error) {
	if deps.Auth == nil {
		return nil, errors.New("[NewStore] Auth API is required")
	}
	if deps.Tokens == nil {
		return nil, errors.New("[NewStore] token storage is required")
	}
	if deps.Identity == nil {
		return nil, errors.New("[NewStore] identity cache is required")
	}
	if deps.Notifier == nil {
		deps.Notifier = notify.Nop{}
	}

	s := &Store{
		deps:   deps,
		logger: zerolog.Nop(),
	}
	for _, opt := range options {
		opt(s)
	}
	return s, nil
}

// Login authenticates against the remote API and, on success, stores the
// identity and credential pair in memory and in persistent storage. On
// failure the session state is left untouched and the returned error matches
// AuthenticationErr.
func (s *Store) Login(ctx context.Context, email, password string) error {
	s.setLoading(true)
	defer s.setLoading(false)

	user, pair, err := s.deps.Auth.Login(ctx, email, password)
	if err != nil {
		s.deps.Notifier.Error(fmt.Sprintf("Login failed: %v", errors.Cause(err)))
		return errors.Wrap(err, "[Store.Login]")
	}

	if err := s.deps.Tokens.Set(pair); err != nil {
		return errors.Wrap(err, "[Store.Login] persist tokens")
	}
	if err := s.deps.Identity.Set(user); err != nil {
		// Identity mirroring is best-effort; the session is still valid.
		s.logger.Warn().Err(err).Msg("failed to cache identity")
	}

	s.lock.Lock()
	s.user = user
	s.pair = pair
	s.isAuthenticated = true
	s.lock.Unlock()

	s.deps.Notifier.Success(fmt.Sprintf("Logged in as %s", user.Email))
	return nil
}

// Logout notifies the server that the refresh token should be invalidated
// and clears all local session state. The server call is best-effort: its
// failure is logged and never blocks the local cleanup, which runs on every
// exit path.
func (s *Store) Logout(ctx context.Context) (returnErr error) {
	defer func() {
		if err := s.clearLocalState(); err != nil {
			returnErr = err
		}
	}()

	refreshToken := s.currentRefreshToken()
	if refreshToken == "" {
		return nil
	}
	if err := s.deps.Auth.Logout(ctx, refreshToken); err != nil {
		s.logger.Warn().Err(err).Msg("server-side logout failed, clearing local session anyway")
	}
	return nil
}

// RefreshAccessToken exchanges the stored refresh token for a new access
// token, replacing only the access half of the pair. Any failure past the
// missing-token check tears the whole session down: a failed refresh never
// leaves a half-authenticated state behind.
func (s *Store) RefreshAccessToken(ctx context.Context) error {
	pair, err := s.deps.Tokens.Get()
	if err != nil {
		return errors.Wrap(err, "[Store.RefreshAccessToken] read tokens")
	}
	if pair == nil || pair.RefreshToken == "" {
		return errors.WithMessage(apimodel.NoRefreshTokenErr, "[Store.RefreshAccessToken]")
	}

	accessToken, err := s.deps.Auth.Refresh(ctx, pair.RefreshToken)
	if err != nil {
		s.logger.Info().Err(err).Msg("token refresh failed, logging out")
		if logoutErr := s.Logout(ctx); logoutErr != nil {
			s.logger.Warn().Err(logoutErr).Msg("cleanup after failed refresh")
		}
		return errors.Wrap(err, "[Store.RefreshAccessToken]")
	}

	updated := &credentials.Pair{AccessToken: accessToken, RefreshToken: pair.RefreshToken}
	if err := s.deps.Tokens.Set(updated); err != nil {
		return errors.Wrap(err, "[Store.RefreshAccessToken] persist tokens")
	}

	s.lock.Lock()
	s.pair = updated
	s.isAuthenticated = true
	s.lock.Unlock()
	return nil
}

// CheckAuth hydrates session state from persistent storage. Called once at
// process start; calling it again with unchanged storage yields the same
// state. Tokens come from the credential storage, the identity from its own
// cache when available.
func (s *Store) CheckAuth() error {
	s.setLoading(true)
	defer s.setLoading(false)

	pair, err := s.deps.Tokens.Get()
	if err != nil {
		return errors.Wrap(err, "[Store.CheckAuth] read tokens")
	}

	if pair == nil || pair.AccessToken == "" || pair.RefreshToken == "" {
		s.lock.Lock()
		s.user = nil
		s.pair = nil
		s.isAuthenticated = false
		s.lock.Unlock()
		return nil
	}

	user, err := s.deps.Identity.Get()
	if err != nil {
		s.logger.Debug().Err(err).Msg("identity cache unreadable, continuing without profile")
		user = nil
	}

	s.lock.Lock()
	s.user = user
	s.pair = pair
	s.isAuthenticated = true
	s.lock.Unlock()
	return nil
}

// RefreshProfile refetches the authenticated user's profile, resolving the
// degraded tokens-but-no-identity state left by a cold-start CheckAuth.
func (s *Store) RefreshProfile(ctx context.Context) (*rbac.User, error) {
	pair, err := s.deps.Tokens.Get()
	if err != nil {
		return nil, errors.Wrap(err, "[Store.RefreshProfile] read tokens")
	}
	if pair == nil || pair.AccessToken == "" {
		return nil, errors.WithMessage(apimodel.AuthorizationErr, "[Store.RefreshProfile] not logged in")
	}

	user, err := s.deps.Auth.Me(ctx, pair.AccessToken)
	if err != nil {
		return nil, errors.Wrap(err, "[Store.RefreshProfile]")
	}
	s.SetUser(user)
	return user, nil
}

// HasPermission reports whether the current identity holds the permission.
// A store without an identity always answers false. Pure in-memory check.
func (s *Store) HasPermission(resource, action string) bool {
	s.lock.RLock()
	defer s.lock.RUnlock()
	return s.user.HasPermission(resource, action)
}

// SetUser replaces the cached identity, mirroring it to the identity cache.
func (s *Store) SetUser(user *rbac.User) {
	s.lock.Lock()
	s.user = user
	s.lock.Unlock()

	if err := s.deps.Identity.Set(user); err != nil {
		s.logger.Warn().Err(err).Msg("failed to cache identity")
	}
}

// UpdateUser shallow-merges a partial edit into the cached identity. Used
// after profile edits to stay in sync without a full refetch. No-op when no
// identity is set.
func (s *Store) UpdateUser(update rbac.UserUpdate) {
	s.lock.Lock()
	if s.user == nil {
		s.lock.Unlock()
		return
	}
	s.user.Apply(update)
	user := *s.user
	s.lock.Unlock()

	if err := s.deps.Identity.Set(&user); err != nil {
		s.logger.Warn().Err(err).Msg("failed to cache identity")
	}
}

// User returns the current identity, or nil.
func (s *Store) User() *rbac.User {
	s.lock.RLock()
	defer s.lock.RUnlock()
	return s.user
}

// IsAuthenticated reports whether both tokens are present.
func (s *Store) IsAuthenticated() bool {
	s.lock.RLock()
	defer s.lock.RUnlock()
	return s.isAuthenticated
}

// IsLoading reports whether a login or hydration is in flight.
func (s *Store) IsLoading() bool {
	s.lock.RLock()
	defer s.lock.RUnlock()
	return s.isLoading
}

func (s *Store) setLoading(loading bool) {
	s.lock.Lock()
	s.isLoading = loading
	s.lock.Unlock()
}

func (s *Store) currentRefreshToken() string {
	s.lock.RLock()
	if s.pair != nil && s.pair.RefreshToken != "" {
		token := s.pair.RefreshToken
		s.lock.RUnlock()
		return token
	}
	s.lock.RUnlock()

	pair, err := s.deps.Tokens.Get()
	if err != nil || pair == nil {
		return ""
	}
	return pair.RefreshToken
}

func (s *Store) clearLocalState() error {
	s.lock.Lock()
	s.user = nil
	s.pair = nil
	s.isAuthenticated = false
	s.lock.Unlock()

	var firstErr error
	if err := s.deps.Tokens.Clear(); err != nil {
		firstErr = errors.Wrap(err, "[Store] clear tokens")
	}
	if err := s.deps.Identity.Clear(); err != nil && firstErr == nil {
		firstErr = errors.Wrap(err, "[Store] clear identity")
	}
	return firstErr
}
