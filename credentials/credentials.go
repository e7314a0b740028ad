// Package credentials owns the persisted token pair. The session store and the
// request gateway never cache tokens themselves; both read and write through a
// Storage so that a renewal from one call site is immediately visible to the
// others, and so that a new process can recover a session without re-login.
package credentials

import "time"

// DefaultTTL bounds how long a persisted pair stays valid. Matches the
// server-side refresh token lifetime of seven days.
const DefaultTTL = 7 * 24 * time.Hour

// NowTimeFunc returns the current time. It can be overridden in tests.
var NowTimeFunc = time.Now

// Pair is the access/refresh token pair. Both tokens are opaque bearer
// strings from the client's perspective.
type Pair struct {
	AccessToken  string `json:"accessToken"`
	RefreshToken string `json:"refreshToken"`
}

// Storage persists a single Pair across process restarts.
//
// Get returns (nil, nil) when nothing usable is stored: never written,
// cleared, or expired past the storage TTL. Implementations must be safe for
// concurrent use.
type Storage interface {
	Get() (*Pair, error)
	Set(pair *Pair) error
	Clear() error
}
