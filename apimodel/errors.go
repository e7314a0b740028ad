package apimodel

import "errors"

var (
	// AuthenticationErr is returned when the server rejects the supplied
	// login credentials.
	AuthenticationErr = errors.New("authentication failed")

	// NoRefreshTokenErr is returned when a token refresh is attempted with
	// no refresh token available.
	NoRefreshTokenErr = errors.New("no refresh token available")

	// AuthorizationErr is returned when a request is rejected with 401 and
	// the single refresh-and-retry attempt has been exhausted.
	AuthorizationErr = errors.New("not authorized")

	// ValidationErr is returned for 4xx responses from entity endpoints.
	ValidationErr = errors.New("request rejected")

	// NetworkErr is returned for transport-level failures.
	NetworkErr = errors.New("network error")

	// UnexpectedErr is the fallback for everything else.
	UnexpectedErr = errors.New("unexpected error")
)
