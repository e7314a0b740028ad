package session

import "github.com/rbacadmin/rbac-console/apimodel"

// Re-exported so callers of the store can match failures without importing
// the wire-model package.
var (
	AuthenticationErr = apimodel.AuthenticationErr
	NoRefreshTokenErr = apimodel.NoRefreshTokenErr
)
