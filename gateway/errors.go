package gateway

import "github.com/rbacadmin/rbac-console/apimodel"

// Re-exported so gateway callers can match failures without importing the
// wire-model package.
var (
	AuthorizationErr = apimodel.AuthorizationErr
	ValidationErr    = apimodel.ValidationErr
	NetworkErr       = apimodel.NetworkErr
	UnexpectedErr    = apimodel.UnexpectedErr
)
