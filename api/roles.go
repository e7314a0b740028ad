package api

import (
	"context"
	"fmt"
	"net/http"
	"net/url"

	"github.com/pkg/errors"
	"github.com/rbacadmin/rbac-console/apimodel"
	"github.com/rbacadmin/rbac-console/gateway"
	"github.com/rbacadmin/rbac-console/rbac"
)

// RolesClient manages role records.
type RolesClient struct {
	gateway *gateway.Gateway
}

func NewRolesClient(gw *gateway.Gateway) *RolesClient {
	return &RolesClient{gateway: gw}
}

// RoleInput holds the writable fields of a role.
type RoleInput struct {
	Name          string   `json:"name"`
	Description   string   `json:"description,omitempty"`
	PermissionIDs []string `json:"permissionIds,omitempty"`
}

func (rc *RolesClient) List(ctx context.Context, query apimodel.ListQuery) ([]rbac.Role, apimodel.Page, error) {
	envelope, err := rc.gateway.Do(ctx, http.MethodGet, "/roles", query.Values(), nil)
	if err != nil {
		return nil, apimodel.Page{}, errors.Wrap(err, "[RolesClient.List]")
	}

	var roles []rbac.Role
	if err := envelope.DecodeData(&roles); err != nil {
		return nil, apimodel.Page{}, errors.Wrap(err, "[RolesClient.List]")
	}
	return roles, envelope.PageOf(), nil
}

func (rc *RolesClient) Get(ctx context.Context, id string) (*rbac.Role, error) {
	envelope, err := rc.gateway.Do(ctx, http.MethodGet, "/roles/"+url.PathEscape(id), nil, nil)
	if err != nil {
		return nil, errors.Wrap(err, "[RolesClient.Get]")
	}

	var role rbac.Role
	if err := envelope.DecodeData(&role); err != nil {
		return nil, errors.Wrap(err, "[RolesClient.Get]")
	}
	return &role, nil
}

func (rc *RolesClient) Create(ctx context.Context, input RoleInput) (*rbac.Role, error) {
	envelope, err := rc.gateway.Do(ctx, http.MethodPost, "/roles", nil, input)
	if err != nil {
		return nil, errors.Wrap(err, "[RolesClient.Create]")
	}

	var role rbac.Role
	if err := envelope.DecodeData(&role); err != nil {
		return nil, errors.Wrap(err, "[RolesClient.Create]")
	}
	return &role, nil
}

func (rc *RolesClient) Update(ctx context.Context, id string, input RoleInput) (*rbac.Role, error) {
	envelope, err := rc.gateway.Do(ctx, http.MethodPut, "/roles/"+url.PathEscape(id), nil, input)
	if err != nil {
		return nil, errors.Wrap(err, "[RolesClient.Update]")
	}

	var role rbac.Role
	if err := envelope.DecodeData(&role); err != nil {
		return nil, errors.Wrap(err, "[RolesClient.Update]")
	}
	return &role, nil
}

func (rc *RolesClient) Delete(ctx context.Context, id string) error {
	_, err := rc.gateway.Do(ctx, http.MethodDelete, "/roles/"+url.PathEscape(id), nil, nil)
	return errors.Wrap(err, "[RolesClient.Delete]")
}

// SetPermissions replaces the role's permission set.
func (rc *RolesClient) SetPermissions(ctx context.Context, roleID string, permissionIDs []string) error {
	path := fmt.Sprintf("/roles/%s/permissions", url.PathEscape(roleID))
	_, err := rc.gateway.Do(ctx, http.MethodPut, path, nil, map[string][]string{"permissionIds": permissionIDs})
	return errors.Wrap(err, "[RolesClient.SetPermissions]")
}
