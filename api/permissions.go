package api

import (
	"context"
	"net/http"
	"net/url"

	"github.com/pkg/errors"
	"github.com/rbacadmin/rbac-console/apimodel"
	"github.com/rbacadmin/rbac-console/gateway"
	"github.com/rbacadmin/rbac-console/rbac"
)

// PermissionsClient manages permission records.
type PermissionsClient struct {
	gateway *gateway.Gateway
}

func NewPermissionsClient(gw *gateway.Gateway) *PermissionsClient {
	return &PermissionsClient{gateway: gw}
}

// PermissionInput holds the writable fields of a permission.
type PermissionInput struct {
	Action      string `json:"action"`
	Resource    string `json:"resource"`
	Description string `json:"description,omitempty"`
}

func (pc *PermissionsClient) List(ctx context.Context, query apimodel.ListQuery) ([]rbac.Permission, apimodel.Page, error) {
	envelope, err := pc.gateway.Do(ctx, http.MethodGet, "/permissions", query.Values(), nil)
	if err != nil {
		return nil, apimodel.Page{}, errors.Wrap(err, "[PermissionsClient.List]")
	}

	var permissions []rbac.Permission
	if err := envelope.DecodeData(&permissions); err != nil {
		return nil, apimodel.Page{}, errors.Wrap(err, "[PermissionsClient.List]")
	}
	return permissions, envelope.PageOf(), nil
}

func (pc *PermissionsClient) Get(ctx context.Context, id string) (*rbac.Permission, error) {
	envelope, err := pc.gateway.Do(ctx, http.MethodGet, "/permissions/"+url.PathEscape(id), nil, nil)
	if err != nil {
		return nil, errors.Wrap(err, "[PermissionsClient.Get]")
	}

	var permission rbac.Permission
	if err := envelope.DecodeData(&permission); err != nil {
		return nil, errors.Wrap(err, "[PermissionsClient.Get]")
	}
	return &permission, nil
}

func (pc *PermissionsClient) Create(ctx context.Context, input PermissionInput) (*rbac.Permission, error) {
	envelope, err := pc.gateway.Do(ctx, http.MethodPost, "/permissions", nil, input)
	if err != nil {
		return nil, errors.Wrap(err, "[PermissionsClient.Create]")
	}

	var permission rbac.Permission
	if err := envelope.DecodeData(&permission); err != nil {
		return nil, errors.Wrap(err, "[PermissionsClient.Create]")
	}
	return &permission, nil
}

func (pc *PermissionsClient) Delete(ctx context.Context, id string) error {
	_, err := pc.gateway.Do(ctx, http.MethodDelete, "/permissions/"+url.PathEscape(id), nil, nil)
	return errors.Wrap(err, "[PermissionsClient.Delete]")
}
