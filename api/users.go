package api

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strconv"

	"github.com/pkg/errors"
	"github.com/rbacadmin/rbac-console/apimodel"
	"github.com/rbacadmin/rbac-console/gateway"
	"github.com/rbacadmin/rbac-console/rbac"
)

// UsersClient manages user records.
type UsersClient struct {
	gateway *gateway.Gateway
}

func NewUsersClient(gw *gateway.Gateway) *UsersClient {
	return &UsersClient{gateway: gw}
}

// UserFilters narrows a user listing.
type UserFilters struct {
	apimodel.ListQuery
	RoleID   string
	IsActive *bool
}

func (f UserFilters) values() url.Values {
	values := f.ListQuery.Values()
	if f.RoleID != "" {
		values.Set("roleId", f.RoleID)
	}
	if f.IsActive != nil {
		values.Set("isActive", strconv.FormatBool(*f.IsActive))
	}
	return values
}

// CreateUserInput holds the fields for a new user.
type CreateUserInput struct {
	Email     string   `json:"email"`
	Password  string   `json:"password"`
	FirstName string   `json:"firstName"`
	LastName  string   `json:"lastName"`
	RoleIDs   []string `json:"roleIds,omitempty"`
}

func (uc *UsersClient) List(ctx context.Context, filters UserFilters) ([]rbac.User, apimodel.Page, error) {
	envelope, err := uc.gateway.Do(ctx, http.MethodGet, "/users", filters.values(), nil)
	if err != nil {
		return nil, apimodel.Page{}, errors.Wrap(err, "[UsersClient.List]")
	}

	var users []rbac.User
	if err := envelope.DecodeData(&users); err != nil {
		return nil, apimodel.Page{}, errors.Wrap(err, "[UsersClient.List]")
	}
	return users, envelope.PageOf(), nil
}

func (uc *UsersClient) Get(ctx context.Context, id string) (*rbac.User, error) {
	envelope, err := uc.gateway.Do(ctx, http.MethodGet, "/users/"+url.PathEscape(id), nil, nil)
	if err != nil {
		return nil, errors.Wrap(err, "[UsersClient.Get]")
	}

	var user rbac.User
	if err := envelope.DecodeData(&user); err != nil {
		return nil, errors.Wrap(err, "[UsersClient.Get]")
	}
	return &user, nil
}

func (uc *UsersClient) Create(ctx context.Context, input CreateUserInput) (*rbac.User, error) {
	envelope, err := uc.gateway.Do(ctx, http.MethodPost, "/users", nil, input)
	if err != nil {
		return nil, errors.Wrap(err, "[UsersClient.Create]")
	}

	var user rbac.User
	if err := envelope.DecodeData(&user); err != nil {
		return nil, errors.Wrap(err, "[UsersClient.Create]")
	}
	return &user, nil
}

// Update applies a partial edit. Only non-nil fields are sent.
func (uc *UsersClient) Update(ctx context.Context, id string, update rbac.UserUpdate) (*rbac.User, error) {
	envelope, err := uc.gateway.Do(ctx, http.MethodPatch, "/users/"+url.PathEscape(id), nil, update)
	if err != nil {
		return nil, errors.Wrap(err, "[UsersClient.Update]")
	}

	var user rbac.User
	if err := envelope.DecodeData(&user); err != nil {
		return nil, errors.Wrap(err, "[UsersClient.Update]")
	}
	return &user, nil
}

func (uc *UsersClient) Delete(ctx context.Context, id string) error {
	_, err := uc.gateway.Do(ctx, http.MethodDelete, "/users/"+url.PathEscape(id), nil, nil)
	return errors.Wrap(err, "[UsersClient.Delete]")
}

// SetActive activates or deactivates a user.
func (uc *UsersClient) SetActive(ctx context.Context, id string, active bool) (*rbac.User, error) {
	return uc.Update(ctx, id, rbac.UserUpdate{IsActive: &active})
}

// AssignRole adds a role to a user.
func (uc *UsersClient) AssignRole(ctx context.Context, userID, roleID string) error {
	path := fmt.Sprintf("/users/%s/roles", url.PathEscape(userID))
	_, err := uc.gateway.Do(ctx, http.MethodPost, path, nil, map[string]string{"roleId": roleID})
	return errors.Wrap(err, "[UsersClient.AssignRole]")
}

// RemoveRole removes a role from a user.
func (uc *UsersClient) RemoveRole(ctx context.Context, userID, roleID string) error {
	path := fmt.Sprintf("/users/%s/roles/%s", url.PathEscape(userID), url.PathEscape(roleID))
	_, err := uc.gateway.Do(ctx, http.MethodDelete, path, nil, nil)
	return errors.Wrap(err, "[UsersClient.RemoveRole]")
}
