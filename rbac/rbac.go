// Package rbac holds the client-side data model for the RBAC API: users,
// their assigned roles, and the permissions those roles carry. Roles and
// permissions are denormalized snapshots taken at login or refresh time;
// permission checks are pure in-memory queries and never call the server.
package rbac

import "time"

// ActionManage is the wildcard action. A permission holding it satisfies
// any action check on its resource.
const ActionManage = "manage"

// Permission is a single capability over a resource. The (resource, action)
// pair is the effective identity for access checks.
type Permission struct {
	ID          string `json:"id,omitempty"`
	Action      string `json:"action"`
	Resource    string `json:"resource"`
	Description string `json:"description,omitempty"`
}

// Role is a named set of permissions.
type Role struct {
	ID          string       `json:"id,omitempty"`
	Name        string       `json:"name"`
	Description string       `json:"description,omitempty"`
	Permissions []Permission `json:"permissions,omitempty"`
	IsActive    bool         `json:"isActive"`
}

// User is the authenticated identity plus its denormalized role snapshot.
type User struct {
	ID        string    `json:"id,omitempty"`
	Email     string    `json:"email,omitempty"`
	FirstName string    `json:"firstName,omitempty"`
	LastName  string    `json:"lastName,omitempty"`
	Roles     []Role    `json:"roles,omitempty"`
	IsActive  bool      `json:"isActive"`
	CreatedAt time.Time `json:"createdAt,omitempty"`
	UpdatedAt time.Time `json:"updatedAt,omitempty"`
}

// UserUpdate is a partial user edit. Nil fields are left untouched when the
// update is applied.
type UserUpdate struct {
	Email     *string `json:"email,omitempty"`
	FirstName *string `json:"firstName,omitempty"`
	LastName  *string `json:"lastName,omitempty"`
	IsActive  *bool   `json:"isActive,omitempty"`
}

// FullName returns the user's display name.
func (u *User) FullName() string {
	if u.FirstName == "" {
		return u.LastName
	}
	if u.LastName == "" {
		return u.FirstName
	}
	return u.FirstName + " " + u.LastName
}

// HasPermission reports whether any of the user's roles grants the action on
// the resource, either directly or through the "manage" wildcard.
func (u *User) HasPermission(resource, action string) bool {
	if u == nil {
		return false
	}
	for _, role := range u.Roles {
		for _, p := range role.Permissions {
			if p.Resource != resource {
				continue
			}
			if p.Action == action || p.Action == ActionManage {
				return true
			}
		}
	}
	return false
}

// HasRole reports whether the user holds a role with the given name.
func (u *User) HasRole(name string) bool {
	if u == nil {
		return false
	}
	for _, role := range u.Roles {
		if role.Name == name {
			return true
		}
	}
	return false
}

// Apply merges the non-nil fields of an update into the user.
func (u *User) Apply(update UserUpdate) {
	if update.Email != nil {
		u.Email = *update.Email
	}
	if update.FirstName != nil {
		u.FirstName = *update.FirstName
	}
	if update.LastName != nil {
		u.LastName = *update.LastName
	}
	if update.IsActive != nil {
		u.IsActive = *update.IsActive
	}
}
