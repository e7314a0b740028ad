package api

import (
	"context"
	"net/http"
	"net/url"
	"time"

	"github.com/pkg/errors"
	"github.com/rbacadmin/rbac-console/apimodel"
	"github.com/rbacadmin/rbac-console/gateway"
)

// AuditEntry is one audit log record. Audit logs are read-only from the
// client's perspective.
type AuditEntry struct {
	ID         string         `json:"id"`
	UserID     string         `json:"userId,omitempty"`
	UserEmail  string         `json:"userEmail,omitempty"`
	Action     string         `json:"action"`
	Resource   string         `json:"resource"`
	ResourceID string         `json:"resourceId,omitempty"`
	Details    map[string]any `json:"details,omitempty"`
	IPAddress  string         `json:"ipAddress,omitempty"`
	CreatedAt  time.Time      `json:"createdAt"`
}

// AuditClient reads the audit log.
type AuditClient struct {
	gateway *gateway.Gateway
}

func NewAuditClient(gw *gateway.Gateway) *AuditClient {
	return &AuditClient{gateway: gw}
}

// AuditFilters narrows an audit log listing.
type AuditFilters struct {
	apimodel.ListQuery
	UserID   string
	Action   string
	Resource string
	From     time.Time
	To       time.Time
}

func (f AuditFilters) values() url.Values {
	values := f.ListQuery.Values()
	if f.UserID != "" {
		values.Set("userId", f.UserID)
	}
	if f.Action != "" {
		values.Set("action", f.Action)
	}
	if f.Resource != "" {
		values.Set("resource", f.Resource)
	}
	if !f.From.IsZero() {
		values.Set("from", f.From.Format(time.RFC3339))
	}
	if !f.To.IsZero() {
		values.Set("to", f.To.Format(time.RFC3339))
	}
	return values
}

func (ac *AuditClient) List(ctx context.Context, filters AuditFilters) ([]AuditEntry, apimodel.Page, error) {
	envelope, err := ac.gateway.Do(ctx, http.MethodGet, "/audit", filters.values(), nil)
	if err != nil {
		return nil, apimodel.Page{}, errors.Wrap(err, "[AuditClient.List]")
	}

	var entries []AuditEntry
	if err := envelope.DecodeData(&entries); err != nil {
		return nil, apimodel.Page{}, errors.Wrap(err, "[AuditClient.List]")
	}
	return entries, envelope.PageOf(), nil
}

func (ac *AuditClient) Get(ctx context.Context, id string) (*AuditEntry, error) {
	envelope, err := ac.gateway.Do(ctx, http.MethodGet, "/audit/"+url.PathEscape(id), nil, nil)
	if err != nil {
		return nil, errors.Wrap(err, "[AuditClient.Get]")
	}

	var entry AuditEntry
	if err := envelope.DecodeData(&entry); err != nil {
		return nil, errors.Wrap(err, "[AuditClient.Get]")
	}
	return &entry, nil
}
