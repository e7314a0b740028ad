// Package apimodel defines the wire contract shared with the RBAC API:
// the response envelope every endpoint uses, pagination metadata, and the
// normalized error taxonomy surfaced to callers.
package apimodel

import (
	"encoding/json"
	"net/url"
	"strconv"

	"github.com/pkg/errors"
)

// Envelope is the response wrapper used by every endpoint.
// Data is left raw so callers can decode it into the expected shape.
type Envelope struct {
	Success bool              `json:"success"`
	Message string            `json:"message,omitempty"`
	Data    json.RawMessage   `json:"data,omitempty"`
	Error   string            `json:"error,omitempty"`
	Errors  map[string]string `json:"errors,omitempty"`

	// Pagination fields, present on list responses only.
	Page       int `json:"page,omitempty"`
	Limit      int `json:"limit,omitempty"`
	Total      int `json:"total,omitempty"`
	TotalPages int `json:"totalPages,omitempty"`
}

// ErrorMessage returns the most specific error text the server supplied:
// the error field, falling back to message.
func (e *Envelope) ErrorMessage() string {
	if e == nil {
		return ""
	}
	if e.Error != "" {
		return e.Error
	}
	return e.Message
}

// DecodeData unmarshals the envelope's data payload into out.
func (e *Envelope) DecodeData(out any) error {
	if len(e.Data) == 0 {
		return errors.New("[Envelope.DecodeData] response has no data")
	}
	if err := json.Unmarshal(e.Data, out); err != nil {
		return errors.Wrap(err, "[Envelope.DecodeData] unmarshal")
	}
	return nil
}

// Page carries pagination metadata for list responses.
type Page struct {
	Page       int `json:"page"`
	Limit      int `json:"limit"`
	Total      int `json:"total"`
	TotalPages int `json:"totalPages"`
}

// PageOf pulls the pagination metadata out of a list envelope.
func (e *Envelope) PageOf() Page {
	return Page{
		Page:       e.Page,
		Limit:      e.Limit,
		Total:      e.Total,
		TotalPages: e.TotalPages,
	}
}

// ListQuery holds the common filters every list endpoint accepts.
type ListQuery struct {
	Page   int
	Limit  int
	Search string
	SortBy string
	Order  string
}

// Values renders the query as URL parameters, omitting unset fields.
func (q ListQuery) Values() url.Values {
	values := url.Values{}
	if q.Page > 0 {
		values.Set("page", strconv.Itoa(q.Page))
	}
	if q.Limit > 0 {
		values.Set("limit", strconv.Itoa(q.Limit))
	}
	if q.Search != "" {
		values.Set("search", q.Search)
	}
	if q.SortBy != "" {
		values.Set("sortBy", q.SortBy)
	}
	if q.Order != "" {
		values.Set("order", q.Order)
	}
	return values
}
