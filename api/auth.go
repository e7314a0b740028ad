// Package api contains the typed clients for the RBAC API endpoints. The
// AuthClient talks HTTP directly so that token renewal can never recurse
// through the gateway's own 401 handling; every other client dispatches
// through the gateway.
package api

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/pkg/errors"
	"github.com/rbacadmin/rbac-console/apimodel"
	"github.com/rbacadmin/rbac-console/credentials"
	"github.com/rbacadmin/rbac-console/rbac"
	"github.com/rbacadmin/rbac-console/session"
)

const authTimeout = 15 * time.Second

// AuthClient implements session.AuthAPI against the /auth endpoints.
type AuthClient struct {
	baseURL    string
	httpClient *http.Client
}

var _ session.AuthAPI = (*AuthClient)(nil)

// AuthClientOption modifies an AuthClient.
type AuthClientOption func(*AuthClient)

// WithAuthHTTPClient replaces the default HTTP client.
func WithAuthHTTPClient(client *http.Client) AuthClientOption {
	return func(ac *AuthClient) {
		ac.httpClient = client
	}
}

// NewAuthClient creates an AuthClient for the given API base URL.
func NewAuthClient(baseURL string, options ...AuthClientOption) (*AuthClient, error) {
	if baseURL == "" {
		return nil, errors.New("[NewAuthClient] base URL is required")
	}
	ac := &AuthClient{
		baseURL:    strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{Timeout: authTimeout},
	}
	for _, opt := range options {
		opt(ac)
	}
	return ac, nil
}

type loginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type loginData struct {
	User         rbac.User `json:"user"`
	AccessToken  string    `json:"accessToken"`
	RefreshToken string    `json:"refreshToken"`
}

type refreshRequest struct {
	RefreshToken string `json:"refreshToken"`
}

type refreshData struct {
	AccessToken string `json:"accessToken"`
}

type logoutRequest struct {
	RefreshToken string `json:"refreshToken"`
}

// Login exchanges credentials for an identity and a token pair. Every
// failure, including transport errors, matches AuthenticationErr: from the
// caller's point of view the login did not happen.
func (ac *AuthClient) Login(ctx context.Context, email, password string) (*rbac.User, *credentials.Pair, error) {
	envelope, err := ac.post(ctx, "/auth/login", loginRequest{Email: email, Password: password})
	if err != nil {
		return nil, nil, errors.WithMessage(apimodel.AuthenticationErr, errors.Cause(err).Error())
	}

	var data loginData
	if err := envelope.DecodeData(&data); err != nil {
		return nil, nil, errors.WithMessage(apimodel.AuthenticationErr, err.Error())
	}
	if data.AccessToken == "" || data.RefreshToken == "" {
		return nil, nil, errors.WithMessage(apimodel.AuthenticationErr, "server returned no tokens")
	}
	return &data.User, &credentials.Pair{AccessToken: data.AccessToken, RefreshToken: data.RefreshToken}, nil
}

// Logout asks the server to invalidate the refresh token.
func (ac *AuthClient) Logout(ctx context.Context, refreshToken string) error {
	_, err := ac.post(ctx, "/auth/logout", logoutRequest{RefreshToken: refreshToken})
	return errors.Wrap(err, "[AuthClient.Logout]")
}

// Refresh mints a new access token from the refresh token.
func (ac *AuthClient) Refresh(ctx context.Context, refreshToken string) (string, error) {
	envelope, err := ac.post(ctx, "/auth/refresh", refreshRequest{RefreshToken: refreshToken})
	if err != nil {
		return "", errors.Wrap(err, "[AuthClient.Refresh]")
	}

	var data refreshData
	if err := envelope.DecodeData(&data); err != nil {
		return "", errors.Wrap(err, "[AuthClient.Refresh]")
	}
	if data.AccessToken == "" {
		return "", errors.WithMessage(apimodel.UnexpectedErr, "refresh returned no access token")
	}
	return data.AccessToken, nil
}

// Me fetches the authenticated user's profile.
func (ac *AuthClient) Me(ctx context.Context, accessToken string) (*rbac.User, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, ac.baseURL+"/auth/me", nil)
	if err != nil {
		return nil, errors.Wrap(err, "[AuthClient.Me] build request")
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set("Authorization", "Bearer "+accessToken)

	envelope, err := ac.roundTrip(req)
	if err != nil {
		return nil, errors.Wrap(err, "[AuthClient.Me]")
	}

	var user rbac.User
	if err := envelope.DecodeData(&user); err != nil {
		return nil, errors.Wrap(err, "[AuthClient.Me]")
	}
	return &user, nil
}

func (ac *AuthClient) post(ctx context.Context, path string, body any) (*apimodel.Envelope, error) {
	encoded, err := json.Marshal(body)
	if err != nil {
		return nil, errors.Wrap(err, "[AuthClient] encode body")
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, ac.baseURL+path, bytes.NewReader(encoded))
	if err != nil {
		return nil, errors.Wrap(err, "[AuthClient] build request")
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set("Content-Type", "application/json")
	return ac.roundTrip(req)
}

func (ac *AuthClient) roundTrip(req *http.Request) (*apimodel.Envelope, error) {
	resp, err := ac.httpClient.Do(req)
	if err != nil {
		return nil, errors.WithMessage(apimodel.NetworkErr, err.Error())
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, errors.WithMessage(apimodel.NetworkErr, err.Error())
	}

	envelope := &apimodel.Envelope{}
	if len(raw) > 0 {
		_ = json.Unmarshal(raw, envelope)
	}

	switch {
	case resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden:
		return nil, errors.WithMessage(apimodel.AuthorizationErr, messageOrStatus(envelope, resp.Status))
	case resp.StatusCode >= 400 && resp.StatusCode < 500:
		return nil, errors.WithMessage(apimodel.ValidationErr, messageOrStatus(envelope, resp.Status))
	case resp.StatusCode >= 500:
		return nil, errors.WithMessage(apimodel.UnexpectedErr, messageOrStatus(envelope, resp.Status))
	case !envelope.Success:
		return nil, errors.WithMessage(apimodel.UnexpectedErr, messageOrStatus(envelope, resp.Status))
	}
	return envelope, nil
}

func messageOrStatus(envelope *apimodel.Envelope, status string) string {
	if msg := envelope.ErrorMessage(); msg != "" {
		return msg
	}
	return status
}
