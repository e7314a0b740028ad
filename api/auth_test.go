package api_test

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/rbacadmin/rbac-console/api"
	"github.com/rbacadmin/rbac-console/apimodel"
	"github.com/stretchr/testify/require"
)

func authServer(t *testing.T) *httptest.Server {
	t.Helper()

	mux := http.NewServeMux()
	mux.HandleFunc("POST /auth/login", func(w http.ResponseWriter, r *http.Request) {
		var body struct {
			Email    string `json:"email"`
			Password string `json:"password"`
		}
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))

		if body.Email != "test@example.com" || body.Password != "x" {
			writeJSON(w, http.StatusUnauthorized, apimodel.Envelope{Error: "invalid credentials"})
			return
		}
		writeJSON(w, http.StatusOK, apimodel.Envelope{
			Success: true,
			Data:    json.RawMessage(`{"user":{"id":"1","email":"test@example.com","roles":[]},"accessToken":"A","refreshToken":"B"}`),
		})
	})
	mux.HandleFunc("POST /auth/refresh", func(w http.ResponseWriter, r *http.Request) {
		var body struct {
			RefreshToken string `json:"refreshToken"`
		}
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))

		if body.RefreshToken != "B" {
			writeJSON(w, http.StatusUnauthorized, apimodel.Envelope{Error: "refresh token revoked"})
			return
		}
		writeJSON(w, http.StatusOK, apimodel.Envelope{Success: true, Data: json.RawMessage(`{"accessToken":"A2"}`)})
	})
	mux.HandleFunc("POST /auth/logout", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, apimodel.Envelope{Success: true, Message: "logged out"})
	})
	mux.HandleFunc("GET /auth/me", func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("Authorization") != "Bearer A" {
			writeJSON(w, http.StatusUnauthorized, apimodel.Envelope{Error: "unauthorized"})
			return
		}
		writeJSON(w, http.StatusOK, apimodel.Envelope{
			Success: true,
			Data:    json.RawMessage(`{"id":"1","email":"test@example.com","firstName":"Test","lastName":"User"}`),
		})
	})

	server := httptest.NewServer(mux)
	t.Cleanup(server.Close)
	return server
}

func writeJSON(w http.ResponseWriter, status int, envelope apimodel.Envelope) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(envelope)
}

func TestLoginSuccess(t *testing.T) {
	server := authServer(t)
	client, err := api.NewAuthClient(server.URL)
	require.NoError(t, err)

	user, pair, err := client.Login(context.Background(), "test@example.com", "x")
	require.NoError(t, err)
	require.Equal(t, "1", user.ID)
	require.Equal(t, "test@example.com", user.Email)
	require.Equal(t, "A", pair.AccessToken)
	require.Equal(t, "B", pair.RefreshToken)
}

func TestLoginInvalidCredentials(t *testing.T) {
	server := authServer(t)
	client, err := api.NewAuthClient(server.URL)
	require.NoError(t, err)

	_, _, err = client.Login(context.Background(), "test@example.com", "wrong")
	require.ErrorIs(t, err, apimodel.AuthenticationErr)
	require.Contains(t, err.Error(), "invalid credentials")
}

func TestLoginTransportFailureIsAuthenticationError(t *testing.T) {
	server := authServer(t)
	client, err := api.NewAuthClient(server.URL)
	require.NoError(t, err)
	server.Close()

	_, _, err = client.Login(context.Background(), "test@example.com", "x")
	require.ErrorIs(t, err, apimodel.AuthenticationErr)
}

func TestRefresh(t *testing.T) {
	server := authServer(t)
	client, err := api.NewAuthClient(server.URL)
	require.NoError(t, err)

	accessToken, err := client.Refresh(context.Background(), "B")
	require.NoError(t, err)
	require.Equal(t, "A2", accessToken)
}

func TestRefreshRevokedToken(t *testing.T) {
	server := authServer(t)
	client, err := api.NewAuthClient(server.URL)
	require.NoError(t, err)

	_, err = client.Refresh(context.Background(), "revoked")
	require.ErrorIs(t, err, apimodel.AuthorizationErr)
}

func TestMe(t *testing.T) {
	server := authServer(t)
	client, err := api.NewAuthClient(server.URL)
	require.NoError(t, err)

	user, err := client.Me(context.Background(), "A")
	require.NoError(t, err)
	require.Equal(t, "Test User", user.FullName())
}

func TestLogout(t *testing.T) {
	server := authServer(t)
	client, err := api.NewAuthClient(server.URL)
	require.NoError(t, err)

	require.NoError(t, client.Logout(context.Background(), "B"))
}
