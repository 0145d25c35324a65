package server

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/accountd/accountd/internal/config"
	"github.com/accountd/accountd/internal/logging"
)

func newTestServer(t *testing.T) *Server {
	t.Helper()
	cfg := config.Config{
		AppName:            "accountd-test",
		AppEnv:             "development", // memory repository, no Mongo
		Port:               "0",
		AccessTokenSecret:  "access-secret",
		RefreshTokenSecret: "refresh-secret",
		AccessTokenTTL:     time.Hour,
		RefreshTokenTTL:    24 * time.Hour,
	}
	srv, err := New(cfg, nil, nil, logging.Discard())
	require.NoError(t, err)
	return srv
}

func postJSON(t *testing.T, srv *Server, path string, body any, mutate func(*http.Request)) *http.Response {
	t.Helper()
	payload, err := json.Marshal(body)
	require.NoError(t, err)
	req := httptest.NewRequest(http.MethodPost, path, bytes.NewReader(payload))
	req.Header.Set("Content-Type", "application/json")
	if mutate != nil {
		mutate(req)
	}
	resp, err := srv.App().Test(req, 5000)
	require.NoError(t, err)
	return resp
}

func decodeBody(t *testing.T, resp *http.Response) map[string]any {
	t.Helper()
	defer resp.Body.Close()
	var out map[string]any
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&out))
	return out
}

func register(t *testing.T, srv *Server, username, email string, phone int64) map[string]any {
	t.Helper()
	resp := postJSON(t, srv, "/api/v1/users/register", map[string]any{
		"username": username,
		"email":    email,
		"phone":    phone,
		"password": "secret",
	}, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	return decodeBody(t, resp)
}

func TestRegisterAndDuplicates(t *testing.T) {
	srv := newTestServer(t)

	body := register(t, srv, "alice", "a@x.com", 5551234)
	user, ok := body["user"].(map[string]any)
	require.True(t, ok)
	require.Equal(t, "alice", user["username"])
	require.Equal(t, "a@x.com", user["email"])
	// Credentials and session state must not appear in the response.
	require.NotContains(t, user, "password")
	require.NotContains(t, user, "password_hash")
	require.NotContains(t, user, "refresh_token")

	// Same email, different phone.
	resp := postJSON(t, srv, "/api/v1/users/register", map[string]any{
		"username": "alice2", "email": "a@x.com", "phone": 5559999, "password": "secret",
	}, nil)
	require.Equal(t, http.StatusBadRequest, resp.StatusCode)
	require.Equal(t, "email already registered", decodeBody(t, resp)["error"])

	// Same phone, different email.
	resp = postJSON(t, srv, "/api/v1/users/register", map[string]any{
		"username": "alice3", "email": "b@x.com", "phone": 5551234, "password": "secret",
	}, nil)
	require.Equal(t, http.StatusBadRequest, resp.StatusCode)
	require.Equal(t, "phone number already registered", decodeBody(t, resp)["error"])
}

func TestLoginSetsCookiesAndReturnsTokens(t *testing.T) {
	srv := newTestServer(t)
	register(t, srv, "alice", "a@x.com", 5551234)

	resp := postJSON(t, srv, "/api/v1/users/login", map[string]any{
		"email": "a@x.com", "password": "secret",
	}, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	cookies := map[string]*http.Cookie{}
	for _, c := range resp.Cookies() {
		cookies[c.Name] = c
	}
	for _, name := range []string{"accessToken", "refreshToken"} {
		c, ok := cookies[name]
		require.True(t, ok, "missing %s cookie", name)
		require.NotEmpty(t, c.Value)
		require.True(t, c.HttpOnly)
		require.True(t, c.Secure)
	}

	body := decodeBody(t, resp)
	require.NotEmpty(t, body["accessToken"])
	require.NotEmpty(t, body["refreshToken"])
	user, ok := body["user"].(map[string]any)
	require.True(t, ok)
	require.Equal(t, "a@x.com", user["email"])
	require.NotContains(t, user, "password_hash")
}

func TestLoginFailures(t *testing.T) {
	srv := newTestServer(t)
	register(t, srv, "alice", "a@x.com", 5551234)

	cases := []map[string]any{
		{"email": "a@x.com", "password": "wrong"},
		{"email": "nobody@x.com", "password": "secret"},
		{"email": "", "password": ""},
	}
	for _, body := range cases {
		resp := postJSON(t, srv, "/api/v1/users/login", body, nil)
		require.Equal(t, http.StatusBadRequest, resp.StatusCode)
		require.Equal(t, "invalid credentials", decodeBody(t, resp)["error"])
	}
}

func loginTokens(t *testing.T, srv *Server) (access, refresh string) {
	t.Helper()
	resp := postJSON(t, srv, "/api/v1/users/login", map[string]any{
		"email": "a@x.com", "password": "secret",
	}, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	body := decodeBody(t, resp)
	return body["accessToken"].(string), body["refreshToken"].(string)
}

func TestProtectedRoutes(t *testing.T) {
	srv := newTestServer(t)
	register(t, srv, "alice", "a@x.com", 5551234)
	access, _ := loginTokens(t, srv)

	// No token.
	req := httptest.NewRequest(http.MethodGet, "/api/v1/users/me", nil)
	resp, err := srv.App().Test(req, 5000)
	require.NoError(t, err)
	require.Equal(t, http.StatusUnauthorized, resp.StatusCode)

	// Bearer header.
	req = httptest.NewRequest(http.MethodGet, "/api/v1/users/me", nil)
	req.Header.Set("Authorization", "Bearer "+access)
	resp, err = srv.App().Test(req, 5000)
	require.NoError(t, err)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	user := decodeBody(t, resp)["user"].(map[string]any)
	require.Equal(t, "alice", user["username"])

	// Cookie.
	req = httptest.NewRequest(http.MethodGet, "/api/v1/users/me", nil)
	req.AddCookie(&http.Cookie{Name: "accessToken", Value: access})
	resp, err = srv.App().Test(req, 5000)
	require.NoError(t, err)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	// Tampered token.
	req = httptest.NewRequest(http.MethodGet, "/api/v1/users/me", nil)
	req.Header.Set("Authorization", "Bearer "+access+"x")
	resp, err = srv.App().Test(req, 5000)
	require.NoError(t, err)
	require.Equal(t, http.StatusUnauthorized, resp.StatusCode)
}

func TestLogoutRevokesRefreshFlow(t *testing.T) {
	srv := newTestServer(t)
	register(t, srv, "alice", "a@x.com", 5551234)
	access, refresh := loginTokens(t, srv)

	// Logout requires authentication.
	resp := postJSON(t, srv, "/api/v1/users/logout", map[string]any{}, nil)
	require.Equal(t, http.StatusUnauthorized, resp.StatusCode)

	resp = postJSON(t, srv, "/api/v1/users/logout", map[string]any{}, func(r *http.Request) {
		r.Header.Set("Authorization", "Bearer "+access)
	})
	require.Equal(t, http.StatusOK, resp.StatusCode)
	for _, c := range resp.Cookies() {
		require.Empty(t, c.Value, "cookie %s should be cleared", c.Name)
	}

	// The cleared refresh token can no longer mint a session.
	resp = postJSON(t, srv, "/api/v1/users/refresh", map[string]any{
		"refreshToken": refresh,
	}, nil)
	require.Equal(t, http.StatusUnauthorized, resp.StatusCode)
}

func TestRefreshRotation(t *testing.T) {
	srv := newTestServer(t)
	register(t, srv, "alice", "a@x.com", 5551234)
	_, refresh := loginTokens(t, srv)

	resp := postJSON(t, srv, "/api/v1/users/refresh", nil, func(r *http.Request) {
		r.AddCookie(&http.Cookie{Name: "refreshToken", Value: refresh})
	})
	require.Equal(t, http.StatusOK, resp.StatusCode)
	body := decodeBody(t, resp)
	rotated := body["refreshToken"].(string)
	require.NotEmpty(t, rotated)
	require.NotEqual(t, refresh, rotated)

	// The superseded token is no longer the active session.
	resp = postJSON(t, srv, "/api/v1/users/refresh", map[string]any{
		"refreshToken": refresh,
	}, nil)
	require.Equal(t, http.StatusUnauthorized, resp.StatusCode)
}

func TestHealthz(t *testing.T) {
	srv := newTestServer(t)

	req := httptest.NewRequest(http.MethodGet, "/healthz", nil)
	resp, err := srv.App().Test(req, 5000)
	require.NoError(t, err)
	require.Equal(t, http.StatusOK, resp.StatusCode)
}
