package middleware

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/require"

	"github.com/accountd/accountd/internal/account"
	"github.com/accountd/accountd/internal/apperr"
	"github.com/accountd/accountd/internal/token"
)

func newAuthApp(t *testing.T) (*fiber.App, *account.Service, *token.Issuer) {
	t.Helper()
	issuer := token.NewIssuer("access-secret", "refresh-secret", time.Hour, 24*time.Hour)
	accounts := account.NewService(account.NewMemoryRepository(), issuer)

	app := fiber.New(fiber.Config{
		ErrorHandler: func(c *fiber.Ctx, err error) error {
			return c.Status(apperr.KindOf(err).Status()).JSON(fiber.Map{"error": err.Error()})
		},
	})
	app.Get("/protected", Authenticate(issuer, accounts), func(c *fiber.Ctx) error {
		user, _ := c.Locals(account.UserLocal).(account.PublicUser)
		return c.JSON(fiber.Map{"id": user.ID})
	})
	return app, accounts, issuer
}

func protectedStatus(t *testing.T, app *fiber.App, mutate func(*http.Request)) int {
	t.Helper()
	req := httptest.NewRequest(http.MethodGet, "/protected", nil)
	if mutate != nil {
		mutate(req)
	}
	resp, err := app.Test(req, 5000)
	require.NoError(t, err)
	resp.Body.Close()
	return resp.StatusCode
}

func TestAuthenticateMissingToken(t *testing.T) {
	app, _, _ := newAuthApp(t)
	require.Equal(t, http.StatusUnauthorized, protectedStatus(t, app, nil))
}

func TestAuthenticateBearer(t *testing.T) {
	app, accounts, issuer := newAuthApp(t)

	user, err := accounts.Register(context.Background(), account.RegisterInput{
		Username: "alice", Email: "a@x.com", Phone: 5551234, Password: "secret",
	})
	require.NoError(t, err)

	access, err := issuer.IssueAccess(user.ID, user.Email, user.Username)
	require.NoError(t, err)

	require.Equal(t, http.StatusOK, protectedStatus(t, app, func(r *http.Request) {
		r.Header.Set("Authorization", "Bearer "+access)
	}))
}

// The cookie wins when both transports are present.
func TestAuthenticateCookiePrecedence(t *testing.T) {
	app, accounts, issuer := newAuthApp(t)

	user, err := accounts.Register(context.Background(), account.RegisterInput{
		Username: "alice", Email: "a@x.com", Phone: 5551234, Password: "secret",
	})
	require.NoError(t, err)

	access, err := issuer.IssueAccess(user.ID, user.Email, user.Username)
	require.NoError(t, err)

	require.Equal(t, http.StatusOK, protectedStatus(t, app, func(r *http.Request) {
		r.AddCookie(&http.Cookie{Name: account.AccessTokenCookie, Value: access})
		r.Header.Set("Authorization", "Bearer garbage")
	}))

	require.Equal(t, http.StatusUnauthorized, protectedStatus(t, app, func(r *http.Request) {
		r.AddCookie(&http.Cookie{Name: account.AccessTokenCookie, Value: "garbage"})
		r.Header.Set("Authorization", "Bearer "+access)
	}))
}

func TestAuthenticateExpiredToken(t *testing.T) {
	app, accounts, _ := newAuthApp(t)

	user, err := accounts.Register(context.Background(), account.RegisterInput{
		Username: "alice", Email: "a@x.com", Phone: 5551234, Password: "secret",
	})
	require.NoError(t, err)

	expired := token.NewIssuer("access-secret", "refresh-secret", -time.Second, 24*time.Hour)
	access, err := expired.IssueAccess(user.ID, user.Email, user.Username)
	require.NoError(t, err)

	require.Equal(t, http.StatusUnauthorized, protectedStatus(t, app, func(r *http.Request) {
		r.Header.Set("Authorization", "Bearer "+access)
	}))
}

func TestAuthenticateUnknownSubject(t *testing.T) {
	app, _, issuer := newAuthApp(t)

	access, err := issuer.IssueAccess("gone-user", "x@x.com", "ghost")
	require.NoError(t, err)

	require.Equal(t, http.StatusUnauthorized, protectedStatus(t, app, func(r *http.Request) {
		r.Header.Set("Authorization", "Bearer "+access)
	}))
}
