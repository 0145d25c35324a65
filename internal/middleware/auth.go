package middleware

import (
	"strings"

	"github.com/gofiber/fiber/v2"

	"github.com/accountd/accountd/internal/account"
	"github.com/accountd/accountd/internal/apperr"
	"github.com/accountd/accountd/internal/token"
)

// Authenticate validates the access token and attaches the authenticated
// user to the request locals. The accessToken cookie takes precedence over
// the Authorization header.
func Authenticate(issuer *token.Issuer, accounts *account.Service) fiber.Handler {
	return func(c *fiber.Ctx) error {
		tokenStr := c.Cookies(account.AccessTokenCookie)
		if tokenStr == "" {
			tokenStr = bearerToken(c.Get(fiber.HeaderAuthorization))
		}
		if tokenStr == "" {
			return apperr.New(apperr.Unauthorized, "unauthorized request")
		}

		claims, err := issuer.VerifyAccess(tokenStr)
		if err != nil {
			return apperr.New(apperr.Unauthorized, "invalid access token")
		}

		user, err := accounts.GetByID(c.UserContext(), claims.Subject)
		if err != nil {
			return apperr.New(apperr.Unauthorized, "invalid access token")
		}

		c.Locals(account.UserLocal, user)
		c.Locals(account.UserIDLocal, user.ID)
		return c.Next()
	}
}

func bearerToken(header string) string {
	const prefix = "bearer "
	if len(header) > len(prefix) && strings.EqualFold(header[:len(prefix)], prefix) {
		return strings.TrimSpace(header[len(prefix):])
	}
	return ""
}
