package routes

import (
	"github.com/gofiber/fiber/v2"

	"github.com/accountd/accountd/internal/account"
)

// RegisterUserRoutes wires the account endpoints. Logout and the profile
// endpoint sit behind the access-token middleware; login optionally behind
// the rate limiter.
func RegisterUserRoutes(r fiber.Router, h *account.Handler, authMW, rateLimiter fiber.Handler) {
	group := r.Group("/users")
	group.Post("/register", h.Register)
	if rateLimiter != nil {
		group.Post("/login", rateLimiter, h.Login)
	} else {
		group.Post("/login", h.Login)
	}
	group.Post("/refresh", h.Refresh)
	group.Post("/logout", authMW, h.Logout)
	group.Get("/me", authMW, h.Me)
}
