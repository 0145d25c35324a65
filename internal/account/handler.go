package account

import (
	"net/http"
	"time"

	"github.com/gofiber/fiber/v2"

	"github.com/accountd/accountd/internal/apperr"
)

const (
	// AccessTokenCookie and RefreshTokenCookie are the session cookie names.
	AccessTokenCookie  = "accessToken"
	RefreshTokenCookie = "refreshToken"

	// UserLocal and UserIDLocal are the request-local keys under which the
	// auth middleware stores the authenticated identity.
	UserLocal   = "user"
	UserIDLocal = "user_id"
)

// Handler exposes the account endpoints.
type Handler struct {
	svc        *Service
	accessTTL  time.Duration
	refreshTTL time.Duration
}

// NewHandler constructs an account HTTP handler. The TTLs bound the session
// cookie lifetimes to the token lifetimes.
func NewHandler(svc *Service, accessTTL, refreshTTL time.Duration) *Handler {
	return &Handler{svc: svc, accessTTL: accessTTL, refreshTTL: refreshTTL}
}

type registerRequest struct {
	Username string `json:"username"`
	Email    string `json:"email"`
	Phone    int64  `json:"phone"`
	Password string `json:"password"`
}

type loginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type loginResponse struct {
	User         PublicUser `json:"user"`
	AccessToken  string     `json:"accessToken"`
	RefreshToken string     `json:"refreshToken"`
}

// Register creates a new account.
func (h *Handler) Register(c *fiber.Ctx) error {
	var req registerRequest
	if err := c.BodyParser(&req); err != nil {
		return apperr.Wrap(apperr.Validation, "malformed request body", err)
	}
	user, err := h.svc.Register(c.UserContext(), RegisterInput{
		Username: req.Username,
		Email:    req.Email,
		Phone:    req.Phone,
		Password: req.Password,
	})
	if err != nil {
		return err
	}
	return c.Status(http.StatusOK).JSON(fiber.Map{"user": user})
}

// Login verifies credentials, starts a session and delivers the token pair
// both in the body and as httpOnly cookies.
func (h *Handler) Login(c *fiber.Ctx) error {
	var req loginRequest
	if err := c.BodyParser(&req); err != nil {
		return apperr.Wrap(apperr.Validation, "malformed request body", err)
	}
	user, pair, err := h.svc.Login(c.UserContext(), req.Email, req.Password)
	if err != nil {
		return err
	}
	h.setSessionCookies(c, pair)
	return c.Status(http.StatusOK).JSON(loginResponse{
		User:         user,
		AccessToken:  pair.AccessToken,
		RefreshToken: pair.RefreshToken,
	})
}

// Refresh rotates the session using the refresh token from the cookie or,
// failing that, the request body.
func (h *Handler) Refresh(c *fiber.Ctx) error {
	refresh := c.Cookies(RefreshTokenCookie)
	if refresh == "" {
		var req struct {
			RefreshToken string `json:"refreshToken"`
		}
		if err := c.BodyParser(&req); err == nil {
			refresh = req.RefreshToken
		}
	}
	if refresh == "" {
		return apperr.New(apperr.Unauthorized, "refresh token required")
	}
	pair, err := h.svc.Refresh(c.UserContext(), refresh)
	if err != nil {
		return err
	}
	h.setSessionCookies(c, pair)
	return c.Status(http.StatusOK).JSON(pair)
}

// Logout ends the authenticated session and clears both cookies.
func (h *Handler) Logout(c *fiber.Ctx) error {
	userID, _ := c.Locals(UserIDLocal).(string)
	if userID == "" {
		return apperr.New(apperr.Unauthorized, "unauthorized request")
	}
	if err := h.svc.Logout(c.UserContext(), userID); err != nil {
		return err
	}
	h.clearSessionCookies(c)
	return c.Status(http.StatusOK).JSON(fiber.Map{"message": "logged out"})
}

// Me returns the authenticated user's public record.
func (h *Handler) Me(c *fiber.Ctx) error {
	user, ok := c.Locals(UserLocal).(PublicUser)
	if !ok {
		return apperr.New(apperr.Unauthorized, "unauthorized request")
	}
	return c.Status(http.StatusOK).JSON(fiber.Map{"user": user})
}

func (h *Handler) setSessionCookies(c *fiber.Ctx, pair TokenPair) {
	now := time.Now()
	c.Cookie(&fiber.Cookie{
		Name:     AccessTokenCookie,
		Value:    pair.AccessToken,
		Expires:  now.Add(h.accessTTL),
		HTTPOnly: true,
		Secure:   true,
	})
	c.Cookie(&fiber.Cookie{
		Name:     RefreshTokenCookie,
		Value:    pair.RefreshToken,
		Expires:  now.Add(h.refreshTTL),
		HTTPOnly: true,
		Secure:   true,
	})
}

func (h *Handler) clearSessionCookies(c *fiber.Ctx) {
	expired := time.Now().Add(-time.Hour)
	for _, name := range []string{AccessTokenCookie, RefreshTokenCookie} {
		c.Cookie(&fiber.Cookie{
			Name:     name,
			Value:    "",
			Expires:  expired,
			HTTPOnly: true,
			Secure:   true,
		})
	}
}
