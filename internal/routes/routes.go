package routes

import (
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/redis/go-redis/v9"
	"go.mongodb.org/mongo-driver/v2/mongo"

	"github.com/accountd/accountd/internal/account"
	"github.com/accountd/accountd/internal/config"
	"github.com/accountd/accountd/internal/middleware"
	"github.com/accountd/accountd/internal/token"
)

// Deps aggregates shared dependencies required to wire routes.
type Deps struct {
	Cfg    config.Config
	Mongo  *mongo.Database
	Cache  *redis.Client
	Logger *slog.Logger
}

// Setup configures middlewares and all application routes.
func Setup(app *fiber.App, d Deps) error {
	// Outside of dev the document store is mandatory, even though main also checks.
	if d.Mongo == nil && !isDev(d.Cfg.AppEnv) {
		return fmt.Errorf("mongo is required when APP_ENV=%s", d.Cfg.AppEnv)
	}

	app.Use(recover.New())
	app.Use(middleware.RequestID())
	app.Use(logger.New(logger.Config{
		Format:     "[${time}] ${status} -  ${latency} ${method} ${path}\n",
		TimeFormat: "15:04:05",
		TimeZone:   "Local",
	}))
	app.Use(middleware.Audit(d.Logger))

	RegisterHealthRoutes(app, d)

	var repo account.Repository
	if d.Mongo != nil {
		repo = account.NewMongoRepository(d.Mongo)
	} else {
		repo = account.NewMemoryRepository()
	}
	issuer := token.NewIssuer(
		d.Cfg.AccessTokenSecret,
		d.Cfg.RefreshTokenSecret,
		d.Cfg.AccessTokenTTL,
		d.Cfg.RefreshTokenTTL,
	)
	accounts := account.NewService(repo, issuer)
	handler := account.NewHandler(accounts, d.Cfg.AccessTokenTTL, d.Cfg.RefreshTokenTTL)

	api := app.Group("/api/v1")
	api.Get("/ping", func(c *fiber.Ctx) error {
		reqID, _ := c.Locals("X-Request-ID").(string)
		return c.Status(http.StatusOK).JSON(fiber.Map{
			"status":     "ok",
			"request_id": reqID,
			"timestamp":  time.Now().UTC().Format(time.RFC3339Nano),
		})
	})

	authMW := middleware.Authenticate(issuer, accounts)
	rateLimiter := middleware.LoginRateLimit(d.Cache, 5)
	RegisterUserRoutes(api, handler, authMW, rateLimiter)

	return nil
}

func isDev(env string) bool {
	switch strings.ToLower(env) {
	case "dev", "development", "local":
		return true
	default:
		return false
	}
}
