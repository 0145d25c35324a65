package server

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/redis/go-redis/v9"
	"go.mongodb.org/mongo-driver/v2/mongo"

	"github.com/accountd/accountd/internal/apperr"
	"github.com/accountd/accountd/internal/config"
	"github.com/accountd/accountd/internal/routes"
)

// Server wraps the Fiber application and shared dependencies.
type Server struct {
	app *fiber.App
	cfg config.Config
}

// New instantiates the HTTP server and delegates route wiring to routes.Setup.
func New(cfg config.Config, db *mongo.Database, cache *redis.Client, logger *slog.Logger) (*Server, error) {
	app := fiber.New(fiber.Config{
		AppName:      cfg.AppName,
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 30 * time.Second,
		ErrorHandler: errorHandler(logger),
	})

	if err := routes.Setup(app, routes.Deps{Cfg: cfg, Mongo: db, Cache: cache, Logger: logger}); err != nil {
		return nil, err
	}

	return &Server{app: app, cfg: cfg}, nil
}

// errorHandler maps the error taxonomy onto HTTP responses. Internal causes
// are logged and never leak to the client.
func errorHandler(logger *slog.Logger) fiber.ErrorHandler {
	return func(c *fiber.Ctx, err error) error {
		var ae *apperr.Error
		if errors.As(err, &ae) {
			if ae.Kind == apperr.Internal {
				logger.Error("internal error",
					slog.String("path", c.Path()),
					slog.Any("error", err),
				)
				return c.Status(ae.Kind.Status()).JSON(fiber.Map{"error": "internal server error"})
			}
			return c.Status(ae.Kind.Status()).JSON(fiber.Map{"error": ae.Message})
		}

		var fe *fiber.Error
		if errors.As(err, &fe) {
			return c.Status(fe.Code).JSON(fiber.Map{"error": fe.Message})
		}

		logger.Error("unhandled error", slog.String("path", c.Path()), slog.Any("error", err))
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "internal server error"})
	}
}

// Listen starts the HTTP server.
func (s *Server) Listen() error {
	return s.app.Listen(s.cfg.Address())
}

// Shutdown gracefully stops the HTTP server.
func (s *Server) Shutdown(ctx context.Context) error {
	return s.app.ShutdownWithContext(ctx)
}

// App exposes the underlying Fiber app for tests.
func (s *Server) App() *fiber.App {
	return s.app
}
