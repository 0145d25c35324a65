package config

import (
	"fmt"
	"os"
	"strings"
	"time"
)

const (
	defaultAppName       = "accountd"
	defaultAppEnv        = "development"
	defaultPort          = "8080"
	defaultLogLevel      = "info"
	defaultDatabase      = "accountd"
	defaultAccessTTL     = 15 * time.Minute
	defaultRefreshTTL    = 240 * time.Hour
	defaultShutdownDelay = 10 * time.Second
)

// Config captures application runtime configuration loaded once from the
// environment and passed by reference; nothing reads the environment after
// Load returns.
type Config struct {
	AppName  string
	AppEnv   string
	Port     string
	LogLevel string

	MongoURI      string
	MongoDatabase string
	RedisURL      string

	AccessTokenSecret  string
	RefreshTokenSecret string
	AccessTokenTTL     time.Duration
	RefreshTokenTTL    time.Duration

	ShutdownPeriod time.Duration
}

// Load reads configuration values from the environment and populates a Config
// instance. MONGO_URI and both token secrets are required; REDIS_URL is
// optional and only enables login rate limiting.
func Load() (Config, error) {
	cfg := Config{
		AppName:            getEnv("APP_NAME", defaultAppName),
		AppEnv:             getEnv("APP_ENV", defaultAppEnv),
		Port:               getEnv("PORT", defaultPort),
		LogLevel:           strings.ToLower(getEnv("LOG_LEVEL", defaultLogLevel)),
		MongoURI:           os.Getenv("MONGO_URI"),
		MongoDatabase:      getEnv("MONGO_DATABASE", defaultDatabase),
		RedisURL:           os.Getenv("REDIS_URL"),
		AccessTokenSecret:  os.Getenv("ACCESS_TOKEN_SECRET"),
		RefreshTokenSecret: os.Getenv("REFRESH_TOKEN_SECRET"),
	}

	var err error
	if cfg.AccessTokenTTL, err = durationEnv("ACCESS_TOKEN_TTL", defaultAccessTTL); err != nil {
		return Config{}, err
	}
	if cfg.RefreshTokenTTL, err = durationEnv("REFRESH_TOKEN_TTL", defaultRefreshTTL); err != nil {
		return Config{}, err
	}
	if cfg.ShutdownPeriod, err = durationEnv("SHUTDOWN_TIMEOUT", defaultShutdownDelay); err != nil {
		return Config{}, err
	}

	if cfg.MongoURI == "" {
		return Config{}, fmt.Errorf("MONGO_URI must be set")
	}
	if cfg.AccessTokenSecret == "" {
		return Config{}, fmt.Errorf("ACCESS_TOKEN_SECRET must be set")
	}
	if cfg.RefreshTokenSecret == "" {
		return Config{}, fmt.Errorf("REFRESH_TOKEN_SECRET must be set")
	}
	if cfg.AccessTokenSecret == cfg.RefreshTokenSecret {
		return Config{}, fmt.Errorf("ACCESS_TOKEN_SECRET and REFRESH_TOKEN_SECRET must differ")
	}

	return cfg, nil
}

// Address returns the listen address in the format Fiber expects.
func (c Config) Address() string {
	if strings.HasPrefix(c.Port, ":") {
		return c.Port
	}
	return fmt.Sprintf(":%s", c.Port)
}

func durationEnv(key string, fallback time.Duration) (time.Duration, error) {
	v := os.Getenv(key)
	if v == "" {
		return fallback, nil
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return 0, fmt.Errorf("invalid %s: %w", key, err)
	}
	return d, nil
}

func getEnv(key, fallback string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return fallback
}
