package config

import (
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"
)

type Config struct {
	HTTPAddr string     `env:"HTTP_ADDR" envDefault:":8080"`
	DBDriver string     `env:"DB_DRIVER" envDefault:"libsql"`
	DBPath   string     `env:"DB_PATH" envDefault:"data/hunt.db"`
	LogLevel slog.Level `env:"LOG_LEVEL" envDefault:"INFO"`
	SPADir   string     `env:"SPA_DIR" envDefault:"../web/dist"`

	AdminEmail    string        `env:"ADMIN_EMAIL,required,notEmpty"`
	AdminPassword string        `env:"ADMIN_PASSWORD,required,notEmpty"`
	JWTSecret     string        `env:"JWT_SECRET,required,notEmpty"`
	AdminTokenTTL time.Duration `env:"ADMIN_TOKEN_TTL" envDefault:"8h"`
	TeamTokenTTL  time.Duration `env:"TEAM_TOKEN_TTL" envDefault:"24h"`

	// RedisURL is optional. When empty, rate limits are kept in memory.
	RedisURL        string `env:"REDIS_URL"`
	UnlockRateLimit int    `env:"UNLOCK_RATE_LIMIT" envDefault:"20"`
	LoginRateLimit  int    `env:"LOGIN_RATE_LIMIT" envDefault:"10"`
}

// Load reads an optional .env file from the working directory and then
// parses the environment.
func Load() (*Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("loading .env: %w", err)
	}

	cfg, err := env.ParseAs[Config]()
	if err != nil {
		return nil, fmt.Errorf("parsing environment: %w", err)
	}
	switch cfg.DBDriver {
	case "libsql", "sqlite":
	default:
		return nil, fmt.Errorf("unsupported DB_DRIVER %q", cfg.DBDriver)
	}
	return &cfg, nil
}
