package utils

import (
	"fmt"
	"time"

	"github.com/caarlos0/env/v10"

	"bookreviews/pkg/database"
)

// Config holds all runtime settings. Every field has a dev default so the
// binaries start with no environment at all.
type Config struct {
	LogLevel string `env:"LOG_LEVEL" envDefault:"info"`

	// Empty means ~/.bookreviews/data.db.
	DBPath string `env:"BOOKREVIEWS_DB_PATH"`

	HTTPAddr   string `env:"BOOKREVIEWS_HTTP_ADDR" envDefault:":8080"`
	SyncAddr   string `env:"BOOKREVIEWS_SYNC_ADDR" envDefault:":7070"`
	NotifyAddr string `env:"BOOKREVIEWS_NOTIFY_ADDR" envDefault:":7071"`
	GRPCAddr   string `env:"BOOKREVIEWS_GRPC_ADDR" envDefault:":9090"`

	// dev default (change for demo / production)
	JWTSecret string        `env:"BOOKREVIEWS_JWT_SECRET" envDefault:"dev-secret-change-me"`
	JWTIssuer string        `env:"BOOKREVIEWS_JWT_ISSUER" envDefault:"bookreviews"`
	JWTTTL    time.Duration `env:"BOOKREVIEWS_JWT_TTL" envDefault:"24h"`
}

func Load() (*Config, error) {
	cfg := &Config{}
	if err := env.Parse(cfg); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}
	if cfg.JWTSecret == "" {
		return nil, fmt.Errorf("BOOKREVIEWS_JWT_SECRET must not be empty")
	}
	if cfg.JWTTTL <= 0 {
		return nil, fmt.Errorf("BOOKREVIEWS_JWT_TTL must be positive, got %s", cfg.JWTTTL)
	}
	return cfg, nil
}

func (c *Config) Database() database.Config {
	if c.DBPath == "" {
		return database.DefaultConfig()
	}
	return database.Config{Path: c.DBPath}
}
