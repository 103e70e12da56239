// Package config loads the dev backend configuration from the environment.
package config

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strings"
	"time"

	"github.com/joeshaw/envdecode"
	"github.com/joho/godotenv"

	"github.com/mcoot/miniapp-session/internal/api"
	"github.com/mcoot/miniapp-session/internal/factory"
	"github.com/mcoot/miniapp-session/internal/services/handshake"
	"github.com/mcoot/miniapp-session/internal/services/identity"
	redisstorage "github.com/mcoot/miniapp-session/internal/storage/redis"
)

// Server is the dev backend configuration
type Server struct {
	Port            int           `env:"DEVSERVER_PORT,default=8080"`
	StorageType     string        `env:"STORAGE_TYPE,default=memory"`
	RedisURL        string        `env:"REDIS_URL"`
	RedisKeyPrefix  string        `env:"REDIS_KEY_PREFIX,default=miniapp"`
	SessionSecret   string        `env:"SESSION_SECRET,default=dev-session-secret"`
	SessionDuration time.Duration `env:"SESSION_DURATION,default=24h"`
	BotToken        string        `env:"BOT_TOKEN"`
	BotUsername     string        `env:"BOT_USERNAME,default=miniapp_dev_bot"`
	AllowMock       bool          `env:"ALLOW_MOCK,default=true"`
	HandshakeTTL    time.Duration `env:"HANDSHAKE_TTL,default=5m"`
	PollRate        float64       `env:"POLL_RATE,default=1"`
	PollBurst       int           `env:"POLL_BURST,default=3"`
	LogLevel        string        `env:"LOG_LEVEL,default=info"`
}

// LoadEnvFiles loads the given dotenv files into the process environment.
// Missing files are skipped; variables already set are not overridden.
func LoadEnvFiles(files ...string) error {
	for _, file := range files {
		if _, err := os.Stat(file); errors.Is(err, os.ErrNotExist) {
			continue
		}
		if err := godotenv.Load(file); err != nil {
			return fmt.Errorf("load %s: %w", file, err)
		}
	}
	return nil
}

// Load reads the dev backend configuration from the environment after
// loading the given dotenv files.
func Load(envFiles ...string) (Server, error) {
	if err := LoadEnvFiles(envFiles...); err != nil {
		return Server{}, err
	}

	var cfg Server
	if err := envdecode.Decode(&cfg); err != nil && !errors.Is(err, envdecode.ErrNoTargetFieldsAreSet) {
		return Server{}, fmt.Errorf("decode environment: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return Server{}, err
	}
	return cfg, nil
}

// Validate checks the configuration is usable
func (c Server) Validate() error {
	switch c.StorageType {
	case factory.StorageTypeMemory:
	case factory.StorageTypeRedis:
		if c.RedisURL == "" {
			return errors.New("REDIS_URL required when STORAGE_TYPE=redis")
		}
	default:
		return fmt.Errorf("invalid STORAGE_TYPE %q: must be 'memory' or 'redis'", c.StorageType)
	}
	if c.Port <= 0 || c.Port > 65535 {
		return fmt.Errorf("invalid DEVSERVER_PORT %d", c.Port)
	}
	if c.BotToken == "" && !c.AllowMock {
		return errors.New("BOT_TOKEN required when ALLOW_MOCK=false")
	}
	return nil
}

// Level returns the configured log level
func (c Server) Level() slog.Level {
	switch strings.ToLower(c.LogLevel) {
	case "debug":
		return slog.LevelDebug
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

// Factory builds the application factory configuration
func (c Server) Factory(logger *slog.Logger) factory.Config {
	cfg := factory.Config{
		Logger:      logger,
		StorageType: c.StorageType,
		IdentityConfig: identity.Config{
			SessionSecret:   []byte(c.SessionSecret),
			SessionDuration: c.SessionDuration,
			BotToken:        c.BotToken,
			AllowMock:       c.AllowMock,
			InitDataMaxAge:  identity.DefaultConfig().InitDataMaxAge,
		},
		HandshakeConfig: handshake.Config{
			TTL:         c.HandshakeTTL,
			BotUsername: c.BotUsername,
			PollRate:    c.PollRate,
			PollBurst:   c.PollBurst,
		},
	}
	if c.StorageType == factory.StorageTypeRedis {
		redisCfg := redisstorage.DefaultConfig()
		redisCfg.URL = c.RedisURL
		redisCfg.KeyPrefix = c.RedisKeyPrefix
		cfg.RedisConfig = &redisCfg
	}
	return cfg
}

// HTTP returns the server configuration
func (c Server) HTTP() api.ServerConfig {
	cfg := api.DefaultServerConfig()
	cfg.Port = c.Port
	return cfg
}
