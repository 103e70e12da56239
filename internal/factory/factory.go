package factory

import (
	"errors"
	"io"
	"log/slog"

	"github.com/mcoot/miniapp-session/internal/dependencies/clock"
	"github.com/mcoot/miniapp-session/internal/dependencies/random"
	"github.com/mcoot/miniapp-session/internal/services/handshake"
	"github.com/mcoot/miniapp-session/internal/services/identity"
	"github.com/mcoot/miniapp-session/internal/storage"
	"github.com/mcoot/miniapp-session/internal/storage/memory"
	redisstorage "github.com/mcoot/miniapp-session/internal/storage/redis"
)

// Storage type constants
const (
	StorageTypeMemory = "memory"
	StorageTypeRedis  = "redis"
)

// App contains the wired dev backend components
type App struct {
	// Storage
	Storage storage.Storage

	// External dependencies
	Clock  clock.Clock
	Random random.Random

	// Services
	IdentityService  *identity.Service
	HandshakeService *handshake.Service

	// IdentityConfig is the effective identity configuration
	IdentityConfig identity.Config
}

// Config holds configuration for the application factory
type Config struct {
	// IdentityConfig holds configuration for the identity service (optional)
	IdentityConfig identity.Config
	// HandshakeConfig holds configuration for the handshake service (optional)
	HandshakeConfig handshake.Config
	// Logger is the application logger (optional)
	// If nil, a no-op logger is used
	Logger *slog.Logger
	// StorageType selects the storage backend ("memory" or "redis")
	// If empty, defaults to "memory"
	StorageType string
	// RedisConfig holds Redis connection settings (required if StorageType is "redis")
	RedisConfig *redisstorage.Config
}

// New creates a new application with all dependencies wired
func New(cfg Config) (*App, error) {
	logger := cfg.Logger
	if logger == nil {
		logger = slog.New(slog.NewJSONHandler(io.Discard, nil))
	}

	clk := clock.New()
	rnd := random.New()

	var store storage.Storage
	storageType := cfg.StorageType
	if storageType == "" {
		storageType = StorageTypeMemory
	}

	switch storageType {
	case StorageTypeMemory:
		store = memory.New(clk)
	case StorageTypeRedis:
		if cfg.RedisConfig == nil {
			return nil, errors.New("RedisConfig required when StorageType is redis")
		}
		redisStore, err := redisstorage.New(*cfg.RedisConfig)
		if err != nil {
			return nil, err
		}
		store = redisStore
	default:
		return nil, errors.New("invalid StorageType: must be 'memory' or 'redis'")
	}

	return newWithDependencies(store, clk, rnd, cfg.IdentityConfig, cfg.HandshakeConfig, logger), nil
}

// newWithDependencies creates an App with the given dependencies (useful for testing)
func newWithDependencies(store storage.Storage, clk clock.Clock, rnd random.Random, idCfg identity.Config, hsCfg handshake.Config, logger *slog.Logger) *App {
	def := identity.DefaultConfig()
	if len(idCfg.SessionSecret) == 0 {
		idCfg.SessionSecret = def.SessionSecret
	}
	if idCfg.SessionDuration == 0 {
		idCfg.SessionDuration = def.SessionDuration
	}
	if idCfg.InitDataMaxAge == 0 {
		idCfg.InitDataMaxAge = def.InitDataMaxAge
	}

	identityService := identity.New(store, clk, idCfg, logger)
	handshakeService := handshake.New(store, identityService, clk, rnd, hsCfg, logger)

	return &App{
		Storage:          store,
		Clock:            clk,
		Random:           rnd,
		IdentityService:  identityService,
		HandshakeService: handshakeService,
		IdentityConfig:   idCfg,
	}
}

// Close releases storage connections
func (a *App) Close() error {
	if closer, ok := a.Storage.(io.Closer); ok {
		return closer.Close()
	}
	return nil
}
