package main

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/mcoot/miniapp-session/internal/api"
	"github.com/mcoot/miniapp-session/internal/config"
	"github.com/mcoot/miniapp-session/internal/factory"
)

func main() {
	cfg, err := config.Load(".env")
	if err != nil {
		slog.Error("invalid configuration", slog.String("error", err.Error()))
		os.Exit(1)
	}

	// Set up logging with JSON output
	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level: cfg.Level(),
	}))
	slog.SetDefault(logger)

	app, err := factory.New(cfg.Factory(logger))
	if err != nil {
		logger.Error("failed to create application", slog.String("error", err.Error()))
		os.Exit(1)
	}
	defer func() { _ = app.Close() }()

	if cfg.BotToken == "" {
		logger.Warn("BOT_TOKEN not set: only mock identities can authenticate")
	}

	router := api.NewRouter(api.RouterConfig{
		Logger:          logger,
		Identity:        app.IdentityService,
		Handshakes:      app.HandshakeService,
		SessionDuration: app.IdentityConfig.SessionDuration,
		EnableDev:       cfg.AllowMock,
	})

	server := api.NewServer(router, cfg.HTTP(), logger)

	// Handle graceful shutdown
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	logger.Info("dev backend starting",
		slog.String("addr", server.Addr()),
		slog.String("storage", cfg.StorageType),
		slog.Bool("allow_mock", cfg.AllowMock),
	)

	if err := server.Run(ctx); err != nil {
		logger.Error("server error", slog.String("error", err.Error()))
		os.Exit(1)
	}

	logger.Info("dev backend stopped")
}
