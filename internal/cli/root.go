// Package cli implements the miniapp command: a driver for the session
// bootstrap and the Telegram deep-link flows against a backend.
package cli

import (
	"context"
	"log/slog"
	"os"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"github.com/mcoot/miniapp-session/internal/analytics"
	"github.com/mcoot/miniapp-session/internal/factory"
	"github.com/mcoot/miniapp-session/internal/platform"
	"github.com/mcoot/miniapp-session/internal/poller"
	"github.com/mcoot/miniapp-session/internal/prefs"
	"github.com/mcoot/miniapp-session/internal/session"
	"github.com/mcoot/miniapp-session/internal/transport"
)

var (
	cfg    *Config
	app    *factory.Client
	logger *slog.Logger

	// opener overrides how deep links are opened for the running command
	opener poller.Opener
	// entryURL is the launch URL passed to the session controller
	entryURL string
)

// NewRootCmd creates the root command
func NewRootCmd() *cobra.Command {
	_ = godotenv.Load()
	cfg = DefaultConfig()
	opener = nil
	entryURL = ""
	if app != nil {
		// a previous command failed before its post-run hook
		app.Close()
		app = nil
	}

	rootCmd := &cobra.Command{
		Use:   "miniapp",
		Short: "CLI driver for the mini app session bootstrap",
		Long: `miniapp drives the client side of the mini app: it resolves the session,
inspects and overrides the detected platform, and runs the Telegram deep-link
login and account-linking flows against a backend.`,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			level := slog.LevelWarn
			if cfg.Verbose {
				level = slog.LevelDebug
			}
			logger = slog.New(slog.NewTextHandler(cmd.ErrOrStderr(), &slog.HandlerOptions{Level: level}))
			return nil
		},
		PersistentPostRunE: func(cmd *cobra.Command, args []string) error {
			if app == nil {
				return nil
			}
			defer func() {
				app.Close()
				app = nil
			}()
			return saveSession(cmd.Context())
		},
		SilenceUsage: true,
	}

	// Global flags
	rootCmd.PersistentFlags().StringVar(&cfg.ServerURL, "server", cfg.ServerURL, "Backend URL (env: MINIAPP_SERVER)")
	rootCmd.PersistentFlags().StringVar(&cfg.PrefsFile, "prefs-file", cfg.PrefsFile, "Preferences file (env: MINIAPP_PREFS_FILE)")
	rootCmd.PersistentFlags().StringVarP(&cfg.Output, "output", "o", cfg.Output, "Output format: text, json")
	rootCmd.PersistentFlags().BoolVar(&cfg.Dev, "dev", cfg.Dev, "Honour the mock override (env: MINIAPP_DEV)")
	rootCmd.PersistentFlags().BoolVarP(&cfg.Verbose, "verbose", "v", cfg.Verbose, "Verbose output")
	rootCmd.PersistentFlags().DurationVar(&cfg.Timeout, "timeout", cfg.Timeout, "Request timeout")
	rootCmd.PersistentFlags().DurationVar(&cfg.PollInterval, "poll-interval", cfg.PollInterval, "Deep-link poll interval")

	// Add subcommands
	rootCmd.AddCommand(newPlatformCmd())
	rootCmd.AddCommand(newMockCmd())
	rootCmd.AddCommand(newSessionCmd())
	rootCmd.AddCommand(newLoginCmd())
	rootCmd.AddCommand(newRegisterCmd())
	rootCmd.AddCommand(newLogoutCmd())
	rootCmd.AddCommand(newLinkCmd())
	rootCmd.AddCommand(newDevCmd())
	rootCmd.AddCommand(newHealthCmd())

	return rootCmd
}

// Execute runs the root command
func Execute() {
	if err := NewRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}

func prefsStore() prefs.Store {
	return prefs.NewFile(cfg.PrefsFile)
}

// connect wires the client against the configured backend and restores the
// saved session cookie
func connect(ctx context.Context) (*factory.Client, error) {
	sessionCfg := session.DefaultConfig()
	sessionCfg.EntryURL = entryURL

	pollerCfg := poller.DefaultConfig()
	pollerCfg.Interval = cfg.PollInterval

	o := opener
	if o == nil {
		o = poller.BrowserOpener{}
	}

	client, err := factory.NewClient(factory.ClientConfig{
		Transport: transport.Config{BaseURL: cfg.ServerURL, Timeout: cfg.Timeout},
		Platform:  platform.Config{AllowOverrides: cfg.Dev},
		Session:   sessionCfg,
		Poller:    pollerCfg,
		Prefs:     prefsStore(),
		Signals:   platform.NewEnvSignals(),
		Opener:    o,
		Navigator: session.NavigatorFunc(func(_ context.Context, page string) error {
			logger.Info("navigate", slog.String("page", page))
			return nil
		}),
		Identifier: analytics.NewLogger(logger),
		Logger:     logger,
	})
	if err != nil {
		return nil, err
	}
	app = client

	if err := restoreSession(ctx); err != nil {
		return nil, err
	}
	return client, nil
}

// commandContext bounds a blocking command by the request timeout
func commandContext(cmd *cobra.Command, d time.Duration) (context.Context, context.CancelFunc) {
	return context.WithTimeout(cmd.Context(), d)
}
