package api

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/gorilla/mux"

	"github.com/mcoot/miniapp-session/internal/api/apierr"
	"github.com/mcoot/miniapp-session/internal/api/handler"
	"github.com/mcoot/miniapp-session/internal/api/middleware"
	"github.com/mcoot/miniapp-session/internal/api/response"
	"github.com/mcoot/miniapp-session/internal/metrics"
	logging "github.com/mcoot/miniapp-session/internal/middleware"
	"github.com/mcoot/miniapp-session/internal/services/handshake"
	"github.com/mcoot/miniapp-session/internal/services/identity"
)

// RouterConfig holds configuration for the API router
type RouterConfig struct {
	Logger          *slog.Logger
	Identity        *identity.Service
	Handshakes      *handshake.Service
	SessionDuration time.Duration
	// EnableDev mounts the bot simulation routes under /dev
	EnableDev bool
}

// NewRouter creates a new API router with all routes configured
func NewRouter(cfg RouterConfig) http.Handler {
	if cfg.SessionDuration <= 0 {
		cfg.SessionDuration = identity.DefaultConfig().SessionDuration
	}

	r := mux.NewRouter()
	r.Use(logging.Recovery(cfg.Logger, apierr.PanicHandler))
	r.Use(logging.Logging(cfg.Logger))
	r.Use(metrics.Middleware)

	// Create handlers
	sessionHandler := handler.NewSessionHandler(cfg.Identity, cfg.Logger)
	userHandler := handler.NewUserHandler(cfg.Identity)
	authHandler := handler.NewAuthHandler(cfg.Identity, cfg.SessionDuration)
	handshakeHandler := handler.NewHandshakeHandler(cfg.Handshakes, cfg.Identity, cfg.SessionDuration)

	// Unauthenticated routes
	r.HandleFunc("/health", healthHandler).Methods(http.MethodGet)
	r.Handle("/metrics", metrics.Handler()).Methods(http.MethodGet)

	// Routes that identify the caller when they can
	app := r.NewRoute().Subrouter()
	app.Use(middleware.Identify(cfg.Identity, cfg.Logger))
	app.HandleFunc("/process_start", sessionHandler.ProcessStart).Methods(http.MethodPost)
	app.HandleFunc("/auth/register", authHandler.Register).Methods(http.MethodPost)
	app.HandleFunc("/auth/login/password", authHandler.Login).Methods(http.MethodPost)
	app.HandleFunc("/auth/logout", authHandler.Logout).Methods(http.MethodPost)
	app.HandleFunc("/auth/login/telegram/deeplink/start", handshakeHandler.LoginStart).Methods(http.MethodPost)
	app.HandleFunc("/auth/login/telegram/deeplink/poll", handshakeHandler.LoginPoll).Methods(http.MethodGet)

	// Routes that need a signed-in user
	protected := app.NewRoute().Subrouter()
	protected.Use(middleware.RequireUser)
	protected.HandleFunc("/user/me", userHandler.GetMe).Methods(http.MethodGet)
	protected.HandleFunc("/user/linked_accounts", userHandler.LinkedAccounts).Methods(http.MethodGet)
	protected.HandleFunc("/auth/link/telegram/start", handshakeHandler.LinkStart).Methods(http.MethodPost)
	protected.HandleFunc("/auth/link/telegram/poll", handshakeHandler.LinkPoll).Methods(http.MethodGet)

	if cfg.EnableDev {
		devHandler := handler.NewDevHandler(cfg.Handshakes)
		dev := r.PathPrefix("/dev").Subrouter()
		dev.HandleFunc("/handshakes/{token}/confirm", devHandler.Confirm).Methods(http.MethodPost)
	}

	return r
}

func healthHandler(w http.ResponseWriter, r *http.Request) {
	response.JSON(w, http.StatusOK, response.HealthResponse{Status: "ok"})
}
