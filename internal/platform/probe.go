// Package platform decides which credential transport the client uses.
//
// Detection order, first match wins:
//  1. override flag "enabled": embedded with a mock identity
//  2. override flag "disabled": web, even if live init data is present
//  3. live init data present: embedded, otherwise web
//
// The override flag is only consulted when overrides are allowed (local test
// builds). Stale init data never re-enables the embedded transport once the
// flag says otherwise.
package platform

import (
	"context"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"time"

	"github.com/mcoot/miniapp-session/internal/model"
	"github.com/mcoot/miniapp-session/internal/prefs"
)

const (
	// CookieName is the platform indicator cookie read by server-rendered pages
	CookieName = "platform"
	// CookieMaxAge is the lifetime of the platform indicator cookie
	CookieMaxAge = 365 * 24 * time.Hour
)

// Config holds configuration for the probe
type Config struct {
	// AllowOverrides enables the persisted mock override (local test builds only)
	AllowOverrides bool
	// MockIdentities is the configured mock set; defaults to DefaultMockIdentities
	MockIdentities []model.MockIdentity
}

// Probe detects the platform from live signals and persisted overrides
type Probe struct {
	signals Signals
	store   prefs.Store
	cfg     Config
	logger  *slog.Logger
}

// NewProbe creates a probe. store may be nil when overrides are not allowed.
func NewProbe(signals Signals, store prefs.Store, cfg Config, logger *slog.Logger) *Probe {
	if logger == nil {
		logger = slog.New(slog.NewJSONHandler(io.Discard, nil))
	}
	if len(cfg.MockIdentities) == 0 {
		cfg.MockIdentities = DefaultMockIdentities()
	}
	if store == nil {
		store = prefs.NewMemory()
	}
	return &Probe{
		signals: signals,
		store:   store,
		cfg:     cfg,
		logger:  logger,
	}
}

// Detect returns the platform verdict
func (p *Probe) Detect(ctx context.Context) (model.Platform, error) {
	verdict, source, err := p.detect(ctx)
	if err != nil {
		return model.Platform{}, err
	}
	p.logger.Debug("platform detected",
		slog.String("kind", string(verdict.Kind)),
		slog.Bool("using_mock", verdict.UsingMock),
		slog.String("source", source),
	)
	return verdict, nil
}

func (p *Probe) detect(ctx context.Context) (model.Platform, string, error) {
	if p.cfg.AllowOverrides {
		flag, ok, err := p.store.Get(ctx, prefs.KeyMockTelegram)
		if err != nil {
			return model.Platform{}, "", err
		}
		if ok {
			switch flag {
			case prefs.MockEnabled:
				return model.Platform{Kind: model.PlatformEmbedded, UsingMock: true}, "override", nil
			case prefs.MockDisabled:
				return model.Platform{Kind: model.PlatformWeb}, "override", nil
			}
		}
	}

	if p.signals != nil && p.signals.InitData() != "" {
		return model.Platform{Kind: model.PlatformEmbedded}, "signal", nil
	}
	return model.Platform{Kind: model.PlatformWeb}, "default", nil
}

// MockIdentity returns the identity to impersonate while mock mode is active
func (p *Probe) MockIdentity(ctx context.Context) (model.MockIdentity, error) {
	return SelectedIdentity(ctx, p.store, p.cfg.MockIdentities)
}

// MockIdentities returns the configured mock set
func (p *Probe) MockIdentities() []model.MockIdentity {
	return p.cfg.MockIdentities
}

// LiveInitData returns the host-provided init data, if any
func (p *Probe) LiveInitData() string {
	if p.signals == nil {
		return ""
	}
	return p.signals.InitData()
}

// WriteCookie records the platform verdict in jar for the backend origin.
// Repeating the write replaces the same cookie.
func WriteCookie(jar http.CookieJar, baseURL *url.URL, platform model.Platform) {
	if jar == nil || baseURL == nil {
		return
	}
	jar.SetCookies(baseURL, []*http.Cookie{{
		Name:     CookieName,
		Value:    platform.CookieValue(),
		Path:     "/",
		MaxAge:   int(CookieMaxAge / time.Second),
		SameSite: http.SameSiteLaxMode,
	}})
}
