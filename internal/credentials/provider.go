// Package credentials builds the headers attached to every backend request.
package credentials

import (
	"context"
	"fmt"
	"net/http"

	"github.com/mcoot/miniapp-session/internal/dependencies/clock"
	"github.com/mcoot/miniapp-session/internal/model"
	"github.com/mcoot/miniapp-session/internal/platform"
)

const (
	// HeaderInitData carries the embedded-platform init data; empty in web mode
	HeaderInitData = "X-Telegram-Init-Data"
	// HeaderMock marks requests made with a simulated identity
	HeaderMock = "X-Mock-Telegram"
)

// Credentials is the resolved transport for one request
type Credentials struct {
	Platform model.Platform
	Header   http.Header
}

// Provider turns the probe verdict into request headers.
// It only reads the override flag, never writes it.
type Provider struct {
	probe *platform.Probe
	clock clock.Clock
}

// NewProvider creates a header provider
func NewProvider(probe *platform.Probe, clk clock.Clock) *Provider {
	if clk == nil {
		clk = clock.New()
	}
	return &Provider{probe: probe, clock: clk}
}

// Build resolves the platform and the matching header set
func (p *Provider) Build(ctx context.Context) (Credentials, error) {
	verdict, err := p.probe.Detect(ctx)
	if err != nil {
		return Credentials{}, fmt.Errorf("failed to detect platform: %w", err)
	}

	header := make(http.Header)
	header.Set(HeaderInitData, "")

	if !verdict.IsEmbedded() {
		return Credentials{Platform: verdict, Header: header}, nil
	}

	initData := p.probe.LiveInitData()
	if verdict.UsingMock {
		identity, err := p.probe.MockIdentity(ctx)
		if err != nil {
			return Credentials{}, fmt.Errorf("failed to select mock identity: %w", err)
		}
		initData, err = platform.SynthesizeInitData(identity, p.clock.Now())
		if err != nil {
			return Credentials{}, fmt.Errorf("failed to synthesize init data: %w", err)
		}
		header.Set(HeaderMock, "true")
	}
	header.Set(HeaderInitData, initData)

	return Credentials{Platform: verdict, Header: header}, nil
}

// Headers returns only the header set
func (p *Provider) Headers(ctx context.Context) (http.Header, error) {
	creds, err := p.Build(ctx)
	if err != nil {
		return nil, err
	}
	return creds.Header, nil
}
