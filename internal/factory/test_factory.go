package factory

import (
	"time"

	"github.com/mcoot/miniapp-session/internal/dependencies/mocks"
	"github.com/mcoot/miniapp-session/internal/services/handshake"
	"github.com/mcoot/miniapp-session/internal/services/identity"
	"github.com/mcoot/miniapp-session/internal/storage/memory"
	"github.com/mcoot/miniapp-session/internal/testutil"
)

// TestBotToken signs init data in tests
const TestBotToken = "123456:TEST-BOT-TOKEN"

// TestApp extends App with test-specific helpers
type TestApp struct {
	*App

	// Mocks for test control
	MockClock  *mocks.MockClock
	MockRandom *mocks.MockRandom
}

// NewTestApp creates an App configured for testing with mocked dependencies.
// Mock identities are accepted and init data is signed with TestBotToken.
func NewTestApp() *TestApp {
	mockClock := mocks.NewMockClock(time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC))
	mockRandom := mocks.NewMockRandom()
	store := memory.New(mockClock)

	idCfg := identity.DefaultConfig()
	idCfg.BotToken = TestBotToken
	idCfg.AllowMock = true

	app := newWithDependencies(store, mockClock, mockRandom, idCfg, handshake.DefaultConfig(), testutil.NopLogger())

	return &TestApp{
		App:        app,
		MockClock:  mockClock,
		MockRandom: mockRandom,
	}
}
