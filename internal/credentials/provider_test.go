package credentials

import (
	"context"
	"encoding/json"
	"net/url"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mcoot/miniapp-session/internal/dependencies/mocks"
	"github.com/mcoot/miniapp-session/internal/model"
	"github.com/mcoot/miniapp-session/internal/platform"
	"github.com/mcoot/miniapp-session/internal/prefs"
	"github.com/mcoot/miniapp-session/internal/testutil"
)

const liveInitData = "user=%7B%22id%22%3A42%7D&auth_date=1700000000&hash=deadbeef"

func newProvider(t *testing.T, signal string, store prefs.Store) *Provider {
	t.Helper()
	probe := platform.NewProbe(platform.StaticSignals(signal), store, platform.Config{AllowOverrides: true}, testutil.NopLogger())
	clk := mocks.NewMockClock(time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC))
	return NewProvider(probe, clk)
}

func TestWebModeSendsEmptyIdentityHeader(t *testing.T) {
	creds, err := newProvider(t, "", prefs.NewMemory()).Build(context.Background())
	require.NoError(t, err)

	assert.Equal(t, model.PlatformWeb, creds.Platform.Kind)
	assert.Contains(t, creds.Header, HeaderInitData)
	assert.Empty(t, creds.Header.Get(HeaderInitData))
	assert.NotContains(t, creds.Header, HeaderMock)
}

func TestEmbeddedModeForwardsLiveInitData(t *testing.T) {
	header, err := newProvider(t, liveInitData, prefs.NewMemory()).Headers(context.Background())
	require.NoError(t, err)

	assert.Equal(t, liveInitData, header.Get(HeaderInitData))
	assert.Empty(t, header.Get(HeaderMock))
}

func TestMockModeSynthesizesInitDataForSelectedIdentity(t *testing.T) {
	ctx := context.Background()
	store := prefs.NewMemory()
	require.NoError(t, platform.SetMockMode(ctx, store, true))
	set := platform.DefaultMockIdentities()
	_, err := platform.SelectIdentity(ctx, store, set, set[1].ID)
	require.NoError(t, err)

	header, err := newProvider(t, liveInitData, store).Headers(ctx)
	require.NoError(t, err)

	assert.Equal(t, "true", header.Get(HeaderMock))

	values, err := url.ParseQuery(header.Get(HeaderInitData))
	require.NoError(t, err)
	var user model.MockIdentity
	require.NoError(t, json.Unmarshal([]byte(values.Get("user")), &user))
	assert.Equal(t, set[1], user)
}

func TestMockModeWithoutSelectionUsesFirstIdentity(t *testing.T) {
	ctx := context.Background()
	store := prefs.NewMemory()
	require.NoError(t, platform.SetMockMode(ctx, store, true))

	header, err := newProvider(t, "", store).Headers(ctx)
	require.NoError(t, err)

	values, err := url.ParseQuery(header.Get(HeaderInitData))
	require.NoError(t, err)
	var user model.MockIdentity
	require.NoError(t, json.Unmarshal([]byte(values.Get("user")), &user))
	assert.Equal(t, platform.DefaultMockIdentities()[0].ID, user.ID)
}

func TestMockDisabledSuppressesStaleInjectedIdentity(t *testing.T) {
	ctx := context.Background()
	store := prefs.NewMemory()
	// A previous mock session left a selection behind
	set := platform.DefaultMockIdentities()
	_, err := platform.SelectIdentity(ctx, store, set, set[3].ID)
	require.NoError(t, err)
	require.NoError(t, platform.SetMockMode(ctx, store, false))

	creds, err := newProvider(t, liveInitData, store).Build(ctx)
	require.NoError(t, err)

	assert.Equal(t, model.PlatformWeb, creds.Platform.Kind)
	assert.Empty(t, creds.Header.Get(HeaderInitData))
	assert.Empty(t, creds.Header.Get(HeaderMock))
}

type failingStore struct{ prefs.Memory }

func (f *failingStore) Get(ctx context.Context, key string) (string, bool, error) {
	return "", false, assert.AnError
}

func TestStoreFailureAbortsHeaderBuild(t *testing.T) {
	_, err := newProvider(t, "", &failingStore{}).Headers(context.Background())
	assert.ErrorIs(t, err, assert.AnError)
}
