package cache

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mcoot/miniapp-session/internal/dependencies/mocks"
	"github.com/mcoot/miniapp-session/internal/model"
)

func TestSetGetInvalidate(t *testing.T) {
	clk := mocks.NewMockClock(time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC))
	c := New(clk)

	user := &model.User{ID: "u1"}
	c.Set(KeyCurrentUser, user)

	entry, ok := c.Entry(KeyCurrentUser)
	require.True(t, ok)
	assert.Equal(t, clk.Now(), entry.UpdatedAt)

	got, ok := GetAs[*model.User](c, KeyCurrentUser)
	require.True(t, ok)
	assert.Same(t, user, got)

	_, ok = GetAs[string](c, KeyCurrentUser)
	assert.False(t, ok)

	c.Invalidate(KeyCurrentUser)
	_, ok = c.Get(KeyCurrentUser)
	assert.False(t, ok)
}

func TestClear(t *testing.T) {
	c := New(nil)
	c.Set("a", 1)
	c.Set("b", 2)
	c.Clear()
	_, ok := c.Get("a")
	assert.False(t, ok)
}

func TestFetchLoadsOnceOnHit(t *testing.T) {
	c := New(nil)
	var calls int32
	load := func(context.Context) (any, error) {
		atomic.AddInt32(&calls, 1)
		return "value", nil
	}

	for range 3 {
		v, err := c.Fetch(context.Background(), "k", load)
		require.NoError(t, err)
		assert.Equal(t, "value", v)
	}
	assert.Equal(t, int32(1), atomic.LoadInt32(&calls))
}

func TestFetchSharesConcurrentLoads(t *testing.T) {
	c := New(nil)
	var calls int32
	release := make(chan struct{})
	load := func(context.Context) (any, error) {
		atomic.AddInt32(&calls, 1)
		<-release
		return 42, nil
	}

	var wg sync.WaitGroup
	for range 5 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			v, err := c.Fetch(context.Background(), "k", load)
			assert.NoError(t, err)
			assert.Equal(t, 42, v)
		}()
	}
	time.Sleep(20 * time.Millisecond)
	close(release)
	wg.Wait()

	assert.Equal(t, int32(1), atomic.LoadInt32(&calls))
}

func TestFetchDoesNotCacheErrors(t *testing.T) {
	c := New(nil)
	boom := errors.New("boom")

	_, err := c.Fetch(context.Background(), "k", func(context.Context) (any, error) { return nil, boom })
	assert.ErrorIs(t, err, boom)

	v, err := c.Fetch(context.Background(), "k", func(context.Context) (any, error) { return "ok", nil })
	require.NoError(t, err)
	assert.Equal(t, "ok", v)
}

func TestRefreshReplaces(t *testing.T) {
	c := New(nil)
	c.Set("k", "old")
	v, err := c.Refresh(context.Background(), "k", func(context.Context) (any, error) { return "new", nil })
	require.NoError(t, err)
	assert.Equal(t, "new", v)
}
