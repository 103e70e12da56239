package clock_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/mcoot/miniapp-session/internal/dependencies/clock"
	"github.com/mcoot/miniapp-session/internal/dependencies/mocks"
)

func TestUntil(t *testing.T) {
	now := time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC)
	clk := mocks.NewMockClock(now)

	assert.Equal(t, 90*time.Second, clock.Until(clk, now.Add(90*time.Second)))
	assert.Equal(t, time.Duration(0), clock.Until(clk, now))
	assert.Equal(t, time.Duration(0), clock.Until(clk, now.Add(-time.Minute)))
}

func TestRealClockAdvances(t *testing.T) {
	before := time.Now()
	assert.False(t, clock.New().Now().Before(before))
}
