package scheduler

import (
	"context"
	"testing"
	"time"

	clierr "github.com/ggonzalez94/goldilocks-keeper/internal/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEveryIsFixedDelay(t *testing.T) {
	s, err := Every(120 * time.Second)
	require.NoError(t, err)
	start := time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC)
	assert.Equal(t, start.Add(2*time.Minute), s.Next(start))
	assert.Equal(t, "every 2m0s", s.Describe())
}

func TestEveryRejectsNonPositive(t *testing.T) {
	_, err := Every(0)
	require.Error(t, err)
	assert.True(t, clierr.Is(err, clierr.CodeConfig))
}

func TestParseCronAndDescriptors(t *testing.T) {
	start := time.Date(2026, 1, 1, 12, 0, 30, 0, time.UTC)

	s, err := Parse("*/5 * * * *")
	require.NoError(t, err)
	assert.Equal(t, time.Date(2026, 1, 1, 12, 5, 0, 0, time.UTC), s.Next(start))

	s, err = Parse("@every 90s")
	require.NoError(t, err)
	assert.Equal(t, start.Add(90*time.Second), s.Next(start))

	s, err = Parse("0 */2 * * * *")
	require.NoError(t, err)
	assert.Equal(t, time.Date(2026, 1, 1, 12, 2, 0, 0, time.UTC), s.Next(start))
}

func TestParseRejectsGarbage(t *testing.T) {
	_, err := Parse("every tuesday")
	require.Error(t, err)
	assert.True(t, clierr.Is(err, clierr.CodeConfig))
}

func TestWaitHonoursCancellation(t *testing.T) {
	s, err := Every(time.Hour)
	require.NoError(t, err)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	require.ErrorIs(t, s.Wait(ctx), context.Canceled)
}

func TestWaitReturnsWhenDue(t *testing.T) {
	s, err := Every(time.Second)
	require.NoError(t, err)
	base := time.Now()
	s.now = func() time.Time { return base.Add(-999 * time.Millisecond) }
	require.NoError(t, s.Wait(context.Background()))
}
