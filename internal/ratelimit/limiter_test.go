package ratelimit

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNew_NonPositiveRateIsUnlimited(t *testing.T) {
	for _, rps := range []float64{0, -5} {
		l := New(rps, 10)
		assert.Nil(t, l)
		for range 100 {
			require.NoError(t, l.Wait(context.Background()))
		}
	}
}

func TestNew_BurstFloor(t *testing.T) {
	l := New(10, 0)
	require.NotNil(t, l)
	assert.Equal(t, 1, l.bucket.Burst())
}

func TestWait_NilLimiterHonoursCancelledContext(t *testing.T) {
	var l *Limiter
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	assert.ErrorIs(t, l.Wait(ctx), context.Canceled)
}

func TestWait_BurstPassesImmediately(t *testing.T) {
	l := New(1, 5)
	start := time.Now()
	for range 5 {
		require.NoError(t, l.Wait(context.Background()))
	}
	assert.Less(t, time.Since(start), 50*time.Millisecond)
}

func TestWait_CancelReturnsToken(t *testing.T) {
	l := New(1, 1)
	require.NoError(t, l.Wait(context.Background()))

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	assert.ErrorIs(t, l.Wait(ctx), context.Canceled)
	assert.InDelta(t, 0, l.bucket.Tokens(), 0.1)
}

func TestWait_PacesAtRate(t *testing.T) {
	l := New(4, 1)
	l.unit = func() float64 { return 0.5 } // no jitter
	require.NoError(t, l.Wait(context.Background()))

	start := time.Now()
	require.NoError(t, l.Wait(context.Background()))
	elapsed := time.Since(start)
	assert.GreaterOrEqual(t, elapsed, 200*time.Millisecond)
	assert.Less(t, elapsed, 400*time.Millisecond)
}

func TestJitter(t *testing.T) {
	tests := []struct {
		name string
		d    time.Duration
		u    float64
		want time.Duration
	}{
		{"no delay", 0, 0.9, 0},
		{"negative delay", -time.Second, 0.9, 0},
		{"lower bound", time.Second, 0, 800 * time.Millisecond},
		{"midpoint", time.Second, 0.5, time.Second},
		{"upper half", time.Second, 0.75, 1100 * time.Millisecond},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, jitter(tc.d, tc.u))
		})
	}
}
