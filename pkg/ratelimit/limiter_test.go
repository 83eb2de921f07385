package ratelimit

import (
	"context"
	"testing"
	"time"

	"catalogscraper/pkg/config"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTokenBucket(t *testing.T) {
	tb := NewTokenBucket(5, 200*time.Millisecond)

	for i := 0; i < 5; i++ {
		assert.True(t, tb.Allow(), "token %d should be available", i+1)
	}
	assert.False(t, tb.Allow(), "bucket should be exhausted")

	time.Sleep(250 * time.Millisecond)
	assert.True(t, tb.Allow(), "bucket should refill after the period")

	tb.tokens = 0
	tb.Reset()
	assert.Equal(t, tb.capacity, tb.tokens)
}

func TestTokenBucketWaitHonoursContext(t *testing.T) {
	tb := NewTokenBucket(1, time.Hour)
	require.True(t, tb.Allow())

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()

	err := tb.Wait(ctx)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
}

func TestSlidingWindow(t *testing.T) {
	sw := NewSlidingWindow(3, 200*time.Millisecond)

	for i := 0; i < 3; i++ {
		assert.True(t, sw.Allow(), "request %d should be allowed", i+1)
	}
	assert.False(t, sw.Allow())

	require.NoError(t, sw.Wait(context.Background()))

	sw.Reset()
	assert.Empty(t, sw.requests)
}

func TestSmooth(t *testing.T) {
	s := NewSmooth(60, 2)
	assert.True(t, s.Allow())
	assert.True(t, s.Allow())
	assert.False(t, s.Allow(), "burst exhausted")

	s.Reset()
	assert.True(t, s.Allow())
}

func TestUnlimited(t *testing.T) {
	var u Unlimited
	for i := 0; i < 100; i++ {
		assert.True(t, u.Allow())
	}

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	assert.Error(t, u.Wait(ctx))
}

func TestNew(t *testing.T) {
	tests := []struct {
		strategy string
		want     interface{}
		wantErr  bool
	}{
		{"bucket", &TokenBucket{}, false},
		{"window", &SlidingWindow{}, false},
		{"smooth", &Smooth{}, false},
		{"none", Unlimited{}, false},
		{"leaky", nil, true},
	}

	for _, tt := range tests {
		t.Run(tt.strategy, func(t *testing.T) {
			l, err := New(config.RateLimitConfig{Strategy: tt.strategy, RequestsPerMinute: 60, BurstSize: 5})
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.IsType(t, tt.want, l)
		})
	}
}
