package utils

import (
	"bytes"
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func init() {
	BackoffUnit = time.Millisecond
}

var errFlaky = errors.New("flaky")

func TestRetryWithBackoffSucceedsAfterFailures(t *testing.T) {
	calls := 0
	err := RetryWithBackoff(context.Background(), 3, func() error {
		calls++
		if calls < 3 {
			return errFlaky
		}
		return nil
	}, nil, NewDiscardLogger())
	require.NoError(t, err)
	require.Equal(t, 3, calls)
}

func TestRetryWithBackoffGivesUp(t *testing.T) {
	calls := 0
	err := RetryWithBackoff(context.Background(), 2, func() error {
		calls++
		return errFlaky
	}, nil, NewDiscardLogger())
	require.ErrorIs(t, err, errFlaky)
	require.Equal(t, 2, calls)
}

func TestRetryWithBackoffStopsOnPermanentError(t *testing.T) {
	permanent := errors.New("permanent")
	calls := 0
	err := RetryWithBackoff(context.Background(), 5, func() error {
		calls++
		return permanent
	}, func(err error) bool { return !errors.Is(err, permanent) }, NewDiscardLogger())
	require.ErrorIs(t, err, permanent)
	require.Equal(t, 1, calls)
}

func TestRetryWithBackoffHonoursCancellation(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	calls := 0
	err := RetryWithBackoff(ctx, 5, func() error {
		calls++
		cancel()
		return errFlaky
	}, nil, NewDiscardLogger())
	require.ErrorIs(t, err, errFlaky)
	require.Contains(t, err.Error(), "aborted")
	require.Equal(t, 1, calls)
}

func TestRateLimiterSpacesCalls(t *testing.T) {
	limiter := NewRateLimiter(40)
	ctx := context.Background()

	start := time.Now()
	require.NoError(t, limiter.Wait(ctx))
	require.Less(t, time.Since(start), 30*time.Millisecond)

	require.NoError(t, limiter.Wait(ctx))
	require.GreaterOrEqual(t, time.Since(start), 40*time.Millisecond)
}

func TestRateLimiterCancelled(t *testing.T) {
	limiter := NewRateLimiter(10_000)
	require.NoError(t, limiter.Wait(context.Background()))

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer cancel()
	require.ErrorIs(t, limiter.Wait(ctx), context.DeadlineExceeded)
}

func TestURLTracker(t *testing.T) {
	tracker := NewURLTracker()
	require.True(t, tracker.Add("https://mall.example/goods/1"))
	require.False(t, tracker.Add(" https://mall.example/goods/1 "))
	require.True(t, tracker.Add("https://mall.example/goods/2"))
	require.True(t, tracker.Add(""))
	require.True(t, tracker.Add(""))
	require.Equal(t, 2, tracker.Count())
}

func TestLoggerLevelsAndFields(t *testing.T) {
	var buf bytes.Buffer
	logger := NewLoggerTo(&buf, "warn").WithMall("jeju")

	logger.Info("hidden %d", 1)
	logger.Warn("shown %d", 2)

	out := buf.String()
	require.NotContains(t, out, "hidden")
	require.Contains(t, out, "shown 2")
	require.Contains(t, out, "mall=jeju")
}

func TestLoggerUnknownLevelFallsBackToInfo(t *testing.T) {
	var buf bytes.Buffer
	logger := NewLoggerTo(&buf, "chatty")
	logger.Debug("dropped")
	logger.Info("kept")
	require.NotContains(t, buf.String(), "dropped")
	require.Contains(t, buf.String(), "kept")
}
