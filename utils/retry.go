package utils

import (
	"context"
	"fmt"
	"time"
)

// BackoffUnit is the base of the quadratic backoff (attempt² × unit)
var BackoffUnit = time.Second

// RetryWithBackoff retries fn up to maxRetries times with quadratic backoff.
// Errors for which retryable returns false are returned immediately; a nil retryable
// retries everything.
func RetryWithBackoff(ctx context.Context, maxRetries int, fn func() error, retryable func(error) bool, logger *Logger) error {
	if maxRetries < 1 {
		maxRetries = 1
	}
	var lastErr error
	for attempt := 0; attempt < maxRetries; attempt++ {
		if attempt > 0 {
			backoff := time.Duration(attempt*attempt) * BackoffUnit
			logger.Warn("Retrying (attempt %d/%d) after %v...", attempt+1, maxRetries, backoff)
			timer := time.NewTimer(backoff)
			select {
			case <-ctx.Done():
				timer.Stop()
				return fmt.Errorf("retry aborted after %d attempts: %w", attempt, lastErr)
			case <-timer.C:
			}
		}
		err := fn()
		if err == nil {
			return nil
		}
		lastErr = err
		logger.Error("Attempt %d failed: %v", attempt+1, err)
		if retryable != nil && !retryable(err) {
			return err
		}
	}
	return fmt.Errorf("all %d attempts failed, last error: %w", maxRetries, lastErr)
}
