// Package retry provides common retry logic with linear backoff for nextcloud_sync.
package retry

import (
	"context"
	"time"

	"github.com/sethvargo/go-retry"
	"github.com/sirupsen/logrus"
)

// Config holds configuration for retry logic
type Config struct {
	MaxRetries uint64
	Step       time.Duration
}

// SyncDefaults returns the retry policy for sync attempts: linear waits of
// attempt × 30s between failures.
func SyncDefaults() *Config {
	return &Config{
		MaxRetries: 4,
		Step:       30 * time.Second,
	}
}

// ProbeDefaults returns the retry policy for the connectivity preflight,
// kept short so startup is not delayed long by an unreachable server.
func ProbeDefaults() *Config {
	return &Config{
		MaxRetries: 2,
		Step:       5 * time.Second,
	}
}

// NewLinear creates a backoff whose n-th delay is n × step. The supervisor
// uses linear rather than exponential waits: the retry budget is small and
// the server is expected back within minutes, not hours.
func NewLinear(step time.Duration) retry.Backoff {
	var attempt uint64
	return retry.BackoffFunc(func() (time.Duration, bool) {
		attempt++
		return time.Duration(attempt) * step, false
	})
}

// CreateBackoff creates a bounded linear backoff strategy from config
func (c *Config) CreateBackoff() retry.Backoff {
	backoff := NewLinear(c.Step)
	backoff = retry.WithMaxRetries(c.MaxRetries, backoff)
	return backoff
}

// Do executes f under the config's backoff. f marks recoverable errors
// with Retryable; any other error, or a cancelled context, stops the loop.
func Do(ctx context.Context, config *Config, f func(ctx context.Context) error) error {
	return retry.Do(ctx, config.CreateBackoff(), f)
}

// Retryable marks an error as worth another attempt.
func Retryable(err error) error {
	return retry.RetryableError(err)
}

// WithOperation performs a general operation with retry logic
func WithOperation(ctx context.Context, config *Config, operation func() error, operationName string) error {
	backoff := config.CreateBackoff()
	return retry.Do(ctx, backoff, func(ctx context.Context) error {
		err := operation()
		if err != nil {
			logrus.WithError(err).
				WithField("operation", operationName).
				Warn("Operation failed, retrying...")
			return retry.RetryableError(err)
		}
		return nil
	})
}
