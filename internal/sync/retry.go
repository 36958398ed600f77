package sync

import (
	"context"
	"errors"
	"fmt"

	"github.com/sirupsen/logrus"

	"github.com/webdav-tools/nextcloud_sync/internal/nextcloud"
	"github.com/webdav-tools/nextcloud_sync/internal/retry"
)

// Outcome is the terminal state of one sync cycle.
type Outcome int

const (
	// OutcomeSuccess means an attempt within the budget succeeded.
	OutcomeSuccess Outcome = iota
	// OutcomeExhausted means the cycle gave up: all attempts failed, or a
	// non-retryable failure stopped it early.
	OutcomeExhausted
	// OutcomeAborted means a shutdown request ended the cycle. Not a
	// failure; reported distinctly so nobody logs "all attempts failed"
	// after a deliberate stop.
	OutcomeAborted
)

func (o Outcome) String() string {
	switch o {
	case OutcomeSuccess:
		return "success"
	case OutcomeExhausted:
		return "exhausted"
	case OutcomeAborted:
		return "aborted"
	default:
		return "unknown"
	}
}

// Invoker abstracts the external sync client so the controller can be
// tested without a subprocess.
type Invoker interface {
	Sync(ctx context.Context) *nextcloud.AttemptResult
}

var errNonRetryable = errors.New("non-retryable failure")

// runWithRetries drives one sync cycle: up to MaxRetries+1 attempts with
// linear backoff (attempt × step) between failures. A cancelled context is
// observed before each attempt and during each wait, so no new attempt
// starts after shutdown is requested; an in-flight attempt is never killed
// here, it runs to its own timeout. Returns the outcome and the number of
// attempts actually made, which is below the budget when a non-retryable
// failure or a shutdown stopped the cycle early.
func (s *Service) runWithRetries(ctx context.Context) (Outcome, int) {
	config := &retry.Config{
		MaxRetries: uint64(s.config.MaxRetries),
		Step:       s.config.BackoffStep,
	}
	maxAttempts := s.config.MaxRetries + 1
	attempt := 0

	err := retry.Do(ctx, config, func(ctx context.Context) error {
		if err := ctx.Err(); err != nil {
			return err
		}
		attempt++

		result := s.invoker.Sync(ctx)
		if result.Classification == nextcloud.Success {
			return nil
		}

		if s.config.FastFailOnAuthError && !result.Classification.Retryable() {
			logrus.WithFields(logrus.Fields{
				"classification": result.Classification.String(),
				"exit_code":      result.ExitCode,
			}).Error("Non-retryable failure, giving up without retries")
			return fmt.Errorf("%w: %s", errNonRetryable, result.Classification)
		}

		logrus.WithFields(logrus.Fields{
			"attempt":        attempt,
			"max_attempts":   maxAttempts,
			"classification": result.Classification.String(),
		}).Warn("Sync attempt failed, will retry after backoff")
		return retry.Retryable(fmt.Errorf("attempt %d/%d failed: %s", attempt, maxAttempts, result.Classification))
	})

	switch {
	case err == nil:
		return OutcomeSuccess, attempt
	case errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded):
		return OutcomeAborted, attempt
	default:
		return OutcomeExhausted, attempt
	}
}
