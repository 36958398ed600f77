package sync

import (
	"context"
	"errors"
	"time"

	"github.com/sirupsen/logrus"
)

// ErrSyncFailed is returned by Start in run-once mode when the single
// cycle exhausts its retry budget.
var ErrSyncFailed = errors.New("synchronization failed")

// MaintenanceRunner performs the optional once-per-day maintenance action
// at the top of a cycle.
type MaintenanceRunner interface {
	RunIfDue(ctx context.Context)
}

// Service drives sync cycles: a single cycle in run-once mode, or an
// unbounded periodic loop otherwise. At most one sync subprocess is ever
// in flight; concurrent syncs against the same directory would race on
// file state.
type Service struct {
	config      *Config
	invoker     Invoker
	maintenance MaintenanceRunner

	cycles    int
	successes int
	failures  int
}

// NewService creates a scheduler around the given invoker. maintenance
// may be nil.
func NewService(config *Config, invoker Invoker, maintenance MaintenanceRunner) *Service {
	return &Service{
		config:      config,
		invoker:     invoker,
		maintenance: maintenance,
	}
}

// Start runs the service until completion (run-once) or until the context
// is cancelled (continuous). A clean shutdown is not an error.
func (s *Service) Start(ctx context.Context) error {
	if s.config.RunOnce {
		logrus.Info("Running in single-sync mode")
		switch s.RunCycle(ctx) {
		case OutcomeSuccess:
			return nil
		case OutcomeAborted:
			logrus.Info("Sync aborted by shutdown request")
			return nil
		default:
			return ErrSyncFailed
		}
	}

	logrus.WithField("interval", s.config.SleepInterval).Info("Starting continuous sync loop")
	for {
		if ctx.Err() != nil {
			logrus.Info("Sync loop stopped")
			return nil
		}

		// A failed cycle does not terminate the loop; the next interval
		// gets a fresh retry budget.
		s.RunCycle(ctx)

		if !s.sleep(ctx) {
			logrus.Info("Sync loop stopped during sleep")
			return nil
		}
	}
}

// RunCycle executes one full sync cycle and records its outcome.
func (s *Service) RunCycle(ctx context.Context) Outcome {
	if s.maintenance != nil {
		s.maintenance.RunIfDue(ctx)
	}

	s.cycles++
	outcome, attempts := s.runWithRetries(ctx)

	switch outcome {
	case OutcomeSuccess:
		s.successes++
	case OutcomeAborted:
		logrus.Info("Sync cycle aborted by shutdown request")
	case OutcomeExhausted:
		s.failures++
		// attempts is below the budget when fast-fail stopped the cycle.
		logrus.WithFields(logrus.Fields{
			"attempts":     attempts,
			"max_attempts": s.config.MaxRetries + 1,
		}).Error("Sync cycle failed")
	}

	logrus.WithFields(logrus.Fields{
		"cycle":     s.cycles,
		"successes": s.successes,
		"failures":  s.failures,
		"outcome":   outcome.String(),
	}).Info("Sync cycle finished")

	return outcome
}

// sleep waits the configured interval between cycles, returning false
// when the context is cancelled first. Cancellation ends the wait
// immediately; there is no polling granularity to pay for.
func (s *Service) sleep(ctx context.Context) bool {
	timer := time.NewTimer(s.config.SleepInterval)
	defer timer.Stop()

	select {
	case <-ctx.Done():
		return false
	case <-timer.C:
		return true
	}
}
