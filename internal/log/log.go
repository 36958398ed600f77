// Package log provides logging configuration for nextcloud_sync.
package log

import (
	"github.com/sirupsen/logrus"

	"github.com/webdav-tools/nextcloud_sync/internal/health"
)

// NewFormatter returns the standard log formatter with full timestamps
func NewFormatter(noColors bool) logrus.Formatter {
	return &logrus.TextFormatter{
		FullTimestamp:   true,
		TimestampFormat: "2006-01-02 15:04:05.000",
		DisableColors:   noColors,
	}
}

// HealthHook touches the health marker on every emitted log entry, so any
// observable progress counts as liveness evidence for the external probe.
type HealthHook struct {
	reporter *health.Reporter
}

// NewHealthHook creates a hook backed by the given reporter
func NewHealthHook(reporter *health.Reporter) *HealthHook {
	return &HealthHook{reporter: reporter}
}

// Levels implements logrus.Hook for all log levels
func (h *HealthHook) Levels() []logrus.Level {
	return logrus.AllLevels
}

// Fire implements logrus.Hook; the marker write is best effort and never
// returns an error to logrus.
func (h *HealthHook) Fire(_ *logrus.Entry) error {
	h.reporter.Touch()
	return nil
}
