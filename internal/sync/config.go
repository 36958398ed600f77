// Package sync provides the sync-cycle orchestration for nextcloud_sync:
// configuration resolution, the per-cycle retry controller and the
// scheduler loop around it.
package sync

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/sirupsen/logrus"
)

// Bounds and defaults for the optional settings. Invalid values are
// clamped to the default with a warning rather than rejected: an
// unattended container should keep syncing on a typo'd tuning knob.
const (
	DefaultMaxRetries = 4
	MinRetries        = 1
	MaxRetries        = 10

	DefaultSleep = 300 * time.Second
	MinSleep     = 30 * time.Second

	DefaultSyncDir = "/media/nextcloud/data"

	// BackoffStep is the linear backoff unit between failed attempts.
	BackoffStep = 30 * time.Second
)

// RawConfig carries the unparsed settings as read from the environment or
// command line. Numeric and boolean fields stay strings so that garbage
// input can warn-and-default instead of failing the parse.
type RawConfig struct {
	User           string
	Password       string
	ServerURL      string
	SyncDir        string
	Retries        string
	Sleep          string
	RunOnce        string
	Debug          string
	FastFailAuth   string
	PreflightFatal string
	DailyUpdate    string
}

// Config is the resolved, validated application configuration. Built once
// at startup and immutable afterwards.
type Config struct {
	User      string
	Password  string // opaque, never logged
	ServerURL string
	SyncDir   string

	MaxRetries    int
	SleepInterval time.Duration
	BackoffStep   time.Duration

	RunOnce bool
	Debug   bool

	// FastFailOnAuthError stops a cycle on auth/config exit codes instead
	// of burning the retry budget on a deterministic failure.
	FastFailOnAuthError bool
	// FatalOnPreflightFailure turns a failed server preflight into a
	// startup abort instead of a warning.
	FatalOnPreflightFailure bool
	// DailyUpdate enables the once-per-day package index refresh.
	DailyUpdate bool
}

// NewConfig validates raw settings into a Config. All missing required
// settings are enumerated in a single error, named by their environment
// variables so the operator can fix them in one pass.
func NewConfig(raw RawConfig) (*Config, error) {
	var missing []string
	if strings.TrimSpace(raw.User) == "" {
		missing = append(missing, "NEXTCLOUD_USER")
	}
	if raw.Password == "" {
		missing = append(missing, "NEXTCLOUD_PASS")
	}
	if strings.TrimSpace(raw.ServerURL) == "" {
		missing = append(missing, "NEXTCLOUD_URL")
	}
	if len(missing) > 0 {
		return nil, fmt.Errorf("missing required settings: %s", strings.Join(missing, ", "))
	}

	config := &Config{
		User:                    strings.TrimSpace(raw.User),
		Password:                raw.Password,
		ServerURL:               strings.TrimSpace(raw.ServerURL),
		SyncDir:                 strings.TrimSpace(raw.SyncDir),
		MaxRetries:              parseRetries(raw.Retries),
		SleepInterval:           parseSleep(raw.Sleep),
		BackoffStep:             BackoffStep,
		RunOnce:                 parseBool(raw.RunOnce),
		Debug:                   parseBool(raw.Debug),
		FastFailOnAuthError:     parseBoolDefault(raw.FastFailAuth, true),
		FatalOnPreflightFailure: parseBool(raw.PreflightFatal),
		DailyUpdate:             parseBool(raw.DailyUpdate),
	}
	if config.SyncDir == "" {
		config.SyncDir = DefaultSyncDir
	}

	logrus.WithFields(logrus.Fields{
		"server":      config.ServerURL,
		"user":        config.User,
		"sync_dir":    config.SyncDir,
		"max_retries": config.MaxRetries,
		"sleep":       config.SleepInterval,
		"run_once":    config.RunOnce,
	}).Info("Configuration validated")

	return config, nil
}

func parseRetries(raw string) int {
	if raw == "" {
		return DefaultMaxRetries
	}
	n, err := strconv.Atoi(strings.TrimSpace(raw))
	if err != nil || n < MinRetries || n > MaxRetries {
		logrus.WithField("value", raw).
			Warnf("Invalid retry count, must be %d-%d, using default %d", MinRetries, MaxRetries, DefaultMaxRetries)
		return DefaultMaxRetries
	}
	return n
}

func parseSleep(raw string) time.Duration {
	if raw == "" {
		return DefaultSleep
	}
	n, err := strconv.Atoi(strings.TrimSpace(raw))
	if err != nil || time.Duration(n)*time.Second < MinSleep {
		logrus.WithField("value", raw).
			Warnf("Invalid sleep interval, must be at least %v, using default %v", MinSleep, DefaultSleep)
		return DefaultSleep
	}
	return time.Duration(n) * time.Second
}

func parseBool(raw string) bool {
	return parseBoolDefault(raw, false)
}

func parseBoolDefault(raw string, def bool) bool {
	if strings.TrimSpace(raw) == "" {
		return def
	}
	b, err := strconv.ParseBool(strings.TrimSpace(raw))
	if err != nil {
		return def
	}
	return b
}
