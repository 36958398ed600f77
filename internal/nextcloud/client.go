// Package nextcloud wraps the external nextcloudcmd sync client as an
// opaque subprocess: it builds the invocation, bounds it with a wall-clock
// timeout, captures its output and classifies its exit status.
package nextcloud

import (
	"bytes"
	"context"
	"errors"
	"os/exec"
	"time"

	"github.com/sirupsen/logrus"
)

// DefaultBinary is the sync client looked up on PATH.
const DefaultBinary = "nextcloudcmd"

// DefaultTimeout bounds one sync attempt so a hung transfer cannot stall
// the supervisor forever.
const DefaultTimeout = 1800 * time.Second

// outputDrainDelay is how long Wait may keep collecting output after the
// deadline kill. Killing the client does not close pipes inherited by its
// descendants; without this bound a forked helper would hold the attempt
// open past its deadline.
const outputDrainDelay = 3 * time.Second

// HealthToucher receives liveness evidence on successful attempts.
type HealthToucher interface {
	Touch()
}

// AttemptResult holds the outcome of a single sync attempt. It is
// consumed by the retry controller and then discarded.
type AttemptResult struct {
	ExitCode       int
	Classification Classification
	Output         []string
}

// Client invokes the external sync client for one local/remote pair.
type Client struct {
	Binary    string
	SyncDir   string
	ServerURL string
	User      string
	Password  string
	Timeout   time.Duration
	Debug     bool

	health HealthToucher
}

// NewClient creates a sync client invoker. serverURL is normalized here
// so every attempt uses the canonical form.
func NewClient(syncDir, serverURL, user, password string, health HealthToucher) *Client {
	return &Client{
		Binary:    DefaultBinary,
		SyncDir:   syncDir,
		ServerURL: NormalizeServerURL(serverURL),
		User:      user,
		Password:  password,
		Timeout:   DefaultTimeout,
		health:    health,
	}
}

// args builds the client invocation as a discrete argument list. Never a
// shell string: credentials may contain characters a shell would mangle.
func (c *Client) args() []string {
	args := []string{"--non-interactive", "--trust"}
	if !c.Debug {
		args = append(args, "--silent")
	}
	args = append(args, "-u", c.User, "-p", c.Password, c.SyncDir, c.ServerURL)
	return args
}

// Sync runs one sync attempt under the configured timeout and returns its
// classified result. The subprocess is the only party allowed to touch
// the sync directory while it runs. The attempt is detached from the
// caller's cancellation: a shutdown request must not kill a transfer in
// flight, it only prevents the next attempt from starting.
func (c *Client) Sync(ctx context.Context) *AttemptResult {
	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), c.Timeout)
	defer cancel()

	cmd := exec.CommandContext(ctx, c.Binary, c.args()...)
	cmd.WaitDelay = outputDrainDelay
	var combined bytes.Buffer
	cmd.Stdout = &combined
	cmd.Stderr = &combined

	logrus.WithFields(logrus.Fields{
		"server":   c.ServerURL,
		"sync_dir": c.SyncDir,
		"user":     c.User,
	}).Info("Starting sync attempt")

	err := cmd.Run()
	timedOut := errors.Is(ctx.Err(), context.DeadlineExceeded)

	exitCode := 0
	if err != nil {
		var exitErr *exec.ExitError
		switch {
		case errors.As(err, &exitErr):
			exitCode = exitErr.ExitCode()
		case timedOut:
			// Killed by the deadline, or ErrWaitDelay from a descendant
			// still holding the output pipe after the kill.
			exitCode = -1
		default:
			exitCode = -1
			logrus.WithError(err).Error("Failed to run sync client")
		}
	}

	result := &AttemptResult{
		ExitCode:       exitCode,
		Classification: Classify(exitCode, timedOut),
		Output:         FilterOutput(combined.String(), c.Debug),
	}

	for _, line := range result.Output {
		logrus.WithField("source", "nextcloudcmd").Info(line)
	}

	if result.Classification == Success {
		logrus.Info("Sync completed successfully")
		if c.health != nil {
			c.health.Touch()
		}
	} else {
		logrus.WithFields(logrus.Fields{
			"exit_code":      result.ExitCode,
			"classification": result.Classification.String(),
		}).Warn("Sync attempt failed")
	}

	return result
}
