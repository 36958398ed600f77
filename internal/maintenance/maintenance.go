// Package maintenance refreshes the system package index at most once per
// calendar day, as a companion action to the sync loop. Failures are
// warnings only; maintenance must never affect synchronization.
package maintenance

import (
	"context"
	"os/exec"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/webdav-tools/nextcloud_sync/internal/health"
)

// Tool identifies the package manager available on the platform.
type Tool int

const (
	ToolNone Tool = iota
	ToolApk
	ToolAptGet
)

func (t Tool) String() string {
	switch t {
	case ToolApk:
		return "apk"
	case ToolAptGet:
		return "apt-get"
	default:
		return "none"
	}
}

// refresh command per tool, as discrete argument lists.
var toolCommands = map[Tool][]string{
	ToolApk:    {"apk", "update"},
	ToolAptGet: {"apt-get", "update"},
}

// updateTimeout bounds the refresh so a wedged package manager cannot
// delay the sync cycle indefinitely.
const updateTimeout = 5 * time.Minute

// DetectTool probes PATH once at startup and returns the first known
// package manager found.
func DetectTool() Tool {
	for _, tool := range []Tool{ToolApk, ToolAptGet} {
		if _, err := exec.LookPath(toolCommands[tool][0]); err == nil {
			return tool
		}
	}
	return ToolNone
}

// Updater runs the daily package index refresh, gated by a date marker.
type Updater struct {
	tool   Tool
	marker *health.DailyMarker
	runner func(ctx context.Context, argv []string) error
}

// NewUpdater creates an Updater for the given tool and marker.
func NewUpdater(tool Tool, marker *health.DailyMarker) *Updater {
	return &Updater{
		tool:   tool,
		marker: marker,
		runner: runCommand,
	}
}

// RunIfDue performs the refresh when it has not yet run today. The marker
// is set only on success, so a failed refresh is retried next cycle.
func (u *Updater) RunIfDue(ctx context.Context) {
	if u.tool == ToolNone || !u.marker.IsDue() {
		return
	}

	logrus.WithField("tool", u.tool.String()).Info("Running daily package index refresh")
	if err := u.runner(ctx, toolCommands[u.tool]); err != nil {
		logrus.WithError(err).WithField("tool", u.tool.String()).
			Warn("Daily package index refresh failed")
		return
	}

	if err := u.marker.Mark(); err != nil {
		logrus.WithError(err).Warn("Failed to record daily update marker")
	}
}

func runCommand(ctx context.Context, argv []string) error {
	ctx, cancel := context.WithTimeout(ctx, updateTimeout)
	defer cancel()

	cmd := exec.CommandContext(ctx, argv[0], argv[1:]...)
	return cmd.Run()
}
