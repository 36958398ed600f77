// Package health maintains the liveness marker file consumed by an
// external probe. Writes are best effort: a failing marker update must
// never interfere with the sync loop.
package health

import (
	"os"
	"strings"
	"time"
)

// DefaultMarkerPath is the well-known location checked by the liveness probe.
const DefaultMarkerPath = "/tmp/nextcloud-sync-healthy"

// DefaultDailyMarkerPath records the last day the maintenance action ran.
const DefaultDailyMarkerPath = "/tmp/nextcloud-sync-update"

// Reporter writes liveness evidence to a marker file.
type Reporter struct {
	path string
	now  func() time.Time
}

// NewReporter creates a Reporter writing to the given marker path.
func NewReporter(path string) *Reporter {
	return &Reporter{path: path, now: time.Now}
}

// Touch writes the current timestamp to the marker file. Errors are
// swallowed: the probe interprets a stale marker as unhealthy, which is
// exactly what a persistently failing write should look like.
func (r *Reporter) Touch() {
	ts := r.now().Format(time.RFC3339)
	_ = os.WriteFile(r.path, []byte(ts+"\n"), 0644)
}

// Path returns the marker file location.
func (r *Reporter) Path() string {
	return r.path
}

// DailyMarker gates an action to at most one run per calendar day by
// storing the date of the last run.
type DailyMarker struct {
	path string
	now  func() time.Time
}

// NewDailyMarker creates a DailyMarker backed by the given file.
func NewDailyMarker(path string) *DailyMarker {
	return &DailyMarker{path: path, now: time.Now}
}

const dayFormat = "2006-01-02"

// IsDue reports whether the action has not yet run today. A missing or
// unreadable marker counts as due.
func (m *DailyMarker) IsDue() bool {
	data, err := os.ReadFile(m.path)
	if err != nil {
		return true
	}
	return strings.TrimSpace(string(data)) != m.now().Format(dayFormat)
}

// Mark records today's date. Returns the write error so the caller can
// decide whether to warn; the gate itself stays best effort.
func (m *DailyMarker) Mark() error {
	return os.WriteFile(m.path, []byte(m.now().Format(dayFormat)+"\n"), 0644)
}
