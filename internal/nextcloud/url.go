package nextcloud

import (
	"strings"
)

// NormalizeServerURL turns whatever the operator configured (bare host,
// full URL, URL with a WebDAV sub-path) into the canonical server URL the
// sync client expects: scheme://host[:port][/path] without a trailing slash.
// Only trailing DAV sub-paths are stripped; a hostname or path segment
// that merely contains "webdav" is left alone.
func NormalizeServerURL(raw string) string {
	u := strings.TrimSpace(raw)
	if u == "" {
		return u
	}
	if !strings.Contains(u, "://") {
		u = "https://" + u
	}
	u = strings.TrimRight(u, "/")

	// remote.php marks the server's DAV endpoint; it cannot occur in a
	// hostname, and everything from it onward (e.g. /remote.php/dav/files/
	// alice) belongs to the sync client, not the server URL.
	if idx := strings.Index(strings.ToLower(u), "/remote.php/"); idx >= 0 {
		u = u[:idx]
	}

	// A plain trailing /webdav path segment, pasted from older setups.
	// Guard the scheme boundary so a host literally named "webdav" survives.
	lower := strings.ToLower(u)
	if strings.HasSuffix(lower, "/webdav") && !strings.HasSuffix(lower, "://webdav") {
		u = u[:len(u)-len("/webdav")]
	}

	return strings.TrimRight(u, "/")
}
