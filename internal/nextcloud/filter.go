package nextcloud

import (
	"strings"
)

// Keywords marking a client output line as worth surfacing in non-debug
// mode. The client is chatty about individual files; operators only need
// the attempt-level signal.
var interestKeywords = []string{
	"error",
	"failed",
	"success",
	"completed",
	"finished",
	"summary",
}

func interestingLine(line string) bool {
	trimmed := strings.TrimSpace(line)
	if trimmed == "" {
		return true
	}
	lower := strings.ToLower(trimmed)
	for _, kw := range interestKeywords {
		if strings.Contains(lower, kw) {
			return true
		}
	}
	return false
}

// FilterOutput splits the captured client output into lines and, unless
// debug is set, keeps only the interesting ones.
func FilterOutput(raw string, debug bool) []string {
	if raw == "" {
		return nil
	}
	lines := strings.Split(strings.TrimRight(raw, "\n"), "\n")
	if debug {
		return lines
	}
	var kept []string
	for _, line := range lines {
		if interestingLine(line) {
			kept = append(kept, line)
		}
	}
	return kept
}
