package nextcloud

// Classification describes the outcome of one sync attempt, derived from
// the external client's exit status.
type Classification int

const (
	// Success means the client exited 0 and the directories are in sync.
	Success Classification = iota
	// TransientFailure covers network or server hiccups worth retrying.
	TransientFailure
	// AuthFailure means the server rejected the credentials.
	AuthFailure
	// ConfigFailure means the client rejected its own configuration,
	// typically a malformed server URL.
	ConfigFailure
	// Timeout means the attempt exceeded its wall-clock budget.
	Timeout
)

// Exit codes reported by the external sync client. 124 is the
// conventional code of a timeout wrapper and is honored for parity.
const (
	exitCodeSuccess = 0
	exitCodeConfig  = 4
	exitCodeAuth    = 6
	exitCodeTimeout = 124
)

func (c Classification) String() string {
	switch c {
	case Success:
		return "success"
	case TransientFailure:
		return "transient failure"
	case AuthFailure:
		return "authentication failure"
	case ConfigFailure:
		return "configuration failure"
	case Timeout:
		return "timeout"
	default:
		return "unknown"
	}
}

// Retryable reports whether an outcome is worth another attempt at all.
// Auth and config failures are deterministic: retrying them only delays
// the failure signal.
func (c Classification) Retryable() bool {
	switch c {
	case AuthFailure, ConfigFailure:
		return false
	default:
		return c != Success
	}
}

// Classify maps an exit status to an outcome classification. timedOut is
// set when the attempt was killed by its own deadline, which the killed
// process cannot report through an exit code.
func Classify(exitCode int, timedOut bool) Classification {
	if timedOut {
		return Timeout
	}
	switch exitCode {
	case exitCodeSuccess:
		return Success
	case exitCodeTimeout:
		return Timeout
	case exitCodeAuth:
		return AuthFailure
	case exitCodeConfig:
		return ConfigFailure
	default:
		return TransientFailure
	}
}
