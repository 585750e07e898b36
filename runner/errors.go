package runner

import (
	"errors"

	pkgerrors "github.com/pkg/errors"
)

// Sentinel error kinds implementing spec.md §7's taxonomy for the two categories that actually propagate out of
// MultiRunner as Go errors. Deploy/Setup/TestFailure/FuzzRejectOverflow are per-suite or per-test domain outcomes
// captured in a SuiteResult/TestResult, never returned as an error (see contract_runner.go); LinkError is likewise
// captured by the linker package itself (linker.Result.Skipped). Only ConfigError and RunError are fatal enough to
// abort the whole run, so only they get sentinels here, each wrapped with github.com/pkg/errors for a captured
// stack trace, matching the teacher's convention of attaching .Stack() to fatal log lines.
var (
	// ErrConfig identifies a ConfigError, the kind Config.Validate returns for a missing sender. Filter regex errors
	// come back from filter.New unwrapped, and executor build failures (an unreachable fork endpoint included) are
	// RunErrors.
	ErrConfig = errors.New("invalid runner configuration")

	// ErrRun identifies a RunError: an internal invariant violation, e.g. an Executor returning an impossible state.
	ErrRun = errors.New("internal run invariant violated")
)

// newConfigError wraps msg as a fatal ConfigError satisfying errors.Is(err, ErrConfig).
func newConfigError(msg string) error {
	return pkgerrors.Wrap(ErrConfig, msg)
}

// newRunError wraps msg as a fatal RunError satisfying errors.Is(err, ErrRun).
func newRunError(msg string) error {
	return pkgerrors.Wrap(ErrRun, msg)
}
