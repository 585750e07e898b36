package exitcodes

const (
	// ================================
	// Platform-universal exit codes
	// ================================

	// ExitCodeSuccess indicates no errors or failures had occurred.
	ExitCodeSuccess = 0

	// ExitCodeGeneralError indicates some type of general error occurred.
	ExitCodeGeneralError = 1

	// ================================
	// Application-specific exit codes
	// ================================
	// Note: exit codes 2-5 are conventionally reserved by shells, so we avoid them.

	// ExitCodeConfigError indicates the run could not even start: an invalid runner configuration, an invalid filter
	// pattern, or a --debug pattern that does not select exactly one test (spec.md §7 ConfigError).
	ExitCodeConfigError = 6

	// ExitCodeRunError indicates an internal invariant was violated mid-run (spec.md §7 RunError).
	ExitCodeRunError = 7

	// ExitCodeTestFailed indicates the run completed but at least one test failed and allow_failure was not set.
	ExitCodeTestFailed = 8
)
