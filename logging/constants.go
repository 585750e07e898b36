package logging

// These constants identify the package emitting a given log line, set via Logger.NewSubLogger("module", ...).
const (
	// FilterService identifies log lines coming from the filter package.
	FilterService = "filter"
	// LinkerService identifies log lines coming from the linker package.
	LinkerService = "linker"
	// ExecutorService identifies log lines coming from the executor package.
	ExecutorService = "executor"
	// RunnerService identifies log lines coming from the runner package.
	RunnerService = "runner"
	// FuzzDriverService identifies log lines coming from the fuzzdriver package.
	FuzzDriverService = "fuzzdriver"
	// CLIService identifies log lines coming from the cmd package.
	CLIService = "cli"
)
