package runner

// TracePolicy implements spec.md §7's verbosity-gated trace inclusion rule, exposed as a pure function so a
// downstream printer needs no duplicate logic: verbosity 3 includes failed tests' execution traces, 4 adds failed
// setup traces, 5 includes everything regardless of outcome.
func TracePolicy(verbosity int, success bool) (includeSetup, includeExecution bool) {
	switch {
	case verbosity >= 5:
		return true, true
	case verbosity >= 4:
		return !success, !success
	case verbosity >= 3:
		return false, !success
	default:
		return false, false
	}
}
