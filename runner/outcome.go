package runner

import (
	"fmt"
	"time"

	"github.com/crytic/testorch/compilation/types"
)

// QualifiedResult names one test result by the suite it belongs to, for Outcome's flattened iteration (spec.md
// §4.7: "iterate all (name, result) pairs").
type QualifiedResult struct {
	Suite     types.ArtifactId
	Signature string
	Result    *TestResult
}

// Outcome is the MultiRunner's final verdict (spec.md §3 TestOutcome, §4.7 Outcome): every suite's results plus the
// allow_failure policy that governs EnsureOK.
type Outcome struct {
	AllowFailure bool
	Results      *SuiteResults
}

// Successes returns every passing test result, in suite-identifier then declaration order.
func (o *Outcome) Successes() []QualifiedResult {
	return o.filter(func(r *TestResult) bool { return r.Success })
}

// Failures returns every failing test result, in suite-identifier then declaration order.
func (o *Outcome) Failures() []QualifiedResult {
	return o.filter(func(r *TestResult) bool { return !r.Success })
}

func (o *Outcome) filter(keep func(*TestResult) bool) []QualifiedResult {
	var out []QualifiedResult
	o.Results.Range(func(id types.ArtifactId, suite *SuiteResult) {
		for _, named := range suite.TestResults {
			if keep(named.Result) {
				out = append(out, QualifiedResult{Suite: id, Signature: named.Signature, Result: named.Result})
			}
		}
	})
	return out
}

// Duration sums every suite's wall-clock duration (spec.md §4.7).
func (o *Outcome) Duration() time.Duration {
	var total time.Duration
	o.Results.Range(func(_ types.ArtifactId, suite *SuiteResult) {
		total += suite.Duration
	})
	return total
}

// Summary formats a human-readable one-line rollup: pass/fail counts and wall time.
func (o *Outcome) Summary() string {
	passed := len(o.Successes())
	failed := len(o.Failures())
	return fmt.Sprintf("%d passed, %d failed, %d suites in %s", passed, failed, o.Results.Len(), o.Duration())
}

// EnsureOK implements spec.md §4.7/§6's exit-code policy: a non-nil error requests a non-zero exit. allow_failure
// suppresses it regardless of how many tests failed.
func (o *Outcome) EnsureOK() error {
	if o.AllowFailure {
		return nil
	}
	failures := o.Failures()
	if len(failures) == 0 {
		return nil
	}
	return fmt.Errorf("%d test(s) failed: %s", len(failures), o.Summary())
}
