// Package runner implements the spec's RunnerBuilder, ContractRunner, MultiRunner and Outcome components: it
// assembles suites from a linked deployable set, runs each one to a SuiteResult, orchestrates all suites in
// parallel, and aggregates the final TestOutcome.
package runner

import (
	"time"

	"github.com/crytic/medusa-geth/common"
	gethtypes "github.com/crytic/medusa-geth/core/types"

	"github.com/crytic/testorch/compilation/types"
	"github.com/crytic/testorch/executor"
	"github.com/crytic/testorch/fuzzdriver"
)

// TestKindTag discriminates the two shapes TestKind can take (spec.md §3).
type TestKindTag int

const (
	// TestKindStandard is a zero-argument test invoked exactly once.
	TestKindStandard TestKindTag = iota
	// TestKindFuzz is a property test invoked with many generated argument tuples.
	TestKindFuzz
)

// TestKind is the tagged union spec.md §3 describes as `Standard { gas } | Fuzz { cases, median_gas, mean_gas }`.
type TestKind struct {
	Tag TestKindTag `json:"tag"`

	// Gas is set when Tag == TestKindStandard.
	Gas uint64 `json:"gas,omitempty"`

	// Cases, MedianGas, MeanGas are set when Tag == TestKindFuzz.
	Cases     []fuzzdriver.Case `json:"cases,omitempty"`
	MedianGas uint64            `json:"medianGas,omitempty"`
	MeanGas   uint64            `json:"meanGas,omitempty"`
}

// GasUsed returns the single representative gas figure for this test: the standard call's gas, or the fuzz run's
// mean gas across accepted cases. Kept so a downstream gas-report builder (out of scope here, see SPEC_FULL.md §4)
// never needs to branch on Tag itself.
func (k TestKind) GasUsed() uint64 {
	if k.Tag == TestKindStandard {
		return k.Gas
	}
	return k.MeanGas
}

// Counterexample is the minimal failing input a Fuzz test's shrinker converged on.
type Counterexample struct {
	Calldata    []byte `json:"calldata"`
	DecodedArgs []any  `json:"decodedArgs"`
}

// TraceRecord pairs a raw execution Trace with the phase of suite execution that produced it.
type TraceRecord struct {
	Kind  executor.TraceKind `json:"kind"`
	Trace *executor.Trace    `json:"trace"`
}

// TestResult is one test function's verdict (spec.md §3).
type TestResult struct {
	Success          bool                      `json:"success"`
	Reason           string                    `json:"reason,omitempty"`
	Counterexample   *Counterexample           `json:"counterexample,omitempty"`
	Logs             []*gethtypes.Log          `json:"logs,omitempty"`
	Traces           []TraceRecord             `json:"traces,omitempty"`
	LabeledAddresses map[common.Address]string `json:"labeledAddresses,omitempty"`
	Kind             TestKind                  `json:"kind"`
}

// NamedTestResult pairs a test's full signature with its result, preserving execution order: signature order, which
// DeployableContract.TestMethods uses in place of the ABI's declaration order.
type NamedTestResult struct {
	Signature string      `json:"signature"`
	Result    *TestResult `json:"result"`
}

// SuiteResult is one suite's outcome (spec.md §3): an ordered list of test results plus the suite's wall-clock
// duration. Ordering is preserved rather than using a bare map, since Go maps have no iteration order guarantee.
type SuiteResult struct {
	Duration    time.Duration     `json:"duration"`
	TestResults []NamedTestResult `json:"testResults"`
}

// Get returns the result for signature, preserving the invariant that a suite never contains two results for the
// same signature (spec.md §3).
func (s *SuiteResult) Get(signature string) (*TestResult, bool) {
	for _, nr := range s.TestResults {
		if nr.Signature == signature {
			return nr.Result, true
		}
	}
	return nil, false
}

// add appends a named result, in execution order.
func (s *SuiteResult) add(signature string, result *TestResult) {
	s.TestResults = append(s.TestResults, NamedTestResult{Signature: signature, Result: result})
}

// SuiteResults is the MultiRunner's final aggregated output: deterministically keyed by suite identifier and
// iterable in that sorted order (spec.md §5), backed by an explicit order slice since Go maps don't preserve one.
type SuiteResults struct {
	order []types.ArtifactId
	byID  map[types.ArtifactId]*SuiteResult
}

func newSuiteResults() *SuiteResults {
	return &SuiteResults{byID: make(map[types.ArtifactId]*SuiteResult)}
}

// set records id's result, appending id to the order slice the first time it is seen (Range sorts that slice).
func (s *SuiteResults) set(id types.ArtifactId, result *SuiteResult) {
	if _, exists := s.byID[id]; !exists {
		s.order = append(s.order, id)
	}
	s.byID[id] = result
}

// Get returns the suite result for id, if present.
func (s *SuiteResults) Get(id types.ArtifactId) (*SuiteResult, bool) {
	r, ok := s.byID[id]
	return r, ok
}

// Len returns the number of suites present.
func (s *SuiteResults) Len() int {
	return len(s.order)
}

// Range calls fn for every suite in ascending suite-identifier order.
func (s *SuiteResults) Range(fn func(id types.ArtifactId, result *SuiteResult)) {
	for _, id := range s.sortedOrder() {
		fn(id, s.byID[id])
	}
}

func (s *SuiteResults) sortedOrder() []types.ArtifactId {
	ordered := make([]types.ArtifactId, len(s.order))
	copy(ordered, s.order)
	sortArtifactIDs(ordered)
	return ordered
}
