package runner

import (
	"encoding/binary"
	"fmt"
	"math/big"
	"sync"

	"github.com/crytic/medusa-geth/common"
	"github.com/google/uuid"

	"github.com/crytic/testorch/compilation/types"
	"github.com/crytic/testorch/executor"
	"github.com/crytic/testorch/filter"
	"github.com/crytic/testorch/fuzzdriver"
	"github.com/crytic/testorch/linker"
)

// SuiteUpdate is one message sent on the optional stream channel as a suite completes (spec.md §4.6 step 4).
type SuiteUpdate struct {
	Suite  types.ArtifactId
	Result *SuiteResult
}

// MultiRunner orchestrates parallel execution across every in-scope suite produced by the Linker (spec.md §4.6).
// It is built once by RunnerBuilder.Build and may be reused across multiple Test calls with different filters.
type MultiRunner struct {
	deployable  types.DeployableContracts
	known       types.KnownContractMap
	linkSkipped []*linker.LinkError

	execBuilder    *executor.Builder
	sender         common.Address
	initialBalance *big.Int
	fuzzerConfig   fuzzdriver.Config
	verbosity      int
	runID          uuid.UUID
}

// KnownContracts returns the full indexed set of linked contracts (suites and plain contracts alike), retained for
// downstream trace identification (spec.md §3 KnownContractMap).
func (m *MultiRunner) KnownContracts() types.KnownContractMap {
	return m.known
}

// LinkSkipped returns every suite the Linker had to drop due to an unresolvable library reference (spec.md §7
// LinkError: "logged and the offending suite is dropped").
func (m *MultiRunner) LinkSkipped() []*linker.LinkError {
	return m.linkSkipped
}

// CountFilteredTests reports how many test functions, across every suite admitted by f's path/contract rules, match
// f's test-name rule -- spec.md §6 "count_filtered_tests(filter) -> usize".
func (m *MultiRunner) CountFilteredTests(f *filter.Filter) int {
	count := 0
	for id, contract := range m.deployable {
		if !f.MatchesPath(id.SourcePath) || !f.MatchesContract(id.Name) {
			continue
		}
		for _, method := range contract.TestMethods() {
			if f.MatchesTest(method.Sig) {
				count++
			}
		}
	}
	return count
}

// ResolveSingleTest requires f to admit exactly one test across every in-scope suite, returning its suite id and
// signature, or an error naming the actual match count. Supplements spec.md with the original's `--debug <pattern>`
// single-test guard (SPEC_FULL.md §4).
func (m *MultiRunner) ResolveSingleTest(f *filter.Filter) (types.ArtifactId, string, error) {
	var matchID types.ArtifactId
	var matchSig string
	count := 0

	for _, id := range m.filteredSuiteIDs(f) {
		contract := m.deployable[id]
		for _, method := range contract.TestMethods() {
			if f.MatchesTest(method.Sig) {
				count++
				matchID, matchSig = id, method.Sig
			}
		}
	}

	if count != 1 {
		return types.ArtifactId{}, "", fmt.Errorf("expected exactly one matching test, found %d", count)
	}
	return matchID, matchSig, nil
}

// Test runs every suite f admits (spec.md §4.6): each suite gets its own freshly built Executor and runs
// concurrently. If stream is non-nil, a SuiteUpdate is sent on it as each suite completes, in completion order, not
// enumeration order; the caller is responsible for draining it promptly since production never blocks on it filling
// past its buffer. A ConfigError/RunError from any suite aborts the whole run; per-suite domain failures (deploy,
// setUp, test failures) are never reported as errors here, only inside the returned SuiteResults.
func (m *MultiRunner) Test(f *filter.Filter, stream chan<- SuiteUpdate, includeFuzzTests bool) (*SuiteResults, error) {
	ids := m.filteredSuiteIDs(f)

	type outcome struct {
		id     types.ArtifactId
		result *SuiteResult
		err    error
	}

	outcomes := make(chan outcome, len(ids))
	var wg sync.WaitGroup
	for _, id := range ids {
		id := id
		wg.Add(1)
		go func() {
			defer wg.Done()
			result, err := m.runSuite(f, id, m.deployable[id], includeFuzzTests)
			outcomes <- outcome{id: id, result: result, err: err}
		}()
	}
	go func() {
		wg.Wait()
		close(outcomes)
	}()

	results := newSuiteResults()
	var firstErr error
	for o := range outcomes {
		if o.err != nil {
			if firstErr == nil {
				firstErr = o.err
			}
			continue
		}
		results.set(o.id, o.result)
		if stream != nil {
			stream <- SuiteUpdate{Suite: o.id, Result: o.result}
		}
	}
	if firstErr != nil {
		return nil, firstErr
	}
	return results, nil
}

// runSuite builds a fresh, isolated Executor for one suite and runs it to completion. Tracing is enabled iff the
// configured verbosity is at least 3 (spec.md §4.6 step 3).
func (m *MultiRunner) runSuite(f *filter.Filter, id types.ArtifactId, contract *types.DeployableContract, includeFuzzTests bool) (*SuiteResult, error) {
	exec, err := m.execBuilder.Clone().WithTracing(m.verbosity >= 3).Build()
	if err != nil {
		return nil, newRunError(fmt.Sprintf("could not build executor for suite %s: %v", id.Identifier(), err))
	}

	cr := &contractRunner{
		id:               id,
		contract:         contract,
		filter:           f,
		includeFuzzTests: includeFuzzTests,
		sender:           m.sender,
		initialBalance:   m.initialBalance,
		fuzzerConfig:     m.fuzzerConfig,
		seed:             seedForSuite(m.runID, id),
		verbosity:        m.verbosity,
	}
	return cr.run(exec)
}

// filteredSuiteIDs returns, in deterministic suite-identifier order, every suite admitted by f's path/contract rules
// that additionally declares at least one test function matching f's test-name rule (spec.md §4.6 step 2).
func (m *MultiRunner) filteredSuiteIDs(f *filter.Filter) []types.ArtifactId {
	var ids []types.ArtifactId
	for id, contract := range m.deployable {
		if !f.MatchesPath(id.SourcePath) || !f.MatchesContract(id.Name) {
			continue
		}
		for _, method := range contract.TestMethods() {
			if f.MatchesTest(method.Sig) {
				ids = append(ids, id)
				break
			}
		}
	}
	sortArtifactIDs(ids)
	return ids
}

// seedForSuite derives a suite's fuzz seed deterministically from the run id and suite identifier (spec.md §5:
// "each gets a fresh seed derived deterministically from the suite identifier to make runs reproducible").
func seedForSuite(runID uuid.UUID, id types.ArtifactId) int64 {
	derived := uuid.NewSHA1(runID, []byte(id.Identifier()))
	return int64(binary.BigEndian.Uint64(derived[:8]))
}
