package runner

import (
	"fmt"
	"math/big"
	"strings"
	"time"

	"github.com/crytic/medusa-geth/accounts/abi"
	"github.com/crytic/medusa-geth/common"
	gethtypes "github.com/crytic/medusa-geth/core/types"

	"github.com/crytic/testorch/compilation/types"
	"github.com/crytic/testorch/executor"
	"github.com/crytic/testorch/filter"
	"github.com/crytic/testorch/fuzzdriver"
	"github.com/crytic/testorch/logging"
)

var runnerLogger = logging.GlobalLogger.NewSubLogger("module", logging.RunnerService)

// dsTestFailedSlot is the well-known storage slot DSTest-style base contracts use for the soft `failed()`
// assertion flag (spec.md §6 "load_storage ... used to read DSTest failed flag at slot 0").
var dsTestFailedSlot = common.Hash{}

// contractRunner runs one suite to completion against a freshly built Executor (spec.md §4.4). It never touches
// another suite's state: all work here is sequential and single-threaded on its own Executor.
type contractRunner struct {
	id       types.ArtifactId
	contract *types.DeployableContract
	filter   *filter.Filter

	includeFuzzTests bool
	sender           common.Address
	initialBalance   *big.Int
	fuzzerConfig     fuzzdriver.Config
	seed             int64
	verbosity        int
}

// run executes the full suite sequence (pre-fund, deploy libraries, deploy contract, setUp, dispatch tests) and
// always returns a SuiteResult: per-suite deploy/setup failures are captured in it, never returned as an error.
// Only an internal invariant violation (an impossible Executor response) is surfaced as a RunError.
func (r *contractRunner) run(exec executor.Executor) (*SuiteResult, error) {
	start := time.Now()
	result := &SuiteResult{}

	exec.SetBalance(r.sender, r.initialBalance)

	for _, lib := range r.contract.LibraryDeployments {
		_, _, trace, err := exec.Deploy(r.sender, lib.InitBytecode, big.NewInt(0))
		if err != nil {
			result.add("constructor()", deployFailureResult(trace, fmt.Sprintf("failed to deploy library %s: %s", lib.Name, err)))
			result.Duration = time.Since(start)
			return result, nil
		}
	}

	contractAddr, _, deployTrace, err := exec.Deploy(r.sender, r.contract.LinkedInitBytecode, big.NewInt(0))
	if err != nil {
		runnerLogger.Warn("suite ", r.id.Identifier(), " failed to deploy: ", err)
		result.add("constructor()", deployFailureResult(deployTrace, err.Error()))
		result.Duration = time.Since(start)
		return result, nil
	}

	var setupTrace *executor.Trace
	if setUp, ok := r.contract.Abi.Methods["setUp"]; ok && len(setUp.Inputs) == 0 {
		callResult, callErr := exec.Call(r.sender, contractAddr, setUp.ID, big.NewInt(0), executor.TraceKindSetup)
		if callErr != nil {
			return nil, newRunError(fmt.Sprintf("executor returned an error calling setUp() for %s: %v", r.id.Identifier(), callErr))
		}
		setupTrace = callResult.Trace
		if callResult.Reverted {
			includeSetup, _ := TracePolicy(r.verbosity, false)
			tr := traceRecords(deployTrace, setupTrace, nil, includeSetup, false)
			result.add("setUp()", &TestResult{
				Success: false,
				Reason:  "Setup failed: " + callResult.RevertReason,
				Traces:  tr,
				Kind:    TestKind{Tag: TestKindStandard},
			})
			result.Duration = time.Since(start)
			return result, nil
		}
	}

	for _, method := range r.contract.TestMethods() {
		signature := method.Sig
		if !r.filter.MatchesTest(signature) {
			continue
		}

		var testResult *TestResult
		if len(method.Inputs) == 0 {
			testResult, err = r.runStandardTest(exec, contractAddr, method, deployTrace, setupTrace)
		} else {
			if !r.includeFuzzTests {
				continue
			}
			testResult, err = r.runFuzzTest(exec, contractAddr, method, deployTrace, setupTrace)
		}
		if err != nil {
			return nil, err
		}
		result.add(signature, testResult)
	}

	result.Duration = time.Since(start)
	return result, nil
}

// expectedFailurePredicate reports, for the given test name, whether an outcome described by (reverted, dsFailed)
// should be treated as a test failure -- the inversion point for spec.md §4.4's testFail convention. A testFail*
// test inverts purely on revert; the DSTest soft-assertion flag never overrides that inversion, since spec.md §4.4
// defines the testFail rule solely in terms of reverting.
func expectedFailurePredicate(name string) func(reverted, dsFailed bool) bool {
	if strings.HasPrefix(name, "testFail") {
		return func(reverted, dsFailed bool) bool { return !reverted }
	}
	return func(reverted, dsFailed bool) bool { return reverted || dsFailed }
}

func (r *contractRunner) runStandardTest(exec executor.Executor, to common.Address, method abi.Method, deployTrace, setupTrace *executor.Trace) (*TestResult, error) {
	callResult, err := exec.Call(r.sender, to, method.ID, big.NewInt(0), executor.TraceKindExecution)
	if err != nil {
		return nil, newRunError(fmt.Sprintf("executor returned an error calling %s: %v", method.Sig, err))
	}

	dsFailed := exec.LoadStorage(to, dsTestFailedSlot) != dsTestFailedSlot
	isFailure := expectedFailurePredicate(method.Name)(callResult.Reverted, dsFailed)

	reason := ""
	if isFailure {
		reason = callResult.RevertReason
		if reason == "" && dsFailed {
			reason = "assertion failed"
		}
	}

	includeSetup, includeExecution := TracePolicy(r.verbosity, !isFailure)
	return &TestResult{
		Success:          !isFailure,
		Reason:            reason,
		Logs:             callResult.Logs,
		Traces:           traceRecords(deployTrace, setupTrace, callResult.Trace, includeSetup, includeExecution),
		LabeledAddresses: map[common.Address]string{to: r.id.Name},
		Kind:             TestKind{Tag: TestKindStandard, Gas: callResult.GasUsed},
	}, nil
}

func (r *contractRunner) runFuzzTest(exec executor.Executor, to common.Address, method abi.Method, deployTrace, setupTrace *executor.Trace) (*TestResult, error) {
	predicate := expectedFailurePredicate(method.Name)
	cfg := r.fuzzerConfig
	cfg.Seed = r.seed

	var lastExecutionTrace *executor.Trace
	var lastLogs []*gethtypes.Log
	var lastDSFailed bool

	isFailure := func(o fuzzdriver.Outcome) bool {
		return predicate(o.Reverted, lastDSFailed)
	}
	invoke := func(args []any) (fuzzdriver.Outcome, error) {
		calldata, err := method.Inputs.Pack(args...)
		if err != nil {
			return fuzzdriver.Outcome{}, fmt.Errorf("could not encode fuzz calldata: %w", err)
		}
		calldata = append(append([]byte{}, method.ID...), calldata...)

		snap := exec.Snapshot()
		callResult, callErr := exec.Call(r.sender, to, calldata, big.NewInt(0), executor.TraceKindExecution)
		if callErr == nil {
			lastExecutionTrace = callResult.Trace
			lastLogs = callResult.Logs
			lastDSFailed = exec.LoadStorage(to, dsTestFailedSlot) != dsTestFailedSlot
		}
		if revertErr := exec.RevertTo(snap); revertErr != nil {
			return fuzzdriver.Outcome{}, fmt.Errorf("could not restore snapshot after fuzz case: %w", revertErr)
		}
		if callErr != nil {
			return fuzzdriver.Outcome{}, fmt.Errorf("executor returned an error calling %s: %w", method.Sig, callErr)
		}

		return fuzzdriver.Outcome{Reverted: callResult.Reverted, RevertReason: callResult.RevertReason, GasUsed: callResult.GasUsed}, nil
	}

	driverResult, err := fuzzdriver.Run(method, cfg, isFailure, invoke)
	if err != nil {
		return nil, newRunError(err.Error())
	}

	kind := TestKind{Tag: TestKindFuzz, Cases: driverResult.Cases, MedianGas: driverResult.MedianGas, MeanGas: driverResult.MeanGas}

	if !driverResult.Success {
		var counterexample *Counterexample
		if driverResult.Counterexample != nil {
			counterexample = &Counterexample{
				Calldata:    driverResult.Counterexample.Calldata,
				DecodedArgs: driverResult.Counterexample.Args,
			}
		}
		includeSetup, includeExecution := TracePolicy(r.verbosity, false)
		return &TestResult{
			Success:          false,
			Reason:           driverResult.Reason,
			Counterexample:   counterexample,
			Logs:             lastLogs,
			Traces:           traceRecords(deployTrace, setupTrace, lastExecutionTrace, includeSetup, includeExecution),
			LabeledAddresses: map[common.Address]string{to: r.id.Name},
			Kind:             kind,
		}, nil
	}

	return &TestResult{
		Success:          true,
		LabeledAddresses: map[common.Address]string{to: r.id.Name},
		Kind:             kind,
	}, nil
}

func deployFailureResult(trace *executor.Trace, reason string) *TestResult {
	var traces []TraceRecord
	if trace != nil {
		traces = []TraceRecord{{Kind: executor.TraceKindDeployment, Trace: trace}}
	}
	return &TestResult{
		Success: false,
		Reason:  reason,
		Traces:  traces,
		Kind:    TestKind{Tag: TestKindStandard},
	}
}

// traceRecords assembles the trace list attached to a TestResult, gating the setup and execution traces behind
// TracePolicy's verbosity thresholds (spec.md §7); the deployment trace is always included when present, since every
// subsequent phase depends on it for context.
func traceRecords(deployTrace, setupTrace, executionTrace *executor.Trace, includeSetup, includeExecution bool) []TraceRecord {
	var records []TraceRecord
	if deployTrace != nil {
		records = append(records, TraceRecord{Kind: executor.TraceKindDeployment, Trace: deployTrace})
	}
	if includeSetup && setupTrace != nil {
		records = append(records, TraceRecord{Kind: executor.TraceKindSetup, Trace: setupTrace})
	}
	if includeExecution && executionTrace != nil {
		records = append(records, TraceRecord{Kind: executor.TraceKindExecution, Trace: executionTrace})
	}
	return records
}
