package runner

import (
	"math/big"
	"strings"
	"testing"

	"github.com/crytic/medusa-geth/accounts/abi"
	"github.com/crytic/medusa-geth/common"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/crytic/testorch/compilation/types"
	"github.com/crytic/testorch/executor"
	"github.com/crytic/testorch/filter"
	"github.com/crytic/testorch/fuzzdriver"
)

func mustABI(t *testing.T, json string) abi.ABI {
	t.Helper()
	parsed, err := abi.JSON(strings.NewReader(json))
	require.NoError(t, err)
	return parsed
}

// stubCall is one canned Call response a fakeExecutor hands back for a registered selector/handler.
type stubCall struct {
	reverted     bool
	revertReason string
	dsFailed     bool
}

type callHandler func(calldata []byte) stubCall

// fakeExecutor is a minimal executor.Executor double driven by canned per-selector responses, letting
// ContractRunner's orchestration logic be exercised without a real EVM.
type fakeExecutor struct {
	deployErr error
	addr      common.Address

	handlers map[[4]byte]callHandler
	dsFailed map[common.Address]bool

	snapshots map[executor.SnapshotID]bool
	nextSnap  executor.SnapshotID
	tracing   bool
}

func newFakeExecutor() *fakeExecutor {
	return &fakeExecutor{
		addr:      common.HexToAddress("0xaaaa000000000000000000000000000000aaaa"),
		handlers:  make(map[[4]byte]callHandler),
		dsFailed:  make(map[common.Address]bool),
		snapshots: make(map[executor.SnapshotID]bool),
	}
}

func (f *fakeExecutor) stub(selector []byte, c stubCall) {
	f.handle(selector, func([]byte) stubCall { return c })
}

func (f *fakeExecutor) handle(selector []byte, h callHandler) {
	var key [4]byte
	copy(key[:], selector)
	f.handlers[key] = h
}

func (f *fakeExecutor) Deploy(from common.Address, bytecode []byte, value *big.Int) (common.Address, uint64, *executor.Trace, error) {
	trace := &executor.Trace{Kind: executor.TraceKindDeployment, From: from}
	if f.deployErr != nil {
		trace.Reverted = true
		return common.Address{}, 0, trace, f.deployErr
	}
	return f.addr, 50000, trace, nil
}

func (f *fakeExecutor) Call(from, to common.Address, calldata []byte, value *big.Int, kind executor.TraceKind) (*executor.CallResult, error) {
	var key [4]byte
	copy(key[:], calldata)

	h, ok := f.handlers[key]
	if !ok {
		return &executor.CallResult{Trace: &executor.Trace{Kind: kind, From: from, To: &to}}, nil
	}

	stub := h(calldata)
	if stub.dsFailed {
		f.dsFailed[to] = true
	}
	return &executor.CallResult{
		Reverted:     stub.reverted,
		RevertReason: stub.revertReason,
		GasUsed:      21000,
		Trace:        &executor.Trace{Kind: kind, From: from, To: &to, Reverted: stub.reverted},
	}, nil
}

func (f *fakeExecutor) Snapshot() executor.SnapshotID {
	id := f.nextSnap
	f.nextSnap++
	f.snapshots[id] = true
	return id
}

func (f *fakeExecutor) RevertTo(id executor.SnapshotID) error {
	if _, ok := f.snapshots[id]; !ok {
		return executor.ErrInvalidSnapshot
	}
	delete(f.snapshots, id)
	return nil
}

func (f *fakeExecutor) SetBalance(address common.Address, amount *big.Int) {}

func (f *fakeExecutor) LoadStorage(address common.Address, slot common.Hash) common.Hash {
	if f.dsFailed[address] {
		return common.BigToHash(big.NewInt(1))
	}
	return common.Hash{}
}

func (f *fakeExecutor) WithTracing(enabled bool) { f.tracing = enabled }

// TestContractRunner_TestFailInversion covers spec.md S1: a reverting testFail* call passes.
func TestContractRunner_TestFailInversion(t *testing.T) {
	suiteABI := mustABI(t, `[{"type":"function","name":"testFailRevert","inputs":[],"outputs":[]}]`)
	method := suiteABI.Methods["testFailRevert"]

	exec := newFakeExecutor()
	exec.stub(method.ID, stubCall{reverted: true, revertReason: "nope"})

	f, err := filter.New(filter.Config{})
	require.NoError(t, err)

	cr := &contractRunner{
		id:             types.ArtifactId{SourcePath: "core/Reverting.t.sol", Name: "RevertingTest"},
		contract:       &types.DeployableContract{Abi: suiteABI},
		filter:         f,
		sender:         common.HexToAddress("0x1"),
		initialBalance: big.NewInt(0),
	}

	result, err := cr.run(exec)
	require.NoError(t, err)

	tr, ok := result.Get("testFailRevert()")
	require.True(t, ok)
	assert.True(t, tr.Success)
	assert.Equal(t, TestKindStandard, tr.Kind.Tag)
}

// TestContractRunner_FailingSetup covers spec.md S2: a reverting setUp() short-circuits the suite with a single
// synthetic "setUp()" failure and no test dispatch.
func TestContractRunner_FailingSetup(t *testing.T) {
	suiteABI := mustABI(t, `[
		{"type":"function","name":"setUp","inputs":[],"outputs":[]},
		{"type":"function","name":"testAlwaysPasses","inputs":[],"outputs":[]}
	]`)
	setUp := suiteABI.Methods["setUp"]

	exec := newFakeExecutor()
	exec.stub(setUp.ID, stubCall{reverted: true, revertReason: "setup failed predictably"})

	f, err := filter.New(filter.Config{})
	require.NoError(t, err)

	cr := &contractRunner{
		id:             types.ArtifactId{SourcePath: "core/FailingSetup.t.sol", Name: "FailingSetupTest"},
		contract:       &types.DeployableContract{Abi: suiteABI},
		filter:         f,
		sender:         common.HexToAddress("0x1"),
		initialBalance: big.NewInt(0),
	}

	result, err := cr.run(exec)
	require.NoError(t, err)
	require.Len(t, result.TestResults, 1)

	tr, ok := result.Get("setUp()")
	require.True(t, ok)
	assert.False(t, tr.Success)
	assert.Equal(t, "Setup failed: setup failed predictably", tr.Reason)
}

// TestContractRunner_PassingPair covers spec.md S3: two independent zero-argument tests both pass.
func TestContractRunner_PassingPair(t *testing.T) {
	suiteABI := mustABI(t, `[
		{"type":"function","name":"testAdd","inputs":[],"outputs":[]},
		{"type":"function","name":"testMultiply","inputs":[],"outputs":[]}
	]`)

	f, err := filter.New(filter.Config{})
	require.NoError(t, err)

	cr := &contractRunner{
		id:             types.ArtifactId{SourcePath: "core/SetupConsistency.t.sol", Name: "SetupConsistencyCheck"},
		contract:       &types.DeployableContract{Abi: suiteABI},
		filter:         f,
		sender:         common.HexToAddress("0x1"),
		initialBalance: big.NewInt(0),
	}

	result, err := cr.run(newFakeExecutor())
	require.NoError(t, err)
	require.Len(t, result.TestResults, 2)
	for _, nr := range result.TestResults {
		assert.True(t, nr.Result.Success)
		assert.Equal(t, TestKindStandard, nr.Result.Kind.Tag)
	}
}

// TestContractRunner_FuzzTestSkippedWhenDisabled covers spec.md §4.4 step 5: a fuzz test is skipped silently, not
// recorded as a failure, when includeFuzzTests is false.
func TestContractRunner_FuzzTestSkippedWhenDisabled(t *testing.T) {
	suiteABI := mustABI(t, `[{"type":"function","name":"testPositive","inputs":[{"type":"uint256"}],"outputs":[]}]`)

	f, err := filter.New(filter.Config{})
	require.NoError(t, err)

	cr := &contractRunner{
		id:               types.ArtifactId{SourcePath: "core/Fuzz.t.sol", Name: "FuzzTest"},
		contract:         &types.DeployableContract{Abi: suiteABI},
		filter:           f,
		includeFuzzTests: false,
		sender:           common.HexToAddress("0x1"),
		initialBalance:   big.NewInt(0),
	}

	result, err := cr.run(newFakeExecutor())
	require.NoError(t, err)
	assert.Empty(t, result.TestResults)
}

// TestContractRunner_FuzzTestShrinksCounterexample covers spec.md S6 at the ContractRunner level: the snapshot/
// revert/decode plumbing around fuzzdriver.Run produces a failing TestResult with a counterexample.
func TestContractRunner_FuzzTestShrinksCounterexample(t *testing.T) {
	suiteABI := mustABI(t, `[{"type":"function","name":"testNegative","inputs":[{"type":"uint256"}],"outputs":[]}]`)
	method := suiteABI.Methods["testNegative"]

	exec := newFakeExecutor()
	exec.handle(method.ID, func(calldata []byte) stubCall {
		args, err := method.Inputs.Unpack(calldata[4:])
		require.NoError(t, err)
		n := args[0].(*big.Int)
		if n.Cmp(big.NewInt(100)) > 0 {
			return stubCall{reverted: true, revertReason: "too big"}
		}
		return stubCall{}
	})

	f, err := filter.New(filter.Config{})
	require.NoError(t, err)

	cr := &contractRunner{
		id:               types.ArtifactId{SourcePath: "core/Fuzz.t.sol", Name: "FuzzTest"},
		contract:         &types.DeployableContract{Abi: suiteABI},
		filter:           f,
		includeFuzzTests: true,
		sender:           common.HexToAddress("0x1"),
		initialBalance:   big.NewInt(0),
		fuzzerConfig:     fuzzdriver.Config{Cases: 64, MaxLocalRejects: 100, MaxGlobalRejects: 1000},
		seed:             7,
	}

	result, err := cr.run(exec)
	require.NoError(t, err)

	tr, ok := result.Get("testNegative(uint256)")
	require.True(t, ok)
	assert.False(t, tr.Success)
	require.NotNil(t, tr.Counterexample)
	assert.Equal(t, TestKindFuzz, tr.Kind.Tag)
}

// TestContractRunner_DeployFailureSurfacesSyntheticConstructorResult covers spec.md §7 DeployError: a reverted
// constructor never reaches test dispatch and is reported as a single synthetic "constructor()" failure.
func TestContractRunner_DeployFailureSurfacesSyntheticConstructorResult(t *testing.T) {
	suiteABI := mustABI(t, `[{"type":"function","name":"testFoo","inputs":[],"outputs":[]}]`)

	exec := newFakeExecutor()
	exec.deployErr = executor.ErrDeployReverted

	f, err := filter.New(filter.Config{})
	require.NoError(t, err)

	cr := &contractRunner{
		id:             types.ArtifactId{SourcePath: "core/Broken.t.sol", Name: "BrokenTest"},
		contract:       &types.DeployableContract{Abi: suiteABI},
		filter:         f,
		sender:         common.HexToAddress("0x1"),
		initialBalance: big.NewInt(0),
	}

	result, err := cr.run(exec)
	require.NoError(t, err)
	require.Len(t, result.TestResults, 1)

	tr, ok := result.Get("constructor()")
	require.True(t, ok)
	assert.False(t, tr.Success)
}

// TestContractRunner_DSTestFailedFlagOverridesNonTestFail covers spec.md §4.4's soft-assertion rule: a non-testFail
// call that doesn't revert still fails if the DSTest failed() flag was set.
func TestContractRunner_DSTestFailedFlagOverridesNonTestFail(t *testing.T) {
	suiteABI := mustABI(t, `[{"type":"function","name":"testSoftAssert","inputs":[],"outputs":[]}]`)
	method := suiteABI.Methods["testSoftAssert"]

	exec := newFakeExecutor()
	exec.stub(method.ID, stubCall{reverted: false, dsFailed: true})

	f, err := filter.New(filter.Config{})
	require.NoError(t, err)

	cr := &contractRunner{
		id:             types.ArtifactId{SourcePath: "core/Soft.t.sol", Name: "SoftTest"},
		contract:       &types.DeployableContract{Abi: suiteABI},
		filter:         f,
		sender:         common.HexToAddress("0x1"),
		initialBalance: big.NewInt(0),
	}

	result, err := cr.run(exec)
	require.NoError(t, err)

	tr, ok := result.Get("testSoftAssert()")
	require.True(t, ok)
	assert.False(t, tr.Success)
	assert.Equal(t, "assertion failed", tr.Reason)
}
