// Package executor provides an isolated, in-memory EVM session per test suite: deployment, calls, state
// snapshot/revert, and the handful of knobs (tracing, cheatcodes, gas limit, spec, environment) a ContractRunner
// needs to configure one before running a suite.
package executor

import (
	"math/big"

	"github.com/crytic/medusa-geth/common"
	"github.com/crytic/medusa-geth/core/types"
)

// TraceKind identifies which phase of suite execution produced a Trace.
type TraceKind int

const (
	// TraceKindDeployment is produced while deploying the suite contract (and its libraries).
	TraceKindDeployment TraceKind = iota
	// TraceKindSetup is produced while running setUp().
	TraceKindSetup
	// TraceKindExecution is produced while running an individual test function.
	TraceKindExecution
)

func (k TraceKind) String() string {
	switch k {
	case TraceKindDeployment:
		return "deployment"
	case TraceKindSetup:
		return "setup"
	case TraceKindExecution:
		return "execution"
	default:
		return "unknown"
	}
}

// Trace is a minimal, raw record of one call's execution. Decoding/pretty-printing a trace into a human-readable
// call tree is explicitly a downstream concern; the core only captures enough to let one be built later.
type Trace struct {
	Kind     TraceKind
	From     common.Address
	To       *common.Address
	Input    []byte
	Output   []byte
	GasUsed  uint64
	Reverted bool
}

// SnapshotID identifies a previously captured EVM state, to be restored via Executor.RevertTo.
type SnapshotID int

// Spec identifies an EVM hardfork specification.
type Spec string

const (
	SpecLatest    Spec = "latest"
	SpecIstanbul  Spec = "istanbul"
	SpecBerlin    Spec = "berlin"
	SpecLondon    Spec = "london"
	SpecParis     Spec = "paris"
	SpecShanghai  Spec = "shanghai"
	SpecCancun    Spec = "cancun"
)

// Env describes the block/transaction environment a call executes under.
type Env struct {
	BlockNumber uint64
	Timestamp   uint64
	GasLimit    uint64
	Coinbase    common.Address
	BaseFee     *big.Int
}

// CallResult is the outcome of Executor.Call.
type CallResult struct {
	ReturnData   []byte
	GasUsed      uint64
	Logs         []*types.Log
	Trace        *Trace
	Reverted     bool
	RevertReason string
	StateChanged bool
}

// Executor is an abstract EVM session, owned by exactly one ContractRunner at a time (spec.md §3/§6). A concrete
// implementation wraps an in-memory (optionally fork-backed) EVM state and is not safe for concurrent use.
type Executor interface {
	// Deploy submits a contract-creation message and returns the deployed address, gas used, and a Deployment
	// trace. A constructor revert is reported via err (callers should treat it as a DeployError).
	Deploy(from common.Address, bytecode []byte, value *big.Int) (common.Address, uint64, *Trace, error)

	// Call invokes `to` with the given calldata, tagging the produced Trace with kind.
	Call(from, to common.Address, calldata []byte, value *big.Int, kind TraceKind) (*CallResult, error)

	// Snapshot captures the current state so it can later be restored with RevertTo.
	Snapshot() SnapshotID

	// RevertTo restores state captured by a prior Snapshot call.
	RevertTo(id SnapshotID) error

	// SetBalance sets an account's ETH balance directly, bypassing any transaction.
	SetBalance(address common.Address, amount *big.Int)

	// LoadStorage reads one storage slot directly, bypassing any call (used to read DSTest's `failed` flag).
	LoadStorage(address common.Address, slot common.Hash) common.Hash

	// WithTracing sets the tracing flag for subsequent Deploy/Call invocations. The in-memory implementation records
	// it but attaches a Trace to every result regardless.
	WithTracing(enabled bool)
}
