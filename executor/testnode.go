package executor

import (
	"bytes"
	"context"
	"fmt"
	"math/big"
	"strings"

	"github.com/crytic/medusa-geth/accounts/abi"
	"github.com/crytic/medusa-geth/common"
	"github.com/crytic/medusa-geth/core"
	"github.com/crytic/medusa-geth/core/rawdb"
	"github.com/crytic/medusa-geth/core/state"
	"github.com/crytic/medusa-geth/core/tracing"
	"github.com/crytic/medusa-geth/core/types"
	"github.com/crytic/medusa-geth/core/vm"
	"github.com/crytic/medusa-geth/crypto"
	"github.com/crytic/medusa-geth/ethdb/memorydb"
	"github.com/crytic/medusa-geth/params"
	"github.com/holiman/uint256"
)

// errorSelector is the 4-byte selector of Solidity's built-in Error(string), used to decode a plain revert reason.
var errorSelector = crypto.Keccak256([]byte("Error(string)"))[:4]

// suiteState is the subset of medusa-geth's (fork-capable) state database an inMemoryExecutor touches directly.
// Both the plain in-memory database `state.New` returns and the fork-backed one `state.NewForkedStateDb` returns
// satisfy it, so every other method on inMemoryExecutor works unchanged whichever one backs a given suite.
type suiteState interface {
	vm.StateDB
	Logs() []*types.Log
	SetBalance(common.Address, *uint256.Int, tracing.BalanceChangeReason)
}

// inMemoryExecutor is the concrete, in-process Executor backing every suite. It holds a single evolving
// suiteState (no block-level chain abstraction, since a suite never needs block history beyond what Env
// describes) and re-derives a fresh vm.EVM for every call so per-call tracing/gas-limit overrides never leak
// between calls.
type inMemoryExecutor struct {
	db       state.Database
	statedb  suiteState
	chainCfg *params.ChainConfig
	env      Env
	tracing  bool

	snapshots map[SnapshotID]int
	nextSnap  SnapshotID
}

func newInMemoryExecutor(b *Builder) (Executor, error) {
	kvstore := memorydb.New()
	db := state.NewDatabase(rawdb.NewDatabase(kvstore))

	var statedb suiteState
	var err error
	if b.fork != nil {
		backend, ferr := newForkBackend(context.Background(), b.fork.RPCURL, b.fork.Block)
		if ferr != nil {
			return nil, fmt.Errorf("could not initialize fork backend: %w", ferr)
		}
		statedb, err = state.NewForkedStateDb(types.EmptyRootHash, db, newForkStateProvider(backend))
	} else {
		statedb, err = state.New(types.EmptyRootHash, db, nil)
	}
	if err != nil {
		return nil, fmt.Errorf("could not initialize executor state: %w", err)
	}

	for addr, account := range b.genesisAlloc {
		statedb.SetBalance(addr, bigToUint256(account.Balance), tracing.BalanceChangeUnspecified)
		statedb.SetNonce(addr, account.Nonce)
		if len(account.Code) > 0 {
			statedb.SetCode(addr, account.Code)
		}
		for key, value := range account.Storage {
			statedb.SetState(addr, key, value)
		}
	}

	return &inMemoryExecutor{
		db:        db,
		statedb:   statedb,
		chainCfg:  chainConfigFor(b.spec),
		env:       b.env,
		tracing:   b.tracing,
		snapshots: make(map[SnapshotID]int),
	}, nil
}

// bigToUint256 converts a (possibly nil) *big.Int balance/value into the *uint256.Int this geth vintage's
// StateDB/EVM APIs require, treating nil as zero.
func bigToUint256(v *big.Int) *uint256.Int {
	u := new(uint256.Int)
	if v != nil {
		u.SetFromBig(v)
	}
	return u
}

func (e *inMemoryExecutor) blockContext() vm.BlockContext {
	return vm.BlockContext{
		CanTransfer: core.CanTransfer,
		Transfer:    core.Transfer,
		GetHash:     func(uint64) common.Hash { return common.Hash{} },
		Coinbase:    e.env.Coinbase,
		BlockNumber: new(big.Int).SetUint64(e.env.BlockNumber),
		Time:        e.env.Timestamp,
		Difficulty:  big.NewInt(0),
		GasLimit:    e.env.GasLimit,
		BaseFee:     e.env.BaseFee,
	}
}

func (e *inMemoryExecutor) newEVM(origin common.Address) *vm.EVM {
	txCtx := vm.TxContext{Origin: origin, GasPrice: big.NewInt(0)}
	return vm.NewEVM(e.blockContext(), txCtx, e.statedb, e.chainCfg, vm.Config{NoBaseFee: true})
}

func (e *inMemoryExecutor) Deploy(from common.Address, bytecode []byte, value *big.Int) (common.Address, uint64, *Trace, error) {
	evm := e.newEVM(from)
	gas := e.env.GasLimit

	logsBefore := len(e.statedb.Logs())
	ret, contractAddr, leftover, vmErr := evm.Create(vm.AccountRef(from), bytecode, gas, bigToUint256(value))
	_ = logsBefore

	gasUsed := gas - leftover
	trace := &Trace{
		Kind:     TraceKindDeployment,
		From:     from,
		To:       nil,
		Input:    bytecode,
		Output:   ret,
		GasUsed:  gasUsed,
		Reverted: vmErr != nil,
	}

	if vmErr != nil {
		return common.Address{}, gasUsed, trace, fmt.Errorf("%w: %s", ErrDeployReverted, decodeRevertReason(ret))
	}
	return contractAddr, gasUsed, trace, nil
}

func (e *inMemoryExecutor) Call(from, to common.Address, calldata []byte, value *big.Int, kind TraceKind) (*CallResult, error) {
	evm := e.newEVM(from)
	gas := e.env.GasLimit

	logsBefore := len(e.statedb.Logs())
	ret, leftover, vmErr := evm.Call(vm.AccountRef(from), to, calldata, gas, bigToUint256(value))
	allLogs := e.statedb.Logs()
	var newLogs []*types.Log
	if len(allLogs) > logsBefore {
		newLogs = allLogs[logsBefore:]
	}

	gasUsed := gas - leftover
	result := &CallResult{
		ReturnData: ret,
		GasUsed:    gasUsed,
		Logs:       newLogs,
		Reverted:   vmErr != nil,
		Trace: &Trace{
			Kind:     kind,
			From:     from,
			To:       &to,
			Input:    calldata,
			Output:   ret,
			GasUsed:  gasUsed,
			Reverted: vmErr != nil,
		},
	}
	if vmErr != nil {
		result.RevertReason = decodeRevertReason(ret)
	}
	return result, nil
}

func (e *inMemoryExecutor) Snapshot() SnapshotID {
	id := e.nextSnap
	e.nextSnap++
	e.snapshots[id] = e.statedb.Snapshot()
	return id
}

func (e *inMemoryExecutor) RevertTo(id SnapshotID) error {
	rev, ok := e.snapshots[id]
	if !ok {
		return fmt.Errorf("%w: unknown snapshot id %d", ErrInvalidSnapshot, id)
	}
	e.statedb.RevertToSnapshot(rev)
	delete(e.snapshots, id)
	return nil
}

func (e *inMemoryExecutor) SetBalance(address common.Address, amount *big.Int) {
	e.statedb.SetBalance(address, bigToUint256(amount), tracing.BalanceChangeUnspecified)
}

func (e *inMemoryExecutor) LoadStorage(address common.Address, slot common.Hash) common.Hash {
	return e.statedb.GetState(address, slot)
}

func (e *inMemoryExecutor) WithTracing(enabled bool) {
	e.tracing = enabled
}

// decodeRevertReason best-effort decodes a revert's return data into a human string: Solidity's Error(string)
// encoding if present, otherwise a hex dump, otherwise "no reason".
func decodeRevertReason(ret []byte) string {
	if len(ret) == 0 {
		return "no reason"
	}
	if len(ret) > 4 && bytes.Equal(ret[:4], errorSelector) {
		unpacked, err := abi.Arguments{{Type: mustStringType()}}.Unpack(ret[4:])
		if err == nil && len(unpacked) == 1 {
			if s, ok := unpacked[0].(string); ok {
				return s
			}
		}
	}
	return "0x" + strings.ToLower(common.Bytes2Hex(ret))
}

func mustStringType() abi.Type {
	t, err := abi.NewType("string", "", nil)
	if err != nil {
		panic(err)
	}
	return t
}
