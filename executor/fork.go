package executor

import (
	"context"
	"fmt"
	"sync"

	"github.com/crytic/medusa-geth/common"
	"github.com/crytic/medusa-geth/common/hexutil"
	"github.com/crytic/medusa-geth/core/state"
	"github.com/crytic/medusa-geth/rpc"
	"github.com/holiman/uint256"
)

// forkBackend lazily fetches account/storage state from a remote chain pinned at a single block height, caching
// every value it has already fetched for the lifetime of the executor. It keeps no persistent on-disk cache and
// no connection pool: a suite's fork reads are few and short-lived, so one shared client and an in-memory map
// are sufficient (see DESIGN.md).
type forkBackend struct {
	ctx    context.Context
	client *rpc.Client
	height string

	mu       sync.Mutex
	storage  map[common.Address]map[common.Hash]common.Hash
	balances map[common.Address]*uint256.Int
	nonces   map[common.Address]uint64
	code     map[common.Address][]byte
}

func newForkBackend(ctx context.Context, url string, block uint64) (*forkBackend, error) {
	client, err := rpc.DialContext(ctx, url)
	if err != nil {
		return nil, fmt.Errorf("could not connect to fork RPC endpoint: %w", err)
	}
	return &forkBackend{
		ctx:      ctx,
		client:   client,
		height:   hexutil.Uint64(block).String(),
		storage:  make(map[common.Address]map[common.Hash]common.Hash),
		balances: make(map[common.Address]*uint256.Int),
		nonces:   make(map[common.Address]uint64),
		code:     make(map[common.Address][]byte),
	}, nil
}

// GetStorageAt implements the stateBackend contract state.NewForkedStateDb's database calls on a storage-slot
// miss (via forkStateProvider.ImportStorageAt).
func (f *forkBackend) GetStorageAt(addr common.Address, slot common.Hash) (common.Hash, error) {
	f.mu.Lock()
	if slots, ok := f.storage[addr]; ok {
		if v, ok := slots[slot]; ok {
			f.mu.Unlock()
			return v, nil
		}
	}
	f.mu.Unlock()

	var result hexutil.Bytes
	if err := f.client.CallContext(f.ctx, &result, "eth_getStorageAt", addr, slot, f.height); err != nil {
		return common.Hash{}, err
	}
	value := common.BytesToHash(result)

	f.mu.Lock()
	defer f.mu.Unlock()
	if f.storage[addr] == nil {
		f.storage[addr] = make(map[common.Hash]common.Hash)
	}
	f.storage[addr][slot] = value
	return value, nil
}

// GetStateObject implements the same contract for a whole account: balance, nonce, and code, on an account miss
// (via forkStateProvider.ImportStateObject).
func (f *forkBackend) GetStateObject(addr common.Address) (*uint256.Int, uint64, []byte, error) {
	f.mu.Lock()
	bal, hasBalance := f.balances[addr]
	nonce, hasNonce := f.nonces[addr]
	code, hasCode := f.code[addr]
	f.mu.Unlock()
	if hasBalance && hasNonce && hasCode {
		return bal, nonce, code, nil
	}

	var balanceHex hexutil.Big
	if err := f.client.CallContext(f.ctx, &balanceHex, "eth_getBalance", addr, f.height); err != nil {
		return nil, 0, nil, err
	}
	var nonceHex hexutil.Uint64
	if err := f.client.CallContext(f.ctx, &nonceHex, "eth_getTransactionCount", addr, f.height); err != nil {
		return nil, 0, nil, err
	}
	var codeHex hexutil.Bytes
	if err := f.client.CallContext(f.ctx, &codeHex, "eth_getCode", addr, f.height); err != nil {
		return nil, 0, nil, err
	}

	balance := new(uint256.Int).SetFromBig(balanceHex.ToInt())

	f.mu.Lock()
	f.balances[addr], f.nonces[addr], f.code[addr] = balance, uint64(nonceHex), codeHex
	f.mu.Unlock()
	return balance, uint64(nonceHex), codeHex, nil
}

// forkStateProvider implements medusa-geth's state.RemoteStateProvider: on an account/slot miss it asks a
// forkBackend for the remote value, and refuses any further remote read for state this suite has locally
// dirtied (deployed a contract over, or already imported/written), so a fork read can never clobber a local
// write or reappear after a snapshot revert. Trimmed to the single shared backend this executor needs (no
// multi-suite cache sharing).
type forkStateProvider struct {
	backend *forkBackend

	objImported  map[common.Address]struct{}
	objSnapshot  map[int][]common.Address
	slotImported map[common.Address]map[common.Hash]struct{}
	slotSnapshot map[int]map[common.Address][]common.Hash

	deployed         map[common.Address]struct{}
	deployedSnapshot map[int][]common.Address
}

var _ state.RemoteStateProvider = (*forkStateProvider)(nil)

func newForkStateProvider(backend *forkBackend) *forkStateProvider {
	return &forkStateProvider{
		backend:          backend,
		objImported:      make(map[common.Address]struct{}),
		objSnapshot:      make(map[int][]common.Address),
		slotImported:     make(map[common.Address]map[common.Hash]struct{}),
		slotSnapshot:     make(map[int]map[common.Address][]common.Hash),
		deployed:         make(map[common.Address]struct{}),
		deployedSnapshot: make(map[int][]common.Address),
	}
}

func (p *forkStateProvider) ImportStateObject(addr common.Address, snapID int) (*uint256.Int, uint64, []byte, *state.RemoteStateError) {
	if _, ok := p.objImported[addr]; ok {
		return nil, 0, nil, &state.RemoteStateError{
			CannotQueryDirtyAccount: true,
			Error:                   fmt.Errorf("state object %s was already imported", addr.Hex()),
		}
	}
	bal, nonce, code, err := p.backend.GetStateObject(addr)
	if err != nil {
		return uint256.NewInt(0), 0, nil, &state.RemoteStateError{Error: err}
	}
	p.recordObj(addr, snapID)
	return bal, nonce, code, nil
}

func (p *forkStateProvider) ImportStorageAt(addr common.Address, slot common.Hash, snapID int) (common.Hash, *state.RemoteStorageError) {
	if _, ok := p.deployed[addr]; ok {
		return common.Hash{}, &state.RemoteStorageError{
			CannotQueryDirtySlot: true,
			Error:                fmt.Errorf("slot %s of %s cannot be remote-queried: contract was deployed locally", slot.Hex(), addr.Hex()),
		}
	}
	if p.slotIsImported(addr, slot) {
		return common.Hash{}, &state.RemoteStorageError{
			CannotQueryDirtySlot: true,
			Error:                fmt.Errorf("slot %s of %s was already imported", slot.Hex(), addr.Hex()),
		}
	}
	data, err := p.backend.GetStorageAt(addr, slot)
	if err != nil {
		return common.Hash{}, &state.RemoteStorageError{Error: err}
	}
	p.recordSlot(addr, slot, snapID)
	return data, nil
}

func (p *forkStateProvider) MarkSlotWritten(addr common.Address, slot common.Hash, snapID int) {
	p.recordSlot(addr, slot, snapID)
}

func (p *forkStateProvider) MarkContractDeployed(addr common.Address, snapID int) {
	p.deployed[addr] = struct{}{}
	p.deployedSnapshot[snapID] = append(p.deployedSnapshot[snapID], addr)
}

func (p *forkStateProvider) NotifyRevertedToSnapshot(snapID int) {
	for sID, addrs := range p.objSnapshot {
		if sID > snapID {
			for _, addr := range addrs {
				delete(p.objImported, addr)
			}
			delete(p.objSnapshot, sID)
		}
	}
	for sID, bySlot := range p.slotSnapshot {
		if sID > snapID {
			for addr, slots := range bySlot {
				for _, slot := range slots {
					delete(p.slotImported[addr], slot)
				}
			}
			delete(p.slotSnapshot, sID)
		}
	}
	for sID, addrs := range p.deployedSnapshot {
		if sID > snapID {
			for _, addr := range addrs {
				delete(p.deployed, addr)
			}
			delete(p.deployedSnapshot, sID)
		}
	}
}

func (p *forkStateProvider) slotIsImported(addr common.Address, slot common.Hash) bool {
	slots, ok := p.slotImported[addr]
	if !ok {
		return false
	}
	_, ok = slots[slot]
	return ok
}

func (p *forkStateProvider) recordObj(addr common.Address, snapID int) {
	p.objImported[addr] = struct{}{}
	p.objSnapshot[snapID] = append(p.objSnapshot[snapID], addr)
}

func (p *forkStateProvider) recordSlot(addr common.Address, slot common.Hash, snapID int) {
	if p.slotImported[addr] == nil {
		p.slotImported[addr] = make(map[common.Hash]struct{})
	}
	p.slotImported[addr][slot] = struct{}{}
	if p.slotSnapshot[snapID] == nil {
		p.slotSnapshot[snapID] = make(map[common.Address][]common.Hash)
	}
	p.slotSnapshot[snapID][addr] = append(p.slotSnapshot[snapID][addr], slot)
}
