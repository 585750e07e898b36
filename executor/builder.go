package executor

import (
	"math/big"

	"github.com/crytic/medusa-geth/common"
	"github.com/crytic/medusa-geth/core"
	"github.com/crytic/medusa-geth/params"
)

// ForkConfig describes a remote chain to seed the executor's database from, pinned at a single block height. The
// fetch is lazy: only addresses/slots actually touched during the suite are fetched, the first time they're
// touched, and then cached for the lifetime of the executor (see fork.go).
type ForkConfig struct {
	RPCURL string
	Block  uint64
}

// Builder assembles an Executor for one suite. It is cheap to construct and is typically reused (cloned) across
// suites that share the same base environment, per spec.md §5's "per-suite executor cloning" note.
type Builder struct {
	genesisAlloc core.GenesisAlloc
	tracing      bool
	cheatcodes   bool
	gasLimit     uint64
	spec         Spec
	env          Env
	fork         *ForkConfig
}

// NewBuilder creates a Builder seeded with the given genesis account allocations (predeployed contracts, funded
// accounts) shared by every suite built from it.
func NewBuilder(genesisAlloc core.GenesisAlloc) *Builder {
	return &Builder{
		genesisAlloc: genesisAlloc,
		gasLimit:     params.GenesisGasLimit,
		spec:         SpecLatest,
		env: Env{
			GasLimit: params.GenesisGasLimit,
			BaseFee:  big.NewInt(params.InitialBaseFee),
		},
	}
}

// WithTracing sets the tracing flag the built Executor starts with. The in-memory executor records the flag but
// attaches a Trace to every Deploy/Call result whether it is set or not.
func (b *Builder) WithTracing(enabled bool) *Builder {
	b.tracing = enabled
	return b
}

// WithCheatcodes records whether cheatcodes are wanted. The in-memory executor built from this Builder does not read
// the setting and installs no cheatcode precompile.
func (b *Builder) WithCheatcodes(enabled bool) *Builder {
	b.cheatcodes = enabled
	return b
}

// WithGasLimit overrides the default block gas limit.
func (b *Builder) WithGasLimit(limit uint64) *Builder {
	b.gasLimit = limit
	b.env.GasLimit = limit
	return b
}

// WithSpec records the EVM hardfork to execute under. Every Spec value maps to the same chain configuration (see
// chainConfigFor).
func (b *Builder) WithSpec(spec Spec) *Builder {
	b.spec = spec
	return b
}

// WithEnv overrides the block/tx environment (block number, timestamp, coinbase, base fee).
func (b *Builder) WithEnv(env Env) *Builder {
	b.env = env
	return b
}

// WithFork configures the executor's database to lazily pull missing state from a remote chain pinned at a block.
func (b *Builder) WithFork(fork ForkConfig) *Builder {
	b.fork = &fork
	return b
}

// Clone returns an independent copy of b. MultiRunner builds one Executor per suite, concurrently, from a shared
// base Builder; since WithTracing/etc. mutate in place, each suite must clone before adjusting its own tracing
// setting rather than mutate the shared builder.
func (b *Builder) Clone() *Builder {
	clone := *b
	return &clone
}

// chainConfigFor returns the params.ChainConfig an executor runs under: params.TestChainConfig for every Spec,
// including empty and unrecognized values. Istanbul and the other named hardforks do not select a different ruleset.
func chainConfigFor(spec Spec) *params.ChainConfig {
	switch spec {
	case SpecIstanbul:
		return params.TestChainConfig
	default:
		return params.TestChainConfig
	}
}

// Build constructs a fresh, isolated Executor from the builder's configuration.
func (b *Builder) Build() (Executor, error) {
	return newInMemoryExecutor(b)
}
