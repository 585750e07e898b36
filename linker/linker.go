// Package linker resolves library placeholders in compiled contracts' creation bytecode into concrete, deterministic
// addresses, and classifies which linked contracts are deployable test suites.
package linker

import (
	"fmt"
	"sort"

	"github.com/crytic/medusa-geth/common"
	"github.com/crytic/medusa-geth/crypto"
	"github.com/crytic/testorch/compilation/types"
	"github.com/crytic/testorch/logging"
)

var logger = logging.GlobalLogger.NewSubLogger("module", logging.LinkerService)

// LinkError reports a library reference that could not be resolved, or a cyclic library dependency graph.
type LinkError struct {
	Suite types.ArtifactId
	Err   error
}

func (e *LinkError) Error() string {
	return fmt.Sprintf("failed to link %s: %v", e.Suite.Identifier(), e.Err)
}

func (e *LinkError) Unwrap() error {
	return e.Err
}

// Result is the Linker's output: the deployable set and the known-contracts index used for trace identification.
type Result struct {
	Deployable types.DeployableContracts
	Known      types.KnownContractMap
	// Skipped lists suites that failed to link; each failure is logged as a warning and the suite omitted from
	// Deployable (spec.md §7: LinkError is fatal to the offending suite only).
	Skipped []*LinkError
}

// Link resolves every artifact's library references and builds the deployable/known-contract maps.
// sender is the address that will deploy libraries (and, later, suite contracts); startNonce is that sender's
// nonce immediately before any suite's libraries are deployed -- each suite is linked (and later run) against a
// fresh executor, so the same startNonce is reused for every suite in isolation.
func Link(artifacts map[types.ArtifactId]*types.CompiledContract, sender common.Address, startNonce uint64) (*Result, error) {
	ids := sortedIDs(artifacts)

	byName := make(map[string]types.ArtifactId, len(artifacts))
	for _, id := range ids {
		byName[id.Identifier()] = id
	}

	result := &Result{
		Deployable: make(types.DeployableContracts),
		Known:      make(types.KnownContractMap),
	}

	for _, id := range ids {
		contract := artifacts[id]

		if len(contract.RuntimeBytecode) > 0 {
			result.Known[id] = &types.KnownContract{Abi: contract.Abi, RuntimeBytecode: contract.RuntimeBytecode}
		}

		if !contract.IsTestSuiteCandidate() {
			continue
		}

		deployable, err := linkOne(contract, artifacts, byName, sender, startNonce)
		if err != nil {
			linkErr := &LinkError{Suite: id, Err: err}
			logger.Warn(linkErr.Error())
			result.Skipped = append(result.Skipped, linkErr)
			continue
		}
		result.Deployable[id] = deployable
	}

	return result, nil
}

// linkOne resolves one suite contract's transitive library dependencies and returns its deployable form.
func linkOne(
	contract *types.CompiledContract,
	artifacts map[types.ArtifactId]*types.CompiledContract,
	byName map[string]types.ArtifactId,
	sender common.Address,
	startNonce uint64,
) (*types.DeployableContract, error) {
	// Gather the transitive closure of library dependencies via DFS, and the dependency graph among them for
	// topological ordering.
	depGraph := make(map[string][]string)
	libContracts := make(map[string]*types.CompiledContract)

	var visit func(c *types.CompiledContract) error
	visit = func(c *types.CompiledContract) error {
		for _, ref := range c.LibraryReferences {
			fqn := ref.FullyQualifiedName()
			if _, ok := libContracts[fqn]; ok {
				continue
			}
			libID, ok := byName[fqn]
			if !ok {
				return fmt.Errorf("unresolvable library reference %q (placeholder %s)", fqn, ref.Placeholder)
			}
			libArtifact, ok := artifacts[libID]
			if !ok {
				return fmt.Errorf("unresolvable library reference %q (placeholder %s)", fqn, ref.Placeholder)
			}
			libContracts[fqn] = libArtifact
			if _, ok := depGraph[fqn]; !ok {
				depGraph[fqn] = nil
			}
			for _, nested := range libArtifact.LibraryReferences {
				depGraph[fqn] = append(depGraph[fqn], nested.FullyQualifiedName())
			}
			if err := visit(libArtifact); err != nil {
				return err
			}
		}
		return nil
	}
	if err := visit(contract); err != nil {
		return nil, err
	}

	order, err := types.TopologicalDeploymentOrder(depGraph)
	if err != nil {
		return nil, err
	}

	deployedAddrs := make(map[string]common.Address, len(order))
	libraryDeployments := make([]types.LibraryDeployment, 0, len(order))
	nonce := startNonce
	for _, fqn := range order {
		lib := libContracts[fqn]
		linkedInit := patchPlaceholders(lib.InitBytecode, lib.LibraryReferences, deployedAddrs)

		addr := crypto.CreateAddress(sender, nonce)
		nonce++
		deployedAddrs[fqn] = addr

		libraryDeployments = append(libraryDeployments, types.LibraryDeployment{
			Name:         libName(fqn),
			InitBytecode: linkedInit,
		})
	}

	linkedInit := patchPlaceholders(contract.InitBytecode, contract.LibraryReferences, deployedAddrs)
	for _, ref := range contract.LibraryReferences {
		if _, ok := deployedAddrs[ref.FullyQualifiedName()]; !ok {
			return nil, fmt.Errorf("unresolvable library reference %q (placeholder %s)", ref.FullyQualifiedName(), ref.Placeholder)
		}
	}

	return &types.DeployableContract{
		Abi:                contract.Abi,
		LinkedInitBytecode: linkedInit,
		LibraryDeployments: libraryDeployments,
	}, nil
}

// libName extracts the bare contract name from a fully qualified "path:Name" string.
func libName(fqn string) string {
	for i := len(fqn) - 1; i >= 0; i-- {
		if fqn[i] == ':' {
			return fqn[i+1:]
		}
	}
	return fqn
}

// patchPlaceholders overwrites every recorded placeholder offset in a copy of bytecode with the resolved address's
// 20 bytes, and returns the patched copy. References whose library isn't yet resolved are left untouched (the
// caller detects and errors on any that remain after the full pass).
func patchPlaceholders(bytecode []byte, refs []types.LibraryReference, resolved map[string]common.Address) []byte {
	patched := make([]byte, len(bytecode))
	copy(patched, bytecode)
	for _, ref := range refs {
		addr, ok := resolved[ref.FullyQualifiedName()]
		if !ok {
			continue
		}
		for _, offset := range ref.Offsets {
			if offset < 0 || offset+common.AddressLength > len(patched) {
				continue
			}
			copy(patched[offset:offset+common.AddressLength], addr.Bytes())
		}
	}
	return patched
}

func sortedIDs(artifacts map[types.ArtifactId]*types.CompiledContract) []types.ArtifactId {
	ids := make([]types.ArtifactId, 0, len(artifacts))
	for id := range artifacts {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i].Identifier() < ids[j].Identifier() })
	return ids
}
