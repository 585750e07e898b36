package types

import (
	"fmt"
	"strings"

	"github.com/crytic/medusa-geth/accounts/abi"
	"golang.org/x/exp/slices"
)

// LibraryReference describes one unresolved library dependency of a CompiledContract's init bytecode. Offsets
// record every byte position within InitBytecode where the 20-byte placeholder slot for this library begins; this
// mirrors how a compiler's link-reference map locates placeholders without requiring bytecode to be kept as an
// unparsed hex string while linking is incomplete.
type LibraryReference struct {
	// SourcePath is the source file the referenced library is declared in.
	SourcePath string
	// Name is the library's contract name.
	Name string
	// Placeholder is the 34-character Solidity link placeholder (the first 17 bytes of
	// keccak256("<sourcePath>:<name>") as hex), kept for logging/error messages.
	Placeholder string
	// Offsets are the byte positions within InitBytecode of each 20-byte placeholder slot for this library.
	Offsets []int
}

// FullyQualifiedName returns "<source_path>:<name>", the string the placeholder was derived from.
func (l LibraryReference) FullyQualifiedName() string {
	return fmt.Sprintf("%s:%s", l.SourcePath, l.Name)
}

// CompiledContract is a single compiler output unit: ABI, bytecode, and the library references that still need
// resolving before the init bytecode is deployable.
type CompiledContract struct {
	// Abi describes the contract's constructor, functions, and events.
	Abi abi.ABI

	// InitBytecode is the raw (already hex-decoded) creation bytecode. It may contain unresolved library
	// placeholders, see LibraryReferences.
	InitBytecode []byte

	// RuntimeBytecode is the bytecode expected to be installed at the contract's address once constructed.
	// Like InitBytecode it may still contain unresolved library placeholders.
	RuntimeBytecode []byte

	// Kind classifies what this compiled unit represents.
	Kind ContractKind

	// LibraryReferences enumerates every library placeholder present in InitBytecode/RuntimeBytecode.
	LibraryReferences []LibraryReference
}

// HasUnresolvedLibraries reports whether any of the contract's library references remain unpatched.
func (c *CompiledContract) HasUnresolvedLibraries() bool {
	return len(c.LibraryReferences) > 0
}

// IsDeployable reports whether this compiled unit has bytecode that can actually be deployed. Interfaces and
// abstract contracts never do.
func (c *CompiledContract) IsDeployable() bool {
	return len(c.InitBytecode) > 0 && c.Kind != ContractKindInterface && c.Kind != ContractKindAbstract
}

// IsTestSuiteCandidate implements the linker's suite classification rule (spec.md §4.2 step 4): the contract must
// be deployable with no constructor arguments, and declare at least one function whose name begins with "test".
func (c *CompiledContract) IsTestSuiteCandidate() bool {
	if !c.IsDeployable() {
		return false
	}
	if len(c.Abi.Constructor.Inputs) != 0 {
		return false
	}
	for _, method := range c.Abi.Methods {
		if strings.HasPrefix(method.Name, "test") {
			return true
		}
	}
	return false
}

// HasSetUp reports whether the ABI declares a parameterless setUp() method.
func (c *CompiledContract) HasSetUp() bool {
	m, ok := c.Abi.Methods["setUp"]
	return ok && len(m.Inputs) == 0
}

// TestMethods returns every ABI method whose name begins with "test", ordered deterministically by signature.
// go-ethereum's abi.ABI.Methods is a map, so the source file's declaration order is not recoverable here; spec.md
// §5's "ABI-declaration order" is approximated with this stable Sig ordering instead.
func (c *CompiledContract) TestMethods() []abi.Method {
	methods := make([]abi.Method, 0, len(c.Abi.Methods))
	for _, m := range c.Abi.Methods {
		if strings.HasPrefix(m.Name, "test") {
			methods = append(methods, m)
		}
	}
	slices.SortFunc(methods, func(a, b abi.Method) bool {
		return a.Sig < b.Sig
	})
	return methods
}

// GetDeploymentMessageData ABI-encodes the given constructor arguments and appends them to a copy of InitBytecode,
// producing the full calldata to submit as a contract-creation transaction.
func (c *CompiledContract) GetDeploymentMessageData(args []any) ([]byte, error) {
	data := slices.Clone(c.InitBytecode)
	if len(c.Abi.Constructor.Inputs) > 0 {
		packed, err := c.Abi.Pack("", args...)
		if err != nil {
			return nil, fmt.Errorf("could not encode constructor arguments: %w", err)
		}
		data = append(data, packed...)
	}
	return data, nil
}
