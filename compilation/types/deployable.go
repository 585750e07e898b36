package types

import (
	"strings"

	"github.com/crytic/medusa-geth/accounts/abi"
	"golang.org/x/exp/slices"
)

// LibraryDeployment is one library that must be deployed, in order, before the suite contract itself.
type LibraryDeployment struct {
	// Name is the library's contract name, used only for logging/errors.
	Name string
	// InitBytecode is the library's fully-linked (no remaining placeholders) creation bytecode.
	InitBytecode []byte
}

// DeployableContract is the Linker's output for one test suite: a contract whose creation bytecode has every
// library placeholder resolved, plus the ordered list of library deployments that must precede it.
type DeployableContract struct {
	// Abi is the suite contract's ABI.
	Abi abi.ABI

	// LinkedInitBytecode is the suite contract's creation bytecode with all library placeholders resolved.
	// Invariant: contains no remaining "__$...$__" placeholder markers.
	LinkedInitBytecode []byte

	// LibraryDeployments lists, in required deployment order, every library this suite contract depends on.
	LibraryDeployments []LibraryDeployment
}

// HasSetUp reports whether the suite ABI declares a parameterless setUp() method.
func (c *DeployableContract) HasSetUp() bool {
	m, ok := c.Abi.Methods["setUp"]
	return ok && len(m.Inputs) == 0
}

// TestMethods returns every ABI method whose name begins with "test", ordered deterministically by signature
// (spec.md §5: "tests are executed in ABI-declaration order"; the ABI's own method map has none, so signature order
// stands in as the suite's declared order).
func (c *DeployableContract) TestMethods() []abi.Method {
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

// DeployableContracts maps a suite's ArtifactId to its linked, deployable form.
type DeployableContracts map[ArtifactId]*DeployableContract

// KnownContract pairs an ABI with its deployed (runtime) bytecode, retained for downstream trace identification.
type KnownContract struct {
	Abi             abi.ABI
	RuntimeBytecode []byte
}

// KnownContractMap retains every linked contract (suites and plain contracts alike) keyed by ArtifactId, so traces
// produced during execution can be matched back to source.
type KnownContractMap map[ArtifactId]*KnownContract
