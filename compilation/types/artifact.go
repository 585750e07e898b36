package types

import (
	"fmt"

	"github.com/Masterminds/semver"
)

// ContractKind identifies what category of artifact a CompiledContract represents.
type ContractKind string

const (
	// ContractKindContract is a regular, deployable contract.
	ContractKindContract ContractKind = "contract"
	// ContractKindLibrary is a Solidity library, linked into other contracts by address rather than inherited.
	ContractKindLibrary ContractKind = "library"
	// ContractKindInterface is an interface definition with no deployable bytecode.
	ContractKindInterface ContractKind = "interface"
	// ContractKindAbstract is an abstract contract with no deployable bytecode (unimplemented functions, or
	// explicitly marked abstract).
	ContractKindAbstract ContractKind = "abstract"
)

// ArtifactId uniquely identifies one compiled contract within a compilation: the source file it was declared in,
// its name, and the compiler version that produced it.
type ArtifactId struct {
	// SourcePath is the path to the source file the contract was declared in, relative to the project root.
	SourcePath string `json:"sourcePath"`

	// Name is the contract's name as declared in source.
	Name string `json:"name"`

	// Version is the compiler version that produced this artifact. It may be empty when unknown, in which case
	// version comparisons treat the artifact as incomparable (never preferred over a versioned one).
	Version string `json:"version"`
}

// Identifier returns the canonical "<source_path>:<name>" suite key used throughout the linker and runner.
func (id ArtifactId) Identifier() string {
	return fmt.Sprintf("%s:%s", id.SourcePath, id.Name)
}

func (id ArtifactId) String() string {
	return id.Identifier()
}

// semver parses Version, returning nil if it is empty or unparsable.
func (id ArtifactId) semver() *semver.Version {
	if id.Version == "" {
		return nil
	}
	v, err := semver.NewVersion(id.Version)
	if err != nil {
		return nil
	}
	return v
}

// NewerThan reports whether id's compiler version is strictly newer than other's. An artifact with no parsable
// version is never considered newer than one that has one.
func (id ArtifactId) NewerThan(other ArtifactId) bool {
	v, ov := id.semver(), other.semver()
	if v == nil || ov == nil {
		return false
	}
	return v.GreaterThan(ov)
}
