package cmd

import (
	"encoding/hex"
	"encoding/json"
	"fmt"
	"os"
	"strings"

	"github.com/crytic/medusa-geth/accounts/abi"

	"github.com/crytic/testorch/compilation/types"
)

// artifactInput is the on-disk JSON shape for one compiled contract. Compiling Solidity itself is out of scope
// (spec.md §1), so the CLI's only job is to turn a compiler's prior output into the types the Linker expects.
type artifactInput struct {
	SourcePath        string                `json:"sourcePath"`
	Name              string                `json:"name"`
	Version           string                `json:"version"`
	Kind              string                `json:"kind"`
	Abi               json.RawMessage       `json:"abi"`
	InitBytecode      string                `json:"initBytecode"`
	RuntimeBytecode   string                `json:"runtimeBytecode"`
	LibraryReferences []libraryReferenceDTO `json:"libraryReferences"`
}

type libraryReferenceDTO struct {
	SourcePath string `json:"sourcePath"`
	Name       string `json:"name"`
	Offsets    []int  `json:"offsets"`
}

// loadArtifacts reads a JSON array of artifactInput from path and decodes it into the map the Linker/RunnerBuilder
// consume, keyed by ArtifactId.
func loadArtifacts(path string) (map[types.ArtifactId]*types.CompiledContract, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("could not read artifacts file: %w", err)
	}

	var inputs []artifactInput
	if err := json.Unmarshal(raw, &inputs); err != nil {
		return nil, fmt.Errorf("could not parse artifacts file %s: %w", path, err)
	}

	out := make(map[types.ArtifactId]*types.CompiledContract, len(inputs))
	for _, in := range inputs {
		parsedAbi, err := abi.JSON(strings.NewReader(string(in.Abi)))
		if err != nil {
			return nil, fmt.Errorf("could not parse ABI for %s:%s: %w", in.SourcePath, in.Name, err)
		}

		initBytecode, err := decodeHex(in.InitBytecode)
		if err != nil {
			return nil, fmt.Errorf("could not decode init bytecode for %s:%s: %w", in.SourcePath, in.Name, err)
		}
		runtimeBytecode, err := decodeHex(in.RuntimeBytecode)
		if err != nil {
			return nil, fmt.Errorf("could not decode runtime bytecode for %s:%s: %w", in.SourcePath, in.Name, err)
		}

		id := types.ArtifactId{SourcePath: in.SourcePath, Name: in.Name, Version: in.Version}
		out[id] = &types.CompiledContract{
			Abi:               parsedAbi,
			InitBytecode:      initBytecode,
			RuntimeBytecode:   runtimeBytecode,
			Kind:              contractKind(in.Kind),
			LibraryReferences: libraryReferences(in.LibraryReferences),
		}
	}
	return out, nil
}

func contractKind(s string) types.ContractKind {
	switch types.ContractKind(s) {
	case types.ContractKindLibrary, types.ContractKindInterface, types.ContractKindAbstract:
		return types.ContractKind(s)
	default:
		return types.ContractKindContract
	}
}

func libraryReferences(in []libraryReferenceDTO) []types.LibraryReference {
	if len(in) == 0 {
		return nil
	}
	out := make([]types.LibraryReference, len(in))
	for i, r := range in {
		out[i] = types.LibraryReference{
			SourcePath:  r.SourcePath,
			Name:        r.Name,
			Placeholder: types.GenerateLibraryPlaceholder(fmt.Sprintf("%s:%s", r.SourcePath, r.Name)),
			Offsets:     r.Offsets,
		}
	}
	return out
}

func decodeHex(s string) ([]byte, error) {
	s = strings.TrimPrefix(s, "0x")
	if s == "" {
		return nil, nil
	}
	return hex.DecodeString(s)
}
