package runner

import (
	"sort"

	"github.com/crytic/testorch/compilation/types"
)

// sortArtifactIDs orders suite identifiers ascending by their canonical "<source>:<name>" string, the deterministic
// order spec.md §5 requires for enumeration and for the final aggregated map.
func sortArtifactIDs(ids []types.ArtifactId) {
	sort.Slice(ids, func(i, j int) bool { return ids[i].Identifier() < ids[j].Identifier() })
}
