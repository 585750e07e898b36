package types

import (
	"encoding/hex"
	"fmt"

	"github.com/crytic/medusa-geth/crypto"
)

// GenerateLibraryPlaceholder computes the 34-character link placeholder Solidity embeds in bytecode for a library,
// per solc's convention: the first 17 bytes of keccak256(fullyQualifiedName), hex-encoded.
func GenerateLibraryPlaceholder(fullyQualifiedName string) string {
	hash := crypto.Keccak256Hash([]byte(fullyQualifiedName))
	return hex.EncodeToString(hash.Bytes())[:34]
}

// TopologicalDeploymentOrder returns library dependency names in an order where each library appears after all of
// the libraries it depends on (Kahn's algorithm). dependencies maps a library's fully qualified name to the fully
// qualified names of the libraries its own bytecode still references. Returns an error if the dependency graph has
// a cycle.
func TopologicalDeploymentOrder(dependencies map[string][]string) ([]string, error) {
	inDegree := make(map[string]int, len(dependencies))
	for node, deps := range dependencies {
		if _, ok := inDegree[node]; !ok {
			inDegree[node] = 0
		}
		for _, dep := range deps {
			inDegree[node]++
			if _, ok := inDegree[dep]; !ok {
				inDegree[dep] = 0
			}
		}
	}

	// reverse edges: dep -> dependents, so we can decrement in-degree as dependencies are resolved.
	dependents := make(map[string][]string)
	for node, deps := range dependencies {
		for _, dep := range deps {
			dependents[dep] = append(dependents[dep], node)
		}
	}

	var queue []string
	for node, degree := range inDegree {
		if degree == 0 {
			queue = append(queue, node)
		}
	}

	order := make([]string, 0, len(inDegree))
	for len(queue) > 0 {
		current := queue[0]
		queue = queue[1:]
		order = append(order, current)

		for _, node := range dependents[current] {
			inDegree[node]--
			if inDegree[node] == 0 {
				queue = append(queue, node)
			}
		}
	}

	if len(order) != len(inDegree) {
		return order, fmt.Errorf("circular dependency detected among library dependencies")
	}
	return order, nil
}
