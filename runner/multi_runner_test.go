package runner

import (
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/crytic/testorch/compilation/types"
	"github.com/crytic/testorch/filter"
)

func TestMultiRunner_CountFilteredTests(t *testing.T) {
	fooABI := mustABI(t, `[
		{"type":"function","name":"testFoo","inputs":[],"outputs":[]},
		{"type":"function","name":"testBar","inputs":[],"outputs":[]}
	]`)
	bazABI := mustABI(t, `[{"type":"function","name":"testBaz","inputs":[],"outputs":[]}]`)

	fooID := types.ArtifactId{SourcePath: "core/Foo.t.sol", Name: "FooTest"}
	bazID := types.ArtifactId{SourcePath: "core/Baz.t.sol", Name: "BazTest"}

	m := &MultiRunner{
		deployable: types.DeployableContracts{
			fooID: {Abi: fooABI},
			bazID: {Abi: bazABI},
		},
	}

	f, err := filter.New(filter.Config{TestPattern: "testFoo|testBaz"})
	require.NoError(t, err)

	assert.Equal(t, 2, m.CountFilteredTests(f))

	ids := m.filteredSuiteIDs(f)
	require.Len(t, ids, 2)
	assert.Equal(t, bazID, ids[0])
	assert.Equal(t, fooID, ids[1])
}

func TestMultiRunner_ContractNameFilterExcludesSuite(t *testing.T) {
	fooABI := mustABI(t, `[{"type":"function","name":"testFoo","inputs":[],"outputs":[]}]`)
	fooID := types.ArtifactId{SourcePath: "core/Foo.t.sol", Name: "FooTest"}

	m := &MultiRunner{deployable: types.DeployableContracts{fooID: {Abi: fooABI}}}

	f, err := filter.New(filter.Config{ContractPattern: "DoesNotExist"})
	require.NoError(t, err)

	assert.Equal(t, 0, m.CountFilteredTests(f))
	assert.Empty(t, m.filteredSuiteIDs(f))
}

func TestMultiRunner_ResolveSingleTest(t *testing.T) {
	fooABI := mustABI(t, `[
		{"type":"function","name":"testFoo","inputs":[],"outputs":[]},
		{"type":"function","name":"testBar","inputs":[],"outputs":[]}
	]`)
	fooID := types.ArtifactId{SourcePath: "core/Foo.t.sol", Name: "FooTest"}
	m := &MultiRunner{deployable: types.DeployableContracts{fooID: {Abi: fooABI}}}

	f, err := filter.New(filter.Config{TestPattern: `^testFoo\(\)$`})
	require.NoError(t, err)

	id, sig, err := m.ResolveSingleTest(f)
	require.NoError(t, err)
	assert.Equal(t, fooID, id)
	assert.Equal(t, "testFoo()", sig)

	all, err := filter.New(filter.Config{})
	require.NoError(t, err)
	_, _, err = m.ResolveSingleTest(all)
	require.Error(t, err)
}

func TestSeedForSuite_DeterministicPerRunAndSuite(t *testing.T) {
	runID := uuid.New()
	a := types.ArtifactId{SourcePath: "core/Foo.t.sol", Name: "FooTest"}
	b := types.ArtifactId{SourcePath: "core/Bar.t.sol", Name: "BarTest"}

	assert.Equal(t, seedForSuite(runID, a), seedForSuite(runID, a))
	assert.NotEqual(t, seedForSuite(runID, a), seedForSuite(runID, b))
	assert.NotEqual(t, seedForSuite(runID, a), seedForSuite(uuid.New(), a))
}
