package filter

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEmptyFilterAcceptsEverything(t *testing.T) {
	f, err := New(Config{})
	require.NoError(t, err)
	assert.True(t, f.MatchesTest("testFoo()"))
	assert.True(t, f.MatchesContract("AnyContract"))
	assert.True(t, f.MatchesPath("core/Anything.t.sol"))
}

func TestTestPatternPositiveAndNegative(t *testing.T) {
	f, err := New(Config{TestPattern: "Fuzz", TestPatternInverse: "Skip"})
	require.NoError(t, err)
	assert.True(t, f.MatchesTest("testFuzzAdd(uint256)"))
	assert.False(t, f.MatchesTest("testAdd()"))
	assert.False(t, f.MatchesTest("testFuzzSkipThis(uint256)"))
}

func TestContractPattern(t *testing.T) {
	f, err := New(Config{ContractPattern: "Test$", ContractPatternInverse: "Abstract"})
	require.NoError(t, err)
	assert.True(t, f.MatchesContract("RevertingTest"))
	assert.False(t, f.MatchesContract("AbstractTest"))
	assert.False(t, f.MatchesContract("RevertingTestBase"))
}

func TestLegacyPatternAppliesOnlyWhenNothingElseSet(t *testing.T) {
	f, err := New(Config{LegacyPattern: "^testFoo"})
	require.NoError(t, err)
	assert.True(t, f.MatchesTest("testFoo()"))
	assert.False(t, f.MatchesTest("testBar()"))

	// Legacy pattern is ignored once a non-legacy field is set.
	f2, err := New(Config{LegacyPattern: "^testFoo", ContractPattern: ".*"})
	require.NoError(t, err)
	assert.True(t, f2.MatchesTest("testBar()"))
}

func TestIsSourceFileDefaultsToTestSuffix(t *testing.T) {
	f, err := New(Config{})
	require.NoError(t, err)
	assert.True(t, f.IsSourceFile("core/Reverting.t.sol"))
	assert.False(t, f.IsSourceFile("src/Token.sol"))
}

func TestIsSourceFileWithPositiveGlob(t *testing.T) {
	f, err := New(Config{PathPattern: "core/**/*.sol"})
	require.NoError(t, err)
	assert.True(t, f.IsSourceFile("core/sub/Token.sol"))
	assert.False(t, f.IsSourceFile("lib/Token.sol"))
}

func TestIsSourceFileWithNegativeGlob(t *testing.T) {
	f, err := New(Config{PathPatternInverse: "lib/**"})
	require.NoError(t, err)
	assert.False(t, f.IsSourceFile("lib/Vendor.sol"))
	assert.True(t, f.IsSourceFile("src/Token.sol"))
}

func TestInvalidRegexRejected(t *testing.T) {
	_, err := New(Config{TestPattern: "("})
	assert.Error(t, err)
}
