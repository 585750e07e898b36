package runner

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/crytic/testorch/compilation/types"
)

func TestOutcome_EnsureOK(t *testing.T) {
	passID := types.ArtifactId{SourcePath: "core/A.t.sol", Name: "APassing"}
	failID := types.ArtifactId{SourcePath: "core/B.t.sol", Name: "BFailing"}

	passSuite := &SuiteResult{}
	passSuite.add("testFoo()", &TestResult{Success: true})

	results := newSuiteResults()
	results.set(passID, passSuite)

	o := &Outcome{Results: results}
	require.NoError(t, o.EnsureOK())
	assert.Len(t, o.Successes(), 1)
	assert.Empty(t, o.Failures())

	failSuite := &SuiteResult{}
	failSuite.add("testBar()", &TestResult{Success: false, Reason: "nope"})
	results.set(failID, failSuite)

	err := o.EnsureOK()
	require.Error(t, err)
	assert.Len(t, o.Failures(), 1)

	o.AllowFailure = true
	require.NoError(t, o.EnsureOK())
}

func TestOutcome_Duration(t *testing.T) {
	idA := types.ArtifactId{SourcePath: "core/A.t.sol", Name: "A"}
	idB := types.ArtifactId{SourcePath: "core/B.t.sol", Name: "B"}

	results := newSuiteResults()
	results.set(idA, &SuiteResult{Duration: 10})
	results.set(idB, &SuiteResult{Duration: 15})

	o := &Outcome{Results: results}
	assert.Equal(t, int64(25), int64(o.Duration()))
}
