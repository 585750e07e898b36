package fuzzdriver

import (
	"math/big"
	"strings"
	"testing"

	"github.com/crytic/medusa-geth/accounts/abi"
	"github.com/stretchr/testify/require"
)

func mustMethod(t *testing.T, name, json string) abi.Method {
	t.Helper()
	parsed, err := abi.JSON(strings.NewReader(json))
	require.NoError(t, err)
	method, ok := parsed.Methods[name]
	require.True(t, ok)
	return method
}

// TestRun_AlwaysPassing covers spec.md S5: a fuzz test that never reverts passes with cfg.Cases recorded cases and
// no counterexample.
func TestRun_AlwaysPassing(t *testing.T) {
	method := mustMethod(t, "testPositive", `[{"type":"function","name":"testPositive","inputs":[{"type":"uint256"}],"outputs":[]}]`)
	cfg := Config{Cases: 32, MaxLocalRejects: 10, MaxGlobalRejects: 100, Seed: 1}

	isFailure := func(o Outcome) bool { return o.Reverted }
	invoke := func(args []any) (Outcome, error) { return Outcome{Reverted: false, GasUsed: 21000}, nil }

	result, err := Run(method, cfg, isFailure, invoke)
	require.NoError(t, err)
	require.True(t, result.Success)
	require.Nil(t, result.Counterexample)
	require.Len(t, result.Cases, cfg.Cases)
}

// TestRun_ShrinksToMinimalCounterexample covers spec.md S6: a fuzz test that reverts above a threshold should
// shrink to a counterexample at or just above that threshold, not an arbitrary large failing input.
func TestRun_ShrinksToMinimalCounterexample(t *testing.T) {
	method := mustMethod(t, "testNegative", `[{"type":"function","name":"testNegative","inputs":[{"type":"uint256"}],"outputs":[]}]`)
	cfg := Config{Cases: 256, MaxLocalRejects: 200, MaxGlobalRejects: 1000, Seed: 42}

	threshold := big.NewInt(100)
	isFailure := func(o Outcome) bool { return o.Reverted }
	invoke := func(args []any) (Outcome, error) {
		n := args[0].(*big.Int)
		if n.Cmp(threshold) > 0 {
			return Outcome{Reverted: true, RevertReason: "too big"}, nil
		}
		return Outcome{Reverted: false, GasUsed: 21000}, nil
	}

	result, err := Run(method, cfg, isFailure, invoke)
	require.NoError(t, err)
	require.False(t, result.Success)
	require.NotNil(t, result.Counterexample)

	minimal := result.Counterexample.Args[0].(*big.Int)
	require.True(t, minimal.Cmp(big.NewInt(101)) >= 0, "counterexample must still trigger the failure")
	require.Equal(t, "too big", result.Reason)
}

// TestRun_TestFailInverted covers the testFail expected-revert rule composed into isFailure: with a failure predicate
// of "did NOT revert", a contract that reverts on every input never fails, so the run passes.
func TestRun_TestFailInverted(t *testing.T) {
	method := mustMethod(t, "testFailAbove", `[{"type":"function","name":"testFailAbove","inputs":[{"type":"uint256"}],"outputs":[]}]`)
	cfg := Config{Cases: 64, MaxLocalRejects: 100, MaxGlobalRejects: 1000, Seed: 9}

	// The contract always reverts; a testFail-style predicate treats a non-revert as the failure.
	isFailure := func(o Outcome) bool { return !o.Reverted }
	invoke := func(args []any) (Outcome, error) { return Outcome{Reverted: true, RevertReason: "nope"}, nil }

	result, err := Run(method, cfg, isFailure, invoke)
	require.NoError(t, err)
	require.True(t, result.Success)
}
