package fuzzdriver

import (
	"math/big"
	"strings"
	"testing"

	"github.com/crytic/medusa-geth/accounts/abi"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func mustShrinkMethod(t *testing.T, name, json string) abi.Method {
	t.Helper()
	parsed, err := abi.JSON(strings.NewReader(json))
	require.NoError(t, err)
	method, ok := parsed.Methods[name]
	require.True(t, ok)
	return method
}

func TestShrinker_ReducesUintTowardThreshold(t *testing.T) {
	method := mustShrinkMethod(t, "testNegative", `[{"type":"function","name":"testNegative","inputs":[{"type":"uint256"}],"outputs":[]}]`)
	s := newShrinker(method, 50)

	threshold := big.NewInt(100)
	stillFails := func(args []any) bool {
		return args[0].(*big.Int).Cmp(threshold) > 0
	}

	minimal := s.shrink([]any{big.NewInt(100000)}, stillFails)
	got := minimal[0].(*big.Int)
	assert.True(t, got.Cmp(threshold) > 0, "shrunk value must still fail")
}

func TestShrinker_StopsAtZero(t *testing.T) {
	method := mustShrinkMethod(t, "testAlwaysFails", `[{"type":"function","name":"testAlwaysFails","inputs":[{"type":"uint256"}],"outputs":[]}]`)
	s := newShrinker(method, 50)

	minimal := s.shrink([]any{big.NewInt(7)}, func([]any) bool { return true })
	assert.Equal(t, int64(0), minimal[0].(*big.Int).Int64())
}

func TestReduceValue_NoReductionForFixedSizeTypes(t *testing.T) {
	addrType, err := abi.NewType("address", "", nil)
	require.NoError(t, err)
	_, ok := reduceValue(&addrType, [20]byte{})
	assert.False(t, ok)
}

func TestReduceValue_TruncatesBytes(t *testing.T) {
	bytesType, err := abi.NewType("bytes", "", nil)
	require.NoError(t, err)
	reduced, ok := reduceValue(&bytesType, []byte{1, 2, 3})
	require.True(t, ok)
	assert.Equal(t, []byte{1, 2}, reduced)
}
