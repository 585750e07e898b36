package fuzzdriver

import (
	"math/big"
	"math/rand"
	"strings"
	"testing"

	"github.com/crytic/medusa-geth/accounts/abi"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGenerator_ProducesOneValuePerInput(t *testing.T) {
	parsed, err := abi.JSON(strings.NewReader(`[{"type":"function","name":"testMany","inputs":[
		{"type":"uint256"},{"type":"address"},{"type":"bool"},{"type":"bytes"},{"type":"string"},
		{"type":"uint256[]"},{"type":"bytes4"}
	],"outputs":[]}]`))
	require.NoError(t, err)
	method := parsed.Methods["testMany"]

	g := newRandomValueGenerator(rand.New(rand.NewSource(1)))
	args, err := g.generateArgs(method)
	require.NoError(t, err)
	require.Len(t, args, len(method.Inputs))

	_, ok := args[0].(*big.Int)
	assert.True(t, ok)
}

func TestGenerator_SignedIntegerCanBeNegative(t *testing.T) {
	g := newRandomValueGenerator(rand.New(rand.NewSource(2)))
	sawNegative := false
	for i := 0; i < 200; i++ {
		v := g.generateInteger(true, 256)
		if v.Sign() < 0 {
			sawNegative = true
			break
		}
	}
	assert.True(t, sawNegative, "signed generation should eventually produce a negative value")
}

func TestGenerator_UnsignedIntegerNeverNegative(t *testing.T) {
	g := newRandomValueGenerator(rand.New(rand.NewSource(3)))
	for i := 0; i < 50; i++ {
		v := g.generateInteger(false, 256)
		assert.True(t, v.Sign() >= 0)
	}
}

func TestGenerator_RejectsTupleParameters(t *testing.T) {
	parsed, err := abi.JSON(strings.NewReader(`[{"type":"function","name":"testTuple","inputs":[
		{"type":"tuple","components":[{"type":"uint256","name":"a"}]}
	],"outputs":[]}]`))
	require.NoError(t, err)
	method := parsed.Methods["testTuple"]

	g := newRandomValueGenerator(rand.New(rand.NewSource(4)))
	_, err = g.generateArgs(method)
	assert.Error(t, err)
}
