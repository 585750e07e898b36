package fuzzdriver

import (
	"fmt"
	"math/big"
	"math/rand"
	"reflect"

	"github.com/crytic/medusa-geth/accounts/abi"
	"github.com/crytic/medusa-geth/common"
)

// generatorLimits bounds the size of dynamically-sized values a generator produces, matching the teacher's
// RandomValueGeneratorConfig defaults.
type generatorLimits struct {
	minArray, maxArray   int
	minBytes, maxBytes   int
	minString, maxString int
}

func defaultLimits() generatorLimits {
	return generatorLimits{minArray: 0, maxArray: 10, minBytes: 0, maxBytes: 64, minString: 0, maxString: 64}
}

// randomValueGenerator produces random Go values for every ABI type a Solidity test function parameter can take.
// Arrays/slices/fixed-bytes are built via reflection against abi.Type.GetType(), the same mechanism the teacher's
// valuegeneration package uses to stay in lockstep with whatever Go type go-ethereum's abi.Pack expects.
type randomValueGenerator struct {
	rng    *rand.Rand
	limits generatorLimits
}

func newRandomValueGenerator(rng *rand.Rand) *randomValueGenerator {
	return &randomValueGenerator{rng: rng, limits: defaultLimits()}
}

// generateArgs produces one random, ABI-encodable argument tuple for method.
func (g *randomValueGenerator) generateArgs(method abi.Method) ([]any, error) {
	args := make([]any, len(method.Inputs))
	for i, input := range method.Inputs {
		v, err := g.generateValue(&input.Type)
		if err != nil {
			return nil, fmt.Errorf("could not generate value for argument %d (%s): %w", i, input.Name, err)
		}
		args[i] = v
	}
	return args, nil
}

func (g *randomValueGenerator) generateValue(t *abi.Type) (any, error) {
	switch t.T {
	case abi.BoolTy:
		return g.rng.Uint32()%2 == 0, nil
	case abi.AddressTy:
		return g.generateAddress(), nil
	case abi.StringTy:
		return g.generateString(), nil
	case abi.BytesTy:
		return g.generateBytes(g.rangeSize(g.limits.minBytes, g.limits.maxBytes)), nil
	case abi.FixedBytesTy:
		return g.generateFixedBytes(t)
	case abi.UintTy:
		return g.generateInteger(false, t.Size), nil
	case abi.IntTy:
		return g.generateInteger(true, t.Size), nil
	case abi.SliceTy:
		length := g.rangeSize(g.limits.minArray, g.limits.maxArray)
		return g.generateSlice(t, length)
	case abi.ArrayTy:
		return g.generateArray(t)
	case abi.TupleTy:
		return nil, fmt.Errorf("tuple-typed test parameters are not supported")
	default:
		return nil, fmt.Errorf("unsupported ABI type %s", t.String())
	}
}

func (g *randomValueGenerator) generateSlice(t *abi.Type, length int) (any, error) {
	slice := reflect.MakeSlice(t.GetType(), length, length)
	for i := 0; i < length; i++ {
		v, err := g.generateValue(t.Elem)
		if err != nil {
			return nil, err
		}
		slice.Index(i).Set(reflect.ValueOf(v))
	}
	return slice.Interface(), nil
}

func (g *randomValueGenerator) generateArray(t *abi.Type) (any, error) {
	array := reflect.New(t.GetType()).Elem()
	for i := 0; i < t.Size; i++ {
		v, err := g.generateValue(t.Elem)
		if err != nil {
			return nil, err
		}
		array.Index(i).Set(reflect.ValueOf(v))
	}
	return array.Interface(), nil
}

func (g *randomValueGenerator) generateAddress() common.Address {
	b := make([]byte, common.AddressLength)
	g.rng.Read(b)
	return common.BytesToAddress(b)
}

func (g *randomValueGenerator) generateBytes(length int) []byte {
	b := make([]byte, length)
	g.rng.Read(b)
	return b
}

func (g *randomValueGenerator) generateFixedBytes(t *abi.Type) (any, error) {
	array := reflect.New(t.GetType()).Elem()
	b := make([]byte, t.Size)
	g.rng.Read(b)
	for i := 0; i < t.Size; i++ {
		array.Index(i).Set(reflect.ValueOf(b[i]))
	}
	return array.Interface(), nil
}

func (g *randomValueGenerator) generateString() string {
	return string(g.generateBytes(g.rangeSize(g.limits.minString, g.limits.maxString)))
}

// generateInteger produces a random big.Int of the given bit length, optionally permitting negative values for
// signed types (two's complement semantics are handled by go-ethereum's abi.Pack).
func (g *randomValueGenerator) generateInteger(signed bool, bitLength int) *big.Int {
	b := make([]byte, bitLength/8)
	g.rng.Read(b)
	v := new(big.Int).SetBytes(b)
	if signed && bitLength > 0 {
		signBit := new(big.Int).Lsh(big.NewInt(1), uint(bitLength-1))
		if v.Cmp(signBit) >= 0 {
			v.Sub(v, new(big.Int).Lsh(big.NewInt(1), uint(bitLength)))
		}
	}
	return v
}

func (g *randomValueGenerator) rangeSize(min, max int) int {
	if max <= min {
		return min
	}
	return min + int(g.rng.Uint64()%uint64(max-min+1))
}
