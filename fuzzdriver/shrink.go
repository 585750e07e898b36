package fuzzdriver

import (
	"math/big"
	"reflect"

	"github.com/crytic/medusa-geth/accounts/abi"
)

// shrinker reduces a known-failing argument tuple toward a locally minimal one: an input that still reproduces the
// failure but from which no further single-argument reduction (halving an integer's magnitude, truncating a
// dynamic array/bytes/string, flipping a true bool to false) also reproduces it. Addresses and other fixed-size or
// composite values are left as generated.
//
// This mirrors spec.md §4.5/§9: shrinking is exposed as a pure "candidate, predicate" loop -- the driver generates
// a candidate, the predicate (isFailure composed with invoke) is evaluated, no further inversion of control.
type shrinker struct {
	method     abi.Method
	maxRejects int
}

func newShrinker(method abi.Method, maxRejects int) *shrinker {
	return &shrinker{method: method, maxRejects: maxRejects}
}

// shrink repeatedly narrows args, keeping any reduction for which stillFails returns true, until maxRejects
// consecutive reductions fail to reproduce the failure or no further reduction is possible. A final linear pass
// (see linearRefine) then tightens any integer argument down to its exact failure boundary, since halving alone
// converges only to within a factor of two of it.
func (s *shrinker) shrink(args []any, stillFails func([]any) bool) []any {
	best := args
	rejects := 0
	for rejects < s.maxRejects {
		candidate, changed := s.reduceOnce(best)
		if !changed {
			break
		}
		if stillFails(candidate) {
			best = candidate
			rejects = 0
		} else {
			rejects++
		}
	}
	return s.linearRefine(best, stillFails)
}

// linearRefine decrements each integer argument one at a time, keeping the reduction as long as it still fails,
// until it reaches zero or the exact boundary below which the failure no longer reproduces. Halving an integer
// toward zero finds a locally minimal value only up to a factor of two (e.g. a test that fails for n > 100 bottoms
// out wherever halving last landed in (100, 200], not at the boundary 101 itself); this pass closes that gap.
func (s *shrinker) linearRefine(args []any, stillFails func([]any) bool) []any {
	best := args
	for i, input := range s.method.Inputs {
		if input.Type.T != abi.UintTy && input.Type.T != abi.IntTy {
			continue
		}
		for {
			n, ok := best[i].(*big.Int)
			if !ok || n.Sign() == 0 {
				break
			}
			step := big.NewInt(1)
			if n.Sign() < 0 {
				step.Neg(step)
			}
			candidate := append([]any(nil), best...)
			candidate[i] = new(big.Int).Sub(n, step)
			if !stillFails(candidate) {
				break
			}
			best = candidate
		}
	}
	return best
}

// reduceOnce applies one shrink step to the first argument it can still reduce, scanning arguments in order so
// earlier parameters are minimized before later ones.
func (s *shrinker) reduceOnce(args []any) ([]any, bool) {
	for i, input := range s.method.Inputs {
		reduced, ok := reduceValue(&input.Type, args[i])
		if ok {
			out := append([]any(nil), args...)
			out[i] = reduced
			return out, true
		}
	}
	return args, false
}

func reduceValue(t *abi.Type, v any) (any, bool) {
	switch t.T {
	case abi.UintTy:
		n := v.(*big.Int)
		if n.Sign() == 0 {
			return nil, false
		}
		half := new(big.Int).Rsh(n, 1)
		return half, true
	case abi.IntTy:
		n := v.(*big.Int)
		if n.Sign() == 0 {
			return nil, false
		}
		half := new(big.Int).Quo(n, big.NewInt(2))
		return half, true
	case abi.BoolTy:
		if v.(bool) {
			return false, true
		}
		return nil, false
	case abi.BytesTy:
		b := v.([]byte)
		if len(b) == 0 {
			return nil, false
		}
		return b[:len(b)-1], true
	case abi.StringTy:
		str := v.(string)
		if len(str) == 0 {
			return nil, false
		}
		return str[:len(str)-1], true
	case abi.SliceTy:
		rv := reflect.ValueOf(v)
		if rv.Len() == 0 {
			return nil, false
		}
		return rv.Slice(0, rv.Len()-1).Interface(), true
	case abi.AddressTy, abi.FixedBytesTy, abi.ArrayTy, abi.TupleTy:
		// Fixed-length/composite types have no smaller representation to shrink toward.
		return nil, false
	default:
		return nil, false
	}
}
