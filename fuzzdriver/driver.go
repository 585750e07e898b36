package fuzzdriver

import (
	"fmt"
	"math/rand"
	"sort"

	"github.com/crytic/medusa-geth/accounts/abi"
)

// ReasonTooManyGlobalRejects is the Result.Reason produced when the driver exhausts Config.MaxGlobalRejects
// without reaching Cases successful executions. Per spec.md §7, FuzzRejectOverflow is recorded as a TestFailure
// with this reason string, never propagated as a Go error.
const ReasonTooManyGlobalRejects = "Too many global rejects"

// Outcome is what the caller's Invoke reports back for one generated call.
type Outcome struct {
	Reverted     bool
	RevertReason string
	GasUsed      uint64
}

// Invoke executes one fuzz case against the contract under test and reports its outcome. The caller (the
// ContractRunner) is responsible for snapshotting EVM state before the call and restoring it after, per spec.md
// §4.5 step 2 -- the driver itself never touches the Executor.
type Invoke func(args []any) (Outcome, error)

// Case is one accepted (non-rejected) fuzz execution, retained for median/mean gas reporting.
type Case struct {
	Calldata []byte
	Gas      uint64
}

// Counterexample is the minimal failing input the shrinker converged on.
type Counterexample struct {
	Calldata []byte
	Args     []any
}

// Result is the FuzzDriver's verdict for one test function.
type Result struct {
	Success        bool
	Reason         string
	Counterexample *Counterexample
	Cases          []Case
	MedianGas      uint64
	MeanGas        uint64
}

// Run drives cfg.Cases random, ABI-typed calls against method through invoke, applying isFailure to each Outcome to
// decide pass/fail (the expected-failure rule in spec.md §4.4 lives in isFailure, not here). On the first failure
// it shrinks to a locally minimal counterexample and returns immediately; otherwise it returns a passing Result
// once Cases accepted executions have run.
func Run(method abi.Method, cfg Config, isFailure func(Outcome) bool, invoke Invoke) (*Result, error) {
	rng := rand.New(rand.NewSource(cfg.Seed))
	generator := newRandomValueGenerator(rng)

	cases := make([]Case, 0, cfg.Cases)
	globalRejects := 0

	for len(cases) < cfg.Cases {
		args, err := generator.generateArgs(method)
		if err != nil {
			return nil, fmt.Errorf("fuzz generation failed for %s: %w", method.Sig, err)
		}

		calldata, err := encodeCall(method, args)
		if err != nil {
			globalRejects++
			if globalRejects > cfg.MaxGlobalRejects {
				return &Result{Success: false, Reason: ReasonTooManyGlobalRejects}, nil
			}
			continue
		}

		outcome, err := invoke(args)
		if err != nil {
			return nil, fmt.Errorf("fuzz execution failed for %s: %w", method.Sig, err)
		}

		if isFailure(outcome) {
			return shrinkToCounterexample(method, cfg, args, outcome, isFailure, invoke, cases)
		}

		cases = append(cases, Case{Calldata: calldata, Gas: outcome.GasUsed})
	}

	median, mean := gasStats(cases)
	return &Result{Success: true, Cases: cases, MedianGas: median, MeanGas: mean}, nil
}

// shrinkToCounterexample reduces the first failing input found to a locally minimal one and assembles the final
// failing Result, retaining whatever passing cases were accumulated before the failure (spec.md §4.5 "Retain
// {calldata, gas} per accepted case").
func shrinkToCounterexample(
	method abi.Method,
	cfg Config,
	failingArgs []any,
	failingOutcome Outcome,
	isFailure func(Outcome) bool,
	invoke Invoke,
	accepted []Case,
) (*Result, error) {
	lastOutcome := failingOutcome
	var invokeErr error

	stillFails := func(candidate []any) bool {
		outcome, err := invoke(candidate)
		if err != nil {
			invokeErr = err
			return false
		}
		if isFailure(outcome) {
			lastOutcome = outcome
			return true
		}
		return false
	}

	minimal := newShrinker(method, cfg.MaxLocalRejects).shrink(failingArgs, stillFails)
	if invokeErr != nil {
		return nil, fmt.Errorf("fuzz shrinking failed for %s: %w", method.Sig, invokeErr)
	}

	calldata, err := encodeCall(method, minimal)
	if err != nil {
		return nil, fmt.Errorf("could not encode counterexample for %s: %w", method.Sig, err)
	}

	reason := lastOutcome.RevertReason
	if reason == "" {
		reason = "assertion failed"
	}

	median, mean := gasStats(accepted)
	return &Result{
		Success: false,
		Reason:  reason,
		Counterexample: &Counterexample{
			Calldata: calldata,
			Args:     minimal,
		},
		Cases:     accepted,
		MedianGas: median,
		MeanGas:   mean,
	}, nil
}

func encodeCall(method abi.Method, args []any) ([]byte, error) {
	packed, err := method.Inputs.Pack(args...)
	if err != nil {
		return nil, err
	}
	return append(append([]byte{}, method.ID...), packed...), nil
}

func gasStats(cases []Case) (median, mean uint64) {
	if len(cases) == 0 {
		return 0, 0
	}
	gases := make([]uint64, len(cases))
	var total uint64
	for i, c := range cases {
		gases[i] = c.Gas
		total += c.Gas
	}
	sort.Slice(gases, func(i, j int) bool { return gases[i] < gases[j] })
	mid := len(gases) / 2
	if len(gases)%2 == 0 {
		median = (gases[mid-1] + gases[mid]) / 2
	} else {
		median = gases[mid]
	}
	mean = total / uint64(len(gases))
	return median, mean
}
