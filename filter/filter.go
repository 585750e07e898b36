// Package filter decides whether a given source path, contract name, or test signature is in scope for a run,
// combining independent positive/negative regex and glob rules by logical AND.
package filter

import (
	"regexp"
	"strings"

	"github.com/bmatcuk/doublestar/v4"
	"github.com/crytic/testorch/logging"
)

// sourceTestSuffix is the well-known suffix (before the language extension) identifying a test source file, e.g.
// "Reverting.t.sol".
const sourceTestSuffix = ".t."

var logger = logging.GlobalLogger.NewSubLogger("module", logging.FilterService)

// Config holds every independent, optional matching rule. A nil/empty field means "accept everything" for its
// dimension.
type Config struct {
	// TestPattern is a positive regex applied to test function names.
	TestPattern string
	// TestPatternInverse is a negative regex applied to test function names: matches are rejected.
	TestPatternInverse string

	// ContractPattern is a positive regex applied to contract names.
	ContractPattern string
	// ContractPatternInverse is a negative regex applied to contract names: matches are rejected.
	ContractPatternInverse string

	// PathPattern is a positive glob applied to source paths.
	PathPattern string
	// PathPatternInverse is a negative glob applied to source paths: matches are rejected.
	PathPatternInverse string

	// LegacyPattern, when set and none of TestPattern/TestPatternInverse/ContractPattern/ContractPatternInverse
	// are set, is applied to test function names in place of TestPattern.
	LegacyPattern string
}

// Filter is the compiled, immutable form of a Config, safe to share (by reference) across concurrently running
// ContractRunners.
type Filter struct {
	testRe          *regexp.Regexp
	testReInverse   *regexp.Regexp
	contractRe      *regexp.Regexp
	contractReInv   *regexp.Regexp
	pathGlob        string
	pathGlobInverse string
}

// New compiles a Config into a Filter, or returns a ConfigError-flavored error if any regex fails to compile.
func New(cfg Config) (*Filter, error) {
	f := &Filter{
		pathGlob:        cfg.PathPattern,
		pathGlobInverse: cfg.PathPatternInverse,
	}

	testPattern := cfg.TestPattern
	useLegacy := cfg.TestPattern == "" && cfg.TestPatternInverse == "" &&
		cfg.ContractPattern == "" && cfg.ContractPatternInverse == "" && cfg.LegacyPattern != ""
	if useLegacy {
		testPattern = cfg.LegacyPattern
	}

	var err error
	if f.testRe, err = compile(testPattern); err != nil {
		return nil, err
	}
	if f.testReInverse, err = compile(cfg.TestPatternInverse); err != nil {
		return nil, err
	}
	if f.contractRe, err = compile(cfg.ContractPattern); err != nil {
		return nil, err
	}
	if f.contractReInv, err = compile(cfg.ContractPatternInverse); err != nil {
		return nil, err
	}

	if f.pathGlob != "" {
		if _, err := doublestar.Match(f.pathGlob, "probe"); err != nil {
			return nil, err
		}
	}
	if f.pathGlobInverse != "" {
		if _, err := doublestar.Match(f.pathGlobInverse, "probe"); err != nil {
			return nil, err
		}
	}

	return f, nil
}

func compile(pattern string) (*regexp.Regexp, error) {
	if pattern == "" {
		return nil, nil
	}
	return regexp.Compile(pattern)
}

// MatchesPath reports whether the given source path is accepted by the path glob rules.
func (f *Filter) MatchesPath(path string) bool {
	if f.pathGlob != "" {
		if ok, _ := doublestar.Match(f.pathGlob, path); !ok {
			return false
		}
	}
	if f.pathGlobInverse != "" {
		if ok, _ := doublestar.Match(f.pathGlobInverse, path); ok {
			return false
		}
	}
	return true
}

// MatchesContract reports whether the given contract name is accepted by the contract-name regex rules.
func (f *Filter) MatchesContract(name string) bool {
	if f.contractRe != nil && !f.contractRe.MatchString(name) {
		return false
	}
	if f.contractReInv != nil && f.contractReInv.MatchString(name) {
		return false
	}
	return true
}

// MatchesTest reports whether the given test function signature is accepted by the test-name regex rules.
func (f *Filter) MatchesTest(signature string) bool {
	if f.testRe != nil && !f.testRe.MatchString(signature) {
		return false
	}
	if f.testReInverse != nil && f.testReInverse.MatchString(signature) {
		return false
	}
	return true
}

// IsSourceFile reports whether path should be handed to the compiler collaborator at all. If a positive path glob
// is configured, acceptance is delegated to it; else if a negative glob is configured, acceptance is its inverse;
// else the well-known ".t.<ext>" test-source suffix is required.
func (f *Filter) IsSourceFile(path string) bool {
	if f.pathGlob != "" {
		ok, err := doublestar.Match(f.pathGlob, path)
		if err != nil {
			logger.Warn("invalid path pattern evaluated against ", path, ": ", err)
			return false
		}
		return ok
	}
	if f.pathGlobInverse != "" {
		ok, _ := doublestar.Match(f.pathGlobInverse, path)
		return !ok
	}
	return strings.Contains(path, sourceTestSuffix)
}
