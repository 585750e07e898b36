package cmd

import (
	"github.com/spf13/cobra"

	"github.com/crytic/testorch/filter"
)

// addTestFlags registers every flag the test command accepts.
func addTestFlags() error {
	testCmd.Flags().String("artifacts", DefaultArtifactsFilename, "path to the compiled-artifacts JSON file")
	testCmd.Flags().String("sender", "", "address test suites are deployed and called from (required)")
	testCmd.Flags().String("initial-balance", "0", "ETH balance (wei, decimal) the sender starts with")
	testCmd.Flags().Uint64("gas-limit", 0, "block gas limit (0 uses the runner default)")
	testCmd.Flags().String("spec", "", "EVM hardfork spec to execute under (latest, istanbul, berlin, london, paris, shanghai, cancun)")
	testCmd.Flags().Int("verbosity", 0, "trace verbosity: 3 = failed test traces, 4 = + failed setup traces, 5 = everything")
	testCmd.Flags().Bool("allow-failure", false, "exit 0 even if one or more tests failed")
	testCmd.Flags().Bool("json", false, "print the final outcome as JSON instead of a human summary")
	testCmd.Flags().Bool("include-fuzz-tests", true, "run fuzz (property) tests in addition to standard tests")
	testCmd.Flags().String("debug", "", "require exactly one matching test and report its suite id and signature instead of running it")

	testCmd.Flags().String("test-pattern", "", "positive regex applied to test function names")
	testCmd.Flags().String("test-pattern-inverse", "", "negative regex applied to test function names")
	testCmd.Flags().String("contract-pattern", "", "positive regex applied to contract names")
	testCmd.Flags().String("contract-pattern-inverse", "", "negative regex applied to contract names")
	testCmd.Flags().String("path-pattern", "", "positive glob applied to source paths")
	testCmd.Flags().String("path-pattern-inverse", "", "negative glob applied to source paths")

	testCmd.Flags().Int("fuzz-cases", 0, "number of cases per fuzz test (0 uses the driver default)")
	testCmd.Flags().Int64("fuzz-seed", 0, "fixed per-run fuzz seed (0 derives a fresh one from a random run id)")

	return nil
}

// filterConfigFromFlags builds a filter.Config from whatever pattern flags were set.
func filterConfigFromFlags(cmd *cobra.Command) (filter.Config, error) {
	var cfg filter.Config
	var err error
	if cfg.TestPattern, err = cmd.Flags().GetString("test-pattern"); err != nil {
		return cfg, err
	}
	if cfg.TestPatternInverse, err = cmd.Flags().GetString("test-pattern-inverse"); err != nil {
		return cfg, err
	}
	if cfg.ContractPattern, err = cmd.Flags().GetString("contract-pattern"); err != nil {
		return cfg, err
	}
	if cfg.ContractPatternInverse, err = cmd.Flags().GetString("contract-pattern-inverse"); err != nil {
		return cfg, err
	}
	if cfg.PathPattern, err = cmd.Flags().GetString("path-pattern"); err != nil {
		return cfg, err
	}
	if cfg.PathPatternInverse, err = cmd.Flags().GetString("path-pattern-inverse"); err != nil {
		return cfg, err
	}
	return cfg, nil
}
