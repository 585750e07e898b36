package cmd

import (
	"encoding/json"
	"fmt"
	"math/big"
	"os"

	"github.com/crytic/medusa-geth/common"
	"github.com/crytic/medusa-geth/core"
	"github.com/google/uuid"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"

	"github.com/crytic/testorch/cmd/exitcodes"
	"github.com/crytic/testorch/executor"
	"github.com/crytic/testorch/filter"
	"github.com/crytic/testorch/fuzzdriver"
	"github.com/crytic/testorch/runner"
)

// testCmd represents the command provider for running a test suite against a set of compiled artifacts.
var testCmd = &cobra.Command{
	Use:               "test",
	Short:             "Links and runs DSTest-style test suites against compiled artifacts",
	Long:              `Links and runs DSTest-style test suites against compiled artifacts`,
	Args:              cmdValidateTestArgs,
	ValidArgsFunction: cmdValidTestArgs,
	RunE:              cmdRunTest,
	SilenceUsage:      true,
	SilenceErrors:     true,
}

func init() {
	if err := addTestFlags(); err != nil {
		cmdLogger.Panic("Failed to initialize the test command", err)
	}
	rootCmd.AddCommand(testCmd)
}

// cmdValidTestArgs returns which flags are valid for dynamic shell completion for the test command: every flag that
// has not already been set on the command line.
func cmdValidTestArgs(cmd *cobra.Command, args []string, toComplete string) ([]string, cobra.ShellCompDirective) {
	var unusedFlags []string
	cmd.Flags().VisitAll(func(flag *pflag.Flag) {
		if !flag.Changed {
			unusedFlags = append(unusedFlags, "--"+flag.Name)
		}
	})
	return unusedFlags, cobra.ShellCompDirectiveNoFileComp
}

// cmdValidateTestArgs makes sure no positional arguments were provided to the test command.
func cmdValidateTestArgs(cmd *cobra.Command, args []string) error {
	if err := cobra.NoArgs(cmd, args); err != nil {
		err = fmt.Errorf("test does not accept any positional arguments, only flags and their associated values")
		cmdLogger.Error("Failed to validate args to the test command", err)
		return err
	}
	return nil
}

// cmdRunTest loads artifacts, assembles a MultiRunner from the flag set, runs every admitted suite, and adapts the
// result into a process exit code (spec.md §6: "Exit codes ... set by the surrounding CLI").
func cmdRunTest(cmd *cobra.Command, args []string) error {
	artifactsPath, err := cmd.Flags().GetString("artifacts")
	if err != nil {
		return err
	}
	artifacts, err := loadArtifacts(artifactsPath)
	if err != nil {
		cmdLogger.Error("Failed to run the test command", err)
		return err
	}

	runnerCfg, err := runnerConfigFromFlags(cmd)
	if err != nil {
		cmdLogger.Error("Failed to run the test command", err)
		return err
	}

	builder, err := runner.NewRunnerBuilder(runnerCfg)
	if err != nil {
		return exitcodes.NewErrorWithExitCode(err, exitcodes.ExitCodeConfigError)
	}

	multiRunner, err := builder.Build(artifacts, 0)
	if err != nil {
		return exitcodes.NewErrorWithExitCode(err, exitcodes.ExitCodeRunError)
	}
	for _, skipped := range multiRunner.LinkSkipped() {
		cmdLogger.Warn(fmt.Sprintf("suite %s was dropped during linking: %v", skipped.Suite, skipped.Err))
	}

	filterCfg, err := filterConfigFromFlags(cmd)
	if err != nil {
		return err
	}
	f, err := filter.New(filterCfg)
	if err != nil {
		return exitcodes.NewErrorWithExitCode(err, exitcodes.ExitCodeConfigError)
	}

	debugPattern, err := cmd.Flags().GetString("debug")
	if err != nil {
		return err
	}
	if debugPattern != "" {
		debugCfg := filterCfg
		debugCfg.TestPattern = debugPattern
		debugFilter, err := filter.New(debugCfg)
		if err != nil {
			return exitcodes.NewErrorWithExitCode(err, exitcodes.ExitCodeConfigError)
		}
		id, sig, err := multiRunner.ResolveSingleTest(debugFilter)
		if err != nil {
			return exitcodes.NewErrorWithExitCode(err, exitcodes.ExitCodeConfigError)
		}
		fmt.Printf("%s :: %s\n", id.Identifier(), sig)
		return nil
	}

	includeFuzzTests, err := cmd.Flags().GetBool("include-fuzz-tests")
	if err != nil {
		return err
	}
	allowFailure, err := cmd.Flags().GetBool("allow-failure")
	if err != nil {
		return err
	}
	asJSON, err := cmd.Flags().GetBool("json")
	if err != nil {
		return err
	}

	results, err := multiRunner.Test(f, nil, includeFuzzTests)
	if err != nil {
		return exitcodes.NewErrorWithExitCode(err, exitcodes.ExitCodeRunError)
	}
	outcome := &runner.Outcome{AllowFailure: allowFailure, Results: results}

	if asJSON {
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		if err := enc.Encode(outcome.Results); err != nil {
			return err
		}
	} else {
		cmdLogger.Info(outcome.Summary())
	}

	if err := outcome.EnsureOK(); err != nil {
		return exitcodes.NewErrorWithExitCode(err, exitcodes.ExitCodeTestFailed)
	}
	return nil
}

// runnerConfigFromFlags builds a runner.Config from the test command's flag set.
func runnerConfigFromFlags(cmd *cobra.Command) (runner.Config, error) {
	var cfg runner.Config

	senderHex, err := cmd.Flags().GetString("sender")
	if err != nil {
		return cfg, err
	}
	if senderHex == "" {
		return cfg, fmt.Errorf("--sender is required")
	}
	cfg.Sender = common.HexToAddress(senderHex)

	initialBalanceStr, err := cmd.Flags().GetString("initial-balance")
	if err != nil {
		return cfg, err
	}
	initialBalance, ok := new(big.Int).SetString(initialBalanceStr, 10)
	if !ok {
		return cfg, fmt.Errorf("--initial-balance %q is not a valid base-10 integer", initialBalanceStr)
	}
	cfg.InitialBalance = initialBalance

	if cfg.GasLimit, err = cmd.Flags().GetUint64("gas-limit"); err != nil {
		return cfg, err
	}

	specFlag, err := cmd.Flags().GetString("spec")
	if err != nil {
		return cfg, err
	}
	if specFlag != "" {
		cfg.Spec = executor.Spec(specFlag)
	}

	if cfg.Verbosity, err = cmd.Flags().GetInt("verbosity"); err != nil {
		return cfg, err
	}

	cfg.Fuzzer = fuzzdriver.DefaultConfig()
	fuzzCases, err := cmd.Flags().GetInt("fuzz-cases")
	if err != nil {
		return cfg, err
	}
	if fuzzCases != 0 {
		cfg.Fuzzer.Cases = fuzzCases
	}
	fuzzSeed, err := cmd.Flags().GetInt64("fuzz-seed")
	if err != nil {
		return cfg, err
	}
	if fuzzSeed != 0 {
		cfg.Fuzzer.Seed = fuzzSeed
		// Every suite's fuzz seed is derived from RunID, so a fixed seed fixes the run id it is derived from.
		cfg.RunID = uuid.NewSHA1(uuid.Nil, []byte(fmt.Sprint(fuzzSeed)))
	}

	cfg.GenesisAlloc = core.GenesisAlloc{
		cfg.Sender: core.GenesisAccount{Balance: initialBalance},
	}

	return cfg, nil
}
