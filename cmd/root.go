package cmd

import (
	"io"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/crytic/testorch/logging"
)

const version = "0.1.0"

// rootCmd represents the root CLI command object which all other commands stem from.
var rootCmd = &cobra.Command{
	Use:     "testorch",
	Version: version,
	Short:   "A contract test orchestration engine",
	Long:    "testorch links, runs, and fuzzes DSTest-style Solidity test suites against pre-compiled artifacts",
}

// cmdLogger is the logger used for the cmd package itself, before --verbosity is parsed and applied.
var cmdLogger = logging.NewLogger(zerolog.InfoLevel, true, make([]io.Writer, 0)...)

// Execute provides an exportable function to invoke the CLI. Returns an error if one was encountered; main.go
// translates it into a process exit code via exitcodes.GetInnerErrorAndExitCode.
func Execute() error {
	rootCmd.CompletionOptions.DisableDefaultCmd = true
	return rootCmd.Execute()
}
