package main

import (
	"fmt"
	"os"

	"github.com/crytic/testorch/cmd"
	"github.com/crytic/testorch/cmd/exitcodes"
)

func main() {
	err := cmd.Execute()
	innerErr, exitCode := exitcodes.GetInnerErrorAndExitCode(err)
	if innerErr != nil {
		fmt.Fprintln(os.Stderr, innerErr)
	}
	os.Exit(exitCode)
}
