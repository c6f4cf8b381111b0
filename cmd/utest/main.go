// Command utest runs scripted asynchronous test suites.
package main

import (
	"errors"
	"fmt"
	"os"

	"github.com/roach88/utest/internal/cli"
)

func main() {
	if err := cli.NewRootCommand().Execute(); err != nil {
		var exitErr *cli.ExitError
		if errors.As(err, &exitErr) {
			fmt.Fprintln(os.Stderr, "utest:", err)
		}
		os.Exit(cli.GetExitCode(err))
	}
}
