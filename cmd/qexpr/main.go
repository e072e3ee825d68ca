// Command qexpr validates, canonicalizes and catalogs retrieval query
// expressions.
package main

import (
	"errors"
	"fmt"
	"os"

	"github.com/roach88/qexpr/internal/cli"
)

func main() {
	os.Exit(run(os.Args[1:]))
}

func run(args []string) int {
	cmd := cli.NewRootCommand()
	cmd.SetArgs(args)

	err := cmd.Execute()
	if err == nil {
		return cli.ExitSuccess
	}

	// Commands report their own failures. Anything else came from cobra
	// (unknown flag, wrong argument count) and has not been shown yet.
	var exitErr *cli.ExitError
	if !errors.As(err, &exitErr) {
		fmt.Fprintln(os.Stderr, "Error:", err)
		return cli.ExitCommandError
	}
	return exitErr.Code
}
