// Command coordinator runs the workflow coordinator CLI. Grounded on the
// teacher's cmd/queue/main.go: ldflags version injection, panic recovery,
// and cli.BuildCLI().Execute().
package main

import (
	"fmt"
	"os"

	"github.com/dpxdt/coordinator/internal/cli"
)

var (
	version = "0.1.0"
	commit  = "dev"
	date    = "unknown"
)

func main() {
	defer func() {
		if r := recover(); r != nil {
			fmt.Fprintf(os.Stderr, "fatal error: %v\n", r)
			os.Exit(1)
		}
	}()

	root := cli.BuildCLI()
	root.Version = fmt.Sprintf("%s (commit: %s, built: %s)", version, commit, date)

	if err := root.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}
