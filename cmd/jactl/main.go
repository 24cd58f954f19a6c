// Command jactl is the CLI entry point: a single main() that delegates
// to the cmd package's cobra root command.
package main

import (
	"fmt"
	"os"

	"github.com/jactl-lang/jactl/cmd/jactl/cmd"
)

func main() {
	if err := cmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
