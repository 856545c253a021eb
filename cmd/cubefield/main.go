// Command cubefield drives and inspects subdivided cube scenes.
package main

import (
	"fmt"
	"os"

	"github.com/roach88/cubefield/internal/cli"
)

func main() {
	if err := cli.NewRootCommand().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(cli.GetExitCode(err))
	}
}
