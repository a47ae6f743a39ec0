// Command phaserun runs a job described as an ordered list of phases and
// reconciles its output into a task tracker.
package main

import (
	"os"

	"github.com/nilsjohansson/phaserun/internal/cli"
)

func main() {
	os.Exit(cli.Execute())
}
