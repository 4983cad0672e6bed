// Command semaflow is the offline CLI for SemaFlow: compiling a query
// request against a YAML model directory without standing up the HTTP
// server, the way the teacher's cmd/cli wraps declarative.LoadDirectory
// and declarative.Validate for offline config checks.
package main

import (
	"os"

	"github.com/semaflow/semaflow/internal/cli"
)

func main() {
	os.Exit(cli.Execute())
}
