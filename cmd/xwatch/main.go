// xwatch runs a command and restarts it whenever files in the workspace
// change.
package main

import (
	"os"

	"github.com/hupe1980/xwatch/internal/cli"
)

func main() {
	os.Exit(cli.Execute())
}
