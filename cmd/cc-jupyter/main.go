// cc-jupyter submits Jupyter notebooks to a Curious Containers notebook
// service and follows their execution from the terminal.
package main

import (
	"os"

	"github.com/curious-containers/cc-jupyter-cli/internal/cli"
)

func main() {
	if err := cli.Execute(); err != nil {
		os.Exit(1)
	}
}
