// Command courier sends HTTP requests and uploads files with progress output.
package main

import (
	"os"

	"github.com/meigma/courier/cmd/courier/cli"
)

func main() {
	if err := cli.Execute(); err != nil {
		os.Exit(1)
	}
}
