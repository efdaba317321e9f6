package main

import (
	"os"

	"github.com/titledex/titledex/internal/cli"
)

func main() {
	if err := cli.RootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
