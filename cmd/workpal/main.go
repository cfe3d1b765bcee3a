// Package main is the entry point for the workpal CLI.
package main

import (
	"os"

	"github.com/workpal/workpal/internal/cli"
)

func main() {
	if err := cli.Execute(); err != nil {
		os.Exit(1)
	}
}
