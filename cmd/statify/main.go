// Package main provides the statify command.
package main

import (
	"os"

	"github.com/leapstack-labs/statify/internal/cli"
)

func main() {
	if err := cli.Execute(); err != nil {
		os.Exit(1)
	}
}
