// Package main is the entry point for the claimcheck CLI.
package main

import (
	"os"

	"github.com/nulljosh/claimcheck/cmd/claimcheck/commands"
)

func main() {
	if err := commands.Execute(); err != nil {
		os.Exit(1)
	}
}
