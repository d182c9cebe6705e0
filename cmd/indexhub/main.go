// Package main provides the entry point for the indexhub CLI.
package main

import (
	"os"

	"github.com/Aman-CERP/indexhub/cmd/indexhub/cmd"
)

func main() {
	if err := cmd.Execute(); err != nil {
		os.Exit(cmd.ExitCode(err))
	}
}
