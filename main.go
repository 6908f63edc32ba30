// Package main is the entry point for the mirror CLI application.
package main

import (
	"fmt"
	"os"

	"github.com/danielolaszy/mirror/cmd"
	"github.com/danielolaszy/mirror/internal/logging"
)

// main executes the root command and handles any errors that occur.
func main() {
	if err := cmd.Execute(); err != nil {
		logging.Error("command execution failed", "error", err)
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
