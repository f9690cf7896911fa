// ABOUTME: Entry point for the linesense binary.
// ABOUTME: Executes the root Cobra command.
package main

import (
	"fmt"
	"os"
)

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
