// ABOUTME: Cobra command printing the normalized form of its arguments.
// ABOUTME: Shows exactly what text is sent to the embedding provider.
package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/2389-research/linesense/internal/embeddings"
)

var normalizeCmd = &cobra.Command{
	Use:   "normalize <text...>",
	Short: "Print the normalized form of each argument",
	Long:  "Split identifiers on underscores, hyphens, slashes and camelCase boundaries the same way lines are rewritten before embedding.",
	Args:  cobra.MinimumNArgs(1),
	RunE:  runNormalize,
}

func init() {
	rootCmd.AddCommand(normalizeCmd)
}

func runNormalize(cmd *cobra.Command, args []string) error {
	for _, arg := range args {
		fmt.Fprintln(cmd.OutOrStdout(), embeddings.Normalize(arg))
	}
	return nil
}
