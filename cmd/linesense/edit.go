// ABOUTME: Cobra command launching the semantic editor TUI.
// ABOUTME: Optionally preloads a file and runs the bubbletea app over the shared coordinator.
package main

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/spf13/cobra"

	"github.com/2389-research/linesense/internal/tui"
)

var editCmd = &cobra.Command{
	Use:   "edit [file]",
	Short: "Open the semantic editor",
	Long: `Open an editor, embed its lines with ctrl+g, and search them by meaning with ctrl+f.

The provider loads in the background; the header shows when it is ready.`,
	Args: cobra.MaximumNArgs(1),
	RunE: runEdit,
}

func init() {
	rootCmd.AddCommand(editCmd)
}

func runEdit(cmd *cobra.Command, args []string) error {
	opts := tui.AppOptions{TopK: globalConfig.Search.TopK}
	if len(args) == 1 {
		data, err := os.ReadFile(args[0])
		if err != nil {
			return fmt.Errorf("failed to read %s: %w", args[0], err)
		}
		opts.Text = string(data)
		opts.FileName = filepath.Base(args[0])
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	model := tui.NewAppModel(ctx, globalCoordinator, opts)
	p := tea.NewProgram(model, tea.WithAltScreen())
	if _, err := p.Run(); err != nil {
		return fmt.Errorf("TUI error: %w", err)
	}
	return nil
}
