// ABOUTME: Cobra command for interactive embedding provider setup.
// ABOUTME: Launches a bubbletea TUI wizard to choose and validate a provider, then saves the config.
package main

import (
	"fmt"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/spf13/cobra"

	"github.com/2389-research/linesense/internal/config"
	"github.com/2389-research/linesense/internal/tui"
)

var setupCmd = &cobra.Command{
	Use:   "setup",
	Short: "Choose an embedding provider",
	Long:  "Interactive wizard to pick the embedding provider, model, endpoint and API key, verified by embedding a probe.",
	RunE:  runSetup,
}

func init() {
	rootCmd.AddCommand(setupCmd)
}

func runSetup(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	model := tui.NewSetupModel(cfg.EmbeddingsConfig())

	p := tea.NewProgram(model)
	result, err := p.Run()
	if err != nil {
		return fmt.Errorf("TUI error: %w", err)
	}

	final := result.(tui.SetupModel)
	if !final.ShouldSave() {
		fmt.Println("Setup cancelled.")
		return nil
	}

	chosen := final.Result()
	cfg.Provider.Name = chosen.Name
	cfg.Provider.Model = chosen.Model
	cfg.Provider.BaseURL = chosen.BaseURL
	cfg.Provider.APIKey = chosen.APIKey

	if err := cfg.Save(); err != nil {
		return fmt.Errorf("failed to save config: %w", err)
	}

	configPath, err := config.GetConfigPath()
	if err != nil {
		fmt.Println("Config saved successfully.")
	} else {
		fmt.Printf("Config saved to %s\n", configPath)
	}
	return nil
}
