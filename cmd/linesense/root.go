// ABOUTME: Root Cobra command and global flags for linesense CLI.
// ABOUTME: Sets up lifecycle hooks for .env and config loading, logging, and the embedding coordinator.
package main

import (
	"context"
	"fmt"
	"io"
	"log"
	"os"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"github.com/2389-research/linesense/internal/config"
	"github.com/2389-research/linesense/internal/coordinator"
	"github.com/2389-research/linesense/internal/embeddings"
	"github.com/2389-research/linesense/internal/worker"
)

var globalConfig *config.Config
var globalWorker *worker.Worker
var globalCoordinator *coordinator.Coordinator
var globalProviderName string
var globalLogFile *os.File

// Flags
var (
	providerFlag string
	logFileFlag  string
	verboseFlag  bool
)

// engineCommands start the embedding provider before running.
var engineCommands = map[string]bool{
	"edit":   true,
	"search": true,
	"mcp":    true,
}

var rootCmd = &cobra.Command{
	Use:   "linesense",
	Short: "Semantic search over the lines of a text",
	Long: `
██╗     ██╗███╗   ██╗███████╗███████╗███████╗███╗   ██╗███████╗███████╗
██║     ██║████╗  ██║██╔════╝██╔════╝██╔════╝████╗  ██║██╔════╝██╔════╝
██║     ██║██╔██╗ ██║█████╗  ███████╗█████╗  ██╔██╗ ██║███████╗█████╗
██║     ██║██║╚██╗██║██╔══╝  ╚════██║██╔══╝  ██║╚██╗██║╚════██║██╔══╝
███████╗██║██║ ╚████║███████╗███████║███████╗██║ ╚████║███████║███████╗
╚══════╝╚═╝╚═╝  ╚═══╝╚══════╝╚══════╝╚══════╝╚═╝  ╚═══╝╚══════╝╚══════╝

Embed every line of a text and find lines by meaning.
Identifiers like getUserProfile match queries like "get user profile".`,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		if cmd.Name() == "help" || cmd.Name() == "setup" {
			return nil
		}

		// A missing .env is fine.
		_ = godotenv.Load()

		cfg, err := config.Load()
		if err != nil {
			return fmt.Errorf("failed to load config: %w", err)
		}
		cfg.ApplyEnv()
		if providerFlag != "" {
			cfg.Provider.Name = providerFlag
		}
		if err := cfg.Validate(); err != nil {
			return err
		}
		globalConfig = cfg

		if err := setupLogging(cmd.Name(), cfg); err != nil {
			return err
		}

		if !engineCommands[cmd.Name()] {
			return nil
		}

		provider, err := embeddings.NewProvider(cfg.EmbeddingsConfig())
		if err != nil {
			return err
		}
		globalProviderName = provider.ModelName()
		globalWorker = worker.New(provider)
		globalCoordinator = coordinator.New(globalWorker, coordinator.Options{
			BatchSize: cfg.Search.BatchSize,
			TopK:      cfg.Search.TopK,
		})
		globalCoordinator.Start(context.Background())
		return nil
	},
	PersistentPostRunE: func(cmd *cobra.Command, args []string) error {
		if globalWorker != nil {
			globalWorker.Close()
			globalWorker = nil
		}
		if globalLogFile != nil {
			_ = globalLogFile.Close()
			globalLogFile = nil
		}
		return nil
	},
}

func init() {
	rootCmd.PersistentFlags().StringVar(&providerFlag, "provider", "", "Embedding provider: local, openai, gemini, or tei")
	rootCmd.PersistentFlags().StringVar(&logFileFlag, "log-file", "", "Append logs to this file")
	rootCmd.PersistentFlags().BoolVarP(&verboseFlag, "verbose", "v", false, "Log to stderr (ignored by edit)")
}

// setupLogging routes the standard logger. The editor owns the terminal,
// so it only ever logs to a file.
func setupLogging(command string, cfg *config.Config) error {
	path := logFileFlag
	if path == "" {
		var err error
		path, err = cfg.GetLogPath()
		if err != nil {
			return fmt.Errorf("failed to resolve log path: %w", err)
		}
	}

	if path != "" {
		f, err := tea.LogToFile(path, "linesense")
		if err != nil {
			return fmt.Errorf("failed to open log file: %w", err)
		}
		globalLogFile = f
		return nil
	}

	if verboseFlag && command != "edit" {
		log.SetOutput(os.Stderr)
		return nil
	}
	log.SetOutput(io.Discard)
	return nil
}
