// ABOUTME: One-shot CLI search: embeds a file or stdin and prints the best matching lines.
// ABOUTME: Reports embedding progress on stderr and supports thresholds, context lines and JSON output.
package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/2389-research/linesense/internal/models"
)

var searchCmd = &cobra.Command{
	Use:   "search <query>",
	Short: "Search the lines of a file by meaning",
	Long: `Embed every line of --file (or stdin) and print the lines closest in meaning to the query.

Example:
  linesense search "get user profile" --file api_routes.txt --top 3`,
	Args: cobra.MinimumNArgs(1),
	RunE: runSearch,
}

// Flags
var (
	searchFile      string
	searchTop       int
	searchThreshold float64
	searchContext   int
	searchJSON      bool
)

func init() {
	rootCmd.AddCommand(searchCmd)

	searchCmd.Flags().StringVarP(&searchFile, "file", "f", "", "File to search (default: stdin)")
	searchCmd.Flags().IntVarP(&searchTop, "top", "k", 0, "Number of results (default: search.top_k from config)")
	searchCmd.Flags().Float64Var(&searchThreshold, "threshold", -1, "Drop results scoring below this cosine similarity")
	searchCmd.Flags().IntVarP(&searchContext, "context", "C", 0, "Lines of context to print around each match")
	searchCmd.Flags().BoolVar(&searchJSON, "json", false, "Emit results as JSON")
}

// searchHit is one printed result.
type searchHit struct {
	LineIndex int      `json:"line_index"`
	Line      int      `json:"line"`
	Score     float64  `json:"score"`
	Text      string   `json:"text"`
	Before    []string `json:"before,omitempty"`
	After     []string `json:"after,omitempty"`
}

func runSearch(cmd *cobra.Command, args []string) error {
	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	query := strings.Join(args, " ")

	text, err := readSearchInput(cmd.InOrStdin())
	if err != nil {
		return err
	}

	errOut := cmd.ErrOrStderr()
	if err := globalCoordinator.WaitReady(ctx); err != nil {
		return err
	}

	lines, err := globalCoordinator.GenerateEmbeddings(ctx, text, func(p models.EmbeddingProgress) {
		fmt.Fprintf(errOut, "\rEmbedding lines: %d/%d (%d%%)", p.Current, p.Total, p.Percentage)
	})
	fmt.Fprintln(errOut)
	if err != nil {
		return err
	}

	results, err := globalCoordinator.Search(ctx, query, searchTop)
	if err != nil {
		return err
	}

	hits := buildHits(lines, results, searchThreshold, searchContext)
	if searchJSON {
		enc := json.NewEncoder(cmd.OutOrStdout())
		enc.SetIndent("", "  ")
		return enc.Encode(hits)
	}
	printHits(cmd.OutOrStdout(), hits)
	return nil
}

func readSearchInput(stdin io.Reader) (string, error) {
	if searchFile != "" {
		data, err := os.ReadFile(searchFile)
		if err != nil {
			return "", fmt.Errorf("failed to read %s: %w", searchFile, err)
		}
		return string(data), nil
	}
	data, err := io.ReadAll(stdin)
	if err != nil {
		return "", fmt.Errorf("failed to read stdin: %w", err)
	}
	return string(data), nil
}

// buildHits applies the score threshold and gathers context lines.
func buildHits(lines []models.Line, results []models.SearchResult, threshold float64, window int) []searchHit {
	hits := make([]searchHit, 0, len(results))
	for _, r := range results {
		if r.Score < threshold {
			continue
		}
		if r.LineIndex < 0 || r.LineIndex >= len(lines) {
			continue
		}
		hit := searchHit{
			LineIndex: r.LineIndex,
			Line:      r.LineIndex + 1,
			Score:     r.Score,
			Text:      lines[r.LineIndex].RawText,
		}
		if window > 0 {
			for i := max(r.LineIndex-window, 0); i < r.LineIndex; i++ {
				hit.Before = append(hit.Before, lines[i].RawText)
			}
			for i := r.LineIndex + 1; i <= min(r.LineIndex+window, len(lines)-1); i++ {
				hit.After = append(hit.After, lines[i].RawText)
			}
		}
		hits = append(hits, hit)
	}
	return hits
}

func printHits(w io.Writer, hits []searchHit) {
	if len(hits) == 0 {
		fmt.Fprintln(w, "No matching lines.")
		return
	}
	for i, h := range hits {
		if i > 0 && (len(h.Before) > 0 || len(h.After) > 0) {
			fmt.Fprintln(w, "--")
		}
		for j, text := range h.Before {
			fmt.Fprintf(w, "       | line %d | %s\n", h.Line-len(h.Before)+j, text)
		}
		fmt.Fprintf(w, "%.4f | line %d | %s\n", h.Score, h.Line, h.Text)
		for j, text := range h.After {
			fmt.Fprintf(w, "       | line %d | %s\n", h.Line+1+j, text)
		}
	}
}
