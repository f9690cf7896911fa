// ABOUTME: MCP tool implementations for semantic line search.
// ABOUTME: Registers normalize_text, generate_embeddings, search_lines, read_line, clear_lines, embedding_status.
package mcp

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	gomcp "github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/2389-research/linesense/internal/coordinator"
	"github.com/2389-research/linesense/internal/embeddings"
	"github.com/2389-research/linesense/internal/models"
)

func (s *Server) registerLineTools() {
	s.mcp.AddTool(&gomcp.Tool{
		Name:        "normalize_text",
		Description: "Show how a line is rewritten before embedding: identifiers split on underscores, hyphens, slashes and camelCase boundaries, whitespace collapsed.",
		InputSchema: json.RawMessage(`{
			"type": "object",
			"properties": {
				"text": {"type": "string", "description": "Text to normalize"}
			},
			"required": ["text"]
		}`),
	}, s.handleNormalizeText)

	s.mcp.AddTool(&gomcp.Tool{
		Name:        "generate_embeddings",
		Description: "Embed a block of text line by line, replacing the current collection. Blank lines are kept but not embedded.",
		InputSchema: json.RawMessage(`{
			"type": "object",
			"properties": {
				"text": {"type": "string", "description": "Newline-separated text to embed"}
			},
			"required": ["text"]
		}`),
	}, s.handleGenerateEmbeddings)

	s.mcp.AddTool(&gomcp.Tool{
		Name:        "search_lines",
		Description: "Rank embedded lines by meaning against a natural-language query. Returns line indexes, cosine scores and text.",
		InputSchema: json.RawMessage(`{
			"type": "object",
			"properties": {
				"query": {"type": "string", "description": "What to look for"},
				"limit": {"type": "number", "description": "Maximum number of results (default 5)"}
			},
			"required": ["query"]
		}`),
	}, s.handleSearchLines)

	s.mcp.AddTool(&gomcp.Tool{
		Name:        "read_line",
		Description: "Read one line of the current collection by zero-based index.",
		InputSchema: json.RawMessage(`{
			"type": "object",
			"properties": {
				"index": {"type": "number", "description": "Zero-based line index"}
			},
			"required": ["index"]
		}`),
	}, s.handleReadLine)

	s.mcp.AddTool(&gomcp.Tool{
		Name:        "clear_lines",
		Description: "Discard the current collection and cancel any embedding in progress.",
		InputSchema: json.RawMessage(`{"type": "object", "properties": {}}`),
	}, s.handleClearLines)

	s.mcp.AddTool(&gomcp.Tool{
		Name:        "embedding_status",
		Description: "Report provider readiness, collection size, and progress of any running embedding.",
		InputSchema: json.RawMessage(`{"type": "object", "properties": {}}`),
	}, s.handleEmbeddingStatus)
}

func (s *Server) handleNormalizeText(ctx context.Context, req *gomcp.CallToolRequest) (*gomcp.CallToolResult, error) {
	var args struct {
		Text string `json:"text"`
	}
	if err := json.Unmarshal(req.Params.Arguments, &args); err != nil {
		return toolError("invalid arguments: %v", err), nil
	}

	return textResult(embeddings.Normalize(args.Text)), nil
}

func (s *Server) handleGenerateEmbeddings(ctx context.Context, req *gomcp.CallToolRequest) (*gomcp.CallToolResult, error) {
	var args struct {
		Text string `json:"text"`
	}
	if err := json.Unmarshal(req.Params.Arguments, &args); err != nil {
		return toolError("invalid arguments: %v", err), nil
	}

	lines, err := s.engine.GenerateEmbeddings(ctx, args.Text, nil)
	if err != nil {
		return toolError("failed to generate embeddings: %s", describe(err)), nil
	}

	dim := 0
	for _, l := range lines {
		if l.Embedding.Valid {
			dim = l.Embedding.Dimension()
			break
		}
	}

	return textResult(fmt.Sprintf("Embedded %d of %d lines (dimension %d).",
		models.CountEmbedded(lines), len(lines), dim)), nil
}

func (s *Server) handleSearchLines(ctx context.Context, req *gomcp.CallToolRequest) (*gomcp.CallToolResult, error) {
	var args struct {
		Query string `json:"query"`
		Limit int    `json:"limit"`
	}
	if err := json.Unmarshal(req.Params.Arguments, &args); err != nil {
		return toolError("invalid arguments: %v", err), nil
	}

	if strings.TrimSpace(args.Query) == "" {
		return toolError("query is required"), nil
	}
	if args.Limit <= 0 {
		args.Limit = s.defaultLimit
	}

	matches, err := s.engine.SearchMatches(ctx, args.Query, args.Limit)
	if err != nil {
		return toolError("search failed: %s", describe(err)), nil
	}

	if len(matches) == 0 {
		return textResult("No embedded lines to search."), nil
	}

	var sb strings.Builder
	for i, m := range matches {
		sb.WriteString(fmt.Sprintf("%d. [line %d] %.4f  %s\n", i+1, m.LineIndex, m.Score, m.Line.RawText))
	}

	return textResult(sb.String()), nil
}

func (s *Server) handleReadLine(ctx context.Context, req *gomcp.CallToolRequest) (*gomcp.CallToolResult, error) {
	var args struct {
		Index *int `json:"index"`
	}
	if err := json.Unmarshal(req.Params.Arguments, &args); err != nil {
		return toolError("invalid arguments: %v", err), nil
	}

	if args.Index == nil {
		return toolError("index is required"), nil
	}

	line, ok := s.engine.Line(*args.Index)
	if !ok {
		return toolError("no line at index %d (collection has %d lines)", *args.Index, len(s.engine.Lines())), nil
	}

	embedded := "no"
	if line.Embedding.Valid {
		embedded = fmt.Sprintf("yes (dimension %d)", line.Embedding.Dimension())
	}

	var sb strings.Builder
	sb.WriteString(fmt.Sprintf("Line: %d\n", line.Index))
	sb.WriteString(fmt.Sprintf("Raw: %s\n", line.RawText))
	sb.WriteString(fmt.Sprintf("Normalized: %s\n", line.NormalizedText))
	sb.WriteString(fmt.Sprintf("Embedded: %s\n", embedded))

	return textResult(sb.String()), nil
}

func (s *Server) handleClearLines(ctx context.Context, req *gomcp.CallToolRequest) (*gomcp.CallToolResult, error) {
	s.engine.Clear()
	return textResult("Collection cleared."), nil
}

func (s *Server) handleEmbeddingStatus(ctx context.Context, req *gomcp.CallToolRequest) (*gomcp.CallToolResult, error) {
	status := s.engine.Status()
	lines := s.engine.Lines()

	var sb strings.Builder
	sb.WriteString(fmt.Sprintf("State: %s\n", status.State))
	if s.providerName != "" {
		sb.WriteString(fmt.Sprintf("Provider: %s\n", s.providerName))
	}
	if status.Err != nil {
		sb.WriteString(fmt.Sprintf("Error: %v\n", status.Err))
	}
	sb.WriteString(fmt.Sprintf("Lines: %d (%d embedded)\n", len(lines), models.CountEmbedded(lines)))
	if p, ok := s.engine.Progress(); ok {
		sb.WriteString(fmt.Sprintf("Generating: %d%% (%d/%d)\n", p.Percentage, p.Current, p.Total))
	}

	return textResult(sb.String()), nil
}

// describe turns coordinator errors into guidance for the calling agent.
func describe(err error) string {
	switch {
	case errors.Is(err, coordinator.ErrEmptyInput):
		return "input is empty"
	case errors.Is(err, coordinator.ErrBusy):
		return "another generation is running, retry when embedding_status shows no progress"
	case errors.Is(err, coordinator.ErrSuperseded):
		return "the collection was cleared or replaced while this call ran"
	case errors.Is(err, coordinator.ErrNotReady):
		return err.Error() + " (call generate_embeddings first, or check embedding_status)"
	default:
		return err.Error()
	}
}

func textResult(text string) *gomcp.CallToolResult {
	return &gomcp.CallToolResult{
		Content: []gomcp.Content{&gomcp.TextContent{Text: text}},
	}
}

// toolError creates an error result for MCP tool responses.
func toolError(format string, args ...interface{}) *gomcp.CallToolResult {
	return &gomcp.CallToolResult{
		Content: []gomcp.Content{&gomcp.TextContent{Text: fmt.Sprintf(format, args...)}},
		IsError: true,
	}
}
