// ABOUTME: Tests for line search MCP tool handlers.
// ABOUTME: Drives a real coordinator over the hashing embedder through each tool.
package mcp

import (
	"context"
	"encoding/json"
	"strings"
	"testing"
	"time"

	gomcp "github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/2389-research/linesense/internal/coordinator"
	"github.com/2389-research/linesense/internal/embeddings"
	"github.com/2389-research/linesense/internal/models"
	"github.com/2389-research/linesense/internal/worker"
)

func newTestEngine(t *testing.T) *coordinator.Coordinator {
	t.Helper()
	w := worker.New(embeddings.NewHashEmbedder(128))
	t.Cleanup(w.Close)

	c := coordinator.New(w, coordinator.Options{})
	c.Start(context.Background())

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := c.WaitReady(ctx); err != nil {
		t.Fatalf("WaitReady: %v", err)
	}
	return c
}

func makeLineServer(t *testing.T) *Server {
	t.Helper()
	server, err := NewServer(newTestEngine(t), WithProviderName("local-hash"))
	if err != nil {
		t.Fatalf("NewServer error: %v", err)
	}
	return server
}

func callTool(t *testing.T, s *Server, name string, args interface{}) *gomcp.CallToolResult {
	t.Helper()
	argsJSON, err := json.Marshal(args)
	if err != nil {
		t.Fatalf("failed to marshal args: %v", err)
	}

	req := &gomcp.CallToolRequest{
		Params: &gomcp.CallToolParamsRaw{
			Name:      name,
			Arguments: argsJSON,
		},
	}
	ctx := context.Background()

	handlers := map[string]func(context.Context, *gomcp.CallToolRequest) (*gomcp.CallToolResult, error){
		"normalize_text":      s.handleNormalizeText,
		"generate_embeddings": s.handleGenerateEmbeddings,
		"search_lines":        s.handleSearchLines,
		"read_line":           s.handleReadLine,
		"clear_lines":         s.handleClearLines,
		"embedding_status":    s.handleEmbeddingStatus,
	}
	handler, ok := handlers[name]
	if !ok {
		t.Fatalf("unknown tool: %s", name)
	}
	result, err := handler(ctx, req)
	if err != nil {
		t.Fatalf("handler error: %v", err)
	}
	return result
}

func getTextContent(result *gomcp.CallToolResult) string {
	if len(result.Content) == 0 {
		return ""
	}
	if tc, ok := result.Content[0].(*gomcp.TextContent); ok {
		return tc.Text
	}
	return ""
}

const toolSample = "getUserProfile\nrender_invoice_pdf\n\nretry-failed-payments"

func TestNormalizeText(t *testing.T) {
	s := makeLineServer(t)

	result := callTool(t, s, "normalize_text", map[string]string{"text": "getUserProfile_byID"})
	if result.IsError {
		t.Fatalf("unexpected error: %s", getTextContent(result))
	}
	if got := getTextContent(result); got != "get User Profile by ID" {
		t.Errorf("unexpected normalization %q", got)
	}
}

func TestGenerateEmbeddings(t *testing.T) {
	s := makeLineServer(t)

	result := callTool(t, s, "generate_embeddings", map[string]string{"text": toolSample})
	if result.IsError {
		t.Fatalf("unexpected error: %s", getTextContent(result))
	}
	text := getTextContent(result)
	if !strings.Contains(text, "Embedded 3 of 4 lines") {
		t.Errorf("unexpected summary %q", text)
	}
	if !strings.Contains(text, "dimension 128") {
		t.Errorf("expected dimension in summary, got %q", text)
	}
}

func TestGenerateEmbeddingsEmpty(t *testing.T) {
	s := makeLineServer(t)

	result := callTool(t, s, "generate_embeddings", map[string]string{"text": "   "})
	if !result.IsError {
		t.Error("expected error for blank text")
	}
	if !strings.Contains(getTextContent(result), "input is empty") {
		t.Errorf("unexpected error text %q", getTextContent(result))
	}
}

func TestSearchLines(t *testing.T) {
	s := makeLineServer(t)
	callTool(t, s, "generate_embeddings", map[string]string{"text": toolSample})

	result := callTool(t, s, "search_lines", map[string]interface{}{"query": "get user profile", "limit": 2})
	if result.IsError {
		t.Fatalf("unexpected error: %s", getTextContent(result))
	}
	text := getTextContent(result)
	lines := strings.Split(strings.TrimSpace(text), "\n")
	if len(lines) != 2 {
		t.Fatalf("expected 2 results, got %q", text)
	}
	if !strings.HasPrefix(lines[0], "1. [line 0]") || !strings.Contains(lines[0], "getUserProfile") {
		t.Errorf("expected getUserProfile first, got %q", lines[0])
	}
}

// replacedEngine answers Line lookups from a collection that replaced the
// one search ranked.
type replacedEngine struct {
	*coordinator.Coordinator
}

func (replacedEngine) Line(index int) (models.Line, bool) {
	return models.Line{Index: index, RawText: "text from a newer collection"}, true
}

func TestSearchLinesUsesRankedCollectionText(t *testing.T) {
	engine := replacedEngine{newTestEngine(t)}
	s, err := NewServer(engine)
	if err != nil {
		t.Fatalf("NewServer error: %v", err)
	}
	callTool(t, s, "generate_embeddings", map[string]string{"text": toolSample})

	result := callTool(t, s, "search_lines", map[string]interface{}{"query": "invoice pdf", "limit": 1})
	if result.IsError {
		t.Fatalf("unexpected error: %s", getTextContent(result))
	}
	text := getTextContent(result)
	if !strings.Contains(text, "[line 1]") || !strings.Contains(text, "render_invoice_pdf") {
		t.Errorf("expected the ranked line's own text, got %q", text)
	}
	if strings.Contains(text, "newer collection") {
		t.Errorf("search paired scores with another collection's text: %q", text)
	}
}

func TestSearchLinesBeforeGenerate(t *testing.T) {
	s := makeLineServer(t)

	result := callTool(t, s, "search_lines", map[string]interface{}{"query": "anything"})
	if !result.IsError {
		t.Error("expected error when nothing is embedded")
	}
	if !strings.Contains(getTextContent(result), "generate_embeddings first") {
		t.Errorf("expected guidance, got %q", getTextContent(result))
	}
}

func TestSearchLinesMissingQuery(t *testing.T) {
	s := makeLineServer(t)

	result := callTool(t, s, "search_lines", map[string]interface{}{})
	if !result.IsError {
		t.Error("expected error for missing query")
	}
}

func TestReadLine(t *testing.T) {
	s := makeLineServer(t)
	callTool(t, s, "generate_embeddings", map[string]string{"text": toolSample})

	result := callTool(t, s, "read_line", map[string]int{"index": 1})
	if result.IsError {
		t.Fatalf("unexpected error: %s", getTextContent(result))
	}
	text := getTextContent(result)
	for _, want := range []string{"Raw: render_invoice_pdf", "Normalized: render invoice pdf", "Embedded: yes"} {
		if !strings.Contains(text, want) {
			t.Errorf("expected %q in %q", want, text)
		}
	}

	result = callTool(t, s, "read_line", map[string]int{"index": 2})
	if !strings.Contains(getTextContent(result), "Embedded: no") {
		t.Errorf("blank line should not be embedded, got %q", getTextContent(result))
	}
}

func TestReadLineErrors(t *testing.T) {
	s := makeLineServer(t)
	callTool(t, s, "generate_embeddings", map[string]string{"text": toolSample})

	result := callTool(t, s, "read_line", map[string]int{"index": 99})
	if !result.IsError {
		t.Error("expected error for out-of-range index")
	}

	result = callTool(t, s, "read_line", map[string]int{})
	if !result.IsError {
		t.Error("expected error for missing index")
	}
}

func TestClearLines(t *testing.T) {
	s := makeLineServer(t)
	callTool(t, s, "generate_embeddings", map[string]string{"text": toolSample})

	result := callTool(t, s, "clear_lines", map[string]string{})
	if result.IsError {
		t.Fatalf("unexpected error: %s", getTextContent(result))
	}

	result = callTool(t, s, "search_lines", map[string]interface{}{"query": "profile"})
	if !result.IsError {
		t.Error("expected search to fail after clear")
	}
}

func TestEmbeddingStatus(t *testing.T) {
	s := makeLineServer(t)

	result := callTool(t, s, "embedding_status", map[string]string{})
	text := getTextContent(result)
	if !strings.Contains(text, "State: ready") || !strings.Contains(text, "Provider: local-hash") {
		t.Errorf("unexpected status %q", text)
	}
	if !strings.Contains(text, "Lines: 0 (0 embedded)") {
		t.Errorf("expected empty collection, got %q", text)
	}

	callTool(t, s, "generate_embeddings", map[string]string{"text": toolSample})
	text = getTextContent(callTool(t, s, "embedding_status", map[string]string{}))
	if !strings.Contains(text, "Lines: 4 (3 embedded)") {
		t.Errorf("expected collection counts, got %q", text)
	}
}
