// ABOUTME: MCP server initialization and configuration for linesense.
// ABOUTME: Exposes normalization, embedding generation, and semantic line search as tools.
package mcp

import (
	"context"
	"fmt"

	gomcp "github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/2389-research/linesense/internal/coordinator"
	"github.com/2389-research/linesense/internal/models"
)

// Engine is the coordinator surface the tools depend on.
type Engine interface {
	Status() coordinator.Status
	GenerateEmbeddings(ctx context.Context, rawText string, onProgress func(models.EmbeddingProgress)) ([]models.Line, error)
	SearchMatches(ctx context.Context, query string, k int) ([]models.Match, error)
	Clear()
	Lines() []models.Line
	Line(index int) (models.Line, bool)
	Progress() (models.EmbeddingProgress, bool)
}

// Server wraps the MCP server with the embedding coordinator.
type Server struct {
	mcp          *gomcp.Server
	engine       Engine
	providerName string
	defaultLimit int
}

// ServerOption configures optional Server settings.
type ServerOption func(*Server)

// WithProviderName sets the provider label reported by embedding_status.
func WithProviderName(name string) ServerOption {
	return func(s *Server) {
		s.providerName = name
	}
}

// WithDefaultLimit sets the result count used when search_lines omits limit.
func WithDefaultLimit(limit int) ServerOption {
	return func(s *Server) {
		if limit > 0 {
			s.defaultLimit = limit
		}
	}
}

// NewServer creates an MCP server over the given coordinator.
func NewServer(engine Engine, opts ...ServerOption) (*Server, error) {
	if engine == nil {
		return nil, fmt.Errorf("embedding engine is required")
	}

	mcpServer := gomcp.NewServer(
		&gomcp.Implementation{
			Name:    "linesense",
			Version: "1.0.0",
		},
		nil,
	)

	s := &Server{
		mcp:          mcpServer,
		engine:       engine,
		defaultLimit: 5,
	}

	for _, opt := range opts {
		opt(s)
	}

	s.registerLineTools()

	return s, nil
}

// Serve starts the MCP server in stdio mode.
func (s *Server) Serve(ctx context.Context) error {
	return s.mcp.Run(ctx, &gomcp.StdioTransport{})
}
