// ABOUTME: HTTP provider for a text-embeddings-inference (TEI) sentence encoder server.
// ABOUTME: Probes /health during Init and posts batches to /embed.
package embeddings

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
)

// DefaultTEIURL is the address a locally started TEI container listens on.
const DefaultTEIURL = "http://localhost:8080"

// TEIProvider embeds text through a self-hosted sentence encoder.
type TEIProvider struct {
	baseURL string
	apiKey  string
	model   string
	dim     int
	client  *http.Client
}

// NewTEIProvider creates a TEI provider for the given server.
func NewTEIProvider(baseURL, apiKey, model string) *TEIProvider {
	if baseURL == "" {
		baseURL = DefaultTEIURL
	}
	return &TEIProvider{
		baseURL: strings.TrimRight(baseURL, "/"),
		apiKey:  apiKey,
		model:   model,
		client:  &http.Client{Timeout: 60 * time.Second},
	}
}

// teiEmbedRequest is the JSON body sent to POST /embed.
type teiEmbedRequest struct {
	Inputs   []string `json:"inputs"`
	Truncate bool     `json:"truncate"`
}

// Init checks the server is healthy and learns the model dimension.
func (p *TEIProvider) Init(ctx context.Context) error {
	req, err := http.NewRequestWithContext(ctx, "GET", p.baseURL+"/health", nil)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	p.setAuth(req)

	resp, err := p.client.Do(req)
	if err != nil {
		return fmt.Errorf("connection failed: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode >= 400 {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
		return fmt.Errorf("TEI health check returned %d: %s", resp.StatusCode, string(body))
	}

	vecs, err := p.Embed(ctx, []string{"ready"})
	if err != nil {
		return err
	}
	p.dim = len(vecs[0])
	return nil
}

// Embed posts a batch of texts and returns one vector per text.
func (p *TEIProvider) Embed(ctx context.Context, texts []string) ([][]float32, error) {
	if len(texts) == 0 {
		return [][]float32{}, nil
	}

	body, err := json.Marshal(teiEmbedRequest{Inputs: texts, Truncate: true})
	if err != nil {
		return nil, fmt.Errorf("failed to marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, "POST", p.baseURL+"/embed", bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	p.setAuth(req)

	resp, err := p.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("TEI request failed: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode >= 400 {
		respBody, _ := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
		return nil, fmt.Errorf("TEI returned %d: %s", resp.StatusCode, string(respBody))
	}

	var vectors [][]float32
	if err := json.NewDecoder(resp.Body).Decode(&vectors); err != nil {
		return nil, fmt.Errorf("failed to decode response: %w", err)
	}
	if len(vectors) != len(texts) {
		return nil, fmt.Errorf("TEI returned %d embeddings for %d inputs", len(vectors), len(texts))
	}
	for i, v := range vectors {
		if len(v) == 0 {
			return nil, fmt.Errorf("TEI returned an empty vector at %d", i)
		}
	}
	return vectors, nil
}

func (p *TEIProvider) setAuth(req *http.Request) {
	if p.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+p.apiKey)
	}
}

// Dimension returns the embedding dimension learned during Init.
func (p *TEIProvider) Dimension() int {
	return p.dim
}

// ModelName returns model information.
func (p *TEIProvider) ModelName() string {
	if p.model != "" {
		return "tei-" + p.model
	}
	return "tei"
}
