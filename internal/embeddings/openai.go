// ABOUTME: OpenAI embeddings provider built on the go-openai client.
// ABOUTME: Also serves OpenAI-compatible endpoints through a custom base URL.
package embeddings

import (
	"context"
	"errors"
	"fmt"

	openai "github.com/sashabaranov/go-openai"
)

// DefaultOpenAIModel is used when no model is configured.
const DefaultOpenAIModel = "text-embedding-3-small"

// OpenAIProvider uses the OpenAI API for embeddings.
type OpenAIProvider struct {
	apiKey  string
	baseURL string
	model   string
	dim     int
	client  *openai.Client
}

// NewOpenAIProvider creates an OpenAI provider. The client is built in Init.
func NewOpenAIProvider(apiKey, baseURL, model string) *OpenAIProvider {
	if model == "" {
		model = DefaultOpenAIModel
	}
	return &OpenAIProvider{
		apiKey:  apiKey,
		baseURL: baseURL,
		model:   model,
	}
}

// Init builds the client and embeds a probe string to learn the dimension.
func (p *OpenAIProvider) Init(ctx context.Context) error {
	if p.apiKey == "" && p.baseURL == "" {
		return errors.New("OPENAI_API_KEY environment variable not set")
	}

	cfg := openai.DefaultConfig(p.apiKey)
	if p.baseURL != "" {
		cfg.BaseURL = p.baseURL
	}
	p.client = openai.NewClientWithConfig(cfg)

	vecs, err := p.Embed(ctx, []string{"ready"})
	if err != nil {
		return err
	}
	p.dim = len(vecs[0])
	return nil
}

// Embed generates embeddings for a batch of texts in one API call.
func (p *OpenAIProvider) Embed(ctx context.Context, texts []string) ([][]float32, error) {
	if p.client == nil {
		return nil, errors.New("openai provider not initialized")
	}
	if len(texts) == 0 {
		return [][]float32{}, nil
	}

	resp, err := p.client.CreateEmbeddings(ctx, openai.EmbeddingRequest{
		Model: openai.EmbeddingModel(p.model),
		Input: texts,
	})
	if err != nil {
		return nil, fmt.Errorf("OpenAI API error: %w", err)
	}
	if len(resp.Data) != len(texts) {
		return nil, fmt.Errorf("OpenAI returned %d embeddings for %d inputs", len(resp.Data), len(texts))
	}

	out := make([][]float32, len(texts))
	for _, d := range resp.Data {
		if d.Index < 0 || d.Index >= len(out) {
			return nil, fmt.Errorf("OpenAI returned out-of-range index %d", d.Index)
		}
		v := make([]float32, len(d.Embedding))
		for i := range d.Embedding {
			v[i] = float32(d.Embedding[i])
		}
		out[d.Index] = v
	}
	return out, nil
}

// Dimension returns the embedding dimension learned during Init.
func (p *OpenAIProvider) Dimension() int {
	return p.dim
}

// ModelName returns model information.
func (p *OpenAIProvider) ModelName() string {
	return "openai-" + p.model
}
