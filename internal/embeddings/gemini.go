// ABOUTME: Gemini embeddings provider built on the google.golang.org/genai client.
// ABOUTME: Creates the client during Init and embeds one Content per input text.
package embeddings

import (
	"context"
	"errors"
	"fmt"

	"google.golang.org/genai"
)

// DefaultGeminiModel is used when no model is configured.
const DefaultGeminiModel = "text-embedding-004"

// GeminiProvider wraps a genai.Client.
type GeminiProvider struct {
	apiKey  string
	baseURL string
	model   string
	dim    int
	client *genai.Client
}

// NewGeminiProvider creates a Gemini provider. The client is built in Init.
// An empty baseURL uses the public Gemini API endpoint.
func NewGeminiProvider(apiKey, baseURL, model string) *GeminiProvider {
	if model == "" {
		model = DefaultGeminiModel
	}
	return &GeminiProvider{
		apiKey:  apiKey,
		baseURL: baseURL,
		model:   model,
	}
}

// Init creates the genai client and probes the model.
func (p *GeminiProvider) Init(ctx context.Context) error {
	if p.apiKey == "" {
		return errors.New("GEMINI_API_KEY environment variable not set")
	}

	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:      p.apiKey,
		Backend:     genai.BackendGeminiAPI,
		HTTPOptions: genai.HTTPOptions{BaseURL: p.baseURL},
	})
	if err != nil {
		return fmt.Errorf("failed to create genai client: %w", err)
	}
	p.client = client

	vecs, err := p.Embed(ctx, []string{"ready"})
	if err != nil {
		return err
	}
	p.dim = len(vecs[0])
	return nil
}

// Embed calls the embeddings endpoint with one Content per text.
func (p *GeminiProvider) Embed(ctx context.Context, texts []string) ([][]float32, error) {
	if p.client == nil {
		return nil, errors.New("gemini provider not initialized")
	}
	if len(texts) == 0 {
		return [][]float32{}, nil
	}

	contents := make([]*genai.Content, len(texts))
	for i, text := range texts {
		contents[i] = &genai.Content{
			Parts: []*genai.Part{
				{Text: text},
			},
		}
	}

	result, err := p.client.Models.EmbedContent(ctx, p.model, contents, &genai.EmbedContentConfig{})
	if err != nil {
		return nil, fmt.Errorf("failed to generate embedding: %w", err)
	}
	if len(result.Embeddings) != len(texts) {
		return nil, fmt.Errorf("gemini returned %d embeddings for %d inputs", len(result.Embeddings), len(texts))
	}

	out := make([][]float32, len(texts))
	for i, emb := range result.Embeddings {
		if emb == nil || len(emb.Values) == 0 {
			return nil, fmt.Errorf("empty embedding vector at %d", i)
		}
		out[i] = emb.Values
	}
	return out, nil
}

// Dimension returns the embedding dimension learned during Init.
func (p *GeminiProvider) Dimension() int {
	return p.dim
}

// ModelName returns model information.
func (p *GeminiProvider) ModelName() string {
	return "gemini-" + p.model
}
