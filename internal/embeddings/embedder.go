// ABOUTME: Provider interface for embedding backends.
// ABOUTME: Backends embed ordered batches of strings into fixed-length vectors.
package embeddings

import "context"

// Provider generates vector embeddings from text.
type Provider interface {
	// Init prepares the backend (clients, credentials, model probe). The
	// provider must not be used until Init returns nil.
	Init(ctx context.Context) error

	// Embed returns one vector per input text, in input order. One single
	// call and one batch call may run concurrently.
	Embed(ctx context.Context, texts []string) ([][]float32, error)

	// Dimension returns the dimensionality of the output vectors, or 0 if
	// it is not known before Init.
	Dimension() int

	// ModelName identifies the model for logs and status output.
	ModelName() string
}
