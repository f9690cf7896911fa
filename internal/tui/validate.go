// ABOUTME: Provider validation for the setup wizard.
// ABOUTME: Builds the configured provider, initializes it, and embeds a probe sentence.
package tui

import (
	"context"
	"fmt"
	"time"

	"github.com/2389-research/linesense/internal/embeddings"
)

// validationTimeout bounds model loading plus the probe embedding.
const validationTimeout = 60 * time.Second

// probeText is embedded to confirm the provider answers with a usable vector.
const probeText = "semantic line search probe"

// ValidateProvider tests the provider by initializing it and embedding a probe.
// The context allows cancellation when the user quits during validation.
func ValidateProvider(ctx context.Context, cfg embeddings.ProviderConfig) error {
	ctx, cancel := context.WithTimeout(ctx, validationTimeout)
	defer cancel()

	provider, err := embeddings.NewProvider(cfg)
	if err != nil {
		return err
	}
	if err := provider.Init(ctx); err != nil {
		return fmt.Errorf("%w: %w", embeddings.ErrProviderInit, err)
	}

	vecs, err := provider.Embed(ctx, []string{probeText})
	if err != nil {
		return fmt.Errorf("probe embedding failed: %w", err)
	}
	if len(vecs) != 1 || len(vecs[0]) == 0 {
		return fmt.Errorf("%w: probe returned no vector", embeddings.ErrEmbeddingFailure)
	}
	return nil
}
