// ABOUTME: Offline feature-hashing embedder used as the default provider.
// ABOUTME: Hashes lowercased words and character trigrams into a fixed-size vector.
package embeddings

import (
	"context"
	"hash/fnv"
	"math"
	"strings"
	"unicode"
)

// DefaultLocalDimension matches the output size of the sentence encoder the
// line search was originally tuned against.
const DefaultLocalDimension = 512

// HashEmbedder produces deterministic embeddings without a model download.
// Texts that share words or word fragments land near each other.
type HashEmbedder struct {
	dim int
}

// NewHashEmbedder creates a hashing embedder with the given dimension.
func NewHashEmbedder(dimension int) *HashEmbedder {
	if dimension <= 0 {
		dimension = DefaultLocalDimension
	}
	return &HashEmbedder{dim: dimension}
}

// Init is a no-op; the hashing embedder is ready immediately.
func (e *HashEmbedder) Init(ctx context.Context) error {
	return ctx.Err()
}

// Embed hashes each text into a unit-length vector.
func (e *HashEmbedder) Embed(ctx context.Context, texts []string) ([][]float32, error) {
	out := make([][]float32, len(texts))
	for i, text := range texts {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		out[i] = e.embedOne(text)
	}
	return out, nil
}

// Dimension returns the embedding dimension.
func (e *HashEmbedder) Dimension() int {
	return e.dim
}

// ModelName returns model information.
func (e *HashEmbedder) ModelName() string {
	return "local-hash"
}

func (e *HashEmbedder) embedOne(text string) []float32 {
	vec := make([]float32, e.dim)
	words := strings.FieldsFunc(strings.ToLower(text), func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsNumber(r)
	})

	for _, w := range words {
		e.add(vec, "w:"+w, 1.0)
		padded := []rune("#" + w + "#")
		for j := 0; j+3 <= len(padded); j++ {
			e.add(vec, "t:"+string(padded[j:j+3]), 0.5)
		}
	}

	l2normalize(vec)
	return vec
}

// add folds a feature into the vector, using a second hash bit for the sign
// so unrelated features cancel out instead of piling up.
func (e *HashEmbedder) add(vec []float32, feature string, weight float32) {
	h := fnv.New64a()
	_, _ = h.Write([]byte(feature))
	sum := h.Sum64()
	idx := int(sum % uint64(e.dim))
	if (sum>>63)&1 == 1 {
		weight = -weight
	}
	vec[idx] += weight
}

// l2normalize normalizes a vector to unit length in place.
func l2normalize(v []float32) {
	var sum float64
	for _, x := range v {
		sum += float64(x) * float64(x)
	}
	if sum == 0 {
		return
	}
	inv := float32(1.0 / math.Sqrt(sum))
	for i := range v {
		v[i] *= inv
	}
}
