// ABOUTME: Cosine similarity and top-K ranking of line embeddings against a query.
// ABOUTME: Skips lines that were never embedded and breaks score ties by line index.
package embeddings

import (
	"fmt"
	"math"
	"sort"

	"github.com/2389-research/linesense/internal/models"
)

// DefaultTopK is the number of results returned when no limit is given.
const DefaultTopK = 5

// Candidate is one rankable line embedding.
type Candidate struct {
	Index     int
	Embedding models.Embedding
}

// CandidatesFromLines converts a line collection into ranker candidates.
func CandidatesFromLines(lines []models.Line) []Candidate {
	candidates := make([]Candidate, len(lines))
	for i, l := range lines {
		candidates[i] = Candidate{Index: l.Index, Embedding: l.Embedding}
	}
	return candidates
}

// CosineSimilarity computes the cosine similarity between two vectors.
// Returns 0 when either vector has zero norm.
func CosineSimilarity(a, b []float32) (float64, error) {
	if len(a) != len(b) {
		return 0, fmt.Errorf("%w: %d vs %d", ErrDimensionMismatch, len(a), len(b))
	}

	var dotProduct, normA, normB float64
	for i := range a {
		dotProduct += float64(a[i]) * float64(b[i])
		normA += float64(a[i]) * float64(a[i])
		normB += float64(b[i]) * float64(b[i])
	}

	if normA == 0 || normB == 0 {
		return 0, nil
	}

	score := dotProduct / (math.Sqrt(normA) * math.Sqrt(normB))
	// Rounding can push parallel vectors just past the bounds.
	return math.Max(-1, math.Min(1, score)), nil
}

// RankTopK scores every embedded candidate against the query and returns the
// k best, highest score first. Equal scores are ordered by ascending index.
func RankTopK(query []float32, candidates []Candidate, k int) ([]models.SearchResult, error) {
	results := make([]models.SearchResult, 0, len(candidates))
	if k <= 0 {
		return results, nil
	}

	for _, c := range candidates {
		if !c.Embedding.Valid {
			continue
		}
		score, err := CosineSimilarity(query, c.Embedding.Vector)
		if err != nil {
			return nil, fmt.Errorf("line %d: %w", c.Index, err)
		}
		results = append(results, models.SearchResult{
			LineIndex: c.Index,
			Score:     score,
		})
	}

	sort.SliceStable(results, func(i, j int) bool {
		if results[i].Score != results[j].Score {
			return results[i].Score > results[j].Score
		}
		return results[i].LineIndex < results[j].LineIndex
	})

	if k < len(results) {
		results = results[:k]
	}
	return results, nil
}

// BestMatch returns the single highest scoring candidate. ok is false when no
// candidate carries an embedding.
func BestMatch(query []float32, candidates []Candidate) (best models.SearchResult, ok bool, err error) {
	results, err := RankTopK(query, candidates, 1)
	if err != nil {
		return models.SearchResult{}, false, err
	}
	if len(results) == 0 {
		return models.SearchResult{}, false, nil
	}
	return results[0], true, nil
}
