// ABOUTME: Core data models for embedded lines, search results, and progress.
// ABOUTME: Provides the explicit absent-embedding marker used by the ranker.
package models

import "math"

// Embedding is an optional embedding vector. Valid is false when the line
// was never embedded; a valid vector is scored even if it is all zeros.
type Embedding struct {
	Vector []float32
	Valid  bool
}

// NewEmbedding wraps a provider vector as a valid embedding.
func NewEmbedding(vector []float32) Embedding {
	return Embedding{Vector: vector, Valid: true}
}

// AbsentEmbedding returns the marker for a line that was not embedded.
func AbsentEmbedding() Embedding {
	return Embedding{}
}

// Dimension returns the vector length, or 0 for an absent embedding.
func (e Embedding) Dimension() int {
	if !e.Valid {
		return 0
	}
	return len(e.Vector)
}

// Line is one input line in original order.
type Line struct {
	Index          int
	RawText        string
	NormalizedText string
	Embedding      Embedding
}

// SearchResult pairs a line index with its cosine similarity to the query.
type SearchResult struct {
	LineIndex int     `json:"line_index"`
	Score     float64 `json:"score"`
}

// Match is a search result together with the line it scored, taken from
// the same collection the ranking ran against.
type Match struct {
	SearchResult
	Line Line `json:"-"`
}

// EmbeddingProgress is a snapshot of an in-flight batch operation.
type EmbeddingProgress struct {
	Current    int `json:"current"`
	Total      int `json:"total"`
	Percentage int `json:"percentage"`
}

// NewEmbeddingProgress builds a snapshot with percentage round(current/total*100).
func NewEmbeddingProgress(current, total int) EmbeddingProgress {
	pct := 0
	if total > 0 {
		pct = int(math.Round(float64(current) / float64(total) * 100))
	}
	return EmbeddingProgress{
		Current:    current,
		Total:      total,
		Percentage: pct,
	}
}

// CountEmbedded returns how many lines carry a valid embedding.
func CountEmbedded(lines []Line) int {
	n := 0
	for _, l := range lines {
		if l.Embedding.Valid {
			n++
		}
	}
	return n
}
