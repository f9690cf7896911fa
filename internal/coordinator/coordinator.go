// ABOUTME: Coordinates provider readiness, embedding generation, and semantic search over a line collection.
// ABOUTME: Guards against stale results with a generation counter and publishes collections atomically.
package coordinator

import (
	"context"
	"errors"
	"fmt"
	"log"
	"strings"
	"sync"
	"sync/atomic"

	"github.com/2389-research/linesense/internal/embeddings"
	"github.com/2389-research/linesense/internal/models"
	"github.com/2389-research/linesense/internal/worker"
)

var (
	// ErrBusy is returned when a generation is requested while another is outstanding.
	ErrBusy = errors.New("embedding generation already in progress")
	// ErrSuperseded is returned when a clear or newer generation invalidated the result.
	ErrSuperseded = errors.New("result superseded by a newer collection")
)

// Re-exported so callers only need this package to classify errors.
var (
	ErrProviderInit      = embeddings.ErrProviderInit
	ErrEmptyInput        = embeddings.ErrEmptyInput
	ErrDimensionMismatch = embeddings.ErrDimensionMismatch
	ErrEmbeddingFailure  = embeddings.ErrEmbeddingFailure
	ErrNotReady          = embeddings.ErrNotReady
)

// State is the provider lifecycle.
type State int

const (
	StateUninitialized State = iota
	StateLoading
	StateReady
	StateFailed
)

func (s State) String() string {
	switch s {
	case StateUninitialized:
		return "uninitialized"
	case StateLoading:
		return "loading"
	case StateReady:
		return "ready"
	case StateFailed:
		return "failed"
	default:
		return fmt.Sprintf("state(%d)", int(s))
	}
}

// Status is a snapshot of readiness.
type Status struct {
	State     State
	IsLoading bool
	IsReady   bool
	Err       error
}

// Embedder is the request surface of the background worker.
type Embedder interface {
	Start(ctx context.Context) <-chan worker.Event
	Embed(ctx context.Context, text string) (<-chan worker.Event, error)
	EmbedBatch(ctx context.Context, texts []string, batchSize int) (<-chan worker.Event, error)
}

// Options tunes generation and search.
type Options struct {
	BatchSize int
	TopK      int
}

// collection is an immutable published set of lines.
type collection struct {
	generation uint64
	lines      []models.Line
}

// Coordinator is safe for concurrent use.
type Coordinator struct {
	embedder  Embedder
	batchSize int
	topK      int

	mu          sync.Mutex
	state       State
	initErr     error
	ready       chan struct{}
	generation  uint64
	outstanding bool
	cancelGen   context.CancelFunc
	progress    *models.EmbeddingProgress

	searchMu sync.Mutex
	current  atomic.Pointer[collection]
}

// New creates a coordinator over the given embedder.
func New(embedder Embedder, opts Options) *Coordinator {
	if opts.BatchSize <= 0 {
		opts.BatchSize = worker.DefaultBatchSize
	}
	if opts.TopK <= 0 {
		opts.TopK = embeddings.DefaultTopK
	}
	return &Coordinator{
		embedder:  embedder,
		batchSize: opts.BatchSize,
		topK:      opts.TopK,
		ready:     make(chan struct{}),
	}
}

// Start begins provider initialization. It returns immediately; use
// WaitReady or Status to observe the outcome. Calling Start again is a no-op.
func (c *Coordinator) Start(ctx context.Context) {
	c.mu.Lock()
	if c.state != StateUninitialized {
		c.mu.Unlock()
		return
	}
	c.state = StateLoading
	c.mu.Unlock()

	events := c.embedder.Start(ctx)
	go func() {
		ev, ok := <-events
		if !ok {
			ev.Err = fmt.Errorf("%w: worker closed before reporting readiness", ErrProviderInit)
		}

		c.mu.Lock()
		defer c.mu.Unlock()
		if ev.Err != nil {
			c.state = StateFailed
			c.initErr = ev.Err
		} else {
			c.state = StateReady
		}
		close(c.ready)
	}()
}

// WaitReady blocks until initialization finishes and returns its error.
func (c *Coordinator) WaitReady(ctx context.Context) error {
	select {
	case <-c.ready:
	case <-ctx.Done():
		return ctx.Err()
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.initErr
}

// Status returns the current readiness snapshot.
func (c *Coordinator) Status() Status {
	c.mu.Lock()
	defer c.mu.Unlock()
	return Status{
		State:     c.state,
		IsLoading: c.state == StateLoading,
		IsReady:   c.state == StateReady,
		Err:       c.initErr,
	}
}

// readyErr must be called with c.mu held.
func (c *Coordinator) readyErr() error {
	switch c.state {
	case StateReady:
		return nil
	case StateFailed:
		return fmt.Errorf("%w: %w", ErrNotReady, c.initErr)
	case StateLoading:
		return fmt.Errorf("%w: embedding provider is still loading", ErrNotReady)
	default:
		return fmt.Errorf("%w: embedding provider not started", ErrNotReady)
	}
}

// GenerateEmbeddings splits rawText into lines, embeds each non-empty
// normalized line, and publishes the result as the current collection.
// onProgress, if non-nil, is called on the caller's goroutine after each
// chunk. On failure the previously published collection is kept.
func (c *Coordinator) GenerateEmbeddings(ctx context.Context, rawText string, onProgress func(models.EmbeddingProgress)) ([]models.Line, error) {
	if strings.TrimSpace(rawText) == "" {
		return nil, ErrEmptyInput
	}

	c.mu.Lock()
	if err := c.readyErr(); err != nil {
		c.mu.Unlock()
		return nil, err
	}
	if c.outstanding {
		c.mu.Unlock()
		return nil, ErrBusy
	}
	c.generation++
	gen := c.generation
	genCtx, cancel := context.WithCancel(ctx)
	c.outstanding = true
	c.cancelGen = cancel
	c.progress = nil
	c.mu.Unlock()
	defer cancel()

	lines, texts, slots := splitLines(rawText)

	events, err := c.embedder.EmbedBatch(genCtx, texts, c.batchSize)
	if err != nil {
		if stale := c.finish(gen); stale {
			return nil, ErrSuperseded
		}
		return nil, err
	}

	var result worker.Event
	gotResult := false
	for ev := range events {
		switch ev.Type {
		case worker.EventProgress:
			if ev.Progress != nil && c.recordProgress(gen, *ev.Progress) && onProgress != nil {
				onProgress(*ev.Progress)
			}
		case worker.EventResult:
			result = ev
			gotResult = true
		}
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	if gen != c.generation {
		return nil, ErrSuperseded
	}
	c.outstanding = false
	c.cancelGen = nil
	c.progress = nil

	if !gotResult {
		return nil, fmt.Errorf("%w: worker closed the stream without a result", ErrEmbeddingFailure)
	}
	if result.Err != nil {
		log.Printf("embedding generation %d failed: %v", gen, result.Err)
		return nil, result.Err
	}
	if len(result.Vectors) != len(texts) {
		return nil, fmt.Errorf("%w: got %d vectors for %d lines", ErrEmbeddingFailure, len(result.Vectors), len(texts))
	}

	for i, slot := range slots {
		lines[slot].Embedding = models.NewEmbedding(result.Vectors[i])
	}
	c.current.Store(&collection{generation: gen, lines: lines})
	log.Printf("published collection %d: %d lines, %d embedded", gen, len(lines), len(texts))

	return cloneLines(lines), nil
}

// splitLines builds the line records for rawText and lists the normalized
// texts to embed with the line index each one belongs to.
func splitLines(rawText string) (lines []models.Line, texts []string, slots []int) {
	raw := strings.Split(rawText, "\n")
	lines = make([]models.Line, len(raw))
	for i, r := range raw {
		normalized := embeddings.Normalize(r)
		lines[i] = models.Line{
			Index:          i,
			RawText:        r,
			NormalizedText: normalized,
			Embedding:      models.AbsentEmbedding(),
		}
		if strings.TrimSpace(normalized) != "" {
			texts = append(texts, normalized)
			slots = append(slots, i)
		}
	}
	return lines, texts, slots
}

// finish releases the outstanding slot for gen. It reports true if gen was
// already superseded.
func (c *Coordinator) finish(gen uint64) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	if gen != c.generation {
		return true
	}
	c.outstanding = false
	c.cancelGen = nil
	c.progress = nil
	return false
}

func (c *Coordinator) recordProgress(gen uint64, p models.EmbeddingProgress) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	if gen != c.generation {
		return false
	}
	c.progress = &p
	return true
}

// Search ranks the current collection against query and returns up to k
// results. k <= 0 uses the configured default.
func (c *Coordinator) Search(ctx context.Context, query string, k int) ([]models.SearchResult, error) {
	results, _, err := c.search(ctx, query, k)
	return results, err
}

// SearchMatches is Search with each result paired to its line, taken from
// the collection that was ranked even if it has since been replaced.
func (c *Coordinator) SearchMatches(ctx context.Context, query string, k int) ([]models.Match, error) {
	results, snap, err := c.search(ctx, query, k)
	if err != nil {
		return nil, err
	}
	matches := make([]models.Match, len(results))
	for i, r := range results {
		matches[i] = models.Match{SearchResult: r, Line: snap.lines[r.LineIndex]}
	}
	return matches, nil
}

func (c *Coordinator) search(ctx context.Context, query string, k int) ([]models.SearchResult, *collection, error) {
	c.mu.Lock()
	err := c.readyErr()
	c.mu.Unlock()
	if err != nil {
		return nil, nil, err
	}

	snap := c.current.Load()
	if snap == nil {
		return nil, nil, fmt.Errorf("%w: no embedded lines, generate embeddings first", ErrNotReady)
	}
	if strings.TrimSpace(query) == "" {
		return nil, nil, ErrEmptyInput
	}
	if k <= 0 {
		k = c.topK
	}

	c.searchMu.Lock()
	defer c.searchMu.Unlock()

	events, err := c.embedder.Embed(ctx, embeddings.Normalize(query))
	if err != nil {
		return nil, nil, err
	}
	var result worker.Event
	gotResult := false
	for ev := range events {
		if ev.Terminal() {
			result = ev
			gotResult = true
		}
	}
	if !gotResult {
		return nil, nil, fmt.Errorf("%w: worker closed the stream without a result", ErrEmbeddingFailure)
	}
	if result.Err != nil {
		return nil, nil, result.Err
	}

	if c.current.Load() != snap {
		return nil, nil, ErrSuperseded
	}

	results, err := embeddings.RankTopK(result.Vectors[0], embeddings.CandidatesFromLines(snap.lines), k)
	if err != nil {
		return nil, nil, err
	}
	return results, snap, nil
}

// BestMatch returns the single highest-scoring line. ok is false when no
// line carries an embedding.
func (c *Coordinator) BestMatch(ctx context.Context, query string) (best models.SearchResult, ok bool, err error) {
	results, err := c.Search(ctx, query, 1)
	if err != nil || len(results) == 0 {
		return models.SearchResult{}, false, err
	}
	return results[0], true, nil
}

// Clear drops the current collection and invalidates any outstanding
// generation, whose result will be discarded.
func (c *Coordinator) Clear() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.generation++
	if c.cancelGen != nil {
		c.cancelGen()
		c.cancelGen = nil
	}
	c.outstanding = false
	c.progress = nil
	c.current.Store(nil)
}

// Lines returns a copy of the current collection, or nil if none is published.
func (c *Coordinator) Lines() []models.Line {
	snap := c.current.Load()
	if snap == nil {
		return nil
	}
	return cloneLines(snap.lines)
}

// Line returns the line at index from the current collection.
func (c *Coordinator) Line(index int) (models.Line, bool) {
	snap := c.current.Load()
	if snap == nil || index < 0 || index >= len(snap.lines) {
		return models.Line{}, false
	}
	return snap.lines[index], true
}

// Progress returns the latest progress snapshot of the outstanding generation.
func (c *Coordinator) Progress() (models.EmbeddingProgress, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.progress == nil {
		return models.EmbeddingProgress{}, false
	}
	return *c.progress, true
}

// Generating reports whether a generation is outstanding.
func (c *Coordinator) Generating() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.outstanding
}

func cloneLines(lines []models.Line) []models.Line {
	out := make([]models.Line, len(lines))
	copy(out, lines)
	return out
}
