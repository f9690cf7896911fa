// ABOUTME: Background embedding worker that owns the provider and answers requests by message passing.
// ABOUTME: Serves one single-embed lane and one batch lane, each streaming typed events per request.
package worker

import (
	"context"
	"errors"
	"fmt"
	"log"
	"strings"
	"sync"

	"github.com/google/uuid"

	"github.com/2389-research/linesense/internal/embeddings"
	"github.com/2389-research/linesense/internal/models"
)

// DefaultBatchSize bounds the work done per provider call during batch embedding.
const DefaultBatchSize = 50

// ErrClosed is returned for requests submitted after Close.
var ErrClosed = errors.New("embedding worker closed")

// Kind distinguishes the request streams.
type Kind int

const (
	KindInit Kind = iota
	KindSingle
	KindBatch
)

func (k Kind) String() string {
	switch k {
	case KindInit:
		return "init"
	case KindSingle:
		return "single"
	case KindBatch:
		return "batch"
	default:
		return fmt.Sprintf("kind(%d)", int(k))
	}
}

// EventType tags what an Event carries. The zero value is not a valid type.
type EventType int

const (
	// EventProgress carries a snapshot after a completed chunk.
	EventProgress EventType = iota + 1
	// EventResult carries vectors or an error and ends the stream.
	EventResult
)

func (t EventType) String() string {
	switch t {
	case EventProgress:
		return "progress"
	case EventResult:
		return "result"
	default:
		return fmt.Sprintf("event(%d)", int(t))
	}
}

// Event is one message on a request stream. Every stream ends with exactly
// one EventResult, after which it is closed.
type Event struct {
	RequestID uuid.UUID
	Kind      Kind
	Type      EventType
	Progress  *models.EmbeddingProgress
	Vectors   [][]float32
	Err       error
}

// Terminal reports whether this event ends its stream.
func (e Event) Terminal() bool {
	return e.Type == EventResult
}

// State is the provider readiness lifecycle as seen by the worker.
type State int

const (
	StateIdle State = iota
	StateLoading
	StateReady
	StateFailed
)

type job struct {
	id        uuid.UUID
	kind      Kind
	ctx       context.Context
	texts     []string
	batchSize int
	events    chan Event
}

// Worker runs provider calls off the caller's goroutine.
type Worker struct {
	provider embeddings.Provider

	single chan *job
	batch  chan *job

	mu      sync.RWMutex
	state   State
	initErr error

	startOnce sync.Once
	closeOnce sync.Once
	done      chan struct{}
	base      context.Context
	cancel    context.CancelFunc
	wg        sync.WaitGroup
}

// New creates a worker for the given provider. Call Start before use.
func New(provider embeddings.Provider) *Worker {
	base, cancel := context.WithCancel(context.Background())
	return &Worker{
		provider: provider,
		single:   make(chan *job),
		batch:    make(chan *job),
		done:     make(chan struct{}),
		base:     base,
		cancel:   cancel,
	}
}

// Start initializes the provider in the background. The returned stream
// carries exactly one terminal init event. Later calls return a closed
// stream with no events.
func (w *Worker) Start(ctx context.Context) <-chan Event {
	events := make(chan Event, 1)
	started := false

	w.startOnce.Do(func() {
		started = true
		w.setState(StateLoading, nil)

		w.wg.Add(1)
		go func() {
			defer w.wg.Done()
			defer close(events)

			id := uuid.New()
			if err := w.provider.Init(ctx); err != nil {
				err = fmt.Errorf("%w: %w", embeddings.ErrProviderInit, err)
				w.setState(StateFailed, err)
				log.Printf("embedding provider %s failed: %v", w.provider.ModelName(), err)
				events <- Event{RequestID: id, Kind: KindInit, Type: EventResult, Err: err}
				return
			}

			w.setState(StateReady, nil)
			log.Printf("embedding provider %s ready (dim=%d)", w.provider.ModelName(), w.provider.Dimension())

			w.wg.Add(2)
			go w.serve(w.single)
			go w.serve(w.batch)

			events <- Event{RequestID: id, Kind: KindInit, Type: EventResult}
		}()
	})

	if !started {
		close(events)
	}
	return events
}

// State returns the current readiness state and the init error, if any.
func (w *Worker) State() (State, error) {
	w.mu.RLock()
	defer w.mu.RUnlock()
	return w.state, w.initErr
}

// ModelName returns the provider's model identifier.
func (w *Worker) ModelName() string {
	return w.provider.ModelName()
}

// Embed requests one embedding. Text that is empty after trimming is rejected.
func (w *Worker) Embed(ctx context.Context, text string) (<-chan Event, error) {
	if strings.TrimSpace(text) == "" {
		return nil, embeddings.ErrEmptyInput
	}
	j := &job{
		id:     uuid.New(),
		kind:   KindSingle,
		ctx:    ctx,
		texts:  []string{text},
		events: make(chan Event, 1),
	}
	if err := w.submit(ctx, w.single, j); err != nil {
		return nil, err
	}
	return j.events, nil
}

// EmbedBatch requests embeddings for texts, processed batchSize at a time
// with a progress event after each chunk.
func (w *Worker) EmbedBatch(ctx context.Context, texts []string, batchSize int) (<-chan Event, error) {
	if batchSize <= 0 {
		batchSize = DefaultBatchSize
	}
	chunks := (len(texts) + batchSize - 1) / batchSize
	j := &job{
		id:        uuid.New(),
		kind:      KindBatch,
		ctx:       ctx,
		texts:     texts,
		batchSize: batchSize,
		// Room for every progress event plus the terminal one, so the
		// lane never blocks on a slow reader.
		events: make(chan Event, chunks+1),
	}
	if err := w.submit(ctx, w.batch, j); err != nil {
		return nil, err
	}
	return j.events, nil
}

// Close stops the lanes and cancels in-flight provider calls.
func (w *Worker) Close() {
	w.closeOnce.Do(func() {
		w.cancel()
		close(w.done)
	})
	w.wg.Wait()
}

func (w *Worker) setState(state State, err error) {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.state = state
	w.initErr = err
}

func (w *Worker) submit(ctx context.Context, lane chan *job, j *job) error {
	state, initErr := w.State()
	switch state {
	case StateReady:
	case StateFailed:
		return fmt.Errorf("%w: %w", embeddings.ErrNotReady, initErr)
	default:
		return fmt.Errorf("%w: embedding provider is still loading", embeddings.ErrNotReady)
	}

	select {
	case lane <- j:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	case <-w.done:
		return ErrClosed
	}
}

// serve processes one lane's requests in arrival order.
func (w *Worker) serve(lane chan *job) {
	defer w.wg.Done()
	for {
		select {
		case <-w.done:
			return
		case j := <-lane:
			w.run(j)
		}
	}
}

func (w *Worker) run(j *job) {
	defer close(j.events)

	ctx, cancel := context.WithCancel(j.ctx)
	defer cancel()
	stop := context.AfterFunc(w.base, cancel)
	defer stop()

	var vectors [][]float32
	var err error
	if j.kind == KindSingle {
		vectors, err = w.runSingle(ctx, j)
	} else {
		vectors, err = w.runBatch(ctx, j)
	}
	j.events <- Event{RequestID: j.id, Kind: j.kind, Type: EventResult, Vectors: vectors, Err: err}
}

func (w *Worker) runSingle(ctx context.Context, j *job) ([][]float32, error) {
	if err := ctx.Err(); err != nil {
		return nil, fmt.Errorf("embedding canceled: %w", err)
	}
	vecs, err := w.provider.Embed(ctx, j.texts)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", embeddings.ErrEmbeddingFailure, err)
	}
	if len(vecs) != 1 || len(vecs[0]) == 0 {
		return nil, fmt.Errorf("%w: provider returned %d vectors for 1 input", embeddings.ErrEmbeddingFailure, len(vecs))
	}
	return vecs, nil
}

func (w *Worker) runBatch(ctx context.Context, j *job) ([][]float32, error) {
	total := len(j.texts)
	out := make([][]float32, 0, total)
	dim := 0

	for start := 0; start < total; start += j.batchSize {
		if err := ctx.Err(); err != nil {
			return nil, fmt.Errorf("embedding canceled after %d of %d: %w", start, total, err)
		}
		end := min(start+j.batchSize, total)

		vecs, err := w.provider.Embed(ctx, j.texts[start:end])
		if err != nil {
			return nil, fmt.Errorf("%w: lines %d-%d: %w", embeddings.ErrEmbeddingFailure, start, end-1, err)
		}
		if len(vecs) != end-start {
			return nil, fmt.Errorf("%w: provider returned %d vectors for %d inputs", embeddings.ErrEmbeddingFailure, len(vecs), end-start)
		}
		for _, v := range vecs {
			if dim == 0 {
				dim = len(v)
			}
			if len(v) == 0 || len(v) != dim {
				return nil, fmt.Errorf("%w: %w: got %d, expected %d", embeddings.ErrEmbeddingFailure, embeddings.ErrDimensionMismatch, len(v), dim)
			}
		}
		out = append(out, vecs...)

		progress := models.NewEmbeddingProgress(end, total)
		j.events <- Event{RequestID: j.id, Kind: j.kind, Type: EventProgress, Progress: &progress}
	}

	if total > 0 {
		log.Printf("embedded %d texts in batches of %d (request %s)", total, j.batchSize, j.id)
	}
	return out, nil
}
