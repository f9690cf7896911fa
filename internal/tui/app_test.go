// ABOUTME: Unit tests for the semantic editor bubbletea model.
// ABOUTME: Runs a real coordinator over the hashing embedder and feeds synthetic tea.Msg values.
package tui

import (
	"context"
	"errors"
	"strings"
	"testing"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/2389-research/linesense/internal/coordinator"
	"github.com/2389-research/linesense/internal/embeddings"
	"github.com/2389-research/linesense/internal/worker"
)

const sampleText = "getUserProfile\nrender_invoice_pdf\n\nretry_failed_payments\nsend_welcome_email"

func newTestApp(t *testing.T, text string, provider embeddings.Provider) AppModel {
	t.Helper()
	w := worker.New(provider)
	t.Cleanup(w.Close)

	c := coordinator.New(w, coordinator.Options{BatchSize: 2})
	c.Start(context.Background())

	m := NewAppModel(context.Background(), c, AppOptions{Text: text, TopK: 3})
	m, _ = update(t, m, m.waitReady()())
	return m
}

func update(t *testing.T, m AppModel, msg tea.Msg) (AppModel, tea.Cmd) {
	t.Helper()
	updated, cmd := m.Update(msg)
	return updated.(AppModel), cmd
}

func press(t *testing.T, m AppModel, key tea.KeyType) (AppModel, tea.Cmd) {
	t.Helper()
	return update(t, m, tea.KeyMsg{Type: key})
}

// drain runs the generation stream until it reports completion.
func drain(t *testing.T, m AppModel, cmd tea.Cmd) AppModel {
	t.Helper()
	for i := 0; i < 100 && cmd != nil; i++ {
		msg := cmd()
		m, cmd = update(t, m, msg)
		if _, ok := msg.(generateDoneMsg); ok {
			return m
		}
	}
	t.Fatal("generation never completed")
	return m
}

func generated(t *testing.T) AppModel {
	t.Helper()
	m := newTestApp(t, sampleText, embeddings.NewHashEmbedder(128))
	m, cmd := press(t, m, tea.KeyCtrlG)
	if !m.embedding {
		t.Fatal("expected ctrl+g to start embedding")
	}
	return drain(t, m, cmd)
}

func search(t *testing.T, m AppModel, query string) AppModel {
	t.Helper()
	m, _ = press(t, m, tea.KeyCtrlF)
	if !m.Searching() {
		t.Fatal("expected ctrl+f to open search")
	}
	m.query.SetValue(query)
	m, cmd := press(t, m, tea.KeyEnter)
	if cmd == nil {
		t.Fatal("expected search cmd")
	}
	m, _ = update(t, m, cmd())
	return m
}

func TestAppModel_ReadyHeader(t *testing.T) {
	m := newTestApp(t, "", embeddings.NewHashEmbedder(64))
	view := m.View()
	if !strings.Contains(view, "Ready") {
		t.Errorf("expected Ready in header, got:\n%s", view)
	}
	if !strings.Contains(view, "ctrl+g generate embeddings") {
		t.Error("expected generate hint in footer")
	}
}

func TestAppModel_LoadingHeader(t *testing.T) {
	w := worker.New(embeddings.NewHashEmbedder(64))
	defer w.Close()
	c := coordinator.New(w, coordinator.Options{})

	m := NewAppModel(context.Background(), c, AppOptions{})
	if !strings.Contains(m.View(), "Loading model...") {
		t.Error("expected loading header before readiness")
	}

	// Not ready: ctrl+g is a no-op
	m.editor.SetValue("some text")
	m, cmd := press(t, m, tea.KeyCtrlG)
	if m.embedding || cmd != nil {
		t.Error("expected ctrl+g to be disabled before ready")
	}
}

type failingProvider struct {
	*embeddings.HashEmbedder
}

func (failingProvider) Init(context.Context) error {
	return errors.New("model not found")
}

func TestAppModel_InitFailureBanner(t *testing.T) {
	m := newTestApp(t, "", failingProvider{embeddings.NewHashEmbedder(8)})
	view := m.View()
	if !strings.Contains(view, "Error") {
		t.Error("expected Error in header")
	}
	if !strings.Contains(view, "model not found") {
		t.Error("expected init error in banner")
	}
}

func TestAppModel_GenerateBlankTextDisabled(t *testing.T) {
	m := newTestApp(t, "  \n ", embeddings.NewHashEmbedder(64))
	m, cmd := press(t, m, tea.KeyCtrlG)
	if m.embedding || cmd != nil {
		t.Error("expected ctrl+g to be disabled for blank text")
	}
}

func TestAppModel_GenerateEmbeddings(t *testing.T) {
	m := generated(t)

	if m.embedding {
		t.Error("expected embedding to finish")
	}
	if len(m.lines) != 5 {
		t.Errorf("expected 5 lines, got %d", len(m.lines))
	}
	if !strings.Contains(m.View(), "✓ 4 lines embedded • ctrl+f semantic search") {
		t.Errorf("unexpected footer:\n%s", m.View())
	}
}

func TestAppModel_ProgressShown(t *testing.T) {
	m := newTestApp(t, sampleText, embeddings.NewHashEmbedder(64))
	m, cmd := press(t, m, tea.KeyCtrlG)

	msg := cmd()
	p, ok := msg.(progressMsg)
	if !ok {
		t.Fatalf("expected first message to be progress, got %T", msg)
	}
	m, cmd = update(t, m, p)
	if !strings.Contains(m.View(), "Embedding lines: 2 / 4") {
		t.Errorf("expected progress line, got:\n%s", m.View())
	}
	drain(t, m, cmd)
}

func TestAppModel_ReadOnlyWhileEmbedding(t *testing.T) {
	m := newTestApp(t, sampleText, embeddings.NewHashEmbedder(64))
	m, cmd := press(t, m, tea.KeyCtrlG)

	m, _ = update(t, m, tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune("x")})
	if m.editor.Value() != sampleText {
		t.Error("editor should not accept input while embedding")
	}
	drain(t, m, cmd)
}

func TestAppModel_SearchNavigation(t *testing.T) {
	m := search(t, generated(t), "get user profile")

	if len(m.Results()) != 3 {
		t.Fatalf("expected top 3 results, got %+v", m.Results())
	}
	cur, ok := m.CurrentResult()
	if !ok || cur.LineIndex != 0 {
		t.Errorf("expected getUserProfile first, got %+v", cur)
	}
	if !strings.Contains(m.View(), "1 of 3") {
		t.Errorf("expected position indicator, got:\n%s", m.View())
	}

	// Enter with an unchanged query advances
	m, _ = press(t, m, tea.KeyEnter)
	if m.current != 1 || !strings.Contains(m.View(), "2 of 3") {
		t.Errorf("expected enter to advance, current=%d", m.current)
	}

	m, _ = press(t, m, tea.KeyUp)
	if m.current != 0 {
		t.Errorf("expected up to go back, current=%d", m.current)
	}
	m, _ = press(t, m, tea.KeyCtrlP)
	if m.current != 2 {
		t.Errorf("expected wrap to last, current=%d", m.current)
	}
	m, _ = press(t, m, tea.KeyCtrlN)
	if m.current != 0 {
		t.Errorf("expected wrap to first, current=%d", m.current)
	}
	m, _ = press(t, m, tea.KeyDown)
	if m.current != 1 {
		t.Errorf("expected down to advance, current=%d", m.current)
	}
}

func TestAppModel_ChangedQuerySearchesAgain(t *testing.T) {
	m := search(t, generated(t), "get user profile")

	m.query.SetValue("welcome email")
	m, cmd := press(t, m, tea.KeyEnter)
	if cmd == nil {
		t.Fatal("expected a new search for a changed query")
	}
	m, _ = update(t, m, cmd())
	cur, _ := m.CurrentResult()
	if cur.LineIndex != 4 {
		t.Errorf("expected send_welcome_email first, got %+v", cur)
	}
}

func TestAppModel_EscClosesSearch(t *testing.T) {
	m := search(t, generated(t), "invoice")

	m, _ = press(t, m, tea.KeyEscape)
	if m.Searching() {
		t.Error("expected esc to close search")
	}
	if len(m.Results()) != 0 {
		t.Error("expected esc to clear highlights")
	}
}

func TestAppModel_SearchRequiresCollection(t *testing.T) {
	m := newTestApp(t, sampleText, embeddings.NewHashEmbedder(64))
	m, _ = press(t, m, tea.KeyCtrlF)
	if m.Searching() {
		t.Error("ctrl+f should do nothing before embeddings exist")
	}
}

func TestAppModel_EditMarksOutOfDate(t *testing.T) {
	m := generated(t)
	m, _ = update(t, m, tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune("x")})
	if !strings.Contains(m.View(), "text changed") {
		t.Errorf("expected out-of-date marker, got:\n%s", m.View())
	}
}

func TestAppModel_ClearResetsEverything(t *testing.T) {
	m := search(t, generated(t), "invoice")

	m, _ = press(t, m, tea.KeyCtrlL)
	if m.Searching() || len(m.lines) != 0 || m.editor.Value() != "" {
		t.Error("expected ctrl+l to clear text, collection, and search")
	}
	if strings.Contains(m.View(), "lines embedded") {
		t.Error("footer should not report embedded lines after clear")
	}

	m, _ = press(t, m, tea.KeyCtrlF)
	if m.Searching() {
		t.Error("ctrl+f should do nothing after clear")
	}
}

func TestAppModel_LateResultsIgnored(t *testing.T) {
	m := generated(t)
	gen := m.gen

	m, _ = press(t, m, tea.KeyCtrlL)
	m, _ = update(t, m, generateDoneMsg{gen: gen, lines: nil, text: "stale", err: nil})
	if m.embeddedText == "stale" {
		t.Error("late generation result should be ignored")
	}

	m, _ = update(t, m, searchDoneMsg{seq: m.searchSeq - 1, query: "old"})
	if m.lastQuery == "old" {
		t.Error("late search result should be ignored")
	}
}

func TestAppModel_SupersededErrorIsSilent(t *testing.T) {
	m := newTestApp(t, sampleText, embeddings.NewHashEmbedder(64))
	m.gen = 7
	m.embedding = true
	m, _ = update(t, m, generateDoneMsg{gen: 7, err: coordinator.ErrSuperseded})
	if m.statusMsg != "" {
		t.Errorf("expected no status for superseded result, got %q", m.statusMsg)
	}

	m.embedding = true
	m, _ = update(t, m, generateDoneMsg{gen: 7, err: coordinator.ErrEmbeddingFailure})
	if !strings.Contains(m.statusMsg, "Embedding failed") {
		t.Errorf("expected failure status, got %q", m.statusMsg)
	}
}
