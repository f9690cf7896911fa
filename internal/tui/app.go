// ABOUTME: Bubbletea editor for embedding a text buffer line by line and searching it semantically.
// ABOUTME: Drives the coordinator through commands and renders readiness, progress, and highlighted results.
package tui

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/progress"
	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/textarea"
	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/2389-research/linesense/internal/coordinator"
	"github.com/2389-research/linesense/internal/models"
)

// Engine is the part of the coordinator the editor depends on.
type Engine interface {
	WaitReady(ctx context.Context) error
	Status() coordinator.Status
	GenerateEmbeddings(ctx context.Context, rawText string, onProgress func(models.EmbeddingProgress)) ([]models.Line, error)
	Search(ctx context.Context, query string, k int) ([]models.SearchResult, error)
	Clear()
}

// AppOptions configures the editor.
type AppOptions struct {
	Text     string
	FileName string
	TopK     int
}

type readyMsg struct {
	err error
}

type progressMsg struct {
	gen      int
	progress models.EmbeddingProgress
	ch       <-chan tea.Msg
}

type generateDoneMsg struct {
	gen   int
	lines []models.Line
	text  string
	err   error
}

type searchDoneMsg struct {
	seq     int
	query   string
	results []models.SearchResult
	err     error
}

// chromeHeight is the rows taken by header, status and footer around the editor.
const chromeHeight = 7

var (
	headerStyle  = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("212"))
	bannerStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("231")).Background(lipgloss.Color("124")).Padding(0, 1)
	footerStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("241"))
	gutterStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("241"))
	matchStyle   = lipgloss.NewStyle().Background(lipgloss.Color("237"))
	currentStyle = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("16")).Background(lipgloss.Color("212"))
	staleStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("214"))
)

// AppModel is the bubbletea model for the semantic editor.
type AppModel struct {
	ctx      context.Context
	engine   Engine
	topK     int
	fileName string

	editor  textarea.Model
	query   textinput.Model
	spinner spinner.Model
	bar     progress.Model
	width   int
	height  int

	status coordinator.Status

	// gen identifies the current generation; late messages from older ones are dropped.
	gen       int
	embedding bool
	progress  models.EmbeddingProgress

	lines        []models.Line
	embeddedText string
	embedded     int

	searching     bool
	searchSeq     int
	searchPending bool
	lastQuery     string
	results       []models.SearchResult
	current       int

	statusMsg string
}

// NewAppModel creates the editor over engine. The engine should already be
// starting; the model waits for readiness in Init.
func NewAppModel(ctx context.Context, engine Engine, opts AppOptions) AppModel {
	editor := textarea.New()
	editor.Placeholder = "Paste or type text, one item per line..."
	editor.ShowLineNumbers = true
	editor.CharLimit = 0
	editor.MaxHeight = 0
	editor.SetValue(opts.Text)
	editor.Focus()

	query := textinput.New()
	query.Prompt = "Search: "
	query.Placeholder = "describe what you are looking for"
	query.Width = 50

	s := spinner.New()
	s.Spinner = spinner.Dot

	bar := progress.New(progress.WithDefaultGradient())

	topK := opts.TopK
	if topK <= 0 {
		topK = 5
	}

	return AppModel{
		ctx:      ctx,
		engine:   engine,
		topK:     topK,
		fileName: opts.FileName,
		editor:   editor,
		query:    query,
		spinner:  s,
		bar:      bar,
		status:   engine.Status(),
	}
}

// Init implements tea.Model.
func (m AppModel) Init() tea.Cmd {
	return tea.Batch(m.waitReady(), m.spinner.Tick, textarea.Blink)
}

func (m AppModel) waitReady() tea.Cmd {
	ctx, engine := m.ctx, m.engine
	return func() tea.Msg {
		return readyMsg{err: engine.WaitReady(ctx)}
	}
}

// Update implements tea.Model.
func (m AppModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width, m.height = msg.Width, msg.Height
		m.editor.SetWidth(msg.Width)
		m.editor.SetHeight(max(msg.Height-chromeHeight, 3))
		m.bar.Width = max(msg.Width-4, 10)
		return m, nil

	case readyMsg:
		m.status = m.engine.Status()
		return m, nil

	case spinner.TickMsg:
		if m.status.IsLoading || m.status.State == coordinator.StateUninitialized {
			var cmd tea.Cmd
			m.spinner, cmd = m.spinner.Update(msg)
			return m, cmd
		}
		return m, nil

	case progressMsg:
		if msg.gen == m.gen {
			m.progress = msg.progress
		}
		return m, listen(msg.ch)

	case generateDoneMsg:
		return m.finishGenerate(msg), nil

	case searchDoneMsg:
		return m.finishSearch(msg), nil

	case tea.KeyMsg:
		return m.handleKey(msg)
	}

	return m.forward(msg)
}

func (m AppModel) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "ctrl+c":
		return m, tea.Quit
	case "ctrl+l":
		return m.clearAll()
	}

	if m.searching {
		return m.handleSearchKey(msg)
	}

	switch msg.String() {
	case "ctrl+g":
		if !m.canGenerate() {
			return m, nil
		}
		return m.startGenerate()
	case "ctrl+f":
		if len(m.lines) == 0 || m.embedding {
			return m, nil
		}
		m.searching = true
		m.editor.Blur()
		return m, m.query.Focus()
	case "esc":
		m.results = nil
		return m, nil
	}

	if m.embedding {
		// Read-only while embedding.
		return m, nil
	}

	before := m.editor.Value()
	var cmd tea.Cmd
	m.editor, cmd = m.editor.Update(msg)
	if m.editor.Value() != before {
		m.results = nil
		m.statusMsg = ""
	}
	return m, cmd
}

func (m AppModel) handleSearchKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "esc":
		m.searching = false
		m.results = nil
		m.lastQuery = ""
		m.statusMsg = ""
		m.query.Blur()
		return m, m.editor.Focus()
	case "enter":
		q := m.query.Value()
		if len(m.results) > 0 && q == m.lastQuery {
			m.step(1)
			return m, nil
		}
		if strings.TrimSpace(q) == "" || m.searchPending {
			return m, nil
		}
		return m.startSearch(q)
	case "ctrl+n", "down":
		m.step(1)
		return m, nil
	case "ctrl+p", "up":
		m.step(-1)
		return m, nil
	}

	var cmd tea.Cmd
	m.query, cmd = m.query.Update(msg)
	return m, cmd
}

// step moves the current result by delta, wrapping around.
func (m *AppModel) step(delta int) {
	n := len(m.results)
	if n == 0 {
		return
	}
	m.current = ((m.current+delta)%n + n) % n
}

func (m AppModel) canGenerate() bool {
	return m.status.IsReady && !m.embedding && strings.TrimSpace(m.editor.Value()) != ""
}

func (m AppModel) startGenerate() (tea.Model, tea.Cmd) {
	m.gen++
	gen := m.gen
	text := m.editor.Value()
	m.embedding = true
	m.progress = models.EmbeddingProgress{}
	m.statusMsg = ""
	m.results = nil
	m.editor.Blur()

	ctx, engine := m.ctx, m.engine
	ch := make(chan tea.Msg, 64)
	go func() {
		defer close(ch)
		lines, err := engine.GenerateEmbeddings(ctx, text, func(p models.EmbeddingProgress) {
			ch <- progressMsg{gen: gen, progress: p, ch: ch}
		})
		ch <- generateDoneMsg{gen: gen, lines: lines, text: text, err: err}
	}()
	return m, listen(ch)
}

// listen delivers the next message from a generation's stream.
func listen(ch <-chan tea.Msg) tea.Cmd {
	return func() tea.Msg {
		msg, ok := <-ch
		if !ok {
			return nil
		}
		return msg
	}
}

func (m AppModel) finishGenerate(msg generateDoneMsg) AppModel {
	if msg.gen != m.gen {
		return m
	}
	m.embedding = false
	m.editor.Focus()

	if msg.err != nil {
		if !errors.Is(msg.err, coordinator.ErrSuperseded) {
			m.statusMsg = "Embedding failed: " + msg.err.Error()
		}
		return m
	}
	m.lines = msg.lines
	m.embeddedText = msg.text
	m.embedded = models.CountEmbedded(msg.lines)
	return m
}

func (m AppModel) startSearch(q string) (tea.Model, tea.Cmd) {
	m.searchSeq++
	seq := m.searchSeq
	m.searchPending = true
	m.statusMsg = ""

	ctx, engine, k := m.ctx, m.engine, m.topK
	return m, func() tea.Msg {
		results, err := engine.Search(ctx, q, k)
		return searchDoneMsg{seq: seq, query: q, results: results, err: err}
	}
}

func (m AppModel) finishSearch(msg searchDoneMsg) AppModel {
	if msg.seq != m.searchSeq {
		return m
	}
	m.searchPending = false
	m.current = 0
	m.results = nil

	if msg.err != nil {
		if !errors.Is(msg.err, coordinator.ErrSuperseded) {
			m.statusMsg = "Search failed: " + msg.err.Error()
		}
		return m
	}
	m.lastQuery = msg.query
	m.results = msg.results
	if len(msg.results) == 0 {
		m.statusMsg = "No matches"
	}
	return m
}

func (m AppModel) clearAll() (tea.Model, tea.Cmd) {
	m.engine.Clear()
	m.gen++
	m.searchSeq++
	m.embedding = false
	m.searchPending = false
	m.progress = models.EmbeddingProgress{}
	m.lines = nil
	m.embeddedText = ""
	m.embedded = 0
	m.searching = false
	m.results = nil
	m.lastQuery = ""
	m.statusMsg = ""
	m.query.SetValue("")
	m.query.Blur()
	m.editor.Reset()
	return m, m.editor.Focus()
}

func (m AppModel) forward(msg tea.Msg) (tea.Model, tea.Cmd) {
	var cmd tea.Cmd
	if m.searching {
		m.query, cmd = m.query.Update(msg)
	} else {
		m.editor, cmd = m.editor.Update(msg)
	}
	return m, cmd
}

// View implements tea.Model.
func (m AppModel) View() string {
	var b strings.Builder

	b.WriteString(m.headerView())
	b.WriteString("\n")
	if m.status.State == coordinator.StateFailed && m.status.Err != nil {
		b.WriteString(bannerStyle.Render("Embedding provider failed: " + m.status.Err.Error()))
		b.WriteString("\n")
	}
	b.WriteString("\n")

	switch {
	case m.embedding:
		b.WriteString(fmt.Sprintf("Embedding lines: %d / %d\n", m.progress.Current, m.progress.Total))
		b.WriteString(m.bar.ViewAs(float64(m.progress.Percentage) / 100))
		b.WriteString("\n\n")
		b.WriteString(m.editor.View())
	case m.searching:
		b.WriteString(m.searchBarView())
		b.WriteString("\n\n")
		b.WriteString(m.viewerView())
	default:
		b.WriteString(m.editor.View())
	}
	b.WriteString("\n")

	if m.statusMsg != "" {
		b.WriteString(errorStyle.Render(m.statusMsg))
		b.WriteString("\n")
	}
	b.WriteString(m.footerView())
	return b.String()
}

func (m AppModel) headerView() string {
	title := headerStyle.Render("linesense")
	if m.fileName != "" {
		title += stepStyle.Render(" · " + m.fileName)
	}

	var state string
	switch m.status.State {
	case coordinator.StateReady:
		state = successStyle.Render("Ready")
	case coordinator.StateFailed:
		state = errorStyle.Render("Error")
	default:
		state = m.spinner.View() + " Loading model..."
	}
	return title + "  " + state
}

func (m AppModel) searchBarView() string {
	line := m.query.View()
	switch {
	case m.searchPending:
		line += "  " + stepStyle.Render("Searching...")
	case len(m.results) > 0:
		r := m.results[m.current]
		line += "  " + stepStyle.Render(fmt.Sprintf("%d of %d (%.0f%%)", m.current+1, len(m.results), r.Score*100))
	}
	return line
}

// viewerView renders the embedded lines around the current result with
// every result highlighted.
func (m AppModel) viewerView() string {
	if len(m.lines) == 0 {
		return ""
	}

	rank := make(map[int]int, len(m.results))
	for i, r := range m.results {
		rank[r.LineIndex] = i
	}

	height := m.height - chromeHeight
	if height < 3 {
		height = 10
	}
	center := 0
	if len(m.results) > 0 {
		center = m.results[m.current].LineIndex
	}
	start := max(center-height/2, 0)
	end := min(start+height, len(m.lines))
	start = max(end-height, 0)

	width := len(fmt.Sprint(len(m.lines)))
	var b strings.Builder
	for i := start; i < end; i++ {
		gutter := gutterStyle.Render(fmt.Sprintf("%*d ", width, i+1))
		text := m.lines[i].RawText
		if idx, ok := rank[i]; ok {
			if idx == m.current {
				text = currentStyle.Render(text)
			} else {
				text = matchStyle.Render(text)
			}
		}
		b.WriteString(gutter)
		b.WriteString(text)
		if i < end-1 {
			b.WriteString("\n")
		}
	}
	return b.String()
}

func (m AppModel) footerView() string {
	var parts []string
	switch {
	case m.embedding:
		parts = append(parts, "embedding...")
	case len(m.lines) > 0:
		parts = append(parts, fmt.Sprintf("✓ %d lines embedded", m.embedded), "ctrl+f semantic search")
		if m.editor.Value() != m.embeddedText {
			parts = append(parts, staleStyle.Render("text changed, ctrl+g to re-embed"))
		}
	case m.status.IsReady:
		parts = append(parts, "ctrl+g generate embeddings")
	}
	if m.searching {
		parts = append(parts, "enter next", "ctrl+p prev", "esc close")
	}
	parts = append(parts, "ctrl+l clear", "ctrl+c quit")
	return footerStyle.Render(strings.Join(parts, " • "))
}

// Searching reports whether the search bar is open.
func (m AppModel) Searching() bool {
	return m.searching
}

// Results returns the results of the last search.
func (m AppModel) Results() []models.SearchResult {
	return m.results
}

// CurrentResult returns the highlighted result, if any.
func (m AppModel) CurrentResult() (models.SearchResult, bool) {
	if len(m.results) == 0 {
		return models.SearchResult{}, false
	}
	return m.results[m.current], true
}
