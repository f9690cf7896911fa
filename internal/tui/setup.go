// ABOUTME: Interactive TUI wizard for choosing and validating an embedding provider.
// ABOUTME: 4-step bubbletea model collecting provider, model, endpoint, and API key.
package tui

import (
	"context"
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/2389-research/linesense/internal/embeddings"
)

// Step represents the current wizard step.
type Step int

const (
	StepProvider Step = iota
	StepModel
	StepEndpoint
	StepAPIKey
	StepValidating
	StepDone
	StepFailed
)

// validationResultMsg carries the result of an async validation attempt.
type validationResultMsg struct {
	err error
}

// ValidateFn is the function signature for provider validation.
type ValidateFn func(ctx context.Context, cfg embeddings.ProviderConfig) error

// cancelHolder shares a cancel function across bubbletea model copies.
// This MUST be stored as a pointer field on SetupModel so that value-receiver
// methods (required by tea.Model) can store the cancel func and have it
// visible to all copies of the model.
type cancelHolder struct {
	cancel context.CancelFunc
}

// SetupModel is the bubbletea model for the setup wizard.
type SetupModel struct {
	step          Step
	inputs        [4]textinput.Model
	spinner       spinner.Model
	validateFn    ValidateFn
	cancelCtx     *cancelHolder
	validationErr error
	inputErr      string
	quitting      bool
}

var (
	titleStyle   = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("99"))
	brandStyle   = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("212"))
	stepStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("241"))
	successStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("82"))
	errorStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("196"))
	promptStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("241"))
)

// NewSetupModel creates a new setup wizard model, pre-filling with existing config values.
func NewSetupModel(existing embeddings.ProviderConfig) SetupModel {
	providerInput := textinput.New()
	providerInput.Placeholder = embeddings.ProviderLocal
	providerInput.Focus()
	providerInput.Width = 50
	if existing.Name != "" {
		providerInput.SetValue(existing.Name)
	}

	modelInput := textinput.New()
	modelInput.Width = 50
	if existing.Model != "" {
		modelInput.SetValue(existing.Model)
	}

	endpointInput := textinput.New()
	endpointInput.Width = 50
	if existing.BaseURL != "" {
		endpointInput.SetValue(existing.BaseURL)
	}

	keyInput := textinput.New()
	keyInput.Placeholder = "your-api-key"
	keyInput.EchoMode = textinput.EchoPassword
	keyInput.Width = 50
	if existing.APIKey != "" {
		keyInput.SetValue(existing.APIKey)
	}

	s := spinner.New()
	s.Spinner = spinner.Dot

	return SetupModel{
		step:       StepProvider,
		inputs:     [4]textinput.Model{providerInput, modelInput, endpointInput, keyInput},
		spinner:    s,
		validateFn: ValidateProvider,
		cancelCtx:  &cancelHolder{},
	}
}

// Init implements tea.Model.
func (m SetupModel) Init() tea.Cmd {
	return textinput.Blink
}

// Update implements tea.Model.
func (m SetupModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.Type {
		case tea.KeyCtrlC, tea.KeyEscape:
			m.quitting = true
			if m.cancelCtx.cancel != nil {
				m.cancelCtx.cancel()
			}
			return m, tea.Quit
		}

		switch m.step {
		case StepProvider, StepModel, StepEndpoint, StepAPIKey:
			return m.updateInput(msg)
		case StepFailed:
			return m.updateFailed(msg)
		}

	case validationResultMsg:
		m.cancelCtx.cancel = nil
		if msg.err == nil {
			m.step = StepDone
			return m, tea.Quit
		}
		m.validationErr = msg.err
		m.step = StepFailed
		return m, nil

	case spinner.TickMsg:
		if m.step == StepValidating {
			var cmd tea.Cmd
			m.spinner, cmd = m.spinner.Update(msg)
			return m, cmd
		}
	}

	return m, nil
}

func (m SetupModel) provider() string {
	return strings.ToLower(strings.TrimSpace(m.inputs[StepProvider].Value()))
}

// needsStep reports whether the chosen provider uses the given input step.
func (m SetupModel) needsStep(step Step) bool {
	switch m.provider() {
	case embeddings.ProviderLocal:
		return false
	case embeddings.ProviderGemini:
		return step != StepEndpoint
	default:
		return true
	}
}

// requiresKey reports whether the API key step may not be left empty.
func (m SetupModel) requiresKey() bool {
	p := m.provider()
	if p == embeddings.ProviderGemini {
		return true
	}
	return p == embeddings.ProviderOpenAI && strings.TrimSpace(m.inputs[StepEndpoint].Value()) == ""
}

func (m SetupModel) updateInput(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	if msg.Type == tea.KeyEnter {
		m.inputErr = ""

		switch m.step {
		case StepProvider:
			val := m.provider()
			if val == "" {
				val = embeddings.ProviderLocal
			}
			if !embeddings.IsValidProvider(val) {
				m.inputErr = fmt.Sprintf("unknown provider %q", val)
				return m, nil
			}
			m.inputs[StepProvider].SetValue(val)
			m.applyPlaceholders()
		case StepEndpoint:
			val := strings.TrimRight(strings.TrimSpace(m.inputs[StepEndpoint].Value()), "/")
			m.inputs[StepEndpoint].SetValue(val)
		case StepAPIKey:
			// Don't advance on empty API key when the provider needs one
			if m.requiresKey() && m.inputs[StepAPIKey].Value() == "" {
				return m, nil
			}
		}

		m.inputs[m.step].Blur()

		next := m.step + 1
		for next <= StepAPIKey && !m.needsStep(next) {
			next++
		}
		if next > StepAPIKey {
			m.step = StepValidating
			return m, tea.Batch(m.startValidation(), m.spinner.Tick)
		}
		m.step = next
		m.inputs[next].Focus()
		return m, textinput.Blink
	}

	// Forward to the active input
	idx := int(m.step)
	var cmd tea.Cmd
	m.inputs[idx], cmd = m.inputs[idx].Update(msg)
	return m, cmd
}

// applyPlaceholders shows the chosen provider's defaults in later steps.
func (m *SetupModel) applyPlaceholders() {
	switch m.provider() {
	case embeddings.ProviderOpenAI:
		m.inputs[StepModel].Placeholder = embeddings.DefaultOpenAIModel
		m.inputs[StepEndpoint].Placeholder = "https://api.openai.com/v1"
	case embeddings.ProviderGemini:
		m.inputs[StepModel].Placeholder = embeddings.DefaultGeminiModel
	case embeddings.ProviderTEI:
		m.inputs[StepModel].Placeholder = "(label only)"
		m.inputs[StepEndpoint].Placeholder = embeddings.DefaultTEIURL
	}
}

func (m SetupModel) updateFailed(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	if msg.Type == tea.KeyRunes {
		switch msg.Runes[0] {
		case 'r':
			m.step = StepValidating
			m.validationErr = nil
			return m, tea.Batch(m.startValidation(), m.spinner.Tick)
		case 's':
			m.step = StepDone
			return m, tea.Quit
		case 'q':
			m.quitting = true
			return m, tea.Quit
		}
	}
	return m, nil
}

func (m SetupModel) startValidation() tea.Cmd {
	ctx, cancel := context.WithCancel(context.Background())
	m.cancelCtx.cancel = cancel
	cfg := m.Result()
	fn := m.validateFn
	return func() tea.Msg {
		return validationResultMsg{err: fn(ctx, cfg)}
	}
}

// View implements tea.Model.
func (m SetupModel) View() string {
	var b strings.Builder

	b.WriteString("\n")
	b.WriteString(brandStyle.Render("   LINESENSE"))
	b.WriteString(titleStyle.Render(" - Setup"))
	b.WriteString("\n\n")
	b.WriteString("Choose the embedding provider used for semantic search.\n\n")

	switch m.step {
	case StepProvider:
		b.WriteString(stepStyle.Render("Step 1 of 4: Provider"))
		b.WriteString("\n")
		b.WriteString(promptStyle.Render(fmt.Sprintf("(%s; press Enter for local)", strings.Join(embeddings.ProviderNames, ", "))))
		b.WriteString("\n")
		b.WriteString(m.inputs[StepProvider].View())
		b.WriteString("\n")

	case StepModel:
		b.WriteString(fmt.Sprintf("  Provider: %s\n\n", m.provider()))
		b.WriteString(stepStyle.Render("Step 2 of 4: Model"))
		b.WriteString("\n")
		b.WriteString(promptStyle.Render("(press Enter for default)"))
		b.WriteString("\n")
		b.WriteString(m.inputs[StepModel].View())
		b.WriteString("\n")

	case StepEndpoint:
		b.WriteString(fmt.Sprintf("  Provider: %s\n", m.provider()))
		b.WriteString(fmt.Sprintf("  Model: %s\n\n", m.displayModel()))
		b.WriteString(stepStyle.Render("Step 3 of 4: Endpoint URL"))
		b.WriteString("\n")
		b.WriteString(promptStyle.Render("(press Enter for default)"))
		b.WriteString("\n")
		b.WriteString(m.inputs[StepEndpoint].View())
		b.WriteString("\n")

	case StepAPIKey:
		b.WriteString(fmt.Sprintf("  Provider: %s\n", m.provider()))
		b.WriteString(fmt.Sprintf("  Model: %s\n\n", m.displayModel()))
		b.WriteString(stepStyle.Render("Step 4 of 4: API Key"))
		b.WriteString("\n")
		if !m.requiresKey() {
			b.WriteString(promptStyle.Render("(optional)"))
			b.WriteString("\n")
		}
		b.WriteString(m.inputs[StepAPIKey].View())
		b.WriteString("\n")

	case StepValidating:
		b.WriteString(fmt.Sprintf("  Provider: %s\n", m.provider()))
		b.WriteString(fmt.Sprintf("  Model: %s\n", m.displayModel()))
		if key := m.inputs[StepAPIKey].Value(); key != "" {
			b.WriteString(fmt.Sprintf("  API Key: %s\n", strings.Repeat("*", len(key))))
		}
		b.WriteString("\n")
		b.WriteString(m.spinner.View())
		b.WriteString(" Loading model and embedding a probe...")
		b.WriteString("\n")

	case StepDone:
		b.WriteString(successStyle.Render("✓ Provider ready!"))
		b.WriteString("\n")

	case StepFailed:
		errMsg := "unknown error"
		if m.validationErr != nil {
			errMsg = m.validationErr.Error()
		}
		b.WriteString(errorStyle.Render(fmt.Sprintf("✗ Validation failed: %s", errMsg)))
		b.WriteString("\n\n")
		b.WriteString(promptStyle.Render("[r]etry  [s]ave anyway  [q]uit"))
		b.WriteString("\n")
	}

	if m.inputErr != "" {
		b.WriteString(errorStyle.Render(m.inputErr))
		b.WriteString("\n")
	}

	return b.String()
}

func (m SetupModel) displayModel() string {
	if v := m.inputs[StepModel].Value(); v != "" {
		return v
	}
	return "default"
}

// Result returns the entered provider configuration.
func (m SetupModel) Result() embeddings.ProviderConfig {
	name := m.provider()
	if name == "" {
		name = embeddings.ProviderLocal
	}
	cfg := embeddings.ProviderConfig{Name: name}
	if m.needsStep(StepModel) {
		cfg.Model = strings.TrimSpace(m.inputs[StepModel].Value())
	}
	if m.needsStep(StepEndpoint) {
		cfg.BaseURL = m.inputs[StepEndpoint].Value()
	}
	if m.needsStep(StepAPIKey) {
		cfg.APIKey = m.inputs[StepAPIKey].Value()
	}
	return cfg
}

// ShouldSave returns true if the wizard completed (via validation success or
// "save anyway") and the user did not cancel with Ctrl+C, Escape, or 'q'.
func (m SetupModel) ShouldSave() bool {
	return m.step == StepDone && !m.quitting
}
