package tui

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/textinput"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"lawqa/internal/domain"
	"lawqa/internal/session"
)

// SessionPort is the TUI-facing subset of the session controller.
type SessionPort interface {
	Submit(ctx context.Context, query string) (*session.Result, error)
	Regenerate(ctx context.Context) (*session.Result, error)
	History() []domain.HistoryEntry
	LastQuery() string
}

// Model is the Bubble Tea model for the interactive QA session.
type Model struct {
	service     SessionPort
	input       textinput.Model
	viewport    viewport.Model
	answer      string
	audioPath   string
	speechNote  string
	status      string
	showHistory bool
	ready       bool
}

// New creates a new TUI model instance.
func New(service SessionPort) Model {
	ti := textinput.New()
	ti.Prompt = "> "
	ti.Placeholder = "Type your legal question and press Enter"
	ti.Focus()
	ti.CharLimit = 0
	vp := viewport.New(0, 0)
	return Model{
		service:  service,
		input:    ti,
		viewport: vp,
		status:   "Ready. Enter submits, ctrl+r regenerates, tab shows history.",
	}
}

// Init initializes the model (text input cursor blink).
func (m Model) Init() tea.Cmd { return textinput.Blink }

// Update handles key and window events and updates the view state. Pipeline
// actions run synchronously: the interface accepts the next action only
// once the current one has completed.
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.ready = true
		_, ch := contentBoxStyle.GetFrameSize()
		_, qh := queryBoxStyle.GetFrameSize()
		reserved := 1 + 1 + qh + 1 // header, status, query frame, spacer
		vh := msg.Height - reserved - ch
		if vh < 3 {
			vh = 3
		}
		m.viewport.Width = max(20, msg.Width)
		m.viewport.Height = vh
		m.viewport.SetContent(m.renderContent())
		return m, nil
	case tea.KeyMsg:
		if msg.Type == tea.KeyCtrlC || msg.Type == tea.KeyCtrlD {
			return m, tea.Quit
		}
		switch msg.String() {
		case "enter":
			q := strings.TrimSpace(m.input.Value())
			if q != "" && q != m.service.LastQuery() {
				m.submit(q)
				m.viewport.SetContent(m.renderContent())
				return m, nil
			}
		case "ctrl+s":
			// Explicit resubmit of the same question.
			if q := strings.TrimSpace(m.input.Value()); q != "" {
				m.submit(q)
				m.viewport.SetContent(m.renderContent())
				return m, nil
			}
		case "ctrl+r":
			m.regenerate()
			m.viewport.SetContent(m.renderContent())
			return m, nil
		case "tab":
			m.showHistory = !m.showHistory
			m.viewport.SetContent(m.renderContent())
			return m, nil
		case "up", "down", "pgup", "pgdown":
			var cmd tea.Cmd
			m.viewport, cmd = m.viewport.Update(msg)
			return m, cmd
		}
	}
	var cmd tea.Cmd
	m.input, cmd = m.input.Update(msg)
	return m, cmd
}

func (m *Model) submit(query string) {
	res, err := m.service.Submit(context.Background(), query)
	if err != nil {
		m.status = "Error: " + err.Error()
		return
	}
	m.applyResult(res)
	m.status = fmt.Sprintf("Answered %q", query)
	m.showHistory = false
}

func (m *Model) regenerate() {
	res, err := m.service.Regenerate(context.Background())
	if err != nil {
		if errors.Is(err, session.ErrNoQuery) {
			m.status = "Nothing to regenerate yet."
		} else {
			m.status = "Error: " + err.Error()
		}
		return
	}
	m.applyResult(res)
	m.status = fmt.Sprintf("Regenerated answer for %q", m.service.LastQuery())
	m.showHistory = false
}

func (m *Model) applyResult(res *session.Result) {
	m.answer = res.Answer
	m.audioPath = res.AudioPath
	if res.SpeechErr != nil {
		m.speechNote = "Speech rendering failed: " + res.SpeechErr.Error()
	} else {
		m.speechNote = ""
	}
}

// View renders the TUI layout.
func (m Model) View() string {
	if !m.ready {
		return "Loading..."
	}
	header := headerStyle.Render("Legal QA Assistant")
	content := contentBoxStyle.Render(m.viewport.View())
	input := queryBoxStyle.Render(m.input.View())
	status := statusStyle.Render(m.status)
	return header + "\n" + content + "\n" + input + "\n" + status
}

func (m Model) renderContent() string {
	if m.showHistory {
		return m.renderHistory()
	}
	if m.answer == "" {
		return "No answer yet. Ask a question about the legal code."
	}
	var b strings.Builder
	b.WriteString(m.answer)
	b.WriteString("\n")
	if m.audioPath != "" {
		b.WriteString("\n" + audioStyle.Render("Audio: "+m.audioPath))
	}
	if m.speechNote != "" {
		b.WriteString("\n" + warnStyle.Render(m.speechNote))
	}
	return b.String()
}

func (m Model) renderHistory() string {
	entries := m.service.History()
	if len(entries) == 0 {
		return "No questions asked yet."
	}
	var b strings.Builder
	b.WriteString(headerStyle.Render("Q&A History") + "\n\n")
	// Most recent first.
	for i := len(entries) - 1; i >= 0; i-- {
		e := entries[i]
		b.WriteString(fmt.Sprintf("%d. Question: %s\n", len(entries)-i, e.Question))
		b.WriteString(fmt.Sprintf("   Answer: %s\n\n", e.Answer))
	}
	return strings.TrimRight(b.String(), "\n")
}

var (
	headerStyle     = lipgloss.NewStyle().Bold(true)
	contentBoxStyle = lipgloss.NewStyle().Border(lipgloss.RoundedBorder()).Padding(0, 1)
	queryBoxStyle   = lipgloss.NewStyle().Border(lipgloss.RoundedBorder()).Padding(0, 1)
	statusStyle     = lipgloss.NewStyle().Foreground(lipgloss.Color("10"))
	audioStyle      = lipgloss.NewStyle().Foreground(lipgloss.Color("12"))
	warnStyle       = lipgloss.NewStyle().Foreground(lipgloss.Color("11"))
)

func max(a, b int) int {
	if a > b {
		return a
	}
	return b
}
