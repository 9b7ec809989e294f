// ABOUTME: Bubbletea model for the selector operator TUI
// ABOUTME: Polls router status and switches sources on digit keys
package ui

import (
	"fmt"
	"strings"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/Resonate-Protocol/resonate-selector/internal/control"
	"github.com/Resonate-Protocol/resonate-selector/pkg/router"
)

// PollInterval is how often the model refreshes router state.
const PollInterval = 100 * time.Millisecond

// DropCounter reports commands lost to queue overflow. *ingress.Queue
// implements it.
type DropCounter interface {
	Dropped() uint64
}

// Config wires the model to the running router.
type Config struct {
	Name       string
	Dispatcher *control.Dispatcher
	Status     control.StatusReader
	Drops      DropCounter // optional
	Transition time.Duration
}

// Model represents the TUI state
type Model struct {
	name       string
	dispatcher *control.Dispatcher
	status     control.StatusReader
	drops      DropCounter
	session    *control.Session
	transition time.Duration

	// Snapshot refreshed every poll
	current  router.Status
	sessions []control.Session
	dropped  uint64

	message  string
	quitting bool

	width  int
	height int
}

type tickMsg time.Time

var (
	titleStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("205")).
			MarginBottom(1)

	headerStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("86"))

	valueStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("250"))

	activeStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("42"))

	fadingStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("220"))

	helpStyle = lipgloss.NewStyle().Faint(true)
)

// NewModel creates a model with its own "tui" control session. The session
// stays registered until Close.
func NewModel(config Config) Model {
	m := Model{
		name:       config.Name,
		dispatcher: config.Dispatcher,
		status:     config.Status,
		drops:      config.Drops,
		transition: config.Transition,
	}
	m.session = config.Dispatcher.Open("tui", "")
	m.refresh()
	return m
}

// Close unregisters the TUI session.
func (m Model) Close() {
	m.dispatcher.Close(m.session)
}

// Init starts polling
func (m Model) Init() tea.Cmd {
	return tick()
}

func tick() tea.Cmd {
	return tea.Tick(PollInterval, func(t time.Time) tea.Msg {
		return tickMsg(t)
	})
}

// Update handles messages
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		return m.handleKey(msg)
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
	case tickMsg:
		m.refresh()
		return m, tick()
	}

	return m, nil
}

func (m *Model) refresh() {
	if m.status != nil {
		m.current = m.status.Status()
	}
	m.sessions = m.dispatcher.Registry().Sessions()
	if m.drops != nil {
		m.dropped = m.drops.Dropped()
	}
}

// handleKey handles keyboard input
func (m Model) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	key := msg.String()
	switch key {
	case "q", "ctrl+c":
		m.quitting = true
		return m, tea.Quit
	}

	if len(key) == 1 && key[0] >= '0' && key[0] <= '9' {
		idx, err := m.dispatcher.Switch(m.session, key)
		if err != nil {
			m.message = err.Error()
		} else {
			m.message = fmt.Sprintf("fading to %d (%s)", idx, m.dispatcher.Sources().Name(idx))
		}
	}

	return m, nil
}

// View renders the TUI
func (m Model) View() string {
	if m.quitting {
		return "Shutting down selector...\n"
	}

	var b strings.Builder

	b.WriteString(titleStyle.Render(m.name))
	b.WriteString("\n\n")

	b.WriteString(m.renderSources())
	b.WriteString("\n")
	b.WriteString(m.renderFade())
	b.WriteString("\n")
	b.WriteString(m.renderSessions())

	if m.message != "" {
		b.WriteString("\n")
		b.WriteString(valueStyle.Render(m.message))
		b.WriteString("\n")
	}

	b.WriteString("\n")
	b.WriteString(helpStyle.Render("0-9: switch source  q: quit"))

	return b.String()
}

func (m Model) renderSources() string {
	var b strings.Builder
	b.WriteString(headerStyle.Render("Sources"))
	b.WriteString("\n")

	for i, name := range m.dispatcher.Sources().Names() {
		line := fmt.Sprintf("  %d  %s", i, name)
		switch {
		case i == m.current.Active:
			b.WriteString(activeStyle.Render(line + "  ◀ on air"))
		case m.current.Transitioning && i == m.current.Previous:
			b.WriteString(fadingStyle.Render(line + "  fading out"))
		default:
			b.WriteString(valueStyle.Render(line))
		}
		b.WriteString("\n")
	}
	return b.String()
}

func (m Model) renderFade() string {
	var b strings.Builder

	b.WriteString(headerStyle.Render("Fade: "))
	if m.current.Transitioning {
		b.WriteString(fadingStyle.Render(fmt.Sprintf("[%s] %3.0f%%  %v / %v",
			renderBar(m.current.Progress, 20),
			m.current.Progress*100,
			m.current.Elapsed.Round(time.Millisecond),
			m.transition)))
	} else {
		b.WriteString(valueStyle.Render(fmt.Sprintf("steady (%v fades)", m.transition)))
	}
	b.WriteString("\n")

	b.WriteString(headerStyle.Render("Stats: "))
	b.WriteString(valueStyle.Render(fmt.Sprintf("blocks %d  switches %d  dropped %d",
		m.current.Blocks, m.current.Applied, m.dropped)))
	b.WriteString("\n")

	return b.String()
}

func (m Model) renderSessions() string {
	var b strings.Builder
	b.WriteString(headerStyle.Render(fmt.Sprintf("Control sessions (%d)", len(m.sessions))))
	b.WriteString("\n")

	for _, s := range m.sessions {
		b.WriteString(valueStyle.Render(fmt.Sprintf("  • %s (since %s)", s.String(), s.Connected.Format("15:04:05"))))
		b.WriteString("\n")
	}
	return b.String()
}

func renderBar(progress float64, width int) string {
	filled := int(progress * float64(width))
	if filled < 0 {
		filled = 0
	}
	if filled > width {
		filled = width
	}
	return strings.Repeat("█", filled) + strings.Repeat("░", width-filled)
}
