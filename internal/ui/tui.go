// ABOUTME: TUI initialization and control
// ABOUTME: Wraps the bubbletea program for the selector UI
package ui

import (
	"fmt"

	tea "github.com/charmbracelet/bubbletea"
)

// TUI runs the operator interface.
type TUI struct {
	program *tea.Program
	model   Model
}

// New creates a TUI bound to the router described by config.
func New(config Config) *TUI {
	m := NewModel(config)
	return &TUI{
		model:   m,
		program: tea.NewProgram(m, tea.WithAltScreen()),
	}
}

// Run blocks until the user quits or Stop is called.
func (t *TUI) Run() error {
	defer t.model.Close()

	if _, err := t.program.Run(); err != nil {
		return fmt.Errorf("tui: %w", err)
	}
	return nil
}

// Stop asks the program to exit.
func (t *TUI) Stop() {
	t.program.Quit()
}
