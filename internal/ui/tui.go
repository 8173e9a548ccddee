// ABOUTME: TUI initialization and control channels
// ABOUTME: Wraps the bubbletea program for the receiver UI
package ui

import (
	tea "github.com/charmbracelet/bubbletea"
)

// VolumeChangeMsg carries a volume/mute change from the TUI.
type VolumeChangeMsg struct {
	Volume int
	Muted  bool
}

// QuitMsg signals the user asked to quit.
type QuitMsg struct{}

// Controls holds channels for TUI-to-application communication.
type Controls struct {
	Changes chan VolumeChangeMsg
	Quit    chan QuitMsg
}

// NewControls creates the control channel pair.
func NewControls() *Controls {
	return &Controls{
		Changes: make(chan VolumeChangeMsg, 10),
		Quit:    make(chan QuitMsg, 1),
	}
}

// NewModel creates a TUI model wired to the given controls.
func NewModel(controls *Controls) Model {
	return Model{
		volume:   100,
		controls: controls,
	}
}

// Run creates the bubbletea program. The caller starts it with
// program.Run on its own goroutine.
func Run(controls *Controls) *tea.Program {
	return tea.NewProgram(NewModel(controls), tea.WithAltScreen())
}
