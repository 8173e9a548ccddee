// ABOUTME: Bubbletea model for the receiver TUI
// ABOUTME: Defines application state and update logic
package ui

import (
	"fmt"
	"strings"

	tea "github.com/charmbracelet/bubbletea"
)

// Model represents the TUI state.
type Model struct {
	// Link
	listening bool
	transport string
	port      int

	// Stream
	sampleRate int
	channels   int

	// Playback
	volume int
	muted  bool

	// Stats
	received    int64
	decoded     int64
	concealed   int64
	late        int64
	skipped     int64
	malformed   int64
	bufferDepth int
	window      int // orderer window, the buffer gauge's full scale

	controls *Controls

	width  int
	height int
}

// Init initializes the model.
func (m Model) Init() tea.Cmd {
	return nil
}

// Update handles messages.
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		return m.handleKey(msg)
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
	case StatusMsg:
		m.applyStatus(msg)
	}

	return m, nil
}

// View renders the TUI.
func (m Model) View() string {
	if m.width == 0 {
		return "Loading..."
	}

	s := m.renderHeader()
	s += m.renderStream()
	s += m.renderStats()
	s += m.renderHelp()

	return s
}

// renderHeader renders the link status line.
func (m Model) renderHeader() string {
	status := "Waiting for sender"
	if m.listening {
		status = fmt.Sprintf("Listening on %s port %d", m.transport, m.port)
	}

	return fmt.Sprintf(`┌─ Airwave Receiver ───────────────────────────────────┐
│ %-52s │
├──────────────────────────────────────────────────────┤
`, status)
}

// renderStream renders the stream format and volume.
func (m Model) renderStream() string {
	format := "(no stream)"
	if m.sampleRate > 0 {
		format = streamFormat(m.sampleRate, m.channels)
	}

	muteIcon := ""
	if m.muted {
		muteIcon = " [muted]"
	}

	return fmt.Sprintf("│ Format: %-44s │\n│ Volume: [%s] %3d%%%-26s │\n",
		format, gauge(m.volume, 100), m.volume, muteIcon)
}

// renderStats renders the reorder buffer gauge and frame counters. The
// buffer gauge's full scale is the orderer window: a full bar means the
// next loss forces a conceal or skip.
func (m Model) renderStats() string {
	return fmt.Sprintf(`├──────────────────────────────────────────────────────┤
│ Buffer: [%s] %2d/%-2d RX: %-8d Played: %-8d│
│ Concealed: %-5d Late: %-5d Skipped: %-5d Bad: %-4d │
`, gauge(m.bufferDepth, m.window), m.bufferDepth, m.window,
		m.received, m.decoded, m.concealed, m.late, m.skipped, m.malformed)
}

// renderHelp renders keyboard shortcuts.
func (m Model) renderHelp() string {
	return `│ ↑/↓:Volume  m:Mute  q:Quit                           │
└──────────────────────────────────────────────────────┘
`
}

// handleKey handles keyboard input.
func (m Model) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "q", "ctrl+c":
		if m.controls != nil {
			select {
			case m.controls.Quit <- QuitMsg{}:
			default:
			}
		}
		return m, tea.Quit
	case "up":
		m.volume += 5
		if m.volume > 100 {
			m.volume = 100
		}
		m.sendVolume()
	case "down":
		m.volume -= 5
		if m.volume < 0 {
			m.volume = 0
		}
		m.sendVolume()
	case "m":
		m.muted = !m.muted
		m.sendVolume()
	}

	return m, nil
}

// sendVolume forwards the current volume state without blocking.
func (m Model) sendVolume() {
	if m.controls == nil {
		return
	}
	select {
	case m.controls.Changes <- VolumeChangeMsg{Volume: m.volume, Muted: m.muted}:
	default:
	}
}

// applyStatus updates model state from a status message.
func (m *Model) applyStatus(msg StatusMsg) {
	if msg.Listening != nil {
		m.listening = *msg.Listening
		m.transport = msg.Transport
		m.port = msg.Port
	}
	if msg.SampleRate != 0 {
		m.sampleRate = msg.SampleRate
		m.channels = msg.Channels
	}
	if msg.Window != 0 {
		m.window = msg.Window
	}
	if msg.Received != 0 {
		m.received = msg.Received
		m.decoded = msg.Decoded
		m.concealed = msg.Concealed
		m.late = msg.Late
		m.skipped = msg.Skipped
		m.malformed = msg.Malformed
		m.bufferDepth = msg.BufferDepth
	}
}

// StatusMsg updates TUI state from the pipeline.
type StatusMsg struct {
	Listening   *bool
	Transport   string
	Port        int
	SampleRate  int
	Channels    int
	Window      int
	Received    int64
	Decoded     int64
	Concealed   int64
	Late        int64
	Skipped     int64
	Malformed   int64
	BufferDepth int
}

// gaugeWidth is the cell count of every meter in the panel, so the
// volume and buffer gauges line up.
const gaugeWidth = 10

// gauge renders value against max as a fixed-width meter. Values
// outside [0, max] clamp to the ends; a zero max renders empty.
func gauge(value, max int) string {
	filled := 0
	if max > 0 {
		filled = value * gaugeWidth / max
	}
	if filled < 0 {
		filled = 0
	}
	if filled > gaugeWidth {
		filled = gaugeWidth
	}
	return strings.Repeat("█", filled) + strings.Repeat("░", gaugeWidth-filled)
}

// streamFormat describes the decoded stream, e.g. "opus 48000Hz stereo".
func streamFormat(rate, channels int) string {
	switch channels {
	case 1:
		return fmt.Sprintf("opus %dHz mono", rate)
	case 2:
		return fmt.Sprintf("opus %dHz stereo", rate)
	default:
		return fmt.Sprintf("opus %dHz %dch", rate, channels)
	}
}
