// ABOUTME: Tests for the receiver TUI model
// ABOUTME: Covers status updates and keyboard handling
package ui

import (
	"strings"
	"testing"

	tea "github.com/charmbracelet/bubbletea"
)

func TestModelAppliesStatus(t *testing.T) {
	m := NewModel(nil)

	listening := true
	updated, _ := m.Update(StatusMsg{
		Listening:  &listening,
		Transport:  "udp",
		Port:       8931,
		SampleRate: 48000,
		Channels:   2,
	})
	m = updated.(Model)

	if !m.listening || m.port != 8931 {
		t.Errorf("status not applied: listening=%v port=%d", m.listening, m.port)
	}
	if m.sampleRate != 48000 || m.channels != 2 {
		t.Errorf("format not applied: %dHz %dch", m.sampleRate, m.channels)
	}
}

func TestModelCounters(t *testing.T) {
	m := NewModel(nil)

	updated, _ := m.Update(StatusMsg{
		Received:    100,
		Decoded:     95,
		Concealed:   2,
		Late:        1,
		Skipped:     2,
		BufferDepth: 3,
	})
	m = updated.(Model)

	if m.received != 100 || m.decoded != 95 || m.concealed != 2 {
		t.Errorf("counters not applied: rx=%d played=%d concealed=%d",
			m.received, m.decoded, m.concealed)
	}
}

func TestModelVolumeKeys(t *testing.T) {
	controls := NewControls()
	m := NewModel(controls)

	updated, _ := m.Update(tea.KeyMsg{Type: tea.KeyDown})
	m = updated.(Model)
	if m.volume != 95 {
		t.Errorf("expected volume 95 after down, got %d", m.volume)
	}

	select {
	case change := <-controls.Changes:
		if change.Volume != 95 {
			t.Errorf("expected change to 95, got %d", change.Volume)
		}
	default:
		t.Error("expected a volume change message")
	}
}

func TestModelMuteToggle(t *testing.T) {
	controls := NewControls()
	m := NewModel(controls)

	updated, _ := m.Update(tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune{'m'}})
	m = updated.(Model)
	if !m.muted {
		t.Error("expected muted after m key")
	}

	select {
	case change := <-controls.Changes:
		if !change.Muted {
			t.Error("expected muted change message")
		}
	default:
		t.Error("expected a change message")
	}
}

func TestModelQuitKey(t *testing.T) {
	controls := NewControls()
	m := NewModel(controls)

	_, cmd := m.Update(tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune{'q'}})
	if cmd == nil {
		t.Fatal("expected quit command")
	}

	select {
	case <-controls.Quit:
	default:
		t.Error("expected a quit message")
	}
}

func TestModelViewRenders(t *testing.T) {
	m := NewModel(nil)
	m.width = 80
	m.sampleRate = 48000
	m.channels = 2

	view := m.View()
	if !strings.Contains(view, "Airwave Receiver") {
		t.Error("view missing title")
	}
	if !strings.Contains(view, "opus 48000Hz stereo") {
		t.Error("view missing stream format")
	}
}

func TestGauge(t *testing.T) {
	cases := []struct {
		value, max int
		want       string
	}{
		{0, 10, "░░░░░░░░░░"},
		{5, 10, "█████░░░░░"},
		{10, 10, "██████████"},
		{15, 10, "██████████"}, // clamped over full scale
		{-1, 10, "░░░░░░░░░░"}, // clamped under zero
		{3, 0, "░░░░░░░░░░"},   // no scale yet
	}

	for _, c := range cases {
		if got := gauge(c.value, c.max); got != c.want {
			t.Errorf("gauge(%d, %d): expected %q, got %q", c.value, c.max, got, c.want)
		}
	}
}

func TestStreamFormat(t *testing.T) {
	if got := streamFormat(48000, 1); got != "opus 48000Hz mono" {
		t.Errorf("unexpected mono format: %q", got)
	}
	if got := streamFormat(48000, 2); got != "opus 48000Hz stereo" {
		t.Errorf("unexpected stereo format: %q", got)
	}
	if got := streamFormat(48000, 6); got != "opus 48000Hz 6ch" {
		t.Errorf("unexpected multichannel format: %q", got)
	}
}

func TestModelBufferGauge(t *testing.T) {
	m := NewModel(nil)
	m.width = 80

	updated, _ := m.Update(StatusMsg{Window: 10})
	m = updated.(Model)
	updated, _ = m.Update(StatusMsg{Received: 50, Decoded: 48, BufferDepth: 5})
	m = updated.(Model)

	view := m.View()
	if !strings.Contains(view, "█████░░░░░") {
		t.Error("expected half-full buffer gauge in view")
	}
	if !strings.Contains(view, " 5/10") {
		t.Error("expected buffer depth fraction in view")
	}
}
