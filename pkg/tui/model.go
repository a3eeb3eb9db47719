// Package tui implements the terminal keyboard
package tui

import (
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/key"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/oisee/keysynth/pkg/logger"
	"github.com/oisee/keysynth/pkg/note"
	"github.com/oisee/keysynth/pkg/synth"
)

// Synth is the note manager the keyboard drives
type Synth interface {
	StartNote(p note.Pitch, w note.Waveform, sustain time.Duration) error
	StopNote(p note.Pitch)
	IsActive(p note.Pitch) bool
	Active() []synth.ActiveNote
	StopAll()
}

// Options configures the keyboard
type Options struct {
	Waveform     note.Waveform
	TapSustain   time.Duration // note length in tap mode
	RepeatWindow time.Duration // presses of the same key closer than this are auto-repeat
	Latch        bool          // a press toggles the note instead of tapping it
}

// Model is the main TUI model. Terminals report key presses but not
// releases, so a press either taps a note for TapSustain or, in latch mode,
// toggles a held note.
type Model struct {
	Synth   Synth
	Options Options

	// View state
	Width     int
	Height    int
	StatusMsg string

	keys      keyMap
	help      help.Model
	active    [note.NumPitches]bool
	kinds     [note.NumPitches]note.Waveform
	lastPress [note.NumPitches]time.Time
	now       func() time.Time
}

// NewModel creates a new TUI model
func NewModel(s Synth, opts Options) Model {
	return Model{
		Synth:   s,
		Options: opts,
		Width:   80,
		Height:  24,
		keys:    defaultKeyMap(),
		help:    help.New(),
		now:     time.Now,
	}
}

// Init implements tea.Model
func (m Model) Init() tea.Cmd {
	return tea.Batch(
		tea.EnterAltScreen,
		tickCmd(),
	)
}

// tickMsg refreshes the active key display
type tickMsg struct{}

func tickCmd() tea.Cmd {
	return tea.Tick(16*time.Millisecond, func(_ time.Time) tea.Msg {
		return tickMsg{}
	})
}

// Update implements tea.Model
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.Width = msg.Width
		m.Height = msg.Height
		m.help.Width = msg.Width
		return m, nil

	case tickMsg:
		m.refresh()
		return m, tickCmd()

	case tea.KeyMsg:
		return m.handleKey(msg)
	}

	return m, nil
}

func (m Model) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch {
	case key.Matches(msg, m.keys.Quit):
		m.Synth.StopAll()
		return m, tea.Quit

	case key.Matches(msg, m.keys.Help):
		m.help.ShowAll = !m.help.ShowAll

	case key.Matches(msg, m.keys.Wave):
		m.Options.Waveform = m.Options.Waveform.Next()
		m.StatusMsg = "Waveform: " + m.Options.Waveform.String()

	case key.Matches(msg, m.keys.Latch):
		m.Options.Latch = !m.Options.Latch
		m.Synth.StopAll()
		m.StatusMsg = "Mode: " + m.modeString()

	case key.Matches(msg, m.keys.Panic):
		m.Synth.StopAll()
		m.StatusMsg = "All notes off"

	default:
		if p, ok := keyToPitch(msg.String()); ok {
			m.press(p)
		}
	}

	m.refresh()
	return m, nil
}

// press handles one key press for p
func (m *Model) press(p note.Pitch) {
	now := m.now()
	last := m.lastPress[p]
	m.lastPress[p] = now
	if !last.IsZero() && now.Sub(last) < m.Options.RepeatWindow {
		return
	}

	if m.Options.Latch && m.Synth.IsActive(p) {
		m.Synth.StopNote(p)
		return
	}

	sustain := m.Options.TapSustain
	if m.Options.Latch {
		sustain = 0
	}
	if err := m.Synth.StartNote(p, m.Options.Waveform, sustain); err != nil {
		logger.Warning(logger.CategoryUI, "note %s: %v", p, err)
		m.StatusMsg = "Error: " + err.Error()
		return
	}
	m.StatusMsg = ""
}

// refresh copies the sounding voices into the view state
func (m *Model) refresh() {
	m.active = [note.NumPitches]bool{}
	for _, a := range m.Synth.Active() {
		m.active[a.Pitch] = true
		m.kinds[a.Pitch] = a.Waveform
	}
}

func (m Model) modeString() string {
	if m.Options.Latch {
		return "LATCH"
	}
	return fmt.Sprintf("TAP %v", m.Options.TapSustain)
}

var (
	titleStyle  = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("14"))
	labelStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("8"))
	whiteStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("0")).Background(lipgloss.Color("15"))
	blackStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("15")).Background(lipgloss.Color("236"))
	statusStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("11"))
	errorStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("9"))

	// active keys are lit in the colour of their waveform
	waveColors = [note.NumWaveforms]lipgloss.Color{"10", "13", "12", "9"}
)

// View implements tea.Model
func (m Model) View() string {
	var b strings.Builder

	b.WriteString(m.headerView())
	b.WriteString("\n\n")
	b.WriteString(m.keyboardView(note.C5))
	b.WriteString("\n")
	b.WriteString(m.keyboardView(note.C4))
	b.WriteString("\n\n")

	if m.StatusMsg != "" {
		style := statusStyle
		if strings.HasPrefix(m.StatusMsg, "Error") {
			style = errorStyle
		}
		b.WriteString(style.Render(m.StatusMsg))
	}
	b.WriteString("\n")
	b.WriteString(m.help.View(m.keys))

	return b.String()
}

func (m Model) headerView() string {
	n := 0
	for _, on := range m.active {
		if on {
			n++
		}
	}
	wave := lipgloss.NewStyle().
		Foreground(waveColors[m.Options.Waveform]).
		Render(m.Options.Waveform.String())

	info := fmt.Sprintf(" │ Wave:%s │ Mode:%s │ Voices:%02d", wave, m.modeString(), n)
	return titleStyle.Render("KEYSYNTH") + info
}

// keyboardView renders the octave starting at first
func (m Model) keyboardView(first note.Pitch) string {
	var names, labels []string
	for p := first; p < first+12; p++ {
		style := whiteStyle
		if p.Sharp() {
			style = blackStyle
		}
		if m.active[p] {
			style = style.Background(waveColors[m.kinds[p]]).Bold(true)
		}
		names = append(names, style.Render(fmt.Sprintf(" %-3s", p)))
		labels = append(labels, labelStyle.Render(fmt.Sprintf(" %-3s", strings.ToUpper(pitchKey(p)))))
	}
	return strings.Join(names, "") + "\n" + strings.Join(labels, "")
}
