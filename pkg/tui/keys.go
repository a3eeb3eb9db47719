package tui

import (
	"github.com/charmbracelet/bubbles/key"

	"github.com/oisee/keysynth/pkg/note"
)

// pianoKeys maps the two keyboard rows onto C4..B5:
// lower row Z S X D C V G B H N J M, upper row Q 2 W 3 E R 5 T 6 Y 7 U
var pianoKeys = map[string]note.Pitch{
	"z": note.C4, "s": note.CSharp4, "x": note.D4, "d": note.DSharp4,
	"c": note.E4, "v": note.F4, "g": note.FSharp4, "b": note.G4,
	"h": note.GSharp4, "n": note.A4, "j": note.BFlat4, "m": note.B4,

	"q": note.C5, "2": note.CSharp5, "w": note.D5, "3": note.DSharp5,
	"e": note.E5, "r": note.F5, "5": note.FSharp5, "t": note.G5,
	"6": note.GSharp5, "y": note.A5, "7": note.BFlat5, "u": note.B5,
}

// keyToPitch converts a key to the pitch it plays
func keyToPitch(k string) (note.Pitch, bool) {
	p, ok := pianoKeys[k]
	return p, ok
}

// pitchKey returns the key label for a pitch
func pitchKey(p note.Pitch) string {
	for k, q := range pianoKeys {
		if q == p {
			return k
		}
	}
	return ""
}

type keyMap struct {
	Play  key.Binding
	Wave  key.Binding
	Latch key.Binding
	Panic key.Binding
	Help  key.Binding
	Quit  key.Binding
}

func defaultKeyMap() keyMap {
	return keyMap{
		Play: key.NewBinding(
			key.WithKeys("z", "q"),
			key.WithHelp("z…m q…u", "play"),
		),
		Wave: key.NewBinding(
			key.WithKeys("tab"),
			key.WithHelp("tab", "waveform"),
		),
		Latch: key.NewBinding(
			key.WithKeys("`", "f2"),
			key.WithHelp("`", "tap/latch"),
		),
		Panic: key.NewBinding(
			key.WithKeys(" "),
			key.WithHelp("space", "all off"),
		),
		Help: key.NewBinding(
			key.WithKeys("?", "f1"),
			key.WithHelp("?", "help"),
		),
		Quit: key.NewBinding(
			key.WithKeys("esc", "ctrl+c"),
			key.WithHelp("esc", "quit"),
		),
	}
}

// ShortHelp implements help.KeyMap
func (k keyMap) ShortHelp() []key.Binding {
	return []key.Binding{k.Play, k.Wave, k.Latch, k.Panic, k.Help, k.Quit}
}

// FullHelp implements help.KeyMap
func (k keyMap) FullHelp() [][]key.Binding {
	return [][]key.Binding{
		{k.Play, k.Wave, k.Latch},
		{k.Panic, k.Help, k.Quit},
	}
}
