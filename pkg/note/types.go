// Package note implements the closed pitch and waveform domains
package note

import (
	"fmt"
	"strings"
)

// Pitch identifies one of the 24 chromatic keys from C4 to B5
type Pitch uint8

const (
	C4 Pitch = iota
	CSharp4
	D4
	DSharp4
	E4
	F4
	FSharp4
	G4
	GSharp4
	A4
	BFlat4
	B4
	C5
	CSharp5
	D5
	DSharp5
	E5
	F5
	FSharp5
	G5
	GSharp5
	A5
	BFlat5
	B5

	NumPitches = int(B5) + 1
)

// Fundamentals in Hz, indexed by pitch ordinal
var frequencies = [NumPitches]float64{
	261.63, 277.18, 293.66, 311.13, 329.63, 349.23, // C4 - F4
	369.99, 392.00, 415.30, 440.00, 466.16, 493.88, // F#4 - B4
	523.25, 554.37, 587.33, 622.25, 659.25, 698.46, // C5 - F5
	739.99, 783.99, 830.61, 880.00, 932.33, 987.77, // F#5 - B5
}

var pitchNames = [NumPitches]string{
	"C4", "C#4", "D4", "D#4", "E4", "F4", "F#4", "G4", "G#4", "A4", "Bb4", "B4",
	"C5", "C#5", "D5", "D#5", "E5", "F5", "F#5", "G5", "G#5", "A5", "Bb5", "B5",
}

// Pitches returns every pitch in ascending order
func Pitches() []Pitch {
	ps := make([]Pitch, NumPitches)
	for i := range ps {
		ps[i] = Pitch(i)
	}
	return ps
}

// Valid reports whether p is one of the enumerated pitches
func (p Pitch) Valid() bool {
	return int(p) < NumPitches
}

// Frequency returns the fundamental frequency in Hz (0 for an invalid pitch)
func (p Pitch) Frequency() float64 {
	if !p.Valid() {
		return 0
	}
	return frequencies[p]
}

// String returns the display name, e.g. "C#4"
func (p Pitch) String() string {
	if !p.Valid() {
		return fmt.Sprintf("Pitch(%d)", uint8(p))
	}
	return pitchNames[p]
}

// Sharp reports whether p is a black key
func (p Pitch) Sharp() bool {
	switch p % 12 {
	case CSharp4, DSharp4, FSharp4, GSharp4, BFlat4:
		return true
	}
	return false
}

// MarshalText implements encoding.TextMarshaler
func (p Pitch) MarshalText() ([]byte, error) {
	if !p.Valid() {
		return nil, fmt.Errorf("invalid pitch %d", uint8(p))
	}
	return []byte(p.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler
func (p *Pitch) UnmarshalText(text []byte) error {
	v, err := ParsePitch(string(text))
	if err != nil {
		return err
	}
	*p = v
	return nil
}

// semitone offsets from C for note letters
var letters = map[byte]int{'C': 0, 'D': 2, 'E': 4, 'F': 5, 'G': 7, 'A': 9, 'B': 11}

// ParsePitch converts a note name like "C4", "c#5", "Bb4" or "A#4" to a pitch
func ParsePitch(s string) (Pitch, error) {
	name := strings.TrimSpace(s)
	if len(name) < 2 || len(name) > 3 {
		return 0, fmt.Errorf("invalid pitch %q", s)
	}

	semi, ok := letters[strings.ToUpper(name[:1])[0]]
	if !ok {
		return 0, fmt.Errorf("invalid pitch %q", s)
	}
	if len(name) == 3 {
		switch name[1] {
		case '#':
			semi++
		case 'b':
			semi--
		default:
			return 0, fmt.Errorf("invalid pitch %q", s)
		}
	}

	octave := int(name[len(name)-1]) - '0'
	ord := (octave-4)*12 + semi
	if octave < 4 || octave > 5 || ord < 0 || ord >= NumPitches {
		return 0, fmt.Errorf("pitch %q out of range C4-B5", s)
	}
	return Pitch(ord), nil
}

// Waveform selects the periodic shape of a voice
type Waveform uint8

const (
	Sine Waveform = iota // default
	Saw
	Triangle
	Square

	NumWaveforms = int(Square) + 1
)

var waveformNames = [NumWaveforms]string{"Sine", "Saw", "Triangle", "Square"}

// Valid reports whether w is one of the enumerated waveforms
func (w Waveform) Valid() bool {
	return int(w) < NumWaveforms
}

// Next returns the waveform that follows w in the UI cycle
func (w Waveform) Next() Waveform {
	return Waveform((int(w) + 1) % NumWaveforms)
}

// String returns the display name of the waveform
func (w Waveform) String() string {
	if !w.Valid() {
		return fmt.Sprintf("Waveform(%d)", uint8(w))
	}
	return waveformNames[w]
}

// MarshalText implements encoding.TextMarshaler
func (w Waveform) MarshalText() ([]byte, error) {
	if !w.Valid() {
		return nil, fmt.Errorf("invalid waveform %d", uint8(w))
	}
	return []byte(strings.ToLower(w.String())), nil
}

// UnmarshalText implements encoding.TextUnmarshaler
func (w *Waveform) UnmarshalText(text []byte) error {
	v, err := ParseWaveform(string(text))
	if err != nil {
		return err
	}
	*w = v
	return nil
}

// ParseWaveform converts a waveform name to a Waveform, ignoring case
func ParseWaveform(s string) (Waveform, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "sine", "sin":
		return Sine, nil
	case "saw", "sawtooth":
		return Saw, nil
	case "triangle", "tri":
		return Triangle, nil
	case "square", "squ":
		return Square, nil
	}
	return 0, fmt.Errorf("unknown waveform %q", s)
}
