// Package audio implements waveform synthesis, voices and the output mix
package audio

import (
	"math"
	"time"

	"github.com/gopxl/beep/v2"

	"github.com/oisee/keysynth/pkg/note"
)

const (
	// Gain is the output amplitude of every waveform kind
	Gain = 0.15
	// FadeIn is the onset ramp applied to every voice
	FadeIn = 10 * time.Millisecond
	// Release is the ramp to silence after a voice is stopped
	Release = 5 * time.Millisecond
)

// Raw returns the unscaled waveform value (-1.0 to 1.0) at phase 0 <= p < 1
func Raw(kind note.Waveform, p float64) float64 {
	switch kind {
	case note.Saw:
		return saw(p)
	case note.Triangle:
		return 2*math.Abs(saw(p)) - 1
	case note.Square:
		s := math.Sin(2 * math.Pi * p)
		switch {
		case s > 0:
			return 1
		case s < 0:
			return -1
		}
		return 0
	default:
		return math.Sin(2 * math.Pi * p)
	}
}

// Sawtooth wave: /|/|/| centred on zero
func saw(p float64) float64 {
	return 2 * (p - math.Floor(p+0.5))
}

// Envelope returns the fade-in multiplier at elapsed time t
func Envelope(t time.Duration) float64 {
	if t <= 0 {
		return 0
	}
	if t >= FadeIn {
		return 1
	}
	return float64(t) / float64(FadeIn)
}

// Sample returns the instantaneous output of a voice at elapsed time t
func Sample(freq float64, kind note.Waveform, t time.Duration) float64 {
	ft := freq * t.Seconds()
	return Gain * Raw(kind, ft-math.Floor(ft)) * Envelope(t)
}

// Oscillator is a single-pass sample stream for one frequency and waveform.
// It is never reset; a retriggered note gets a new Oscillator.
type Oscillator struct {
	Kind       note.Waveform
	Frequency  float64
	SampleRate float64

	phase float64
	pos   int // samples produced so far
	fade  int // fade-in length in samples
}

// NewOscillator creates a new oscillator positioned at t = 0
func NewOscillator(freq float64, kind note.Waveform, sr beep.SampleRate) *Oscillator {
	return &Oscillator{
		Kind:       kind,
		Frequency:  freq,
		SampleRate: float64(sr),
		fade:       sr.N(FadeIn),
	}
}

// Next generates the next sample value
func (o *Oscillator) Next() float64 {
	v := Gain * Raw(o.Kind, o.phase)
	if o.pos < o.fade {
		v *= float64(o.pos) / float64(o.fade)
	}
	o.pos++

	o.phase += o.Frequency / o.SampleRate
	if o.phase >= 1.0 {
		o.phase -= math.Floor(o.phase)
	}
	return v
}

// Stream implements beep.Streamer. The stream is infinite.
func (o *Oscillator) Stream(samples [][2]float64) (n int, ok bool) {
	for i := range samples {
		v := o.Next()
		samples[i][0] = v
		samples[i][1] = v
	}
	return len(samples), true
}

// Err implements beep.Streamer
func (o *Oscillator) Err() error {
	return nil
}
