// Package synth implements the note manager that keeps at most one sounding
// voice per pitch, plus scripted and offline playback on top of it.
package synth

import (
	"errors"
	"fmt"
	"io"
	"sync"
	"sync/atomic"
	"time"

	"github.com/gopxl/beep/v2"

	"github.com/oisee/keysynth/pkg/audio"
	"github.com/oisee/keysynth/pkg/logger"
	"github.com/oisee/keysynth/pkg/note"
)

var (
	ErrInvalidPitch    = errors.New("synth: invalid pitch")
	ErrInvalidWaveform = errors.New("synth: invalid waveform")
	ErrClosed          = errors.New("synth: manager closed")
)

// Sink hands out independent output channels on a shared mix
type Sink interface {
	Open(s beep.Streamer) (io.Closer, error)
}

// ActiveNote is a snapshot of one registered voice
type ActiveNote struct {
	Pitch    note.Pitch
	Waveform note.Waveform
	State    audio.VoiceState
}

// Option configures a Manager
type Option func(*Manager)

// WithClock replaces the wall clock used for sustain expiry
func WithClock(c Clock) Option {
	return func(m *Manager) {
		m.clock = c
	}
}

type slot struct {
	mu    sync.Mutex
	voice *audio.Voice
	kind  note.Waveform
	timer Timer
}

// Manager owns the registry of sounding voices, one slot per pitch. Calls
// for the same pitch are serialized; different pitches never contend.
type Manager struct {
	sink       Sink
	sampleRate beep.SampleRate
	clock      Clock
	closed     atomic.Bool

	slots [note.NumPitches]slot
}

// NewManager creates a manager that opens voice channels on sink
func NewManager(sink Sink, sampleRate beep.SampleRate, opts ...Option) *Manager {
	m := &Manager{
		sink:       sink,
		sampleRate: sampleRate,
		clock:      wallClock{},
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// SampleRate returns the rate voices are rendered at
func (m *Manager) SampleRate() beep.SampleRate {
	return m.sampleRate
}

// StartNote starts a voice for p, replacing any voice already sounding at
// that pitch. A positive sustain stops the voice after that long; zero or
// negative holds it until StopNote. If the sink has no free channel the
// error is returned and the registry is left as it was.
func (m *Manager) StartNote(p note.Pitch, w note.Waveform, sustain time.Duration) error {
	if !p.Valid() {
		return fmt.Errorf("%w: %d", ErrInvalidPitch, uint8(p))
	}
	if !w.Valid() {
		return fmt.Errorf("%w: %d", ErrInvalidWaveform, uint8(w))
	}
	if m.closed.Load() {
		return ErrClosed
	}
	if sustain < 0 {
		sustain = 0
	}

	v := audio.NewVoice(p.Frequency(), w, sustain, m.sampleRate)
	ch, err := m.sink.Open(v)
	if err != nil {
		logger.Warning(logger.CategorySynth, "note on %s: %v", p, err)
		return fmt.Errorf("start %s: %w", p, err)
	}
	v.Bind(ch)

	s := &m.slots[p]
	s.mu.Lock()
	defer s.mu.Unlock()

	// Close may have swept this slot while the sink was opening
	if m.closed.Load() {
		v.Stop()
		return ErrClosed
	}

	// the new voice is already on the mix and fading in from silence, so
	// the old one is stopped only after the swap
	old := s.voice
	if s.timer != nil {
		s.timer.Stop()
		s.timer = nil
	}
	s.voice = v
	s.kind = w
	if sustain > 0 {
		s.timer = m.clock.AfterFunc(sustain, func() { m.expire(p, v) })
	}
	if old != nil {
		old.Stop()
		logger.Debug(logger.CategorySynth, "note on %s %s (replaced)", p, w)
	} else {
		logger.Debug(logger.CategorySynth, "note on %s %s", p, w)
	}
	return nil
}

// StopNote stops the voice sounding at p. Stopping a silent pitch is a no-op.
func (m *Manager) StopNote(p note.Pitch) {
	if !p.Valid() {
		return
	}
	s := &m.slots[p]
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.voice == nil {
		return
	}
	s.clear()
	logger.Debug(logger.CategorySynth, "note off %s", p)
}

// IsActive reports whether a voice is sounding at p
func (m *Manager) IsActive(p note.Pitch) bool {
	_, ok := m.Waveform(p)
	return ok
}

// Waveform returns the waveform of the voice sounding at p
func (m *Manager) Waveform(p note.Pitch) (note.Waveform, bool) {
	if !p.Valid() {
		return 0, false
	}
	s := &m.slots[p]
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.live() {
		return 0, false
	}
	return s.kind, true
}

// Active returns every sounding voice in pitch order
func (m *Manager) Active() []ActiveNote {
	var notes []ActiveNote
	for _, p := range note.Pitches() {
		s := &m.slots[p]
		s.mu.Lock()
		if s.live() {
			notes = append(notes, ActiveNote{Pitch: p, Waveform: s.kind, State: s.voice.State()})
		}
		s.mu.Unlock()
	}
	return notes
}

// StopAll stops every sounding voice
func (m *Manager) StopAll() {
	n := 0
	for i := range m.slots {
		s := &m.slots[i]
		s.mu.Lock()
		if s.voice != nil {
			s.clear()
			n++
		}
		s.mu.Unlock()
	}
	if n > 0 {
		logger.Debug(logger.CategorySynth, "stopped %d voice(s)", n)
	}
}

// Close stops every voice; later StartNote calls fail with ErrClosed
func (m *Manager) Close() error {
	m.closed.Store(true)
	m.StopAll()
	return nil
}

// expire is the sustain timer callback. The slot may have been reused
// since the timer was armed, so only the voice it was armed for is cleared.
func (m *Manager) expire(p note.Pitch, v *audio.Voice) {
	s := &m.slots[p]
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.voice != v {
		return
	}
	s.timer = nil
	s.clear()
	logger.Debug(logger.CategorySynth, "note %s expired", p)
}

// live reports whether the slot holds a voice that is still sounding. A
// voice that drained on the audio side is released here. Caller holds mu.
func (s *slot) live() bool {
	if s.voice == nil {
		return false
	}
	if s.voice.State() == audio.Stopped {
		s.clear()
		return false
	}
	return true
}

// clear stops the registered voice and empties the slot. Caller holds mu.
func (s *slot) clear() {
	if s.timer != nil {
		s.timer.Stop()
		s.timer = nil
	}
	s.voice.Stop()
	s.voice = nil
}
