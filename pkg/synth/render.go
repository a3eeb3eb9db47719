package synth

import (
	"fmt"
	"io"
	"time"

	"github.com/gopxl/beep/v2"

	"github.com/oisee/keysynth/pkg/audio"
	"github.com/oisee/keysynth/pkg/logger"
)

// blockSize bounds how many samples are mixed between two clock updates
const blockSize = 16

// Renderer renders performances offline. Time is measured in samples, so
// the output does not depend on how fast the machine is.
type Renderer struct {
	SampleRate beep.SampleRate
	Channels   int
	MaxVoices  int           // 0 = no limit
	Volume     float64       // master level in doublings
	Tail       time.Duration // silence kept after the last event
}

// Render writes p to w as a WAV file
func (r Renderer) Render(w io.WriteSeeker, p *Performance) error {
	if r.SampleRate <= 0 {
		return fmt.Errorf("render: invalid sample rate %d", r.SampleRate)
	}
	bus := audio.NewBus(r.MaxVoices)
	bus.Release = r.SampleRate.N(audio.Release)
	bus.SetVolume(r.Volume)
	clock := NewSampleClock()
	m := NewManager(bus, r.SampleRate, WithClock(clock))
	defer m.Close()

	length := p.Duration() + r.Tail
	logger.Info(logger.CategorySynth, "rendering %q: %v at %d Hz", p.Name, length, int(r.SampleRate))

	s := newSequencer(m, bus, clock, p)
	if err := audio.ExportWAV(w, s, r.SampleRate, r.Channels, length); err != nil {
		return fmt.Errorf("render %q: %w", p.Name, err)
	}
	return nil
}

// sequencer is a beep.Streamer that fires performance events on the exact
// sample they are due and keeps the sample clock in step with the output.
type sequencer struct {
	m      *Manager
	bus    *audio.Bus
	clock  *SampleClock
	events []Event
	next   int
	pos    int
}

func newSequencer(m *Manager, bus *audio.Bus, clock *SampleClock, p *Performance) *sequencer {
	events := append([]Event(nil), p.Events...)
	sorted := &Performance{Events: events}
	sorted.sort()
	return &sequencer{m: m, bus: bus, clock: clock, events: sorted.Events}
}

func (s *sequencer) Stream(samples [][2]float64) (n int, ok bool) {
	sr := s.m.SampleRate()
	for n < len(samples) {
		for s.next < len(s.events) && sr.N(s.events[s.next].At) <= s.pos {
			apply(s.m, s.events[s.next])
			s.next++
		}

		k := min(blockSize, len(samples)-n)
		if s.next < len(s.events) {
			if due := sr.N(s.events[s.next].At) - s.pos; due < k {
				k = due
			}
		}

		s.bus.Stream(samples[n : n+k])
		s.pos += k
		n += k

		// timers fire outside the bus lock; expiry closes channels on it
		s.clock.Advance(sr.D(s.pos) - s.clock.Now())
	}
	return n, true
}

func (s *sequencer) Err() error {
	return nil
}
