package synth

import (
	"context"
	"errors"
	"fmt"
	"io"
	"sort"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/oisee/keysynth/pkg/logger"
	"github.com/oisee/keysynth/pkg/note"
)

// Event is one scripted NoteOn or NoteOff
type Event struct {
	At       time.Duration `yaml:"at"`
	Pitch    note.Pitch    `yaml:"pitch"`
	Waveform note.Waveform `yaml:"waveform,omitempty"`
	Sustain  time.Duration `yaml:"sustain,omitempty"` // 0 = hold until an off event
	Off      bool          `yaml:"off,omitempty"`
}

// UnmarshalYAML implements yaml.Unmarshaler. The pitch is required since
// its zero value is itself a valid pitch.
func (e *Event) UnmarshalYAML(n *yaml.Node) error {
	var raw struct {
		At       time.Duration `yaml:"at"`
		Pitch    *note.Pitch   `yaml:"pitch"`
		Waveform note.Waveform `yaml:"waveform"`
		Sustain  time.Duration `yaml:"sustain"`
		Off      bool          `yaml:"off"`
	}
	if err := n.Decode(&raw); err != nil {
		return err
	}
	if raw.Pitch == nil {
		return fmt.Errorf("line %d: event without a pitch", n.Line)
	}
	*e = Event{
		At:       raw.At,
		Pitch:    *raw.Pitch,
		Waveform: raw.Waveform,
		Sustain:  raw.Sustain,
		Off:      raw.Off,
	}
	return nil
}

// Performance is a timed list of note events
type Performance struct {
	Name   string  `yaml:"name"`
	Events []Event `yaml:"events"`
}

// LoadPerformance reads a YAML performance script. Events are returned
// sorted by time; events at the same time keep their script order.
//
//	name: arpeggio
//	events:
//	  - {at: 0s, pitch: C4, waveform: saw, sustain: 250ms}
//	  - {at: 250ms, pitch: E4}
//	  - {at: 1s, pitch: E4, off: true}
func LoadPerformance(r io.Reader) (*Performance, error) {
	var p Performance
	if err := yaml.NewDecoder(r).Decode(&p); err != nil {
		if errors.Is(err, io.EOF) {
			return nil, errors.New("performance: empty script")
		}
		return nil, fmt.Errorf("performance: %w", err)
	}
	for i, e := range p.Events {
		if e.At < 0 {
			return nil, fmt.Errorf("performance: event %d: negative time %v", i, e.At)
		}
		if e.Sustain < 0 {
			return nil, fmt.Errorf("performance: event %d: negative sustain %v", i, e.Sustain)
		}
	}
	p.sort()
	return &p, nil
}

// ScaleRun plays every pitch once from C4 up to B5, one step apart
func ScaleRun(step time.Duration, w note.Waveform) *Performance {
	p := &Performance{Name: "scale run"}
	for i, pitch := range note.Pitches() {
		p.Events = append(p.Events, Event{
			At:       time.Duration(i) * step,
			Pitch:    pitch,
			Waveform: w,
			Sustain:  step,
		})
	}
	return p
}

// Duration returns the time at which the last event has finished sounding.
// Notes held without an off event count only up to their start.
func (p *Performance) Duration() time.Duration {
	var end time.Duration
	for _, e := range p.Events {
		t := e.At
		if !e.Off {
			t += e.Sustain
		}
		if t > end {
			end = t
		}
	}
	return end
}

func (p *Performance) sort() {
	sort.SliceStable(p.Events, func(i, j int) bool {
		return p.Events[i].At < p.Events[j].At
	})
}

// apply sends one event to the manager. Failures are logged and skipped so
// one missing channel does not abort the performance.
func apply(m *Manager, e Event) {
	if e.Off {
		m.StopNote(e.Pitch)
		return
	}
	if err := m.StartNote(e.Pitch, e.Waveform, e.Sustain); err != nil {
		logger.Warning(logger.CategorySynth, "event at %v: %v", e.At, err)
	}
}

// Play performs p on m in real time. It returns once the performance has
// finished sounding or ctx is done.
func Play(ctx context.Context, m *Manager, p *Performance) error {
	events := append([]Event(nil), p.Events...)
	sort.SliceStable(events, func(i, j int) bool { return events[i].At < events[j].At })

	logger.Info(logger.CategorySynth, "playing %q: %d events, %v", p.Name, len(events), p.Duration())

	start := time.Now()
	timer := time.NewTimer(0)
	defer timer.Stop()
	<-timer.C

	wait := func(at time.Duration) error {
		d := at - time.Since(start)
		if d <= 0 {
			return ctx.Err()
		}
		timer.Reset(d)
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-timer.C:
			return nil
		}
	}

	for _, e := range events {
		if err := wait(e.At); err != nil {
			return err
		}
		apply(m, e)
	}
	return wait(p.Duration())
}
