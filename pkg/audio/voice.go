package audio

import (
	"io"
	"sync"
	"sync/atomic"
	"time"

	"github.com/gopxl/beep/v2"

	"github.com/oisee/keysynth/pkg/note"
)

// VoiceState is the lifecycle phase of a Voice
type VoiceState int32

const (
	Starting   VoiceState = iota // fade-in active
	Sustaining                   // steady amplitude
	Stopped                      // terminal
)

func (s VoiceState) String() string {
	switch s {
	case Starting:
		return "starting"
	case Sustaining:
		return "sustaining"
	}
	return "stopped"
}

// Voice is one sounding note: an oscillator, an optional sustain bound and
// the output channel it plays through. Stream runs on the audio side; Stop
// and State may be called from any goroutine.
type Voice struct {
	Kind      note.Waveform
	Frequency float64
	Sustain   time.Duration // 0 = until stopped

	osc     *Oscillator
	src     beep.Streamer
	fade    int64
	length  int // samples of a bounded sustain, 0 = unbounded
	release int
	tail    int // release samples rendered, audio side only
	played  atomic.Int64
	halted  atomic.Bool // Stop was called
	done    atomic.Bool // no more samples

	mu      sync.Mutex
	out     io.Closer
	stopped bool
	once    sync.Once
}

// NewVoice creates a voice in the Starting state. A positive sustain bounds
// the voice; it stops by itself once that much audio has been rendered.
func NewVoice(freq float64, kind note.Waveform, sustain time.Duration, sr beep.SampleRate) *Voice {
	osc := NewOscillator(freq, kind, sr)
	v := &Voice{
		Kind:      kind,
		Frequency: freq,
		osc:       osc,
		src:       osc,
		fade:      int64(osc.fade),
		release:   sr.N(Release),
	}
	if sustain > 0 {
		v.Sustain = sustain
		v.length = sr.N(sustain)
		v.src = beep.Take(v.length, osc)
	}
	return v
}

// State returns the current lifecycle phase
func (v *Voice) State() VoiceState {
	if v.halted.Load() || v.done.Load() {
		return Stopped
	}
	if v.played.Load() < v.fade {
		return Starting
	}
	return Sustaining
}

// Bind attaches the output channel the voice plays through. If the voice
// was stopped in the meantime the channel is closed right away.
func (v *Voice) Bind(out io.Closer) {
	v.mu.Lock()
	if !v.stopped {
		v.out = out
		v.mu.Unlock()
		return
	}
	v.mu.Unlock()
	out.Close()
}

// Stop moves the voice to Stopped and releases its output channel. The
// audio side ramps the remaining output to silence over Release. It is safe
// to call more than once and from any state.
func (v *Voice) Stop() {
	v.halted.Store(true)
	v.once.Do(func() {
		v.mu.Lock()
		v.stopped = true
		out := v.out
		v.out = nil
		v.mu.Unlock()
		if out != nil {
			out.Close()
		}
	})
}

// Stream implements beep.Streamer. The output ramps to silence over Release
// after Stop, and over the last Release of a bounded sustain. Once silent the
// voice reports that it is drained so the mixer drops it.
func (v *Voice) Stream(samples [][2]float64) (n int, ok bool) {
	if v.done.Load() {
		return 0, false
	}
	start := int(v.played.Load())
	n, ok = v.src.Stream(samples)
	v.played.Add(int64(n))

	halted := v.halted.Load()
	for i := 0; i < n; i++ {
		g := 1.0
		if v.length > 0 {
			if left := v.length - start - i; left < v.release {
				g = float64(left) / float64(v.release)
			}
		}
		if halted {
			if v.tail >= v.release {
				v.done.Store(true)
				silence(samples[i:])
				return i, i > 0
			}
			g = min(g, 1-float64(v.tail)/float64(v.release))
			v.tail++
		}
		samples[i][0] *= g
		samples[i][1] *= g
	}

	if !ok || n < len(samples) {
		// bounded sustain ran out
		v.done.Store(true)
		silence(samples[n:])
	}
	return n, ok
}

func silence(samples [][2]float64) {
	for i := range samples {
		samples[i] = [2]float64{}
	}
}

// Err implements beep.Streamer
func (v *Voice) Err() error {
	return v.src.Err()
}
