package audio

import (
	"errors"
	"io"
	"math"
	"sync"

	"github.com/gopxl/beep/v2"
	"github.com/gopxl/beep/v2/effects"
)

// ErrNoChannel is returned by Open when every channel of the bus is in use
var ErrNoChannel = errors.New("audio: no free output channel")

// Bus sums any number of independent channels into one stereo stream. It is
// the shared resource every voice writes through; the device pulls from it.
type Bus struct {
	MaxChannels int
	// Release is how many samples a closed channel keeps playing so its
	// stream can ramp down. 0 detaches it at once.
	Release int

	mu     sync.Mutex
	mixer  beep.Mixer
	volume effects.Volume
	open   int
}

// NewBus creates a bus that allows up to maxChannels open channels (0 for
// no limit)
func NewBus(maxChannels int) *Bus {
	b := &Bus{MaxChannels: maxChannels}
	b.volume = effects.Volume{Streamer: &b.mixer, Base: 2}
	return b
}

// Channel is one subscription to the bus. Closing it detaches its stream
// from the mix; samples already handed to the device still drain.
type Channel struct {
	bus    *Bus
	ctrl   *beep.Ctrl
	closed bool
}

// Open attaches s to the mix and returns the handle that owns it
func (b *Bus) Open(s beep.Streamer) (io.Closer, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.MaxChannels > 0 && b.open >= b.MaxChannels {
		return nil, ErrNoChannel
	}
	ch := &Channel{bus: b, ctrl: &beep.Ctrl{Streamer: s}}
	b.mixer.Add(ch.ctrl)
	b.open++
	return ch, nil
}

// Close frees the channel and detaches its stream after the bus release
// time. It is safe to call more than once.
func (c *Channel) Close() error {
	c.bus.mu.Lock()
	defer c.bus.mu.Unlock()

	if c.closed {
		return nil
	}
	c.closed = true
	if c.bus.Release > 0 && c.ctrl.Streamer != nil {
		c.ctrl.Streamer = beep.Take(c.bus.Release, c.ctrl.Streamer)
	} else {
		c.ctrl.Streamer = nil
	}
	c.bus.open--
	return nil
}

// Channels returns the number of open channels
func (b *Bus) Channels() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.open
}

// streaming returns the number of streams still attached to the mixer,
// including closed channels the mixer has not swept yet.
func (b *Bus) streaming() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.mixer.Len()
}

// SetVolume sets the master level in doublings (0 = unity, -1 = half)
func (b *Bus) SetVolume(v float64) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.volume.Volume = v
	b.volume.Silent = math.IsInf(v, -1)
}

// Stream implements beep.Streamer. The bus never drains; with nothing
// attached it produces silence.
func (b *Bus) Stream(samples [][2]float64) (n int, ok bool) {
	b.mu.Lock()
	defer b.mu.Unlock()

	for i := range samples {
		samples[i] = [2]float64{}
	}
	b.volume.Stream(samples)

	for i := range samples {
		samples[i][0] = softLimit(samples[i][0])
		samples[i][1] = softLimit(samples[i][1])
	}
	return len(samples), true
}

// Err implements beep.Streamer
func (b *Bus) Err() error {
	return nil
}

// softLimit is a tanh-style limiter that avoids hard clipping above 0.9
func softLimit(sample float64) float64 {
	if sample > 0.9 {
		return 0.9 + 0.1*math.Tanh((sample-0.9)*10)
	} else if sample < -0.9 {
		return -0.9 + 0.1*math.Tanh((sample+0.9)*10)
	}
	return sample
}
