package synth

import (
	"sort"
	"sync"
	"time"
)

// Timer is a pending callback that can be cancelled
type Timer interface {
	Stop() bool
}

// Clock schedules sustain expiry. The wall clock is used for live playback;
// offline rendering drives a SampleClock from the rendered sample count.
type Clock interface {
	AfterFunc(d time.Duration, f func()) Timer
}

type wallClock struct{}

func (wallClock) AfterFunc(d time.Duration, f func()) Timer {
	return time.AfterFunc(d, f)
}

// SampleClock is a manually advanced Clock. Callbacks run synchronously
// inside Advance, in deadline order.
type SampleClock struct {
	mu      sync.Mutex
	now     time.Duration
	seq     int
	pending []*sampleTimer
}

type sampleTimer struct {
	clock    *SampleClock
	deadline time.Duration
	seq      int
	f        func()
	stopped  bool
}

// NewSampleClock returns a clock positioned at zero
func NewSampleClock() *SampleClock {
	return &SampleClock{}
}

// Now returns the current clock position
func (c *SampleClock) Now() time.Duration {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

// AfterFunc implements Clock
func (c *SampleClock) AfterFunc(d time.Duration, f func()) Timer {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.seq++
	t := &sampleTimer{clock: c, deadline: c.now + d, seq: c.seq, f: f}
	c.pending = append(c.pending, t)
	return t
}

// Pending returns the number of armed timers
func (c *SampleClock) Pending() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.pending)
}

// Advance moves the clock forward by d and fires every timer that is due
func (c *SampleClock) Advance(d time.Duration) {
	c.mu.Lock()
	c.now += d
	now := c.now

	var due, keep []*sampleTimer
	for _, t := range c.pending {
		if t.deadline <= now {
			due = append(due, t)
		} else {
			keep = append(keep, t)
		}
	}
	c.pending = keep
	c.mu.Unlock()

	sort.Slice(due, func(i, j int) bool {
		if due[i].deadline != due[j].deadline {
			return due[i].deadline < due[j].deadline
		}
		return due[i].seq < due[j].seq
	})
	for _, t := range due {
		t.f()
	}
}

// Stop implements Timer
func (t *sampleTimer) Stop() bool {
	c := t.clock
	c.mu.Lock()
	defer c.mu.Unlock()
	for i, p := range c.pending {
		if p == t {
			c.pending = append(c.pending[:i], c.pending[i+1:]...)
			t.stopped = true
			return true
		}
	}
	return false
}
