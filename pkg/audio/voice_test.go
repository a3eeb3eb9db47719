package audio

import (
	"math"
	"sync"
	"testing"
	"time"

	"github.com/oisee/keysynth/pkg/note"
)

type countingCloser struct {
	mu     sync.Mutex
	closes int
}

func (c *countingCloser) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.closes++
	return nil
}

func (c *countingCloser) count() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.closes
}

func TestVoiceLifecycle(t *testing.T) {
	const sr = 1000 // 10 samples of fade-in
	v := NewVoice(note.A4.Frequency(), note.Saw, 0, sr)
	if want, got := Starting, v.State(); want != got {
		t.Fatalf("want %v, got %v", want, got)
	}

	buf := make([][2]float64, 4)
	v.Stream(buf)
	if want, got := Starting, v.State(); want != got {
		t.Errorf("inside fade-in: want %v, got %v", want, got)
	}

	buf = make([][2]float64, 16)
	if n, ok := v.Stream(buf); n != 16 || !ok {
		t.Fatalf("unbounded voice drained: n=%d ok=%v", n, ok)
	}
	if want, got := Sustaining, v.State(); want != got {
		t.Errorf("after fade-in: want %v, got %v", want, got)
	}

	v.Stop()
	if want, got := Stopped, v.State(); want != got {
		t.Errorf("after stop: want %v, got %v", want, got)
	}
	// 5 samples of release at 1 kHz, then drained
	if n, ok := v.Stream(buf); n != 5 || !ok {
		t.Errorf("want the release tail, got n=%d ok=%v", n, ok)
	}
	if n, ok := v.Stream(buf); n != 0 || ok {
		t.Errorf("stopped voice still streams: n=%d ok=%v", n, ok)
	}
}

func TestVoiceStopDuringFadeIn(t *testing.T) {
	v := NewVoice(note.C4.Frequency(), note.Sine, 0, 44100)
	out := &countingCloser{}
	v.Bind(out)

	v.Stream(make([][2]float64, 8))
	v.Stop()
	v.Stop()

	if want, got := Stopped, v.State(); want != got {
		t.Errorf("want %v, got %v", want, got)
	}
	if want, got := 1, out.count(); want != got {
		t.Errorf("channel closed %d times, want %d", got, want)
	}
}

func TestVoiceBindAfterStop(t *testing.T) {
	v := NewVoice(note.C4.Frequency(), note.Sine, 0, 44100)
	v.Stop()

	out := &countingCloser{}
	v.Bind(out)
	if want, got := 1, out.count(); want != got {
		t.Errorf("late channel should be closed on bind: got %d closes", got)
	}
}

func TestBoundedVoiceExpires(t *testing.T) {
	const sr = 1000
	v := NewVoice(note.E4.Frequency(), note.Triangle, 100*time.Millisecond, sr)
	out := &countingCloser{}
	v.Bind(out)

	buf := make([][2]float64, 64)
	if n, ok := v.Stream(buf); n != 64 || !ok {
		t.Fatalf("want a full buffer, got n=%d ok=%v", n, ok)
	}
	n, _ := v.Stream(buf)
	if want, got := 36, n; want != got {
		t.Errorf("want %d remaining samples, got %d", want, got)
	}
	for i := n; i < len(buf); i++ {
		if buf[i] != [2]float64{} {
			t.Fatalf("sample %d after expiry is not silent: %v", i, buf[i])
		}
	}
	if want, got := Stopped, v.State(); want != got {
		t.Errorf("want %v, got %v", want, got)
	}
	if want, got := int64(100), v.played.Load(); want != got {
		t.Errorf("want %d samples played, got %d", want, got)
	}

	// natural expiry leaves channel teardown to the owner's Stop
	if want, got := 0, out.count(); want != got {
		t.Errorf("want %d closes before Stop, got %d", want, got)
	}
	v.Stop()
	if want, got := 1, out.count(); want != got {
		t.Errorf("want %d closes after Stop, got %d", want, got)
	}
}

func TestVoiceConcurrentStop(t *testing.T) {
	v := NewVoice(note.G4.Frequency(), note.Square, 0, 44100)
	out := &countingCloser{}
	v.Bind(out)

	var wg sync.WaitGroup
	wg.Add(2)
	go func() {
		defer wg.Done()
		buf := make([][2]float64, 256)
		for i := 0; i < 100; i++ {
			v.Stream(buf)
		}
	}()
	go func() {
		defer wg.Done()
		for i := 0; i < 10; i++ {
			v.Stop()
		}
	}()
	wg.Wait()

	if want, got := 1, out.count(); want != got {
		t.Errorf("want %d closes, got %d", want, got)
	}
}

func TestStopRampsToSilence(t *testing.T) {
	const sr = 44100
	v := NewVoice(note.A4.Frequency(), note.Square, 0, sr)
	v.Stream(make([][2]float64, 1024))

	v.Stop()
	buf := make([][2]float64, 512)
	n, _ := v.Stream(buf)
	release := sr * int(Release) / int(time.Second)
	if want, got := release, n; want != got {
		t.Fatalf("want %d release samples, got %d", want, got)
	}
	if got := math.Abs(buf[0][0]); math.Abs(got-Gain) > 1e-12 {
		t.Errorf("release must start from the held level, got %v", got)
	}
	for i := 0; i < n; i++ {
		limit := Gain*(1-float64(i)/float64(release)) + 1e-12
		if got := math.Abs(buf[i][0]); got > limit {
			t.Fatalf("sample %d: %v above the release ramp %v", i, got, limit)
		}
	}
	if got := math.Abs(buf[n-1][0]); got > 2*Gain/float64(release) {
		t.Errorf("last release sample not near silence: %v", got)
	}
	for i := n; i < len(buf); i++ {
		if buf[i] != [2]float64{} {
			t.Fatalf("sample %d after release is not silent: %v", i, buf[i])
		}
	}
}

func TestBoundedVoiceRampsOut(t *testing.T) {
	const sr = 1000
	v := NewVoice(note.A4.Frequency(), note.Square, 50*time.Millisecond, sr)
	buf := make([][2]float64, 64)
	n, _ := v.Stream(buf)
	if want, got := 50, n; want != got {
		t.Fatalf("want %d samples, got %d", want, got)
	}
	// the last 5 samples scale down by 5/5 .. 1/5
	for i := 45; i < 50; i++ {
		limit := Gain*float64(50-i)/5 + 1e-12
		if got := math.Abs(buf[i][0]); got > limit {
			t.Errorf("sample %d: %v above the end ramp %v", i, got, limit)
		}
	}
}
