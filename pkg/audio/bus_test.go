package audio

import (
	"errors"
	"math"
	"testing"

	"github.com/gopxl/beep/v2"

	"github.com/oisee/keysynth/pkg/note"
)

func constant(v float64) beep.Streamer {
	return beep.StreamerFunc(func(samples [][2]float64) (n int, ok bool) {
		for i := range samples {
			samples[i] = [2]float64{v, v}
		}
		return len(samples), true
	})
}

func TestBusSumsChannels(t *testing.T) {
	bus := NewBus(8)
	a, err := bus.Open(constant(0.25))
	if err != nil {
		t.Fatal(err)
	}
	if _, err := bus.Open(constant(0.125)); err != nil {
		t.Fatal(err)
	}

	buf := make([][2]float64, 32)
	bus.Stream(buf)
	if want, got := 0.375, buf[10][0]; math.Abs(want-got) > 1e-12 {
		t.Errorf("want %v, got %v", want, got)
	}

	a.Close()
	bus.Stream(buf)
	if want, got := 0.125, buf[10][1]; math.Abs(want-got) > 1e-12 {
		t.Errorf("after close: want %v, got %v", want, got)
	}
	if want, got := 1, bus.Channels(); want != got {
		t.Errorf("want %d open channels, got %d", want, got)
	}
	if want, got := 1, bus.streaming(); want != got {
		t.Errorf("closed channel not swept from the mix: %d streams", got)
	}
}

func TestBusSilentWhenEmpty(t *testing.T) {
	bus := NewBus(0)
	buf := make([][2]float64, 16)
	for i := range buf {
		buf[i] = [2]float64{1, 1}
	}
	n, ok := bus.Stream(buf)
	if n != len(buf) || !ok {
		t.Fatalf("bus must never drain: n=%d ok=%v", n, ok)
	}
	for i, s := range buf {
		if s != [2]float64{} {
			t.Fatalf("sample %d not silent: %v", i, s)
		}
	}
}

func TestBusChannelLimit(t *testing.T) {
	bus := NewBus(2)
	first, err := bus.Open(constant(0))
	if err != nil {
		t.Fatal(err)
	}
	if _, err := bus.Open(constant(0)); err != nil {
		t.Fatal(err)
	}
	if _, err := bus.Open(constant(0)); !errors.Is(err, ErrNoChannel) {
		t.Fatalf("want ErrNoChannel, got %v", err)
	}

	first.Close()
	first.Close()
	if want, got := 1, bus.Channels(); want != got {
		t.Errorf("double close miscounted: want %d, got %d", want, got)
	}
	if _, err := bus.Open(constant(0)); err != nil {
		t.Errorf("channel should be free again: %v", err)
	}
}

func TestBusSoftLimit(t *testing.T) {
	bus := NewBus(0)
	for i := 0; i < 4; i++ {
		bus.Open(constant(0.5))
	}
	buf := make([][2]float64, 8)
	bus.Stream(buf)
	if got := buf[0][0]; got > 1.0 || got < 0.9 {
		t.Errorf("want limited sample in [0.9, 1.0], got %v", got)
	}
}

func TestBusVolume(t *testing.T) {
	bus := NewBus(0)
	bus.Open(constant(0.5))
	bus.SetVolume(-1)

	buf := make([][2]float64, 8)
	bus.Stream(buf)
	if want, got := 0.25, buf[3][0]; math.Abs(want-got) > 1e-12 {
		t.Errorf("want %v, got %v", want, got)
	}

	bus.SetVolume(math.Inf(-1))
	bus.Stream(buf)
	if want, got := 0.0, buf[3][0]; want != got {
		t.Errorf("muted: want %v, got %v", want, got)
	}
}

func TestBusDropsStoppedVoice(t *testing.T) {
	bus := NewBus(4)
	v := NewVoice(note.A4.Frequency(), note.Square, 0, 44100)
	ch, err := bus.Open(v)
	if err != nil {
		t.Fatal(err)
	}
	v.Bind(ch)

	buf := make([][2]float64, 1024)
	bus.Stream(buf)
	if buf[1000][0] == 0 {
		t.Fatal("voice not audible on the bus")
	}

	v.Stop()
	if want, got := 0, bus.Channels(); want != got {
		t.Errorf("want %d open channels after stop, got %d", want, got)
	}
	bus.Stream(buf)
	for i, s := range buf {
		if s != [2]float64{} {
			t.Fatalf("sample %d still audible after stop: %v", i, s)
		}
	}
}

func TestBusReleaseTail(t *testing.T) {
	bus := NewBus(1)
	bus.Release = 4
	ch, err := bus.Open(constant(0.5))
	if err != nil {
		t.Fatal(err)
	}
	ch.Close()

	// the channel is free at once, the stream plays out its tail
	if want, got := 0, bus.Channels(); want != got {
		t.Errorf("want %d open channels, got %d", want, got)
	}
	buf := make([][2]float64, 8)
	bus.Stream(buf)
	for i := 0; i < 4; i++ {
		if want, got := 0.5, buf[i][0]; want != got {
			t.Errorf("tail sample %d: want %v, got %v", i, want, got)
		}
	}
	for i := 4; i < len(buf); i++ {
		if buf[i] != [2]float64{} {
			t.Errorf("sample %d after the tail is not silent: %v", i, buf[i])
		}
	}
	bus.Stream(buf)
	if want, got := 0, bus.streaming(); want != got {
		t.Errorf("released stream still attached: %d", got)
	}
}
