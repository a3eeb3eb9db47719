//go:build !headless

package audio

import (
	"fmt"
	"sync"
	"time"

	"github.com/ebitengine/oto/v3"
	"github.com/gopxl/beep/v2"

	"github.com/oisee/keysynth/pkg/logger"
)

// Device plays a stream on the default sound card
type Device struct {
	SampleRate beep.SampleRate
	Channels   int

	otoCtx    *oto.Context
	otoPlayer *oto.Player
	stream    *deviceStream
}

// OpenDevice opens the default output device and starts pulling from src.
// channels is 1 (mono) or 2 (stereo); buffer is the device latency.
func OpenDevice(src beep.Streamer, sr beep.SampleRate, channels int, buffer time.Duration) (*Device, error) {
	if channels != 1 && channels != 2 {
		return nil, fmt.Errorf("audio: unsupported channel count %d", channels)
	}

	op := &oto.NewContextOptions{
		SampleRate:   int(sr),
		ChannelCount: channels,
		Format:       oto.FormatSignedInt16LE,
		BufferSize:   buffer,
	}
	otoCtx, ready, err := oto.NewContext(op)
	if err != nil {
		return nil, fmt.Errorf("audio: open output device: %w", err)
	}
	<-ready

	d := &Device{
		SampleRate: sr,
		Channels:   channels,
		otoCtx:     otoCtx,
		stream:     &deviceStream{pcm: NewPCMReader(src, channels), running: true},
	}
	d.otoPlayer = otoCtx.NewPlayer(d.stream)
	d.otoPlayer.SetBufferSize(sr.N(buffer) * channels * 2)
	d.otoPlayer.Play()

	logger.Info(logger.CategoryAudio, "output device open: %d Hz, %d channel(s), %v buffer", int(sr), channels, buffer)
	return d, nil
}

// Close stops the audio output
func (d *Device) Close() error {
	d.stream.stop()
	if d.otoPlayer != nil {
		if err := d.otoPlayer.Close(); err != nil {
			return fmt.Errorf("audio: close player: %w", err)
		}
	}
	logger.Debug(logger.CategoryAudio, "output device closed")
	return nil
}

// deviceStream implements io.Reader for oto
type deviceStream struct {
	pcm *PCMReader

	mu      sync.Mutex
	running bool
}

func (s *deviceStream) stop() {
	s.mu.Lock()
	s.running = false
	s.mu.Unlock()
}

func (s *deviceStream) Read(buf []byte) (int, error) {
	s.mu.Lock()
	running := s.running
	s.mu.Unlock()

	n := len(buf) / s.pcm.FrameSize() * s.pcm.FrameSize()
	if !running {
		// Fill with silence
		for i := range buf[:n] {
			buf[i] = 0
		}
		return n, nil
	}
	return s.pcm.Read(buf[:n])
}
