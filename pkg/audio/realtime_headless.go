//go:build headless

package audio

import (
	"fmt"
	"io"
	"time"

	"github.com/gopxl/beep/v2"

	"github.com/oisee/keysynth/pkg/logger"
)

// Device drains a stream at real-time rate without a sound card, so voices
// advance exactly as they would on hardware.
type Device struct {
	SampleRate beep.SampleRate
	Channels   int

	pcm  *PCMReader
	quit chan struct{}
	done chan struct{}
}

// OpenDevice starts pulling from src in buffer-sized chunks
func OpenDevice(src beep.Streamer, sr beep.SampleRate, channels int, buffer time.Duration) (*Device, error) {
	if channels != 1 && channels != 2 {
		return nil, fmt.Errorf("audio: unsupported channel count %d", channels)
	}
	if buffer <= 0 {
		buffer = 50 * time.Millisecond
	}

	d := &Device{
		SampleRate: sr,
		Channels:   channels,
		pcm:        NewPCMReader(src, channels),
		quit:       make(chan struct{}),
		done:       make(chan struct{}),
	}
	go d.run(make([]byte, sr.N(buffer)*d.pcm.FrameSize()), buffer)

	logger.Info(logger.CategoryAudio, "headless output: %d Hz, %d channel(s), %v buffer", int(sr), channels, buffer)
	return d, nil
}

func (d *Device) run(buf []byte, period time.Duration) {
	defer close(d.done)
	ticker := time.NewTicker(period)
	defer ticker.Stop()

	for {
		select {
		case <-d.quit:
			return
		case <-ticker.C:
			if _, err := io.ReadFull(d.pcm, buf); err != nil {
				logger.Error(logger.CategoryAudio, "headless output: %v", err)
			}
		}
	}
}

// Close stops the drain loop
func (d *Device) Close() error {
	close(d.quit)
	<-d.done
	return nil
}
