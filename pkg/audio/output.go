package audio

import (
	"encoding/binary"
	"fmt"
	"io"
	"time"

	"github.com/gopxl/beep/v2"
	"github.com/gopxl/beep/v2/wav"
)

// PCMReader implements io.Reader over a stream, producing signed 16-bit
// little-endian PCM frames
type PCMReader struct {
	src      beep.Streamer
	channels int
	buffer   [][2]float64
}

// NewPCMReader creates a reader producing mono (1) or stereo (2) frames
func NewPCMReader(src beep.Streamer, channels int) *PCMReader {
	if channels != 1 {
		channels = 2
	}
	return &PCMReader{
		src:      src,
		channels: channels,
		buffer:   make([][2]float64, 512),
	}
}

// FrameSize returns the number of bytes per frame
func (r *PCMReader) FrameSize() int {
	return 2 * r.channels
}

// Read implements io.Reader. Only whole frames are written.
func (r *PCMReader) Read(p []byte) (n int, err error) {
	frames := len(p) / r.FrameSize()
	if frames > len(r.buffer) {
		r.buffer = make([][2]float64, frames)
	}
	samples := r.buffer[:frames]

	sn, ok := r.src.Stream(samples)
	if !ok && sn == 0 {
		if err := r.src.Err(); err != nil {
			return 0, err
		}
		return 0, io.EOF
	}
	encodePCM16(p, samples[:sn], r.channels)
	return sn * r.FrameSize(), nil
}

// encodePCM16 writes frames as signed 16-bit little-endian PCM, downmixing
// to mono when channels is 1
func encodePCM16(buf []byte, samples [][2]float64, channels int) {
	i := 0
	for _, frame := range samples {
		if channels == 1 {
			putSample(buf[i:], (frame[0]+frame[1])/2)
			i += 2
			continue
		}
		putSample(buf[i:], frame[0])
		putSample(buf[i+2:], frame[1])
		i += 4
	}
}

func putSample(buf []byte, sample float64) {
	// Clamp
	if sample > 1.0 {
		sample = 1.0
	}
	if sample < -1.0 {
		sample = -1.0
	}
	s16 := int16(sample * 32767)
	binary.LittleEndian.PutUint16(buf, uint16(s16))
}

// ExportWAV renders d worth of src into w as 16-bit PCM WAV
func ExportWAV(w io.WriteSeeker, src beep.Streamer, sr beep.SampleRate, channels int, d time.Duration) error {
	if channels != 1 {
		channels = 2
	}
	format := beep.Format{
		SampleRate:  sr,
		NumChannels: channels,
		Precision:   2,
	}
	if err := wav.Encode(w, beep.Take(sr.N(d), src), format); err != nil {
		return fmt.Errorf("audio: export wav: %w", err)
	}
	return nil
}
