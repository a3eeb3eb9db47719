package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/oisee/keysynth/pkg/logger"
	"github.com/oisee/keysynth/pkg/note"
)

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()

	if cfg.SampleRate != 44100 {
		t.Errorf("Expected default SampleRate to be 44100, got %d", cfg.SampleRate)
	}
	if cfg.Buffer != 50*time.Millisecond {
		t.Errorf("Expected default Buffer to be 50ms, got %v", cfg.Buffer)
	}
	if cfg.OutputChannels != 2 {
		t.Errorf("Expected default OutputChannels to be 2, got %d", cfg.OutputChannels)
	}
	if cfg.Waveform != note.Sine {
		t.Errorf("Expected default Waveform to be Sine, got %v", cfg.Waveform)
	}
	if cfg.TapSustain != 500*time.Millisecond {
		t.Errorf("Expected default TapSustain to be 500ms, got %v", cfg.TapSustain)
	}
	if cfg.Latch {
		t.Error("Expected latch mode to be off by default")
	}
	if err := cfg.Validate(); err != nil {
		t.Errorf("Default config does not validate: %v", err)
	}
	if cfg.Level() != logger.LevelInfo {
		t.Errorf("Expected default level info, got %v", cfg.Level())
	}
}

func TestLoad(t *testing.T) {
	path := filepath.Join(t.TempDir(), "keysynth.yaml")
	data := `
sample_rate: 48000
buffer: 20ms
waveform: square
tap_sustain: 1s
latch: true
log_level: debug
`
	if err := os.WriteFile(path, []byte(data), 0o644); err != nil {
		t.Fatal(err)
	}

	cfg, err := Load(path)
	if err != nil {
		t.Fatal(err)
	}
	if want, got := 48000, cfg.SampleRate; want != got {
		t.Errorf("want sample rate %d, got %d", want, got)
	}
	if want, got := 20*time.Millisecond, cfg.Buffer; want != got {
		t.Errorf("want buffer %v, got %v", want, got)
	}
	if want, got := note.Square, cfg.Waveform; want != got {
		t.Errorf("want waveform %v, got %v", want, got)
	}
	if want, got := time.Second, cfg.TapSustain; want != got {
		t.Errorf("want tap sustain %v, got %v", want, got)
	}
	if !cfg.Latch {
		t.Error("want latch mode on")
	}
	if want, got := logger.LevelDebug, cfg.Level(); want != got {
		t.Errorf("want level %v, got %v", want, got)
	}

	// untouched keys keep their defaults
	if want, got := 32, cfg.MaxVoices; want != got {
		t.Errorf("want max voices %d, got %d", want, got)
	}
	if want, got := 75*time.Millisecond, cfg.RepeatWindow; want != got {
		t.Errorf("want repeat window %v, got %v", want, got)
	}
}

func TestLoadMissingFile(t *testing.T) {
	if _, err := Load(filepath.Join(t.TempDir(), "missing.yaml")); err == nil {
		t.Error("expected an error for a missing file")
	}
}

func TestDecodeEmpty(t *testing.T) {
	cfg, err := Decode(strings.NewReader(""))
	if err != nil {
		t.Fatal(err)
	}
	if *cfg != *DefaultConfig() {
		t.Errorf("empty input should give the defaults, got %+v", cfg)
	}
}

func TestDecodeInvalid(t *testing.T) {
	testCases := []struct {
		name string
		data string
	}{
		{"unknown key", "sample_rat: 44100\n"},
		{"low sample rate", "sample_rate: 100\n"},
		{"zero buffer", "buffer: 0s\n"},
		{"channels", "output_channels: 6\n"},
		{"negative voices", "max_voices: -1\n"},
		{"waveform", "waveform: noise\n"},
		{"tap sustain", "tap_sustain: 0s\n"},
		{"repeat window", "repeat_window: -1ms\n"},
		{"log level", "log_level: chatty\n"},
		{"bad duration", "buffer: soon\n"},
	}
	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			if _, err := Decode(strings.NewReader(tc.data)); err == nil {
				t.Error("expected an error")
			}
		})
	}
}
