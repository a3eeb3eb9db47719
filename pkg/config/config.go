package config

import (
	"errors"
	"fmt"
	"io"
	"os"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/oisee/keysynth/pkg/logger"
	"github.com/oisee/keysynth/pkg/note"
)

// Config holds the application configuration
type Config struct {
	// Audio output
	SampleRate     int           `yaml:"sample_rate"`
	Buffer         time.Duration `yaml:"buffer"`
	OutputChannels int           `yaml:"output_channels"` // 1 = mono, 2 = stereo
	MaxVoices      int           `yaml:"max_voices"`      // channel budget of the mix, 0 = no limit
	Volume         float64       `yaml:"volume"`          // master level in doublings

	// Keyboard
	Waveform     note.Waveform `yaml:"waveform"`
	TapSustain   time.Duration `yaml:"tap_sustain"`
	RepeatWindow time.Duration `yaml:"repeat_window"`
	Latch        bool          `yaml:"latch"`

	// Logging
	LogLevel string `yaml:"log_level"`
	LogFile  string `yaml:"log_file"`
}

// DefaultConfig returns the default configuration
func DefaultConfig() *Config {
	return &Config{
		SampleRate:     44100,
		Buffer:         50 * time.Millisecond,
		OutputChannels: 2,
		MaxVoices:      32,
		Volume:         0,

		Waveform:     note.Sine,
		TapSustain:   500 * time.Millisecond,
		RepeatWindow: 75 * time.Millisecond,

		LogLevel: "info",
	}
}

// Load reads a YAML file on top of the defaults. Keys missing from the file
// keep their default values.
func Load(path string) (*Config, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("config: %w", err)
	}
	defer f.Close()

	cfg, err := Decode(f)
	if err != nil {
		return nil, fmt.Errorf("config %s: %w", path, err)
	}
	logger.Debug(logger.CategoryApp, "loaded config from %s", path)
	return cfg, nil
}

// Decode reads YAML from r on top of the defaults and validates the result
func Decode(r io.Reader) (*Config, error) {
	cfg := DefaultConfig()
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)
	if err := dec.Decode(cfg); err != nil && !errors.Is(err, io.EOF) {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks that every value is usable
func (c *Config) Validate() error {
	switch {
	case c.SampleRate < 8000 || c.SampleRate > 192000:
		return fmt.Errorf("sample_rate %d out of range [8000, 192000]", c.SampleRate)
	case c.Buffer <= 0:
		return fmt.Errorf("buffer must be positive, got %v", c.Buffer)
	case c.OutputChannels != 1 && c.OutputChannels != 2:
		return fmt.Errorf("output_channels must be 1 or 2, got %d", c.OutputChannels)
	case c.MaxVoices < 0:
		return fmt.Errorf("max_voices must not be negative, got %d", c.MaxVoices)
	case !c.Waveform.Valid():
		return fmt.Errorf("invalid waveform %d", c.Waveform)
	case c.TapSustain <= 0:
		return fmt.Errorf("tap_sustain must be positive, got %v", c.TapSustain)
	case c.RepeatWindow < 0:
		return fmt.Errorf("repeat_window must not be negative, got %v", c.RepeatWindow)
	}
	if _, err := logger.ParseLevel(c.LogLevel); err != nil {
		return fmt.Errorf("log_level: %w", err)
	}
	return nil
}

// Level returns the parsed log level
func (c *Config) Level() logger.Level {
	level, err := logger.ParseLevel(c.LogLevel)
	if err != nil {
		return logger.LevelInfo
	}
	return level
}
