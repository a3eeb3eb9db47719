package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"log"
	"os"
	"os/signal"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/gopxl/beep/v2"

	"github.com/oisee/keysynth/pkg/audio"
	"github.com/oisee/keysynth/pkg/config"
	"github.com/oisee/keysynth/pkg/logger"
	"github.com/oisee/keysynth/pkg/note"
	"github.com/oisee/keysynth/pkg/synth"
	"github.com/oisee/keysynth/pkg/tui"
)

// demoStep is the note length of the built-in scale run
const demoStep = 250 * time.Millisecond

func main() {
	configPath := flag.String("config", "", "YAML config file")
	export := flag.String("export", "", "Render the performance to this WAV file instead of playing it")
	script := flag.String("script", "", "YAML performance script to play")
	demo := flag.Bool("demo", false, "Play a scale run over every key and exit")
	wave := flag.String("wave", "", "Waveform: sine, saw, triangle or square")
	volume := flag.Float64("volume", 0, "Master volume in doublings (0 = unity, -1 = half)")
	latch := flag.Bool("latch", false, "Start the keyboard in latch mode")
	debug := flag.Bool("debug", false, "Enable debug logging")
	flag.Parse()

	cfg := config.DefaultConfig()
	if *configPath != "" {
		var err error
		cfg, err = config.Load(*configPath)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error loading config: %v\n", err)
			os.Exit(1)
		}
	}

	// explicit flags override the config file
	var flagErr error
	flag.Visit(func(f *flag.Flag) {
		switch f.Name {
		case "wave":
			w, err := note.ParseWaveform(*wave)
			if err != nil {
				flagErr = err
				return
			}
			cfg.Waveform = w
		case "volume":
			cfg.Volume = *volume
		case "latch":
			cfg.Latch = *latch
		}
	})
	if flagErr != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", flagErr)
		os.Exit(1)
	}
	if *debug {
		cfg.LogLevel = "debug"
	}
	logger.SetLevel(cfg.Level())

	// libraries that log through the standard logger end up in ours
	log.SetFlags(0)
	log.SetOutput(logger.Writer(logger.LevelDebug, logger.CategoryApp))

	var perf *synth.Performance
	switch {
	case *script != "":
		f, err := os.Open(*script)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error opening script: %v\n", err)
			os.Exit(1)
		}
		perf, err = synth.LoadPerformance(f)
		f.Close()
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error loading script: %v\n", err)
			os.Exit(1)
		}
	case *demo || *export != "":
		perf = synth.ScaleRun(demoStep, cfg.Waveform)
	}

	sr := beep.SampleRate(cfg.SampleRate)

	if *export != "" {
		if err := exportWAV(*export, perf, cfg); err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			os.Exit(1)
		}
		fmt.Printf("Rendered %q to %s (%v)\n", perf.Name, *export, perf.Duration())
		return
	}

	bus := audio.NewBus(cfg.MaxVoices)
	bus.Release = sr.N(audio.Release)
	bus.SetVolume(cfg.Volume)
	dev, err := audio.OpenDevice(bus, sr, cfg.OutputChannels, cfg.Buffer)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
	m := synth.NewManager(bus, sr)

	if perf != nil {
		err = playScript(m, perf)
	} else {
		err = runKeyboard(m, cfg)
	}
	m.Close()
	dev.Close()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func exportWAV(path string, perf *synth.Performance, cfg *config.Config) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	r := synth.Renderer{
		SampleRate: beep.SampleRate(cfg.SampleRate),
		Channels:   cfg.OutputChannels,
		MaxVoices:  cfg.MaxVoices,
		Volume:     cfg.Volume,
		Tail:       cfg.TapSustain,
	}
	if err := r.Render(f, perf); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}

// playScript plays perf in real time; Ctrl+C stops it early
func playScript(m *synth.Manager, perf *synth.Performance) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	if err := synth.Play(ctx, m, perf); err != nil && ctx.Err() == nil {
		return err
	}
	return nil
}

// runKeyboard runs the terminal keyboard until the user quits. Logs would
// tear the screen, so they go to the log file or nowhere.
func runKeyboard(m *synth.Manager, cfg *config.Config) error {
	out := logger.Output()
	if cfg.LogFile != "" {
		f, err := os.OpenFile(cfg.LogFile, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
		if err != nil {
			return fmt.Errorf("open log file: %w", err)
		}
		defer f.Close()
		logger.SetOutput(f)
	} else {
		logger.SetOutput(io.Discard)
	}
	defer logger.SetOutput(out)

	model := tui.NewModel(m, tui.Options{
		Waveform:     cfg.Waveform,
		TapSustain:   cfg.TapSustain,
		RepeatWindow: cfg.RepeatWindow,
		Latch:        cfg.Latch,
	})
	p := tea.NewProgram(model)
	_, err := p.Run()
	return err
}
