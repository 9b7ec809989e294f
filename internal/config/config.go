// ABOUTME: Selector configuration loaded from YAML with defaults
// ABOUTME: Flags in main override file values; Validate gates startup
package config

import (
	"errors"
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/Resonate-Protocol/resonate-selector/internal/control"
	"github.com/Resonate-Protocol/resonate-selector/pkg/ingress"
)

// ErrInvalidConfig wraps every validation failure.
var ErrInvalidConfig = errors.New("invalid config")

// Audio backends understood by main.
const (
	BackendMalgo     = "malgo"
	BackendPortAudio = "portaudio"
	BackendOto       = "oto"
)

// Config holds the daemon configuration
type Config struct {
	Name          string        `yaml:"name"` // empty = derived from hostname
	Inputs        int           `yaml:"inputs"`
	Channels      int           `yaml:"channels"`
	Names         []string      `yaml:"names"`
	Transition    time.Duration `yaml:"transition"`
	Backend       string        `yaml:"backend"`
	SampleRate    int           `yaml:"sample_rate"`
	PeriodFrames  int           `yaml:"period_frames"`
	QueueCapacity int           `yaml:"queue_capacity"`

	ControlAddr string        `yaml:"control_addr"` // empty disables the TCP listener
	WebAddr     string        `yaml:"web_addr"`     // empty disables the websocket server
	IdleTimeout time.Duration `yaml:"idle_timeout"`
	Stdin       bool          `yaml:"stdin"`
	MDNS        bool          `yaml:"mdns"`
	TUI         bool          `yaml:"tui"`
	LogFile     string        `yaml:"log_file"`
}

// Default returns the built-in configuration: two stereo inputs, one second
// fades, malgo at 48 kHz, TCP control on 7070.
func Default() Config {
	return Config{
		Inputs:        2,
		Channels:      2,
		Transition:    time.Second,
		Backend:       BackendMalgo,
		SampleRate:    48000,
		PeriodFrames:  512,
		QueueCapacity: ingress.DefaultCapacity,
		ControlAddr:   ":7070",
		IdleTimeout:   10 * time.Minute,
		Stdin:         true,
		MDNS:          true,
		LogFile:       "resonate-selector.log",
	}
}

// LoadFile reads a YAML file on top of Default. Unknown keys are rejected.
// The result is not validated.
func LoadFile(path string) (Config, error) {
	cfg := Default()

	f, err := os.Open(path)
	if err != nil {
		return cfg, fmt.Errorf("failed to open config: %w", err)
	}
	defer f.Close()

	dec := yaml.NewDecoder(f)
	dec.KnownFields(true)
	if err := dec.Decode(&cfg); err != nil {
		return cfg, fmt.Errorf("failed to parse config %s: %w", path, err)
	}

	return cfg, nil
}

// Validate reports the first unusable setting.
func (c Config) Validate() error {
	switch {
	case c.Inputs < 1:
		return fmt.Errorf("%w: inputs must be at least 1, got %d", ErrInvalidConfig, c.Inputs)
	case c.Channels < 1:
		return fmt.Errorf("%w: channels must be at least 1, got %d", ErrInvalidConfig, c.Channels)
	case c.Transition <= 0:
		return fmt.Errorf("%w: transition must be positive, got %v", ErrInvalidConfig, c.Transition)
	case c.SampleRate <= 0:
		return fmt.Errorf("%w: sample_rate must be positive, got %d", ErrInvalidConfig, c.SampleRate)
	case c.PeriodFrames < 1:
		return fmt.Errorf("%w: period_frames must be at least 1, got %d", ErrInvalidConfig, c.PeriodFrames)
	case c.QueueCapacity < 0:
		return fmt.Errorf("%w: queue_capacity must not be negative", ErrInvalidConfig)
	case c.IdleTimeout < 0:
		return fmt.Errorf("%w: idle_timeout must not be negative", ErrInvalidConfig)
	}

	switch c.Backend {
	case BackendMalgo, BackendPortAudio, BackendOto:
	default:
		return fmt.Errorf("%w: unknown backend %q", ErrInvalidConfig, c.Backend)
	}

	if _, err := control.NewSources(c.Inputs, c.Names); err != nil {
		return fmt.Errorf("%w: %w", ErrInvalidConfig, err)
	}

	return nil
}
