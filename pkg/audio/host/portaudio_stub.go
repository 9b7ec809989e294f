//go:build !portaudio

// ABOUTME: PortAudio stub when library not available
// ABOUTME: Provides compile-time placeholder when PortAudio not installed
package host

import (
	"fmt"
)

// PortAudio host implementation (stub)
type PortAudio struct {
	config Config
}

// NewPortAudio creates a new PortAudio host
func NewPortAudio(config Config) *PortAudio {
	return &PortAudio{config: config}
}

// SampleRate returns the configured rate
func (p *PortAudio) SampleRate() int {
	return p.config.SampleRate
}

// Start always fails without the portaudio build tag
func (p *PortAudio) Start(process ProcessFunc) error {
	return fmt.Errorf("%w: build with -tags portaudio", ErrUnavailable)
}

// Close releases resources
func (p *PortAudio) Close() error {
	return ErrNotStarted
}
