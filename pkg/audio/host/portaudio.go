//go:build portaudio

// ABOUTME: PortAudio duplex host implementation
// ABOUTME: Non-interleaved stream feeding the router per capture channel
package host

import (
	"fmt"
	"log"
	"sync"

	"github.com/gordonklaus/portaudio"

	"github.com/Resonate-Protocol/resonate-selector/pkg/audio"
)

// PortAudio host implementation
type PortAudio struct {
	config  Config
	stream  *portaudio.Stream
	block   *audio.Block
	process ProcessFunc
	mu      sync.Mutex
}

// NewPortAudio creates a new PortAudio host
func NewPortAudio(config Config) *PortAudio {
	return &PortAudio{config: config}
}

// SampleRate returns the configured stream rate
func (p *PortAudio) SampleRate() int {
	return p.config.SampleRate
}

// Start initializes PortAudio and opens the default duplex stream
func (p *PortAudio) Start(process ProcessFunc) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.stream != nil {
		return fmt.Errorf("portaudio host already started")
	}
	if err := p.config.Layout.Validate(); err != nil {
		return err
	}

	period := p.config.PeriodFrames
	if period < 1 {
		period = 512
	}
	p.block = audio.NewBlock(p.config.Layout, period)
	p.process = process

	if err := portaudio.Initialize(); err != nil {
		return fmt.Errorf("failed to initialize portaudio: %w", err)
	}

	stream, err := portaudio.OpenDefaultStream(
		p.config.Layout.CaptureChannels(),
		p.config.Layout.Channels,
		float64(p.config.SampleRate),
		period,
		p.callback,
	)
	if err != nil {
		portaudio.Terminate()
		return fmt.Errorf("failed to open stream: %w", err)
	}

	if err := stream.Start(); err != nil {
		stream.Close()
		portaudio.Terminate()
		return fmt.Errorf("failed to start stream: %w", err)
	}

	p.stream = stream
	log.Printf("Audio host initialized: %dHz, %d inputs x %d channels (portaudio)",
		p.config.SampleRate, p.config.Layout.Inputs, p.config.Layout.Channels)
	return nil
}

// callback receives one buffer per capture and playback channel.
func (p *PortAudio) callback(in, out [][]float32) {
	layout := p.config.Layout
	frames := len(out[0])

	for off := 0; off < frames; {
		n := min(frames-off, p.block.MaxFrames())
		bin, bout := p.block.Frames(n)

		for s := 0; s < layout.Inputs; s++ {
			for c := 0; c < layout.Channels; c++ {
				copy(bin[s][c], in[layout.CaptureIndex(s, c)][off:off+n])
			}
		}

		p.process(bin, bout)

		for c := range out {
			copy(out[c][off:off+n], bout[c])
		}
		off += n
	}
}

// Close releases resources
func (p *PortAudio) Close() error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.stream == nil {
		return ErrNotStarted
	}
	if err := p.stream.Stop(); err != nil {
		log.Printf("Warning: stream stop error: %v", err)
	}
	if err := p.stream.Close(); err != nil {
		log.Printf("Warning: stream close error: %v", err)
	}
	p.stream = nil
	return portaudio.Terminate()
}
