// ABOUTME: Oto-based playback-only demo host
// ABOUTME: Inputs are generated by readers; oto's pull Read drives the router
package host

import (
	"encoding/binary"
	"fmt"
	"log"
	"math"
	"sync"
	"time"

	"github.com/ebitengine/oto/v3"

	"github.com/Resonate-Protocol/resonate-selector/pkg/audio"
	"github.com/Resonate-Protocol/resonate-selector/pkg/audio/source"
)

// Oto host implementation using oto library
type Oto struct {
	config Config
	inputs []source.Reader
	otoCtx *oto.Context
	player *oto.Player
	mu     sync.Mutex
}

// NewOto creates an Oto host. inputs supplies one reader per source bus;
// missing readers are silent.
func NewOto(config Config, inputs []source.Reader) *Oto {
	return &Oto{
		config: config,
		inputs: inputs,
	}
}

// SampleRate returns the playback rate
func (o *Oto) SampleRate() int {
	return o.config.SampleRate
}

// Start creates the oto context and plays the routed output
func (o *Oto) Start(process ProcessFunc) error {
	o.mu.Lock()
	defer o.mu.Unlock()

	if o.otoCtx != nil {
		return fmt.Errorf("oto host already started")
	}
	if err := o.config.Layout.Validate(); err != nil {
		return err
	}

	stream := newPullStream(o.config, o.inputs, process)

	op := &oto.NewContextOptions{
		SampleRate:   o.config.SampleRate,
		ChannelCount: o.config.Layout.Channels,
		Format:       oto.FormatFloat32LE,
		BufferSize:   time.Duration(stream.block.MaxFrames()) * time.Second / time.Duration(o.config.SampleRate),
	}

	ctx, readyChan, err := oto.NewContext(op)
	if err != nil {
		return fmt.Errorf("failed to create oto context: %w", err)
	}
	<-readyChan

	o.otoCtx = ctx
	o.player = ctx.NewPlayer(stream)
	o.player.Play()

	log.Printf("Audio host initialized: %dHz, %d channels, %d generated inputs (oto)",
		o.config.SampleRate, o.config.Layout.Channels, o.config.Layout.Inputs)
	return nil
}

// Close stops playback. oto allows one context per process, so the context
// is suspended rather than destroyed.
func (o *Oto) Close() error {
	o.mu.Lock()
	defer o.mu.Unlock()

	if o.otoCtx == nil {
		return ErrNotStarted
	}
	if err := o.player.Close(); err != nil {
		log.Printf("Warning: player close error: %v", err)
	}
	o.player = nil
	if err := o.otoCtx.Suspend(); err != nil {
		return fmt.Errorf("failed to suspend oto context: %w", err)
	}
	return nil
}

// pullStream renders the router on demand for oto's Read calls.
type pullStream struct {
	layout  audio.Layout
	block   *audio.Block
	inputs  []source.Reader
	process ProcessFunc
	scratch []float32
}

func newPullStream(config Config, inputs []source.Reader, process ProcessFunc) *pullStream {
	period := config.PeriodFrames
	if period < 1 {
		period = 512
	}
	return &pullStream{
		layout:  config.Layout,
		block:   audio.NewBlock(config.Layout, period),
		inputs:  inputs,
		process: process,
		scratch: make([]float32, period*config.Layout.Channels),
	}
}

// Read fills p with whole float32 little-endian frames.
func (s *pullStream) Read(p []byte) (int, error) {
	channels := s.layout.Channels
	frameBytes := 4 * channels
	frames := len(p) / frameBytes

	for off := 0; off < frames; {
		n := min(frames-off, s.block.MaxFrames())
		in, out := s.block.Frames(n)

		for bus := range in {
			if bus < len(s.inputs) && s.inputs[bus] != nil {
				got, _ := s.inputs[bus].ReadFrames(in[bus])
				for _, ch := range in[bus] {
					clear(ch[got:])
				}
			} else {
				for _, ch := range in[bus] {
					clear(ch)
				}
			}
		}

		s.process(in, out)

		interleaved := s.scratch[:n*channels]
		audio.Interleave(out, interleaved)
		dst := p[off*frameBytes:]
		for i, v := range interleaved {
			binary.LittleEndian.PutUint32(dst[i*4:], math.Float32bits(v))
		}
		off += n
	}

	return frames * frameBytes, nil
}
