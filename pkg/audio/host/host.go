// ABOUTME: Audio host interface definition
// ABOUTME: Common interface and chunked block driver for all backends
package host

import (
	"errors"

	"github.com/Resonate-Protocol/resonate-selector/pkg/audio"
)

var (
	// ErrNotStarted is returned when stopping a host that never started.
	ErrNotStarted = errors.New("audio host not started")

	// ErrUnavailable is returned by backends compiled out of this build.
	ErrUnavailable = errors.New("audio backend not available in this build")
)

// ProcessFunc renders one block. It runs on the device thread and must not
// block, allocate or lock.
type ProcessFunc func(in [][][]float32, out [][]float32)

// Host represents an audio device driving a ProcessFunc
type Host interface {
	// SampleRate returns the device rate in Hz
	SampleRate() int

	// Start opens the device and begins calling process
	Start(process ProcessFunc) error

	// Close stops the device and releases resources
	Close() error
}

// Config describes the buses and timing a host must provide.
type Config struct {
	Layout       audio.Layout
	SampleRate   int
	PeriodFrames int // largest block handed to ProcessFunc
}

// driver converts interleaved device buffers to blocks of at most
// PeriodFrames frames.
type driver struct {
	layout  audio.Layout
	block   *audio.Block
	process ProcessFunc
}

func newDriver(config Config, process ProcessFunc) *driver {
	period := config.PeriodFrames
	if period < 1 {
		period = 512
	}
	return &driver{
		layout:  config.Layout,
		block:   audio.NewBlock(config.Layout, period),
		process: process,
	}
}

// run processes frames frames. capture holds CaptureChannels interleaved
// samples per frame; nil capture means silent inputs. playback receives
// Channels interleaved samples per frame.
func (d *driver) run(capture, playback []float32, frames int) {
	stride := d.layout.CaptureChannels()
	channels := d.layout.Channels

	for off := 0; off < frames; {
		n := min(frames-off, d.block.MaxFrames())
		in, out := d.block.Frames(n)

		if capture != nil {
			audio.Deinterleave(d.layout, capture[off*stride:(off+n)*stride], in)
		} else {
			silence(in)
		}

		d.process(in, out)
		audio.Interleave(out, playback[off*channels:(off+n)*channels])
		off += n
	}
}

func silence(in [][][]float32) {
	for _, bus := range in {
		for _, ch := range bus {
			clear(ch)
		}
	}
}
