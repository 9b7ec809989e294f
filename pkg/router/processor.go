// ABOUTME: Block processor invoked once per audio callback
// ABOUTME: Drains switch commands and renders the crossfaded output
package router

import (
	"fmt"
	"time"

	"github.com/Resonate-Protocol/resonate-selector/pkg/audio"
	"github.com/Resonate-Protocol/resonate-selector/pkg/crossfade"
	"github.com/Resonate-Protocol/resonate-selector/pkg/ingress"
)

// Processor renders one output bus from the active input bus, fading across
// input buses when a switch command arrives.
type Processor struct {
	config Config
	queue  *ingress.Queue

	// Owned by the audio callback.
	state   Transition
	blocks  uint64
	frames  uint64
	applied uint64

	status statusCell
}

// NewProcessor creates a processor that receives switch commands from queue.
func NewProcessor(config Config, queue *ingress.Queue) (*Processor, error) {
	if err := config.validate(); err != nil {
		return nil, err
	}
	if queue == nil {
		return nil, fmt.Errorf("%w: nil command queue", ErrInvalidConfig)
	}

	p := &Processor{
		config: config,
		queue:  queue,
		state:  NewTransition(LengthFrames(config.TransitionLength, config.SampleRate)),
	}
	p.status.publish(&p.state, 0, 0, 0)

	return p, nil
}

// Process renders one block. in is indexed [source][channel][frame] and out
// [channel][frame]; the block length is len(out[0]) and every input buffer
// must hold at least that many frames. Both are borrowed for this call only.
//
// Process must only be called from the audio callback. It does not allocate,
// lock or block.
func (p *Processor) Process(in [][][]float32, out [][]float32) {
	// Apply in arrival order; each request fades from the one before it.
	for cmd, ok := p.queue.TryReceive(); ok; cmd, ok = p.queue.TryReceive() {
		p.state.Request(cmd.Source)
		p.applied++
	}

	// Every channel starts from the block-start state so that all channels
	// of a frame share the same progress.
	start := p.state
	end := start
	frames := 0
	for c, dst := range out {
		frames = len(dst)
		end = renderChannel(start, in, c, dst)
	}
	p.state = end

	p.blocks++
	p.frames += uint64(frames)
	p.status.publish(&p.state, p.blocks, p.frames, p.applied)
}

// renderChannel writes channel c of one block and returns the state after
// the last frame.
func renderChannel(t Transition, in [][][]float32, c int, dst []float32) Transition {
	for i := range dst {
		if t.previous == t.active {
			// Nothing to fade against: pass the active bus through.
			copy(dst[i:], in[t.active][c][i:len(dst)])
			t.advanceBy(len(dst) - i)
			break
		}
		dst[i] = crossfade.Blend(t.Progress(), in[t.previous][c][i], in[t.active][c][i])
		t.Advance()
	}
	return t
}

// Status returns the state published after the most recent block.
// Safe to call from any goroutine.
func (p *Processor) Status() Status {
	return p.status.load(p.config.SampleRate)
}

// SampleRate returns the configured sample rate.
func (p *Processor) SampleRate() int { return p.config.SampleRate }

// Layout returns the configured bus layout.
func (p *Processor) Layout() audio.Layout { return p.config.Layout }

// TransitionLength returns the fade duration.
func (p *Processor) TransitionLength() time.Duration { return p.config.TransitionLength }
