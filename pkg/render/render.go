// ABOUTME: Offline renderer driving the router block by block
// ABOUTME: Writes the routed output as 16 or 24-bit WAV via go-audio/wav
package render

import (
	"errors"
	"fmt"
	"io"
	"log"
	"time"

	goaudio "github.com/go-audio/audio"
	"github.com/go-audio/wav"

	"github.com/Resonate-Protocol/resonate-selector/pkg/audio"
	"github.com/Resonate-Protocol/resonate-selector/pkg/audio/source"
	"github.com/Resonate-Protocol/resonate-selector/pkg/ingress"
	"github.com/Resonate-Protocol/resonate-selector/pkg/router"
)

// DefaultBlockFrames is the block size used when none is configured.
const DefaultBlockFrames = 256

var (
	// ErrSampleRateMismatch is returned when inputs disagree on sample rate.
	ErrSampleRateMismatch = errors.New("sample rate mismatch")

	// ErrUnsupportedBitDepth is returned for WAV depths other than 16 and 24.
	ErrUnsupportedBitDepth = errors.New("unsupported bit depth")
)

// Config holds renderer configuration
type Config struct {
	Channels         int
	SampleRate       int
	TransitionLength time.Duration // 0 = router default
	BlockFrames      int           // 0 = DefaultBlockFrames
	BitDepth         int           // WAV output only; 0 = 16
}

// Result summarises a render
type Result struct {
	Frames   int
	Switches uint64
	Final    router.Status
}

// Renderer feeds readers through a router processor
type Renderer struct {
	config Config
	queue  *ingress.Queue
	proc   *router.Processor
	block  *audio.Block
	inputs []source.Reader
}

// New creates a renderer with one input bus per reader.
func New(config Config, inputs []source.Reader) (*Renderer, error) {
	if config.BlockFrames <= 0 {
		config.BlockFrames = DefaultBlockFrames
	}

	layout := audio.Layout{Inputs: len(inputs), Channels: config.Channels}
	queue := ingress.NewQueue(ingress.DefaultCapacity)

	proc, err := router.NewProcessor(router.Config{
		Layout:           layout,
		SampleRate:       config.SampleRate,
		TransitionLength: config.TransitionLength,
	}, queue)
	if err != nil {
		return nil, err
	}

	return &Renderer{
		config: config,
		queue:  queue,
		proc:   proc,
		block:  audio.NewBlock(layout, config.BlockFrames),
		inputs: inputs,
	}, nil
}

// Processor returns the underlying router
func (r *Renderer) Processor() *router.Processor { return r.proc }

// Run renders frames frames, calling emit with each output block. Exhausted
// inputs continue as silence; any other read error stops the render.
func (r *Renderer) Run(schedule Schedule, frames int, emit func(out [][]float32) error) (Result, error) {
	events, err := schedule.sorted(len(r.inputs))
	if err != nil {
		return Result{}, err
	}

	next := 0
	for pos := 0; pos < frames; {
		for next < len(events) && events[next].AtFrame <= pos {
			r.queue.Send(ingress.Command{Source: events[next].Source})
			next++
		}

		n := min(frames-pos, r.block.MaxFrames())
		if next < len(events) {
			n = min(n, events[next].AtFrame-pos)
		}

		in, out := r.block.Frames(n)
		for bus, reader := range r.inputs {
			got, err := reader.ReadFrames(in[bus])
			if err != nil && !errors.Is(err, io.EOF) {
				return Result{}, fmt.Errorf("failed to read input %d: %w", bus, err)
			}
			for _, ch := range in[bus] {
				clear(ch[got:])
			}
		}

		r.proc.Process(in, out)
		if err := emit(out); err != nil {
			return Result{}, err
		}
		pos += n
	}

	st := r.proc.Status()
	return Result{Frames: frames, Switches: st.Applied, Final: st}, nil
}

// RenderWAV renders buffers for the length of the longest one and writes a
// WAV to w. All buffers must share a sample rate; config.SampleRate, when
// set, must match it too.
func RenderWAV(config Config, buffers []*source.Buffer, schedule Schedule, w io.WriteSeeker) (Result, error) {
	if len(buffers) == 0 {
		return Result{}, fmt.Errorf("%w: no inputs", router.ErrInvalidConfig)
	}
	if config.BitDepth == 0 {
		config.BitDepth = 16
	}
	if config.BitDepth != 16 && config.BitDepth != 24 {
		return Result{}, fmt.Errorf("%w: %d (supported: 16, 24)", ErrUnsupportedBitDepth, config.BitDepth)
	}

	rate := config.SampleRate
	frames := 0
	inputs := make([]source.Reader, len(buffers))
	for i, b := range buffers {
		if rate == 0 {
			rate = b.SampleRate
		}
		if b.SampleRate != rate {
			return Result{}, fmt.Errorf("%w: input %d (%s) is %dHz, expected %dHz",
				ErrSampleRateMismatch, i, b.Name, b.SampleRate, rate)
		}
		frames = max(frames, b.Frames())
		inputs[i] = b
	}
	config.SampleRate = rate

	r, err := New(config, inputs)
	if err != nil {
		return Result{}, err
	}

	enc := wav.NewEncoder(w, rate, config.BitDepth, config.Channels, 1)
	pcm := &goaudio.IntBuffer{
		Format:         &goaudio.Format{NumChannels: config.Channels, SampleRate: rate},
		Data:           make([]int, r.block.MaxFrames()*config.Channels),
		SourceBitDepth: config.BitDepth,
	}
	interleaved := make([]float32, r.block.MaxFrames()*config.Channels)

	res, err := r.Run(schedule, frames, func(out [][]float32) error {
		n := len(out[0]) * config.Channels
		audio.Interleave(out, interleaved[:n])
		pcm.Data = pcm.Data[:n]
		for i, v := range interleaved[:n] {
			pcm.Data[i] = audio.FloatToInt(v, config.BitDepth)
		}
		return enc.Write(pcm)
	})
	if err != nil {
		return res, fmt.Errorf("failed to render: %w", err)
	}

	if err := enc.Close(); err != nil {
		return res, fmt.Errorf("failed to finalize WAV: %w", err)
	}

	log.Printf("Rendered %d frames at %dHz (%d switches, %d-bit)", res.Frames, rate, res.Switches, config.BitDepth)
	return res, nil
}
