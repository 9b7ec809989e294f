// ABOUTME: Audio type definitions
// ABOUTME: Defines bus layout, block buffers and sample conversion helpers
package audio

import (
	"errors"
	"fmt"
	"math"
)

const (
	// 24-bit audio range constants
	Max24Bit = 8388607  // 2^23 - 1
	Min24Bit = -8388608 // -2^23
)

// ErrInvalidLayout is returned when a layout has no inputs or no channels.
var ErrInvalidLayout = errors.New("invalid bus layout")

// Layout describes the fixed bus topology: Inputs buses of Channels channels
// each, plus one output bus of Channels channels.
type Layout struct {
	Inputs   int
	Channels int
}

// Validate checks that the layout describes at least one mono input.
func (l Layout) Validate() error {
	if l.Inputs < 1 {
		return fmt.Errorf("%w: inputs must be >= 1, got %d", ErrInvalidLayout, l.Inputs)
	}
	if l.Channels < 1 {
		return fmt.Errorf("%w: channels must be >= 1, got %d", ErrInvalidLayout, l.Channels)
	}
	return nil
}

// CaptureChannels returns the number of interleaved capture channels a device
// must provide: every channel of every input bus.
func (l Layout) CaptureChannels() int {
	return l.Inputs * l.Channels
}

// CaptureIndex maps (source, channel) to the interleaved capture channel.
func (l Layout) CaptureIndex(source, channel int) int {
	return source*l.Channels + channel
}

// InputPortName returns the port name for channel of input bus source.
func InputPortName(source, channel int) string {
	return fmt.Sprintf("in_%d_%d", source, channel)
}

// OutputPortName returns the port name for output channel.
func OutputPortName(channel int) string {
	return fmt.Sprintf("out_%d", channel)
}

// Block holds preallocated buffers for one callback of up to MaxFrames frames.
// Frames returns views sized for the current callback without allocating.
type Block struct {
	layout    Layout
	maxFrames int

	inStore  [][][]float32
	outStore [][]float32

	inView  [][][]float32
	outView [][]float32
}

// NewBlock allocates buffers for layout with room for maxFrames frames.
func NewBlock(layout Layout, maxFrames int) *Block {
	b := &Block{
		layout:    layout,
		maxFrames: maxFrames,
		inStore:   make([][][]float32, layout.Inputs),
		outStore:  make([][]float32, layout.Channels),
		inView:    make([][][]float32, layout.Inputs),
		outView:   make([][]float32, layout.Channels),
	}

	for s := 0; s < layout.Inputs; s++ {
		b.inStore[s] = make([][]float32, layout.Channels)
		b.inView[s] = make([][]float32, layout.Channels)
		for c := 0; c < layout.Channels; c++ {
			b.inStore[s][c] = make([]float32, maxFrames)
		}
	}
	for c := 0; c < layout.Channels; c++ {
		b.outStore[c] = make([]float32, maxFrames)
	}

	return b
}

// MaxFrames returns the largest frame count Frames accepts.
func (b *Block) MaxFrames() int { return b.maxFrames }

// Layout returns the bus layout of the block.
func (b *Block) Layout() Layout { return b.layout }

// Frames returns input and output views of n frames (n <= MaxFrames).
// The views alias the block storage and are only valid until the next call.
func (b *Block) Frames(n int) (in [][][]float32, out [][]float32) {
	for s := range b.inStore {
		for c := range b.inStore[s] {
			b.inView[s][c] = b.inStore[s][c][:n]
		}
	}
	for c := range b.outStore {
		b.outView[c] = b.outStore[c][:n]
	}
	return b.inView, b.outView
}

// Deinterleave splits interleaved capture frames into in[source][channel].
// The number of frames is len(in[0][0]).
func Deinterleave(layout Layout, interleaved []float32, in [][][]float32) {
	stride := layout.CaptureChannels()
	for s := 0; s < layout.Inputs; s++ {
		for c := 0; c < layout.Channels; c++ {
			k := layout.CaptureIndex(s, c)
			dst := in[s][c]
			for i := range dst {
				dst[i] = interleaved[i*stride+k]
			}
		}
	}
}

// Interleave writes out[channel] as interleaved playback frames.
func Interleave(out [][]float32, interleaved []float32) {
	stride := len(out)
	for c, src := range out {
		for i, v := range src {
			interleaved[i*stride+c] = v
		}
	}
}

// FloatToInt converts a [-1, 1] float sample to a signed integer of bitDepth
// bits, clipping out-of-range input.
func FloatToInt(sample float32, bitDepth int) int {
	maxVal := float64(int64(1)<<(bitDepth-1)) - 1
	v := math.Round(float64(sample) * (maxVal + 1))
	if v > maxVal {
		return int(maxVal)
	}
	if v < -maxVal-1 {
		return int(-maxVal - 1)
	}
	return int(v)
}

// IntToFloat converts a signed integer sample of bitDepth bits to [-1, 1).
func IntToFloat(sample int, bitDepth int) float32 {
	return float32(float64(sample) / float64(int64(1)<<(bitDepth-1)))
}

// SampleFromInt16 converts an int16 sample to float.
func SampleFromInt16(sample int16) float32 {
	return IntToFloat(int(sample), 16)
}

// SampleToInt16 converts a float sample to int16 with clipping.
func SampleToInt16(sample float32) int16 {
	return int16(FloatToInt(sample, 16))
}
