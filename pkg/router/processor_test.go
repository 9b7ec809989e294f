// ABOUTME: Tests for the block processor
// ABOUTME: Covers fade timing, retargeting, determinism and concurrent producers
package router

import (
	"errors"
	"fmt"
	"math"
	"math/rand"
	"sync"
	"testing"
	"time"

	"github.com/Resonate-Protocol/resonate-selector/pkg/audio"
	"github.com/Resonate-Protocol/resonate-selector/pkg/crossfade"
	"github.com/Resonate-Protocol/resonate-selector/pkg/ingress"
)

// newTestProcessor builds a processor whose fades last length frames at a
// 1 kHz sample rate.
func newTestProcessor(t *testing.T, inputs, channels, length int) (*Processor, *ingress.Queue) {
	t.Helper()

	queue := ingress.NewQueue(ingress.DefaultCapacity)
	proc, err := NewProcessor(Config{
		Layout:           audio.Layout{Inputs: inputs, Channels: channels},
		SampleRate:       1000,
		TransitionLength: time.Duration(length) * time.Millisecond,
	}, queue)
	if err != nil {
		t.Fatalf("NewProcessor: %v", err)
	}
	return proc, queue
}

// constantInputs returns frames of input where every sample of source s
// equals levels[s].
func constantInputs(levels []float32, channels, frames int) [][][]float32 {
	in := make([][][]float32, len(levels))
	for s, level := range levels {
		in[s] = make([][]float32, channels)
		for c := range in[s] {
			in[s][c] = make([]float32, frames)
			for i := range in[s][c] {
				in[s][c][i] = level
			}
		}
	}
	return in
}

func makeOutputs(channels, frames int) [][]float32 {
	out := make([][]float32, channels)
	for c := range out {
		out[c] = make([]float32, frames)
	}
	return out
}

// runBlocks processes total frames of in through proc in blocks of
// blockSize, returning the concatenated output of every channel.
func runBlocks(proc *Processor, in [][][]float32, total, blockSize int, before func(frame int)) [][]float32 {
	channels := len(in[0])
	result := makeOutputs(channels, total)
	for start := 0; start < total; start += blockSize {
		end := start + blockSize
		if end > total {
			end = total
		}
		if before != nil {
			before(start)
		}

		blockIn := make([][][]float32, len(in))
		for s := range in {
			blockIn[s] = make([][]float32, channels)
			for c := range in[s] {
				blockIn[s][c] = in[s][c][start:end]
			}
		}
		out := makeOutputs(channels, end-start)
		proc.Process(blockIn, out)
		for c := range out {
			copy(result[c][start:end], out[c])
		}
	}
	return result
}

func TestNewProcessorValidation(t *testing.T) {
	queue := ingress.NewQueue(8)
	layout := audio.Layout{Inputs: 2, Channels: 2}

	tests := []struct {
		name   string
		config Config
		queue  *ingress.Queue
	}{
		{"no inputs", Config{Layout: audio.Layout{Inputs: 0, Channels: 2}, SampleRate: 48000}, queue},
		{"no channels", Config{Layout: audio.Layout{Inputs: 2, Channels: 0}, SampleRate: 48000}, queue},
		{"zero sample rate", Config{Layout: layout}, queue},
		{"negative transition", Config{Layout: layout, SampleRate: 48000, TransitionLength: -time.Second}, queue},
		{"nil queue", Config{Layout: layout, SampleRate: 48000}, nil},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := NewProcessor(tt.config, tt.queue)
			if !errors.Is(err, ErrInvalidConfig) {
				t.Errorf("expected ErrInvalidConfig, got %v", err)
			}
		})
	}
}

func TestNewProcessorDefaults(t *testing.T) {
	proc, err := NewProcessor(Config{
		Layout:     audio.Layout{Inputs: 2, Channels: 2},
		SampleRate: 48000,
	}, ingress.NewQueue(8))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if proc.TransitionLength() != DefaultTransitionLength {
		t.Errorf("expected default transition length, got %v", proc.TransitionLength())
	}

	st := proc.Status()
	if st.Active != 0 || st.Transitioning {
		t.Errorf("expected steady on source 0, got %+v", st)
	}
}

func TestProcessorSteadyPassThrough(t *testing.T) {
	proc, _ := newTestProcessor(t, 2, 2, 100)

	in := constantInputs([]float32{0.5, -0.25}, 2, 64)
	in[0][1][10] = 0.75
	out := makeOutputs(2, 64)
	proc.Process(in, out)

	for c := range out {
		for i := range out[c] {
			if out[c][i] != in[0][c][i] {
				t.Fatalf("channel %d frame %d: got %v, want %v", c, i, out[c][i], in[0][c][i])
			}
		}
	}
}

func TestProcessorTransitionDuration(t *testing.T) {
	const length = 100

	for _, blockSize := range []int{1, 7, 64, 256} {
		t.Run(fmt.Sprintf("block=%d", blockSize), func(t *testing.T) {
			proc, queue := newTestProcessor(t, 2, 2, length)
			in := constantInputs([]float32{0, 1}, 2, 300)

			queue.Send(ingress.Command{Source: 1})
			out := runBlocks(proc, in, 300, blockSize, nil)

			for c := range out {
				for k := 0; k < length; k++ {
					want := float32(crossfade.Gain(float64(k) / length))
					if out[c][k] != want {
						t.Fatalf("block %d channel %d frame %d: got %v, want %v", blockSize, c, k, out[c][k], want)
					}
					if out[c][k] >= 1 {
						t.Fatalf("block %d: full gain reached early at frame %d", blockSize, k)
					}
				}
				for k := length; k < 300; k++ {
					if out[c][k] != 1 {
						t.Fatalf("block %d channel %d frame %d: expected full gain, got %v", blockSize, c, k, out[c][k])
					}
				}
			}
		})
	}
}

func TestProcessorImpulseReachesFullGainAtLength(t *testing.T) {
	const length = 50

	for _, offset := range []int{0, 10, length - 1, length, length + 3} {
		proc, queue := newTestProcessor(t, 2, 1, length)
		in := constantInputs([]float32{0, 0}, 1, 120)
		in[1][0][offset] = 1

		queue.Send(ingress.Command{Source: 1})
		out := runBlocks(proc, in, 120, 16, nil)

		got := out[0][offset]
		switch {
		case offset < length:
			want := float32(crossfade.Gain(float64(offset) / length))
			if got != want || got >= 1 {
				t.Errorf("offset %d: got %v, want partial gain %v", offset, got, want)
			}
		default:
			if got != 1 {
				t.Errorf("offset %d: expected full gain, got %v", offset, got)
			}
		}
	}
}

func TestProcessorFadeOutUsesComplement(t *testing.T) {
	const length = 40
	proc, queue := newTestProcessor(t, 2, 1, length)
	in := constantInputs([]float32{1, 0}, 1, 80)

	queue.Send(ingress.Command{Source: 1})
	out := runBlocks(proc, in, 80, 32, nil)

	if out[0][0] != 1 {
		t.Errorf("first frame should be all previous source, got %v", out[0][0])
	}
	for k := 1; k < length; k++ {
		want := float32(crossfade.Gain(1 - float64(k)/length))
		if out[0][k] != want {
			t.Fatalf("frame %d: got %v, want %v", k, out[0][k], want)
		}
	}
	if out[0][length] != 0 {
		t.Errorf("previous source should be gone at frame %d, got %v", length, out[0][length])
	}
}

func TestProcessorMidTransitionRetarget(t *testing.T) {
	const length = 100
	proc, queue := newTestProcessor(t, 3, 2, length)
	levels := []float32{1, 2, 4}
	in := constantInputs(levels, 2, 400)

	out := runBlocks(proc, in, 400, 10, func(frame int) {
		switch frame {
		case 0:
			queue.Send(ingress.Command{Source: 1})
		case length / 2:
			queue.Send(ingress.Command{Source: 2})
		}
	})

	st := proc.Status()
	if st.Active != 2 || st.Previous != 2 || st.Transitioning {
		t.Errorf("expected steady on 2, got %+v", st)
	}

	for c := range out {
		// Retarget fades from B (source 1) with no contribution of A.
		for k := 0; k < length; k++ {
			p := float64(k) / length
			want := crossfade.Blend(p, levels[1], levels[2])
			got := out[c][length/2+k]
			if got != want {
				t.Fatalf("channel %d frame %d after retarget: got %v, want %v", c, k, got, want)
			}
		}
		if out[c][length/2+length] != levels[2] {
			t.Errorf("channel %d: expected steady C after full fade, got %v", c, out[c][length/2+length])
		}
	}
}

func TestProcessorCommandsAppliedInArrivalOrder(t *testing.T) {
	tests := []struct {
		name     string
		commands []int
		previous int
		active   int
		first    float32
	}{
		{"single", []int{1}, 0, 1, 1},
		{"two", []int{1, 2}, 1, 2, 2},
		{"three", []int{1, 3, 2}, 3, 2, 8},
		{"back to start", []int{1, 0}, 1, 0, 2},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			proc, queue := newTestProcessor(t, 4, 1, 20)
			in := constantInputs([]float32{1, 2, 4, 8}, 1, 40)

			want := NewTransition(20)
			for _, src := range tt.commands {
				queue.Send(ingress.Command{Source: src})
				want.Request(src)
			}
			out := runBlocks(proc, in, 10, 10, nil)

			st := proc.Status()
			if want.Previous() != tt.previous || want.Active() != tt.active {
				t.Fatalf("reference transition: previous %d active %d", want.Previous(), want.Active())
			}
			if st.Previous != tt.previous || st.Active != tt.active {
				t.Errorf("expected previous %d active %d, got previous %d active %d",
					tt.previous, tt.active, st.Previous, st.Active)
			}
			if st.Applied != uint64(len(tt.commands)) {
				t.Errorf("expected %d applied commands, got %d", len(tt.commands), st.Applied)
			}
			// Frame 0 is all previous source.
			if out[0][0] != tt.first {
				t.Errorf("expected first frame %v, got %v", tt.first, out[0][0])
			}
		})
	}
}

func TestProcessorLatestRequestReachesFullGain(t *testing.T) {
	proc, queue := newTestProcessor(t, 4, 1, 20)
	in := constantInputs([]float32{1, 2, 4, 8}, 1, 40)

	queue.Send(ingress.Command{Source: 1})
	queue.Send(ingress.Command{Source: 2})
	out := runBlocks(proc, in, 40, 40, nil)

	for k := 0; k < 20; k++ {
		want := crossfade.Blend(float64(k)/20, 2, 4)
		if out[0][k] != want {
			t.Fatalf("frame %d: got %v, want %v", k, out[0][k], want)
		}
	}
	if out[0][20] != 4 {
		t.Errorf("expected source 2 after fade, got %v", out[0][20])
	}
}

func TestProcessorSameSourceSwitchIsTransparent(t *testing.T) {
	const total = 2000
	rng := rand.New(rand.NewSource(7))
	in := constantInputs([]float32{0, 0}, 2, total)
	for s := range in {
		for c := range in[s] {
			for i := range in[s][c] {
				in[s][c][i] = float32(rng.Float64()*2 - 1)
			}
		}
	}

	plain, _ := newTestProcessor(t, 2, 2, 300)
	want := runBlocks(plain, in, total, 64, nil)

	proc, queue := newTestProcessor(t, 2, 2, 300)
	got := runBlocks(proc, in, total, 64, func(frame int) {
		if frame == 640 {
			queue.Send(ingress.Command{Source: 0})
		}
	})

	if proc.Status().Applied != 1 {
		t.Fatal("expected the same-source command to be applied")
	}
	for c := range want {
		for i := range want[c] {
			if got[c][i] != want[c][i] {
				t.Fatalf("channel %d frame %d: got %v, want %v", c, i, got[c][i], want[c][i])
			}
		}
	}
}

func TestProcessorSameSourceSwitchRestartsState(t *testing.T) {
	proc, queue := newTestProcessor(t, 2, 1, 100)
	in := constantInputs([]float32{0.5, 0}, 1, 10)

	queue.Send(ingress.Command{Source: 0})
	runBlocks(proc, in, 10, 10, nil)

	st := proc.Status()
	if !st.Transitioning {
		t.Error("expected same-source switch to restart the fade")
	}
	if st.Elapsed != 10*time.Millisecond {
		t.Errorf("expected 10ms elapsed, got %v", st.Elapsed)
	}
}

func TestProcessorDeterministic(t *testing.T) {
	const total = 5000
	rng := rand.New(rand.NewSource(42))
	levels := make([]float32, 3)
	in := constantInputs(levels, 2, total)
	for s := range in {
		for c := range in[s] {
			for i := range in[s][c] {
				in[s][c][i] = float32(rng.Float64()*2 - 1)
			}
		}
	}

	schedule := map[int]int{128: 1, 512: 2, 1024: 0, 1088: 1, 3200: 2}
	render := func() [][]float32 {
		proc, queue := newTestProcessor(t, 3, 2, 250)
		return runBlocks(proc, in, total, 64, func(frame int) {
			if target, ok := schedule[frame]; ok {
				queue.Send(ingress.Command{Source: target})
			}
		})
	}

	first := render()
	second := render()
	for c := range first {
		for i := range first[c] {
			if math.Float32bits(first[c][i]) != math.Float32bits(second[c][i]) {
				t.Fatalf("channel %d frame %d differs: %v vs %v", c, i, first[c][i], second[c][i])
			}
		}
	}
}

func TestProcessorChannelsPairedByIndex(t *testing.T) {
	proc, queue := newTestProcessor(t, 2, 2, 1)
	in := constantInputs([]float32{0, 0}, 2, 4)
	for i := 0; i < 4; i++ {
		in[1][0][i] = 0.1
		in[1][1][i] = 0.9
	}

	queue.Send(ingress.Command{Source: 1})
	out := makeOutputs(2, 4)
	proc.Process(in, out)

	if out[0][3] != 0.1 || out[1][3] != 0.9 {
		t.Errorf("expected channels paired by index, got %v / %v", out[0][3], out[1][3])
	}
}

func TestProcessorStatus(t *testing.T) {
	proc, queue := newTestProcessor(t, 2, 1, 100)
	in := constantInputs([]float32{0, 1}, 1, 25)

	queue.Send(ingress.Command{Source: 1})
	out := makeOutputs(1, 25)
	proc.Process(in, out)

	st := proc.Status()
	if st.Active != 1 || st.Previous != 0 {
		t.Errorf("expected 0 -> 1, got %d -> %d", st.Previous, st.Active)
	}
	if !st.Transitioning {
		t.Error("expected transition in progress")
	}
	if st.Progress != 0.25 {
		t.Errorf("expected progress 0.25, got %v", st.Progress)
	}
	if st.Blocks != 1 || st.Frames != 25 {
		t.Errorf("expected 1 block / 25 frames, got %d / %d", st.Blocks, st.Frames)
	}
}

func TestProcessorConcurrentProducers(t *testing.T) {
	proc, queue := newTestProcessor(t, 4, 2, 20)
	in := constantInputs([]float32{0, 1, 2, 3}, 2, 32)
	out := makeOutputs(2, 32)

	// Each producer alternates between its own targets and finishes on a
	// distinct final value.
	producers := [][]int{{1, 2, 1, 2, 1}, {3, 0, 3, 0, 3}}
	const rounds = 200

	var wg sync.WaitGroup
	for _, targets := range producers {
		wg.Add(1)
		go func(targets []int) {
			defer wg.Done()
			for r := 0; r < rounds; r++ {
				for _, target := range targets {
					queue.Send(ingress.Command{Source: target})
				}
			}
		}(targets)
	}

	done := make(chan struct{})
	go func() {
		wg.Wait()
		close(done)
	}()

	for running := true; running; {
		select {
		case <-done:
			running = false
		default:
		}
		proc.Process(in, out)
	}
	proc.Process(in, out)

	st := proc.Status()
	if st.Active != 1 && st.Active != 3 {
		t.Errorf("expected last drained command from a producer's final value, got %d", st.Active)
	}

	want := uint64(len(producers) * rounds * len(producers[0]))
	if st.Applied+queue.Dropped() != want {
		t.Errorf("applied %d + dropped %d != sent %d", st.Applied, queue.Dropped(), want)
	}
	for c := range out {
		for i, v := range out[c] {
			if v < 0 || v > 3 {
				t.Fatalf("channel %d frame %d out of range: %v", c, i, v)
			}
		}
	}
}

func TestProcessorDoesNotAllocate(t *testing.T) {
	proc, queue := newTestProcessor(t, 3, 2, 100)
	in := constantInputs([]float32{0.1, 0.2, 0.3}, 2, 256)
	out := makeOutputs(2, 256)

	next := 0
	allocs := testing.AllocsPerRun(100, func() {
		next = (next + 1) % 3
		queue.Send(ingress.Command{Source: next})
		proc.Process(in, out)
	})
	if allocs != 0 {
		t.Errorf("expected no allocations per block, got %v", allocs)
	}
}

func BenchmarkProcessorFading(b *testing.B) {
	queue := ingress.NewQueue(ingress.DefaultCapacity)
	proc, err := NewProcessor(Config{
		Layout:           audio.Layout{Inputs: 4, Channels: 2},
		SampleRate:       48000,
		TransitionLength: time.Hour,
	}, queue)
	if err != nil {
		b.Fatal(err)
	}
	in := constantInputs([]float32{0.1, 0.2, 0.3, 0.4}, 2, 512)
	out := makeOutputs(2, 512)
	queue.Send(ingress.Command{Source: 1})

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		proc.Process(in, out)
	}
}
