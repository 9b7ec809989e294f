// ABOUTME: Lock-free status snapshot published by the audio callback
// ABOUTME: Seqlock over atomics so readers never block the writer
package router

import (
	"sync/atomic"
	"time"
)

// Status is a point-in-time view of the router for the control plane.
type Status struct {
	Active        int
	Previous      int
	Transitioning bool
	Progress      float64
	Elapsed       time.Duration
	Blocks        uint64 // blocks processed
	Frames        uint64 // frames processed
	Applied       uint64 // switch commands applied
}

// statusCell is written only by the audio callback. The writer is wait-free;
// readers retry while a publish is in progress.
type statusCell struct {
	seq      atomic.Uint64
	active   atomic.Int64
	previous atomic.Int64
	elapsed  atomic.Int64
	length   atomic.Int64
	blocks   atomic.Uint64
	frames   atomic.Uint64
	applied  atomic.Uint64
}

func (s *statusCell) publish(t *Transition, blocks, frames, applied uint64) {
	s.seq.Add(1)
	s.active.Store(int64(t.active))
	s.previous.Store(int64(t.previous))
	s.elapsed.Store(int64(t.elapsed))
	s.length.Store(int64(t.length))
	s.blocks.Store(blocks)
	s.frames.Store(frames)
	s.applied.Store(applied)
	s.seq.Add(1)
}

func (s *statusCell) load(sampleRate int) Status {
	for {
		before := s.seq.Load()
		if before&1 == 1 {
			continue
		}

		active := s.active.Load()
		previous := s.previous.Load()
		elapsed := s.elapsed.Load()
		length := s.length.Load()
		blocks := s.blocks.Load()
		frames := s.frames.Load()
		applied := s.applied.Load()

		if s.seq.Load() != before {
			continue
		}

		st := Status{
			Active:        int(active),
			Previous:      int(previous),
			Transitioning: elapsed < length,
			Progress:      1,
			Elapsed:       time.Duration(elapsed) * time.Second / time.Duration(sampleRate),
			Blocks:        blocks,
			Frames:        frames,
			Applied:       applied,
		}
		if length > 0 {
			st.Progress = float64(elapsed) / float64(length)
		}
		return st
	}
}
