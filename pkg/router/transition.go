// ABOUTME: Transition state machine for source switching
// ABOUTME: Tracks previous/active source and elapsed frames of the fade
package router

import "time"

// Transition tracks an in-flight fade between two input buses.
// It is owned by the audio callback and is not safe for concurrent use.
//
// Invariant: 0 <= elapsed <= length, and elapsed == length implies
// previous == active.
type Transition struct {
	previous int
	active   int
	elapsed  int
	length   int
}

// NewTransition returns a steady transition on source 0 whose fades last
// length frames. Lengths below one frame are raised to one.
func NewTransition(length int) Transition {
	if length < 1 {
		length = 1
	}
	return Transition{length: length, elapsed: length}
}

// LengthFrames converts a fade duration to whole frames at sampleRate.
func LengthFrames(d time.Duration, sampleRate int) int {
	n := int((d*time.Duration(sampleRate) + time.Second/2) / time.Second)
	if n < 1 {
		n = 1
	}
	return n
}

// Request starts a fade from the currently active source to target. The fade
// restarts even when target is already active.
func (t *Transition) Request(target int) {
	t.previous = t.active
	t.active = target
	t.elapsed = 0
}

// Advance moves the fade forward by one frame, snapping to steady state once
// the full length has elapsed.
func (t *Transition) Advance() {
	if t.elapsed >= t.length {
		return
	}
	t.elapsed++
	if t.elapsed >= t.length {
		t.elapsed = t.length
		t.previous = t.active
	}
}

func (t *Transition) advanceBy(n int) {
	t.elapsed += n
	if t.elapsed >= t.length {
		t.elapsed = t.length
		t.previous = t.active
	}
}

// Progress returns elapsed/length in [0, 1].
func (t *Transition) Progress() float64 {
	return float64(t.elapsed) / float64(t.length)
}

// Steady reports whether no fade is in progress.
func (t *Transition) Steady() bool {
	return t.elapsed >= t.length
}

func (t *Transition) Previous() int      { return t.previous }
func (t *Transition) Active() int        { return t.active }
func (t *Transition) ElapsedFrames() int { return t.elapsed }
func (t *Transition) LengthFrames() int  { return t.length }

// Elapsed returns the time since the fade began at sampleRate.
func (t *Transition) Elapsed(sampleRate int) time.Duration {
	return time.Duration(t.elapsed) * time.Second / time.Duration(sampleRate)
}
