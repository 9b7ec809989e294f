// ABOUTME: Crossfade law package
// ABOUTME: Maps transition progress to per-source gain
// Package crossfade implements the gain curve used when the router fades from
// one input bus to another.
//
// The fading-in source is weighted by Gain(p) and the fading-out source by
// Gain(1-p), where p is the transition progress in [0, 1]:
//
//	out := crossfade.Blend(p, previous, active)
//
// The curve is an eased ramp, e^(p-1)*p, clamped to [0, 1].
package crossfade
