// ABOUTME: Crossfade gain curve and two-sample blend
// ABOUTME: Pure functions evaluated once per output sample on the audio thread
package crossfade

import "math"

// Gain returns the gain applied to the fading-in source at progress p.
// The result is always in [0, 1]; NaN maps to 0.
func Gain(p float64) float64 {
	g := math.Exp(p-1) * p
	// Clamp also catches the NaN produced by non-finite p.
	if !(g > 0) {
		return 0
	}
	if g > 1 {
		return 1
	}
	return g
}

// Blend mixes a fading-out sample with a fading-in sample at progress p.
// Each product is rounded before the sum so results never depend on FMA
// fusion.
func Blend(p float64, previous, active float32) float32 {
	out := float32(previous * float32(Gain(1-p)))
	in := float32(active * float32(Gain(p)))
	return out + in
}
