// ABOUTME: Audio fundamentals package providing core types and utilities
// ABOUTME: Defines bus layout, block buffers and sample conversion functions
// Package audio provides the buffer layout shared by the router and the audio
// hosts that drive it.
//
// Input buffers are indexed [source][channel][frame] and output buffers
// [channel][frame]. Channel c of any input only ever feeds output channel c.
//
//   - Layout: number of input buses and channels per bus
//   - Block: preallocated input/output buffers for one audio callback
//   - Interleave / Deinterleave: allocation-free conversions to and from
//     device-native interleaved frames
//
// Example:
//
//	layout := audio.Layout{Inputs: 3, Channels: 2}
//	block := audio.NewBlock(layout, 512)
//	in, out := block.Frames(256)
package audio
