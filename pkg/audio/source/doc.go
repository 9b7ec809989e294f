// ABOUTME: Audio source package for decoded files and generated tones
// ABOUTME: Feeds router inputs in offline rendering and the demo host
// Package source provides per-channel float32 audio for router inputs.
//
// Files are decoded completely into memory so rendering never touches the
// decoder again:
//
//   - .wav via go-audio/wav (8, 16, 24 and 32-bit integer PCM)
//   - .mp3 via go-mp3 (always stereo 16-bit)
//   - .flac via mewkiz/flac
//
// Tone generates an endless sine for demos and tests.
//
// Example:
//
//	buf, err := source.Open("intro.wav")
//	in := make([][]float32, 2)
//	n, err := buf.ReadFrames(in)
package source
