// ABOUTME: Audio host package connecting the router to audio devices
// ABOUTME: Provides Host interface with malgo, PortAudio and oto backends
// Package host drives a block callback from an audio device.
//
// Every backend delivers input as in[source][channel][frame] and expects the
// callback to fill out[channel][frame]. Device-native interleaved frames are
// converted through preallocated buffers; callbacks larger than the
// configured period are split into several calls.
//
//   - Malgo: full-duplex miniaudio device, capture channel
//     source*Channels+channel feeds in[source][channel] (default)
//   - PortAudio: non-interleaved duplex stream (build with -tags portaudio)
//   - Oto: playback only, inputs come from source.Reader generators
//
// Example:
//
//	h := host.NewMalgo(host.Config{Layout: layout, SampleRate: 48000, PeriodFrames: 512})
//	if err := h.Start(proc.Process); err != nil {
//	    log.Fatal(err)
//	}
//	defer h.Close()
package host
