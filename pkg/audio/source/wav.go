// ABOUTME: WAV decoding via go-audio/wav
// ABOUTME: Integer PCM of any common bit depth to float32 channels
package source

import (
	"fmt"
	"io"

	"github.com/go-audio/wav"

	"github.com/Resonate-Protocol/resonate-selector/pkg/audio"
)

const (
	wavFormatPCM        = 1
	wavFormatExtensible = 0xFFFE
)

// DecodeWAV reads an entire integer PCM WAV stream
func DecodeWAV(r io.ReadSeeker) (*Buffer, error) {
	dec := wav.NewDecoder(r)
	if !dec.IsValidFile() {
		return nil, fmt.Errorf("%w: not a valid WAV file", ErrUnsupportedFormat)
	}
	if dec.WavAudioFormat != wavFormatPCM && dec.WavAudioFormat != wavFormatExtensible {
		return nil, fmt.Errorf("%w: WAV encoding %d (only integer PCM)", ErrUnsupportedFormat, dec.WavAudioFormat)
	}

	pcm, err := dec.FullPCMBuffer()
	if err != nil {
		return nil, fmt.Errorf("failed to decode WAV: %w", err)
	}

	channels := pcm.Format.NumChannels
	if channels < 1 {
		return nil, fmt.Errorf("%w: WAV with %d channels", ErrUnsupportedFormat, channels)
	}
	bitDepth := int(dec.BitDepth)
	frames := len(pcm.Data) / channels

	buf := newBuffer(pcm.Format.SampleRate, channels, frames)
	for i := 0; i < frames; i++ {
		for c := 0; c < channels; c++ {
			v := pcm.Data[i*channels+c]
			if bitDepth == 8 {
				// 8-bit WAV is unsigned
				v -= 128
			}
			buf.Data[c][i] = audio.IntToFloat(v, bitDepth)
		}
	}

	return buf, nil
}
