// ABOUTME: MP3 decoding via go-mp3
// ABOUTME: Decodes the whole stream to stereo float32 channels
package source

import (
	"encoding/binary"
	"fmt"
	"io"

	"github.com/hajimehoshi/go-mp3"

	"github.com/Resonate-Protocol/resonate-selector/pkg/audio"
)

// mp3Channels is fixed by go-mp3, which always outputs interleaved stereo.
const mp3Channels = 2

// DecodeMP3 reads an entire MP3 stream
func DecodeMP3(r io.Reader) (*Buffer, error) {
	decoder, err := mp3.NewDecoder(r)
	if err != nil {
		return nil, fmt.Errorf("failed to decode MP3: %w", err)
	}

	pcm, err := io.ReadAll(decoder)
	if err != nil {
		return nil, fmt.Errorf("mp3 decode error: %w", err)
	}

	// 2 bytes per int16 sample
	frames := len(pcm) / (2 * mp3Channels)
	buf := newBuffer(decoder.SampleRate(), mp3Channels, frames)
	for i := 0; i < frames; i++ {
		for c := 0; c < mp3Channels; c++ {
			off := (i*mp3Channels + c) * 2
			buf.Data[c][i] = audio.SampleFromInt16(int16(binary.LittleEndian.Uint16(pcm[off:])))
		}
	}

	return buf, nil
}
