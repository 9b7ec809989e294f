// ABOUTME: FLAC decoding via mewkiz/flac
// ABOUTME: Walks every frame and scales samples by the stream bit depth
package source

import (
	"errors"
	"fmt"
	"io"

	"github.com/mewkiz/flac"

	"github.com/Resonate-Protocol/resonate-selector/pkg/audio"
)

// DecodeFLAC reads an entire FLAC stream
func DecodeFLAC(r io.Reader) (*Buffer, error) {
	stream, err := flac.New(r)
	if err != nil {
		return nil, fmt.Errorf("failed to decode FLAC: %w", err)
	}
	defer stream.Close()

	info := stream.Info
	channels := int(info.NChannels)
	bitDepth := int(info.BitsPerSample)
	if channels < 1 || bitDepth < 4 || bitDepth > 32 {
		return nil, fmt.Errorf("%w: FLAC with %d channels at %d bits", ErrUnsupportedFormat, channels, bitDepth)
	}

	frames := int(info.NSamples)
	buf := newBuffer(int(info.SampleRate), channels, 0)
	for c := range buf.Data {
		buf.Data[c] = make([]float32, 0, frames)
	}

	for {
		frame, err := stream.ParseNext()
		if err != nil {
			if errors.Is(err, io.EOF) {
				break
			}
			return nil, fmt.Errorf("flac frame error: %w", err)
		}

		for c := 0; c < channels; c++ {
			for _, sample := range frame.Subframes[c].Samples[:frame.BlockSize] {
				buf.Data[c] = append(buf.Data[c], audio.IntToFloat(int(sample), bitDepth))
			}
		}
	}

	return buf, nil
}
