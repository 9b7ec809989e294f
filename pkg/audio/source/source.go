// ABOUTME: Reader interface and in-memory decoded buffer
// ABOUTME: Opens audio files by extension into per-channel float32 samples
package source

import (
	"errors"
	"fmt"
	"io"
	"log"
	"os"
	"path/filepath"
	"strings"
	"time"
)

// ErrUnsupportedFormat is returned for file types and encodings that cannot
// be decoded.
var ErrUnsupportedFormat = errors.New("unsupported audio format")

// Reader produces audio frames one block at a time.
type Reader interface {
	// ReadFrames fills dst[channel][frame] and returns the number of frames
	// written, at most len(dst[0]). It returns io.EOF once exhausted.
	ReadFrames(dst [][]float32) (int, error)
}

// Buffer holds a fully decoded file. Data is indexed [channel][frame].
type Buffer struct {
	Name       string
	SampleRate int
	Data       [][]float32

	pos int
}

// Channels returns the decoded channel count
func (b *Buffer) Channels() int { return len(b.Data) }

// Frames returns the decoded length in frames
func (b *Buffer) Frames() int {
	if len(b.Data) == 0 {
		return 0
	}
	return len(b.Data[0])
}

// Duration returns the decoded length
func (b *Buffer) Duration() time.Duration {
	if b.SampleRate == 0 {
		return 0
	}
	return time.Duration(b.Frames()) * time.Second / time.Duration(b.SampleRate)
}

// Rewind restarts reading from the first frame
func (b *Buffer) Rewind() { b.pos = 0 }

// ReadFrames copies the next frames into dst. Destination channel c reads
// source channel c modulo Channels, so mono files fill every channel.
func (b *Buffer) ReadFrames(dst [][]float32) (int, error) {
	if len(dst) == 0 || b.Channels() == 0 {
		return 0, io.EOF
	}

	remaining := b.Frames() - b.pos
	if remaining <= 0 {
		return 0, io.EOF
	}

	n := min(len(dst[0]), remaining)
	for c := range dst {
		copy(dst[c][:n], b.Data[c%len(b.Data)][b.pos:b.pos+n])
	}
	b.pos += n
	return n, nil
}

// Open decodes a file chosen by extension
func Open(path string) (*Buffer, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open audio file: %w", err)
	}
	defer f.Close()

	var buf *Buffer
	ext := strings.ToLower(filepath.Ext(path))
	switch ext {
	case ".wav", ".wave":
		buf, err = DecodeWAV(f)
	case ".mp3":
		buf, err = DecodeMP3(f)
	case ".flac":
		buf, err = DecodeFLAC(f)
	default:
		return nil, fmt.Errorf("%w: %s (supported: .wav, .mp3, .flac)", ErrUnsupportedFormat, ext)
	}
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}

	filename := filepath.Base(path)
	buf.Name = strings.TrimSuffix(filename, filepath.Ext(filename))

	log.Printf("Loaded %s: %s (sample rate: %d Hz, channels: %d, duration: %v)",
		strings.TrimPrefix(ext, "."), buf.Name, buf.SampleRate, buf.Channels(), buf.Duration().Round(time.Millisecond))

	return buf, nil
}

// newBuffer allocates per-channel storage for frames frames.
func newBuffer(sampleRate, channels, frames int) *Buffer {
	data := make([][]float32, channels)
	for c := range data {
		data[c] = make([]float32, frames)
	}
	return &Buffer{SampleRate: sampleRate, Data: data}
}
