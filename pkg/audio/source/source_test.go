// ABOUTME: Tests for audio sources
// ABOUTME: WAV round trips, buffer reads, tone generation and format errors
package source

import (
	"bytes"
	"errors"
	"io"
	"math"
	"os"
	"path/filepath"
	"testing"

	goaudio "github.com/go-audio/audio"
	"github.com/go-audio/wav"
)

// writeWAV encodes interleaved integer samples to a temp file.
func writeWAV(t *testing.T, rate, bitDepth, channels int, data []int) string {
	t.Helper()

	path := filepath.Join(t.TempDir(), "fixture.wav")
	f, err := os.Create(path)
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	defer f.Close()

	enc := wav.NewEncoder(f, rate, bitDepth, channels, 1)
	buf := &goaudio.IntBuffer{
		Format:         &goaudio.Format{NumChannels: channels, SampleRate: rate},
		Data:           data,
		SourceBitDepth: bitDepth,
	}
	if err := enc.Write(buf); err != nil {
		t.Fatalf("encode: %v", err)
	}
	if err := enc.Close(); err != nil {
		t.Fatalf("close encoder: %v", err)
	}
	return path
}

func TestOpenWAV(t *testing.T) {
	tests := []struct {
		name     string
		bitDepth int
		full     int
	}{
		{"16-bit", 16, 1 << 14},
		{"24-bit", 24, 1 << 22},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			// stereo: left half scale, right negative half scale
			data := []int{tt.full, -tt.full, 0, 0, tt.full, -tt.full}
			path := writeWAV(t, 44100, tt.bitDepth, 2, data)

			buf, err := Open(path)
			if err != nil {
				t.Fatalf("Open failed: %v", err)
			}

			if buf.SampleRate != 44100 {
				t.Errorf("expected 44100Hz, got %d", buf.SampleRate)
			}
			if buf.Channels() != 2 || buf.Frames() != 3 {
				t.Fatalf("expected 2ch x 3 frames, got %dch x %d", buf.Channels(), buf.Frames())
			}
			if buf.Name != "fixture" {
				t.Errorf("expected name fixture, got %q", buf.Name)
			}

			if buf.Data[0][0] != 0.5 || buf.Data[1][0] != -0.5 {
				t.Errorf("expected +/-0.5, got %v %v", buf.Data[0][0], buf.Data[1][0])
			}
			if buf.Data[0][1] != 0 {
				t.Errorf("expected silence, got %v", buf.Data[0][1])
			}
		})
	}
}

func TestDecodeWAVInvalid(t *testing.T) {
	_, err := DecodeWAV(bytes.NewReader([]byte("definitely not RIFF data")))
	if !errors.Is(err, ErrUnsupportedFormat) {
		t.Fatalf("expected ErrUnsupportedFormat, got %v", err)
	}
}

func TestOpenUnsupportedExtension(t *testing.T) {
	path := filepath.Join(t.TempDir(), "track.ogg")
	if err := os.WriteFile(path, []byte("OggS"), 0o644); err != nil {
		t.Fatal(err)
	}

	_, err := Open(path)
	if !errors.Is(err, ErrUnsupportedFormat) {
		t.Fatalf("expected ErrUnsupportedFormat, got %v", err)
	}
}

func TestDecodeGarbage(t *testing.T) {
	garbage := bytes.Repeat([]byte{0x00}, 64)

	if _, err := DecodeMP3(bytes.NewReader(garbage)); err == nil {
		t.Error("expected MP3 decode error")
	}
	if _, err := DecodeFLAC(bytes.NewReader(garbage)); err == nil {
		t.Error("expected FLAC decode error")
	}
}

func TestBufferReadFrames(t *testing.T) {
	buf := &Buffer{
		SampleRate: 1000,
		Data:       [][]float32{{1, 2, 3, 4, 5}},
	}

	dst := [][]float32{make([]float32, 3), make([]float32, 3)}

	n, err := buf.ReadFrames(dst)
	if err != nil || n != 3 {
		t.Fatalf("expected 3 frames, got %d (%v)", n, err)
	}
	// mono source feeds both destination channels
	for c := range dst {
		for i, want := range []float32{1, 2, 3} {
			if dst[c][i] != want {
				t.Errorf("ch %d frame %d: expected %v, got %v", c, i, want, dst[c][i])
			}
		}
	}

	n, err = buf.ReadFrames(dst)
	if err != nil || n != 2 {
		t.Fatalf("expected 2 remaining frames, got %d (%v)", n, err)
	}

	if _, err := buf.ReadFrames(dst); !errors.Is(err, io.EOF) {
		t.Errorf("expected io.EOF, got %v", err)
	}

	buf.Rewind()
	if n, _ := buf.ReadFrames(dst); n != 3 {
		t.Errorf("expected 3 frames after rewind, got %d", n)
	}
}

func TestBufferDuration(t *testing.T) {
	buf := newBuffer(48000, 2, 24000)
	if got := buf.Duration().Seconds(); got != 0.5 {
		t.Errorf("expected 0.5s, got %v", got)
	}
}

func TestToneFrequency(t *testing.T) {
	const rate = 48000
	tone := NewTone(1000, 0.5, rate)

	dst := [][]float32{make([]float32, rate)}
	if n, err := tone.ReadFrames(dst); err != nil || n != rate {
		t.Fatalf("expected %d frames, got %d (%v)", rate, n, err)
	}

	// one second of 1kHz crosses zero upwards 1000 times
	crossings := 0
	peak := float32(0)
	for i := 1; i < len(dst[0]); i++ {
		if dst[0][i-1] < 0 && dst[0][i] >= 0 {
			crossings++
		}
		peak = max(peak, float32(math.Abs(float64(dst[0][i]))))
	}
	if crossings < 999 || crossings > 1000 {
		t.Errorf("expected ~1000 upward crossings, got %d", crossings)
	}
	if peak > 0.5 || peak < 0.49 {
		t.Errorf("expected peak near 0.5, got %v", peak)
	}
}

func TestToneDeterministic(t *testing.T) {
	a := NewTone(440, 0.5, 44100)
	b := NewTone(440, 0.5, 44100)

	bufA := [][]float32{make([]float32, 1000), make([]float32, 1000)}
	bufB := [][]float32{make([]float32, 1000), make([]float32, 1000)}
	a.ReadFrames(bufA)
	b.ReadFrames(bufB)

	for i := range bufA[0] {
		if bufA[0][i] != bufB[0][i] || bufA[0][i] != bufA[1][i] {
			t.Fatalf("frame %d differs", i)
		}
	}
}

func TestToneBank(t *testing.T) {
	bank := ToneBank(3, 48000)
	if len(bank) != 3 {
		t.Fatalf("expected 3 tones, got %d", len(bank))
	}
	want := []float64{220, 330, 440}
	for i, r := range bank {
		if f := r.(*Tone).Frequency; f != want[i] {
			t.Errorf("tone %d: expected %vHz, got %v", i, want[i], f)
		}
	}
}
