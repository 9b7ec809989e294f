// ABOUTME: Sine tone generator
// ABOUTME: Endless deterministic test signal, one frequency per source
package source

import (
	"math"
)

// Tone generates a sine wave on every channel.
type Tone struct {
	Frequency float64
	Amplitude float32

	phase float64
	step  float64
}

// NewTone creates a tone generator for sampleRate
func NewTone(frequency float64, amplitude float32, sampleRate int) *Tone {
	return &Tone{
		Frequency: frequency,
		Amplitude: amplitude,
		step:      2 * math.Pi * frequency / float64(sampleRate),
	}
}

// ReadFrames fills every channel of dst and never runs out.
func (t *Tone) ReadFrames(dst [][]float32) (int, error) {
	if len(dst) == 0 {
		return 0, nil
	}

	n := len(dst[0])
	for i := 0; i < n; i++ {
		v := t.Amplitude * float32(math.Sin(t.phase))
		for c := range dst {
			dst[c][i] = v
		}
		t.phase += t.step
		if t.phase >= 2*math.Pi {
			t.phase -= 2 * math.Pi
		}
	}
	return n, nil
}

// ToneBank returns one tone per source at 220 Hz, 330 Hz, 440 Hz and so on,
// at half amplitude, so each source is recognisable by ear.
func ToneBank(sources, sampleRate int) []Reader {
	readers := make([]Reader, sources)
	for i := range readers {
		readers[i] = NewTone(110*float64(i+2), 0.5, sampleRate)
	}
	return readers
}
