package testpattern

import (
	"encoding/binary"
	"math"
)

// toneAmplitude keeps the tone well below full scale.
const toneAmplitude = 0.25 * math.MaxInt16

// Tone generates a continuous sine wave as interleaved s16le.
type Tone struct {
	freq     float64
	rate     int
	channels int
	phase    float64
}

// NewTone creates a generator for the given frequency and format.
func NewTone(freq float64, rate, channels int) *Tone {
	return &Tone{freq: freq, rate: rate, channels: channels}
}

// Fill writes len(buf)/(2*channels) frames to buf, continuing the phase of
// the previous call.
func (t *Tone) Fill(buf []byte) {
	step := 2 * math.Pi * t.freq / float64(t.rate)
	frameBytes := 2 * t.channels
	for off := 0; off+frameBytes <= len(buf); off += frameBytes {
		v := int16(toneAmplitude * math.Sin(t.phase))
		for ch := 0; ch < t.channels; ch++ {
			binary.LittleEndian.PutUint16(buf[off+2*ch:], uint16(v))
		}
		t.phase += step
		if t.phase >= 2*math.Pi {
			t.phase -= 2 * math.Pi
		}
	}
}
