// Package pcmencoder passes signed 16-bit little-endian audio through as
// QuickTime "sowt" samples.
package pcmencoder

import (
	"errors"
	"fmt"
	"time"

	"github.com/user/avgrabber/pkg/ports"
)

var (
	// ErrBlockSize is returned for blocks that are not a whole number of sample frames.
	ErrBlockSize = errors.New("pcmencoder: block is not a whole number of frames")

	// ErrClosed is returned after Flush or Close.
	ErrClosed = errors.New("pcmencoder: encoder closed")
)

// Encoder implements ports.Encoder. Each block becomes one sample.
type Encoder struct {
	format ports.AudioFormat
	closed bool
}

// New creates a PCM encoder for the audio format in params.
func New(params ports.EncodeParams) (*Encoder, error) {
	f := params.Audio
	if f.SampleRate <= 0 || f.SampleRate > ports.MaxSampleRate || f.Channels <= 0 {
		return nil, fmt.Errorf("pcmencoder: invalid format %d Hz, %d channels", f.SampleRate, f.Channels)
	}
	return &Encoder{format: f}, nil
}

// Factory adapts New to ports.EncoderFactory.
func Factory(params ports.EncodeParams) (ports.Encoder, error) {
	return New(params)
}

// Encode copies the block.
func (e *Encoder) Encode(data []byte, pts time.Duration) ([]ports.EncodedSample, error) {
	if e.closed {
		return nil, ErrClosed
	}
	frameBytes := e.format.BytesPerFrame()
	if len(data) == 0 {
		return nil, nil
	}
	if len(data)%frameBytes != 0 {
		return nil, fmt.Errorf("%w: %d bytes, %d per frame", ErrBlockSize, len(data), frameBytes)
	}

	frames := len(data) / frameBytes
	out := make([]byte, len(data))
	copy(out, data)
	return []ports.EncodedSample{{
		Data:     out,
		PTS:      pts,
		Duration: time.Duration(frames) * time.Second / time.Duration(e.format.SampleRate),
		Keyframe: true,
	}}, nil
}

// Flush ends the stream.
func (e *Encoder) Flush() ([]ports.EncodedSample, error) {
	e.closed = true
	return nil, nil
}

// Config returns the stream configuration.
func (e *Encoder) Config() (ports.StreamConfig, bool) {
	return ports.StreamConfig{Codec: "sowt", SampleRate: e.format.SampleRate, Channels: e.format.Channels}, true
}

// Close does nothing beyond marking the encoder closed.
func (e *Encoder) Close() error {
	e.closed = true
	return nil
}

var _ ports.Encoder = (*Encoder)(nil)
