// Package jpegencoder encodes RGB24 frames as Motion JPEG samples.
package jpegencoder

import (
	"bytes"
	"errors"
	"fmt"
	"image"
	"image/jpeg"
	"time"

	"github.com/user/avgrabber/pkg/framebuf"
	"github.com/user/avgrabber/pkg/ports"
)

// DefaultQuality is used when no quality is configured.
const DefaultQuality = 85

var (
	// ErrFrameSize is returned for frames that do not match the configured size.
	ErrFrameSize = errors.New("jpegencoder: unexpected frame size")

	// ErrClosed is returned after Flush or Close.
	ErrClosed = errors.New("jpegencoder: encoder closed")
)

// Encoder implements ports.Encoder. Every frame is a sync sample.
type Encoder struct {
	format   ports.VideoFormat
	quality  int
	frameDur time.Duration

	img    *image.RGBA
	buf    bytes.Buffer
	closed bool
}

// New creates a JPEG encoder for the video format in params.
func New(params ports.EncodeParams) (*Encoder, error) {
	f := params.Video
	if f.Width <= 0 || f.Height <= 0 {
		return nil, fmt.Errorf("jpegencoder: invalid size %dx%d", f.Width, f.Height)
	}
	quality := params.Options.Quality
	if quality <= 0 || quality > 100 {
		quality = DefaultQuality
	}
	var frameDur time.Duration
	if f.FPS > 0 {
		frameDur = time.Duration(float64(time.Second) / f.FPS)
	}
	return &Encoder{format: f, quality: quality, frameDur: frameDur}, nil
}

// Factory adapts New to ports.EncoderFactory.
func Factory(params ports.EncodeParams) (ports.Encoder, error) {
	return New(params)
}

// Encode compresses one frame.
func (e *Encoder) Encode(data []byte, pts time.Duration) ([]ports.EncodedSample, error) {
	if e.closed {
		return nil, ErrClosed
	}
	if len(data) != e.format.FrameSize() {
		return nil, fmt.Errorf("%w: got %d bytes, want %d", ErrFrameSize, len(data), e.format.FrameSize())
	}

	e.img = framebuf.ToRGBA(data, e.format.Width, e.format.Height, e.img)
	e.buf.Reset()
	if err := jpeg.Encode(&e.buf, e.img, &jpeg.Options{Quality: e.quality}); err != nil {
		return nil, fmt.Errorf("jpegencoder: encode: %w", err)
	}

	out := make([]byte, e.buf.Len())
	copy(out, e.buf.Bytes())
	return []ports.EncodedSample{{
		Data:     out,
		PTS:      pts,
		Duration: e.frameDur,
		Keyframe: true,
	}}, nil
}

// Flush ends the stream. JPEG holds nothing back.
func (e *Encoder) Flush() ([]ports.EncodedSample, error) {
	e.closed = true
	return nil, nil
}

// Config returns the stream configuration.
func (e *Encoder) Config() (ports.StreamConfig, bool) {
	return ports.StreamConfig{Codec: "jpeg", Width: e.format.Width, Height: e.format.Height}, true
}

// Close releases the frame buffers.
func (e *Encoder) Close() error {
	e.closed = true
	e.img = nil
	return nil
}

var _ ports.Encoder = (*Encoder)(nil)
