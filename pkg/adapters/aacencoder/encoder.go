// Package aacencoder encodes s16le audio to AAC-LC through a streaming
// ffmpeg subprocess.
package aacencoder

import (
	"errors"
	"fmt"
	"io"
	"strconv"
	"sync"
	"time"

	"github.com/user/avgrabber/pkg/adapters/ffmpeg"
	"github.com/user/avgrabber/pkg/ports"
)

const (
	// DefaultBitrate in kbps.
	DefaultBitrate = 128

	samplesPerFrame = 1024

	// Output is always stereo; the container descriptor assumes two channels.
	outputChannels = 2
)

var (
	// ErrEncodingFailed is returned when ffmpeg stops accepting audio.
	ErrEncodingFailed = errors.New("aacencoder: encoding failed")

	// ErrClosed is returned after Flush or Close.
	ErrClosed = errors.New("aacencoder: encoder closed")
)

// IsAvailable reports whether ffmpeg with its native AAC encoder is installed.
func IsAvailable() bool {
	return ffmpeg.IsAvailable() && ffmpeg.HasEncoder("aac")
}

// Encoder implements ports.Encoder with one ffmpeg process per stream.
// Each AAC frame covers 1024 samples; timestamps count frames from the
// first block's PTS.
type Encoder struct {
	format ports.AudioFormat
	proc   *ffmpeg.Process

	mu       sync.Mutex
	frames   [][]byte
	readErr  error
	started  bool
	firstPTS time.Duration
	emitted  int64

	readerDone chan struct{}
	closed     bool
}

// New starts ffmpeg for the audio format in params.
func New(params ports.EncodeParams) (*Encoder, error) {
	f := params.Audio
	if f.SampleRate <= 0 || f.Channels <= 0 {
		return nil, fmt.Errorf("aacencoder: invalid format %d Hz, %d channels", f.SampleRate, f.Channels)
	}
	bitrate := params.Options.Bitrate
	if bitrate <= 0 {
		bitrate = DefaultBitrate
	}

	args := []string{
		"-f", "s16le",
		"-ar", strconv.Itoa(f.SampleRate),
		"-ac", strconv.Itoa(f.Channels),
		"-i", "pipe:0",
		"-c:a", "aac",
		"-b:a", fmt.Sprintf("%dk", bitrate),
		"-ac", strconv.Itoa(outputChannels),
		"-f", "adts",
		"pipe:1",
	}
	proc, err := ffmpeg.Start(args, true)
	if err != nil {
		return nil, err
	}

	e := &Encoder{
		format:     f,
		proc:       proc,
		readerDone: make(chan struct{}),
	}
	go e.read(proc.Stdout())
	return e, nil
}

// Factory adapts New to ports.EncoderFactory.
func Factory(params ports.EncodeParams) (ports.Encoder, error) {
	return New(params)
}

func (e *Encoder) read(r io.Reader) {
	defer close(e.readerDone)

	var ar adtsReader
	buf := make([]byte, 16*1024)
	for {
		n, err := r.Read(buf)
		if n > 0 {
			frames, perr := ar.write(buf[:n])
			e.mu.Lock()
			e.frames = append(e.frames, frames...)
			if perr != nil {
				e.readErr = perr
			}
			e.mu.Unlock()
			if perr != nil {
				_, _ = io.Copy(io.Discard, r)
				return
			}
		}
		if err != nil {
			if !errors.Is(err, io.EOF) {
				e.mu.Lock()
				e.readErr = err
				e.mu.Unlock()
			}
			return
		}
	}
}

// Encode feeds one block and returns the AAC frames ready so far.
func (e *Encoder) Encode(data []byte, pts time.Duration) ([]ports.EncodedSample, error) {
	if e.closed {
		return nil, ErrClosed
	}
	e.mu.Lock()
	if !e.started {
		e.started = true
		e.firstPTS = pts
	}
	e.mu.Unlock()

	if _, err := e.proc.Write(data); err != nil {
		return nil, fmt.Errorf("%w: %v: %s", ErrEncodingFailed, err, e.proc.StderrTail(400))
	}
	return e.collect()
}

// Flush closes ffmpeg's input and returns the remaining frames.
func (e *Encoder) Flush() ([]ports.EncodedSample, error) {
	if e.closed {
		return nil, nil
	}
	e.closed = true

	if err := e.proc.CloseInput(); err != nil {
		return nil, fmt.Errorf("%w: close input: %v", ErrEncodingFailed, err)
	}
	<-e.readerDone
	if err := e.proc.Wait(); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrEncodingFailed, err)
	}
	return e.collect()
}

func (e *Encoder) collect() ([]ports.EncodedSample, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.readErr != nil {
		return nil, fmt.Errorf("%w: %v", ErrEncodingFailed, e.readErr)
	}

	rate := int64(e.format.SampleRate)
	frameDur := time.Duration(samplesPerFrame * int64(time.Second) / rate)
	out := make([]ports.EncodedSample, 0, len(e.frames))
	for _, f := range e.frames {
		pts := e.firstPTS + time.Duration(e.emitted*samplesPerFrame*int64(time.Second)/rate)
		out = append(out, ports.EncodedSample{
			Data:     f,
			PTS:      pts,
			Duration: frameDur,
			Keyframe: true,
		})
		e.emitted++
	}
	e.frames = e.frames[:0]
	return out, nil
}

// Config returns the stream configuration. AAC-LC needs no probing.
func (e *Encoder) Config() (ports.StreamConfig, bool) {
	return ports.StreamConfig{Codec: "mp4a", SampleRate: e.format.SampleRate, Channels: outputChannels}, true
}

// Close stops ffmpeg if it is still running.
func (e *Encoder) Close() error {
	if !e.closed {
		e.closed = true
		return e.proc.Kill()
	}
	return nil
}

var _ ports.Encoder = (*Encoder)(nil)
