// Package h264encoder encodes RGB24 frames to H.264 through a streaming
// ffmpeg (libx264) subprocess.
package h264encoder

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

// DefaultCRF is used when no quality is configured.
const DefaultCRF = 23

// IsAvailable reports whether ffmpeg with libx264 is installed.
func IsAvailable() bool {
	return ffmpeg.IsAvailable() && ffmpeg.HasEncoder("libx264")
}

// Encoder implements ports.Encoder with one ffmpeg process per stream.
//
// Frames are written to ffmpeg's stdin by the caller; a reader goroutine
// splits stdout into access units. Output timestamps are paired with input
// timestamps in order, since x264 runs without B-frames or lookahead.
type Encoder struct {
	format   ports.VideoFormat
	frameDur time.Duration
	proc     *ffmpeg.Process

	mu      sync.Mutex
	units   [][]byte
	readErr error
	cfg     ports.StreamConfig
	hasCfg  bool
	pts     []time.Duration

	readerDone chan struct{}
	closed     bool
}

// New starts ffmpeg for the video format in params.
func New(params ports.EncodeParams) (*Encoder, error) {
	f := params.Video
	if f.Width <= 0 || f.Height <= 0 || f.Width%2 != 0 || f.Height%2 != 0 {
		return nil, fmt.Errorf("h264encoder: size %dx%d must be positive and even", f.Width, f.Height)
	}
	fps := f.FPS
	if fps <= 0 {
		fps = 30
	}
	crf := params.Options.Quality
	if crf <= 0 || crf > 51 {
		crf = DefaultCRF
	}

	args := []string{
		"-f", "rawvideo", // Input format
		"-pix_fmt", "rgb24", // Input pixel format
		"-s", fmt.Sprintf("%dx%d", f.Width, f.Height), // Input size
		"-r", strconv.FormatFloat(fps, 'f', 2, 64), // Input frame rate
		"-i", "pipe:0", // Read from stdin
		"-c:v", "libx264",
		"-preset", "ultrafast",
		"-tune", "zerolatency",
		"-bf", "0",
		"-g", strconv.Itoa(int(fps * 2)),
		"-crf", strconv.Itoa(crf),
		"-pix_fmt", "yuv420p",
		"-x264-params", "aud=1",
		"-f", "h264",
		"pipe:1",
	}
	proc, err := ffmpeg.Start(args, true)
	if err != nil {
		return nil, err
	}

	e := &Encoder{
		format:     f,
		frameDur:   time.Duration(float64(time.Second) / fps),
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

	var sp splitter
	buf := make([]byte, 64*1024)
	for {
		n, err := r.Read(buf)
		if n > 0 {
			if units := sp.write(buf[:n]); len(units) > 0 {
				e.mu.Lock()
				e.units = append(e.units, units...)
				e.mu.Unlock()
			}
		}
		if err != nil {
			e.mu.Lock()
			if unit := sp.flush(); unit != nil {
				e.units = append(e.units, unit)
			}
			if !errors.Is(err, io.EOF) {
				e.readErr = err
			}
			e.mu.Unlock()
			return
		}
	}
}

// Encode feeds one frame and returns the access units ready so far.
func (e *Encoder) Encode(data []byte, pts time.Duration) ([]ports.EncodedSample, error) {
	if e.closed {
		return nil, ErrNotInitialized
	}
	if len(data) != e.format.FrameSize() {
		return nil, fmt.Errorf("%w: got %d bytes, want %d", ErrFrameSize, len(data), e.format.FrameSize())
	}

	e.mu.Lock()
	e.pts = append(e.pts, pts)
	e.mu.Unlock()

	if _, err := e.proc.Write(data); err != nil {
		return nil, fmt.Errorf("%w: %v: %s", ErrEncodingFailed, err, e.proc.StderrTail(400))
	}
	return e.collect()
}

// Flush closes ffmpeg's input and returns the remaining access units.
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
		return nil, fmt.Errorf("%w: read output: %v", ErrEncodingFailed, e.readErr)
	}

	var out []ports.EncodedSample
	for len(e.units) > 0 && len(e.pts) > 0 {
		au := e.units[0]
		e.units = e.units[1:]
		pts := e.pts[0]
		e.pts = e.pts[1:]

		if !e.hasCfg {
			sps, pps := extractSPSPPS(au)
			if sps == nil || pps == nil {
				return nil, ErrNoParameterSets
			}
			e.cfg = ports.StreamConfig{
				Codec:  "avc1",
				Width:  e.format.Width,
				Height: e.format.Height,
				SPS:    sps,
				PPS:    pps,
			}
			e.hasCfg = true
		}

		out = append(out, ports.EncodedSample{
			Data:     convertToAVCC(au),
			PTS:      pts,
			Duration: e.frameDur,
			Keyframe: isKeyframe(au),
		})
	}
	return out, nil
}

// Config returns the stream configuration once the first access unit arrived.
func (e *Encoder) Config() (ports.StreamConfig, bool) {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.cfg, e.hasCfg
}

// Close stops ffmpeg if it is still running.
func (e *Encoder) Close() error {
	if !e.closed {
		e.closed = true
		if err := e.proc.Kill(); err != nil {
			return err
		}
	}
	return nil
}

var _ ports.Encoder = (*Encoder)(nil)
