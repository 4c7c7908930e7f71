// Package recorder encodes captured video and audio on a background worker
// and multiplexes them into a container file.
package recorder

import (
	"fmt"
	"path/filepath"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"github.com/user/avgrabber/pkg/catalog"
	"github.com/user/avgrabber/pkg/pipeline"
	"github.com/user/avgrabber/pkg/ports"
)

// Track numbers in the container.
const (
	TrackVideo = 0
	TrackAudio = 1
)

// Default option values.
const (
	DefaultDataDir    = "data"
	DefaultVideoQueue = 8
	DefaultAudioQueue = 256
	DefaultMaxLag     = 500 * time.Millisecond

	warnInterval = time.Second
)

// Options configures a Recorder.
type Options struct {
	// DataDir is the base for relative output paths.
	DataDir string
	// VideoQueue and AudioQueue bound the samples waiting for the encoder.
	// When full the oldest sample is dropped.
	VideoQueue int
	AudioQueue int
	// MaxLag bounds how long one track may hold back the other.
	MaxLag time.Duration
	// Video and Audio are passed to the encoders.
	Video ports.EncoderOptions
	Audio ports.EncoderOptions
}

func (o Options) withDefaults() Options {
	if o.DataDir == "" {
		o.DataDir = DefaultDataDir
	}
	if o.VideoQueue <= 0 {
		o.VideoQueue = DefaultVideoQueue
	}
	if o.AudioQueue <= 0 {
		o.AudioQueue = DefaultAudioQueue
	}
	if o.MaxLag <= 0 {
		o.MaxLag = DefaultMaxLag
	}
	return o
}

// Setup describes the streams a recording will contain.
type Setup struct {
	VideoCodec catalog.Codec
	Video      ports.VideoFormat
	// AudioCodec is zero for video-only recordings.
	AudioCodec catalog.Codec
	Audio      ports.AudioFormat
}

// HasAudio reports whether an audio track is recorded.
func (s Setup) HasAudio() bool {
	return !s.AudioCodec.IsZero()
}

// Result describes a finished recording.
type Result struct {
	ID        string
	Path      string
	StartedAt time.Time
	Duration  time.Duration

	VideoCodec   string
	AudioCodec   string
	VideoSamples int
	AudioSamples int
	VideoDropped uint64
	AudioDropped uint64
	// Late counts samples written behind an already written timestamp.
	Late  int
	Bytes int64
}

// Recorder records one job at a time.
// Push methods may be called from any goroutine; Init, Start and Stop are
// serialized internally.
type Recorder struct {
	fs       ports.FileSystem
	newMuxer ports.MuxerFactory
	clock    ports.Clock
	logger   ports.Logger
	opts     Options

	mu      sync.Mutex
	setup   *Setup
	current atomic.Pointer[job]
	last    atomic.Pointer[Result]

	errMu   sync.Mutex
	onError func(error)
}

// New creates a recorder.
func New(fs ports.FileSystem, newMuxer ports.MuxerFactory, clock ports.Clock, logger ports.Logger, opts Options) *Recorder {
	return &Recorder{
		fs:       fs,
		newMuxer: newMuxer,
		clock:    clock,
		logger:   logger.WithComponent("recorder"),
		opts:     opts.withDefaults(),
	}
}

// OnError sets the handler for errors that end a recording without a Stop call.
// The handler is called from the recording worker.
func (r *Recorder) OnError(fn func(error)) {
	r.errMu.Lock()
	defer r.errMu.Unlock()
	r.onError = fn
}

// Init validates and stores the stream setup.
func (r *Recorder) Init(s Setup) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.current.Load() != nil {
		return ErrAlreadyRecording
	}
	if s.VideoCodec.IsZero() {
		return fmt.Errorf("%w: no video codec", catalog.ErrDeviceNotFound)
	}
	if s.VideoCodec.Kind != ports.KindVideo {
		return fmt.Errorf("%w: %q is not a video codec", catalog.ErrDeviceNotFound, s.VideoCodec.Name)
	}
	if s.Video.Width <= 0 || s.Video.Height <= 0 {
		return fmt.Errorf("recorder: invalid video size %dx%d", s.Video.Width, s.Video.Height)
	}
	if s.HasAudio() {
		if s.AudioCodec.Kind != ports.KindAudio {
			return fmt.Errorf("%w: %q is not an audio codec", catalog.ErrDeviceNotFound, s.AudioCodec.Name)
		}
		if s.Audio.SampleRate <= 0 || s.Audio.Channels <= 0 {
			return fmt.Errorf("recorder: invalid audio format %d Hz, %d channels", s.Audio.SampleRate, s.Audio.Channels)
		}
	}

	r.setup = &s
	r.logger.Debug("Recorder initialized: %s %dx%d, audio %s", s.VideoCodec.Name, s.Video.Width, s.Video.Height, s.AudioCodec.Name)
	return nil
}

// IsInitialized reports whether Init succeeded.
func (r *Recorder) IsInitialized() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.setup != nil
}

// IsRecording reports whether a job is active.
func (r *Recorder) IsRecording() bool {
	return r.current.Load() != nil
}

// LastResult returns the result of the most recently finished job.
func (r *Recorder) LastResult() (Result, bool) {
	res := r.last.Load()
	if res == nil {
		return Result{}, false
	}
	return *res, true
}

// Start begins recording to path. Samples stamped before startPTS are
// discarded and the rest are written relative to it.
func (r *Recorder) Start(path string, startPTS time.Duration) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.setup == nil {
		return ErrNotInitialized
	}
	if r.current.Load() != nil {
		return ErrAlreadyRecording
	}
	if path == "" {
		return fmt.Errorf("recorder: empty output path")
	}

	full := path
	if !filepath.IsAbs(full) {
		full = filepath.Join(r.opts.DataDir, full)
	}

	j, err := r.newJob(*r.setup, full, startPTS)
	if err != nil {
		return err
	}

	r.current.Store(j)
	go r.run(j)

	r.logger.Info("Recording started: %s", full)
	r.logger.Debug("Job %s starts at %v", j.id, startPTS)
	return nil
}

// Stop ends the active job and waits until the file is complete.
// It is a no-op when idle.
func (r *Recorder) Stop() (Result, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	j := r.current.Load()
	if j == nil {
		return Result{}, nil
	}
	if !j.claimed.CompareAndSwap(false, true) {
		// The worker or Abort owns the job and reports its outcome.
		<-j.done
		return Result{}, nil
	}

	close(j.stop)
	<-j.done
	r.current.CompareAndSwap(j, nil)

	if j.err != nil {
		r.logger.Error("Recording failed: %v", j.err)
		return j.result, j.err
	}
	r.logger.Info("Recording saved to %s (%d video, %d audio samples)", j.result.Path, j.result.VideoSamples, j.result.AudioSamples)
	return j.result, nil
}

// Abort ends the active job from a goroutine other than the caller of Stop,
// finalizing what was written so far.
func (r *Recorder) Abort(cause error) {
	j := r.current.Load()
	if j == nil || !j.claimed.CompareAndSwap(false, true) {
		return
	}
	// The job stays current until finalized so a concurrent Stop waits on it.
	close(j.stop)
	<-j.done
	r.current.CompareAndSwap(j, nil)

	r.logger.Warn("Recording aborted: %v", cause)
	if j.err != nil {
		r.logger.Error("Recording failed: %v", j.err)
	}
}

// PushVideo queues an RGB24 frame captured at pts. It never blocks.
func (r *Recorder) PushVideo(pix []byte, pts time.Duration) {
	if j := r.current.Load(); j != nil && !j.claimed.Load() {
		j.push(&j.video, pix, pts, r.clock.Now())
	}
}

// PushAudio queues an s16le block captured at pts. It never blocks.
func (r *Recorder) PushAudio(block []byte, pts time.Duration) {
	if j := r.current.Load(); j != nil && j.audio.enc != nil && !j.claimed.Load() {
		j.push(&j.audio, block, pts, r.clock.Now())
	}
}

func (r *Recorder) report(err error) {
	r.errMu.Lock()
	fn := r.onError
	r.errMu.Unlock()
	if fn != nil {
		fn(err)
	}
}

func (r *Recorder) newJob(s Setup, path string, startPTS time.Duration) (*job, error) {
	params := ports.EncodeParams{Video: s.Video, Audio: s.Audio}

	params.Options = r.opts.Video
	venc, err := s.VideoCodec.NewEncoder(params)
	if err != nil {
		return nil, fmt.Errorf("create %s encoder: %w", s.VideoCodec.Name, err)
	}
	tracks := []ports.MediaKind{ports.KindVideo}

	var aenc ports.Encoder
	if s.HasAudio() {
		params.Options = r.opts.Audio
		aenc, err = s.AudioCodec.NewEncoder(params)
		if err != nil {
			_ = venc.Close()
			return nil, fmt.Errorf("create %s encoder: %w", s.AudioCodec.Name, err)
		}
		tracks = append(tracks, ports.KindAudio)
	}

	closeEncoders := func() {
		_ = venc.Close()
		if aenc != nil {
			_ = aenc.Close()
		}
	}

	if err := r.fs.MkdirAll(filepath.Dir(path)); err != nil {
		closeEncoders()
		return nil, fmt.Errorf("create output directory: %w", err)
	}
	file, err := r.fs.Create(path)
	if err != nil {
		closeEncoders()
		return nil, fmt.Errorf("create output file: %w", err)
	}
	mux, err := r.newMuxer(file, ports.MuxerOptions{
		Tracks:    tracks,
		QuickTime: strings.EqualFold(filepath.Ext(path), ".mov"),
	})
	if err != nil {
		closeEncoders()
		_ = file.Close()
		_ = r.fs.Remove(path)
		return nil, fmt.Errorf("create muxer: %w", err)
	}

	j := &job{
		id:        uuid.NewString(),
		path:      path,
		startPTS:  startPTS,
		startedAt: r.clock.Now(),
		file:      file,
		mux:       mux,
		merger:    pipeline.NewMerger(len(tracks), r.opts.MaxLag),
		stop:      make(chan struct{}),
		done:      make(chan struct{}),
		logger:    r.logger,
	}
	j.video = stream{
		kind:  ports.KindVideo,
		track: TrackVideo,
		codec: s.VideoCodec.Name,
		enc:   venc,
		queue: make(chan pipeline.RawSample, r.opts.VideoQueue),
	}
	if aenc != nil {
		j.audio = stream{
			kind:  ports.KindAudio,
			track: TrackAudio,
			codec: s.AudioCodec.Name,
			enc:   aenc,
			queue: make(chan pipeline.RawSample, r.opts.AudioQueue),
		}
	}
	return j, nil
}

func (r *Recorder) run(j *job) {
	defer close(j.done)

	err := j.process()
	j.result = j.summarize(r.fs)
	r.last.Store(&j.result)
	if err == nil {
		return
	}

	j.err = fmt.Errorf("%w: %w", ErrEncodeWrite, err)
	if j.claimed.CompareAndSwap(false, true) {
		r.current.CompareAndSwap(j, nil)
		r.logger.Error("Recording failed: %v", j.err)
		r.report(j.err)
	}
}
