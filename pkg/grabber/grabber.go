// Package grabber combines device selection, live capture and recording
// behind one string-keyed API.
//
// A typical tick loop:
//
//	g := grabber.New(opts)
//	w, h, err := g.InitGrabber(640, 480)
//	for running {
//		if err := g.Update(); err != nil { ... }
//		if g.IsFrameNew() {
//			show(g.Pixels(), w, h)
//		}
//	}
//	g.Close()
package grabber

import (
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"

	"github.com/user/avgrabber/pkg/catalog"
	"github.com/user/avgrabber/pkg/framebuf"
	"github.com/user/avgrabber/pkg/ports"
	"github.com/user/avgrabber/pkg/recorder"
)

// Defaults for Options.
const (
	DefaultWidth      = 640
	DefaultHeight     = 480
	DefaultFPS        = 30
	DefaultSampleRate = 48000
	DefaultChannels   = 2

	maxPendingErrors = 16
)

// active guards against two grabbers holding devices at once.
var active atomic.Bool

// Options wires a Grabber to its collaborators.
// FileSystem, Muxer, Clock and Logger are required.
type Options struct {
	Providers  []ports.DeviceProvider
	Codecs     []catalog.Codec
	FileSystem ports.FileSystem
	Muxer      ports.MuxerFactory
	Clock      ports.Clock
	Logger     ports.Logger

	// DebugSink receives every SnapshotEvery-th preview frame and the
	// metadata of finished recordings. Optional.
	DebugSink     ports.DebugSink
	SnapshotEvery int

	// Width and Height are used by InitGrabberWithoutPreview.
	Width      int
	Height     int
	FPS        float64
	SampleRate int
	Channels   int

	Recorder recorder.Options
}

func (o Options) withDefaults() Options {
	if o.Width <= 0 {
		o.Width = DefaultWidth
	}
	if o.Height <= 0 {
		o.Height = DefaultHeight
	}
	if o.FPS <= 0 {
		o.FPS = DefaultFPS
	}
	if o.SampleRate <= 0 {
		o.SampleRate = DefaultSampleRate
	}
	if o.Channels <= 0 {
		o.Channels = DefaultChannels
	}
	return o
}

// Stats reports capture counters.
type Stats struct {
	// Preview counts frames through the preview exchange.
	Preview framebuf.Stats
	// VideoFrames and AudioBlocks count what the devices delivered.
	VideoFrames uint64
	AudioBlocks uint64
	// Rejected counts video frames of the wrong size.
	Rejected uint64
}

type state int

const (
	stateUninitialized state = iota
	stateInitialized
	stateClosed
)

// Grabber selects devices and codecs, runs a capture session and records it.
// Setup methods and Update must be called from one goroutine.
type Grabber struct {
	opts    Options
	catalog *catalog.Catalog
	logger  ports.Logger

	videoDevice catalog.Device
	audioDevice catalog.Device
	videoCodec  catalog.Codec
	audioCodec  catalog.Codec
	useAudio    bool

	state    state
	session  *session
	rec      *recorder.Recorder
	recReady bool

	frame    *framebuf.Frame
	frameNew bool

	errMu   sync.Mutex
	pending []error
}

// New creates a grabber.
func New(opts Options) *Grabber {
	opts = opts.withDefaults()
	return &Grabber{
		opts:    opts,
		catalog: catalog.New(opts.Providers, opts.Codecs, opts.Logger),
		logger:  opts.Logger.WithComponent("grabber"),
	}
}

// ListVideoDevices returns the names of the available video devices.
func (g *Grabber) ListVideoDevices() ([]string, error) {
	return g.catalog.ListVideoDevices()
}

// ListAudioDevices returns the names of the available audio devices.
func (g *Grabber) ListAudioDevices() ([]string, error) {
	return g.catalog.ListAudioDevices()
}

// ListVideoCodecs returns the names of the available video codecs.
func (g *Grabber) ListVideoCodecs() []string {
	return g.catalog.ListVideoCodecs()
}

// ListAudioCodecs returns the names of the available audio codecs.
func (g *Grabber) ListAudioCodecs() []string {
	return g.catalog.ListAudioCodecs()
}

// SetVideoDeviceID selects the video device by name.
// On error the previous selection is kept.
func (g *Grabber) SetVideoDeviceID(name string) error {
	if err := g.checkSetup(); err != nil {
		return err
	}
	d, err := g.catalog.ResolveVideoDevice(name)
	if err != nil {
		return err
	}
	g.videoDevice = d
	return nil
}

// SetAudioDeviceID selects the audio device by name.
// On error the previous selection is kept.
func (g *Grabber) SetAudioDeviceID(name string) error {
	if err := g.checkSetup(); err != nil {
		return err
	}
	d, err := g.catalog.ResolveAudioDevice(name)
	if err != nil {
		return err
	}
	g.audioDevice = d
	return nil
}

// SetVideoCodec selects the codec used for recording video.
func (g *Grabber) SetVideoCodec(name string) error {
	if err := g.checkSetup(); err != nil {
		return err
	}
	c, err := g.catalog.ResolveVideoCodec(name)
	if err != nil {
		return err
	}
	g.videoCodec = c
	return nil
}

// SetAudioCodec selects the codec used for recording audio.
func (g *Grabber) SetAudioCodec(name string) error {
	if err := g.checkSetup(); err != nil {
		return err
	}
	c, err := g.catalog.ResolveAudioCodec(name)
	if err != nil {
		return err
	}
	g.audioCodec = c
	return nil
}

// SetUseAudio enables audio capture. Audio is off by default.
func (g *Grabber) SetUseAudio(use bool) error {
	if err := g.checkSetup(); err != nil {
		return err
	}
	g.useAudio = use
	return nil
}

func (g *Grabber) checkSetup() error {
	if g.state == stateInitialized {
		return fmt.Errorf("%w: selection after initialization", ErrInvalidState)
	}
	return nil
}

// InitGrabber opens the devices and starts capture. The requested size is a
// hint; the negotiated size is returned and must be used from then on.
func (g *Grabber) InitGrabber(width, height int) (int, int, error) {
	if width <= 0 || height <= 0 {
		return 0, 0, fmt.Errorf("grabber: invalid size %dx%d", width, height)
	}
	if err := g.init(width, height, true); err != nil {
		return 0, 0, err
	}
	return g.Width(), g.Height(), nil
}

// InitGrabberWithoutPreview opens the devices at the configured size without
// a preview buffer. Update, IsFrameNew and Pixels are then unavailable.
func (g *Grabber) InitGrabberWithoutPreview() error {
	return g.init(g.opts.Width, g.opts.Height, false)
}

func (g *Grabber) init(width, height int, preview bool) error {
	if g.state == stateInitialized {
		return fmt.Errorf("%w: already initialized", ErrInvalidState)
	}
	if !active.CompareAndSwap(false, true) {
		return fmt.Errorf("%w: another grabber is active", ErrInvalidState)
	}

	cfg, err := g.sessionConfig(width, height, preview)
	if err != nil {
		active.Store(false)
		return err
	}
	s, err := openSession(cfg)
	if err != nil {
		active.Store(false)
		return err
	}

	g.session = s
	g.rec = cfg.rec
	g.recReady = false
	g.frame = nil
	g.frameNew = false
	g.state = stateInitialized
	g.logger.Info("Capturing from %s at %dx%d", s.videoName, s.format.Width, s.format.Height)
	return nil
}

func (g *Grabber) sessionConfig(width, height int, preview bool) (sessionConfig, error) {
	video := g.videoDevice
	if video.IsZero() {
		d, err := g.catalog.DefaultVideoDevice()
		if err != nil {
			return sessionConfig{}, err
		}
		video = d
	}

	var audio catalog.Device
	if g.useAudio {
		audio = g.audioDevice
		if audio.IsZero() {
			d, err := g.catalog.DefaultAudioDevice()
			if err != nil {
				return sessionConfig{}, err
			}
			audio = d
		}
	}

	rec := recorder.New(g.opts.FileSystem, g.opts.Muxer, g.opts.Clock, g.opts.Logger, g.opts.Recorder)
	rec.OnError(g.report)

	return sessionConfig{
		video:    video,
		audio:    audio,
		width:    width,
		height:   height,
		fps:      g.opts.FPS,
		audioFmt: ports.AudioFormat{SampleRate: g.opts.SampleRate, Channels: g.opts.Channels},
		preview:  preview,
		clock:    g.opts.Clock,
		rec:      rec,
		onLost:   g.report,
		logger:   g.opts.Logger.WithComponent("session"),
	}, nil
}

// report queues an asynchronous error for Update or Err.
// It is called from device and recorder goroutines.
func (g *Grabber) report(err error) {
	g.logger.Error("%v", err)
	g.errMu.Lock()
	defer g.errMu.Unlock()
	if len(g.pending) == maxPendingErrors {
		copy(g.pending, g.pending[1:])
		g.pending = g.pending[:len(g.pending)-1]
	}
	g.pending = append(g.pending, err)
}

// Err returns and clears the asynchronous errors reported since the last call.
func (g *Grabber) Err() error {
	g.errMu.Lock()
	defer g.errMu.Unlock()
	err := errors.Join(g.pending...)
	g.pending = nil
	return err
}

// Update promotes the latest captured frame, if any, and returns errors
// reported by devices or the recorder since the last call. It never blocks.
func (g *Grabber) Update() error {
	if g.state != stateInitialized {
		return fmt.Errorf("%w: update before initialization", ErrInvalidState)
	}
	if g.session.exchange == nil {
		return fmt.Errorf("%w: update without preview", ErrInvalidState)
	}

	f, ok := g.session.exchange.Take()
	g.frameNew = ok
	if ok {
		g.frame = f
		g.snapshot(f)
	}
	return g.Err()
}

func (g *Grabber) snapshot(f *framebuf.Frame) {
	sink := g.opts.DebugSink
	if sink == nil || g.opts.SnapshotEvery <= 0 || !sink.Enabled() {
		return
	}
	if f.Seq%uint64(g.opts.SnapshotEvery) != 0 {
		return
	}
	if err := sink.SaveFrame(f.Seq, f.Image()); err != nil {
		g.logger.Warn("Failed to save snapshot %d: %v", f.Seq, err)
	}
}

// IsFrameNew reports whether the last Update promoted a new frame.
// It returns true once per promoted frame.
func (g *Grabber) IsFrameNew() bool {
	isNew := g.frameNew
	g.frameNew = false
	return isNew
}

// Pixels returns the current RGB24 frame. The slice is borrowed and valid
// until the next Update.
func (g *Grabber) Pixels() []byte {
	if g.frame == nil {
		return nil
	}
	return g.frame.Pix
}

// Frame returns the current frame with its sequence number and timestamp.
func (g *Grabber) Frame() *framebuf.Frame {
	return g.frame
}

// Width returns the negotiated frame width.
func (g *Grabber) Width() int {
	if g.session == nil {
		return 0
	}
	return g.session.format.Width
}

// Height returns the negotiated frame height.
func (g *Grabber) Height() int {
	if g.session == nil {
		return 0
	}
	return g.session.format.Height
}

// VideoDeviceName returns the name of the open video device.
func (g *Grabber) VideoDeviceName() string {
	if g.session == nil {
		return ""
	}
	return g.session.videoName
}

// AudioDeviceName returns the name of the open audio device, or "" without audio.
func (g *Grabber) AudioDeviceName() string {
	if g.session == nil || g.session.audio == nil {
		return ""
	}
	return g.session.audioName
}

// FPS returns the negotiated frame rate.
func (g *Grabber) FPS() float64 {
	if g.session == nil {
		return 0
	}
	return g.session.format.FPS
}

// AudioFormat returns the negotiated audio format; zero without audio.
func (g *Grabber) AudioFormat() ports.AudioFormat {
	if g.session == nil || g.session.audio == nil {
		return ports.AudioFormat{}
	}
	return g.session.audioFmt
}

// InitRecording prepares the encoders for the selected codecs.
func (g *Grabber) InitRecording() error {
	if g.state != stateInitialized {
		return fmt.Errorf("%w: recording before initialization", ErrInvalidState)
	}

	video := g.videoCodec
	if video.IsZero() {
		c, err := g.catalog.DefaultVideoCodec()
		if err != nil {
			return err
		}
		video = c
	}
	setup := recorder.Setup{VideoCodec: video, Video: g.session.format}

	if g.session.audio != nil {
		audio := g.audioCodec
		if audio.IsZero() {
			c, err := g.catalog.DefaultAudioCodec()
			if err != nil {
				return err
			}
			audio = c
		}
		setup.AudioCodec = audio
		setup.Audio = g.session.audioFmt
	}

	if err := g.rec.Init(setup); err != nil {
		if errors.Is(err, recorder.ErrAlreadyRecording) {
			return fmt.Errorf("%w: %w", ErrInvalidState, err)
		}
		return err
	}
	g.recReady = true
	return nil
}

// StartRecording begins writing to path. Relative paths resolve against the
// recorder data directory.
func (g *Grabber) StartRecording(path string) error {
	if g.state != stateInitialized || !g.recReady {
		return fmt.Errorf("%w: %w", ErrInvalidState, recorder.ErrNotInitialized)
	}
	return g.rec.Start(path, g.session.now())
}

// StopRecording finalizes the active recording. It is a no-op when idle.
func (g *Grabber) StopRecording() (recorder.Result, error) {
	if g.rec == nil {
		return recorder.Result{}, nil
	}
	res, err := g.rec.Stop()
	if res.ID != "" {
		g.saveRecording(res)
	}
	return res, err
}

func (g *Grabber) saveRecording(res recorder.Result) {
	sink := g.opts.DebugSink
	if sink == nil || !sink.Enabled() {
		return
	}
	data, err := json.MarshalIndent(res, "", "  ")
	if err != nil {
		g.logger.Warn("Failed to encode recording metadata: %v", err)
		return
	}
	if err := sink.SaveRecordingJSON(data); err != nil {
		g.logger.Warn("Failed to save recording metadata: %v", err)
	}
}

// IsRecording reports whether a recording is active.
func (g *Grabber) IsRecording() bool {
	return g.rec != nil && g.rec.IsRecording()
}

// LastRecording returns the result of the most recent recording of this session.
func (g *Grabber) LastRecording() (recorder.Result, bool) {
	if g.rec == nil {
		return recorder.Result{}, false
	}
	return g.rec.LastResult()
}

// Stats returns capture counters.
func (g *Grabber) Stats() Stats {
	if g.session == nil {
		return Stats{}
	}
	st := Stats{
		VideoFrames: g.session.videoFrames.Load(),
		AudioBlocks: g.session.audioBlocks.Load(),
		Rejected:    g.session.shortFrames.Load(),
	}
	if g.session.exchange != nil {
		st.Preview = g.session.exchange.Stats()
	}
	return st
}

// Close stops any recording, stops the devices and releases them.
// Calling Close again is a no-op.
func (g *Grabber) Close() error {
	if g.state != stateInitialized {
		return nil
	}

	var errs []error
	if _, err := g.StopRecording(); err != nil {
		errs = append(errs, err)
	}
	if err := g.session.stopDevices(); err != nil {
		errs = append(errs, err)
	}

	g.state = stateClosed
	g.frame = nil
	g.frameNew = false
	g.recReady = false
	active.Store(false)
	g.logger.Debug("Grabber closed")
	return errors.Join(errs...)
}
