package grabber

import (
	"errors"
	"fmt"
	"sync/atomic"
	"time"

	"github.com/user/avgrabber/pkg/catalog"
	"github.com/user/avgrabber/pkg/framebuf"
	"github.com/user/avgrabber/pkg/ports"
	"github.com/user/avgrabber/pkg/recorder"
)

// session is an open device pair sharing one capture clock.
// Device callbacks stamp every frame and block with the time since start.
type session struct {
	clock  ports.Clock
	start  time.Time
	logger ports.Logger

	videoName string
	audioName string
	video     ports.VideoDevice
	audio     ports.AudioDevice
	format    ports.VideoFormat
	audioFmt  ports.AudioFormat

	// exchange is nil without preview.
	exchange *framebuf.Exchange
	rec      *recorder.Recorder
	onLost   func(error)

	videoFrames atomic.Uint64
	audioBlocks atomic.Uint64
	shortFrames atomic.Uint64
}

type sessionConfig struct {
	video    catalog.Device
	audio    catalog.Device
	width    int
	height   int
	fps      float64
	audioFmt ports.AudioFormat
	preview  bool
	clock    ports.Clock
	rec      *recorder.Recorder
	onLost   func(error)
	logger   ports.Logger
}

// openSession opens and starts the devices. On failure nothing is left open.
func openSession(cfg sessionConfig) (*session, error) {
	s := &session{
		clock:     cfg.clock,
		logger:    cfg.logger,
		videoName: cfg.video.Name(),
		rec:       cfg.rec,
		onLost:    cfg.onLost,
	}

	w, h := negotiate(cfg.video.Info().Resolutions, cfg.width, cfg.height)
	if w != cfg.width || h != cfg.height {
		s.logger.Info("Requested %dx%d, using %dx%d", cfg.width, cfg.height, w, h)
	}

	video, err := cfg.video.OpenVideo(ports.VideoFormat{Width: w, Height: h, FPS: cfg.fps})
	if err != nil {
		return nil, err
	}
	s.video = video
	s.format = video.Format()
	if s.format.Width <= 0 || s.format.Height <= 0 {
		_ = video.Stop()
		return nil, fmt.Errorf("grabber: device %q reported size %dx%d", s.videoName, s.format.Width, s.format.Height)
	}

	if !cfg.audio.IsZero() {
		audio, err := cfg.audio.OpenAudio(cfg.audioFmt)
		if err != nil {
			_ = video.Stop()
			return nil, err
		}
		s.audio = audio
		s.audioName = cfg.audio.Name()
		s.audioFmt = audio.Format()
	}

	if cfg.preview {
		s.exchange = framebuf.New(s.format.Width, s.format.Height)
	}

	s.start = s.clock.Now()
	if err := s.video.Start(s.onVideo, s.lost(s.videoName)); err != nil {
		s.stopDevices()
		return nil, fmt.Errorf("start %q: %w", s.videoName, err)
	}
	if s.audio != nil {
		if err := s.audio.Start(s.onAudio, s.lost(s.audioName)); err != nil {
			s.stopDevices()
			return nil, fmt.Errorf("start %q: %w", s.audioName, err)
		}
	}

	s.logger.Debug("Session started: %s %dx%d @ %.2f fps", s.videoName, s.format.Width, s.format.Height, s.format.FPS)
	if s.audio != nil {
		s.logger.Debug("Audio: %s %d Hz, %d channels", s.audioName, s.audioFmt.SampleRate, s.audioFmt.Channels)
	}
	return s, nil
}

// now returns the capture clock reading.
func (s *session) now() time.Duration {
	return s.clock.Now().Sub(s.start)
}

func (s *session) onVideo(pix []byte) {
	pts := s.now()
	if len(pix) != s.format.FrameSize() {
		s.shortFrames.Add(1)
		return
	}
	s.videoFrames.Add(1)
	if s.exchange != nil {
		s.exchange.Publish(pix, pts)
	}
	s.rec.PushVideo(pix, pts)
}

// onAudio stamps a block with the capture time of its first sample.
// Devices deliver a block once it is full, so its span is subtracted.
func (s *session) onAudio(block []byte) {
	pts := s.now() - s.blockSpan(len(block))
	if pts < 0 {
		pts = 0
	}
	s.audioBlocks.Add(1)
	s.rec.PushAudio(block, pts)
}

func (s *session) blockSpan(size int) time.Duration {
	bpf := s.audioFmt.BytesPerFrame()
	if bpf == 0 || s.audioFmt.SampleRate <= 0 {
		return 0
	}
	return time.Duration(size/bpf) * time.Second / time.Duration(s.audioFmt.SampleRate)
}

// lost returns the error callback for a device. An active recording is
// finalized in the background.
func (s *session) lost(name string) ports.ErrorFunc {
	return func(err error) {
		lost := fmt.Errorf("%w: %s: %v", ErrDeviceLost, name, err)
		s.onLost(lost)
		if s.rec.IsRecording() {
			go s.rec.Abort(lost)
		}
	}
}

func (s *session) stopDevices() error {
	var errs []error
	if s.video != nil {
		if err := s.video.Stop(); err != nil {
			errs = append(errs, fmt.Errorf("stop %q: %w", s.videoName, err))
		}
	}
	if s.audio != nil {
		if err := s.audio.Stop(); err != nil {
			errs = append(errs, fmt.Errorf("stop %q: %w", s.audioName, err))
		}
	}
	return errors.Join(errs...)
}

// negotiate picks the supported size closest to the request: an exact match,
// else the smallest area difference. Devices without a size list take the request.
func negotiate(sizes []ports.Resolution, width, height int) (int, int) {
	if len(sizes) == 0 {
		return width, height
	}
	want := width * height
	best := sizes[0]
	bestDiff := -1
	for _, r := range sizes {
		if r.Width == width && r.Height == height {
			return width, height
		}
		diff := r.Width*r.Height - want
		if diff < 0 {
			diff = -diff
		}
		if bestDiff < 0 || diff < bestDiff {
			best = r
			bestDiff = diff
		}
	}
	return best.Width, best.Height
}
