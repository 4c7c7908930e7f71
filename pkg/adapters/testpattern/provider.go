// Package testpattern provides virtual capture devices: colour bars with a
// moving marker and a sine tone. They run without hardware.
package testpattern

import (
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/user/avgrabber/pkg/ports"
)

const (
	// VideoName is the name of the virtual camera.
	VideoName = "Test Pattern"
	// AudioName is the name of the virtual microphone.
	AudioName = "Sine Tone"

	// ToneFrequency is the frequency of the generated tone in Hz.
	ToneFrequency = 440
	// BlockDuration is the length of one audio block.
	BlockDuration = 20 * time.Millisecond

	defaultFPS = 30
)

// Resolutions are the frame sizes offered by the virtual camera.
var Resolutions = []ports.Resolution{
	{Width: 320, Height: 240},
	{Width: 640, Height: 480},
	{Width: 1280, Height: 720},
}

var (
	// ErrUnknownDevice is returned when opening a device this provider did not list.
	ErrUnknownDevice = errors.New("testpattern: unknown device")
	// ErrAlreadyStarted is returned by a second Start.
	ErrAlreadyStarted = errors.New("testpattern: already started")
)

// Provider implements ports.DeviceProvider for the virtual devices.
type Provider struct{}

// New creates a test pattern provider.
func New() *Provider {
	return &Provider{}
}

// Name returns the backend name.
func (p *Provider) Name() string {
	return "testpattern"
}

// VideoDevices lists the virtual camera.
func (p *Provider) VideoDevices() ([]ports.DeviceInfo, error) {
	return []ports.DeviceInfo{{
		Name:        VideoName,
		Kind:        ports.KindVideo,
		Input:       "bars",
		Resolutions: append([]ports.Resolution(nil), Resolutions...),
	}}, nil
}

// AudioDevices lists the virtual microphone.
func (p *Provider) AudioDevices() ([]ports.DeviceInfo, error) {
	return []ports.DeviceInfo{{Name: AudioName, Kind: ports.KindAudio, Input: "sine"}}, nil
}

// OpenVideo opens the virtual camera.
func (p *Provider) OpenVideo(info ports.DeviceInfo, format ports.VideoFormat) (ports.VideoDevice, error) {
	if info.Name != VideoName {
		return nil, fmt.Errorf("%w: %q", ErrUnknownDevice, info.Name)
	}
	if format.Width <= 0 || format.Height <= 0 {
		return nil, fmt.Errorf("testpattern: invalid size %dx%d", format.Width, format.Height)
	}
	if format.FPS <= 0 {
		format.FPS = defaultFPS
	}
	return &VideoDevice{format: format}, nil
}

// OpenAudio opens the virtual microphone.
func (p *Provider) OpenAudio(info ports.DeviceInfo, format ports.AudioFormat) (ports.AudioDevice, error) {
	if info.Name != AudioName {
		return nil, fmt.Errorf("%w: %q", ErrUnknownDevice, info.Name)
	}
	if format.SampleRate <= 0 || format.Channels <= 0 {
		return nil, fmt.Errorf("testpattern: invalid audio format %d Hz, %d channels", format.SampleRate, format.Channels)
	}
	return &AudioDevice{format: format}, nil
}

// ticker runs fn on its own goroutine at a fixed interval until stopped.
type ticker struct {
	mu   sync.Mutex
	stop chan struct{}
	done chan struct{}
}

func (t *ticker) start(interval time.Duration, fn func(n uint64, elapsed time.Duration)) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.stop != nil {
		return ErrAlreadyStarted
	}
	t.stop = make(chan struct{})
	t.done = make(chan struct{})

	go func(stop, done chan struct{}) {
		defer close(done)
		tk := time.NewTicker(interval)
		defer tk.Stop()
		begin := time.Now()
		for n := uint64(1); ; n++ {
			select {
			case <-stop:
				return
			case now := <-tk.C:
				fn(n, now.Sub(begin))
			}
		}
	}(t.stop, t.done)
	return nil
}

func (t *ticker) halt() error {
	t.mu.Lock()
	stop, done := t.stop, t.done
	t.stop = nil
	t.mu.Unlock()
	if stop == nil {
		return nil
	}
	close(stop)
	<-done
	return nil
}

// VideoDevice renders test pattern frames at the configured rate.
type VideoDevice struct {
	format ports.VideoFormat
	ticker ticker
}

// Format returns the frame format.
func (d *VideoDevice) Format() ports.VideoFormat {
	return d.format
}

// Start begins delivering frames.
func (d *VideoDevice) Start(onData ports.DataFunc, onError ports.ErrorFunc) error {
	r := NewRenderer(d.format.Width, d.format.Height)
	interval := time.Duration(float64(time.Second) / d.format.FPS)
	return d.ticker.start(interval, func(n uint64, elapsed time.Duration) {
		onData(r.Render(n, elapsed))
	})
}

// Stop ends delivery.
func (d *VideoDevice) Stop() error {
	return d.ticker.halt()
}

// AudioDevice delivers a sine tone in BlockDuration blocks.
type AudioDevice struct {
	format ports.AudioFormat
	ticker ticker
}

// Format returns the sample format.
func (d *AudioDevice) Format() ports.AudioFormat {
	return d.format
}

// Start begins delivering audio blocks.
func (d *AudioDevice) Start(onData ports.DataFunc, onError ports.ErrorFunc) error {
	tone := NewTone(ToneFrequency, d.format.SampleRate, d.format.Channels)
	frames := d.format.SampleRate * int(BlockDuration/time.Millisecond) / 1000
	buf := make([]byte, frames*d.format.BytesPerFrame())
	return d.ticker.start(BlockDuration, func(n uint64, elapsed time.Duration) {
		tone.Fill(buf)
		onData(buf)
	})
}

// Stop ends delivery.
func (d *AudioDevice) Stop() error {
	return d.ticker.halt()
}

var (
	_ ports.DeviceProvider = (*Provider)(nil)
	_ ports.VideoDevice    = (*VideoDevice)(nil)
	_ ports.AudioDevice    = (*AudioDevice)(nil)
)
