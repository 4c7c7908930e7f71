package mocks

import (
	"errors"
	"sync"

	"github.com/user/avgrabber/pkg/ports"
)

// captureDevice holds the callbacks of a started mock device.
// Tests drive delivery with Emit and Fail.
type captureDevice struct {
	mu      sync.Mutex
	onData  ports.DataFunc
	onError ports.ErrorFunc

	StartFunc func() error

	Started   bool
	Stopped   bool
	StopCalls int
}

func (d *captureDevice) Start(onData ports.DataFunc, onError ports.ErrorFunc) error {
	if d.StartFunc != nil {
		if err := d.StartFunc(); err != nil {
			return err
		}
	}
	d.mu.Lock()
	defer d.mu.Unlock()
	d.onData = onData
	d.onError = onError
	d.Started = true
	return nil
}

func (d *captureDevice) Stop() error {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.StopCalls++
	d.Stopped = true
	d.onData = nil
	d.onError = nil
	return nil
}

// Emit delivers data as if the device captured it.
// It reports false when the device is not running.
func (d *captureDevice) Emit(data []byte) bool {
	d.mu.Lock()
	fn := d.onData
	d.mu.Unlock()
	if fn == nil {
		return false
	}
	fn(data)
	return true
}

// Fail reports a device error.
func (d *captureDevice) Fail(err error) bool {
	d.mu.Lock()
	fn := d.onError
	d.mu.Unlock()
	if fn == nil {
		return false
	}
	fn(err)
	return true
}

// VideoDevice is a mock implementation of ports.VideoDevice.
type VideoDevice struct {
	captureDevice
	VideoFormat ports.VideoFormat
}

func (d *VideoDevice) Format() ports.VideoFormat {
	return d.VideoFormat
}

// AudioDevice is a mock implementation of ports.AudioDevice.
type AudioDevice struct {
	captureDevice
	AudioFormat ports.AudioFormat
}

func (d *AudioDevice) Format() ports.AudioFormat {
	return d.AudioFormat
}

// ErrDeviceMissing is returned by DeviceProvider for unknown devices.
var ErrDeviceMissing = errors.New("mock device missing")

// DeviceProvider is a mock implementation of ports.DeviceProvider.
// Opened devices are recorded so tests can drive them.
type DeviceProvider struct {
	mu sync.Mutex

	ProviderName string
	Video        []ports.DeviceInfo
	Audio        []ports.DeviceInfo

	OpenVideoFunc func(info ports.DeviceInfo, format ports.VideoFormat) (ports.VideoDevice, error)
	OpenAudioFunc func(info ports.DeviceInfo, format ports.AudioFormat) (ports.AudioDevice, error)

	OpenedVideo []*VideoDevice
	OpenedAudio []*AudioDevice
}

func (p *DeviceProvider) Name() string {
	if p.ProviderName == "" {
		return "mock"
	}
	return p.ProviderName
}

func (p *DeviceProvider) VideoDevices() ([]ports.DeviceInfo, error) {
	return p.Video, nil
}

func (p *DeviceProvider) AudioDevices() ([]ports.DeviceInfo, error) {
	return p.Audio, nil
}

func (p *DeviceProvider) OpenVideo(info ports.DeviceInfo, format ports.VideoFormat) (ports.VideoDevice, error) {
	if p.OpenVideoFunc != nil {
		return p.OpenVideoFunc(info, format)
	}
	if !contains(p.Video, info.Name) {
		return nil, ErrDeviceMissing
	}
	d := &VideoDevice{VideoFormat: format}
	p.mu.Lock()
	p.OpenedVideo = append(p.OpenedVideo, d)
	p.mu.Unlock()
	return d, nil
}

func (p *DeviceProvider) OpenAudio(info ports.DeviceInfo, format ports.AudioFormat) (ports.AudioDevice, error) {
	if p.OpenAudioFunc != nil {
		return p.OpenAudioFunc(info, format)
	}
	if !contains(p.Audio, info.Name) {
		return nil, ErrDeviceMissing
	}
	d := &AudioDevice{AudioFormat: format}
	p.mu.Lock()
	p.OpenedAudio = append(p.OpenedAudio, d)
	p.mu.Unlock()
	return d, nil
}

// LastVideo returns the most recently opened video device.
func (p *DeviceProvider) LastVideo() *VideoDevice {
	p.mu.Lock()
	defer p.mu.Unlock()
	if len(p.OpenedVideo) == 0 {
		return nil
	}
	return p.OpenedVideo[len(p.OpenedVideo)-1]
}

// LastAudio returns the most recently opened audio device.
func (p *DeviceProvider) LastAudio() *AudioDevice {
	p.mu.Lock()
	defer p.mu.Unlock()
	if len(p.OpenedAudio) == 0 {
		return nil
	}
	return p.OpenedAudio[len(p.OpenedAudio)-1]
}

func contains(list []ports.DeviceInfo, name string) bool {
	for _, d := range list {
		if d.Name == name {
			return true
		}
	}
	return false
}

var (
	_ ports.VideoDevice    = (*VideoDevice)(nil)
	_ ports.AudioDevice    = (*AudioDevice)(nil)
	_ ports.DeviceProvider = (*DeviceProvider)(nil)
)
