// Package ffmpegdevice captures from hardware cameras and microphones through
// an ffmpeg subprocess. Enumeration is platform specific: V4L2 and
// PulseAudio/ALSA on Linux, AVFoundation on macOS.
package ffmpegdevice

import (
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/user/avgrabber/pkg/adapters/ffmpeg"
	"github.com/user/avgrabber/pkg/ports"
)

// blockDuration is the length of one delivered audio block.
const blockDuration = 20 * time.Millisecond

// ErrUnsupported is returned when the platform has no capture backend.
var ErrUnsupported = errors.New("ffmpegdevice: capture not supported on this platform")

// Provider implements ports.DeviceProvider with ffmpeg.
type Provider struct {
	logger ports.Logger
}

// New creates an ffmpeg device provider.
func New(logger ports.Logger) *Provider {
	return &Provider{logger: logger.WithComponent("ffmpeg")}
}

// IsAvailable reports whether ffmpeg is installed.
func IsAvailable() bool {
	return ffmpeg.IsAvailable()
}

// Name returns the backend name.
func (p *Provider) Name() string {
	return "ffmpeg"
}

// VideoDevices lists the cameras.
func (p *Provider) VideoDevices() ([]ports.DeviceInfo, error) {
	return listVideo()
}

// AudioDevices lists the microphones.
func (p *Provider) AudioDevices() ([]ports.DeviceInfo, error) {
	return listAudio()
}

// OpenVideo prepares a camera capture. The process starts with Start.
func (p *Provider) OpenVideo(info ports.DeviceInfo, format ports.VideoFormat) (ports.VideoDevice, error) {
	if format.Width <= 0 || format.Height <= 0 {
		return nil, fmt.Errorf("ffmpegdevice: invalid size %dx%d", format.Width, format.Height)
	}
	if format.FPS <= 0 {
		format.FPS = 30
	}
	input, err := videoInputArgs(info, format)
	if err != nil {
		return nil, err
	}
	args := append(input, videoOutputArgs(format)...)
	return &VideoDevice{
		capture: newCapture(info.Name, args, format.FrameSize(), p.logger),
		format:  format,
	}, nil
}

// OpenAudio prepares a microphone capture. The process starts with Start.
func (p *Provider) OpenAudio(info ports.DeviceInfo, format ports.AudioFormat) (ports.AudioDevice, error) {
	if format.SampleRate <= 0 || format.Channels <= 0 {
		return nil, fmt.Errorf("ffmpegdevice: invalid audio format %d Hz, %d channels", format.SampleRate, format.Channels)
	}
	input, err := audioInputArgs(info, format)
	if err != nil {
		return nil, err
	}
	args := append(input, audioOutputArgs(format)...)
	return &AudioDevice{
		capture: newCapture(info.Name, args, blockSize(format), p.logger),
		format:  format,
	}, nil
}

func videoOutputArgs(f ports.VideoFormat) []string {
	return []string{
		"-an",
		"-vf", fmt.Sprintf("scale=%d:%d", f.Width, f.Height),
		"-pix_fmt", "rgb24",
		"-f", "rawvideo",
		"pipe:1",
	}
}

func audioOutputArgs(f ports.AudioFormat) []string {
	return []string{
		"-vn",
		"-ac", strconv.Itoa(f.Channels),
		"-ar", strconv.Itoa(f.SampleRate),
		"-f", "s16le",
		"pipe:1",
	}
}

func blockSize(f ports.AudioFormat) int {
	frames := f.SampleRate * int(blockDuration/time.Millisecond) / 1000
	return frames * f.BytesPerFrame()
}

// VideoDevice is a camera read as rawvideo rgb24.
type VideoDevice struct {
	*capture
	format ports.VideoFormat
}

// Format returns the frame format.
func (d *VideoDevice) Format() ports.VideoFormat {
	return d.format
}

// AudioDevice is a microphone read as s16le.
type AudioDevice struct {
	*capture
	format ports.AudioFormat
}

// Format returns the sample format.
func (d *AudioDevice) Format() ports.AudioFormat {
	return d.format
}

var (
	_ ports.DeviceProvider = (*Provider)(nil)
	_ ports.VideoDevice    = (*VideoDevice)(nil)
	_ ports.AudioDevice    = (*AudioDevice)(nil)
)
