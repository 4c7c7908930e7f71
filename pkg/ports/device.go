package ports

import "fmt"

// MediaKind distinguishes video and audio devices, codecs and tracks.
type MediaKind int

const (
	// KindVideo is a video source or track.
	KindVideo MediaKind = iota
	// KindAudio is an audio source or track.
	KindAudio
)

// String returns the string representation of the media kind.
func (k MediaKind) String() string {
	switch k {
	case KindVideo:
		return "video"
	case KindAudio:
		return "audio"
	default:
		return fmt.Sprintf("kind(%d)", int(k))
	}
}

// Resolution is a frame size supported by a video device.
type Resolution struct {
	Width  int
	Height int
}

// DeviceInfo describes a capture device found during enumeration.
type DeviceInfo struct {
	// Name is the human-readable key used to select the device.
	Name string
	// Kind tells whether the device produces video or audio.
	Kind MediaKind
	// Input is the backend-specific locator (e.g. /dev/video0, an AVFoundation index).
	Input string
	// Resolutions lists supported frame sizes. Empty means any size is accepted.
	Resolutions []Resolution
}

// VideoFormat is the negotiated raw video format.
// Pixels are always packed RGB24 without row padding.
type VideoFormat struct {
	Width  int
	Height int
	FPS    float64
}

// FrameSize returns the byte length of one RGB24 frame.
func (f VideoFormat) FrameSize() int {
	return f.Width * f.Height * 3
}

// MaxSampleRate is the highest sample rate an MP4 audio sample entry can carry.
const MaxSampleRate = 65535

// AudioFormat is the negotiated raw audio format.
// Samples are always interleaved signed 16-bit little-endian.
type AudioFormat struct {
	SampleRate int
	Channels   int
}

// BytesPerFrame returns the byte length of one sample across all channels.
func (f AudioFormat) BytesPerFrame() int {
	return f.Channels * 2
}

// DataFunc receives one captured frame or audio block.
// The buffer is only valid during the call; receivers copy what they keep.
type DataFunc func(data []byte)

// ErrorFunc receives an error reported by a device after it started.
type ErrorFunc func(err error)

// CaptureDevice is an opened device that delivers data on its own goroutine.
type CaptureDevice interface {
	// Start begins delivery. onData is called for every frame or block,
	// onError at most once when the device fails.
	Start(onData DataFunc, onError ErrorFunc) error

	// Stop ends delivery and releases the device. Calling Stop twice is a no-op.
	Stop() error
}

// VideoDevice delivers RGB24 frames of Format().FrameSize() bytes.
type VideoDevice interface {
	CaptureDevice
	Format() VideoFormat
}

// AudioDevice delivers interleaved s16le blocks.
type AudioDevice interface {
	CaptureDevice
	Format() AudioFormat
}

// DeviceProvider enumerates and opens devices of one backend.
type DeviceProvider interface {
	// Name identifies the backend (e.g. "ffmpeg", "testpattern").
	Name() string

	// VideoDevices lists video devices in enumeration order.
	VideoDevices() ([]DeviceInfo, error)

	// AudioDevices lists audio devices in enumeration order.
	AudioDevices() ([]DeviceInfo, error)

	// OpenVideo opens a video device with the requested format.
	OpenVideo(info DeviceInfo, format VideoFormat) (VideoDevice, error)

	// OpenAudio opens an audio device with the requested format.
	OpenAudio(info DeviceInfo, format AudioFormat) (AudioDevice, error)
}
