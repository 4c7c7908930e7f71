// Package catalog enumerates capture devices and codecs and resolves their
// names to typed handles.
package catalog

import (
	"errors"
	"fmt"
	"sync"

	"github.com/user/avgrabber/pkg/ports"
)

// ErrDeviceNotFound is returned when a device or codec name is unknown.
var ErrDeviceNotFound = errors.New("catalog: device not found")

// Device is a resolved capture device.
type Device struct {
	name     string
	source   ports.DeviceInfo
	provider ports.DeviceProvider
}

// Name returns the unique display name.
func (d Device) Name() string { return d.name }

// Kind returns whether the device captures video or audio.
func (d Device) Kind() ports.MediaKind { return d.source.Kind }

// Backend returns the name of the provider that found the device.
func (d Device) Backend() string { return d.provider.Name() }

// Info returns the device description with its display name.
func (d Device) Info() ports.DeviceInfo {
	info := d.source
	info.Name = d.name
	return info
}

// IsZero reports whether d is the zero handle.
func (d Device) IsZero() bool { return d.provider == nil }

// OpenVideo opens the device with the requested format.
func (d Device) OpenVideo(format ports.VideoFormat) (ports.VideoDevice, error) {
	if d.provider == nil || d.source.Kind != ports.KindVideo {
		return nil, fmt.Errorf("%w: %q is not a video device", ErrDeviceNotFound, d.name)
	}
	dev, err := d.provider.OpenVideo(d.source, format)
	if err != nil {
		return nil, d.openError(err)
	}
	return dev, nil
}

// OpenAudio opens the device with the requested format.
func (d Device) OpenAudio(format ports.AudioFormat) (ports.AudioDevice, error) {
	if d.provider == nil || d.source.Kind != ports.KindAudio {
		return nil, fmt.Errorf("%w: %q is not an audio device", ErrDeviceNotFound, d.name)
	}
	dev, err := d.provider.OpenAudio(d.source, format)
	if err != nil {
		return nil, d.openError(err)
	}
	return dev, nil
}

// openError reports a device that vanished since enumeration as not found.
func (d Device) openError(err error) error {
	if !d.present() {
		return fmt.Errorf("%w: %q disappeared: %v", ErrDeviceNotFound, d.name, err)
	}
	return fmt.Errorf("open %q: %w", d.name, err)
}

func (d Device) present() bool {
	list := d.provider.VideoDevices
	if d.source.Kind == ports.KindAudio {
		list = d.provider.AudioDevices
	}
	infos, err := list()
	if err != nil {
		return false
	}
	for _, info := range infos {
		if info.Name == d.source.Name && info.Input == d.source.Input {
			return true
		}
	}
	return false
}

// Codec is a resolved encoder.
type Codec struct {
	Name        string
	Kind        ports.MediaKind
	Description string
	factory     ports.EncoderFactory
}

// NewCodec creates a codec handle.
func NewCodec(name string, kind ports.MediaKind, description string, factory ports.EncoderFactory) Codec {
	return Codec{Name: name, Kind: kind, Description: description, factory: factory}
}

// IsZero reports whether c is the zero handle.
func (c Codec) IsZero() bool { return c.factory == nil }

// NewEncoder creates an encoder for the given input.
func (c Codec) NewEncoder(params ports.EncodeParams) (ports.Encoder, error) {
	if c.factory == nil {
		return nil, fmt.Errorf("%w: codec %q", ErrDeviceNotFound, c.Name)
	}
	return c.factory(params)
}

// Catalog lists devices from several providers and the available codecs.
// Devices are enumerated on first use; Refresh forces a new enumeration.
type Catalog struct {
	providers []ports.DeviceProvider
	codecs    []Codec
	logger    ports.Logger

	mu    sync.Mutex
	video []Device
	audio []Device
	ready bool
}

// New creates a catalog. Providers are listed in the given order.
func New(providers []ports.DeviceProvider, codecs []Codec, logger ports.Logger) *Catalog {
	return &Catalog{
		providers: providers,
		codecs:    codecs,
		logger:    logger.WithComponent("catalog"),
	}
}

// Refresh drops the cached device lists.
func (c *Catalog) Refresh() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.ready = false
	c.video = nil
	c.audio = nil
}

// ListVideoDevices returns the names of the video devices.
func (c *Catalog) ListVideoDevices() ([]string, error) {
	devices, err := c.devices(ports.KindVideo)
	return names(devices), err
}

// ListAudioDevices returns the names of the audio devices.
func (c *Catalog) ListAudioDevices() ([]string, error) {
	devices, err := c.devices(ports.KindAudio)
	return names(devices), err
}

// VideoDevices returns the video device handles.
func (c *Catalog) VideoDevices() ([]Device, error) {
	return c.devices(ports.KindVideo)
}

// AudioDevices returns the audio device handles.
func (c *Catalog) AudioDevices() ([]Device, error) {
	return c.devices(ports.KindAudio)
}

// ResolveVideoDevice returns the video device with the given name.
func (c *Catalog) ResolveVideoDevice(name string) (Device, error) {
	return c.resolveDevice(ports.KindVideo, name)
}

// ResolveAudioDevice returns the audio device with the given name.
func (c *Catalog) ResolveAudioDevice(name string) (Device, error) {
	return c.resolveDevice(ports.KindAudio, name)
}

// DefaultVideoDevice returns the first video device.
func (c *Catalog) DefaultVideoDevice() (Device, error) {
	return c.firstDevice(ports.KindVideo)
}

// DefaultAudioDevice returns the first audio device.
func (c *Catalog) DefaultAudioDevice() (Device, error) {
	return c.firstDevice(ports.KindAudio)
}

// ListVideoCodecs returns the names of the video codecs.
func (c *Catalog) ListVideoCodecs() []string {
	return c.codecNames(ports.KindVideo)
}

// ListAudioCodecs returns the names of the audio codecs.
func (c *Catalog) ListAudioCodecs() []string {
	return c.codecNames(ports.KindAudio)
}

// ResolveVideoCodec returns the video codec with the given name.
func (c *Catalog) ResolveVideoCodec(name string) (Codec, error) {
	return c.resolveCodec(ports.KindVideo, name)
}

// ResolveAudioCodec returns the audio codec with the given name.
func (c *Catalog) ResolveAudioCodec(name string) (Codec, error) {
	return c.resolveCodec(ports.KindAudio, name)
}

// DefaultVideoCodec returns the first registered video codec.
func (c *Catalog) DefaultVideoCodec() (Codec, error) {
	return c.firstCodec(ports.KindVideo)
}

// DefaultAudioCodec returns the first registered audio codec.
func (c *Catalog) DefaultAudioCodec() (Codec, error) {
	return c.firstCodec(ports.KindAudio)
}

func (c *Catalog) devices(kind ports.MediaKind) ([]Device, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	var err error
	if !c.ready {
		err = c.enumerate()
	}
	if kind == ports.KindAudio {
		return c.audio, err
	}
	return c.video, err
}

// enumerate lists every provider. A failing provider is skipped; the error
// is returned only when no provider succeeded.
func (c *Catalog) enumerate() error {
	var errs []error
	seen := make(map[string]int)
	var video, audio []Device

	for _, p := range c.providers {
		v, err := p.VideoDevices()
		if err != nil {
			c.logger.Warn("Failed to list %s video devices: %v", p.Name(), err)
			errs = append(errs, fmt.Errorf("%s: %w", p.Name(), err))
		}
		a, aerr := p.AudioDevices()
		if aerr != nil {
			c.logger.Warn("Failed to list %s audio devices: %v", p.Name(), aerr)
			errs = append(errs, fmt.Errorf("%s: %w", p.Name(), aerr))
		}
		for _, info := range v {
			video = append(video, Device{name: unique(seen, "v:", info.Name), source: info, provider: p})
		}
		for _, info := range a {
			audio = append(audio, Device{name: unique(seen, "a:", info.Name), source: info, provider: p})
		}
	}

	c.video = video
	c.audio = audio
	c.ready = true
	c.logger.Debug("Found %d video and %d audio devices", len(video), len(audio))

	if len(errs) > 0 && len(errs) == 2*len(c.providers) {
		return errors.Join(errs...)
	}
	return nil
}

// unique disambiguates repeated names with a " (2)", " (3)" suffix.
func unique(seen map[string]int, prefix, name string) string {
	seen[prefix+name]++
	n := seen[prefix+name]
	if n == 1 {
		return name
	}
	candidate := fmt.Sprintf("%s (%d)", name, n)
	for seen[prefix+candidate] > 0 {
		n++
		candidate = fmt.Sprintf("%s (%d)", name, n)
	}
	seen[prefix+name] = n
	seen[prefix+candidate]++
	return candidate
}

func (c *Catalog) resolveDevice(kind ports.MediaKind, name string) (Device, error) {
	devices, err := c.devices(kind)
	for _, d := range devices {
		if d.name == name {
			return d, nil
		}
	}
	if err != nil {
		return Device{}, fmt.Errorf("%w: %s device %q: %v", ErrDeviceNotFound, kind, name, err)
	}
	return Device{}, fmt.Errorf("%w: %s device %q", ErrDeviceNotFound, kind, name)
}

func (c *Catalog) firstDevice(kind ports.MediaKind) (Device, error) {
	devices, err := c.devices(kind)
	if len(devices) > 0 {
		return devices[0], nil
	}
	if err != nil {
		return Device{}, fmt.Errorf("%w: no %s devices: %v", ErrDeviceNotFound, kind, err)
	}
	return Device{}, fmt.Errorf("%w: no %s devices", ErrDeviceNotFound, kind)
}

func (c *Catalog) codecNames(kind ports.MediaKind) []string {
	var out []string
	for _, codec := range c.codecs {
		if codec.Kind == kind {
			out = append(out, codec.Name)
		}
	}
	return out
}

func (c *Catalog) resolveCodec(kind ports.MediaKind, name string) (Codec, error) {
	for _, codec := range c.codecs {
		if codec.Kind == kind && codec.Name == name {
			return codec, nil
		}
	}
	return Codec{}, fmt.Errorf("%w: %s codec %q", ErrDeviceNotFound, kind, name)
}

func (c *Catalog) firstCodec(kind ports.MediaKind) (Codec, error) {
	for _, codec := range c.codecs {
		if codec.Kind == kind {
			return codec, nil
		}
	}
	return Codec{}, fmt.Errorf("%w: no %s codecs", ErrDeviceNotFound, kind)
}

func names(devices []Device) []string {
	out := make([]string, len(devices))
	for i, d := range devices {
		out[i] = d.name
	}
	return out
}
