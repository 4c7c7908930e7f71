package catalog

import (
	"errors"
	"testing"

	"github.com/user/avgrabber/pkg/adapters/logger"
	"github.com/user/avgrabber/pkg/mocks"
	"github.com/user/avgrabber/pkg/ports"
)

func newProvider() *mocks.DeviceProvider {
	return &mocks.DeviceProvider{
		ProviderName: "mock",
		Video: []ports.DeviceInfo{
			{Name: "USB Camera", Kind: ports.KindVideo, Input: "/dev/video0"},
			{Name: "USB Camera", Kind: ports.KindVideo, Input: "/dev/video2"},
			{Name: "Capture Card", Kind: ports.KindVideo, Input: "/dev/video4"},
		},
		Audio: []ports.DeviceInfo{
			{Name: "Default Audio", Kind: ports.KindAudio, Input: "default"},
		},
	}
}

func testCodecs() []Codec {
	enc := &mocks.Encoder{}
	return []Codec{
		NewCodec("jpeg", ports.KindVideo, "Motion JPEG", enc.Factory()),
		NewCodec("pcm", ports.KindAudio, "PCM", enc.Factory()),
		NewCodec("h264", ports.KindVideo, "H.264", enc.Factory()),
	}
}

func TestCatalog_ListDisambiguatesDuplicates(t *testing.T) {
	c := New([]ports.DeviceProvider{newProvider()}, testCodecs(), logger.NewNoop())

	names, err := c.ListVideoDevices()
	if err != nil {
		t.Fatalf("ListVideoDevices failed: %v", err)
	}
	want := []string{"USB Camera", "USB Camera (2)", "Capture Card"}
	if len(names) != len(want) {
		t.Fatalf("expected %v, got %v", want, names)
	}
	for i := range want {
		if names[i] != want[i] {
			t.Errorf("device %d: expected %q, got %q", i, want[i], names[i])
		}
	}

	audio, err := c.ListAudioDevices()
	if err != nil || len(audio) != 1 || audio[0] != "Default Audio" {
		t.Errorf("unexpected audio devices %v (%v)", audio, err)
	}
}

func TestCatalog_ProvidersInOrder(t *testing.T) {
	first := &mocks.DeviceProvider{ProviderName: "a", Video: []ports.DeviceInfo{{Name: "Cam", Kind: ports.KindVideo}}}
	second := &mocks.DeviceProvider{ProviderName: "b", Video: []ports.DeviceInfo{{Name: "Cam", Kind: ports.KindVideo}}}
	c := New([]ports.DeviceProvider{first, second}, nil, logger.NewNoop())

	d, err := c.ResolveVideoDevice("Cam (2)")
	if err != nil {
		t.Fatalf("Resolve failed: %v", err)
	}
	if d.Backend() != "b" {
		t.Errorf("expected second provider, got %s", d.Backend())
	}
	def, err := c.DefaultVideoDevice()
	if err != nil || def.Backend() != "a" {
		t.Errorf("expected default from first provider, got %v (%v)", def.Backend(), err)
	}
}

func TestCatalog_ResolveUnknown(t *testing.T) {
	c := New([]ports.DeviceProvider{newProvider()}, testCodecs(), logger.NewNoop())

	if _, err := c.ResolveVideoDevice("Nope"); !errors.Is(err, ErrDeviceNotFound) {
		t.Errorf("expected ErrDeviceNotFound, got %v", err)
	}
	if _, err := c.ResolveAudioDevice("USB Camera"); !errors.Is(err, ErrDeviceNotFound) {
		t.Errorf("expected ErrDeviceNotFound for wrong kind, got %v", err)
	}
	if _, err := c.ResolveVideoCodec("pcm"); !errors.Is(err, ErrDeviceNotFound) {
		t.Errorf("expected ErrDeviceNotFound for audio codec, got %v", err)
	}
	if _, err := c.ResolveAudioCodec("opus"); !errors.Is(err, ErrDeviceNotFound) {
		t.Errorf("expected ErrDeviceNotFound, got %v", err)
	}
}

func TestCatalog_Codecs(t *testing.T) {
	c := New(nil, testCodecs(), logger.NewNoop())

	video := c.ListVideoCodecs()
	if len(video) != 2 || video[0] != "jpeg" || video[1] != "h264" {
		t.Errorf("unexpected video codecs %v", video)
	}
	if audio := c.ListAudioCodecs(); len(audio) != 1 || audio[0] != "pcm" {
		t.Errorf("unexpected audio codecs %v", audio)
	}

	def, err := c.DefaultVideoCodec()
	if err != nil || def.Name != "jpeg" {
		t.Errorf("expected jpeg default, got %q (%v)", def.Name, err)
	}
	codec, err := c.ResolveVideoCodec("h264")
	if err != nil {
		t.Fatalf("Resolve failed: %v", err)
	}
	if _, err := codec.NewEncoder(ports.EncodeParams{}); err != nil {
		t.Errorf("NewEncoder failed: %v", err)
	}
	if _, err := (Codec{}).NewEncoder(ports.EncodeParams{}); !errors.Is(err, ErrDeviceNotFound) {
		t.Errorf("expected zero codec to fail, got %v", err)
	}
}

func TestCatalog_NoDevices(t *testing.T) {
	c := New(nil, nil, logger.NewNoop())
	if _, err := c.DefaultVideoDevice(); !errors.Is(err, ErrDeviceNotFound) {
		t.Errorf("expected ErrDeviceNotFound, got %v", err)
	}
	if _, err := c.DefaultAudioCodec(); !errors.Is(err, ErrDeviceNotFound) {
		t.Errorf("expected ErrDeviceNotFound, got %v", err)
	}
}

func TestDevice_OpenPassesProviderInfo(t *testing.T) {
	p := newProvider()
	c := New([]ports.DeviceProvider{p}, nil, logger.NewNoop())

	var opened ports.DeviceInfo
	p.OpenVideoFunc = func(info ports.DeviceInfo, format ports.VideoFormat) (ports.VideoDevice, error) {
		opened = info
		return &mocks.VideoDevice{VideoFormat: format}, nil
	}

	d, err := c.ResolveVideoDevice("USB Camera (2)")
	if err != nil {
		t.Fatalf("Resolve failed: %v", err)
	}
	if d.Info().Name != "USB Camera (2)" {
		t.Errorf("expected display name in Info, got %q", d.Info().Name)
	}
	dev, err := d.OpenVideo(ports.VideoFormat{Width: 640, Height: 480, FPS: 30})
	if err != nil {
		t.Fatalf("OpenVideo failed: %v", err)
	}
	if opened.Name != "USB Camera" || opened.Input != "/dev/video2" {
		t.Errorf("expected provider's own info, got %+v", opened)
	}
	if dev.Format().Width != 640 {
		t.Errorf("unexpected format %+v", dev.Format())
	}

	if _, err := d.OpenAudio(ports.AudioFormat{}); !errors.Is(err, ErrDeviceNotFound) {
		t.Errorf("expected ErrDeviceNotFound opening video device as audio, got %v", err)
	}
}

func TestDevice_OpenVanished(t *testing.T) {
	p := newProvider()
	c := New([]ports.DeviceProvider{p}, nil, logger.NewNoop())

	d, err := c.ResolveVideoDevice("Capture Card")
	if err != nil {
		t.Fatalf("Resolve failed: %v", err)
	}

	p.Video = p.Video[:2]
	p.OpenVideoFunc = func(info ports.DeviceInfo, format ports.VideoFormat) (ports.VideoDevice, error) {
		return nil, errors.New("no such file")
	}
	if _, err := d.OpenVideo(ports.VideoFormat{Width: 1, Height: 1}); !errors.Is(err, ErrDeviceNotFound) {
		t.Errorf("expected ErrDeviceNotFound for vanished device, got %v", err)
	}

	busy := errors.New("device busy")
	d, _ = c.ResolveVideoDevice("USB Camera")
	p.OpenVideoFunc = func(info ports.DeviceInfo, format ports.VideoFormat) (ports.VideoDevice, error) {
		return nil, busy
	}
	if _, err := d.OpenVideo(ports.VideoFormat{Width: 1, Height: 1}); !errors.Is(err, busy) || errors.Is(err, ErrDeviceNotFound) {
		t.Errorf("expected busy error for present device, got %v", err)
	}
}

func TestCatalog_Refresh(t *testing.T) {
	p := newProvider()
	c := New([]ports.DeviceProvider{p}, nil, logger.NewNoop())
	_, _ = c.ListVideoDevices()

	p.Video = append(p.Video, ports.DeviceInfo{Name: "New Camera", Kind: ports.KindVideo})
	if _, err := c.ResolveVideoDevice("New Camera"); !errors.Is(err, ErrDeviceNotFound) {
		t.Errorf("expected cached list without the new camera, got %v", err)
	}
	c.Refresh()
	if _, err := c.ResolveVideoDevice("New Camera"); err != nil {
		t.Errorf("expected new camera after refresh, got %v", err)
	}
}
