package smartencoder

import (
	"errors"
	"testing"

	"github.com/user/avgrabber/pkg/ports"
)

func TestAvailable_NativeCodecsAlwaysListed(t *testing.T) {
	codecs := Available(Options{DisableFFmpeg: true})
	if len(codecs) != 2 {
		t.Fatalf("expected 2 native codecs, got %d", len(codecs))
	}
	if codecs[0].Name != CodecJPEG || codecs[0].Kind != ports.KindVideo {
		t.Errorf("expected jpeg video first, got %+v", codecs[0])
	}
	if codecs[1].Name != CodecPCM || codecs[1].Kind != ports.KindAudio {
		t.Errorf("expected pcm audio second, got %+v", codecs[1])
	}
	for _, c := range codecs {
		if c.Backend != BackendNative {
			t.Errorf("expected native backend for %s, got %s", c.Name, c.Backend)
		}
		if c.Factory == nil {
			t.Errorf("expected a factory for %s", c.Name)
		}
	}
}

func TestAvailable_FFmpegCodecs(t *testing.T) {
	codecs := Available(Options{})
	names := make(map[string]bool)
	for _, c := range codecs {
		names[c.Name] = true
	}
	if names[CodecH264] != IsH264Available() {
		t.Errorf("h264 listed=%v, available=%v", names[CodecH264], IsH264Available())
	}
	if names[CodecAAC] != IsAACAvailable() {
		t.Errorf("aac listed=%v, available=%v", names[CodecAAC], IsAACAvailable())
	}
	t.Logf("H.264 available: %v, AAC available: %v", IsH264Available(), IsAACAvailable())
}

func TestLookup(t *testing.T) {
	info, err := Lookup(DefaultVideo, ports.KindVideo, Options{DisableFFmpeg: true})
	if err != nil {
		t.Fatalf("Lookup failed: %v", err)
	}
	enc, err := info.Factory(ports.EncodeParams{Video: ports.VideoFormat{Width: 16, Height: 16, FPS: 30}})
	if err != nil {
		t.Fatalf("factory failed: %v", err)
	}
	defer enc.Close()
	if cfg, ok := enc.Config(); !ok || cfg.Codec != "jpeg" {
		t.Errorf("unexpected config %+v", cfg)
	}

	if _, err := Lookup("pcm", ports.KindVideo, Options{}); !errors.Is(err, ErrNoEncoderAvailable) {
		t.Errorf("expected ErrNoEncoderAvailable for wrong kind, got %v", err)
	}
	if _, err := Lookup("vp9", ports.KindVideo, Options{}); !errors.Is(err, ErrNoEncoderAvailable) {
		t.Errorf("expected ErrNoEncoderAvailable, got %v", err)
	}
}
