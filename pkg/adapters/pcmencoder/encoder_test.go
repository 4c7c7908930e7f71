package pcmencoder

import (
	"errors"
	"testing"
	"time"

	"github.com/user/avgrabber/pkg/ports"
)

func TestEncoder_Encode(t *testing.T) {
	enc, err := New(ports.EncodeParams{Audio: ports.AudioFormat{SampleRate: 48000, Channels: 2}})
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}

	block := make([]byte, 960*4)
	block[0] = 7
	out, err := enc.Encode(block, 100*time.Millisecond)
	if err != nil {
		t.Fatalf("Encode failed: %v", err)
	}
	if len(out) != 1 {
		t.Fatalf("expected 1 sample, got %d", len(out))
	}
	if out[0].Duration != 20*time.Millisecond {
		t.Errorf("expected 20ms, got %v", out[0].Duration)
	}
	if out[0].PTS != 100*time.Millisecond {
		t.Errorf("expected PTS 100ms, got %v", out[0].PTS)
	}

	block[0] = 9
	if out[0].Data[0] != 7 {
		t.Error("encoder must copy the block")
	}

	cfg, ok := enc.Config()
	if !ok || cfg.Codec != "sowt" || cfg.SampleRate != 48000 || cfg.Channels != 2 {
		t.Errorf("unexpected config %+v", cfg)
	}
}

func TestEncoder_Errors(t *testing.T) {
	if _, err := New(ports.EncodeParams{}); err == nil {
		t.Error("expected error for empty format")
	}
	if _, err := New(ports.EncodeParams{Audio: ports.AudioFormat{SampleRate: 96000, Channels: 2}}); err == nil {
		t.Error("expected error for a sample rate above 65535 Hz")
	}

	enc, _ := New(ports.EncodeParams{Audio: ports.AudioFormat{SampleRate: 8000, Channels: 1}})
	if _, err := enc.Encode([]byte{1, 2, 3}, 0); !errors.Is(err, ErrBlockSize) {
		t.Errorf("expected ErrBlockSize, got %v", err)
	}
	if out, err := enc.Encode(nil, 0); err != nil || out != nil {
		t.Errorf("expected empty block to be ignored, got %v, %v", out, err)
	}

	_ = enc.Close()
	if _, err := enc.Encode([]byte{1, 2}, 0); !errors.Is(err, ErrClosed) {
		t.Errorf("expected ErrClosed, got %v", err)
	}
}
