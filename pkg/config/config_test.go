package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func TestDefaults_AreValid(t *testing.T) {
	cfg := Defaults()
	if err := cfg.Validate(); err != nil {
		t.Fatalf("expected defaults to be valid, got %v", err)
	}
	if cfg.Backend != BackendAuto {
		t.Errorf("expected auto backend, got %q", cfg.Backend)
	}
	if cfg.Width != 640 || cfg.Height != 480 {
		t.Errorf("expected 640x480, got %dx%d", cfg.Width, cfg.Height)
	}
}

func TestLoadFromFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "avgrabber.yaml")
	content := `
backend: testpattern
video_device: Test Pattern
use_audio: true
width: 320
height: 240
video_codec: h264
quality: high
max_lag_ms: 250
`
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatalf("failed to write config: %v", err)
	}

	cfg, err := LoadFromFile(path)
	if err != nil {
		t.Fatalf("LoadFromFile failed: %v", err)
	}
	if cfg.Backend != BackendTestPattern {
		t.Errorf("expected testpattern backend, got %q", cfg.Backend)
	}
	if cfg.VideoDevice != "Test Pattern" || !cfg.UseAudio {
		t.Errorf("unexpected device settings: %+v", cfg)
	}
	if cfg.Width != 320 || cfg.Height != 240 {
		t.Errorf("expected 320x240, got %dx%d", cfg.Width, cfg.Height)
	}
	// Keys missing from the file keep their defaults.
	if cfg.SampleRate != 48000 || cfg.DataDir != "data" {
		t.Errorf("expected defaults for missing keys, got %d %q", cfg.SampleRate, cfg.DataDir)
	}

	opts := cfg.ToGrabberOptions()
	if opts.Recorder.MaxLag != 250*time.Millisecond {
		t.Errorf("expected 250ms max lag, got %v", opts.Recorder.MaxLag)
	}
	if opts.Recorder.Video.Quality != 18 {
		t.Errorf("expected high preset CRF 18, got %d", opts.Recorder.Video.Quality)
	}
	if opts.Recorder.Audio.Bitrate != 192 {
		t.Errorf("expected high preset bitrate 192, got %d", opts.Recorder.Audio.Bitrate)
	}
}

func TestLoadFromFile_Errors(t *testing.T) {
	if _, err := LoadFromFile(filepath.Join(t.TempDir(), "missing.yaml")); err == nil {
		t.Error("expected error for missing file")
	}

	path := filepath.Join(t.TempDir(), "bad.yaml")
	if err := os.WriteFile(path, []byte("width: [1, 2"), 0644); err != nil {
		t.Fatalf("failed to write config: %v", err)
	}
	if _, err := LoadFromFile(path); err == nil {
		t.Error("expected parse error")
	}
}

func TestEncoding_OverridesPreset(t *testing.T) {
	cfg := Defaults()
	cfg.JPEGQuality = 55

	if got := cfg.VideoEncoding().Quality; got != 55 {
		t.Errorf("expected explicit JPEG quality 55, got %d", got)
	}

	cfg.VideoCodec = "h264"
	if got := cfg.VideoEncoding().Quality; got != 23 {
		t.Errorf("expected medium preset CRF 23, got %d", got)
	}
	if got := cfg.AudioEncoding().Bitrate; got != 128 {
		t.Errorf("expected medium preset bitrate 128, got %d", got)
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name   string
		modify func(*Config)
		field  string
	}{
		{"backend", func(c *Config) { c.Backend = "dshow" }, "backend"},
		{"quality", func(c *Config) { c.Quality = "ultra" }, "quality"},
		{"size", func(c *Config) { c.Width = 0 }, "width/height"},
		{"fps", func(c *Config) { c.FPS = 0 }, "fps"},
		{"sample rate", func(c *Config) { c.SampleRate = 0 }, "sample_rate"},
		{"sample rate too high", func(c *Config) { c.SampleRate = 96000 }, "sample_rate"},
		{"channels", func(c *Config) { c.Channels = 6 }, "channels"},
		{"jpeg quality", func(c *Config) { c.JPEGQuality = 101 }, "jpeg_quality"},
		{"crf", func(c *Config) { c.H264CRF = 52 }, "h264_crf"},
		{"queues", func(c *Config) { c.VideoQueue = -1 }, "video_queue"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Defaults()
			tt.modify(&cfg)
			err := cfg.Validate()
			if err == nil {
				t.Fatal("expected validation error")
			}
			if !strings.Contains(err.Error(), tt.field) {
				t.Errorf("expected error to mention %q, got %v", tt.field, err)
			}
		})
	}
}

func TestValidate_ReportsAllErrors(t *testing.T) {
	cfg := Defaults()
	cfg.Backend = "x"
	cfg.FPS = -1

	err := cfg.Validate()
	if err == nil {
		t.Fatal("expected validation error")
	}
	if !strings.Contains(err.Error(), "backend") || !strings.Contains(err.Error(), "fps") {
		t.Errorf("expected both errors, got %v", err)
	}
}
