// Package config provides configuration loading and management.
package config

import (
	"errors"
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/user/avgrabber/pkg/grabber"
	"github.com/user/avgrabber/pkg/ports"
	"github.com/user/avgrabber/pkg/recorder"
)

// Backend selects which device providers are used.
type Backend string

const (
	BackendAuto        Backend = "auto"
	BackendFFmpeg      Backend = "ffmpeg"
	BackendTestPattern Backend = "testpattern"
)

// QualityPreset represents a video quality preset name.
type QualityPreset string

const (
	QualityLow    QualityPreset = "low"
	QualityMedium QualityPreset = "medium"
	QualityHigh   QualityPreset = "high"
)

// QualitySettings contains encoder parameters for a preset.
type QualitySettings struct {
	JPEGQuality int // Motion JPEG quality (1-100)
	H264CRF     int // x264 CRF (0-51, lower is better)
	AACBitrate  int // kbps
}

// GetQualitySettings returns quality settings for the given preset.
func GetQualitySettings(preset QualityPreset) QualitySettings {
	switch preset {
	case QualityLow:
		return QualitySettings{JPEGQuality: 60, H264CRF: 30, AACBitrate: 96}
	case QualityHigh:
		return QualitySettings{JPEGQuality: 92, H264CRF: 18, AACBitrate: 192}
	default: // medium
		return QualitySettings{JPEGQuality: 80, H264CRF: 23, AACBitrate: 128}
	}
}

// Config represents the full configuration for avgrabber.
type Config struct {
	// Devices
	Backend     Backend `yaml:"backend"`
	FFmpegPath  string  `yaml:"ffmpeg_path"`
	VideoDevice string  `yaml:"video_device"`
	AudioDevice string  `yaml:"audio_device"`
	UseAudio    bool    `yaml:"use_audio"`

	// Capture format
	Width      int     `yaml:"width"`
	Height     int     `yaml:"height"`
	FPS        float64 `yaml:"fps"`
	SampleRate int     `yaml:"sample_rate"`
	Channels   int     `yaml:"channels"`

	// Encoding
	VideoCodec  string        `yaml:"video_codec"`
	AudioCodec  string        `yaml:"audio_codec"`
	Quality     QualityPreset `yaml:"quality"`
	JPEGQuality int           `yaml:"jpeg_quality"`
	H264CRF     int           `yaml:"h264_crf"`
	AACBitrate  int           `yaml:"aac_bitrate"`

	// Recorder
	DataDir    string `yaml:"data_dir"`
	VideoQueue int    `yaml:"video_queue"`
	AudioQueue int    `yaml:"audio_queue"`
	MaxLagMs   int    `yaml:"max_lag_ms"`

	// Debug
	SnapshotEvery int    `yaml:"snapshot_every"`
	LogLevel      string `yaml:"log_level"`
}

// Defaults returns a Config with default values.
func Defaults() Config {
	return Config{
		Backend: BackendAuto,

		Width:      grabber.DefaultWidth,
		Height:     grabber.DefaultHeight,
		FPS:        grabber.DefaultFPS,
		SampleRate: grabber.DefaultSampleRate,
		Channels:   grabber.DefaultChannels,

		Quality: QualityMedium,

		DataDir:    recorder.DefaultDataDir,
		VideoQueue: recorder.DefaultVideoQueue,
		AudioQueue: recorder.DefaultAudioQueue,
		MaxLagMs:   int(recorder.DefaultMaxLag / time.Millisecond),

		SnapshotEvery: 30,
		LogLevel:      "info",
	}
}

// LoadFromFile loads configuration from a YAML file.
// Keys missing from the file keep their defaults.
func LoadFromFile(path string) (Config, error) {
	cfg := Defaults()

	data, err := os.ReadFile(path)
	if err != nil {
		return cfg, err
	}

	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return cfg, fmt.Errorf("parse %s: %w", path, err)
	}

	return cfg, nil
}

// Validate reports every invalid setting.
func (c Config) Validate() error {
	var errs []error

	switch c.Backend {
	case BackendAuto, BackendFFmpeg, BackendTestPattern:
	default:
		errs = append(errs, fmt.Errorf("backend: unknown value %q", c.Backend))
	}
	switch c.Quality {
	case QualityLow, QualityMedium, QualityHigh:
	default:
		errs = append(errs, fmt.Errorf("quality: unknown preset %q", c.Quality))
	}
	if c.Width <= 0 || c.Height <= 0 {
		errs = append(errs, fmt.Errorf("width/height: must be positive, got %dx%d", c.Width, c.Height))
	}
	if c.FPS <= 0 || c.FPS > 240 {
		errs = append(errs, fmt.Errorf("fps: must be in (0, 240], got %g", c.FPS))
	}
	if c.SampleRate <= 0 || c.SampleRate > ports.MaxSampleRate {
		errs = append(errs, fmt.Errorf("sample_rate: must be in (0, %d], got %d", ports.MaxSampleRate, c.SampleRate))
	}
	if c.Channels < 1 || c.Channels > 2 {
		errs = append(errs, fmt.Errorf("channels: must be 1 or 2, got %d", c.Channels))
	}
	if c.JPEGQuality < 0 || c.JPEGQuality > 100 {
		errs = append(errs, fmt.Errorf("jpeg_quality: must be in [0, 100], got %d", c.JPEGQuality))
	}
	if c.H264CRF < 0 || c.H264CRF > 51 {
		errs = append(errs, fmt.Errorf("h264_crf: must be in [0, 51], got %d", c.H264CRF))
	}
	if c.AACBitrate < 0 {
		errs = append(errs, fmt.Errorf("aac_bitrate: must not be negative, got %d", c.AACBitrate))
	}
	if c.VideoQueue < 0 || c.AudioQueue < 0 || c.MaxLagMs < 0 {
		errs = append(errs, errors.New("video_queue, audio_queue and max_lag_ms must not be negative"))
	}
	if c.SnapshotEvery < 0 {
		errs = append(errs, fmt.Errorf("snapshot_every: must not be negative, got %d", c.SnapshotEvery))
	}

	return errors.Join(errs...)
}

// quality resolves the preset with explicit overrides applied.
func (c Config) quality() QualitySettings {
	q := GetQualitySettings(c.Quality)
	if c.JPEGQuality > 0 {
		q.JPEGQuality = c.JPEGQuality
	}
	if c.H264CRF > 0 {
		q.H264CRF = c.H264CRF
	}
	if c.AACBitrate > 0 {
		q.AACBitrate = c.AACBitrate
	}
	return q
}

// VideoEncoding returns the encoder options for the configured video codec.
func (c Config) VideoEncoding() ports.EncoderOptions {
	q := c.quality()
	if c.VideoCodec == "h264" {
		return ports.EncoderOptions{Quality: q.H264CRF}
	}
	return ports.EncoderOptions{Quality: q.JPEGQuality}
}

// AudioEncoding returns the encoder options for audio.
func (c Config) AudioEncoding() ports.EncoderOptions {
	return ports.EncoderOptions{Bitrate: c.quality().AACBitrate}
}

// ToGrabberOptions converts Config to grabber.Options.
// Collaborators (providers, codecs, file system, muxer, clock, logger)
// are left for the caller to wire.
func (c Config) ToGrabberOptions() grabber.Options {
	return grabber.Options{
		Width:         c.Width,
		Height:        c.Height,
		FPS:           c.FPS,
		SampleRate:    c.SampleRate,
		Channels:      c.Channels,
		SnapshotEvery: c.SnapshotEvery,
		Recorder: recorder.Options{
			DataDir:    c.DataDir,
			VideoQueue: c.VideoQueue,
			AudioQueue: c.AudioQueue,
			MaxLag:     time.Duration(c.MaxLagMs) * time.Millisecond,
			Video:      c.VideoEncoding(),
			Audio:      c.AudioEncoding(),
		},
	}
}
