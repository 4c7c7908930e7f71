// Package main provides the CLI entry point for avgrabber.
package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/alecthomas/kong"
	"github.com/ideamans/go-l10n"

	"github.com/user/avgrabber/pkg/adapters/filesink"
	"github.com/user/avgrabber/pkg/adapters/logger"
	"github.com/user/avgrabber/pkg/adapters/nullsink"
	"github.com/user/avgrabber/pkg/adapters/osfilesystem"
	"github.com/user/avgrabber/pkg/config"
	"github.com/user/avgrabber/pkg/grabber"
	"github.com/user/avgrabber/pkg/ports"
	"github.com/user/avgrabber/pkg/recorder"
	"github.com/user/avgrabber/pkg/summarizer"
)

// CLI defines the command-line interface with subcommands.
type CLI struct {
	Devices DevicesCmd `cmd:"" help:"List capture devices and codecs."`
	Record  RecordCmd  `cmd:"" help:"Record video and audio to an MP4 or MOV file."`
	Version VersionCmd `cmd:"" help:"Show version information."`
}

// CommonFlags are shared by the device and record commands.
type CommonFlags struct {
	Config     string  `short:"c" help:"YAML configuration file."`
	Backend    *string `short:"b" help:"Device backend (auto, ffmpeg, testpattern)."`
	FFmpegPath *string `help:"Path to ffmpeg executable (falls back to FFMPEG_PATH env, then PATH)."`

	// Logging options
	LogLevel *string `short:"l" help:"Log level (debug, info, warn, error)."`
	Quiet    bool    `short:"Q" help:"Suppress all log output."`
}

// DevicesCmd defines the devices subcommand.
type DevicesCmd struct {
	CommonFlags `embed:""`
}

// RecordCmd defines the record subcommand.
type RecordCmd struct {
	CommonFlags `embed:""`

	// Required arguments
	Output string `arg:"" help:"Output file path (.mp4 or .mov). Relative paths resolve against the data directory."`

	// Devices
	Video     *string `short:"v" help:"Video device name (default: first device)."`
	Audio     *string `short:"a" help:"Audio device name; enables audio."`
	WithAudio bool    `help:"Record audio from the default audio device."`

	// Capture format
	Width  *int     `short:"W" help:"Requested frame width (default: 640)."`
	Height *int     `short:"H" help:"Requested frame height (default: 480)."`
	FPS    *float64 `help:"Capture frame rate (default: 30)."`

	// Encoding options
	VideoCodec *string `help:"Video codec (jpeg, h264)."`
	AudioCodec *string `help:"Audio codec (pcm, aac)."`
	Quality    *string `short:"q" help:"Quality preset (low, medium, high)."`
	DataDir    *string `help:"Directory for relative output paths (default: data)."`

	// Session
	Duration  time.Duration `short:"t" help:"Stop after this duration (default: until interrupted)."`
	NoPreview bool          `help:"Capture without the preview frame buffer."`

	// Debug options
	SnapshotDir   string `help:"Save preview snapshots and recording metadata to this directory."`
	SnapshotEvery *int   `help:"Save every Nth preview frame (default: 30)."`

	// Summary
	Summary       bool   `short:"s" help:"Write a summary next to the output file."`
	SummaryFormat string `default:"markdown" enum:"markdown,json" help:"Summary format (markdown, json)."`
}

// VersionCmd shows version information.
type VersionCmd struct{}

var version = "dev"

func main() {
	cli := CLI{}

	ctx := kong.Parse(&cli,
		kong.Name("avgrabber"),
		kong.Description("Capture synchronized video and audio and record it to fragmented MP4."),
		kong.UsageOnError(),
	)

	err := ctx.Run()
	ctx.FatalIfErrorf(err)
}

// load reads the configuration file and applies the common overrides.
func (f *CommonFlags) load() (config.Config, error) {
	cfg := config.Defaults()
	if f.Config != "" {
		loaded, err := config.LoadFromFile(f.Config)
		if err != nil {
			return cfg, err
		}
		cfg = loaded
	}
	if f.Backend != nil {
		cfg.Backend = config.Backend(*f.Backend)
	}
	if f.FFmpegPath != nil {
		cfg.FFmpegPath = *f.FFmpegPath
	}
	if f.LogLevel != nil {
		cfg.LogLevel = *f.LogLevel
	}
	return cfg, nil
}

func (f *CommonFlags) logger(cfg config.Config) ports.Logger {
	if f.Quiet {
		return logger.NewNoop()
	}
	return logger.NewConsole(ports.ParseLogLevel(cfg.LogLevel))
}

// Run executes the devices command.
func (cmd *DevicesCmd) Run() error {
	cfg, err := cmd.load()
	if err != nil {
		return err
	}
	if err := cfg.Validate(); err != nil {
		return err
	}
	log := cmd.logger(cfg)

	g := newGrabber(cfg, log, nil)
	defer g.Close()

	video, err := g.ListVideoDevices()
	if err != nil {
		return err
	}
	audio, err := g.ListAudioDevices()
	if err != nil {
		return err
	}

	printList(l10n.T("Video devices"), video)
	printList(l10n.T("Audio devices"), audio)
	printList(l10n.T("Video codecs"), g.ListVideoCodecs())
	printList(l10n.T("Audio codecs"), g.ListAudioCodecs())
	return nil
}

func printList(title string, items []string) {
	fmt.Println(title + ":")
	if len(items) == 0 {
		fmt.Println("  " + l10n.T("(none)"))
	}
	for _, item := range items {
		fmt.Println("  " + item)
	}
}

// Run executes the record command.
func (cmd *RecordCmd) Run() error {
	cfg, err := cmd.buildConfig()
	if err != nil {
		return err
	}
	if err := cfg.Validate(); err != nil {
		return err
	}
	log := cmd.logger(cfg)

	// Setup context with cancellation
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Handle signals
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	defer signal.Stop(sigCh)
	go func() {
		select {
		case <-sigCh:
			log.Warn("Interrupted, stopping recording...")
			cancel()
		case <-ctx.Done():
		}
	}()

	fs := osfilesystem.New()

	// Create debug sink
	var sink ports.DebugSink
	if cmd.SnapshotDir != "" {
		sink = filesink.New(cmd.SnapshotDir, fs, filesink.DefaultMaxWidth)
	} else {
		sink = nullsink.New()
	}

	g := newGrabber(cfg, log, sink)
	defer g.Close()

	if err := cmd.selectInputs(g, cfg); err != nil {
		return err
	}

	if cmd.NoPreview {
		err = g.InitGrabberWithoutPreview()
	} else {
		_, _, err = g.InitGrabber(cfg.Width, cfg.Height)
	}
	if err != nil {
		return err
	}
	if err := g.InitRecording(); err != nil {
		return err
	}
	if err := g.StartRecording(cmd.Output); err != nil {
		return err
	}

	if cmd.Duration > 0 {
		log.Info("Recording %s for %s...", cmd.Output, cmd.Duration)
	} else {
		log.Info("Recording %s until interrupted...", cmd.Output)
	}

	failure := cmd.tick(ctx, g)

	res, err := g.StopRecording()
	if err != nil {
		return err
	}
	if res.ID == "" {
		// Aborted jobs are finalized by the recorder itself.
		res, _ = g.LastRecording()
	}

	if cmd.Summary && res.ID != "" {
		cmd.writeSummary(g, fs, res, failure, log)
	}
	if cmd.SnapshotDir != "" {
		log.Info("Snapshots saved to %s", cmd.SnapshotDir)
	}
	return failure
}

// tick runs the update loop at the capture rate until the duration elapses,
// the context is cancelled or the recording fails.
func (cmd *RecordCmd) tick(ctx context.Context, g *grabber.Grabber) error {
	fps := g.FPS()
	if fps <= 0 {
		fps = grabber.DefaultFPS
	}
	ticker := time.NewTicker(time.Duration(float64(time.Second) / fps))
	defer ticker.Stop()

	var deadline <-chan time.Time
	if cmd.Duration > 0 {
		timer := time.NewTimer(cmd.Duration)
		defer timer.Stop()
		deadline = timer.C
	}

	for {
		select {
		case <-ctx.Done():
			return nil
		case <-deadline:
			return nil
		case <-ticker.C:
		}

		var err error
		if cmd.NoPreview {
			err = g.Err()
		} else {
			err = g.Update()
		}
		// The grabber logs every error it reports; only failures that end
		// the recording stop the loop.
		if errors.Is(err, grabber.ErrDeviceLost) || errors.Is(err, grabber.ErrEncodeWrite) {
			return err
		}
	}
}

// selectInputs applies device and codec selection.
func (cmd *RecordCmd) selectInputs(g *grabber.Grabber, cfg config.Config) error {
	if cfg.VideoDevice != "" {
		if err := g.SetVideoDeviceID(cfg.VideoDevice); err != nil {
			return err
		}
	}
	if err := g.SetUseAudio(cfg.UseAudio); err != nil {
		return err
	}
	if cfg.UseAudio && cfg.AudioDevice != "" {
		if err := g.SetAudioDeviceID(cfg.AudioDevice); err != nil {
			return err
		}
	}
	if cfg.VideoCodec != "" {
		if err := g.SetVideoCodec(cfg.VideoCodec); err != nil {
			return err
		}
	}
	if cfg.UseAudio && cfg.AudioCodec != "" {
		if err := g.SetAudioCodec(cfg.AudioCodec); err != nil {
			return err
		}
	}
	return nil
}

// buildConfig creates a Config from the file and CLI overrides.
func (cmd *RecordCmd) buildConfig() (config.Config, error) {
	cfg, err := cmd.load()
	if err != nil {
		return cfg, err
	}

	if cmd.Video != nil {
		cfg.VideoDevice = *cmd.Video
	}
	if cmd.Audio != nil {
		cfg.AudioDevice = *cmd.Audio
		cfg.UseAudio = true
	}
	if cmd.WithAudio {
		cfg.UseAudio = true
	}
	if cmd.Width != nil {
		cfg.Width = *cmd.Width
	}
	if cmd.Height != nil {
		cfg.Height = *cmd.Height
	}
	if cmd.FPS != nil {
		cfg.FPS = *cmd.FPS
	}
	if cmd.VideoCodec != nil {
		cfg.VideoCodec = *cmd.VideoCodec
	}
	if cmd.AudioCodec != nil {
		cfg.AudioCodec = *cmd.AudioCodec
	}
	if cmd.Quality != nil {
		cfg.Quality = config.QualityPreset(*cmd.Quality)
	}
	if cmd.DataDir != nil {
		cfg.DataDir = *cmd.DataDir
	}
	if cmd.SnapshotEvery != nil {
		cfg.SnapshotEvery = *cmd.SnapshotEvery
	}

	return cfg, nil
}

func (cmd *RecordCmd) writeSummary(g *grabber.Grabber, fs ports.FileSystem, res recorder.Result, failure error, log ports.Logger) {
	audioFmt := g.AudioFormat()
	summary := summarizer.NewBuilder().
		WithRecording(summarizer.RecordingInfo{
			ID:        res.ID,
			Path:      res.Path,
			StartedAt: res.StartedAt,
			Duration:  res.Duration,
			FileSize:  res.Bytes,
		}).
		WithDevices(g.VideoDeviceName(), g.AudioDeviceName()).
		WithVideo(summarizer.VideoInfo{
			Codec:   res.VideoCodec,
			Width:   g.Width(),
			Height:  g.Height(),
			FPS:     g.FPS(),
			Samples: res.VideoSamples,
			Dropped: res.VideoDropped,
		}).
		WithAudio(summarizer.AudioInfo{
			Codec:      res.AudioCodec,
			SampleRate: audioFmt.SampleRate,
			Channels:   audioFmt.Channels,
			Samples:    res.AudioSamples,
			Dropped:    res.AudioDropped,
		}).
		WithLate(res.Late).
		WithError(failure).
		Build()

	var formatter summarizer.Formatter = summarizer.NewMarkdownFormatter(
		summarizer.WithTranslator(l10n.T),
		summarizer.WithVersion(version),
	)
	if cmd.SummaryFormat == "json" {
		formatter = summarizer.JSONFormatter{}
	}
	writer := summarizer.NewWriter(formatter, fs)
	path := writer.PathFor(res.Path)
	if err := writer.Write(path, summary); err != nil {
		log.Error("Failed to write summary: %v", err)
		return
	}
	log.Info("Summary written to %s", path)
}

// Run executes the version command.
func (cmd *VersionCmd) Run() error {
	fmt.Println(l10n.F("avgrabber version %s", version))
	return nil
}
