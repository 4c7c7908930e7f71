package main

import (
	"github.com/user/avgrabber/pkg/adapters/ffmpeg"
	"github.com/user/avgrabber/pkg/adapters/ffmpegdevice"
	"github.com/user/avgrabber/pkg/adapters/mp4muxer"
	"github.com/user/avgrabber/pkg/adapters/osfilesystem"
	"github.com/user/avgrabber/pkg/adapters/smartencoder"
	"github.com/user/avgrabber/pkg/adapters/sysclock"
	"github.com/user/avgrabber/pkg/adapters/testpattern"
	"github.com/user/avgrabber/pkg/catalog"
	"github.com/user/avgrabber/pkg/config"
	"github.com/user/avgrabber/pkg/grabber"
	"github.com/user/avgrabber/pkg/ports"
)

// newGrabber wires the adapters selected by cfg into a Grabber.
func newGrabber(cfg config.Config, log ports.Logger, sink ports.DebugSink) *grabber.Grabber {
	if cfg.FFmpegPath != "" {
		ffmpeg.SetFFmpegPath(cfg.FFmpegPath)
	}

	opts := cfg.ToGrabberOptions()
	opts.Providers = providers(cfg.Backend, log)
	opts.Codecs = codecs(cfg, log)
	opts.FileSystem = osfilesystem.New()
	opts.Muxer = mp4muxer.Factory
	opts.Clock = sysclock.New()
	opts.Logger = log
	opts.DebugSink = sink

	return grabber.New(opts)
}

// providers returns the device backends. With auto, hardware devices come
// first so the default device is a real camera when one exists.
func providers(backend config.Backend, log ports.Logger) []ports.DeviceProvider {
	switch backend {
	case config.BackendTestPattern:
		return []ports.DeviceProvider{testpattern.New()}
	case config.BackendFFmpeg:
		return []ports.DeviceProvider{ffmpegdevice.New(log)}
	default:
		var out []ports.DeviceProvider
		if ffmpegdevice.IsAvailable() {
			out = append(out, ffmpegdevice.New(log))
		}
		return append(out, testpattern.New())
	}
}

func codecs(cfg config.Config, log ports.Logger) []catalog.Codec {
	infos := smartencoder.Available(smartencoder.Options{
		FFmpegPath: cfg.FFmpegPath,
		Logger:     log.WithComponent("codecs"),
	})
	out := make([]catalog.Codec, 0, len(infos))
	for _, info := range infos {
		out = append(out, catalog.NewCodec(info.Name, info.Kind, info.Description, info.Factory))
	}
	return out
}
