// Package smartencoder lists the encoders available on this system and
// creates them by name.
package smartencoder

import (
	"errors"
	"fmt"

	"github.com/user/avgrabber/pkg/adapters/aacencoder"
	"github.com/user/avgrabber/pkg/adapters/ffmpeg"
	"github.com/user/avgrabber/pkg/adapters/h264encoder"
	"github.com/user/avgrabber/pkg/adapters/jpegencoder"
	"github.com/user/avgrabber/pkg/adapters/pcmencoder"
	"github.com/user/avgrabber/pkg/ports"
)

const (
	// CodecJPEG is Motion JPEG video.
	CodecJPEG = "jpeg"
	// CodecH264 is H.264/AVC video.
	CodecH264 = "h264"
	// CodecPCM is uncompressed 16-bit audio.
	CodecPCM = "pcm"
	// CodecAAC is AAC-LC audio.
	CodecAAC = "aac"

	// DefaultVideo is selected when no video codec is chosen.
	DefaultVideo = CodecJPEG
	// DefaultAudio is selected when no audio codec is chosen.
	DefaultAudio = CodecPCM
)

// Backend represents the encoding backend used.
type Backend string

const (
	// BackendNative represents encoders implemented in Go.
	BackendNative Backend = "native"
	// BackendFFmpeg represents FFmpeg-based encoding.
	BackendFFmpeg Backend = "ffmpeg"
)

// Info describes an available codec.
type Info struct {
	Name        string
	Kind        ports.MediaKind
	Backend     Backend
	Description string
	// Factory creates encoders for this codec.
	Factory ports.EncoderFactory
}

// Options configures codec discovery.
type Options struct {
	// FFmpegPath is an optional custom path to the ffmpeg binary.
	FFmpegPath string
	// DisableFFmpeg hides ffmpeg-backed codecs.
	DisableFFmpeg bool
	// Logger reports codecs that are unavailable.
	Logger ports.Logger
}

var (
	// ErrNoEncoderAvailable is returned when the named codec is unknown or unavailable.
	ErrNoEncoderAvailable = errors.New("smartencoder: no encoder available")
)

type candidate struct {
	info      Info
	available func() bool
}

func candidates() []candidate {
	return []candidate{
		{
			info: Info{
				Name:        CodecJPEG,
				Kind:        ports.KindVideo,
				Backend:     BackendNative,
				Description: "Motion JPEG",
				Factory:     jpegencoder.Factory,
			},
		},
		{
			info: Info{
				Name:        CodecH264,
				Kind:        ports.KindVideo,
				Backend:     BackendFFmpeg,
				Description: "H.264 (libx264)",
				Factory:     h264encoder.Factory,
			},
			available: h264encoder.IsAvailable,
		},
		{
			info: Info{
				Name:        CodecPCM,
				Kind:        ports.KindAudio,
				Backend:     BackendNative,
				Description: "Linear PCM 16-bit",
				Factory:     pcmencoder.Factory,
			},
		},
		{
			info: Info{
				Name:        CodecAAC,
				Kind:        ports.KindAudio,
				Backend:     BackendFFmpeg,
				Description: "AAC-LC",
				Factory:     aacencoder.Factory,
			},
			available: aacencoder.IsAvailable,
		},
	}
}

// Available returns the usable codecs in registration order: video first, then audio.
func Available(opts Options) []Info {
	if opts.FFmpegPath != "" {
		ffmpeg.SetFFmpegPath(opts.FFmpegPath)
	}

	var out []Info
	for _, c := range candidates() {
		if c.info.Backend == BackendFFmpeg && opts.DisableFFmpeg {
			continue
		}
		if c.available != nil && !c.available() {
			if opts.Logger != nil {
				opts.Logger.Debug("Codec %s unavailable: %s backend not found", c.info.Name, c.info.Backend)
			}
			continue
		}
		out = append(out, c.info)
	}
	return out
}

// Lookup returns the named codec of the given kind.
func Lookup(name string, kind ports.MediaKind, opts Options) (Info, error) {
	for _, info := range Available(opts) {
		if info.Name == name && info.Kind == kind {
			return info, nil
		}
	}
	return Info{}, fmt.Errorf("%w: %s codec %q", ErrNoEncoderAvailable, kind, name)
}

// IsH264Available checks if H.264 encoding is available.
func IsH264Available() bool {
	return h264encoder.IsAvailable()
}

// IsAACAvailable checks if AAC encoding is available.
func IsAACAvailable() bool {
	return aacencoder.IsAvailable()
}
