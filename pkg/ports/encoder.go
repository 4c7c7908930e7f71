package ports

import (
	"io"
	"time"
)

// EncoderOptions contains encoding parameters.
type EncoderOptions struct {
	// Quality is codec specific: JPEG quality (1-100) or x264 CRF (0-51).
	// Zero selects the codec default.
	Quality int
	// Bitrate in kbps for audio codecs that use one. Zero selects the default.
	Bitrate int
}

// EncodeParams describes the raw input an encoder is created for.
type EncodeParams struct {
	Video   VideoFormat
	Audio   AudioFormat
	Options EncoderOptions
}

// StreamConfig describes an encoded stream for the container.
type StreamConfig struct {
	// Codec is the sample entry type: "jpeg", "avc1", "sowt" or "mp4a".
	Codec string

	Width  int
	Height int

	SampleRate int
	Channels   int

	// SPS and PPS are set for "avc1".
	SPS []byte
	PPS []byte
}

// EncodedSample is one encoded access unit or audio frame.
type EncodedSample struct {
	Data []byte
	// PTS is relative to the start of the recording.
	PTS time.Duration
	// Duration is the nominal duration; the muxer prefers the gap to the next sample.
	Duration time.Duration
	Keyframe bool
}

// Encoder turns raw frames or audio blocks into encoded samples.
// Output may lag input; Flush returns whatever is still buffered.
type Encoder interface {
	// Encode consumes one raw frame or block captured at pts.
	Encode(data []byte, pts time.Duration) ([]EncodedSample, error)

	// Flush ends the stream and returns the remaining samples.
	Flush() ([]EncodedSample, error)

	// Config returns the stream configuration once it is known.
	Config() (StreamConfig, bool)

	// Close releases resources. Safe to call after Flush.
	Close() error
}

// EncoderFactory creates an encoder for the given input.
type EncoderFactory func(params EncodeParams) (Encoder, error)

// Muxer writes encoded samples of several tracks into a container.
// Samples must be written in timestamp order across tracks.
type Muxer interface {
	// SetTrackConfig provides the stream configuration of a track.
	SetTrackConfig(track int, cfg StreamConfig) error

	// WriteSample appends a sample to a track.
	WriteSample(track int, sample EncodedSample) error

	// Finalize flushes buffered samples. The writer is not closed.
	Finalize() error
}

// MuxerOptions configures a container.
type MuxerOptions struct {
	// Tracks lists the track kinds; the index is the track number.
	Tracks []MediaKind
	// QuickTime selects the QuickTime brand used for .mov files.
	QuickTime bool
}

// MuxerFactory creates a muxer writing to w.
type MuxerFactory func(w io.Writer, opts MuxerOptions) (Muxer, error)
