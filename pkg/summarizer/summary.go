// Package summarizer provides summary generation for recording results.
package summarizer

import "time"

// Summary contains all data collected during a recording session.
type Summary struct {
	// Metadata
	GeneratedAt time.Time

	// Recording job
	Recording RecordingInfo

	// Selected devices
	Devices DeviceInfo

	// Track details
	Video VideoInfo
	Audio AudioInfo

	// Late counts samples that reached the merge stage after a newer
	// sample of another track had been written.
	Late int

	// Error is set when the recording was aborted.
	Error string
}

// RecordingInfo describes the output file.
type RecordingInfo struct {
	ID        string
	Path      string
	StartedAt time.Time
	Duration  time.Duration
	FileSize  int64
}

// DeviceInfo names the capture devices.
type DeviceInfo struct {
	Video string
	Audio string
}

// VideoInfo contains information about the video track.
type VideoInfo struct {
	Codec   string
	Width   int
	Height  int
	FPS     float64
	Samples int
	Dropped uint64
}

// AudioInfo contains information about the audio track.
// An empty Codec means the recording has no audio.
type AudioInfo struct {
	Codec      string
	SampleRate int
	Channels   int
	Samples    int
	Dropped    uint64
}

// NewSummary creates a new Summary with the current timestamp.
func NewSummary() *Summary {
	return &Summary{
		GeneratedAt: time.Now(),
	}
}

// Builder provides a fluent interface for building a Summary.
type Builder struct {
	summary *Summary
}

// NewBuilder creates a new Builder.
func NewBuilder() *Builder {
	return &Builder{
		summary: NewSummary(),
	}
}

// WithRecording sets the recording job information.
func (b *Builder) WithRecording(info RecordingInfo) *Builder {
	b.summary.Recording = info
	return b
}

// WithDevices sets the device names.
func (b *Builder) WithDevices(video, audio string) *Builder {
	b.summary.Devices = DeviceInfo{
		Video: video,
		Audio: audio,
	}
	return b
}

// WithVideo sets video track information.
func (b *Builder) WithVideo(video VideoInfo) *Builder {
	b.summary.Video = video
	return b
}

// WithAudio sets audio track information.
func (b *Builder) WithAudio(audio AudioInfo) *Builder {
	b.summary.Audio = audio
	return b
}

// WithLate sets the late sample count.
func (b *Builder) WithLate(n int) *Builder {
	b.summary.Late = n
	return b
}

// WithError records why the recording ended early. A nil error is ignored.
func (b *Builder) WithError(err error) *Builder {
	if err != nil {
		b.summary.Error = err.Error()
	}
	return b
}

// Build returns the constructed Summary.
func (b *Builder) Build() *Summary {
	return b.summary
}
