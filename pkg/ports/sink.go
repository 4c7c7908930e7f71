package ports

import (
	"image"
)

// DebugSink abstracts debug output for captured frames.
// It allows saving preview snapshots for debugging purposes.
type DebugSink interface {
	// Enabled returns true if debug output is enabled.
	Enabled() bool

	// SaveFrame saves a captured frame. seq is the frame sequence number.
	SaveFrame(seq uint64, img image.Image) error

	// SaveRecordingJSON saves the recording metadata as JSON.
	SaveRecordingJSON(data []byte) error
}
