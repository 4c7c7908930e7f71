// Package filesink provides a file-based debug sink implementation.
package filesink

import (
	"bytes"
	"fmt"
	"image"
	"image/png"
	"path/filepath"

	"golang.org/x/image/draw"

	"github.com/user/avgrabber/pkg/ports"
)

// DefaultMaxWidth is the snapshot width used when none is configured.
const DefaultMaxWidth = 320

// Sink saves preview snapshots as PNG and recording metadata as JSON.
type Sink struct {
	baseDir  string
	fs       ports.FileSystem
	maxWidth int
}

// New creates a new FileSink. Snapshots wider than maxWidth are scaled down.
func New(baseDir string, fs ports.FileSystem, maxWidth int) *Sink {
	if maxWidth <= 0 {
		maxWidth = DefaultMaxWidth
	}
	return &Sink{
		baseDir:  baseDir,
		fs:       fs,
		maxWidth: maxWidth,
	}
}

// Enabled returns true as this sink saves output.
func (s *Sink) Enabled() bool {
	return true
}

// SaveRecordingJSON saves the recording metadata as JSON.
func (s *Sink) SaveRecordingJSON(data []byte) error {
	if err := s.fs.MkdirAll(s.baseDir); err != nil {
		return err
	}
	path := filepath.Join(s.baseDir, "recording.json")
	return s.fs.WriteFile(path, data)
}

// SaveFrame saves a preview frame as frames/frame-NNNNNN.png.
func (s *Sink) SaveFrame(seq uint64, img image.Image) error {
	dir := filepath.Join(s.baseDir, "frames")
	if err := s.fs.MkdirAll(dir); err != nil {
		return err
	}

	var buf bytes.Buffer
	if err := png.Encode(&buf, s.thumbnail(img)); err != nil {
		return fmt.Errorf("encode frame %d: %w", seq, err)
	}
	path := filepath.Join(dir, fmt.Sprintf("frame-%06d.png", seq))
	return s.fs.WriteFile(path, buf.Bytes())
}

// thumbnail keeps the aspect ratio and never scales up.
func (s *Sink) thumbnail(img image.Image) image.Image {
	b := img.Bounds()
	if b.Dx() <= s.maxWidth {
		return img
	}
	h := b.Dy() * s.maxWidth / b.Dx()
	if h < 1 {
		h = 1
	}
	dst := image.NewRGBA(image.Rect(0, 0, s.maxWidth, h))
	draw.CatmullRom.Scale(dst, dst.Bounds(), img, b, draw.Over, nil)
	return dst
}

// Ensure Sink implements ports.DebugSink
var _ ports.DebugSink = (*Sink)(nil)
