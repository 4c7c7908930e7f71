package h264encoder

import "errors"

var (
	// ErrNotInitialized is returned when encoder methods are called after Close.
	ErrNotInitialized = errors.New("h264encoder: encoder not initialized")

	// ErrEncodingFailed is returned when ffmpeg stops accepting frames.
	ErrEncodingFailed = errors.New("h264encoder: encoding failed")

	// ErrFrameSize is returned for frames that do not match the configured size.
	ErrFrameSize = errors.New("h264encoder: unexpected frame size")

	// ErrNoParameterSets is returned when the stream lacks SPS or PPS.
	ErrNoParameterSets = errors.New("h264encoder: SPS/PPS not found")
)
