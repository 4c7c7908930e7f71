package recorder

import "errors"

var (
	// ErrAlreadyRecording is returned by Start while a recording is active.
	ErrAlreadyRecording = errors.New("recorder: already recording")
	// ErrNotInitialized is returned by Start before Init.
	ErrNotInitialized = errors.New("recorder: not initialized")
	// ErrEncodeWrite is reported when encoding or writing the container fails.
	ErrEncodeWrite = errors.New("recorder: encode or write failed")
)
