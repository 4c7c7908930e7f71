package grabber

import (
	"errors"

	"github.com/user/avgrabber/pkg/catalog"
	"github.com/user/avgrabber/pkg/recorder"
)

var (
	// ErrInvalidState is returned when an operation is called out of lifecycle order.
	ErrInvalidState = errors.New("grabber: invalid state")
	// ErrDeviceLost is reported when a device fails after it started.
	ErrDeviceLost = errors.New("grabber: device lost")

	// ErrDeviceNotFound is returned for unknown device or codec names.
	ErrDeviceNotFound = catalog.ErrDeviceNotFound
	// ErrAlreadyRecording is returned by StartRecording while recording.
	ErrAlreadyRecording = recorder.ErrAlreadyRecording
	// ErrEncodeWrite is reported when a recording fails to encode or write.
	ErrEncodeWrite = recorder.ErrEncodeWrite
)
