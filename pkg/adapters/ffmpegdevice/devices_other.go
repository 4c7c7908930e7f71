//go:build !linux && !darwin

package ffmpegdevice

import "github.com/user/avgrabber/pkg/ports"

func listVideo() ([]ports.DeviceInfo, error) {
	return nil, nil
}

func listAudio() ([]ports.DeviceInfo, error) {
	return nil, nil
}

func videoInputArgs(info ports.DeviceInfo, f ports.VideoFormat) ([]string, error) {
	return nil, ErrUnsupported
}

func audioInputArgs(info ports.DeviceInfo, f ports.AudioFormat) ([]string, error) {
	return nil, ErrUnsupported
}
