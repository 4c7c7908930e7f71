//go:build darwin

package ffmpegdevice

import (
	"context"
	"fmt"
	"os/exec"
	"strconv"
	"strings"
	"time"

	"github.com/user/avgrabber/pkg/adapters/ffmpeg"
	"github.com/user/avgrabber/pkg/ports"
)

const listTimeout = 5 * time.Second

// listAVFoundation runs the device listing. ffmpeg exits with an error
// because the empty input cannot be opened; the listing is on stderr.
func listAVFoundation() (video, audio []avfEntry, err error) {
	path, err := ffmpeg.FindFFmpeg()
	if err != nil {
		return nil, nil, err
	}
	ctx, cancel := context.WithTimeout(context.Background(), listTimeout)
	defer cancel()

	cmd := exec.CommandContext(ctx, path, "-hide_banner", "-nostdin", "-f", "avfoundation", "-list_devices", "true", "-i", "")
	out, _ := cmd.CombinedOutput()
	if ctx.Err() != nil {
		return nil, nil, fmt.Errorf("ffmpeg device listing timeout after %s", listTimeout)
	}
	video, audio = parseAVFoundation(string(out))
	return video, audio, nil
}

func listVideo() ([]ports.DeviceInfo, error) {
	video, _, err := listAVFoundation()
	if err != nil {
		return nil, err
	}
	var out []ports.DeviceInfo
	for _, e := range video {
		out = append(out, ports.DeviceInfo{Name: e.name, Kind: ports.KindVideo, Input: e.index})
	}
	return out, nil
}

func listAudio() ([]ports.DeviceInfo, error) {
	_, audio, err := listAVFoundation()
	if err != nil {
		return nil, err
	}
	var out []ports.DeviceInfo
	for _, e := range audio {
		out = append(out, ports.DeviceInfo{Name: e.name, Kind: ports.KindAudio, Input: e.index})
	}
	return out, nil
}

func videoInputArgs(info ports.DeviceInfo, f ports.VideoFormat) ([]string, error) {
	if _, err := strconv.Atoi(info.Input); err != nil {
		return nil, fmt.Errorf("ffmpegdevice: invalid AVFoundation index %q", info.Input)
	}
	return []string{
		"-f", "avfoundation",
		"-framerate", strconv.FormatFloat(f.FPS, 'f', -1, 64),
		"-video_size", fmt.Sprintf("%dx%d", f.Width, f.Height),
		"-pixel_format", "uyvy422",
		"-i", info.Input + ":none",
	}, nil
}

func audioInputArgs(info ports.DeviceInfo, f ports.AudioFormat) ([]string, error) {
	if strings.TrimSpace(info.Input) == "" {
		return nil, fmt.Errorf("ffmpegdevice: empty AVFoundation index")
	}
	return []string{"-f", "avfoundation", "-i", "none:" + info.Input}, nil
}
