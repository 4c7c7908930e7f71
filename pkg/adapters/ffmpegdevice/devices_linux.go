//go:build linux

package ffmpegdevice

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"

	"github.com/user/avgrabber/pkg/ports"
)

const (
	sysVideo4Linux = "/sys/class/video4linux"
	procSoundCards = "/proc/asound/cards"
)

// listVideo returns the V4L2 capture nodes named after their driver.
func listVideo() ([]ports.DeviceInfo, error) {
	nodes, err := filepath.Glob("/dev/video*")
	if err != nil {
		return nil, err
	}
	sort.Slice(nodes, func(i, j int) bool { return nodeIndex(nodes[i]) < nodeIndex(nodes[j]) })

	var out []ports.DeviceInfo
	for _, node := range nodes {
		base := filepath.Base(node)
		name := base
		if data, err := os.ReadFile(filepath.Join(sysVideo4Linux, base, "name")); err == nil {
			if n := strings.TrimSpace(string(data)); n != "" {
				name = n
			}
		}
		out = append(out, ports.DeviceInfo{Name: name, Kind: ports.KindVideo, Input: node})
	}
	return out, nil
}

func nodeIndex(node string) int {
	n, err := strconv.Atoi(strings.TrimPrefix(filepath.Base(node), "video"))
	if err != nil {
		return 1 << 30
	}
	return n
}

// listAudio returns the PulseAudio default source followed by the ALSA cards.
func listAudio() ([]ports.DeviceInfo, error) {
	out := []ports.DeviceInfo{{Name: "Default Audio", Kind: ports.KindAudio, Input: "pulse:default"}}

	data, err := os.ReadFile(procSoundCards)
	if err != nil {
		return out, nil
	}
	for _, card := range parseALSACards(string(data)) {
		out = append(out, ports.DeviceInfo{Name: card.name, Kind: ports.KindAudio, Input: "alsa:hw:" + card.index})
	}
	return out, nil
}

func videoInputArgs(info ports.DeviceInfo, f ports.VideoFormat) ([]string, error) {
	if !strings.HasPrefix(info.Input, "/dev/video") {
		return nil, fmt.Errorf("ffmpegdevice: %q is not a V4L2 device", info.Input)
	}
	return []string{
		"-f", "v4l2",
		"-framerate", strconv.FormatFloat(f.FPS, 'f', -1, 64),
		"-video_size", fmt.Sprintf("%dx%d", f.Width, f.Height),
		"-i", info.Input,
	}, nil
}

func audioInputArgs(info ports.DeviceInfo, f ports.AudioFormat) ([]string, error) {
	format, input, ok := strings.Cut(info.Input, ":")
	if !ok || (format != "pulse" && format != "alsa") {
		return nil, fmt.Errorf("ffmpegdevice: unknown audio input %q", info.Input)
	}
	return []string{"-f", format, "-i", input}, nil
}
