package ffmpeg

import (
	"context"
	"fmt"
	"os/exec"
	"strings"
	"sync"
	"time"
)

const probeTimeout = 5 * time.Second

var (
	probeMu  sync.Mutex
	probed   bool
	encoders map[string]struct{}
)

// HasEncoder reports whether the located ffmpeg provides the named encoder
// (e.g. "libx264", "aac"). The encoder list is probed once.
func HasEncoder(name string) bool {
	probeMu.Lock()
	defer probeMu.Unlock()

	if !probed {
		probed = true
		path, err := FindFFmpeg()
		if err != nil {
			return false
		}
		set, err := encoderSet(path)
		if err != nil {
			return false
		}
		encoders = set
	}
	_, ok := encoders[name]
	return ok
}

func resetProbeCache() {
	probeMu.Lock()
	defer probeMu.Unlock()
	probed = false
	encoders = nil
}

func encoderSet(ffmpegPath string) (map[string]struct{}, error) {
	ctx, cancel := context.WithTimeout(context.Background(), probeTimeout)
	defer cancel()

	cmd := exec.CommandContext(ctx, ffmpegPath, "-hide_banner", "-encoders")
	out, err := cmd.Output()
	if ctx.Err() != nil {
		return nil, fmt.Errorf("ffmpeg -encoders timeout after %s", probeTimeout)
	}
	if err != nil {
		return nil, fmt.Errorf("ffmpeg -encoders failed: %w", err)
	}
	return parseEncoders(string(out)), nil
}

// parseEncoders reads the "ffmpeg -encoders" listing.
// Lines look like " V....D libx264  libx264 H.264 ..."; fields[1] is the name.
func parseEncoders(out string) map[string]struct{} {
	set := make(map[string]struct{})
	listing := false
	for _, line := range strings.Split(out, "\n") {
		line = strings.TrimSpace(line)
		if strings.HasPrefix(line, "---") {
			listing = true
			continue
		}
		fields := strings.Fields(line)
		if !listing || len(fields) < 2 {
			continue
		}
		if strings.ContainsAny(fields[0][:1], "VAS") {
			set[fields[1]] = struct{}{}
		}
	}
	return set
}
