package ffmpegdevice

import (
	"bufio"
	"regexp"
	"strings"
)

// avfEntry is a device from the AVFoundation listing.
type avfEntry struct {
	index string
	name  string
}

var avfDevice = regexp.MustCompile(`\]\s*\[(\d+)\]\s*(.+)$`)

// parseAVFoundation reads the output of
// "ffmpeg -f avfoundation -list_devices true -i ''".
func parseAVFoundation(out string) (video, audio []avfEntry) {
	var section *[]avfEntry
	sc := bufio.NewScanner(strings.NewReader(out))
	for sc.Scan() {
		line := strings.TrimSpace(sc.Text())
		switch {
		case strings.Contains(line, "AVFoundation video devices"):
			section = &video
			continue
		case strings.Contains(line, "AVFoundation audio devices"):
			section = &audio
			continue
		}
		if section == nil {
			continue
		}
		m := avfDevice.FindStringSubmatch(line)
		if m == nil {
			continue
		}
		*section = append(*section, avfEntry{index: m[1], name: strings.TrimSpace(m[2])})
	}
	return video, audio
}

// alsaCard is a sound card from /proc/asound/cards.
type alsaCard struct {
	index string
	name  string
}

var alsaLine = regexp.MustCompile(`^\s*(\d+)\s+\[[^\]]*\]:\s*.*?\s-\s(.+)$`)

// parseALSACards reads /proc/asound/cards. Each card has a header line
// " 0 [PCH            ]: HDA-Intel - HDA Intel PCH" followed by a detail line.
func parseALSACards(content string) []alsaCard {
	var cards []alsaCard
	sc := bufio.NewScanner(strings.NewReader(content))
	for sc.Scan() {
		m := alsaLine.FindStringSubmatch(sc.Text())
		if m == nil {
			continue
		}
		cards = append(cards, alsaCard{index: m[1], name: strings.TrimSpace(m[2])})
	}
	return cards
}
