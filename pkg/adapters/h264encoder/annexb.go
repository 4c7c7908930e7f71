package h264encoder

import "bytes"

const (
	nalIDR = 5
	nalSPS = 7
	nalPPS = 8
	nalAUD = 9
)

// parseAnnexB parses Annex B byte stream into individual NAL units.
func parseAnnexB(data []byte) [][]byte {
	var nalus [][]byte
	start := 0
	i := 0

	for i < len(data) {
		// Look for start code (0x00 0x00 0x01 or 0x00 0x00 0x00 0x01)
		if i+2 < len(data) && data[i] == 0 && data[i+1] == 0 {
			startCodeLen := 0
			if data[i+2] == 1 {
				startCodeLen = 3
			} else if i+3 < len(data) && data[i+2] == 0 && data[i+3] == 1 {
				startCodeLen = 4
			}

			if startCodeLen > 0 {
				// Save previous NAL unit if any
				if i > start {
					nalus = append(nalus, data[start:i])
				}
				i += startCodeLen
				start = i
				continue
			}
		}
		i++
	}

	// Add last NAL unit
	if start < len(data) {
		nalus = append(nalus, data[start:])
	}

	return nalus
}

// convertToAVCC converts Annex B format to AVCC format (length-prefixed).
// Parameter sets and access unit delimiters are dropped; they live in avcC.
func convertToAVCC(data []byte) []byte {
	nalus := parseAnnexB(data)
	if len(nalus) == 0 {
		return data
	}

	// Calculate total size
	totalSize := 0
	for _, nalu := range nalus {
		totalSize += 4 + len(nalu) // 4-byte length prefix
	}

	result := make([]byte, totalSize)
	offset := 0

	for _, nalu := range nalus {
		if len(nalu) == 0 {
			continue
		}
		switch nalu[0] & 0x1F {
		case nalSPS, nalPPS, nalAUD:
			continue
		}

		// Write 4-byte length prefix (big endian)
		length := len(nalu)
		result[offset] = byte(length >> 24)
		result[offset+1] = byte(length >> 16)
		result[offset+2] = byte(length >> 8)
		result[offset+3] = byte(length)
		offset += 4

		// Write NAL unit data
		copy(result[offset:], nalu)
		offset += length
	}

	return result[:offset]
}

// extractSPSPPS returns the first SPS and PPS of an access unit.
func extractSPSPPS(au []byte) (sps, pps []byte) {
	for _, nalu := range parseAnnexB(au) {
		if len(nalu) == 0 {
			continue
		}
		switch nalu[0] & 0x1F {
		case nalSPS:
			if sps == nil {
				sps = append([]byte(nil), nalu...)
			}
		case nalPPS:
			if pps == nil {
				pps = append([]byte(nil), nalu...)
			}
		}
	}
	return sps, pps
}

// isKeyframe reports whether an access unit contains an IDR slice.
func isKeyframe(au []byte) bool {
	for _, nalu := range parseAnnexB(au) {
		if len(nalu) > 0 && nalu[0]&0x1F == nalIDR {
			return true
		}
	}
	return false
}

var audStartCode = []byte{0, 0, 1, nalAUD}

// splitter cuts an Annex B stream into access units at each delimiter.
type splitter struct {
	buf []byte
}

// write appends stream data and returns the access units completed by it.
// The buffer always starts at the delimiter of the unit being collected,
// so the search skips past that start code.
func (s *splitter) write(p []byte) [][]byte {
	s.buf = append(s.buf, p...)
	var units [][]byte
	for len(s.buf) > 5 {
		i := bytes.Index(s.buf[5:], audStartCode)
		if i < 0 {
			break
		}
		cut := i + 5
		if s.buf[cut-1] == 0 {
			// four-byte start code
			cut--
		}
		unit := make([]byte, cut)
		copy(unit, s.buf[:cut])
		units = append(units, unit)
		s.buf = s.buf[cut:]
	}
	return units
}

// flush returns the trailing access unit, if any.
func (s *splitter) flush() []byte {
	if len(s.buf) == 0 {
		return nil
	}
	unit := s.buf
	s.buf = nil
	return unit
}
