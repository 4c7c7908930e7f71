package aacencoder

import "errors"

var errSync = errors.New("aacencoder: lost ADTS sync")

// adtsReader collects ADTS frames from a byte stream and strips their headers.
type adtsReader struct {
	buf []byte
}

// write appends stream data and returns the raw AAC frames completed by it.
func (r *adtsReader) write(p []byte) ([][]byte, error) {
	r.buf = append(r.buf, p...)
	var frames [][]byte
	for len(r.buf) >= 7 {
		if r.buf[0] != 0xFF || r.buf[1]&0xF6 != 0xF0 {
			return frames, errSync
		}
		protectionAbsent := r.buf[1]&0x01 == 1
		headerLen := 7
		if !protectionAbsent {
			headerLen = 9
		}
		frameLen := int(r.buf[3]&0x03)<<11 | int(r.buf[4])<<3 | int(r.buf[5])>>5
		if frameLen < headerLen {
			return frames, errSync
		}
		if len(r.buf) < frameLen {
			break
		}
		frame := make([]byte, frameLen-headerLen)
		copy(frame, r.buf[headerLen:frameLen])
		frames = append(frames, frame)
		r.buf = r.buf[frameLen:]
	}
	return frames, nil
}
