package h264encoder

import (
	"bytes"
	"testing"
	"time"

	"github.com/user/avgrabber/pkg/ports"
)

// createTestFrame creates an RGB24 gradient that changes with frame number
func createTestFrame(width, height int, frameNum int) []byte {
	pix := make([]byte, width*height*3)
	for y := 0; y < height; y++ {
		for x := 0; x < width; x++ {
			o := (y*width + x) * 3
			pix[o] = uint8((x*255/width + frameNum*10) % 256)
			pix[o+1] = uint8((y*255/height + frameNum*5) % 256)
			pix[o+2] = uint8((x + y + frameNum*3) % 256)
		}
	}
	return pix
}

// accessUnit builds an Annex B access unit from NAL unit types.
// Every type except the delimiter carries nal_ref_idc 3.
func accessUnit(types ...byte) []byte {
	var au []byte
	for _, typ := range types {
		header := typ
		if typ != nalAUD {
			header |= 0x60
		}
		au = append(au, 0, 0, 0, 1, header, 0xAA, 0xBB)
	}
	return au
}

func TestParseAnnexB(t *testing.T) {
	data := []byte{0, 0, 0, 1, 0x67, 1, 2, 0, 0, 1, 0x68, 3, 0, 0, 1, 0x65, 4, 5, 6}
	nalus := parseAnnexB(data)
	if len(nalus) != 3 {
		t.Fatalf("expected 3 NAL units, got %d", len(nalus))
	}
	if !bytes.Equal(nalus[0], []byte{0x67, 1, 2}) {
		t.Errorf("unexpected SPS: %v", nalus[0])
	}
	if !bytes.Equal(nalus[2], []byte{0x65, 4, 5, 6}) {
		t.Errorf("unexpected slice: %v", nalus[2])
	}
}

func TestConvertToAVCC_DropsParameterSets(t *testing.T) {
	au := accessUnit(nalAUD, nalSPS, nalPPS, nalIDR)
	avcc := convertToAVCC(au)

	want := []byte{0, 0, 0, 3, 0x65, 0xAA, 0xBB}
	if !bytes.Equal(avcc, want) {
		t.Errorf("expected %v, got %v", want, avcc)
	}
}

func TestExtractSPSPPSAndKeyframe(t *testing.T) {
	au := accessUnit(nalAUD, nalSPS, nalPPS, nalIDR)
	sps, pps := extractSPSPPS(au)
	if len(sps) == 0 || sps[0] != 0x67 {
		t.Errorf("unexpected SPS %v", sps)
	}
	if len(pps) == 0 || pps[0] != 0x68 {
		t.Errorf("unexpected PPS %v", pps)
	}
	if !isKeyframe(au) {
		t.Error("expected IDR access unit to be a keyframe")
	}
	if isKeyframe(accessUnit(nalAUD, 1)) {
		t.Error("expected non-IDR access unit not to be a keyframe")
	}
}

func TestSplitter(t *testing.T) {
	first := accessUnit(nalAUD, nalSPS, nalPPS, nalIDR)
	second := accessUnit(nalAUD, 1)
	third := accessUnit(nalAUD, 1)
	stream := append(append(append([]byte{}, first...), second...), third...)

	var sp splitter
	var units [][]byte
	// Feed in small chunks to exercise boundaries.
	for i := 0; i < len(stream); i += 3 {
		end := i + 3
		if end > len(stream) {
			end = len(stream)
		}
		units = append(units, sp.write(stream[i:end])...)
	}
	if tail := sp.flush(); tail != nil {
		units = append(units, tail)
	}

	if len(units) != 3 {
		t.Fatalf("expected 3 access units, got %d", len(units))
	}
	for i, want := range [][]byte{first, second, third} {
		if !bytes.Equal(units[i], want) {
			t.Errorf("unit %d: expected %v, got %v", i, want, units[i])
		}
	}
}

func TestEncoderBasic(t *testing.T) {
	if !IsAvailable() {
		t.Skip("ffmpeg with libx264 not available")
	}

	width, height := 320, 240
	enc, err := New(ports.EncodeParams{
		Video:   ports.VideoFormat{Width: width, Height: height, FPS: 30},
		Options: ports.EncoderOptions{Quality: 28},
	})
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}
	defer enc.Close()

	numFrames := 30
	var samples []ports.EncodedSample
	for i := 0; i < numFrames; i++ {
		pts := time.Duration(i) * time.Second / 30
		out, err := enc.Encode(createTestFrame(width, height, i), pts)
		if err != nil {
			t.Fatalf("Encode failed at frame %d: %v", i, err)
		}
		samples = append(samples, out...)
	}
	rest, err := enc.Flush()
	if err != nil {
		t.Fatalf("Flush failed: %v", err)
	}
	samples = append(samples, rest...)

	if len(samples) != numFrames {
		t.Fatalf("expected %d samples, got %d", numFrames, len(samples))
	}
	if !samples[0].Keyframe {
		t.Error("expected first sample to be a keyframe")
	}
	for i := 1; i < len(samples); i++ {
		if samples[i].PTS <= samples[i-1].PTS {
			t.Errorf("sample %d: PTS not increasing", i)
		}
	}

	cfg, ok := enc.Config()
	if !ok {
		t.Fatal("expected config after encoding")
	}
	if cfg.Codec != "avc1" || len(cfg.SPS) == 0 || len(cfg.PPS) == 0 {
		t.Errorf("unexpected config %+v", cfg)
	}
}

func TestEncoderRejectsOddSize(t *testing.T) {
	if _, err := New(ports.EncodeParams{Video: ports.VideoFormat{Width: 321, Height: 240}}); err == nil {
		t.Error("expected error for odd width")
	}
}
