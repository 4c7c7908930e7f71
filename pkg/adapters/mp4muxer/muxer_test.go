package mp4muxer

import (
	"bytes"
	"errors"
	"testing"
	"time"

	"github.com/user/avgrabber/pkg/adapters/codecdetect"
	"github.com/user/avgrabber/pkg/ports"
)

var (
	jpegConfig = ports.StreamConfig{Codec: "jpeg", Width: 320, Height: 240}
	pcmConfig  = ports.StreamConfig{Codec: "sowt", SampleRate: 48000, Channels: 2}
	avOptions  = ports.MuxerOptions{Tracks: []ports.MediaKind{ports.KindVideo, ports.KindAudio}}
)

func ms(n int) time.Duration {
	return time.Duration(n) * time.Millisecond
}

func videoSample(ptsMs int) ports.EncodedSample {
	return ports.EncodedSample{Data: []byte{0xFF, 0xD8, 0xFF, 0xD9}, PTS: ms(ptsMs), Duration: ms(33), Keyframe: true}
}

func audioSample(ptsMs int) ports.EncodedSample {
	// 20 ms of stereo s16le at 48 kHz
	return ports.EncodedSample{Data: make([]byte, 960*4), PTS: ms(ptsMs), Duration: ms(20), Keyframe: true}
}

func newAVMuxer(t *testing.T, buf *bytes.Buffer) *Muxer {
	t.Helper()
	m, err := New(buf, avOptions)
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}
	if err := m.SetTrackConfig(0, jpegConfig); err != nil {
		t.Fatalf("SetTrackConfig video failed: %v", err)
	}
	if err := m.SetTrackConfig(1, pcmConfig); err != nil {
		t.Fatalf("SetTrackConfig audio failed: %v", err)
	}
	return m
}

func TestMuxer_InterleavedFragments(t *testing.T) {
	var buf bytes.Buffer
	m := newAVMuxer(t, &buf)

	writes := []struct {
		track int
		pts   int
	}{
		{0, 0}, {1, 0}, {1, 20}, {0, 33}, {1, 40}, {1, 60}, {0, 66},
	}
	for _, w := range writes {
		var s ports.EncodedSample
		if w.track == 0 {
			s = videoSample(w.pts)
		} else {
			s = audioSample(w.pts)
		}
		if err := m.WriteSample(w.track, s); err != nil {
			t.Fatalf("WriteSample(%d, %d) failed: %v", w.track, w.pts, err)
		}
	}
	if err := m.Finalize(); err != nil {
		t.Fatalf("Finalize failed: %v", err)
	}

	report, err := codecdetect.InspectBytes(buf.Bytes())
	if err != nil {
		t.Fatalf("Inspect failed: %v", err)
	}
	if report.MajorBrand != "isom" {
		t.Errorf("expected isom brand, got %q", report.MajorBrand)
	}
	if len(report.Tracks) != 2 {
		t.Fatalf("expected 2 tracks, got %d", len(report.Tracks))
	}

	video, ok := report.Track("vide")
	if !ok {
		t.Fatal("expected a video track")
	}
	if video.Codec != "jpeg" || video.Timescale != videoTimescale {
		t.Errorf("unexpected video track: %+v", video)
	}
	if video.Width != 320 || video.Height != 240 {
		t.Errorf("expected 320x240, got %dx%d", video.Width, video.Height)
	}
	if video.Samples != 3 {
		t.Errorf("expected 3 video samples, got %d", video.Samples)
	}

	audio, ok := report.Track("soun")
	if !ok {
		t.Fatal("expected an audio track")
	}
	if audio.Codec != "sowt" || audio.Timescale != 48000 {
		t.Errorf("unexpected audio track: %+v", audio)
	}
	if audio.Samples != 4 {
		t.Errorf("expected 4 audio samples, got %d", audio.Samples)
	}

	// One fragment per video frame plus the final flush.
	if report.Fragments != 3 {
		t.Errorf("expected 3 fragments, got %d", report.Fragments)
	}
	if m.Fragments() != 3 {
		t.Errorf("expected muxer to count 3 fragments, got %d", m.Fragments())
	}
	if m.Written() != int64(buf.Len()) {
		t.Errorf("expected Written %d, got %d", buf.Len(), m.Written())
	}
}

func TestMuxer_EmptyRecordingIsValid(t *testing.T) {
	var buf bytes.Buffer
	m := newAVMuxer(t, &buf)

	if err := m.Finalize(); err != nil {
		t.Fatalf("Finalize failed: %v", err)
	}
	if buf.Len() == 0 {
		t.Fatal("expected an init segment")
	}

	report, err := codecdetect.InspectBytes(buf.Bytes())
	if err != nil {
		t.Fatalf("Inspect failed: %v", err)
	}
	if len(report.Tracks) != 2 {
		t.Errorf("expected 2 tracks, got %d", len(report.Tracks))
	}
	if report.Fragments != 0 {
		t.Errorf("expected no fragments, got %d", report.Fragments)
	}
}

func TestMuxer_QuickTimeBrand(t *testing.T) {
	var buf bytes.Buffer
	m, err := New(&buf, ports.MuxerOptions{Tracks: []ports.MediaKind{ports.KindVideo}, QuickTime: true})
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}
	if err := m.SetTrackConfig(0, jpegConfig); err != nil {
		t.Fatalf("SetTrackConfig failed: %v", err)
	}
	for i := 0; i < 3; i++ {
		if err := m.WriteSample(0, videoSample(i*33)); err != nil {
			t.Fatalf("WriteSample failed: %v", err)
		}
	}
	if err := m.Finalize(); err != nil {
		t.Fatalf("Finalize failed: %v", err)
	}

	report, err := codecdetect.InspectBytes(buf.Bytes())
	if err != nil {
		t.Fatalf("Inspect failed: %v", err)
	}
	if report.MajorBrand != "qt  " {
		t.Errorf("expected QuickTime brand, got %q", report.MajorBrand)
	}
}

func TestMuxer_DefersInitUntilConfigured(t *testing.T) {
	var buf bytes.Buffer
	m, err := New(&buf, avOptions)
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}
	if err := m.SetTrackConfig(1, pcmConfig); err != nil {
		t.Fatalf("SetTrackConfig failed: %v", err)
	}

	for _, p := range []int{0, 33, 66} {
		if err := m.WriteSample(0, videoSample(p)); err != nil {
			t.Fatalf("WriteSample failed: %v", err)
		}
	}
	if buf.Len() != 0 {
		t.Fatalf("expected nothing written before the video config, got %d bytes", buf.Len())
	}

	if err := m.SetTrackConfig(0, jpegConfig); err != nil {
		t.Fatalf("SetTrackConfig failed: %v", err)
	}
	if err := m.WriteSample(0, videoSample(99)); err != nil {
		t.Fatalf("WriteSample failed: %v", err)
	}
	if buf.Len() == 0 {
		t.Fatal("expected init and buffered fragments once configured")
	}
	if err := m.Finalize(); err != nil {
		t.Fatalf("Finalize failed: %v", err)
	}

	report, err := codecdetect.InspectBytes(buf.Bytes())
	if err != nil {
		t.Fatalf("Inspect failed: %v", err)
	}
	video, ok := report.Track("vide")
	if !ok || video.Samples != 4 {
		t.Errorf("expected 4 video samples, got %+v", video)
	}
}

func TestMuxer_OmitsUnconfiguredTrack(t *testing.T) {
	var buf bytes.Buffer
	m, err := New(&buf, avOptions)
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}
	if err := m.SetTrackConfig(0, jpegConfig); err != nil {
		t.Fatalf("SetTrackConfig failed: %v", err)
	}
	if err := m.WriteSample(0, videoSample(0)); err != nil {
		t.Fatalf("WriteSample failed: %v", err)
	}
	if err := m.WriteSample(1, audioSample(0)); err != nil {
		t.Fatalf("WriteSample failed: %v", err)
	}
	if err := m.Finalize(); err != nil {
		t.Fatalf("Finalize failed: %v", err)
	}

	report, err := codecdetect.InspectBytes(buf.Bytes())
	if err != nil {
		t.Fatalf("Inspect failed: %v", err)
	}
	if len(report.Tracks) != 1 || report.Tracks[0].Handler != "vide" {
		t.Errorf("expected only the video track, got %+v", report.Tracks)
	}
}

func TestMuxer_Errors(t *testing.T) {
	var buf bytes.Buffer
	m := newAVMuxer(t, &buf)

	if err := m.WriteSample(5, videoSample(0)); !errors.Is(err, ErrUnknownTrack) {
		t.Errorf("expected ErrUnknownTrack, got %v", err)
	}
	if err := m.SetTrackConfig(1, ports.StreamConfig{Codec: "jpeg", Width: 1, Height: 1}); !errors.Is(err, ErrUnsupportedCodec) {
		t.Errorf("expected ErrUnsupportedCodec for video codec on audio track, got %v", err)
	}
	if err := m.SetTrackConfig(0, ports.StreamConfig{Codec: "vp09"}); !errors.Is(err, ErrUnsupportedCodec) {
		t.Errorf("expected ErrUnsupportedCodec, got %v", err)
	}
	for _, rate := range []int{96000, 192000} {
		cfg := pcmConfig
		cfg.SampleRate = rate
		if err := m.SetTrackConfig(1, cfg); !errors.Is(err, ErrUnsupportedSampleRate) {
			t.Errorf("expected ErrUnsupportedSampleRate for %d Hz, got %v", rate, err)
		}
	}
	if err := m.Finalize(); err != nil {
		t.Fatalf("Finalize failed: %v", err)
	}
	if err := m.WriteSample(0, videoSample(0)); !errors.Is(err, ErrFinalized) {
		t.Errorf("expected ErrFinalized, got %v", err)
	}
}

type failingWriter struct{ err error }

func (w failingWriter) Write(p []byte) (int, error) { return 0, w.err }

func TestMuxer_WriteFailure(t *testing.T) {
	diskFull := errors.New("disk full")
	m, err := New(failingWriter{err: diskFull}, avOptions)
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}
	_ = m.SetTrackConfig(0, jpegConfig)
	_ = m.SetTrackConfig(1, pcmConfig)

	if err := m.WriteSample(0, videoSample(0)); err != nil {
		t.Fatalf("first sample is held back and should not write: %v", err)
	}
	if err := m.WriteSample(1, audioSample(0)); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if err := m.WriteSample(0, videoSample(33)); !errors.Is(err, diskFull) {
		t.Errorf("expected write error, got %v", err)
	}
}
