package ffmpeg

import (
	"errors"
	"io"
	"os"
	"path/filepath"
	"testing"
)

func TestParseEncoders(t *testing.T) {
	out := `Encoders:
 V..... = Video
 A..... = Audio
 ------
 V....D libx264              libx264 H.264 / AVC / MPEG-4 AVC (codec h264)
 V....D mjpeg                MJPEG (Motion JPEG)
 A....D aac                  AAC (Advanced Audio Coding)
`
	set := parseEncoders(out)

	for _, name := range []string{"libx264", "mjpeg", "aac"} {
		if _, ok := set[name]; !ok {
			t.Errorf("expected encoder %q", name)
		}
	}
	if _, ok := set["="]; ok {
		t.Error("legend lines must not be parsed as encoders")
	}
	if len(set) != 3 {
		t.Errorf("expected 3 encoders, got %d", len(set))
	}
}

func TestHasEncoder_CustomPath(t *testing.T) {
	dir := t.TempDir()
	fake := filepath.Join(dir, "ffmpeg")
	script := "#!/bin/sh\n" +
		"echo 'Encoders:'\n" +
		"echo ' V..... = Video'\n" +
		"echo ' A..... = Audio'\n" +
		"echo ' ------'\n" +
		"echo ' V....D libx264              libx264 H.264 / AVC / MPEG-4 AVC (codec h264)'\n" +
		"echo ' A....D aac                  AAC (Advanced Audio Coding)'\n"
	if err := os.WriteFile(fake, []byte(script), 0755); err != nil {
		t.Fatalf("failed to write fake ffmpeg: %v", err)
	}

	SetFFmpegPath(fake)
	defer SetFFmpegPath("")

	for _, name := range []string{"libx264", "aac"} {
		if !HasEncoder(name) {
			t.Errorf("expected encoder %q to be available", name)
		}
	}
	if HasEncoder("libvpx") {
		t.Error("expected libvpx to be unavailable")
	}
}

func TestFindFFmpeg_CustomPath(t *testing.T) {
	dir := t.TempDir()
	fake := filepath.Join(dir, "ffmpeg")
	if err := os.WriteFile(fake, []byte("#!/bin/sh\n"), 0755); err != nil {
		t.Fatalf("failed to write fake ffmpeg: %v", err)
	}

	SetFFmpegPath(fake)
	defer SetFFmpegPath("")

	path, err := FindFFmpeg()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if path != fake {
		t.Errorf("expected %s, got %s", fake, path)
	}

	SetFFmpegPath(filepath.Join(dir, "missing"))
	if _, err := FindFFmpeg(); !errors.Is(err, ErrFFmpegNotFound) {
		t.Errorf("expected ErrFFmpegNotFound, got %v", err)
	}
}

func TestProcess_RoundTrip(t *testing.T) {
	if !IsAvailable() {
		t.Skip("ffmpeg not available")
	}

	// Pass 4 bytes of raw audio through unchanged.
	p, err := Start([]string{"-f", "s16le", "-ar", "8000", "-ac", "1", "-i", "pipe:0", "-f", "s16le", "pipe:1"}, true)
	if err != nil {
		t.Fatalf("Start failed: %v", err)
	}

	done := make(chan []byte, 1)
	go func() {
		data, _ := io.ReadAll(p.Stdout())
		done <- data
	}()

	if _, err := p.Write([]byte{1, 0, 2, 0}); err != nil {
		t.Fatalf("Write failed: %v", err)
	}
	if err := p.CloseInput(); err != nil {
		t.Fatalf("CloseInput failed: %v", err)
	}
	data := <-done
	if err := p.Wait(); err != nil {
		t.Fatalf("Wait failed: %v", err)
	}
	if len(data) != 4 {
		t.Errorf("expected 4 bytes, got %d", len(data))
	}
}
