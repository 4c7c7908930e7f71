package logger

import (
	"bytes"
	"strings"
	"sync"
	"testing"

	"github.com/user/avgrabber/pkg/ports"
)

func TestConsoleLogger_Levels(t *testing.T) {
	var out, errOut bytes.Buffer
	log := NewWriters(ports.LevelInfo, &out, &errOut)

	log.Debug("hidden %d", 1)
	log.Info("job started: %s", "a.mp4")
	log.Warn("job aborted: %v", "lost")
	log.Error("job failed: %v", "disk full")

	if strings.Contains(out.String(), "hidden") {
		t.Error("expected debug to be filtered at info level")
	}
	if !strings.Contains(out.String(), "job started: a.mp4") {
		t.Errorf("expected info on stdout, got %q", out.String())
	}
	if !strings.Contains(errOut.String(), "job aborted: lost") || !strings.Contains(errOut.String(), "job failed: disk full") {
		t.Errorf("expected warn and error on stderr, got %q", errOut.String())
	}
}

func TestConsoleLogger_Quiet(t *testing.T) {
	var out, errOut bytes.Buffer
	log := NewWriters(ports.LevelQuiet, &out, &errOut)

	log.Error("job failed: %v", "x")

	if out.Len() != 0 || errOut.Len() != 0 {
		t.Error("expected no output at quiet level")
	}
}

func TestConsoleLogger_WithComponent(t *testing.T) {
	var out bytes.Buffer
	log := NewWriters(ports.LevelDebug, &out, &out)

	log.WithComponent("grabber").WithComponent("session").Debug("closed")

	if got := strings.TrimSpace(out.String()); got != "[grabber/session] closed" {
		t.Errorf("unexpected line %q", got)
	}
}

func TestConsoleLogger_ConcurrentLinesStayWhole(t *testing.T) {
	var out bytes.Buffer
	log := NewWriters(ports.LevelInfo, &out, &out)

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func(n int) {
			defer wg.Done()
			c := log.WithComponent("dev")
			for j := 0; j < 50; j++ {
				c.Info("job started: %d", n)
			}
		}(i)
	}
	wg.Wait()

	lines := strings.Split(strings.TrimSpace(out.String()), "\n")
	if len(lines) != 400 {
		t.Fatalf("expected 400 lines, got %d", len(lines))
	}
	for _, line := range lines {
		if !strings.HasPrefix(line, "[dev] job started: ") {
			t.Fatalf("garbled line %q", line)
		}
	}
}

func TestNoopLogger_WithComponent(t *testing.T) {
	log := NewNoop()
	if got := log.WithComponent("recorder"); got != ports.Logger(log) {
		t.Errorf("expected the same noop logger, got %T", got)
	}
}
