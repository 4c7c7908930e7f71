package pipeline

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/user/avgrabber/pkg/mocks"
	"github.com/user/avgrabber/pkg/ports"
)

func ms(n int) time.Duration {
	return time.Duration(n) * time.Millisecond
}

func sample(ptsMs int) ports.EncodedSample {
	return ports.EncodedSample{PTS: ms(ptsMs)}
}

func TestMerger_OrdersByTimestamp(t *testing.T) {
	m := NewMerger(2, time.Second)

	// video at 0, 33, 66 and audio at 0, 20, 40, 60, 80
	for _, p := range []int{0, 33, 66} {
		m.Push(0, sample(p))
	}
	for _, p := range []int{0, 20, 40, 60, 80} {
		m.Push(1, sample(p))
	}

	var got []time.Duration
	for {
		s, ok := m.Pop()
		if !ok {
			break
		}
		got = append(got, s.PTS)
	}

	// The video queue runs dry after 66, so 80 must wait for the next video sample.
	want := []int{0, 0, 20, 33, 40, 60, 66}
	if len(got) != len(want) {
		t.Fatalf("expected %d samples, got %d (%v)", len(want), len(got), got)
	}
	for i, w := range want {
		if got[i] != ms(w) {
			t.Errorf("sample %d: expected %v, got %v", i, ms(w), got[i])
		}
	}
	if m.Pending() != 1 {
		t.Errorf("expected 1 pending sample, got %d", m.Pending())
	}
}

func TestMerger_WaitsForAllTracks(t *testing.T) {
	m := NewMerger(2, time.Second)
	m.Push(0, sample(10))

	if _, ok := m.Pop(); ok {
		t.Fatal("expected no sample while the audio track is empty")
	}

	m.Push(1, sample(5))
	s, ok := m.Pop()
	if !ok {
		t.Fatal("expected a sample")
	}
	if s.Track != 1 || s.PTS != ms(5) {
		t.Errorf("expected audio sample at 5ms, got track %d at %v", s.Track, s.PTS)
	}
}

func TestMerger_StalledTrackDoesNotBlock(t *testing.T) {
	m := NewMerger(2, ms(100))

	m.Push(0, sample(0))
	m.Push(0, sample(50))
	if _, ok := m.Pop(); ok {
		t.Fatal("expected no sample within the lag bound")
	}

	m.Push(0, sample(160))
	s, ok := m.Pop()
	if !ok {
		t.Fatal("expected the oldest sample to be released past the lag bound")
	}
	if s.PTS != 0 {
		t.Errorf("expected 0, got %v", s.PTS)
	}
	s, ok = m.Pop()
	if !ok || s.PTS != ms(50) {
		t.Fatalf("expected 50ms to be released, got %v (ok=%v)", s.PTS, ok)
	}
	if _, ok := m.Pop(); ok {
		t.Error("expected 160ms to wait for the audio track")
	}

	// A late audio sample is still released and counted.
	m.Push(1, sample(10))
	s, ok = m.Pop()
	if !ok || s.Track != 1 {
		t.Fatalf("expected late audio sample, got %+v (ok=%v)", s, ok)
	}
	if m.Late() != 1 {
		t.Errorf("expected 1 late sample, got %d", m.Late())
	}
}

func TestMerger_ClosedTrack(t *testing.T) {
	m := NewMerger(2, time.Hour)
	m.Push(0, sample(1))
	m.Push(0, sample(2))
	m.CloseTrack(1)

	for i := 0; i < 2; i++ {
		if _, ok := m.Pop(); !ok {
			t.Fatalf("pop %d: expected a sample once the audio track is closed", i)
		}
	}
	if _, ok := m.Pop(); ok {
		t.Error("expected queue to be empty")
	}
}

func TestMerger_Drain(t *testing.T) {
	m := NewMerger(2, time.Hour)
	m.Push(0, sample(30))
	m.Push(1, sample(10))
	m.Push(1, sample(40))
	m.Push(0, sample(60))

	out := m.Drain()
	want := []struct {
		track int
		pts   int
	}{
		{1, 10}, {0, 30}, {1, 40}, {0, 60},
	}
	if len(out) != len(want) {
		t.Fatalf("expected %d samples, got %d", len(want), len(out))
	}
	for i, w := range want {
		if out[i].Track != w.track || out[i].PTS != ms(w.pts) {
			t.Errorf("sample %d: expected track %d at %dms, got track %d at %v",
				i, w.track, w.pts, out[i].Track, out[i].PTS)
		}
	}
	if m.Late() != 0 {
		t.Errorf("expected no late samples, got %d", m.Late())
	}
}

func TestEncodeStage(t *testing.T) {
	enc := &mocks.Encoder{}
	stage := EncodeStage(enc)

	out, err := stage.Execute(context.Background(), RawSample{Data: []byte{1, 2, 3}, PTS: ms(40)})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(out) != 1 || out[0].PTS != ms(40) {
		t.Fatalf("expected one sample at 40ms, got %+v", out)
	}
	if len(enc.EncodeCalls) != 1 {
		t.Errorf("expected 1 encode call, got %d", len(enc.EncodeCalls))
	}

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if _, err := stage.Execute(ctx, RawSample{}); !errors.Is(err, context.Canceled) {
		t.Errorf("expected context.Canceled, got %v", err)
	}
}
