package framebuf

import (
	"bytes"
	"sync"
	"testing"
	"time"
)

func fill(e *Exchange, v byte) []byte {
	return bytes.Repeat([]byte{v}, e.FrameSize())
}

func TestExchange_TakeEmpty(t *testing.T) {
	e := New(4, 2)
	if _, ok := e.Take(); ok {
		t.Error("expected no frame before the first publish")
	}
	if e.Current() != nil {
		t.Error("expected no current frame")
	}
}

func TestExchange_LatestWins(t *testing.T) {
	e := New(4, 2)

	e.Publish(fill(e, 1), 10*time.Millisecond)
	e.Publish(fill(e, 2), 20*time.Millisecond)
	seq := e.Publish(fill(e, 3), 30*time.Millisecond)

	f, ok := e.Take()
	if !ok {
		t.Fatal("expected a frame")
	}
	if f.Seq != seq || f.Seq != 3 {
		t.Errorf("expected seq 3, got %d", f.Seq)
	}
	if f.PTS != 30*time.Millisecond {
		t.Errorf("expected PTS 30ms, got %v", f.PTS)
	}
	if f.Pix[0] != 3 {
		t.Errorf("expected latest pixels, got %d", f.Pix[0])
	}
	if len(f.Pix) != 4*2*3 {
		t.Errorf("expected %d bytes, got %d", 4*2*3, len(f.Pix))
	}

	if _, ok := e.Take(); ok {
		t.Error("expected no new frame after take")
	}

	stats := e.Stats()
	if stats.Published != 3 || stats.Taken != 1 || stats.Dropped != 2 {
		t.Errorf("unexpected stats: %+v", stats)
	}
}

func TestExchange_HeldFrameIsNotOverwritten(t *testing.T) {
	e := New(2, 2)

	e.Publish(fill(e, 7), 0)
	held, _ := e.Take()

	for i := 0; i < 20; i++ {
		e.Publish(fill(e, byte(100+i)), time.Duration(i))
	}

	for _, b := range held.Pix {
		if b != 7 {
			t.Fatalf("held frame was overwritten: got %d", b)
		}
	}
	if e.Current() != held {
		t.Error("expected Current to return the held frame")
	}
}

func TestExchange_RejectsWrongSize(t *testing.T) {
	e := New(2, 2)
	if seq := e.Publish(make([]byte, 5), 0); seq != 0 {
		t.Errorf("expected 0 for wrong size, got %d", seq)
	}
	if _, ok := e.Take(); ok {
		t.Error("expected no frame")
	}
}

func TestExchange_Concurrent(t *testing.T) {
	e := New(8, 8)
	const frames = 2000

	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		for i := 1; i <= frames; i++ {
			e.Publish(fill(e, byte(i)), time.Duration(i))
		}
	}()

	var lastSeq uint64
	done := make(chan struct{})
	go func() {
		wg.Wait()
		close(done)
	}()

	check := func(f *Frame) {
		if f.Seq <= lastSeq {
			t.Errorf("sequence went backwards: %d after %d", f.Seq, lastSeq)
		}
		lastSeq = f.Seq
		want := f.Pix[0]
		for _, b := range f.Pix {
			if b != want {
				t.Fatalf("torn frame %d", f.Seq)
			}
		}
	}

loop:
	for {
		select {
		case <-done:
			break loop
		default:
		}
		if f, ok := e.Take(); ok {
			check(f)
		}
	}
	if f, ok := e.Take(); ok {
		check(f)
	}

	stats := e.Stats()
	if stats.Published != frames {
		t.Errorf("expected %d published, got %d", frames, stats.Published)
	}
	if stats.Taken+stats.Dropped != frames {
		t.Errorf("taken+dropped should equal published: %+v", stats)
	}
	if lastSeq != frames {
		t.Errorf("expected to end on seq %d, got %d", frames, lastSeq)
	}
}

func TestToRGBAAndBack(t *testing.T) {
	pix := []byte{
		255, 0, 0, 0, 255, 0,
		0, 0, 255, 10, 20, 30,
	}
	img := ToRGBA(pix, 2, 2, nil)
	if img.Bounds().Dx() != 2 || img.Bounds().Dy() != 2 {
		t.Fatalf("unexpected bounds %v", img.Bounds())
	}
	r, g, b, a := img.At(1, 1).RGBA()
	if r>>8 != 10 || g>>8 != 20 || b>>8 != 30 || a>>8 != 255 {
		t.Errorf("unexpected pixel at (1,1): %d %d %d %d", r>>8, g>>8, b>>8, a>>8)
	}

	back := FromImage(img, nil)
	if !bytes.Equal(back, pix) {
		t.Errorf("round trip mismatch: %v", back)
	}
}
