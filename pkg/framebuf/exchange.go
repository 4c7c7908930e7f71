// Package framebuf hands the latest captured frame from the capture goroutine
// to the application without blocking either side.
package framebuf

import (
	"sync/atomic"
	"time"
)

// Frame is one RGB24 video frame.
type Frame struct {
	// Seq is the publish sequence number, starting at 1.
	Seq    uint64
	PTS    time.Duration
	Width  int
	Height int
	// Pix has Width*Height*3 bytes, row-major, no padding.
	Pix []byte
}

// Stats are the exchange counters.
type Stats struct {
	Published uint64
	Taken     uint64
	// Dropped counts frames replaced before the consumer took them.
	Dropped uint64
}

// Exchange is a single-slot latest-frame-wins mailbox.
//
// One producer calls Publish and one consumer calls Take. The producer never
// writes into the frame the consumer holds: a frame returns to the free list
// only when the consumer takes the next one or when it is replaced untaken.
type Exchange struct {
	width  int
	height int

	latest atomic.Pointer[Frame]
	free   chan *Frame
	seq    atomic.Uint64

	// held is owned by the consumer.
	held *Frame

	published atomic.Uint64
	taken     atomic.Uint64
	dropped   atomic.Uint64
}

// New creates an exchange for frames of the given size.
// Three buffers are allocated: one being written, one latest, one held.
func New(width, height int) *Exchange {
	e := &Exchange{
		width:  width,
		height: height,
		free:   make(chan *Frame, 3),
	}
	for i := 0; i < 3; i++ {
		e.free <- e.alloc()
	}
	return e
}

func (e *Exchange) alloc() *Frame {
	return &Frame{Width: e.width, Height: e.height, Pix: make([]byte, e.width*e.height*3)}
}

// FrameSize returns the expected byte length of a frame.
func (e *Exchange) FrameSize() int {
	return e.width * e.height * 3
}

// Publish copies pix into a spare buffer and makes it the latest frame.
// It returns the sequence number, or 0 when pix has the wrong size.
func (e *Exchange) Publish(pix []byte, pts time.Duration) uint64 {
	if len(pix) != e.FrameSize() {
		return 0
	}

	var f *Frame
	select {
	case f = <-e.free:
	default:
		// Only reachable if buffers are leaked; keep going rather than block.
		f = e.alloc()
	}
	copy(f.Pix, pix)
	f.PTS = pts
	f.Seq = e.seq.Add(1)

	if old := e.latest.Swap(f); old != nil {
		e.dropped.Add(1)
		e.recycle(old)
	}
	e.published.Add(1)
	return f.Seq
}

// Take returns the latest frame if one was published since the last Take.
// The frame stays valid until the next successful Take.
func (e *Exchange) Take() (*Frame, bool) {
	f := e.latest.Swap(nil)
	if f == nil {
		return nil, false
	}
	if e.held != nil {
		e.recycle(e.held)
	}
	e.held = f
	e.taken.Add(1)
	return f, true
}

// Current returns the frame returned by the last successful Take.
func (e *Exchange) Current() *Frame {
	return e.held
}

// Stats returns a snapshot of the counters.
func (e *Exchange) Stats() Stats {
	return Stats{
		Published: e.published.Load(),
		Taken:     e.taken.Load(),
		Dropped:   e.dropped.Load(),
	}
}

func (e *Exchange) recycle(f *Frame) {
	select {
	case e.free <- f:
	default:
	}
}
