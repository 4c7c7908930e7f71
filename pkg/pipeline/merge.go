package pipeline

import (
	"time"

	"github.com/user/avgrabber/pkg/ports"
)

// Merger orders encoded samples of independently clocked tracks by PTS.
//
// A sample is released when every open track has a pending sample and it is
// the earliest of them, or when it trails the newest PTS seen on any track by
// more than maxLag. The second rule keeps a stalled track from holding back
// the others. Samples arriving behind what was already released are still
// released and counted as late.
//
// Merger is not safe for concurrent use.
type Merger struct {
	queues [][]ports.EncodedSample
	closed []bool
	maxLag time.Duration

	newest    time.Duration
	watermark time.Duration
	released  bool
	late      int
}

// NewMerger creates a merger for the given number of tracks.
func NewMerger(tracks int, maxLag time.Duration) *Merger {
	return &Merger{
		queues: make([][]ports.EncodedSample, tracks),
		closed: make([]bool, tracks),
		maxLag: maxLag,
	}
}

// Push queues a sample. Samples of one track must be pushed in PTS order.
func (m *Merger) Push(track int, s ports.EncodedSample) {
	m.queues[track] = append(m.queues[track], s)
	if s.PTS > m.newest {
		m.newest = s.PTS
	}
}

// CloseTrack marks a track as finished so it no longer holds back the others.
func (m *Merger) CloseTrack(track int) {
	m.closed[track] = true
}

// Pop returns the next sample ready for the container.
func (m *Merger) Pop() (Sample, bool) {
	best := -1
	complete := true
	for i, q := range m.queues {
		if len(q) == 0 {
			if !m.closed[i] {
				complete = false
			}
			continue
		}
		if best < 0 || q[0].PTS < m.queues[best][0].PTS {
			best = i
		}
	}
	if best < 0 {
		return Sample{}, false
	}
	head := m.queues[best][0]
	if !complete && m.newest-head.PTS <= m.maxLag {
		return Sample{}, false
	}

	m.queues[best][0] = ports.EncodedSample{}
	m.queues[best] = m.queues[best][1:]
	if m.released && head.PTS < m.watermark {
		m.late++
	} else {
		m.watermark = head.PTS
	}
	m.released = true
	return Sample{Track: best, EncodedSample: head}, true
}

// Drain closes every track and returns all remaining samples in order.
func (m *Merger) Drain() []Sample {
	for i := range m.closed {
		m.closed[i] = true
	}
	var out []Sample
	for {
		s, ok := m.Pop()
		if !ok {
			return out
		}
		out = append(out, s)
	}
}

// Pending returns the number of queued samples.
func (m *Merger) Pending() int {
	n := 0
	for _, q := range m.queues {
		n += len(q)
	}
	return n
}

// Late returns how many samples were released behind the watermark.
func (m *Merger) Late() int {
	return m.late
}
