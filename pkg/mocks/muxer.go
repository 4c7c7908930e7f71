package mocks

import (
	"io"
	"sync"

	"github.com/user/avgrabber/pkg/ports"
)

// Muxer is a mock implementation of ports.Muxer that records what it receives.
type Muxer struct {
	mu sync.Mutex

	WriteSampleFunc func(track int, sample ports.EncodedSample) error
	FinalizeFunc    func() error

	Options   ports.MuxerOptions
	Configs   map[int]ports.StreamConfig
	Samples   []MuxedSample
	Finalized bool
}

// MuxedSample records a call to WriteSample.
type MuxedSample struct {
	Track int
	ports.EncodedSample
}

// NewMuxer creates a new mock Muxer.
func NewMuxer() *Muxer {
	return &Muxer{Configs: make(map[int]ports.StreamConfig)}
}

func (m *Muxer) SetTrackConfig(track int, cfg ports.StreamConfig) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Configs[track] = cfg
	return nil
}

func (m *Muxer) WriteSample(track int, sample ports.EncodedSample) error {
	if m.WriteSampleFunc != nil {
		if err := m.WriteSampleFunc(track, sample); err != nil {
			return err
		}
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Samples = append(m.Samples, MuxedSample{Track: track, EncodedSample: sample})
	return nil
}

func (m *Muxer) Finalize() error {
	m.mu.Lock()
	m.Finalized = true
	m.mu.Unlock()
	if m.FinalizeFunc != nil {
		return m.FinalizeFunc()
	}
	return nil
}

// Written returns a copy of the recorded samples.
func (m *Muxer) Written() []MuxedSample {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]MuxedSample(nil), m.Samples...)
}

// IsFinalized reports whether Finalize was called.
func (m *Muxer) IsFinalized() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.Finalized
}

// Factory returns a MuxerFactory that always yields m.
func (m *Muxer) Factory() ports.MuxerFactory {
	return func(w io.Writer, opts ports.MuxerOptions) (ports.Muxer, error) {
		m.mu.Lock()
		m.Options = opts
		m.mu.Unlock()
		return m, nil
	}
}

var _ ports.Muxer = (*Muxer)(nil)
