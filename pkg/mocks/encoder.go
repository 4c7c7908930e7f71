package mocks

import (
	"sync"
	"time"

	"github.com/user/avgrabber/pkg/ports"
)

// Encoder is a mock implementation of ports.Encoder.
// By default every input becomes one keyframe sample with the same PTS.
type Encoder struct {
	mu sync.Mutex

	EncodeFunc func(data []byte, pts time.Duration) ([]ports.EncodedSample, error)
	FlushFunc  func() ([]ports.EncodedSample, error)

	// StreamConfig is returned by Config. Codec "" means not yet known.
	StreamConfig ports.StreamConfig
	// Duration is set on samples produced by the default Encode.
	Duration time.Duration

	// Recorded calls for verification
	EncodeCalls []EncodeCall
	FlushCalled bool
	CloseCalls  int
}

// EncodeCall records a call to Encode.
type EncodeCall struct {
	Size int
	PTS  time.Duration
}

func (m *Encoder) Encode(data []byte, pts time.Duration) ([]ports.EncodedSample, error) {
	m.mu.Lock()
	m.EncodeCalls = append(m.EncodeCalls, EncodeCall{Size: len(data), PTS: pts})
	m.mu.Unlock()
	if m.EncodeFunc != nil {
		return m.EncodeFunc(data, pts)
	}
	out := make([]byte, len(data))
	copy(out, data)
	return []ports.EncodedSample{{Data: out, PTS: pts, Duration: m.Duration, Keyframe: true}}, nil
}

func (m *Encoder) Flush() ([]ports.EncodedSample, error) {
	m.mu.Lock()
	m.FlushCalled = true
	m.mu.Unlock()
	if m.FlushFunc != nil {
		return m.FlushFunc()
	}
	return nil, nil
}

func (m *Encoder) Config() (ports.StreamConfig, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.StreamConfig, m.StreamConfig.Codec != ""
}

func (m *Encoder) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.CloseCalls++
	return nil
}

// SetConfig changes the configuration returned by Config.
func (m *Encoder) SetConfig(cfg ports.StreamConfig) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.StreamConfig = cfg
}

// Calls returns a copy of the recorded Encode calls.
func (m *Encoder) Calls() []EncodeCall {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]EncodeCall(nil), m.EncodeCalls...)
}

// Factory returns an EncoderFactory that always yields m.
func (m *Encoder) Factory() ports.EncoderFactory {
	return func(params ports.EncodeParams) (ports.Encoder, error) {
		return m, nil
	}
}

var _ ports.Encoder = (*Encoder)(nil)
