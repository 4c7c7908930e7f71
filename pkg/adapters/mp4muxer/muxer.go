// Package mp4muxer writes encoded audio and video into a fragmented MP4 or
// QuickTime file as samples arrive.
package mp4muxer

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/Eyevinn/mp4ff/aac"
	"github.com/Eyevinn/mp4ff/mp4"

	"github.com/user/avgrabber/pkg/ports"
)

const (
	videoTimescale = 90000

	// Audio-only stretches are cut into fragments of this length.
	maxAudioFragment = time.Second
)

var (
	// ErrFinalized is returned when writing after Finalize.
	ErrFinalized = errors.New("mp4muxer: already finalized")

	// ErrUnknownTrack is returned for a track number outside the configured tracks.
	ErrUnknownTrack = errors.New("mp4muxer: unknown track")

	// ErrUnsupportedCodec is returned for stream configs the muxer cannot describe.
	ErrUnsupportedCodec = errors.New("mp4muxer: unsupported codec")

	// ErrUnsupportedSampleRate is returned for audio rates above ports.MaxSampleRate.
	ErrUnsupportedSampleRate = errors.New("mp4muxer: unsupported sample rate")
)

type track struct {
	kind      ports.MediaKind
	timescale uint32
	cfg       *ports.StreamConfig

	// id is assigned when the init segment is written; 0 means the track was omitted.
	id uint32

	// pending is held back until the next sample gives its duration.
	pending     *mp4.FullSample
	pendingNom  uint32
	readyDur    uint64
	ready       []mp4.FullSample
	nextDecode  uint64
	started     bool
	sampleCount int
}

// fragmentData is the content of one moof/mdat pair, indexed by track.
type fragmentData [][]mp4.FullSample

// Muxer implements ports.Muxer with mp4ff.
//
// The init segment (ftyp and moov) is written once every track has a
// configuration, or at Finalize with the tracks that have one. Fragments cut
// before that are kept in memory.
type Muxer struct {
	w         io.Writer
	quickTime bool
	tracks    []*track

	seq         uint32
	initWritten bool
	buffered    []fragmentData
	finalized   bool
	written     int64
	fragments   int
}

// New creates a muxer writing to w.
func New(w io.Writer, opts ports.MuxerOptions) (*Muxer, error) {
	if len(opts.Tracks) == 0 {
		return nil, fmt.Errorf("mp4muxer: no tracks")
	}
	m := &Muxer{w: w, quickTime: opts.QuickTime}
	for _, kind := range opts.Tracks {
		t := &track{kind: kind}
		if kind == ports.KindVideo {
			t.timescale = videoTimescale
		}
		m.tracks = append(m.tracks, t)
	}
	return m, nil
}

// Factory adapts New to ports.MuxerFactory.
func Factory(w io.Writer, opts ports.MuxerOptions) (ports.Muxer, error) {
	return New(w, opts)
}

// SetTrackConfig sets the stream configuration of a track.
func (m *Muxer) SetTrackConfig(idx int, cfg ports.StreamConfig) error {
	t, err := m.track(idx)
	if err != nil {
		return err
	}
	if m.initWritten {
		return nil
	}
	switch cfg.Codec {
	case "jpeg", "avc1":
		if t.kind != ports.KindVideo || cfg.Width <= 0 || cfg.Height <= 0 {
			return fmt.Errorf("%w: %s on %s track", ErrUnsupportedCodec, cfg.Codec, t.kind)
		}
	case "sowt", "mp4a":
		if t.kind != ports.KindAudio || cfg.SampleRate <= 0 || cfg.Channels <= 0 {
			return fmt.Errorf("%w: %s on %s track", ErrUnsupportedCodec, cfg.Codec, t.kind)
		}
		if cfg.SampleRate > ports.MaxSampleRate {
			return fmt.Errorf("%w: %d Hz", ErrUnsupportedSampleRate, cfg.SampleRate)
		}
		t.timescale = uint32(cfg.SampleRate)
	default:
		return fmt.Errorf("%w: %q", ErrUnsupportedCodec, cfg.Codec)
	}
	c := cfg
	t.cfg = &c
	return nil
}

// WriteSample appends a sample. The muxer keeps sample.Data.
func (m *Muxer) WriteSample(idx int, s ports.EncodedSample) error {
	t, err := m.track(idx)
	if err != nil {
		return err
	}
	if m.finalized {
		return ErrFinalized
	}
	if t.timescale == 0 {
		// Audio timescale comes from the config; fall back to a common rate.
		t.timescale = 48000
	}

	decode := toTimescale(s.PTS, t.timescale)
	if !t.started {
		t.nextDecode = decode
		t.started = true
	}
	if t.pending != nil {
		if decode <= t.pending.DecodeTime {
			decode = t.pending.DecodeTime + 1
		}
		t.pending.Dur = uint32(decode - t.pending.DecodeTime)
		t.push(*t.pending)
	} else if decode < t.nextDecode {
		decode = t.nextDecode
	}

	flags := mp4.NonSyncSampleFlags
	if s.Keyframe || t.kind == ports.KindAudio {
		flags = mp4.SyncSampleFlags
	}
	t.pending = &mp4.FullSample{
		Sample: mp4.Sample{
			Flags: flags,
			Size:  uint32(len(s.Data)),
		},
		DecodeTime: decode,
		Data:       s.Data,
	}
	t.pendingNom = toTimescaleDur(s.Duration, t.timescale)
	t.sampleCount++

	if m.shouldCut() {
		return m.cut()
	}
	return nil
}

// Finalize flushes held samples and writes the remaining fragments.
// A muxer without samples still writes a valid init segment.
func (m *Muxer) Finalize() error {
	if m.finalized {
		return nil
	}
	m.finalized = true

	for _, t := range m.tracks {
		if t.pending == nil {
			continue
		}
		dur := t.pendingNom
		if dur == 0 {
			dur = t.nominal()
		}
		t.pending.Dur = dur
		t.push(*t.pending)
		t.pending = nil
	}
	if err := m.cut(); err != nil {
		return err
	}
	if !m.initWritten {
		if err := m.writeInit(); err != nil {
			return err
		}
	}
	return nil
}

// Written returns the number of bytes written so far.
func (m *Muxer) Written() int64 {
	return m.written
}

// Fragments returns the number of fragments written so far.
func (m *Muxer) Fragments() int {
	return m.fragments
}

func (m *Muxer) track(idx int) (*track, error) {
	if idx < 0 || idx >= len(m.tracks) {
		return nil, fmt.Errorf("%w: %d", ErrUnknownTrack, idx)
	}
	return m.tracks[idx], nil
}

func (t *track) push(s mp4.FullSample) {
	t.ready = append(t.ready, s)
	t.readyDur += uint64(s.Dur)
	t.nextDecode = s.DecodeTime + uint64(s.Dur)
}

func (t *track) nominal() uint32 {
	if t.kind == ports.KindVideo {
		return t.timescale / 30
	}
	return 1024
}

// shouldCut starts a new fragment for every video sample, and every
// maxAudioFragment of audio when there is no video.
func (m *Muxer) shouldCut() bool {
	hasVideo := false
	for _, t := range m.tracks {
		if t.kind == ports.KindVideo {
			hasVideo = true
			if len(t.ready) > 0 {
				return true
			}
		}
	}
	if hasVideo {
		return false
	}
	for _, t := range m.tracks {
		if t.timescale > 0 && t.readyDur >= uint64(t.timescale)*uint64(maxAudioFragment/time.Second) {
			return true
		}
	}
	return false
}

func (m *Muxer) cut() error {
	frag := make(fragmentData, len(m.tracks))
	empty := true
	for i, t := range m.tracks {
		if len(t.ready) == 0 {
			continue
		}
		frag[i] = t.ready
		t.ready = nil
		t.readyDur = 0
		empty = false
	}
	if empty {
		return nil
	}

	if !m.initWritten {
		m.buffered = append(m.buffered, frag)
		if !m.allConfigured() {
			return nil
		}
		return m.writeInit()
	}
	return m.writeFragment(frag)
}

func (m *Muxer) allConfigured() bool {
	for _, t := range m.tracks {
		if t.cfg == nil {
			return false
		}
	}
	return true
}

func (m *Muxer) writeInit() error {
	init := mp4.CreateEmptyInit()
	var nextID uint32 = 1
	for _, t := range m.tracks {
		if t.cfg == nil {
			continue
		}
		if t.kind == ports.KindVideo {
			init.AddEmptyTrack(t.timescale, "video", "und")
		} else {
			init.AddEmptyTrack(t.timescale, "audio", "und")
		}
		trak := init.Moov.Traks[len(init.Moov.Traks)-1]
		if err := describeTrack(trak, *t.cfg); err != nil {
			return err
		}
		t.id = nextID
		nextID++
	}

	var buf bytes.Buffer
	if err := m.ftyp().Encode(&buf); err != nil {
		return fmt.Errorf("encode ftyp: %w", err)
	}
	if err := init.Moov.Encode(&buf); err != nil {
		return fmt.Errorf("encode moov: %w", err)
	}
	if err := m.write(buf.Bytes()); err != nil {
		return err
	}
	m.initWritten = true

	buffered := m.buffered
	m.buffered = nil
	for _, frag := range buffered {
		if err := m.writeFragment(frag); err != nil {
			return err
		}
	}
	return nil
}

func (m *Muxer) ftyp() *mp4.FtypBox {
	if m.quickTime {
		return mp4.NewFtyp("qt  ", 0x200, []string{"qt  "})
	}
	return mp4.NewFtyp("isom", 0x200, []string{"isom", "iso6", "mp41"})
}

func (m *Muxer) writeFragment(data fragmentData) error {
	var ids []uint32
	for i, samples := range data {
		if len(samples) > 0 && m.tracks[i].id != 0 {
			ids = append(ids, m.tracks[i].id)
		}
	}
	if len(ids) == 0 {
		return nil
	}

	m.seq++
	frag, err := mp4.CreateMultiTrackFragment(m.seq, ids)
	if err != nil {
		return fmt.Errorf("create fragment: %w", err)
	}
	for i, samples := range data {
		id := m.tracks[i].id
		if id == 0 {
			continue
		}
		for _, s := range samples {
			if err := frag.AddFullSampleToTrack(s, id); err != nil {
				return fmt.Errorf("add sample: %w", err)
			}
		}
	}

	var buf bytes.Buffer
	if err := frag.Encode(&buf); err != nil {
		return fmt.Errorf("encode fragment: %w", err)
	}
	if err := m.write(buf.Bytes()); err != nil {
		return err
	}
	m.fragments++
	return nil
}

func (m *Muxer) write(p []byte) error {
	n, err := m.w.Write(p)
	m.written += int64(n)
	if err != nil {
		return fmt.Errorf("mp4muxer: write: %w", err)
	}
	return nil
}

// describeTrack adds the sample entry for cfg to trak.
func describeTrack(trak *mp4.TrakBox, cfg ports.StreamConfig) error {
	stsd := trak.Mdia.Minf.Stbl.Stsd
	switch cfg.Codec {
	case "jpeg":
		stsd.AddChild(mp4.CreateVisualSampleEntryBox("jpeg", uint16(cfg.Width), uint16(cfg.Height), nil))
	case "avc1":
		avcC, err := mp4.CreateAvcC([][]byte{cfg.SPS}, [][]byte{cfg.PPS}, true)
		if err != nil {
			return fmt.Errorf("create avcC: %w", err)
		}
		stsd.AddChild(mp4.CreateVisualSampleEntryBox("avc1", uint16(cfg.Width), uint16(cfg.Height), avcC))
	case "sowt":
		stsd.AddChild(mp4.CreateAudioSampleEntryBox("sowt", uint16(cfg.Channels), 16, uint16(cfg.SampleRate), nil))
		return nil
	case "mp4a":
		if err := trak.SetAACDescriptor(aac.AAClc, cfg.SampleRate); err != nil {
			return fmt.Errorf("set AAC descriptor: %w", err)
		}
		return nil
	default:
		return fmt.Errorf("%w: %q", ErrUnsupportedCodec, cfg.Codec)
	}

	trak.Tkhd.Width = mp4.Fixed32(cfg.Width << 16)
	trak.Tkhd.Height = mp4.Fixed32(cfg.Height << 16)
	return nil
}

func toTimescale(d time.Duration, timescale uint32) uint64 {
	if d < 0 {
		return 0
	}
	return uint64(d) * uint64(timescale) / uint64(time.Second)
}

func toTimescaleDur(d time.Duration, timescale uint32) uint32 {
	return uint32(toTimescale(d, timescale))
}
