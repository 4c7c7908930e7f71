package recorder

import (
	"context"
	"errors"
	"fmt"
	"sync/atomic"
	"time"

	"github.com/user/avgrabber/pkg/pipeline"
	"github.com/user/avgrabber/pkg/ports"
)

// stream is one track of a job: its queue, encoder and counters.
type stream struct {
	kind  ports.MediaKind
	track int
	codec string
	enc   ports.Encoder
	queue chan pipeline.RawSample

	configured bool
	written    int
	end        time.Duration

	dropped  atomic.Uint64
	lastWarn atomic.Int64
}

type job struct {
	id        string
	path      string
	startPTS  time.Duration
	startedAt time.Time

	file   ports.File
	mux    ports.Muxer
	merger *pipeline.Merger
	video  stream
	audio  stream

	// claimed is set by whichever of Stop, Abort or a failing worker
	// ends the job first.
	claimed atomic.Bool
	stop    chan struct{}
	done    chan struct{}

	// Set by the worker before done is closed.
	result Result
	err    error

	logger ports.Logger
}

// push copies data into the stream queue, dropping the oldest sample when full.
func (j *job) push(s *stream, data []byte, pts time.Duration, now time.Time) {
	if pts < j.startPTS {
		return
	}
	buf := make([]byte, len(data))
	copy(buf, data)
	sample := pipeline.RawSample{Data: buf, PTS: pts - j.startPTS}

	for {
		select {
		case s.queue <- sample:
			return
		default:
		}
		select {
		case <-s.queue:
			n := s.dropped.Add(1)
			j.warnDropped(s, n, now)
		default:
		}
	}
}

func (j *job) warnDropped(s *stream, total uint64, now time.Time) {
	last := s.lastWarn.Load()
	if last != 0 && now.UnixNano()-last < int64(warnInterval) {
		return
	}
	if s.lastWarn.CompareAndSwap(last, now.UnixNano()) {
		j.logger.Warn("Recorder queue full, dropped %d %s samples so far", total, s.kind)
	}
}

// process runs until stop is closed or an error occurs, then completes the file.
func (j *job) process() error {
	defer j.closeEncoders()

	ctx := context.Background()
	for {
		select {
		case raw := <-j.video.queue:
			if err := j.encode(ctx, &j.video, raw); err != nil {
				return j.abandon(err)
			}
		case raw := <-j.audio.queue:
			if err := j.encode(ctx, &j.audio, raw); err != nil {
				return j.abandon(err)
			}
		case <-j.stop:
			if err := j.finish(ctx); err != nil {
				return j.abandon(err)
			}
			return j.closeFile()
		}
	}
}

func (j *job) encode(ctx context.Context, s *stream, raw pipeline.RawSample) error {
	samples, err := pipeline.EncodeStage(s.enc).Execute(ctx, raw)
	if err != nil {
		return fmt.Errorf("encode %s: %w", s.kind, err)
	}
	return j.emit(s, samples)
}

// emit hands encoded samples to the merger and writes whatever it releases.
func (j *job) emit(s *stream, samples []ports.EncodedSample) error {
	if !s.configured {
		if cfg, ok := s.enc.Config(); ok {
			if err := j.mux.SetTrackConfig(s.track, cfg); err != nil {
				return fmt.Errorf("configure %s track: %w", s.kind, err)
			}
			s.configured = true
		}
	}
	for _, sample := range samples {
		j.merger.Push(s.track, sample)
	}
	for {
		out, ok := j.merger.Pop()
		if !ok {
			return nil
		}
		if err := j.write(out); err != nil {
			return err
		}
	}
}

func (j *job) write(out pipeline.Sample) error {
	if err := j.mux.WriteSample(out.Track, out.EncodedSample); err != nil {
		return fmt.Errorf("write sample: %w", err)
	}
	s := &j.video
	if out.Track == TrackAudio {
		s = &j.audio
	}
	s.written++
	if end := out.PTS + out.Duration; end > s.end {
		s.end = end
	}
	return nil
}

// finish drains the queues, flushes the encoders and finalizes the container.
func (j *job) finish(ctx context.Context) error {
drain:
	for {
		select {
		case raw := <-j.video.queue:
			if err := j.encode(ctx, &j.video, raw); err != nil {
				return err
			}
		case raw := <-j.audio.queue:
			if err := j.encode(ctx, &j.audio, raw); err != nil {
				return err
			}
		default:
			break drain
		}
	}

	for _, s := range []*stream{&j.video, &j.audio} {
		if s.enc == nil {
			continue
		}
		samples, err := s.enc.Flush()
		if err != nil {
			return fmt.Errorf("flush %s: %w", s.kind, err)
		}
		if err := j.emit(s, samples); err != nil {
			return err
		}
	}

	for _, out := range j.merger.Drain() {
		if err := j.write(out); err != nil {
			return err
		}
	}
	if err := j.mux.Finalize(); err != nil {
		return fmt.Errorf("finalize: %w", err)
	}
	return nil
}

// abandon finalizes what it can after a failure and closes the file.
func (j *job) abandon(cause error) error {
	if err := j.mux.Finalize(); err != nil {
		j.logger.Debug("Finalize after failure: %v", err)
	}
	if err := j.file.Close(); err != nil {
		j.logger.Debug("Close after failure: %v", err)
	}
	return cause
}

func (j *job) closeFile() error {
	if err := j.file.Sync(); err != nil {
		_ = j.file.Close()
		return fmt.Errorf("sync: %w", err)
	}
	if err := j.file.Close(); err != nil {
		return fmt.Errorf("close: %w", err)
	}
	return nil
}

func (j *job) closeEncoders() {
	var errs []error
	for _, s := range []*stream{&j.video, &j.audio} {
		if s.enc != nil {
			if err := s.enc.Close(); err != nil {
				errs = append(errs, err)
			}
		}
	}
	if err := errors.Join(errs...); err != nil {
		j.logger.Debug("Closing encoders: %v", err)
	}
}

func (j *job) summarize(fs ports.FileSystem) Result {
	res := Result{
		ID:           j.id,
		Path:         j.path,
		StartedAt:    j.startedAt,
		VideoCodec:   j.video.codec,
		AudioCodec:   j.audio.codec,
		VideoSamples: j.video.written,
		AudioSamples: j.audio.written,
		VideoDropped: j.video.dropped.Load(),
		AudioDropped: j.audio.dropped.Load(),
		Late:         j.merger.Late(),
	}
	res.Duration = max(j.video.end, j.audio.end)
	if size, err := fs.Size(j.path); err == nil {
		res.Bytes = size
	}
	return res
}
