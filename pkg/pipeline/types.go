// Package pipeline provides the processing stages between capture and the container.
package pipeline

import (
	"context"
	"time"

	"github.com/user/avgrabber/pkg/ports"
)

// Stage transforms one input into one output.
type Stage[In, Out any] interface {
	Execute(ctx context.Context, input In) (Out, error)
}

// StageFunc adapts a function to Stage.
type StageFunc[In, Out any] func(ctx context.Context, input In) (Out, error)

// Execute calls f.
func (f StageFunc[In, Out]) Execute(ctx context.Context, input In) (Out, error) {
	return f(ctx, input)
}

// RawSample is a captured frame or audio block stamped on the session clock.
type RawSample struct {
	Data []byte
	PTS  time.Duration
}

// Sample is an encoded sample tagged with the track it belongs to.
type Sample struct {
	Track int
	ports.EncodedSample
}

// EncodeStage wraps an encoder as a stage.
func EncodeStage(enc ports.Encoder) Stage[RawSample, []ports.EncodedSample] {
	return StageFunc[RawSample, []ports.EncodedSample](func(ctx context.Context, in RawSample) ([]ports.EncodedSample, error) {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		return enc.Encode(in.Data, in.PTS)
	})
}
