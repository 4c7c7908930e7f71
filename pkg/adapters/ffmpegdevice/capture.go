package ffmpegdevice

import (
	"errors"
	"fmt"
	"io"
	"sync"
	"sync/atomic"

	"github.com/user/avgrabber/pkg/adapters/ffmpeg"
	"github.com/user/avgrabber/pkg/ports"
)

// ErrAlreadyStarted is returned by a second Start.
var ErrAlreadyStarted = errors.New("ffmpegdevice: already started")

// capture runs one ffmpeg process and delivers its stdout in fixed-size chunks.
type capture struct {
	name   string
	args   []string
	chunk  int
	logger ports.Logger

	mu      sync.Mutex
	proc    *ffmpeg.Process
	done    chan struct{}
	stopped atomic.Bool
}

func newCapture(name string, args []string, chunk int, logger ports.Logger) *capture {
	return &capture{name: name, args: args, chunk: chunk, logger: logger}
}

// Start launches ffmpeg. onError is called once if it exits unexpectedly.
func (c *capture) Start(onData ports.DataFunc, onError ports.ErrorFunc) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.proc != nil {
		return ErrAlreadyStarted
	}

	proc, err := ffmpeg.Start(c.args, false)
	if err != nil {
		return err
	}
	c.logger.Debug("Capturing %s: ffmpeg %v", c.name, c.args)

	c.proc = proc
	c.done = make(chan struct{})
	c.stopped.Store(false)
	go c.read(proc, onData, onError, c.done)
	return nil
}

func (c *capture) read(proc *ffmpeg.Process, onData ports.DataFunc, onError ports.ErrorFunc, done chan struct{}) {
	defer close(done)

	buf := make([]byte, c.chunk)
	var readErr error
	for {
		if _, err := io.ReadFull(proc.Stdout(), buf); err != nil {
			readErr = err
			break
		}
		onData(buf)
	}

	waitErr := proc.Wait()
	if c.stopped.Load() {
		return
	}
	err := waitErr
	if err == nil {
		err = fmt.Errorf("ffmpeg ended the stream: %v: %s", readErr, proc.StderrTail(400))
	}
	if onError != nil {
		onError(err)
	}
}

// Stop terminates ffmpeg and waits for the reader. Calling Stop twice is a no-op.
func (c *capture) Stop() error {
	c.mu.Lock()
	proc, done := c.proc, c.done
	c.proc = nil
	c.mu.Unlock()
	if proc == nil {
		return nil
	}

	c.stopped.Store(true)
	err := proc.Kill()
	<-done
	return err
}
