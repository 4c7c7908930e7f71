package ffmpeg

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"os/exec"
	"strings"
	"sync"
)

// Process is a running ffmpeg with piped stdin and stdout.
type Process struct {
	cmd    *exec.Cmd
	stdin  io.WriteCloser
	stdout io.ReadCloser
	stderr *lockedBuffer

	closeInput sync.Once
	waitOnce   sync.Once
	waitErr    error
}

// Start runs ffmpeg with args. When input is false stdin is not connected.
func Start(args []string, input bool) (*Process, error) {
	path, err := FindFFmpeg()
	if err != nil {
		return nil, err
	}

	full := append([]string{"-hide_banner", "-loglevel", "error"}, args...)
	if !input {
		full = append([]string{"-nostdin"}, full...)
	}

	p := &Process{stderr: &lockedBuffer{}}
	p.cmd = exec.Command(path, full...)
	p.cmd.Stderr = p.stderr

	if input {
		p.stdin, err = p.cmd.StdinPipe()
		if err != nil {
			return nil, fmt.Errorf("failed to get stdin pipe: %w", err)
		}
	}
	p.stdout, err = p.cmd.StdoutPipe()
	if err != nil {
		return nil, fmt.Errorf("failed to get stdout pipe: %w", err)
	}

	if err := p.cmd.Start(); err != nil {
		return nil, fmt.Errorf("failed to start ffmpeg: %w", err)
	}
	return p, nil
}

// Write sends data to ffmpeg's stdin.
func (p *Process) Write(data []byte) (int, error) {
	if p.stdin == nil {
		return 0, fmt.Errorf("ffmpeg: stdin not connected")
	}
	return p.stdin.Write(data)
}

// Stdout returns ffmpeg's standard output.
func (p *Process) Stdout() io.Reader {
	return p.stdout
}

// CloseInput closes stdin so ffmpeg flushes and exits.
func (p *Process) CloseInput() error {
	var err error
	p.closeInput.Do(func() {
		if p.stdin != nil {
			err = p.stdin.Close()
		}
	})
	return err
}

// Wait waits for ffmpeg to exit. Stdout must be drained first.
// The error includes the tail of stderr.
func (p *Process) Wait() error {
	p.waitOnce.Do(func() {
		if err := p.cmd.Wait(); err != nil {
			p.waitErr = fmt.Errorf("ffmpeg failed: %w: %s", err, p.stderr.Tail(400))
		}
	})
	return p.waitErr
}

// Kill terminates ffmpeg and reaps it.
func (p *Process) Kill() error {
	_ = p.CloseInput()
	if p.cmd.Process != nil {
		if err := p.cmd.Process.Kill(); err != nil && !errors.Is(err, os.ErrProcessDone) {
			return err
		}
	}
	_ = p.Wait()
	return nil
}

// StderrTail returns the last n bytes of stderr.
func (p *Process) StderrTail(n int) string {
	return p.stderr.Tail(n)
}

type lockedBuffer struct {
	mu  sync.Mutex
	buf bytes.Buffer
}

func (b *lockedBuffer) Write(p []byte) (int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.Write(p)
}

func (b *lockedBuffer) Tail(n int) string {
	b.mu.Lock()
	defer b.mu.Unlock()

	s := strings.TrimSpace(b.buf.String())
	if s == "" {
		return "no ffmpeg stderr output"
	}
	if len(s) <= n {
		return s
	}
	return s[len(s)-n:]
}
