package logger

import "github.com/user/avgrabber/pkg/ports"

// NoopLogger drops every message. avgrabber uses it for --quiet, and the
// grabber and recorder tests pass it where log output is irrelevant.
type NoopLogger struct{}

var _ ports.Logger = (*NoopLogger)(nil)

// NewNoop returns a logger that writes nothing.
func NewNoop() *NoopLogger {
	return &NoopLogger{}
}

func (l *NoopLogger) Debug(msg string, args ...interface{}) {}

func (l *NoopLogger) Info(msg string, args ...interface{}) {}

func (l *NoopLogger) Warn(msg string, args ...interface{}) {}

func (l *NoopLogger) Error(msg string, args ...interface{}) {}

// WithComponent returns l. A quiet catalog, session or recorder stays quiet.
func (l *NoopLogger) WithComponent(component string) ports.Logger {
	return l
}
