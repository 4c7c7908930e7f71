// Package ports defines the interfaces between the capture core and its adapters.
package ports

// LogLevel represents the severity level of a log message.
type LogLevel int

const (
	// LevelDebug shows component internals: catalog scans, ffmpeg command
	// lines and recorder job details.
	LevelDebug LogLevel = iota
	// LevelInfo shows capture and recording progress. It is the CLI default.
	LevelInfo
	// LevelWarn shows recoverable problems such as dropped samples.
	LevelWarn
	// LevelError shows failures that end a recording or a device.
	LevelError
	// LevelQuiet suppresses all log output.
	LevelQuiet
)

// String returns the string representation of the log level.
func (l LogLevel) String() string {
	switch l {
	case LevelDebug:
		return "debug"
	case LevelInfo:
		return "info"
	case LevelWarn:
		return "warn"
	case LevelError:
		return "error"
	case LevelQuiet:
		return "quiet"
	default:
		return "unknown"
	}
}

// ParseLogLevel parses a string into a LogLevel.
func ParseLogLevel(s string) LogLevel {
	switch s {
	case "debug":
		return LevelDebug
	case "info":
		return LevelInfo
	case "warn":
		return LevelWarn
	case "error":
		return LevelError
	case "quiet":
		return LevelQuiet
	default:
		return LevelInfo
	}
}

// Logger is the logging port of the capture core.
// Messages are printf formats that double as lexicon keys, so a localized
// console logger can translate them before formatting.
type Logger interface {
	Debug(msg string, args ...interface{})
	Info(msg string, args ...interface{})
	Warn(msg string, args ...interface{})
	Error(msg string, args ...interface{})

	// WithComponent returns a Logger that prefixes lines with the component
	// name. Nested components are joined with "/", as in "grabber/session".
	WithComponent(component string) Logger
}
