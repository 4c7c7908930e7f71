package summarizer

import "encoding/json"

// Formatter converts a Summary to a document.
type Formatter interface {
	Format(summary *Summary) string
}

// FormatFunc is a function adapter for the Formatter interface.
type FormatFunc func(summary *Summary) string

// Format implements the Formatter interface.
func (f FormatFunc) Format(summary *Summary) string {
	return f(summary)
}

// JSONFormatter renders a Summary as indented JSON. Durations are
// written in nanoseconds.
type JSONFormatter struct{}

// Format implements the Formatter interface.
func (JSONFormatter) Format(summary *Summary) string {
	data, err := json.MarshalIndent(summary, "", "  ")
	if err != nil {
		return "{}"
	}
	return string(data) + "\n"
}

// Extension returns the file extension for the formatter's output.
func Extension(f Formatter) string {
	if _, ok := f.(JSONFormatter); ok {
		return ".json"
	}
	return ".md"
}
