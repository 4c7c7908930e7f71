package ports

import (
	"io"
	"time"
)

// File is a writable file handle.
type File interface {
	io.Writer

	// Sync commits the written data to stable storage.
	Sync() error

	// Close closes the file.
	Close() error
}

// FileSystem abstracts file system operations.
type FileSystem interface {
	// ReadFile reads the entire contents of a file.
	ReadFile(path string) ([]byte, error)

	// WriteFile writes data to a file, creating it if necessary.
	WriteFile(path string, data []byte) error

	// Create creates or truncates a file for streaming writes.
	// Parent directories are created as needed.
	Create(path string) (File, error)

	// MkdirAll creates a directory and all parent directories.
	MkdirAll(path string) error

	// Exists checks if a file or directory exists.
	Exists(path string) (bool, error)

	// Size returns the size of a file in bytes.
	Size(path string) (int64, error)

	// Remove deletes a file or empty directory.
	Remove(path string) error
}

// Clock provides the monotonic time base shared by all capture streams.
type Clock interface {
	Now() time.Time
}
