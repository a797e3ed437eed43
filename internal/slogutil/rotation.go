package slogutil

import (
	"io"
	"log/slog"
	"os"
	"path/filepath"

	"gopkg.in/natefinch/lumberjack.v2"
)

// OpenRotatingFile returns a writer appending to path that rotates once the
// file exceeds maxSizeMB megabytes, keeping maxBackups old files. Zero
// maxSizeMB uses lumberjack's 100 MB default; zero maxBackups keeps all.
func OpenRotatingFile(path string, maxSizeMB, maxBackups int) (io.WriteCloser, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, err
	}
	return &lumberjack.Logger{
		Filename:   path,
		MaxSize:    maxSizeMB,
		MaxBackups: maxBackups,
	}, nil
}

// NewFileLogger creates a logger writing to a rotating file at path.
// The caller closes the returned closer.
func NewFileLogger(path string, level slog.Level, maxSizeMB, maxBackups int) (*slog.Logger, io.Closer, error) {
	w, err := OpenRotatingFile(path, maxSizeMB, maxBackups)
	if err != nil {
		return nil, nil, err
	}
	return NewLogger(w, level), w, nil
}
